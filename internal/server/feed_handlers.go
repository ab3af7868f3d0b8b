package server

import (
	"net/url"

	"orbit/internal/models"
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// GetFeed handles GET /api/posts/all
// @Summary Home feed
// @Description Visible posts, pinned first, without reported posts, not-interested authors or blocked users
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param limit query int false "Page size"
// @Param offset query int false "Offset"
// @Success 200 {array} models.PostView
// @Router /posts/all [get]
func (s *Server) GetFeed(c *fiber.Ctx) error {
	return s.composeFeed(c, service.FeedQuery{})
}

// GetCategoryFeed handles GET /api/posts/category/:category
// @Summary Category feed
// @Description Case-insensitive category match, newest first
// @Tags feed
// @Produce json
// @Security BearerAuth
// @Param category path string true "Category name"
// @Success 200 {array} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts/category/{category} [get]
func (s *Server) GetCategoryFeed(c *fiber.Ctx) error {
	category, err := url.PathUnescape(c.Params("category"))
	if err != nil || category == "" {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid category"))
	}
	return s.composeFeed(c, service.FeedQuery{Category: category})
}

// GetUserFeed handles GET /api/posts/user/:userId
func (s *Server) GetUserFeed(c *fiber.Ctx) error {
	authorID, err := s.parseID(c, "userId")
	if err != nil {
		return nil
	}
	return s.composeFeed(c, service.FeedQuery{AuthorID: authorID})
}

func (s *Server) composeFeed(c *fiber.Ctx, q service.FeedQuery) error {
	page := parsePagination(c, s.feedPageSize())
	q.Limit, q.Offset = page.Limit, page.Offset

	views, err := s.feedService.ComposeFeed(c.UserContext(), currentUserID(c), q)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(views)
}

// GetPost handles GET /api/posts/:postId
func (s *Server) GetPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	view, err := s.feedService.GetPost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(view)
}

// GetArchivedPosts handles GET /api/posts/archived
func (s *Server) GetArchivedPosts(c *fiber.Ctx) error {
	userID := currentUserID(c)
	posts, err := s.postService.ListArchived(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondPosts(c, userID, posts)
}

// GetSavedPosts handles GET /api/posts/saved
func (s *Server) GetSavedPosts(c *fiber.Ctx) error {
	userID := currentUserID(c)
	posts, err := s.postService.ListSaved(c.UserContext(), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return s.respondPosts(c, userID, posts)
}

func (s *Server) respondPosts(c *fiber.Ctx, viewerID uint, posts []*models.Post) error {
	views, err := s.feedService.PostViews(c.UserContext(), viewerID, posts)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(views)
}
