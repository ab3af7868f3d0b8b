package server

import (
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"orbit/internal/media"
	"orbit/internal/models"
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
)

const uploadField = "files"

type createPostRequest struct {
	Title         string   `json:"title"`
	Description   string   `json:"description"`
	Location      string   `json:"location"`
	Media         []string `json:"media"`
	CoverPhoto    string   `json:"cover_photo"`
	Video         string   `json:"video"`
	Categories    []string `json:"categories"`
	SubCategories []string `json:"sub_categories"`
	IsBlog        bool     `json:"is_blog"`
	Sensitive     bool     `json:"sensitive"`
}

type commentRequest struct {
	Body string `json:"body"`
}

// CreatePost handles POST /api/posts
// @Summary Create a post
// @Description Accepts JSON, or multipart/form-data with uploaded files under "files"
// @Tags posts
// @Accept json,mpfd
// @Produce json
// @Security BearerAuth
// @Param request body createPostRequest true "Post fields"
// @Success 201 {object} models.PostView
// @Failure 400 {object} models.ErrorResponse
// @Router /posts [post]
func (s *Server) CreatePost(c *fiber.Ctx) error {
	userID := currentUserID(c)
	in := service.CreatePostInput{UserID: userID}

	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		form, err := c.MultipartForm()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid multipart form"))
		}
		uploads, closeAll, err := openUploads(form.File[uploadField])
		defer closeAll()
		if err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Could not read uploaded file"))
		}
		fillFromForm(&in, form.Value)
		in.Uploads = uploads
	} else {
		var req createPostRequest
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
		in.Title, in.Description, in.Location = req.Title, req.Description, req.Location
		in.Media, in.CoverPhoto, in.Video = req.Media, req.CoverPhoto, req.Video
		in.Categories, in.SubCategories = req.Categories, req.SubCategories
		in.IsBlog, in.Sensitive = req.IsBlog, req.Sensitive
	}

	post, err := s.postService.CreatePost(c.UserContext(), in)
	if err != nil {
		return s.respondError(c, err)
	}
	views, err := s.feedService.PostViews(c.UserContext(), userID, []*models.Post{post})
	if err != nil || len(views) == 0 {
		return c.Status(fiber.StatusCreated).JSON(post)
	}
	return c.Status(fiber.StatusCreated).JSON(views[0])
}

// fillFromForm copies multipart text fields. List fields may repeat or be
// comma separated.
func fillFromForm(in *service.CreatePostInput, values map[string][]string) {
	first := func(key string) string {
		if v := values[key]; len(v) > 0 {
			return v[0]
		}
		return ""
	}
	list := func(key string) []string {
		var out []string
		for _, v := range values[key] {
			out = append(out, strings.Split(v, ",")...)
		}
		return out
	}
	flag := func(key string) bool {
		b, _ := strconv.ParseBool(first(key))
		return b
	}

	in.Title = first("title")
	in.Description = first("description")
	in.Location = first("location")
	in.CoverPhoto = first("cover_photo")
	in.Video = first("video")
	in.Media = list("media")
	in.Categories = list("categories")
	in.SubCategories = list("sub_categories")
	in.IsBlog = flag("is_blog")
	in.Sensitive = flag("sensitive")
}

func openUploads(files []*multipart.FileHeader) ([]media.Upload, func(), error) {
	var closers []io.Closer
	closeAll := func() {
		for _, c := range closers {
			_ = c.Close()
		}
	}
	uploads := make([]media.Upload, 0, len(files))
	for _, fh := range files {
		f, err := fh.Open()
		if err != nil {
			return nil, closeAll, err
		}
		closers = append(closers, f)
		uploads = append(uploads, media.Upload{
			Filename:    fh.Filename,
			ContentType: fh.Header.Get(fiber.HeaderContentType),
			Size:        fh.Size,
			Body:        f,
		})
	}
	return uploads, closeAll, nil
}

// DeletePost handles DELETE /api/posts/:postId
func (s *Server) DeletePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.DeletePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post deleted", "")
}

// PinPost handles POST /api/posts/pin/:postId
// @Summary Pin a post
// @Description Owners may pin a limited number of posts; pinned posts lead the home feed
// @Tags posts
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/pin/{postId} [post]
func (s *Server) PinPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	pinned, err := s.postService.PinPost(c.UserContext(), currentUserID(c), postID)
	if err != nil {
		return s.respondError(c, err)
	}
	if !pinned {
		return respondOK(c, fiber.StatusOK, "Post is already pinned", "")
	}
	return respondOK(c, fiber.StatusOK, "Post pinned", "")
}

// UnpinPost handles POST /api/posts/unpin/:postId
func (s *Server) UnpinPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.UnpinPost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post unpinned", "")
}

// ArchivePost handles POST /api/posts/archive/:postId
func (s *Server) ArchivePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.ArchivePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post archived", "")
}

// UnarchivePost handles POST /api/posts/unarchive/:postId
func (s *Server) UnarchivePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.UnarchivePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post restored", "")
}

// LikePost handles POST /api/posts/:postId/like
func (s *Server) LikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.LikePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post liked", "")
}

// UnlikePost handles DELETE /api/posts/:postId/like
func (s *Server) UnlikePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.UnlikePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Like removed", "")
}

// SavePost handles POST /api/posts/:postId/save
func (s *Server) SavePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.SavePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post saved", "")
}

// UnsavePost handles DELETE /api/posts/:postId/save
func (s *Server) UnsavePost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.postService.UnsavePost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post removed from saved", "")
}

// GetComments handles GET /api/posts/:postId/comments
func (s *Server) GetComments(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	page := parsePagination(c, 50)

	comments, err := s.postService.ListComments(c.UserContext(), currentUserID(c), postID, page.Limit, page.Offset)
	if err != nil {
		return s.respondError(c, err)
	}
	views := make([]models.CommentView, 0, len(comments))
	for _, cm := range comments {
		views = append(views, models.NewCommentView(cm))
	}
	return c.JSON(views)
}

// CreateComment handles POST /api/posts/:postId/comments
func (s *Server) CreateComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req commentRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	comment, err := s.postService.AddComment(c.UserContext(), currentUserID(c), postID, req.Body)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(models.NewCommentView(comment))
}

// DeleteComment handles DELETE /api/posts/:postId/comments/:commentId
func (s *Server) DeleteComment(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	commentID, err := s.parseID(c, "commentId")
	if err != nil {
		return nil
	}
	if err := s.postService.DeleteComment(c.UserContext(), currentUserID(c), postID, commentID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Comment deleted", "")
}
