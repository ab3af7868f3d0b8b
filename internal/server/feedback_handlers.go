package server

import (
	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
)

type reportRequest struct {
	Reason  models.ReportReason `json:"reason"`
	Details string              `json:"details"`
}

type notInterestedRequest struct {
	Reason models.NotInterestedReason `json:"reason"`
}

// ReportPost handles POST /api/posts/report/:postId
// @Summary Report a post
// @Description A reported post disappears from every other user's feed
// @Tags feedback
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param postId path int true "Post ID"
// @Param request body reportRequest true "Reason and optional details"
// @Success 201 {object} models.ReportRecord
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /posts/report/{postId} [post]
func (s *Server) ReportPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req reportRequest
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	report, err := s.visibilityService.ReportPost(c.UserContext(), currentUserID(c), postID, req.Reason, req.Details)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(report)
}

// UnreportPost handles DELETE /api/posts/report/:postId
func (s *Server) UnreportPost(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.visibilityService.UnreportPost(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Report withdrawn", "")
}

// GetMyReports handles GET /api/posts/reported
func (s *Server) GetMyReports(c *fiber.Ctx) error {
	reports, err := s.visibilityService.ListMyReports(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(reports)
}

// MarkNotInterested handles POST /api/posts/not-interested/:postId. The
// body is optional.
func (s *Server) MarkNotInterested(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	var req notInterestedRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&req); err != nil {
			return models.RespondWithError(c, fiber.StatusBadRequest,
				models.NewValidationError("Invalid request body"))
		}
	}

	rec, err := s.visibilityService.MarkNotInterested(c.UserContext(), currentUserID(c), postID, req.Reason)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(rec)
}

// RemoveNotInterested handles DELETE /api/posts/not-interested/:postId
func (s *Server) RemoveNotInterested(c *fiber.Ctx) error {
	postID, err := s.parseID(c, "postId")
	if err != nil {
		return nil
	}
	if err := s.visibilityService.RemoveNotInterested(c.UserContext(), currentUserID(c), postID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Post restored to your feed", "")
}

// GetNotInterested handles GET /api/posts/not-interested
func (s *Server) GetNotInterested(c *fiber.Ctx) error {
	marks, err := s.visibilityService.ListNotInterested(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(marks)
}
