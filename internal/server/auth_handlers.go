package server

import (
	"time"

	"orbit/internal/models"

	"github.com/gofiber/fiber/v2"
)

const accessTokenTTL = 24 * time.Hour

// registerResponse is returned by Register.
type registerResponse struct {
	Token string             `json:"token"`
	User  models.UserSummary `json:"user"`
}

// Register handles POST /api/auth/register
// @Summary Register an account
// @Description Creates a user or creator account and returns a bearer token for it
// @Tags auth
// @Accept json
// @Produce json
// @Param request body models.UserParams true "Signup request"
// @Success 201 {object} registerResponse
// @Failure 400 {object} models.ErrorResponse
// @Router /auth/register [post]
func (s *Server) Register(c *fiber.Ctx) error {
	var req models.UserParams
	if err := c.BodyParser(&req); err != nil {
		return models.RespondWithError(c, fiber.StatusBadRequest,
			models.NewValidationError("Invalid request body"))
	}

	user, err := s.userService.Register(c.UserContext(), req)
	if err != nil {
		return s.respondError(c, err)
	}

	token, _, err := s.verifier.Issue(user.ID, accessTokenTTL)
	if err != nil {
		return models.RespondWithError(c, fiber.StatusInternalServerError, models.NewInternalError(err))
	}

	return c.Status(fiber.StatusCreated).JSON(registerResponse{
		Token: token,
		User:  models.NewUserSummary(user),
	})
}
