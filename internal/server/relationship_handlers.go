package server

import (
	"orbit/internal/service"

	"github.com/gofiber/fiber/v2"
)

// CodeAlreadyBlocked tags a block of a user who was already blocked.
const CodeAlreadyBlocked = "ALREADY_BLOCKED"

type followResponse struct {
	Message string                `json:"message"`
	Outcome service.FollowOutcome `json:"outcome"`
}

var followMessages = map[service.FollowOutcome]string{
	service.FollowOutcomeFollowed:         "You are now following this user",
	service.FollowOutcomeRequested:        "Follow request sent",
	service.FollowOutcomeAlreadyFollowing: "You already follow this user",
	service.FollowOutcomeAlreadyRequested: "Follow request already sent",
}

// FollowUser handles POST /api/users/follow/:id
// @Summary Follow a user
// @Description Creators are followed immediately; everyone else receives a follow request
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "Target user ID"
// @Success 201 {object} followResponse
// @Success 200 {object} followResponse
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/follow/{id} [post]
func (s *Server) FollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}

	outcome, err := s.relationshipService.SendFollowRequest(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondError(c, err)
	}

	status := fiber.StatusOK
	if outcome.Created() {
		status = fiber.StatusCreated
	}
	return c.Status(status).JSON(followResponse{Message: followMessages[outcome], Outcome: outcome})
}

// AcceptFollow handles POST /api/users/accept-follow/:id where :id is the requester.
func (s *Server) AcceptFollow(c *fiber.Ctx) error {
	requesterID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.relationshipService.AcceptFollowRequest(c.UserContext(), currentUserID(c), requesterID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Follow request accepted", "")
}

// DeclineFollow handles POST /api/users/decline-follow/:id where :id is the requester.
func (s *Server) DeclineFollow(c *fiber.Ctx) error {
	requesterID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.relationshipService.DeclineFollowRequest(c.UserContext(), currentUserID(c), requesterID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Follow request declined", "")
}

// CancelFollow handles POST /api/users/cancel-follow/:id where :id is the target.
func (s *Server) CancelFollow(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.relationshipService.CancelFollowRequest(c.UserContext(), currentUserID(c), targetID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "Follow request cancelled", "")
}

// UnfollowUser handles POST /api/users/unfollow/:id
func (s *Server) UnfollowUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	changed, err := s.relationshipService.UnfollowUser(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	if !changed {
		return respondOK(c, fiber.StatusOK, "You were not following this user", "")
	}
	return respondOK(c, fiber.StatusOK, "Unfollowed", "")
}

// BlockUser handles POST /api/users/block/:id
// @Summary Block a user
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {object} models.ActionResult
// @Failure 400 {object} models.ErrorResponse
// @Failure 404 {object} models.ErrorResponse
// @Router /users/block/{id} [post]
func (s *Server) BlockUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	already, err := s.relationshipService.BlockUser(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	if already {
		return respondOK(c, fiber.StatusOK, "User is already blocked", CodeAlreadyBlocked)
	}
	return respondOK(c, fiber.StatusOK, "User blocked", "")
}

// UnblockUser handles POST /api/users/unblock/:id
func (s *Server) UnblockUser(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	if err := s.relationshipService.UnblockUser(c.UserContext(), currentUserID(c), targetID); err != nil {
		return s.respondError(c, err)
	}
	return respondOK(c, fiber.StatusOK, "User unblocked", "")
}

// GetBlockedUsers handles GET and POST /api/users/blocked
func (s *Server) GetBlockedUsers(c *fiber.Ctx) error {
	users, err := s.relationshipService.GetBlockedUsers(c.UserContext(), currentUserID(c))
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowRequests handles GET /api/users/follow-requests?direction=received|sent
func (s *Server) GetFollowRequests(c *fiber.Ctx) error {
	dir := service.RequestDirection(c.Query("direction"))
	users, err := s.relationshipService.ListFollowRequests(c.UserContext(), currentUserID(c), dir)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(users)
}

// GetFollowers handles GET /api/users/followers/:id
// @Summary List followers
// @Description Each entry carries the caller's relationship to that user
// @Tags relationships
// @Produce json
// @Security BearerAuth
// @Param id path int true "User ID"
// @Success 200 {array} models.FollowListEntry
// @Failure 404 {object} models.ErrorResponse
// @Router /users/followers/{id} [get]
func (s *Server) GetFollowers(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	list, err := s.relationshipService.ListFollowers(c.UserContext(), currentUserID(c), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(list)
}

// GetFollowing handles GET /api/users/following/:id
func (s *Server) GetFollowing(c *fiber.Ctx) error {
	userID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	list, err := s.relationshipService.ListFollowing(c.UserContext(), currentUserID(c), userID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(list)
}

// GetRelationshipStatus handles GET /api/users/relationship/:id
func (s *Server) GetRelationshipStatus(c *fiber.Ctx) error {
	targetID, err := s.parseID(c, "id")
	if err != nil {
		return nil
	}
	view, err := s.relationshipService.GetRelationshipStatus(c.UserContext(), currentUserID(c), targetID)
	if err != nil {
		return s.respondError(c, err)
	}
	return c.JSON(view)
}
