package service

import (
	"context"
	"log/slog"
	"strings"

	"orbit/internal/middleware"
	"orbit/internal/models"
	"orbit/internal/repository"
)

const (
	maxBioLen    = 500
	maxNameLen   = 60
	maxSearchLen = 60
)

// UserService handles signup and profiles.
type UserService struct {
	userRepo repository.UserRepository
	relRepo  repository.RelationshipRepository
}

func NewUserService(userRepo repository.UserRepository, relRepo repository.RelationshipRepository) *UserService {
	return &UserService{userRepo: userRepo, relRepo: relRepo}
}

// Register creates an account through models.NewUser.
func (s *UserService) Register(ctx context.Context, p models.UserParams) (*models.User, error) {
	user, err := models.NewUser(p)
	if err != nil {
		return nil, err
	}
	if err := validateProfile(user); err != nil {
		return nil, err
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		return nil, err
	}
	middleware.Logger.InfoContext(ctx, "user registered",
		slog.Uint64("user_id", uint64(user.ID)),
		slog.Bool("creator", user.IsCreator),
	)
	return user, nil
}

// GetProfile returns userID's profile with counts and the viewer's status.
func (s *UserService) GetProfile(ctx context.Context, viewerID, userID uint) (models.ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}
	recs, err := s.relRepo.GetMany(ctx, []uint{userID, viewerID})
	if err != nil {
		return models.ProfileView{}, err
	}
	return models.NewProfileView(user, models.CountsOf(recs[userID]), recs[viewerID].StatusToward(userID)), nil
}

// UpdateProfile applies upd to the caller's own profile.
func (s *UserService) UpdateProfile(ctx context.Context, userID uint, upd models.ProfileUpdate) (models.ProfileView, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		return models.ProfileView{}, err
	}
	upd.Apply(user)
	if err := validateProfile(user); err != nil {
		return models.ProfileView{}, err
	}
	if err := s.userRepo.UpdateProfile(ctx, user); err != nil {
		return models.ProfileView{}, err
	}
	return s.GetProfile(ctx, userID, userID)
}

// Lookup finds a user by exact phone number or username.
func (s *UserService) Lookup(ctx context.Context, query string) (models.UserSummary, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return models.UserSummary{}, models.NewValidationError("Query is required")
	}
	user, err := s.userRepo.FindByPhoneOrUsername(ctx, query)
	if err != nil {
		return models.UserSummary{}, err
	}
	return models.NewUserSummary(user), nil
}

// SearchUsers returns users whose name or username contains term, ignoring
// case. No match is an empty list.
func (s *UserService) SearchUsers(ctx context.Context, term string, limit, offset int) ([]models.UserSummary, error) {
	term = strings.TrimSpace(term)
	if term == "" {
		return nil, models.NewValidationError("Name query parameter is required")
	}
	if len(term) > maxSearchLen {
		return nil, models.NewValidationError("Search term too long (max 60 characters)")
	}
	users, err := s.userRepo.Search(ctx, term, limit, offset)
	if err != nil {
		return nil, err
	}
	out := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		out = append(out, models.NewUserSummary(u))
	}
	return out, nil
}

func validateProfile(u *models.User) error {
	if u.Name == "" {
		return models.NewValidationError("Name cannot be empty")
	}
	if len(u.Name) > maxNameLen {
		return models.NewValidationError("Name too long (max 60 characters)")
	}
	if len(u.Bio) > maxBioLen {
		return models.NewValidationError("Bio too long (max 500 characters)")
	}
	if u.Website != "" && !isHTTPURL(u.Website) {
		return models.NewValidationError("Website must be an http(s) URL")
	}
	if u.ProfileImg != "" && !isHTTPURL(u.ProfileImg) {
		return models.NewValidationError("Profile image must be an http(s) URL")
	}
	return nil
}
