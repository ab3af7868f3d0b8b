package repository

import (
	"context"
	"errors"
	"strings"

	"orbit/internal/cache"
	"orbit/internal/models"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id uint) (*models.User, error)
	GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	FindByPhoneOrUsername(ctx context.Context, query string) (*models.User, error)
	Search(ctx context.Context, term string, limit, offset int) ([]*models.User, error)
	Create(ctx context.Context, user *models.User) error
	UpdateProfile(ctx context.Context, user *models.User) error
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

func (r *userRepository) GetByID(ctx context.Context, id uint) (*models.User, error) {
	var user models.User
	err := cache.Aside(ctx, cache.UserKey(id), &user, cache.UserTTL, func() error {
		if err := r.db.WithContext(ctx).First(&user, id).Error; err != nil {
			return lookupError(err, "User", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByIDs loads the given users in one query. Missing IDs are absent from
// the result.
func (r *userRepository) GetByIDs(ctx context.Context, ids []uint) (map[uint]*models.User, error) {
	out := make(map[uint]*models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	var users []*models.User
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	var user models.User
	if err := r.db.WithContext(ctx).Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// FindByPhoneOrUsername matches query exactly against either identifier.
func (r *userRepository) FindByPhoneOrUsername(ctx context.Context, query string) (*models.User, error) {
	query = strings.TrimSpace(query)
	var user models.User
	if err := r.db.WithContext(ctx).
		Where("phone_number = ? OR username = ?", query, query).
		First(&user).Error; err != nil {
		return nil, lookupError(err, "User", query)
	}
	return &user, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// Search matches term as a case-insensitive substring of the name or the
// username. LIKE wildcards in term are matched literally.
func (r *userRepository) Search(ctx context.Context, term string, limit, offset int) ([]*models.User, error) {
	like := "%" + likeEscaper.Replace(strings.ToLower(strings.TrimSpace(term))) + "%"
	var users []*models.User
	if err := r.db.WithContext(ctx).
		Where(`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(username) LIKE ? ESCAPE '\'`, like, like).
		Order("username ASC").
		Limit(clampLimit(limit, defaultPageSize, maxPageSize)).
		Offset(max(offset, 0)).
		Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeDuplicateUser, "Username or phone number is already registered")
		}
		return models.NewInternalError(err)
	}
	return nil
}

// UpdateProfile writes the self-editable profile columns only. Identifiers
// and account flags are never written here.
func (r *userRepository) UpdateProfile(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).
		Model(user).
		Select("name", "gender", "mail_address", "profession", "bio", "website", "profile_img").
		Updates(user).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}
