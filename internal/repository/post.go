package repository

import (
	"context"
	"strings"
	"time"

	"orbit/internal/models"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// FeedFilter narrows ListVisible. Exclusion lists are applied in SQL.
type FeedFilter struct {
	ExcludePostIDs   []uint
	ExcludeAuthorIDs []uint
	Category         string
	AuthorID         uint
	Limit            int
	Offset           int
}

// PostRepository defines the interface for post data operations
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetByID(ctx context.Context, id uint) (*models.Post, error)
	ListVisible(ctx context.Context, f FeedFilter) ([]*models.Post, error)
	ListArchived(ctx context.Context, userID uint) ([]*models.Post, error)
	ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error)
	Delete(ctx context.Context, id uint) error

	// Pin pins a post owned by userID unless the owner already has limit
	// pinned posts. It reports false when the post was already pinned.
	Pin(ctx context.Context, userID, postID uint, limit int) (bool, error)
	Unpin(ctx context.Context, userID, postID uint) error
	SetArchived(ctx context.Context, postID uint, archived bool) error

	Like(ctx context.Context, userID, postID uint) error
	Unlike(ctx context.Context, userID, postID uint) error
	IsLiked(ctx context.Context, userID, postID uint) (bool, error)

	Save(ctx context.Context, userID, postID uint) error
	Unsave(ctx context.Context, userID, postID uint) error
	ListSaved(ctx context.Context, userID uint) ([]*models.Post, error)
}

// postRepository implements PostRepository
type postRepository struct {
	db *gorm.DB
}

// NewPostRepository creates a new post repository
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) GetByID(ctx context.Context, id uint) (*models.Post, error) {
	var post models.Post
	if err := r.db.WithContext(ctx).Preload("Author").First(&post, id).Error; err != nil {
		return nil, lookupError(err, "Post", id)
	}
	return &post, nil
}

// ListVisible returns unblocked, unarchived posts outside the exclusion
// lists. Pinned posts lead unless a category is requested, in which case
// the order is newest first.
func (r *postRepository) ListVisible(ctx context.Context, f FeedFilter) ([]*models.Post, error) {
	q := r.db.WithContext(ctx).
		Preload("Author").
		Where("is_blocked = ? AND is_archived = ?", false, false)

	if len(f.ExcludePostIDs) > 0 {
		q = q.Where("id NOT IN ?", f.ExcludePostIDs)
	}
	if len(f.ExcludeAuthorIDs) > 0 {
		q = q.Where("user_id NOT IN ?", f.ExcludeAuthorIDs)
	}
	if f.AuthorID != 0 {
		q = q.Where("user_id = ?", f.AuthorID)
	}
	if f.Category != "" {
		// Categories is a JSON array, so the quoted element matches exactly.
		q = q.Where("LOWER(categories) LIKE ?", `%"`+strings.ToLower(f.Category)+`"%`).
			Order("created_at DESC")
	} else {
		q = q.Order("is_pinned DESC").
			Order("pinned_at DESC").
			Order("created_at DESC")
	}

	var posts []*models.Post
	if err := q.Order("id DESC").
		Limit(clampLimit(f.Limit, defaultPageSize, maxPageSize)).
		Offset(max(f.Offset, 0)).
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) ListArchived(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("user_id = ? AND is_archived = ?", userID, true).
		Order("updated_at DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// ListByIDs returns the posts that still exist, newest first.
func (r *postRepository) ListByIDs(ctx context.Context, ids []uint) ([]*models.Post, error) {
	var posts []*models.Post
	if len(ids) == 0 {
		return posts, nil
	}
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Where("id IN ?", ids).
		Order("created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

func (r *postRepository) Delete(ctx context.Context, id uint) error {
	res := r.db.WithContext(ctx).Delete(&models.Post{}, id)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", id)
	}
	return nil
}

// Pin pins postID for its owner. The owner's user row is locked first so
// concurrent pins by the same owner count one at a time.
func (r *postRepository) Pin(ctx context.Context, userID, postID uint, limit int) (bool, error) {
	pinned := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var owner models.User
		if err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Select("id").
			Take(&owner, userID).Error; err != nil {
			return lookupError(err, "User", userID)
		}

		post, err := ownedPostTx(tx, userID, postID, "You can only pin your own posts")
		if err != nil {
			return err
		}
		if post.IsPinned {
			return nil
		}

		var count int64
		if err := tx.Model(&models.Post{}).
			Where("user_id = ? AND is_pinned = ?", userID, true).
			Count(&count).Error; err != nil {
			return models.NewInternalError(err)
		}
		if count >= int64(limit) {
			return models.NewPinLimitError(limit)
		}

		now := time.Now()
		if err := tx.Model(post).Updates(map[string]any{"is_pinned": true, "pinned_at": &now}).Error; err != nil {
			return models.NewInternalError(err)
		}
		pinned = true
		return nil
	})
	return pinned, err
}

func (r *postRepository) Unpin(ctx context.Context, userID, postID uint) error {
	db := r.db.WithContext(ctx)
	post, err := ownedPostTx(db, userID, postID, "You can only unpin your own posts")
	if err != nil {
		return err
	}
	if err := db.Model(post).Updates(map[string]any{"is_pinned": false, "pinned_at": nil}).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

// ownedPostTx loads postID and rejects callers other than its owner.
func ownedPostTx(tx *gorm.DB, userID, postID uint, denied string) (*models.Post, error) {
	var post models.Post
	if err := tx.Take(&post, postID).Error; err != nil {
		return nil, lookupError(err, "Post", postID)
	}
	if post.UserID != userID {
		return nil, models.NewUnauthorizedError(denied)
	}
	return &post, nil
}

func (r *postRepository) SetArchived(ctx context.Context, postID uint, archived bool) error {
	if err := r.db.WithContext(ctx).
		Model(&models.Post{}).
		Where("id = ?", postID).
		Update("is_archived", archived).Error; err != nil {
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Like(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&models.PostLike{PostID: postID, UserID: userID}).Error; err != nil {
			if isUniqueConstraintError(err) {
				return models.NewConflictError(models.CodeAlreadyLiked, "You already liked this post")
			}
			return models.NewInternalError(err)
		}
		return bumpCounter(tx, postID, "likes_count", 1)
	})
}

func (r *postRepository) Unlike(ctx context.Context, userID, postID uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Where("post_id = ? AND user_id = ?", postID, userID).Delete(&models.PostLike{})
		if res.Error != nil {
			return models.NewInternalError(res.Error)
		}
		if res.RowsAffected == 0 {
			return models.NewValidationError("You have not liked this post")
		}
		return bumpCounter(tx, postID, "likes_count", -1)
	})
}

func (r *postRepository) IsLiked(ctx context.Context, userID, postID uint) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.PostLike{}).
		Where("post_id = ? AND user_id = ?", postID, userID).
		Count(&count).Error; err != nil {
		return false, models.NewInternalError(err)
	}
	return count > 0, nil
}

func (r *postRepository) Save(ctx context.Context, userID, postID uint) error {
	if err := r.db.WithContext(ctx).Create(&models.SavedPost{UserID: userID, PostID: postID}).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeAlreadySaved, "Post is already saved")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *postRepository) Unsave(ctx context.Context, userID, postID uint) error {
	res := r.db.WithContext(ctx).Where("user_id = ? AND post_id = ?", userID, postID).Delete(&models.SavedPost{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Saved post", postID)
	}
	return nil
}

func (r *postRepository) ListSaved(ctx context.Context, userID uint) ([]*models.Post, error) {
	var posts []*models.Post
	if err := r.db.WithContext(ctx).
		Preload("Author").
		Joins("JOIN saved_posts ON saved_posts.post_id = posts.id").
		Where("saved_posts.user_id = ?", userID).
		Order("saved_posts.created_at DESC").
		Find(&posts).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return posts, nil
}

// bumpCounter adjusts a denormalised counter column without going below zero.
func bumpCounter(tx *gorm.DB, postID uint, column string, delta int) error {
	expr := gorm.Expr(column+" + ?", delta)
	if delta < 0 {
		expr = gorm.Expr("CASE WHEN "+column+" > 0 THEN "+column+" - 1 ELSE 0 END")
	}
	res := tx.Model(&models.Post{}).Where("id = ?", postID).UpdateColumn(column, expr)
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Post", postID)
	}
	return nil
}
