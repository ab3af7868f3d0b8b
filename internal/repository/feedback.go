package repository

import (
	"context"

	"orbit/internal/models"

	"gorm.io/gorm"
)

// FeedbackRepository stores post reports and "not interested" marks.
type FeedbackRepository interface {
	CreateReport(ctx context.Context, report *models.ReportRecord) error
	DeleteReport(ctx context.Context, userID, postID uint) error
	ReportedPostIDs(ctx context.Context) ([]uint, error)
	ListReportsBy(ctx context.Context, userID uint) ([]models.ReportRecord, error)

	CreateNotInterested(ctx context.Context, rec *models.NotInterestedRecord) error
	DeleteNotInterested(ctx context.Context, userID, postID uint) error
	ListNotInterested(ctx context.Context, userID uint) ([]models.NotInterestedRecord, error)
}

type feedbackRepository struct {
	db *gorm.DB
}

// NewFeedbackRepository creates a new FeedbackRepository
func NewFeedbackRepository(db *gorm.DB) FeedbackRepository {
	return &feedbackRepository{db: db}
}

func (r *feedbackRepository) CreateReport(ctx context.Context, report *models.ReportRecord) error {
	if err := r.db.WithContext(ctx).Create(report).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeAlreadyReported, "You have already reported this post")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) DeleteReport(ctx context.Context, userID, postID uint) error {
	res := r.db.WithContext(ctx).
		Where("reported_by = ? AND post_id = ?", userID, postID).
		Delete(&models.ReportRecord{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Report", postID)
	}
	return nil
}

// ReportedPostIDs returns every post reported by anyone.
func (r *feedbackRepository) ReportedPostIDs(ctx context.Context) ([]uint, error) {
	ids := []uint{}
	if err := r.db.WithContext(ctx).
		Model(&models.ReportRecord{}).
		Distinct().
		Order("post_id").
		Pluck("post_id", &ids).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return ids, nil
}

func (r *feedbackRepository) ListReportsBy(ctx context.Context, userID uint) ([]models.ReportRecord, error) {
	var reports []models.ReportRecord
	if err := r.db.WithContext(ctx).
		Where("reported_by = ?", userID).
		Order("created_at DESC").
		Find(&reports).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return reports, nil
}

func (r *feedbackRepository) CreateNotInterested(ctx context.Context, rec *models.NotInterestedRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError(models.CodeAlreadyMarked, "Post is already marked as not interested")
		}
		return models.NewInternalError(err)
	}
	return nil
}

func (r *feedbackRepository) DeleteNotInterested(ctx context.Context, userID, postID uint) error {
	res := r.db.WithContext(ctx).
		Where("user_id = ? AND post_id = ?", userID, postID).
		Delete(&models.NotInterestedRecord{})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("Not interested mark", postID)
	}
	return nil
}

func (r *feedbackRepository) ListNotInterested(ctx context.Context, userID uint) ([]models.NotInterestedRecord, error) {
	var recs []models.NotInterestedRecord
	if err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&recs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return recs, nil
}
