package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"orbit/internal/models"

	"gorm.io/gorm"
)

// ErrVersionConflict is returned by UpdatePair when another writer changed
// one of the records between read and write. The whole operation is safe to
// retry.
var ErrVersionConflict = errors.New("relationship record changed concurrently")

// PairMutation edits the records of a and b in place. Returning an error
// aborts the transaction without writing.
type PairMutation func(a, b *models.RelationshipRecord) error

// RelationshipRepository stores one RelationshipRecord per user.
type RelationshipRepository interface {
	// Get returns the user's record, or an empty unsaved record if the user
	// has none yet.
	Get(ctx context.Context, userID uint) (*models.RelationshipRecord, error)
	GetMany(ctx context.Context, userIDs []uint) (map[uint]*models.RelationshipRecord, error)
	// UpdatePair applies fn to both records inside one transaction and
	// writes back whichever records changed.
	UpdatePair(ctx context.Context, aID, bID uint, fn PairMutation) error
}

type relationshipRepository struct {
	db *gorm.DB
}

// NewRelationshipRepository creates a new relationship repository
func NewRelationshipRepository(db *gorm.DB) RelationshipRepository {
	return &relationshipRepository{db: db}
}

func (r *relationshipRepository) Get(ctx context.Context, userID uint) (*models.RelationshipRecord, error) {
	return loadRecord(r.db.WithContext(ctx), userID)
}

func (r *relationshipRepository) GetMany(ctx context.Context, userIDs []uint) (map[uint]*models.RelationshipRecord, error) {
	out := make(map[uint]*models.RelationshipRecord, len(userIDs))
	if len(userIDs) == 0 {
		return out, nil
	}
	var recs []*models.RelationshipRecord
	if err := r.db.WithContext(ctx).Where("user_id IN ?", userIDs).Find(&recs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	for _, rec := range recs {
		out[rec.UserID] = rec
	}
	for _, id := range userIDs {
		if _, ok := out[id]; !ok {
			out[id] = models.NewRelationshipRecord(id)
		}
	}
	return out, nil
}

func (r *relationshipRepository) UpdatePair(ctx context.Context, aID, bID uint, fn PairMutation) error {
	if aID == bID {
		return models.NewSelfActionError("A relationship needs two different users")
	}
	order := []uint{aID, bID}
	slices.Sort(order)

	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		stored := make(map[uint]*models.RelationshipRecord, 2)
		for _, id := range order {
			rec, err := loadRecord(tx, id)
			if err != nil {
				return err
			}
			stored[id] = rec
		}

		next := map[uint]*models.RelationshipRecord{
			aID: stored[aID].Clone(),
			bID: stored[bID].Clone(),
		}
		if err := fn(next[aID], next[bID]); err != nil {
			return err
		}
		for _, id := range order {
			if err := next[id].Validate(); err != nil {
				return models.NewInternalError(err)
			}
		}
		if err := models.CheckPairInvariants(next[aID], next[bID]); err != nil {
			return models.NewInternalError(err)
		}

		for _, id := range order {
			if sameEdges(stored[id], next[id]) {
				continue
			}
			if err := writeRecord(tx, stored[id], next[id]); err != nil {
				return err
			}
		}
		return nil
	})
}

func loadRecord(db *gorm.DB, userID uint) (*models.RelationshipRecord, error) {
	var rec models.RelationshipRecord
	err := db.Where("user_id = ?", userID).Take(&rec).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return models.NewRelationshipRecord(userID), nil
	}
	if err != nil {
		return nil, models.NewInternalError(err)
	}
	return &rec, nil
}

// writeRecord persists next over prev. Stored records always carry
// Version >= 1, so Version 0 means the row does not exist yet.
func writeRecord(tx *gorm.DB, prev, next *models.RelationshipRecord) error {
	if prev.Version == 0 {
		next.Version = 1
		if err := tx.Create(next).Error; err != nil {
			if isUniqueConstraintError(err) {
				return ErrVersionConflict
			}
			return models.NewInternalError(err)
		}
		return nil
	}

	res := tx.Model(&models.RelationshipRecord{}).
		Where("user_id = ? AND version = ?", prev.UserID, prev.Version).
		Updates(map[string]any{
			"following":                next.Following,
			"followers":                next.Followers,
			"follow_requests_sent":     next.FollowRequestsSent,
			"follow_requests_received": next.FollowRequestsReceived,
			"blocked":                  next.Blocked,
			"version":                  prev.Version + 1,
			"updated_at":               time.Now(),
		})
	if res.Error != nil {
		return models.NewInternalError(fmt.Errorf("update relationships of user %d: %w", prev.UserID, res.Error))
	}
	if res.RowsAffected == 0 {
		return ErrVersionConflict
	}
	next.Version = prev.Version + 1
	return nil
}

func sameEdges(a, b *models.RelationshipRecord) bool {
	return slices.Equal(a.Following, b.Following) &&
		slices.Equal(a.Followers, b.Followers) &&
		slices.Equal(a.FollowRequestsSent, b.FollowRequestsSent) &&
		slices.Equal(a.FollowRequestsReceived, b.FollowRequestsReceived) &&
		slices.Equal(a.Blocked, b.Blocked)
}
