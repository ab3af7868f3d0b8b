package repository

import (
	"context"
	"testing"

	"orbit/internal/models"
	"orbit/internal/testutil"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFeedbackRepository_Reports(t *testing.T) {
	repo := NewFeedbackRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	require.NoError(t, repo.CreateReport(ctx, &models.ReportRecord{PostID: 5, ReportedBy: 1, Reason: models.ReportSpam}))
	require.NoError(t, repo.CreateReport(ctx, &models.ReportRecord{PostID: 5, ReportedBy: 2, Reason: models.ReportViolence}))
	require.NoError(t, repo.CreateReport(ctx, &models.ReportRecord{PostID: 3, ReportedBy: 1, Reason: models.ReportOthers}))

	err := repo.CreateReport(ctx, &models.ReportRecord{PostID: 5, ReportedBy: 1, Reason: models.ReportSpam})
	assert.True(t, models.HasCode(err, models.CodeAlreadyReported), "got %v", err)

	ids, err := repo.ReportedPostIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{3, 5}, ids)

	mine, err := repo.ListReportsBy(ctx, 1)
	require.NoError(t, err)
	assert.Len(t, mine, 2)

	require.NoError(t, repo.DeleteReport(ctx, 1, 3))
	assert.True(t, models.HasCode(repo.DeleteReport(ctx, 1, 3), models.CodeNotFound))

	ids, err = repo.ReportedPostIDs(ctx)
	require.NoError(t, err)
	assert.Equal(t, []uint{5}, ids)
}

func TestFeedbackRepository_NotInterested(t *testing.T) {
	repo := NewFeedbackRepository(testutil.NewTestDB(t))
	ctx := context.Background()

	rec := &models.NotInterestedRecord{UserID: 1, PostID: 9, AuthorID: 4, Reason: models.NotInterestedSpam}
	require.NoError(t, repo.CreateNotInterested(ctx, rec))
	err := repo.CreateNotInterested(ctx, &models.NotInterestedRecord{UserID: 1, PostID: 9, AuthorID: 4})
	assert.True(t, models.HasCode(err, models.CodeAlreadyMarked))

	list, err := repo.ListNotInterested(ctx, 1)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, uint(4), list[0].AuthorID)

	require.NoError(t, repo.DeleteNotInterested(ctx, 1, 9))
	assert.True(t, models.HasCode(repo.DeleteNotInterested(ctx, 1, 9), models.CodeNotFound))
}
