package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evidence-api/internal/dto"
	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

type memoryActivityRepo struct {
	entries []models.ActivityLog
}

func (m *memoryActivityRepo) Create(ctx context.Context, entry *models.ActivityLog) error {
	entry.ID = uint(len(m.entries) + 1)
	entry.CreatedAt = time.Now()
	m.entries = append(m.entries, *entry)
	return nil
}

func (m *memoryActivityRepo) List(ctx context.Context, filter repository.ActivityLogFilter) ([]models.ActivityLog, int64, error) {
	return append([]models.ActivityLog(nil), m.entries...), int64(len(m.entries)), nil
}

func TestActivityServiceRecordMasksEmail(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())

	entry, err := svc.Record(context.Background(), ActivityEntry{
		ActorRole:  "",
		Action:     "Access_Date.Corrected",
		EntityType: "User",
		EntityID:   uintPtr(5),
		Metadata: map[string]interface{}{
			"email":     "student@example.com",
			"course_id": 3,
		},
	})
	require.NoError(t, err)
	require.Equal(t, "***", entry.Metadata["email"])
	require.Equal(t, 3, entry.Metadata["course_id"])
	require.Equal(t, "system", entry.ActorRole)
	require.Equal(t, models.ActionAccessDateCorrected, entry.Action)
	require.Equal(t, "user", entry.EntityType)
}

func TestActivityServiceRecordStampsCorrelationID(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	ctx := observability.WithCorrelationID(context.Background(), "req-7")

	entry, err := svc.Record(ctx, ActivityEntry{Action: models.ActionStepCompleted, EntityType: "lesson"})
	require.NoError(t, err)
	require.Equal(t, "req-7", entry.Metadata["correlation_id"])

	entry, err = svc.Record(context.Background(), ActivityEntry{Action: models.ActionStepCompleted, EntityType: "lesson"})
	require.NoError(t, err)
	require.NotContains(t, entry.Metadata, "correlation_id")
}

func TestActivityServiceRecordRequiresAction(t *testing.T) {
	svc := NewActivityService(&memoryActivityRepo{}, testLogger())

	_, err := svc.Record(context.Background(), ActivityEntry{EntityType: "user"})
	require.Error(t, err)
}

func TestActivityServiceListPaginates(t *testing.T) {
	repo := &memoryActivityRepo{}
	svc := NewActivityService(repo, testLogger())
	for i := 0; i < 3; i++ {
		_, err := svc.Record(context.Background(), ActivityEntry{Action: models.ActionStepCompleted, EntityType: "topic"})
		require.NoError(t, err)
	}

	list, err := svc.List(context.Background(), dto.ActivityListRequest{Page: 0, PageSize: 2})
	require.NoError(t, err)
	require.Len(t, list.Items, 3)
	require.Equal(t, 1, list.Pagination.Page)
	require.Equal(t, 2, list.Pagination.TotalPages)
	require.Equal(t, int64(3), list.Pagination.TotalItems)
}
