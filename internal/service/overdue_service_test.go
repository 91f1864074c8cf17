package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

func TestOverdueServiceSweepNotifiesOnce(t *testing.T) {
	repo := newMockMaintenanceRepo()
	repo.overdue = []models.MaintenanceRequest{
		*submittedRequest("w1", models.StatusInProgress, "7"),
		*submittedRequest("a1", models.StatusApproved, "9"),
	}
	notifier := &recordingNotifier{}
	metrics := NewMetricsService()
	svc := NewOverdueService(repo, notifier, metrics, time.Minute, zap.NewNop())
	svc.now = func() time.Time { return svcNow }

	count, err := svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Equal(t, []models.HistoryAction{EventOverdue, EventOverdue}, notifier.types())
	assert.Equal(t, int64(2), metrics.Snapshot().OverdueRequests)

	first := notifier.events[0]
	assert.Equal(t, "w1", first.RequestID)
	assert.Equal(t, "7", first.AssigneeID)
	assert.Equal(t, svcNow, first.OccurredAt)
	assert.ElementsMatch(t, []string{"user:7", recipientCoordinators}, first.Recipients())

	count, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, count)
	assert.Len(t, notifier.types(), 2)

	repo.overdue = repo.overdue[:1]
	_, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.types(), 2)
	assert.Equal(t, int64(1), metrics.Snapshot().OverdueRequests)

	repo.overdue = append(repo.overdue, *submittedRequest("a1", models.StatusApproved, "9"))
	_, err = svc.Sweep(context.Background())
	require.NoError(t, err)
	assert.Len(t, notifier.types(), 3)
}

func TestOverdueServiceStartStop(t *testing.T) {
	repo := newMockMaintenanceRepo()
	notifier := &recordingNotifier{}
	svc := NewOverdueService(repo, notifier, nil, time.Hour, nil)

	require.NoError(t, svc.Start(context.Background()))
	require.NoError(t, svc.Start(context.Background()))
	svc.Stop()
	svc.Stop()
}
