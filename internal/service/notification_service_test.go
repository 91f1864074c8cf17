package service

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

type mockAuditWriter struct {
	mu       sync.Mutex
	logs     []*models.AuditLog
	failures int
}

func (m *mockAuditWriter) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.failures > 0 {
		m.failures--
		return errors.New("audit table unavailable")
	}
	m.logs = append(m.logs, log)
	return nil
}

func (m *mockAuditWriter) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.logs)
}

func TestNotificationServiceAuditsDraftChangesWithoutRecipients(t *testing.T) {
	audit := &mockAuditWriter{}
	svc := NewNotificationService(audit, NewMetricsService(), NotificationConfig{Workers: 1, BufferSize: 8}, zap.NewNop())
	svc.Start(context.Background())

	event := LifecycleEvent{
		Type:        models.HistoryDraftSaved,
		RequestID:   "d1",
		To:          models.StatusDraft,
		ActorID:     "user-1",
		RequesterID: "user-1",
		Draft:       true,
	}
	assert.Empty(t, event.Recipients())
	svc.Notify(context.Background(), event)
	svc.Stop()

	require.Equal(t, 1, audit.count())
	assert.Equal(t, models.AuditActionMaintenanceUpdate, audit.logs[0].Action)
	assert.Equal(t, "d1", *audit.logs[0].ResourceID)
}

func TestNotificationServiceDrainsAfterShutdownSignal(t *testing.T) {
	audit := &mockAuditWriter{}
	svc := NewNotificationService(audit, NewMetricsService(), NotificationConfig{Workers: 1, BufferSize: 8}, zap.NewNop())
	parent, cancel := context.WithCancel(context.Background())
	svc.Start(parent)

	cancel()
	for _, id := range []string{"r1", "r2", "r3"} {
		svc.Notify(context.Background(), LifecycleEvent{Type: models.HistoryStatus, RequestID: id, RequesterID: "user-1"})
	}
	svc.Stop()

	assert.Equal(t, 3, audit.count())
}

func TestNotificationServiceWritesAuditEntries(t *testing.T) {
	audit := &mockAuditWriter{}
	svc := NewNotificationService(audit, NewMetricsService(), NotificationConfig{Workers: 1, BufferSize: 8}, zap.NewNop())
	svc.Start(context.Background())

	svc.Notify(requestid.NewContext(context.Background(), "corr-1"), LifecycleEvent{
		Type:        models.HistoryAssigned,
		RequestID:   "r1",
		From:        models.StatusPending,
		To:          models.StatusApproved,
		ActorID:     "sup-1",
		RequesterID: "user-1",
		AssigneeID:  "7",
		OccurredAt:  svcNow,
	})
	svc.Notify(context.Background(), LifecycleEvent{Type: EventDeleted, RequestID: "d1", RequesterID: "user-1"})
	svc.Stop()

	require.Equal(t, 2, audit.count())
	first := audit.logs[0]
	assert.Equal(t, models.AuditActionMaintenanceAssign, first.Action)
	assert.Equal(t, "maintenance_request", first.Resource)
	assert.Equal(t, "r1", *first.ResourceID)
	assert.Equal(t, "sup-1", *first.UserID)
	assert.Equal(t, svcNow, first.CreatedAt)

	var old map[string]string
	require.NoError(t, json.Unmarshal(first.OldValues, &old))
	assert.Equal(t, "pending", old["status"])

	var event LifecycleEvent
	require.NoError(t, json.Unmarshal(first.NewValues, &event))
	assert.Equal(t, "corr-1", event.CorrelationID)

	second := audit.logs[1]
	assert.Equal(t, models.AuditActionMaintenanceDelete, second.Action)
	assert.Nil(t, second.UserID)
	assert.False(t, second.CreatedAt.IsZero())
}

func TestNotificationServiceRetriesAudit(t *testing.T) {
	audit := &mockAuditWriter{failures: 1}
	svc := NewNotificationService(audit, nil, NotificationConfig{MaxRetries: 2, RetryDelay: 5 * time.Millisecond}, nil)
	svc.Start(context.Background())
	defer svc.Stop()

	svc.Notify(context.Background(), LifecycleEvent{Type: models.HistoryCancelled, RequestID: "r1"})
	require.Eventually(t, func() bool { return audit.count() == 1 }, time.Second, 5*time.Millisecond)
}

func TestNotificationServiceDropsWhenStopped(t *testing.T) {
	audit := &mockAuditWriter{}
	svc := NewNotificationService(audit, nil, NotificationConfig{}, nil)
	svc.Notify(context.Background(), LifecycleEvent{Type: models.HistorySubmitted, RequestID: "r1"})
	assert.Zero(t, audit.count())

	var nilSvc *NotificationService
	assert.NotPanics(t, func() { nilSvc.Notify(context.Background(), LifecycleEvent{}) })
}

func TestLifecycleEventRecipients(t *testing.T) {
	cases := []struct {
		name  string
		event LifecycleEvent
		want  []string
	}{
		{"submitted goes to coordinators", LifecycleEvent{Type: models.HistorySubmitted, RequesterID: "user-1", ActorID: "user-1"}, []string{recipientCoordinators}},
		{"reassign tells both technicians", LifecycleEvent{Type: models.HistoryAssigned, AssigneeID: "9", PreviousAssignee: "7", RequesterID: "user-1", ActorID: "sup-1"}, []string{"user:9", "user:7", "user:user-1"}},
		{"unassign", LifecycleEvent{Type: models.HistoryUnassigned, PreviousAssignee: "7", RequesterID: "user-1", ActorID: "sup-1"}, []string{"user:7", "user:user-1"}},
		{"technician progress skips actor", LifecycleEvent{Type: models.HistoryStatus, AssigneeID: "7", RequesterID: "user-1", ActorID: "7"}, []string{"user:user-1"}},
		{"requester acting on own request", LifecycleEvent{Type: models.HistoryUpdated, RequesterID: "sup-1", ActorID: "sup-1"}, []string{}},
		{"cancel without assignee", LifecycleEvent{Type: models.HistoryCancelled, RequesterID: "user-1", ActorID: "sup-1"}, []string{"user:user-1"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.event.Recipients())
		})
	}
}

func TestAuditActionMapping(t *testing.T) {
	assert.Equal(t, models.AuditActionMaintenanceCreate, auditAction(models.HistorySubmitted))
	assert.Equal(t, models.AuditActionMaintenanceAssign, auditAction(models.HistoryUnassigned))
	assert.Equal(t, models.AuditActionMaintenanceStatus, auditAction(models.HistoryStatus))
	assert.Equal(t, models.AuditActionMaintenanceOverdue, auditAction(EventOverdue))
	assert.Equal(t, models.AuditActionMaintenanceUpdate, auditAction(models.HistoryDraftSaved))
}
