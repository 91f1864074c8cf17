package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	"github.com/noah-isme/facility-maintenance-api/pkg/jobs"
	"github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

// Event types beyond the history actions.
const (
	EventDeleted models.HistoryAction = "deleted"
	EventOverdue models.HistoryAction = "overdue"
)

const recipientCoordinators = "role:coordinator"

// LifecycleEvent describes one accepted change for downstream notification.
type LifecycleEvent struct {
	Type             models.HistoryAction     `json:"type"`
	RequestID        string                   `json:"requestId"`
	Title            string                   `json:"title"`
	From             models.MaintenanceStatus `json:"from,omitempty"`
	To               models.MaintenanceStatus `json:"to"`
	ActorID          string                   `json:"actorId,omitempty"`
	ActorRole        models.UserRole          `json:"actorRole,omitempty"`
	RequesterID      string                   `json:"requesterId"`
	AssigneeID       string                   `json:"assigneeId,omitempty"`
	PreviousAssignee string                   `json:"previousAssignee,omitempty"`
	Note             *string                  `json:"note,omitempty"`
	OccurredAt       time.Time                `json:"occurredAt"`
	CorrelationID    string                   `json:"correlationId,omitempty"`
	Draft            bool                     `json:"draft,omitempty"`
}

// Recipients lists who should hear about the event, as "user:<id>" or a role group.
// Draft changes are private to their creator and reach nobody.
func (e LifecycleEvent) Recipients() []string {
	if e.Draft {
		return nil
	}
	set := make([]string, 0, 3)
	add := func(r string) {
		if r == "" || r == "user:" || r == "user:"+e.ActorID {
			return
		}
		for _, existing := range set {
			if existing == r {
				return
			}
		}
		set = append(set, r)
	}
	switch e.Type {
	case models.HistoryCreated, models.HistorySubmitted:
		add(recipientCoordinators)
	case models.HistoryAssigned:
		add("user:" + e.AssigneeID)
		add("user:" + e.PreviousAssignee)
		add("user:" + e.RequesterID)
	case models.HistoryUnassigned:
		add("user:" + e.PreviousAssignee)
		add("user:" + e.RequesterID)
	case models.HistoryStatus, models.HistoryUpdated:
		add("user:" + e.RequesterID)
	case models.HistoryCancelled:
		add("user:" + e.RequesterID)
		add("user:" + e.AssigneeID)
	case EventOverdue:
		add("user:" + e.AssigneeID)
		add(recipientCoordinators)
	}
	return set
}

type auditWriter interface {
	CreateAuditLog(ctx context.Context, log *models.AuditLog) error
}

// NotificationConfig tunes the worker pool.
type NotificationConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
}

// NotificationService fans lifecycle events out through a background queue. Every
// event produces an audit entry; delivery itself is logged for the outbound
// channel to pick up.
type NotificationService struct {
	queue   *jobs.Queue
	audit   auditWriter
	metrics *MetricsService
	logger  *zap.Logger
}

// NewNotificationService constructs the service and its queue. Call Start before use.
func NewNotificationService(audit auditWriter, metrics *MetricsService, cfg NotificationConfig, logger *zap.Logger) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	s := &NotificationService{audit: audit, metrics: metrics, logger: logger}
	s.queue = jobs.NewQueue("maintenance-notifications", s.handle, jobs.QueueConfig{
		Workers:    cfg.Workers,
		BufferSize: cfg.BufferSize,
		MaxRetries: cfg.MaxRetries,
		RetryDelay: cfg.RetryDelay,
		Logger:     logger,
	})
	return s
}

// Start launches the workers.
func (s *NotificationService) Start(ctx context.Context) {
	s.queue.Start(ctx)
}

// Stop drains pending notifications and stops the workers.
func (s *NotificationService) Stop() {
	s.queue.Stop()
}

// Notify enqueues an event without blocking the caller. A full or stopped queue
// drops the event with a warning.
func (s *NotificationService) Notify(ctx context.Context, event LifecycleEvent) {
	if s == nil {
		return
	}
	if event.CorrelationID == "" {
		event.CorrelationID = requestid.FromContext(ctx)
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	job := jobs.Job{ID: uuid.NewString(), Type: string(event.Type), Payload: event}
	if err := s.queue.TryEnqueue(job); err != nil {
		s.metrics.RecordNotification(string(event.Type), false)
		s.logger.Warn("notification dropped", zap.String("request_id", event.RequestID), zap.String("type", string(event.Type)), zap.Error(err))
	}
}

func (s *NotificationService) handle(ctx context.Context, job jobs.Job) error {
	event, ok := job.Payload.(LifecycleEvent)
	if !ok {
		s.logger.Error("unexpected notification payload", zap.String("job_id", job.ID), zap.String("type", job.Type))
		return nil
	}
	if s.audit != nil {
		if err := s.audit.CreateAuditLog(ctx, auditEntry(event)); err != nil {
			return fmt.Errorf("record audit for %s: %w", event.RequestID, err)
		}
	}
	if event.Draft {
		return nil
	}
	recipients := event.Recipients()
	s.metrics.RecordNotification(string(event.Type), true)
	s.logger.Info("maintenance notification",
		zap.String("request_id", event.RequestID),
		zap.String("type", string(event.Type)),
		zap.String("to_status", string(event.To)),
		zap.Strings("recipients", recipients),
		zap.String("correlation_id", event.CorrelationID),
	)
	return nil
}

func auditEntry(event LifecycleEvent) *models.AuditLog {
	payload, _ := json.Marshal(event)
	entry := &models.AuditLog{
		Action:     auditAction(event.Type),
		Resource:   "maintenance_request",
		ResourceID: &event.RequestID,
		NewValues:  payload,
		CreatedAt:  event.OccurredAt,
	}
	if event.ActorID != "" {
		actor := event.ActorID
		entry.UserID = &actor
	}
	if event.From != "" {
		entry.OldValues, _ = json.Marshal(map[string]string{"status": string(event.From)})
	}
	return entry
}

func auditAction(t models.HistoryAction) string {
	switch t {
	case models.HistoryCreated, models.HistorySubmitted:
		return models.AuditActionMaintenanceCreate
	case models.HistoryAssigned, models.HistoryUnassigned:
		return models.AuditActionMaintenanceAssign
	case models.HistoryStatus:
		return models.AuditActionMaintenanceStatus
	case models.HistoryCancelled:
		return models.AuditActionMaintenanceCancel
	case EventDeleted:
		return models.AuditActionMaintenanceDelete
	case EventOverdue:
		return models.AuditActionMaintenanceOverdue
	}
	return models.AuditActionMaintenanceUpdate
}
