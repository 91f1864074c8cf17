package service

import (
	"context"
	"database/sql"
	"errors"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/middleware/requestid"
)

type maintenanceStore interface {
	Create(ctx context.Context, req *models.MaintenanceRequest) error
	GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error)
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, int, error)
	Update(ctx context.Context, req *models.MaintenanceRequest) error
	Delete(ctx context.Context, id string) error
}

type historyStore interface {
	Append(ctx context.Context, entry *models.MaintenanceHistory) error
	ListByRequest(ctx context.Context, requestID string) ([]models.MaintenanceHistory, error)
}

type eventNotifier interface {
	Notify(ctx context.Context, event LifecycleEvent)
}

// lifecycleRecorder applies the side effects of an accepted change: history,
// notification, metrics and cache invalidation. None of them fail the caller.
type lifecycleRecorder struct {
	history  historyStore
	notifier eventNotifier
	metrics  *MetricsService
	cache    *CacheService
	logger   *zap.Logger
}

func (r lifecycleRecorder) record(ctx context.Context, actor models.Actor, prev *models.MaintenanceRequest, res *lifecycle.Result, note *string) {
	if res == nil || !res.Changed {
		return
	}
	next := res.Next
	r.metrics.RecordTransition(res.Action, res.From, res.To)

	if r.history != nil {
		entry := &models.MaintenanceHistory{
			RequestID: next.ID,
			Action:    res.Action,
			ToStatus:  res.To,
			ActorID:   actor.ID,
			ActorRole: actor.Role,
			Note:      note,
			CreatedAt: next.UpdatedAt,
		}
		if res.From != "" {
			from := res.From
			entry.FromStatus = &from
		}
		if err := r.history.Append(ctx, entry); err != nil {
			r.logger.Warn("failed to append maintenance history",
				zap.String("request_id", next.ID),
				zap.String("action", string(res.Action)),
				zap.String("correlation_id", requestid.FromContext(ctx)),
				zap.Error(err),
			)
		}
	}

	if r.notifier == nil {
		return
	}
	event := LifecycleEvent{
		Type:        res.Action,
		RequestID:   next.ID,
		Title:       next.Title,
		From:        res.From,
		To:          res.To,
		ActorID:     actor.ID,
		ActorRole:   actor.Role,
		RequesterID: next.RequestedBy,
		AssigneeID:  next.AssigneeID(),
		Note:        note,
		OccurredAt:  next.UpdatedAt,
		Draft:       next.IsDraft,
	}
	if prev != nil && prev.AssigneeID() != next.AssigneeID() {
		event.PreviousAssignee = prev.AssigneeID()
	}
	r.notifier.Notify(ctx, event)
}

func (r lifecycleRecorder) deleted(ctx context.Context, actor models.Actor, req *models.MaintenanceRequest) {
	r.metrics.RecordTransition(EventDeleted, req.Status, "")
	if r.notifier != nil {
		r.notifier.Notify(ctx, LifecycleEvent{
			Type:        EventDeleted,
			RequestID:   req.ID,
			Title:       req.Title,
			From:        req.Status,
			ActorID:     actor.ID,
			ActorRole:   actor.Role,
			RequesterID: req.RequestedBy,
		})
	}
}

func (r lifecycleRecorder) invalidate(ctx context.Context) {
	_ = r.cache.Invalidate(ctx, cachePatternRequest)
}

// rejected logs and counts a refused operation and returns err unchanged.
func (r lifecycleRecorder) rejected(operation string, actor models.Actor, requestID string, err error) error {
	appErr := appErrors.FromError(err)
	r.metrics.RecordRejection(operation, appErr.Code)
	if appErr.Status >= 500 {
		r.logger.Error("maintenance operation failed", zap.String("operation", operation), zap.String("request_id", requestID), zap.Error(err))
		return err
	}
	r.logger.Info("maintenance operation rejected",
		zap.String("operation", operation),
		zap.String("request_id", requestID),
		zap.String("actor_id", actor.ID),
		zap.String("actor_role", string(actor.Role)),
		zap.String("code", appErr.Code),
	)
	return err
}

func loadRequest(ctx context.Context, store maintenanceStore, id string) (*models.MaintenanceRequest, error) {
	req, err := store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance request")
	}
	return req, nil
}

func saveRequest(ctx context.Context, store maintenanceStore, req *models.MaintenanceRequest) error {
	if err := store.Update(ctx, req); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update maintenance request")
	}
	return nil
}

func paginationFor(filter models.MaintenanceFilter, total int) *models.Pagination {
	page := filter.Page
	if page < 1 {
		page = 1
	}
	size := filter.PageSize
	if size <= 0 {
		size = 20
	}
	if size > 200 {
		size = 200
	}
	return &models.Pagination{Page: page, PageSize: size, TotalCount: total}
}
