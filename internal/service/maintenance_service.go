package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/dto"
	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

type maintenanceRepository interface {
	maintenanceStore
	CountByStatus(ctx context.Context) ([]models.StatusCount, error)
	ListOverdue(ctx context.Context, now time.Time) ([]models.MaintenanceRequest, error)
}

type userLookup interface {
	FindByID(ctx context.Context, id string) (*models.User, error)
}

// MaintenanceOption customises the maintenance service.
type MaintenanceOption func(*MaintenanceService)

// WithEngine replaces the lifecycle engine.
func WithEngine(engine *lifecycle.Engine) MaintenanceOption {
	return func(s *MaintenanceService) {
		if engine != nil {
			s.engine = engine
		}
	}
}

// WithClock overrides the time source used for overdue checks.
func WithClock(now func() time.Time) MaintenanceOption {
	return func(s *MaintenanceService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithSummaryTTL sets how long the status summary is cached.
func WithSummaryTTL(ttl time.Duration) MaintenanceOption {
	return func(s *MaintenanceService) {
		if ttl > 0 {
			s.summaryTTL = ttl
		}
	}
}

// MaintenanceService is the request store surface. Every mutation is computed by
// the lifecycle engine, written once and then recorded.
type MaintenanceService struct {
	repo       maintenanceRepository
	users      userLookup
	engine     *lifecycle.Engine
	recorder   lifecycleRecorder
	cache      *CacheService
	metrics    *MetricsService
	validator  *validator.Validate
	logger     *zap.Logger
	now        func() time.Time
	summaryTTL time.Duration
}

// NewMaintenanceService wires the service dependencies.
func NewMaintenanceService(
	repo maintenanceRepository,
	history historyStore,
	users userLookup,
	notifier eventNotifier,
	cache *CacheService,
	metrics *MetricsService,
	validate *validator.Validate,
	logger *zap.Logger,
	opts ...MaintenanceOption,
) *MaintenanceService {
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &MaintenanceService{
		repo:       repo,
		users:      users,
		engine:     lifecycle.NewEngine(),
		cache:      cache,
		metrics:    metrics,
		validator:  validate,
		logger:     logger,
		now:        func() time.Time { return time.Now().UTC() },
		summaryTTL: time.Minute,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	svc.recorder = lifecycleRecorder{history: history, notifier: notifier, metrics: metrics, cache: cache, logger: logger}
	return svc
}

// List returns submitted requests matching filter. Drafts are never listed here.
func (s *MaintenanceService) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	filter.Drafts = false
	return s.list(ctx, filter)
}

// ListMine returns the actor's submitted requests.
func (s *MaintenanceService) ListMine(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	filter.Drafts = false
	filter.RequestedBy = actor.ID
	return s.list(ctx, filter)
}

// ListAssigned returns the requests assigned to the acting technician.
func (s *MaintenanceService) ListAssigned(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	if !lifecycle.Can(actor, lifecycle.CapService) {
		return nil, nil, appErrors.Clone(appErrors.ErrForbidden, "only technicians have assigned requests")
	}
	filter.Drafts = false
	filter.AssignedTo = actor.ID
	return s.list(ctx, filter)
}

func (s *MaintenanceService) list(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	for _, status := range filter.Status {
		if !status.Valid() {
			return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid filter", map[string]string{"status": "unknown status " + string(status)})
		}
	}
	for _, priority := range filter.Priority {
		if !priority.Valid() {
			return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid filter", map[string]string{"priority": "unknown priority " + string(priority)})
		}
	}
	if filter.DateFrom != nil && filter.DateTo != nil && filter.DateTo.Before(*filter.DateFrom) {
		return nil, nil, appErrors.WithDetails(appErrors.ErrValidation, "invalid filter", map[string]string{"dateTo": "must not be before dateFrom"})
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list maintenance requests", zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list maintenance requests")
	}
	return items, paginationFor(filter, total), nil
}

// Get returns one request. Another user's draft is reported as not found.
func (s *MaintenanceService) Get(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error) {
	return s.visible(ctx, actor, id)
}

// Create submits a request directly in pending status.
func (s *MaintenanceService) Create(ctx context.Context, actor models.Actor, req dto.CreateMaintenanceRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid maintenance payload")
	}
	res, err := s.engine.Create(actor, req.Fields())
	if err != nil {
		return nil, s.recorder.rejected("create", actor, "", err)
	}
	if err := s.repo.Create(ctx, res.Next); err != nil {
		return nil, s.recorder.rejected("create", actor, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create maintenance request"))
	}
	s.recorder.record(ctx, actor, nil, res, nil)
	s.recorder.invalidate(ctx)
	return res.Next, nil
}

type appliedStep struct {
	prev *models.MaintenanceRequest
	res  *lifecycle.Result
	note *string
}

// Update applies a patch. Each present part is routed to the matching lifecycle
// operation against the result of the previous one: descriptive fields, then
// the assignment, then the status. Parts equal to the stored record are skipped,
// so a full-record replace that only changes the status behaves like a
// transition. The record is written once; any rejected part rejects the patch.
func (s *MaintenanceService) Update(ctx context.Context, actor models.Actor, id string, req dto.UpdateMaintenanceRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid maintenance payload")
	}
	if !req.HasFieldChanges() && !req.AssignedTo.Set && req.Status == nil && req.Notes == nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "patch contains no changes")
	}
	current, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if current.Status.Terminal() {
		err := appErrors.Clone(appErrors.ErrAlreadyTerminal, fmt.Sprintf("request is already %s", current.Status))
		return nil, s.recorder.rejected("update", actor, id, err)
	}

	steps, err := s.plan(ctx, actor, current, req)
	if err != nil {
		return nil, s.recorder.rejected("update", actor, id, err)
	}
	if len(steps) == 0 {
		if len(lifecycle.ActingRolesFor(actor, current)) == 0 {
			err := appErrors.Clone(appErrors.ErrForbiddenRole, "actor has no role on this request")
			return nil, s.recorder.rejected("update", actor, id, err)
		}
		return current, nil
	}
	final := steps[len(steps)-1].res.Next
	if err := saveRequest(ctx, s.repo, final); err != nil {
		return nil, s.recorder.rejected("update", actor, id, err)
	}
	for _, step := range steps {
		s.recorder.record(ctx, actor, step.prev, step.res, step.note)
	}
	s.recorder.invalidate(ctx)
	return final, nil
}

func (s *MaintenanceService) plan(ctx context.Context, actor models.Actor, current *models.MaintenanceRequest, req dto.UpdateMaintenanceRequest) ([]appliedStep, error) {
	var steps []appliedStep
	cur := current
	apply := func(res *lifecycle.Result, note *string) {
		if res.Changed {
			steps = append(steps, appliedStep{prev: cur, res: res, note: note})
			cur = res.Next
		}
	}

	if req.HasFieldChanges() {
		res, err := s.engine.Edit(cur, actor, req.Fields())
		if err != nil {
			return nil, err
		}
		apply(res, nil)
	}

	if req.AssignedTo.Set {
		target := normalizedID(req.AssignedTo.Value)
		if target != cur.AssigneeID() {
			res, err := s.assign(ctx, actor, cur, target)
			if err != nil {
				return nil, err
			}
			apply(res, nil)
		}
	}

	notesChanged := req.Notes != nil && strings.TrimSpace(*req.Notes) != "" && !sameNotes(cur.Notes, req.Notes)
	switch {
	case req.Status != nil && *req.Status == models.StatusPending && cur.Status == models.StatusDraft:
		res, err := s.engine.Submit(cur, actor)
		if err != nil {
			return nil, err
		}
		apply(res, nil)
	case req.Status != nil && *req.Status == models.StatusCancelled && cur.Status != models.StatusCancelled:
		reason := ""
		if req.Notes != nil {
			reason = *req.Notes
		}
		res, err := s.engine.Cancel(cur, actor, reason)
		if err != nil {
			return nil, err
		}
		apply(res, res.Next.Notes)
	case req.Status != nil && *req.Status != cur.Status:
		res, err := s.engine.Advance(cur, actor, *req.Status, req.Notes)
		if err != nil {
			return nil, err
		}
		apply(res, res.Next.Notes)
	case notesChanged:
		res, err := s.engine.Advance(cur, actor, cur.Status, req.Notes)
		if err != nil {
			return nil, err
		}
		apply(res, res.Next.Notes)
	}
	return steps, nil
}

// Delete removes a draft owned by the actor.
func (s *MaintenanceService) Delete(ctx context.Context, actor models.Actor, id string) error {
	return deleteDraft(ctx, s.repo, s.recorder, actor, id)
}

// Assign sets or clears (nil technicianID) the technician of a request.
func (s *MaintenanceService) Assign(ctx context.Context, actor models.Actor, id string, technicianID *string) (*models.MaintenanceRequest, error) {
	current, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.assign(ctx, actor, current, normalizedID(technicianID))
	if err != nil {
		return nil, s.recorder.rejected("assign", actor, id, err)
	}
	return s.commit(ctx, actor, "assign", current, res, nil)
}

// Advance moves a request forward on behalf of its assigned technician.
func (s *MaintenanceService) Advance(ctx context.Context, actor models.Actor, id string, req dto.StatusUpdateRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid status payload")
	}
	current, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Advance(current, actor, req.Status, req.Notes)
	if err != nil {
		return nil, s.recorder.rejected("advance", actor, id, err)
	}
	return s.commit(ctx, actor, "advance", current, res, res.Next.Notes)
}

// Cancel ends a request that has not started, keeping reason in its notes.
func (s *MaintenanceService) Cancel(ctx context.Context, actor models.Actor, id string, req dto.CancelRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid cancel payload")
	}
	current, err := s.visible(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Cancel(current, actor, req.Reason)
	if err != nil {
		return nil, s.recorder.rejected("cancel", actor, id, err)
	}
	return s.commit(ctx, actor, "cancel", current, res, res.Next.Notes)
}

// History lists the recorded lifecycle changes of a request, oldest first.
func (s *MaintenanceService) History(ctx context.Context, actor models.Actor, id string) ([]models.MaintenanceHistory, error) {
	if _, err := s.visible(ctx, actor, id); err != nil {
		return nil, err
	}
	if s.recorder.history == nil {
		return []models.MaintenanceHistory{}, nil
	}
	entries, err := s.recorder.history.ListByRequest(ctx, id)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load maintenance history")
	}
	return entries, nil
}

// Summary counts submitted requests per status and the overdue ones. Only
// coordinators may read it. The result is cached until the next mutation.
func (s *MaintenanceService) Summary(ctx context.Context, actor models.Actor) (*dto.MaintenanceSummary, bool, error) {
	if !lifecycle.Can(actor, lifecycle.CapCoordinate) {
		return nil, false, appErrors.Clone(appErrors.ErrForbidden, "only coordinators may read the summary")
	}
	summary, hit, err := remember(ctx, s.cache, cacheKeySummary, s.summaryTTL, func() (dto.MaintenanceSummary, error) {
		return s.buildSummary(ctx)
	})
	if err != nil {
		return nil, false, err
	}
	return &summary, hit, nil
}

func (s *MaintenanceService) buildSummary(ctx context.Context) (dto.MaintenanceSummary, error) {
	now := s.now()
	counts, err := s.repo.CountByStatus(ctx)
	if err != nil {
		return dto.MaintenanceSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to count maintenance requests")
	}
	overdue, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return dto.MaintenanceSummary{}, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list overdue requests")
	}
	summary := dto.MaintenanceSummary{
		ByStatus: make(map[models.MaintenanceStatus]int, len(models.AllStatuses)),
		Overdue:  len(overdue),
		AsOf:     now,
	}
	for _, status := range models.AllStatuses {
		if status != models.StatusDraft {
			summary.ByStatus[status] = 0
		}
	}
	for _, c := range counts {
		if c.Status == models.StatusDraft {
			continue
		}
		summary.ByStatus[c.Status] += c.Total
		summary.Total += c.Total
	}
	s.metrics.SetOverdue(summary.Overdue)
	return summary, nil
}

func (s *MaintenanceService) assign(ctx context.Context, actor models.Actor, current *models.MaintenanceRequest, technicianID string) (*lifecycle.Result, error) {
	var tech *models.Technician
	if technicianID != "" {
		resolved, err := s.resolveTechnician(ctx, technicianID)
		if err != nil {
			return nil, err
		}
		tech = resolved
	}
	return s.engine.Assign(current, actor, tech)
}

func (s *MaintenanceService) resolveTechnician(ctx context.Context, id string) (*models.Technician, error) {
	invalid := appErrors.WithDetails(appErrors.ErrValidation, "unknown technician", map[string]string{
		"assignedTo": "must reference an active technician",
	})
	if s.users == nil {
		return nil, invalid
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, invalid
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load technician")
	}
	if !user.Active {
		return nil, invalid
	}
	return &models.Technician{ID: user.ID, Name: user.FullName, Role: user.Role}, nil
}

func (s *MaintenanceService) commit(ctx context.Context, actor models.Actor, op string, current *models.MaintenanceRequest, res *lifecycle.Result, note *string) (*models.MaintenanceRequest, error) {
	if !res.Changed {
		return current, nil
	}
	if err := saveRequest(ctx, s.repo, res.Next); err != nil {
		return nil, s.recorder.rejected(op, actor, current.ID, err)
	}
	s.recorder.record(ctx, actor, current, res, note)
	s.recorder.invalidate(ctx)
	return res.Next, nil
}

func (s *MaintenanceService) visible(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error) {
	req, err := loadRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if req.IsDraft && req.RequestedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
	}
	return req, nil
}

// deleteDraft hard-deletes a draft owned by actor.
func deleteDraft(ctx context.Context, repo maintenanceStore, recorder lifecycleRecorder, actor models.Actor, id string) error {
	current, err := loadRequest(ctx, repo, id)
	if err != nil {
		return err
	}
	if current.IsDraft && current.RequestedBy != actor.ID {
		return appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
	}
	if err := lifecycle.CanDelete(current, actor); err != nil {
		return recorder.rejected("delete", actor, id, err)
	}
	if err := repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "maintenance request not found")
		}
		return recorder.rejected("delete", actor, id, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete maintenance request"))
	}
	recorder.deleted(ctx, actor, current)
	recorder.invalidate(ctx)
	return nil
}

func normalizedID(id *string) string {
	if id == nil {
		return ""
	}
	return strings.TrimSpace(*id)
}

func sameNotes(current *string, incoming *string) bool {
	if incoming == nil {
		return true
	}
	if current == nil {
		return strings.TrimSpace(*incoming) == ""
	}
	return strings.TrimSpace(*current) == strings.TrimSpace(*incoming)
}
