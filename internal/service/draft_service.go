package service

import (
	"context"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/draft"
	"github.com/noah-isme/facility-maintenance-api/internal/dto"
	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

// DraftService persists partially filled requests and promotes them on submit.
type DraftService struct {
	repo      maintenanceStore
	engine    *lifecycle.Engine
	recorder  lifecycleRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewDraftService constructs the draft service.
func NewDraftService(repo maintenanceStore, history historyStore, notifier eventNotifier, cache *CacheService, metrics *MetricsService, engine *lifecycle.Engine, validate *validator.Validate, logger *zap.Logger) *DraftService {
	if engine == nil {
		engine = lifecycle.NewEngine()
	}
	if validate == nil {
		validate = validator.New()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DraftService{
		repo:      repo,
		engine:    engine,
		recorder:  lifecycleRecorder{history: history, notifier: notifier, metrics: metrics, cache: cache, logger: logger},
		validator: validate,
		logger:    logger,
	}
}

// ListMine returns the actor's drafts, most recently updated first by default.
func (s *DraftService) ListMine(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, *models.Pagination, error) {
	filter.Drafts = true
	filter.RequestedBy = actor.ID
	filter.Status = nil
	filter.AssignedTo = ""
	if filter.SortBy == "" {
		filter.SortBy = "updatedAt"
	}
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		s.logger.Error("failed to list drafts", zap.String("actor_id", actor.ID), zap.Error(err))
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list drafts")
	}
	return items, paginationFor(filter, total), nil
}

// Save stores a new draft. Any subset of fields may be empty.
func (s *DraftService) Save(ctx context.Context, actor models.Actor, req dto.DraftRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	res, err := s.engine.SaveDraft(nil, actor, req.Fields())
	if err != nil {
		return nil, s.recorder.rejected("save_draft", actor, "", err)
	}
	if err := s.repo.Create(ctx, res.Next); err != nil {
		return nil, s.recorder.rejected("save_draft", actor, "", appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to save draft"))
	}
	s.recorder.record(ctx, actor, nil, res, nil)
	return res.Next, nil
}

// Update replaces every form field of an existing draft owned by the actor.
func (s *DraftService) Update(ctx context.Context, actor models.Actor, id string, req dto.DraftRequest) (*models.MaintenanceRequest, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, "invalid draft payload")
	}
	current, err := s.ownDraft(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.SaveDraft(current, actor, req.Fields())
	if err != nil {
		return nil, s.recorder.rejected("save_draft", actor, id, err)
	}
	if err := saveRequest(ctx, s.repo, res.Next); err != nil {
		return nil, s.recorder.rejected("save_draft", actor, id, err)
	}
	s.recorder.record(ctx, actor, current, res, nil)
	return res.Next, nil
}

// Submit promotes the draft in place to a pending request. Missing required
// fields are reported per field and the draft is left unchanged.
func (s *DraftService) Submit(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error) {
	current, err := s.ownDraft(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	res, err := s.engine.Submit(current, actor)
	if err != nil {
		return nil, s.recorder.rejected("submit", actor, id, err)
	}
	if err := saveRequest(ctx, s.repo, res.Next); err != nil {
		return nil, s.recorder.rejected("submit", actor, id, err)
	}
	s.recorder.record(ctx, actor, current, res, nil)
	s.recorder.invalidate(ctx)
	return res.Next, nil
}

// Delete discards a draft owned by the actor.
func (s *DraftService) Delete(ctx context.Context, actor models.Actor, id string) error {
	return deleteDraft(ctx, s.repo, s.recorder, actor, id)
}

// SaverFor binds the service to actor for use by a draft.Guard in process.
func (s *DraftService) SaverFor(actor models.Actor) draft.Saver {
	return actorSaver{svc: s, actor: actor}
}

func (s *DraftService) ownDraft(ctx context.Context, actor models.Actor, id string) (*models.MaintenanceRequest, error) {
	current, err := loadRequest(ctx, s.repo, id)
	if err != nil {
		return nil, err
	}
	if current.IsDraft && current.RequestedBy != actor.ID {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "draft not found")
	}
	return current, nil
}

type actorSaver struct {
	svc   *DraftService
	actor models.Actor
}

func (a actorSaver) CreateDraft(ctx context.Context, form draft.Form) (*models.MaintenanceRequest, error) {
	return a.svc.Save(ctx, a.actor, draftRequestFromForm(form))
}

func (a actorSaver) UpdateDraft(ctx context.Context, id string, form draft.Form) (*models.MaintenanceRequest, error) {
	return a.svc.Update(ctx, a.actor, id, draftRequestFromForm(form))
}

func draftRequestFromForm(form draft.Form) dto.DraftRequest {
	f := form.Fields()
	return dto.DraftRequest{
		AssetID:                f.AssetID,
		AssetName:              f.AssetName,
		AssetCode:              f.AssetCode,
		Title:                  f.Title,
		Description:            f.Description,
		Priority:               f.Priority,
		ExpectedCompletionTime: f.ExpectedCompletionTime,
	}
}
