package draft

import (
	"context"
	"errors"
	"sync"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

// Saver persists drafts. It is implemented by the in-process draft service and
// by the HTTP client.
type Saver interface {
	CreateDraft(ctx context.Context, form Form) (*models.MaintenanceRequest, error)
	UpdateDraft(ctx context.Context, id string, form Form) (*models.MaintenanceRequest, error)
}

// Choice is the user's answer to the leave-page prompt.
type Choice string

const (
	ChoiceSave    Choice = "save"
	ChoiceDiscard Choice = "discard"
	ChoiceStay    Choice = "stay"
)

// UnloadMessage is shown by the host's native confirmation dialog.
const UnloadMessage = "You have unsaved changes. Leave this page?"

// ErrNoPendingNavigation is returned by Resolve when no navigation is waiting.
var ErrNoPendingNavigation = errors.New("draft: no pending navigation")

// ErrUnknownChoice is returned by Resolve for an unrecognised choice.
var ErrUnknownChoice = errors.New("draft: unknown choice")

// UnloadDecision tells the host whether to block a full page unload.
type UnloadDecision struct {
	Block   bool
	Message string
}

// NavigationDecision tells the host whether to navigate now or show the prompt.
type NavigationDecision struct {
	Proceed bool
	Prompt  bool
	Target  string
}

// Outcome is the result of resolving a prompt.
type Outcome struct {
	Proceed bool
	Target  string
	Draft   *models.MaintenanceRequest
}

// Guard holds one form session. Methods are safe for concurrent use so a host
// may call them from its event and render loops alike.
type Guard struct {
	mu      sync.Mutex
	saver   Saver
	logger  *zap.Logger
	draftID string
	form    Form
	pending *string
	saving  bool
}

// GuardOption configures a Guard.
type GuardOption func(*Guard)

// WithLogger sets the guard logger.
func WithLogger(logger *zap.Logger) GuardOption {
	return func(g *Guard) {
		if logger != nil {
			g.logger = logger
		}
	}
}

// EditExisting binds the guard to a stored draft so saves update it in place.
func EditExisting(existing *models.MaintenanceRequest) GuardOption {
	return func(g *Guard) {
		if existing == nil {
			return
		}
		g.draftID = existing.ID
		g.form = FormFromRequest(existing)
	}
}

// NewGuard constructs a guard for a new form, or for an existing draft when
// EditExisting is passed.
func NewGuard(saver Saver, opts ...GuardOption) *Guard {
	g := &Guard{saver: saver, logger: zap.NewNop()}
	for _, opt := range opts {
		if opt != nil {
			opt(g)
		}
	}
	return g
}

// Update replaces the live form state.
func (g *Guard) Update(form Form) {
	g.mu.Lock()
	g.form = form
	g.mu.Unlock()
}

// Form returns the live form state.
func (g *Guard) Form() Form {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.form
}

// DraftID returns the identifier of the stored draft, empty before the first save.
func (g *Guard) DraftID() string {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.draftID
}

// HasUnsavedChanges reports the dirty flag.
func (g *Guard) HasUnsavedChanges() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.form.HasUnsavedChanges()
}

// BeforeUnload decides synchronously whether the host must block a page unload.
func (g *Guard) BeforeUnload() UnloadDecision {
	if !g.HasUnsavedChanges() {
		return UnloadDecision{}
	}
	return UnloadDecision{Block: true, Message: UnloadMessage}
}

// RequestNavigation intercepts an in-app navigation. With unsaved changes the
// target is held until Resolve is called.
func (g *Guard) RequestNavigation(target string) NavigationDecision {
	g.mu.Lock()
	defer g.mu.Unlock()
	if !g.form.HasUnsavedChanges() {
		g.pending = nil
		return NavigationDecision{Proceed: true, Target: target}
	}
	t := target
	g.pending = &t
	return NavigationDecision{Prompt: true, Target: target}
}

// Resolve applies the user's answer to the pending navigation. A failed save
// keeps the form and the pending target so the user may choose again.
func (g *Guard) Resolve(ctx context.Context, choice Choice) (Outcome, error) {
	g.mu.Lock()
	if g.pending == nil {
		g.mu.Unlock()
		return Outcome{}, ErrNoPendingNavigation
	}
	target := *g.pending

	switch choice {
	case ChoiceStay:
		g.pending = nil
		g.mu.Unlock()
		return Outcome{}, nil
	case ChoiceDiscard:
		g.pending = nil
		g.form = Form{}
		g.mu.Unlock()
		return Outcome{Proceed: true, Target: target}, nil
	case ChoiceSave:
	default:
		g.mu.Unlock()
		return Outcome{}, ErrUnknownChoice
	}

	if g.saving {
		g.mu.Unlock()
		return Outcome{}, errors.New("draft: save already in progress")
	}
	g.saving = true
	form := g.form
	id := g.draftID
	g.mu.Unlock()

	saved, err := g.save(ctx, id, form)

	g.mu.Lock()
	defer g.mu.Unlock()
	g.saving = false
	if err != nil {
		g.logger.Warn("draft save failed", zap.String("draft_id", id), zap.Error(err))
		return Outcome{}, err
	}
	if saved != nil && saved.ID != "" {
		g.draftID = saved.ID
	}
	g.form = Form{}
	g.pending = nil
	return Outcome{Proceed: true, Target: target, Draft: saved}, nil
}

// Save stores the form without navigating, for an explicit "save draft" button.
func (g *Guard) Save(ctx context.Context) (*models.MaintenanceRequest, error) {
	g.mu.Lock()
	form := g.form
	id := g.draftID
	g.mu.Unlock()

	saved, err := g.save(ctx, id, form)
	if err != nil {
		return nil, err
	}
	g.mu.Lock()
	if saved != nil && saved.ID != "" {
		g.draftID = saved.ID
	}
	g.mu.Unlock()
	return saved, nil
}

func (g *Guard) save(ctx context.Context, id string, form Form) (*models.MaintenanceRequest, error) {
	if g.saver == nil {
		return nil, errors.New("draft: no saver configured")
	}
	if id == "" {
		return g.saver.CreateDraft(ctx, form)
	}
	return g.saver.UpdateDraft(ctx, id, form)
}
