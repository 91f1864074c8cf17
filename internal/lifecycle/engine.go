package lifecycle

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

// Result is the outcome of an accepted lifecycle operation. Next is a fresh copy;
// the input record is never modified.
type Result struct {
	Next    *models.MaintenanceRequest
	From    models.MaintenanceStatus
	To      models.MaintenanceStatus
	Action  models.HistoryAction
	Changed bool
}

// Engine computes next-state records. The clock is the only dependency.
type Engine struct {
	now func() time.Time
}

// Option configures the engine.
type Option func(*Engine)

// WithClock overrides the time source.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEngine constructs an engine using UTC wall time.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{now: func() time.Time { return time.Now().UTC() }}
	for _, opt := range opts {
		if opt != nil {
			opt(e)
		}
	}
	return e
}

// SaveDraft creates a new draft when current is nil, otherwise replaces the form
// fields of an existing draft. Partial data is accepted.
func (e *Engine) SaveDraft(current *models.MaintenanceRequest, actor models.Actor, f Fields) (*Result, error) {
	if err := validateFields(f); err != nil {
		return nil, err
	}
	from := statusNone
	if current != nil {
		if current.Status.Terminal() {
			return nil, alreadyTerminal(current)
		}
		from = current.Status
	}
	if err := authorize(from, ActingRolesFor(actor, current), models.StatusDraft, TriggerDirect); err != nil {
		return nil, err
	}
	now := e.now()
	var next *models.MaintenanceRequest
	action := models.HistoryDraftSaved
	if current == nil {
		next = e.newRecord(actor, now)
		action = models.HistoryCreated
	} else {
		next = current.Clone()
	}
	applyFields(next, f, true)
	next.Status = models.StatusDraft
	next.IsDraft = true
	next.UpdatedAt = now
	return &Result{Next: next, From: from, To: models.StatusDraft, Action: action, Changed: true}, nil
}

// Create builds a request submitted directly without passing through a draft.
func (e *Engine) Create(actor models.Actor, f Fields) (*Result, error) {
	if err := validateFields(f); err != nil {
		return nil, err
	}
	if err := authorize(statusNone, ActingRolesFor(actor, nil), models.StatusPending, TriggerDirect); err != nil {
		return nil, err
	}
	now := e.now()
	next := e.newRecord(actor, now)
	applyFields(next, f, true)
	if err := ValidateSubmission(next); err != nil {
		return nil, err
	}
	next.Status = models.StatusPending
	next.IsDraft = false
	return &Result{Next: next, From: statusNone, To: models.StatusPending, Action: models.HistoryCreated, Changed: true}, nil
}

// Submit promotes a draft in place: same identifier, draft flag cleared, status
// pending and requester stamped from the acting identity. A draft with missing
// required fields is rejected and left untouched.
func (e *Engine) Submit(current *models.MaintenanceRequest, actor models.Actor) (*Result, error) {
	if current == nil {
		return nil, appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, alreadyTerminal(current)
	}
	if err := authorize(current.Status, ActingRolesFor(actor, current), models.StatusPending, TriggerDirect); err != nil {
		return nil, err
	}
	if err := ValidateSubmission(current); err != nil {
		return nil, err
	}
	next := current.Clone()
	next.Status = models.StatusPending
	next.IsDraft = false
	next.RequestedBy = actor.ID
	if actor.Name != "" {
		next.RequestedByName = actor.Name
	}
	next.UpdatedAt = e.now()
	return &Result{Next: next, From: current.Status, To: models.StatusPending, Action: models.HistorySubmitted, Changed: true}, nil
}

// Edit patches descriptive fields. Drafts are edited by their creator; submitted,
// unfinished requests by a coordinator. Status is never changed here. A patch
// that changes nothing is a no-op for any actor holding a role on the record.
func (e *Engine) Edit(current *models.MaintenanceRequest, actor models.Actor, f Fields) (*Result, error) {
	if current == nil {
		return nil, appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, alreadyTerminal(current)
	}
	if err := validateFields(f); err != nil {
		return nil, err
	}
	roles := ActingRolesFor(actor, current)
	if len(roles) == 0 {
		return nil, forbidden("actor has no role on this request")
	}
	next := current.Clone()
	applyFields(next, f, false)
	if sameFields(current, next) {
		return &Result{Next: next, From: current.Status, To: current.Status, Action: models.HistoryUpdated}, nil
	}
	want := ActingCoordinator
	if current.Status == models.StatusDraft {
		want = ActingRequester
	}
	if !hasRole(roles, want) {
		return nil, forbidden(fmt.Sprintf("only the %s may edit a %s request", want, current.Status))
	}
	if !next.IsDraft {
		if err := ValidateSubmission(next); err != nil {
			return nil, err
		}
	}
	next.UpdatedAt = e.now()
	return &Result{Next: next, From: current.Status, To: current.Status, Action: models.HistoryUpdated, Changed: true}, nil
}

// Assign couples the technician to the status: assigning on a pending request
// approves it, reassigning keeps the status, clearing reverts to pending. A nil
// technician clears the assignment.
func (e *Engine) Assign(current *models.MaintenanceRequest, actor models.Actor, tech *models.Technician) (*Result, error) {
	if current == nil {
		return nil, appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, alreadyTerminal(current)
	}
	if tech != nil && !CapabilitiesOf(tech.Role).Has(CapService) {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "user is not an eligible technician", map[string]string{
			"assignedTo": "must reference a technician",
		})
	}

	from := current.Status
	to := from
	action := models.HistoryAssigned
	switch {
	case tech == nil:
		to = models.StatusPending
		action = models.HistoryUnassigned
	case from == models.StatusPending:
		to = models.StatusApproved
	}
	if err := authorize(from, ActingRolesFor(actor, current), to, TriggerAssignment); err != nil {
		return nil, err
	}

	next := current.Clone()
	next.Status = to
	if tech == nil {
		next.AssignedTo = nil
		next.AssignedToName = nil
	} else {
		id, name := tech.ID, tech.Name
		next.AssignedTo = &id
		next.AssignedToName = &name
	}
	changed := from != to || current.AssigneeID() != next.AssigneeID()
	if changed {
		next.UpdatedAt = e.now()
	}
	return &Result{Next: next, From: from, To: to, Action: action, Changed: changed}, nil
}

// Advance moves work forward on behalf of the assigned technician and optionally
// records notes. The assignment is never touched.
func (e *Engine) Advance(current *models.MaintenanceRequest, actor models.Actor, target models.MaintenanceStatus, notes *string) (*Result, error) {
	if current == nil {
		return nil, appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, alreadyTerminal(current)
	}
	if !target.Valid() {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unknown status", map[string]string{
			"status": "must be a known status",
		})
	}
	roles := ActingRolesFor(actor, current)
	next := current.Clone()
	if target == current.Status {
		if current.Status != models.StatusApproved && current.Status != models.StatusInProgress {
			return nil, rejection(Decision{Reason: ReasonInvalidTransition}, current.Status, target)
		}
		if !hasRole(roles, ActingTechnician) {
			return nil, forbidden("only the assigned technician may update work notes")
		}
		setNotes(next, notes)
		changed := !sameString(current.Notes, next.Notes)
		if changed {
			next.UpdatedAt = e.now()
		}
		return &Result{Next: next, From: current.Status, To: target, Action: models.HistoryStatus, Changed: changed}, nil
	}
	if !hasRole(roles, ActingTechnician) {
		if d := ValidateAny(current.Status, []ActingRole{ActingTechnician}, target, TriggerDirect); !d.Allowed {
			return nil, rejection(d, current.Status, target)
		}
		return nil, forbidden("only the assigned technician may change work status")
	}
	if d := Validate(current.Status, ActingTechnician, target); !d.Allowed {
		return nil, rejection(d, current.Status, target)
	}
	now := e.now()
	next.Status = target
	setNotes(next, notes)
	if target == models.StatusCompleted {
		completed := now
		next.CompletedAt = &completed
	}
	next.UpdatedAt = now
	return &Result{Next: next, From: current.Status, To: target, Action: models.HistoryStatus, Changed: true}, nil
}

// Cancel ends a request that has not started. The reason is kept in notes.
func (e *Engine) Cancel(current *models.MaintenanceRequest, actor models.Actor, reason string) (*Result, error) {
	if current == nil {
		return nil, appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return nil, alreadyTerminal(current)
	}
	if err := authorize(current.Status, ActingRolesFor(actor, current), models.StatusCancelled, TriggerDirect); err != nil {
		return nil, err
	}
	next := current.Clone()
	next.Status = models.StatusCancelled
	if r := strings.TrimSpace(reason); r != "" {
		next.Notes = &r
	}
	next.UpdatedAt = e.now()
	return &Result{Next: next, From: current.Status, To: models.StatusCancelled, Action: models.HistoryCancelled, Changed: true}, nil
}

// CanDelete reports whether actor may hard-delete current. Only drafts are ever
// deleted and only by their creator.
func CanDelete(current *models.MaintenanceRequest, actor models.Actor) error {
	if current == nil {
		return appErrors.ErrNotFound
	}
	if current.Status.Terminal() {
		return alreadyTerminal(current)
	}
	if current.Status != models.StatusDraft {
		return appErrors.Clone(appErrors.ErrInvalidTransition, "submitted requests are cancelled, not deleted")
	}
	if !hasRole(ActingRolesFor(actor, current), ActingRequester) {
		return forbidden("only the creator may delete a draft")
	}
	return nil
}

// CheckInvariants reports every record-level invariant that r violates.
func CheckInvariants(r *models.MaintenanceRequest) []string {
	var out []string
	if (r.Status == models.StatusDraft) != r.IsDraft {
		out = append(out, "draft status and draft flag disagree")
	}
	if r.AssignedTo != nil && (r.Status == models.StatusDraft || r.Status == models.StatusPending) {
		out = append(out, "assignee present before approval")
	}
	if (r.CompletedAt != nil) != (r.Status == models.StatusCompleted) {
		out = append(out, "completion timestamp and completed status disagree")
	}
	return out
}

func (e *Engine) newRecord(actor models.Actor, now time.Time) *models.MaintenanceRequest {
	return &models.MaintenanceRequest{
		RequestedBy:     actor.ID,
		RequestedByName: actor.Name,
		CreatedAt:       now,
		UpdatedAt:       now,
	}
}

func authorize(from models.MaintenanceStatus, roles []ActingRole, to models.MaintenanceStatus, trigger Trigger) error {
	d := ValidateAny(from, roles, to, trigger)
	if d.Allowed {
		return nil
	}
	return rejection(d, from, to)
}

func rejection(d Decision, from, to models.MaintenanceStatus) error {
	if d.Reason == ReasonForbiddenRole {
		return forbidden(fmt.Sprintf("actor may not move request from %s to %s", displayStatus(from), to))
	}
	return appErrors.Clone(appErrors.ErrInvalidTransition, fmt.Sprintf("cannot move request from %s to %s", displayStatus(from), to))
}

func forbidden(msg string) error {
	return appErrors.Clone(appErrors.ErrForbiddenRole, msg)
}

func alreadyTerminal(r *models.MaintenanceRequest) error {
	return appErrors.Clone(appErrors.ErrAlreadyTerminal, fmt.Sprintf("request is already %s", r.Status))
}

func displayStatus(s models.MaintenanceStatus) string {
	if s == statusNone {
		return "new"
	}
	return string(s)
}

func hasRole(roles []ActingRole, want ActingRole) bool {
	for _, r := range roles {
		if r == want {
			return true
		}
	}
	return false
}

func applyFields(r *models.MaintenanceRequest, f Fields, replace bool) {
	if f.AssetID != nil || replace {
		r.AssetID = trimmedOrNil(f.AssetID)
	}
	if f.AssetName != nil || replace {
		r.AssetName = trimmed(f.AssetName)
	}
	if f.AssetCode != nil || replace {
		r.AssetCode = trimmed(f.AssetCode)
	}
	if f.Title != nil || replace {
		r.Title = trimmed(f.Title)
	}
	if f.Description != nil || replace {
		r.Description = trimmed(f.Description)
	}
	if f.Priority != nil || replace {
		r.Priority = ""
		if f.Priority != nil {
			r.Priority = *f.Priority
		}
	}
	if f.ExpectedCompletionTime != nil || replace {
		r.ExpectedCompletionTime = nil
		if f.ExpectedCompletionTime != nil {
			t := f.ExpectedCompletionTime.UTC()
			r.ExpectedCompletionTime = &t
		}
	}
}

func setNotes(r *models.MaintenanceRequest, notes *string) {
	if notes == nil {
		return
	}
	if n := strings.TrimSpace(*notes); n != "" {
		r.Notes = &n
	}
}

func sameFields(a, b *models.MaintenanceRequest) bool {
	return sameString(a.AssetID, b.AssetID) &&
		a.AssetName == b.AssetName &&
		a.AssetCode == b.AssetCode &&
		a.Title == b.Title &&
		a.Description == b.Description &&
		a.Priority == b.Priority &&
		sameTime(a.ExpectedCompletionTime, b.ExpectedCompletionTime)
}

func sameString(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

func sameTime(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == b
	}
	return a.Equal(*b)
}

func trimmed(v *string) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(*v)
}

func trimmedOrNil(v *string) *string {
	s := trimmed(v)
	if s == "" {
		return nil
	}
	return &s
}
