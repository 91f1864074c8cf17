package lifecycle

import "github.com/noah-isme/facility-maintenance-api/internal/models"

// Reason tags why a transition was denied.
type Reason string

const (
	ReasonInvalidTransition Reason = "invalid-transition"
	ReasonForbiddenRole     Reason = "forbidden-role"
)

// Trigger distinguishes a status chosen directly by a user from one produced as
// a side effect of an assignment change.
type Trigger uint8

const (
	TriggerDirect Trigger = iota
	TriggerAssignment
)

// Decision is the validator verdict.
type Decision struct {
	Allowed bool
	Reason  Reason
}

type rule struct {
	roles   []ActingRole
	trigger Trigger
}

// statusNone is the pseudo state of a record that has not been stored yet.
const statusNone models.MaintenanceStatus = ""

var transitions = map[models.MaintenanceStatus]map[models.MaintenanceStatus]rule{
	statusNone: {
		models.StatusDraft:   {roles: []ActingRole{ActingRequester}},
		models.StatusPending: {roles: []ActingRole{ActingRequester}},
	},
	models.StatusDraft: {
		models.StatusDraft:   {roles: []ActingRole{ActingRequester}},
		models.StatusPending: {roles: []ActingRole{ActingRequester}},
	},
	models.StatusPending: {
		models.StatusPending:   {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusApproved:  {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusCancelled: {roles: []ActingRole{ActingCoordinator}},
	},
	models.StatusApproved: {
		models.StatusApproved:   {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusPending:    {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusInProgress: {roles: []ActingRole{ActingTechnician}},
		models.StatusCompleted:  {roles: []ActingRole{ActingTechnician}},
		models.StatusCancelled:  {roles: []ActingRole{ActingCoordinator}},
	},
	models.StatusInProgress: {
		models.StatusInProgress: {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusPending:    {roles: []ActingRole{ActingCoordinator}, trigger: TriggerAssignment},
		models.StatusCompleted:  {roles: []ActingRole{ActingTechnician}},
	},
}

// Validate decides a directly requested status change.
func Validate(from models.MaintenanceStatus, role ActingRole, to models.MaintenanceStatus) Decision {
	return ValidateTrigger(from, role, to, TriggerDirect)
}

// ValidateTrigger decides a status change produced by trigger. A rule reserved for
// assignment side effects never matches a direct request and vice versa.
func ValidateTrigger(from models.MaintenanceStatus, role ActingRole, to models.MaintenanceStatus, trigger Trigger) Decision {
	targets, ok := transitions[from]
	if !ok {
		return Decision{Reason: ReasonInvalidTransition}
	}
	r, ok := targets[to]
	if !ok || r.trigger != trigger {
		return Decision{Reason: ReasonInvalidTransition}
	}
	for _, allowed := range r.roles {
		if allowed == role {
			return Decision{Allowed: true}
		}
	}
	return Decision{Reason: ReasonForbiddenRole}
}

// ValidateAny allows the change when at least one of roles is allowed. Structural
// denials win over role denials so callers report invalid-transition first.
func ValidateAny(from models.MaintenanceStatus, roles []ActingRole, to models.MaintenanceStatus, trigger Trigger) Decision {
	if len(roles) == 0 {
		if d := ValidateTrigger(from, "", to, trigger); d.Reason == ReasonInvalidTransition {
			return d
		}
		return Decision{Reason: ReasonForbiddenRole}
	}
	var last Decision
	for _, role := range roles {
		d := ValidateTrigger(from, role, to, trigger)
		if d.Allowed || d.Reason == ReasonInvalidTransition {
			return d
		}
		last = d
	}
	return last
}

// Targets lists the statuses reachable from from by a direct change of role.
func Targets(from models.MaintenanceStatus, role ActingRole) []models.MaintenanceStatus {
	out := make([]models.MaintenanceStatus, 0, 3)
	for _, to := range models.AllStatuses {
		if Validate(from, role, to).Allowed && to != from {
			out = append(out, to)
		}
	}
	return out
}
