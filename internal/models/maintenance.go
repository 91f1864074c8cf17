package models

import "time"

// MaintenanceStatus captures lifecycle states for maintenance requests.
type MaintenanceStatus string

const (
	StatusDraft      MaintenanceStatus = "draft"
	StatusPending    MaintenanceStatus = "pending"
	StatusApproved   MaintenanceStatus = "approved"
	StatusInProgress MaintenanceStatus = "in_progress"
	StatusCompleted  MaintenanceStatus = "completed"
	StatusCancelled  MaintenanceStatus = "cancelled"
)

// AllStatuses lists every lifecycle state in workflow order.
var AllStatuses = []MaintenanceStatus{
	StatusDraft,
	StatusPending,
	StatusApproved,
	StatusInProgress,
	StatusCompleted,
	StatusCancelled,
}

// Valid reports whether s is a known status.
func (s MaintenanceStatus) Valid() bool {
	for _, candidate := range AllStatuses {
		if s == candidate {
			return true
		}
	}
	return false
}

// Terminal reports whether no further transitions are permitted from s.
func (s MaintenanceStatus) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Priority ranks the urgency of a request.
type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Valid reports whether p is a known priority.
func (p Priority) Valid() bool {
	switch p {
	case PriorityLow, PriorityMedium, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Rank orders priorities from low (1) to urgent (4); unknown values rank 0.
func (p Priority) Rank() int {
	switch p {
	case PriorityLow:
		return 1
	case PriorityMedium:
		return 2
	case PriorityHigh:
		return 3
	case PriorityUrgent:
		return 4
	}
	return 0
}

// MaintenanceRequest is the canonical record owned by the request store.
type MaintenanceRequest struct {
	ID                     string            `db:"id" json:"id"`
	AssetID                *string           `db:"asset_id" json:"assetId"`
	AssetName              string            `db:"asset_name" json:"assetName,omitempty"`
	AssetCode              string            `db:"asset_code" json:"assetCode,omitempty"`
	RequestedBy            string            `db:"requested_by" json:"requestedBy"`
	RequestedByName        string            `db:"requested_by_name" json:"requestedByName,omitempty"`
	Title                  string            `db:"title" json:"title"`
	Description            string            `db:"description" json:"description"`
	Priority               Priority          `db:"priority" json:"priority,omitempty"`
	Status                 MaintenanceStatus `db:"status" json:"status"`
	IsDraft                bool              `db:"is_draft" json:"isDraft"`
	AssignedTo             *string           `db:"assigned_to" json:"assignedTo,omitempty"`
	AssignedToName         *string           `db:"assigned_to_name" json:"assignedToName,omitempty"`
	ExpectedCompletionTime *time.Time        `db:"expected_completion_time" json:"expectedCompletionTime,omitempty"`
	Notes                  *string           `db:"notes" json:"notes,omitempty"`
	CreatedAt              time.Time         `db:"created_at" json:"createdAt"`
	UpdatedAt              time.Time         `db:"updated_at" json:"updatedAt"`
	CompletedAt            *time.Time        `db:"completed_at" json:"completedAt,omitempty"`
}

// Clone returns a deep copy so engine functions never alias the caller's record.
func (r *MaintenanceRequest) Clone() *MaintenanceRequest {
	if r == nil {
		return nil
	}
	out := *r
	out.AssetID = cloneString(r.AssetID)
	out.AssignedTo = cloneString(r.AssignedTo)
	out.AssignedToName = cloneString(r.AssignedToName)
	out.Notes = cloneString(r.Notes)
	out.ExpectedCompletionTime = cloneTime(r.ExpectedCompletionTime)
	out.CompletedAt = cloneTime(r.CompletedAt)
	return &out
}

// AssigneeID returns the assigned technician or an empty string.
func (r *MaintenanceRequest) AssigneeID() string {
	if r == nil || r.AssignedTo == nil {
		return ""
	}
	return *r.AssignedTo
}

// MaintenanceFilter constrains listing queries.
type MaintenanceFilter struct {
	Status      []MaintenanceStatus
	Priority    []Priority
	AssignedTo  string
	RequestedBy string
	DateFrom    *time.Time
	DateTo      *time.Time
	Drafts      bool
	OverdueAt   *time.Time
	Page        int
	PageSize    int
	SortBy      string
	SortOrder   string
}

// StatusCount is one bucket of the status summary.
type StatusCount struct {
	Status MaintenanceStatus `db:"status" json:"status"`
	Total  int               `db:"total" json:"total"`
}

func cloneString(v *string) *string {
	if v == nil {
		return nil
	}
	s := *v
	return &s
}

func cloneTime(v *time.Time) *time.Time {
	if v == nil {
		return nil
	}
	t := *v
	return &t
}
