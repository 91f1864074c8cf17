package models

import "time"

// HistoryAction names the operation that produced a history entry.
type HistoryAction string

const (
	HistoryCreated    HistoryAction = "created"
	HistoryDraftSaved HistoryAction = "draft_saved"
	HistorySubmitted  HistoryAction = "submitted"
	HistoryUpdated    HistoryAction = "updated"
	HistoryAssigned   HistoryAction = "assigned"
	HistoryUnassigned HistoryAction = "unassigned"
	HistoryStatus     HistoryAction = "status_changed"
	HistoryCancelled  HistoryAction = "cancelled"
)

// MaintenanceHistory is an append-only record of an accepted lifecycle change.
type MaintenanceHistory struct {
	ID         string             `db:"id" json:"id"`
	RequestID  string             `db:"request_id" json:"requestId"`
	Action     HistoryAction      `db:"action" json:"action"`
	FromStatus *MaintenanceStatus `db:"from_status" json:"fromStatus,omitempty"`
	ToStatus   MaintenanceStatus  `db:"to_status" json:"toStatus"`
	ActorID    string             `db:"actor_id" json:"actorId"`
	ActorRole  UserRole           `db:"actor_role" json:"actorRole"`
	Note       *string            `db:"note" json:"note,omitempty"`
	CreatedAt  time.Time          `db:"created_at" json:"createdAt"`
}
