package dto

import (
	"bytes"
	"encoding/json"
	"time"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

// CreateMaintenanceRequest is the POST /maintenance payload. Required fields are
// checked by the lifecycle engine so the error details match a draft submit.
type CreateMaintenanceRequest struct {
	AssetID                *string          `json:"assetId"`
	AssetName              *string          `json:"assetName" validate:"omitempty,max=200"`
	AssetCode              *string          `json:"assetCode" validate:"omitempty,max=64"`
	Title                  *string          `json:"title" validate:"omitempty,max=200"`
	Description            *string          `json:"description" validate:"omitempty,max=4000"`
	Priority               *models.Priority `json:"priority"`
	ExpectedCompletionTime *time.Time       `json:"expectedCompletionTime"`
}

// Fields converts the payload for the lifecycle engine.
func (r CreateMaintenanceRequest) Fields() lifecycle.Fields {
	return lifecycle.Fields{
		AssetID:                r.AssetID,
		AssetName:              r.AssetName,
		AssetCode:              r.AssetCode,
		Title:                  r.Title,
		Description:            r.Description,
		Priority:               r.Priority,
		ExpectedCompletionTime: r.ExpectedCompletionTime,
	}
}

// DraftRequest is the payload of POST /maintenance/draft and PUT /maintenance/draft/:id.
// Saving a draft replaces every form field.
type DraftRequest = CreateMaintenanceRequest

// UpdateMaintenanceRequest is the PUT /maintenance/:id patch. Absent fields are left
// alone; assignedTo distinguishes "absent" from an explicit null that clears it.
type UpdateMaintenanceRequest struct {
	CreateMaintenanceRequest
	AssignedTo NullableString            `json:"assignedTo"`
	Status     *models.MaintenanceStatus `json:"status"`
	Notes      *string                   `json:"notes" validate:"omitempty,max=4000"`
}

// HasFieldChanges reports whether any descriptive field is present.
func (r UpdateMaintenanceRequest) HasFieldChanges() bool {
	c := r.CreateMaintenanceRequest
	return c.AssetID != nil || c.AssetName != nil || c.AssetCode != nil || c.Title != nil ||
		c.Description != nil || c.Priority != nil || c.ExpectedCompletionTime != nil
}

// AssignRequest is the PUT /maintenance/:id/assign payload. A null technicianId
// clears the assignment.
type AssignRequest struct {
	TechnicianID *string `json:"technicianId"`
}

// StatusUpdateRequest is the PUT /maintenance/:id/status payload.
type StatusUpdateRequest struct {
	Status models.MaintenanceStatus `json:"status" validate:"required"`
	Notes  *string                  `json:"notes" validate:"omitempty,max=4000"`
}

// CancelRequest is the POST /maintenance/:id/cancel payload.
type CancelRequest struct {
	Reason string `json:"reason" validate:"max=1000"`
}

// MaintenanceSummary is returned by GET /maintenance/summary. Drafts are not counted.
type MaintenanceSummary struct {
	Total    int                              `json:"total"`
	ByStatus map[models.MaintenanceStatus]int `json:"byStatus"`
	Overdue  int                              `json:"overdue"`
	AsOf     time.Time                        `json:"asOf"`
}

// NullableString records whether a JSON key was present and whether it was null.
type NullableString struct {
	Set   bool
	Value *string
}

// UnmarshalJSON is only invoked when the key is present.
func (n *NullableString) UnmarshalJSON(data []byte) error {
	n.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		n.Value = nil
		return nil
	}
	var v string
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	n.Value = &v
	return nil
}

// MarshalJSON renders the value or null.
func (n NullableString) MarshalJSON() ([]byte, error) {
	if n.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(*n.Value)
}
