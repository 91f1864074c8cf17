// Package draft guards an unsaved maintenance request form. A host (web view,
// desktop shell, terminal UI) feeds the live form state in and asks the Guard
// what to do on unload and on in-app navigation; persistence goes through Saver.
package draft

import (
	"strings"
	"time"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

// Form is the live state of the request form.
type Form struct {
	AssetID                string          `json:"assetId"`
	AssetName              string          `json:"assetName"`
	AssetCode              string          `json:"assetCode"`
	Title                  string          `json:"title"`
	Description            string          `json:"description"`
	Priority               models.Priority `json:"priority"`
	ExpectedCompletionTime *time.Time      `json:"expectedCompletionTime"`
}

// FormFromRequest loads an existing draft into a form.
func FormFromRequest(r *models.MaintenanceRequest) Form {
	if r == nil {
		return Form{}
	}
	f := Form{
		AssetName:   r.AssetName,
		AssetCode:   r.AssetCode,
		Title:       r.Title,
		Description: r.Description,
		Priority:    r.Priority,
	}
	if r.AssetID != nil {
		f.AssetID = *r.AssetID
	}
	if r.ExpectedCompletionTime != nil {
		t := *r.ExpectedCompletionTime
		f.ExpectedCompletionTime = &t
	}
	return f
}

// HasUnsavedChanges reports whether any tracked field holds a value. Asset
// name and code are display data derived from the asset selection.
func (f Form) HasUnsavedChanges() bool {
	return strings.TrimSpace(f.AssetID) != "" ||
		strings.TrimSpace(f.Title) != "" ||
		strings.TrimSpace(f.Description) != "" ||
		strings.TrimSpace(string(f.Priority)) != "" ||
		f.ExpectedCompletionTime != nil
}

// Fields converts the form into a full replacement for the lifecycle engine.
func (f Form) Fields() lifecycle.Fields {
	priority := f.Priority
	return lifecycle.Fields{
		AssetID:                stringPtr(f.AssetID),
		AssetName:              stringPtr(f.AssetName),
		AssetCode:              stringPtr(f.AssetCode),
		Title:                  stringPtr(f.Title),
		Description:            stringPtr(f.Description),
		Priority:               &priority,
		ExpectedCompletionTime: f.ExpectedCompletionTime,
	}
}

func stringPtr(v string) *string {
	return &v
}
