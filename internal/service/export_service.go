package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
	"github.com/noah-isme/facility-maintenance-api/pkg/export"
)

// ExportFormat names a rendered export type.
type ExportFormat string

const (
	ExportCSV  ExportFormat = "csv"
	ExportPDF  ExportFormat = "pdf"
	ExportXLSX ExportFormat = "xlsx"
)

var exportContentTypes = map[ExportFormat]string{
	ExportCSV:  "text/csv; charset=utf-8",
	ExportPDF:  "application/pdf",
	ExportXLSX: "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
}

const exportPageSize = 200

type exportLister interface {
	List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, int, error)
}

type renderer interface {
	Render(data export.Dataset) ([]byte, error)
}

// ExportConfig tunes export behaviour.
type ExportConfig struct {
	MaxRows int
}

// ExportResult is a rendered file streamed back inline.
type ExportResult struct {
	Filename    string
	ContentType string
	Body        []byte
	Rows        int
	Truncated   bool
}

// ExportService renders filtered request lists as csv, pdf or xlsx.
type ExportService struct {
	repo      exportLister
	renderers map[ExportFormat]renderer
	cfg       ExportConfig
	now       func() time.Time
	logger    *zap.Logger
}

// NewExportService constructs an ExportService with the default renderers.
func NewExportService(repo exportLister, cfg ExportConfig, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.MaxRows <= 0 {
		cfg.MaxRows = 5000
	}
	return &ExportService{
		repo: repo,
		renderers: map[ExportFormat]renderer{
			ExportCSV:  export.NewCSVExporter(true),
			ExportPDF:  export.NewPDFExporter(),
			ExportXLSX: export.NewXLSXExporter("Requests"),
		},
		cfg:    cfg,
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
}

// Export renders every submitted request matching filter, up to the row limit.
func (s *ExportService) Export(ctx context.Context, actor models.Actor, filter models.MaintenanceFilter, format ExportFormat) (*ExportResult, error) {
	if !lifecycle.Can(actor, lifecycle.CapCoordinate) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "only coordinators may export requests")
	}
	format = ExportFormat(strings.ToLower(strings.TrimSpace(string(format))))
	if format == "" {
		format = ExportCSV
	}
	r, ok := s.renderers[format]
	if !ok {
		return nil, appErrors.WithDetails(appErrors.ErrValidation, "unsupported export format", map[string]string{
			"format": "must be one of csv, pdf, xlsx",
		})
	}

	rows, truncated, err := s.collect(ctx, filter)
	if err != nil {
		return nil, err
	}
	now := s.now()
	dataset := buildMaintenanceDataset(rows, now)
	body, err := r.Render(dataset)
	if err != nil {
		s.logger.Error("failed to render export", zap.String("format", string(format)), zap.Error(err))
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("maintenance export rendered",
		zap.String("actor_id", actor.ID),
		zap.String("format", string(format)),
		zap.Int("rows", len(rows)),
		zap.Bool("truncated", truncated),
	)
	return &ExportResult{
		Filename:    fmt.Sprintf("maintenance_requests_%s.%s", now.Format("20060102_150405"), format),
		ContentType: exportContentTypes[format],
		Body:        body,
		Rows:        len(rows),
		Truncated:   truncated,
	}, nil
}

func (s *ExportService) collect(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, bool, error) {
	filter.Drafts = false
	filter.PageSize = exportPageSize
	out := make([]models.MaintenanceRequest, 0, exportPageSize)
	for page := 1; ; page++ {
		filter.Page = page
		items, total, err := s.repo.List(ctx, filter)
		if err != nil {
			return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list maintenance requests")
		}
		out = append(out, items...)
		if len(out) >= s.cfg.MaxRows {
			return out[:s.cfg.MaxRows], total > s.cfg.MaxRows, nil
		}
		if len(items) < exportPageSize || len(out) >= total {
			return out, false, nil
		}
	}
}

func buildMaintenanceDataset(items []models.MaintenanceRequest, now time.Time) export.Dataset {
	dataset := export.Dataset{
		Title: fmt.Sprintf("Maintenance Requests (%s)", now.Format("2006-01-02 15:04 UTC")),
		Columns: []export.Column{
			{Key: "id", Title: "ID", Width: 1.4},
			{Key: "title", Title: "Title", Width: 2},
			{Key: "asset", Title: "Asset", Width: 1.4},
			{Key: "priority", Title: "Priority", Width: 0.8},
			{Key: "status", Title: "Status", Width: 0.9},
			{Key: "requestedBy", Title: "Requested By", Width: 1.2},
			{Key: "assignedTo", Title: "Assigned To", Width: 1.2},
			{Key: "expected", Title: "Expected Completion", Width: 1.1},
			{Key: "createdAt", Title: "Created", Width: 1.1},
			{Key: "completedAt", Title: "Completed", Width: 1.1},
		},
		Rows: make([]map[string]string, 0, len(items)),
	}
	for _, item := range items {
		requester := item.RequestedByName
		if requester == "" {
			requester = item.RequestedBy
		}
		assignee := item.AssigneeID()
		if item.AssignedToName != nil && *item.AssignedToName != "" {
			assignee = *item.AssignedToName
		}
		dataset.Rows = append(dataset.Rows, map[string]string{
			"id":          item.ID,
			"title":       item.Title,
			"asset":       assetLabel(item),
			"priority":    string(item.Priority),
			"status":      string(item.Status),
			"requestedBy": requester,
			"assignedTo":  assignee,
			"expected":    formatTime(item.ExpectedCompletionTime),
			"createdAt":   item.CreatedAt.UTC().Format(time.RFC3339),
			"completedAt": formatTime(item.CompletedAt),
		})
	}
	return dataset
}

func assetLabel(item models.MaintenanceRequest) string {
	switch {
	case item.AssetName != "" && item.AssetCode != "":
		return fmt.Sprintf("%s (%s)", item.AssetName, item.AssetCode)
	case item.AssetName != "":
		return item.AssetName
	case item.AssetID != nil:
		return *item.AssetID
	}
	return ""
}

func formatTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
