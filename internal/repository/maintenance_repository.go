package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	sq "github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

const maintenanceColumns = `id, asset_id, asset_name, asset_code, requested_by, requested_by_name, title, description,
       priority, status, is_draft, assigned_to, assigned_to_name, expected_completion_time, notes,
       created_at, updated_at, completed_at`

const (
	defaultMaintenancePageSize = 20
	maxMaintenancePageSize     = 200
)

var maintenanceSortColumns = map[string]string{
	"createdAt": "created_at",
	"updatedAt": "updated_at",
	"status":    "status",
	"priority":  "CASE priority WHEN 'urgent' THEN 4 WHEN 'high' THEN 3 WHEN 'medium' THEN 2 WHEN 'low' THEN 1 ELSE 0 END",
}

// MaintenanceRepository is the request store backed by Postgres.
type MaintenanceRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// NewMaintenanceRepository constructs the repository.
func NewMaintenanceRepository(db *sqlx.DB) *MaintenanceRepository {
	return &MaintenanceRepository{db: db, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// Create inserts a request. Missing identifiers and timestamps are filled in.
func (r *MaintenanceRepository) Create(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = req.CreatedAt
	}
	const query = `INSERT INTO maintenance_requests
	(id, asset_id, asset_name, asset_code, requested_by, requested_by_name, title, description, priority, status, is_draft,
	 assigned_to, assigned_to_name, expected_completion_time, notes, created_at, updated_at, completed_at)
	VALUES (:id, :asset_id, :asset_name, :asset_code, :requested_by, :requested_by_name, :title, :description, :priority, :status, :is_draft,
	 :assigned_to, :assigned_to_name, :expected_completion_time, :notes, :created_at, :updated_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create maintenance request: %w", err)
	}
	return nil
}

// GetByID fetches a request. sql.ErrNoRows is returned unwrapped.
func (r *MaintenanceRepository) GetByID(ctx context.Context, id string) (*models.MaintenanceRequest, error) {
	query := `SELECT ` + maintenanceColumns + ` FROM maintenance_requests WHERE id = $1`
	var req models.MaintenanceRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("get maintenance request: %w", err)
	}
	return &req, nil
}

// List returns one page of requests matching filter and the total match count.
func (r *MaintenanceRepository) List(ctx context.Context, filter models.MaintenanceFilter) ([]models.MaintenanceRequest, int, error) {
	page, size := normalizePage(filter.Page, filter.PageSize)

	countQuery, countArgs, err := applyMaintenanceFilter(r.psql.Select("COUNT(*)").From("maintenance_requests"), filter).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build maintenance count: %w", err)
	}
	var total int
	if err := r.db.GetContext(ctx, &total, countQuery, countArgs...); err != nil {
		return nil, 0, fmt.Errorf("count maintenance requests: %w", err)
	}

	builder := applyMaintenanceFilter(r.psql.Select(maintenanceColumns).From("maintenance_requests"), filter).
		OrderBy(maintenanceOrderBy(filter.SortBy, filter.SortOrder), "id ASC").
		Limit(uint64(size)).
		Offset(uint64((page - 1) * size))
	query, args, err := builder.ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("build maintenance list: %w", err)
	}
	items := make([]models.MaintenanceRequest, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list maintenance requests: %w", err)
	}
	return items, total, nil
}

// Update writes every mutable column of req. Last write wins; no version check
// is performed.
func (r *MaintenanceRepository) Update(ctx context.Context, req *models.MaintenanceRequest) error {
	if req.UpdatedAt.IsZero() {
		req.UpdatedAt = time.Now().UTC()
	}
	const query = `UPDATE maintenance_requests SET
	asset_id = :asset_id, asset_name = :asset_name, asset_code = :asset_code, requested_by = :requested_by,
	requested_by_name = :requested_by_name, title = :title, description = :description, priority = :priority,
	status = :status, is_draft = :is_draft, assigned_to = :assigned_to, assigned_to_name = :assigned_to_name,
	expected_completion_time = :expected_completion_time, notes = :notes, updated_at = :updated_at,
	completed_at = :completed_at
	WHERE id = :id`
	result, err := r.db.NamedExecContext(ctx, query, req)
	if err != nil {
		return fmt.Errorf("update maintenance request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check maintenance update rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// Delete hard-deletes a draft. Submitted requests are never removed.
func (r *MaintenanceRepository) Delete(ctx context.Context, id string) error {
	const query = `DELETE FROM maintenance_requests WHERE id = $1 AND status = 'draft'`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("delete maintenance request: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check maintenance delete rows: %w", err)
	}
	if rows == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatus groups submitted requests by status.
func (r *MaintenanceRepository) CountByStatus(ctx context.Context) ([]models.StatusCount, error) {
	query, args, err := r.psql.Select("status", "COUNT(*) AS total").
		From("maintenance_requests").
		Where(sq.Eq{"is_draft": false}).
		GroupBy("status").
		OrderBy("status").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build status count: %w", err)
	}
	counts := make([]models.StatusCount, 0, len(models.AllStatuses))
	if err := r.db.SelectContext(ctx, &counts, query, args...); err != nil {
		return nil, fmt.Errorf("count maintenance by status: %w", err)
	}
	return counts, nil
}

// ListOverdue returns approved or in-progress requests whose expected completion
// time is before now.
func (r *MaintenanceRepository) ListOverdue(ctx context.Context, now time.Time) ([]models.MaintenanceRequest, error) {
	query, args, err := r.psql.Select(maintenanceColumns).
		From("maintenance_requests").
		Where(sq.Eq{"status": []string{string(models.StatusApproved), string(models.StatusInProgress)}}).
		Where(sq.Lt{"expected_completion_time": now}).
		OrderBy("expected_completion_time ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build overdue query: %w", err)
	}
	items := make([]models.MaintenanceRequest, 0)
	if err := r.db.SelectContext(ctx, &items, query, args...); err != nil {
		return nil, fmt.Errorf("list overdue maintenance requests: %w", err)
	}
	return items, nil
}

func applyMaintenanceFilter(b sq.SelectBuilder, f models.MaintenanceFilter) sq.SelectBuilder {
	b = b.Where(sq.Eq{"is_draft": f.Drafts})
	if len(f.Status) > 0 {
		statuses := make([]string, len(f.Status))
		for i, s := range f.Status {
			statuses[i] = string(s)
		}
		b = b.Where(sq.Eq{"status": statuses})
	}
	if len(f.Priority) > 0 {
		priorities := make([]string, len(f.Priority))
		for i, p := range f.Priority {
			priorities[i] = string(p)
		}
		b = b.Where(sq.Eq{"priority": priorities})
	}
	if f.AssignedTo != "" {
		b = b.Where(sq.Eq{"assigned_to": f.AssignedTo})
	}
	if f.RequestedBy != "" {
		b = b.Where(sq.Eq{"requested_by": f.RequestedBy})
	}
	if f.DateFrom != nil {
		b = b.Where(sq.GtOrEq{"created_at": *f.DateFrom})
	}
	if f.DateTo != nil {
		b = b.Where(sq.LtOrEq{"created_at": *f.DateTo})
	}
	if f.OverdueAt != nil {
		b = b.Where(sq.Lt{"expected_completion_time": *f.OverdueAt})
	}
	return b
}

func maintenanceOrderBy(sortBy, sortOrder string) string {
	column, ok := maintenanceSortColumns[sortBy]
	if !ok {
		column = maintenanceSortColumns["createdAt"]
	}
	direction := "DESC"
	if strings.EqualFold(sortOrder, "asc") {
		direction = "ASC"
	}
	return column + " " + direction
}

func normalizePage(page, size int) (int, int) {
	if page < 1 {
		page = 1
	}
	if size <= 0 {
		size = defaultMaintenancePageSize
	}
	if size > maxMaintenancePageSize {
		size = maxMaintenancePageSize
	}
	return page, size
}
