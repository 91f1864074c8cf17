package repository

import (
	"context"
	"database/sql"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

var maintenanceRowColumns = []string{
	"id", "asset_id", "asset_name", "asset_code", "requested_by", "requested_by_name", "title", "description",
	"priority", "status", "is_draft", "assigned_to", "assigned_to_name", "expected_completion_time", "notes",
	"created_at", "updated_at", "completed_at",
}

func TestMaintenanceRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO maintenance_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	asset := "3"
	req := &models.MaintenanceRequest{
		AssetID:     &asset,
		RequestedBy: "user-1",
		Title:       "Leaking pipe",
		Description: "Pipe in room 4 leaking",
		Priority:    models.PriorityHigh,
		Status:      models.StatusPending,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	assert.NotEmpty(t, req.ID)
	assert.False(t, req.CreatedAt.IsZero())

	now := time.Now()
	rows := sqlmock.NewRows(maintenanceRowColumns).
		AddRow(req.ID, "3", "Boiler", "B-1", "user-1", "Rina", "Leaking pipe", "Pipe in room 4 leaking",
			"high", "pending", false, nil, nil, nil, nil, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("FROM maintenance_requests WHERE id = $1")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	assert.Equal(t, models.StatusPending, found.Status)
	assert.Equal(t, "3", *found.AssetID)
	assert.Nil(t, found.AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("FROM maintenance_requests WHERE id = $1")).
		WithArgs("missing").
		WillReturnError(sql.ErrNoRows)

	_, err := repo.GetByID(context.Background(), "missing")
	assert.ErrorIs(t, err, sql.ErrNoRows)
}

func TestMaintenanceRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	from := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	filter := models.MaintenanceFilter{
		Status:     []models.MaintenanceStatus{models.StatusPending, models.StatusApproved},
		Priority:   []models.Priority{models.PriorityHigh},
		AssignedTo: "7",
		DateFrom:   &from,
		Page:       2,
		PageSize:   10,
		SortBy:     "priority",
		SortOrder:  "asc",
	}

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM maintenance_requests WHERE is_draft = $1 AND status IN ($2,$3) AND priority IN ($4) AND assigned_to = $5 AND created_at >= $6")).
		WithArgs(false, "pending", "approved", "high", "7", from).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))

	now := time.Now()
	rows := sqlmock.NewRows(maintenanceRowColumns).
		AddRow("req-11", "3", "", "", "user-1", "", "Leak", "Leak", "high", "approved", false, "7", "Tomo", nil, nil, now, now, nil)
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY CASE priority WHEN 'urgent' THEN 4")).
		WithArgs(false, "pending", "approved", "high", "7", from).
		WillReturnRows(rows)

	items, total, err := repo.List(context.Background(), filter)
	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, items, 1)
	assert.Equal(t, "7", *items[0].AssignedTo)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryListDraftsDefaultsPaging(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM maintenance_requests WHERE is_draft = $1 AND requested_by = $2")).
		WithArgs(true, "user-1").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectQuery(regexp.QuoteMeta("ORDER BY created_at DESC, id ASC LIMIT 20 OFFSET 0")).
		WithArgs(true, "user-1").
		WillReturnRows(sqlmock.NewRows(maintenanceRowColumns))

	items, total, err := repo.List(context.Background(), models.MaintenanceFilter{Drafts: true, RequestedBy: "user-1"})
	require.NoError(t, err)
	assert.Empty(t, items)
	assert.Zero(t, total)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryUpdate(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_requests SET")).WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Update(context.Background(), &models.MaintenanceRequest{ID: "req-1", Status: models.StatusApproved}))

	mock.ExpectExec(regexp.QuoteMeta("UPDATE maintenance_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err := repo.Update(context.Background(), &models.MaintenanceRequest{ID: "gone"})
	assert.ErrorIs(t, err, sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryDeleteOnlyDrafts(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM maintenance_requests WHERE id = $1 AND status = 'draft'")).
		WithArgs("draft-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "draft-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM maintenance_requests")).
		WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	assert.ErrorIs(t, repo.Delete(context.Background(), "req-1"), sql.ErrNoRows)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryCountByStatus(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	mock.ExpectQuery(regexp.QuoteMeta("SELECT status, COUNT(*) AS total FROM maintenance_requests WHERE is_draft = $1 GROUP BY status")).
		WithArgs(false).
		WillReturnRows(sqlmock.NewRows([]string{"status", "total"}).
			AddRow("approved", 2).
			AddRow("pending", 5))

	counts, err := repo.CountByStatus(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []models.StatusCount{{Status: models.StatusApproved, Total: 2}, {Status: models.StatusPending, Total: 5}}, counts)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestMaintenanceRepositoryListOverdue(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewMaintenanceRepository(db)

	now := time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC)
	due := now.Add(-time.Hour)
	mock.ExpectQuery(regexp.QuoteMeta("WHERE status IN ($1,$2) AND expected_completion_time < $3")).
		WithArgs("approved", "in_progress", now).
		WillReturnRows(sqlmock.NewRows(maintenanceRowColumns).
			AddRow("req-1", "3", "", "", "user-1", "", "Leak", "Leak", "high", "in_progress", false, "7", "Tomo", due, nil, due, due, nil))

	items, err := repo.ListOverdue(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.Equal(t, models.StatusInProgress, items[0].Status)
	assert.NoError(t, mock.ExpectationsWereMet())
}
