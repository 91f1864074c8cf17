package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

func newMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	sqlxdb := sqlx.NewDb(db, "sqlmock")
	return sqlxdb, mock, func() {
		db.Close()
	}
}

func TestFindByID(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "email", "role", "active"}).
		AddRow("7", "Tomo", "tomo@example.com", string(models.RoleStaff), true)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, email, role, active FROM users WHERE id = $1 LIMIT 1")).
		WithArgs("7").
		WillReturnRows(rows)

	user, err := repo.FindByID(context.Background(), "7")
	require.NoError(t, err)
	assert.Equal(t, models.RoleStaff, user.Role)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestListTechnicians(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewUserRepository(db)

	rows := sqlmock.NewRows([]string{"id", "full_name", "role"}).
		AddRow("9", "Nina", "supervisor").
		AddRow("7", "Tomo", "staff")
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, full_name, role FROM users WHERE active = $1 AND role IN ($2,$3) ORDER BY full_name ASC")).
		WithArgs(true, "staff", "supervisor").
		WillReturnRows(rows)

	techs, err := repo.ListTechnicians(context.Background(), []models.UserRole{models.RoleStaff, models.RoleSupervisor})
	require.NoError(t, err)
	require.Len(t, techs, 2)
	assert.Equal(t, models.Technician{ID: "9", Name: "Nina", Role: models.RoleSupervisor}, techs[0])
	assert.NoError(t, mock.ExpectationsWereMet())

	none, err := repo.ListTechnicians(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestCreateAuditLog(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewAuditRepository(db)

	mock.ExpectExec("INSERT INTO audit_logs").WillReturnResult(sqlmock.NewResult(1, 1))

	entry := &models.AuditLog{Action: models.AuditActionMaintenanceAssign, Resource: "maintenance_request"}
	require.NoError(t, repo.CreateAuditLog(context.Background(), entry))
	assert.NotEmpty(t, entry.ID)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestHistoryRepository(t *testing.T) {
	db, mock, cleanup := newMock(t)
	defer cleanup()
	repo := NewHistoryRepository(db)

	mock.ExpectExec("INSERT INTO maintenance_history").WillReturnResult(sqlmock.NewResult(1, 1))
	from := models.StatusPending
	require.NoError(t, repo.Append(context.Background(), &models.MaintenanceHistory{
		RequestID:  "req-1",
		Action:     models.HistoryAssigned,
		FromStatus: &from,
		ToStatus:   models.StatusApproved,
		ActorID:    "sup-1",
		ActorRole:  models.RoleSupervisor,
	}))

	now := time.Now()
	rows := sqlmock.NewRows([]string{"id", "request_id", "action", "from_status", "to_status", "actor_id", "actor_role", "note", "created_at"}).
		AddRow("h1", "req-1", "created", nil, "pending", "user-1", "user", nil, now).
		AddRow("h2", "req-1", "assigned", "pending", "approved", "sup-1", "supervisor", nil, now)
	mock.ExpectQuery(regexp.QuoteMeta("FROM maintenance_history WHERE request_id = $1")).
		WithArgs("req-1").
		WillReturnRows(rows)

	entries, err := repo.ListByRequest(context.Background(), "req-1")
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Nil(t, entries[0].FromStatus)
	assert.Equal(t, models.StatusPending, *entries[1].FromStatus)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCacheRepositoryWithoutClient(t *testing.T) {
	repo := NewCacheRepository(nil, "fm", nil)
	var dest map[string]int
	assert.ErrorIs(t, repo.Get(context.Background(), "summary", &dest), appErrors.ErrCacheMiss)
	assert.NoError(t, repo.Set(context.Background(), "summary", map[string]int{"a": 1}, time.Minute))
	assert.NoError(t, repo.DeleteByPattern(context.Background(), "maintenance:*"))
	assert.NoError(t, repo.Ping(context.Background()))
	assert.NoError(t, repo.Close())
	assert.Equal(t, "fm:summary", repo.key("summary"))
}
