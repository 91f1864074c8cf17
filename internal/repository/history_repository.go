package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

// HistoryRepository persists the per-request lifecycle trail.
type HistoryRepository struct {
	db *sqlx.DB
}

// NewHistoryRepository constructs the repository.
func NewHistoryRepository(db *sqlx.DB) *HistoryRepository {
	return &HistoryRepository{db: db}
}

// Append inserts one history entry.
func (r *HistoryRepository) Append(ctx context.Context, entry *models.MaintenanceHistory) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	const query = `INSERT INTO maintenance_history (id, request_id, action, from_status, to_status, actor_id, actor_role, note, created_at)
	VALUES (:id, :request_id, :action, :from_status, :to_status, :actor_id, :actor_role, :note, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("append maintenance history: %w", err)
	}
	return nil
}

// ListByRequest returns the trail of one request, oldest first.
func (r *HistoryRepository) ListByRequest(ctx context.Context, requestID string) ([]models.MaintenanceHistory, error) {
	const query = `SELECT id, request_id, action, from_status, to_status, actor_id, actor_role, note, created_at
	FROM maintenance_history WHERE request_id = $1 ORDER BY created_at ASC, id ASC`
	entries := make([]models.MaintenanceHistory, 0)
	if err := r.db.SelectContext(ctx, &entries, query, requestID); err != nil {
		return nil, fmt.Errorf("list maintenance history: %w", err)
	}
	return entries, nil
}
