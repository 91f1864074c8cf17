package repository

import (
	"context"
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

// UserRepository reads the users table maintained by the identity provider.
type UserRepository struct {
	db   *sqlx.DB
	psql sq.StatementBuilderType
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db, psql: sq.StatementBuilder.PlaceholderFormat(sq.Dollar)}
}

// FindByID returns a user by identifier.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	const query = `SELECT id, full_name, email, role, active FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &user, nil
}

// ListTechnicians returns active users holding one of roles, ordered by name.
func (r *UserRepository) ListTechnicians(ctx context.Context, roles []models.UserRole) ([]models.Technician, error) {
	if len(roles) == 0 {
		return []models.Technician{}, nil
	}
	names := make([]string, len(roles))
	for i, role := range roles {
		names[i] = string(role)
	}
	query, args, err := r.psql.Select("id", "full_name", "role").
		From("users").
		Where(sq.Eq{"active": true}).
		Where(sq.Eq{"role": names}).
		OrderBy("full_name ASC").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build technician query: %w", err)
	}
	techs := make([]models.Technician, 0)
	if err := r.db.SelectContext(ctx, &techs, query, args...); err != nil {
		return nil, fmt.Errorf("list technicians: %w", err)
	}
	return techs, nil
}
