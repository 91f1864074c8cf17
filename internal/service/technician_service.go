package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/lifecycle"
	"github.com/noah-isme/facility-maintenance-api/internal/models"
	appErrors "github.com/noah-isme/facility-maintenance-api/pkg/errors"
)

type technicianRepository interface {
	ListTechnicians(ctx context.Context, roles []models.UserRole) ([]models.Technician, error)
}

// TechnicianService lists the users eligible for assignment.
type TechnicianService struct {
	repo   technicianRepository
	cache  *CacheService
	ttl    time.Duration
	logger *zap.Logger
}

// NewTechnicianService constructs the service. A zero ttl uses the cache default.
func NewTechnicianService(repo technicianRepository, cache *CacheService, ttl time.Duration, logger *zap.Logger) *TechnicianService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{repo: repo, cache: cache, ttl: ttl, logger: logger}
}

// List returns active users whose role carries the service capability. The bool
// reports whether the list came from cache.
func (s *TechnicianService) List(ctx context.Context) ([]models.Technician, bool, error) {
	return remember(ctx, s.cache, cacheKeyTechnicians, s.ttl, func() ([]models.Technician, error) {
		items, err := s.repo.ListTechnicians(ctx, lifecycle.RolesWith(lifecycle.CapService))
		if err != nil {
			s.logger.Error("failed to list technicians", zap.Error(err))
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list technicians")
		}
		if items == nil {
			items = []models.Technician{}
		}
		return items, nil
	})
}
