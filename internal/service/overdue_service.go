package service

import (
	"context"
	"sync"
	"time"

	"github.com/go-co-op/gocron"
	"go.uber.org/zap"

	"github.com/noah-isme/facility-maintenance-api/internal/models"
)

type overdueRepository interface {
	ListOverdue(ctx context.Context, now time.Time) ([]models.MaintenanceRequest, error)
}

// OverdueService periodically finds approved or in-progress requests past their
// expected completion time. A request is notified once until it stops being
// overdue.
type OverdueService struct {
	repo      overdueRepository
	notifier  eventNotifier
	metrics   *MetricsService
	logger    *zap.Logger
	interval  time.Duration
	now       func() time.Time
	scheduler *gocron.Scheduler

	mu       sync.Mutex
	notified map[string]struct{}
	started  bool
	ctx      context.Context
	cancel   context.CancelFunc
}

// NewOverdueService constructs the sweeper. Interval defaults to fifteen minutes.
func NewOverdueService(repo overdueRepository, notifier eventNotifier, metrics *MetricsService, interval time.Duration, logger *zap.Logger) *OverdueService {
	if interval <= 0 {
		interval = 15 * time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OverdueService{
		repo:      repo,
		notifier:  notifier,
		metrics:   metrics,
		logger:    logger,
		interval:  interval,
		now:       func() time.Time { return time.Now().UTC() },
		scheduler: gocron.NewScheduler(time.UTC),
		notified:  make(map[string]struct{}),
	}
}

// Start schedules the sweep and runs it once immediately.
func (s *OverdueService) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return nil
	}
	s.ctx, s.cancel = context.WithCancel(ctx)
	if _, err := s.scheduler.Every(s.interval).SingletonMode().Do(s.run); err != nil {
		s.cancel()
		return err
	}
	s.scheduler.StartAsync()
	s.started = true
	s.logger.Info("overdue sweep scheduled", zap.Duration("interval", s.interval))
	return nil
}

// Stop cancels a running sweep and stops the scheduler.
func (s *OverdueService) Stop() {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return
	}
	s.started = false
	cancel := s.cancel
	s.mu.Unlock()

	cancel()
	s.scheduler.Stop()
	s.logger.Info("overdue sweep stopped")
}

func (s *OverdueService) run() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		ctx = context.Background()
	}
	if _, err := s.Sweep(ctx); err != nil {
		s.logger.Error("overdue sweep failed", zap.Error(err))
	}
}

// Sweep lists overdue requests, notifies the ones not yet reported and returns
// how many are overdue.
func (s *OverdueService) Sweep(ctx context.Context) (int, error) {
	now := s.now()
	items, err := s.repo.ListOverdue(ctx, now)
	if err != nil {
		return 0, err
	}
	s.metrics.SetOverdue(len(items))

	s.mu.Lock()
	current := make(map[string]struct{}, len(items))
	fresh := make([]models.MaintenanceRequest, 0, len(items))
	for _, item := range items {
		current[item.ID] = struct{}{}
		if _, seen := s.notified[item.ID]; !seen {
			fresh = append(fresh, item)
		}
	}
	s.notified = current
	s.mu.Unlock()

	for i := range fresh {
		item := &fresh[i]
		if s.notifier == nil {
			break
		}
		s.notifier.Notify(ctx, LifecycleEvent{
			Type:        EventOverdue,
			RequestID:   item.ID,
			Title:       item.Title,
			From:        item.Status,
			To:          item.Status,
			RequesterID: item.RequestedBy,
			AssigneeID:  item.AssigneeID(),
			OccurredAt:  now,
		})
	}
	if len(fresh) > 0 {
		s.logger.Info("overdue requests found", zap.Int("overdue", len(items)), zap.Int("notified", len(fresh)))
	}
	return len(items), nil
}
