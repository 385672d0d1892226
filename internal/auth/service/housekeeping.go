package service

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aussiebroadwan/cityauth/internal/auth/metrics"
	"github.com/aussiebroadwan/cityauth/internal/auth/store"
)

// HousekeepingService periodically deletes decided role change requests
// older than Retention. A zero Retention keeps them forever and the loop
// does nothing.
type HousekeepingService struct {
	Store     store.Store
	Logger    *slog.Logger
	Interval  time.Duration
	Retention time.Duration

	now      func() time.Time
	stopCh   chan struct{}
	doneCh   chan struct{}
	stopOnce sync.Once
}

// NewHousekeepingService creates the service. A non-positive interval
// defaults to one hour.
func NewHousekeepingService(
	st store.Store,
	logger *slog.Logger,
	interval, retention time.Duration,
) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}

	return &HousekeepingService{
		Store:     st,
		Logger:    logger,
		Interval:  interval,
		Retention: retention,
		now:       time.Now,
		stopCh:    make(chan struct{}),
		doneCh:    make(chan struct{}),
	}
}

// Start launches the background loop. Call Stop to end it.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval,
		"retention", s.Retention,
	)
}

// Stop ends the loop and waits for an in-progress cleanup to finish. It is
// safe to call more than once.
func (s *HousekeepingService) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopCh)
		<-s.doneCh
		s.Logger.Info("housekeeping service stopped")
	})
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	s.cleanup()
	for {
		select {
		case <-ticker.C:
			s.cleanup()
		case <-s.stopCh:
			return
		}
	}
}

func (s *HousekeepingService) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	if _, err := s.RunOnce(ctx); err != nil {
		s.Logger.Error("housekeeping cleanup failed", "error", err)
	}
}

// RunOnce performs a single cleanup pass and returns how many requests were
// deleted.
func (s *HousekeepingService) RunOnce(ctx context.Context) (int64, error) {
	if s.Retention <= 0 {
		return 0, nil
	}

	cutoff := s.now().UTC().Add(-s.Retention)
	n, err := s.Store.RoleRequests().DeleteResolvedRoleRequestsBefore(ctx, cutoff)
	if err != nil {
		return 0, err
	}

	metrics.HousekeepingDeletedTotal.Add(float64(n))
	s.Logger.Info("housekeeping cleanup completed",
		"deleted_role_requests", n,
		"cutoff", cutoff,
	)
	return n, nil
}
