package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/fumitec/certauth/internal/auth/store"
)

// HousekeepingService periodically removes expired reset tokens and trims
// old access log rows so the database does not grow without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// AccessLogRetention is how far back audit rows are kept.
	AccessLogRetention time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the service. Interval defaults to 1 hour,
// retention to 90 days.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval, retention time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = time.Hour
	}
	if retention <= 0 {
		retention = 90 * 24 * time.Hour
	}

	return &HousekeepingService{
		Store:              st,
		Logger:             logger,
		Interval:           interval,
		AccessLogRetention: retention,
		stopCh:             make(chan struct{}),
		doneCh:             make(chan struct{}),
	}
}

// Start launches the background worker. Non-blocking; call Stop to shut down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started",
		"interval", s.Interval, "access_log_retention", s.AccessLogRetention)
}

// Stop shuts the worker down and waits for any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run once at startup
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

// cleanup runs each deletion independently; one failing does not stop the
// others.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	now := time.Now().UTC()

	if err := s.Store.ResetTokens().DeleteExpired(ctx, now); err != nil {
		s.Logger.Error("failed to delete expired reset tokens", "error", err)
	} else {
		s.Logger.Debug("deleted expired reset tokens")
	}

	cutoff := now.Add(-s.AccessLogRetention)
	if err := s.Store.AccessLogs().DeleteOlderThan(ctx, cutoff); err != nil {
		s.Logger.Error("failed to trim access logs", "error", err)
	} else {
		s.Logger.Debug("trimmed access logs", "cutoff", cutoff)
	}

	s.Logger.Info("housekeeping cleanup completed")
}
