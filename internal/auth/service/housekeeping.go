package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/lanternhq/lantern/internal/auth/store"
)

// revokedSessionRetention is how long revoked session rows are kept for
// audit before housekeeping deletes them.
const revokedSessionRetention = 30 * 24 * time.Hour

// HousekeepingService periodically deletes expired refresh tokens, stale
// MFA challenges, and long-revoked sessions so the tables don't grow
// without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates the worker. Interval defaults to 1 hour.
func NewHousekeepingService(st store.Store, logger *slog.Logger, interval time.Duration) *HousekeepingService {
	if interval <= 0 {
		interval = 1 * time.Hour
	}

	return &HousekeepingService{
		Store:    st,
		Logger:   logger,
		Interval: interval,
		stopCh:   make(chan struct{}),
		doneCh:   make(chan struct{}),
	}
}

// Start launches the background worker. Call after migrations have run.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop shuts the worker down, blocking until any in-progress sweep
// finishes.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
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

// cleanup runs each sweep independently; one failure doesn't stop the rest.
func (s *HousekeepingService) cleanup() {
	ctx := context.Background()
	s.Logger.Debug("starting housekeeping sweep")

	if err := s.Store.RefreshTokens().DeleteExpiredRefreshTokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired refresh tokens", "error", err)
	}

	if err := s.Store.MFATokens().DeleteExpiredMFATokens(ctx); err != nil {
		s.Logger.Error("failed to delete expired mfa tokens", "error", err)
	}

	cutoff := time.Now().Add(-revokedSessionRetention).Unix()
	if err := s.Store.Sessions().DeleteRevokedSessionsBefore(ctx, cutoff); err != nil {
		s.Logger.Error("failed to delete old revoked sessions", "error", err)
	}

	s.Logger.Debug("housekeeping sweep completed")
}
