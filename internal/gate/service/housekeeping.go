package service

import (
	"context"
	"log/slog"
	"time"

	"github.com/bitshala/guildgate/internal/gate/metrics"
	"github.com/bitshala/guildgate/internal/gate/store"
)

// HousekeepingService periodically removes tokens past their expiry,
// used or not, to keep the tokens table from growing without bound.
type HousekeepingService struct {
	Store    store.Store
	Logger   *slog.Logger
	Interval time.Duration

	// Internal channels for lifecycle management
	stopCh chan struct{}
	doneCh chan struct{}
}

// NewHousekeepingService creates a new housekeeping service with the given interval.
// If interval is 0 or negative, defaults to 1 hour.
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

// Start begins the background worker that periodically runs cleanup.
// This is non-blocking. Call Stop() to gracefully shut the worker down.
func (s *HousekeepingService) Start() {
	go s.run()
	s.Logger.Info("housekeeping service started", "interval", s.Interval)
}

// Stop gracefully shuts down the background worker.
// Blocks until the worker has finished any in-progress cleanup.
func (s *HousekeepingService) Stop() {
	close(s.stopCh)
	<-s.doneCh
	s.Logger.Info("housekeeping service stopped")
}

func (s *HousekeepingService) run() {
	defer close(s.doneCh)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	// Run cleanup immediately on startup
	if _, err := s.PurgeExpired(context.Background()); err != nil {
		s.Logger.Error("housekeeping cleanup failed", "error", err)
	}

	for {
		select {
		case <-ticker.C:
			if _, err := s.PurgeExpired(context.Background()); err != nil {
				s.Logger.Error("housekeeping cleanup failed", "error", err)
			}
		case <-s.stopCh:
			return
		}
	}
}

// PurgeExpired deletes every token past its expiry and returns how many were
// removed. It is idempotent and safe to run concurrently with issuance and
// redemption: a redeem racing a purge sees the vanished row as not-found,
// which is the same outcome as a consumed token.
func (s *HousekeepingService) PurgeExpired(ctx context.Context) (int64, error) {
	removed, err := s.Store.Tokens().DeleteExpiredTokens(ctx, time.Now().UTC())
	if err != nil {
		return 0, err
	}

	metrics.TokensPurged.Add(float64(removed))
	if removed > 0 {
		s.Logger.Info("purged expired tokens", "removed", removed)
	}
	return removed, nil
}
