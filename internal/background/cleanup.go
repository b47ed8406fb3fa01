package background

import (
	"context"
	"log/slog"
	"time"
)

// ResetSweeperRepository clears stale password reset requests
type ResetSweeperRepository interface {
	ClearExpiredResetRequests(ctx context.Context, cutoff time.Time) (int64, error)
}

// ResetSweeper periodically clears reset requests older than the token TTL,
// so abandoned tokens do not linger in the database.
type ResetSweeper struct {
	repo     ResetSweeperRepository
	logger   *slog.Logger
	interval time.Duration
	ttl      time.Duration
	stopCh   chan struct{}
}

// NewResetSweeper creates a new reset sweeper
func NewResetSweeper(repo ResetSweeperRepository, logger *slog.Logger, interval, ttl time.Duration) *ResetSweeper {
	return &ResetSweeper{
		repo:     repo,
		logger:   logger,
		interval: interval,
		ttl:      ttl,
		stopCh:   make(chan struct{}),
	}
}

// Start begins the periodic sweep
func (rs *ResetSweeper) Start(ctx context.Context) {
	ticker := time.NewTicker(rs.interval)
	defer ticker.Stop()

	// Run immediately on startup
	rs.sweep(ctx)

	for {
		select {
		case <-ticker.C:
			rs.sweep(ctx)
		case <-rs.stopCh:
			rs.logger.Info("reset sweeper stopped")
			return
		case <-ctx.Done():
			rs.logger.Info("reset sweeper context cancelled")
			return
		}
	}
}

func (rs *ResetSweeper) sweep(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	cutoff := time.Now().Add(-rs.ttl)

	rowsCleared, err := rs.repo.ClearExpiredResetRequests(sweepCtx, cutoff)
	if err != nil {
		rs.logger.Error("failed to clear expired reset requests", slog.Any("error", err))
		return
	}

	if rowsCleared > 0 {
		rs.logger.Info("expired reset requests cleared", slog.Int64("rows_cleared", rowsCleared))
	}
}

// Stop signals the sweeper to stop
func (rs *ResetSweeper) Stop() {
	close(rs.stopCh)
}
