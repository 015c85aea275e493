package jobs

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/SanketOodles/wa-automation-backend/internal/config"
	"github.com/SanketOodles/wa-automation-backend/internal/metrics"
)

// SessionSweeper is implemented by *service.PairingService.
type SessionSweeper interface {
	SweepDisconnected(ctx context.Context, cutoff time.Time) int
	ExpireUnpaired(ctx context.Context, cutoff time.Time) (int, error)
	LiveAccountIDs() []int64
}

// StaleAccountMarker is implemented by the account repository.
type StaleAccountMarker interface {
	MarkStalePendingInactive(ctx context.Context, cutoff time.Time, liveIDs []int64) (int64, error)
}

type CleanupJob struct {
	sessions SessionSweeper
	accounts StaleAccountMarker
	interval time.Duration
	now      func() time.Time
	done     chan struct{}
}

func NewCleanupJob(sessions SessionSweeper, accounts StaleAccountMarker, interval time.Duration) *CleanupJob {
	return &CleanupJob{
		sessions: sessions,
		accounts: accounts,
		interval: interval,
		now:      time.Now,
		done:     make(chan struct{}),
	}
}

func (j *CleanupJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("cleanup job started")
}

func (j *CleanupJob) Stop() {
	close(j.done)
	log.Info().Msg("cleanup job stopped")
}

func (j *CleanupJob) run() {
	ticker := time.NewTicker(j.interval)
	defer ticker.Stop()

	j.cleanup()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.C:
			j.cleanup()
		}
	}
}

func (j *CleanupJob) cleanup() {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	now := j.now()

	j.runCleanup(ctx, "unpaired sessions", func(ctx context.Context) (int64, error) {
		n, err := j.sessions.ExpireUnpaired(ctx, now.Add(-config.PairingSessionTTL))
		return int64(n), err
	})
	j.runCleanup(ctx, "disconnected sessions", func(ctx context.Context) (int64, error) {
		return int64(j.sessions.SweepDisconnected(ctx, now.Add(-config.DisconnectedSessionTTL))), nil
	})
	if j.accounts != nil {
		j.runCleanup(ctx, "stale pending accounts", func(ctx context.Context) (int64, error) {
			return j.accounts.MarkStalePendingInactive(ctx, now.Add(-config.PendingAccountTTL), j.sessions.LiveAccountIDs())
		})
	}
}

func (j *CleanupJob) runCleanup(ctx context.Context, name string, fn func(context.Context) (int64, error)) {
	count, err := fn(ctx)
	if err != nil {
		metrics.ObserveCleanup(name, "error")
		log.Error().Err(err).Msgf("failed to cleanup %s", name)
		return
	}
	metrics.ObserveCleanup(name, "ok")
	if count > 0 {
		log.Info().Int64("count", count).Msgf("cleaned up %s", name)
	}
}
