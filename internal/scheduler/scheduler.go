// Package scheduler drives the stale-reservation sweep on a fixed cadence,
// the in-process equivalent of the celery beat schedule the original
// implementation used (60s tick, one run at a time, retried with backoff).
package scheduler

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"creditmeter/internal/infrastructure/database/postgres"
	"creditmeter/internal/infrastructure/events"
	"creditmeter/internal/domain/models"
	"creditmeter/internal/pkg/logging"
	"creditmeter/internal/pkg/metrics"
)

// Store is the subset of postgres.Store the sweeper needs.
type Store interface {
	SweepStale(ctx context.Context, olderThan time.Duration, chunkSize int) (int, error)
}

var _ Store = (*postgres.Store)(nil)

// Sweeper runs repeated SweepStale batches until a pass comes back empty,
// matching the Python sweep_stale_reservations loop: chunked, skip_locked,
// break on an empty batch.
type Sweeper struct {
	store         Store
	reservationTTL time.Duration
	chunkSize     int
	wallClockCap  time.Duration
	broker        *events.Broker
}

func NewSweeper(store Store, reservationTTL time.Duration, chunkSize int, wallClockCap time.Duration) *Sweeper {
	return &Sweeper{
		store:          store,
		reservationTTL: reservationTTL,
		chunkSize:      chunkSize,
		wallClockCap:   wallClockCap,
		broker:         events.GetBroker(),
	}
}

// RunOnce drives batches to completion or until wallClockCap elapses,
// wrapped in an exponential backoff retry (max 5 attempts) so a single
// transient storage error doesn't abort the whole pass — grounded in the
// original task's autoretry_for/retry_backoff/retry_jitter celery config.
func (s *Sweeper) RunOnce(ctx context.Context) error {
	start := time.Now()
	deadline := start.Add(s.wallClockCap)
	total := 0

	// WithMaxRetries counts retries after the first try: 4 retries = 5 attempts.
	bo := backoff.WithMaxRetries(backoff.NewExponentialBackOff(), 4)

	for time.Now().Before(deadline) {
		var reversed int
		err := backoff.Retry(func() error {
			n, err := s.store.SweepStale(ctx, s.reservationTTL, s.chunkSize)
			if err != nil {
				return err
			}
			reversed = n
			return nil
		}, backoff.WithContext(bo, ctx))

		if err != nil {
			metrics.SweepRunsTotal.WithLabelValues("error").Inc()
			s.broker.Publish(models.SweepRunEvent{StartedAt: start, Reversed: total, Err: err.Error()})
			return err
		}

		total += reversed
		metrics.SweepReversedTotal.Add(float64(reversed))
		if reversed == 0 {
			break
		}
	}

	metrics.SweepRunsTotal.WithLabelValues("ok").Inc()
	metrics.SweepRunDuration.Observe(time.Since(start).Seconds())
	metrics.SweepLastRunTimestamp.Set(float64(time.Now().Unix()))

	s.broker.Publish(models.SweepRunEvent{StartedAt: start, Reversed: total})
	logging.Info("sweep run complete", map[string]interface{}{
		"reversed":    total,
		"duration_ms": time.Since(start).Milliseconds(),
	})
	return nil
}

// Ticker runs RunOnce every interval until ctx is cancelled.
type Ticker struct {
	sweeper  *Sweeper
	interval time.Duration
}

func NewTicker(sweeper *Sweeper, interval time.Duration) *Ticker {
	return &Ticker{sweeper: sweeper, interval: interval}
}

func (t *Ticker) Run(ctx context.Context) {
	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := t.sweeper.RunOnce(ctx); err != nil {
				logging.Error("sweep tick failed", err, nil)
			}
		}
	}
}
