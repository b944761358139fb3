// Package outbox republishes events that could not reach the broker at
// registration time.
package outbox

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/internal/domain/entity"
	repo "github.com/sittichok/user-service/internal/domain/repository"
	"github.com/sittichok/user-service/pkg/helpers"
)

// Sender ensures topology and publishes a single event.
type Sender interface {
	EnsureAndPublish(ctx context.Context, ev entity.Event) error
}

type Relay struct {
	Repo      repo.OutboxRepository
	Sender    Sender
	Logger    *logrus.Logger
	Interval  time.Duration
	BatchSize int
}

func NewRelay(r repo.OutboxRepository, s Sender, logger *logrus.Logger, interval time.Duration, batch int) *Relay {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	if batch <= 0 {
		batch = 50
	}
	if logger == nil {
		logger = logrus.New()
	}
	return &Relay{Repo: r, Sender: s, Logger: logger, Interval: interval, BatchSize: batch}
}

// Run polls until ctx is cancelled.
func (r *Relay) Run(ctx context.Context) {
	ticker := time.NewTicker(r.Interval)
	defer ticker.Stop()
	r.Logger.WithField("interval", r.Interval.String()).Info("outbox relay started")
	for {
		select {
		case <-ctx.Done():
			r.Logger.Info("outbox relay stopped")
			return
		case <-ticker.C:
			if _, err := r.Flush(ctx); err != nil {
				helpers.LogWarn(r.Logger, "outbox flush failed", err, logrus.Fields{"batch": r.BatchSize})
			}
		}
	}
}

// Flush sends one batch in id order and returns how many were delivered. It
// stops at the first broker failure so ordering between retries is preserved.
func (r *Relay) Flush(ctx context.Context) (int, error) {
	pending, err := r.Repo.Pending(ctx, r.BatchSize)
	if err != nil {
		return 0, err
	}
	sent := 0
	for _, row := range pending {
		if err := r.Sender.EnsureAndPublish(ctx, row.Event()); err != nil {
			if mErr := r.Repo.MarkFailed(ctx, row.ID, err.Error()); mErr != nil {
				r.Logger.WithError(mErr).WithField("outbox_id", row.ID).Error("outbox mark failed")
			}
			return sent, err
		}
		if err := r.Repo.MarkSent(ctx, row.ID); err != nil {
			// delivered but not marked: the next flush sends it again, consumers
			// already see at-least-once delivery
			r.Logger.WithError(err).WithField("outbox_id", row.ID).Error("outbox mark sent failed")
			return sent, err
		}
		sent++
		r.Logger.WithFields(logrus.Fields{"outbox_id": row.ID, "type": row.EventType, "attempts": row.Attempts}).Info("outbox event relayed")
	}
	return sent, nil
}
