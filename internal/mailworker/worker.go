// Package mailworker turns UserCreated deliveries from the fanout exchange
// into welcome emails.
package mailworker

import (
	"context"
	"encoding/json"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/config"
	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/pkg/mailer"
)

// Outcome is how a delivery was settled.
type Outcome string

const (
	Acked    Outcome = "ack"
	Skipped  Outcome = "skip"    // acked, not a UserCreated event
	Dropped  Outcome = "drop"    // nacked without requeue
	Requeued Outcome = "requeue" // nacked with requeue
)

type Worker struct {
	Cfg         *config.Config
	Sender      mailer.Sender
	Logger      *logrus.Logger
	SendTimeout time.Duration
}

func New(cfg *config.Config, sender mailer.Sender, logger *logrus.Logger) *Worker {
	if logger == nil {
		logger = logrus.New()
	}
	return &Worker{Cfg: cfg, Sender: sender, Logger: logger, SendTimeout: 15 * time.Second}
}

// Handle renders and sends the welcome mail for one delivery and settles it.
func (w *Worker) Handle(ctx context.Context, d amqp.Delivery) Outcome {
	log := w.Logger.WithFields(logrus.Fields{"message_id": d.MessageId, "type": d.Type})

	if d.Type != entity.EventUserCreated {
		_ = d.Ack(false)
		return Skipped
	}

	var u entity.User
	if err := json.Unmarshal(d.Body, &u); err != nil {
		log.WithError(err).Warn("bad message")
		_ = d.Nack(false, false)
		return Dropped
	}
	log = log.WithField("user_id", u.ID)

	job, err := mailer.NewWelcomeJob(w.Cfg, u)
	if err != nil {
		log.WithError(err).Error("render welcome failed")
		_ = d.Nack(false, false)
		return Dropped
	}

	c, cancel := context.WithTimeout(ctx, w.SendTimeout)
	defer cancel()
	if err := w.Sender.Send(c, job); err != nil {
		log.WithError(err).Warn("send failed")
		_ = d.Nack(false, true)
		return Requeued
	}
	_ = d.Ack(false)
	log.Info("welcome email sent")
	return Acked
}

// Run consumes deliveries until ctx is done or the channel closes.
func (w *Worker) Run(ctx context.Context, deliveries <-chan amqp.Delivery) {
	for {
		select {
		case <-ctx.Done():
			return
		case d, ok := <-deliveries:
			if !ok {
				w.Logger.Warn("delivery channel closed")
				return
			}
			w.Handle(ctx, d)
		}
	}
}
