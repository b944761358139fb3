package broker

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sittichok/user-service/internal/domain/entity"
)

// Publisher writes domain events to an exchange as persistent JSON messages.
type Publisher struct {
	timeout time.Duration
	appID   string
}

func NewPublisher(appID string, timeout time.Duration) *Publisher {
	return &Publisher{appID: appID, timeout: timeout}
}

// Publish returns once the broker accepted the message for routing; it does
// not wait for consumers.
func (p *Publisher) Publish(ctx context.Context, ch Channel, exchange string, ev entity.Event) error {
	body, err := ev.Payload()
	if err != nil {
		return fmt.Errorf("%w: encode %s: %v", ErrPublishFailed, ev.EventType(), err)
	}
	if ch == nil || ch.IsClosed() {
		return fmt.Errorf("%w: channel closed", ErrPublishFailed)
	}
	if p.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.timeout)
		defer cancel()
	}

	msg := amqp.Publishing{
		ContentType:     "application/json",
		ContentEncoding: "utf-8",
		Type:            ev.EventType(),
		DeliveryMode:    amqp.Persistent,
		MessageId:       uuid.NewString(),
		AppId:           p.appID,
		Timestamp:       time.Now().UTC(),
		Body:            body,
	}
	if err := ch.PublishWithContext(ctx,
		exchange,
		"",    // routing key, ignored by fanout
		false, // mandatory
		false, // immediate
		msg,
	); err != nil {
		return fmt.Errorf("%w: %s to %s: %v", ErrPublishFailed, ev.EventType(), exchange, err)
	}
	return nil
}
