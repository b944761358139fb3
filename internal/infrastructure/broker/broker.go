// Package broker declares the fanout topology that carries user events and
// publishes events onto it.
package broker

import (
	"context"
	"errors"

	amqp "github.com/rabbitmq/amqp091-go"
)

var (
	// ErrBrokerUnavailable covers dial failures and rejected declarations.
	ErrBrokerUnavailable = errors.New("broker unavailable")
	// ErrPublishFailed covers serialization errors and rejected publishes.
	ErrPublishFailed = errors.New("publish failed")
)

// Channel is the subset of *amqp.Channel the service drives.
type Channel interface {
	ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error
	QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error)
	QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	IsClosed() bool
}

// ChannelProvider opens or reuses a channel on the broker connection.
type ChannelProvider interface {
	Channel(ctx context.Context) (Channel, error)
}

// ProviderFunc adapts a function to ChannelProvider.
type ProviderFunc func(ctx context.Context) (Channel, error)

func (f ProviderFunc) Channel(ctx context.Context) (Channel, error) { return f(ctx) }

// runWithContext bounds a blocking broker call by ctx. amqp091 declare and
// bind calls take no context; on timeout the call keeps running until the
// broker answers or the channel closes, and its result is dropped.
func runWithContext(ctx context.Context, fn func() error) error {
	done := make(chan error, 1)
	go func() { done <- fn() }()
	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		return ctx.Err()
	}
}
