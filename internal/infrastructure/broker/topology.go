package broker

import (
	"context"
	"fmt"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"
)

// TopologyConfig names the exchange and queue to declare.
type TopologyConfig struct {
	Exchange string
	Queue    string
	Timeout  time.Duration
}

// Topology declares a durable fanout exchange and a durable queue bound to it.
// Declarations run once per channel; a reopened channel is declared again.
// Redeclaring identical resources is a no-op on the broker, so concurrent
// first use from several requests is safe.
type Topology struct {
	provider ChannelProvider
	cfg      TopologyConfig
	logger   *logrus.Logger

	mu       sync.Mutex
	declared Channel
}

func NewTopology(provider ChannelProvider, cfg TopologyConfig, logger *logrus.Logger) *Topology {
	return &Topology{provider: provider, cfg: cfg, logger: logger}
}

func (t *Topology) Exchange() string { return t.cfg.Exchange }
func (t *Topology) Queue() string    { return t.cfg.Queue }

// Ensure returns a channel on which the exchange, queue and binding exist.
func (t *Topology) Ensure(ctx context.Context) (Channel, error) {
	if t.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.cfg.Timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	ch, err := t.provider.Channel(ctx)
	if err != nil {
		return nil, fmt.Errorf("%w: open channel: %v", ErrBrokerUnavailable, err)
	}
	if ch == t.declared && !ch.IsClosed() {
		return ch, nil
	}

	if err := t.declare(ctx, ch); err != nil {
		t.declared = nil
		return nil, err
	}
	t.declared = ch
	if t.logger != nil {
		t.logger.WithFields(logrus.Fields{"exchange": t.cfg.Exchange, "queue": t.cfg.Queue}).Debug("broker topology declared")
	}
	return ch, nil
}

func (t *Topology) declare(ctx context.Context, ch Channel) error {
	return Declare(ctx, ch, t.cfg.Exchange, t.cfg.Queue)
}

// Declare runs the exchange, queue and binding declarations on ch. It is
// exported for consumers that bind their own queue to the same exchange.
func Declare(ctx context.Context, ch Channel, exchange, queue string) error {
	err := runWithContext(ctx, func() error {
		return ch.ExchangeDeclare(
			exchange,
			amqp.ExchangeFanout,
			true,  // durable
			false, // autoDelete
			false, // internal
			false, // noWait
			nil,
		)
	})
	if err != nil {
		return fmt.Errorf("%w: declare exchange %s: %v", ErrBrokerUnavailable, exchange, err)
	}

	err = runWithContext(ctx, func() error {
		_, qErr := ch.QueueDeclare(
			queue,
			true,  // durable
			false, // autoDelete
			false, // exclusive
			false, // noWait
			nil,
		)
		return qErr
	})
	if err != nil {
		return fmt.Errorf("%w: declare queue %s: %v", ErrBrokerUnavailable, queue, err)
	}

	// fanout ignores the routing key
	err = runWithContext(ctx, func() error {
		return ch.QueueBind(queue, "", exchange, false, nil)
	})
	if err != nil {
		return fmt.Errorf("%w: bind %s to %s: %v", ErrBrokerUnavailable, queue, exchange, err)
	}
	return nil
}
