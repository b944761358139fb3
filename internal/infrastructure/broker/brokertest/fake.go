// Package brokertest provides an in-memory AMQP broker for tests.
package brokertest

import (
	"context"
	"errors"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sittichok/user-service/internal/infrastructure/broker"
)

type exchange struct {
	kind    string
	durable bool
}

type binding struct {
	queue, key, exchange string
}

// Broker records declared resources and routed messages. Redeclaring a
// resource with the same parameters is a no-op; different parameters fail
// with PRECONDITION_FAILED and close the channel, as RabbitMQ does.
type Broker struct {
	mu        sync.Mutex
	exchanges map[string]exchange
	queues    map[string]bool // name -> durable
	bindings  map[binding]struct{}
	messages  map[string][]amqp.Publishing
	published []amqp.Publishing

	DeclareCalls int
	Opened       int

	// DialErr makes Channel fail.
	DialErr error
	// DeclareErr makes ExchangeDeclare fail.
	DeclareErr error
	// PublishErr makes PublishWithContext fail.
	PublishErr error
	// Block, when non-nil, is received from before each declaration.
	Block chan struct{}

	current *Channel
}

func New() *Broker {
	return &Broker{
		exchanges: make(map[string]exchange),
		queues:    make(map[string]bool),
		bindings:  make(map[binding]struct{}),
		messages:  make(map[string][]amqp.Publishing),
	}
}

// Channel implements broker.ChannelProvider, reusing the open channel.
func (b *Broker) Channel(ctx context.Context) (broker.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if b.DialErr != nil {
		return nil, b.DialErr
	}
	if b.current != nil && !b.current.closed {
		return b.current, nil
	}
	b.Opened++
	b.current = &Channel{broker: b}
	return b.current, nil
}

// SetDialErr changes DialErr under the broker lock.
func (b *Broker) SetDialErr(err error) {
	b.mu.Lock()
	b.DialErr = err
	b.mu.Unlock()
}

// SetPublishErr changes PublishErr under the broker lock.
func (b *Broker) SetPublishErr(err error) {
	b.mu.Lock()
	b.PublishErr = err
	b.mu.Unlock()
}

// CloseChannel simulates the broker closing the current channel.
func (b *Broker) CloseChannel() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.current != nil {
		b.current.closed = true
	}
}

func (b *Broker) ExchangeCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.exchanges)
}

func (b *Broker) QueueCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.queues)
}

func (b *Broker) BindingCount() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.bindings)
}

// ExchangeKind reports the kind and durability of a declared exchange.
func (b *Broker) ExchangeKind(name string) (kind string, durable bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	ex, ok := b.exchanges[name]
	return ex.kind, ex.durable, ok
}

func (b *Broker) QueueDurable(name string) (durable bool, ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	durable, ok = b.queues[name]
	return durable, ok
}

func (b *Broker) Bound(queue, key, exchange string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()
	_, ok := b.bindings[binding{queue, key, exchange}]
	return ok
}

// Messages returns what was routed to queue.
func (b *Broker) Messages(queue string) []amqp.Publishing {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]amqp.Publishing, len(b.messages[queue]))
	copy(out, b.messages[queue])
	return out
}

// Published returns every message accepted by the broker, routed or not.
func (b *Broker) Published() []amqp.Publishing {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]amqp.Publishing, len(b.published))
	copy(out, b.published)
	return out
}

// Channel is a fake broker.Channel bound to a Broker.
type Channel struct {
	broker *Broker
	closed bool
}

var errChannelClosed = amqp.ErrClosed

func preconditionFailed(reason string) error {
	return &amqp.Error{Code: amqp.PreconditionFailed, Reason: reason}
}

func (c *Channel) wait() {
	c.broker.mu.Lock()
	block := c.broker.Block
	c.broker.mu.Unlock()
	if block != nil {
		<-block
	}
}

func (c *Channel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	c.wait()
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	b.DeclareCalls++
	if b.DeclareErr != nil {
		c.closed = true
		return b.DeclareErr
	}
	if ex, ok := b.exchanges[name]; ok {
		if ex.kind != kind || ex.durable != durable {
			c.closed = true
			return preconditionFailed("inequivalent arg for exchange " + name)
		}
		return nil
	}
	b.exchanges[name] = exchange{kind: kind, durable: durable}
	return nil
}

func (c *Channel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	c.wait()
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.closed {
		return amqp.Queue{}, errChannelClosed
	}
	if d, ok := b.queues[name]; ok && d != durable {
		c.closed = true
		return amqp.Queue{}, preconditionFailed("inequivalent arg 'durable' for queue " + name)
	}
	b.queues[name] = durable
	return amqp.Queue{Name: name, Messages: len(b.messages[name])}, nil
}

func (c *Channel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	c.wait()
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if c.closed {
		return errChannelClosed
	}
	if _, ok := b.exchanges[exchange]; !ok {
		c.closed = true
		return &amqp.Error{Code: amqp.NotFound, Reason: "no exchange " + exchange}
	}
	if _, ok := b.queues[name]; !ok {
		c.closed = true
		return &amqp.Error{Code: amqp.NotFound, Reason: "no queue " + name}
	}
	b.bindings[binding{name, key, exchange}] = struct{}{}
	return nil
}

func (c *Channel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	b := c.broker
	b.mu.Lock()
	defer b.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return err
	}
	if c.closed {
		return errChannelClosed
	}
	if b.PublishErr != nil {
		return b.PublishErr
	}
	ex, ok := b.exchanges[exchange]
	if !ok {
		c.closed = true
		return &amqp.Error{Code: amqp.NotFound, Reason: "no exchange " + exchange}
	}
	b.published = append(b.published, msg)
	for bd := range b.bindings {
		if bd.exchange != exchange {
			continue
		}
		if ex.kind == amqp.ExchangeFanout || bd.key == key {
			b.messages[bd.queue] = append(b.messages[bd.queue], msg)
		}
	}
	return nil
}

func (c *Channel) IsClosed() bool {
	c.broker.mu.Lock()
	defer c.broker.mu.Unlock()
	return c.closed
}

// ErrDial is a convenience error for simulating an unreachable broker.
var ErrDial = errors.New("dial tcp: connection refused")

var _ broker.Channel = (*Channel)(nil)
var _ broker.ChannelProvider = (*Broker)(nil)
