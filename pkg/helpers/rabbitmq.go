package helpers

import (
	"context"
	"errors"
	"sync"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const defaultDialTimeout = 10 * time.Second

// RabbitConn is a lazily dialed AMQP connection that hands out one shared
// channel, reopening the channel or redialing the connection when the broker
// closed them.
type RabbitConn struct {
	url string

	mu   sync.Mutex
	conn *amqp.Connection
	ch   *amqp.Channel
}

func NewRabbitConn(url string) *RabbitConn {
	return &RabbitConn{url: url}
}

// Connection returns the open connection, dialing if needed. The ctx deadline
// bounds the TCP dial and AMQP handshake.
func (r *RabbitConn) Connection(ctx context.Context) (*amqp.Connection, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.connectionLocked(ctx)
}

func (r *RabbitConn) connectionLocked(ctx context.Context) (*amqp.Connection, error) {
	if r.conn != nil && !r.conn.IsClosed() {
		return r.conn, nil
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	timeout := defaultDialTimeout
	if dl, ok := ctx.Deadline(); ok {
		timeout = time.Until(dl)
		if timeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	conn, err := amqp.DialConfig(r.url, amqp.Config{
		Dial:      amqp.DefaultDial(timeout),
		Heartbeat: 10 * time.Second,
		Locale:    "en_US",
	})
	if err != nil {
		return nil, err
	}
	r.conn = conn
	r.ch = nil
	return conn, nil
}

// Channel opens or reuses the shared channel.
func (r *RabbitConn) Channel(ctx context.Context) (*amqp.Channel, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.ch != nil && !r.ch.IsClosed() {
		return r.ch, nil
	}
	conn, err := r.connectionLocked(ctx)
	if err != nil {
		return nil, err
	}
	ch, err := conn.Channel()
	if err != nil {
		if errors.Is(err, amqp.ErrClosed) {
			_ = conn.Close()
			r.conn = nil
		}
		return nil, err
	}
	r.ch = ch
	return ch, nil
}

func (r *RabbitConn) Close() {
	if r == nil {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.ch != nil {
		_ = r.ch.Close()
		r.ch = nil
	}
	if r.conn != nil {
		_ = r.conn.Close()
		r.conn = nil
	}
}
