package outbox

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/internal/infrastructure/broker/brokertest"
	"github.com/sittichok/user-service/internal/infrastructure/memory"
)

const queue = "q.sittichok.product.service"

func newRelay(t *testing.T) (*Relay, *memory.OutboxRepository, *brokertest.Broker) {
	t.Helper()
	b := brokertest.New()
	top := broker.NewTopology(b, broker.TopologyConfig{Exchange: "ex.sittichok.fanout", Queue: queue, Timeout: time.Second}, nil)
	client := broker.NewClient(top, broker.NewPublisher("test", time.Second))
	repo := memory.NewOutboxRepository()
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return NewRelay(repo, client, logger, 10*time.Millisecond, 10), repo, b
}

func TestFlushDeliversPendingInOrder(t *testing.T) {
	r, repo, b := newRelay(t)
	ctx := context.Background()
	_, _ = repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":1}`), "down")
	_, _ = repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":2}`), "down")

	sent, err := r.Flush(ctx)
	if err != nil || sent != 2 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
	msgs := b.Messages(queue)
	if len(msgs) != 2 || string(msgs[0].Body) != `{"id":1}` || string(msgs[1].Body) != `{"id":2}` {
		t.Fatalf("messages = %+v", msgs)
	}
	if msgs[0].Type != entity.EventUserCreated {
		t.Fatalf("type = %q", msgs[0].Type)
	}
	if pending, _ := repo.Pending(ctx, 10); len(pending) != 0 {
		t.Fatalf("pending = %d", len(pending))
	}
}

func TestFlushStopsOnBrokerFailure(t *testing.T) {
	r, repo, b := newRelay(t)
	ctx := context.Background()
	_, _ = repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":1}`), "down")
	b.SetDialErr(brokertest.ErrDial)

	sent, err := r.Flush(ctx)
	if !errors.Is(err, broker.ErrBrokerUnavailable) || sent != 0 {
		t.Fatalf("sent=%d err=%v", sent, err)
	}
	pending, _ := repo.Pending(ctx, 10)
	if len(pending) != 1 || pending[0].Attempts != 2 {
		t.Fatalf("pending = %+v", pending)
	}

	b.SetDialErr(nil)
	if sent, err := r.Flush(ctx); err != nil || sent != 1 {
		t.Fatalf("retry sent=%d err=%v", sent, err)
	}
}

func TestRunStopsOnCancel(t *testing.T) {
	r, repo, b := newRelay(t)
	ctx, cancel := context.WithCancel(context.Background())
	_, _ = repo.Add(ctx, entity.EventUserCreated, []byte(`{"id":1}`), "down")

	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	deadline := time.After(2 * time.Second)
	for len(b.Messages(queue)) == 0 {
		select {
		case <-deadline:
			t.Fatal("relay did not deliver")
		case <-time.After(5 * time.Millisecond):
		}
	}
	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Run did not return after cancel")
	}
}
