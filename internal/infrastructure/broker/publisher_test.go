package broker_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/infrastructure/broker"
	"github.com/sittichok/user-service/internal/infrastructure/broker/brokertest"
)

type badEvent struct{}

func (badEvent) EventType() string         { return "Bad" }
func (badEvent) Payload() ([]byte, error) { return nil, errors.New("cannot encode") }

func newClient(b *brokertest.Broker) *broker.Client {
	return broker.NewClient(newTopology(b, time.Second), broker.NewPublisher("user-service", time.Second))
}

func TestPublishUserCreated(t *testing.T) {
	b := brokertest.New()
	c := newClient(b)

	u := entity.User{ID: 1, Fullname: "Alice", Email: "alice@x.com", Password: "$argon2id$v=19$abc", Role: entity.RoleMember}
	if err := c.EnsureAndPublish(context.Background(), entity.NewUserCreated(u)); err != nil {
		t.Fatalf("publish: %v", err)
	}

	msgs := b.Messages(testQueue)
	if len(msgs) != 1 {
		t.Fatalf("queue has %d messages", len(msgs))
	}
	m := msgs[0]
	if m.ContentType != "application/json" || m.ContentEncoding != "utf-8" {
		t.Errorf("content headers = %q %q", m.ContentType, m.ContentEncoding)
	}
	if m.Type != "UserCreated" {
		t.Errorf("type = %q", m.Type)
	}
	if m.DeliveryMode != amqp.Persistent {
		t.Errorf("delivery mode = %d", m.DeliveryMode)
	}
	if m.MessageId == "" || m.AppId != "user-service" {
		t.Errorf("message id %q app id %q", m.MessageId, m.AppId)
	}

	var got entity.User
	if err := json.Unmarshal(m.Body, &got); err != nil {
		t.Fatal(err)
	}
	if got.ID != 1 || got.Fullname != "Alice" || got.Email != "alice@x.com" || got.Password != u.Password {
		t.Fatalf("body = %+v", got)
	}
}

func TestPublishFanoutReachesEveryBoundQueue(t *testing.T) {
	b := brokertest.New()
	c := newClient(b)
	ch, err := c.EnsureTopology(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if err := broker.Declare(context.Background(), ch, testExchange, "q.sittichok.mail.service"); err != nil {
		t.Fatal(err)
	}
	if err := c.Publish(context.Background(), ch, entity.NewUserCreated(entity.User{ID: 2})); err != nil {
		t.Fatal(err)
	}
	if len(b.Messages(testQueue)) != 1 || len(b.Messages("q.sittichok.mail.service")) != 1 {
		t.Fatal("fanout must deliver to both queues")
	}
}

func TestPublishFailures(t *testing.T) {
	ctx := context.Background()

	t.Run("broker rejects", func(t *testing.T) {
		b := brokertest.New()
		c := newClient(b)
		ch, _ := c.EnsureTopology(ctx)
		b.SetPublishErr(errors.New("channel/connection is not open"))
		err := c.Publish(ctx, ch, entity.NewUserCreated(entity.User{ID: 1}))
		if !errors.Is(err, broker.ErrPublishFailed) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("channel closed", func(t *testing.T) {
		b := brokertest.New()
		c := newClient(b)
		ch, _ := c.EnsureTopology(ctx)
		b.CloseChannel()
		err := c.Publish(ctx, ch, entity.NewUserCreated(entity.User{ID: 1}))
		if !errors.Is(err, broker.ErrPublishFailed) {
			t.Fatalf("err = %v", err)
		}
	})

	t.Run("payload encoding", func(t *testing.T) {
		b := brokertest.New()
		c := newClient(b)
		ch, _ := c.EnsureTopology(ctx)
		err := c.Publish(ctx, ch, badEvent{})
		if !errors.Is(err, broker.ErrPublishFailed) {
			t.Fatalf("err = %v", err)
		}
		if len(b.Published()) != 0 {
			t.Fatal("nothing should reach the broker")
		}
	})
}
