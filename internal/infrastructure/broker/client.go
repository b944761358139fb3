package broker

import (
	"context"

	"github.com/sittichok/user-service/internal/domain/entity"
)

// Client pairs a Topology with a Publisher targeting its exchange.
type Client struct {
	Topology  *Topology
	Publisher *Publisher
}

func NewClient(t *Topology, p *Publisher) *Client {
	return &Client{Topology: t, Publisher: p}
}

func (c *Client) EnsureTopology(ctx context.Context) (Channel, error) {
	return c.Topology.Ensure(ctx)
}

func (c *Client) Publish(ctx context.Context, ch Channel, ev entity.Event) error {
	return c.Publisher.Publish(ctx, ch, c.Topology.Exchange(), ev)
}

// EnsureAndPublish runs both steps; used by the outbox relay.
func (c *Client) EnsureAndPublish(ctx context.Context, ev entity.Event) error {
	ch, err := c.EnsureTopology(ctx)
	if err != nil {
		return err
	}
	return c.Publish(ctx, ch, ev)
}
