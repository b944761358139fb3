package repository

import (
	"context"

	"github.com/sittichok/user-service/internal/domain/entity"
)

// OutboxRepository stores events the broker did not accept so they can be relayed later.
type OutboxRepository interface {
	Add(ctx context.Context, eventType string, payload []byte, lastErr string) (int64, error)
	Pending(ctx context.Context, limit int) ([]entity.OutboxEvent, error)
	MarkSent(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, lastErr string) error
}
