package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/domain/repository"
)

type OutboxRepository struct {
	mu     sync.Mutex
	nextID int64
	rows   map[int64]*entity.OutboxEvent
}

func NewOutboxRepository() *OutboxRepository {
	return &OutboxRepository{rows: make(map[int64]*entity.OutboxEvent)}
}

func (r *OutboxRepository) Add(_ context.Context, eventType string, payload []byte, lastErr string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.nextID++
	body := make([]byte, len(payload))
	copy(body, payload)
	r.rows[r.nextID] = &entity.OutboxEvent{
		ID:        r.nextID,
		EventType: eventType,
		Payload:   body,
		Attempts:  1,
		LastError: lastErr,
		CreatedAt: time.Now().UTC(),
	}
	return r.nextID, nil
}

func (r *OutboxRepository) Pending(_ context.Context, limit int) ([]entity.OutboxEvent, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]entity.OutboxEvent, 0, len(r.rows))
	for _, e := range r.rows {
		if e.SentAt == nil {
			out = append(out, *e)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (r *OutboxRepository) MarkSent(_ context.Context, id int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	now := time.Now().UTC()
	e.SentAt = &now
	return nil
}

func (r *OutboxRepository) MarkFailed(_ context.Context, id int64, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.rows[id]
	if !ok {
		return repository.ErrNotFound
	}
	e.Attempts++
	e.LastError = lastErr
	return nil
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)
