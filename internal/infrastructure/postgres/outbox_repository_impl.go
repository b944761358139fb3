package postgres

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/sittichok/user-service/internal/domain/entity"
	"github.com/sittichok/user-service/internal/domain/repository"
)

type OutboxRepository struct {
	pool *pgxpool.Pool
}

func NewOutboxRepository(pool *pgxpool.Pool) *OutboxRepository {
	return &OutboxRepository{pool: pool}
}

func (r *OutboxRepository) Add(ctx context.Context, eventType string, payload []byte, lastErr string) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx, `
		INSERT INTO event_outbox (event_type, payload, attempts, last_error)
		VALUES ($1, $2, 1, $3)
		RETURNING id
	`, eventType, payload, lastErr).Scan(&id)
	return id, err
}

// Pending returns unsent events oldest first.
func (r *OutboxRepository) Pending(ctx context.Context, limit int) ([]entity.OutboxEvent, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, event_type, payload, attempts, last_error, created_at, sent_at
		FROM event_outbox
		WHERE sent_at IS NULL
		ORDER BY id
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make([]entity.OutboxEvent, 0, limit)
	for rows.Next() {
		var e entity.OutboxEvent
		if err := rows.Scan(&e.ID, &e.EventType, &e.Payload, &e.Attempts, &e.LastError, &e.CreatedAt, &e.SentAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *OutboxRepository) MarkSent(ctx context.Context, id int64) error {
	res, err := r.pool.Exec(ctx, `UPDATE event_outbox SET sent_at = now() WHERE id = $1`, id)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *OutboxRepository) MarkFailed(ctx context.Context, id int64, lastErr string) error {
	res, err := r.pool.Exec(ctx, `
		UPDATE event_outbox
		SET attempts = attempts + 1, last_error = $2
		WHERE id = $1
	`, id, lastErr)
	if err != nil {
		return err
	}
	if res.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

var _ repository.OutboxRepository = (*OutboxRepository)(nil)
