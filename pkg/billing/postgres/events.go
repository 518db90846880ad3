package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"billingd/pkg/billing"
)

// EventStore is the insert-only webhook delivery log. There is deliberately
// no unique constraint on provider_event_id: retries of the same provider
// event produce separate rows.
type EventStore struct {
	pool *pgxpool.Pool
}

func NewEventStore(pool *pgxpool.Pool) *EventStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &EventStore{pool: pool}
}

func (s *EventStore) Record(ctx context.Context, event *billing.Event) error {
	const query = `
		INSERT INTO webhook_events (id, provider_event_id, event_type, payload, processed, received_at)
		VALUES ($1, $2, $3, $4, $5, $6)`

	_, err := s.pool.Exec(ctx, query,
		event.ID, event.ProviderEventID, event.EventType,
		event.Payload, event.Processed, event.ReceivedAt,
	)
	if err != nil {
		return fmt.Errorf("insert webhook event: %w", err)
	}
	return nil
}

func (s *EventStore) MarkProcessed(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE webhook_events SET processed = TRUE WHERE id = $1`

	tag, err := s.pool.Exec(ctx, query, id)
	if err != nil {
		return fmt.Errorf("mark webhook event processed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return billing.ErrEventNotFound
	}
	return nil
}
