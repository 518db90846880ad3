package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ProfileStore persists the derived entitlement flags. The row is created on
// first projection; user identity itself lives outside this service.
type ProfileStore struct {
	pool *pgxpool.Pool
}

func NewProfileStore(pool *pgxpool.Pool) *ProfileStore {
	if pool == nil {
		panic("postgres: pool is required")
	}
	return &ProfileStore{pool: pool}
}

func (s *ProfileStore) UpdateSubscriptionFlags(ctx context.Context, userID uuid.UUID, active, onTrial bool) error {
	const query = `
		INSERT INTO profiles (user_id, subscription_active, is_on_free_trial, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (user_id) DO UPDATE SET
			subscription_active = EXCLUDED.subscription_active,
			is_on_free_trial = EXCLUDED.is_on_free_trial,
			updated_at = EXCLUDED.updated_at`

	_, err := s.pool.Exec(ctx, query, userID, active, onTrial, time.Now().UTC())
	if err != nil {
		return fmt.Errorf("update profile flags for %s: %w", userID, err)
	}
	return nil
}
