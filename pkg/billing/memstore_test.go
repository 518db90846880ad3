package billing_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"billingd/pkg/billing"
)

func mustTime(t *testing.T, s string) time.Time {
	t.Helper()
	ts, err := time.Parse(time.RFC3339, s)
	require.NoError(t, err)
	return ts.UTC()
}

// In-memory store fakes. They honor the same contracts as the postgres
// implementations: upserts keyed on provider ids, sentinel errors on misses.

type memEventStore struct {
	mu     sync.Mutex
	events []*billing.Event
}

func (s *memEventStore) Record(_ context.Context, event *billing.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *event
	s.events = append(s.events, &cp)
	return nil
}

func (s *memEventStore) MarkProcessed(_ context.Context, id uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.ID == id {
			e.Processed = true
			return nil
		}
	}
	return billing.ErrEventNotFound
}

func (s *memEventStore) all() []*billing.Event {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]*billing.Event, len(s.events))
	copy(out, s.events)
	return out
}

type memSubscriptionStore struct {
	mu   sync.Mutex
	subs map[string]*billing.Subscription // keyed on provider subscription id
}

func newMemSubscriptionStore() *memSubscriptionStore {
	return &memSubscriptionStore{subs: make(map[string]*billing.Subscription)}
}

func (s *memSubscriptionStore) GetByProviderID(_ context.Context, providerSubscriptionID string) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[providerSubscriptionID]
	if !ok {
		return nil, billing.ErrSubscriptionNotFound
	}
	cp := *sub
	return &cp, nil
}

func (s *memSubscriptionStore) GetByProviderCustomerID(_ context.Context, providerCustomerID string) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.ProviderCustomerID == providerCustomerID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, billing.ErrSubscriptionNotFound
}

func (s *memSubscriptionStore) GetLatestByUserID(_ context.Context, userID uuid.UUID) (*billing.Subscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *billing.Subscription
	for _, sub := range s.subs {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, billing.ErrSubscriptionNotFound
	}
	cp := *latest
	return &cp, nil
}

func (s *memSubscriptionStore) Upsert(_ context.Context, sub *billing.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs[sub.ProviderSubscriptionID] = &cp
	return nil
}

func (s *memSubscriptionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.subs)
}

type memTransactionStore struct {
	mu   sync.Mutex
	txns map[string]*billing.Transaction // keyed on provider transaction id
}

func newMemTransactionStore() *memTransactionStore {
	return &memTransactionStore{txns: make(map[string]*billing.Transaction)}
}

func (s *memTransactionStore) GetByProviderID(_ context.Context, providerTransactionID string) (*billing.Transaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[providerTransactionID]
	if !ok {
		return nil, billing.ErrTransactionNotFound
	}
	cp := *txn
	return &cp, nil
}

func (s *memTransactionStore) Upsert(_ context.Context, txn *billing.Transaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *txn
	s.txns[txn.ProviderTransactionID] = &cp
	return nil
}

func (s *memTransactionStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.txns)
}

type memProfileStore struct {
	mu      sync.Mutex
	flags   map[uuid.UUID]billing.Profile
	failErr error // when set, UpdateSubscriptionFlags returns it
}

func newMemProfileStore() *memProfileStore {
	return &memProfileStore{flags: make(map[uuid.UUID]billing.Profile)}
}

func (s *memProfileStore) UpdateSubscriptionFlags(_ context.Context, userID uuid.UUID, active, onTrial bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failErr != nil {
		return s.failErr
	}
	s.flags[userID] = billing.Profile{UserID: userID, SubscriptionActive: active, IsOnFreeTrial: onTrial}
	return nil
}

func (s *memProfileStore) get(userID uuid.UUID) (billing.Profile, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.flags[userID]
	return p, ok
}
