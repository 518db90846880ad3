package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billingd/pkg/logger"
)

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	empty := logger.Error(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestUserID(t *testing.T) {
	attr := logger.UserID("u1")
	require.Equal(t, "user_id", attr.Key)
	assert.Equal(t, "u1", attr.Value.Any())

	empty := logger.UserID(nil)
	assert.True(t, empty.Equal(slog.Attr{}))
}

func TestBillingAttrs(t *testing.T) {
	assert.Equal(t, "event_id", logger.EventID("evt_1").Key)
	assert.Equal(t, "evt_1", logger.EventID("evt_1").Value.String())

	assert.Equal(t, "event_type", logger.EventType("transaction.completed").Key)
	assert.Equal(t, "subscription_id", logger.SubscriptionID("sub_1").Key)
	assert.Equal(t, "transaction_id", logger.TransactionID("txn_1").Key)
	assert.Equal(t, "customer_id", logger.CustomerID("ctm_1").Key)
	assert.Equal(t, "status", logger.Status("active").Key)
	assert.Equal(t, "component", logger.Component("dispatcher").Key)
}
