package billing_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"billingd/pkg/billing"
)

func TestPlanByPriceID(t *testing.T) {
	t.Parallel()

	plan, ok := billing.PlanByPriceID("pri_02")
	require.True(t, ok)
	assert.Equal(t, "Professional", plan.Name)
	assert.Equal(t, 14, plan.TrialDays)

	_, ok = billing.PlanByPriceID("pri_unknown")
	assert.False(t, ok)
}

func TestPlans(t *testing.T) {
	t.Parallel()

	plans := billing.Plans()
	require.Len(t, plans, 3)
	assert.Equal(t, "pri_01", plans[0].ID)
	assert.Equal(t, "pri_03", plans[2].ID)
}

func TestPlanTrialEndsAt(t *testing.T) {
	t.Parallel()

	start := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

	basic, _ := billing.PlanByPriceID("pri_01")
	assert.Equal(t, start.AddDate(0, 0, 14), basic.TrialEndsAt(start))

	enterprise, _ := billing.PlanByPriceID("pri_03")
	assert.Equal(t, start, enterprise.TrialEndsAt(start))
}
