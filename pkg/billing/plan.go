package billing

import "time"

// Plan describes a purchasable subscription tier. ID is the provider's price
// id, which is also what subscription events carry in their items, so plan
// lookup during webhook processing is a direct map hit.
type Plan struct {
	ID          string // provider price id
	Name        string
	Description string
	MonthlyUSD  float64
	TrialDays   int
}

// TrialEndsAt calculates when the trial period ends.
// Returns startedAt unchanged if no trial is available.
func (p Plan) TrialEndsAt(startedAt time.Time) time.Time {
	if p.TrialDays <= 0 {
		return startedAt
	}
	return startedAt.AddDate(0, 0, p.TrialDays).UTC()
}

var plans = map[string]Plan{
	"pri_01": {
		ID:          "pri_01",
		Name:        "Basic",
		Description: "For individuals getting started",
		MonthlyUSD:  9,
		TrialDays:   14,
	},
	"pri_02": {
		ID:          "pri_02",
		Name:        "Professional",
		Description: "For growing teams",
		MonthlyUSD:  29,
		TrialDays:   14,
	},
	"pri_03": {
		ID:          "pri_03",
		Name:        "Enterprise",
		Description: "For organizations with advanced needs",
		MonthlyUSD:  99,
		TrialDays:   0,
	},
}

// PlanByPriceID looks up the catalog entry for a provider price id.
func PlanByPriceID(priceID string) (Plan, bool) {
	p, ok := plans[priceID]
	return p, ok
}

// Plans returns the full catalog. The returned slice is a copy.
func Plans() []Plan {
	out := make([]Plan, 0, len(plans))
	for _, id := range []string{"pri_01", "pri_02", "pri_03"} {
		out = append(out, plans[id])
	}
	return out
}
