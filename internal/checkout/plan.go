package checkout

import "fmt"

// PlanID identifies a subscription tier. The ids are the legacy wire
// values the backend checkout routes expect.
type PlanID string

const (
	PlanMatch   PlanID = "match"   // single match
	PlanWeekly  PlanID = "weekly"  // 7 days
	PlanMonthly PlanID = "monthly" // 30 days
	PlanYearly  PlanID = "yearly"  // 365 days
)

// DefaultMultiplier is the region multiplier assumed while the real
// one is still being fetched. Matches the backend's default tier.
const DefaultMultiplier = 2.5

// Plan is a subscription tier with its display metadata and base USD
// price. The displayed price is BasePrice scaled by the region
// multiplier; the backend remains the source of truth for the amount
// actually charged.
type Plan struct {
	ID        PlanID
	Name      string
	Duration  string
	Badge     string
	BasePrice float64
}

// Plans lists the selectable tiers in display order.
var Plans = []Plan{
	{ID: PlanMonthly, Name: "Pro", Duration: "30 maalmood", Badge: "Popular", BasePrice: 3.20},
	{ID: PlanYearly, Name: "Elite", Duration: "365 maalmood", Badge: "Best value", BasePrice: 11.99},
	{ID: PlanWeekly, Name: "Plus", Duration: "7 maalmood", BasePrice: 1.00},
	{ID: PlanMatch, Name: "Starter", Duration: "1 ciyaar", BasePrice: 0.20},
}

// PlanByID returns the plan metadata for id.
func PlanByID(id PlanID) (Plan, bool) {
	for _, p := range Plans {
		if p.ID == id {
			return p, true
		}
	}
	return Plan{}, false
}

// ParsePlanID validates a plan id string.
func ParsePlanID(s string) (PlanID, bool) {
	id := PlanID(s)
	_, ok := PlanByID(id)
	return id, ok
}

// Price returns the plan price scaled by multiplier, formatted to two
// decimal places.
func (p Plan) Price(multiplier float64) string {
	if multiplier <= 0 {
		multiplier = DefaultMultiplier
	}
	return fmt.Sprintf("%.2f", p.BasePrice*multiplier)
}
