package subscription

// PlanID names a purchasable plan
type PlanID string

const (
	PlanFree           PlanID = "free"
	PlanPremiumMonthly PlanID = "premium_monthly"
	PlanPremiumYearly  PlanID = "premium_yearly"
)

// Plan describes a plan offered on the pricing page
type Plan struct {
	ID          PlanID
	Name        string
	PriceID     string
	PriceCents  int64
	Interval    string
	Features    []string
	Purchasable bool
}

// Catalog resolves plans by ID and by provider price
type Catalog struct {
	plans []Plan
}

// NewCatalog builds the catalog; the free plan is always present
func NewCatalog(monthlyPriceID, yearlyPriceID string, monthlyCents, yearlyCents int64) *Catalog {
	return &Catalog{plans: []Plan{
		{
			ID:       PlanFree,
			Name:     "Free",
			Interval: "month",
			Features: []string{"Recipe library", "Daily food log"},
		},
		{
			ID:          PlanPremiumMonthly,
			Name:        "Premium",
			PriceID:     monthlyPriceID,
			PriceCents:  monthlyCents,
			Interval:    "month",
			Features:    []string{"Weekly meal plans", "Meal swaps", "Nutrition trends", "Coaching insights"},
			Purchasable: monthlyPriceID != "",
		},
		{
			ID:          PlanPremiumYearly,
			Name:        "Premium (yearly)",
			PriceID:     yearlyPriceID,
			PriceCents:  yearlyCents,
			Interval:    "year",
			Features:    []string{"Weekly meal plans", "Meal swaps", "Nutrition trends", "Coaching insights"},
			Purchasable: yearlyPriceID != "",
		},
	}}
}

// Plans returns all plans in display order
func (c *Catalog) Plans() []Plan {
	out := make([]Plan, len(c.plans))
	copy(out, c.plans)
	return out
}

// Get returns a plan by ID
func (c *Catalog) Get(id PlanID) (Plan, error) {
	for _, p := range c.plans {
		if p.ID == id {
			return p, nil
		}
	}
	return Plan{}, ErrUnknownPlan
}

// ByPriceID maps a provider price back to a plan
func (c *Catalog) ByPriceID(priceID string) (Plan, bool) {
	if priceID == "" {
		return Plan{}, false
	}
	for _, p := range c.plans {
		if p.PriceID == priceID {
			return p, true
		}
	}
	return Plan{}, false
}
