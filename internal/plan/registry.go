package plan

import "errors"

// ErrPlanNotFound is returned when a plan id is not in the registry.
var ErrPlanNotFound = errors.New("plan_not_found")

// Unlimited marks a cap that is not enforced.
const Unlimited = -1

// VoiceAllowlist is either the "all" sentinel or an explicit set of voice
// names a plan may use.
type VoiceAllowlist struct {
	All   bool
	Names []string
}

// Limits bundles a plan's monthly enforcement caps.
type Limits struct {
	MonthlyCharacters int // Unlimited disables the cap
	APICalls          int // Unlimited disables the cap
	Voices            VoiceAllowlist
}

// Plan is a pricing tier. Plans are static configuration loaded at startup
// and treated as immutable value types everywhere.
type Plan struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Price    int      `json:"price"`
	Currency string   `json:"currency"`
	Interval string   `json:"interval"`
	Features []string `json:"features"`
	Limits   Limits   `json:"limits"`
	Popular  bool     `json:"popular"`
}

// FreePlanID is the tier assigned to users without an active subscription
// and the implicit view for anonymous callers.
const FreePlanID = "free"

var registry = map[string]Plan{
	"free": {
		ID:       "free",
		Name:     "Free Plan",
		Price:    0,
		Currency: "INR",
		Interval: "month",
		Features: []string{
			"1,000 characters per month",
			"Basic voices (Puck, Kore)",
			"Standard quality audio",
			"Email support",
		},
		Limits: Limits{
			MonthlyCharacters: 1000,
			APICalls:          50,
			Voices:            VoiceAllowlist{Names: []string{"Puck", "Kore"}},
		},
	},
	"starter": {
		ID:       "starter",
		Name:     "Starter Plan",
		Price:    199,
		Currency: "INR",
		Interval: "month",
		Features: []string{
			"25,000 characters per month",
			"All voices (Puck, Charon, Kore)",
			"High quality audio",
			"Priority email support",
			"Usage analytics",
		},
		Limits: Limits{
			MonthlyCharacters: 25000,
			APICalls:          1000,
			Voices:            VoiceAllowlist{Names: []string{"Puck", "Charon", "Kore"}},
		},
		Popular: true,
	},
	"pro": {
		ID:       "pro",
		Name:     "Pro Plan",
		Price:    499,
		Currency: "INR",
		Interval: "month",
		Features: []string{
			"100,000 characters per month",
			"All premium voices (Puck, Charon, Kore, Fenrir, Aoede)",
			"Ultra-high quality audio",
			"Style control features",
			"Priority support",
			"Advanced analytics",
			"API access",
		},
		Limits: Limits{
			MonthlyCharacters: 100000,
			APICalls:          5000,
			Voices:            VoiceAllowlist{Names: []string{"Puck", "Charon", "Kore", "Fenrir", "Aoede"}},
		},
	},
	"enterprise": {
		ID:       "enterprise",
		Name:     "Enterprise Plan",
		Price:    1999,
		Currency: "INR",
		Interval: "month",
		Features: []string{
			"500,000 characters",
			"All voices + custom voices",
			"Ultra-high quality audio",
			"Advanced style control",
			"24/7 priority support",
			"Custom integrations",
			"White-label solution",
			"Dedicated account manager",
		},
		Limits: Limits{
			MonthlyCharacters: 500000,
			APICalls:          5000,
			Voices:            VoiceAllowlist{All: true},
		},
	},
}

// Lookup returns the plan for the given id.
func Lookup(planID string) (Plan, error) {
	p, ok := registry[planID]
	if !ok {
		return Plan{}, ErrPlanNotFound
	}
	return p, nil
}

// Free returns the free-tier plan.
func Free() Plan {
	return registry[FreePlanID]
}

// All returns every plan, for the pricing endpoint. Order is stable.
func All() []Plan {
	ids := []string{"free", "starter", "pro", "enterprise"}
	plans := make([]Plan, 0, len(ids))
	for _, id := range ids {
		plans = append(plans, registry[id])
	}
	return plans
}
