package plan

// Plan describes a purchasable subscription. Amounts are in the currency's
// smallest subunit (Paystack charges NGN in kobo).
type Plan struct {
	Type                 string
	AmountSubunits       int64
	Currency             string
	DurationDays         int
	DailyCompletionLimit int // storage form, -1 means unlimited
	MaxRivals            int
}

var plans = map[string]Plan{
	"monthly": {
		Type:                 "monthly",
		AmountSubunits:       299,
		Currency:             "NGN",
		DurationDays:         30,
		DailyCompletionLimit: -1,
		MaxRivals:            5,
	},
	"annual": {
		Type:                 "annual",
		AmountSubunits:       2499,
		Currency:             "NGN",
		DurationDays:         365,
		DailyCompletionLimit: -1,
		MaxRivals:            5,
	},
}

// ByType looks up a plan by its type name.
func ByType(t string) (Plan, bool) {
	p, ok := plans[t]
	return p, ok
}
