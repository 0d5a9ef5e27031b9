package entitlement

// Defaults for users without a subscription row.
const (
	FreeDailyLimit = 5
	FreeMaxRivals  = 1
)

// storedUnlimited is the column value meaning "no daily cap". It exists only
// at the storage boundary; in-process code works with DailyLimit.
const storedUnlimited = -1

// DailyLimit is either a concrete per-day cap or unlimited. Callers must not
// compare the stored sentinel numerically; use IsUnlimited/Count.
type DailyLimit struct {
	unlimited bool
	n         int
}

func Limited(n int) DailyLimit {
	return DailyLimit{n: n}
}

func Unlimited() DailyLimit {
	return DailyLimit{unlimited: true}
}

func (l DailyLimit) IsUnlimited() bool {
	return l.unlimited
}

// Count returns the cap and true, or 0 and false when unlimited.
func (l DailyLimit) Count() (int, bool) {
	if l.unlimited {
		return 0, false
	}
	return l.n, true
}

// FromStored converts the daily_completion_limit column value.
func FromStored(v int) DailyLimit {
	if v == storedUnlimited {
		return Unlimited()
	}
	return Limited(v)
}

// Stored returns the column/API representation of the limit.
func (l DailyLimit) Stored() int {
	if l.unlimited {
		return storedUnlimited
	}
	return l.n
}

// Entitlements are the effective limits a user currently holds.
type Entitlements struct {
	DailyLimit DailyLimit
	MaxRivals  int
	IsPremium  bool
}

// Free returns the hard-coded free-tier entitlements.
func Free() Entitlements {
	return Entitlements{
		DailyLimit: Limited(FreeDailyLimit),
		MaxRivals:  FreeMaxRivals,
	}
}
