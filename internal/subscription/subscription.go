package subscription

import "time"

const (
	StatusActive  = "active"
	StatusExpired = "expired"
)

// Subscription is the single authoritative row per user. A new purchase
// replaces the window wholesale; windows never stack.
type Subscription struct {
	UserID               string    `json:"userId" db:"user_id"`
	SubscriptionType     string    `json:"subscriptionType" db:"subscription_type"`
	Status               string    `json:"status" db:"status"`
	StartDate            time.Time `json:"startDate" db:"start_date"`
	EndDate              time.Time `json:"endDate" db:"end_date"`
	DailyCompletionLimit int       `json:"dailyCompletionLimit" db:"daily_completion_limit"`
	MaxRivals            int       `json:"maxRivals" db:"max_rivals"`
	CreatedAt            time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt            time.Time `json:"updatedAt" db:"updated_at"`
}

// Status is the read-model returned to clients. IsPremium is derived, never
// stored.
type Status struct {
	IsPremium        bool       `json:"isPremium"`
	SubscriptionType string     `json:"subscriptionType,omitempty"`
	Status           string     `json:"status,omitempty"`
	EndDate          *time.Time `json:"endDate,omitempty"`
	DaysRemaining    *int       `json:"daysRemaining,omitempty"`
}
