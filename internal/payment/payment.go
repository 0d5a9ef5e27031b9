package payment

import (
	"time"

	"rivalQuestAPI/internal/subscription"
)

const (
	StatusPending = "pending"
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

type Payment struct {
	ID                    int       `json:"id" db:"id"`
	UserID                string    `json:"userId" db:"user_id"`
	PaystackReference     string    `json:"paystackReference" db:"paystack_reference"`
	Amount                int64     `json:"amount" db:"amount"`
	Currency              string    `json:"currency" db:"currency"`
	Plan                  string    `json:"plan" db:"plan"`
	Status                string    `json:"status" db:"status"`
	PaystackTransactionID *int64    `json:"paystackTransactionId" db:"paystack_transaction_id"`
	CreatedAt             time.Time `json:"createdAt" db:"created_at"`
	VerifiedAt            *time.Time `json:"verifiedAt" db:"verified_at"`
	WebhookReceivedAt     *time.Time `json:"webhookReceivedAt" db:"webhook_received_at"`
}

// IsTerminal reports whether no further status transitions are allowed.
func (p *Payment) IsTerminal() bool {
	return p.Status == StatusSuccess || p.Status == StatusFailed
}

type InitializeRequest struct {
	Email       string `json:"email"`
	Plan        string `json:"plan"`
	CallbackURL string `json:"callbackUrl,omitempty"`
}

type InitializeResponse struct {
	AuthorizationURL string `json:"authorizationUrl"`
	AccessCode       string `json:"accessCode"`
	Reference        string `json:"reference"`
	Message          string `json:"message"`
}

// ReconciliationResult is what both the verify endpoint and the webhook get
// back from a reconcile run.
type ReconciliationResult struct {
	Status             string               `json:"status"`
	Reference          string               `json:"reference"`
	TransactionID      *int64               `json:"transactionId,omitempty"`
	AlreadyReconciled  bool                 `json:"alreadyReconciled"`
	SubscriptionStatus *subscription.Status `json:"subscriptionStatus,omitempty"`
}
