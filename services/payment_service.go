package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rivalQuestAPI/internal/payment"
	"rivalQuestAPI/internal/paystack"
	"rivalQuestAPI/internal/plan"
)

var (
	ErrInvalidPlan     = errors.New("invalid subscription plan")
	ErrPaymentNotFound = errors.New("payment not found")

	// ErrPaymentConflict means the gateway reported a terminal status that
	// disagrees with the terminal status already recorded locally.
	ErrPaymentConflict = errors.New("payment already finalized with a different status")
)

// PaymentGateway is the slice of Paystack the reconciler needs; tests swap
// in a fake.
type PaymentGateway interface {
	Initialize(ctx context.Context, req *paystack.InitializeRequest) (*paystack.InitializeResult, error)
	Verify(ctx context.Context, reference string) (*paystack.Transaction, error)
}

// PaymentService owns payment rows and drives the subscription ledger from
// gateway outcomes. Both the client verify endpoint and the webhook call
// Reconcile; the two paths behave identically.
type PaymentService struct {
	db           *pgxpool.Pool
	gateway      PaymentGateway
	subscription *SubscriptionService
}

func NewPaymentService(db *pgxpool.Pool, gateway PaymentGateway, subscriptionService *SubscriptionService) *PaymentService {
	return &PaymentService{
		db:           db,
		gateway:      gateway,
		subscription: subscriptionService,
	}
}

// Initialize validates the plan, starts a gateway transaction and records a
// pending payment. If the gateway call fails nothing is persisted; the
// caller sees a retriable unavailable condition.
func (s *PaymentService) Initialize(ctx context.Context, userID string, req *payment.InitializeRequest) (*payment.InitializeResponse, error) {
	planConfig, ok := plan.ByType(req.Plan)
	if !ok {
		return nil, ErrInvalidPlan
	}
	if !strings.Contains(req.Email, "@") {
		return nil, fmt.Errorf("invalid email address")
	}

	reference := newReference(userID, req.Plan)

	result, err := s.gateway.Initialize(ctx, &paystack.InitializeRequest{
		Email:       req.Email,
		Amount:      planConfig.AmountSubunits,
		Currency:    planConfig.Currency,
		Reference:   reference,
		CallbackURL: req.CallbackURL,
		Metadata: map[string]string{
			"user_id": userID,
			"plan":    req.Plan,
		},
	})
	if err != nil {
		return nil, err
	}

	query := `
	INSERT INTO payments (user_id, paystack_reference, amount, currency, plan, status, created_at)
	VALUES ($1, $2, $3, $4, $5, $6, NOW())
	`
	_, err = s.db.Exec(ctx, query, userID, reference, planConfig.AmountSubunits, planConfig.Currency, req.Plan, payment.StatusPending)
	if err != nil {
		return nil, fmt.Errorf("failed to create payment record: %w", err)
	}

	return &payment.InitializeResponse{
		AuthorizationURL: result.AuthorizationURL,
		AccessCode:       result.AccessCode,
		Reference:        result.Reference,
		Message:          "Payment initialized successfully. Redirecting to Paystack...",
	}, nil
}

// newReference builds a caller-generated globally unique reference. The uuid
// suffix guards against two initializations for the same user and plan in
// the same second.
func newReference(userID, planType string) string {
	return fmt.Sprintf("rq_%s_%s_%d_%s", userID, planType, time.Now().Unix(), uuid.NewString()[:8])
}

// Reconcile fetches the canonical status for a reference and applies it to
// the payment row and, on success, to the subscription ledger. It may be
// invoked any number of times for the same reference: once the payment is
// terminal the ledger is never touched again, so a retried webhook or a
// polling client cannot re-extend the window.
func (s *PaymentService) Reconcile(ctx context.Context, reference string, fromWebhook bool) (*payment.ReconciliationResult, error) {
	tx, err := s.gateway.Verify(ctx, reference)
	if err != nil {
		return nil, err
	}

	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin reconcile transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	p := &payment.Payment{}
	query := `
	SELECT id, user_id, paystack_reference, amount, currency, plan, status, paystack_transaction_id, created_at, verified_at, webhook_received_at
	FROM payments
	WHERE paystack_reference = $1
	FOR UPDATE
	`
	err = dbTx.QueryRow(ctx, query, reference).Scan(
		&p.ID,
		&p.UserID,
		&p.PaystackReference,
		&p.Amount,
		&p.Currency,
		&p.Plan,
		&p.Status,
		&p.PaystackTransactionID,
		&p.CreatedAt,
		&p.VerifiedAt,
		&p.WebhookReceivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}

	result := &payment.ReconciliationResult{
		Status:    tx.Status,
		Reference: reference,
	}
	if tx.ID != 0 {
		result.TransactionID = &tx.ID
	}

	if p.IsTerminal() {
		// Terminal states never transition again. A terminal gateway status
		// that disagrees with ours is an inconsistency worth surfacing.
		if tx.Status != payment.StatusPending && tx.Status != p.Status {
			log.Printf("Reconcile %s: local status %s but gateway reports %s", reference, p.Status, tx.Status)
			return nil, ErrPaymentConflict
		}

		if fromWebhook && p.WebhookReceivedAt == nil {
			if _, err := dbTx.Exec(ctx, `UPDATE payments SET webhook_received_at = NOW() WHERE id = $1`, p.ID); err != nil {
				return nil, fmt.Errorf("failed to record webhook receipt: %w", err)
			}
			if err := dbTx.Commit(ctx); err != nil {
				return nil, fmt.Errorf("failed to commit reconcile: %w", err)
			}
		}

		result.Status = p.Status
		result.AlreadyReconciled = true
		return result, nil
	}

	// A still-pending gateway status verifies nothing; the row keeps its
	// NULL verified_at until a terminal status arrives.
	if tx.Status != payment.StatusPending {
		updateQuery := `
		UPDATE payments
		SET status = $1, paystack_transaction_id = $2, verified_at = NOW()
		WHERE id = $3
		`
		if _, err := dbTx.Exec(ctx, updateQuery, tx.Status, tx.ID, p.ID); err != nil {
			return nil, fmt.Errorf("failed to update payment: %w", err)
		}
	}
	if fromWebhook {
		if _, err := dbTx.Exec(ctx, `UPDATE payments SET webhook_received_at = NOW() WHERE id = $1`, p.ID); err != nil {
			return nil, fmt.Errorf("failed to record webhook receipt: %w", err)
		}
	}

	if tx.Status == payment.StatusSuccess {
		planConfig, ok := plan.ByType(p.Plan)
		if !ok {
			return nil, fmt.Errorf("payment %s recorded with unknown plan %q", reference, p.Plan)
		}

		start := time.Now()
		end := start.Add(time.Duration(planConfig.DurationDays) * 24 * time.Hour)
		if err := s.subscription.upsert(ctx, dbTx, p.UserID, planConfig, start, end); err != nil {
			return nil, err
		}

		status, err := s.subscription.status(ctx, dbTx, p.UserID)
		if err != nil {
			return nil, err
		}
		result.SubscriptionStatus = status
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit reconcile: %w", err)
	}

	return result, nil
}

// PaymentByReference loads a payment owned by the given user.
func (s *PaymentService) PaymentByReference(ctx context.Context, userID, reference string) (*payment.Payment, error) {
	p := &payment.Payment{}
	query := `
	SELECT id, user_id, paystack_reference, amount, currency, plan, status, paystack_transaction_id, created_at, verified_at, webhook_received_at
	FROM payments
	WHERE paystack_reference = $1 AND user_id = $2
	`
	err := s.db.QueryRow(ctx, query, reference, userID).Scan(
		&p.ID,
		&p.UserID,
		&p.PaystackReference,
		&p.Amount,
		&p.Currency,
		&p.Plan,
		&p.Status,
		&p.PaystackTransactionID,
		&p.CreatedAt,
		&p.VerifiedAt,
		&p.WebhookReceivedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrPaymentNotFound
		}
		return nil, fmt.Errorf("failed to load payment: %w", err)
	}
	return p, nil
}
