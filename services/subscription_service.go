package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"rivalQuestAPI/internal/entitlement"
	"rivalQuestAPI/internal/plan"
	"rivalQuestAPI/internal/subscription"
)

// SubscriptionService is the ledger: at most one authoritative row per user.
type SubscriptionService struct {
	db *pgxpool.Pool
}

func NewSubscriptionService(db *pgxpool.Pool) *SubscriptionService {
	return &SubscriptionService{db: db}
}

// Upsert replaces the user's subscription window wholesale. Status is forced
// to active and the limits come from the plan table; last write wins,
// windows never stack.
func (s *SubscriptionService) Upsert(ctx context.Context, userID string, p plan.Plan, start, end time.Time) error {
	return s.upsert(ctx, s.db, userID, p, start, end)
}

// upsert runs against either the pool or an open transaction so the payment
// reconciler can include the ledger write in its all-or-nothing unit.
func (s *SubscriptionService) upsert(ctx context.Context, q querier, userID string, p plan.Plan, start, end time.Time) error {
	query := `
	INSERT INTO user_subscriptions (user_id, subscription_type, status, start_date, end_date, daily_completion_limit, max_rivals, created_at, updated_at)
	VALUES ($1, $2, 'active', $3, $4, $5, $6, NOW(), NOW())
	ON CONFLICT (user_id)
	DO UPDATE SET
		subscription_type = EXCLUDED.subscription_type,
		status = 'active',
		start_date = EXCLUDED.start_date,
		end_date = EXCLUDED.end_date,
		daily_completion_limit = EXCLUDED.daily_completion_limit,
		max_rivals = EXCLUDED.max_rivals,
		updated_at = NOW()
	`

	_, err := q.Exec(ctx, query, userID, p.Type, start, end, p.DailyCompletionLimit, p.MaxRivals)
	if err != nil {
		return fmt.Errorf("failed to upsert subscription: %w", err)
	}
	return nil
}

// Status returns the derived premium view of the user's ledger row. No row
// means free tier.
func (s *SubscriptionService) Status(ctx context.Context, userID string) (*subscription.Status, error) {
	return s.status(ctx, s.db, userID)
}

func (s *SubscriptionService) status(ctx context.Context, q querier, userID string) (*subscription.Status, error) {
	query := `
	SELECT subscription_type, status, end_date
	FROM user_subscriptions
	WHERE user_id = $1
	`

	var subType, subStatus string
	var endDate time.Time
	err := q.QueryRow(ctx, query, userID).Scan(&subType, &subStatus, &endDate)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &subscription.Status{IsPremium: false}, nil
		}
		return nil, fmt.Errorf("failed to get subscription: %w", err)
	}

	now := time.Now()
	if subStatus != subscription.StatusActive || !endDate.After(now) {
		return &subscription.Status{IsPremium: false}, nil
	}

	daysRemaining := int(endDate.Sub(now).Hours() / 24)
	if daysRemaining < 0 {
		daysRemaining = 0
	}

	return &subscription.Status{
		IsPremium:        true,
		SubscriptionType: subType,
		Status:           subStatus,
		EndDate:          &endDate,
		DaysRemaining:    &daysRemaining,
	}, nil
}

// Resolve derives the user's effective limits from the ledger. Pure function
// of the row's current contents; free-tier defaults when no row exists.
func (s *SubscriptionService) Resolve(ctx context.Context, userID string) (entitlement.Entitlements, error) {
	return s.resolve(ctx, s.db, userID)
}

func (s *SubscriptionService) resolve(ctx context.Context, q querier, userID string) (entitlement.Entitlements, error) {
	query := `
	SELECT status, end_date, daily_completion_limit, max_rivals
	FROM user_subscriptions
	WHERE user_id = $1
	`

	var subStatus string
	var endDate time.Time
	var dailyLimit, maxRivals int
	err := q.QueryRow(ctx, query, userID).Scan(&subStatus, &endDate, &dailyLimit, &maxRivals)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return entitlement.Free(), nil
		}
		return entitlement.Entitlements{}, fmt.Errorf("failed to resolve entitlements: %w", err)
	}

	isPremium := subStatus == subscription.StatusActive && endDate.After(time.Now())
	if !isPremium {
		free := entitlement.Free()
		return free, nil
	}

	return entitlement.Entitlements{
		DailyLimit: entitlement.FromStored(dailyLimit),
		MaxRivals:  maxRivals,
		IsPremium:  true,
	}, nil
}
