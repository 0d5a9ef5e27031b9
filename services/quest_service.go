package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rivalQuestAPI/internal/entitlement"
	"rivalQuestAPI/internal/notification"
	"rivalQuestAPI/internal/quest"
	"rivalQuestAPI/internal/streak"
)

var (
	ErrQuestNotFound         = errors.New("quest not found")
	ErrAlreadyCompletedToday = errors.New("quest already completed today")
	ErrQuotaExceeded         = errors.New("daily completion limit reached")
	ErrEmptyTitle            = errors.New("quest title cannot be empty")
)

const pgUniqueViolation = "23505"

type QuestService struct {
	db           *pgxpool.Pool
	subscription *SubscriptionService
	notifService *NotificationService
}

func NewQuestService(db *pgxpool.Pool, subscriptionService *SubscriptionService, notifService *NotificationService) *QuestService {
	return &QuestService{
		db:           db,
		subscription: subscriptionService,
		notifService: notifService,
	}
}

// Create adds a quest. Quest creation itself is not quota'd; only daily
// completions are.
func (s *QuestService) Create(ctx context.Context, userID, title string) (*quest.Quest, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, ErrEmptyTitle
	}

	q := &quest.Quest{}
	query := `
	INSERT INTO quests (user_id, title, created_at)
	VALUES ($1, $2, NOW())
	RETURNING id, user_id, title, created_at
	`
	err := s.db.QueryRow(ctx, query, userID, title).Scan(&q.ID, &q.UserID, &q.Title, &q.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("failed to create quest: %w", err)
	}

	return q, nil
}

// List returns the user's quests with completion state and streaks, plus the
// day's quota usage.
func (s *QuestService) List(ctx context.Context, userID string) (*quest.ListResponse, error) {
	today := todayDate()

	ents, err := s.subscription.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	used, err := s.dailyCompletionsUsed(ctx, userID, today)
	if err != nil {
		return nil, err
	}

	query := `
	SELECT q.id, q.user_id, q.title, q.created_at,
	       EXISTS(SELECT 1 FROM quest_checks qc WHERE qc.quest_id = q.id AND qc.date = $2) AS completed_today
	FROM quests q
	WHERE q.user_id = $1
	ORDER BY q.created_at DESC
	`
	rows, err := s.db.Query(ctx, query, userID, today)
	if err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}
	defer rows.Close()

	var quests []*quest.Quest
	for rows.Next() {
		q := &quest.Quest{}
		if err := rows.Scan(&q.ID, &q.UserID, &q.Title, &q.CreatedAt, &q.CompletedToday); err != nil {
			return nil, fmt.Errorf("failed to scan quest: %w", err)
		}
		quests = append(quests, q)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list quests: %w", err)
	}

	for _, q := range quests {
		current, err := s.Streak(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		q.CurrentStreak = current
	}

	return &quest.ListResponse{
		Quests:                quests,
		TotalCount:            len(quests),
		DailyCompletionsUsed:  used,
		DailyCompletionsLimit: ents.DailyLimit.Stored(),
		IsPremium:             ents.IsPremium,
	}, nil
}

// CompleteToday marks the quest done for today. Ownership check, the
// duplicate-completion guard, the quota check-and-increment and the
// completion insert all commit or roll back as one unit; a denied call
// leaves no writes behind.
func (s *QuestService) CompleteToday(ctx context.Context, userID string, questID int) (*quest.CompleteResponse, error) {
	today := todayDate()

	ents, err := s.subscription.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin completion transaction: %w", err)
	}
	defer tx.Rollback(ctx)

	q := &quest.Quest{}
	err = tx.QueryRow(ctx, `SELECT id, user_id, title, created_at FROM quests WHERE id = $1 AND user_id = $2`, questID, userID).
		Scan(&q.ID, &q.UserID, &q.Title, &q.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			// Foreign quests look exactly like missing ones.
			return nil, ErrQuestNotFound
		}
		return nil, fmt.Errorf("failed to load quest: %w", err)
	}

	completion := &quest.Completion{}
	err = tx.QueryRow(ctx, `
	INSERT INTO quest_checks (quest_id, date, created_at)
	VALUES ($1, $2, NOW())
	RETURNING id, quest_id, date, created_at
	`, questID, today).Scan(&completion.ID, &completion.QuestID, &completion.Date, &completion.CreatedAt)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrAlreadyCompletedToday
		}
		return nil, fmt.Errorf("failed to record completion: %w", err)
	}

	newCount, err := s.tryConsume(ctx, tx, userID, today, ents.DailyLimit)
	if err != nil {
		return nil, err
	}

	dates, err := s.completionDates(ctx, tx, questID)
	if err != nil {
		return nil, err
	}
	newStreak := streak.Current(dates)

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit completion: %w", err)
	}

	q.CompletedToday = true
	q.CurrentStreak = newStreak

	s.notifyStreakMilestone(userID, q.Title, newStreak)

	limitLabel := "unlimited"
	if n, ok := ents.DailyLimit.Count(); ok {
		limitLabel = fmt.Sprintf("%d", n)
	}
	streakMsg := "Great start!"
	if newStreak > 1 {
		streakMsg = fmt.Sprintf("Streak: %d days!", newStreak)
	}

	return &quest.CompleteResponse{
		Completion:            completion,
		Quest:                 q,
		Message:               fmt.Sprintf("Quest completed! %s Daily progress: %d/%s", streakMsg, newCount, limitLabel),
		DailyCompletionsUsed:  newCount,
		DailyCompletionsLimit: ents.DailyLimit.Stored(),
	}, nil
}

// tryConsume is the quota enforcer: a single conditional insert-or-increment
// on the (user, date) counter row. The read of the current count, the
// comparison and the increment are one statement, so two concurrent calls
// racing for the last slot cannot both win. A denied call returns
// ErrQuotaExceeded and writes nothing (the surrounding transaction rolls
// back).
func (s *QuestService) tryConsume(ctx context.Context, q querier, userID string, date time.Time, limit entitlement.DailyLimit) (int, error) {
	if n, capped := limit.Count(); capped {
		if n <= 0 {
			return 0, ErrQuotaExceeded
		}

		var newCount int
		err := q.QueryRow(ctx, `
		INSERT INTO daily_completions (user_id, date, completion_count, last_updated)
		VALUES ($1, $2, 1, NOW())
		ON CONFLICT (user_id, date)
		DO UPDATE SET
			completion_count = daily_completions.completion_count + 1,
			last_updated = NOW()
		WHERE daily_completions.completion_count < $3
		RETURNING completion_count
		`, userID, date, n).Scan(&newCount)
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return 0, ErrQuotaExceeded
			}
			return 0, fmt.Errorf("failed to consume quota: %w", err)
		}
		return newCount, nil
	}

	var newCount int
	err := q.QueryRow(ctx, `
	INSERT INTO daily_completions (user_id, date, completion_count, last_updated)
	VALUES ($1, $2, 1, NOW())
	ON CONFLICT (user_id, date)
	DO UPDATE SET
		completion_count = daily_completions.completion_count + 1,
		last_updated = NOW()
	RETURNING completion_count
	`, userID, date).Scan(&newCount)
	if err != nil {
		return 0, fmt.Errorf("failed to consume quota: %w", err)
	}
	return newCount, nil
}

// Delete removes a quest and, via the FK cascade, its completion history.
// Foreign quest ids report NotFound.
func (s *QuestService) Delete(ctx context.Context, userID string, questID int) error {
	tag, err := s.db.Exec(ctx, `DELETE FROM quests WHERE id = $1 AND user_id = $2`, questID, userID)
	if err != nil {
		return fmt.Errorf("failed to delete quest: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrQuestNotFound
	}
	return nil
}

// Streak computes the quest's current streak from its distinct completion
// dates.
func (s *QuestService) Streak(ctx context.Context, questID int) (int, error) {
	dates, err := s.completionDates(ctx, s.db, questID)
	if err != nil {
		return 0, err
	}
	return streak.Current(dates), nil
}

func (s *QuestService) completionDates(ctx context.Context, q querier, questID int) ([]time.Time, error) {
	rows, err := q.Query(ctx, `SELECT date FROM quest_checks WHERE quest_id = $1 ORDER BY date DESC`, questID)
	if err != nil {
		return nil, fmt.Errorf("failed to load completion dates: %w", err)
	}
	defer rows.Close()

	var dates []time.Time
	for rows.Next() {
		var d time.Time
		if err := rows.Scan(&d); err != nil {
			return nil, fmt.Errorf("failed to scan completion date: %w", err)
		}
		dates = append(dates, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load completion dates: %w", err)
	}
	return dates, nil
}

// QuotaStatus is the read-only snapshot for the quota endpoint.
func (s *QuestService) QuotaStatus(ctx context.Context, userID string) (*quest.QuotaStatus, error) {
	ents, err := s.subscription.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	used, err := s.dailyCompletionsUsed(ctx, userID, todayDate())
	if err != nil {
		return nil, err
	}

	canComplete := true
	if n, capped := ents.DailyLimit.Count(); capped {
		canComplete = used < n
	}

	return &quest.QuotaStatus{
		DailyCompletionsUsed:  used,
		DailyCompletionsLimit: ents.DailyLimit.Stored(),
		IsPremium:             ents.IsPremium,
		CanCompleteToday:      canComplete,
	}, nil
}

func (s *QuestService) dailyCompletionsUsed(ctx context.Context, userID string, date time.Time) (int, error) {
	var count int
	err := s.db.QueryRow(ctx, `SELECT completion_count FROM daily_completions WHERE user_id = $1 AND date = $2`, userID, date).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, nil
		}
		return 0, fmt.Errorf("failed to get daily completions: %w", err)
	}
	return count, nil
}

// RecentQuestTitles feeds the rival persona prompt.
func (s *QuestService) RecentQuestTitles(ctx context.Context, userID string, limit int) ([]string, error) {
	rows, err := s.db.Query(ctx, `SELECT title FROM quests WHERE user_id = $1 ORDER BY created_at DESC LIMIT $2`, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to load quest titles: %w", err)
	}
	defer rows.Close()

	var titles []string
	for rows.Next() {
		var t string
		if err := rows.Scan(&t); err != nil {
			return nil, fmt.Errorf("failed to scan quest title: %w", err)
		}
		titles = append(titles, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to load quest titles: %w", err)
	}
	return titles, nil
}

// streakMilestones get a push so the user hears their rival gloat.
var streakMilestones = map[int]bool{7: true, 30: true, 100: true}

func (s *QuestService) notifyStreakMilestone(userID, questTitle string, newStreak int) {
	if s.notifService == nil || !streakMilestones[newStreak] {
		return
	}

	title := fmt.Sprintf("%d-day streak!", newStreak)
	message := fmt.Sprintf("You've completed %q for %d days straight. Your rival is getting nervous.", questTitle, newStreak)
	go s.notifService.Notify(context.Background(), userID, notification.NotificationStreakMilestone, title, message)
}

// todayDate returns today truncated to a calendar date in UTC, matching the
// date column type.
func todayDate() time.Time {
	now := time.Now().UTC()
	return time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
}
