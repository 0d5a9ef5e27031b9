package services

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"rivalQuestAPI/internal/notification"
	"rivalQuestAPI/internal/persona"
	"rivalQuestAPI/internal/rival"
)

var (
	ErrRivalLimitReached      = errors.New("rival limit reached")
	ErrInvalidPersonalityType = errors.New("invalid personality type")
)

type personalityConfig struct {
	traits        []string
	fallbackNames []string
}

var personalityTypes = map[string]personalityConfig{
	"competitive": {
		traits:        []string{"aggressive", "challenging", "victory-focused"},
		fallbackNames: []string{"Blaze", "Storm", "Fury", "Apex", "Titan"},
	},
	"encouraging": {
		traits:        []string{"supportive", "motivational", "team-player"},
		fallbackNames: []string{"Hope", "Dawn", "Sage", "Light", "Grace"},
	},
	"mystical": {
		traits:        []string{"wise", "mysterious", "ancient"},
		fallbackNames: []string{"Rune", "Oracle", "Mystic", "Shadow", "Void"},
	},
	"warrior": {
		traits:        []string{"honorable", "disciplined", "battle-tested"},
		fallbackNames: []string{"Blade", "Steel", "Honor", "Valor", "Knight"},
	},
	"trickster": {
		traits:        []string{"clever", "unpredictable", "witty"},
		fallbackNames: []string{"Jinx", "Trick", "Riddle", "Chaos", "Jest"},
	},
}

// PersonaGenerator is the slice of the completion API the rival service
// needs; tests swap in a fake.
type PersonaGenerator interface {
	Generate(ctx context.Context, questContext, personalityType string, traits []string) (*persona.Persona, error)
}

type RivalService struct {
	db           *pgxpool.Pool
	subscription *SubscriptionService
	quests       *QuestService
	generator    PersonaGenerator
	notifService *NotificationService
}

func NewRivalService(db *pgxpool.Pool, subscriptionService *SubscriptionService, questService *QuestService, generator PersonaGenerator, notifService *NotificationService) *RivalService {
	return &RivalService{
		db:           db,
		subscription: subscriptionService,
		quests:       questService,
		generator:    generator,
		notifService: notifService,
	}
}

const rivalColumns = `id, user_id, name, archetype, taunt, personality_type, level, experience, rival_order, is_active, created_at`

func scanRival(row pgx.Row) (*rival.Rival, error) {
	r := &rival.Rival{}
	err := row.Scan(
		&r.ID,
		&r.UserID,
		&r.Name,
		&r.Archetype,
		&r.Taunt,
		&r.PersonalityType,
		&r.Level,
		&r.Experience,
		&r.RivalOrder,
		&r.IsActive,
		&r.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return r, nil
}

// Active returns the user's primary rival, if any.
func (s *RivalService) Active(ctx context.Context, userID string) (*rival.GetResponse, error) {
	query := fmt.Sprintf(`
	SELECT %s
	FROM rivals
	WHERE user_id = $1 AND is_active = true
	ORDER BY rival_order ASC
	LIMIT 1
	`, rivalColumns)

	r, err := scanRival(s.db.QueryRow(ctx, query, userID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &rival.GetResponse{HasRival: false}, nil
		}
		return nil, fmt.Errorf("failed to load active rival: %w", err)
	}

	return &rival.GetResponse{Rival: r, HasRival: true}, nil
}

// List returns the full roster with slot usage.
func (s *RivalService) List(ctx context.Context, userID string) (*rival.ListResponse, error) {
	ents, err := s.subscription.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	query := fmt.Sprintf(`
	SELECT %s
	FROM rivals
	WHERE user_id = $1
	ORDER BY rival_order ASC
	`, rivalColumns)

	rows, err := s.db.Query(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to list rivals: %w", err)
	}
	defer rows.Close()

	var rivals []*rival.Rival
	var activeRival *rival.Rival
	for rows.Next() {
		r, err := scanRival(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rival: %w", err)
		}
		rivals = append(rivals, r)
		if r.IsActive && activeRival == nil {
			activeRival = r
		}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list rivals: %w", err)
	}

	return &rival.ListResponse{
		Rivals:      rivals,
		TotalCount:  len(rivals),
		ActiveRival: activeRival,
		SlotsUsed:   len(rivals),
		MaxSlots:    ents.MaxRivals,
		IsPremium:   ents.IsPremium,
	}, nil
}

// Generate creates a new rival in the next free slot. The persona comes from
// the generator; on generator failure a canned persona for the personality
// keeps the flow working.
func (s *RivalService) Generate(ctx context.Context, userID, personalityType string) (*rival.GenerateResponse, error) {
	personality, ok := personalityTypes[personalityType]
	if !ok {
		return nil, ErrInvalidPersonalityType
	}

	ents, err := s.subscription.Resolve(ctx, userID)
	if err != nil {
		return nil, err
	}

	var existingCount int
	if err := s.db.QueryRow(ctx, `SELECT COUNT(*) FROM rivals WHERE user_id = $1`, userID).Scan(&existingCount); err != nil {
		return nil, fmt.Errorf("failed to count rivals: %w", err)
	}
	if existingCount >= ents.MaxRivals {
		return nil, ErrRivalLimitReached
	}

	questContext := s.questContext(ctx, userID)

	p, err := s.generator.Generate(ctx, questContext, personalityType, personality.traits)
	if err != nil {
		log.Printf("Persona generation failed for %s, using fallback: %v", userID, err)
		p = &persona.Persona{
			Name:      personality.fallbackNames[rand.Intn(len(personality.fallbackNames))],
			Archetype: "Champion",
			Taunt:     fmt.Sprintf("A %s rival challenges you to greatness!", personalityType),
		}
	}

	// Re-count under row locks so concurrent generations serialize and the
	// slot limit holds. The UNIQUE (user_id, rival_order) index backstops the
	// zero-row case, where there is nothing to lock.
	dbTx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to begin rival transaction: %w", err)
	}
	defer dbTx.Rollback(ctx)

	lockedCount := `SELECT COUNT(*) FROM (SELECT id FROM rivals WHERE user_id = $1 FOR UPDATE) held`
	if err := dbTx.QueryRow(ctx, lockedCount, userID).Scan(&existingCount); err != nil {
		return nil, fmt.Errorf("failed to count rivals: %w", err)
	}
	if existingCount >= ents.MaxRivals {
		return nil, ErrRivalLimitReached
	}

	isActive := existingCount == 0
	query := fmt.Sprintf(`
	INSERT INTO rivals (user_id, name, archetype, taunt, personality_type, level, experience, rival_order, is_active, created_at)
	VALUES ($1, $2, $3, $4, $5, 1, 0, $6, $7, NOW())
	RETURNING %s
	`, rivalColumns)

	r, err := scanRival(dbTx.QueryRow(ctx, query, userID, p.Name, p.Archetype, p.Taunt, personalityType, existingCount+1, isActive))
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation {
			return nil, ErrRivalLimitReached
		}
		return nil, fmt.Errorf("failed to create rival: %w", err)
	}

	if err := dbTx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("failed to commit rival: %w", err)
	}

	if s.notifService != nil {
		go s.notifService.Notify(context.Background(), userID, notification.NotificationRivalTaunt,
			fmt.Sprintf("%s the %s has arrived", r.Name, r.Archetype), r.Taunt)
	}

	statusMsg := "ready to challenge"
	if isActive {
		statusMsg = "active"
	}

	return &rival.GenerateResponse{
		Rival:     r,
		Message:   fmt.Sprintf("Meet your new %s rival: %s the %s! They're %s.", personalityType, r.Name, r.Archetype, statusMsg),
		IsNew:     true,
		SlotsUsed: existingCount + 1,
		MaxSlots:  ents.MaxRivals,
	}, nil
}

func (s *RivalService) questContext(ctx context.Context, userID string) string {
	titles, err := s.quests.RecentQuestTitles(ctx, userID, 5)
	if err != nil {
		log.Printf("Failed to load quest context for %s: %v", userID, err)
		return "This user hasn't created any quests yet."
	}
	if len(titles) == 0 {
		return "This user hasn't created any quests yet."
	}
	return "User's recent quests: " + strings.Join(titles, ", ")
}
