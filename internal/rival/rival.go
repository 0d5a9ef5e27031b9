package rival

import "time"

type Rival struct {
	ID              int       `json:"id" db:"id"`
	UserID          string    `json:"userId" db:"user_id"`
	Name            string    `json:"name" db:"name"`
	Archetype       string    `json:"archetype" db:"archetype"`
	Taunt           string    `json:"taunt" db:"taunt"`
	PersonalityType string    `json:"personalityType" db:"personality_type"`
	Level           int       `json:"level" db:"level"`
	Experience      int       `json:"experience" db:"experience"`
	RivalOrder      int       `json:"rivalOrder" db:"rival_order"`
	IsActive        bool      `json:"isActive" db:"is_active"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
}

type GetResponse struct {
	Rival    *Rival `json:"rival"`
	HasRival bool   `json:"hasRival"`
}

type ListResponse struct {
	Rivals      []*Rival `json:"rivals"`
	TotalCount  int      `json:"totalCount"`
	ActiveRival *Rival   `json:"activeRival"`
	SlotsUsed   int      `json:"slotsUsed"`
	MaxSlots    int      `json:"maxSlots"`
	IsPremium   bool     `json:"isPremium"`
}

type GenerateResponse struct {
	Rival     *Rival `json:"rival"`
	Message   string `json:"message"`
	IsNew     bool   `json:"isNew"`
	SlotsUsed int    `json:"slotsUsed"`
	MaxSlots  int    `json:"maxSlots"`
}
