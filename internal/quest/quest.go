package quest

import "time"

type Quest struct {
	ID             int       `json:"id" db:"id"`
	UserID         string    `json:"userId" db:"user_id"`
	Title          string    `json:"title" db:"title"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	CompletedToday bool      `json:"completedToday"`
	CurrentStreak  int       `json:"currentStreak"`
}

type Completion struct {
	ID        int       `json:"id" db:"id"`
	QuestID   int       `json:"questId" db:"quest_id"`
	Date      time.Time `json:"date" db:"date"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

type CreateRequest struct {
	Title string `json:"title"`
}

type CompleteRequest struct {
	QuestID int `json:"questId"`
}

type CreateResponse struct {
	Quest   *Quest `json:"quest"`
	Message string `json:"message"`
}

type ListResponse struct {
	Quests                []*Quest `json:"quests"`
	TotalCount            int      `json:"totalCount"`
	DailyCompletionsUsed  int      `json:"dailyCompletionsUsed"`
	DailyCompletionsLimit int      `json:"dailyCompletionsLimit"`
	IsPremium             bool     `json:"isPremium"`
}

type CompleteResponse struct {
	Completion            *Completion `json:"completion"`
	Quest                 *Quest      `json:"quest"`
	Message               string      `json:"message"`
	DailyCompletionsUsed  int         `json:"dailyCompletionsUsed"`
	DailyCompletionsLimit int         `json:"dailyCompletionsLimit"`
}

type QuotaStatus struct {
	DailyCompletionsUsed  int  `json:"dailyCompletionsUsed"`
	DailyCompletionsLimit int  `json:"dailyCompletionsLimit"`
	IsPremium             bool `json:"isPremium"`
	CanCompleteToday      bool `json:"canCompleteToday"`
}
