package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameQueue is a named, per-user ordered list of UserGames. Names are
// unique per user (exact, case-sensitive). The first queue a user
// creates becomes the default and cannot be deleted. FilterTags, when
// set, select matching games at creation time and surface new matches
// later; they never move games on their own afterwards.
type GameQueue struct {
	ID          string     `json:"id" gorm:"primaryKey;size:36"`
	UserID      string     `json:"user_id" gorm:"size:36;uniqueIndex:idx_game_queues_name;not null"`
	Name        string     `json:"name" gorm:"size:255;uniqueIndex:idx_game_queues_name;not null"`
	Description string     `json:"description" gorm:"size:500"`
	IsDefault   bool       `json:"is_default" gorm:"default:false"`
	FilterTags  []string   `json:"filter_tags" gorm:"serializer:json"`
	Games       []UserGame `json:"games" gorm:"foreignKey:QueueID"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

func (q *GameQueue) BeforeCreate(tx *gorm.DB) error {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	return nil
}

// QueueStats is derived from a queue's members on read; it is never
// stored. Times are minutes; games without time data contribute zero.
type QueueStats struct {
	TotalMainTime       int     `json:"total_main_time"`
	TotalCompletionTime int     `json:"total_completion_time"`
	CompletedTime       float64 `json:"completed_time"`
	RemainingTime       float64 `json:"remaining_time"`
	TotalGames          int     `json:"total_games"`
}
