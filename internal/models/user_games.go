package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

type GameStatus string

const (
	StatusWishlist  GameStatus = "WISHLIST"
	StatusBacklog   GameStatus = "BACKLOG"
	StatusPlaying   GameStatus = "CURRENTLY_PLAYING"
	StatusCompleted GameStatus = "COMPLETED"
	StatusAbandoned GameStatus = "ABANDONED"
)

func (s GameStatus) IsValid() bool {
	switch s {
	case StatusWishlist, StatusBacklog, StatusPlaying, StatusCompleted, StatusAbandoned:
		return true
	}
	return false
}

// UserGame ties one user to one catalog Game. A game belongs to at most
// one queue at a time; QueueID and QueuePosition are either both null or
// both set, and positions stay dense and zero-based within a queue.
type UserGame struct {
	ID                   string     `json:"id" gorm:"primaryKey;size:36"`
	UserID               string     `json:"user_id" gorm:"size:36;uniqueIndex:idx_user_games_pair;not null"`
	GameID               string     `json:"game_id" gorm:"size:36;uniqueIndex:idx_user_games_pair;not null"`
	Status               GameStatus `json:"status" gorm:"type:varchar(20);default:'BACKLOG'"`
	ProgressPercent      int        `json:"progress_percent" gorm:"default:0"`
	CustomMainTime       *int       `json:"custom_main_time"`       // minutes, overrides Game.MainTime
	CustomCompletionTime *int       `json:"custom_completion_time"` // minutes, overrides Game.CompletionTime
	StartedAt            *time.Time `json:"started_at"`
	CompletedAt          *time.Time `json:"completed_at"`
	QueueID              *string    `json:"queue_id" gorm:"size:36;index"`
	QueuePosition        *int       `json:"queue_position"`
	Game                 Game       `json:"game" gorm:"foreignKey:GameID"`
	Tags                 []GameTag  `json:"tags" gorm:"foreignKey:UserGameID"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
}

func (ug *UserGame) BeforeCreate(tx *gorm.DB) error {
	if ug.ID == "" {
		ug.ID = uuid.NewString()
	}
	return nil
}
