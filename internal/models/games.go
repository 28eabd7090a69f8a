package models

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Game is a catalog entry shared across every user that adds it.
// Created once per external title; only the duration estimates may
// be backfilled later.
type Game struct {
	ID             string     `json:"id" gorm:"primaryKey;size:36"`
	Title          string     `json:"title" gorm:"size:255;not null"`
	ApiID          string     `json:"api_id" gorm:"size:64;uniqueIndex:idx_games_api"`
	ApiSource      string     `json:"api_source" gorm:"size:20;uniqueIndex:idx_games_api"`
	CoverURL       string     `json:"cover_url" gorm:"size:500"`
	ReleaseDate    *time.Time `json:"release_date"`
	Publisher      string     `json:"publisher" gorm:"size:255"`
	Developer      string     `json:"developer" gorm:"size:255"`
	Description    string     `json:"description" gorm:"type:text"`
	MainTime       *int       `json:"main_time"`       // minutes
	CompletionTime *int       `json:"completion_time"` // minutes
	CreatedAt      time.Time  `json:"created_at"`
	UpdatedAt      time.Time  `json:"updated_at"`
}

func (g *Game) BeforeCreate(tx *gorm.DB) error {
	if g.ID == "" {
		g.ID = uuid.NewString()
	}
	return nil
}

// CatalogGame is the shape returned by the external catalog collaborator.
type CatalogGame struct {
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	CoverURL    string     `json:"cover_url"`
	ReleaseDate *time.Time `json:"release_date"`
	Publisher   string     `json:"publisher"`
	Developer   string     `json:"developer"`
	Description string     `json:"description"`
}

// CompletionTimes is the shape returned by the completion-time collaborator.
// Nil means the source had no estimate.
type CompletionTimes struct {
	MainTime       *int `json:"main_time"`
	CompletionTime *int `json:"completion_time"`
}
