package models

import (
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GameTag is a free-text label on one UserGame. Tags are stored
// normalized (trimmed, lower-cased) and are unique per user game.
type GameTag struct {
	ID         string    `json:"id" gorm:"primaryKey;size:36"`
	UserGameID string    `json:"user_game_id" gorm:"size:36;uniqueIndex:idx_game_tags_pair;not null"`
	Tag        string    `json:"tag" gorm:"size:100;uniqueIndex:idx_game_tags_pair;not null"`
	CreatedAt  time.Time `json:"created_at"`
}

func (t *GameTag) BeforeCreate(tx *gorm.DB) error {
	if t.ID == "" {
		t.ID = uuid.NewString()
	}
	return nil
}

// NormalizeTag lower-cases and trims a raw tag. An empty result means
// the input was blank.
func NormalizeTag(raw string) string {
	return strings.ToLower(strings.TrimSpace(raw))
}

// NormalizeTags normalizes every tag, drops blanks and duplicates, and
// returns the result sorted ascending.
func NormalizeTags(raw []string) []string {
	seen := make(map[string]struct{}, len(raw))
	out := make([]string, 0, len(raw))
	for _, r := range raw {
		tag := NormalizeTag(r)
		if tag == "" {
			continue
		}
		if _, ok := seen[tag]; ok {
			continue
		}
		seen[tag] = struct{}{}
		out = append(out, tag)
	}
	sort.Strings(out)
	return out
}
