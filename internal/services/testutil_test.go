package services

import (
	"fmt"
	"io"
	"log/slog"
	"testing"

	"questlog/internal/models"
	"questlog/internal/storage/mariadb"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// setupTestDB opens a throwaway in-memory database with the full schema
// migrated. Every call gets its own database.
func setupTestDB(t *testing.T) *mariadb.Storage {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open test db: %v", err)
	}

	err = db.AutoMigrate(
		&models.Game{},
		&models.UserGame{},
		&models.GameTag{},
		&models.GameQueue{},
	)
	if err != nil {
		t.Fatalf("Failed to migrate test db: %v", err)
	}

	return &mariadb.Storage{DB: db}
}

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func seedGame(t *testing.T, s *mariadb.Storage, title string, mainTime, completionTime *int) *models.Game {
	t.Helper()

	game := &models.Game{
		Title:          title,
		ApiID:          uuid.NewString(),
		ApiSource:      "IGDB",
		MainTime:       mainTime,
		CompletionTime: completionTime,
	}
	if err := s.DB.Create(game).Error; err != nil {
		t.Fatalf("Failed to seed game: %v", err)
	}
	return game
}

// seedUserGame creates a fresh catalog game plus the user's record for
// it, with the given tags already normalized and attached.
func seedUserGame(t *testing.T, s *mariadb.Storage, userID string, status models.GameStatus, tags ...string) *models.UserGame {
	t.Helper()

	game := seedGame(t, s, "Game "+uuid.NewString()[:8], nil, nil)

	ug := &models.UserGame{
		UserID: userID,
		GameID: game.ID,
		Status: status,
	}
	if err := s.DB.Create(ug).Error; err != nil {
		t.Fatalf("Failed to seed user game: %v", err)
	}

	for _, tag := range tags {
		gt := &models.GameTag{
			UserGameID: ug.ID,
			Tag:        models.NormalizeTag(tag),
		}
		if err := s.DB.Create(gt).Error; err != nil {
			t.Fatalf("Failed to seed tag: %v", err)
		}
	}

	return ug
}
