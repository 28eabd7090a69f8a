package services

import (
	"regexp"
	"testing"

	"questlog/internal/models"
	"questlog/internal/storage/mariadb"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/mysql"
	"gorm.io/gorm"
)

func setupMockDB(t *testing.T) (*mariadb.Storage, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("Failed to create sqlmock: %v", err)
	}

	gormDB, err := gorm.Open(mysql.New(mysql.Config{
		Conn:                      db,
		SkipInitializeWithVersion: true,
	}), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open gorm db: %v", err)
	}

	return &mariadb.Storage{DB: gormDB}, mock
}

func TestTagService_AddTag(t *testing.T) {
	storage, mock := setupMockDB(t)
	defer storage.Close()

	service := NewTagService(storage, testLogger())

	userGameQuery := regexp.QuoteMeta(
		"SELECT * FROM `user_games` WHERE id = ? AND user_id = ? ORDER BY `user_games`.`id` LIMIT ?")
	tagQuery := regexp.QuoteMeta(
		"SELECT * FROM `game_tags` WHERE user_game_id = ? AND tag = ? ORDER BY `game_tags`.`id` LIMIT ?")

	t.Run("success", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(userGameQuery).
			WithArgs("ug-1", "user-1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("ug-1", "user-1"))
		mock.ExpectQuery(tagQuery).
			WithArgs("ug-1", "rpg", 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectExec(regexp.QuoteMeta("INSERT INTO `game_tags`")).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		tag, err := service.AddTag("user-1", "ug-1", "  RPG ")

		assert.NoError(t, err)
		assert.Equal(t, "rpg", tag.Tag)
		assert.Equal(t, "ug-1", tag.UserGameID)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("duplicate tag", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(userGameQuery).
			WithArgs("ug-1", "user-1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("ug-1", "user-1"))
		mock.ExpectQuery(tagQuery).
			WithArgs("ug-1", "rpg", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_game_id", "tag"}).AddRow("t-1", "ug-1", "rpg"))
		mock.ExpectRollback()

		tag, err := service.AddTag("user-1", "ug-1", "RPG")

		assert.ErrorIs(t, err, ErrDuplicateTag)
		assert.Nil(t, tag)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("game not found", func(t *testing.T) {
		mock.ExpectBegin()
		mock.ExpectQuery(userGameQuery).
			WithArgs("missing", "user-1", 1).
			WillReturnError(gorm.ErrRecordNotFound)
		mock.ExpectRollback()

		tag, err := service.AddTag("user-1", "missing", "rpg")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.Nil(t, tag)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("blank tag", func(t *testing.T) {
		tag, err := service.AddTag("user-1", "ug-1", "   ")

		assert.ErrorIs(t, err, ErrEmptyTag)
		assert.Nil(t, tag)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTagService_RemoveTag(t *testing.T) {
	storage, mock := setupMockDB(t)
	defer storage.Close()

	service := NewTagService(storage, testLogger())

	userGameQuery := regexp.QuoteMeta(
		"SELECT * FROM `user_games` WHERE id = ? AND user_id = ? ORDER BY `user_games`.`id` LIMIT ?")
	deleteExec := regexp.QuoteMeta(
		"DELETE FROM `game_tags` WHERE user_game_id = ? AND tag = ?")

	t.Run("success", func(t *testing.T) {
		mock.ExpectQuery(userGameQuery).
			WithArgs("ug-1", "user-1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("ug-1", "user-1"))
		mock.ExpectBegin()
		mock.ExpectExec(deleteExec).
			WithArgs("ug-1", "rpg").
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		err := service.RemoveTag("user-1", "ug-1", " RPG ")

		assert.NoError(t, err)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("tag not on game", func(t *testing.T) {
		mock.ExpectQuery(userGameQuery).
			WithArgs("ug-1", "user-1", 1).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id"}).AddRow("ug-1", "user-1"))
		mock.ExpectBegin()
		mock.ExpectExec(deleteExec).
			WithArgs("ug-1", "horror").
			WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectCommit()

		err := service.RemoveTag("user-1", "ug-1", "horror")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("game not found", func(t *testing.T) {
		mock.ExpectQuery(userGameQuery).
			WithArgs("missing", "user-1", 1).
			WillReturnError(gorm.ErrRecordNotFound)

		err := service.RemoveTag("user-1", "missing", "rpg")

		assert.ErrorIs(t, err, ErrNotFound)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestTagService_ListTags(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewTagService(storage, testLogger())

	ug := seedUserGame(t, storage, "user-1", models.StatusBacklog)

	_, err := service.AddTag("user-1", ug.ID, "RPG")
	require.NoError(t, err)
	_, err = service.AddTag("user-1", ug.ID, "  open world ")
	require.NoError(t, err)
	_, err = service.AddTag("user-1", ug.ID, "Action")
	require.NoError(t, err)

	tags, err := service.ListTags("user-1", ug.ID)

	assert.NoError(t, err)
	assert.Equal(t, []string{"action", "open world", "rpg"}, tags)

	t.Run("foreign user game", func(t *testing.T) {
		_, err := service.ListTags("user-2", ug.ID)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestTagService_ListAllUserTags(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewTagService(storage, testLogger())

	seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg", "fantasy")
	seedUserGame(t, storage, "user-1", models.StatusPlaying, "rpg", "action")
	seedUserGame(t, storage, "user-2", models.StatusBacklog, "horror")

	tags, err := service.ListAllUserTags("user-1")

	assert.NoError(t, err)
	assert.Equal(t, []string{"action", "fantasy", "rpg"}, tags)

	tags, err = service.ListAllUserTags("user-3")

	assert.NoError(t, err)
	assert.Empty(t, tags)
}

func TestTagService_FindUserGamesByTags(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewTagService(storage, testLogger())

	both := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg", "action")
	rpgOnly := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
	seedUserGame(t, storage, "user-1", models.StatusBacklog, "action")
	seedUserGame(t, storage, "user-2", models.StatusBacklog, "rpg", "action")

	t.Run("all tags must match", func(t *testing.T) {
		games, err := service.FindUserGamesByTags("user-1", []string{"RPG", " action "})

		assert.NoError(t, err)
		require.Len(t, games, 1)
		assert.Equal(t, both.ID, games[0].ID)
	})

	t.Run("single tag", func(t *testing.T) {
		games, err := service.FindUserGamesByTags("user-1", []string{"rpg"})

		assert.NoError(t, err)
		require.Len(t, games, 2)
		ids := []string{games[0].ID, games[1].ID}
		assert.ElementsMatch(t, []string{both.ID, rpgOnly.ID}, ids)
	})

	t.Run("empty input matches nothing", func(t *testing.T) {
		games, err := service.FindUserGamesByTags("user-1", nil)

		assert.NoError(t, err)
		assert.Empty(t, games)

		games, err = service.FindUserGamesByTags("user-1", []string{"  ", ""})

		assert.NoError(t, err)
		assert.Empty(t, games)
	})

	t.Run("unknown tag matches nothing", func(t *testing.T) {
		games, err := service.FindUserGamesByTags("user-1", []string{"rpg", "roguelike"})

		assert.NoError(t, err)
		assert.Empty(t, games)
	})
}
