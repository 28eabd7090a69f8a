package services

import (
	"testing"

	"questlog/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQueueService_CreateQueue(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	t.Run("first queue becomes default", func(t *testing.T) {
		first, err := service.CreateQueue("user-1", "Backlog", "")
		require.NoError(t, err)
		assert.True(t, first.IsDefault)

		second, err := service.CreateQueue("user-1", "Summer", "short games")
		require.NoError(t, err)
		assert.False(t, second.IsDefault)
		assert.Equal(t, "short games", second.Description)
	})

	t.Run("duplicate name rejected", func(t *testing.T) {
		_, err := service.CreateQueue("user-1", "Backlog", "")
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("names are case-sensitive", func(t *testing.T) {
		queue, err := service.CreateQueue("user-1", "backlog", "")
		assert.NoError(t, err)
		assert.False(t, queue.IsDefault)
	})

	t.Run("name is scoped per user", func(t *testing.T) {
		queue, err := service.CreateQueue("user-2", "Backlog", "")
		assert.NoError(t, err)
		assert.True(t, queue.IsDefault)
	})
}

func TestQueueService_CreateQueueWithFilters(t *testing.T) {
	t.Run("assigns matches with dense positions", func(t *testing.T) {
		storage := setupTestDB(t)
		defer storage.Close()

		service := NewQueueService(storage, testLogger())

		match1 := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg", "action")
		seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
		match2 := seedUserGame(t, storage, "user-1", models.StatusBacklog, "action", "rpg", "fantasy")
		seedUserGame(t, storage, "user-2", models.StatusBacklog, "rpg", "action")

		queue, err := service.CreateQueueWithFilters("user-1", "Action RPGs", "", []string{" RPG ", "Action", "rpg"})
		require.NoError(t, err)

		assert.Equal(t, []string{"action", "rpg"}, queue.FilterTags)
		assert.True(t, queue.IsDefault)

		got, err := service.GetQueue("user-1", queue.ID)
		require.NoError(t, err)
		require.Len(t, got.Games, 2)

		ids := []string{got.Games[0].ID, got.Games[1].ID}
		assert.ElementsMatch(t, []string{match1.ID, match2.ID}, ids)

		require.NotNil(t, got.Games[0].QueuePosition)
		require.NotNil(t, got.Games[1].QueuePosition)
		assert.Equal(t, 0, *got.Games[0].QueuePosition)
		assert.Equal(t, 1, *got.Games[1].QueuePosition)
	})

	t.Run("empty filter assigns nothing", func(t *testing.T) {
		storage := setupTestDB(t)
		defer storage.Close()

		service := NewQueueService(storage, testLogger())

		seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")

		queue, err := service.CreateQueueWithFilters("user-1", "Empty", "", []string{"  "})
		require.NoError(t, err)

		got, err := service.GetQueue("user-1", queue.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Games)
	})

	t.Run("vacated queue is renumbered", func(t *testing.T) {
		storage := setupTestDB(t)
		defer storage.Close()

		service := NewQueueService(storage, testLogger())

		stays := seedUserGame(t, storage, "user-1", models.StatusBacklog, "puzzle")
		moves := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
		last := seedUserGame(t, storage, "user-1", models.StatusBacklog, "puzzle")

		old, err := service.CreateQueue("user-1", "Old", "")
		require.NoError(t, err)
		for i, ug := range []*models.UserGame{stays, moves, last} {
			err := storage.DB.Model(&models.UserGame{}).
				Where("id = ?", ug.ID).
				Updates(map[string]interface{}{"queue_id": old.ID, "queue_position": i}).Error
			require.NoError(t, err)
		}

		fresh, err := service.CreateQueueWithFilters("user-1", "RPGs", "", []string{"rpg"})
		require.NoError(t, err)

		var moved models.UserGame
		require.NoError(t, storage.DB.First(&moved, "id = ?", moves.ID).Error)
		require.NotNil(t, moved.QueueID)
		assert.Equal(t, fresh.ID, *moved.QueueID)
		assert.Equal(t, 0, *moved.QueuePosition)

		oldQueue, err := service.GetQueue("user-1", old.ID)
		require.NoError(t, err)
		require.Len(t, oldQueue.Games, 2)
		assert.Equal(t, stays.ID, oldQueue.Games[0].ID)
		assert.Equal(t, 0, *oldQueue.Games[0].QueuePosition)
		assert.Equal(t, last.ID, oldQueue.Games[1].ID)
		assert.Equal(t, 1, *oldQueue.Games[1].QueuePosition)
	})
}

func TestQueueService_FindNewMatches(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	queue, err := service.CreateQueueWithFilters("user-1", "RPGs", "", []string{"rpg"})
	require.NoError(t, err)

	member := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
	require.NoError(t, storage.DB.Model(&models.UserGame{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{"queue_id": queue.ID, "queue_position": 0}).Error)

	unqueued := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
	seedUserGame(t, storage, "user-1", models.StatusBacklog, "action")

	other, err := service.CreateQueue("user-1", "Other", "")
	require.NoError(t, err)
	elsewhere := seedUserGame(t, storage, "user-1", models.StatusBacklog, "rpg")
	require.NoError(t, storage.DB.Model(&models.UserGame{}).
		Where("id = ?", elsewhere.ID).
		Updates(map[string]interface{}{"queue_id": other.ID, "queue_position": 0}).Error)

	t.Run("current members excluded, other queues eligible", func(t *testing.T) {
		matches, err := service.FindNewMatches("user-1", queue.ID)

		assert.NoError(t, err)
		require.Len(t, matches, 2)
		ids := []string{matches[0].ID, matches[1].ID}
		assert.ElementsMatch(t, []string{unqueued.ID, elsewhere.ID}, ids)
	})

	t.Run("queue without filter yields empty", func(t *testing.T) {
		matches, err := service.FindNewMatches("user-1", other.ID)

		assert.NoError(t, err)
		assert.Empty(t, matches)
	})

	t.Run("missing queue yields empty", func(t *testing.T) {
		matches, err := service.FindNewMatches("user-1", "no-such-queue")

		assert.NoError(t, err)
		assert.Empty(t, matches)
	})
}

func TestQueueService_ReorderQueue(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	queue, err := service.CreateQueue("user-1", "Backlog", "")
	require.NoError(t, err)

	a := seedUserGame(t, storage, "user-1", models.StatusBacklog)
	b := seedUserGame(t, storage, "user-1", models.StatusBacklog)
	c := seedUserGame(t, storage, "user-1", models.StatusBacklog)
	for i, ug := range []*models.UserGame{a, b, c} {
		require.NoError(t, storage.DB.Model(&models.UserGame{}).
			Where("id = ?", ug.ID).
			Updates(map[string]interface{}{"queue_id": queue.ID, "queue_position": i}).Error)
	}

	err = service.ReorderQueue("user-1", queue.ID, []QueueAssignment{
		{UserGameID: a.ID, Position: 2},
		{UserGameID: b.ID, Position: 0},
		{UserGameID: c.ID, Position: 1},
	})
	require.NoError(t, err)

	got, err := service.GetQueue("user-1", queue.ID)
	require.NoError(t, err)
	require.Len(t, got.Games, 3)
	assert.Equal(t, b.ID, got.Games[0].ID)
	assert.Equal(t, c.ID, got.Games[1].ID)
	assert.Equal(t, a.ID, got.Games[2].ID)

	t.Run("assignments outside the queue are ignored", func(t *testing.T) {
		loose := seedUserGame(t, storage, "user-1", models.StatusBacklog)

		err := service.ReorderQueue("user-1", queue.ID, []QueueAssignment{
			{UserGameID: loose.ID, Position: 0},
		})
		require.NoError(t, err)

		var got models.UserGame
		require.NoError(t, storage.DB.First(&got, "id = ?", loose.ID).Error)
		assert.Nil(t, got.QueueID)
		assert.Nil(t, got.QueuePosition)
	})

	t.Run("missing queue", func(t *testing.T) {
		err := service.ReorderQueue("user-1", "no-such-queue", nil)
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueueService_UpdateQueue(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	queue, err := service.CreateQueue("user-1", "Backlog", "everything")
	require.NoError(t, err)
	_, err = service.CreateQueue("user-1", "Summer", "")
	require.NoError(t, err)

	t.Run("rename", func(t *testing.T) {
		name := "Winter"
		got, err := service.UpdateQueue("user-1", queue.ID, QueuePatch{Name: &name})

		assert.NoError(t, err)
		assert.Equal(t, "Winter", got.Name)
		assert.Equal(t, "everything", got.Description)
	})

	t.Run("rename onto existing name", func(t *testing.T) {
		name := "Summer"
		_, err := service.UpdateQueue("user-1", queue.ID, QueuePatch{Name: &name})
		assert.ErrorIs(t, err, ErrDuplicateName)
	})

	t.Run("repeating own name is a no-op", func(t *testing.T) {
		name := "Winter"
		desc := "cozy games"
		got, err := service.UpdateQueue("user-1", queue.ID, QueuePatch{Name: &name, Description: &desc})

		assert.NoError(t, err)
		assert.Equal(t, "Winter", got.Name)
		assert.Equal(t, "cozy games", got.Description)
	})

	t.Run("missing queue", func(t *testing.T) {
		_, err := service.UpdateQueue("user-1", "no-such-queue", QueuePatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueueService_DeleteQueue(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	def, err := service.CreateQueue("user-1", "Default", "")
	require.NoError(t, err)
	doomed, err := service.CreateQueue("user-1", "Doomed", "")
	require.NoError(t, err)

	member := seedUserGame(t, storage, "user-1", models.StatusPlaying, "rpg")
	require.NoError(t, storage.DB.Model(&models.UserGame{}).
		Where("id = ?", member.ID).
		Updates(map[string]interface{}{"queue_id": doomed.ID, "queue_position": 0}).Error)

	t.Run("default queue is protected", func(t *testing.T) {
		err := service.DeleteQueue("user-1", def.ID)
		assert.ErrorIs(t, err, ErrForbidden)

		_, err = service.GetQueue("user-1", def.ID)
		assert.NoError(t, err)
	})

	t.Run("members are released, not deleted", func(t *testing.T) {
		err := service.DeleteQueue("user-1", doomed.ID)
		require.NoError(t, err)

		_, err = service.GetQueue("user-1", doomed.ID)
		assert.ErrorIs(t, err, ErrNotFound)

		var got models.UserGame
		require.NoError(t, storage.DB.Preload("Tags").First(&got, "id = ?", member.ID).Error)
		assert.Nil(t, got.QueueID)
		assert.Nil(t, got.QueuePosition)
		assert.Equal(t, models.StatusPlaying, got.Status)
		assert.Len(t, got.Tags, 1)
	})

	t.Run("missing queue", func(t *testing.T) {
		err := service.DeleteQueue("user-1", "no-such-queue")
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestQueueService_GetUserQueues(t *testing.T) {
	storage := setupTestDB(t)
	defer storage.Close()

	service := NewQueueService(storage, testLogger())

	queue, err := service.CreateQueue("user-1", "Backlog", "")
	require.NoError(t, err)
	_, err = service.CreateQueue("user-1", "Summer", "")
	require.NoError(t, err)
	_, err = service.CreateQueue("user-2", "Backlog", "")
	require.NoError(t, err)

	game := seedGame(t, storage, "Long RPG", intPtr(600), intPtr(1200))
	ug := &models.UserGame{
		UserID:          "user-1",
		GameID:          game.ID,
		Status:          models.StatusPlaying,
		ProgressPercent: 50,
		QueueID:         &queue.ID,
		QueuePosition:   intPtr(0),
	}
	require.NoError(t, storage.DB.Create(ug).Error)

	queues, err := service.GetUserQueues("user-1")

	assert.NoError(t, err)
	require.Len(t, queues, 2)

	byName := map[string]QueueWithStats{}
	for _, q := range queues {
		byName[q.Name] = q
	}

	backlog := byName["Backlog"]
	assert.Equal(t, 1, backlog.Stats.TotalGames)
	assert.Equal(t, 600, backlog.Stats.TotalMainTime)
	assert.Equal(t, 1200, backlog.Stats.TotalCompletionTime)
	assert.InDelta(t, 300.0, backlog.Stats.CompletedTime, 0.01)
	assert.InDelta(t, 300.0, backlog.Stats.RemainingTime, 0.01)

	assert.Equal(t, 0, byName["Summer"].Stats.TotalGames)
}
