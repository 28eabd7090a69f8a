package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"questlog/internal/models"
	"questlog/internal/storage/mariadb"

	"gorm.io/gorm"
)

const apiSourceIGDB = "IGDB"

const (
	// searchLocalThreshold is how many local hits make an external
	// catalog query unnecessary; searchResultCap bounds the merged set.
	searchLocalThreshold = 10
	searchResultCap      = 20
)

// CatalogClient is the external game-catalog collaborator.
type CatalogClient interface {
	Search(ctx context.Context, query string) ([]models.CatalogGame, error)
	GetDetails(ctx context.Context, externalID string) (*models.CatalogGame, error)
}

// CompletionTimeClient supplies canonical duration estimates by title.
type CompletionTimeClient interface {
	GetCompletionTimes(ctx context.Context, title string) (models.CompletionTimes, error)
}

type CollectionService struct {
	storage *mariadb.Storage
	catalog CatalogClient
	times   CompletionTimeClient
	log     *slog.Logger
}

func NewCollectionService(s *mariadb.Storage, catalog CatalogClient, times CompletionTimeClient, log *slog.Logger) *CollectionService {
	return &CollectionService{
		storage: s,
		catalog: catalog,
		times:   times,
		log:     log,
	}
}

// AddToCollectionOptions carries the optional parts of an add request.
// An empty QueueID string detaches the game from its queue.
type AddToCollectionOptions struct {
	QueueID *string
	Status  *models.GameStatus
}

// UserGamePatch is an explicit partial update; nil fields are untouched.
// QueueID pointing at an empty string detaches the game from its queue.
type UserGamePatch struct {
	Status               *models.GameStatus `json:"status"`
	ProgressPercent      *int               `json:"progress_percent"`
	CustomMainTime       *int               `json:"custom_main_time"`
	CustomCompletionTime *int               `json:"custom_completion_time"`
	QueueID              *string            `json:"queue_id"`
}

// SearchGames checks the local store first and only queries the
// external catalog when fewer than searchLocalThreshold local titles
// match, merging and truncating to searchResultCap. A catalog failure
// degrades to local-only results instead of propagating.
func (s *CollectionService) SearchGames(ctx context.Context, query string) ([]models.Game, error) {
	const op = "services.collection.SearchGames"

	local := []models.Game{}
	err := s.storage.DB.
		Where("title LIKE ?", "%"+query+"%").
		Limit(searchLocalThreshold).
		Find(&local).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(local) >= searchLocalThreshold {
		return local, nil
	}

	external, err := s.catalog.Search(ctx, query)
	if err != nil {
		s.log.Warn("catalog search failed, returning local results",
			slog.String("operation", op),
			slog.String("query", query),
			slog.String("error", err.Error()))
		return local, nil
	}

	merged := local
	for i := range external {
		merged = append(merged, catalogGameToModel(&external[i]))
	}
	if len(merged) > searchResultCap {
		merged = merged[:searchResultCap]
	}

	return merged, nil
}

// AddGameFromCatalog pulls a title from the external catalog into the
// shared Game store. Idempotent per external id: an existing entry is
// returned as-is. A catalog failure is fatal here, there is no local
// fallback for catalog data; a completion-time failure only costs the
// duration estimates.
func (s *CollectionService) AddGameFromCatalog(ctx context.Context, externalID string) (*models.Game, error) {
	const op = "services.collection.AddGameFromCatalog"

	var existing models.Game
	err := s.storage.DB.
		Where("api_id = ? AND api_source = ?", externalID, apiSourceIGDB).
		First(&existing).Error
	if err == nil {
		return &existing, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	details, err := s.catalog.GetDetails(ctx, externalID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w: %w", op, ErrExternalLookup, err)
	}

	game := catalogGameToModel(details)

	times, err := s.times.GetCompletionTimes(ctx, details.Title)
	if err != nil {
		s.log.Warn("completion time lookup failed",
			slog.String("operation", op),
			slog.String("title", details.Title),
			slog.String("error", err.Error()))
	} else {
		game.MainTime = times.MainTime
		game.CompletionTime = times.CompletionTime
	}

	if err := s.storage.DB.Create(&game).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &game, nil
}

func catalogGameToModel(cg *models.CatalogGame) models.Game {
	return models.Game{
		Title:       cg.Title,
		ApiID:       cg.ExternalID,
		ApiSource:   apiSourceIGDB,
		CoverURL:    cg.CoverURL,
		ReleaseDate: cg.ReleaseDate,
		Publisher:   cg.Publisher,
		Developer:   cg.Developer,
		Description: cg.Description,
	}
}

// AddGameToCollection is an idempotent upsert: re-adding a game the user
// already has updates its status and queue instead of duplicating. A
// newly queued game takes the position after the queue's current last
// member, or 0 in an empty queue.
func (s *CollectionService) AddGameToCollection(userID, gameID string, opts AddToCollectionOptions) (*models.UserGame, error) {
	const op = "services.collection.AddGameToCollection"

	if opts.Status != nil && !opts.Status.IsValid() {
		return nil, fmt.Errorf("%s: %w: %s", op, ErrUnknownStatus, *opts.Status)
	}

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var ug models.UserGame
	err := tx.Where("user_id = ? AND game_id = ?", userID, gameID).First(&ug).Error
	switch {
	case err == nil:
		if opts.Status != nil {
			ug.Status = *opts.Status
		}
		if err := tx.Save(&ug).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if opts.QueueID != nil {
			if err := moveUserGameToQueue(tx, userID, &ug, *opts.QueueID); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

	case errors.Is(err, gorm.ErrRecordNotFound):
		var game models.Game
		if err := tx.First(&game, "id = ?", gameID).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		status := models.StatusBacklog
		if opts.Status != nil {
			status = *opts.Status
		}

		ug = models.UserGame{
			UserID: userID,
			GameID: gameID,
			Status: status,
		}
		if err := tx.Create(&ug).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		if opts.QueueID != nil && *opts.QueueID != "" {
			if err := moveUserGameToQueue(tx, userID, &ug, *opts.QueueID); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

	default:
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserGame(userID, ug.ID)
}

// moveUserGameToQueue assigns the game to a queue (or detaches it when
// queueID is empty), keeping positions dense in both the queue it left
// and the one it joined. Must run inside the caller's transaction.
func moveUserGameToQueue(tx *gorm.DB, userID string, ug *models.UserGame, queueID string) error {
	if ug.QueueID != nil && *ug.QueueID == queueID {
		return nil
	}

	oldQueueID := ug.QueueID

	if queueID == "" {
		err := tx.Model(&models.UserGame{}).
			Where("id = ?", ug.ID).
			Updates(map[string]interface{}{
				"queue_id":       nil,
				"queue_position": nil,
			}).Error
		if err != nil {
			return err
		}
		ug.QueueID = nil
		ug.QueuePosition = nil
	} else {
		var queue models.GameQueue
		if err := tx.Where("id = ? AND user_id = ?", queueID, userID).First(&queue).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrNotFound
			}
			return err
		}

		pos, err := nextQueuePosition(tx, queueID)
		if err != nil {
			return err
		}

		err = tx.Model(&models.UserGame{}).
			Where("id = ?", ug.ID).
			Updates(map[string]interface{}{
				"queue_id":       queueID,
				"queue_position": pos,
			}).Error
		if err != nil {
			return err
		}
		ug.QueueID = &queue.ID
		ug.QueuePosition = &pos
	}

	if oldQueueID != nil {
		if err := compactQueuePositions(tx, *oldQueueID); err != nil {
			return err
		}
	}

	return nil
}

// GetUserGame fetches one of the user's games with its catalog entry and
// tags joined.
func (s *CollectionService) GetUserGame(userID, userGameID string) (*models.UserGame, error) {
	const op = "services.collection.GetUserGame"

	var ug models.UserGame
	err := s.storage.DB.
		Preload("Game").
		Preload("Tags", func(db *gorm.DB) *gorm.DB {
			return db.Order("game_tags.tag ASC")
		}).
		Where("id = ? AND user_id = ?", userGameID, userID).
		First(&ug).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &ug, nil
}

// ListUserGames returns the user's collection, optionally filtered by
// status, most recently updated first.
func (s *CollectionService) ListUserGames(userID string, status *models.GameStatus) ([]models.UserGame, error) {
	const op = "services.collection.ListUserGames"

	db := s.storage.DB.
		Preload("Game").
		Preload("Tags").
		Where("user_id = ?", userID)

	if status != nil {
		db = db.Where("status = ?", *status)
	}

	games := []models.UserGame{}
	if err := db.Order("updated_at DESC").Find(&games).Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return games, nil
}

// SetProgress clamps percent into [0,100] and stores it. Out-of-range
// input is never an error, and no status transition is triggered by
// reaching 100.
func (s *CollectionService) SetProgress(userID, userGameID string, percent int) (*models.UserGame, error) {
	const op = "services.collection.SetProgress"

	if percent < 0 {
		percent = 0
	} else if percent > 100 {
		percent = 100
	}

	var ug models.UserGame
	if err := s.storage.DB.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	err := s.storage.DB.Model(&models.UserGame{}).
		Where("id = ?", ug.ID).
		Update("progress_percent", percent).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserGame(userID, userGameID)
}

// TransitionUserGame moves a game to a new lifecycle status. Rejections
// carry the current state and the allowed targets. First entry into
// CURRENTLY_PLAYING stamps StartedAt, first entry into COMPLETED stamps
// CompletedAt; existing stamps are never overwritten.
func (s *CollectionService) TransitionUserGame(userID, userGameID string, to models.GameStatus) (*models.UserGame, error) {
	const op = "services.collection.TransitionUserGame"

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var ug models.UserGame
	if err := tx.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if !IsValidTransition(ug.Status, to) {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, &InvalidTransitionError{
			From:    ug.Status,
			To:      to,
			Allowed: ValidTransitions(ug.Status),
		})
	}

	updates := map[string]interface{}{"status": to}
	now := time.Now()
	if to == models.StatusPlaying && ug.StartedAt == nil {
		updates["started_at"] = now
	}
	if to == models.StatusCompleted && ug.CompletedAt == nil {
		updates["completed_at"] = now
	}

	if err := tx.Model(&models.UserGame{}).Where("id = ?", ug.ID).Updates(updates).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserGame(userID, userGameID)
}

// UpdateUserGame applies an explicit patch. Every field is validated
// before anything is written, so a rejected patch leaves no partial
// state behind.
func (s *CollectionService) UpdateUserGame(userID, userGameID string, patch UserGamePatch) (*models.UserGame, error) {
	const op = "services.collection.UpdateUserGame"

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var ug models.UserGame
	if err := tx.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	// Validate everything before the first write. A patch repeating the
	// current status is a no-op, not a rejected self-transition.
	statusChange := patch.Status != nil && *patch.Status != ug.Status
	if statusChange && !IsValidTransition(ug.Status, *patch.Status) {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, &InvalidTransitionError{
			From:    ug.Status,
			To:      *patch.Status,
			Allowed: ValidTransitions(ug.Status),
		})
	}

	if patch.QueueID != nil && *patch.QueueID != "" {
		var queue models.GameQueue
		if err := tx.Where("id = ? AND user_id = ?", *patch.QueueID, userID).First(&queue).Error; err != nil {
			tx.Rollback()
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
			}
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	updates := map[string]interface{}{}

	if statusChange {
		updates["status"] = *patch.Status
		now := time.Now()
		if *patch.Status == models.StatusPlaying && ug.StartedAt == nil {
			updates["started_at"] = now
		}
		if *patch.Status == models.StatusCompleted && ug.CompletedAt == nil {
			updates["completed_at"] = now
		}
	}

	if patch.ProgressPercent != nil {
		percent := *patch.ProgressPercent
		if percent < 0 {
			percent = 0
		} else if percent > 100 {
			percent = 100
		}
		updates["progress_percent"] = percent
	}

	if patch.CustomMainTime != nil {
		updates["custom_main_time"] = *patch.CustomMainTime
	}
	if patch.CustomCompletionTime != nil {
		updates["custom_completion_time"] = *patch.CustomCompletionTime
	}

	if len(updates) > 0 {
		if err := tx.Model(&models.UserGame{}).Where("id = ?", ug.ID).Updates(updates).Error; err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if patch.QueueID != nil {
		if err := moveUserGameToQueue(tx, userID, &ug, *patch.QueueID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return s.GetUserGame(userID, userGameID)
}

// RemoveUserGame deletes the user's relationship to a game: tags and
// queue membership go with it, the shared Game and other users' records
// are untouched.
func (s *CollectionService) RemoveUserGame(userID, userGameID string) error {
	const op = "services.collection.RemoveUserGame"

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var ug models.UserGame
	if err := tx.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Where("user_game_id = ?", ug.ID).Delete(&models.GameTag{}).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Delete(&models.UserGame{}, "id = ?", ug.ID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if ug.QueueID != nil {
		if err := compactQueuePositions(tx, *ug.QueueID); err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
