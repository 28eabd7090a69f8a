package services

import (
	"errors"
	"fmt"
	"log/slog"

	"questlog/internal/models"
	"questlog/internal/storage/mariadb"

	"gorm.io/gorm"
)

type TagService struct {
	storage *mariadb.Storage
	log     *slog.Logger
}

func NewTagService(s *mariadb.Storage, log *slog.Logger) *TagService {
	return &TagService{
		storage: s,
		log:     log,
	}
}

// AddTag normalizes a raw tag and attaches it to the user's game.
// Blank tags fail with ErrEmptyTag; a tag already on the game fails
// with ErrDuplicateTag, the caller decides whether to surface or
// swallow it.
func (s *TagService) AddTag(userID, userGameID, raw string) (*models.GameTag, error) {
	const op = "services.tags.AddTag"

	tag := models.NormalizeTag(raw)
	if tag == "" {
		return nil, fmt.Errorf("%s: %w", op, ErrEmptyTag)
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
	if err := tx.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	var existing models.GameTag
	err := tx.Where("user_game_id = ? AND tag = ?", userGameID, tag).First(&existing).Error
	if err == nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, ErrDuplicateTag)
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	created := &models.GameTag{UserGameID: userGameID, Tag: tag}
	if err := tx.Create(created).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return created, nil
}

// RemoveTag normalizes before lookup and fails with ErrNotFound when the
// game or the tag is absent.
func (s *TagService) RemoveTag(userID, userGameID, raw string) error {
	const op = "services.tags.RemoveTag"

	tag := models.NormalizeTag(raw)
	if tag == "" {
		return fmt.Errorf("%s: %w", op, ErrEmptyTag)
	}

	var ug models.UserGame
	if err := s.storage.DB.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	res := s.storage.DB.Where("user_game_id = ? AND tag = ?", userGameID, tag).Delete(&models.GameTag{})
	if res.Error != nil {
		return fmt.Errorf("%s: %w", op, res.Error)
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%s: %w", op, ErrNotFound)
	}

	return nil
}

// ListTags returns the game's tags sorted ascending.
func (s *TagService) ListTags(userID, userGameID string) ([]string, error) {
	const op = "services.tags.ListTags"

	var ug models.UserGame
	if err := s.storage.DB.Where("id = ? AND user_id = ?", userGameID, userID).First(&ug).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	tags := []string{}
	err := s.storage.DB.Model(&models.GameTag{}).
		Where("user_game_id = ?", userGameID).
		Order("tag ASC").
		Pluck("tag", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tags, nil
}

// ListAllUserTags returns every distinct tag across the user's games,
// sorted ascending.
func (s *TagService) ListAllUserTags(userID string) ([]string, error) {
	const op = "services.tags.ListAllUserTags"

	tags := []string{}
	err := s.storage.DB.Model(&models.GameTag{}).
		Distinct("game_tags.tag").
		Joins("JOIN user_games ON user_games.id = game_tags.user_game_id").
		Where("user_games.user_id = ?", userID).
		Order("game_tags.tag ASC").
		Pluck("game_tags.tag", &tags).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return tags, nil
}

// FindUserGamesByTags returns the user's games carrying every tag in the
// input (AND semantics). An empty or nil input is never treated as
// "match everything"; it returns an empty list without touching storage.
func (s *TagService) FindUserGamesByTags(userID string, tags []string) ([]models.UserGame, error) {
	const op = "services.tags.FindUserGamesByTags"

	norm := models.NormalizeTags(tags)
	if len(norm) == 0 {
		return []models.UserGame{}, nil
	}

	games, err := matchUserGamesByTags(s.storage.DB, userID, norm, "")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return games, nil
}

// matchUserGamesByTags is the shared AND-match: games that carry every
// tag in norm. excludeQueueID, when set, drops games already assigned to
// that queue while keeping unqueued games and members of other queues.
// norm must already be normalized and non-empty.
func matchUserGamesByTags(db *gorm.DB, userID string, norm []string, excludeQueueID string) ([]models.UserGame, error) {
	sub := db.Model(&models.GameTag{}).
		Select("game_tags.user_game_id").
		Where("game_tags.tag IN ?", norm).
		Group("game_tags.user_game_id").
		Having("COUNT(DISTINCT game_tags.tag) = ?", len(norm))

	q := db.Model(&models.UserGame{}).
		Preload("Game").
		Preload("Tags").
		Where("user_games.user_id = ?", userID).
		Where("user_games.id IN (?)", sub)

	if excludeQueueID != "" {
		q = q.Where("user_games.queue_id IS NULL OR user_games.queue_id <> ?", excludeQueueID)
	}

	games := []models.UserGame{}
	if err := q.Order("user_games.created_at ASC").Find(&games).Error; err != nil {
		return nil, err
	}

	return games, nil
}
