package services

import (
	"errors"
	"fmt"
	"log/slog"

	"questlog/internal/models"
	"questlog/internal/storage/mariadb"

	"gorm.io/gorm"
)

type QueueService struct {
	storage *mariadb.Storage
	log     *slog.Logger
}

func NewQueueService(s *mariadb.Storage, log *slog.Logger) *QueueService {
	return &QueueService{
		storage: s,
		log:     log,
	}
}

// QueueAssignment is one (game, position) pair of a reorder request.
type QueueAssignment struct {
	UserGameID string `json:"id"`
	Position   int    `json:"position"`
}

// QueuePatch updates queue metadata; nil fields are left untouched.
type QueuePatch struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

// QueueWithStats pairs a queue with its derived aggregate.
type QueueWithStats struct {
	models.GameQueue
	Stats models.QueueStats `json:"stats"`
}

// CreateQueue creates a named queue for the user. Names are compared
// exactly, case-sensitive. The user's first queue becomes the default.
func (s *QueueService) CreateQueue(userID, name, description string) (*models.GameQueue, error) {
	const op = "services.queues.CreateQueue"

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	queue, err := createQueue(tx, userID, name, description, nil)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return queue, nil
}

// CreateQueueWithFilters creates a queue carrying filter tags and
// assigns every currently matching game into it with dense zero-based
// positions, all inside one transaction. The filter only selects at
// creation time; it never moves games afterwards.
func (s *QueueService) CreateQueueWithFilters(userID, name, description string, filterTags []string) (*models.GameQueue, error) {
	const op = "services.queues.CreateQueueWithFilters"

	norm := models.NormalizeTags(filterTags)

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	queue, err := createQueue(tx, userID, name, description, norm)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(norm) > 0 {
		matches, err := matchUserGamesByTags(tx, userID, norm, "")
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}

		// Matches may come out of other queues; those queues get
		// renumbered below so their positions stay dense.
		vacated := map[string]struct{}{}
		for i := range matches {
			if matches[i].QueueID != nil {
				vacated[*matches[i].QueueID] = struct{}{}
			}
			err := tx.Model(&models.UserGame{}).
				Where("id = ?", matches[i].ID).
				Updates(map[string]interface{}{
					"queue_id":       queue.ID,
					"queue_position": i,
				}).Error
			if err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}

		for queueID := range vacated {
			if err := compactQueuePositions(tx, queueID); err != nil {
				tx.Rollback()
				return nil, fmt.Errorf("%s: %w", op, err)
			}
		}
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return queue, nil
}

func createQueue(tx *gorm.DB, userID, name, description string, filterTags []string) (*models.GameQueue, error) {
	var existing models.GameQueue
	err := tx.Where("user_id = ? AND name = ?", userID, name).First(&existing).Error
	if err == nil {
		return nil, ErrDuplicateName
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	var count int64
	if err := tx.Model(&models.GameQueue{}).Where("user_id = ?", userID).Count(&count).Error; err != nil {
		return nil, err
	}

	queue := &models.GameQueue{
		UserID:      userID,
		Name:        name,
		Description: description,
		IsDefault:   count == 0,
		FilterTags:  filterTags,
	}

	if err := tx.Create(queue).Error; err != nil {
		return nil, err
	}

	return queue, nil
}

// FindNewMatches recomputes the queue's filter-tag match for games not
// yet in this queue. Unqueued games and members of other queues are
// eligible. Advisory only: nothing is assigned, and a missing queue or
// an empty filter yields an empty list rather than an error.
func (s *QueueService) FindNewMatches(userID, queueID string) ([]models.UserGame, error) {
	const op = "services.queues.FindNewMatches"

	var queue models.GameQueue
	err := s.storage.DB.Where("id = ? AND user_id = ?", queueID, userID).First(&queue).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return []models.UserGame{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if len(queue.FilterTags) == 0 {
		return []models.UserGame{}, nil
	}

	matches, err := matchUserGamesByTags(s.storage.DB, userID, models.NormalizeTags(queue.FilterTags), queueID)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return matches, nil
}

// ReorderQueue applies each (game, position) assignment to members of
// the queue. Supplying a complete, dense, non-conflicting set is the
// caller's contract; assignments are applied independently.
func (s *QueueService) ReorderQueue(userID, queueID string, orders []QueueAssignment) error {
	const op = "services.queues.ReorderQueue"

	var queue models.GameQueue
	if err := s.storage.DB.Where("id = ? AND user_id = ?", queueID, userID).First(&queue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	for _, o := range orders {
		err := tx.Model(&models.UserGame{}).
			Where("id = ? AND queue_id = ?", o.UserGameID, queueID).
			Update("queue_position", o.Position).Error
		if err != nil {
			tx.Rollback()
			return fmt.Errorf("%s: %w", op, err)
		}
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// UpdateQueue renames or re-describes a queue. Renaming onto an existing
// name fails with ErrDuplicateName.
func (s *QueueService) UpdateQueue(userID, queueID string, patch QueuePatch) (*models.GameQueue, error) {
	const op = "services.queues.UpdateQueue"

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return nil, fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	var queue models.GameQueue
	if err := tx.Where("id = ? AND user_id = ?", queueID, userID).First(&queue).Error; err != nil {
		tx.Rollback()
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if patch.Name != nil && *patch.Name != queue.Name {
		var existing models.GameQueue
		err := tx.Where("user_id = ? AND name = ?", userID, *patch.Name).First(&existing).Error
		if err == nil {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, ErrDuplicateName)
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			tx.Rollback()
			return nil, fmt.Errorf("%s: %w", op, err)
		}
		queue.Name = *patch.Name
	}

	if patch.Description != nil {
		queue.Description = *patch.Description
	}

	if err := tx.Save(&queue).Error; err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &queue, nil
}

// DeleteQueue removes a non-default queue. Members are released back to
// an unqueued state; the games themselves, their tags and status are
// untouched. Deleting the default queue fails with ErrForbidden.
func (s *QueueService) DeleteQueue(userID, queueID string) error {
	const op = "services.queues.DeleteQueue"

	var queue models.GameQueue
	if err := s.storage.DB.Where("id = ? AND user_id = ?", queueID, userID).First(&queue).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return fmt.Errorf("%s: %w", op, err)
	}

	if queue.IsDefault {
		return fmt.Errorf("%s: %w", op, ErrForbidden)
	}

	tx := s.storage.DB.Begin()
	if tx.Error != nil {
		return fmt.Errorf("%s: %w", op, tx.Error)
	}

	defer func() {
		if r := recover(); r != nil {
			tx.Rollback()
		}
	}()

	err := tx.Model(&models.UserGame{}).
		Where("queue_id = ?", queueID).
		Updates(map[string]interface{}{
			"queue_id":       nil,
			"queue_position": nil,
		}).Error
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Delete(&models.GameQueue{}, "id = ?", queueID).Error; err != nil {
		tx.Rollback()
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := tx.Commit().Error; err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// GetUserQueues returns the user's queues with their member games in
// position order and the derived stats for each.
func (s *QueueService) GetUserQueues(userID string) ([]QueueWithStats, error) {
	const op = "services.queues.GetUserQueues"

	var queues []models.GameQueue
	err := s.storage.DB.
		Preload("Games", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_games.queue_position ASC")
		}).
		Preload("Games.Game").
		Where("user_id = ?", userID).
		Order("created_at ASC").
		Find(&queues).Error
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	out := make([]QueueWithStats, 0, len(queues))
	for i := range queues {
		out = append(out, QueueWithStats{
			GameQueue: queues[i],
			Stats:     ComputeQueueStats(&queues[i]),
		})
	}

	return out, nil
}

// GetQueue returns one of the user's queues with ordered members and
// derived stats.
func (s *QueueService) GetQueue(userID, queueID string) (*QueueWithStats, error) {
	const op = "services.queues.GetQueue"

	var queue models.GameQueue
	err := s.storage.DB.
		Preload("Games", func(db *gorm.DB) *gorm.DB {
			return db.Order("user_games.queue_position ASC")
		}).
		Preload("Games.Game").
		Where("id = ? AND user_id = ?", queueID, userID).
		First(&queue).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &QueueWithStats{
		GameQueue: queue,
		Stats:     ComputeQueueStats(&queue),
	}, nil
}

// compactQueuePositions renumbers a queue's members 0..n-1 in their
// current order. Called inside the transaction of any operation that
// removed a member, so positions stay dense with no gaps.
func compactQueuePositions(tx *gorm.DB, queueID string) error {
	var members []models.UserGame
	err := tx.Where("queue_id = ?", queueID).
		Order("queue_position ASC").
		Find(&members).Error
	if err != nil {
		return err
	}

	for i := range members {
		if members[i].QueuePosition != nil && *members[i].QueuePosition == i {
			continue
		}
		err := tx.Model(&models.UserGame{}).
			Where("id = ?", members[i].ID).
			Update("queue_position", i).Error
		if err != nil {
			return err
		}
	}

	return nil
}

// nextQueuePosition returns (max position)+1 within a queue, or 0 for an
// empty queue.
func nextQueuePosition(tx *gorm.DB, queueID string) (int, error) {
	var last models.UserGame
	err := tx.Where("queue_id = ?", queueID).
		Order("queue_position DESC").
		First(&last).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	if last.QueuePosition == nil {
		return 0, nil
	}
	return *last.QueuePosition + 1, nil
}
