package services

import (
	"errors"
	"fmt"

	"questlog/internal/models"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrDuplicateName  = errors.New("queue name already exists")
	ErrDuplicateTag   = errors.New("tag already exists")
	ErrEmptyTag       = errors.New("tag is empty")
	ErrForbidden      = errors.New("forbidden")
	ErrUnknownStatus  = errors.New("unknown status")
	ErrExternalLookup = errors.New("external lookup failed")
)

// InvalidTransitionError rejects a status change and carries the current
// state plus the targets that would have been accepted.
type InvalidTransitionError struct {
	From    models.GameStatus
	To      models.GameStatus
	Allowed []models.GameStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("invalid transition from %s to %s", e.From, e.To)
}
