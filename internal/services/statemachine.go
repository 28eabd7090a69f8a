package services

import "questlog/internal/models"

// stateTransitions is the full lifecycle table. COMPLETED and ABANDONED
// have no edge back to WISHLIST: a finished or dropped game has to
// re-enter active play before it can return to an undecided bucket.
var stateTransitions = map[models.GameStatus][]models.GameStatus{
	models.StatusWishlist:  {models.StatusBacklog, models.StatusPlaying},
	models.StatusBacklog:   {models.StatusWishlist, models.StatusPlaying},
	models.StatusPlaying:   {models.StatusBacklog, models.StatusCompleted, models.StatusAbandoned},
	models.StatusCompleted: {models.StatusPlaying},
	models.StatusAbandoned: {models.StatusBacklog, models.StatusPlaying},
}

// IsValidTransition reports whether the lifecycle table allows moving
// from one status to another. Self-transitions and unrecognized labels
// are always rejected.
func IsValidTransition(from, to models.GameStatus) bool {
	if from == to {
		return false
	}
	for _, allowed := range stateTransitions[from] {
		if allowed == to {
			return true
		}
	}
	return false
}

// ValidTransitions returns the allowed targets for a status, or an empty
// slice for unrecognized labels.
func ValidTransitions(from models.GameStatus) []models.GameStatus {
	row, ok := stateTransitions[from]
	if !ok {
		return []models.GameStatus{}
	}
	out := make([]models.GameStatus, len(row))
	copy(out, row)
	return out
}
