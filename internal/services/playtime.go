package services

import "questlog/internal/models"

// EffectiveMainTime returns the duration estimate to use for a game's
// main story: the user's custom override when it is a positive number,
// else the catalog estimate, else nil. A custom value of exactly zero is
// treated as unset and falls back.
func EffectiveMainTime(ug *models.UserGame) *int {
	if ug == nil {
		return nil
	}
	if ug.CustomMainTime != nil && *ug.CustomMainTime > 0 {
		return ug.CustomMainTime
	}
	return ug.Game.MainTime
}

// EffectiveCompletionTime is EffectiveMainTime for the completionist
// estimate.
func EffectiveCompletionTime(ug *models.UserGame) *int {
	if ug == nil {
		return nil
	}
	if ug.CustomCompletionTime != nil && *ug.CustomCompletionTime > 0 {
		return ug.CustomCompletionTime
	}
	return ug.Game.CompletionTime
}

// ComputeQueueStats aggregates effective times over a queue's members.
// Games without time data contribute zero rather than failing the sum.
func ComputeQueueStats(queue *models.GameQueue) models.QueueStats {
	var stats models.QueueStats

	for i := range queue.Games {
		ug := &queue.Games[i]

		if main := EffectiveMainTime(ug); main != nil {
			stats.TotalMainTime += *main
			stats.CompletedTime += float64(*main) * float64(ug.ProgressPercent) / 100
		}

		if completion := EffectiveCompletionTime(ug); completion != nil {
			stats.TotalCompletionTime += *completion
		}
	}

	stats.RemainingTime = float64(stats.TotalMainTime) - stats.CompletedTime
	stats.TotalGames = len(queue.Games)

	return stats
}
