package game

import (
	"math"
	"time"
)

// TimeLimit returns the limit of the next turn. Limits shrink by cfg.TimeStep
// after every full rotation of the players and never drop below cfg.MinTime.
func TimeLimit(cfg Config, turnsStarted, playerCount int) time.Duration {
	if playerCount < 1 {
		playerCount = 1
	}
	cycle := turnsStarted / playerCount
	limit := cfg.BaseTime - time.Duration(cycle)*cfg.TimeStep
	if limit < cfg.MinTime {
		limit = cfg.MinTime
	}
	return limit
}

// Gain scores an accepted answer by the share of the limit left, 0..100.
func Gain(limit, elapsed time.Duration) int {
	if limit <= 0 {
		return 0
	}
	if elapsed < 0 {
		elapsed = 0
	}
	remaining := limit - elapsed
	if remaining < 0 {
		remaining = 0
	}
	return int(math.Round(float64(remaining) / float64(limit) * 100))
}
