// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "math"

// Decorate fills the derived fields of a leaderboard entry.
func (e LeaderboardEntry) Decorate() LeaderboardEntry {
	e.Accuracy = 0
	if e.Total > 0 {
		e.Accuracy = int(math.Round(float64(e.Correct) / float64(e.Total) * 100))
	}
	e.Level = e.Points/100 + 1
	return e
}
