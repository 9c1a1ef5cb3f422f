package engine

import "time"

// Points awarded per locked crate before move and time penalties
const PointsPerLock = 100

// DisplayScore derives the HUD score: 100 per locked crate, minus one per
// move and one per elapsed second, never below zero. It is presentation only.
func DisplayScore(score Score, elapsed time.Duration) int {
	v := PointsPerLock*score.Scored - score.Moves - int(elapsed/time.Second)
	if v < 0 {
		return 0
	}
	return v
}
