// Package scoring computes practice scores from elapsed time and character
// count using table-driven duration profiles.
package scoring

import (
	"github.com/hanasu-app/hanasu/internal/domain"
)

// Evaluate is a pure function of (elapsed seconds, character count, profile).
// It returns a disqualified result (Passed=false, Score=0) when the attempt
// falls outside the profile's time window or character minimum, or when the
// penalty drives the score to zero or below.
func Evaluate(elapsedSeconds, charCount int, p Profile) domain.ScoreResult {
	if disqualified(elapsedSeconds, charCount, p) {
		return domain.ScoreResult{}
	}

	tb := nearest(elapsedSeconds, p.TimeBases)
	cb := nearest(charCount, p.CharBases)

	score := p.BaseScores[tb]

	// Only a positive mismatch (too little text for the time bucket
	// reached) incurs a penalty. Indexes are looked up by value, so a
	// duplicated bucket value resolves to its first occurrence.
	diff := indexOf(tb, p.TimeBases) - indexOf(cb, p.CharBases)
	if diff > 0 {
		score -= diff * 10
	}

	if score <= 0 {
		return domain.ScoreResult{}
	}
	return domain.ScoreResult{Score: score, Passed: true}
}

func disqualified(elapsed, charCount int, p Profile) bool {
	if elapsed < p.MinSeconds {
		return true
	}
	if p.InclusiveMax {
		if elapsed > p.MaxSeconds {
			return true
		}
	} else if elapsed >= p.MaxSeconds {
		return true
	}
	return charCount < p.MinChars
}

// nearest returns the bucket value with the minimum absolute difference to
// v. Ties resolve to the earliest candidate in array order.
func nearest(v int, bases []int) int {
	best := bases[0]
	for _, b := range bases[1:] {
		if abs(b-v) < abs(best-v) {
			best = b
		}
	}
	return best
}

func indexOf(v int, bases []int) int {
	for i, b := range bases {
		if b == v {
			return i
		}
	}
	return -1
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
