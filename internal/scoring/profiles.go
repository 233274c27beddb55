package scoring

// Profile holds the fixed scoring tables for one duration limit. The
// numeric tables are load-bearing business rules and must not be adjusted
// without product confirmation.
type Profile struct {
	LimitSeconds int
	TimeBases    []int
	CharBases    []int
	BaseScores   map[int]int
	MinChars     int
	MinSeconds   int
	MaxSeconds   int

	// InclusiveMax marks profiles that allow elapsed == MaxSeconds and
	// disqualify only strictly above it. The 10-second challenge is the
	// sole such profile; all others disqualify at elapsed >= MaxSeconds.
	InclusiveMax bool
}

var profiles = map[int]Profile{
	10: {
		LimitSeconds: 10,
		TimeBases:    []int{8, 9, 10, 11},
		CharBases:    []int{30, 40, 50, 40},
		BaseScores:   map[int]int{8: 70, 9: 80, 10: 100, 11: 80},
		MinChars:     30,
		MinSeconds:   8,
		MaxSeconds:   12,
		InclusiveMax: true,
	},
	// The 40-second window (min 70, max 61) is empty: every elapsed value
	// is disqualified. Preserved as shipped; flagged for product review.
	40: {
		LimitSeconds: 40,
		TimeBases:    []int{20, 30, 40, 50, 60},
		CharBases:    []int{150, 175, 200, 225, 250},
		BaseScores:   map[int]int{20: 70, 30: 80, 40: 100, 50: 80, 60: 70},
		MinChars:     200,
		MinSeconds:   70,
		MaxSeconds:   61,
	},
	60: {
		LimitSeconds: 60,
		TimeBases:    []int{20, 30, 40, 50, 60},
		CharBases:    []int{100, 150, 200, 250, 300},
		BaseScores:   map[int]int{20: 60, 30: 70, 40: 80, 50: 100, 60: 80},
		MinChars:     100,
		MinSeconds:   20,
		MaxSeconds:   62,
	},
	90: {
		LimitSeconds: 90,
		TimeBases:    []int{50, 60, 70, 80, 90},
		CharBases:    []int{200, 240, 280, 400, 360},
		BaseScores:   map[int]int{50: 60, 60: 70, 70: 80, 80: 100, 90: 80},
		MinChars:     200,
		MinSeconds:   50,
		MaxSeconds:   91,
	},
	120: {
		LimitSeconds: 120,
		TimeBases:    []int{80, 90, 100, 110, 120},
		CharBases:    []int{320, 360, 400, 550, 480},
		BaseScores:   map[int]int{80: 60, 90: 70, 100: 80, 110: 100, 120: 80},
		MinChars:     320,
		MinSeconds:   80,
		MaxSeconds:   121,
	},
}

// ProfileFor returns the scoring profile for a duration limit. Unknown
// limits fall back to the default 60-second profile.
func ProfileFor(limitSeconds int) Profile {
	if p, ok := profiles[limitSeconds]; ok {
		return p
	}
	return profiles[60]
}

// Limits returns the duration limits with a defined profile, in ascending
// order.
func Limits() []int {
	return []int{10, 40, 60, 90, 120}
}
