package domain

// ScoreResult is the outcome of judging one attempt. A disqualified attempt
// has Passed=false and no numeric score (Score is zero). Results are
// derived, never mutated: each Judge recomputes a fresh value.
type ScoreResult struct {
	Score  int  `json:"score"`
	Passed bool `json:"passed"`
}
