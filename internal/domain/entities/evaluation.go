package entities

import (
	"encoding/json"
)

// Score bounds for a single demeanor dimension.
const (
	ScoreMin     = 1
	ScoreMax     = 10
	ScoreDefault = 5
)

// EvaluationScores holds the three demeanor dimensions produced by one
// scoring cycle. Values are always within [ScoreMin, ScoreMax]; a scores
// object is produced whole and never partially updated.
type EvaluationScores struct {
	Professionalism int `json:"professionalism"`
	Friendliness    int `json:"friendliness"`
	Helpfulness     int `json:"helpfulness"`
}

// DefaultScores returns the mid-scale scores used when no transcript is
// available or the scoring pipeline fails.
func DefaultScores() EvaluationScores {
	return EvaluationScores{
		Professionalism: ScoreDefault,
		Friendliness:    ScoreDefault,
		Helpfulness:     ScoreDefault,
	}
}

// ScoresFromJSON parses pipeline output into a normalized scores object.
// Missing or zero fields default to mid-scale before clamping, so an
// upstream 0 or null becomes 5 rather than being clamped to 1.
func ScoresFromJSON(raw string) (EvaluationScores, error) {
	var parsed EvaluationScores
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return EvaluationScores{}, err
	}
	parsed.Professionalism = normalizeScore(parsed.Professionalism)
	parsed.Friendliness = normalizeScore(parsed.Friendliness)
	parsed.Helpfulness = normalizeScore(parsed.Helpfulness)
	return parsed, nil
}

func normalizeScore(v int) int {
	if v == 0 {
		v = ScoreDefault
	}
	if v < ScoreMin {
		return ScoreMin
	}
	if v > ScoreMax {
		return ScoreMax
	}
	return v
}
