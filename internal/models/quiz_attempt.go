package models

// QuizAttempt is one recorded result of a user for a quiz.
// Optional score fields stay nil when the host record omits them.
type QuizAttempt struct {
	QuizID          uint     `json:"quiz_id"`
	CourseID        uint     `json:"course_id"`
	Timestamp       int64    `json:"timestamp"`
	Pass            bool     `json:"pass"`
	Percentage      *float64 `json:"percentage,omitempty"`
	ScorePercentage *float64 `json:"score_percentage,omitempty"`
	Score           *float64 `json:"score,omitempty"`
	Count           *float64 `json:"count,omitempty"`
}

// EffectivePercentage reads percentage, then score_percentage, then score/count*100.
func (a QuizAttempt) EffectivePercentage() float64 {
	switch {
	case a.Percentage != nil:
		return *a.Percentage
	case a.ScorePercentage != nil:
		return *a.ScorePercentage
	case a.Count != nil && *a.Count > 0:
		score := 0.0
		if a.Score != nil {
			score = *a.Score
		}
		return score / *a.Count * 100
	default:
		return 0
	}
}
