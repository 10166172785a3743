package service

import (
	"math"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// StepCounts is the host-reported lesson and topic completion of a user in a course.
type StepCounts struct {
	Completed int
	Total     int
}

// ProgressSummary combines lesson/topic completion with passed course quizzes.
// It is recomputed for every report and never stored.
type ProgressSummary struct {
	StepsCompleted int    `json:"steps_completed"`
	StepsTotal     int    `json:"steps_total"`
	Percent        int    `json:"percent"`
	OrderedQuizIDs []uint `json:"ordered_quiz_ids"`
}

// CalculateProgress adds every distinct quiz to the step total and every quiz with a
// passing attempt in this course to the completed steps.
func CalculateProgress(counts StepCounts, quizIDs []uint, attempts []models.QuizAttempt, courseID uint) ProgressSummary {
	completed := max(counts.Completed, 0)
	total := max(counts.Total, 0)

	ordered := make([]uint, 0, len(quizIDs))
	seen := make(map[uint]struct{}, len(quizIDs))
	for _, id := range quizIDs {
		if id == 0 {
			continue
		}
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		ordered = append(ordered, id)
	}

	passed := 0
	for _, quizID := range ordered {
		if quizPassed(quizID, courseID, attempts) {
			passed++
		}
	}

	completed += passed
	total += len(ordered)

	return ProgressSummary{
		StepsCompleted: completed,
		StepsTotal:     total,
		Percent:        percentOf(completed, total),
		OrderedQuizIDs: ordered,
	}
}

func quizPassed(quizID, courseID uint, attempts []models.QuizAttempt) bool {
	for _, attempt := range attempts {
		if attempt.QuizID == quizID && attempt.CourseID == courseID && attempt.Pass {
			return true
		}
	}
	return false
}

// percentOf rounds half away from zero and keeps the result within [0, 100].
func percentOf(completed, total int) int {
	if total <= 0 {
		return 0
	}
	percent := int(math.Round(float64(completed) / float64(total) * 100))
	return min(max(percent, 0), 100)
}
