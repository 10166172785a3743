package service

import (
	"math"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// Quiz row statuses.
const (
	QuizStatusPassed    = "Passed"
	QuizStatusNotPassed = "Not passed"
	QuizStatusNotTaken  = "Not taken"
)

// MissingQuizTitle is shown when a quiz id has no known title.
const MissingQuizTitle = "—"

// AttemptGroup holds the best attempt of a quiz and how many attempts were made.
type AttemptGroup struct {
	Best  models.QuizAttempt
	Count int
}

// QuizResultRow is one line of the quiz table in a report.
type QuizResultRow struct {
	QuizID     uint    `json:"quiz_id"`
	Title      string  `json:"title"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Attempts   int     `json:"attempts"`
	Status     string  `json:"status"`
}

// ReduceAttempts groups the attempts of a course by quiz and keeps the best of each group.
// A passing attempt beats a failing one whatever the score; otherwise the higher
// effective percentage wins and the earlier attempt wins a full tie.
func ReduceAttempts(attempts []models.QuizAttempt, courseID uint) map[uint]AttemptGroup {
	groups := make(map[uint]AttemptGroup)
	for _, attempt := range attempts {
		if attempt.CourseID != courseID {
			continue
		}
		group, ok := groups[attempt.QuizID]
		if !ok {
			groups[attempt.QuizID] = AttemptGroup{Best: attempt, Count: 1}
			continue
		}
		group.Count++
		if betterAttempt(attempt, group.Best) {
			group.Best = attempt
		}
		groups[attempt.QuizID] = group
	}
	return groups
}

func betterAttempt(candidate, current models.QuizAttempt) bool {
	if candidate.Pass != current.Pass {
		return candidate.Pass
	}
	return candidate.EffectivePercentage() > current.EffectivePercentage()
}

// QuizResultRows lays out one row per ordered quiz id. Quizzes without attempts
// get a synthesized "Not taken" row.
func QuizResultRows(groups map[uint]AttemptGroup, orderedQuizIDs []uint, titles map[uint]string) []QuizResultRow {
	rows := make([]QuizResultRow, 0, len(orderedQuizIDs))
	for _, quizID := range orderedQuizIDs {
		title, ok := titles[quizID]
		if !ok || title == "" {
			title = MissingQuizTitle
		}

		row := QuizResultRow{QuizID: quizID, Title: title}
		if group, ok := groups[quizID]; ok {
			row.Percentage = roundTo(group.Best.EffectivePercentage(), 2)
			row.Passed = group.Best.Pass
			row.Attempts = group.Count
		}
		row.Status = quizStatus(row.Passed, row.Percentage)
		rows = append(rows, row)
	}
	return rows
}

func quizStatus(passed bool, percentage float64) string {
	switch {
	case passed:
		return QuizStatusPassed
	case percentage > 0:
		return QuizStatusNotPassed
	default:
		return QuizStatusNotTaken
	}
}

func roundTo(value float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(value*factor) / factor
}
