package repository

import (
	"context"
	"errors"

	"github.com/tidwall/gjson"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// ErrInvalidQuizHistory reports a stored quiz history that is not a JSON document.
var ErrInvalidQuizHistory = errors.New("quiz history is not valid json")

// QuizAttemptRepository exposes the raw quiz-attempt history of a user as typed records.
type QuizAttemptRepository interface {
	ListAttempts(ctx context.Context, userID uint) ([]models.QuizAttempt, error)
}

type quizAttemptRepository struct {
	meta UserMetaRepository
}

// NewQuizAttemptRepository reads the history stored under models.QuizHistoryMetaKey.
func NewQuizAttemptRepository(meta UserMetaRepository) QuizAttemptRepository {
	return &quizAttemptRepository{meta: meta}
}

func (r *quizAttemptRepository) ListAttempts(ctx context.Context, userID uint) ([]models.QuizAttempt, error) {
	raw, ok, err := r.meta.Get(ctx, userID, models.QuizHistoryMetaKey)
	if err != nil {
		return nil, err
	}
	if !ok {
		return []models.QuizAttempt{}, nil
	}
	return DecodeQuizHistory([]byte(raw))
}

// DecodeQuizHistory converts the host's loosely typed attempt list into QuizAttempt records.
// Numbers may arrive as JSON numbers or strings; missing fields stay at their zero value.
// The history may be an array or an object keyed by attempt index.
func DecodeQuizHistory(raw []byte) ([]models.QuizAttempt, error) {
	if len(raw) == 0 {
		return []models.QuizAttempt{}, nil
	}
	if !gjson.ValidBytes(raw) {
		return []models.QuizAttempt{}, ErrInvalidQuizHistory
	}

	root := gjson.ParseBytes(raw)
	if !root.IsArray() && !root.IsObject() {
		return []models.QuizAttempt{}, nil
	}

	attempts := make([]models.QuizAttempt, 0)
	root.ForEach(func(_, item gjson.Result) bool {
		if !item.IsObject() {
			return true
		}
		attempts = append(attempts, models.QuizAttempt{
			QuizID:          uint(item.Get("quiz").Uint()),
			CourseID:        uint(item.Get("course").Uint()),
			Timestamp:       item.Get("time").Int(),
			Pass:            truthy(item.Get("pass")),
			Percentage:      optionalFloat(item.Get("percentage")),
			ScorePercentage: optionalFloat(item.Get("score_percentage")),
			Score:           optionalFloat(item.Get("score")),
			Count:           optionalFloat(item.Get("count")),
		})
		return true
	})

	return attempts, nil
}

func optionalFloat(value gjson.Result) *float64 {
	if !value.Exists() || value.Type == gjson.Null {
		return nil
	}
	f := value.Float()
	return &f
}

func truthy(value gjson.Result) bool {
	switch value.Type {
	case gjson.True:
		return true
	case gjson.Number:
		return value.Num != 0
	case gjson.String:
		return value.Str != "" && value.Str != "0"
	case gjson.JSON:
		return value.Raw != "[]" && value.Raw != "{}"
	default:
		return false
	}
}
