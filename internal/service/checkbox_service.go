package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

var (
	// ErrStepNotFound is returned when the post id is neither a lesson nor a topic.
	ErrStepNotFound = errors.New("lesson or topic not found")
	// ErrCheckboxesIncomplete is returned when completion is requested before every checkbox is ticked.
	ErrCheckboxesIncomplete = errors.New("not every checkbox is checked")
)

// StepState describes a learner's position on a lesson or topic.
type StepState struct {
	PostID       uint   `json:"post_id"`
	StepType     string `json:"step_type"`
	CourseID     uint   `json:"course_id"`
	Checkboxes   int    `json:"checkboxes"`
	Checked      []int  `json:"checked"`
	Completed    bool   `json:"completed"`
	NextUnlocked bool   `json:"next_unlocked"`
}

// CheckboxService gates step completion behind the checkboxes embedded in step content.
type CheckboxService interface {
	Save(ctx context.Context, userID, postID uint, checked []int) ([]int, error)
	Load(ctx context.Context, userID, postID uint) ([]int, error)
	MarkComplete(ctx context.Context, userID, postID uint) (StepState, error)
	View(ctx context.Context, userID, postID uint) (StepState, error)
}

type checkboxService struct {
	courses     repository.CourseRepository
	completions repository.CompletionRepository
	meta        repository.UserMetaRepository
	activity    ActivityRecorder
	logger      zerolog.Logger
	now         func() time.Time
}

// NewCheckboxService constructs the checkbox gate. activity may be nil.
func NewCheckboxService(
	courses repository.CourseRepository,
	completions repository.CompletionRepository,
	meta repository.UserMetaRepository,
	activity ActivityRecorder,
	logger zerolog.Logger,
) CheckboxService {
	return &checkboxService{
		courses:     courses,
		completions: completions,
		meta:        meta,
		activity:    activity,
		logger:      logger.With().Str("component", "checkbox_service").Logger(),
		now:         time.Now,
	}
}

func (s *checkboxService) Save(ctx context.Context, userID, postID uint, checked []int) ([]int, error) {
	if _, err := s.step(ctx, postID); err != nil {
		return nil, err
	}

	normalized := normalizeChecked(checked)
	payload, err := json.Marshal(normalized)
	if err != nil {
		return nil, err
	}
	if err := s.meta.Set(ctx, userID, models.CheckboxMetaKey(postID), string(payload)); err != nil {
		return nil, fmt.Errorf("save checkboxes: %w", err)
	}
	return normalized, nil
}

func (s *checkboxService) Load(ctx context.Context, userID, postID uint) ([]int, error) {
	raw, ok, err := s.meta.Get(ctx, userID, models.CheckboxMetaKey(postID))
	if err != nil {
		return nil, err
	}
	if !ok || strings.TrimSpace(raw) == "" {
		return []int{}, nil
	}

	var checked []int
	if err := json.Unmarshal([]byte(raw), &checked); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Uint("post_id", postID).Msg("discarding unreadable checkbox state")
		return []int{}, nil
	}
	return normalizeChecked(checked), nil
}

func (s *checkboxService) MarkComplete(ctx context.Context, userID, postID uint) (StepState, error) {
	state, step, err := s.state(ctx, userID, postID)
	if err != nil {
		return StepState{}, err
	}
	if state.Completed {
		return state, nil
	}
	if !allChecked(state.Checkboxes, state.Checked) {
		return state, ErrCheckboxesIncomplete
	}

	if err := s.complete(ctx, userID, step, "checkbox"); err != nil {
		return StepState{}, err
	}
	state.Completed = true
	state.NextUnlocked = true
	return state, nil
}

// View auto-completes steps without checkboxes.
func (s *checkboxService) View(ctx context.Context, userID, postID uint) (StepState, error) {
	state, step, err := s.state(ctx, userID, postID)
	if err != nil {
		return StepState{}, err
	}
	if state.Completed || state.Checkboxes > 0 {
		return state, nil
	}

	if err := s.complete(ctx, userID, step, "view"); err != nil {
		return StepState{}, err
	}
	state.Completed = true
	state.NextUnlocked = true
	return state, nil
}

func (s *checkboxService) state(ctx context.Context, userID, postID uint) (StepState, repository.Step, error) {
	step, err := s.step(ctx, postID)
	if err != nil {
		return StepState{}, repository.Step{}, err
	}

	completed, err := s.completions.IsComplete(ctx, userID, step.Type, step.ID)
	if err != nil {
		return StepState{}, repository.Step{}, err
	}
	checked, err := s.Load(ctx, userID, postID)
	if err != nil {
		return StepState{}, repository.Step{}, err
	}

	boxes := CountCheckboxes(step.Content)
	return StepState{
		PostID:       step.ID,
		StepType:     step.Type,
		CourseID:     step.CourseID,
		Checkboxes:   boxes,
		Checked:      checked,
		Completed:    completed,
		NextUnlocked: completed || (boxes > 0 && allChecked(boxes, checked)),
	}, step, nil
}

func (s *checkboxService) step(ctx context.Context, postID uint) (repository.Step, error) {
	if postID == 0 {
		return repository.Step{}, ErrStepNotFound
	}
	step, err := s.courses.FindStep(ctx, postID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return repository.Step{}, ErrStepNotFound
		}
		return repository.Step{}, err
	}
	return step, nil
}

func (s *checkboxService) complete(ctx context.Context, userID uint, step repository.Step, source string) error {
	created, err := s.completions.MarkComplete(ctx, userID, step, s.now().UTC())
	if err != nil {
		return fmt.Errorf("mark complete: %w", err)
	}
	if !created {
		return nil
	}

	observability.StepsCompleted().WithLabelValues(step.Type, source).Inc()
	s.logger.Info().Uint("user_id", userID).Str("step_type", step.Type).Uint("step_id", step.ID).Str("source", source).Msg("step completed")

	if s.activity != nil {
		stepID := step.ID
		_, err := s.activity.Record(ctx, ActivityEntry{
			ActorID:    userID,
			ActorRole:  "learner",
			Action:     models.ActionStepCompleted,
			EntityType: step.Type,
			EntityID:   &stepID,
			Metadata: map[string]interface{}{
				"course_id": step.CourseID,
				"source":    source,
			},
		})
		if err != nil {
			s.logger.Warn().Err(err).Msg("failed to record step completion")
		}
	}
	return nil
}

// CountCheckboxes counts the checkbox inputs in an HTML fragment.
func CountCheckboxes(content string) int {
	if !strings.Contains(strings.ToLower(content), "checkbox") {
		return 0
	}

	tokenizer := html.NewTokenizer(strings.NewReader(content))
	count := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return count
		case html.StartTagToken, html.SelfClosingTagToken:
			token := tokenizer.Token()
			if token.Data != "input" {
				continue
			}
			for _, attr := range token.Attr {
				if attr.Key == "type" && strings.EqualFold(strings.TrimSpace(attr.Val), "checkbox") {
					count++
					break
				}
			}
		}
	}
}

func normalizeChecked(checked []int) []int {
	seen := make(map[int]struct{}, len(checked))
	normalized := make([]int, 0, len(checked))
	for _, index := range checked {
		if index < 0 {
			continue
		}
		if _, ok := seen[index]; ok {
			continue
		}
		seen[index] = struct{}{}
		normalized = append(normalized, index)
	}
	sort.Ints(normalized)
	return normalized
}

// allChecked reports whether indices 0..boxes-1 are all present.
func allChecked(boxes int, checked []int) bool {
	if boxes == 0 {
		return true
	}
	set := make(map[int]struct{}, len(checked))
	for _, index := range checked {
		set[index] = struct{}{}
	}
	for i := 0; i < boxes; i++ {
		if _, ok := set[i]; !ok {
			return false
		}
	}
	return true
}
