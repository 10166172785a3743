package service

import (
	"context"
	"errors"
	"fmt"
	"iter"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

// ErrReportNotFound is returned when the user or course of a report does not exist.
var ErrReportNotFound = errors.New("report subject not found")

// CourseReport is everything the printable evidence report shows for one (course, user) pair.
// Evidence can be ranged once.
type CourseReport struct {
	CourseID        uint
	CourseTitle     string
	UserID          uint
	UserDisplayName string
	UserEmail       string
	LessonTitles    []string
	Progress        ProgressSummary
	Evidence        iter.Seq[EvidenceLine]
	Quizzes         []QuizResultRow
	GeneratedAt     time.Time
}

// ReportService assembles course evidence reports.
type ReportService interface {
	Build(ctx context.Context, courseID, userID uint) (CourseReport, error)
	Progress(ctx context.Context, userID, courseID uint) (ProgressSummary, error)
}

type reportService struct {
	users       repository.UserRepository
	courses     repository.CourseRepository
	completions repository.CompletionRepository
	attempts    repository.QuizAttemptRepository
	outlines    CourseOutlineService
	evidenceTag string
	logger      zerolog.Logger
	tracer      trace.Tracer
	now         func() time.Time
}

// NewReportService constructs the report assembler.
func NewReportService(
	users repository.UserRepository,
	courses repository.CourseRepository,
	completions repository.CompletionRepository,
	attempts repository.QuizAttemptRepository,
	outlines CourseOutlineService,
	evidenceTag string,
	logger zerolog.Logger,
) ReportService {
	return &reportService{
		users:       users,
		courses:     courses,
		completions: completions,
		attempts:    attempts,
		outlines:    outlines,
		evidenceTag: evidenceTag,
		logger:      logger.With().Str("component", "report_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-evidence-api/internal/service/report"),
		now:         time.Now,
	}
}

func (s *reportService) Build(ctx context.Context, courseID, userID uint) (CourseReport, error) {
	ctx, span := s.tracer.Start(ctx, "report.build", trace.WithAttributes(
		attribute.Int64("report.course_id", int64(courseID)),
		attribute.Int64("report.user_id", int64(userID)),
	))
	defer span.End()

	if courseID == 0 || userID == 0 {
		span.SetStatus(codes.Error, "missing_subject")
		return CourseReport{}, ErrReportNotFound
	}

	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		return CourseReport{}, s.fail(span, "user_lookup_failed", translateNotFound(err))
	}

	outline, err := s.outlines.Outline(ctx, courseID)
	if err != nil {
		return CourseReport{}, s.fail(span, "outline_failed", translateNotFound(err))
	}

	attempts, err := s.loadAttempts(ctx, userID)
	if err != nil {
		return CourseReport{}, s.fail(span, "attempts_failed", err)
	}

	summary, err := s.progress(ctx, userID, outline, attempts)
	if err != nil {
		return CourseReport{}, s.fail(span, "progress_failed", err)
	}

	titles, err := s.courses.QuizTitles(ctx, summary.OrderedQuizIDs)
	if err != nil {
		return CourseReport{}, s.fail(span, "quiz_titles_failed", err)
	}
	rows := QuizResultRows(ReduceAttempts(attempts, courseID), summary.OrderedQuizIDs, titles)

	evidence, err := s.evidence(ctx, userID, courseID)
	if err != nil {
		return CourseReport{}, s.fail(span, "evidence_failed", err)
	}

	span.SetAttributes(
		attribute.Int("report.percent", summary.Percent),
		attribute.Int("report.quizzes", len(rows)),
	)

	return CourseReport{
		CourseID:        courseID,
		CourseTitle:     outline.Title,
		UserID:          user.ID,
		UserDisplayName: user.DisplayName,
		UserEmail:       user.Email,
		LessonTitles:    outline.LessonTitles(),
		Progress:        summary,
		Evidence:        evidence,
		Quizzes:         rows,
		GeneratedAt:     s.now().UTC(),
	}, nil
}

func (s *reportService) Progress(ctx context.Context, userID, courseID uint) (ProgressSummary, error) {
	ctx, span := s.tracer.Start(ctx, "report.progress", trace.WithAttributes(
		attribute.Int64("report.course_id", int64(courseID)),
		attribute.Int64("report.user_id", int64(userID)),
	))
	defer span.End()

	if courseID == 0 || userID == 0 {
		span.SetStatus(codes.Error, "missing_subject")
		return ProgressSummary{}, ErrReportNotFound
	}

	outline, err := s.outlines.Outline(ctx, courseID)
	if err != nil {
		return ProgressSummary{}, s.fail(span, "outline_failed", translateNotFound(err))
	}

	attempts, err := s.loadAttempts(ctx, userID)
	if err != nil {
		return ProgressSummary{}, s.fail(span, "attempts_failed", err)
	}

	summary, err := s.progress(ctx, userID, outline, attempts)
	if err != nil {
		return ProgressSummary{}, s.fail(span, "progress_failed", err)
	}
	return summary, nil
}

func (s *reportService) progress(ctx context.Context, userID uint, outline CourseOutline, attempts []models.QuizAttempt) (ProgressSummary, error) {
	completed, total, err := s.completions.CourseStepCounts(ctx, userID, outline.CourseID)
	if err != nil {
		return ProgressSummary{}, fmt.Errorf("count steps: %w", err)
	}
	counts := StepCounts{Completed: completed, Total: total}
	return CalculateProgress(counts, OrderedQuizIDs(outline), attempts, outline.CourseID), nil
}

// loadAttempts treats an undecodable quiz history as no attempts.
func (s *reportService) loadAttempts(ctx context.Context, userID uint) ([]models.QuizAttempt, error) {
	attempts, err := s.attempts.ListAttempts(ctx, userID)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidQuizHistory) {
			s.logger.Warn().Err(err).Uint("user_id", userID).Msg("quiz history ignored")
			return nil, nil
		}
		return nil, fmt.Errorf("load quiz attempts: %w", err)
	}
	return attempts, nil
}

func (s *reportService) evidence(ctx context.Context, userID, courseID uint) (iter.Seq[EvidenceLine], error) {
	topics, err := s.courses.ListTaggedTopics(ctx, courseID, s.evidenceTag)
	if err != nil {
		return nil, fmt.Errorf("list evidence topics: %w", err)
	}
	completed, err := s.completions.CompletedTopicIDs(ctx, userID, courseID)
	if err != nil {
		return nil, fmt.Errorf("list completed topics: %w", err)
	}

	evidenceTopics := make([]EvidenceTopic, 0, len(topics))
	for _, topic := range topics {
		evidenceTopics = append(evidenceTopics, EvidenceTopic{ID: topic.ID, Title: topic.Title, Excerpt: topic.Excerpt})
	}

	return ExtractEvidence(evidenceTopics, func(topicID uint) bool {
		_, ok := completed[topicID]
		return ok
	}), nil
}

func (s *reportService) fail(span trace.Span, status string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, status)
	return err
}

func translateNotFound(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) || errors.Is(err, ErrCourseNotFound) {
		return ErrReportNotFound
	}
	return err
}
