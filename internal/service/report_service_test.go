package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

func newTestReportService(db *gorm.DB) ReportService {
	courses := repository.NewCourseRepository(db)
	meta := repository.NewUserMetaRepository(db)
	return NewReportService(
		repository.NewUserRepository(db),
		courses,
		repository.NewCompletionRepository(db),
		repository.NewQuizAttemptRepository(meta),
		NewCourseOutlineService(courses, nil, time.Minute, testLogger()),
		"evidencia",
		testLogger(),
	)
}

func TestReportServiceBuild(t *testing.T) {
	db := setupServiceDB(t)
	seedCourse(t, db)
	seedUser(t, db, models.User{ID: 7, DisplayName: "Rosa Díaz", Email: "rosa@example.com"})

	completions := repository.NewCompletionRepository(db)
	ctx := context.Background()
	for _, step := range []repository.Step{
		{Type: models.StepTypeLesson, ID: 10, CourseID: 1},
		{Type: models.StepTypeTopic, ID: 20, CourseID: 1},
		{Type: models.StepTypeTopic, ID: 22, CourseID: 1},
	} {
		_, err := completions.MarkComplete(ctx, 7, step, time.Now())
		require.NoError(t, err)
	}

	history := `[
		{"quiz":101,"course":1,"time":1,"pass":0,"percentage":40},
		{"quiz":101,"course":1,"time":2,"pass":1,"percentage":85.5},
		{"quiz":100,"course":1,"time":3,"pass":0,"score":2,"count":8},
		{"quiz":100,"course":2,"time":4,"pass":1,"percentage":100}
	]`
	require.NoError(t, repository.NewUserMetaRepository(db).Set(ctx, 7, models.QuizHistoryMetaKey, history))

	report, err := newTestReportService(db).Build(ctx, 1, 7)
	require.NoError(t, err)

	require.Equal(t, "Welding Basics", report.CourseTitle)
	require.Equal(t, "Rosa Díaz", report.UserDisplayName)
	require.Equal(t, []string{"Safety", "Practice"}, report.LessonTitles)

	// 3 of 5 steps plus 1 of 3 quizzes passed.
	require.Equal(t, 4, report.Progress.StepsCompleted)
	require.Equal(t, 8, report.Progress.StepsTotal)
	require.Equal(t, 50, report.Progress.Percent)

	require.Len(t, report.Quizzes, 3)
	require.Equal(t, QuizResultRow{QuizID: 100, Title: "Final exam", Percentage: 25, Attempts: 1, Status: QuizStatusNotPassed}, report.Quizzes[0])
	require.Equal(t, QuizResultRow{QuizID: 101, Title: "Safety check", Percentage: 85.5, Passed: true, Attempts: 2, Status: QuizStatusPassed}, report.Quizzes[1])
	require.Equal(t, QuizStatusNotTaken, report.Quizzes[2].Status)

	var lines []EvidenceLine
	for line := range report.Evidence {
		lines = append(lines, line)
	}
	require.Equal(t, []EvidenceLine{
		{TopicID: 20, Text: "Wear gloves", Completed: true},
		{TopicID: 20, Text: "Wear a mask", Completed: true},
		{TopicID: 21, Text: "Butt joint", Completed: false},
		{TopicID: 21, Text: "Lap joint", Completed: false},
	}, lines)
}

func TestReportServiceIgnoresUnreadableQuizHistory(t *testing.T) {
	db := setupServiceDB(t)
	seedCourse(t, db)
	seedUser(t, db, models.User{ID: 7})
	ctx := context.Background()
	require.NoError(t, repository.NewUserMetaRepository(db).Set(ctx, 7, models.QuizHistoryMetaKey, "a:1:{}"))

	summary, err := newTestReportService(db).Progress(ctx, 7, 1)
	require.NoError(t, err)
	require.Equal(t, 0, summary.StepsCompleted)
	require.Equal(t, 8, summary.StepsTotal)
	require.Equal(t, []uint{100, 101, 102}, summary.OrderedQuizIDs)
}

func TestReportServiceNotFound(t *testing.T) {
	db := setupServiceDB(t)
	seedCourse(t, db)
	seedUser(t, db, models.User{ID: 7})
	svc := newTestReportService(db)
	ctx := context.Background()

	_, err := svc.Build(ctx, 1, 0)
	require.ErrorIs(t, err, ErrReportNotFound)

	_, err = svc.Build(ctx, 1, 99)
	require.ErrorIs(t, err, ErrReportNotFound)

	_, err = svc.Build(ctx, 55, 7)
	require.ErrorIs(t, err, ErrReportNotFound)

	_, err = svc.Progress(ctx, 7, 0)
	require.ErrorIs(t, err, ErrReportNotFound)
}
