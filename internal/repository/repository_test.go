package repository

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{}, &models.Lesson{}, &models.Topic{}, &models.Tag{},
		&models.Quiz{}, &models.QuizPlacement{}, &models.StepCompletion{},
		&models.User{}, &models.Enrollment{}, &models.UserMeta{}, &models.ActivityLog{},
	))
	return db
}

func uintPtr(v uint) *uint {
	return &v
}

func TestCourseRepositoryOrdersStructure(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	course := models.Course{ID: 1, Title: "Safety"}
	require.NoError(t, db.Create(&course).Error)
	require.NoError(t, db.Create(&[]models.Lesson{
		{ID: 10, CourseID: 1, Title: "Second", Position: 2},
		{ID: 11, CourseID: 1, Title: "First", Position: 1},
	}).Error)
	require.NoError(t, db.Create(&[]models.Quiz{{ID: 100, Title: "Final"}, {ID: 101, Title: "Warmup"}}).Error)
	require.NoError(t, db.Create(&[]models.QuizPlacement{
		{QuizID: 100, CourseID: 1, Position: 5},
		{QuizID: 101, CourseID: 1, LessonID: uintPtr(11), Position: 1},
	}).Error)

	lessons, err := repo.ListLessons(ctx, 1)
	require.NoError(t, err)
	require.Len(t, lessons, 2)
	require.Equal(t, "First", lessons[0].Title)

	placements, err := repo.ListQuizPlacements(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint(101), placements[0].QuizID)

	titles, err := repo.QuizTitles(ctx, []uint{100, 101, 999})
	require.NoError(t, err)
	require.Equal(t, map[uint]string{100: "Final", 101: "Warmup"}, titles)
}

func TestCourseRepositoryListTaggedTopics(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)

	require.NoError(t, db.Create(&models.Lesson{ID: 1, CourseID: 7, Title: "L1", Position: 1}).Error)
	tag := models.Tag{Slug: "evidencia", Name: "Evidencia"}
	other := models.Tag{Slug: "other"}
	require.NoError(t, db.Create(&tag).Error)
	require.NoError(t, db.Create(&other).Error)

	topics := []models.Topic{
		{ID: 20, LessonID: 1, CourseID: 7, Title: "Tagged B", Position: 2, Tags: []models.Tag{tag}},
		{ID: 21, LessonID: 1, CourseID: 7, Title: "Tagged A", Position: 1, Tags: []models.Tag{tag}},
		{ID: 22, LessonID: 1, CourseID: 7, Title: "Untagged", Position: 3, Tags: []models.Tag{other}},
		{ID: 23, LessonID: 1, CourseID: 8, Title: "Other course", Position: 1, Tags: []models.Tag{tag}},
	}
	for i := range topics {
		require.NoError(t, db.Create(&topics[i]).Error)
	}

	result, err := repo.ListTaggedTopics(context.Background(), 7, "evidencia")
	require.NoError(t, err)
	require.Len(t, result, 2)
	require.Equal(t, uint(21), result[0].ID)
	require.Equal(t, uint(20), result[1].ID)
}

func TestCourseRepositoryFindStep(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCourseRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&models.Lesson{ID: 5, CourseID: 2, Title: "Lesson", Content: "lesson body"}).Error)
	require.NoError(t, db.Create(&models.Topic{ID: 6, LessonID: 5, CourseID: 2, Title: "Topic", Content: "topic body"}).Error)

	step, err := repo.FindStep(ctx, 5)
	require.NoError(t, err)
	require.Equal(t, models.StepTypeLesson, step.Type)

	step, err = repo.FindStep(ctx, 6)
	require.NoError(t, err)
	require.Equal(t, models.StepTypeTopic, step.Type)
	require.Equal(t, "topic body", step.Content)

	_, err = repo.FindStep(ctx, 99)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCompletionRepositoryCountsAndMarks(t *testing.T) {
	db := setupTestDB(t)
	repo := NewCompletionRepository(db)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.Lesson{{ID: 1, CourseID: 3}, {ID: 2, CourseID: 3}}).Error)
	require.NoError(t, db.Create(&[]models.Topic{{ID: 10, LessonID: 1, CourseID: 3}, {ID: 11, LessonID: 1, CourseID: 3}, {ID: 12, LessonID: 2, CourseID: 3}}).Error)

	created, err := repo.MarkComplete(ctx, 9, Step{Type: models.StepTypeLesson, ID: 1, CourseID: 3}, time.Now())
	require.NoError(t, err)
	require.True(t, created)

	created, err = repo.MarkComplete(ctx, 9, Step{Type: models.StepTypeLesson, ID: 1, CourseID: 3}, time.Now())
	require.NoError(t, err)
	require.False(t, created)

	_, err = repo.MarkComplete(ctx, 9, Step{Type: models.StepTypeTopic, ID: 11, CourseID: 3}, time.Now())
	require.NoError(t, err)

	completed, total, err := repo.CourseStepCounts(ctx, 9, 3)
	require.NoError(t, err)
	require.Equal(t, 2, completed)
	require.Equal(t, 5, total)

	done, err := repo.IsComplete(ctx, 9, models.StepTypeTopic, 11)
	require.NoError(t, err)
	require.True(t, done)

	ids, err := repo.CompletedTopicIDs(ctx, 9, 3)
	require.NoError(t, err)
	require.Contains(t, ids, uint(11))
	require.NotContains(t, ids, uint(10))
}

func TestUserMetaRepositoryUpsertAndList(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserMetaRepository(db)
	ctx := context.Background()

	_, ok, err := repo.Get(ctx, 1, "course_1_access_from")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, repo.Set(ctx, 1, "course_1_access_from", "0"))
	require.NoError(t, repo.Set(ctx, 1, "course_1_access_from", "1700000000"))
	require.NoError(t, repo.Set(ctx, 2, "course_4_access_from", ""))
	require.NoError(t, repo.Set(ctx, 2, "checkboxes_9", "[1]"))

	value, ok, err := repo.Get(ctx, 1, "course_1_access_from")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, "1700000000", value)

	all, err := repo.ListByKeyPattern(ctx, "course_%_access_from")
	require.NoError(t, err)
	require.Len(t, all, 2)

	mine, err := repo.ListForUser(ctx, 2, "course_%_access_from")
	require.NoError(t, err)
	require.Len(t, mine, 1)
	require.Equal(t, "course_4_access_from", mine[0].MetaKey)
}

func TestEnrollmentAndUserRepositories(t *testing.T) {
	db := setupTestDB(t)
	ctx := context.Background()

	require.NoError(t, db.Create(&[]models.User{
		{ID: 1, Login: "ana", DisplayName: "Ana", Role: models.RoleStudent},
		{ID: 2, Login: "bo", DisplayName: "Bo", Role: "administrator"},
		{ID: 3, Login: "cy", DisplayName: "Cy", Role: models.RoleSubscriber},
	}).Error)
	require.NoError(t, db.Create(&[]models.Enrollment{{UserID: 1, CourseID: 4}, {UserID: 1, CourseID: 2}, {UserID: 3, CourseID: 4}}).Error)

	users, err := NewUserRepository(db).ListByRoles(ctx, []string{models.RoleStudent, models.RoleSubscriber})
	require.NoError(t, err)
	require.Len(t, users, 2)
	require.Equal(t, "Ana", users[0].DisplayName)

	enrollments := NewEnrollmentRepository(db)
	ids, err := enrollments.ListCourseIDs(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, []uint{2, 4}, ids)

	byUser, err := enrollments.ListCourseIDsForUsers(ctx, []uint{1, 3})
	require.NoError(t, err)
	require.Equal(t, []uint{4}, byUser[3])
}
