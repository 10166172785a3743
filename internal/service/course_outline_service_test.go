package service

import (
	"context"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

func TestOrderedQuizIDsFollowsTraversal(t *testing.T) {
	outline := CourseOutline{
		CourseQuizIDs: []uint{9, 3},
		Lessons: []OutlineLesson{
			{ID: 1, QuizIDs: []uint{4}, Topics: []OutlineTopic{{ID: 11, QuizIDs: []uint{5, 3}}}},
			{ID: 2, QuizIDs: []uint{6, 4}, Topics: []OutlineTopic{{ID: 12, QuizIDs: []uint{7}}}},
		},
	}

	require.Equal(t, []uint{9, 3, 4, 5, 6, 7}, OrderedQuizIDs(outline))
}

func TestCourseOutlineServiceBuildsAndCaches(t *testing.T) {
	db := setupServiceDB(t)
	seedCourse(t, db)

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	svc := NewCourseOutlineService(repository.NewCourseRepository(db), client, time.Minute, testLogger())
	ctx := context.Background()

	outline, err := svc.Outline(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Welding Basics", outline.Title)
	require.Equal(t, []string{"Safety", "Practice"}, outline.LessonTitles())
	require.Equal(t, []uint{100, 101, 102}, OrderedQuizIDs(outline))
	require.Len(t, outline.Lessons[1].Topics, 2)
	require.True(t, mr.Exists("outline:course:1"))

	require.NoError(t, db.Model(&models.Course{}).Where("id = ?", 1).Update("title", "Renamed").Error)
	cached, err := svc.Outline(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Welding Basics", cached.Title)

	mr.FastForward(2 * time.Minute)
	fresh, err := svc.Outline(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, "Renamed", fresh.Title)
}

func TestCourseOutlineServiceMissingCourse(t *testing.T) {
	db := setupServiceDB(t)
	svc := NewCourseOutlineService(repository.NewCourseRepository(db), nil, time.Minute, testLogger())

	_, err := svc.Outline(context.Background(), 42)
	require.ErrorIs(t, err, ErrCourseNotFound)
}
