package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

// ErrCourseNotFound is returned when the requested course does not exist.
var ErrCourseNotFound = errors.New("course not found")

// CourseOutline is the ordered structure of a course with the quizzes attached at each level.
type CourseOutline struct {
	CourseID      uint            `json:"course_id"`
	Title         string          `json:"title"`
	CourseQuizIDs []uint          `json:"course_quiz_ids"`
	Lessons       []OutlineLesson `json:"lessons"`
}

// OutlineLesson is a lesson with its quizzes and topics.
type OutlineLesson struct {
	ID      uint           `json:"id"`
	Title   string         `json:"title"`
	QuizIDs []uint         `json:"quiz_ids"`
	Topics  []OutlineTopic `json:"topics"`
}

// OutlineTopic is a topic with its quizzes.
type OutlineTopic struct {
	ID      uint   `json:"id"`
	Title   string `json:"title"`
	QuizIDs []uint `json:"quiz_ids"`
}

// OrderedQuizIDs lists every quiz reachable from the outline without duplicates:
// course-level quizzes first, then for each lesson its own quizzes followed by
// the quizzes of its topics. The first occurrence of an id fixes its position.
func OrderedQuizIDs(outline CourseOutline) []uint {
	seen := make(map[uint]struct{})
	ordered := make([]uint, 0)
	add := func(ids []uint) {
		for _, id := range ids {
			if id == 0 {
				continue
			}
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ordered = append(ordered, id)
		}
	}

	add(outline.CourseQuizIDs)
	for _, lesson := range outline.Lessons {
		add(lesson.QuizIDs)
		for _, topic := range lesson.Topics {
			add(topic.QuizIDs)
		}
	}
	return ordered
}

// LessonTitles returns the lesson titles in course order.
func (o CourseOutline) LessonTitles() []string {
	titles := make([]string, 0, len(o.Lessons))
	for _, lesson := range o.Lessons {
		titles = append(titles, lesson.Title)
	}
	return titles
}

// CourseOutlineService loads course outlines, caching them in redis when configured.
type CourseOutlineService interface {
	Outline(ctx context.Context, courseID uint) (CourseOutline, error)
}

type courseOutlineService struct {
	courses  repository.CourseRepository
	cache    *redis.Client
	cacheTTL time.Duration
	logger   zerolog.Logger
}

// NewCourseOutlineService builds the outline loader. cache may be nil.
func NewCourseOutlineService(courses repository.CourseRepository, cache *redis.Client, ttl time.Duration, logger zerolog.Logger) CourseOutlineService {
	return &courseOutlineService{
		courses:  courses,
		cache:    cache,
		cacheTTL: ttl,
		logger:   logger.With().Str("component", "course_outline_service").Logger(),
	}
}

func (s *courseOutlineService) Outline(ctx context.Context, courseID uint) (CourseOutline, error) {
	cacheKey := fmt.Sprintf("outline:course:%d", courseID)

	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil {
			var outline CourseOutline
			if unmarshalErr := json.Unmarshal([]byte(cached), &outline); unmarshalErr == nil {
				s.logger.Debug().Uint("course_id", courseID).Msg("outline cache hit")
				return outline, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read outline cache")
		}
	}

	outline, err := s.load(ctx, courseID)
	if err != nil {
		return CourseOutline{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(outline); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store outline cache")
			}
		}
	}

	return outline, nil
}

func (s *courseOutlineService) load(ctx context.Context, courseID uint) (CourseOutline, error) {
	course, err := s.courses.GetCourse(ctx, courseID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return CourseOutline{}, ErrCourseNotFound
		}
		return CourseOutline{}, err
	}

	lessons, err := s.courses.ListLessons(ctx, courseID)
	if err != nil {
		return CourseOutline{}, err
	}
	topics, err := s.courses.ListTopics(ctx, courseID)
	if err != nil {
		return CourseOutline{}, err
	}
	placements, err := s.courses.ListQuizPlacements(ctx, courseID)
	if err != nil {
		return CourseOutline{}, err
	}

	return buildOutline(course, lessons, topics, placements), nil
}

func buildOutline(course models.Course, lessons []models.Lesson, topics []models.Topic, placements []models.QuizPlacement) CourseOutline {
	lessonQuizzes := make(map[uint][]uint)
	topicQuizzes := make(map[uint][]uint)
	courseQuizzes := make([]uint, 0)
	for _, placement := range placements {
		switch {
		case placement.TopicID != nil:
			topicQuizzes[*placement.TopicID] = append(topicQuizzes[*placement.TopicID], placement.QuizID)
		case placement.LessonID != nil:
			lessonQuizzes[*placement.LessonID] = append(lessonQuizzes[*placement.LessonID], placement.QuizID)
		default:
			courseQuizzes = append(courseQuizzes, placement.QuizID)
		}
	}

	topicsByLesson := make(map[uint][]OutlineTopic)
	for _, topic := range topics {
		topicsByLesson[topic.LessonID] = append(topicsByLesson[topic.LessonID], OutlineTopic{
			ID:      topic.ID,
			Title:   topic.Title,
			QuizIDs: nonNil(topicQuizzes[topic.ID]),
		})
	}

	outline := CourseOutline{
		CourseID:      course.ID,
		Title:         course.Title,
		CourseQuizIDs: courseQuizzes,
		Lessons:       make([]OutlineLesson, 0, len(lessons)),
	}
	for _, lesson := range lessons {
		lessonTopics := topicsByLesson[lesson.ID]
		if lessonTopics == nil {
			lessonTopics = []OutlineTopic{}
		}
		outline.Lessons = append(outline.Lessons, OutlineLesson{
			ID:      lesson.ID,
			Title:   lesson.Title,
			QuizIDs: nonNil(lessonQuizzes[lesson.ID]),
			Topics:  lessonTopics,
		})
	}
	return outline
}

func nonNil(ids []uint) []uint {
	if ids == nil {
		return []uint{}
	}
	return ids
}
