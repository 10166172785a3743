package repository

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// Step is a lesson or topic addressed by its post identifier.
type Step struct {
	Type     string
	ID       uint
	CourseID uint
	Content  string
}

// CourseRepository reads the course structure owned by the host.
type CourseRepository interface {
	GetCourse(ctx context.Context, id uint) (models.Course, error)
	ListCourses(ctx context.Context, ids []uint) ([]models.Course, error)
	ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error)
	ListTopics(ctx context.Context, courseID uint) ([]models.Topic, error)
	ListQuizPlacements(ctx context.Context, courseID uint) ([]models.QuizPlacement, error)
	QuizTitles(ctx context.Context, ids []uint) (map[uint]string, error)
	ListTaggedTopics(ctx context.Context, courseID uint, tagSlug string) ([]models.Topic, error)
	FindStep(ctx context.Context, id uint) (Step, error)
}

type courseRepository struct {
	db *gorm.DB
}

// NewCourseRepository constructs the course repository.
func NewCourseRepository(db *gorm.DB) CourseRepository {
	return &courseRepository{db: db}
}

func (r *courseRepository) GetCourse(ctx context.Context, id uint) (models.Course, error) {
	var course models.Course
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&course).Error; err != nil {
		return models.Course{}, err
	}
	return course, nil
}

func (r *courseRepository) ListCourses(ctx context.Context, ids []uint) ([]models.Course, error) {
	if len(ids) == 0 {
		return []models.Course{}, nil
	}
	var courses []models.Course
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Order("id ASC").Find(&courses).Error; err != nil {
		return nil, err
	}
	return courses, nil
}

func (r *courseRepository) ListLessons(ctx context.Context, courseID uint) ([]models.Lesson, error) {
	var lessons []models.Lesson
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Order("id ASC").
		Find(&lessons).Error
	if err != nil {
		return nil, err
	}
	return lessons, nil
}

func (r *courseRepository) ListTopics(ctx context.Context, courseID uint) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Order("id ASC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

func (r *courseRepository) ListQuizPlacements(ctx context.Context, courseID uint) ([]models.QuizPlacement, error) {
	var placements []models.QuizPlacement
	err := r.db.WithContext(ctx).
		Where("course_id = ?", courseID).
		Order("position ASC").
		Order("id ASC").
		Find(&placements).Error
	if err != nil {
		return nil, err
	}
	return placements, nil
}

func (r *courseRepository) QuizTitles(ctx context.Context, ids []uint) (map[uint]string, error) {
	titles := make(map[uint]string, len(ids))
	if len(ids) == 0 {
		return titles, nil
	}

	var quizzes []models.Quiz
	if err := r.db.WithContext(ctx).Where("id IN ?", ids).Find(&quizzes).Error; err != nil {
		return nil, err
	}
	for _, quiz := range quizzes {
		titles[quiz.ID] = quiz.Title
	}
	return titles, nil
}

func (r *courseRepository) ListTaggedTopics(ctx context.Context, courseID uint, tagSlug string) ([]models.Topic, error) {
	var topics []models.Topic
	err := r.db.WithContext(ctx).
		Model(&models.Topic{}).
		Joins("JOIN topic_tags ON topic_tags.topic_id = topics.id").
		Joins("JOIN tags ON tags.id = topic_tags.tag_id").
		Joins("LEFT JOIN lessons ON lessons.id = topics.lesson_id").
		Where("tags.slug = ?", tagSlug).
		Where("topics.course_id = ?", courseID).
		Order("lessons.position ASC").
		Order("topics.position ASC").
		Order("topics.id ASC").
		Find(&topics).Error
	if err != nil {
		return nil, err
	}
	return topics, nil
}

// FindStep resolves a post identifier to a lesson first, then a topic.
func (r *courseRepository) FindStep(ctx context.Context, id uint) (Step, error) {
	var lesson models.Lesson
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&lesson).Error
	if err == nil {
		return Step{Type: models.StepTypeLesson, ID: lesson.ID, CourseID: lesson.CourseID, Content: lesson.Content}, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return Step{}, err
	}

	var topic models.Topic
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&topic).Error; err != nil {
		return Step{}, err
	}
	return Step{Type: models.StepTypeTopic, ID: topic.ID, CourseID: topic.CourseID, Content: topic.Content}, nil
}
