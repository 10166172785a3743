package repository

import (
	"context"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// CompletionRepository reads and records lesson/topic completion.
type CompletionRepository interface {
	CourseStepCounts(ctx context.Context, userID, courseID uint) (completed int, total int, err error)
	IsComplete(ctx context.Context, userID uint, stepType string, stepID uint) (bool, error)
	CompletedTopicIDs(ctx context.Context, userID, courseID uint) (map[uint]struct{}, error)
	MarkComplete(ctx context.Context, userID uint, step Step, at time.Time) (bool, error)
}

type completionRepository struct {
	db *gorm.DB
}

// NewCompletionRepository constructs the completion repository.
func NewCompletionRepository(db *gorm.DB) CompletionRepository {
	return &completionRepository{db: db}
}

// CourseStepCounts reports completed and total lessons plus topics of a course.
func (r *completionRepository) CourseStepCounts(ctx context.Context, userID, courseID uint) (int, int, error) {
	db := r.db.WithContext(ctx)

	var lessons, topics int64
	if err := db.Model(&models.Lesson{}).Where("course_id = ?", courseID).Count(&lessons).Error; err != nil {
		return 0, 0, err
	}
	if err := db.Model(&models.Topic{}).Where("course_id = ?", courseID).Count(&topics).Error; err != nil {
		return 0, 0, err
	}

	var completedLessons, completedTopics int64
	err := db.Model(&models.StepCompletion{}).
		Joins("JOIN lessons ON lessons.id = step_completions.step_id").
		Where("step_completions.user_id = ? AND step_completions.step_type = ?", userID, models.StepTypeLesson).
		Where("lessons.course_id = ?", courseID).
		Count(&completedLessons).Error
	if err != nil {
		return 0, 0, err
	}
	err = db.Model(&models.StepCompletion{}).
		Joins("JOIN topics ON topics.id = step_completions.step_id").
		Where("step_completions.user_id = ? AND step_completions.step_type = ?", userID, models.StepTypeTopic).
		Where("topics.course_id = ?", courseID).
		Count(&completedTopics).Error
	if err != nil {
		return 0, 0, err
	}

	return int(completedLessons + completedTopics), int(lessons + topics), nil
}

func (r *completionRepository) IsComplete(ctx context.Context, userID uint, stepType string, stepID uint) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).
		Model(&models.StepCompletion{}).
		Where("user_id = ? AND step_type = ? AND step_id = ?", userID, stepType, stepID).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *completionRepository) CompletedTopicIDs(ctx context.Context, userID, courseID uint) (map[uint]struct{}, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.StepCompletion{}).
		Where("user_id = ? AND step_type = ? AND course_id = ?", userID, models.StepTypeTopic, courseID).
		Pluck("step_id", &ids).Error
	if err != nil {
		return nil, err
	}

	set := make(map[uint]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set, nil
}

// MarkComplete records completion and reports whether a new row was written.
func (r *completionRepository) MarkComplete(ctx context.Context, userID uint, step Step, at time.Time) (bool, error) {
	completion := models.StepCompletion{
		UserID:      userID,
		StepType:    step.Type,
		StepID:      step.ID,
		CourseID:    step.CourseID,
		CompletedAt: at,
	}
	result := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&completion)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}
