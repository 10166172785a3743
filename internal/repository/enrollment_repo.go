package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// EnrollmentRepository answers which courses a user can access.
type EnrollmentRepository interface {
	ListCourseIDs(ctx context.Context, userID uint) ([]uint, error)
	ListCourseIDsForUsers(ctx context.Context, userIDs []uint) (map[uint][]uint, error)
}

type enrollmentRepository struct {
	db *gorm.DB
}

// NewEnrollmentRepository constructs the enrollment repository.
func NewEnrollmentRepository(db *gorm.DB) EnrollmentRepository {
	return &enrollmentRepository{db: db}
}

func (r *enrollmentRepository) ListCourseIDs(ctx context.Context, userID uint) ([]uint, error) {
	var ids []uint
	err := r.db.WithContext(ctx).
		Model(&models.Enrollment{}).
		Where("user_id = ?", userID).
		Order("course_id ASC").
		Pluck("course_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}

func (r *enrollmentRepository) ListCourseIDsForUsers(ctx context.Context, userIDs []uint) (map[uint][]uint, error) {
	result := make(map[uint][]uint, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}

	var enrollments []models.Enrollment
	err := r.db.WithContext(ctx).
		Where("user_id IN ?", userIDs).
		Order("user_id ASC").
		Order("course_id ASC").
		Find(&enrollments).Error
	if err != nil {
		return nil, err
	}

	for _, enrollment := range enrollments {
		result[enrollment.UserID] = append(result[enrollment.UserID], enrollment.CourseID)
	}
	return result, nil
}
