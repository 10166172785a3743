package database

import (
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// Migrate creates or updates every table the service reads or writes.
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&models.Course{},
		&models.Lesson{},
		&models.Topic{},
		&models.Tag{},
		&models.Quiz{},
		&models.QuizPlacement{},
		&models.StepCompletion{},
		&models.User{},
		&models.Enrollment{},
		&models.UserMeta{},
		&models.ActivityLog{},
	)
}
