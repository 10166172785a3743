package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/events"
	"github.com/noah-isme/gema-evidence-api/internal/models"
)

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func setupServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(
		&models.Course{}, &models.Lesson{}, &models.Topic{}, &models.Tag{},
		&models.Quiz{}, &models.QuizPlacement{}, &models.StepCompletion{},
		&models.User{}, &models.Enrollment{}, &models.UserMeta{}, &models.ActivityLog{},
	))
	return db
}

func floatPtr(v float64) *float64 {
	return &v
}

func uintPtr(v uint) *uint {
	return &v
}

// seedCourse builds course 1 "Welding Basics":
//
//	quiz 100 (course level)
//	lesson 10 "Safety" with quiz 101
//	  topic 20 "Gear" (evidencia) with quiz 102
//	lesson 11 "Practice"
//	  topic 21 "Joints" (evidencia)
//	  topic 22 "Notes"
func seedCourse(t *testing.T, db *gorm.DB) {
	t.Helper()
	require.NoError(t, db.Create(&models.Course{ID: 1, Title: "Welding Basics"}).Error)
	require.NoError(t, db.Create(&[]models.Lesson{
		{ID: 10, CourseID: 1, Title: "Safety", Position: 1, Content: "<p>Read the manual.</p>"},
		{ID: 11, CourseID: 1, Title: "Practice", Position: 2, Content: `<input type="checkbox"><input type="checkbox">`},
	}).Error)

	tag := models.Tag{Slug: "evidencia", Name: "Evidencia"}
	require.NoError(t, db.Create(&tag).Error)
	topics := []models.Topic{
		{ID: 20, LessonID: 10, CourseID: 1, Title: "Gear", Position: 1, Excerpt: "<p>Wear gloves</p>\n<p>Wear a mask</p>", Tags: []models.Tag{tag}},
		{ID: 21, LessonID: 11, CourseID: 1, Title: "Joints", Position: 1, Excerpt: "Butt joint\r\nLap joint\nButt joint", Tags: []models.Tag{tag}},
		{ID: 22, LessonID: 11, CourseID: 1, Title: "Notes", Position: 2, Excerpt: "Not evidence"},
	}
	for i := range topics {
		require.NoError(t, db.Create(&topics[i]).Error)
	}

	require.NoError(t, db.Create(&[]models.Quiz{
		{ID: 100, Title: "Final exam"},
		{ID: 101, Title: "Safety check"},
		{ID: 102, Title: "Gear quiz"},
	}).Error)
	require.NoError(t, db.Create(&[]models.QuizPlacement{
		{QuizID: 100, CourseID: 1, Position: 1},
		{QuizID: 101, CourseID: 1, LessonID: uintPtr(10), Position: 1},
		{QuizID: 102, CourseID: 1, LessonID: uintPtr(10), TopicID: uintPtr(20), Position: 1},
	}).Error)
}

func seedUser(t *testing.T, db *gorm.DB, user models.User) models.User {
	t.Helper()
	if user.Login == "" {
		user.Login = fmt.Sprintf("user%d", user.ID)
	}
	if user.Role == "" {
		user.Role = models.RoleStudent
	}
	require.NoError(t, db.Create(&user).Error)
	return user
}

type recordingPublisher struct {
	mu            sync.Mutex
	notifications []events.Notification
}

func (p *recordingPublisher) Publish(_ context.Context, notification events.Notification) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.notifications = append(p.notifications, notification)
	return nil
}

func (p *recordingPublisher) sent() []events.Notification {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]events.Notification(nil), p.notifications...)
}

var registeredAt = time.Date(2023, time.March, 14, 9, 30, 0, 0, time.UTC)
