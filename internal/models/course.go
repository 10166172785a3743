package models

import "time"

// Course is the top of the host content hierarchy.
type Course struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Lesson belongs to a course and is ordered by Position.
type Lesson struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Content   string    `gorm:"type:text" json:"content"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Topic nests under a lesson. CourseID mirrors the host's course association field.
type Topic struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LessonID  uint      `gorm:"index;not null" json:"lesson_id"`
	CourseID  uint      `gorm:"index;not null" json:"course_id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	Excerpt   string    `gorm:"type:text" json:"excerpt"`
	Content   string    `gorm:"type:text" json:"content"`
	Position  int       `gorm:"not null;default:0" json:"position"`
	Tags      []Tag     `gorm:"many2many:topic_tags;" json:"tags,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Tag is a topic taxonomy term.
type Tag struct {
	ID   uint   `gorm:"primaryKey" json:"id"`
	Slug string `gorm:"size:128;uniqueIndex;not null" json:"slug"`
	Name string `gorm:"size:255" json:"name"`
}

// Quiz is an assessable unit. Where it appears in a course is described by QuizPlacement.
type Quiz struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Title     string    `gorm:"size:255;not null" json:"title"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// QuizPlacement attaches a quiz to a course, a lesson or a topic.
// Course-level placements leave both LessonID and TopicID nil.
type QuizPlacement struct {
	ID       uint  `gorm:"primaryKey" json:"id"`
	QuizID   uint  `gorm:"index;not null" json:"quiz_id"`
	CourseID uint  `gorm:"index;not null" json:"course_id"`
	LessonID *uint `gorm:"index" json:"lesson_id,omitempty"`
	TopicID  *uint `gorm:"index" json:"topic_id,omitempty"`
	Position int   `gorm:"not null;default:0" json:"position"`
}

// Step types recorded in StepCompletion.
const (
	StepTypeLesson = "lesson"
	StepTypeTopic  = "topic"
)

// StepCompletion marks a lesson or topic as complete for a user.
type StepCompletion struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	UserID      uint      `gorm:"uniqueIndex:idx_step_completion;not null" json:"user_id"`
	StepType    string    `gorm:"size:16;uniqueIndex:idx_step_completion;not null" json:"step_type"`
	StepID      uint      `gorm:"uniqueIndex:idx_step_completion;not null" json:"step_id"`
	CourseID    uint      `gorm:"index;not null" json:"course_id"`
	CompletedAt time.Time `json:"completed_at"`
}
