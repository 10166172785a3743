package models

import (
	"fmt"
	"regexp"
	"strconv"
	"time"
)

// Roles that make a user appear in the student directory.
const (
	RoleSubscriber = "subscriber"
	RoleStudent    = "student"
)

// User mirrors the host's user record.
type User struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Login        string    `gorm:"size:64;uniqueIndex;not null" json:"login"`
	Email        string    `gorm:"size:255" json:"email"`
	DisplayName  string    `gorm:"size:255" json:"display_name"`
	FirstName    string    `gorm:"size:255" json:"first_name"`
	LastName     string    `gorm:"size:255" json:"last_name"`
	Role         string    `gorm:"size:32;index" json:"role"`
	RegisteredAt time.Time `json:"registered_at"`
}

// Enrollment grants a user access to a course.
type Enrollment struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_enrollment;not null" json:"user_id"`
	CourseID  uint      `gorm:"uniqueIndex:idx_enrollment;not null" json:"course_id"`
	CreatedAt time.Time `json:"created_at"`
}

// UserMeta is an opaque per-user key/value pair.
type UserMeta struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	UserID    uint      `gorm:"uniqueIndex:idx_user_meta;not null" json:"user_id"`
	MetaKey   string    `gorm:"size:191;uniqueIndex:idx_user_meta;not null" json:"meta_key"`
	MetaValue string    `gorm:"type:text" json:"meta_value"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName keeps the host naming.
func (UserMeta) TableName() string {
	return "user_meta"
}

// QuizHistoryMetaKey stores the raw quiz-attempt history of a user.
const QuizHistoryMetaKey = "_sfwd-quizzes"

var accessFromKeyPattern = regexp.MustCompile(`^course_(\d+)_access_from$`)

// AccessFromMetaKey returns the meta key holding the access-from timestamp of a course.
func AccessFromMetaKey(courseID uint) string {
	return fmt.Sprintf("course_%d_access_from", courseID)
}

// ParseAccessFromMetaKey extracts the course id from an access-from meta key.
func ParseAccessFromMetaKey(key string) (uint, bool) {
	matches := accessFromKeyPattern.FindStringSubmatch(key)
	if matches == nil {
		return 0, false
	}
	id, err := strconv.ParseUint(matches[1], 10, 64)
	if err != nil || id == 0 {
		return 0, false
	}
	return uint(id), true
}

// CheckboxMetaKey returns the meta key holding checked checkbox indices of a post.
func CheckboxMetaKey(postID uint) string {
	return fmt.Sprintf("checkboxes_%d", postID)
}
