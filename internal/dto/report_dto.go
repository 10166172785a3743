package dto

import "time"

// ReportQuery identifies the (course, user) pair of a report.
type ReportQuery struct {
	CourseID uint `query:"course_id" validate:"required,gt=0"`
	UserID   uint `query:"user_id" validate:"required,gt=0"`
}

// ReportCourse names the reported course.
type ReportCourse struct {
	ID    uint   `json:"id"`
	Title string `json:"title"`
}

// ReportStudent names the reported user.
type ReportStudent struct {
	ID          uint   `json:"id"`
	DisplayName string `json:"display_name"`
	Email       string `json:"email"`
}

// ProgressResponse is the combined step and quiz completion of a report.
type ProgressResponse struct {
	StepsCompleted int    `json:"steps_completed"`
	StepsTotal     int    `json:"steps_total"`
	Percent        int    `json:"percent"`
	OrderedQuizIDs []uint `json:"ordered_quiz_ids"`
}

// EvidenceLineResponse is one evidence item of a report.
type EvidenceLineResponse struct {
	TopicID   uint   `json:"topic_id"`
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
	Marker    string `json:"marker"`
}

// QuizRowResponse is one quiz line of a report.
type QuizRowResponse struct {
	QuizID     uint    `json:"quiz_id"`
	Title      string  `json:"title"`
	Percentage float64 `json:"percentage"`
	Passed     bool    `json:"passed"`
	Attempts   int     `json:"attempts"`
	Status     string  `json:"status"`
}

// ReportResponse is the JSON rendition of a course evidence report.
type ReportResponse struct {
	Course      ReportCourse           `json:"course"`
	Student     ReportStudent          `json:"student"`
	GeneratedAt time.Time              `json:"generated_at"`
	Lessons     []string               `json:"lessons"`
	Progress    ProgressResponse       `json:"progress"`
	Evidence    []EvidenceLineResponse `json:"evidence"`
	Quizzes     []QuizRowResponse      `json:"quizzes"`
}
