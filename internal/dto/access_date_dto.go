package dto

import "time"

// AffectedUserResponse previews a user holding broken access-from dates.
type AffectedUserResponse struct {
	UserID       uint      `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
	CourseIDs    []uint    `json:"course_ids"`
}

// AccessDatePreviewResponse lists users with broken access-from dates.
type AccessDatePreviewResponse struct {
	Items []AffectedUserResponse `json:"items"`
	Total int                    `json:"total"`
}

// AccessDateRepairResponse reports how many dates a repair rewrote.
type AccessDateRepairResponse struct {
	UserID uint `json:"user_id,omitempty"`
	Fixed  int  `json:"fixed"`
}
