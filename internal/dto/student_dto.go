package dto

import "time"

// StudentListRequest mirrors the directory's query string.
type StudentListRequest struct {
	Search  string `query:"user_search" validate:"max=100"`
	OrderBy string `query:"orderby" validate:"omitempty,oneof=display_name last_name start_date course_title completed"`
	Order   string `query:"order" validate:"omitempty,oneof=asc desc ASC DESC"`
}

// StudentRowResponse is one (student, course) directory row.
type StudentRowResponse struct {
	UserID      uint       `json:"user_id"`
	DisplayName string     `json:"display_name"`
	FirstName   string     `json:"first_name"`
	LastName    string     `json:"last_name"`
	CourseID    uint       `json:"course_id"`
	CourseTitle string     `json:"course_title"`
	StartDate   string     `json:"start_date"`
	StartedAt   *time.Time `json:"started_at,omitempty"`
	Completed   bool       `json:"completed"`
	Status      string     `json:"status"`
	ReportURL   string     `json:"report_url"`
}

// StudentListResponse lists directory rows.
type StudentListResponse struct {
	Items []StudentRowResponse `json:"items"`
	Total int                  `json:"total"`
}

// ReportLinkResponse points at one printable report.
type ReportLinkResponse struct {
	CourseID    uint   `json:"course_id"`
	CourseTitle string `json:"course_title"`
	URL         string `json:"url"`
}

// ReportLinksResponse lists the printable report links of a user.
type ReportLinksResponse struct {
	UserID uint                 `json:"user_id"`
	Links  []ReportLinkResponse `json:"links"`
}
