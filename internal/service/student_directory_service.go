package service

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/text/cases"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

// Course completion labels in the student directory.
const (
	CourseStatusCompleted    = "Completed"
	CourseStatusNotCompleted = "Not completed"
)

// Student directory sort keys.
const (
	SortByDisplayName = "display_name"
	SortByLastName    = "last_name"
	SortByStartDate   = "start_date"
	SortByCourseTitle = "course_title"
	SortByCompleted   = "completed"
)

// StudentRoles are the roles listed in the directory.
var StudentRoles = []string{models.RoleSubscriber, models.RoleStudent}

// StudentListQuery filters and orders the directory.
type StudentListQuery struct {
	Search  string
	OrderBy string
	Order   string
}

// StudentCourseRow is one (student, enrolled course) line of the directory.
type StudentCourseRow struct {
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

// ReportLink points at the printable report of one enrolled course.
type ReportLink struct {
	CourseID    uint   `json:"course_id"`
	CourseTitle string `json:"course_title"`
	URL         string `json:"url"`
}

// ReportURLFunc builds the printable report link of a (course, user) pair.
type ReportURLFunc func(courseID, userID uint) string

// StudentDirectoryService lists students with their enrolled courses.
type StudentDirectoryService interface {
	List(ctx context.Context, query StudentListQuery) ([]StudentCourseRow, error)
	ReportLinks(ctx context.Context, userID uint) ([]ReportLink, error)
}

type studentDirectoryService struct {
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	courses     repository.CourseRepository
	completions repository.CompletionRepository
	meta        repository.UserMetaRepository
	reportURL   ReportURLFunc
	dateLayout  string
	logger      zerolog.Logger
}

// NewStudentDirectoryService constructs the directory.
func NewStudentDirectoryService(
	users repository.UserRepository,
	enrollments repository.EnrollmentRepository,
	courses repository.CourseRepository,
	completions repository.CompletionRepository,
	meta repository.UserMetaRepository,
	reportURL ReportURLFunc,
	dateLayout string,
	logger zerolog.Logger,
) StudentDirectoryService {
	if dateLayout == "" {
		dateLayout = "January 2, 2006"
	}
	return &studentDirectoryService{
		users:       users,
		enrollments: enrollments,
		courses:     courses,
		completions: completions,
		meta:        meta,
		reportURL:   reportURL,
		dateLayout:  dateLayout,
		logger:      logger.With().Str("component", "student_directory_service").Logger(),
	}
}

func (s *studentDirectoryService) List(ctx context.Context, query StudentListQuery) ([]StudentCourseRow, error) {
	users, err := s.users.ListByRoles(ctx, StudentRoles)
	if err != nil {
		return nil, err
	}
	users = filterStudents(users, query.Search)
	if len(users) == 0 {
		return []StudentCourseRow{}, nil
	}

	userIDs := make([]uint, 0, len(users))
	for _, user := range users {
		userIDs = append(userIDs, user.ID)
	}
	enrolled, err := s.enrollments.ListCourseIDsForUsers(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	titles, err := s.courseTitles(ctx, enrolled)
	if err != nil {
		return nil, err
	}

	rows := make([]StudentCourseRow, 0)
	for _, user := range users {
		starts, err := s.startDates(ctx, user.ID)
		if err != nil {
			return nil, err
		}
		for _, courseID := range enrolled[user.ID] {
			completed, total, err := s.completions.CourseStepCounts(ctx, user.ID, courseID)
			if err != nil {
				return nil, err
			}

			row := StudentCourseRow{
				UserID:      user.ID,
				DisplayName: user.DisplayName,
				FirstName:   user.FirstName,
				LastName:    user.LastName,
				CourseID:    courseID,
				CourseTitle: titles[courseID],
				Completed:   total > 0 && completed == total,
				Status:      CourseStatusNotCompleted,
				ReportURL:   s.link(courseID, user.ID),
			}
			if row.Completed {
				row.Status = CourseStatusCompleted
			}
			if started, ok := starts[courseID]; ok {
				startedAt := started
				row.StartedAt = &startedAt
				row.StartDate = started.Format(s.dateLayout)
			}
			rows = append(rows, row)
		}
	}

	sortStudentRows(rows, query.OrderBy, query.Order)
	return rows, nil
}

func (s *studentDirectoryService) ReportLinks(ctx context.Context, userID uint) ([]ReportLink, error) {
	if _, err := s.users.GetByID(ctx, userID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, err
	}

	courseIDs, err := s.enrollments.ListCourseIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	titles, err := s.courseTitles(ctx, map[uint][]uint{userID: courseIDs})
	if err != nil {
		return nil, err
	}

	links := make([]ReportLink, 0, len(courseIDs))
	for _, courseID := range courseIDs {
		links = append(links, ReportLink{
			CourseID:    courseID,
			CourseTitle: titles[courseID],
			URL:         s.link(courseID, userID),
		})
	}
	return links, nil
}

func (s *studentDirectoryService) link(courseID, userID uint) string {
	if s.reportURL == nil {
		return ""
	}
	return s.reportURL(courseID, userID)
}

func (s *studentDirectoryService) courseTitles(ctx context.Context, enrolled map[uint][]uint) (map[uint]string, error) {
	seen := make(map[uint]struct{})
	ids := make([]uint, 0)
	for _, courseIDs := range enrolled {
		for _, id := range courseIDs {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}

	courses, err := s.courses.ListCourses(ctx, ids)
	if err != nil {
		return nil, err
	}
	titles := make(map[uint]string, len(courses))
	for _, course := range courses {
		titles[course.ID] = course.Title
	}
	return titles, nil
}

// startDates reads the usable access-from dates of a user keyed by course.
func (s *studentDirectoryService) startDates(ctx context.Context, userID uint) (map[uint]time.Time, error) {
	metas, err := s.meta.ListForUser(ctx, userID, accessFromLikePattern)
	if err != nil {
		return nil, err
	}

	starts := make(map[uint]time.Time, len(metas))
	for _, meta := range metas {
		courseID, ok := models.ParseAccessFromMetaKey(meta.MetaKey)
		if !ok {
			continue
		}
		ts := parseLeadingInt(meta.MetaValue)
		if ts <= 0 {
			continue
		}
		starts[courseID] = time.Unix(ts, 0).UTC()
	}
	return starts, nil
}

func filterStudents(users []models.User, search string) []models.User {
	caser := cases.Fold()
	needle := caser.String(strings.TrimSpace(search))
	if needle == "" {
		return users
	}

	filtered := make([]models.User, 0, len(users))
	for _, user := range users {
		for _, field := range []string{user.DisplayName, user.FirstName, user.LastName} {
			if strings.Contains(caser.String(field), needle) {
				filtered = append(filtered, user)
				break
			}
		}
	}
	return filtered
}

func sortStudentRows(rows []StudentCourseRow, orderBy, order string) {
	caser := cases.Fold()
	var less func(a, b StudentCourseRow) bool
	switch strings.ToLower(strings.TrimSpace(orderBy)) {
	case SortByDisplayName:
		less = func(a, b StudentCourseRow) bool { return caser.String(a.DisplayName) < caser.String(b.DisplayName) }
	case SortByLastName:
		less = func(a, b StudentCourseRow) bool { return caser.String(a.LastName) < caser.String(b.LastName) }
	case SortByCourseTitle:
		less = func(a, b StudentCourseRow) bool { return caser.String(a.CourseTitle) < caser.String(b.CourseTitle) }
	case SortByStartDate:
		less = func(a, b StudentCourseRow) bool { return startUnix(a) < startUnix(b) }
	case SortByCompleted:
		less = func(a, b StudentCourseRow) bool { return a.Status < b.Status }
	default:
		return
	}

	descending := strings.EqualFold(strings.TrimSpace(order), "desc")
	sort.SliceStable(rows, func(i, j int) bool {
		if descending {
			return less(rows[j], rows[i])
		}
		return less(rows[i], rows[j])
	})
}

func startUnix(row StudentCourseRow) int64 {
	if row.StartedAt == nil {
		return 0
	}
	return row.StartedAt.Unix()
}
