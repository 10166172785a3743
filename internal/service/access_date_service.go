package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/noah-isme/gema-evidence-api/internal/events"
	"github.com/noah-isme/gema-evidence-api/internal/models"
	"github.com/noah-isme/gema-evidence-api/internal/observability"
	"github.com/noah-isme/gema-evidence-api/internal/repository"
)

// AccessDateFloor is the largest stored access-from value still considered broken.
// Anything at or below one day past the epoch is treated as unset.
const AccessDateFloor int64 = 86400

// NotificationAccessDateCorrected is the outbound notification type of a repair.
const NotificationAccessDateCorrected = models.ActionAccessDateCorrected

const accessFromLikePattern = "course_%_access_from"

// ErrUserNotFound is returned when the user to repair does not exist.
var ErrUserNotFound = errors.New("user not found")

// IsBrokenAccessDate reports whether a stored access-from value must be replaced.
// Values are read like the host reads them: leading integer digits, anything else is zero.
func IsBrokenAccessDate(value string) bool {
	return parseLeadingInt(value) <= AccessDateFloor
}

func parseLeadingInt(value string) int64 {
	v := strings.TrimSpace(value)
	end := 0
	if end < len(v) && (v[end] == '-' || v[end] == '+') {
		end++
	}
	digits := end
	for end < len(v) && v[end] >= '0' && v[end] <= '9' {
		end++
	}
	if end == digits {
		return 0
	}
	n, err := strconv.ParseInt(v[:end], 10, 64)
	if err != nil {
		return 0
	}
	return n
}

// AffectedUser is a preview row of a user holding broken access-from dates.
type AffectedUser struct {
	UserID       uint      `json:"user_id"`
	DisplayName  string    `json:"display_name"`
	Email        string    `json:"email"`
	RegisteredAt time.Time `json:"registered_at"`
	CourseIDs    []uint    `json:"course_ids"`
}

// AccessDateService repairs broken per-course access-from dates.
type AccessDateService interface {
	Repair(ctx context.Context, userID uint) (int, error)
	RepairCourse(ctx context.Context, userID, courseID uint) (bool, error)
	ListAffected(ctx context.Context) ([]AffectedUser, error)
	RepairAll(ctx context.Context) (int, error)
}

type accessDateService struct {
	users       repository.UserRepository
	enrollments repository.EnrollmentRepository
	meta        repository.UserMetaRepository
	activity    ActivityRecorder
	publisher   events.Publisher
	logger      zerolog.Logger
	tracer      trace.Tracer
}

// NewAccessDateService constructs the access-date corrector. activity and publisher may be nil.
func NewAccessDateService(
	users repository.UserRepository,
	enrollments repository.EnrollmentRepository,
	meta repository.UserMetaRepository,
	activity ActivityRecorder,
	publisher events.Publisher,
	logger zerolog.Logger,
) AccessDateService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &accessDateService{
		users:       users,
		enrollments: enrollments,
		meta:        meta,
		activity:    activity,
		publisher:   publisher,
		logger:      logger.With().Str("component", "access_date_service").Logger(),
		tracer:      otel.Tracer("github.com/noah-isme/gema-evidence-api/internal/service/access_date"),
	}
}

// Repair fixes every broken access-from date of the user's enrolled courses
// and of any course that already has an access-from key.
func (s *accessDateService) Repair(ctx context.Context, userID uint) (int, error) {
	ctx, span := s.tracer.Start(ctx, "access_dates.repair_user", trace.WithAttributes(
		attribute.Int64("access_dates.user_id", int64(userID)),
	))
	defer span.End()

	fixed, err := s.repairUser(ctx, userID, "user")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repair_failed")
		return fixed, err
	}
	span.SetAttributes(attribute.Int("access_dates.fixed", fixed))
	return fixed, nil
}

// RepairCourse fixes the access-from date of a single course.
func (s *accessDateService) RepairCourse(ctx context.Context, userID, courseID uint) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "access_dates.repair_course", trace.WithAttributes(
		attribute.Int64("access_dates.user_id", int64(userID)),
		attribute.Int64("access_dates.course_id", int64(courseID)),
	))
	defer span.End()

	user, err := s.loadUser(ctx, userID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "user_lookup_failed")
		return false, err
	}

	current, _, err := s.meta.Get(ctx, userID, models.AccessFromMetaKey(courseID))
	if err != nil {
		span.RecordError(err)
		return false, err
	}

	fixed, err := s.fix(ctx, user, courseID, current, "course")
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repair_failed")
	}
	return fixed, err
}

func (s *accessDateService) ListAffected(ctx context.Context) ([]AffectedUser, error) {
	metas, err := s.meta.ListByKeyPattern(ctx, accessFromLikePattern)
	if err != nil {
		return nil, err
	}

	courses := make(map[uint][]uint)
	order := make([]uint, 0)
	for _, meta := range metas {
		courseID, ok := models.ParseAccessFromMetaKey(meta.MetaKey)
		if !ok || !IsBrokenAccessDate(meta.MetaValue) {
			continue
		}
		if _, seen := courses[meta.UserID]; !seen {
			order = append(order, meta.UserID)
		}
		courses[meta.UserID] = append(courses[meta.UserID], courseID)
	}
	if len(order) == 0 {
		return []AffectedUser{}, nil
	}

	users, err := s.users.ListByIDs(ctx, order)
	if err != nil {
		return nil, err
	}
	byID := make(map[uint]models.User, len(users))
	for _, user := range users {
		byID[user.ID] = user
	}

	affected := make([]AffectedUser, 0, len(order))
	for _, userID := range order {
		user, ok := byID[userID]
		if !ok {
			continue
		}
		ids := courses[userID]
		sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
		affected = append(affected, AffectedUser{
			UserID:       user.ID,
			DisplayName:  user.DisplayName,
			Email:        user.Email,
			RegisteredAt: user.RegisteredAt,
			CourseIDs:    ids,
		})
	}
	return affected, nil
}

func (s *accessDateService) RepairAll(ctx context.Context) (int, error) {
	ctx, span := s.tracer.Start(ctx, "access_dates.repair_all")
	defer span.End()

	affected, err := s.ListAffected(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list_failed")
		return 0, err
	}

	total := 0
	var errs []error
	for _, user := range affected {
		fixed, err := s.repairUser(ctx, user.UserID, "bulk")
		total += fixed
		if err != nil {
			errs = append(errs, fmt.Errorf("user %d: %w", user.UserID, err))
		}
	}

	span.SetAttributes(
		attribute.Int("access_dates.users", len(affected)),
		attribute.Int("access_dates.fixed", total),
	)
	s.logger.Info().Int("users", len(affected)).Int("fixed", total).Msg("bulk access date repair finished")

	if err := errors.Join(errs...); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "partial_failure")
		return total, err
	}
	return total, nil
}

func (s *accessDateService) repairUser(ctx context.Context, userID uint, scope string) (int, error) {
	user, err := s.loadUser(ctx, userID)
	if err != nil {
		return 0, err
	}

	enrolled, err := s.enrollments.ListCourseIDs(ctx, userID)
	if err != nil {
		return 0, fmt.Errorf("list enrollments: %w", err)
	}
	metas, err := s.meta.ListForUser(ctx, userID, accessFromLikePattern)
	if err != nil {
		return 0, fmt.Errorf("list access dates: %w", err)
	}

	values := make(map[uint]string, len(metas))
	courseIDs := make([]uint, 0, len(enrolled)+len(metas))
	for _, courseID := range enrolled {
		if _, ok := values[courseID]; ok {
			continue
		}
		values[courseID] = ""
		courseIDs = append(courseIDs, courseID)
	}
	for _, meta := range metas {
		courseID, ok := models.ParseAccessFromMetaKey(meta.MetaKey)
		if !ok {
			continue
		}
		if _, known := values[courseID]; !known {
			courseIDs = append(courseIDs, courseID)
		}
		values[courseID] = meta.MetaValue
	}

	fixed := 0
	for _, courseID := range courseIDs {
		changed, err := s.fix(ctx, user, courseID, values[courseID], scope)
		if err != nil {
			return fixed, err
		}
		if changed {
			fixed++
		}
	}
	return fixed, nil
}

// fix writes the registration timestamp when current is broken and reports whether it wrote.
func (s *accessDateService) fix(ctx context.Context, user models.User, courseID uint, current, scope string) (bool, error) {
	if courseID == 0 || !IsBrokenAccessDate(current) {
		return false, nil
	}

	registered := user.RegisteredAt.Unix()
	if user.RegisteredAt.IsZero() || registered <= AccessDateFloor {
		s.logger.Warn().Uint("user_id", user.ID).Uint("course_id", courseID).Msg("registration date unusable, access date left untouched")
		return false, nil
	}

	replacement := strconv.FormatInt(registered, 10)
	if err := s.meta.Set(ctx, user.ID, models.AccessFromMetaKey(courseID), replacement); err != nil {
		return false, fmt.Errorf("write access date: %w", err)
	}

	observability.AccessDatesCorrected().WithLabelValues(scope).Inc()
	s.logger.Info().
		Uint("user_id", user.ID).
		Uint("course_id", courseID).
		Str("previous", current).
		Str("replacement", replacement).
		Msg("access date corrected")

	s.audit(ctx, user.ID, courseID, current, replacement)

	notification := events.Notification{
		Type:   NotificationAccessDateCorrected,
		UserID: user.ID,
		Attributes: map[string]any{
			"course_id":   courseID,
			"access_from": registered,
		},
	}
	if err := s.publisher.Publish(ctx, notification); err != nil {
		s.logger.Warn().Err(err).Uint("user_id", user.ID).Msg("failed to publish access date correction")
	}

	return true, nil
}

func (s *accessDateService) audit(ctx context.Context, userID, courseID uint, previous, replacement string) {
	if s.activity == nil {
		return
	}
	entityID := userID
	_, err := s.activity.Record(ctx, ActivityEntry{
		ActorID:    SystemActor.ID,
		ActorRole:  SystemActor.Role,
		Action:     models.ActionAccessDateCorrected,
		EntityType: "user",
		EntityID:   &entityID,
		Metadata: map[string]interface{}{
			"course_id":   courseID,
			"previous":    previous,
			"replacement": replacement,
		},
	})
	if err != nil {
		s.logger.Warn().Err(err).Uint("user_id", userID).Msg("failed to record access date correction")
	}
}

func (s *accessDateService) loadUser(ctx context.Context, userID uint) (models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.User{}, ErrUserNotFound
		}
		return models.User{}, err
	}
	return user, nil
}
