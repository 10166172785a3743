package service

import (
	"context"

	"github.com/noah-isme/gema-evidence-api/internal/events"
	"github.com/noah-isme/gema-evidence-api/internal/models"
)

// ActivityTypeCourse is the activity type whose updates trigger a repair.
const ActivityTypeCourse = "course"

// AccessDateHandlers returns the event handlers that keep access-from dates repaired.
func AccessDateHandlers(svc AccessDateService) []events.Handler {
	return []events.Handler{
		userCreatedHook{svc: svc},
		accessMetaWrittenHook{svc: svc},
		accessGrantedHook{svc: svc},
		courseActivityHook{svc: svc},
	}
}

type userCreatedHook struct{ svc AccessDateService }

func (userCreatedHook) Name() string { return "access_date.user_created" }

func (userCreatedHook) Matches(event events.Event) bool {
	return event.Kind == events.KindUserCreated && event.UserID > 0
}

func (h userCreatedHook) Handle(ctx context.Context, event events.Event) error {
	_, err := h.svc.Repair(ctx, event.UserID)
	return err
}

type accessMetaWrittenHook struct{ svc AccessDateService }

func (accessMetaWrittenHook) Name() string { return "access_date.meta_written" }

func (accessMetaWrittenHook) Matches(event events.Event) bool {
	if event.Kind != events.KindUserMetaWritten || event.UserID == 0 {
		return false
	}
	if _, ok := models.ParseAccessFromMetaKey(event.MetaKey); !ok {
		return false
	}
	return IsBrokenAccessDate(event.MetaValue)
}

func (h accessMetaWrittenHook) Handle(ctx context.Context, event events.Event) error {
	courseID, _ := models.ParseAccessFromMetaKey(event.MetaKey)
	_, err := h.svc.RepairCourse(ctx, event.UserID, courseID)
	return err
}

type accessGrantedHook struct{ svc AccessDateService }

func (accessGrantedHook) Name() string { return "access_date.access_granted" }

func (accessGrantedHook) Matches(event events.Event) bool {
	return event.Kind == events.KindCourseAccessGranted && event.UserID > 0 && event.CourseID > 0
}

func (h accessGrantedHook) Handle(ctx context.Context, event events.Event) error {
	_, err := h.svc.RepairCourse(ctx, event.UserID, event.CourseID)
	return err
}

type courseActivityHook struct{ svc AccessDateService }

func (courseActivityHook) Name() string { return "access_date.course_activity" }

func (courseActivityHook) Matches(event events.Event) bool {
	return event.Kind == events.KindActivityUpdated &&
		event.UserID > 0 &&
		event.CourseID > 0 &&
		event.ActivityType == ActivityTypeCourse
}

func (h courseActivityHook) Handle(ctx context.Context, event events.Event) error {
	_, err := h.svc.RepairCourse(ctx, event.UserID, event.CourseID)
	return err
}
