package dto

import (
	"time"

	"github.com/noah-isme/gema-evidence-api/internal/events"
)

// HostEventRequest is the webhook body the host posts for lifecycle events.
type HostEventRequest struct {
	Kind         string     `json:"kind" validate:"required,oneof=user.created user_meta.written course.access_granted activity.updated"`
	UserID       uint       `json:"user_id" validate:"required,gt=0"`
	CourseID     uint       `json:"course_id"`
	MetaKey      string     `json:"meta_key" validate:"required_if=Kind user_meta.written,max=191"`
	MetaValue    string     `json:"meta_value"`
	ActivityType string     `json:"activity_type" validate:"required_if=Kind activity.updated,max=32"`
	OccurredAt   *time.Time `json:"occurred_at"`
}

// Event converts the request into a bus event.
func (r HostEventRequest) Event(now time.Time) events.Event {
	occurred := now
	if r.OccurredAt != nil && !r.OccurredAt.IsZero() {
		occurred = *r.OccurredAt
	}
	return events.Event{
		Kind:         events.Kind(r.Kind),
		UserID:       r.UserID,
		CourseID:     r.CourseID,
		MetaKey:      r.MetaKey,
		MetaValue:    r.MetaValue,
		ActivityType: r.ActivityType,
		OccurredAt:   occurred.UTC(),
	}
}

// HostEventResponse acknowledges a dispatched event.
type HostEventResponse struct {
	Kind       string    `json:"kind"`
	UserID     uint      `json:"user_id"`
	OccurredAt time.Time `json:"occurred_at"`
}
