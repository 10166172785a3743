// Package events replaces host lifecycle hooks with typed events dispatched
// synchronously to registered handlers.
package events

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/observability"
)

// Kind names a host lifecycle event.
type Kind string

// Host lifecycle events the service reacts to.
const (
	KindUserCreated         Kind = "user.created"
	KindUserMetaWritten     Kind = "user_meta.written"
	KindCourseAccessGranted Kind = "course.access_granted"
	KindActivityUpdated     Kind = "activity.updated"
)

// Valid reports whether the kind is one the bus understands.
func (k Kind) Valid() bool {
	switch k {
	case KindUserCreated, KindUserMetaWritten, KindCourseAccessGranted, KindActivityUpdated:
		return true
	default:
		return false
	}
}

// Event carries the fields of every kind; unused fields stay zero.
type Event struct {
	Kind         Kind      `json:"kind"`
	UserID       uint      `json:"user_id"`
	CourseID     uint      `json:"course_id,omitempty"`
	MetaKey      string    `json:"meta_key,omitempty"`
	MetaValue    string    `json:"meta_value,omitempty"`
	ActivityType string    `json:"activity_type,omitempty"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Handler reacts to events for which Matches returns true.
// Matches must be a pure function of the event.
type Handler interface {
	Name() string
	Matches(event Event) bool
	Handle(ctx context.Context, event Event) error
}

// Dispatcher accepts events for synchronous processing.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}

// Bus fans an event out to every matching handler in registration order.
type Bus struct {
	mu       sync.RWMutex
	handlers []Handler
	logger   zerolog.Logger
}

// NewBus constructs an empty bus.
func NewBus(logger zerolog.Logger) *Bus {
	return &Bus{logger: logger.With().Str("component", "event_bus").Logger()}
}

// Subscribe registers handlers.
func (b *Bus) Subscribe(handlers ...Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers = append(b.handlers, handlers...)
}

// Dispatch runs every matching handler; one failing handler does not stop the others.
func (b *Bus) Dispatch(ctx context.Context, event Event) error {
	if !event.Kind.Valid() {
		return fmt.Errorf("unknown event kind %q", event.Kind)
	}

	b.mu.RLock()
	handlers := make([]Handler, len(b.handlers))
	copy(handlers, b.handlers)
	b.mu.RUnlock()

	var errs []error
	matched := 0
	for _, handler := range handlers {
		if !handler.Matches(event) {
			continue
		}
		matched++
		if err := handler.Handle(ctx, event); err != nil {
			b.logger.Error().Err(err).
				Str("handler", handler.Name()).
				Str("kind", string(event.Kind)).
				Uint("user_id", event.UserID).
				Msg("event handler failed")
			errs = append(errs, fmt.Errorf("%s: %w", handler.Name(), err))
			continue
		}
		b.logger.Debug().Str("handler", handler.Name()).Str("kind", string(event.Kind)).Msg("event handled")
	}

	outcome := "handled"
	switch {
	case len(errs) > 0:
		outcome = "failed"
	case matched == 0:
		outcome = "ignored"
	}
	observability.EventsDispatched().WithLabelValues(string(event.Kind), outcome).Inc()

	return errors.Join(errs...)
}
