package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog"

	"github.com/noah-isme/gema-evidence-api/internal/observability"
)

// NATSSource feeds host events published on a NATS subject into a Dispatcher.
type NATSSource struct {
	conn       *nats.Conn
	subject    string
	queue      string
	dispatcher Dispatcher
	logger     zerolog.Logger
}

// NewNATSSource constructs a source; a nil connection makes Start a no-op.
func NewNATSSource(conn *nats.Conn, subject string, dispatcher Dispatcher, logger zerolog.Logger) *NATSSource {
	return &NATSSource{
		conn:       conn,
		subject:    subject,
		queue:      "gema-evidence",
		dispatcher: dispatcher,
		logger:     logger.With().Str("component", "nats_event_source").Logger(),
	}
}

// Start subscribes until ctx is cancelled. Each message is dispatched inside its callback.
func (s *NATSSource) Start(ctx context.Context) error {
	if s.conn == nil || s.subject == "" {
		return nil
	}

	sub, err := s.conn.QueueSubscribe(s.subject, s.queue, func(msg *nats.Msg) {
		s.HandleMessage(observability.WithCorrelationID(ctx, messageCorrelationID(msg)), msg.Data)
	})
	if err != nil {
		return err
	}

	go func() {
		<-ctx.Done()
		if err := sub.Drain(); err != nil {
			s.logger.Warn().Err(err).Msg("failed to drain host event subscription")
		}
	}()

	return nil
}

// messageCorrelationID reuses the publisher's id when the host sent one.
func messageCorrelationID(msg *nats.Msg) string {
	if msg.Header != nil {
		if id := msg.Header.Get(CorrelationHeader); id != "" {
			return id
		}
	}
	return uuid.NewString()
}

// HandleMessage decodes one payload and dispatches it.
func (s *NATSSource) HandleMessage(ctx context.Context, payload []byte) {
	event, err := DecodeEvent(payload)
	if err != nil {
		s.logger.Warn().Err(err).Msg("invalid host event payload")
		return
	}
	if err := s.dispatcher.Dispatch(ctx, event); err != nil {
		s.logger.Error().Err(err).Str("kind", string(event.Kind)).Msg("host event dispatch failed")
	}
}

// DecodeEvent parses a JSON event, stamping OccurredAt when absent.
func DecodeEvent(payload []byte) (Event, error) {
	var event Event
	if err := json.Unmarshal(payload, &event); err != nil {
		return Event{}, err
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}
	return event, nil
}
