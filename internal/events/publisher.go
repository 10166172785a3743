package events

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"

	"github.com/noah-isme/gema-evidence-api/internal/observability"
)

// CorrelationHeader names the NATS header carrying a correlation id.
const CorrelationHeader = "X-Correlation-ID"

// Notification is an outbound message describing a write the service performed.
type Notification struct {
	Source        string         `json:"source"`
	CorrelationID string         `json:"correlation_id,omitempty"`
	Type          string         `json:"type"`
	UserID        uint           `json:"user_id"`
	Attributes    map[string]any `json:"attributes,omitempty"`
	SentAt        time.Time      `json:"sent_at"`
}

// Publisher delivers notifications to downstream consumers.
type Publisher interface {
	Publish(ctx context.Context, notification Notification) error
}

type fanoutPublisher struct {
	redis        *redis.Client
	redisChannel string
	nats         *nats.Conn
	natsSubject  string
	nodeID       string
	now          func() time.Time
}

// NewFanoutPublisher publishes to redis pub/sub and NATS; either transport may be nil.
func NewFanoutPublisher(redisClient *redis.Client, redisChannel string, natsConn *nats.Conn, natsSubject string) Publisher {
	return &fanoutPublisher{
		redis:        redisClient,
		redisChannel: redisChannel,
		nats:         natsConn,
		natsSubject:  natsSubject,
		nodeID:       uuid.NewString(),
		now:          time.Now,
	}
}

func (p *fanoutPublisher) Publish(ctx context.Context, notification Notification) error {
	notification.Source = p.nodeID
	if notification.CorrelationID == "" {
		notification.CorrelationID = observability.CorrelationID(ctx)
	}
	if notification.SentAt.IsZero() {
		notification.SentAt = p.now().UTC()
	}

	payload, err := json.Marshal(notification)
	if err != nil {
		return err
	}

	var errs []error
	if p.redis != nil && p.redisChannel != "" {
		if err := p.redis.Publish(ctx, p.redisChannel, payload).Err(); err != nil {
			errs = append(errs, err)
		}
	}
	if p.nats != nil && p.natsSubject != "" {
		msg := nats.NewMsg(p.natsSubject)
		msg.Data = payload
		if notification.CorrelationID != "" {
			msg.Header.Set(CorrelationHeader, notification.CorrelationID)
		}
		if err := p.nats.PublishMsg(msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// NopPublisher discards notifications.
type NopPublisher struct{}

// Publish implements Publisher.
func (NopPublisher) Publish(context.Context, Notification) error { return nil }
