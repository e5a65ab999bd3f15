package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go"
	"github.com/rs/zerolog/log"
)

// Publisher delivers room events to external subscribers (a UI push
// channel, standings computation, and so on). Implementations must not
// block the caller for longer than a local buffer write: scheduler
// callbacks publish inline.
type Publisher interface {
	Publish(ctx context.Context, roomID uuid.UUID, eventType string, payload any) error
}

// NATSPublisher publishes room events to NATS subjects of the form
// <prefix>.rooms.<eventType>.
type NATSPublisher struct {
	nc     *nats.Conn
	prefix string
}

// NewNATSPublisher creates a publisher over an established NATS connection.
func NewNATSPublisher(nc *nats.Conn, prefix string) *NATSPublisher {
	return &NATSPublisher{nc: nc, prefix: prefix}
}

// Publish wraps the payload in the standard envelope and hands it to NATS.
// nats.Conn buffers writes, so this does not wait on the wire.
func (p *NATSPublisher) Publish(ctx context.Context, roomID uuid.UUID, eventType string, payload any) error {
	subject := fmt.Sprintf("%s.rooms.%s", p.prefix, eventType)

	envelope := map[string]any{
		"eventId":   uuid.New().String(),
		"eventType": eventType,
		"roomId":    roomID.String(),
		"timestamp": time.Now().UTC(),
		"payload":   payload,
	}

	messageBytes, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	if err := p.nc.Publish(subject, messageBytes); err != nil {
		return fmt.Errorf("failed to publish %s: %w", eventType, err)
	}

	log.Debug().
		Str("subject", subject).
		Str("room_id", roomID.String()).
		Int("size", len(messageBytes)).
		Msg("published room event")

	return nil
}

// LogPublisher writes events to the log only. Used in development and as a
// stand-in when no NATS URL is configured.
type LogPublisher struct{}

// NewLogPublisher creates a log-only publisher.
func NewLogPublisher() *LogPublisher {
	return &LogPublisher{}
}

func (p *LogPublisher) Publish(ctx context.Context, roomID uuid.UUID, eventType string, payload any) error {
	log.Info().
		Str("event_type", eventType).
		Str("room_id", roomID.String()).
		Msg("room event")
	return nil
}
