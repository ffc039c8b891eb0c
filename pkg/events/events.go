// Package events publishes booking lifecycle events for other services
// (notifications, analytics) to consume.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

const (
	BookingCreated       = "booking.created"
	BookingStatusChanged = "booking.status_changed"
	BookingRated         = "booking.rated"
)

type Publisher interface {
	Publish(ctx context.Context, subject string, data any) error
	Close() error
}

type NATSPublisher struct {
	conn *nats.Conn
	log  *zap.Logger
}

func NewNATSPublisher(url string, log *zap.Logger) (*NATSPublisher, error) {
	conn, err := nats.Connect(url,
		nats.Name("local-services"),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS: %w", err)
	}
	return &NATSPublisher{conn: conn, log: log.With(zap.String("publisher", "nats"))}, nil
}

func (p *NATSPublisher) Publish(ctx context.Context, subject string, data any) error {
	payload, err := json.Marshal(data)
	if err != nil {
		return fmt.Errorf("marshal %s event: %w", subject, err)
	}

	p.log.Debug("Publishing event", zap.String("subject", subject), zap.ByteString("data", payload))
	return p.conn.Publish(subject, payload)
}

func (p *NATSPublisher) Close() error {
	return p.conn.Drain()
}

// Nop drops every event. Used when NATS_URL is empty.
type Nop struct{}

func (Nop) Publish(ctx context.Context, subject string, data any) error {
	return nil
}

func (Nop) Close() error {
	return nil
}

type BookingCreatedEvent struct {
	BookingID  string    `json:"booking_id"`
	UserID     string    `json:"user_id"`
	ServiceID  string    `json:"service_id"`
	ProviderID string    `json:"provider_id"`
	Date       time.Time `json:"date"`
	CreatedAt  time.Time `json:"created_at"`
}

type BookingStatusChangedEvent struct {
	BookingID string    `json:"booking_id"`
	From      string    `json:"from"`
	To        string    `json:"to"`
	ChangedBy string    `json:"changed_by"`
	ChangedAt time.Time `json:"changed_at"`
}

type BookingRatedEvent struct {
	BookingID    string    `json:"booking_id"`
	ProviderID   string    `json:"provider_id"`
	Rating       int       `json:"rating"`
	NewMean      float64   `json:"new_mean"`
	RatingsCount int       `json:"ratings_count"`
	RatedAt      time.Time `json:"rated_at"`
}
