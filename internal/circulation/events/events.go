// Package events notifies observers of circulation lifecycle transitions.
// Publishing happens after the owning transaction commits; a failed
// publish is logged and never unwinds the transition.
package events

import "context"

const (
	TypeBorrowingCreated     = "borrowing.created"
	TypeBorrowingReturned    = "borrowing.returned"
	TypeReservationCreated   = "reservation.created"
	TypeReservationReceived  = "reservation.received"
	TypeReservationCancelled = "reservation.cancelled"
)

// Event is one circulation transition.
type Event struct {
	EventID   string         `json:"event_id"`
	EventType string         `json:"event_type"`
	Timestamp string         `json:"timestamp"`
	Payload   map[string]any `json:"payload"`
}

// Publisher is the observer boundary the services talk to.
type Publisher interface {
	Publish(ctx context.Context, eventType string, payload map[string]any) error
	Close() error
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(ctx context.Context, eventType string, payload map[string]any) error {
	return nil
}

func (Nop) Close() error { return nil }
