package analytics

import (
	"context"
	"errors"
	"time"
)

// EventType names an ad session event.
type EventType string

const (
	EventLoadRequested EventType = "load_requested"
	EventLoadSucceeded EventType = "load_succeeded"
	EventLoadFailed    EventType = "load_failed"
	EventShown         EventType = "shown"
	EventClosed        EventType = "closed"
	EventClicked       EventType = "clicked"
	EventImpression    EventType = "impression"
	EventRewardGranted EventType = "reward_granted"
	EventRewardFailed  EventType = "reward_failed"
	EventStaleCallback EventType = "stale_callback"
)

// AllEventTypes lists every event type in lifecycle order.
func AllEventTypes() []EventType {
	return []EventType{
		EventLoadRequested, EventLoadSucceeded, EventLoadFailed,
		EventShown, EventImpression, EventClicked, EventClosed,
		EventRewardGranted, EventRewardFailed, EventStaleCallback,
	}
}

// Event is one observation made by an ad session.
type Event struct {
	Timestamp   time.Time `json:"timestamp"`
	SessionID   string    `json:"session_id"`
	Format      string    `json:"format"`
	PlacementID string    `json:"placement_id"`
	Type        EventType `json:"type"`
	HandleID    string    `json:"handle_id"`
	// Detail carries the failure reason or the name of a stale callback.
	Detail string `json:"detail,omitempty"`
}

// EventSink receives session events. Implementations must be safe for
// concurrent use.
type EventSink interface {
	Record(ctx context.Context, ev Event) error
	Close() error
}

// ErrUnavailable is returned when the sink's backing store is not configured.
var ErrUnavailable = errors.New("analytics unavailable")

// NoOp discards every event.
type NoOp struct{}

func (NoOp) Record(context.Context, Event) error { return nil }
func (NoOp) Close() error                        { return nil }

// Multi fans events out to several sinks. Every sink receives the event even
// when an earlier one fails; the errors are joined.
type Multi []EventSink

func (m Multi) Record(ctx context.Context, ev Event) error {
	var errs []error
	for _, s := range m {
		if err := s.Record(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) Close() error {
	var errs []error
	for _, s := range m {
		if err := s.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
