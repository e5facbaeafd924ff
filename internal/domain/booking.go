package domain

import (
	"strings"
	"time"
)

// Booking is a reservation of Quantity tickets against one event
type Booking struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Quantity      int       `json:"quantity"`
	CreatedBy     string    `json:"created_by"`
	BookingTime   time.Time `json:"booking_time"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// NewBooking validates and builds a booking owned by ownerID
func NewBooking(eventID, customerName, customerEmail string, quantity int, ownerID string) (*Booking, error) {
	b := &Booking{
		EventID:       strings.TrimSpace(eventID),
		CustomerName:  strings.TrimSpace(customerName),
		CustomerEmail: strings.TrimSpace(customerEmail),
		Quantity:      quantity,
		CreatedBy:     ownerID,
	}
	if b.EventID == "" {
		return nil, ErrInvalidEventID
	}
	if quantity <= 0 {
		return nil, ErrInvalidQuantity
	}
	if b.CustomerName == "" {
		return nil, InvalidArgument("customer_name", "is required")
	}
	if b.CustomerEmail == "" {
		return nil, InvalidArgument("customer_email", "is required")
	}
	return b, nil
}

// BookingUpdate carries the optional changes to an existing booking
type BookingUpdate struct {
	Quantity      *int
	CustomerName  *string
	CustomerEmail *string
}

// Validate rejects empty or non-positive values before any lock is taken
func (u *BookingUpdate) Validate() error {
	if u.Quantity != nil && *u.Quantity <= 0 {
		return ErrInvalidQuantity
	}
	if u.CustomerName != nil && strings.TrimSpace(*u.CustomerName) == "" {
		return InvalidArgument("customer_name", "must not be empty")
	}
	if u.CustomerEmail != nil && strings.TrimSpace(*u.CustomerEmail) == "" {
		return InvalidArgument("customer_email", "must not be empty")
	}
	return nil
}

// IsEmpty reports whether the update changes nothing
func (u *BookingUpdate) IsEmpty() bool {
	return u.Quantity == nil && u.CustomerName == nil && u.CustomerEmail == nil
}

// BookingEventType is the kind of booking change published downstream
type BookingEventType string

const (
	BookingEventCreated   BookingEventType = "booking.created"
	BookingEventUpdated   BookingEventType = "booking.updated"
	BookingEventCancelled BookingEventType = "booking.cancelled"
)

// BookingEvent is the message published for each committed booking change
type BookingEvent struct {
	EventID    string           `json:"event_id"`
	EventType  BookingEventType `json:"event_type"`
	OccurredAt time.Time        `json:"occurred_at"`
	Version    int              `json:"version"`
	Booking    *Booking         `json:"booking"`
	// QuantityDelta is the change applied to the event's available tickets
	QuantityDelta int `json:"quantity_delta"`
}

// NewBookingEvent wraps a booking change for publishing
func NewBookingEvent(eventType BookingEventType, booking *Booking, eventID string, delta int) *BookingEvent {
	return &BookingEvent{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		Version:       1,
		Booking:       booking,
		QuantityDelta: delta,
	}
}

// Key partitions booking events by the booked event so one event's
// changes stay ordered
func (e *BookingEvent) Key() string {
	if e.Booking == nil {
		return e.EventID
	}
	return e.Booking.EventID
}
