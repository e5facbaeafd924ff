package repository

import (
	"context"

	"github.com/prohmpiriya/event-booking/internal/domain"
)

// EventRepository persists events. It never changes ticket counts after
// creation; only the BookingLedger does.
type EventRepository interface {
	// Create inserts an event and fills its generated fields
	Create(ctx context.Context, event *domain.Event) error

	// GetByID returns domain.ErrEventNotFound when the event does not exist
	GetByID(ctx context.Context, id string) (*domain.Event, error)

	// List returns all events ordered by date_time ascending
	List(ctx context.Context) ([]*domain.Event, error)

	// Update applies descriptive changes and returns the stored event
	Update(ctx context.Context, id string, update *domain.EventUpdate) (*domain.Event, error)

	// Delete removes an event and, by cascade, its bookings
	Delete(ctx context.Context, id string) error

	// ExistingIDs returns the subset of ids that still exist
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)
}

// BookingChange is the committed result of a booking update
type BookingChange struct {
	Booking *domain.Booking
	// Delta is new quantity minus old quantity
	Delta int
}

// BookingLedger runs the inventory reservation transactions.
//
// Lock order is Booking before Event in every transaction that touches both.
// CreateBooking locks only the Event. All transactions run at READ COMMITTED
// with row locks taken by SELECT ... FOR UPDATE and a bounded lock_timeout.
// A lock timeout, deadlock or lost connection surfaces as a
// *domain.TransientError.
type BookingLedger interface {
	// CreateBooking reserves booking.Quantity tickets and inserts the booking
	CreateBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error)

	// UpdateBooking changes quantity and customer fields, reconciling the
	// inventory delta in the same transaction
	UpdateBooking(ctx context.Context, id string, update *domain.BookingUpdate, actor domain.Actor) (*BookingChange, error)

	// CancelBooking returns the booking's tickets to the event and deletes it
	CancelBooking(ctx context.Context, id string, actor domain.Actor) (*domain.Booking, error)

	// GetBooking reads a booking without locking it
	GetBooking(ctx context.Context, id string) (*domain.Booking, error)

	// ListBookings returns bookings newest first. An empty ownerID lists all.
	ListBookings(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Booking, int, error)
}

// UserRepository persists user accounts
type UserRepository interface {
	// Create returns domain.ErrUserAlreadyExists on a duplicate email
	Create(ctx context.Context, user *domain.User) error
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByID(ctx context.Context, id string) (*domain.User, error)
}
