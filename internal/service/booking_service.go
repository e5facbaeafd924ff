package service

import (
	"context"

	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/dto"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/prohmpiriya/event-booking/pkg/logger"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"
)

// BookingService defines the interface for booking business logic
type BookingService interface {
	// CreateBooking reserves tickets for the actor
	CreateBooking(ctx context.Context, actor domain.Actor, req *dto.CreateBookingRequest) (*domain.Booking, error)

	// UpdateBooking changes quantity and customer fields of an owned booking
	UpdateBooking(ctx context.Context, actor domain.Actor, id string, req *dto.UpdateBookingRequest) (*domain.Booking, error)

	// UpdateBookingQuantity changes only the quantity
	UpdateBookingQuantity(ctx context.Context, actor domain.Actor, id string, quantity int) (*domain.Booking, error)

	// CancelBooking returns the tickets and deletes the booking
	CancelBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)

	// GetBooking retrieves a booking the actor may see
	GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error)

	// ListBookings lists all bookings for an admin, otherwise the actor's own
	ListBookings(ctx context.Context, actor domain.Actor, page, pageSize int) (*dto.BookingList, error)
}

// bookingService implements BookingService
type bookingService struct {
	ledger      repository.BookingLedger
	invalidator EventInvalidator
	publisher   EventPublisher
	log         *logger.Logger
}

// NewBookingService creates a new booking service
func NewBookingService(
	ledger repository.BookingLedger,
	invalidator EventInvalidator,
	publisher EventPublisher,
) BookingService {
	if publisher == nil {
		publisher = NewNoOpEventPublisher()
	}
	return &bookingService{
		ledger:      ledger,
		invalidator: invalidator,
		publisher:   publisher,
		log:         logger.Get(),
	}
}

// CreateBooking validates the request, reserves inventory in one ledger
// transaction and invalidates the event's cached reads after commit
func (s *bookingService) CreateBooking(ctx context.Context, actor domain.Actor, req *dto.CreateBookingRequest) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.create")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", actor.ID),
		attribute.String("event_id", req.EventID),
		attribute.Int("quantity", req.Quantity),
	)

	if err := validActor(actor); err != nil {
		return nil, fail(span, err)
	}
	booking, err := domain.NewBooking(req.EventID, req.CustomerName, req.CustomerEmail, req.Quantity, actor.ID)
	if err != nil {
		return nil, fail(span, err)
	}
	if err := validID(booking.EventID, domain.ErrEventNotFound); err != nil {
		return nil, fail(span, err)
	}

	created, err := s.ledger.CreateBooking(ctx, booking)
	if err != nil {
		return nil, fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, created.EventID)
	s.publish(ctx, domain.BookingEventCreated, func(ctx context.Context) error {
		return s.publisher.PublishBookingCreated(ctx, created)
	})

	span.SetAttributes(attribute.String("booking_id", created.ID))
	span.SetStatus(codes.Ok, "")
	return created, nil
}

// UpdateBooking applies a partial update, reconciling the quantity delta
// against the event's inventory
func (s *bookingService) UpdateBooking(ctx context.Context, actor domain.Actor, id string, req *dto.UpdateBookingRequest) (*domain.Booking, error) {
	return s.update(ctx, actor, id, req.ToDomain())
}

// UpdateBookingQuantity changes only the quantity of a booking
func (s *bookingService) UpdateBookingQuantity(ctx context.Context, actor domain.Actor, id string, quantity int) (*domain.Booking, error) {
	return s.update(ctx, actor, id, &domain.BookingUpdate{Quantity: &quantity})
}

func (s *bookingService) update(ctx context.Context, actor domain.Actor, id string, update *domain.BookingUpdate) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.update")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", actor.ID),
		attribute.String("booking_id", id),
	)

	if update.IsEmpty() {
		return nil, fail(span, domain.InvalidArgument("body", "must change at least one field"))
	}
	if err := update.Validate(); err != nil {
		return nil, fail(span, err)
	}
	if err := validID(id, domain.ErrBookingNotFound); err != nil {
		return nil, fail(span, err)
	}

	change, err := s.ledger.UpdateBooking(ctx, id, update, actor)
	if err != nil {
		return nil, fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, change.Booking.EventID)
	s.publish(ctx, domain.BookingEventUpdated, func(ctx context.Context) error {
		return s.publisher.PublishBookingUpdated(ctx, change.Booking, change.Delta)
	})

	span.SetAttributes(attribute.Int("delta", change.Delta))
	span.SetStatus(codes.Ok, "")
	return change.Booking, nil
}

// CancelBooking restores the booking's tickets to its event and deletes it
func (s *bookingService) CancelBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.cancel")
	defer span.End()

	span.SetAttributes(
		attribute.String("user_id", actor.ID),
		attribute.String("booking_id", id),
	)

	if err := validID(id, domain.ErrBookingNotFound); err != nil {
		return nil, fail(span, err)
	}

	cancelled, err := s.ledger.CancelBooking(ctx, id, actor)
	if err != nil {
		return nil, fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, cancelled.EventID)
	s.publish(ctx, domain.BookingEventCancelled, func(ctx context.Context) error {
		return s.publisher.PublishBookingCancelled(ctx, cancelled)
	})

	span.SetStatus(codes.Ok, "")
	return cancelled, nil
}

// GetBooking retrieves a booking owned by the actor, or any booking for an admin
func (s *bookingService) GetBooking(ctx context.Context, actor domain.Actor, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.get")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	if err := validID(id, domain.ErrBookingNotFound); err != nil {
		return nil, fail(span, err)
	}

	booking, err := s.ledger.GetBooking(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}
	if !actor.CanAccess(booking.CreatedBy) {
		return nil, fail(span, domain.ErrForbidden)
	}

	span.SetStatus(codes.Ok, "")
	return booking, nil
}

// ListBookings returns a page of bookings, newest first
func (s *bookingService) ListBookings(ctx context.Context, actor domain.Actor, page, pageSize int) (*dto.BookingList, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.booking.list")
	defer span.End()

	if err := validActor(actor); err != nil {
		return nil, fail(span, err)
	}
	q := dto.ListBookingsQuery{Page: page, PageSize: pageSize}
	q.Normalize()

	owner := actor.ID
	if actor.IsAdmin() {
		owner = ""
	}
	span.SetAttributes(
		attribute.String("owner_id", owner),
		attribute.Int("page", q.Page),
	)

	bookings, total, err := s.ledger.ListBookings(ctx, owner, q.PageSize, q.Offset())
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetStatus(codes.Ok, "")
	return &dto.BookingList{
		Bookings: bookings,
		Total:    total,
		Page:     q.Page,
		PageSize: q.PageSize,
	}, nil
}

// publish sends a booking event after commit. A failure is logged and never
// reaches the caller.
func (s *bookingService) publish(ctx context.Context, eventType domain.BookingEventType, fn func(ctx context.Context) error) {
	if err := fn(context.WithoutCancel(ctx)); err != nil {
		s.log.WarnContext(ctx, "failed to publish booking event",
			zap.String("event_type", string(eventType)),
			zap.Error(err),
		)
	}
}
