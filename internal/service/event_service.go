package service

import (
	"context"

	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/dto"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// EventService defines the interface for event business logic
type EventService interface {
	// CreateEvent creates an event with its whole ticket pool available
	CreateEvent(ctx context.Context, actor domain.Actor, req *dto.CreateEventRequest) (*domain.Event, error)

	// GetEvent retrieves an event through the cache and counts the view
	GetEvent(ctx context.Context, id string) (*domain.Event, error)

	// ListEvents lists all events ordered by date
	ListEvents(ctx context.Context) ([]*domain.Event, error)

	// UpdateEvent changes descriptive fields of an event
	UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error)

	// DeleteEvent deletes an event and its bookings
	DeleteEvent(ctx context.Context, id string) error

	// TopEvents returns the most viewed events
	TopEvents(ctx context.Context, limit int) ([]domain.RankedEvent, error)
}

// eventService implements EventService
type eventService struct {
	repo        repository.EventRepository
	reader      EventReader
	invalidator EventInvalidator
	ranking     Ranking
}

// NewEventService creates a new event service
func NewEventService(
	repo repository.EventRepository,
	reader EventReader,
	invalidator EventInvalidator,
	ranking Ranking,
) EventService {
	return &eventService{
		repo:        repo,
		reader:      reader,
		invalidator: invalidator,
		ranking:     ranking,
	}
}

// CreateEvent creates a new event
func (s *eventService) CreateEvent(ctx context.Context, actor domain.Actor, req *dto.CreateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.create")
	defer span.End()

	event, err := domain.NewEvent(
		req.Title,
		req.Description,
		req.Location,
		req.Category,
		req.ImageURL,
		req.DateTime,
		req.TotalTickets,
		actor.ID,
	)
	if err != nil {
		return nil, fail(span, err)
	}

	if err := s.repo.Create(ctx, event); err != nil {
		return nil, fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, event.ID)

	span.SetAttributes(attribute.String("event_id", event.ID))
	span.SetStatus(codes.Ok, "")
	return event, nil
}

// GetEvent retrieves an event by ID
func (s *eventService) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.get")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if err := validID(id, domain.ErrEventNotFound); err != nil {
		return nil, fail(span, err)
	}

	event, err := s.reader.GetEvent(ctx, id)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// ListEvents lists all events
func (s *eventService) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.list")
	defer span.End()

	events, err := s.reader.ListEvents(ctx)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	span.SetStatus(codes.Ok, "")
	return events, nil
}

// UpdateEvent updates an event's descriptive fields
func (s *eventService) UpdateEvent(ctx context.Context, id string, req *dto.UpdateEventRequest) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if err := validID(id, domain.ErrEventNotFound); err != nil {
		return nil, fail(span, err)
	}
	if req.Title != nil && *req.Title == "" {
		return nil, fail(span, domain.InvalidArgument("title", "must not be empty"))
	}
	if req.DateTime != nil && req.DateTime.IsZero() {
		return nil, fail(span, domain.InvalidArgument("date_time", "must not be empty"))
	}

	event, err := s.repo.Update(ctx, id, req.ToDomain())
	if err != nil {
		return nil, fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, id)

	span.SetStatus(codes.Ok, "")
	return event, nil
}

// DeleteEvent deletes an event, its bookings and its ranking entry
func (s *eventService) DeleteEvent(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "service.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	if err := validID(id, domain.ErrEventNotFound); err != nil {
		return fail(span, err)
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		return fail(span, err)
	}

	s.invalidator.InvalidateEvent(ctx, id)
	s.ranking.Remove(ctx, id)

	span.SetStatus(codes.Ok, "")
	return nil
}

// TopEvents returns up to limit events by view count
func (s *eventService) TopEvents(ctx context.Context, limit int) ([]domain.RankedEvent, error) {
	ctx, span := telemetry.StartSpan(ctx, "service.event.top")
	defer span.End()

	limit = s.ranking.NormalizeLimit(limit)
	span.SetAttributes(attribute.Int("limit", limit))

	events, err := s.ranking.TopN(ctx, limit)
	if err != nil {
		return nil, fail(span, err)
	}

	span.SetStatus(codes.Ok, "")
	return events, nil
}
