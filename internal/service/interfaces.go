package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// EventInvalidator drops cached reads of an event. It is called after every
// committed change to an event or its inventory and never fails the caller.
type EventInvalidator interface {
	InvalidateEvent(ctx context.Context, eventID string)
}

// EventReader serves event reads through the cache
type EventReader interface {
	GetEvent(ctx context.Context, id string) (*domain.Event, error)
	ListEvents(ctx context.Context) ([]*domain.Event, error)
}

// Ranking answers popularity queries and forgets deleted events
type Ranking interface {
	TopN(ctx context.Context, n int) ([]domain.RankedEvent, error)
	NormalizeLimit(n int) int
	Remove(ctx context.Context, eventID string)
}

// validID rejects ids that cannot name a stored row. Such ids are reported
// as not found rather than reaching the database.
func validID(id string, notFound error) error {
	if _, err := uuid.Parse(id); err != nil {
		return notFound
	}
	return nil
}

// validActor rejects callers whose token carries an id that cannot name a user
func validActor(actor domain.Actor) error {
	if _, err := uuid.Parse(actor.ID); err != nil {
		return domain.ErrForbidden
	}
	return nil
}

// fail records err on the span. Expected outcomes such as validation or
// sold-out do not mark the span as an error.
func fail(span trace.Span, err error) error {
	if isExpected(err) {
		span.SetStatus(codes.Ok, err.Error())
		return err
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func isExpected(err error) bool {
	return domain.IsValidationError(err) ||
		domain.IsNotFoundError(err) ||
		errors.Is(err, domain.ErrInsufficientInventory) ||
		errors.Is(err, domain.ErrForbidden) ||
		errors.Is(err, domain.ErrInvalidCredentials) ||
		errors.Is(err, domain.ErrUserAlreadyExists)
}
