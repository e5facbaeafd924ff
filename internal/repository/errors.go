package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// PostgreSQL error codes the ledger cares about
const (
	pgLockNotAvailable     = "55P03"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgQueryCanceled        = "57014"
	pgInvalidTextRepresent = "22P02"
	pgUniqueViolation      = "23505"
)

// mapError converts a pgx error into a domain error. notFound is returned
// for missing rows and malformed ids; pass nil when neither can happen.
func mapError(op string, err error, notFound error) error {
	if err == nil {
		return nil
	}

	if notFound != nil && errors.Is(err, pgx.ErrNoRows) {
		return notFound
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case pgLockNotAvailable, pgSerializationFailure, pgDeadlockDetected, pgQueryCanceled:
			return &domain.TransientError{Op: op, Err: err}
		case pgInvalidTextRepresent:
			if notFound != nil {
				return notFound
			}
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	if errors.Is(err, context.DeadlineExceeded) || pgconn.Timeout(err) || pgconn.SafeToRetry(err) {
		return &domain.TransientError{Op: op, Err: err}
	}

	var connErr *pgconn.ConnectError
	if errors.As(err, &connErr) {
		return &domain.TransientError{Op: op, Err: err}
	}

	return fmt.Errorf("failed to %s: %w", op, err)
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}

// recordSpan sets the span status from err
func recordSpan(span trace.Span, err error) {
	if err == nil {
		span.SetStatus(codes.Ok, "")
		return
	}
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
}

func nullString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
