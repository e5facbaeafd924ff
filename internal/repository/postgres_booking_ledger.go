package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const bookingColumns = `
	id::text, event_id::text, customer_name, customer_email, quantity,
	COALESCE(created_by::text, ''), booking_time, updated_at`

// DefaultLockTimeout bounds how long a booking transaction waits on a row lock
const DefaultLockTimeout = 5 * time.Second

// PostgresBookingLedger implements BookingLedger with row-locked transactions
type PostgresBookingLedger struct {
	pool        *pgxpool.Pool
	lockTimeout time.Duration
}

// NewPostgresBookingLedger creates a ledger. lockTimeout <= 0 uses DefaultLockTimeout.
func NewPostgresBookingLedger(pool *pgxpool.Pool, lockTimeout time.Duration) *PostgresBookingLedger {
	if lockTimeout <= 0 {
		lockTimeout = DefaultLockTimeout
	}
	return &PostgresBookingLedger{pool: pool, lockTimeout: lockTimeout}
}

// inTx runs fn inside a READ COMMITTED transaction with lock_timeout set.
// fn's error is returned as-is; driver errors are mapped.
func (l *PostgresBookingLedger) inTx(ctx context.Context, op string, fn func(tx pgx.Tx) error) error {
	tx, err := l.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		return mapError(op, err, nil)
	}
	defer func() {
		_ = tx.Rollback(context.WithoutCancel(ctx))
	}()

	// SET does not take bind parameters; the value is an integer we format
	if _, err := tx.Exec(ctx, fmt.Sprintf("SET LOCAL lock_timeout = '%dms'", l.lockTimeout.Milliseconds())); err != nil {
		return mapError(op, err, nil)
	}

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return mapError(op, err, nil)
	}
	return nil
}

// lockAvailable takes the event row lock and returns its available tickets
func lockAvailable(ctx context.Context, tx pgx.Tx, op, eventID string) (int, error) {
	var available int
	err := tx.QueryRow(ctx, `SELECT available_tickets FROM events WHERE id = $1 FOR UPDATE`, eventID).Scan(&available)
	if err != nil {
		return 0, mapError(op, err, domain.ErrEventNotFound)
	}
	return available, nil
}

// lockBooking takes the booking row lock and checks the actor may touch it
func lockBooking(ctx context.Context, tx pgx.Tx, op, id string, actor domain.Actor) (*domain.Booking, error) {
	booking := &domain.Booking{}
	err := scanBooking(tx.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1 FOR UPDATE`, id), booking)
	if err != nil {
		return nil, mapError(op, err, domain.ErrBookingNotFound)
	}
	if !actor.CanAccess(booking.CreatedBy) {
		return nil, domain.ErrForbidden
	}
	return booking, nil
}

// CreateBooking locks the event, checks capacity, decrements it and inserts
// the booking, all in one transaction
func (l *PostgresBookingLedger) CreateBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.create_booking")
	defer span.End()

	span.SetAttributes(
		attribute.String("event_id", booking.EventID),
		attribute.Int("quantity", booking.Quantity),
	)

	const op = "create booking"
	created := &domain.Booking{}
	err := l.inTx(ctx, op, func(tx pgx.Tx) error {
		available, err := lockAvailable(ctx, tx, op, booking.EventID)
		if err != nil {
			return err
		}
		if available < booking.Quantity {
			return &domain.InsufficientInventoryError{Available: available, Requested: booking.Quantity}
		}

		if _, err := tx.Exec(ctx,
			`UPDATE events SET available_tickets = available_tickets - $1, updated_at = NOW() WHERE id = $2`,
			booking.Quantity, booking.EventID,
		); err != nil {
			return mapError(op, err, nil)
		}

		err = scanBooking(tx.QueryRow(ctx, `
			INSERT INTO bookings (event_id, customer_name, customer_email, quantity, created_by)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING `+bookingColumns,
			booking.EventID,
			booking.CustomerName,
			booking.CustomerEmail,
			booking.Quantity,
			nullString(booking.CreatedBy),
		), created)
		return mapError(op, err, nil)
	})

	recordSpan(span, err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.String("booking_id", created.ID))
	return created, nil
}

// UpdateBooking locks the booking, then the event when the quantity changes,
// and applies delta = new - old to the event's available tickets
func (l *PostgresBookingLedger) UpdateBooking(ctx context.Context, id string, update *domain.BookingUpdate, actor domain.Actor) (*BookingChange, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.update_booking")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	const op = "update booking"
	change := &BookingChange{Booking: &domain.Booking{}}
	err := l.inTx(ctx, op, func(tx pgx.Tx) error {
		current, err := lockBooking(ctx, tx, op, id, actor)
		if err != nil {
			return err
		}

		quantity := current.Quantity
		if update.Quantity != nil {
			quantity = *update.Quantity
		}
		name := current.CustomerName
		if update.CustomerName != nil {
			name = *update.CustomerName
		}
		email := current.CustomerEmail
		if update.CustomerEmail != nil {
			email = *update.CustomerEmail
		}

		delta := quantity - current.Quantity
		if delta != 0 {
			available, err := lockAvailable(ctx, tx, op, current.EventID)
			if err != nil {
				return err
			}
			if delta > 0 && available < delta {
				return &domain.InsufficientInventoryError{Available: available, Requested: delta}
			}
			if _, err := tx.Exec(ctx,
				`UPDATE events SET available_tickets = available_tickets - $1, updated_at = NOW() WHERE id = $2`,
				delta, current.EventID,
			); err != nil {
				return mapError(op, err, nil)
			}
		}
		change.Delta = delta

		err = scanBooking(tx.QueryRow(ctx, `
			UPDATE bookings
			SET customer_name = $1, customer_email = $2, quantity = $3, updated_at = NOW()
			WHERE id = $4
			RETURNING `+bookingColumns,
			name, email, quantity, id,
		), change.Booking)
		return mapError(op, err, domain.ErrBookingNotFound)
	})

	recordSpan(span, err)
	if err != nil {
		return nil, err
	}
	span.SetAttributes(attribute.Int("delta", change.Delta))
	return change, nil
}

// CancelBooking locks the booking, restores its quantity to the event and
// deletes it
func (l *PostgresBookingLedger) CancelBooking(ctx context.Context, id string, actor domain.Actor) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.cancel_booking")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	const op = "cancel booking"
	var cancelled *domain.Booking
	err := l.inTx(ctx, op, func(tx pgx.Tx) error {
		booking, err := lockBooking(ctx, tx, op, id, actor)
		if err != nil {
			return err
		}

		// row-locks the event after the booking
		if _, err := tx.Exec(ctx,
			`UPDATE events SET available_tickets = available_tickets + $1, updated_at = NOW() WHERE id = $2`,
			booking.Quantity, booking.EventID,
		); err != nil {
			return mapError(op, err, nil)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM bookings WHERE id = $1`, id); err != nil {
			return mapError(op, err, nil)
		}
		cancelled = booking
		return nil
	})

	recordSpan(span, err)
	if err != nil {
		return nil, err
	}
	return cancelled, nil
}

// GetBooking retrieves a booking by its ID
func (l *PostgresBookingLedger) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.get_booking")
	defer span.End()

	span.SetAttributes(attribute.String("booking_id", id))

	booking := &domain.Booking{}
	err := scanBooking(l.pool.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id), booking)
	if err != nil {
		err = mapError("get booking", err, domain.ErrBookingNotFound)
		recordSpan(span, err)
		return nil, err
	}

	recordSpan(span, nil)
	return booking, nil
}

// ListBookings returns a page of bookings, newest first, and the total count
func (l *PostgresBookingLedger) ListBookings(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Booking, int, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.ledger.list_bookings")
	defer span.End()

	span.SetAttributes(
		attribute.String("owner_id", ownerID),
		attribute.Int("limit", limit),
		attribute.Int("offset", offset),
	)

	var total int
	err := l.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM bookings WHERE ($1::uuid IS NULL OR created_by = $1::uuid)`,
		nullString(ownerID),
	).Scan(&total)
	if err != nil {
		err = mapError("count bookings", err, nil)
		recordSpan(span, err)
		return nil, 0, err
	}

	rows, err := l.pool.Query(ctx, `
		SELECT `+bookingColumns+`
		FROM bookings
		WHERE ($1::uuid IS NULL OR created_by = $1::uuid)
		ORDER BY booking_time DESC, id ASC
		LIMIT $2 OFFSET $3`,
		nullString(ownerID), limit, offset,
	)
	if err != nil {
		err = mapError("list bookings", err, nil)
		recordSpan(span, err)
		return nil, 0, err
	}
	defer rows.Close()

	bookings := make([]*domain.Booking, 0, limit)
	for rows.Next() {
		b := &domain.Booking{}
		if err := scanBooking(rows, b); err != nil {
			err = mapError("scan booking", err, nil)
			recordSpan(span, err)
			return nil, 0, err
		}
		bookings = append(bookings, b)
	}
	if err := rows.Err(); err != nil {
		err = mapError("list bookings", err, nil)
		recordSpan(span, err)
		return nil, 0, err
	}

	recordSpan(span, nil)
	return bookings, total, nil
}

func scanBooking(row pgx.Row, b *domain.Booking) error {
	return row.Scan(
		&b.ID,
		&b.EventID,
		&b.CustomerName,
		&b.CustomerEmail,
		&b.Quantity,
		&b.CreatedBy,
		&b.BookingTime,
		&b.UpdatedAt,
	)
}
