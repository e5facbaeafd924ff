package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/pkg/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

const eventColumns = `
	id::text, title, description, date_time, location, category, image_url,
	total_tickets, available_tickets, COALESCE(created_by::text, ''),
	created_at, updated_at`

// PostgresEventRepository implements EventRepository using PostgreSQL with pgxpool
type PostgresEventRepository struct {
	pool *pgxpool.Pool
}

// NewPostgresEventRepository creates a new PostgresEventRepository
func NewPostgresEventRepository(pool *pgxpool.Pool) *PostgresEventRepository {
	return &PostgresEventRepository{pool: pool}
}

// Create inserts a new event. AvailableTickets starts equal to TotalTickets.
func (r *PostgresEventRepository) Create(ctx context.Context, event *domain.Event) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.create")
	defer span.End()

	query := `
		INSERT INTO events (
			title, description, date_time, location, category, image_url,
			total_tickets, available_tickets, created_by
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $7, $8)
		RETURNING ` + eventColumns

	err := scanEvent(r.pool.QueryRow(ctx, query,
		event.Title,
		event.Description,
		event.DateTime,
		event.Location,
		event.Category,
		event.ImageURL,
		event.TotalTickets,
		nullString(event.CreatedBy),
	), event)
	err = mapError("create event", err, nil)
	recordSpan(span, err)
	if err == nil {
		span.SetAttributes(attribute.String("event_id", event.ID))
	}
	return err
}

// GetByID retrieves an event by its ID
func (r *PostgresEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.get_by_id")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	event := &domain.Event{}
	err := scanEvent(r.pool.QueryRow(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id), event)
	if err != nil {
		err = mapError("get event", err, domain.ErrEventNotFound)
		recordSpan(span, err)
		return nil, err
	}

	recordSpan(span, nil)
	return event, nil
}

// List returns every event, soonest first
func (r *PostgresEventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.list")
	defer span.End()

	rows, err := r.pool.Query(ctx, `SELECT `+eventColumns+` FROM events ORDER BY date_time ASC, id ASC`)
	if err != nil {
		err = mapError("list events", err, nil)
		recordSpan(span, err)
		return nil, err
	}
	defer rows.Close()

	events := make([]*domain.Event, 0)
	for rows.Next() {
		event := &domain.Event{}
		if err := scanEvent(rows, event); err != nil {
			err = mapError("scan event", err, nil)
			recordSpan(span, err)
			return nil, err
		}
		events = append(events, event)
	}
	if err := rows.Err(); err != nil {
		err = mapError("list events", err, nil)
		recordSpan(span, err)
		return nil, err
	}

	span.SetAttributes(attribute.Int("count", len(events)))
	recordSpan(span, nil)
	return events, nil
}

// Update changes only descriptive fields. Nil fields keep their value.
func (r *PostgresEventRepository) Update(ctx context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.update")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	query := `
		UPDATE events SET
			title       = COALESCE($2, title),
			description = COALESCE($3, description),
			date_time   = COALESCE($4, date_time),
			location    = COALESCE($5, location),
			category    = COALESCE($6, category),
			image_url   = COALESCE($7, image_url),
			updated_at  = NOW()
		WHERE id = $1
		RETURNING ` + eventColumns

	event := &domain.Event{}
	err := scanEvent(r.pool.QueryRow(ctx, query,
		id,
		update.Title,
		update.Description,
		update.DateTime,
		update.Location,
		update.Category,
		update.ImageURL,
	), event)
	if err != nil {
		err = mapError("update event", err, domain.ErrEventNotFound)
		recordSpan(span, err)
		return nil, err
	}

	recordSpan(span, nil)
	return event, nil
}

// Delete removes an event. Its bookings go with it via ON DELETE CASCADE.
func (r *PostgresEventRepository) Delete(ctx context.Context, id string) error {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.delete")
	defer span.End()

	span.SetAttributes(attribute.String("event_id", id))

	tag, err := r.pool.Exec(ctx, `DELETE FROM events WHERE id = $1`, id)
	if err != nil {
		err = mapError("delete event", err, domain.ErrEventNotFound)
		recordSpan(span, err)
		return err
	}
	if tag.RowsAffected() == 0 {
		recordSpan(span, domain.ErrEventNotFound)
		return domain.ErrEventNotFound
	}

	recordSpan(span, nil)
	return nil
}

// ExistingIDs filters ids down to events still present
func (r *PostgresEventRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	ctx, span := telemetry.StartSpan(ctx, "repo.postgres.event.existing_ids")
	defer span.End()

	span.SetAttributes(attribute.Int("requested", len(ids)))

	// ids that are not uuids cannot match a row
	valid := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, err := uuid.Parse(id); err == nil {
			valid = append(valid, id)
		}
	}
	if len(valid) == 0 {
		return nil, nil
	}

	rows, err := r.pool.Query(ctx, `SELECT id::text FROM events WHERE id = ANY($1::uuid[])`, valid)
	if err != nil {
		err = mapError("check event ids", err, nil)
		recordSpan(span, err)
		return nil, err
	}

	existing, err := pgx.CollectRows(rows, pgx.RowTo[string])
	if err != nil {
		err = mapError("check event ids", err, nil)
		recordSpan(span, err)
		return nil, err
	}

	recordSpan(span, nil)
	return existing, nil
}

func scanEvent(row pgx.Row, e *domain.Event) error {
	return row.Scan(
		&e.ID,
		&e.Title,
		&e.Description,
		&e.DateTime,
		&e.Location,
		&e.Category,
		&e.ImageURL,
		&e.TotalTickets,
		&e.AvailableTickets,
		&e.CreatedBy,
		&e.CreatedAt,
		&e.UpdatedAt,
	)
}
