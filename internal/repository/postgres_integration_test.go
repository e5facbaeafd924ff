package repository

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/migrations"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// skipIfNoIntegration skips the test if INTEGRATION_TEST is not set
func skipIfNoIntegration(t *testing.T) {
	if os.Getenv("INTEGRATION_TEST") != "true" {
		t.Skip("Skipping integration test. Set INTEGRATION_TEST=true to run")
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

// getPostgresPool connects to the test database, applies the schema and
// empties every table
func getPostgresPool(t *testing.T) *pgxpool.Pool {
	skipIfNoIntegration(t)

	connStr := fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=disable",
		getEnv("TEST_POSTGRES_USER", "postgres"),
		getEnv("TEST_POSTGRES_PASSWORD", "postgres"),
		getEnv("TEST_POSTGRES_HOST", "localhost"),
		getEnv("TEST_POSTGRES_PORT", "5432"),
		getEnv("TEST_POSTGRES_DB", "event_booking_test"),
	)

	ctx := context.Background()
	cfg, err := pgxpool.ParseConfig(connStr)
	require.NoError(t, err)
	cfg.MaxConns = 64

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	require.NoError(t, err)
	require.NoError(t, pool.Ping(ctx))
	t.Cleanup(pool.Close)

	_, err = migrations.Apply(ctx, pool)
	require.NoError(t, err)

	_, err = pool.Exec(ctx, `TRUNCATE bookings, events, users CASCADE`)
	require.NoError(t, err)

	return pool
}

type fixture struct {
	pool   *pgxpool.Pool
	events *PostgresEventRepository
	ledger *PostgresBookingLedger
	users  *PostgresUserRepository
}

func newFixture(t *testing.T) *fixture {
	pool := getPostgresPool(t)
	return &fixture{
		pool:   pool,
		events: NewPostgresEventRepository(pool),
		ledger: NewPostgresBookingLedger(pool, 5*time.Second),
		users:  NewPostgresUserRepository(pool),
	}
}

func (f *fixture) user(t *testing.T, role string) domain.Actor {
	t.Helper()
	u := &domain.User{
		Name:         "Test " + role,
		Email:        uuid.NewString() + "@example.com",
		PasswordHash: "x",
		Role:         role,
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return domain.Actor{ID: u.ID, Role: u.Role, Name: u.Name}
}

func (f *fixture) event(t *testing.T, total int, owner string) *domain.Event {
	t.Helper()
	e, err := domain.NewEvent("Concert", "", "Hall", "music", "", time.Now().Add(48*time.Hour), total, owner)
	require.NoError(t, err)
	require.NoError(t, f.events.Create(context.Background(), e))
	return e
}

func (f *fixture) book(t *testing.T, eventID string, qty int, owner domain.Actor) *domain.Booking {
	t.Helper()
	b, err := domain.NewBooking(eventID, "Ann", "ann@example.com", qty, owner.ID)
	require.NoError(t, err)
	created, err := f.ledger.CreateBooking(context.Background(), b)
	require.NoError(t, err)
	return created
}

// assertInvariant checks available = total - sum(live booking quantities)
func (f *fixture) assertInvariant(t *testing.T, eventID string) int {
	t.Helper()
	var total, available, booked int
	err := f.pool.QueryRow(context.Background(), `
		SELECT e.total_tickets, e.available_tickets, COALESCE(SUM(b.quantity), 0)
		FROM events e LEFT JOIN bookings b ON b.event_id = e.id
		WHERE e.id = $1
		GROUP BY e.id`, eventID).Scan(&total, &available, &booked)
	require.NoError(t, err)
	assert.Equal(t, total-booked, available, "inventory invariant")
	assert.GreaterOrEqual(t, available, 0)
	return available
}

func TestEventRepository_CRUD(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	admin := f.user(t, domain.RoleAdmin)

	e := f.event(t, 50, admin.ID)
	assert.NotEmpty(t, e.ID)
	assert.Equal(t, 50, e.AvailableTickets)
	assert.Equal(t, admin.ID, e.CreatedBy)

	title := "Renamed"
	updated, err := f.events.Update(ctx, e.ID, &domain.EventUpdate{Title: &title})
	require.NoError(t, err)
	assert.Equal(t, "Renamed", updated.Title)
	assert.Equal(t, "Hall", updated.Location)
	assert.Equal(t, 50, updated.TotalTickets)

	later := f.event(t, 10, admin.ID)
	_, err = f.events.Update(ctx, later.ID, &domain.EventUpdate{DateTime: ptr(time.Now().Add(96 * time.Hour))})
	require.NoError(t, err)

	list, err := f.events.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, e.ID, list[0].ID)

	existing, err := f.events.ExistingIDs(ctx, []string{e.ID, uuid.NewString()})
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, existing)

	require.NoError(t, f.events.Delete(ctx, e.ID))
	_, err = f.events.GetByID(ctx, e.ID)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
	assert.ErrorIs(t, f.events.Delete(ctx, e.ID), domain.ErrEventNotFound)
}

func TestEventRepository_MalformedIDIsNotFound(t *testing.T) {
	f := newFixture(t)

	_, err := f.events.GetByID(context.Background(), "not-a-uuid")
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestEventRepository_ExistingIDs(t *testing.T) {
	f := newFixture(t)
	e := f.event(t, 5, "")

	existing, err := f.events.ExistingIDs(context.Background(), []string{e.ID, uuid.NewString(), "not-a-uuid"})
	require.NoError(t, err)
	assert.Equal(t, []string{e.ID}, existing)

	existing, err = f.events.ExistingIDs(context.Background(), []string{"not-a-uuid"})
	require.NoError(t, err)
	assert.Empty(t, existing)
}

func TestLedger_CreateBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 5, "")

	b := f.book(t, e.ID, 3, user)
	assert.Equal(t, 3, b.Quantity)
	assert.Equal(t, user.ID, b.CreatedBy)
	assert.Equal(t, 2, f.assertInvariant(t, e.ID))

	over, _ := domain.NewBooking(e.ID, "Bob", "bob@example.com", 3, user.ID)
	_, err := f.ledger.CreateBooking(ctx, over)
	var inv *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 2, inv.Available)
	assert.Equal(t, 3, inv.Requested)
	assert.Equal(t, 2, f.assertInvariant(t, e.ID))

	missing, _ := domain.NewBooking(uuid.NewString(), "Bob", "bob@example.com", 1, user.ID)
	_, err = f.ledger.CreateBooking(ctx, missing)
	assert.ErrorIs(t, err, domain.ErrEventNotFound)
}

func TestLedger_ConcurrentCreate_NoOversell(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, domain.RoleUser)

	const (
		workers  = 40
		quantity = 2
	)
	e := f.event(t, (workers-1)*quantity, "")

	var (
		wg           sync.WaitGroup
		successes    int32
		insufficient int32
		other        int32
		start        = make(chan struct{})
	)
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			b, _ := domain.NewBooking(e.ID, fmt.Sprintf("c%d", i), "c@example.com", quantity, user.ID)
			_, err := f.ledger.CreateBooking(context.Background(), b)
			switch {
			case err == nil:
				atomic.AddInt32(&successes, 1)
			case errors.Is(err, domain.ErrInsufficientInventory):
				atomic.AddInt32(&insufficient, 1)
			default:
				t.Logf("unexpected error: %v", err)
				atomic.AddInt32(&other, 1)
			}
		}(i)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(workers-1), successes)
	assert.Equal(t, int32(1), insufficient)
	assert.Zero(t, other)
	assert.Equal(t, 0, f.assertInvariant(t, e.ID))
}

func TestLedger_UpdateBooking_Delta(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 10, "")
	b := f.book(t, e.ID, 4, user)

	change, err := f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(7)}, user)
	require.NoError(t, err)
	assert.Equal(t, 3, change.Delta)
	assert.Equal(t, 7, change.Booking.Quantity)
	assert.Equal(t, 3, f.assertInvariant(t, e.ID))

	change, err = f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(2)}, user)
	require.NoError(t, err)
	assert.Equal(t, -5, change.Delta)
	assert.Equal(t, 8, f.assertInvariant(t, e.ID))

	_, err = f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(11)}, user)
	var inv *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 8, inv.Available)
	assert.Equal(t, 9, inv.Requested)
	assert.Equal(t, 8, f.assertInvariant(t, e.ID))
	unchanged, err := f.ledger.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, unchanged.Quantity)

	name := "Renamed"
	change, err = f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{CustomerName: &name}, user)
	require.NoError(t, err)
	assert.Zero(t, change.Delta)
	assert.Equal(t, "Renamed", change.Booking.CustomerName)
	assert.Equal(t, 2, change.Booking.Quantity)
}

func TestLedger_UpdateBooking_FailedIncreaseChangesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 4, "")
	b := f.book(t, e.ID, 3, user)
	require.Equal(t, 1, f.assertInvariant(t, e.ID))

	_, err := f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(5)}, user)
	var inv *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 1, inv.Available)
	assert.Equal(t, 2, inv.Requested)

	got, err := f.ledger.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, got.Quantity)
	assert.Equal(t, 1, f.assertInvariant(t, e.ID))
}

func TestLedger_Ownership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	owner := f.user(t, domain.RoleUser)
	stranger := f.user(t, domain.RoleUser)
	admin := f.user(t, domain.RoleAdmin)
	e := f.event(t, 10, "")
	b := f.book(t, e.ID, 2, owner)

	_, err := f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(3)}, stranger)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	_, err = f.ledger.CancelBooking(ctx, b.ID, stranger)
	assert.ErrorIs(t, err, domain.ErrForbidden)
	assert.Equal(t, 8, f.assertInvariant(t, e.ID))

	_, err = f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(3)}, admin)
	require.NoError(t, err)
	assert.Equal(t, 7, f.assertInvariant(t, e.ID))
}

func TestLedger_CancelBooking(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 10, "")
	b := f.book(t, e.ID, 6, user)

	cancelled, err := f.ledger.CancelBooking(ctx, b.ID, user)
	require.NoError(t, err)
	assert.Equal(t, b.ID, cancelled.ID)
	assert.Equal(t, 10, f.assertInvariant(t, e.ID))

	_, err = f.ledger.CancelBooking(ctx, b.ID, user)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	_, err = f.ledger.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

// Book 3 of 10, raise to 5, cancel: availability goes 7, 5, 10.
func TestLedger_Scenario(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 10, "")

	b := f.book(t, e.ID, 3, user)
	assert.Equal(t, 7, f.assertInvariant(t, e.ID))

	_, err := f.ledger.UpdateBooking(ctx, b.ID, &domain.BookingUpdate{Quantity: ptr(5)}, user)
	require.NoError(t, err)
	assert.Equal(t, 5, f.assertInvariant(t, e.ID))

	_, err = f.ledger.CancelBooking(ctx, b.ID, user)
	require.NoError(t, err)
	assert.Equal(t, 10, f.assertInvariant(t, e.ID))
}

func TestLedger_ListBookings(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, domain.RoleUser)
	bob := f.user(t, domain.RoleUser)
	e := f.event(t, 20, "")

	f.book(t, e.ID, 1, alice)
	f.book(t, e.ID, 1, alice)
	f.book(t, e.ID, 1, bob)

	mine, total, err := f.ledger.ListBookings(ctx, alice.ID, 10, 0)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, mine, 2)

	all, total, err := f.ledger.ListBookings(ctx, "", 2, 0)
	require.NoError(t, err)
	assert.Equal(t, 3, total)
	assert.Len(t, all, 2)
	assert.False(t, all[0].BookingTime.Before(all[1].BookingTime))
}

func TestLedger_EventDeleteCascades(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 10, "")
	b := f.book(t, e.ID, 2, user)

	require.NoError(t, f.events.Delete(ctx, e.ID))
	_, err := f.ledger.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

// Creates, updates and cancels race on one event. Every transaction takes
// locks Booking before Event, so none should deadlock, and the invariant
// must hold at the end.
func TestLedger_InterleavedStress(t *testing.T) {
	f := newFixture(t)
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 200, "")

	seed := make([]*domain.Booking, 0, 20)
	for i := 0; i < 20; i++ {
		seed = append(seed, f.book(t, e.ID, 1+i%3, user))
	}

	var (
		wg        sync.WaitGroup
		transient int32
		start     = make(chan struct{})
	)
	for w := 0; w < 30; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(int64(w)))
			<-start
			for i := 0; i < 20; i++ {
				ctx := context.Background()
				target := seed[rng.Intn(len(seed))]
				var err error
				switch rng.Intn(3) {
				case 0:
					b, _ := domain.NewBooking(e.ID, "x", "x@example.com", 1+rng.Intn(3), user.ID)
					_, err = f.ledger.CreateBooking(ctx, b)
				case 1:
					_, err = f.ledger.UpdateBooking(ctx, target.ID, &domain.BookingUpdate{Quantity: ptr(1 + rng.Intn(5))}, user)
				default:
					_, err = f.ledger.CancelBooking(ctx, target.ID, user)
				}
				if errors.Is(err, domain.ErrTransientStore) {
					atomic.AddInt32(&transient, 1)
				}
			}
		}(w)
	}
	close(start)
	wg.Wait()

	assert.Zero(t, transient, "no lock timeouts or deadlocks expected")
	f.assertInvariant(t, e.ID)
}

func TestLedger_LockTimeoutIsTransient(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	user := f.user(t, domain.RoleUser)
	e := f.event(t, 10, "")

	short := NewPostgresBookingLedger(f.pool, 100*time.Millisecond)

	// hold the event row lock from another transaction
	tx, err := f.pool.Begin(ctx)
	require.NoError(t, err)
	defer tx.Rollback(ctx)
	_, err = tx.Exec(ctx, `SELECT 1 FROM events WHERE id = $1 FOR UPDATE`, e.ID)
	require.NoError(t, err)

	b, _ := domain.NewBooking(e.ID, "Ann", "ann@example.com", 1, user.ID)
	_, err = short.CreateBooking(ctx, b)
	assert.ErrorIs(t, err, domain.ErrTransientStore)

	require.NoError(t, tx.Rollback(ctx))
	assert.Equal(t, 10, f.assertInvariant(t, e.ID))
}

func TestUserRepository(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	u := &domain.User{Name: "Ann", Email: " Ann@Example.com ", PasswordHash: "h", Role: domain.RoleUser}
	require.NoError(t, f.users.Create(ctx, u))
	assert.Equal(t, "ann@example.com", u.Email)

	dup := &domain.User{Name: "Ann2", Email: "ann@example.com", PasswordHash: "h", Role: domain.RoleUser}
	assert.ErrorIs(t, f.users.Create(ctx, dup), domain.ErrUserAlreadyExists)

	got, err := f.users.GetByEmail(ctx, "ANN@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = f.users.GetByID(ctx, uuid.NewString())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func ptr[T any](v T) *T {
	return &v
}
