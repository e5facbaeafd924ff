package service

import (
	"context"
	"errors"
	"testing"

	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/dto"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

const (
	testEventID   = "7c9e6679-7425-40de-944b-e07fc1f90ae7"
	testBookingID = "2f1c3a8e-5b7d-4c1e-9a6f-0d3b8e7c4a21"
	testUserID    = "a3bb189e-8bf9-3888-9912-ace4e6543002"
)

var (
	testUser  = domain.Actor{ID: testUserID, Role: domain.RoleUser, Name: "Somchai"}
	testAdmin = domain.Actor{ID: "b1d2c3e4-0000-4000-8000-000000000001", Role: domain.RoleAdmin}
)

type bookingDeps struct {
	ledger      *MockBookingLedger
	invalidator *MockInvalidator
	publisher   *MockPublisher
	svc         BookingService
}

func newBookingDeps() *bookingDeps {
	d := &bookingDeps{
		ledger:      new(MockBookingLedger),
		invalidator: new(MockInvalidator),
		publisher:   new(MockPublisher),
	}
	d.svc = NewBookingService(d.ledger, d.invalidator, d.publisher)
	return d
}

func storedBooking(qty int) *domain.Booking {
	return &domain.Booking{
		ID:            testBookingID,
		EventID:       testEventID,
		CustomerName:  "Somchai",
		CustomerEmail: "somchai@example.com",
		Quantity:      qty,
		CreatedBy:     testUserID,
	}
}

func validCreateRequest(qty int) *dto.CreateBookingRequest {
	return &dto.CreateBookingRequest{
		EventID:       testEventID,
		Quantity:      qty,
		CustomerName:  "Somchai",
		CustomerEmail: "somchai@example.com",
	}
}

func TestCreateBooking_InvalidatesAfterCommit(t *testing.T) {
	d := newBookingDeps()
	created := storedBooking(3)

	commit := d.ledger.On("CreateBooking", mock.Anything, mock.MatchedBy(func(b *domain.Booking) bool {
		return b.EventID == testEventID && b.Quantity == 3 && b.CreatedBy == testUserID
	})).Return(created, nil).Once()
	d.invalidator.On("InvalidateEvent", mock.Anything, testEventID).Return().Once().NotBefore(commit)
	d.publisher.On("PublishBookingCreated", mock.Anything, created).Return(nil).Once()

	got, err := d.svc.CreateBooking(context.Background(), testUser, validCreateRequest(3))
	require.NoError(t, err)
	assert.Equal(t, testBookingID, got.ID)

	d.ledger.AssertExpectations(t)
	d.invalidator.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func TestCreateBooking_ValidationBeforeLedger(t *testing.T) {
	tests := []struct {
		name    string
		req     *dto.CreateBookingRequest
		wantErr error
	}{
		{"zero quantity", validCreateRequest(0), domain.ErrInvalidQuantity},
		{"negative quantity", validCreateRequest(-2), domain.ErrInvalidQuantity},
		{"missing name", &dto.CreateBookingRequest{EventID: testEventID, Quantity: 1, CustomerEmail: "a@b.c"}, domain.ErrInvalidArgument},
		{"missing event", &dto.CreateBookingRequest{Quantity: 1, CustomerName: "x", CustomerEmail: "a@b.c"}, domain.ErrInvalidEventID},
		{"malformed event id", &dto.CreateBookingRequest{EventID: "not-a-uuid", Quantity: 1, CustomerName: "x", CustomerEmail: "a@b.c"}, domain.ErrEventNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newBookingDeps()

			_, err := d.svc.CreateBooking(context.Background(), testUser, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)

			d.ledger.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
			d.invalidator.AssertNotCalled(t, "InvalidateEvent", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBooking_FailureSkipsInvalidation(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{"sold out", &domain.InsufficientInventoryError{Available: 1, Requested: 3}},
		{"not found", domain.ErrEventNotFound},
		{"lock timeout", &domain.TransientError{Op: "create booking", Err: errors.New("55P03")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newBookingDeps()
			d.ledger.On("CreateBooking", mock.Anything, mock.Anything).Return(nil, tt.err).Once()

			_, err := d.svc.CreateBooking(context.Background(), testUser, validCreateRequest(3))
			assert.ErrorIs(t, err, tt.err)

			d.invalidator.AssertNotCalled(t, "InvalidateEvent", mock.Anything, mock.Anything)
			d.publisher.AssertNotCalled(t, "PublishBookingCreated", mock.Anything, mock.Anything)
		})
	}
}

func TestCreateBooking_InsufficientInventoryDetails(t *testing.T) {
	d := newBookingDeps()
	d.ledger.On("CreateBooking", mock.Anything, mock.Anything).
		Return(nil, &domain.InsufficientInventoryError{Available: 2, Requested: 5}).Once()

	_, err := d.svc.CreateBooking(context.Background(), testUser, validCreateRequest(5))

	var inv *domain.InsufficientInventoryError
	require.ErrorAs(t, err, &inv)
	assert.Equal(t, 2, inv.Available)
	assert.Equal(t, 5, inv.Requested)
}

func TestCreateBooking_PublishFailureIsIgnored(t *testing.T) {
	d := newBookingDeps()
	created := storedBooking(1)
	d.ledger.On("CreateBooking", mock.Anything, mock.Anything).Return(created, nil).Once()
	d.invalidator.On("InvalidateEvent", mock.Anything, testEventID).Return().Once()
	d.publisher.On("PublishBookingCreated", mock.Anything, created).Return(errors.New("broker down")).Once()

	got, err := d.svc.CreateBooking(context.Background(), testUser, validCreateRequest(1))
	require.NoError(t, err)
	assert.Equal(t, created, got)
}

func TestUpdateBooking_AppliesDelta(t *testing.T) {
	d := newBookingDeps()
	updated := storedBooking(10)
	qty := 10

	d.ledger.On("UpdateBooking", mock.Anything, testBookingID, mock.MatchedBy(func(u *domain.BookingUpdate) bool {
		return u.Quantity != nil && *u.Quantity == 10 && u.CustomerName == nil
	}), testUser).Return(&repository.BookingChange{Booking: updated, Delta: 5}, nil).Once()
	d.invalidator.On("InvalidateEvent", mock.Anything, testEventID).Return().Once()
	d.publisher.On("PublishBookingUpdated", mock.Anything, updated, 5).Return(nil).Once()

	got, err := d.svc.UpdateBooking(context.Background(), testUser, testBookingID, &dto.UpdateBookingRequest{Quantity: &qty})
	require.NoError(t, err)
	assert.Equal(t, 10, got.Quantity)

	d.ledger.AssertExpectations(t)
	d.invalidator.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func TestUpdateBookingQuantity(t *testing.T) {
	d := newBookingDeps()
	updated := storedBooking(2)

	d.ledger.On("UpdateBooking", mock.Anything, testBookingID, mock.MatchedBy(func(u *domain.BookingUpdate) bool {
		return u.Quantity != nil && *u.Quantity == 2 && u.CustomerName == nil && u.CustomerEmail == nil
	}), testUser).Return(&repository.BookingChange{Booking: updated, Delta: -3}, nil).Once()
	d.invalidator.On("InvalidateEvent", mock.Anything, testEventID).Return().Once()
	d.publisher.On("PublishBookingUpdated", mock.Anything, updated, -3).Return(nil).Once()

	got, err := d.svc.UpdateBookingQuantity(context.Background(), testUser, testBookingID, 2)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Quantity)
	d.ledger.AssertExpectations(t)
}

func TestUpdateBooking_Validation(t *testing.T) {
	zero := 0
	blank := "  "
	tests := []struct {
		name    string
		id      string
		req     *dto.UpdateBookingRequest
		wantErr error
	}{
		{"empty body", testBookingID, &dto.UpdateBookingRequest{}, domain.ErrInvalidArgument},
		{"zero quantity", testBookingID, &dto.UpdateBookingRequest{Quantity: &zero}, domain.ErrInvalidQuantity},
		{"blank name", testBookingID, &dto.UpdateBookingRequest{CustomerName: &blank}, domain.ErrInvalidArgument},
		{"malformed id", "123", &dto.UpdateBookingRequest{CustomerName: ptr("x")}, domain.ErrBookingNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			d := newBookingDeps()

			_, err := d.svc.UpdateBooking(context.Background(), testUser, tt.id, tt.req)
			assert.ErrorIs(t, err, tt.wantErr)
			d.ledger.AssertNotCalled(t, "UpdateBooking", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		})
	}
}

func TestUpdateBooking_ForbiddenSkipsInvalidation(t *testing.T) {
	d := newBookingDeps()
	d.ledger.On("UpdateBooking", mock.Anything, testBookingID, mock.Anything, testUser).
		Return(nil, domain.ErrForbidden).Once()

	_, err := d.svc.UpdateBooking(context.Background(), testUser, testBookingID, &dto.UpdateBookingRequest{CustomerName: ptr("New")})
	assert.ErrorIs(t, err, domain.ErrForbidden)
	d.invalidator.AssertNotCalled(t, "InvalidateEvent", mock.Anything, mock.Anything)
}

func TestCancelBooking(t *testing.T) {
	d := newBookingDeps()
	cancelled := storedBooking(4)

	commit := d.ledger.On("CancelBooking", mock.Anything, testBookingID, testUser).Return(cancelled, nil).Once()
	d.invalidator.On("InvalidateEvent", mock.Anything, testEventID).Return().Once().NotBefore(commit)
	d.publisher.On("PublishBookingCancelled", mock.Anything, cancelled).Return(nil).Once()

	got, err := d.svc.CancelBooking(context.Background(), testUser, testBookingID)
	require.NoError(t, err)
	assert.Equal(t, 4, got.Quantity)

	d.invalidator.AssertExpectations(t)
	d.publisher.AssertExpectations(t)
}

func TestCancelBooking_NotFound(t *testing.T) {
	d := newBookingDeps()
	d.ledger.On("CancelBooking", mock.Anything, testBookingID, testUser).Return(nil, domain.ErrBookingNotFound).Once()

	_, err := d.svc.CancelBooking(context.Background(), testUser, testBookingID)
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
	d.invalidator.AssertNotCalled(t, "InvalidateEvent", mock.Anything, mock.Anything)

	_, err = d.svc.CancelBooking(context.Background(), testUser, "garbage")
	assert.ErrorIs(t, err, domain.ErrBookingNotFound)
}

func TestGetBooking_Access(t *testing.T) {
	d := newBookingDeps()
	d.ledger.On("GetBooking", mock.Anything, testBookingID).Return(storedBooking(1), nil)

	got, err := d.svc.GetBooking(context.Background(), testUser, testBookingID)
	require.NoError(t, err)
	assert.Equal(t, testBookingID, got.ID)

	_, err = d.svc.GetBooking(context.Background(), testAdmin, testBookingID)
	require.NoError(t, err)

	stranger := domain.Actor{ID: "c0ffee00-0000-4000-8000-000000000000", Role: domain.RoleUser}
	_, err = d.svc.GetBooking(context.Background(), stranger, testBookingID)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}

func TestListBookings_ScopesByRole(t *testing.T) {
	d := newBookingDeps()
	bookings := []*domain.Booking{storedBooking(1)}
	d.ledger.On("ListBookings", mock.Anything, testUserID, 20, 0).Return(bookings, 1, nil).Once()
	d.ledger.On("ListBookings", mock.Anything, "", 10, 20).Return(bookings, 21, nil).Once()

	page, err := d.svc.ListBookings(context.Background(), testUser, 0, 0)
	require.NoError(t, err)
	assert.Equal(t, 1, page.Total)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, 20, page.PageSize)

	page, err = d.svc.ListBookings(context.Background(), testAdmin, 3, 10)
	require.NoError(t, err)
	assert.Equal(t, 21, page.Total)
	assert.Equal(t, 3, page.Page)

	d.ledger.AssertExpectations(t)
}

func ptr[T any](v T) *T {
	return &v
}

func TestBooking_NonUUIDActorIsForbidden(t *testing.T) {
	d := newBookingDeps()
	actor := domain.Actor{ID: "not-a-uuid", Role: domain.RoleUser}

	_, err := d.svc.CreateBooking(context.Background(), actor, validCreateRequest(1))
	assert.ErrorIs(t, err, domain.ErrForbidden)

	_, err = d.svc.ListBookings(context.Background(), actor, 1, 20)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	d.ledger.AssertNotCalled(t, "CreateBooking", mock.Anything, mock.Anything)
	d.ledger.AssertNotCalled(t, "ListBookings", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	d.invalidator.AssertNotCalled(t, "InvalidateEvent", mock.Anything, mock.Anything)
}

func TestListBookings_HugePageIsBounded(t *testing.T) {
	d := newBookingDeps()
	offset := (dto.MaxPage - 1) * 20
	d.ledger.On("ListBookings", mock.Anything, testUserID, 20, offset).Return([]*domain.Booking{}, 0, nil).Once()

	page, err := d.svc.ListBookings(context.Background(), testUser, int(^uint(0)>>1), 20)
	require.NoError(t, err)
	assert.Equal(t, dto.MaxPage, page.Page)
	d.ledger.AssertExpectations(t)
}
