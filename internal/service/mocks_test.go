package service

import (
	"context"

	"github.com/prohmpiriya/event-booking/internal/domain"
	"github.com/prohmpiriya/event-booking/internal/repository"
	"github.com/prohmpiriya/event-booking/pkg/kafka"
	"github.com/stretchr/testify/mock"
)

type MockBookingLedger struct {
	mock.Mock
}

func (m *MockBookingLedger) CreateBooking(ctx context.Context, booking *domain.Booking) (*domain.Booking, error) {
	args := m.Called(ctx, booking)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingLedger) UpdateBooking(ctx context.Context, id string, update *domain.BookingUpdate, actor domain.Actor) (*repository.BookingChange, error) {
	args := m.Called(ctx, id, update, actor)
	if c := args.Get(0); c != nil {
		return c.(*repository.BookingChange), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingLedger) CancelBooking(ctx context.Context, id string, actor domain.Actor) (*domain.Booking, error) {
	args := m.Called(ctx, id, actor)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingLedger) GetBooking(ctx context.Context, id string) (*domain.Booking, error) {
	args := m.Called(ctx, id)
	if b := args.Get(0); b != nil {
		return b.(*domain.Booking), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockBookingLedger) ListBookings(ctx context.Context, ownerID string, limit, offset int) ([]*domain.Booking, int, error) {
	args := m.Called(ctx, ownerID, limit, offset)
	return args.Get(0).([]*domain.Booking), args.Int(1), args.Error(2)
}

type MockInvalidator struct {
	mock.Mock
}

func (m *MockInvalidator) InvalidateEvent(ctx context.Context, eventID string) {
	m.Called(ctx, eventID)
}

type MockPublisher struct {
	mock.Mock
}

func (m *MockPublisher) PublishBookingCreated(ctx context.Context, booking *domain.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *MockPublisher) PublishBookingUpdated(ctx context.Context, booking *domain.Booking, delta int) error {
	return m.Called(ctx, booking, delta).Error(0)
}

func (m *MockPublisher) PublishBookingCancelled(ctx context.Context, booking *domain.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *MockPublisher) Close() error {
	return nil
}

type MockEventRepository struct {
	mock.Mock
}

func (m *MockEventRepository) Create(ctx context.Context, event *domain.Event) error {
	return m.Called(ctx, event).Error(0)
}

func (m *MockEventRepository) GetByID(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*domain.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) List(ctx context.Context) ([]*domain.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Event), args.Error(1)
}

func (m *MockEventRepository) Update(ctx context.Context, id string, update *domain.EventUpdate) (*domain.Event, error) {
	args := m.Called(ctx, id, update)
	if e := args.Get(0); e != nil {
		return e.(*domain.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventRepository) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *MockEventRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]string), args.Error(1)
}

type MockEventReader struct {
	mock.Mock
}

func (m *MockEventReader) GetEvent(ctx context.Context, id string) (*domain.Event, error) {
	args := m.Called(ctx, id)
	if e := args.Get(0); e != nil {
		return e.(*domain.Event), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockEventReader) ListEvents(ctx context.Context) ([]*domain.Event, error) {
	args := m.Called(ctx)
	return args.Get(0).([]*domain.Event), args.Error(1)
}

type MockRanking struct {
	mock.Mock
}

func (m *MockRanking) TopN(ctx context.Context, n int) ([]domain.RankedEvent, error) {
	args := m.Called(ctx, n)
	return args.Get(0).([]domain.RankedEvent), args.Error(1)
}

func (m *MockRanking) NormalizeLimit(n int) int {
	return m.Called(n).Int(0)
}

func (m *MockRanking) Remove(ctx context.Context, eventID string) {
	m.Called(ctx, eventID)
}

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	return m.Called(ctx, user).Error(0)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if u := args.Get(0); u != nil {
		return u.(*domain.User), args.Error(1)
	}
	return nil, args.Error(1)
}

type mockProducer struct {
	mock.Mock
}

func (m *mockProducer) Produce(ctx context.Context, msg *kafka.Message) error {
	return m.Called(ctx, msg).Error(0)
}

func (m *mockProducer) Close() {
	m.Called()
}
