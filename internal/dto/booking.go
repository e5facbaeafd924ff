package dto

import (
	"time"

	"github.com/prohmpiriya/event-booking/internal/domain"
)

// CreateBookingRequest represents request to book tickets for an event
type CreateBookingRequest struct {
	EventID       string `json:"event_id" binding:"required"`
	Quantity      int    `json:"quantity"`
	CustomerName  string `json:"customer_name" binding:"required"`
	CustomerEmail string `json:"customer_email" binding:"required,email"`
}

// UpdateBookingRequest represents a partial booking update. Omitted fields
// are left unchanged.
type UpdateBookingRequest struct {
	Quantity      *int    `json:"quantity,omitempty"`
	CustomerName  *string `json:"customer_name,omitempty"`
	CustomerEmail *string `json:"customer_email,omitempty" binding:"omitempty,email"`
}

// ToDomain converts the request to a domain update
func (r *UpdateBookingRequest) ToDomain() *domain.BookingUpdate {
	return &domain.BookingUpdate{
		Quantity:      r.Quantity,
		CustomerName:  r.CustomerName,
		CustomerEmail: r.CustomerEmail,
	}
}

// ListBookingsQuery holds paging parameters for GET /bookings
type ListBookingsQuery struct {
	Page     int `form:"page"`
	PageSize int `form:"page_size"`
}

// MaxPage bounds ?page= so the offset cannot overflow
const MaxPage = 10000

// Normalize applies paging defaults and bounds
func (q *ListBookingsQuery) Normalize() {
	if q.Page < 1 {
		q.Page = 1
	}
	if q.Page > MaxPage {
		q.Page = MaxPage
	}
	if q.PageSize < 1 {
		q.PageSize = 20
	}
	if q.PageSize > 100 {
		q.PageSize = 100
	}
}

// Offset returns the row offset for the current page
func (q *ListBookingsQuery) Offset() int {
	return (q.Page - 1) * q.PageSize
}

// BookingResponse represents a booking in API response
type BookingResponse struct {
	ID            string    `json:"id"`
	EventID       string    `json:"event_id"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	Quantity      int       `json:"quantity"`
	CreatedBy     string    `json:"created_by"`
	BookingTime   time.Time `json:"booking_time"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// FromBooking converts domain Booking to BookingResponse
func FromBooking(b *domain.Booking) *BookingResponse {
	return &BookingResponse{
		ID:            b.ID,
		EventID:       b.EventID,
		CustomerName:  b.CustomerName,
		CustomerEmail: b.CustomerEmail,
		Quantity:      b.Quantity,
		CreatedBy:     b.CreatedBy,
		BookingTime:   b.BookingTime,
		UpdatedAt:     b.UpdatedAt,
	}
}

// FromBookings converts a slice of bookings
func FromBookings(bookings []*domain.Booking) []*BookingResponse {
	out := make([]*BookingResponse, 0, len(bookings))
	for _, b := range bookings {
		out = append(out, FromBooking(b))
	}
	return out
}

// BookingList is a page of bookings
type BookingList struct {
	Bookings []*domain.Booking
	Total    int
	Page     int
	PageSize int
}
