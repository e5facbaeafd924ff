package dto

import (
	"time"

	"github.com/prohmpiriya/event-booking/internal/domain"
)

// CreateEventRequest represents request to create an event
type CreateEventRequest struct {
	Title        string    `json:"title" binding:"required"`
	Description  string    `json:"description"`
	DateTime     time.Time `json:"date_time" binding:"required"`
	Location     string    `json:"location"`
	Category     string    `json:"category"`
	ImageURL     string    `json:"image_url"`
	TotalTickets int       `json:"total_tickets"`
}

// UpdateEventRequest represents a partial event update. Ticket counts
// cannot be changed.
type UpdateEventRequest struct {
	Title       *string    `json:"title,omitempty"`
	Description *string    `json:"description,omitempty"`
	DateTime    *time.Time `json:"date_time,omitempty"`
	Location    *string    `json:"location,omitempty"`
	Category    *string    `json:"category,omitempty"`
	ImageURL    *string    `json:"image_url,omitempty"`
}

// ToDomain converts the request to a domain update
func (r *UpdateEventRequest) ToDomain() *domain.EventUpdate {
	return &domain.EventUpdate{
		Title:       r.Title,
		Description: r.Description,
		DateTime:    r.DateTime,
		Location:    r.Location,
		Category:    r.Category,
		ImageURL:    r.ImageURL,
	}
}

// TopEventsQuery holds the limit for GET /events/top
type TopEventsQuery struct {
	Limit int `form:"limit"`
}

// EventResponse represents an event in API response
type EventResponse struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DateTime         time.Time `json:"date_time"`
	Location         string    `json:"location"`
	Category         string    `json:"category"`
	ImageURL         string    `json:"image_url"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
	Views            *int64    `json:"views,omitempty"`
}

// FromEvent converts domain Event to EventResponse
func FromEvent(e *domain.Event) *EventResponse {
	return &EventResponse{
		ID:               e.ID,
		Title:            e.Title,
		Description:      e.Description,
		DateTime:         e.DateTime,
		Location:         e.Location,
		Category:         e.Category,
		ImageURL:         e.ImageURL,
		TotalTickets:     e.TotalTickets,
		AvailableTickets: e.AvailableTickets,
		CreatedAt:        e.CreatedAt,
		UpdatedAt:        e.UpdatedAt,
	}
}

// FromEvents converts a slice of events
func FromEvents(events []*domain.Event) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, FromEvent(e))
	}
	return out
}

// FromRankedEvents converts ranked events, keeping their view counts
func FromRankedEvents(events []domain.RankedEvent) []*EventResponse {
	out := make([]*EventResponse, 0, len(events))
	for i := range events {
		resp := FromEvent(&events[i].Event)
		views := events[i].Views
		resp.Views = &views
		out = append(out, resp)
	}
	return out
}
