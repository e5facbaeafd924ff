package domain

import (
	"strings"
	"time"
)

// Event is a bookable happening with a fixed ticket pool
type Event struct {
	ID               string    `json:"id"`
	Title            string    `json:"title"`
	Description      string    `json:"description"`
	DateTime         time.Time `json:"date_time"`
	Location         string    `json:"location"`
	Category         string    `json:"category"`
	ImageURL         string    `json:"image_url"`
	TotalTickets     int       `json:"total_tickets"`
	AvailableTickets int       `json:"available_tickets"`
	CreatedBy        string    `json:"created_by,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// NewEvent builds an event whose whole pool is still available
func NewEvent(title, description, location, category, imageURL string, dateTime time.Time, totalTickets int, createdBy string) (*Event, error) {
	e := &Event{
		Title:            strings.TrimSpace(title),
		Description:      description,
		DateTime:         dateTime,
		Location:         location,
		Category:         category,
		ImageURL:         imageURL,
		TotalTickets:     totalTickets,
		AvailableTickets: totalTickets,
		CreatedBy:        createdBy,
	}
	if err := e.Validate(); err != nil {
		return nil, err
	}
	return e, nil
}

// Validate checks the fields every stored event must satisfy
func (e *Event) Validate() error {
	if e.Title == "" {
		return InvalidArgument("title", "is required")
	}
	if e.DateTime.IsZero() {
		return InvalidArgument("date_time", "is required")
	}
	if e.TotalTickets <= 0 {
		return InvalidArgument("total_tickets", "must be greater than zero")
	}
	if e.AvailableTickets < 0 || e.AvailableTickets > e.TotalTickets {
		return InvalidArgument("available_tickets", "must be between 0 and total_tickets")
	}
	return nil
}

// SoldOut reports whether no tickets remain
func (e *Event) SoldOut() bool {
	return e.AvailableTickets == 0
}

// EventUpdate holds the descriptive fields an admin may change.
// Nil fields are left untouched. Ticket counts are never part of an update.
type EventUpdate struct {
	Title       *string
	Description *string
	DateTime    *time.Time
	Location    *string
	Category    *string
	ImageURL    *string
}

// Apply copies the set fields onto e
func (u *EventUpdate) Apply(e *Event) {
	if u.Title != nil {
		e.Title = strings.TrimSpace(*u.Title)
	}
	if u.Description != nil {
		e.Description = *u.Description
	}
	if u.DateTime != nil {
		e.DateTime = *u.DateTime
	}
	if u.Location != nil {
		e.Location = *u.Location
	}
	if u.Category != nil {
		e.Category = *u.Category
	}
	if u.ImageURL != nil {
		e.ImageURL = *u.ImageURL
	}
}

// RankedEvent is an event annotated with its current view count
type RankedEvent struct {
	Event
	Views int64 `json:"views"`
}
