package domain

import "time"

// Role values
const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// User is an account that can log in and book
type User struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsAdmin reports whether the user has the admin role
func (u *User) IsAdmin() bool {
	return u.Role == RoleAdmin
}

// Actor is the authenticated caller of an operation
type Actor struct {
	ID   string
	Role string
	Name string
}

// IsAdmin reports whether the actor may act on any user's bookings
func (a Actor) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// CanAccess reports whether the actor owns ownerID's resources or is an admin
func (a Actor) CanAccess(ownerID string) bool {
	return a.IsAdmin() || (a.ID != "" && a.ID == ownerID)
}
