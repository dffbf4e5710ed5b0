package model

import (
	"strings"
	"time"
)

// User is a person known to the network: a requester, a responder, or both.
type User struct {
	ID            string    `json:"id" db:"id"`
	FirstName     string    `json:"firstName" db:"first_name"`
	LastName      string    `json:"lastName" db:"last_name"`
	Phone         *string   `json:"phone,omitempty" db:"phone"`
	Email         string    `json:"email" db:"email"`
	NarcanTrained bool      `json:"narcanTrained" db:"narcan_trained"`
	CreatedAt     time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt     time.Time `json:"updatedAt" db:"updated_at"`
}

// FullName joins first and last name, skipping empty parts.
func (u *User) FullName() string {
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}

// ResponderNetworkEntry links a requester to one of their responders.
type ResponderNetworkEntry struct {
	ID           string    `json:"id" db:"id"`
	RequesterID  string    `json:"requesterId" db:"requester_id"`
	ResponderID  string    `json:"responderId" db:"responder_id"`
	Relationship string    `json:"relationship" db:"relationship"`
	Priority     int       `json:"priority" db:"priority"`
	IsActive     bool      `json:"isActive" db:"is_active"`
	ResponseRate float64   `json:"responseRate" db:"response_rate"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`

	// Responder is the joined profile of ResponderID.
	Responder User `json:"responder"`
}
