package entity

import (
	"time"

	"github.com/google/uuid"
)

type BookingStatus string

const (
	BookingStatusScheduled  BookingStatus = "scheduled"
	BookingStatusInProgress BookingStatus = "in_progress"
	BookingStatusCompleted  BookingStatus = "completed"
	BookingStatusCancelled  BookingStatus = "cancelled"
)

func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusScheduled, BookingStatusInProgress, BookingStatusCompleted, BookingStatusCancelled:
		return true
	default:
		return false
	}
}

func (s BookingStatus) IsTerminal() bool {
	return s == BookingStatusCompleted || s == BookingStatusCancelled
}

type transition struct {
	from BookingStatus
	to   BookingStatus
}

var bookingTransitions = map[transition][]Role{
	{BookingStatusScheduled, BookingStatusInProgress}: {RoleProvider, RoleAdmin},
	{BookingStatusScheduled, BookingStatusCancelled}:  {RoleProvider, RoleAdmin},
	{BookingStatusInProgress, BookingStatusCompleted}: {RoleProvider, RoleAdmin},
	{BookingStatusInProgress, BookingStatusCancelled}: {RoleProvider, RoleAdmin},
}

// CanTransition looks up (from, to, role) in the booking transition table.
func CanTransition(from, to BookingStatus, role Role) bool {
	for _, allowed := range bookingTransitions[transition{from, to}] {
		if allowed == role {
			return true
		}
	}
	return false
}

type Booking struct {
	Base
	UserID     uuid.UUID     `db:"user_id"`
	ServiceID  uuid.UUID     `db:"service_id"`
	ProviderID uuid.UUID     `db:"provider_id"`
	Date       time.Time     `db:"date"`
	Address    string        `db:"address"`
	Status     BookingStatus `db:"status"`
	Rating     *int          `db:"rating"`
	Review     *string       `db:"review"`

	User     *User     `db:"-"`
	Service  *Service  `db:"-"`
	Provider *Provider `db:"-"`
}
