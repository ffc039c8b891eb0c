package entity

import "strings"

type Role string

const (
	RoleUser     Role = "user"
	RoleProvider Role = "provider"
	RoleAdmin    Role = "admin"
)

// Capability is an action a role may be granted. Route guards and services
// ask the role for a capability instead of comparing role names.
type Capability string

const (
	CapBookServices        Capability = "book_services"
	CapRateBookings        Capability = "rate_bookings"
	CapManageServices      Capability = "manage_services"
	CapUpdateBookingStatus Capability = "update_booking_status"
	CapModerate            Capability = "moderate"
	CapBypassOwnership     Capability = "bypass_ownership"
)

func ParseRole(s string) (Role, bool) {
	switch r := Role(strings.ToLower(strings.TrimSpace(s))); r {
	case RoleUser, RoleProvider, RoleAdmin:
		return r, true
	default:
		return "", false
	}
}

func (r Role) Valid() bool {
	_, ok := ParseRole(string(r))
	return ok
}

func (r Role) Can(c Capability) bool {
	switch r {
	case RoleUser:
		return c == CapBookServices || c == CapRateBookings
	case RoleProvider:
		return c == CapManageServices || c == CapUpdateBookingStatus
	case RoleAdmin:
		return c == CapManageServices || c == CapUpdateBookingStatus ||
			c == CapModerate || c == CapBypassOwnership
	default:
		return false
	}
}

// SelfRegistrable reports whether the role may be chosen at sign-up.
func (r Role) SelfRegistrable() bool {
	switch r {
	case RoleUser, RoleProvider:
		return true
	case RoleAdmin:
		return false
	default:
		return false
	}
}
