package entity

import (
	"testing"
	"time"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		from, to BookingStatus
		role     Role
		want     bool
	}{
		{BookingStatusScheduled, BookingStatusInProgress, RoleProvider, true},
		{BookingStatusScheduled, BookingStatusCancelled, RoleAdmin, true},
		{BookingStatusInProgress, BookingStatusCompleted, RoleProvider, true},
		{BookingStatusInProgress, BookingStatusCancelled, RoleProvider, true},
		{BookingStatusScheduled, BookingStatusCompleted, RoleProvider, false},
		{BookingStatusCompleted, BookingStatusScheduled, RoleAdmin, false},
		{BookingStatusCancelled, BookingStatusInProgress, RoleAdmin, false},
		{BookingStatusScheduled, BookingStatusInProgress, RoleUser, false},
		{BookingStatusScheduled, BookingStatusScheduled, RoleAdmin, false},
	}

	for _, tt := range tests {
		if got := CanTransition(tt.from, tt.to, tt.role); got != tt.want {
			t.Errorf("CanTransition(%s, %s, %s) = %v, want %v", tt.from, tt.to, tt.role, got, tt.want)
		}
	}
}

func TestBookingStatusTerminal(t *testing.T) {
	if !BookingStatusCompleted.IsTerminal() || !BookingStatusCancelled.IsTerminal() {
		t.Fatal("completed and cancelled must be terminal")
	}
	if BookingStatusScheduled.IsTerminal() || BookingStatusInProgress.IsTerminal() {
		t.Fatal("scheduled and in_progress must not be terminal")
	}
	if BookingStatus("done").Valid() {
		t.Fatal("unknown status must not be valid")
	}
}

func TestRoleCapabilities(t *testing.T) {
	if !RoleUser.Can(CapBookServices) || RoleUser.Can(CapManageServices) {
		t.Fatal("user capabilities are wrong")
	}
	if !RoleProvider.Can(CapManageServices) || RoleProvider.Can(CapBypassOwnership) {
		t.Fatal("provider capabilities are wrong")
	}
	if !RoleAdmin.Can(CapModerate) || !RoleAdmin.Can(CapBypassOwnership) || RoleAdmin.Can(CapBookServices) {
		t.Fatal("admin capabilities are wrong")
	}
	if Role("guest").Can(CapBookServices) {
		t.Fatal("unknown role must have no capabilities")
	}
}

func TestParseRole(t *testing.T) {
	if r, ok := ParseRole(" Provider "); !ok || r != RoleProvider {
		t.Fatalf("ParseRole() = %q, %v", r, ok)
	}
	if _, ok := ParseRole("superuser"); ok {
		t.Fatal("expected unknown role to be rejected")
	}
	if RoleAdmin.SelfRegistrable() {
		t.Fatal("admin must not be self registrable")
	}
}

func TestOneTimeCodeMatches(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	code := &OneTimeCode{Code: "123456", ExpiresAt: now.Add(15 * time.Minute)}

	if !code.Matches("123456", now) {
		t.Fatal("expected exact code before expiry to match")
	}
	if code.Matches("654321", now) {
		t.Fatal("expected different code not to match")
	}
	if code.Matches("123456", now.Add(15*time.Minute)) {
		t.Fatal("expected code at expiry instant not to match")
	}
	var missing *OneTimeCode
	if missing.Matches("123456", now) {
		t.Fatal("expected nil code not to match")
	}
}
