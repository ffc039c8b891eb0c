package entity

import (
	"crypto/subtle"
	"time"
)

type CodePurpose string

const (
	PurposeEmailVerification CodePurpose = "email_verification"
	PurposePasswordReset     CodePurpose = "password_reset"
)

// OneTimeCode is a pending numeric code stored on the user record.
type OneTimeCode struct {
	Code      string    `db:"code"`
	ExpiresAt time.Time `db:"expires_at"`
}

// Matches is true only for an exact code that has not yet expired.
func (c *OneTimeCode) Matches(code string, now time.Time) bool {
	if c == nil || c.Code == "" || len(code) != len(c.Code) {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(c.Code), []byte(code)) != 1 {
		return false
	}
	return now.Before(c.ExpiresAt)
}

// Expired reports whether a stored code has passed its expiry.
func (c *OneTimeCode) Expired(now time.Time) bool {
	return c != nil && !now.Before(c.ExpiresAt)
}
