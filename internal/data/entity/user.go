package entity

import "local-services/pkg/geo"

type User struct {
	Base
	Name         string       `db:"name"`
	Email        string       `db:"email"`
	PasswordHash string       `db:"password"`
	Mobile       string       `db:"mobile"`
	Role         Role         `db:"role"`
	Verified     bool         `db:"verified"`
	OTP          *OneTimeCode `db:"-"`
	ResetToken   *OneTimeCode `db:"-"`
	Location     *geo.Point   `db:"-"`
}

func (u *User) Code(purpose CodePurpose) *OneTimeCode {
	switch purpose {
	case PurposeEmailVerification:
		return u.OTP
	case PurposePasswordReset:
		return u.ResetToken
	default:
		return nil
	}
}
