package entity

import "github.com/google/uuid"

type Provider struct {
	Base
	UserID       uuid.UUID   `db:"user_id"`
	Bio          string      `db:"bio"`
	ServiceIDs   []uuid.UUID `db:"-"` // ordered by service creation time
	Rating       float64     `db:"rating"`
	RatingsCount int         `db:"ratings_count"`

	User *User `db:"-"`
}
