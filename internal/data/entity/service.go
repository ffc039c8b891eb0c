package entity

import (
	"local-services/pkg/geo"

	"github.com/google/uuid"
)

type Service struct {
	Base
	ProviderID    uuid.UUID  `db:"provider_id"`
	Title         string     `db:"title"`
	Category      string     `db:"category"`
	Description   string     `db:"description"`
	Price         float64    `db:"price"`
	Image         string     `db:"image"`
	ImagePublicID string     `db:"image_public_id"`
	Location      *geo.Point `db:"-"`

	Provider   *Provider `db:"-"`
	DistanceKm *float64  `db:"-"`
}

type ServiceFilter struct {
	Category string
	Near     *geo.Point
	RadiusKm float64
	Limit    int // zero returns everything
	Offset   int
}
