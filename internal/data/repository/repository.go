package repository

import (
	"errors"
	"time"

	"local-services/internal/data/entity"
	"local-services/pkg/database"
	"local-services/pkg/geo"

	"github.com/jackc/pgx/v5/pgconn"
	"go.uber.org/zap"
)

var (
	ErrNotFound  = errors.New("record not found")
	ErrDuplicate = errors.New("duplicate record")
)

type Repository struct {
	User     UserRepository
	OTP      OTPRepository
	Provider ProviderRepository
	Service  ServiceRepository
	Booking  BookingRepository
}

func NewRepository(db database.PgxIface, log *zap.Logger) *Repository {
	return &Repository{
		User:     NewUserRepository(db, log),
		OTP:      NewOTPRepository(db, log),
		Provider: NewProviderRepository(db, log),
		Service:  NewServiceRepository(db, log),
		Booking:  NewBookingRepository(db, log),
	}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// limitArg maps a non-positive limit to NULL, which Postgres treats as no limit.
func limitArg(limit int) any {
	if limit <= 0 {
		return nil
	}
	return limit
}

func pointFrom(lat, lng *float64) *geo.Point {
	if lat == nil || lng == nil {
		return nil
	}
	return &geo.Point{Lat: *lat, Lng: *lng}
}

func pointArgs(p *geo.Point) (lat, lng *float64) {
	if p == nil {
		return nil, nil
	}
	return &p.Lat, &p.Lng
}

func codeFrom(code *string, expiresAt *time.Time) *entity.OneTimeCode {
	if code == nil || expiresAt == nil {
		return nil
	}
	return &entity.OneTimeCode{Code: *code, ExpiresAt: *expiresAt}
}
