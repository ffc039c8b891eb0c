package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"local-services/internal/data/entity"
	"local-services/pkg/database"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *entity.Booking) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error)
	FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*entity.Booking, error)
	FindAll(ctx context.Context, limit, offset int) ([]*entity.Booking, error)
	CountAll(ctx context.Context) (int64, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, updatedAt time.Time) error
	Rate(ctx context.Context, id, providerID uuid.UUID, rating int, review string, ratedAt time.Time) (*RatingAggregate, error)
}

// RatingAggregate is the provider's running mean after a rating was applied.
type RatingAggregate struct {
	Rating       float64
	RatingsCount int
}

type bookingRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewBookingRepository(db database.PgxIface, log *zap.Logger) BookingRepository {
	return &bookingRepository{
		db:  db,
		log: log.With(zap.String("repository", "booking")),
	}
}

const bookingSelect = `
		SELECT b.id, b.user_id, b.service_id, b.provider_id, b.date, b.address,
		       b.status, b.rating, b.review, b.created_at, b.updated_at,
		       u.name, u.email, u.mobile, u.role,
		       s.title, s.category, s.description, s.price, s.image,
		       p.user_id, p.bio, p.rating, p.ratings_count,
		       pu.name, pu.email, pu.mobile
		FROM bookings b
		JOIN users u ON u.id = b.user_id
		JOIN services s ON s.id = b.service_id
		JOIN providers p ON p.id = b.provider_id
		JOIN users pu ON pu.id = p.user_id
`

func scanBooking(row pgx.Row) (*entity.Booking, error) {
	var (
		b        entity.Booking
		user     entity.User
		service  entity.Service
		provider entity.Provider
		owner    entity.User
	)

	err := row.Scan(
		&b.ID,
		&b.UserID,
		&b.ServiceID,
		&b.ProviderID,
		&b.Date,
		&b.Address,
		&b.Status,
		&b.Rating,
		&b.Review,
		&b.CreatedAt,
		&b.UpdatedAt,
		&user.Name,
		&user.Email,
		&user.Mobile,
		&user.Role,
		&service.Title,
		&service.Category,
		&service.Description,
		&service.Price,
		&service.Image,
		&provider.UserID,
		&provider.Bio,
		&provider.Rating,
		&provider.RatingsCount,
		&owner.Name,
		&owner.Email,
		&owner.Mobile,
	)
	if err != nil {
		return nil, err
	}

	user.ID = b.UserID
	b.User = &user

	owner.ID = provider.UserID
	owner.Role = entity.RoleProvider
	provider.ID = b.ProviderID
	provider.User = &owner
	b.Provider = &provider

	service.ID = b.ServiceID
	service.ProviderID = b.ProviderID
	b.Service = &service

	return &b, nil
}

func (r *bookingRepository) Create(ctx context.Context, booking *entity.Booking) error {
	query := `
		INSERT INTO bookings (id, user_id, service_id, provider_id, date, address,
		                      status, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`

	_, err := r.db.Exec(ctx, query,
		booking.ID,
		booking.UserID,
		booking.ServiceID,
		booking.ProviderID,
		booking.Date,
		booking.Address,
		booking.Status,
		booking.CreatedAt,
		booking.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create booking",
			zap.Error(err),
			zap.String("user_id", booking.UserID.String()),
			zap.String("service_id", booking.ServiceID.String()),
		)
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *bookingRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Booking, error) {
	b, err := scanBooking(r.db.QueryRow(ctx, bookingSelect+` WHERE b.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find booking by ID",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("find booking by ID %s: %w", id.String(), err)
	}

	return b, nil
}

func (r *bookingRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*entity.Booking, error) {
	query := bookingSelect + ` WHERE b.user_id = $1 ORDER BY b.created_at DESC`
	return r.list(ctx, "user", query, userID)
}

func (r *bookingRepository) FindByProviderID(ctx context.Context, providerID uuid.UUID) ([]*entity.Booking, error) {
	query := bookingSelect + ` WHERE b.provider_id = $1 ORDER BY b.created_at DESC`
	return r.list(ctx, "provider", query, providerID)
}

// FindAll lists every booking newest first; limit <= 0 returns all of them
func (r *bookingRepository) FindAll(ctx context.Context, limit, offset int) ([]*entity.Booking, error) {
	query := bookingSelect + ` ORDER BY b.created_at DESC LIMIT $1 OFFSET $2`
	return r.list(ctx, "all", query, limitArg(limit), offset)
}

func (r *bookingRepository) list(ctx context.Context, scope, query string, args ...any) ([]*entity.Booking, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list bookings", zap.Error(err), zap.String("scope", scope))
		return nil, fmt.Errorf("list %s bookings: %w", scope, err)
	}
	defer rows.Close()

	bookings := make([]*entity.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			r.log.Error("Failed to scan booking row", zap.Error(err))
			return nil, fmt.Errorf("scan booking row: %w", err)
		}
		bookings = append(bookings, b)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate bookings rows: %w", err)
	}

	return bookings, nil
}

func (r *bookingRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM bookings`).Scan(&count); err != nil {
		r.log.Error("Database error counting bookings", zap.Error(err))
		return 0, fmt.Errorf("count all bookings: %w", err)
	}
	return count, nil
}

// UpdateStatus moves the booking only if it is still in the expected state.
// ErrNotFound means the booking is gone or was moved concurrently.
func (r *bookingRepository) UpdateStatus(ctx context.Context, id uuid.UUID, from, to entity.BookingStatus, updatedAt time.Time) error {
	query := `UPDATE bookings SET status = $3, updated_at = $4 WHERE id = $1 AND status = $2`

	result, err := r.db.Exec(ctx, query, id, from, to, updatedAt)
	if err != nil {
		r.log.Error("Failed to update booking status",
			zap.Error(err),
			zap.String("booking_id", id.String()),
			zap.String("to", string(to)),
		)
		return fmt.Errorf("update booking %s status: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update booking %s status: %w", id.String(), ErrNotFound)
	}

	return nil
}

// Rate stores the rating on the booking and folds it into the provider's
// running mean in the same transaction. The mean update is a single
// statement so concurrent ratings cannot lose each other.
func (r *bookingRepository) Rate(ctx context.Context, id, providerID uuid.UUID, rating int, review string, ratedAt time.Time) (*RatingAggregate, error) {
	tx, err := r.db.Begin(ctx)
	if err != nil {
		r.log.Error("Failed to begin rating transaction", zap.Error(err))
		return nil, fmt.Errorf("begin rating tx: %w", err)
	}

	result, err := tx.Exec(ctx,
		`UPDATE bookings SET rating = $2, review = $3, updated_at = $4 WHERE id = $1`,
		id, rating, review, ratedAt,
	)
	if err != nil {
		_ = tx.Rollback(ctx)
		r.log.Error("Failed to store booking rating",
			zap.Error(err),
			zap.String("booking_id", id.String()),
		)
		return nil, fmt.Errorf("rate booking %s: %w", id.String(), err)
	}
	if result.RowsAffected() == 0 {
		_ = tx.Rollback(ctx)
		return nil, fmt.Errorf("rate booking %s: %w", id.String(), ErrNotFound)
	}

	var agg RatingAggregate
	err = tx.QueryRow(ctx, `
		UPDATE providers
		SET rating = (rating * ratings_count + $2) / (ratings_count + 1),
		    ratings_count = ratings_count + 1,
		    updated_at = $3
		WHERE id = $1
		RETURNING rating, ratings_count
	`, providerID, float64(rating), ratedAt).Scan(&agg.Rating, &agg.RatingsCount)
	if err != nil {
		_ = tx.Rollback(ctx)
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("rate provider %s: %w", providerID.String(), ErrNotFound)
		}
		r.log.Error("Failed to update provider rating",
			zap.Error(err),
			zap.String("provider_id", providerID.String()),
		)
		return nil, fmt.Errorf("rate provider %s: %w", providerID.String(), err)
	}

	if err := tx.Commit(ctx); err != nil {
		r.log.Error("Failed to commit rating", zap.Error(err))
		return nil, fmt.Errorf("commit rating: %w", err)
	}

	return &agg, nil
}
