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

type ProviderRepository interface {
	Create(ctx context.Context, provider *entity.Provider) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error)
	FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Provider, error)
	UpdateBio(ctx context.Context, id uuid.UUID, bio string, updatedAt time.Time) error
}

type providerRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewProviderRepository(db database.PgxIface, log *zap.Logger) ProviderRepository {
	return &providerRepository{
		db:  db,
		log: log.With(zap.String("repository", "provider")),
	}
}

const providerSelect = `
		SELECT p.id, p.user_id, p.bio, p.rating, p.ratings_count, p.created_at, p.updated_at,
		       ARRAY(SELECT s.id::text FROM services s WHERE s.provider_id = p.id ORDER BY s.created_at, s.id),
		       u.name, u.email, u.mobile, u.verified
		FROM providers p
		JOIN users u ON u.id = p.user_id
`

func scanProvider(row pgx.Row) (*entity.Provider, error) {
	var (
		p          entity.Provider
		serviceIDs []string
		user       entity.User
	)

	err := row.Scan(
		&p.ID,
		&p.UserID,
		&p.Bio,
		&p.Rating,
		&p.RatingsCount,
		&p.CreatedAt,
		&p.UpdatedAt,
		&serviceIDs,
		&user.Name,
		&user.Email,
		&user.Mobile,
		&user.Verified,
	)
	if err != nil {
		return nil, err
	}

	p.ServiceIDs = make([]uuid.UUID, 0, len(serviceIDs))
	for _, raw := range serviceIDs {
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("parse service id %q: %w", raw, err)
		}
		p.ServiceIDs = append(p.ServiceIDs, id)
	}

	user.ID = p.UserID
	user.Role = entity.RoleProvider
	p.User = &user
	return &p, nil
}

func (r *providerRepository) Create(ctx context.Context, provider *entity.Provider) error {
	query := `
		INSERT INTO providers (id, user_id, bio, rating, ratings_count, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Exec(ctx, query,
		provider.ID,
		provider.UserID,
		provider.Bio,
		provider.Rating,
		provider.RatingsCount,
		provider.CreatedAt,
		provider.UpdatedAt,
	)

	// user_id is unique: one provider profile per user
	if isUniqueViolation(err) {
		return fmt.Errorf("create provider for user %s: %w", provider.UserID.String(), ErrDuplicate)
	}
	if err != nil {
		r.log.Error("Failed to create provider",
			zap.Error(err),
			zap.String("user_id", provider.UserID.String()),
		)
		return fmt.Errorf("create provider for user %s: %w", provider.UserID.String(), err)
	}

	return nil
}

func (r *providerRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Provider, error) {
	p, err := scanProvider(r.db.QueryRow(ctx, providerSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find provider by ID",
			zap.Error(err),
			zap.String("provider_id", id.String()),
		)
		return nil, fmt.Errorf("find provider by ID %s: %w", id.String(), err)
	}

	return p, nil
}

func (r *providerRepository) FindByUserID(ctx context.Context, userID uuid.UUID) (*entity.Provider, error) {
	p, err := scanProvider(r.db.QueryRow(ctx, providerSelect+` WHERE p.user_id = $1`, userID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find provider by user ID",
			zap.Error(err),
			zap.String("user_id", userID.String()),
		)
		return nil, fmt.Errorf("find provider by user ID %s: %w", userID.String(), err)
	}

	return p, nil
}

func (r *providerRepository) UpdateBio(ctx context.Context, id uuid.UUID, bio string, updatedAt time.Time) error {
	query := `UPDATE providers SET bio = $2, updated_at = $3 WHERE id = $1`

	result, err := r.db.Exec(ctx, query, id, bio, updatedAt)
	if err != nil {
		r.log.Error("Failed to update provider bio",
			zap.Error(err),
			zap.String("provider_id", id.String()),
		)
		return fmt.Errorf("update provider %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update provider %s: %w", id.String(), ErrNotFound)
	}

	return nil
}
