package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"local-services/internal/data/entity"
	"local-services/pkg/database"
	"local-services/pkg/geo"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"
)

type ServiceRepository interface {
	Create(ctx context.Context, service *entity.Service) error
	FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error)
	FindAll(ctx context.Context, filter entity.ServiceFilter) ([]*entity.Service, error)
	CountAll(ctx context.Context) (int64, error)
	Update(ctx context.Context, service *entity.Service) error
	Delete(ctx context.Context, id uuid.UUID) error
}

type serviceRepository struct {
	db  database.PgxIface
	log *zap.Logger
}

func NewServiceRepository(db database.PgxIface, log *zap.Logger) ServiceRepository {
	return &serviceRepository{
		db:  db,
		log: log.With(zap.String("repository", "service")),
	}
}

// column order must match scanService
const serviceColumns = `s.id, s.provider_id, s.title, s.category, s.description, s.price,
		       s.image, s.image_public_id, s.lat, s.lng, s.created_at, s.updated_at,
		       p.user_id, p.bio, p.rating, p.ratings_count,
		       u.name, u.email, u.mobile`

const serviceJoins = `
		FROM services s
		JOIN providers p ON p.id = s.provider_id
		JOIN users u ON u.id = p.user_id`

const defaultRadiusKm = 10.0

func scanService(row pgx.Row) (*entity.Service, error) {
	var (
		s        entity.Service
		p        entity.Provider
		u        entity.User
		lat, lng *float64
	)

	err := row.Scan(
		&s.ID,
		&s.ProviderID,
		&s.Title,
		&s.Category,
		&s.Description,
		&s.Price,
		&s.Image,
		&s.ImagePublicID,
		&lat,
		&lng,
		&s.CreatedAt,
		&s.UpdatedAt,
		&p.UserID,
		&p.Bio,
		&p.Rating,
		&p.RatingsCount,
		&u.Name,
		&u.Email,
		&u.Mobile,
	)
	if err != nil {
		return nil, err
	}

	s.Location = pointFrom(lat, lng)

	p.ID = s.ProviderID
	u.ID = p.UserID
	u.Role = entity.RoleProvider
	p.User = &u
	s.Provider = &p
	return &s, nil
}

func (r *serviceRepository) Create(ctx context.Context, service *entity.Service) error {
	query := `
		INSERT INTO services (id, provider_id, title, category, description, price,
		                      image, image_public_id, lat, lng, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`

	lat, lng := pointArgs(service.Location)
	_, err := r.db.Exec(ctx, query,
		service.ID,
		service.ProviderID,
		service.Title,
		service.Category,
		service.Description,
		service.Price,
		service.Image,
		service.ImagePublicID,
		lat,
		lng,
		service.CreatedAt,
		service.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to create service",
			zap.Error(err),
			zap.String("provider_id", service.ProviderID.String()),
			zap.String("title", service.Title),
		)
		return fmt.Errorf("create service %s: %w", service.Title, err)
	}

	return nil
}

func (r *serviceRepository) FindByID(ctx context.Context, id uuid.UUID) (*entity.Service, error) {
	query := `SELECT ` + serviceColumns + serviceJoins + ` WHERE s.id = $1`

	s, err := scanService(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		r.log.Error("Failed to find service by ID",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return nil, fmt.Errorf("find service by ID %s: %w", id.String(), err)
	}

	return s, nil
}

// FindAll applies the category and radius filters. Radius queries are
// ordered nearest first, others newest first. The database narrows radius
// queries to a bounding box and the exact great-circle check runs here.
func (r *serviceRepository) FindAll(ctx context.Context, filter entity.ServiceFilter) ([]*entity.Service, error) {
	query, args := buildServiceQuery(filter)

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		r.log.Error("Failed to list services",
			zap.Error(err),
			zap.String("category", filter.Category),
		)
		return nil, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	services := make([]*entity.Service, 0)
	for rows.Next() {
		s, err := scanService(rows)
		if err != nil {
			r.log.Error("Failed to scan service row", zap.Error(err))
			return nil, fmt.Errorf("scan service row: %w", err)
		}
		services = append(services, s)
	}

	if err := rows.Err(); err != nil {
		r.log.Error("Rows iteration error", zap.Error(err))
		return nil, fmt.Errorf("iterate services rows: %w", err)
	}

	if filter.Near != nil {
		services = nearest(services, *filter.Near, radiusOrDefault(filter.RadiusKm), filter.Limit, filter.Offset)
	}
	return services, nil
}

func buildServiceQuery(filter entity.ServiceFilter) (string, []any) {
	var (
		args  []any
		where []string
	)

	near := filter.Near
	if near != nil {
		box := geo.BoundingBox(*near, radiusOrDefault(filter.RadiusKm))
		args = append(args, box.MinLat, box.MaxLat, box.MinLng, box.MaxLng)
		where = append(where,
			"s.lat IS NOT NULL", "s.lng IS NOT NULL",
			"s.lat BETWEEN $1 AND $2", "s.lng BETWEEN $3 AND $4")
	}
	if filter.Category != "" {
		args = append(args, filter.Category)
		where = append(where, fmt.Sprintf("s.category = $%d", len(args)))
	}

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(serviceColumns)
	b.WriteString(serviceJoins)
	if len(where) > 0 {
		b.WriteString(" WHERE ")
		b.WriteString(strings.Join(where, " AND "))
	}

	// radius results are ordered and paged after the distance check
	if near != nil {
		b.WriteString(" ORDER BY s.id")
		return b.String(), args
	}

	b.WriteString(" ORDER BY s.created_at DESC, s.id")
	args = append(args, limitArg(filter.Limit), filter.Offset)
	fmt.Fprintf(&b, " LIMIT $%d OFFSET $%d", len(args)-1, len(args))

	return b.String(), args
}

// nearest keeps the candidates within radiusKm of center, sets their
// distance, sorts them nearest first and applies the page window.
func nearest(candidates []*entity.Service, center geo.Point, radiusKm float64, limit, offset int) []*entity.Service {
	out := make([]*entity.Service, 0, len(candidates))
	for _, s := range candidates {
		if s.Location == nil || !geo.Within(center, *s.Location, radiusKm) {
			continue
		}
		d := geo.Distance(center, *s.Location)
		s.DistanceKm = &d
		out = append(out, s)
	}

	sort.Slice(out, func(i, j int) bool {
		if *out[i].DistanceKm != *out[j].DistanceKm {
			return *out[i].DistanceKm < *out[j].DistanceKm
		}
		return out[i].ID.String() < out[j].ID.String()
	})

	if offset < 0 {
		offset = 0
	}
	if offset >= len(out) {
		return out[:0]
	}
	out = out[offset:]
	if limit > 0 && limit < len(out) {
		out = out[:limit]
	}
	return out
}

func radiusOrDefault(km float64) float64 {
	if !geo.ValidRadius(km) {
		return defaultRadiusKm
	}
	return km
}

func (r *serviceRepository) CountAll(ctx context.Context) (int64, error) {
	var count int64
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM services`).Scan(&count); err != nil {
		r.log.Error("Database error counting services", zap.Error(err))
		return 0, fmt.Errorf("count all services: %w", err)
	}
	return count, nil
}

func (r *serviceRepository) Update(ctx context.Context, service *entity.Service) error {
	query := `
		UPDATE services
		SET title = $2, category = $3, description = $4, price = $5,
		    image = $6, image_public_id = $7, lat = $8, lng = $9,
		    provider_id = $10, updated_at = $11
		WHERE id = $1
	`

	lat, lng := pointArgs(service.Location)
	result, err := r.db.Exec(ctx, query,
		service.ID,
		service.Title,
		service.Category,
		service.Description,
		service.Price,
		service.Image,
		service.ImagePublicID,
		lat,
		lng,
		service.ProviderID,
		service.UpdatedAt,
	)
	if err != nil {
		r.log.Error("Failed to update service",
			zap.Error(err),
			zap.String("service_id", service.ID.String()),
		)
		return fmt.Errorf("update service %s: %w", service.ID.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("update service %s: %w", service.ID.String(), ErrNotFound)
	}

	return nil
}

func (r *serviceRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.Exec(ctx, `DELETE FROM services WHERE id = $1`, id)
	if err != nil {
		r.log.Error("Failed to delete service",
			zap.Error(err),
			zap.String("service_id", id.String()),
		)
		return fmt.Errorf("delete service %s: %w", id.String(), err)
	}

	if result.RowsAffected() == 0 {
		return fmt.Errorf("delete service %s: %w", id.String(), ErrNotFound)
	}

	r.log.Info("Service deleted", zap.String("service_id", id.String()))
	return nil
}
