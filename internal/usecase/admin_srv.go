package usecase

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"local-services/internal/data/entity"
	"local-services/internal/data/repository"
	"local-services/internal/dto/request"
	"local-services/internal/dto/response"
	"local-services/pkg/utils"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
	"go.uber.org/zap"
)

type AdminService interface {
	ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error)
	ListServices(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[*response.ServiceResponse], error)
	ListBookings(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[*response.BookingResponse], error)
	GetUser(ctx context.Context, userID string) (*response.UserResponse, error)
	DeleteUser(ctx context.Context, userID string) error
	DeleteService(ctx context.Context, caller utils.Session, serviceID string) error
	ExportBookings(ctx context.Context, w io.Writer) error
}

type adminService struct {
	repo    *repository.Repository
	catalog CatalogService
	log     *zap.Logger
}

func NewAdminService(repo *repository.Repository, catalog CatalogService, log *zap.Logger) AdminService {
	return &adminService{
		repo:    repo,
		catalog: catalog,
		log:     log.With(zap.String("service", "admin")),
	}
}

func (s *adminService) ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	users, err := s.repo.User.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	total, err := s.repo.User.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count users: %w", err)
	}

	return paginate(response.UsersToResponse(users), req, total), nil
}

func (s *adminService) ListServices(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[*response.ServiceResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	services, err := s.repo.Service.FindAll(ctx, entity.ServiceFilter{
		Limit:  req.Limit(),
		Offset: req.Offset(),
	})
	if err != nil {
		return nil, fmt.Errorf("list services: %w", err)
	}
	total, err := s.repo.Service.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count services: %w", err)
	}

	return paginate(response.ServicesToResponse(services), req, total), nil
}

func (s *adminService) ListBookings(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[*response.BookingResponse], error) {
	if errs := utils.ValidateStruct(req); len(errs) > 0 {
		return nil, &ValidationError{Fields: errs}
	}

	bookings, err := s.repo.Booking.FindAll(ctx, req.Limit(), req.Offset())
	if err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}
	total, err := s.repo.Booking.CountAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("count bookings: %w", err)
	}

	return paginate(response.BookingsToResponse(bookings), req, total), nil
}

func (s *adminService) GetUser(ctx context.Context, userID string) (*response.UserResponse, error) {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	user, err := s.repo.User.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("%w: user", ErrNotFound)
	}

	resp := response.UserToResponse(user)
	return &resp, nil
}

// DeleteUser removes the account; its provider profile, services and bookings cascade.
func (s *adminService) DeleteUser(ctx context.Context, userID string) error {
	id, err := uuid.Parse(strings.TrimSpace(userID))
	if err != nil {
		return fmt.Errorf("%w: user", ErrNotFound)
	}

	if err := s.repo.User.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return fmt.Errorf("%w: user", ErrNotFound)
		}
		return fmt.Errorf("delete user: %w", err)
	}

	s.log.Info("User deleted by admin", zap.String("user_id", id.String()))
	return nil
}

func (s *adminService) DeleteService(ctx context.Context, caller utils.Session, serviceID string) error {
	if !caller.Role.Can(entity.CapModerate) {
		return ErrForbidden
	}
	return s.catalog.DeleteService(ctx, caller, serviceID)
}

var bookingExportHeaders = []string{
	"ID", "Status", "Date", "Address",
	"User", "User Email", "Service", "Category", "Price",
	"Provider", "Rating", "Review", "Created At",
}

// ExportBookings writes every booking as an xlsx workbook.
func (s *adminService) ExportBookings(ctx context.Context, w io.Writer) error {
	bookings, err := s.repo.Booking.FindAll(ctx, 0, 0)
	if err != nil {
		return fmt.Errorf("list bookings: %w", err)
	}

	file := xlsx.NewFile()
	sheet, err := file.AddSheet("Bookings")
	if err != nil {
		return fmt.Errorf("create sheet: %w", err)
	}

	header := sheet.AddRow()
	for _, h := range bookingExportHeaders {
		header.AddCell().SetValue(h)
	}

	for _, b := range bookings {
		row := sheet.AddRow()
		row.AddCell().SetValue(b.ID.String())
		row.AddCell().SetValue(string(b.Status))
		row.AddCell().SetValue(b.Date.Format("2006-01-02 15:04"))
		row.AddCell().SetValue(b.Address)

		var userName, userEmail, title, category, providerName string
		var price float64
		if b.User != nil {
			userName, userEmail = b.User.Name, b.User.Email
		}
		if b.Service != nil {
			title, category, price = b.Service.Title, b.Service.Category, b.Service.Price
		}
		if b.Provider != nil && b.Provider.User != nil {
			providerName = b.Provider.User.Name
		}
		row.AddCell().SetValue(userName)
		row.AddCell().SetValue(userEmail)
		row.AddCell().SetValue(title)
		row.AddCell().SetValue(category)
		row.AddCell().SetValue(price)
		row.AddCell().SetValue(providerName)

		rating := row.AddCell()
		if b.Rating != nil {
			rating.SetValue(*b.Rating)
		}
		review := row.AddCell()
		if b.Review != nil {
			review.SetValue(*b.Review)
		}
		row.AddCell().SetValue(b.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	if err := file.Write(w); err != nil {
		s.log.Error("Failed to write bookings export", zap.Error(err))
		return fmt.Errorf("write workbook: %w", err)
	}

	s.log.Info("Bookings exported", zap.Int("count", len(bookings)))
	return nil
}

// paginate reports unpaged listings as a single page holding everything
func paginate[T any](data []T, req *request.PaginatedRequest, total int64) *response.PaginatedResponse[T] {
	if !req.Paged() {
		return response.NewPaginatedResponse(data, 1, len(data), total)
	}

	page := req.Page
	if page < 1 {
		page = 1
	}
	return response.NewPaginatedResponse(data, page, req.Limit(), total)
}
