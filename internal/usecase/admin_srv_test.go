package usecase

import (
	"bytes"
	"context"
	"errors"
	"testing"

	"local-services/internal/data/entity"
	"local-services/internal/dto/request"

	"github.com/google/uuid"
	"github.com/tealeg/xlsx"
)

func TestAdminListings(t *testing.T) {
	f := newBookingFixture(t)
	ctx := context.Background()
	f.book(t)
	f.book(t)

	users, err := f.h.svc.Admin.ListUsers(ctx, &request.PaginatedRequest{})
	if err != nil {
		t.Fatalf("ListUsers() error = %v", err)
	}
	if len(users.Data) != 3 || users.Pagination.Total != 3 || users.Pagination.TotalPages != 1 {
		t.Errorf("unpaged users = %d, meta %+v", len(users.Data), users.Pagination)
	}

	page, err := f.h.svc.Admin.ListUsers(ctx, &request.PaginatedRequest{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("paged ListUsers() error = %v", err)
	}
	if len(page.Data) != 1 || page.Pagination.TotalPages != 2 || page.Pagination.Page != 2 {
		t.Errorf("page 2 = %d items, meta %+v", len(page.Data), page.Pagination)
	}

	if _, err := f.h.svc.Admin.ListUsers(ctx, &request.PaginatedRequest{PerPage: 500}); !errors.Is(err, ErrValidation) {
		t.Errorf("per_page 500 error = %v, want ErrValidation", err)
	}

	services, err := f.h.svc.Admin.ListServices(ctx, &request.PaginatedRequest{})
	if err != nil || len(services.Data) != 1 {
		t.Fatalf("ListServices() = %v (%v)", services, err)
	}
	if services.Data[0].Provider == nil || services.Data[0].Provider.User == nil {
		t.Error("admin services must join provider and user")
	}

	bookings, err := f.h.svc.Admin.ListBookings(ctx, &request.PaginatedRequest{})
	if err != nil || len(bookings.Data) != 2 {
		t.Fatalf("ListBookings() = %v (%v)", bookings, err)
	}
	b := bookings.Data[0]
	if b.User == nil || b.Service == nil || b.Provider == nil {
		t.Errorf("admin bookings must be fully joined: %+v", b)
	}
}

func TestAdminUsers(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	id := h.signUp(t, "Gil", "gil@example.com", "")

	got, err := h.svc.Admin.GetUser(ctx, id.String())
	if err != nil || got.Email != "gil@example.com" {
		t.Fatalf("GetUser() = %+v (%v)", got, err)
	}
	if _, err := h.svc.Admin.GetUser(ctx, "bogus"); !errors.Is(err, ErrNotFound) {
		t.Errorf("malformed id error = %v, want ErrNotFound", err)
	}

	if err := h.svc.Admin.DeleteUser(ctx, id.String()); err != nil {
		t.Fatalf("DeleteUser() error = %v", err)
	}
	if err := h.svc.Admin.DeleteUser(ctx, id.String()); !errors.Is(err, ErrNotFound) {
		t.Errorf("second DeleteUser() error = %v, want ErrNotFound", err)
	}
}

func TestAdminDeleteServiceBypassesOwnership(t *testing.T) {
	h := newHarness()
	ctx := context.Background()
	owner := h.signUp(t, "Hugo", "hugo@example.com", "provider")
	svc := h.createService(t, owner, "Roofing", "building", nil, nil)

	if err := h.svc.Admin.DeleteService(ctx, as(owner, entity.RoleProvider), svc.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("provider through admin path error = %v, want ErrForbidden", err)
	}
	if err := h.svc.Admin.DeleteService(ctx, as(uuid.New(), entity.RoleAdmin), svc.ID); err != nil {
		t.Fatalf("admin DeleteService() error = %v", err)
	}
	if _, err := h.svc.Catalog.GetService(ctx, svc.ID); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetService() after admin delete error = %v, want ErrNotFound", err)
	}
}

func TestExportBookings(t *testing.T) {
	f := newBookingFixture(t)
	f.book(t)

	var buf bytes.Buffer
	if err := f.h.svc.Admin.ExportBookings(context.Background(), &buf); err != nil {
		t.Fatalf("ExportBookings() error = %v", err)
	}

	file, err := xlsx.OpenBinary(buf.Bytes())
	if err != nil {
		t.Fatalf("workbook does not open: %v", err)
	}
	sheet, ok := file.Sheet["Bookings"]
	if !ok {
		t.Fatal("missing Bookings sheet")
	}
	if len(sheet.Rows) != 2 {
		t.Fatalf("rows = %d, want header + 1", len(sheet.Rows))
	}
	if got := sheet.Rows[0].Cells[0].String(); got != "ID" {
		t.Errorf("first header = %q", got)
	}
	if got := sheet.Rows[1].Cells[1].String(); got != string(entity.BookingStatusScheduled) {
		t.Errorf("status cell = %q", got)
	}
	if got := sheet.Rows[1].Cells[4].String(); got != "Cody" {
		t.Errorf("user cell = %q", got)
	}
}
