package adaptor

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"local-services/internal/data/entity"
	"local-services/internal/dto/request"
	"local-services/internal/dto/response"
	"local-services/internal/usecase"
	"local-services/pkg/storage"
	"local-services/pkg/utils"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

type envelope struct {
	Status  bool              `json:"status"`
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Errors  map[string]string `json:"errors"`
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("body is not an envelope: %v\n%s", err, rec.Body.String())
	}
	return env
}

func withSession(r *http.Request, role entity.Role) (*http.Request, utils.Session) {
	session := utils.Session{UserID: uuid.New(), Role: role}
	return r.WithContext(utils.SetSession(r.Context(), session)), session
}

func TestHandleServiceError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code int
	}{
		{"field validation", &usecase.ValidationError{Fields: map[string]string{"email": "required"}}, http.StatusBadRequest},
		{"wrapped validation", fmt.Errorf("%w: bad date", usecase.ErrValidation), http.StatusBadRequest},
		{"invalid otp", usecase.ErrInvalidOTP, http.StatusBadRequest},
		{"already verified", usecase.ErrAlreadyVerified, http.StatusBadRequest},
		{"credentials", usecase.ErrInvalidCredentials, http.StatusUnauthorized},
		{"unauthenticated", usecase.ErrUnauthenticated, http.StatusUnauthorized},
		{"unverified", &usecase.UnverifiedAccountError{UserID: uuid.New()}, http.StatusForbidden},
		{"forbidden", usecase.ErrForbidden, http.StatusForbidden},
		{"not found", fmt.Errorf("%w: booking", usecase.ErrNotFound), http.StatusNotFound},
		{"conflict", usecase.ErrConflict, http.StatusConflict},
		{"transition", usecase.ErrInvalidTransition, http.StatusUnprocessableEntity},
		{"rate limited", usecase.ErrTooManyRequests, http.StatusTooManyRequests},
		{"delivery", fmt.Errorf("%w: smtp down", usecase.ErrDelivery), http.StatusBadGateway},
		{"storage disabled", storage.ErrDisabled, http.StatusUnprocessableEntity},
		{"unexpected", errors.New("connection reset"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			handleServiceError(rec, zap.NewNop(), tt.err, "test")

			if rec.Code != tt.code {
				t.Fatalf("status = %d, want %d", rec.Code, tt.code)
			}
			env := decodeEnvelope(t, rec)
			if env.Status {
				t.Error("error response has status true")
			}
		})
	}
}

func TestHandleServiceErrorHidesInternalDetails(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(), errors.New("pq: password authentication failed"), "test")

	if strings.Contains(rec.Body.String(), "password authentication") {
		t.Errorf("internal error leaked: %s", rec.Body.String())
	}
}

func TestHandleServiceErrorValidationFields(t *testing.T) {
	rec := httptest.NewRecorder()
	handleServiceError(rec, zap.NewNop(),
		&usecase.ValidationError{Fields: map[string]string{"radius": "Must be greater than 0"}}, "test")

	env := decodeEnvelope(t, rec)
	if env.Errors["radius"] == "" {
		t.Errorf("errors = %v, want a radius entry", env.Errors)
	}
}

// ==================== AUTH ====================

type stubAuth struct {
	usecase.AuthService
	loginErr error
	login    *request.LoginRequest
}

func (s *stubAuth) Login(ctx context.Context, req *request.LoginRequest) (*response.AuthResponse, error) {
	s.login = req
	if s.loginErr != nil {
		return nil, s.loginErr
	}
	return &response.AuthResponse{Token: "signed"}, nil
}

func TestLoginUnverifiedReturnsUserID(t *testing.T) {
	id := uuid.New()
	auth := &stubAuth{loginErr: &usecase.UnverifiedAccountError{UserID: id}}
	h := NewAuthHandler(auth, zap.NewNop())

	body := strings.NewReader(`{"email":"a@b.co","password":"secret1"}`)
	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", body))

	if rec.Code != http.StatusForbidden {
		t.Fatalf("status = %d, want 403", rec.Code)
	}
	var data response.UnverifiedResponse
	if err := json.Unmarshal(decodeEnvelope(t, rec).Data, &data); err != nil {
		t.Fatal(err)
	}
	if data.UserID != id.String() {
		t.Errorf("user_id = %q, want %q", data.UserID, id)
	}
	if auth.login.Email != "a@b.co" {
		t.Errorf("email = %q", auth.login.Email)
	}
}

func TestMalformedJSON(t *testing.T) {
	h := NewAuthHandler(&stubAuth{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.Login(rec, httptest.NewRequest(http.MethodPost, "/api/auth/login", strings.NewReader(`{"email":`)))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
}

// ==================== SERVICES ====================

type stubCatalog struct {
	usecase.CatalogService
	list      *request.ListServicesRequest
	created   *request.CreateServiceRequest
	updated   *request.UpdateServiceRequest
	imageName string
	imageBody string
	caller    utils.Session
	serviceID string
}

func (s *stubCatalog) ListServices(ctx context.Context, req *request.ListServicesRequest) ([]*response.ServiceResponse, error) {
	s.list = req
	return []*response.ServiceResponse{}, nil
}

func (s *stubCatalog) CreateService(ctx context.Context, caller utils.Session, req *request.CreateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error) {
	s.caller, s.created = caller, req
	s.readImage(image)
	return &response.ServiceResponse{Title: req.Title}, nil
}

func (s *stubCatalog) UpdateService(ctx context.Context, caller utils.Session, serviceID string, req *request.UpdateServiceRequest, image *request.ImageFile) (*response.ServiceResponse, error) {
	s.caller, s.serviceID, s.updated = caller, serviceID, req
	s.readImage(image)
	return &response.ServiceResponse{ID: serviceID}, nil
}

func (s *stubCatalog) readImage(image *request.ImageFile) {
	if image == nil {
		return
	}
	data, _ := io.ReadAll(image.File)
	s.imageName, s.imageBody = image.Filename, string(data)
}

func multipartBody(t *testing.T, fields map[string]string, image string) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatal(err)
		}
	}
	if image != "" {
		part, err := mw.CreateFormFile("image", "plumbing.jpg")
		if err != nil {
			t.Fatal(err)
		}
		part.Write([]byte(image))
	}
	if err := mw.Close(); err != nil {
		t.Fatal(err)
	}
	return &buf, mw.FormDataContentType()
}

func TestListServicesQuery(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ListServices(rec, httptest.NewRequest(http.MethodGet,
		"/api/services?category=Plumbing&lat=-6.2&lng=106.8&radius=5", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	req := catalog.list
	if req.Category != "Plumbing" || req.Lat == nil || *req.Lat != -6.2 || req.Lng == nil || *req.Lng != 106.8 {
		t.Errorf("request = %+v", req)
	}
	if req.RadiusKm == nil || *req.RadiusKm != 5 {
		t.Errorf("radius = %v, want 5", req.RadiusKm)
	}
}

func TestListServicesRejectsMalformedCoordinates(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ListServices(rec, httptest.NewRequest(http.MethodGet, "/api/services?lat=north&lng=106.8", nil))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if decodeEnvelope(t, rec).Errors["lat"] == "" {
		t.Error("missing lat field error")
	}
	if catalog.list != nil {
		t.Error("service was called with a malformed query")
	}
}

func TestListServicesRejectsNonFiniteRadius(t *testing.T) {
	for _, radius := range []string{"NaN", "Inf", "-Inf"} {
		t.Run(radius, func(t *testing.T) {
			catalog := &stubCatalog{}
			h := NewServiceHandler(catalog, 1, zap.NewNop())

			rec := httptest.NewRecorder()
			h.ListServices(rec, httptest.NewRequest(http.MethodGet, "/api/services?lat=0&lng=0&radius="+radius, nil))

			if rec.Code != http.StatusBadRequest {
				t.Fatalf("status = %d, want 400", rec.Code)
			}
			if decodeEnvelope(t, rec).Errors["radius"] == "" {
				t.Error("missing radius field error")
			}
			if catalog.list != nil {
				t.Error("service was called with a non-finite radius")
			}
		})
	}
}

func TestCreateServiceMultipart(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	body, contentType := multipartBody(t, map[string]string{
		"title":    "Leak repair",
		"category": "Plumbing",
		"price":    "25.5",
		"lat":      "-6.2",
		"lng":      "106.8",
	}, "jpeg-bytes")

	r := httptest.NewRequest(http.MethodPost, "/api/services", body)
	r.Header.Set("Content-Type", contentType)
	r, session := withSession(r, entity.RoleProvider)

	rec := httptest.NewRecorder()
	h.CreateService(rec, r)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
	}
	got := catalog.created
	if got.Title != "Leak repair" || got.Category != "Plumbing" || got.Price == nil || *got.Price != 25.5 {
		t.Errorf("request = %+v", got)
	}
	if catalog.imageName != "plumbing.jpg" || catalog.imageBody != "jpeg-bytes" {
		t.Errorf("image = %q %q", catalog.imageName, catalog.imageBody)
	}
	if catalog.caller != session {
		t.Errorf("caller = %+v, want %+v", catalog.caller, session)
	}
}

func TestCreateServiceJSONWithoutImage(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	r := httptest.NewRequest(http.MethodPost, "/api/services",
		strings.NewReader(`{"title":"Haircut","category":"Beauty","price":10}`))
	r.Header.Set("Content-Type", "application/json")
	r, _ = withSession(r, entity.RoleProvider)

	rec := httptest.NewRecorder()
	h.CreateService(rec, r)

	if rec.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201", rec.Code)
	}
	if catalog.created.Title != "Haircut" || catalog.imageName != "" {
		t.Errorf("request = %+v image = %q", catalog.created, catalog.imageName)
	}
}

func TestCreateServiceUploadTooLarge(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	body, contentType := multipartBody(t, map[string]string{"title": "Big"}, strings.Repeat("x", 2<<20))
	r := httptest.NewRequest(http.MethodPost, "/api/services", body)
	r.Header.Set("Content-Type", contentType)
	r, _ = withSession(r, entity.RoleProvider)

	rec := httptest.NewRecorder()
	h.CreateService(rec, r)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", rec.Code)
	}
	if catalog.created != nil {
		t.Error("service was called for an oversized upload")
	}
}

func TestUpdateServiceMultipartKeepsAbsentFields(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	router := chi.NewRouter()
	router.Patch("/api/services/{id}", h.UpdateService)

	body, contentType := multipartBody(t, map[string]string{"title": "New title"}, "")
	r := httptest.NewRequest(http.MethodPatch, "/api/services/abc", body)
	r.Header.Set("Content-Type", contentType)
	r, _ = withSession(r, entity.RoleAdmin)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
	}
	if catalog.serviceID != "abc" {
		t.Errorf("service id = %q, want abc", catalog.serviceID)
	}
	got := catalog.updated
	if got.Title == nil || *got.Title != "New title" {
		t.Errorf("title = %v", got.Title)
	}
	if got.Category != nil || got.Price != nil || got.Lat != nil {
		t.Errorf("absent fields were set: %+v", got)
	}
}

func TestServiceWritesNeedSession(t *testing.T) {
	catalog := &stubCatalog{}
	h := NewServiceHandler(catalog, 1, zap.NewNop())

	rec := httptest.NewRecorder()
	h.CreateService(rec, httptest.NewRequest(http.MethodPost, "/api/services", strings.NewReader(`{}`)))

	if rec.Code != http.StatusUnauthorized {
		t.Fatalf("status = %d, want 401", rec.Code)
	}
}

// ==================== BOOKINGS ====================

type stubBookings struct {
	usecase.BookingService
	caller    utils.Session
	bookingID string
	status    string
	err       error
}

func (s *stubBookings) UpdateStatus(ctx context.Context, caller utils.Session, bookingID string, req *request.UpdateBookingStatusRequest) (*response.BookingResponse, error) {
	s.caller, s.bookingID, s.status = caller, bookingID, req.Status
	if s.err != nil {
		return nil, s.err
	}
	return &response.BookingResponse{ID: bookingID, Status: entity.BookingStatus(req.Status)}, nil
}

func TestUpdateBookingStatusRoute(t *testing.T) {
	bookings := &stubBookings{}
	h := NewBookingHandler(bookings, zap.NewNop())

	router := chi.NewRouter()
	router.Patch("/api/bookings/{id}/status", h.UpdateStatus)

	r := httptest.NewRequest(http.MethodPatch, "/api/bookings/b-1/status", strings.NewReader(`{"status":"in_progress"}`))
	r, session := withSession(r, entity.RoleProvider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if bookings.bookingID != "b-1" || bookings.status != "in_progress" || bookings.caller != session {
		t.Errorf("got id=%q status=%q caller=%+v", bookings.bookingID, bookings.status, bookings.caller)
	}
}

func TestUpdateBookingStatusInvalidTransition(t *testing.T) {
	bookings := &stubBookings{err: usecase.ErrInvalidTransition}
	h := NewBookingHandler(bookings, zap.NewNop())

	router := chi.NewRouter()
	router.Patch("/api/bookings/{id}/status", h.UpdateStatus)

	r := httptest.NewRequest(http.MethodPatch, "/api/bookings/b-1/status", strings.NewReader(`{"status":"scheduled"}`))
	r, _ = withSession(r, entity.RoleProvider)

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, r)

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("status = %d, want 422", rec.Code)
	}
}

// ==================== ADMIN ====================

type stubAdmin struct {
	usecase.AdminService
	page      *request.PaginatedRequest
	exportErr error
}

func (s *stubAdmin) ListUsers(ctx context.Context, req *request.PaginatedRequest) (*response.PaginatedResponse[response.UserResponse], error) {
	s.page = req
	return response.NewPaginatedResponse([]response.UserResponse{}, 1, 0, 0), nil
}

func (s *stubAdmin) ExportBookings(ctx context.Context, w io.Writer) error {
	if s.exportErr != nil {
		return s.exportErr
	}
	_, err := w.Write([]byte("PK-workbook"))
	return err
}

func TestAdminPagination(t *testing.T) {
	tests := []struct {
		query   string
		page    int
		perPage int
	}{
		{"", 1, 0},
		{"?page=3&per_page=20", 3, 20},
		{"?page=zero&per_page=-5", 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			admin := &stubAdmin{}
			h := NewAdminHandler(admin, zap.NewNop())

			rec := httptest.NewRecorder()
			h.ListUsers(rec, httptest.NewRequest(http.MethodGet, "/api/admin/users"+tt.query, nil))

			if rec.Code != http.StatusOK {
				t.Fatalf("status = %d, want 200", rec.Code)
			}
			if admin.page.Page != tt.page || admin.page.PerPage != tt.perPage {
				t.Errorf("page = %+v, want page %d per_page %d", admin.page, tt.page, tt.perPage)
			}
		})
	}
}

func TestExportBookings(t *testing.T) {
	h := NewAdminHandler(&stubAdmin{}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ExportBookings(rec, httptest.NewRequest(http.MethodGet, "/api/admin/bookings/export", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != xlsxContentType {
		t.Errorf("content type = %q", got)
	}
	if got := rec.Header().Get("Content-Disposition"); !strings.HasPrefix(got, `attachment; filename="bookings-`) {
		t.Errorf("content disposition = %q", got)
	}
	if rec.Body.String() != "PK-workbook" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestExportBookingsFailureIsJSON(t *testing.T) {
	h := NewAdminHandler(&stubAdmin{exportErr: errors.New("db down")}, zap.NewNop())

	rec := httptest.NewRecorder()
	h.ExportBookings(rec, httptest.NewRequest(http.MethodGet, "/api/admin/bookings/export", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	if got := rec.Header().Get("Content-Type"); got != "application/json" {
		t.Errorf("content type = %q", got)
	}
}
