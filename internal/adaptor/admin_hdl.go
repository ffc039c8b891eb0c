package adaptor

import (
	"bytes"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type AdminHandler struct {
	service usecase.AdminService
	log     *zap.Logger
}

func NewAdminHandler(service usecase.AdminService, log *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		log:     log.With(zap.String("handler", "admin")),
	}
}

// ListUsers handles GET /api/admin/users?page=1&per_page=20
func (h *AdminHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.service.ListUsers(r.Context(), pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list users")
		return
	}

	utils.ResponseSuccess(w, "success", users)
}

// ListServices handles GET /api/admin/services
func (h *AdminHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	services, err := h.service.ListServices(r.Context(), pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list services")
		return
	}

	utils.ResponseSuccess(w, "success", services)
}

// ListBookings handles GET /api/admin/bookings
func (h *AdminHandler) ListBookings(w http.ResponseWriter, r *http.Request) {
	bookings, err := h.service.ListBookings(r.Context(), pageFrom(r))
	if err != nil {
		handleServiceError(w, h.log, err, "list bookings")
		return
	}

	utils.ResponseSuccess(w, "success", bookings)
}

// GetUser handles GET /api/admin/users/{id}
func (h *AdminHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get user")
		return
	}

	utils.ResponseSuccess(w, "success", user)
}

// DeleteUser handles DELETE /api/admin/users/{id}
func (h *AdminHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	if err := h.service.DeleteUser(r.Context(), chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete user")
		return
	}

	utils.ResponseSuccess(w, "User deleted successfully", nil)
}

// DeleteService handles DELETE /api/admin/service/{id}
func (h *AdminHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	if err := h.service.DeleteService(r.Context(), session, chi.URLParam(r, "id")); err != nil {
		handleServiceError(w, h.log, err, "delete service")
		return
	}

	utils.ResponseSuccess(w, "Service deleted successfully", nil)
}

// ExportBookings handles GET /api/admin/bookings/export. The workbook is
// built in memory first so a failure can still be reported as JSON.
func (h *AdminHandler) ExportBookings(w http.ResponseWriter, r *http.Request) {
	var buf bytes.Buffer
	if err := h.service.ExportBookings(r.Context(), &buf); err != nil {
		handleServiceError(w, h.log, err, "export bookings")
		return
	}

	filename := fmt.Sprintf("bookings-%s.xlsx", time.Now().UTC().Format("20060102"))
	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)

	if _, err := buf.WriteTo(w); err != nil {
		h.log.Warn("Failed to stream bookings export", zap.Error(err))
	}
}

func pageFrom(r *http.Request) *request.PaginatedRequest {
	query := r.URL.Query()
	return &request.PaginatedRequest{
		Page:    utils.ParseInt(query.Get("page"), 1),
		PerPage: utils.ParseInt(query.Get("per_page"), 0),
	}
}
