package adaptor

import (
	"errors"
	"mime"
	"mime/multipart"
	"net/http"
	"strings"

	"local-services/internal/dto/request"
	"local-services/internal/usecase"
	"local-services/pkg/utils"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

type ServiceHandler struct {
	service   usecase.CatalogService
	maxUpload int64
	log       *zap.Logger
}

func NewServiceHandler(service usecase.CatalogService, maxUploadMB int64, log *zap.Logger) *ServiceHandler {
	if maxUploadMB <= 0 {
		maxUploadMB = 10
	}
	return &ServiceHandler{
		service:   service,
		maxUpload: maxUploadMB << 20,
		log:       log.With(zap.String("handler", "service")),
	}
}

// ListServices handles GET /api/services?category=&lat=&lng=&radius=
func (h *ServiceHandler) ListServices(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()
	req := &request.ListServicesRequest{Category: query.Get("category")}

	fields := make(map[string]string)
	req.Lat = floatField(query.Get("lat"), "lat", fields)
	req.Lng = floatField(query.Get("lng"), "lng", fields)
	req.RadiusKm = floatField(query.Get("radius"), "radius", fields)
	if len(fields) > 0 {
		utils.ResponseBadRequest(w, "Validation failed", fields)
		return
	}

	services, err := h.service.ListServices(r.Context(), req)
	if err != nil {
		handleServiceError(w, h.log, err, "list services")
		return
	}

	utils.ResponseSuccess(w, "success", services)
}

// GetService handles GET /api/services/{id}
func (h *ServiceHandler) GetService(w http.ResponseWriter, r *http.Request) {
	service, err := h.service.GetService(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		handleServiceError(w, h.log, err, "get service")
		return
	}

	utils.ResponseSuccess(w, "Service retrieved successfully", service)
}

// CreateService handles POST /api/services (multipart or JSON)
func (h *ServiceHandler) CreateService(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var (
		req   request.CreateServiceRequest
		image *request.ImageFile
	)
	if isMultipart(r) {
		form, file, ok := h.parseForm(w, r)
		if !ok {
			return
		}
		defer closeFile(file)

		fields := make(map[string]string)
		req = request.CreateServiceRequest{
			Title:       form.Value("title"),
			Category:    form.Value("category"),
			Description: form.Value("description"),
			Price:       floatField(form.Value("price"), "price", fields),
			Lat:         floatField(form.Value("lat"), "lat", fields),
			Lng:         floatField(form.Value("lng"), "lng", fields),
			ProviderID:  form.Value("provider_id"),
		}
		if len(fields) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", fields)
			return
		}
		image = form.image
	} else if !decodeJSON(w, r, &req) {
		return
	}

	service, err := h.service.CreateService(r.Context(), session, &req, image)
	if err != nil {
		handleServiceError(w, h.log, err, "create service")
		return
	}

	utils.ResponseCreated(w, "Service created successfully", service)
}

// UpdateService handles PATCH /api/services/{id} (multipart or JSON)
func (h *ServiceHandler) UpdateService(w http.ResponseWriter, r *http.Request) {
	session, ok := sessionFrom(w, r)
	if !ok {
		return
	}

	var (
		req   request.UpdateServiceRequest
		image *request.ImageFile
	)
	if isMultipart(r) {
		form, file, ok := h.parseForm(w, r)
		if !ok {
			return
		}
		defer closeFile(file)

		fields := make(map[string]string)
		req = request.UpdateServiceRequest{
			Title:       form.Optional("title"),
			Category:    form.Optional("category"),
			Description: form.Optional("description"),
			Price:       floatField(form.Value("price"), "price", fields),
			Lat:         floatField(form.Value("lat"), "lat", fields),
			Lng:         floatField(form.Value("lng"), "lng", fields),
		}
		if len(fields) > 0 {
			utils.ResponseBadRequest(w, "Validation failed", fields)
			return
		}
		image = form.image
	} else if !decodeJSON(w, r, &req) {
		return
	}

	service, err := h.service.UpdateService(r.Context(), session, chi.URLParam(r, "id"), &req, image)
	if err != nil {
		handleServiceError(w, h.log, err, "update service")
		return
	}

	utils.ResponseSuccess(w, "Service updated successfully", service)
}

// DeleteService handles DELETE /api/services/{id}
func (h *ServiceHandler) DeleteService(w http.ResponseWriter, r *http.Request) {
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

// ==================== MULTIPART ====================

type serviceForm struct {
	values map[string][]string
	image  *request.ImageFile
}

func (f *serviceForm) Value(key string) string {
	if v := f.values[key]; len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}

// Optional is nil when the field was not sent at all
func (f *serviceForm) Optional(key string) *string {
	if _, ok := f.values[key]; !ok {
		return nil
	}
	v := f.Value(key)
	return &v
}

func isMultipart(r *http.Request) bool {
	mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
	return err == nil && mediaType == "multipart/form-data"
}

// parseForm reads the multipart body and the optional "image" file part.
// The returned file must be closed by the caller.
func (h *ServiceHandler) parseForm(w http.ResponseWriter, r *http.Request) (*serviceForm, multipart.File, bool) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxUpload)
	if err := r.ParseMultipartForm(h.maxUpload); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			utils.ResponseBadRequest(w, "Upload is too large", nil)
			return nil, nil, false
		}
		utils.ResponseBadRequest(w, "Invalid multipart body", nil)
		return nil, nil, false
	}

	form := &serviceForm{values: r.MultipartForm.Value}

	file, header, err := r.FormFile("image")
	switch {
	case errors.Is(err, http.ErrMissingFile):
		return form, nil, true
	case err != nil:
		h.log.Warn("Unreadable image part", zap.Error(err))
		utils.ResponseBadRequest(w, "Invalid image upload", nil)
		return nil, nil, false
	}

	form.image = &request.ImageFile{File: file, Filename: header.Filename}
	return form, file, true
}

func closeFile(file multipart.File) {
	if file != nil {
		file.Close()
	}
}

// floatField parses an optional number, recording a field error when it is malformed
func floatField(raw, field string, errs map[string]string) *float64 {
	if raw == "" {
		return nil
	}
	v := utils.ParseFloat(raw)
	if v == nil {
		errs[field] = "Must be a number"
	}
	return v
}
