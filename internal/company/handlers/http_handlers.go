package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gartstein/companydir/internal/company/auth"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"go.uber.org/zap"
)

// defaultMaxMemory is how much of a multipart body is kept in memory
// before spilling to temp files.
const defaultMaxMemory = 32 << 20

// CompanyController defines the business logic interface
// that the HTTP handlers will invoke.
type CompanyController interface {
	ListCompanies(ctx context.Context, q models.ListQuery) (*models.CompanyPage, error)
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	CreateCompany(ctx context.Context, form *models.CompanyForm) (*models.Company, error)
	UpdateCompany(ctx context.Context, id uuid.UUID, form *models.CompanyForm) (*models.Company, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) error
}

// CompanyHandler serves the company REST routes, mapping requests to a
// CompanyController.
type CompanyHandler struct {
	service   CompanyController
	logger    *zap.Logger
	maxMemory int64
}

// NewCompanyHandler constructs a new CompanyHandler with the given service and logger.
func NewCompanyHandler(service CompanyController, logger *zap.Logger) *CompanyHandler {
	return &CompanyHandler{
		service:   service,
		logger:    logger.Named("http_handler"),
		maxMemory: defaultMaxMemory,
	}
}

// errorResponse is the body of every failed request.
type errorResponse struct {
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors,omitempty"`
}

type messageResponse struct {
	Message string `json:"message"`
}

// Register mounts the company routes on mux.
func (h *CompanyHandler) Register(mux *runtime.ServeMux) error {
	routes := []struct {
		method  string
		pattern string
		handler runtime.HandlerFunc
	}{
		{http.MethodGet, "/api/companies", h.ListCompanies},
		{http.MethodPost, "/api/companies", h.CreateCompany},
		{http.MethodGet, "/api/companies/getCompany/{id}", h.GetCompany},
		{http.MethodGet, "/api/companies/{id}", h.GetCompany},
		{http.MethodPut, "/api/companies/{id}", h.UpdateCompany},
		{http.MethodDelete, "/api/companies/{id}", h.DeleteCompany},
	}
	for _, rt := range routes {
		if err := mux.HandlePath(rt.method, rt.pattern, rt.handler); err != nil {
			return fmt.Errorf("failed to register %s %s: %w", rt.method, rt.pattern, err)
		}
	}
	return nil
}

// ListCompanies serves one page of the company listing.
func (h *CompanyHandler) ListCompanies(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	page, err := h.service.ListCompanies(r.Context(), requestToListQuery(r))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, page)
}

// GetCompany fetches a Company by ID, answering 404 if not found.
func (h *CompanyHandler) GetCompany(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	company, err := h.service.GetCompany(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, company)
}

// CreateCompany creates a Company from a multipart form.
func (h *CompanyHandler) CreateCompany(w http.ResponseWriter, r *http.Request, _ map[string]string) {
	form, cleanup, err := requestToForm(r, h.maxMemory)
	defer h.release(cleanup)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	created, err := h.service.CreateCompany(r.Context(), form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.audit(r, "Company created", created.ID)
	h.writeJSON(w, http.StatusCreated, created)
}

// UpdateCompany applies a multipart form to an existing Company.
func (h *CompanyHandler) UpdateCompany(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	form, cleanup, err := requestToForm(r, h.maxMemory)
	defer h.release(cleanup)
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Message: err.Error()})
		return
	}

	updated, err := h.service.UpdateCompany(r.Context(), id, form)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.audit(r, "Company updated", updated.ID)
	h.writeJSON(w, http.StatusOK, updated)
}

// DeleteCompany removes a Company and its files.
func (h *CompanyHandler) DeleteCompany(w http.ResponseWriter, r *http.Request, pathParams map[string]string) {
	id, err := parseID(pathParams)
	if err != nil {
		h.writeError(w, err)
		return
	}
	if err := h.service.DeleteCompany(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	h.audit(r, "Company deleted", id)
	h.writeJSON(w, http.StatusOK, messageResponse{Message: "Company deleted successfully"})
}

// audit logs a completed mutation with the user that made it.
func (h *CompanyHandler) audit(r *http.Request, msg string, id uuid.UUID) {
	h.logger.Info(msg,
		zap.String("company_id", id.String()),
		zap.String("user", auth.Subject(r.Context())),
	)
}

func (h *CompanyHandler) release(cleanup func() error) {
	if err := cleanup(); err != nil {
		h.logger.Warn("Failed to free multipart form resources", zap.Error(err))
	}
}

// mapServiceError converts internal errors to an HTTP status and body.
func (h *CompanyHandler) mapServiceError(err error) (int, errorResponse) {
	var (
		verr *e.ValidationError
		uerr *e.UploadError
	)
	switch {
	case errors.As(err, &verr):
		return http.StatusBadRequest, errorResponse{Message: verr.Error(), Errors: verr.Map()}
	case errors.As(err, &uerr):
		return http.StatusBadRequest, errorResponse{Message: uerr.Error(), Errors: map[string]string{uerr.Slot: uerr.Err.Error()}}
	case errors.Is(err, errInvalidID), errors.Is(err, e.ErrInvalidInput):
		return http.StatusBadRequest, errorResponse{Message: err.Error()}
	case errors.Is(err, e.ErrNotFound):
		return http.StatusNotFound, errorResponse{Message: "Company not found"}
	default:
		h.logger.Error("Request failed", zap.Error(err))
		return http.StatusInternalServerError, errorResponse{Message: err.Error()}
	}
}

func (h *CompanyHandler) writeError(w http.ResponseWriter, err error) {
	status, body := h.mapServiceError(err)
	h.writeJSON(w, status, body)
}

func (h *CompanyHandler) writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("Failed to encode response", zap.Error(err))
	}
}
