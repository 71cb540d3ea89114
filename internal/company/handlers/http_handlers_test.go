package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gartstein/companydir/internal/company/auth"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

// mockController implements CompanyController for testing
type mockController struct {
	listCompanies func(context.Context, models.ListQuery) (*models.CompanyPage, error)
	getCompany    func(context.Context, uuid.UUID) (*models.Company, error)
	createCompany func(context.Context, *models.CompanyForm) (*models.Company, error)
	updateCompany func(context.Context, uuid.UUID, *models.CompanyForm) (*models.Company, error)
	deleteCompany func(context.Context, uuid.UUID) error
}

func (m *mockController) ListCompanies(ctx context.Context, q models.ListQuery) (*models.CompanyPage, error) {
	return m.listCompanies(ctx, q)
}

func (m *mockController) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	return m.getCompany(ctx, id)
}

func (m *mockController) CreateCompany(ctx context.Context, form *models.CompanyForm) (*models.Company, error) {
	return m.createCompany(ctx, form)
}

func (m *mockController) UpdateCompany(ctx context.Context, id uuid.UUID, form *models.CompanyForm) (*models.Company, error) {
	return m.updateCompany(ctx, id, form)
}

func (m *mockController) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	return m.deleteCompany(ctx, id)
}

func newTestMux(t *testing.T, ctrl *mockController) *runtime.ServeMux {
	mux := runtime.NewServeMux()
	require.NoError(t, NewCompanyHandler(ctrl, zaptest.NewLogger(t)).Register(mux))
	return mux
}

type formFile struct {
	field, filename string
	content         []byte
}

func multipartBody(t *testing.T, values url.Values, files ...formFile) (io.Reader, string) {
	var b bytes.Buffer
	mw := multipart.NewWriter(&b)
	for k, vs := range values {
		for _, v := range vs {
			require.NoError(t, mw.WriteField(k, v))
		}
	}
	for _, f := range files {
		w, err := mw.CreateFormFile(f.field, f.filename)
		require.NoError(t, err)
		_, err = w.Write(f.content)
		require.NoError(t, err)
	}
	require.NoError(t, mw.Close())
	return &b, mw.FormDataContentType()
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	var v T
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&v))
	return v
}

func TestCompanyHandler_ListCompanies(t *testing.T) {
	var got models.ListQuery
	ctrl := &mockController{
		listCompanies: func(_ context.Context, q models.ListQuery) (*models.CompanyPage, error) {
			got = q
			return &models.CompanyPage{
				Companies:      []*models.Company{{ID: uuid.New(), Name: "Acme"}},
				TotalPages:     4,
				CurrentPage:    2,
				TotalCompanies: 20,
			}, nil
		},
	}
	mux := newTestMux(t, ctrl)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies?search=ac&page=2&limit=abc&isAdmin=false", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, models.ListQuery{Search: "ac", Page: 2, Limit: 0}, got)
	body := decodeBody[map[string]any](t, rec)
	assert.EqualValues(t, 4, body["totalPages"])
	assert.EqualValues(t, 2, body["currentPage"])
	assert.EqualValues(t, 20, body["totalCompanies"])
	assert.Len(t, body["companies"], 1)
}

func TestCompanyHandler_ListCompanies_StoreFailure(t *testing.T) {
	ctrl := &mockController{
		listCompanies: func(context.Context, models.ListQuery) (*models.CompanyPage, error) {
			return nil, fmt.Errorf("failed to list companies: %w", e.ErrStore)
		},
	}
	rec := httptest.NewRecorder()
	newTestMux(t, ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/companies?isAdmin=true", nil))

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	body := decodeBody[errorResponse](t, rec)
	assert.Contains(t, body.Message, "record store unavailable")
}

func TestCompanyHandler_GetCompany(t *testing.T) {
	known := uuid.New()
	ctrl := &mockController{
		getCompany: func(_ context.Context, id uuid.UUID) (*models.Company, error) {
			if id != known {
				return nil, e.ErrNotFound
			}
			return &models.Company{ID: id, Name: "Acme", AvailableCities: []string{}}, nil
		},
	}
	mux := newTestMux(t, ctrl)

	tests := []struct {
		name       string
		path       string
		wantStatus int
	}{
		{"found", "/api/companies/" + known.String(), http.StatusOK},
		{"legacy route", "/api/companies/getCompany/" + known.String(), http.StatusOK},
		{"not found", "/api/companies/" + uuid.NewString(), http.StatusNotFound},
		{"malformed id", "/api/companies/not-a-uuid", http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, tt.path, nil))
			assert.Equal(t, tt.wantStatus, rec.Code)
			assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
			if tt.wantStatus == http.StatusOK {
				c := decodeBody[models.Company](t, rec)
				assert.Equal(t, known, c.ID)
			}
		})
	}
}

func TestCompanyHandler_CreateCompany(t *testing.T) {
	png := append([]byte("\x89PNG\r\n\x1a\n"), make([]byte, 16)...)

	t.Run("multipart form reaches the service", func(t *testing.T) {
		var form *models.CompanyForm
		var logo []byte
		ctrl := &mockController{
			createCompany: func(_ context.Context, f *models.CompanyForm) (*models.Company, error) {
				form = f
				var err error
				logo, err = io.ReadAll(f.Files["logo"].Body)
				require.NoError(t, err)
				return &models.Company{ID: uuid.New(), Name: f.Get("name")}, nil
			},
		}
		body, contentType := multipartBody(t,
			url.Values{"name": {"Acme"}, "projects": {"3"}, "availableCities": {"Pune", "Goa"}},
			formFile{"logo", "logo.png", png},
		)
		req := httptest.NewRequest(http.MethodPost, "/api/companies", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newTestMux(t, ctrl).ServeHTTP(rec, req)

		require.Equal(t, http.StatusCreated, rec.Code)
		assert.Equal(t, "Acme", form.Get("name"))
		assert.Equal(t, []string{"Pune", "Goa"}, form.Values["availableCities"])
		require.Contains(t, form.Files, "logo")
		assert.Equal(t, "logo.png", form.Files["logo"].Filename)
		assert.EqualValues(t, len(png), form.Files["logo"].Size)
		assert.Equal(t, png, logo)
		assert.Equal(t, "Acme", decodeBody[models.Company](t, rec).Name)
	})

	t.Run("validation errors name every field", func(t *testing.T) {
		ctrl := &mockController{
			createCompany: func(context.Context, *models.CompanyForm) (*models.Company, error) {
				v := &e.ValidationError{}
				v.Add("name", "is required")
				v.Add("projects", "must be a number")
				return nil, v
			},
		}
		req := httptest.NewRequest(http.MethodPost, "/api/companies", strings.NewReader("projects=x"))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()

		newTestMux(t, ctrl).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		body := decodeBody[errorResponse](t, rec)
		assert.Equal(t, map[string]string{"name": "is required", "projects": "must be a number"}, body.Errors)
	})

	t.Run("upload failure is a bad request", func(t *testing.T) {
		ctrl := &mockController{
			createCompany: func(context.Context, *models.CompanyForm) (*models.Company, error) {
				return nil, &e.UploadError{Slot: "logo", Err: fmt.Errorf("bucket unavailable")}
			},
		}
		body, contentType := multipartBody(t, url.Values{"name": {"Acme"}})
		req := httptest.NewRequest(http.MethodPost, "/api/companies", body)
		req.Header.Set("Content-Type", contentType)
		rec := httptest.NewRecorder()

		newTestMux(t, ctrl).ServeHTTP(rec, req)

		require.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Equal(t, map[string]string{"logo": "bucket unavailable"}, decodeBody[errorResponse](t, rec).Errors)
	})

	t.Run("broken multipart body", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/api/companies", strings.NewReader("--nope"))
		req.Header.Set("Content-Type", "multipart/form-data; boundary=xyz")
		rec := httptest.NewRecorder()

		newTestMux(t, &mockController{}).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestCompanyHandler_UpdateCompany(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		path       string
		err        error
		wantStatus int
	}{
		{"updated", "/api/companies/" + id.String(), nil, http.StatusOK},
		{"not found", "/api/companies/" + id.String(), e.ErrNotFound, http.StatusNotFound},
		{"store failure", "/api/companies/" + id.String(), fmt.Errorf("failed to update company: %w", e.ErrStore), http.StatusInternalServerError},
		{"malformed id", "/api/companies/42", nil, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{
				updateCompany: func(_ context.Context, got uuid.UUID, f *models.CompanyForm) (*models.Company, error) {
					assert.Equal(t, id, got)
					assert.Equal(t, "New", f.Get("name"))
					if tt.err != nil {
						return nil, tt.err
					}
					return &models.Company{ID: got, Name: "New"}, nil
				},
			}
			body, contentType := multipartBody(t, url.Values{"name": {"New"}})
			req := httptest.NewRequest(http.MethodPut, tt.path, body)
			req.Header.Set("Content-Type", contentType)
			rec := httptest.NewRecorder()

			newTestMux(t, ctrl).ServeHTTP(rec, req)

			assert.Equal(t, tt.wantStatus, rec.Code)
		})
	}
}

func TestCompanyHandler_DeleteCompany(t *testing.T) {
	id := uuid.New()

	tests := []struct {
		name       string
		err        error
		wantStatus int
	}{
		{"deleted", nil, http.StatusOK},
		{"not found", e.ErrNotFound, http.StatusNotFound},
		{"store failure", fmt.Errorf("failed to delete company: %w", e.ErrStore), http.StatusInternalServerError},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ctrl := &mockController{
				deleteCompany: func(context.Context, uuid.UUID) error { return tt.err },
			}
			rec := httptest.NewRecorder()
			newTestMux(t, ctrl).ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/companies/"+id.String(), nil))

			assert.Equal(t, tt.wantStatus, rec.Code)
			if tt.err == nil {
				assert.Equal(t, "Company deleted successfully", decodeBody[messageResponse](t, rec).Message)
			}
		})
	}
}

func TestCompanyHandler_LogsActingUser(t *testing.T) {
	id := uuid.New()
	ctrl := &mockController{
		deleteCompany: func(context.Context, uuid.UUID) error { return nil },
	}
	core, recorded := observer.New(zap.InfoLevel)
	mux := runtime.NewServeMux()
	require.NoError(t, NewCompanyHandler(ctrl, zap.New(core)).Register(mux))

	token, err := auth.GenerateToken("editor-7", "secret", time.Minute)
	require.NoError(t, err)
	req := httptest.NewRequest(http.MethodDelete, "/api/companies/"+id.String(), nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()

	auth.HTTPMiddleware(mux, "secret").ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	logs := recorded.FilterMessage("Company deleted").All()
	require.Len(t, logs, 1)
	assert.Equal(t, "editor-7", logs[0].ContextMap()["user"])
	assert.Equal(t, id.String(), logs[0].ContextMap()["company_id"])
}
