package handlers

import (
	"errors"
	"fmt"
	"mime"
	"mime/multipart"
	"net/http"
	"strconv"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"go.uber.org/multierr"
)

var errInvalidID = errors.New("invalid company ID")

// parseID reads the company id path parameter.
func parseID(pathParams map[string]string) (uuid.UUID, error) {
	id, err := uuid.Parse(pathParams["id"])
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: %q", errInvalidID, pathParams["id"])
	}
	return id, nil
}

// requestToListQuery converts listing query parameters. Unparsable page and
// limit values are passed on as zero, which the service treats as absent.
func requestToListQuery(r *http.Request) models.ListQuery {
	q := r.URL.Query()
	page, _ := strconv.Atoi(q.Get("page"))
	limit, _ := strconv.Atoi(q.Get("limit"))
	admin, _ := strconv.ParseBool(q.Get("isAdmin"))
	return models.ListQuery{
		Search: q.Get("search"),
		Page:   page,
		Limit:  limit,
		Admin:  admin,
	}
}

// requestToForm converts a multipart or urlencoded request body into a
// CompanyForm. The returned cleanup closes the opened files and frees the
// multipart temp files; it must be called once the form is consumed.
func requestToForm(r *http.Request, maxMemory int64) (*models.CompanyForm, func() error, error) {
	form := &models.CompanyForm{
		Values: map[string][]string{},
		Files:  map[string]*models.Upload{},
	}
	noop := func() error { return nil }

	mediaType, _, _ := mime.ParseMediaType(r.Header.Get("Content-Type"))
	if mediaType != "multipart/form-data" {
		if err := r.ParseForm(); err != nil {
			return nil, noop, err
		}
		for k, v := range r.PostForm {
			form.Values[k] = v
		}
		return form, noop, nil
	}

	if err := r.ParseMultipartForm(maxMemory); err != nil {
		return nil, noop, err
	}
	for k, v := range r.MultipartForm.Value {
		form.Values[k] = v
	}

	var opened []multipart.File
	cleanup := func() error {
		var err error
		for _, f := range opened {
			err = multierr.Append(err, f.Close())
		}
		return multierr.Append(err, r.MultipartForm.RemoveAll())
	}

	for key, headers := range r.MultipartForm.File {
		if len(headers) == 0 {
			continue
		}
		header := headers[0]
		f, err := header.Open()
		if err != nil {
			return nil, cleanup, fmt.Errorf("failed to open %s: %w", key, err)
		}
		opened = append(opened, f)
		form.Files[key] = &models.Upload{
			Filename:    header.Filename,
			ContentType: header.Header.Get("Content-Type"),
			Size:        header.Size,
			Body:        f,
		}
	}
	return form, cleanup, nil
}
