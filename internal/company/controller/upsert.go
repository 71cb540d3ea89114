package controller

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/gartstein/companydir/internal/company/assets"
	"github.com/gartstein/companydir/internal/company/blob"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// CreateCompany validates the form, uploads its files in registry order and
// inserts the company. Nothing is uploaded for an invalid form, and nothing
// is inserted when an upload fails.
func (s *CompanyService) CreateCompany(ctx context.Context, form *models.CompanyForm) (*models.Company, error) {
	in, verr := decodeScalars(form, true)
	if verr != nil {
		return nil, verr
	}
	profile, verr := decodeProfile(form)
	if verr != nil {
		return nil, verr
	}
	pending, err := s.prepareUploads(form)
	if err != nil {
		return nil, err
	}

	cities, _ := decodeCities(form)
	if cities == nil {
		cities = []string{}
	}
	company := &models.Company{
		ID:              uuid.New(),
		Name:            *in.Name,
		Projects:        *in.Projects,
		Experience:      *in.Experience,
		Branches:        *in.Branches,
		Reviews:         utils.Deref(in.Reviews),
		Profile:         profile,
		AvailableCities: cities,
	}

	stored, err := s.upload(ctx, pending, &company.Assets)
	if err != nil {
		s.sweep(ctx, company.ID, stored, "create aborted")
		return nil, err
	}

	if err := s.repo.CreateCompany(ctx, company); err != nil {
		s.sweep(ctx, company.ID, stored, "create aborted")
		var fieldErr *e.ValidationError
		if errors.As(err, &fieldErr) {
			return nil, fieldErr
		}
		return nil, fmt.Errorf("failed to create company: %w", err)
	}

	s.producer.Produce(events.CompanyCreated, company)
	return company, nil
}

// UpdateCompany applies the fields the form carries to an existing company.
// A slot that receives a new file gets a fresh object; the object it
// replaces is deleted while the record is written, and a failure to delete
// it never fails the update.
func (s *CompanyService) UpdateCompany(ctx context.Context, id uuid.UUID, form *models.CompanyForm) (*models.Company, error) {
	existing, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company for update: %w", err)
	}

	in, verr := decodeScalars(form, false)
	if verr != nil {
		return nil, verr
	}
	profile, verr := decodeProfile(form)
	if verr != nil {
		return nil, verr
	}
	pending, err := s.prepareUploads(form)
	if err != nil {
		return nil, err
	}

	update := &models.CompanyUpdate{
		ID:         id,
		Name:       in.Name,
		Projects:   in.Projects,
		Experience: in.Experience,
		Branches:   in.Branches,
		Reviews:    in.Reviews,
		Profile:    profile,
	}
	if cities, ok := decodeCities(form); ok {
		update.AvailableCities = cities
	}

	stored, err := s.upload(ctx, pending, &update.Assets)
	if err != nil {
		s.sweep(ctx, id, stored, "update aborted")
		return nil, err
	}

	var stale []assets.Ref
	for _, p := range pending {
		if old := p.slot.Get(&existing.Assets); old != "" {
			stale = append(stale, assets.Ref{Slot: p.slot.Name, Ref: old})
		}
	}

	done := make(chan struct{})
	go func() {
		defer close(done)
		s.sweep(ctx, id, stale, "superseded by update")
	}()
	updated, err := s.repo.UpdateCompany(ctx, update)
	<-done

	if err != nil {
		s.sweep(ctx, id, stored, "update aborted")
		var fieldErr *e.ValidationError
		switch {
		case errors.Is(err, e.ErrNotFound):
			return nil, err
		case errors.As(err, &fieldErr):
			return nil, fieldErr
		}
		return nil, fmt.Errorf("failed to update company: %w", err)
	}

	s.producer.Produce(events.CompanyUpdated, updated)
	return updated, nil
}

type pendingUpload struct {
	slot     assets.Slot
	filename string
	mime     string
	body     io.Reader
}

// prepareUploads checks the size and content of every file the form carries
// before anything is stored.
func (s *CompanyService) prepareUploads(form *models.CompanyForm) ([]pendingUpload, error) {
	for key := range form.Files {
		if _, ok := assets.ByFormKey(key); !ok {
			s.logger.Debug("Ignoring unknown file field", zap.String("field", key))
		}
	}

	var pending []pendingUpload
	for _, slot := range assets.All() {
		up := form.Files[slot.FormKey]
		if up == nil {
			continue
		}
		if up.Size > s.maxUploadBytes {
			return nil, &e.UploadError{Slot: slot.Name, Err: fmt.Errorf("file exceeds %d bytes", s.maxUploadBytes)}
		}
		mime, body, err := blob.Sniff(up.Body)
		if err != nil {
			return nil, &e.UploadError{Slot: slot.Name, Err: err}
		}
		if !slot.Kind.Accepts(mime) {
			return nil, &e.UploadError{Slot: slot.Name, Err: fmt.Errorf("%s is not an accepted %s type", mime, slot.Kind)}
		}
		pending = append(pending, pendingUpload{slot: slot, filename: up.Filename, mime: mime, body: body})
	}
	return pending, nil
}

// upload stores the pending files in order and writes each reference into
// dst once its upload succeeds. The references stored so far are returned
// on failure too, so the caller can remove them.
func (s *CompanyService) upload(ctx context.Context, pending []pendingUpload, dst *models.Assets) ([]assets.Ref, error) {
	var stored []assets.Ref
	for _, p := range pending {
		ref, err := s.blobs.Put(ctx, blob.NewKey(p.slot.Name, p.filename), p.mime, p.body)
		if err != nil {
			s.logger.Error("Failed to upload asset", zap.Error(err), zap.String("slot", p.slot.Name))
			return stored, &e.UploadError{Slot: p.slot.Name, Err: err}
		}
		p.slot.Set(dst, ref)
		stored = append(stored, assets.Ref{Slot: p.slot.Name, Ref: ref})
	}
	return stored, nil
}
