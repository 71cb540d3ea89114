// Package controller implements the core business logic (service layer)
// for managing Company entities. It keeps the record store and the blob
// store consistent across create, update and delete, and sends the
// relevant events.
package controller

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/gartstein/companydir/internal/company/assets"
	"github.com/gartstein/companydir/internal/company/blob"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/events"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

const (
	// DefaultPageSize is used when a listing asks for no usable limit.
	DefaultPageSize = 6
	// DefaultMaxUploadBytes caps a single uploaded file.
	DefaultMaxUploadBytes = 10 << 20
)

type EventProducer interface {
	Produce(eventType events.EventType, company *models.Company)
	ProduceOrphan(orphan events.OrphanedAsset)
}

// Repository defines the storage interface for Company objects.
type Repository interface {
	CreateCompany(ctx context.Context, company *models.Company) error
	GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error)
	UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error)
	DeleteCompany(ctx context.Context, id uuid.UUID) error
	FindCompanies(ctx context.Context, search string, offset, limit int) ([]*models.Company, error)
	CountCompanies(ctx context.Context, search string) (int64, error)
	Close() error
}

// CompanyService provides methods to manage companies and their files via
// repository, blob store and event producer operations.
type CompanyService struct {
	repo           Repository
	blobs          blob.Store
	producer       EventProducer
	logger         *zap.Logger
	pageSize       int
	maxUploadBytes int64
}

type Option func(*CompanyService)

// WithPageSize sets the listing limit used when a request gives none.
func WithPageSize(n int) Option {
	return func(s *CompanyService) {
		if n > 0 {
			s.pageSize = n
		}
	}
}

// WithMaxUploadBytes caps the size of each uploaded file.
func WithMaxUploadBytes(n int64) Option {
	return func(s *CompanyService) {
		if n > 0 {
			s.maxUploadBytes = n
		}
	}
}

// NewCompanyService constructs a CompanyService with a repository, a blob
// store, an event producer, and a logger.
func NewCompanyService(repo Repository, blobs blob.Store, producer EventProducer, logger *zap.Logger, opts ...Option) *CompanyService {
	s := &CompanyService{
		repo:           repo,
		blobs:          blobs,
		producer:       producer,
		logger:         logger.Named("company_service"),
		pageSize:       DefaultPageSize,
		maxUploadBytes: DefaultMaxUploadBytes,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ListCompanies returns one page of companies, newest first. Admin listings
// return every company on a single page and ignore search and paging.
func (s *CompanyService) ListCompanies(ctx context.Context, q models.ListQuery) (*models.CompanyPage, error) {
	if q.Admin {
		companies, err := s.repo.FindCompanies(ctx, "", 0, 0)
		if err != nil {
			return nil, fmt.Errorf("failed to list companies: %w", err)
		}
		return &models.CompanyPage{
			Companies:      companies,
			TotalPages:     1,
			CurrentPage:    1,
			TotalCompanies: int64(len(companies)),
		}, nil
	}

	page, limit := q.Page, q.Limit
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = s.pageSize
	}

	total, err := s.repo.CountCompanies(ctx, q.Search)
	if err != nil {
		return nil, fmt.Errorf("failed to count companies: %w", err)
	}
	companies, err := s.repo.FindCompanies(ctx, q.Search, (page-1)*limit, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}

	return &models.CompanyPage{
		Companies:      companies,
		TotalPages:     int((total + int64(limit) - 1) / int64(limit)),
		CurrentPage:    page,
		TotalCompanies: total,
	}, nil
}

// GetCompany retrieves a Company by ID, returning an error if not found.
func (s *CompanyService) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get company: %w", err)
	}
	return company, nil
}

// DeleteCompany removes every file the company references, then the
// company itself. File deletion failures are logged and reported as
// orphaned assets; they never fail the request.
func (s *CompanyService) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	company, err := s.repo.GetCompany(ctx, id)
	if err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to get company for deletion: %w", err)
	}

	s.sweep(ctx, id, assets.Populated(&company.Assets), "company deleted")

	if err := s.repo.DeleteCompany(ctx, id); err != nil {
		if errors.Is(err, e.ErrNotFound) {
			return err
		}
		return fmt.Errorf("failed to delete company: %w", err)
	}

	s.producer.Produce(events.CompanyDeleted, company)
	return nil
}

// sweep deletes refs concurrently and waits for all of them. Each failure
// is logged and published as an orphaned asset. The returned error
// aggregates the failures.
func (s *CompanyService) sweep(ctx context.Context, companyID uuid.UUID, refs []assets.Ref, reason string) error {
	if len(refs) == 0 {
		return nil
	}
	ctx = context.WithoutCancel(ctx)

	var (
		wg   sync.WaitGroup
		mu   sync.Mutex
		errs error
	)
	for _, ref := range refs {
		wg.Add(1)
		go func(ref assets.Ref) {
			defer wg.Done()
			err := s.blobs.Delete(ctx, ref.Ref)
			if err == nil {
				return
			}
			if errors.Is(err, blob.ErrNotFound) {
				s.logger.Debug("Asset already gone",
					zap.String("company_id", companyID.String()),
					zap.String("slot", ref.Slot),
					zap.String("ref", ref.Ref),
				)
				return
			}
			s.orphaned(companyID, ref, reason, err)

			mu.Lock()
			errs = multierr.Append(errs, fmt.Errorf("%s: %w", ref.Slot, err))
			mu.Unlock()
		}(ref)
	}
	wg.Wait()

	if errs != nil {
		s.logger.Warn("Asset sweep incomplete",
			zap.String("company_id", companyID.String()),
			zap.Int("failed", len(multierr.Errors(errs))),
			zap.Int("total", len(refs)),
		)
	}
	return errs
}

func (s *CompanyService) orphaned(companyID uuid.UUID, ref assets.Ref, reason string, err error) {
	s.logger.Error("Failed to delete asset",
		zap.Error(err),
		zap.String("company_id", companyID.String()),
		zap.String("slot", ref.Slot),
		zap.String("ref", ref.Ref),
	)
	s.producer.ProduceOrphan(events.OrphanedAsset{
		CompanyID: companyID,
		Slot:      ref.Slot,
		Ref:       ref.Ref,
		Reason:    reason + ": " + err.Error(),
	})
}
