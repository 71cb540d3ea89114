package db

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/gartstein/companydir/internal/company/assets"
	rows "github.com/gartstein/companydir/internal/company/db/models"
	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type Repository struct {
	db *gorm.DB
}

type Config struct {
	// Driver is "postgres" (default) or "sqlite".
	Driver   string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string
	// Path is the sqlite database file.
	Path string
}

func NewRepository(cfg *Config) (*Repository, error) {
	var dialector gorm.Dialector
	switch cfg.Driver {
	case "", "postgres":
		dsn := fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
			cfg.Host, cfg.Port, cfg.User, cfg.Password, cfg.DBName, cfg.SSLMode)
		dialector = postgres.Open(dsn)
	case "sqlite":
		dialector = sqlite.Open(cfg.Path)
	default:
		return nil, fmt.Errorf("unsupported database driver %q", cfg.Driver)
	}

	db, err := gorm.Open(dialector, &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	return newRepository(db)
}

func newRepository(db *gorm.DB) (*Repository, error) {
	if err := db.AutoMigrate(&rows.Company{}); err != nil {
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}
	if err := checkAssetColumns(db, assets.All()); err != nil {
		return nil, err
	}
	return &Repository{db: db}, nil
}

// checkAssetColumns fails when a registry slot has no column to live in.
func checkAssetColumns(db *gorm.DB, slots []assets.Slot) error {
	m := db.Migrator()
	for _, s := range slots {
		if !m.HasColumn(&rows.Company{}, s.Column) {
			return fmt.Errorf("asset slot %s has no column %s", s.Name, s.Column)
		}
	}
	return nil
}

func (r *Repository) CreateCompany(ctx context.Context, company *models.Company) error {
	row := rows.FromDomain(company)
	if err := r.db.WithContext(ctx).Create(row).Error; err != nil {
		return storeError(err)
	}
	company.CreatedAt = row.CreatedAt
	company.UpdatedAt = row.UpdatedAt
	company.AvailableCities = []string(row.AvailableCities)
	return nil
}

func (r *Repository) GetCompany(ctx context.Context, id uuid.UUID) (*models.Company, error) {
	var row rows.Company
	result := r.db.WithContext(ctx).First(&row, "id = ?", id)
	if result.Error != nil {
		if errors.Is(result.Error, gorm.ErrRecordNotFound) {
			return nil, e.ErrNotFound
		}
		return nil, storeError(result.Error)
	}
	return row.ToDomain(), nil
}

// UpdateCompany applies the set fields of update to the stored row and
// returns the resulting record.
func (r *Repository) UpdateCompany(ctx context.Context, update *models.CompanyUpdate) (*models.Company, error) {
	var updated *models.Company
	err := r.WithTransaction(ctx, func(repo *Repository) error {
		current, err := repo.GetCompany(ctx, update.ID)
		if err != nil {
			return err
		}
		current.Apply(update)
		current.UpdatedAt = time.Now()

		row := rows.FromDomain(current)
		result := repo.db.WithContext(ctx).Model(&rows.Company{}).
			Where("id = ?", update.ID).
			Select("*").Omit("id", "created_at").
			Updates(row)
		if result.Error != nil {
			return storeError(result.Error)
		}
		if result.RowsAffected == 0 {
			return e.ErrNotFound
		}
		updated = row.ToDomain()
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (r *Repository) DeleteCompany(ctx context.Context, id uuid.UUID) error {
	result := r.db.WithContext(ctx).Delete(&rows.Company{}, "id = ?", id)
	if result.Error != nil {
		return storeError(result.Error)
	}
	if result.RowsAffected == 0 {
		return e.ErrNotFound
	}
	return nil
}

// FindCompanies returns companies matching search, newest first. A limit of
// zero or less returns every match.
func (r *Repository) FindCompanies(ctx context.Context, search string, offset, limit int) ([]*models.Company, error) {
	var found []rows.Company
	q := r.filtered(ctx, search).Order("created_at DESC").Order("id DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&found).Error; err != nil {
		return nil, storeError(err)
	}

	out := make([]*models.Company, len(found))
	for i := range found {
		out[i] = found[i].ToDomain()
	}
	return out, nil
}

// CountCompanies counts companies matching search.
func (r *Repository) CountCompanies(ctx context.Context, search string) (int64, error) {
	var count int64
	if err := r.filtered(ctx, search).Count(&count).Error; err != nil {
		return 0, storeError(err)
	}
	return count, nil
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

func (r *Repository) filtered(ctx context.Context, search string) *gorm.DB {
	q := r.db.WithContext(ctx).Model(&rows.Company{})
	search = strings.TrimSpace(search)
	if search == "" {
		return q
	}
	pattern := "%" + likeEscaper.Replace(strings.ToLower(search)) + "%"
	return q.Where(
		`LOWER(name) LIKE ? ESCAPE '\' OR LOWER(registered_company_name) LIKE ? ESCAPE '\' OR LOWER(description) LIKE ? ESCAPE '\'`,
		pattern, pattern, pattern,
	)
}

func (r *Repository) WithTransaction(ctx context.Context, fn func(repo *Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&Repository{db: tx})
	})
}

// Exec runs a raw statement, for maintenance and test setup.
func (r *Repository) Exec(ctx context.Context, sql string, args ...interface{}) error {
	return r.db.WithContext(ctx).Exec(sql, args...).Error
}

func (r *Repository) Close() error {
	db, err := r.db.DB()
	if err != nil {
		return err
	}
	return db.Close()
}

var sqliteConstraint = regexp.MustCompile(`(CHECK|NOT NULL) constraint failed: (?:companies\.)?(?:chk_companies_)?(\w+)`)

// storeError converts driver errors into the service taxonomy: per-field
// constraint violations become validation errors, everything else is a
// store failure.
func storeError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23514":
			return fieldError(strings.TrimPrefix(pgErr.ConstraintName, "chk_companies_"), "violates constraint "+pgErr.ConstraintName)
		case "23502":
			return fieldError(pgErr.ColumnName, "is required")
		case "22001", "22003", "22P02":
			if pgErr.ColumnName != "" {
				return fieldError(pgErr.ColumnName, pgErr.Message)
			}
		}
	}
	if m := sqliteConstraint.FindStringSubmatch(err.Error()); m != nil {
		reason := "violates constraint"
		if m[1] == "NOT NULL" {
			reason = "is required"
		}
		return fieldError(m[2], reason)
	}
	return fmt.Errorf("%w: %w", e.ErrStore, err)
}

func fieldError(column, reason string) error {
	v := &e.ValidationError{}
	v.Add(attributeName(column), reason)
	return v
}

// attributeName maps a snake_case column to its camelCase record attribute.
func attributeName(column string) string {
	parts := strings.Split(column, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
