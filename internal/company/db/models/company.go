// Package models contains the persistence models for the application,
// configured to work using GORM as the ORM.
package models

import (
	"time"

	domain "github.com/gartstein/companydir/internal/company/models"
	"github.com/google/uuid"
	"gorm.io/datatypes"
)

// Company represents a company row in the database.
// It uses a UUID as the primary key. Optional strings and asset references
// are nullable columns; there is no soft delete.
type Company struct {
	ID         uuid.UUID `gorm:"type:uuid;primaryKey"`
	Name       string    `gorm:"not null;index"`
	Projects   int       `gorm:"not null;check:projects >= 0"`
	Experience int       `gorm:"not null;check:experience >= 0"`
	Branches   int       `gorm:"not null;check:branches >= 0"`
	Reviews    int       `gorm:"not null;default:0"`

	domain.Profile  `gorm:"embedded"`
	AvailableCities datatypes.JSONSlice[string]
	domain.Assets   `gorm:"embedded"`

	CreatedAt time.Time `gorm:"index"`
	UpdatedAt time.Time
}

// FromDomain converts a domain company into its row.
func FromDomain(c *domain.Company) *Company {
	cities := c.AvailableCities
	if cities == nil {
		cities = []string{}
	}
	return &Company{
		ID:              c.ID,
		Name:            c.Name,
		Projects:        c.Projects,
		Experience:      c.Experience,
		Branches:        c.Branches,
		Reviews:         c.Reviews,
		Profile:         c.Profile,
		AvailableCities: datatypes.JSONSlice[string](cities),
		Assets:          c.Assets,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}

// ToDomain converts the row into a domain company.
func (c *Company) ToDomain() *domain.Company {
	cities := []string(c.AvailableCities)
	if cities == nil {
		cities = []string{}
	}
	return &domain.Company{
		ID:              c.ID,
		Name:            c.Name,
		Projects:        c.Projects,
		Experience:      c.Experience,
		Branches:        c.Branches,
		Reviews:         c.Reviews,
		Profile:         c.Profile,
		AvailableCities: cities,
		Assets:          c.Assets,
		CreatedAt:       c.CreatedAt,
		UpdatedAt:       c.UpdatedAt,
	}
}
