// Package models defines the core domain models for the Company entity.
// It includes definitions for Company, CompanyUpdate, the inbound CompanyForm
// and the paginated listing types.
package models

import (
	"io"
	"reflect"
	"time"

	"github.com/google/uuid"
)

// Profile holds the free-form descriptive attributes of a company.
// A nil field is absent, which is not the same as an empty string.
type Profile struct {
	RegisteredCompanyName     *string `json:"registeredCompanyName,omitempty" form:"registeredCompanyName"`
	NameDisplay               *string `json:"nameDisplay,omitempty" form:"nameDisplay"`
	Description               *string `json:"description,omitempty" form:"description"`
	AgeOfCompany              *string `json:"ageOfCompany,omitempty" form:"ageOfCompany"`
	OfficialWebsite           *string `json:"officialWebsite,omitempty" form:"officialWebsite"`
	FullName                  *string `json:"fullName,omitempty" form:"fullName"`
	Designation               *string `json:"designation,omitempty" form:"designation"`
	PhoneNumber               *string `json:"phoneNumber,omitempty" form:"phoneNumber"`
	MinMaxBudget              *string `json:"minMaxBudget,omitempty" form:"minMaxBudget"`
	Type                      *string `json:"type,omitempty" form:"type"`
	DiscountsOfferTimeline    *string `json:"discountsOfferTimeline,omitempty" form:"discountsOfferTimeline"`
	NumberOfProjectsCompleted *string `json:"numberOfProjectsCompleted,omitempty" form:"numberOfProjectsCompleted"`
	ContactEmail              *string `json:"contactEmail,omitempty" form:"contactEmail"`
	GoogleRating              *string `json:"googleRating,omitempty" form:"googleRating"`
	GoogleReviews             *string `json:"googleReviews,omitempty" form:"googleReviews"`
	GoogleLocation            *string `json:"googleLocation,omitempty" form:"googleLocation"`
	AnyAwardWon               *string `json:"anyAwardWon,omitempty" form:"anyAwardWon"`
	CategoryType              *string `json:"categoryType,omitempty" form:"categoryType"`
	PaymentType               *string `json:"paymentType,omitempty" form:"paymentType"`
	Assured                   *string `json:"assured,omitempty" form:"assured"`
}

// Assets holds the blob store references of a company's files.
// The set of fields is described by the assets registry.
type Assets struct {
	Logo                   *string `json:"logo,omitempty"`
	BannerImage1           *string `json:"bannerImage1,omitempty"`
	BannerImage2           *string `json:"bannerImage2,omitempty"`
	BannerImage3           *string `json:"bannerImage3,omitempty"`
	BannerImage4           *string `json:"bannerImage4,omitempty"`
	BannerImage5           *string `json:"bannerImage5,omitempty"`
	BannerImage6           *string `json:"bannerImage6,omitempty"`
	BannerImage7           *string `json:"bannerImage7,omitempty"`
	BannerImage8           *string `json:"bannerImage8,omitempty"`
	BannerImage9           *string `json:"bannerImage9,omitempty"`
	BannerImage10          *string `json:"bannerImage10,omitempty"`
	DigitalBrochure        *string `json:"digitalBrochure,omitempty"`
	TestimonialsAttachment *string `json:"testimonialsAttachment,omitempty"`
}

// Company defines the domain model for a company entity.
type Company struct {
	// ID is the unique identifier for the company.
	ID uuid.UUID `json:"id"`
	// Name is the company's name, trimmed of surrounding whitespace.
	Name       string `json:"name"`
	Projects   int    `json:"projects"`
	Experience int    `json:"experience"`
	Branches   int    `json:"branches"`
	// Reviews is a counter and starts at zero.
	Reviews int `json:"reviews"`
	Profile
	AvailableCities []string `json:"availableCities"`
	Assets
	// CreatedAt records the timestamp when the company was created.
	CreatedAt time.Time `json:"createdAt"`
	// UpdatedAt records the timestamp of the last write.
	UpdatedAt time.Time `json:"updatedAt"`
}

// CompanyUpdate represents the fields that can be updated for a Company.
// Pointer types are used to allow partial updates.
type CompanyUpdate struct {
	// ID is the unique identifier for the company to update.
	ID         uuid.UUID
	Name       *string
	Projects   *int
	Experience *int
	Branches   *int
	Reviews    *int
	Profile
	// AvailableCities replaces the stored list when non-nil.
	AvailableCities []string
	Assets
}

// Apply merges every field set on the update into c.
func (c *Company) Apply(u *CompanyUpdate) {
	if u.Name != nil {
		c.Name = *u.Name
	}
	if u.Projects != nil {
		c.Projects = *u.Projects
	}
	if u.Experience != nil {
		c.Experience = *u.Experience
	}
	if u.Branches != nil {
		c.Branches = *u.Branches
	}
	if u.Reviews != nil {
		c.Reviews = *u.Reviews
	}
	if u.AvailableCities != nil {
		c.AvailableCities = u.AvailableCities
	}
	mergeSet(reflect.ValueOf(&c.Profile).Elem(), reflect.ValueOf(u.Profile))
	mergeSet(reflect.ValueOf(&c.Assets).Elem(), reflect.ValueOf(u.Assets))
}

// mergeSet copies every non-nil pointer field of src onto dst. Both must be
// values of the same struct type.
func mergeSet(dst, src reflect.Value) {
	for i := 0; i < src.NumField(); i++ {
		f := src.Field(i)
		if f.Kind() == reflect.Pointer && !f.IsNil() {
			dst.Field(i).Set(f)
		}
	}
}

// Upload is one file received for an asset slot.
type Upload struct {
	Filename    string
	ContentType string
	Size        int64
	Body        io.Reader
}

// CompanyForm is the raw create/update input: scalar form values and files,
// both keyed by their inbound form field name.
type CompanyForm struct {
	Values map[string][]string
	Files  map[string]*Upload
}

// Has reports whether the form carries the named scalar field.
func (f *CompanyForm) Has(key string) bool {
	_, ok := f.Values[key]
	return ok
}

// Get returns the first value of the named scalar field.
func (f *CompanyForm) Get(key string) string {
	if v := f.Values[key]; len(v) > 0 {
		return v[0]
	}
	return ""
}

// ListQuery holds the listing parameters.
type ListQuery struct {
	Search string
	Page   int
	Limit  int
	Admin  bool
}

// CompanyPage is one page of a company listing.
type CompanyPage struct {
	Companies      []*Company `json:"companies"`
	TotalPages     int        `json:"totalPages"`
	CurrentPage    int        `json:"currentPage"`
	TotalCompanies int64      `json:"totalCompanies"`
}
