// Package assets is the static table of company fields that hold blob store
// references. Create, update and delete all iterate this table, so a new
// file-bearing field needs one entry here and the models.Assets field it
// points at.
package assets

import (
	"strings"

	"github.com/gartstein/companydir/internal/company/models"
)

// Kind restricts the content an asset slot accepts.
type Kind int

const (
	// Image slots accept any image/* content.
	Image Kind = iota
	// Document slots accept PDFs and images.
	Document
)

// Accepts reports whether a sniffed MIME type may be stored in a slot of this kind.
func (k Kind) Accepts(mime string) bool {
	mime = strings.TrimSpace(strings.SplitN(mime, ";", 2)[0])
	switch k {
	case Image:
		return strings.HasPrefix(mime, "image/")
	case Document:
		return mime == "application/pdf" || strings.HasPrefix(mime, "image/")
	default:
		return false
	}
}

func (k Kind) String() string {
	if k == Document {
		return "document"
	}
	return "image"
}

// Slot describes one file-bearing field.
type Slot struct {
	// Name is the record attribute, as rendered in JSON.
	Name string
	// FormKey is the multipart field an upload arrives in.
	FormKey string
	// Column is the record store column.
	Column string
	Kind   Kind
	field  func(*models.Assets) **string
}

// Get returns the reference held in the slot, or "" when absent.
func (s Slot) Get(a *models.Assets) string {
	if p := *s.field(a); p != nil {
		return *p
	}
	return ""
}

// Set stores ref in the slot.
func (s Slot) Set(a *models.Assets, ref string) {
	*s.field(a) = &ref
}

var slots = []Slot{
	{"logo", "logo", "logo", Image, func(a *models.Assets) **string { return &a.Logo }},
	{"bannerImage1", "bannerImage0", "banner_image1", Image, func(a *models.Assets) **string { return &a.BannerImage1 }},
	{"bannerImage2", "bannerImage1", "banner_image2", Image, func(a *models.Assets) **string { return &a.BannerImage2 }},
	{"bannerImage3", "bannerImage2", "banner_image3", Image, func(a *models.Assets) **string { return &a.BannerImage3 }},
	{"bannerImage4", "bannerImage3", "banner_image4", Image, func(a *models.Assets) **string { return &a.BannerImage4 }},
	{"bannerImage5", "bannerImage4", "banner_image5", Image, func(a *models.Assets) **string { return &a.BannerImage5 }},
	{"bannerImage6", "bannerImage5", "banner_image6", Image, func(a *models.Assets) **string { return &a.BannerImage6 }},
	{"bannerImage7", "bannerImage6", "banner_image7", Image, func(a *models.Assets) **string { return &a.BannerImage7 }},
	{"bannerImage8", "bannerImage7", "banner_image8", Image, func(a *models.Assets) **string { return &a.BannerImage8 }},
	{"bannerImage9", "bannerImage8", "banner_image9", Image, func(a *models.Assets) **string { return &a.BannerImage9 }},
	{"bannerImage10", "bannerImage9", "banner_image10", Image, func(a *models.Assets) **string { return &a.BannerImage10 }},
	{"digitalBrochure", "digitalBrochure", "digital_brochure", Document, func(a *models.Assets) **string { return &a.DigitalBrochure }},
	{"testimonialsAttachment", "testimonialsAttachment", "testimonials_attachment", Document, func(a *models.Assets) **string { return &a.TestimonialsAttachment }},
}

// All returns every slot in registry order.
func All() []Slot {
	out := make([]Slot, len(slots))
	copy(out, slots)
	return out
}

// Names returns the attribute names of every slot in registry order.
func Names() []string {
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Name
	}
	return out
}

// ByFormKey looks a slot up by its inbound multipart field name.
func ByFormKey(key string) (Slot, bool) {
	for _, s := range slots {
		if s.FormKey == key {
			return s, true
		}
	}
	return Slot{}, false
}

// Ref is a populated slot of one record.
type Ref struct {
	Slot string
	Ref  string
}

// Populated lists the non-empty references held by a, in registry order.
func Populated(a *models.Assets) []Ref {
	var out []Ref
	for _, s := range slots {
		if ref := s.Get(a); ref != "" {
			out = append(out, Ref{Slot: s.Name, Ref: ref})
		}
	}
	return out
}
