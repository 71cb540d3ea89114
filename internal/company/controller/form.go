package controller

import (
	"errors"
	"net/url"
	"reflect"
	"sort"
	"strings"

	e "github.com/gartstein/companydir/internal/company/errors"
	"github.com/gartstein/companydir/internal/company/models"
	"github.com/go-playground/form/v4"
	"github.com/go-playground/validator/v10"
)

var (
	decoder  = form.NewDecoder()
	validate = newValidator()
)

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("form")
	})
	return v
}

// scalars is the typed form input shared by create and update. A nil
// pointer is a field the form did not carry, or carried blank.
type scalars struct {
	Name       *string `form:"name" validate:"omitnil,min=1"`
	Projects   *int    `form:"projects" validate:"omitnil,gte=0"`
	Experience *int    `form:"experience" validate:"omitnil,gte=0"`
	Branches   *int    `form:"branches" validate:"omitnil,gte=0"`
	Reviews    *int    `form:"reviews" validate:"omitnil,gte=0"`
}

// Values stored without surrounding whitespace.
var trimmed = map[string]bool{
	"name":                  true,
	"projects":              true,
	"experience":            true,
	"branches":              true,
	"reviews":               true,
	"registeredCompanyName": true,
	"nameDisplay":           true,
	"fullName":              true,
	"designation":           true,
}

// normalized copies the form values, trimming the fields that are stored
// trimmed. A numeric left blank decodes to nil.
func normalized(values map[string][]string) url.Values {
	out := make(url.Values, len(values))
	for k, vs := range values {
		if !trimmed[k] {
			out[k] = vs
			continue
		}
		cp := make([]string, len(vs))
		for i, v := range vs {
			cp[i] = strings.TrimSpace(v)
		}
		out[k] = cp
	}
	return out
}

// collect adds every field of a decode failure to verr.
func collect(verr *e.ValidationError, err error, reason string) {
	if err == nil {
		return
	}
	var fieldErrs form.DecodeErrors
	if !errors.As(err, &fieldErrs) {
		verr.Add("form", err.Error())
		return
	}
	fields := make([]string, 0, len(fieldErrs))
	for f := range fieldErrs {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		verr.Add(f, reason)
	}
}

// decodeScalars parses and validates the required scalar fields. On create
// name, projects, experience and branches must be present; on update every
// field is optional and a blank numeric leaves the stored value unchanged.
// Every offending field is reported in one error.
func decodeScalars(f *models.CompanyForm, create bool) (*scalars, *e.ValidationError) {
	verr := &e.ValidationError{}
	in := &scalars{}
	collect(verr, decoder.Decode(in, normalized(f.Values)), "must be a number")

	if create {
		required := []struct {
			key string
			set bool
		}{
			{"name", in.Name != nil},
			{"projects", in.Projects != nil},
			{"experience", in.Experience != nil},
			{"branches", in.Branches != nil},
		}
		for _, r := range required {
			if !r.set {
				verr.Add(r.key, "is required")
			}
		}
	}

	if err := validate.Struct(in); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			verr.Add("form", err.Error())
		}
		for _, fe := range fieldErrs {
			verr.Add(fe.Field(), reason(fe))
		}
	}

	if !verr.Empty() {
		return nil, verr
	}
	return in, nil
}

func reason(fe validator.FieldError) string {
	switch fe.Tag() {
	case "min":
		return "must not be empty"
	case "gte":
		return "must be zero or greater"
	default:
		return "is invalid"
	}
}

// decodeProfile collects the optional descriptive fields the form carries.
// Absent fields stay nil; a field sent empty is kept as "".
func decodeProfile(f *models.CompanyForm) (models.Profile, *e.ValidationError) {
	var p models.Profile
	verr := &e.ValidationError{}
	collect(verr, decoder.Decode(&p, normalized(f.Values)), "is invalid")
	if !verr.Empty() {
		return models.Profile{}, verr
	}
	return p, nil
}

// decodeCities normalises availableCities. It accepts a single value,
// repeated values, or one comma-separated value. The second result reports
// whether the form carried the field at all.
func decodeCities(f *models.CompanyForm) ([]string, bool) {
	vals, ok := f.Values["availableCities"]
	if !ok {
		vals, ok = f.Values["availableCities[]"]
	}
	if !ok {
		return nil, false
	}
	if len(vals) == 1 {
		vals = strings.Split(vals[0], ",")
	}
	cities := make([]string, 0, len(vals))
	for _, c := range vals {
		if c = strings.TrimSpace(c); c != "" {
			cities = append(cities, c)
		}
	}
	return cities, true
}
