package controller

import (
	"testing"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDecodeCities(t *testing.T) {
	tests := []struct {
		name    string
		values  map[string][]string
		want    []string
		present bool
	}{
		{name: "absent", values: map[string][]string{}, want: nil, present: false},
		{name: "single value", values: map[string][]string{"availableCities": {"Pune"}}, want: []string{"Pune"}, present: true},
		{name: "comma separated", values: map[string][]string{"availableCities": {"Pune, Mumbai,,Goa "}}, want: []string{"Pune", "Mumbai", "Goa"}, present: true},
		{name: "repeated", values: map[string][]string{"availableCities": {"Pune", "", " Delhi"}}, want: []string{"Pune", "Delhi"}, present: true},
		{name: "bracket key", values: map[string][]string{"availableCities[]": {"A", "B"}}, want: []string{"A", "B"}, present: true},
		{name: "blank clears", values: map[string][]string{"availableCities": {""}}, want: []string{}, present: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := decodeCities(&models.CompanyForm{Values: tt.values})
			assert.Equal(t, tt.present, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeProfile(t *testing.T) {
	form := &models.CompanyForm{Values: map[string][]string{
		"registeredCompanyName": {"  Acme Pvt Ltd "},
		"designation":           {" CEO"},
		"officialWebsite":       {" https://acme.example "},
		"googleRating":          {""},
	}}

	p, verr := decodeProfile(form)
	require.Nil(t, verr)

	assert.Equal(t, "Acme Pvt Ltd", utils.Deref(p.RegisteredCompanyName))
	assert.Equal(t, "CEO", utils.Deref(p.Designation))
	assert.Equal(t, " https://acme.example ", utils.Deref(p.OfficialWebsite))
	require.NotNil(t, p.GoogleRating, "an empty value is present, not absent")
	assert.Equal(t, "", *p.GoogleRating)
	assert.Nil(t, p.Description)
	assert.Nil(t, p.Assured)
}

func TestDecodeScalars(t *testing.T) {
	t.Run("update accepts an empty form", func(t *testing.T) {
		in, verr := decodeScalars(&models.CompanyForm{}, false)
		require.Nil(t, verr)
		assert.Nil(t, in.Name)
		assert.Nil(t, in.Projects)
	})

	t.Run("create parses every numeric", func(t *testing.T) {
		in, verr := decodeScalars(validForm(), true)
		require.Nil(t, verr)
		assert.Equal(t, "Acme Interiors", *in.Name)
		assert.Equal(t, 12, *in.Projects)
		assert.Equal(t, 5, *in.Experience)
		assert.Equal(t, 2, *in.Branches)
		assert.Nil(t, in.Reviews)
	})

	t.Run("blank numerics are absent on update", func(t *testing.T) {
		in, verr := decodeScalars(&models.CompanyForm{Values: map[string][]string{
			"projects": {"  "},
			"branches": {" 7 "},
		}}, false)
		require.Nil(t, verr)
		assert.Nil(t, in.Projects)
		require.NotNil(t, in.Branches)
		assert.Equal(t, 7, *in.Branches)
	})

	t.Run("create reports every offending field", func(t *testing.T) {
		_, verr := decodeScalars(&models.CompanyForm{Values: map[string][]string{
			"name":       {"   "},
			"projects":   {"many"},
			"experience": {""},
			"branches":   {"-1"},
			"reviews":    {"1e3"},
		}}, true)
		require.NotNil(t, verr)
		assert.Equal(t, map[string]string{
			"name":       "must not be empty",
			"projects":   "must be a number",
			"experience": "is required",
			"branches":   "must be zero or greater",
			"reviews":    "must be a number",
		}, verr.Map())
	})

	t.Run("fractional numbers are rejected", func(t *testing.T) {
		form := validForm()
		form.Values["experience"] = []string{"2.5"}
		_, verr := decodeScalars(form, true)
		require.NotNil(t, verr)
		assert.Equal(t, map[string]string{"experience": "must be a number"}, verr.Map())
	})
}
