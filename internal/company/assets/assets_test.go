package assets

import (
	"encoding/json"
	"fmt"
	"testing"

	"github.com/gartstein/companydir/internal/company/models"
	"github.com/gartstein/companydir/internal/pkg/utils"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNames(t *testing.T) {
	names := Names()
	require.Len(t, names, 13)
	assert.Equal(t, "logo", names[0])
	for i := 1; i <= 10; i++ {
		assert.Equal(t, fmt.Sprintf("bannerImage%d", i), names[i])
	}
	assert.Equal(t, "digitalBrochure", names[11])
	assert.Equal(t, "testimonialsAttachment", names[12])
}

func TestByFormKey_BannerShift(t *testing.T) {
	for i := 0; i < 10; i++ {
		s, ok := ByFormKey(fmt.Sprintf("bannerImage%d", i))
		require.True(t, ok)
		assert.Equal(t, fmt.Sprintf("bannerImage%d", i+1), s.Name)
		assert.Equal(t, fmt.Sprintf("banner_image%d", i+1), s.Column)
	}

	_, ok := ByFormKey("bannerImage10")
	assert.False(t, ok, "bannerImage10 is not an inbound key")

	s, ok := ByFormKey("logo")
	require.True(t, ok)
	assert.Equal(t, "logo", s.Name)
}

// Every slot must point at the models.Assets field whose JSON name matches.
func TestSlotsMatchModelFields(t *testing.T) {
	for _, s := range All() {
		var a models.Assets
		s.Set(&a, "ref-"+s.Name)

		raw, err := json.Marshal(a)
		require.NoError(t, err)

		var got map[string]string
		require.NoError(t, json.Unmarshal(raw, &got))
		assert.Equal(t, map[string]string{s.Name: "ref-" + s.Name}, got)
		assert.Equal(t, "ref-"+s.Name, s.Get(&a))
	}
}

func TestPopulated(t *testing.T) {
	a := &models.Assets{
		Logo:            utils.Ptr("l"),
		BannerImage10:   utils.Ptr("b10"),
		DigitalBrochure: utils.Ptr(""),
	}

	assert.Equal(t, []Ref{
		{Slot: "logo", Ref: "l"},
		{Slot: "bannerImage10", Ref: "b10"},
	}, Populated(a))
	assert.Empty(t, Populated(&models.Assets{}))
}

func TestKind_Accepts(t *testing.T) {
	tests := []struct {
		kind Kind
		mime string
		want bool
	}{
		{Image, "image/png", true},
		{Image, "image/jpeg", true},
		{Image, "application/pdf", false},
		{Image, "text/plain; charset=utf-8", false},
		{Document, "application/pdf", true},
		{Document, "image/webp", true},
		{Document, "application/zip", false},
	}
	for _, tt := range tests {
		t.Run(tt.kind.String()+" "+tt.mime, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.kind.Accepts(tt.mime))
		})
	}
}
