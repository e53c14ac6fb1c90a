package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizer_Normalize(t *testing.T) {
	tests := []struct {
		name   string
		region string
		raw    string
		want   string
	}{
		{"US number with country code", "US", "+1 (202) 456-1111", "+12024561111"},
		{"US number without country code", "US", "(202) 456-1111", "+12024561111"},
		{"UK mobile", "GB", "+44 7911 123456", "+447911123456"},
		{"national number in configured region", "GB", "07911 123456", "+447911123456"},
		{"unparseable input kept", "US", "call reception", "call reception"},
		{"invalid number kept trimmed", "US", " 123 ", "123"},
		{"empty", "US", "   ", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, NewNormalizer(tt.region).Normalize(tt.raw))
		})
	}
}

func TestNormalizer_DefaultRegion(t *testing.T) {
	assert.Equal(t, DefaultRegion, NewNormalizer("").Region())
	assert.Equal(t, "DE", NewNormalizer(" de ").Region())
}

func TestNormalizer_Parse(t *testing.T) {
	d, err := NewNormalizer("US").Parse("+44 20 7930 4832")
	require.NoError(t, err)

	assert.True(t, d.Valid)
	assert.Equal(t, "+442079304832", d.E164)
	assert.Equal(t, "GB", d.Region)
	assert.False(t, d.Mobile)

	_, err = NewNormalizer("US").Parse("")
	assert.Error(t, err)
}
