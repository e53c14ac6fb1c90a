// Package phone normalises contact phone numbers with libphonenumber rules.
package phone

import (
	"fmt"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion is used when a number has no country prefix and no region is configured.
const DefaultRegion = "US"

// Details describes a parsed number.
type Details struct {
	Valid         bool   `json:"is_valid"`
	E164          string `json:"e164_format"`
	International string `json:"international_format"`
	National      string `json:"national_format"`
	Region        string `json:"country_code"`
	Mobile        bool   `json:"is_mobile"`
}

// Normalizer turns user-entered numbers into E.164.
type Normalizer struct {
	region string
}

// NewNormalizer creates a normalizer for numbers entered without a country prefix in region.
func NewNormalizer(region string) *Normalizer {
	region = strings.ToUpper(strings.TrimSpace(region))
	if region == "" {
		region = DefaultRegion
	}
	return &Normalizer{region: region}
}

// Region returns the default region of n.
func (n *Normalizer) Region() string { return n.region }

// Parse parses raw and reports its formats.
func (n *Normalizer) Parse(raw string) (*Details, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, fmt.Errorf("phone number cannot be empty")
	}

	parsed, err := phonenumbers.Parse(raw, n.region)
	if err != nil {
		return nil, fmt.Errorf("failed to parse phone number: %w", err)
	}

	kind := phonenumbers.GetNumberType(parsed)
	return &Details{
		Valid:         phonenumbers.IsValidNumber(parsed),
		E164:          phonenumbers.Format(parsed, phonenumbers.E164),
		International: phonenumbers.Format(parsed, phonenumbers.INTERNATIONAL),
		National:      phonenumbers.Format(parsed, phonenumbers.NATIONAL),
		Region:        phonenumbers.GetRegionCodeForNumber(parsed),
		Mobile:        kind == phonenumbers.MOBILE || kind == phonenumbers.FIXED_LINE_OR_MOBILE,
	}, nil
}

// Normalize returns the E.164 form of raw when it is a valid number, and the
// trimmed input otherwise. Contacts keep whatever was typed rather than being
// rejected for an unusual number.
func (n *Normalizer) Normalize(raw string) string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return ""
	}
	d, err := n.Parse(raw)
	if err != nil || !d.Valid {
		return raw
	}
	return d.E164
}
