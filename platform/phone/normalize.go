// Package phone normalizes telephone form values to E.164.
package phone

import (
	"errors"
	"strings"

	"github.com/nyaruka/phonenumbers"
)

// DefaultRegion applies to national numbers when no region is configured.
const DefaultRegion = "NL"

// ErrInvalid reports a value that is not a dialable number in any region.
var ErrInvalid = errors.New("not a valid phone number")

// ParseE164 returns value in E.164 form. National numbers are read in region.
// Blank input yields "" and no error.
func ParseE164(value, region string) (string, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", nil
	}
	if region == "" {
		region = DefaultRegion
	}

	num, err := phonenumbers.Parse(value, strings.ToUpper(region))
	if err != nil || !phonenumbers.IsValidNumber(num) {
		return value, ErrInvalid
	}
	return phonenumbers.Format(num, phonenumbers.E164), nil
}
