package sanitizer

import (
	"strings"

	"github.com/nyaruka/phonenumbers"
)

var DefaultRegions = []string{"TH", "US"}

// NormalizePhone converts a phone number to E.164, trying each region in
// order for numbers written without a country code.
func NormalizePhone(phone string, regions ...string) string {
	phone = strings.TrimSpace(phone)

	if phone == "" {
		return ""
	}
	if len(regions) == 0 {
		regions = DefaultRegions
	}

	for _, region := range regions {
		parsedNumber, err := phonenumbers.Parse(phone, region)
		if err == nil {
			return phonenumbers.Format(parsedNumber, phonenumbers.E164)
		}
	}
	return ""
}
