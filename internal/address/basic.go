package address

import (
	"context"
	"regexp"
	"strings"

	"github.com/dukerupert/skein/internal/domain"
)

var (
	usZIP      = regexp.MustCompile(`^\d{5}(-\d{4})?$`)
	caPostal   = regexp.MustCompile(`^[A-Z]\d[A-Z] ?\d[A-Z]\d$`)
	regionCode = regexp.MustCompile(`^[A-Z]{2}$`)
	whitespace = regexp.MustCompile(`\s+`)
)

// BasicValidator performs format validation without external API calls.
// US and Canadian postal and region codes are checked; other countries
// only get whitespace and case normalization.
type BasicValidator struct{}

// NewBasicValidator creates a new basic address validator.
func NewBasicValidator() *BasicValidator {
	return &BasicValidator{}
}

// Validate normalizes addr and checks the country-specific formats.
func (v *BasicValidator) Validate(ctx context.Context, addr domain.Address) (domain.Address, error) {
	addr.Line1 = collapse(addr.Line1)
	addr.Line2 = collapse(addr.Line2)
	addr.City = collapse(addr.City)
	addr.State = strings.ToUpper(collapse(addr.State))
	addr.PostalCode = strings.ToUpper(collapse(addr.PostalCode))
	addr.Country = strings.ToUpper(strings.TrimSpace(addr.Country))

	fields := map[string]string{}
	switch addr.Country {
	case "US":
		if !regionCode.MatchString(addr.State) {
			fields["state"] = "must be a two-letter state code"
		}
		if !usZIP.MatchString(addr.PostalCode) {
			fields["postal_code"] = "must be a 5-digit ZIP or ZIP+4"
		}
	case "CA":
		if !regionCode.MatchString(addr.State) {
			fields["state"] = "must be a two-letter province code"
		}
		switch {
		case !caPostal.MatchString(addr.PostalCode):
			fields["postal_code"] = "must look like A1A 1A1"
		case len(addr.PostalCode) == 6:
			addr.PostalCode = addr.PostalCode[:3] + " " + addr.PostalCode[3:]
		}
	}
	if addr.Line1 == "" {
		fields["line1"] = "is required"
	}
	if addr.City == "" {
		fields["city"] = "is required"
	}

	if len(fields) > 0 {
		return addr, &domain.ValidationError{Op: "address.validate", Fields: fields}
	}
	return addr, nil
}

func collapse(s string) string {
	return whitespace.ReplaceAllString(strings.TrimSpace(s), " ")
}
