// Package address validates and normalizes shipping addresses before they
// are written onto an order.
package address

import (
	"context"

	"github.com/dukerupert/skein/internal/domain"
)

// Validator defines the interface for address validation.
// Implementations can use external APIs like USPS, Lob or SmartyStreets.
type Validator interface {
	// Validate returns the normalized address, or a domain validation error
	// whose field names are relative to the address (e.g. "postal_code").
	Validate(ctx context.Context, addr domain.Address) (domain.Address, error)
}
