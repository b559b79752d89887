package service

import (
	"errors"

	"github.com/dukerupert/skein/internal/domain"
)

// Ledger errors
var (
	ErrColorStockPerSize    = domain.Errorf(domain.ECONFLICT, "", "Stock for this color is tracked per size")
	ErrProductStockPerColor = domain.Errorf(domain.ECONFLICT, "", "Stock for this product is tracked per color")
	ErrNegativeAmount       = domain.Errorf(domain.EINVALID, "", "Amount must not be negative")
)

// errDuplicatePayment signals that a concurrent checkout recorded an order for
// the same payment first.
var errDuplicatePayment = errors.New("order already recorded for payment")
