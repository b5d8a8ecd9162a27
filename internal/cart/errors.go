package cart

import (
	"fmt"

	"github.com/tecnolua/ClubePharma/internal/apperr"
)

var (
	ErrItemNotFound       = apperr.New(apperr.KindNotFound, "CART_ITEM_NOT_FOUND", "Cart item not found")
	ErrForbidden          = apperr.New(apperr.KindForbidden, "FORBIDDEN", "Access denied")
	ErrProductUnavailable = apperr.New(apperr.KindConflict, "PRODUCT_UNAVAILABLE", "Product is not available")
	ErrProductRequired    = apperr.New(apperr.KindValidation, "VALIDATION_FAILED", "Product ID is required")
	ErrInvalidQuantity    = apperr.New(apperr.KindValidation, "VALIDATION_FAILED", "Quantity must be at least 1")
)

// StockError reports a quantity above live stock. Merged is set when the
// limit was hit by adding to an existing line.
type StockError struct {
	Available int
	Merged    bool
}

func (e *StockError) Error() string {
	if e.Merged {
		return fmt.Sprintf("Cannot add more items. Maximum available: %d", e.Available)
	}
	return fmt.Sprintf("Insufficient stock. Only %d available.", e.Available)
}
func (e *StockError) ErrKind() apperr.Kind { return apperr.KindConflict }
func (e *StockError) ErrCode() string { return "INSUFFICIENT_STOCK" }
