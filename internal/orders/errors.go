package orders

import (
	"fmt"

	"github.com/tecnolua/ClubePharma/internal/apperr"
)

var (
	ErrEmptyCart             = apperr.New(apperr.KindValidation, "EMPTY_CART", "Cart is empty")
	ErrPaymentMethodRequired = apperr.New(apperr.KindValidation, "PAYMENT_METHOD_REQUIRED", "Payment method is required")
	ErrInvalidStatus         = apperr.New(apperr.KindValidation, "INVALID_STATUS", "Invalid order status")
	ErrOrderNotFound         = apperr.New(apperr.KindNotFound, "ORDER_NOT_FOUND", "Order not found")
	ErrForbidden             = apperr.New(apperr.KindForbidden, "FORBIDDEN", "Access denied")
)

type ProductUnavailableError struct{ Name string }

func (e *ProductUnavailableError) Error() string {
	return fmt.Sprintf("Product %s is not available", e.Name)
}
func (e *ProductUnavailableError) ErrKind() apperr.Kind { return apperr.KindConflict }
func (e *ProductUnavailableError) ErrCode() string { return "PRODUCT_UNAVAILABLE" }

type InsufficientStockError struct {
	Name      string
	Available int
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("Insufficient stock for %s. Available: %d", e.Name, e.Available)
}
func (e *InsufficientStockError) ErrKind() apperr.Kind { return apperr.KindConflict }
func (e *InsufficientStockError) ErrCode() string { return "INSUFFICIENT_STOCK" }

type InvalidTransitionError struct {
	From Status
	To   Status
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("Cannot move order from %s to %s", e.From, e.To)
}
func (e *InvalidTransitionError) ErrKind() apperr.Kind { return apperr.KindConflict }
func (e *InvalidTransitionError) ErrCode() string { return "INVALID_TRANSITION" }
