package coupons

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/apperr"
)

var (
	ErrNotFound          = apperr.New(apperr.KindNotFound, "COUPON_NOT_FOUND", "Coupon not found")
	ErrInactive          = apperr.New(apperr.KindConflict, "COUPON_INACTIVE", "Coupon is not active")
	ErrExpired           = apperr.New(apperr.KindConflict, "COUPON_EXPIRED", "Coupon has expired")
	ErrUsageLimitReached = apperr.New(apperr.KindConflict, "COUPON_USAGE_LIMIT", "Coupon has reached maximum usage limit")
	ErrCodeExists        = apperr.New(apperr.KindConflict, "COUPON_CODE_EXISTS", "Coupon code already exists")
)

type BelowMinimumError struct{ Min decimal.Decimal }

func (e *BelowMinimumError) Error() string {
	return fmt.Sprintf("Minimum purchase amount is R$ %s", e.Min.StringFixed(2))
}
func (e *BelowMinimumError) ErrKind() apperr.Kind { return apperr.KindConflict }
func (e *BelowMinimumError) ErrCode() string { return "COUPON_BELOW_MINIMUM" }

// InvalidError reports a malformed admin input field.
type InvalidError struct{ Field, Reason string }

func (e *InvalidError) Error() string { return fmt.Sprintf("%s %s", e.Field, e.Reason) }
func (e *InvalidError) ErrKind() apperr.Kind { return apperr.KindValidation }
func (e *InvalidError) ErrCode() string { return "VALIDATION_FAILED" }
