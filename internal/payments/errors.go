package payments

import "github.com/tecnolua/ClubePharma/internal/apperr"

var (
	ErrAlreadyApproved = apperr.New(apperr.KindConflict, "PAYMENT_ALREADY_APPROVED", "Order already has an approved payment")
	ErrPaymentNotFound = apperr.New(apperr.KindNotFound, "PAYMENT_NOT_FOUND", "Payment not found")
	ErrOrderNotPayable = apperr.New(apperr.KindConflict, "ORDER_NOT_PAYABLE", "Order can no longer be paid")
	ErrOrderIDRequired = apperr.New(apperr.KindValidation, "ORDER_ID_REQUIRED", "Order ID is required")
	ErrGatewayFailure  = apperr.New(apperr.KindUpstream, "GATEWAY_ERROR", "Payment gateway request failed")
)
