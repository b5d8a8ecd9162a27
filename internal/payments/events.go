package payments

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/orders"
)

const (
	TopicPaymentApproved = "clubepharma.payment.approved"
	EventPaymentApproved = "PaymentApproved"
)

// ApprovedPayload drives the confirmation e-mail.
type ApprovedPayload struct {
	PaymentID string          `json:"payment_id"`
	OrderID   string          `json:"order_id"`
	UserID    string          `json:"user_id"`
	Amount    decimal.Decimal `json:"amount"`
	Status    Status          `json:"status"`
	PaidAt    time.Time       `json:"paid_at"`
	Items     []orders.Item   `json:"items"`
}
