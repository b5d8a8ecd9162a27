package payments

import (
	"time"

	"github.com/shopspring/decimal"
)

type Status string

const (
	StatusPending  Status = "PENDING"
	StatusApproved Status = "APPROVED"
	StatusRejected Status = "REJECTED"
	StatusRefunded Status = "REFUNDED"
)

const MethodMercadoPago = "MERCADO_PAGO"

type Payment struct {
	ID               string          `json:"id"`
	OrderID          string          `json:"orderId"`
	Amount           decimal.Decimal `json:"amount"`
	Method           string          `json:"method"`
	Status           Status          `json:"status"`
	PreferenceID     string          `json:"preferenceId"`
	GatewayPaymentID *string         `json:"gatewayPaymentId,omitempty"`
	PaymentLink      string          `json:"paymentLink"`
	PaidAt           *time.Time      `json:"paidAt,omitempty"`
	CreatedAt        time.Time       `json:"createdAt"`
	UpdatedAt        time.Time       `json:"updatedAt"`
}

// Payer is the identity shown on the hosted checkout page.
type Payer struct {
	UserID string
	Name   string
	Email  string
}

// Checkout is what the client needs to redirect the customer.
type Checkout struct {
	PaymentLink  string  `json:"paymentLink"`
	PreferenceID string  `json:"preferenceId"`
	Payment      Payment `json:"payment"`
}
