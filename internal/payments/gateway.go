package payments

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type PreferenceItem struct {
	ID        string
	Title     string
	Quantity  int
	UnitPrice decimal.Decimal
}

type PreferenceRequest struct {
	ExternalReference string
	Items             []PreferenceItem
	Payer             Payer
	ExpiresAt         time.Time
}

// Preference is the hosted payment session created by the gateway.
type Preference struct {
	ID          string
	RedirectURL string
}

// GatewayPayment is the gateway's view of one payment attempt.
type GatewayPayment struct {
	ID                string
	Status            string
	ExternalReference string
}

// Gateway is the payment provider. The service never processes payments
// itself; it stores the session id and reacts to GetPayment results.
type Gateway interface {
	CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error)
	GetPayment(ctx context.Context, gatewayPaymentID string) (GatewayPayment, error)
}

// MapGatewayStatus folds the provider vocabulary into Status. Unknown values
// stay PENDING.
func MapGatewayStatus(s string) Status {
	switch s {
	case "approved":
		return StatusApproved
	case "rejected", "cancelled":
		return StatusRejected
	case "refunded":
		return StatusRefunded
	default:
		return StatusPending
	}
}
