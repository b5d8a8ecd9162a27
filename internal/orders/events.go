package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

const (
	EventOrderCreated       = "OrderCreated"
	EventOrderCancelled     = "OrderCancelled"
	EventOrderStatusChanged = "OrderStatusChanged"
)

// OrderPayload is published for every lifecycle event of an order. It carries
// the full snapshot so consumers never read back from the orders table.
type OrderPayload struct {
	OrderID       string          `json:"order_id"`
	UserID        string          `json:"user_id"`
	Status        Status          `json:"status"`
	PreviousState Status          `json:"previous_status,omitempty"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"payment_method"`
	Items         []Item          `json:"items"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

func payloadOf(o Order, prev Status, at time.Time) OrderPayload {
	return OrderPayload{
		OrderID:       o.ID,
		UserID:        o.UserID,
		Status:        o.Status,
		PreviousState: prev,
		Subtotal:      o.Subtotal,
		Discount:      o.Discount,
		Total:         o.Total,
		PaymentMethod: o.PaymentMethod,
		Items:         o.Items,
		OccurredAt:    at,
	}
}
