package orders

import (
	"time"

	"github.com/shopspring/decimal"
)

type Order struct {
	ID            string          `json:"id"`
	UserID        string          `json:"userId"`
	Status        Status          `json:"status"`
	Subtotal      decimal.Decimal `json:"subtotal"`
	Discount      decimal.Decimal `json:"discount"`
	Total         decimal.Decimal `json:"total"`
	PaymentMethod string          `json:"paymentMethod"`
	PaymentID     *string         `json:"paymentId,omitempty"`
	CreatedAt     time.Time       `json:"createdAt"`
	UpdatedAt     time.Time       `json:"updatedAt"`
	Items         []Item          `json:"items"`
}

// Item is the immutable snapshot of a product at checkout time.
type Item struct {
	ID              string          `json:"id"`
	OrderID         string          `json:"orderId"`
	ProductID       string          `json:"productId"`
	ProductName     string          `json:"productName"`
	Quantity        int             `json:"quantity"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount"`
}

// CheckoutLine is a cart line joined with its locked product row.
type CheckoutLine struct {
	CartItemID      string
	ProductID       string
	ProductName     string
	Quantity        int
	Price           decimal.Decimal
	DiscountPercent decimal.Decimal
	Stock           int
	IsActive        bool
}

type ListFilter struct {
	UserID string
	Status Status
	Page   int
	Limit  int
}

func (f ListFilter) Offset() int { return (f.Page - 1) * f.Limit }

// Normalize applies page=1, limit=10 defaults and caps limit at 100.
func (f ListFilter) Normalize() ListFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = 10
	}
	if f.Limit > 100 {
		f.Limit = 100
	}
	return f
}

type StatusStat struct {
	Status Status          `json:"status"`
	Count  int             `json:"count"`
	Total  decimal.Decimal `json:"total"`
}

type Stats struct {
	TotalOrders int             `json:"totalOrders"`
	TotalSpent  decimal.Decimal `json:"totalSpent"`
	ByStatus    []StatusStat    `json:"byStatus"`
}
