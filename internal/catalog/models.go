package catalog

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description"`
	Category        string          `json:"category"`
	SKU             *string         `json:"sku,omitempty"`
	ImageURL        *string         `json:"imageUrl,omitempty"`
	Price           decimal.Decimal `json:"price"`
	DiscountPercent decimal.Decimal `json:"discount"`
	Stock           int             `json:"stock"`
	IsActive        bool            `json:"isActive"`
	CreatedAt       time.Time       `json:"createdAt"`
	UpdatedAt       time.Time       `json:"updatedAt"`
}

// Input is the admin payload. Nil fields are left unchanged on update.
type Input struct {
	Name            *string          `json:"name"`
	Description     *string          `json:"description"`
	Category        *string          `json:"category"`
	SKU             *string          `json:"sku"`
	ImageURL        *string          `json:"imageUrl"`
	Price           *decimal.Decimal `json:"price"`
	DiscountPercent *decimal.Decimal `json:"discount"`
	Stock           *int             `json:"stock"`
	IsActive        *bool            `json:"isActive"`
}

// ListFilter selects products. A nil IsActive lists every product.
type ListFilter struct {
	Category string
	Search   string
	IsActive *bool
	Page     int
	Limit    int
}

type Category struct {
	Name  string `json:"name"`
	Count int    `json:"count"`
}
