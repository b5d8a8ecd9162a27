package coupons

import (
	"time"

	"github.com/shopspring/decimal"
)

type Type string

const (
	TypePercentage Type = "PERCENTAGE"
	TypeFixed      Type = "FIXED"
)

type Coupon struct {
	ID          string           `json:"id"`
	Code        string           `json:"code"`
	Description string           `json:"description"`
	Type        Type             `json:"type"`
	Value       decimal.Decimal  `json:"value"`
	MinPurchase *decimal.Decimal `json:"minPurchase,omitempty"`
	MaxUses     *int             `json:"maxUses,omitempty"`
	UsedCount   int              `json:"usedCount"`
	ValidUntil  *time.Time       `json:"validUntil,omitempty"`
	IsActive    bool             `json:"isActive"`
	CreatedAt   time.Time        `json:"createdAt"`
	UpdatedAt   time.Time        `json:"updatedAt"`
}

// Quote is the outcome of validating a coupon against a cart total.
type Quote struct {
	Coupon         Coupon          `json:"coupon"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	FinalAmount    decimal.Decimal `json:"finalAmount"`
}

// Input carries admin create and update fields. Nil pointers are left
// unchanged on update.
type Input struct {
	Code        *string          `json:"code"`
	Description *string          `json:"description"`
	Type        *Type            `json:"type"`
	Value       *decimal.Decimal `json:"value"`
	MinPurchase *decimal.Decimal `json:"minPurchase"`
	MaxUses     *int             `json:"maxUses"`
	ValidUntil  *time.Time       `json:"validUntil"`
	IsActive    *bool            `json:"isActive"`
}

type ListFilter struct {
	IsActive *bool
	Page     int
	Limit    int
}
