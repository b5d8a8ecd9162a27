package coupons

import "context"

type Store interface {
	FindByCode(ctx context.Context, code string) (Coupon, error)
	Get(ctx context.Context, id string) (Coupon, error)
	List(ctx context.Context, f ListFilter) ([]Coupon, int, error)
	Create(ctx context.Context, c Coupon) error
	Update(ctx context.Context, c Coupon) error
	// IncrementUsage bumps used_count by one in a single conditional update
	// that re-checks active, expiry and limit. ok is false when no row
	// qualified.
	IncrementUsage(ctx context.Context, id string) (c Coupon, ok bool, err error)
}
