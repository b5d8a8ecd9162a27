package coupons

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/metrics"
	"github.com/tecnolua/ClubePharma/internal/money"
)

const (
	minCodeLen = 3
	maxCodeLen = 20

	defaultPageSize = 20
	maxPageSize     = 100
)

var codePattern = regexp.MustCompile(`^[A-Z0-9]+$`)

type Service struct {
	store  Store
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		tracer: otel.Tracer("clubepharma/coupons"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// NormalizeCode is the canonical form codes are stored and looked up in.
func NormalizeCode(code string) string {
	return strings.ToUpper(strings.TrimSpace(code))
}

// check applies the eligibility rules in order. The first failure wins.
func check(c Coupon, total decimal.Decimal, now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrInactive
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return ErrExpired
	case c.MinPurchase != nil && total.LessThan(*c.MinPurchase):
		return &BelowMinimumError{Min: *c.MinPurchase}
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return ErrUsageLimitReached
	}
	return nil
}

// Discount computes what c takes off total. FIXED never exceeds the total.
func Discount(c Coupon, total decimal.Decimal) decimal.Decimal {
	if c.Type == TypePercentage {
		return money.Percent(total, c.Value)
	}
	return money.Round2(money.Clamp(c.Value, total))
}

// usable is check without the purchase minimum, for redemptions that carry no
// total.
func usable(c Coupon, now time.Time) error {
	switch {
	case !c.IsActive:
		return ErrInactive
	case c.ValidUntil != nil && now.After(*c.ValidUntil):
		return ErrExpired
	case c.MaxUses != nil && c.UsedCount >= *c.MaxUses:
		return ErrUsageLimitReached
	}
	return nil
}

func quote(c Coupon, total decimal.Decimal) Quote {
	d := Discount(c, total)
	return Quote{Coupon: c, DiscountAmount: d, FinalAmount: money.Round2(total.Sub(d))}
}

// Validate is a read-only check. It never consumes a use.
func (s *Service) Validate(ctx context.Context, code string, total decimal.Decimal) (Quote, error) {
	ctx, span := s.tracer.Start(ctx, "coupons.Validate")
	defer span.End()

	code = NormalizeCode(code)
	span.SetAttributes(attribute.String("coupon.code", code))
	c, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return Quote{}, err
	}
	if err := check(c, total, s.now()); err != nil {
		return Quote{}, err
	}
	return quote(c, total), nil
}

// Apply consumes one use of the coupon. The purchase minimum was enforced by
// Validate and is not re-checked. Concurrent applies of a coupon with one use
// left produce exactly one success.
func (s *Service) Apply(ctx context.Context, code string) (Coupon, error) {
	ctx, span := s.tracer.Start(ctx, "coupons.Apply")
	defer span.End()

	code = NormalizeCode(code)
	span.SetAttributes(attribute.String("coupon.code", code))
	c, err := s.store.FindByCode(ctx, code)
	if err != nil {
		return Coupon{}, err
	}
	now := s.now()
	if err := usable(c, now); err != nil {
		return Coupon{}, err
	}

	updated, ok, err := s.store.IncrementUsage(ctx, c.ID)
	if err != nil {
		span.RecordError(err)
		return Coupon{}, errors.Wrap(err, "increment coupon usage")
	}
	if !ok {
		// Lost a race or the coupon changed between read and write.
		fresh, err := s.store.Get(ctx, c.ID)
		if err != nil {
			return Coupon{}, err
		}
		if err := usable(fresh, now); err != nil {
			return Coupon{}, err
		}
		return Coupon{}, ErrUsageLimitReached
	}

	metrics.CouponRedemptions.Inc()
	logger.Ctx(ctx).Info().
		Str("coupon", updated.Code).
		Int("used", updated.UsedCount).
		Msg("coupon applied")
	return updated, nil
}

func (s *Service) Get(ctx context.Context, id string) (Coupon, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Coupon, int, ListFilter, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, f, errors.Wrap(err, "list coupons")
	}
	return list, total, f, nil
}

func (s *Service) Create(ctx context.Context, in Input) (Coupon, error) {
	if in.Code == nil {
		return Coupon{}, &InvalidError{Field: "code", Reason: "is required"}
	}
	if in.Type == nil {
		return Coupon{}, &InvalidError{Field: "type", Reason: "is required"}
	}
	if in.Value == nil {
		return Coupon{}, &InvalidError{Field: "value", Reason: "is required"}
	}
	now := s.now()
	c := Coupon{ID: uuid.NewString(), IsActive: true, CreatedAt: now, UpdatedAt: now}
	if err := apply(&c, in); err != nil {
		return Coupon{}, err
	}
	if err := s.store.Create(ctx, c); err != nil {
		return Coupon{}, err
	}
	logger.Ctx(ctx).Info().Str("coupon", c.Code).Str("type", string(c.Type)).Msg("coupon created")
	return c, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Coupon, error) {
	c, err := s.store.Get(ctx, id)
	if err != nil {
		return Coupon{}, err
	}
	if err := apply(&c, in); err != nil {
		return Coupon{}, err
	}
	c.UpdatedAt = s.now()
	if err := s.store.Update(ctx, c); err != nil {
		return Coupon{}, err
	}
	return c, nil
}

// Deactivate is the soft delete: the row stays for order history.
func (s *Service) Deactivate(ctx context.Context, id string) (Coupon, error) {
	off := false
	return s.Update(ctx, id, Input{IsActive: &off})
}

// apply validates in and copies the set fields onto c.
func apply(c *Coupon, in Input) error {
	if in.Code != nil {
		code := NormalizeCode(*in.Code)
		if n := len(code); n < minCodeLen || n > maxCodeLen {
			return &InvalidError{Field: "code", Reason: "must be between 3 and 20 characters"}
		}
		if !codePattern.MatchString(code) {
			return &InvalidError{Field: "code", Reason: "must contain only letters and numbers"}
		}
		c.Code = code
	}
	if in.Type != nil {
		t := Type(strings.ToUpper(string(*in.Type)))
		if t != TypePercentage && t != TypeFixed {
			return &InvalidError{Field: "type", Reason: "must be PERCENTAGE or FIXED"}
		}
		c.Type = t
	}
	if in.Value != nil {
		if in.Value.IsNegative() {
			return &InvalidError{Field: "value", Reason: "must be a positive number"}
		}
		c.Value = *in.Value
	}
	if c.Type == TypePercentage && c.Value.GreaterThan(decimal.NewFromInt(100)) {
		return &InvalidError{Field: "value", Reason: "must not exceed 100 for percentage coupons"}
	}
	if in.MinPurchase != nil {
		if in.MinPurchase.IsNegative() {
			return &InvalidError{Field: "minPurchase", Reason: "must be a positive number"}
		}
		c.MinPurchase = in.MinPurchase
	}
	if in.MaxUses != nil {
		if *in.MaxUses < 1 {
			return &InvalidError{Field: "maxUses", Reason: "must be at least 1"}
		}
		c.MaxUses = in.MaxUses
	}
	if in.ValidUntil != nil {
		c.ValidUntil = in.ValidUntil
	}
	if in.Description != nil {
		c.Description = strings.TrimSpace(*in.Description)
	}
	if in.IsActive != nil {
		c.IsActive = *in.IsActive
	}
	return nil
}
