package catalog

import (
	"context"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/logger"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

var hundred = decimal.NewFromInt(100)

type Service struct {
	store Store
	now   func() time.Time
}

func NewService(store Store) *Service {
	return &Service{store: store, now: func() time.Time { return time.Now().UTC() }}
}

func (s *Service) Get(ctx context.Context, id string) (Product, error) {
	return s.store.Get(ctx, id)
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Product, int, ListFilter, error) {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	f.Search = strings.TrimSpace(f.Search)
	f.Category = strings.TrimSpace(f.Category)
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, f, errors.Wrap(err, "list products")
	}
	return list, total, f, nil
}

func (s *Service) Categories(ctx context.Context) ([]Category, error) {
	cs, err := s.store.Categories(ctx)
	return cs, errors.Wrap(err, "list categories")
}

func (s *Service) Create(ctx context.Context, in Input) (Product, error) {
	for _, f := range textFields(in) {
		if f.v == nil || strings.TrimSpace(*f.v) == "" {
			return Product{}, &InvalidError{Field: f.name, Reason: "is required"}
		}
	}
	if in.Price == nil {
		return Product{}, &InvalidError{Field: "price", Reason: "is required"}
	}
	in = trim(in)
	if err := validate(in); err != nil {
		return Product{}, err
	}

	now := s.now()
	p := Product{
		ID:          uuid.NewString(),
		Name:        *in.Name,
		Description: *in.Description,
		Category:    *in.Category,
		SKU:         in.SKU,
		ImageURL:    in.ImageURL,
		Price:       *in.Price,
		IsActive:    true,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if in.DiscountPercent != nil {
		p.DiscountPercent = *in.DiscountPercent
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if err := s.store.Create(ctx, p); err != nil {
		return Product{}, err
	}
	logger.Ctx(ctx).Info().Str("product_id", p.ID).Str("name", p.Name).Msg("product created")
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, in Input) (Product, error) {
	in = trim(in)
	for _, f := range textFields(in) {
		if f.v != nil && *f.v == "" {
			return Product{}, &InvalidError{Field: f.name, Reason: "must not be empty"}
		}
	}
	if err := validate(in); err != nil {
		return Product{}, err
	}
	return s.store.Update(ctx, id, in)
}

// Deactivate hides a product from the storefront. Order items keep
// pointing at it.
func (s *Service) Deactivate(ctx context.Context, id string) (Product, error) {
	off := false
	p, err := s.store.Update(ctx, id, Input{IsActive: &off})
	if err != nil {
		return Product{}, err
	}
	logger.Ctx(ctx).Info().Str("product_id", id).Msg("product deactivated")
	return p, nil
}

type textField struct {
	name string
	v    *string
}

func textFields(in Input) []textField {
	return []textField{{"name", in.Name}, {"description", in.Description}, {"category", in.Category}}
}

func trim(in Input) Input {
	for _, f := range []**string{&in.Name, &in.Description, &in.Category, &in.SKU, &in.ImageURL} {
		if *f != nil {
			v := strings.TrimSpace(**f)
			*f = &v
		}
	}
	if in.SKU != nil && *in.SKU == "" {
		in.SKU = nil
	}
	return in
}

func validate(in Input) error {
	if in.Price != nil && in.Price.IsNegative() {
		return &InvalidError{Field: "price", Reason: "must be a positive number"}
	}
	if d := in.DiscountPercent; d != nil && (d.IsNegative() || d.GreaterThan(hundred)) {
		return &InvalidError{Field: "discount", Reason: "must be between 0 and 100"}
	}
	if in.Stock != nil && *in.Stock < 0 {
		return &InvalidError{Field: "stock", Reason: "must be a positive number"}
	}
	if in.ImageURL != nil {
		u, err := url.ParseRequestURI(*in.ImageURL)
		if err != nil || u.Host == "" {
			return &InvalidError{Field: "imageUrl", Reason: "must be a valid URL"}
		}
	}
	return nil
}
