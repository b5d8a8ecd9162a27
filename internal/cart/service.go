package cart

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/logger"
)

type Service struct {
	store  Store
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store) *Service {
	return &Service{
		store:  store,
		tracer: otel.Tracer("clubepharma/cart"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Get(ctx context.Context, userID string) (View, error) {
	items, err := s.store.Items(ctx, userID)
	if err != nil {
		return View{}, errors.Wrap(err, "load cart")
	}
	return Price(items), nil
}

// Add puts qty of a product in the cart, merging with an existing line. The
// stock check is advisory; checkout re-checks under lock.
func (s *Service) Add(ctx context.Context, userID, productID string, qty int) (Item, error) {
	ctx, span := s.tracer.Start(ctx, "cart.Add")
	defer span.End()
	span.SetAttributes(attribute.String("product.id", productID), attribute.Int("quantity", qty))

	productID = strings.TrimSpace(productID)
	if productID == "" {
		return Item{}, ErrProductRequired
	}
	if qty < 1 {
		return Item{}, ErrInvalidQuantity
	}

	var out Item
	err := s.store.InTx(ctx, func(tx Tx) error {
		p, err := tx.Product(ctx, productID)
		if err != nil {
			return err
		}
		if !p.IsActive {
			return ErrProductUnavailable
		}
		if p.Stock < qty {
			return &StockError{Available: p.Stock}
		}
		it, found, err := tx.LockLine(ctx, userID, productID)
		if err != nil {
			return errors.Wrap(err, "lock cart line")
		}
		if found {
			if it.Quantity+qty > p.Stock {
				return &StockError{Available: p.Stock, Merged: true}
			}
			it.Quantity += qty
		} else {
			it = Item{ID: uuid.NewString(), UserID: userID, ProductID: productID, Quantity: qty, CreatedAt: s.now()}
		}
		it.Product = p
		if err := tx.Save(ctx, it); err != nil {
			return errors.Wrap(err, "save cart line")
		}
		out = it
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Item{}, err
	}
	logger.Ctx(ctx).Debug().Str("user_id", userID).Str("product_id", productID).Int("quantity", out.Quantity).Msg("cart line saved")
	return out, nil
}

// Update sets the quantity of a line owned by userID.
func (s *Service) Update(ctx context.Context, userID, itemID string, qty int) (Item, error) {
	if qty < 1 {
		return Item{}, ErrInvalidQuantity
	}
	var out Item
	err := s.store.InTx(ctx, func(tx Tx) error {
		it, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.UserID != userID {
			return ErrForbidden
		}
		if qty > it.Product.Stock {
			return &StockError{Available: it.Product.Stock}
		}
		it.Quantity = qty
		if err := tx.Save(ctx, it); err != nil {
			return errors.Wrap(err, "save cart line")
		}
		out = it
		return nil
	})
	return out, err
}

func (s *Service) Remove(ctx context.Context, userID, itemID string) error {
	return s.store.InTx(ctx, func(tx Tx) error {
		it, err := tx.LockItem(ctx, itemID)
		if err != nil {
			return err
		}
		if it.UserID != userID {
			return ErrForbidden
		}
		return errors.Wrap(tx.Delete(ctx, itemID), "delete cart line")
	})
}

func (s *Service) Clear(ctx context.Context, userID string) error {
	return errors.Wrap(s.store.Clear(ctx, userID), "clear cart")
}
