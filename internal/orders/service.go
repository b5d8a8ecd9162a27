package orders

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/apperr"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/metrics"
	"github.com/tecnolua/ClubePharma/internal/money"
)

type Service struct {
	store  Store
	events Publisher
	tracer trace.Tracer
	now    func() time.Time
}

func NewService(store Store, events Publisher) *Service {
	return &Service{
		store:  store,
		events: events,
		tracer: otel.Tracer("clubepharma/orders"),
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// Checkout converts the user's cart into a PENDING order. Stock decrement,
// order insert and cart clear commit together or not at all.
func (s *Service) Checkout(ctx context.Context, userID, paymentMethod string) (Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Checkout")
	defer span.End()
	span.SetAttributes(attribute.String("user.id", userID))

	method := strings.TrimSpace(paymentMethod)
	if method == "" {
		return Order{}, ErrPaymentMethodRequired
	}

	var order Order
	err := s.store.InTx(ctx, func(tx Tx) error {
		lines, err := tx.LockCheckoutLines(ctx, userID)
		if err != nil {
			return errors.Wrap(err, "lock cart")
		}
		o, err := buildOrder(userID, method, lines, s.now())
		if err != nil {
			return err
		}
		if err := tx.InsertOrder(ctx, o); err != nil {
			return errors.Wrap(err, "insert order")
		}
		for _, l := range lines {
			ok, err := tx.DecrementStock(ctx, l.ProductID, l.Quantity)
			if err != nil {
				return errors.Wrapf(err, "decrement stock %s", l.ProductID)
			}
			if !ok {
				return &InsufficientStockError{Name: l.ProductName, Available: l.Stock}
			}
		}
		if err := tx.ClearCart(ctx, userID); err != nil {
			return errors.Wrap(err, "clear cart")
		}
		order = o
		return nil
	})
	if err != nil {
		reason := apperr.CodeOf(err)
		if reason == "" {
			reason = "internal"
		}
		metrics.CheckoutFailures.WithLabelValues(reason).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, reason)
		return Order{}, err
	}

	metrics.OrdersCreated.Inc()
	span.SetAttributes(attribute.String("order.id", order.ID), attribute.String("order.total", order.Total.StringFixed(2)))
	logger.Ctx(ctx).Info().
		Str("order_id", order.ID).
		Str("user_id", userID).
		Str("total", order.Total.StringFixed(2)).
		Int("items", len(order.Items)).
		Msg("order created")
	s.emit(ctx, TopicOrderCreated, EventOrderCreated, payloadOf(order, "", order.CreatedAt))
	return order, nil
}

// buildOrder validates every line and prices the snapshot. Lines must come
// from locked rows so the stock read here cannot move before commit.
func buildOrder(userID, method string, lines []CheckoutLine, at time.Time) (Order, error) {
	if len(lines) == 0 {
		return Order{}, ErrEmptyCart
	}
	o := Order{
		ID:            uuid.NewString(),
		UserID:        userID,
		Status:        StatusPending,
		PaymentMethod: method,
		CreatedAt:     at,
		UpdatedAt:     at,
		Items:         make([]Item, 0, len(lines)),
	}
	var totals money.Totals
	for _, l := range lines {
		if !l.IsActive {
			return Order{}, &ProductUnavailableError{Name: l.ProductName}
		}
		if l.Stock < l.Quantity {
			return Order{}, &InsufficientStockError{Name: l.ProductName, Available: l.Stock}
		}
		totals.Add(money.PriceLine(l.Price, l.DiscountPercent, l.Quantity))
		o.Items = append(o.Items, Item{
			ID:              uuid.NewString(),
			OrderID:         o.ID,
			ProductID:       l.ProductID,
			ProductName:     l.ProductName,
			Quantity:        l.Quantity,
			Price:           l.Price,
			DiscountPercent: l.DiscountPercent,
		})
	}
	o.Subtotal, o.Discount, o.Total = totals.Subtotal, totals.Discount, totals.Total
	return o, nil
}

// Cancel lets the owner abort an order that has not shipped yet. Status change
// and restock commit together.
func (s *Service) Cancel(ctx context.Context, orderID, requesterID string) (Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.Cancel")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	var (
		out  Order
		prev Status
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.UserID != requesterID {
			return ErrForbidden
		}
		if !CanTransition(o.Status, StatusCancelled) {
			return &InvalidTransitionError{From: o.Status, To: StatusCancelled}
		}
		prev = o.Status
		if _, err := Transition(ctx, tx, &o, StatusCancelled, s.now()); err != nil {
			return errors.Wrap(err, "cancel order")
		}
		out = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Order{}, err
	}

	metrics.OrdersCancelled.WithLabelValues("customer").Inc()
	logger.Ctx(ctx).Info().Str("order_id", out.ID).Str("from", string(prev)).Msg("order cancelled")
	s.emit(ctx, TopicOrderCancelled, EventOrderCancelled, payloadOf(out, prev, out.UpdatedAt))
	return out, nil
}

// UpdateStatus is the administrative override. Any target is accepted except
// leaving CANCELLED, since the stock of a cancelled order is already back.
func (s *Service) UpdateStatus(ctx context.Context, orderID string, to Status, paymentID string) (Order, error) {
	ctx, span := s.tracer.Start(ctx, "orders.UpdateStatus")
	defer span.End()

	if _, ok := validNext[to]; !ok {
		return Order{}, ErrInvalidStatus
	}

	var (
		out     Order
		prev    Status
		changed bool
	)
	err := s.store.InTx(ctx, func(tx Tx) error {
		o, err := tx.LockOrder(ctx, orderID)
		if err != nil {
			return err
		}
		if o.Status == StatusCancelled && to != StatusCancelled {
			return &InvalidTransitionError{From: o.Status, To: to}
		}
		prev = o.Status
		if changed, err = Transition(ctx, tx, &o, to, s.now()); err != nil {
			return errors.Wrap(err, "update status")
		}
		if paymentID != "" {
			if err := tx.SetPaymentRef(ctx, o.ID, paymentID); err != nil {
				return errors.Wrap(err, "set payment ref")
			}
			o.PaymentID = &paymentID
		}
		out = o
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return Order{}, err
	}

	if changed {
		if to == StatusCancelled {
			metrics.OrdersCancelled.WithLabelValues("admin").Inc()
		}
		logger.Ctx(ctx).Info().Str("order_id", out.ID).Str("from", string(prev)).Str("to", string(to)).Msg("order status updated")
		s.emit(ctx, TopicOrderStatusChanged, EventOrderStatusChanged, payloadOf(out, prev, out.UpdatedAt))
	}
	return out, nil
}

// Get returns an order visible to requesterID.
func (s *Service) Get(ctx context.Context, orderID, requesterID string) (Order, error) {
	o, err := s.store.Get(ctx, orderID)
	if err != nil {
		return Order{}, err
	}
	if o.UserID != requesterID {
		return Order{}, ErrForbidden
	}
	return o, nil
}

func (s *Service) List(ctx context.Context, f ListFilter) ([]Order, int, ListFilter, error) {
	f = f.Normalize()
	if f.Status != "" {
		st, ok := ParseStatus(string(f.Status))
		if !ok {
			return nil, 0, f, ErrInvalidStatus
		}
		f.Status = st
	}
	list, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, 0, f, errors.Wrap(err, "list orders")
	}
	return list, total, f, nil
}

func (s *Service) Stats(ctx context.Context, userID string) (Stats, error) {
	st, err := s.store.Stats(ctx, userID)
	return st, errors.Wrap(err, "order stats")
}

func (s *Service) emit(ctx context.Context, topic, eventType string, p OrderPayload) {
	if s.events == nil {
		return
	}
	if err := s.events.Emit(ctx, topic, eventType, PartitionKey(p.OrderID), p); err != nil {
		logger.Ctx(ctx).Warn().Err(err).Str("order_id", p.OrderID).Str("event", eventType).Msg("publish event failed")
	}
}
