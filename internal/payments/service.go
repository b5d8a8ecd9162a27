package payments

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/tecnolua/ClubePharma/internal/apperr"
	"github.com/tecnolua/ClubePharma/internal/logger"
	"github.com/tecnolua/ClubePharma/internal/orders"
)

// PreferenceTTL is how long a hosted checkout stays payable.
const PreferenceTTL = 24 * time.Hour

type Service struct {
	store   Store
	gateway Gateway
	tracer  trace.Tracer
	now     func() time.Time
}

func NewService(store Store, gateway Gateway) *Service {
	return &Service{
		store:   store,
		gateway: gateway,
		tracer:  otel.Tracer("clubepharma/payments"),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Create opens a hosted payment session for an order owned by userID and
// records it as a PENDING payment.
func (s *Service) Create(ctx context.Context, orderID, userID string) (Checkout, error) {
	ctx, span := s.tracer.Start(ctx, "payments.Create")
	defer span.End()
	span.SetAttributes(attribute.String("order.id", orderID))

	if orderID == "" {
		return Checkout{}, ErrOrderIDRequired
	}
	o, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return Checkout{}, err
	}
	if o.UserID != userID {
		return Checkout{}, orders.ErrForbidden
	}
	if o.Status == orders.StatusCancelled {
		return Checkout{}, ErrOrderNotPayable
	}
	approved, err := s.store.HasApproved(ctx, o.ID)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "check approved payment")
	}
	if approved {
		return Checkout{}, ErrAlreadyApproved
	}
	payer, err := s.store.GetPayer(ctx, userID)
	if err != nil {
		return Checkout{}, errors.Wrap(err, "load payer")
	}

	now := s.now()
	pref, err := s.gateway.CreatePreference(ctx, PreferenceRequest{
		ExternalReference: o.ID,
		Items:             preferenceItems(o),
		Payer:             payer,
		ExpiresAt:         now.Add(PreferenceTTL),
	})
	if err != nil {
		span.RecordError(err)
		return Checkout{}, apperr.Wrap(err, apperr.KindUpstream, ErrGatewayFailure.Code, ErrGatewayFailure.Message)
	}

	p := Payment{
		ID:           uuid.NewString(),
		OrderID:      o.ID,
		Amount:       o.Total,
		Method:       MethodMercadoPago,
		Status:       StatusPending,
		PreferenceID: pref.ID,
		PaymentLink:  pref.RedirectURL,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.store.Insert(ctx, p); err != nil {
		return Checkout{}, errors.Wrap(err, "insert payment")
	}

	logger.Ctx(ctx).Info().
		Str("order_id", o.ID).
		Str("payment_id", p.ID).
		Str("preference_id", pref.ID).
		Msg("payment preference created")
	return Checkout{PaymentLink: pref.RedirectURL, PreferenceID: pref.ID, Payment: p}, nil
}

// preferenceItems lists the snapshot lines at their catalog price. When the
// order carries a discount the lines would overcharge, so a single line with
// the order total is sent instead.
func preferenceItems(o orders.Order) []PreferenceItem {
	if o.Discount.IsPositive() {
		return []PreferenceItem{{
			ID:        o.ID,
			Title:     fmt.Sprintf("Pedido ClubePharma #%s", shortID(o.ID)),
			Quantity:  1,
			UnitPrice: o.Total,
		}}
	}
	out := make([]PreferenceItem, 0, len(o.Items))
	for _, it := range o.Items {
		out = append(out, PreferenceItem{
			ID:        it.ProductID,
			Title:     it.ProductName,
			Quantity:  it.Quantity,
			UnitPrice: it.Price,
		})
	}
	return out
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// Get returns a payment whose order belongs to userID.
func (s *Service) Get(ctx context.Context, paymentID, userID string) (Payment, error) {
	p, owner, err := s.store.Get(ctx, paymentID)
	if err != nil {
		return Payment{}, err
	}
	if owner != userID {
		return Payment{}, orders.ErrForbidden
	}
	return p, nil
}

func (s *Service) List(ctx context.Context, userID string) ([]Payment, error) {
	list, err := s.store.ListByUser(ctx, userID)
	return list, errors.Wrap(err, "list payments")
}
