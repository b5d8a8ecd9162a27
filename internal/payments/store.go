package payments

import (
	"context"

	"github.com/tecnolua/ClubePharma/internal/orders"
)

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	GetOrder(ctx context.Context, orderID string) (orders.Order, error)
	GetPayer(ctx context.Context, userID string) (Payer, error)
	HasApproved(ctx context.Context, orderID string) (bool, error)
	Insert(ctx context.Context, p Payment) error
	Get(ctx context.Context, paymentID string) (Payment, string, error) // payment + owner user id
	ListByUser(ctx context.Context, userID string) ([]Payment, error)
}

type Tx interface {
	orders.StatusTx
	// LockPayment resolves the newest payment matching either the order
	// reference or a stored gateway payment id, locked FOR UPDATE.
	LockPayment(ctx context.Context, orderRef, gatewayPaymentID string) (Payment, error)
	UpdatePayment(ctx context.Context, p Payment) error
}

// Deduper remembers notifications that were already applied.
type Deduper interface {
	Seen(ctx context.Context, scope, id string) (bool, error)
	Mark(ctx context.Context, scope, id string) error
}

type Publisher interface {
	Emit(ctx context.Context, topic, eventType, key string, payload any) error
}
