package orders

import (
	"context"
	"time"
)

// Store is the persistence port of the order lifecycle. Repo is the postgres
// implementation.
type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	Get(ctx context.Context, orderID string) (Order, error)
	List(ctx context.Context, f ListFilter) ([]Order, int, error)
	Stats(ctx context.Context, userID string) (Stats, error)
}

// StatusTx is the subset of a transaction needed to move an order between
// states. The payment reconciler shares it.
type StatusTx interface {
	LockOrder(ctx context.Context, orderID string) (Order, error)
	SetStatus(ctx context.Context, orderID string, st Status, at time.Time) error
	RestockItems(ctx context.Context, items []Item) error
}

type Tx interface {
	StatusTx
	// LockCheckoutLines returns the user's cart joined with product rows
	// locked FOR UPDATE until the transaction ends.
	LockCheckoutLines(ctx context.Context, userID string) ([]CheckoutLine, error)
	InsertOrder(ctx context.Context, o Order) error
	// DecrementStock subtracts qty only if enough stock remains. It reports
	// false when the conditional update touched no row.
	DecrementStock(ctx context.Context, productID string, qty int) (bool, error)
	ClearCart(ctx context.Context, userID string) error
	SetPaymentRef(ctx context.Context, orderID, paymentID string) error
}

// Publisher emits domain events after commit. Delivery is best-effort.
type Publisher interface {
	Emit(ctx context.Context, topic, eventType, key string, payload any) error
}

// Transition moves o to `to` inside tx. When the order enters CANCELLED from
// a state whose items are still held, every item quantity is restocked. A
// no-op when o is already in `to`.
func Transition(ctx context.Context, tx StatusTx, o *Order, to Status, at time.Time) (changed bool, err error) {
	if o.Status == to {
		return false, nil
	}
	if err := tx.SetStatus(ctx, o.ID, to, at); err != nil {
		return false, err
	}
	if to == StatusCancelled && o.Status.Cancellable() {
		if err := tx.RestockItems(ctx, o.Items); err != nil {
			return false, err
		}
	}
	o.Status = to
	o.UpdatedAt = at
	return true, nil
}
