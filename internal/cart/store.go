package cart

import (
	"context"

	"github.com/tecnolua/ClubePharma/internal/catalog"
)

type Store interface {
	InTx(ctx context.Context, fn func(Tx) error) error
	Items(ctx context.Context, userID string) ([]Item, error)
	Clear(ctx context.Context, userID string) error
}

// Tx locks the rows a cart mutation reads so concurrent adds to the same
// line merge instead of overwriting each other.
type Tx interface {
	Product(ctx context.Context, productID string) (catalog.Product, error)
	LockLine(ctx context.Context, userID, productID string) (Item, bool, error)
	LockItem(ctx context.Context, itemID string) (Item, error)
	Save(ctx context.Context, it Item) error
	Delete(ctx context.Context, itemID string) error
}
