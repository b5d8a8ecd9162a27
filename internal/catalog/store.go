package catalog

import "context"

type Store interface {
	Get(ctx context.Context, id string) (Product, error)
	List(ctx context.Context, f ListFilter) ([]Product, int, error)
	Categories(ctx context.Context) ([]Category, error)
	Create(ctx context.Context, p Product) error
	// Update writes only the non-nil fields of in, in one statement, so an
	// admin edit never overwrites a concurrent stock decrement it did not set.
	Update(ctx context.Context, id string, in Input) (Product, error)
}
