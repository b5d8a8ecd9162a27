package cart

import (
	"context"
	"sync"
	"testing"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/catalog"
)

type fakeStore struct {
	mu       sync.Mutex
	products map[string]catalog.Product
	items    map[string]Item
}

func newFakeStore(ps ...catalog.Product) *fakeStore {
	f := &fakeStore{products: map[string]catalog.Product{}, items: map[string]Item{}}
	for _, p := range ps {
		f.products[p.ID] = p
	}
	return f
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	work := make(map[string]Item, len(f.items))
	for k, v := range f.items {
		work[k] = v
	}
	if err := fn(&fakeTx{f: f, items: work}); err != nil {
		return err
	}
	f.items = work
	return nil
}

func (f *fakeStore) Items(ctx context.Context, userID string) ([]Item, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Item
	for _, it := range f.items {
		if it.UserID == userID {
			it.Product = f.products[it.ProductID]
			out = append(out, it)
		}
	}
	return out, nil
}

func (f *fakeStore) Clear(ctx context.Context, userID string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for id, it := range f.items {
		if it.UserID == userID {
			delete(f.items, id)
		}
	}
	return nil
}

type fakeTx struct {
	f     *fakeStore
	items map[string]Item
}

func (t *fakeTx) Product(ctx context.Context, id string) (catalog.Product, error) {
	p, ok := t.f.products[id]
	if !ok {
		return catalog.Product{}, catalog.ErrProductNotFound
	}
	return p, nil
}

func (t *fakeTx) LockLine(ctx context.Context, userID, productID string) (Item, bool, error) {
	for _, it := range t.items {
		if it.UserID == userID && it.ProductID == productID {
			return it, true, nil
		}
	}
	return Item{}, false, nil
}

func (t *fakeTx) LockItem(ctx context.Context, id string) (Item, error) {
	it, ok := t.items[id]
	if !ok {
		return Item{}, ErrItemNotFound
	}
	it.Product = t.f.products[it.ProductID]
	return it, nil
}

func (t *fakeTx) Save(ctx context.Context, it Item) error {
	t.items[it.ID] = it
	return nil
}

func (t *fakeTx) Delete(ctx context.Context, id string) error {
	delete(t.items, id)
	return nil
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func product(id string, stock int) catalog.Product {
	return catalog.Product{ID: id, Name: "Produto " + id, Price: dec("10"), DiscountPercent: dec("10"), Stock: stock, IsActive: true}
}

func TestAddMergesLines(t *testing.T) {
	store := newFakeStore(product("a", 5))
	svc := NewService(store)
	ctx := context.Background()

	first, err := svc.Add(ctx, "u1", "a", 2)
	if err != nil {
		t.Fatal(err)
	}
	second, err := svc.Add(ctx, "u1", "a", 3)
	if err != nil {
		t.Fatal(err)
	}
	if second.ID != first.ID || second.Quantity != 5 {
		t.Fatalf("merged line = %+v", second)
	}
	if len(store.items) != 1 {
		t.Fatalf("lines = %d", len(store.items))
	}

	_, err = svc.Add(ctx, "u1", "a", 1)
	var se *StockError
	if !errors.As(err, &se) || !se.Merged || se.Available != 5 {
		t.Fatalf("err = %v", err)
	}
	if err.Error() != "Cannot add more items. Maximum available: 5" {
		t.Fatalf("message = %q", err.Error())
	}
}

func TestAddFailures(t *testing.T) {
	inactive := product("off", 10)
	inactive.IsActive = false
	cases := []struct {
		name    string
		product string
		qty     int
		want    error
	}{
		{"unknown product", "zzz", 1, catalog.ErrProductNotFound},
		{"inactive", "off", 1, ErrProductUnavailable},
		{"zero quantity", "a", 0, ErrInvalidQuantity},
		{"blank product", " ", 1, ErrProductRequired},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc := NewService(newFakeStore(product("a", 5), inactive))
			if _, err := svc.Add(context.Background(), "u1", tc.product, tc.qty); !errors.Is(err, tc.want) {
				t.Fatalf("err = %v, want %v", err, tc.want)
			}
		})
	}

	t.Run("over stock", func(t *testing.T) {
		svc := NewService(newFakeStore(product("a", 2)))
		_, err := svc.Add(context.Background(), "u1", "a", 3)
		if err == nil || err.Error() != "Insufficient stock. Only 2 available." {
			t.Fatalf("err = %v", err)
		}
	})
}

func TestGetSummary(t *testing.T) {
	b := product("b", 9)
	b.Price, b.DiscountPercent = dec("7.33"), dec("15")
	store := newFakeStore(product("a", 5), b)
	svc := NewService(store)
	ctx := context.Background()
	if _, err := svc.Add(ctx, "u1", "a", 2); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Add(ctx, "u1", "b", 3); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Add(ctx, "u2", "a", 1); err != nil {
		t.Fatal(err)
	}

	v, err := svc.Get(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	// a: 20.00 - 2.00; b: 21.99 - round2(3.2985)=3.30
	s := v.Summary
	if s.ItemCount != 2 || !s.Subtotal.Equal(dec("41.99")) || !s.Discount.Equal(dec("5.30")) || !s.Total.Equal(dec("36.69")) {
		t.Fatalf("summary = %+v", s)
	}
}

func TestUpdateAndRemoveOwnership(t *testing.T) {
	store := newFakeStore(product("a", 4))
	svc := NewService(store)
	ctx := context.Background()
	it, err := svc.Add(ctx, "u1", "a", 1)
	if err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Update(ctx, "u2", it.ID, 2); !errors.Is(err, ErrForbidden) {
		t.Fatalf("update other user: %v", err)
	}
	var se *StockError
	if _, err := svc.Update(ctx, "u1", it.ID, 5); !errors.As(err, &se) || se.Merged {
		t.Fatalf("update over stock: %v", err)
	}
	up, err := svc.Update(ctx, "u1", it.ID, 4)
	if err != nil || up.Quantity != 4 {
		t.Fatalf("update = %+v, %v", up, err)
	}

	if err := svc.Remove(ctx, "u2", it.ID); !errors.Is(err, ErrForbidden) {
		t.Fatalf("remove other user: %v", err)
	}
	if err := svc.Remove(ctx, "u1", it.ID); err != nil {
		t.Fatal(err)
	}
	if err := svc.Remove(ctx, "u1", it.ID); !errors.Is(err, ErrItemNotFound) {
		t.Fatalf("remove twice: %v", err)
	}
}

func TestClear(t *testing.T) {
	store := newFakeStore(product("a", 4), product("b", 4))
	svc := NewService(store)
	ctx := context.Background()
	for _, id := range []string{"a", "b"} {
		if _, err := svc.Add(ctx, "u1", id, 1); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := svc.Add(ctx, "u2", "a", 1); err != nil {
		t.Fatal(err)
	}
	if err := svc.Clear(ctx, "u1"); err != nil {
		t.Fatal(err)
	}
	v, _ := svc.Get(ctx, "u1")
	other, _ := svc.Get(ctx, "u2")
	if v.Summary.ItemCount != 0 || other.Summary.ItemCount != 1 {
		t.Fatalf("u1=%d u2=%d", v.Summary.ItemCount, other.Summary.ItemCount)
	}
}
