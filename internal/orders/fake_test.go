package orders

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

type fakeProduct struct {
	ID       string
	Name     string
	Price    decimal.Decimal
	Discount decimal.Decimal
	Stock    int
	Active   bool
}

type fakeCartLine struct {
	ID        string
	UserID    string
	ProductID string
	Qty       int
}

type fakeState struct {
	products map[string]fakeProduct
	cart     []fakeCartLine
	orders   map[string]Order
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		products: make(map[string]fakeProduct, len(s.products)),
		cart:     append([]fakeCartLine(nil), s.cart...),
		orders:   make(map[string]Order, len(s.orders)),
	}
	for k, v := range s.products {
		c.products[k] = v
	}
	for k, v := range s.orders {
		v.Items = append([]Item(nil), v.Items...)
		c.orders[k] = v
	}
	return c
}

// fakeStore serializes transactions and commits a cloned state only when fn
// succeeds, which is what row locks plus rollback give us in postgres.
type fakeStore struct {
	mu    sync.Mutex
	state fakeState

	failDecrementFor string
}

func newFakeStore() *fakeStore {
	return &fakeStore{state: fakeState{products: map[string]fakeProduct{}, orders: map[string]Order{}}}
}

func (f *fakeStore) addProduct(p fakeProduct) {
	f.state.products[p.ID] = p
}

func (f *fakeStore) addToCart(userID, productID string, qty int) {
	f.state.cart = append(f.state.cart, fakeCartLine{ID: "c-" + productID, UserID: userID, ProductID: productID, Qty: qty})
}

func (f *fakeStore) stock(id string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.products[id].Stock
}

func (f *fakeStore) cartSize(userID string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, l := range f.state.cart {
		if l.UserID == userID {
			n++
		}
	}
	return n
}

func (f *fakeStore) orderCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.state.orders)
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	work := f.state.clone()
	if err := fn(&fakeTx{s: &work, failDecrementFor: f.failDecrementFor}); err != nil {
		return err
	}
	f.state = work
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) List(ctx context.Context, lf ListFilter) ([]Order, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []Order
	for _, o := range f.state.orders {
		if o.UserID == lf.UserID && (lf.Status == "" || o.Status == lf.Status) {
			all = append(all, o)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].CreatedAt.After(all[j].CreatedAt) })
	start := lf.Offset()
	if start > len(all) {
		start = len(all)
	}
	end := start + lf.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeStore) Stats(ctx context.Context, userID string) (Stats, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	agg := map[Status]*StatusStat{}
	for _, o := range f.state.orders {
		if o.UserID != userID {
			continue
		}
		s, ok := agg[o.Status]
		if !ok {
			s = &StatusStat{Status: o.Status}
			agg[o.Status] = s
		}
		s.Count++
		s.Total = s.Total.Add(o.Total)
	}
	var by []StatusStat
	for _, s := range agg {
		by = append(by, *s)
	}
	sort.Slice(by, func(i, j int) bool { return by[i].Status < by[j].Status })
	return summarize(by), nil
}

type fakeTx struct {
	s                *fakeState
	failDecrementFor string
}

func (t *fakeTx) LockCheckoutLines(ctx context.Context, userID string) ([]CheckoutLine, error) {
	var out []CheckoutLine
	for _, l := range t.s.cart {
		if l.UserID != userID {
			continue
		}
		p := t.s.products[l.ProductID]
		out = append(out, CheckoutLine{
			CartItemID: l.ID, ProductID: p.ID, ProductName: p.Name, Quantity: l.Qty,
			Price: p.Price, DiscountPercent: p.Discount, Stock: p.Stock, IsActive: p.Active,
		})
	}
	return out, nil
}

func (t *fakeTx) InsertOrder(ctx context.Context, o Order) error {
	t.s.orders[o.ID] = o
	return nil
}

func (t *fakeTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	p := t.s.products[productID]
	if productID == t.failDecrementFor || p.Stock < qty {
		return false, nil
	}
	p.Stock -= qty
	t.s.products[productID] = p
	return true, nil
}

func (t *fakeTx) ClearCart(ctx context.Context, userID string) error {
	kept := t.s.cart[:0]
	for _, l := range t.s.cart {
		if l.UserID != userID {
			kept = append(kept, l)
		}
	}
	t.s.cart = kept
	return nil
}

func (t *fakeTx) LockOrder(ctx context.Context, id string) (Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return Order{}, ErrOrderNotFound
	}
	return o, nil
}

func (t *fakeTx) SetStatus(ctx context.Context, id string, st Status, at time.Time) error {
	o := t.s.orders[id]
	o.Status = st
	o.UpdatedAt = at
	t.s.orders[id] = o
	return nil
}

func (t *fakeTx) RestockItems(ctx context.Context, items []Item) error {
	for _, it := range items {
		p := t.s.products[it.ProductID]
		p.Stock += it.Quantity
		t.s.products[it.ProductID] = p
	}
	return nil
}

func (t *fakeTx) SetPaymentRef(ctx context.Context, id, paymentID string) error {
	o := t.s.orders[id]
	o.PaymentID = &paymentID
	t.s.orders[id] = o
	return nil
}

type recordedEvent struct {
	Topic, Type, Key string
	Payload          any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (p *recordingPublisher) Emit(ctx context.Context, topic, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, recordedEvent{topic, eventType, key, payload})
	return nil
}
