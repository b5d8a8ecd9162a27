package payments

import (
	"context"
	"sync"
	"time"

	"github.com/pkg/errors"

	"github.com/tecnolua/ClubePharma/internal/orders"
)

type fakeState struct {
	orders   map[string]orders.Order
	payments []Payment
	stock    map[string]int
}

func (s fakeState) clone() fakeState {
	c := fakeState{
		orders:   make(map[string]orders.Order, len(s.orders)),
		payments: append([]Payment(nil), s.payments...),
		stock:    make(map[string]int, len(s.stock)),
	}
	for k, v := range s.orders {
		c.orders[k] = v
	}
	for k, v := range s.stock {
		c.stock[k] = v
	}
	return c
}

type fakeStore struct {
	mu        sync.Mutex
	state     fakeState
	users     map[string]Payer
	updateErr error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		state: fakeState{orders: map[string]orders.Order{}, stock: map[string]int{}},
		users: map[string]Payer{},
	}
}

func (f *fakeStore) InTx(ctx context.Context, fn func(Tx) error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	work := f.state.clone()
	if err := fn(&fakeTx{s: &work, updateErr: f.updateErr}); err != nil {
		return err
	}
	f.state = work
	return nil
}

func (f *fakeStore) GetOrder(ctx context.Context, id string) (orders.Order, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	o, ok := f.state.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (f *fakeStore) GetPayer(ctx context.Context, userID string) (Payer, error) {
	p, ok := f.users[userID]
	if !ok {
		return Payer{}, errors.New("no rows in result set")
	}
	return p, nil
}

func (f *fakeStore) HasApproved(ctx context.Context, orderID string) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.state.payments {
		if p.OrderID == orderID && p.Status == StatusApproved {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeStore) Insert(ctx context.Context, p Payment) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.state.payments = append(f.state.payments, p)
	return nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Payment, string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range f.state.payments {
		if p.ID == id {
			return p, f.state.orders[p.OrderID].UserID, nil
		}
	}
	return Payment{}, "", ErrPaymentNotFound
}

func (f *fakeStore) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []Payment
	for _, p := range f.state.payments {
		if f.state.orders[p.OrderID].UserID == userID {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) snapshot() fakeState {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.state.clone()
}

type fakeTx struct {
	s         *fakeState
	updateErr error
}

func (t *fakeTx) LockPayment(ctx context.Context, orderRef, gatewayID string) (Payment, error) {
	for i := len(t.s.payments) - 1; i >= 0; i-- {
		p := t.s.payments[i]
		if p.OrderID == orderRef || (p.GatewayPaymentID != nil && *p.GatewayPaymentID == gatewayID) {
			return p, nil
		}
	}
	return Payment{}, ErrPaymentNotFound
}

func (t *fakeTx) UpdatePayment(ctx context.Context, p Payment) error {
	if t.updateErr != nil {
		return t.updateErr
	}
	for i := range t.s.payments {
		if t.s.payments[i].ID == p.ID {
			t.s.payments[i] = p
			return nil
		}
	}
	return ErrPaymentNotFound
}

func (t *fakeTx) LockOrder(ctx context.Context, id string) (orders.Order, error) {
	o, ok := t.s.orders[id]
	if !ok {
		return orders.Order{}, orders.ErrOrderNotFound
	}
	return o, nil
}

func (t *fakeTx) SetStatus(ctx context.Context, id string, st orders.Status, at time.Time) error {
	o := t.s.orders[id]
	o.Status, o.UpdatedAt = st, at
	t.s.orders[id] = o
	return nil
}

func (t *fakeTx) RestockItems(ctx context.Context, items []orders.Item) error {
	for _, it := range items {
		t.s.stock[it.ProductID] += it.Quantity
	}
	return nil
}

type fakeGateway struct {
	payments  map[string]GatewayPayment
	createErr error
	lastReq   PreferenceRequest
	calls     int
}

func (g *fakeGateway) CreatePreference(ctx context.Context, req PreferenceRequest) (Preference, error) {
	g.calls++
	g.lastReq = req
	if g.createErr != nil {
		return Preference{}, g.createErr
	}
	return Preference{ID: "pref-" + req.ExternalReference, RedirectURL: "https://mp.example/checkout/" + req.ExternalReference}, nil
}

func (g *fakeGateway) GetPayment(ctx context.Context, id string) (GatewayPayment, error) {
	gp, ok := g.payments[id]
	if !ok {
		return GatewayPayment{}, errors.Errorf("gateway: payment %s not found", id)
	}
	return gp, nil
}

type memDedup struct {
	mu   sync.Mutex
	seen map[string]bool
	down bool
}

func (d *memDedup) Seen(ctx context.Context, scope, id string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return false, errors.New("redis: connection refused")
	}
	return d.seen[scope+":"+id], nil
}

func (d *memDedup) Mark(ctx context.Context, scope, id string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.down {
		return errors.New("redis: connection refused")
	}
	if d.seen == nil {
		d.seen = map[string]bool{}
	}
	d.seen[scope+":"+id] = true
	return nil
}

type countingPublisher struct {
	mu     sync.Mutex
	events []string
	err    error
}

func (p *countingPublisher) Emit(ctx context.Context, topic, eventType, key string, payload any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, eventType)
	return p.err
}

func (p *countingPublisher) count() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.events)
}
