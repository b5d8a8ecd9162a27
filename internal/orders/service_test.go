package orders

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/pkg/errors"
	"github.com/shopspring/decimal"

	"github.com/tecnolua/ClubePharma/internal/apperr"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newTestService(store *fakeStore) (*Service, *recordingPublisher) {
	pub := &recordingPublisher{}
	svc := NewService(store, pub)
	svc.now = func() time.Time { return time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC) }
	return svc, pub
}

func seededStore() *fakeStore {
	s := newFakeStore()
	s.addProduct(fakeProduct{ID: "p1", Name: "Dipirona 500mg", Price: dec("10.00"), Discount: dec("0"), Stock: 5, Active: true})
	s.addProduct(fakeProduct{ID: "p2", Name: "Protetor Solar FPS50", Price: dec("50.00"), Discount: dec("10"), Stock: 1, Active: true})
	return s
}

func TestCheckoutHappyPath(t *testing.T) {
	store := seededStore()
	store.addToCart("u1", "p1", 2)
	store.addToCart("u1", "p2", 1)
	svc, pub := newTestService(store)

	o, err := svc.Checkout(context.Background(), "u1", "PIX")
	if err != nil {
		t.Fatalf("checkout: %v", err)
	}
	if o.Status != StatusPending {
		t.Fatalf("status = %s", o.Status)
	}
	if !o.Subtotal.Equal(dec("70")) || !o.Discount.Equal(dec("5")) || !o.Total.Equal(dec("65")) {
		t.Fatalf("totals = %s/%s/%s", o.Subtotal, o.Discount, o.Total)
	}
	if !o.Total.Equal(o.Subtotal.Sub(o.Discount)) {
		t.Fatal("total != subtotal - discount")
	}
	if len(o.Items) != 2 {
		t.Fatalf("items = %d", len(o.Items))
	}
	if store.stock("p1") != 3 || store.stock("p2") != 0 {
		t.Fatalf("stock p1=%d p2=%d", store.stock("p1"), store.stock("p2"))
	}
	if store.cartSize("u1") != 0 {
		t.Fatal("cart should be cleared")
	}
	if len(pub.events) != 1 || pub.events[0].Type != EventOrderCreated || pub.events[0].Key != o.ID {
		t.Fatalf("events = %+v", pub.events)
	}
}

func TestCheckoutFailuresLeaveStateUntouched(t *testing.T) {
	cases := []struct {
		name    string
		setup   func(s *fakeStore)
		method  string
		wantErr func(error) bool
	}{
		{
			name:    "empty cart",
			setup:   func(s *fakeStore) {},
			method:  "PIX",
			wantErr: func(err error) bool { return errors.Is(err, ErrEmptyCart) },
		},
		{
			name:    "blank payment method",
			setup:   func(s *fakeStore) { s.addToCart("u1", "p1", 1) },
			method:  "  ",
			wantErr: func(err error) bool { return errors.Is(err, ErrPaymentMethodRequired) },
		},
		{
			name: "insufficient stock on second line",
			setup: func(s *fakeStore) {
				s.addToCart("u1", "p1", 2)
				s.addToCart("u1", "p2", 2)
			},
			method: "PIX",
			wantErr: func(err error) bool {
				var e *InsufficientStockError
				return errors.As(err, &e) && e.Name == "Protetor Solar FPS50" && e.Available == 1
			},
		},
		{
			name: "inactive product",
			setup: func(s *fakeStore) {
				s.addProduct(fakeProduct{ID: "p3", Name: "Descontinuado", Price: dec("5"), Stock: 10})
				s.addToCart("u1", "p1", 1)
				s.addToCart("u1", "p3", 1)
			},
			method: "PIX",
			wantErr: func(err error) bool {
				var e *ProductUnavailableError
				return errors.As(err, &e) && e.Name == "Descontinuado"
			},
		},
		{
			name: "conditional decrement loses a race",
			setup: func(s *fakeStore) {
				s.addToCart("u1", "p1", 1)
				s.addToCart("u1", "p2", 1)
				s.failDecrementFor = "p2"
			},
			method: "PIX",
			wantErr: func(err error) bool {
				var e *InsufficientStockError
				return errors.As(err, &e) && apperr.KindOf(err) == apperr.KindConflict
			},
		},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			store := seededStore()
			tc.setup(store)
			before := store.cartSize("u1")
			svc, pub := newTestService(store)

			_, err := svc.Checkout(context.Background(), "u1", tc.method)
			if err == nil || !tc.wantErr(err) {
				t.Fatalf("unexpected error: %v", err)
			}
			if store.stock("p1") != 5 || store.stock("p2") != 1 {
				t.Fatalf("stock changed: p1=%d p2=%d", store.stock("p1"), store.stock("p2"))
			}
			if store.cartSize("u1") != before {
				t.Fatal("cart changed")
			}
			if store.orderCount() != 0 {
				t.Fatal("order row created")
			}
			if len(pub.events) != 0 {
				t.Fatal("no events on failure")
			}
		})
	}
}

func TestConcurrentCheckoutsNeverOversell(t *testing.T) {
	store := seededStore()
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		store.addToCart(u, "p2", 1)
	}
	svc, _ := newTestService(store)

	var (
		wg sync.WaitGroup
		mu sync.Mutex
		ok int
	)
	for _, u := range []string{"u1", "u2", "u3", "u4"} {
		wg.Add(1)
		go func(u string) {
			defer wg.Done()
			if _, err := svc.Checkout(context.Background(), u, "PIX"); err == nil {
				mu.Lock()
				ok++
				mu.Unlock()
			}
		}(u)
	}
	wg.Wait()

	if ok != 1 {
		t.Fatalf("successful checkouts = %d, want 1", ok)
	}
	if store.stock("p2") != 0 {
		t.Fatalf("stock = %d", store.stock("p2"))
	}
}

func TestCancelRestoresStockAdditively(t *testing.T) {
	store := seededStore()
	store.addToCart("u1", "p1", 2)
	store.addToCart("u1", "p2", 1)
	svc, pub := newTestService(store)
	ctx := context.Background()

	o, err := svc.Checkout(ctx, "u1", "PIX")
	if err != nil {
		t.Fatal(err)
	}

	// another customer buys from p1 in between
	store.addToCart("u2", "p1", 1)
	if _, err := svc.Checkout(ctx, "u2", "PIX"); err != nil {
		t.Fatal(err)
	}

	got, err := svc.Cancel(ctx, o.ID, "u1")
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if got.Status != StatusCancelled {
		t.Fatalf("status = %s", got.Status)
	}
	if store.stock("p1") != 4 || store.stock("p2") != 1 {
		t.Fatalf("stock p1=%d p2=%d", store.stock("p1"), store.stock("p2"))
	}
	last := pub.events[len(pub.events)-1]
	if last.Type != EventOrderCancelled {
		t.Fatalf("last event = %s", last.Type)
	}
}

func TestCancelGuards(t *testing.T) {
	store := seededStore()
	store.addToCart("u1", "p1", 1)
	svc, _ := newTestService(store)
	ctx := context.Background()
	o, err := svc.Checkout(ctx, "u1", "PIX")
	if err != nil {
		t.Fatal(err)
	}

	t.Run("missing", func(t *testing.T) {
		if _, err := svc.Cancel(ctx, "nope", "u1"); !errors.Is(err, ErrOrderNotFound) {
			t.Fatalf("err = %v", err)
		}
	})
	t.Run("not owner", func(t *testing.T) {
		if _, err := svc.Cancel(ctx, o.ID, "u2"); !errors.Is(err, ErrForbidden) {
			t.Fatalf("err = %v", err)
		}
		if store.stock("p1") != 4 {
			t.Fatal("stock touched")
		}
	})
	t.Run("shipped", func(t *testing.T) {
		if _, err := svc.UpdateStatus(ctx, o.ID, StatusProcessing, ""); err != nil {
			t.Fatal(err)
		}
		if _, err := svc.UpdateStatus(ctx, o.ID, StatusShipped, ""); err != nil {
			t.Fatal(err)
		}
		_, err := svc.Cancel(ctx, o.ID, "u1")
		var e *InvalidTransitionError
		if !errors.As(err, &e) || e.From != StatusShipped {
			t.Fatalf("err = %v", err)
		}
		if store.stock("p1") != 4 {
			t.Fatal("stock touched")
		}
	})
}

func TestUpdateStatusOverride(t *testing.T) {
	store := seededStore()
	store.addToCart("u1", "p1", 2)
	svc, pub := newTestService(store)
	ctx := context.Background()
	o, err := svc.Checkout(ctx, "u1", "PIX")
	if err != nil {
		t.Fatal(err)
	}

	got, err := svc.UpdateStatus(ctx, o.ID, StatusCancelled, "mp-123")
	if err != nil {
		t.Fatal(err)
	}
	if got.PaymentID == nil || *got.PaymentID != "mp-123" {
		t.Fatal("payment ref not stored")
	}
	if store.stock("p1") != 5 {
		t.Fatalf("admin cancel should restock, stock = %d", store.stock("p1"))
	}

	if _, err := svc.UpdateStatus(ctx, o.ID, StatusPending, ""); err == nil {
		t.Fatal("leaving CANCELLED must fail")
	}
	events := len(pub.events)
	if _, err := svc.UpdateStatus(ctx, o.ID, StatusCancelled, ""); err != nil {
		t.Fatal(err)
	}
	if store.stock("p1") != 5 || len(pub.events) != events {
		t.Fatal("repeating the same status must be a no-op")
	}
	if _, err := svc.UpdateStatus(ctx, o.ID, Status("LOST"), ""); !errors.Is(err, ErrInvalidStatus) {
		t.Fatalf("err = %v", err)
	}
}

func TestGetListStats(t *testing.T) {
	store := seededStore()
	svc, _ := newTestService(store)
	ctx := context.Background()

	store.addToCart("u1", "p1", 1)
	first, err := svc.Checkout(ctx, "u1", "PIX")
	if err != nil {
		t.Fatal(err)
	}
	svc.now = func() time.Time { return time.Date(2025, 3, 2, 12, 0, 0, 0, time.UTC) }
	store.addToCart("u1", "p1", 2)
	if _, err := svc.Checkout(ctx, "u1", "CREDIT_CARD"); err != nil {
		t.Fatal(err)
	}
	if _, err := svc.Cancel(ctx, first.ID, "u1"); err != nil {
		t.Fatal(err)
	}

	if _, err := svc.Get(ctx, first.ID, "u2"); !errors.Is(err, ErrForbidden) {
		t.Fatalf("err = %v", err)
	}

	list, total, f, err := svc.List(ctx, ListFilter{UserID: "u1", Status: "pending"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 1 || len(list) != 1 || f.Limit != 10 || f.Page != 1 {
		t.Fatalf("list=%d total=%d filter=%+v", len(list), total, f)
	}

	st, err := svc.Stats(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if st.TotalOrders != 2 || !st.TotalSpent.Equal(dec("20")) {
		t.Fatalf("stats = %+v", st)
	}
}
