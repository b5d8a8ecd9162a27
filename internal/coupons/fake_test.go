package coupons

import (
	"context"
	"sort"
	"sync"
)

type fakeStore struct {
	mu      sync.Mutex
	coupons map[string]Coupon
	// raced runs after FindByCode returns, to simulate a concurrent writer.
	raced func()
}

func newFakeStore(cs ...Coupon) *fakeStore {
	f := &fakeStore{coupons: map[string]Coupon{}}
	for _, c := range cs {
		f.coupons[c.ID] = c
	}
	return f
}

func (f *fakeStore) FindByCode(ctx context.Context, code string) (Coupon, error) {
	f.mu.Lock()
	var (
		out   Coupon
		found bool
	)
	for _, c := range f.coupons {
		if c.Code == code {
			out, found = c, true
		}
	}
	f.mu.Unlock()
	if !found {
		return Coupon{}, ErrNotFound
	}
	if f.raced != nil {
		f.raced()
	}
	return out, nil
}

func (f *fakeStore) Get(ctx context.Context, id string) (Coupon, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[id]
	if !ok {
		return Coupon{}, ErrNotFound
	}
	return c, nil
}

func (f *fakeStore) List(ctx context.Context, lf ListFilter) ([]Coupon, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	var all []Coupon
	for _, c := range f.coupons {
		if lf.IsActive == nil || c.IsActive == *lf.IsActive {
			all = append(all, c)
		}
	}
	sort.Slice(all, func(i, j int) bool { return all[i].Code < all[j].Code })
	start := (lf.Page - 1) * lf.Limit
	if start > len(all) {
		start = len(all)
	}
	end := start + lf.Limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], len(all), nil
}

func (f *fakeStore) Create(ctx context.Context, c Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, x := range f.coupons {
		if x.Code == c.Code {
			return ErrCodeExists
		}
	}
	f.coupons[c.ID] = c
	return nil
}

func (f *fakeStore) Update(ctx context.Context, c Coupon) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if _, ok := f.coupons[c.ID]; !ok {
		return ErrNotFound
	}
	for _, x := range f.coupons {
		if x.Code == c.Code && x.ID != c.ID {
			return ErrCodeExists
		}
	}
	f.coupons[c.ID] = c
	return nil
}

func (f *fakeStore) IncrementUsage(ctx context.Context, id string) (Coupon, bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	c, ok := f.coupons[id]
	if !ok || !c.IsActive || (c.MaxUses != nil && c.UsedCount >= *c.MaxUses) {
		return Coupon{}, false, nil
	}
	c.UsedCount++
	f.coupons[id] = c
	return c, true, nil
}
