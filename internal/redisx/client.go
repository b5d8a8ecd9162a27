package redisx

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

func New(addr string) *redis.Client {
	return redis.NewClient(&redis.Options{
		Addr:         addr,
		DialTimeout:  2 * time.Second,
		ReadTimeout:  2 * time.Second,
		WriteTimeout: 2 * time.Second,
	})
}

func Exists(ctx context.Context, rdb redis.Cmdable, key string) (bool, error) {
	n, err := rdb.Exists(ctx, key).Result()
	return n > 0, err
}

// Dedup remembers processed message ids for TTLDedup.
type Dedup struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewDedup(rdb redis.Cmdable) *Dedup { return &Dedup{rdb: rdb, ttl: TTLDedup} }

func (d *Dedup) Seen(ctx context.Context, scope, id string) (bool, error) {
	ok, err := Exists(ctx, d.rdb, fmt.Sprintf(KeyDedup, scope, id))
	return ok, errors.Wrap(err, "dedup exists")
}

func (d *Dedup) Mark(ctx context.Context, scope, id string) error {
	return errors.Wrap(d.rdb.Set(ctx, fmt.Sprintf(KeyDedup, scope, id), "1", d.ttl).Err(), "dedup set")
}

// Claim atomically marks id and reports whether this caller was first.
func (d *Dedup) Claim(ctx context.Context, scope, id string) (bool, error) {
	ok, err := d.rdb.SetNX(ctx, fmt.Sprintf(KeyDedup, scope, id), "1", d.ttl).Result()
	return ok, errors.Wrap(err, "dedup claim")
}

// Release forgets a claim so a failed attempt can be retried.
func (d *Dedup) Release(ctx context.Context, scope, id string) error {
	return errors.Wrap(d.rdb.Del(ctx, fmt.Sprintf(KeyDedup, scope, id)).Err(), "dedup release")
}

// Idempotency maps a client supplied key to the id of the resource it created.
type Idempotency struct {
	rdb redis.Cmdable
	ttl time.Duration
}

func NewIdempotency(rdb redis.Cmdable) *Idempotency {
	return &Idempotency{rdb: rdb, ttl: TTLIdempotency}
}

// Lookup returns the stored order id, or "" when the key is unused.
func (i *Idempotency) Lookup(ctx context.Context, userID, key string) (string, error) {
	v, err := i.rdb.Get(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key)).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return v, errors.Wrap(err, "idempotency get")
}

func (i *Idempotency) Remember(ctx context.Context, userID, key, orderID string) error {
	err := i.rdb.Set(ctx, fmt.Sprintf(KeyIdemOrderCreate, userID, key), orderID, i.ttl).Err()
	return errors.Wrap(err, "idempotency set")
}
