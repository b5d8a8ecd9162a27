package redisx

import "time"

const (
	// Checkout idempotency: idem:order:create:{user_id}:{idempotency_key} -> order_id
	KeyIdemOrderCreate = "idem:order:create:%s:%s"

	// Dedup: dedup:{scope}:{id}. Scope is "webhook" (id = gateway payment id
	// plus mapped status) or "notifier" (id = event id).
	KeyDedup = "dedup:%s:%s"
)

var (
	TTLIdempotency = 24 * time.Hour
	TTLDedup       = 48 * time.Hour
)
