package orders

import (
	"context"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"

	"github.com/tecnolua/ClubePharma/internal/postgres"
)

// Repo is the postgres Store.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(Tx) error) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error { return fn(NewTx(tx)) })
}

// querier is satisfied by both the pool and a transaction.
type querier interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const orderColumns = `id, user_id, status, subtotal, discount, total, payment_method, payment_id, created_at, updated_at`

func scanOrder(row pgx.Row) (Order, error) {
	var o Order
	err := row.Scan(&o.ID, &o.UserID, &o.Status, &o.Subtotal, &o.Discount, &o.Total,
		&o.PaymentMethod, &o.PaymentID, &o.CreatedAt, &o.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Order{}, ErrOrderNotFound
	}
	return o, err
}

func loadItems(ctx context.Context, q querier, orderIDs ...string) (map[string][]Item, error) {
	rows, err := q.Query(ctx, `
		SELECT id, order_id, product_id, product_name, quantity, price, discount
		FROM order_items WHERE order_id = ANY($1) ORDER BY product_name`, orderIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := make(map[string][]Item, len(orderIDs))
	for rows.Next() {
		var it Item
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.Price, &it.DiscountPercent); err != nil {
			return nil, err
		}
		out[it.OrderID] = append(out[it.OrderID], it)
	}
	return out, rows.Err()
}

func getOrder(ctx context.Context, q querier, orderID string, lock bool) (Order, error) {
	sql := `SELECT ` + orderColumns + ` FROM orders WHERE id=$1`
	if lock {
		sql += ` FOR UPDATE`
	}
	o, err := scanOrder(q.QueryRow(ctx, sql, orderID))
	if err != nil {
		return Order{}, err
	}
	items, err := loadItems(ctx, q, o.ID)
	if err != nil {
		return Order{}, errors.Wrap(err, "load items")
	}
	o.Items = items[o.ID]
	return o, nil
}

func (r *Repo) Get(ctx context.Context, orderID string) (Order, error) {
	return getOrder(ctx, r.DB, orderID, false)
}

// List runs the page query and the count concurrently.
func (r *Repo) List(ctx context.Context, f ListFilter) ([]Order, int, error) {
	where := `WHERE user_id=$1`
	args := []any{f.UserID}
	if f.Status != "" {
		where += ` AND status=$2`
		args = append(args, f.Status)
	}

	var (
		list  []Order
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		pageArgs := append(append([]any{}, args...), f.Limit, f.Offset())
		n := len(args)
		rows, err := r.DB.Query(gctx, `SELECT `+orderColumns+` FROM orders `+where+
			` ORDER BY created_at DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2), pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			o, err := scanOrder(rows)
			if err != nil {
				return err
			}
			list = append(list, o)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.DB.QueryRow(gctx, `SELECT COUNT(*) FROM orders `+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	if len(list) == 0 {
		return []Order{}, total, nil
	}

	ids := make([]string, len(list))
	for i, o := range list {
		ids[i] = o.ID
	}
	items, err := loadItems(ctx, r.DB, ids...)
	if err != nil {
		return nil, 0, errors.Wrap(err, "load items")
	}
	for i := range list {
		list[i].Items = items[list[i].ID]
	}
	return list, total, nil
}

func (r *Repo) Stats(ctx context.Context, userID string) (Stats, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT status, COUNT(*), COALESCE(SUM(total), 0)
		FROM orders WHERE user_id=$1 GROUP BY status ORDER BY status`, userID)
	if err != nil {
		return Stats{}, err
	}
	defer rows.Close()

	st := Stats{ByStatus: []StatusStat{}}
	for rows.Next() {
		var s StatusStat
		if err := rows.Scan(&s.Status, &s.Count, &s.Total); err != nil {
			return Stats{}, err
		}
		st.ByStatus = append(st.ByStatus, s)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, err
	}
	return summarize(st.ByStatus), nil
}

// summarize derives the totals; cancelled orders do not count as spent.
func summarize(by []StatusStat) Stats {
	st := Stats{TotalSpent: decimal.Zero, ByStatus: by}
	for _, s := range by {
		st.TotalOrders += s.Count
		if s.Status != StatusCancelled {
			st.TotalSpent = st.TotalSpent.Add(s.Total)
		}
	}
	return st
}

// PgTx implements Tx over a pgx transaction.
type PgTx struct{ tx pgx.Tx }

func NewTx(tx pgx.Tx) *PgTx { return &PgTx{tx: tx} }

func (t *PgTx) LockCheckoutLines(ctx context.Context, userID string) ([]CheckoutLine, error) {
	// Lock order by product id so concurrent checkouts cannot deadlock.
	rows, err := t.tx.Query(ctx, `
		SELECT c.id, p.id, p.name, c.quantity, p.price, p.discount_percent, p.stock, p.is_active
		FROM cart_items c
		JOIN products p ON p.id = c.product_id
		WHERE c.user_id = $1
		ORDER BY p.id
		FOR UPDATE OF p`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []CheckoutLine
	for rows.Next() {
		var l CheckoutLine
		if err := rows.Scan(&l.CartItemID, &l.ProductID, &l.ProductName, &l.Quantity,
			&l.Price, &l.DiscountPercent, &l.Stock, &l.IsActive); err != nil {
			return nil, err
		}
		out = append(out, l)
	}
	return out, rows.Err()
}

func (t *PgTx) InsertOrder(ctx context.Context, o Order) error {
	if _, err := t.tx.Exec(ctx, `
		INSERT INTO orders(id, user_id, status, subtotal, discount, total, payment_method, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		o.ID, o.UserID, o.Status, o.Subtotal, o.Discount, o.Total, o.PaymentMethod, o.CreatedAt); err != nil {
		return err
	}
	for _, it := range o.Items {
		if _, err := t.tx.Exec(ctx, `
			INSERT INTO order_items(id, order_id, product_id, product_name, quantity, price, discount)
			VALUES ($1,$2,$3,$4,$5,$6,$7)`,
			it.ID, o.ID, it.ProductID, it.ProductName, it.Quantity, it.Price, it.DiscountPercent); err != nil {
			return err
		}
	}
	return nil
}

func (t *PgTx) DecrementStock(ctx context.Context, productID string, qty int) (bool, error) {
	ct, err := t.tx.Exec(ctx, `
		UPDATE products SET stock = stock - $2, updated_at = now()
		WHERE id=$1 AND stock >= $2`, productID, qty)
	if err != nil {
		return false, err
	}
	return ct.RowsAffected() == 1, nil
}

func (t *PgTx) ClearCart(ctx context.Context, userID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

func (t *PgTx) LockOrder(ctx context.Context, orderID string) (Order, error) {
	return getOrder(ctx, t.tx, orderID, true)
}

func (t *PgTx) SetStatus(ctx context.Context, orderID string, st Status, at time.Time) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET status=$2, updated_at=$3 WHERE id=$1`, orderID, st, at)
	return err
}

// RestockItems is additive: concurrent decrements of the same rows are kept.
func (t *PgTx) RestockItems(ctx context.Context, items []Item) error {
	for _, it := range items {
		if _, err := t.tx.Exec(ctx, `
			UPDATE products SET stock = stock + $2, updated_at = now() WHERE id=$1`,
			it.ProductID, it.Quantity); err != nil {
			return errors.Wrapf(err, "restock %s", it.ProductID)
		}
	}
	return nil
}

func (t *PgTx) SetPaymentRef(ctx context.Context, orderID, paymentID string) error {
	_, err := t.tx.Exec(ctx, `UPDATE orders SET payment_id=$2, updated_at=now() WHERE id=$1`, orderID, paymentID)
	return err
}
