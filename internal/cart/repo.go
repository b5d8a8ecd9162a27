package cart

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tecnolua/ClubePharma/internal/apperr"
	"github.com/tecnolua/ClubePharma/internal/catalog"
	"github.com/tecnolua/ClubePharma/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) InTx(ctx context.Context, fn func(Tx) error) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error { return fn(&pgTx{tx: tx}) })
}

const itemSelect = `SELECT ` + catalog.Columns + `, c.id, c.user_id, c.quantity, c.created_at
	FROM cart_items c JOIN products p ON p.id = c.product_id`

func scanItem(row pgx.Row) (Item, error) {
	var it Item
	p, err := catalog.Scan(row, &it.ID, &it.UserID, &it.Quantity, &it.CreatedAt)
	if errors.Is(err, catalog.ErrProductNotFound) {
		return Item{}, ErrItemNotFound
	}
	if err != nil {
		return Item{}, err
	}
	it.Product, it.ProductID = p, p.ID
	return it, nil
}

func (r *Repo) Items(ctx context.Context, userID string) ([]Item, error) {
	rows, err := r.DB.Query(ctx, itemSelect+` WHERE c.user_id=$1 ORDER BY c.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Item{}
	for rows.Next() {
		it, err := scanItem(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, it)
	}
	return out, rows.Err()
}

func (r *Repo) Clear(ctx context.Context, userID string) error {
	_, err := r.DB.Exec(ctx, `DELETE FROM cart_items WHERE user_id=$1`, userID)
	return err
}

type pgTx struct{ tx pgx.Tx }

func (t *pgTx) Product(ctx context.Context, productID string) (catalog.Product, error) {
	return catalog.Scan(t.tx.QueryRow(ctx, `SELECT `+catalog.Columns+` FROM products p WHERE p.id=$1 FOR SHARE`, productID))
}

func (t *pgTx) LockLine(ctx context.Context, userID, productID string) (Item, bool, error) {
	it, err := scanItem(t.tx.QueryRow(ctx, itemSelect+` WHERE c.user_id=$1 AND c.product_id=$2 FOR UPDATE OF c`, userID, productID))
	if errors.Is(err, ErrItemNotFound) {
		return Item{}, false, nil
	}
	return it, err == nil, err
}

func (t *pgTx) LockItem(ctx context.Context, itemID string) (Item, error) {
	return scanItem(t.tx.QueryRow(ctx, itemSelect+` WHERE c.id=$1 FOR UPDATE OF c`, itemID))
}

// Save upserts by id. A first add racing another on the same product trips
// the (user_id, product_id) key.
func (t *pgTx) Save(ctx context.Context, it Item) error {
	_, err := t.tx.Exec(ctx, `
		INSERT INTO cart_items(id, user_id, product_id, quantity, created_at)
		VALUES ($1,$2,$3,$4,$5)
		ON CONFLICT (id) DO UPDATE SET quantity = EXCLUDED.quantity`,
		it.ID, it.UserID, it.ProductID, it.Quantity, it.CreatedAt)
	if postgres.IsUniqueViolation(err) {
		return apperr.Wrap(err, apperr.KindConflict, "CART_CONFLICT", "Cart was modified concurrently, try again")
	}
	return err
}

func (t *pgTx) Delete(ctx context.Context, itemID string) error {
	_, err := t.tx.Exec(ctx, `DELETE FROM cart_items WHERE id=$1`, itemID)
	return err
}
