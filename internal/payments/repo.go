package payments

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"

	"github.com/tecnolua/ClubePharma/internal/orders"
	"github.com/tecnolua/ClubePharma/internal/postgres"
)

type Repo struct {
	DB     *pgxpool.Pool
	Orders *orders.Repo
}

func NewRepo(db *pgxpool.Pool) *Repo {
	return &Repo{DB: db, Orders: &orders.Repo{DB: db}}
}

const paymentColumns = `p.id, p.order_id, p.amount, p.method, p.status, COALESCE(p.preference_id, ''),
	p.gateway_payment_id, COALESCE(p.payment_link, ''), p.paid_at, p.created_at, p.updated_at`

func scanPayment(row pgx.Row, extra ...any) (Payment, error) {
	var p Payment
	dest := []any{&p.ID, &p.OrderID, &p.Amount, &p.Method, &p.Status, &p.PreferenceID,
		&p.GatewayPaymentID, &p.PaymentLink, &p.PaidAt, &p.CreatedAt, &p.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Payment{}, ErrPaymentNotFound
	}
	return p, err
}

func (r *Repo) InTx(ctx context.Context, fn func(Tx) error) error {
	return postgres.InTx(ctx, r.DB, func(tx pgx.Tx) error {
		return fn(&pgTx{PgTx: orders.NewTx(tx), tx: tx})
	})
}

func (r *Repo) GetOrder(ctx context.Context, orderID string) (orders.Order, error) {
	return r.Orders.Get(ctx, orderID)
}

func (r *Repo) GetPayer(ctx context.Context, userID string) (Payer, error) {
	p := Payer{UserID: userID}
	err := r.DB.QueryRow(ctx, `SELECT name, email FROM users WHERE id=$1`, userID).Scan(&p.Name, &p.Email)
	return p, err
}

func (r *Repo) HasApproved(ctx context.Context, orderID string) (bool, error) {
	var ok bool
	err := r.DB.QueryRow(ctx, `
		SELECT EXISTS (SELECT 1 FROM payments WHERE order_id=$1 AND status='APPROVED')`, orderID).Scan(&ok)
	return ok, err
}

func (r *Repo) Insert(ctx context.Context, p Payment) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO payments(id, order_id, amount, method, status, preference_id, payment_link, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$8)`,
		p.ID, p.OrderID, p.Amount, p.Method, p.Status, p.PreferenceID, p.PaymentLink, p.CreatedAt)
	return err
}

func (r *Repo) Get(ctx context.Context, paymentID string) (Payment, string, error) {
	var owner string
	p, err := scanPayment(r.DB.QueryRow(ctx, `
		SELECT `+paymentColumns+`, o.user_id
		FROM payments p JOIN orders o ON o.id = p.order_id
		WHERE p.id=$1`, paymentID), &owner)
	return p, owner, err
}

func (r *Repo) ListByUser(ctx context.Context, userID string) ([]Payment, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p JOIN orders o ON o.id = p.order_id
		WHERE o.user_id=$1
		ORDER BY p.created_at DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// pgTx adds payment rows to the order transaction.
type pgTx struct {
	*orders.PgTx
	tx pgx.Tx
}

func (t *pgTx) LockPayment(ctx context.Context, orderRef, gatewayPaymentID string) (Payment, error) {
	return scanPayment(t.tx.QueryRow(ctx, `
		SELECT `+paymentColumns+`
		FROM payments p
		WHERE p.order_id=$1 OR p.gateway_payment_id=$2
		ORDER BY p.created_at DESC
		LIMIT 1
		FOR UPDATE`, orderRef, gatewayPaymentID))
}

func (t *pgTx) UpdatePayment(ctx context.Context, p Payment) error {
	_, err := t.tx.Exec(ctx, `
		UPDATE payments SET status=$2, gateway_payment_id=$3, paid_at=$4, updated_at=$5
		WHERE id=$1`, p.ID, p.Status, p.GatewayPaymentID, p.PaidAt, p.UpdatedAt)
	return err
}
