package coupons

import (
	"context"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tecnolua/ClubePharma/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

const couponColumns = `id, code, description, type, value, min_purchase, max_uses, used_count,
	valid_until, is_active, created_at, updated_at`

func scanCoupon(row pgx.Row) (Coupon, error) {
	var c Coupon
	err := row.Scan(&c.ID, &c.Code, &c.Description, &c.Type, &c.Value, &c.MinPurchase, &c.MaxUses,
		&c.UsedCount, &c.ValidUntil, &c.IsActive, &c.CreatedAt, &c.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return Coupon{}, ErrNotFound
	}
	return c, err
}

func (r *Repo) FindByCode(ctx context.Context, code string) (Coupon, error) {
	return scanCoupon(r.DB.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE code=$1`, code))
}

func (r *Repo) Get(ctx context.Context, id string) (Coupon, error) {
	return scanCoupon(r.DB.QueryRow(ctx, `SELECT `+couponColumns+` FROM coupons WHERE id=$1`, id))
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Coupon, int, error) {
	where, args := "", []any{}
	if f.IsActive != nil {
		args = append(args, *f.IsActive)
		where = " WHERE is_active=$1"
	}

	n := len(args)
	pageArgs := append(append([]any{}, args...), f.Limit, (f.Page-1)*f.Limit)

	var (
		list  []Coupon
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.DB.Query(gctx, `SELECT `+couponColumns+` FROM coupons`+where+`
			ORDER BY created_at DESC LIMIT $`+strconv.Itoa(n+1)+` OFFSET $`+strconv.Itoa(n+2),
			pageArgs...)
		if err != nil {
			return err
		}
		defer rows.Close()
		list = []Coupon{}
		for rows.Next() {
			c, err := scanCoupon(rows)
			if err != nil {
				return err
			}
			list = append(list, c)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.DB.QueryRow(gctx, `SELECT count(*) FROM coupons`+where, args...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repo) Create(ctx context.Context, c Coupon) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO coupons(`+couponColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxUses, c.UsedCount,
		c.ValidUntil, c.IsActive, c.CreatedAt, c.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrCodeExists
	}
	return err
}

func (r *Repo) Update(ctx context.Context, c Coupon) error {
	tag, err := r.DB.Exec(ctx, `
		UPDATE coupons SET code=$2, description=$3, type=$4, value=$5, min_purchase=$6, max_uses=$7,
			valid_until=$8, is_active=$9, updated_at=$10
		WHERE id=$1`,
		c.ID, c.Code, c.Description, c.Type, c.Value, c.MinPurchase, c.MaxUses,
		c.ValidUntil, c.IsActive, c.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrCodeExists
	}
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

// IncrementUsage re-checks every eligibility rule inside the UPDATE so two
// concurrent redemptions of the last use cannot both succeed.
func (r *Repo) IncrementUsage(ctx context.Context, id string) (Coupon, bool, error) {
	c, err := scanCoupon(r.DB.QueryRow(ctx, `
		UPDATE coupons SET used_count = used_count + 1, updated_at = now()
		WHERE id=$1
		  AND is_active
		  AND (valid_until IS NULL OR valid_until >= now())
		  AND (max_uses IS NULL OR used_count < max_uses)
		RETURNING `+couponColumns, id))
	if errors.Is(err, ErrNotFound) {
		return Coupon{}, false, nil
	}
	if err != nil {
		return Coupon{}, false, err
	}
	return c, true, nil
}
