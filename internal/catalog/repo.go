package catalog

import (
	"context"
	"strconv"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pkg/errors"
	"golang.org/x/sync/errgroup"

	"github.com/tecnolua/ClubePharma/internal/postgres"
)

type Repo struct{ DB *pgxpool.Pool }

// Columns is exported for packages that join products into their own rows.
const Columns = `p.id, p.name, p.description, p.category, p.sku, p.image_url, p.price,
	p.discount_percent, p.stock, p.is_active, p.created_at, p.updated_at`

// Scan reads the Columns list, followed by any extra destinations.
func Scan(row pgx.Row, extra ...any) (Product, error) {
	var p Product
	dest := []any{&p.ID, &p.Name, &p.Description, &p.Category, &p.SKU, &p.ImageURL, &p.Price,
		&p.DiscountPercent, &p.Stock, &p.IsActive, &p.CreatedAt, &p.UpdatedAt}
	err := row.Scan(append(dest, extra...)...)
	if errors.Is(err, pgx.ErrNoRows) {
		return Product{}, ErrProductNotFound
	}
	return p, err
}

func (r *Repo) Get(ctx context.Context, id string) (Product, error) {
	return Scan(r.DB.QueryRow(ctx, `SELECT `+Columns+` FROM products p WHERE p.id=$1`, id))
}

func (r *Repo) List(ctx context.Context, f ListFilter) ([]Product, int, error) {
	var (
		conds []string
		args  []any
	)
	arg := func(v any) string {
		args = append(args, v)
		return "$" + strconv.Itoa(len(args))
	}
	if f.IsActive != nil {
		conds = append(conds, "p.is_active = "+arg(*f.IsActive))
	}
	if f.Category != "" {
		conds = append(conds, "p.category = "+arg(f.Category))
	}
	if f.Search != "" {
		n := arg("%" + f.Search + "%")
		conds = append(conds, "(p.name ILIKE "+n+" OR p.description ILIKE "+n+")")
	}
	where := ""
	if len(conds) > 0 {
		where = " WHERE " + strings.Join(conds, " AND ")
	}
	countArgs := append([]any(nil), args...)
	page := ` ORDER BY p.created_at DESC LIMIT ` + arg(f.Limit) + ` OFFSET ` + arg((f.Page-1)*f.Limit)

	var (
		list  []Product
		total int
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := r.DB.Query(gctx, `SELECT `+Columns+` FROM products p`+where+page, args...)
		if err != nil {
			return err
		}
		defer rows.Close()
		list = []Product{}
		for rows.Next() {
			p, err := Scan(rows)
			if err != nil {
				return err
			}
			list = append(list, p)
		}
		return rows.Err()
	})
	g.Go(func() error {
		return r.DB.QueryRow(gctx, `SELECT count(*) FROM products p`+where, countArgs...).Scan(&total)
	})
	if err := g.Wait(); err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *Repo) Categories(ctx context.Context) ([]Category, error) {
	rows, err := r.DB.Query(ctx, `
		SELECT category, count(*) FROM products
		WHERE is_active
		GROUP BY category ORDER BY category`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.Name, &c.Count); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (r *Repo) Create(ctx context.Context, p Product) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO products(id, name, description, category, sku, image_url, price,
			discount_percent, stock, is_active, created_at, updated_at)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)`,
		p.ID, p.Name, p.Description, p.Category, p.SKU, p.ImageURL, p.Price,
		p.DiscountPercent, p.Stock, p.IsActive, p.CreatedAt, p.UpdatedAt)
	if postgres.IsUniqueViolation(err) {
		return ErrSKUExists
	}
	return err
}

func (r *Repo) Update(ctx context.Context, id string, in Input) (Product, error) {
	p, err := Scan(r.DB.QueryRow(ctx, `
		UPDATE products p SET
			name             = COALESCE($2, p.name),
			description      = COALESCE($3, p.description),
			category         = COALESCE($4, p.category),
			sku              = COALESCE($5, p.sku),
			image_url        = COALESCE($6, p.image_url),
			price            = COALESCE($7, p.price),
			discount_percent = COALESCE($8, p.discount_percent),
			stock            = COALESCE($9, p.stock),
			is_active        = COALESCE($10, p.is_active),
			updated_at       = now()
		WHERE p.id=$1
		RETURNING `+Columns,
		id, in.Name, in.Description, in.Category, in.SKU, in.ImageURL, in.Price,
		in.DiscountPercent, in.Stock, in.IsActive))
	if postgres.IsUniqueViolation(err) {
		return Product{}, ErrSKUExists
	}
	return p, err
}
