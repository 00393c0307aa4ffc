package products

import (
	"context"
	"database/sql"
	"errors"
)

var ErrProductNotFound = errors.New("product not found")

// ProductStore is the storage contract the catalog handlers depend on.
type ProductStore interface {
	Create(ctx context.Context, p *Product) error
	Get(ctx context.Context, id string) (*Product, error)
	List(ctx context.Context) ([]Product, error)
	Update(ctx context.Context, p *Product) error
	Delete(ctx context.Context, id string) error
}

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

const productColumns = "id, name, description, price, image, category, created_at, updated_at"

func scanProduct(row interface{ Scan(...interface{}) error }) (*Product, error) {
	p := &Product{}
	if err := row.Scan(&p.ID, &p.Name, &p.Description, &p.Price, &p.Image, &p.Category, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return nil, err
	}
	return p, nil
}

func (s *Store) Create(ctx context.Context, p *Product) error {
	const q = `
		INSERT INTO products (id, name, description, price, image, category, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, q,
		p.ID, p.Name, p.Description, p.Price, p.Image, p.Category, p.CreatedAt, p.UpdatedAt)
	return err
}

func (s *Store) Get(ctx context.Context, id string) (*Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products WHERE id = $1`
	p, err := scanProduct(s.db.QueryRowContext(ctx, q, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrProductNotFound
	}
	return p, err
}

func (s *Store) List(ctx context.Context) ([]Product, error) {
	const q = `SELECT ` + productColumns + ` FROM products ORDER BY created_at DESC`
	rows, err := s.db.QueryContext(ctx, q)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) Update(ctx context.Context, p *Product) error {
	const q = `
		UPDATE products
		SET name = $1, description = $2, price = $3, image = $4, category = $5, updated_at = $6
		WHERE id = $7
	`
	res, err := s.db.ExecContext(ctx, q,
		p.Name, p.Description, p.Price, p.Image, p.Category, p.UpdatedAt, p.ID)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (s *Store) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrProductNotFound
	}
	return nil
}
