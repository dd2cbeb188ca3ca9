package repository

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/jackc/pgx/v5"

	"github.com/valelectronic/DERA-PROJECT/internal/model"
)

const productColumns = `id, name, description, price, category, image, is_available, rating, is_featured, created_at`

// CreateProduct сохраняет новый товар каталога.
func (r *PostgresRepository) CreateProduct(ctx context.Context, p model.Product) (int64, error) {
	var id int64
	err := r.pool.QueryRow(ctx,
		`INSERT INTO products (name, description, price, category, image, is_available, rating, is_featured)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8) RETURNING id`,
		p.Name, p.Description, toCents(p.Price), p.Category, p.Image, p.IsAvailable, p.Rating, p.IsFeatured,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("create product: %w", err)
	}
	return id, nil
}

// GetProductByID возвращает товар по идентификатору.
func (r *PostgresRepository) GetProductByID(ctx context.Context, id int64) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+productColumns+` FROM products WHERE id = $1`,
		id,
	)

	p, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("get product: %w", err)
	}
	return p, nil
}

// GetProducts возвращает все товары каталога.
func (r *PostgresRepository) GetProducts(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY created_at DESC`,
	)
}

// GetFeaturedProducts возвращает товары, отмеченные как избранные.
func (r *PostgresRepository) GetFeaturedProducts(ctx context.Context) ([]model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE is_featured ORDER BY created_at DESC`,
	)
}

// GetProductsByCategory возвращает товары указанной категории.
func (r *PostgresRepository) GetProductsByCategory(ctx context.Context, category string) ([]model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products WHERE category = $1 ORDER BY created_at DESC`,
		category,
	)
}

// GetRandomProducts возвращает случайную выборку товаров для рекомендаций.
func (r *PostgresRepository) GetRandomProducts(ctx context.Context, limit int) ([]model.Product, error) {
	return r.queryProducts(ctx,
		`SELECT `+productColumns+` FROM products ORDER BY random() LIMIT $1`,
		limit,
	)
}

// UpdateProduct обновляет поля существующего товара.
func (r *PostgresRepository) UpdateProduct(ctx context.Context, p model.Product) error {
	cmdTag, err := r.pool.Exec(ctx,
		`UPDATE products
		 SET name = $2, description = $3, price = $4, category = $5, image = $6, is_available = $7
		 WHERE id = $1`,
		p.ID, p.Name, p.Description, toCents(p.Price), p.Category, p.Image, p.IsAvailable,
	)
	if err != nil {
		return fmt.Errorf("update product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

// SetProductFeatured переключает признак избранного товара и возвращает обновлённый товар.
func (r *PostgresRepository) SetProductFeatured(ctx context.Context, id int64, featured bool) (*model.Product, error) {
	row := r.pool.QueryRow(ctx,
		`UPDATE products SET is_featured = $2 WHERE id = $1 RETURNING `+productColumns,
		id, featured,
	)

	p, err := scanProductRow(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrProductNotFound
		}
		return nil, fmt.Errorf("set product featured: %w", err)
	}
	return p, nil
}

// DeleteProduct удаляет товар каталога.
func (r *PostgresRepository) DeleteProduct(ctx context.Context, id int64) error {
	cmdTag, err := r.pool.Exec(ctx,
		`DELETE FROM products WHERE id = $1`,
		id,
	)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if cmdTag.RowsAffected() == 0 {
		return ErrProductNotFound
	}
	return nil
}

func (r *PostgresRepository) queryProducts(ctx context.Context, query string, args ...any) ([]model.Product, error) {
	rows, err := r.pool.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("select products: %w", err)
	}
	defer rows.Close()

	var products []model.Product
	for rows.Next() {
		p, err := scanProductRow(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, *p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows error: %w", err)
	}

	return products, nil
}

func scanProductRow(row pgx.Row) (*model.Product, error) {
	var (
		p          model.Product
		priceCents int64
	)
	err := row.Scan(&p.ID, &p.Name, &p.Description, &priceCents, &p.Category,
		&p.Image, &p.IsAvailable, &p.Rating, &p.IsFeatured, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	p.Price = fromCents(priceCents)
	return &p, nil
}

// toCents переводит сумму из основных единиц валюты в минимальные.
func toCents(amount float64) int64 {
	return int64(math.Round(amount * 100))
}

// fromCents переводит сумму из минимальных единиц валюты в основные.
func fromCents(cents int64) float64 {
	return float64(cents) / 100
}
