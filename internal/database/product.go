package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/pricewatch/pricewatch/internal/models"
)

// FindProductByURL returns the tracked product for a URL, or nil when the
// URL is not tracked yet.
func (db *DB) FindProductByURL(ctx context.Context, url string) (*models.Product, error) {
	query := `
		SELECT id, url, title, current_price, created_at, updated_at
		FROM products
		WHERE url = $1`

	p := &models.Product{}
	err := db.pool.QueryRow(ctx, query, url).Scan(
		&p.ID, &p.URL, &p.Title, &p.CurrentPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find product: %w", err)
	}

	return p, nil
}

// GetProduct retrieves a single product by id, nil when absent.
func (db *DB) GetProduct(ctx context.Context, id uuid.UUID) (*models.Product, error) {
	query := `
		SELECT id, url, title, current_price, created_at, updated_at
		FROM products
		WHERE id = $1`

	p := &models.Product{}
	err := db.pool.QueryRow(ctx, query, id).Scan(
		&p.ID, &p.URL, &p.Title, &p.CurrentPrice, &p.CreatedAt, &p.UpdatedAt,
	)
	if err == pgx.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get product: %w", err)
	}

	return p, nil
}

// ListProducts returns every tracked product, oldest first.
func (db *DB) ListProducts(ctx context.Context) ([]*models.Product, error) {
	query := `
		SELECT id, url, title, current_price, created_at, updated_at
		FROM products
		ORDER BY created_at ASC`

	rows, err := db.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	defer rows.Close()

	var products []*models.Product
	for rows.Next() {
		p := &models.Product{}
		if err := rows.Scan(&p.ID, &p.URL, &p.Title, &p.CurrentPrice, &p.CreatedAt, &p.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan product: %w", err)
		}
		products = append(products, p)
	}

	return products, rows.Err()
}

// CreateTrackedProduct inserts a new product together with its first price
// observation in one transaction. Outbox events, if any, commit with it.
// The caller supplies the id so events can reference it up front.
func (db *DB) CreateTrackedProduct(ctx context.Context, id uuid.UUID, url, title string, price float64, events ...*OutboxEvent) (*models.Product, error) {
	p := &models.Product{
		ID:           id,
		URL:          url,
		Title:        title,
		CurrentPrice: price,
	}

	err := db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			INSERT INTO products (id, url, title, current_price)
			VALUES ($1, $2, $3, $4)
			RETURNING created_at, updated_at`

		if err := tx.QueryRow(ctx, query, p.ID, p.URL, p.Title, p.CurrentPrice).
			Scan(&p.CreatedAt, &p.UpdatedAt); err != nil {
			return fmt.Errorf("failed to insert product: %w", err)
		}

		if err := appendObservationTx(ctx, tx, p.ID, price, time.Now().UTC()); err != nil {
			return err
		}

		return insertEventsTx(ctx, tx, events)
	})
	if err != nil {
		return nil, err
	}

	return p, nil
}

// RecordPrice updates the product's title and current price and appends a
// price observation, in one transaction. Outbox events, if any, commit with it.
func (db *DB) RecordPrice(ctx context.Context, id uuid.UUID, title string, price float64, events ...*OutboxEvent) error {
	return db.Transaction(ctx, func(tx pgx.Tx) error {
		query := `
			UPDATE products SET
				title = $2,
				current_price = $3,
				updated_at = CURRENT_TIMESTAMP
			WHERE id = $1`

		result, err := tx.Exec(ctx, query, id, title, price)
		if err != nil {
			return fmt.Errorf("failed to update product: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("product not found: %s", id)
		}

		if err := appendObservationTx(ctx, tx, id, price, time.Now().UTC()); err != nil {
			return err
		}

		return insertEventsTx(ctx, tx, events)
	})
}

func insertEventsTx(ctx context.Context, tx pgx.Tx, events []*OutboxEvent) error {
	for _, event := range events {
		if err := InsertEventTx(ctx, tx, event); err != nil {
			return err
		}
	}
	return nil
}

func appendObservationTx(ctx context.Context, tx pgx.Tx, productID uuid.UUID, price float64, at time.Time) error {
	query := `
		INSERT INTO price_observations (product_id, price, observed_at)
		VALUES ($1, $2, $3)`

	if _, err := tx.Exec(ctx, query, productID, price, at); err != nil {
		return fmt.Errorf("failed to append observation: %w", err)
	}
	return nil
}

// DeleteProduct removes a product and its whole price history.
func (db *DB) DeleteProduct(ctx context.Context, id uuid.UUID) error {
	return db.Transaction(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM price_observations WHERE product_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete observations: %w", err)
		}

		result, err := tx.Exec(ctx, `DELETE FROM products WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete product: %w", err)
		}
		if result.RowsAffected() == 0 {
			return fmt.Errorf("product not found: %s", id)
		}
		return nil
	})
}

// ListObservations returns a product's price history, newest first.
func (db *DB) ListObservations(ctx context.Context, productID uuid.UUID) ([]models.PriceObservation, error) {
	query := `
		SELECT id, product_id, price, observed_at
		FROM price_observations
		WHERE product_id = $1
		ORDER BY observed_at DESC`

	rows, err := db.pool.Query(ctx, query, productID)
	if err != nil {
		return nil, fmt.Errorf("failed to list observations: %w", err)
	}
	defer rows.Close()

	var observations []models.PriceObservation
	for rows.Next() {
		var o models.PriceObservation
		if err := rows.Scan(&o.ID, &o.ProductID, &o.Price, &o.ObservedAt); err != nil {
			return nil, fmt.Errorf("failed to scan observation: %w", err)
		}
		observations = append(observations, o)
	}

	return observations, rows.Err()
}

// CountObservations returns the number of recorded prices for a product.
func (db *DB) CountObservations(ctx context.Context, productID uuid.UUID) (int, error) {
	var count int
	err := db.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM price_observations WHERE product_id = $1`, productID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count observations: %w", err)
	}
	return count, nil
}
