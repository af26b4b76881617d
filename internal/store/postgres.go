package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS products (
	product_id          TEXT PRIMARY KEY,
	brand               TEXT NOT NULL,
	model               TEXT NOT NULL,
	product_name        TEXT NOT NULL,
	category            TEXT NOT NULL,
	specifications_json JSONB NOT NULL DEFAULT '{}',
	sources             TEXT[] NOT NULL DEFAULT '{}',
	created_at          TIMESTAMPTZ,
	updated_at          TIMESTAMPTZ
);
CREATE TABLE IF NOT EXISTS offers (
	id          BIGSERIAL PRIMARY KEY,
	product_id  TEXT NOT NULL REFERENCES products(product_id) ON DELETE CASCADE,
	source      TEXT NOT NULL,
	price       NUMERIC(12,2) NOT NULL,
	currency    TEXT NOT NULL,
	condition   TEXT NOT NULL,
	seller_type TEXT,
	url         TEXT NOT NULL,
	scraped_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_offers_product_id ON offers(product_id);
CREATE INDEX IF NOT EXISTS idx_products_brand ON products(brand);
`

// EnsureSchema creates the relational tables if they do not exist.
func (s *HybridStore) EnsureSchema(ctx context.Context) error {
	if s.PG == nil {
		return nil
	}
	if _, err := s.PG.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// saveRelational upserts every product and replaces its offers in a single
// transaction.
func (s *HybridStore) saveRelational(ctx context.Context, products []model.Product) error {
	if s.PG == nil {
		return nil
	}

	tx, err := s.PG.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	batch := &pgx.Batch{}
	for _, p := range products {
		specs, err := json.Marshal(p.Specifications)
		if err != nil {
			return fmt.Errorf("marshal specifications of %s: %w", p.ProductID, err)
		}
		sources := make([]string, len(p.Metadata.Sources))
		for i, src := range p.Metadata.Sources {
			sources[i] = string(src)
		}

		batch.Queue(`
			INSERT INTO products (product_id, brand, model, product_name, category,
				specifications_json, sources, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			ON CONFLICT (product_id) DO UPDATE SET
				brand = EXCLUDED.brand,
				model = EXCLUDED.model,
				product_name = EXCLUDED.product_name,
				category = EXCLUDED.category,
				specifications_json = EXCLUDED.specifications_json,
				sources = EXCLUDED.sources,
				updated_at = EXCLUDED.updated_at;
		`, p.ProductID, p.Brand, p.Model, p.ProductName, p.Category,
			specs, sources, p.Metadata.CreatedAt, p.Metadata.LastUpdated)

		batch.Queue(`DELETE FROM offers WHERE product_id = $1`, p.ProductID)
		for _, o := range p.Offers {
			batch.Queue(`
				INSERT INTO offers (product_id, source, price, currency, condition, seller_type, url, scraped_at)
				VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			`, p.ProductID, string(o.Source), o.Price, o.Currency, string(o.Condition),
				o.SellerType, o.URL, o.ScrapedAt)
		}
	}

	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("write catalog rows: %w", err)
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit catalog: %w", err)
	}
	return nil
}

// loadRelational reads one product and its offers back from Postgres.
func (s *HybridStore) loadRelational(ctx context.Context, productID string) (*model.Product, error) {
	if s.PG == nil {
		return nil, nil
	}

	var (
		p       model.Product
		specs   []byte
		sources []string
	)
	err := s.PG.QueryRow(ctx, `
		SELECT product_id, brand, model, product_name, category,
			specifications_json, sources, created_at, updated_at
		FROM products
		WHERE product_id = $1
	`, productID).Scan(&p.ProductID, &p.Brand, &p.Model, &p.ProductName, &p.Category,
		&specs, &sources, &p.Metadata.CreatedAt, &p.Metadata.LastUpdated)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("load product %s: %w", productID, err)
	}
	if err := json.Unmarshal(specs, &p.Specifications); err != nil {
		return nil, fmt.Errorf("decode specifications of %s: %w", productID, err)
	}
	for _, src := range sources {
		p.Metadata.Sources = append(p.Metadata.Sources, model.Source(src))
	}

	rows, err := s.PG.Query(ctx, `
		SELECT source, price::float8, currency, condition, COALESCE(seller_type, ''), url, COALESCE(scraped_at, '')
		FROM offers
		WHERE product_id = $1
		ORDER BY id
	`, productID)
	if err != nil {
		return nil, fmt.Errorf("load offers of %s: %w", productID, err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			o         model.Offer
			src, cond string
		)
		if err := rows.Scan(&src, &o.Price, &o.Currency, &cond, &o.SellerType, &o.URL, &o.ScrapedAt); err != nil {
			return nil, err
		}
		o.Source, o.Condition = model.Source(src), model.Condition(cond)
		p.Offers = append(p.Offers, o)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	s.logger.Debug("store.pg.product_loaded", zap.String("product_id", productID))
	return &p, nil
}
