package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/Checker-Finance/marketeye/pkg/model"
)

const sqliteSchema = `
CREATE TABLE IF NOT EXISTS products (
	product_id          TEXT PRIMARY KEY,
	brand               TEXT NOT NULL,
	model               TEXT NOT NULL,
	product_name        TEXT NOT NULL,
	category            TEXT NOT NULL,
	specifications_json TEXT NOT NULL,
	created_at          TEXT,
	updated_at          TEXT
);
CREATE TABLE IF NOT EXISTS offers (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	product_id  TEXT NOT NULL REFERENCES products(product_id),
	source      TEXT NOT NULL,
	price       REAL NOT NULL,
	currency    TEXT NOT NULL,
	condition   TEXT NOT NULL,
	seller_type TEXT,
	url         TEXT NOT NULL,
	scraped_at  TEXT
);
CREATE INDEX IF NOT EXISTS idx_offers_product_id ON offers(product_id);
`

// SnapshotWriter writes the catalog into a local SQLite file using the same
// two-table layout as the Postgres mirror. Each Write replaces the previous
// snapshot.
type SnapshotWriter struct {
	path   string
	logger *zap.Logger
}

func NewSnapshotWriter(path string, logger *zap.Logger) *SnapshotWriter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SnapshotWriter{path: path, logger: logger}
}

func (w *SnapshotWriter) Path() string { return w.path }

func (w *SnapshotWriter) Write(ctx context.Context, products []model.Product) error {
	db, err := sql.Open("sqlite", w.path)
	if err != nil {
		return fmt.Errorf("open snapshot %s: %w", w.path, err)
	}
	defer db.Close()

	if _, err := db.ExecContext(ctx, sqliteSchema); err != nil {
		return fmt.Errorf("snapshot schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin snapshot tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	for _, stmt := range []string{"DELETE FROM offers", "DELETE FROM products"} {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("clear snapshot: %w", err)
		}
	}

	insProduct, err := tx.PrepareContext(ctx, `
		INSERT INTO products (product_id, brand, model, product_name, category, specifications_json, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insProduct.Close()

	insOffer, err := tx.PrepareContext(ctx, `
		INSERT INTO offers (product_id, source, price, currency, condition, seller_type, url, scraped_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return err
	}
	defer insOffer.Close()

	offers := 0
	for _, p := range products {
		specs, err := json.Marshal(p.Specifications)
		if err != nil {
			return fmt.Errorf("marshal specifications of %s: %w", p.ProductID, err)
		}
		if _, err := insProduct.ExecContext(ctx, p.ProductID, p.Brand, p.Model, p.ProductName, p.Category,
			string(specs), p.Metadata.CreatedAt.Format(time.RFC3339), p.Metadata.LastUpdated.Format(time.RFC3339)); err != nil {
			return fmt.Errorf("insert product %s: %w", p.ProductID, err)
		}
		for _, o := range p.Offers {
			if _, err := insOffer.ExecContext(ctx, p.ProductID, string(o.Source), o.Price, o.Currency,
				string(o.Condition), o.SellerType, o.URL, o.ScrapedAt); err != nil {
				return fmt.Errorf("insert offer of %s: %w", p.ProductID, err)
			}
			offers++
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	w.logger.Info("store.snapshot_written",
		zap.String("path", w.path),
		zap.Int("products", len(products)),
		zap.Int("offers", offers))
	return nil
}
