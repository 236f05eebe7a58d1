package store

import (
	"context"
	"database/sql"
	"fmt"

	"voiceorder/internal/catalog"
	"voiceorder/internal/logging"
)

// CatalogIndex is a catalog.Index over the menu_items and
// packaging_options tables, ranking rows by cosine distance in SQL.
type CatalogIndex struct {
	db *DB
}

var _ catalog.Index = (*CatalogIndex)(nil)

// NewCatalogIndex wraps db.
func NewCatalogIndex(db *DB) *CatalogIndex {
	return &CatalogIndex{db: db}
}

// UpsertMenu validates and writes entries with their vectors in one
// transaction.
func (c *CatalogIndex) UpsertMenu(ctx context.Context, entries []catalog.Entry, vecs [][]float32) error {
	if len(entries) != len(vecs) {
		return fmt.Errorf("upsert menu: %d entries but %d vectors", len(entries), len(vecs))
	}
	for _, e := range entries {
		if err := e.Validate(); err != nil {
			return err
		}
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO menu_items (id, name, price, popular, temp, embedding)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(id) DO UPDATE SET
				name = excluded.name, price = excluded.price, popular = excluded.popular,
				temp = excluded.temp, embedding = excluded.embedding`)
		if err != nil {
			return err
		}
		defer stmt.Close()
		for i, e := range entries {
			if _, err := stmt.ExecContext(ctx, e.ID, e.Name, e.Price, boolInt(e.Popular), string(e.Temperature), encodeVector(vecs[i])); err != nil {
				return fmt.Errorf("upsert menu %d (%s): %w", e.ID, e.Name, err)
			}
		}
		return nil
	})
}

// UpsertPackaging validates and writes packaging phrases.
func (c *CatalogIndex) UpsertPackaging(ctx context.Context, options []catalog.PackagingOption, vecs [][]float32) error {
	if len(options) != len(vecs) {
		return fmt.Errorf("upsert packaging: %d options but %d vectors", len(options), len(vecs))
	}
	for _, o := range options {
		if err := o.Validate(); err != nil {
			return err
		}
	}
	return c.inTx(ctx, func(tx *sql.Tx) error {
		for i, o := range options {
			if _, err := tx.ExecContext(ctx, `
				INSERT INTO packaging_options (id, phrase, type, embedding) VALUES (?, ?, ?, ?)
				ON CONFLICT(id) DO UPDATE SET phrase = excluded.phrase, type = excluded.type, embedding = excluded.embedding`,
				o.ID, o.Phrase, string(o.Type), encodeVector(vecs[i])); err != nil {
				return fmt.Errorf("upsert packaging %d: %w", o.ID, err)
			}
		}
		return nil
	})
}

func (c *CatalogIndex) inTx(ctx context.Context, fn func(*sql.Tx) error) error {
	tx, err := c.db.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if err := fn(tx); err != nil {
		tx.Rollback()
		return err
	}
	return tx.Commit()
}

// SearchMenu returns rows ordered by cosine similarity, at or above the
// score floor, optionally restricted to one temperature.
func (c *CatalogIndex) SearchMenu(ctx context.Context, vec []float32, opts catalog.SearchOptions) ([]catalog.MenuHit, error) {
	timer := logging.StartTimer(logging.CategoryStore, "CatalogIndex.SearchMenu")
	defer timer.Stop()

	limit := opts.Limit
	if limit <= 0 {
		limit = 5
	}
	query := fmt.Sprintf(`
		SELECT id, name, price, popular, temp, score FROM (
			SELECT id, name, price, popular, temp, 1 - %s(embedding, ?) AS score
			FROM menu_items
			WHERE ? = '' OR temp = ?
		)
		WHERE score >= ?
		ORDER BY score DESC, id ASC
		LIMIT ?`, distanceFunc)
	temp := string(opts.Temperature)
	rows, err := c.db.db.QueryContext(ctx, query, encodeVector(vec), temp, temp, opts.ScoreFloor, limit)
	if err != nil {
		logging.StoreError("menu search failed: %v", err)
		return nil, fmt.Errorf("menu search: %w", err)
	}
	defer rows.Close()

	var hits []catalog.MenuHit
	for rows.Next() {
		e, score, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		if err := e.Validate(); err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping malformed menu row: %v", err)
			continue
		}
		hits = append(hits, catalog.MenuHit{Entry: e, Score: score})
	}
	return hits, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(r rowScanner) (catalog.Entry, float64, error) {
	var e catalog.Entry
	var popular int
	var temp string
	var score float64
	if err := r.Scan(&e.ID, &e.Name, &e.Price, &popular, &temp, &score); err != nil {
		return e, 0, fmt.Errorf("scan menu row: %w", err)
	}
	e.Popular = popular != 0
	e.Temperature = catalog.Temperature(temp)
	return e, score, nil
}

// SearchPackaging returns the nearest packaging phrases.
func (c *CatalogIndex) SearchPackaging(ctx context.Context, vec []float32, limit int) ([]catalog.PackagingHit, error) {
	if limit <= 0 {
		limit = 3
	}
	query := fmt.Sprintf(`
		SELECT id, phrase, type, 1 - %s(embedding, ?) AS score
		FROM packaging_options
		ORDER BY score DESC, id ASC
		LIMIT ?`, distanceFunc)
	rows, err := c.db.db.QueryContext(ctx, query, encodeVector(vec), limit)
	if err != nil {
		logging.StoreError("packaging search failed: %v", err)
		return nil, fmt.Errorf("packaging search: %w", err)
	}
	defer rows.Close()

	var hits []catalog.PackagingHit
	for rows.Next() {
		var h catalog.PackagingHit
		var typ string
		if err := rows.Scan(&h.Option.ID, &h.Option.Phrase, &typ, &h.Score); err != nil {
			return nil, fmt.Errorf("scan packaging row: %w", err)
		}
		h.Option.Type = catalog.PackagingType(typ)
		if err := h.Option.Validate(); err != nil {
			logging.Get(logging.CategoryStore).Warn("skipping malformed packaging row: %v", err)
			continue
		}
		hits = append(hits, h)
	}
	return hits, rows.Err()
}

// MenuByName returns every variant stored under name, by id.
func (c *CatalogIndex) MenuByName(ctx context.Context, name string) ([]catalog.Entry, error) {
	rows, err := c.db.db.QueryContext(ctx,
		`SELECT id, name, price, popular, temp, 0.0 FROM menu_items WHERE name = ? ORDER BY id`, name)
	if err != nil {
		return nil, fmt.Errorf("menu by name: %w", err)
	}
	defer rows.Close()

	var out []catalog.Entry
	for rows.Next() {
		e, _, err := scanEntry(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

// Counts returns the number of menu variants and packaging phrases.
func (c *CatalogIndex) Counts(ctx context.Context) (menu, packaging int, err error) {
	if err = c.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM menu_items").Scan(&menu); err != nil {
		return 0, 0, err
	}
	if err = c.db.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM packaging_options").Scan(&packaging); err != nil {
		return 0, 0, err
	}
	return menu, packaging, nil
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
