package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"voiceorder/internal/catalog"
	"voiceorder/internal/logging"
	"voiceorder/internal/ordering"
	"voiceorder/internal/session"
)

// Ledger writes finalized orders to the orders and order_items tables.
type Ledger struct {
	db *DB
}

var _ ordering.Ledger = (*Ledger)(nil)

// NewLedger wraps db.
func NewLedger(db *DB) *Ledger { return &Ledger{db: db} }

// StoredOrder is a ledger row with its lines.
type StoredOrder struct {
	ID     int64
	Status string
	ordering.FinalizedOrder
}

// SaveOrder inserts the order and its lines in one transaction.
func (l *Ledger) SaveOrder(ctx context.Context, order ordering.FinalizedOrder) (int64, error) {
	timer := logging.StartTimer(logging.CategoryStore, "Ledger.SaveOrder")
	defer timer.Stop()

	if len(order.Lines) == 0 {
		return 0, fmt.Errorf("order has no lines")
	}
	if order.CreatedAt.IsZero() {
		order.CreatedAt = time.Now()
	}

	tx, err := l.db.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	var phone interface{}
	if order.PhoneNumber != "" {
		phone = order.PhoneNumber
	}
	res, err := tx.ExecContext(ctx, `
		INSERT INTO orders (session_id, phone_number, total_price, packaging_type, status, created_at)
		VALUES (?, ?, ?, ?, 'pending', ?)`,
		order.SessionID, phone, order.TotalPrice, string(order.PackagingType), order.CreatedAt.UTC().Format(time.RFC3339Nano))
	if err != nil {
		logging.StoreError("Failed to insert order for session %s: %v", order.SessionID, err)
		return 0, fmt.Errorf("insert order: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("order id: %w", err)
	}

	for _, line := range order.Lines {
		if _, err := tx.ExecContext(ctx, `
			INSERT INTO order_items (order_id, menu_id, menu_name, price, quantity, temp)
			VALUES (?, ?, ?, ?, ?, ?)`,
			id, line.CatalogID, line.MenuName, line.UnitPrice, line.Quantity, string(line.Temperature)); err != nil {
			return 0, fmt.Errorf("insert order item %s: %w", line.MenuName, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit order: %w", err)
	}

	logging.Store("saved order %d: %d lines, %d원, %s", id, len(order.Lines), order.TotalPrice, order.PackagingType)
	return id, nil
}

// ErrOrderNotFound is returned by GetOrder for unknown ids.
var ErrOrderNotFound = errors.New("order not found")

// GetOrder reads an order back with its lines.
func (l *Ledger) GetOrder(ctx context.Context, id int64) (*StoredOrder, error) {
	var (
		o         StoredOrder
		phone     sql.NullString
		pkg       string
		createdAt string
	)
	err := l.db.db.QueryRowContext(ctx, `
		SELECT id, session_id, phone_number, total_price, packaging_type, status, created_at
		FROM orders WHERE id = ?`, id).
		Scan(&o.ID, &o.SessionID, &phone, &o.TotalPrice, &pkg, &o.Status, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrOrderNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get order: %w", err)
	}
	o.PhoneNumber = phone.String
	o.PackagingType = catalog.PackagingType(pkg)
	if t, err := time.Parse(time.RFC3339Nano, createdAt); err == nil {
		o.CreatedAt = t
	}

	rows, err := l.db.db.QueryContext(ctx, `
		SELECT menu_id, menu_name, price, quantity, temp FROM order_items WHERE order_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("get order items: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var line session.OrderLine
		var temp string
		if err := rows.Scan(&line.CatalogID, &line.MenuName, &line.UnitPrice, &line.Quantity, &temp); err != nil {
			return nil, fmt.Errorf("scan order item: %w", err)
		}
		line.Temperature = catalog.Temperature(temp)
		o.Lines = append(o.Lines, line)
	}
	return &o, rows.Err()
}

// SetStatus updates an order's status.
func (l *Ledger) SetStatus(ctx context.Context, id int64, status string) error {
	res, err := l.db.db.ExecContext(ctx, `UPDATE orders SET status = ? WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("set order status: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrOrderNotFound
	}
	return nil
}
