package ordering

import (
	"context"
	"fmt"
	"sync"
	"time"

	"voiceorder/internal/catalog"
	"voiceorder/internal/session"
)

// FinalizedOrder is what a completed conversation hands to the ledger.
type FinalizedOrder struct {
	SessionID     string
	Lines         []session.OrderLine
	TotalPrice    int
	PackagingType catalog.PackagingType
	PhoneNumber   string // empty when the customer declined
	CreatedAt     time.Time
}

// Ledger persists finalized orders and returns their id.
type Ledger interface {
	SaveOrder(ctx context.Context, order FinalizedOrder) (int64, error)
}

// MemoryLedger keeps orders in memory.
type MemoryLedger struct {
	mu     sync.Mutex
	orders []FinalizedOrder
	fail   error
}

// NewMemoryLedger returns an empty ledger.
func NewMemoryLedger() *MemoryLedger { return &MemoryLedger{} }

// FailWith makes SaveOrder return err until cleared with nil.
func (l *MemoryLedger) FailWith(err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fail = err
}

func (l *MemoryLedger) SaveOrder(ctx context.Context, order FinalizedOrder) (int64, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fail != nil {
		return 0, l.fail
	}
	if len(order.Lines) == 0 {
		return 0, fmt.Errorf("order has no lines")
	}
	order.Lines = append([]session.OrderLine(nil), order.Lines...)
	l.orders = append(l.orders, order)
	return int64(len(l.orders)), nil
}

// Orders returns a copy of everything saved so far, in id order.
func (l *MemoryLedger) Orders() []FinalizedOrder {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]FinalizedOrder(nil), l.orders...)
}
