package ordering

import (
	"fmt"
	"strings"

	"voiceorder/internal/session"
)

// Merge appends added to existing, folding lines of the same item variant
// into one: quantities add and original texts join with ", ".
func Merge(existing, added []session.OrderLine) []session.OrderLine {
	out := make([]session.OrderLine, 0, len(existing)+len(added))
	out = append(out, existing...)
next:
	for _, a := range added {
		for i := range out {
			if out[i].SameItem(a) {
				out[i].Quantity += a.Quantity
				out[i].OriginalText = joinOriginal(out[i].OriginalText, a.OriginalText)
				continue next
			}
		}
		out = append(out, a)
	}
	return out
}

func joinOriginal(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + ", " + b
	}
}

// Totals returns the item count and price of lines.
func Totals(lines []session.OrderLine) (items, price int) {
	for _, l := range lines {
		items += l.Quantity
		price += l.Subtotal()
	}
	return items, price
}

func setOrders(d *session.Data, lines []session.OrderLine) {
	d.Orders = lines
	d.TotalItems, d.TotalPrice = Totals(lines)
}

// Summary renders "'아이스 아메리카노' 2개, '라떼' 1개".
func Summary(lines []session.OrderLine) string {
	parts := make([]string, len(lines))
	for i, l := range lines {
		parts[i] = fmt.Sprintf("'%s' %d개", l.DisplayName(), l.Quantity)
	}
	return strings.Join(parts, ", ")
}

// QuantityChange is a line whose quantity differs between two orders.
type QuantityChange struct {
	Line session.OrderLine
	From int
	To   int
}

// ChangeSet is the difference between two order lists, keyed by item variant.
type ChangeSet struct {
	Added   []session.OrderLine
	Removed []session.OrderLine
	Changed []QuantityChange
}

// HasChanges reports whether anything differs.
func (c ChangeSet) HasChanges() bool {
	return len(c.Added)+len(c.Removed)+len(c.Changed) > 0
}

// Message renders the change set in Korean.
func (c ChangeSet) Message() string {
	if !c.HasChanges() {
		return "변경사항이 없습니다."
	}
	var parts []string
	if len(c.Added) > 0 {
		parts = append(parts, "추가: "+Summary(c.Added))
	}
	if len(c.Removed) > 0 {
		names := make([]string, len(c.Removed))
		for i, l := range c.Removed {
			names[i] = fmt.Sprintf("'%s'", l.DisplayName())
		}
		parts = append(parts, "삭제: "+strings.Join(names, ", "))
	}
	if len(c.Changed) > 0 {
		qs := make([]string, len(c.Changed))
		for i, ch := range c.Changed {
			qs[i] = fmt.Sprintf("'%s' %d개 → %d개", ch.Line.DisplayName(), ch.From, ch.To)
		}
		parts = append(parts, "수량 변경: "+strings.Join(qs, ", "))
	}
	return "주문이 변경되었습니다. " + strings.Join(parts, " / ")
}

// Diff compares old and updated order lists.
func Diff(old, updated []session.OrderLine) ChangeSet {
	var c ChangeSet
	for _, u := range updated {
		i := indexOf(old, u)
		switch {
		case i < 0:
			c.Added = append(c.Added, u)
		case old[i].Quantity != u.Quantity:
			c.Changed = append(c.Changed, QuantityChange{Line: u, From: old[i].Quantity, To: u.Quantity})
		}
	}
	for _, o := range old {
		if indexOf(updated, o) < 0 {
			c.Removed = append(c.Removed, o)
		}
	}
	return c
}

func indexOf(lines []session.OrderLine, l session.OrderLine) int {
	for i := range lines {
		if lines[i].SameItem(l) {
			return i
		}
	}
	return -1
}
