// Package session holds the multi-turn ordering conversation: its data,
// the step machine that gates writes, and the stores that persist it.
package session

import (
	"fmt"
	"time"

	"voiceorder/internal/catalog"
)

// Step is the current stage of a conversation.
type Step string

const (
	StepStarted     Step = "started"
	StepPackaging   Step = "packaging"
	StepPhoneChoice Step = "phone_choice"
	StepPhoneInput  Step = "phone_input"
	StepCompleted   Step = "completed"
)

// Steps lists every step in conversation order.
var Steps = []Step{StepStarted, StepPackaging, StepPhoneChoice, StepPhoneInput, StepCompleted}

// transitions maps each step to the steps a single write may move it to.
// Moving back to packaging from the phone branch is the retry path.
var transitions = map[Step][]Step{
	StepStarted:     {StepPackaging},
	StepPackaging:   {StepPhoneChoice},
	StepPhoneChoice: {StepPhoneInput, StepCompleted, StepPackaging},
	StepPhoneInput:  {StepCompleted, StepPackaging},
	StepCompleted:   nil,
}

// Valid reports whether s is a known step.
func (s Step) Valid() bool {
	_, ok := transitions[s]
	return ok
}

// CanTransition reports whether a write may move a session from one step to
// another. Staying put is always allowed except once completed.
func CanTransition(from, to Step) bool {
	if from == StepCompleted {
		return false
	}
	if from == to {
		return true
	}
	for _, s := range transitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// OrderLine is one resolved item in the order.
type OrderLine struct {
	CatalogID    int64               `json:"menu_id"`
	MenuName     string              `json:"menu_item"`
	UnitPrice    int                 `json:"price"`
	Quantity     int                 `json:"quantity"`
	Temperature  catalog.Temperature `json:"temp"`
	OriginalText string              `json:"original_text"`
	Popular      bool                `json:"popular"`
}

// Subtotal is UnitPrice × Quantity.
func (l OrderLine) Subtotal() int { return l.UnitPrice * l.Quantity }

// DisplayName renders the line's name with its temperature label.
func (l OrderLine) DisplayName() string {
	if lbl := l.Temperature.Label(); lbl != "" {
		return lbl + " " + l.MenuName
	}
	return l.MenuName
}

// SameItem reports whether two lines are the same item variant.
func (l OrderLine) SameItem(o OrderLine) bool {
	return l.MenuName == o.MenuName && l.Temperature == o.Temperature
}

// Data is the mutable bag carried by a session.
type Data struct {
	Orders        []OrderLine           `json:"orders"`
	TotalItems    int                   `json:"total_items"`
	TotalPrice    int                   `json:"total_price"`
	PackagingType catalog.PackagingType `json:"packaging_type,omitempty"`
	WantsPhone    bool                  `json:"wants_phone,omitempty"`
	PhoneNumber   string                `json:"phone_number,omitempty"`
	OrderID       int64                 `json:"order_id,omitempty"`
	SavedAt       *time.Time            `json:"saved_at,omitempty"`
}

// Session is one conversation. Version increments on every successful write.
type Session struct {
	ID        string    `json:"session_id"`
	Step      Step      `json:"step"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
	ExpiresAt time.Time `json:"expires_at"`
	Version   int64     `json:"version"`
	Data      Data      `json:"data"`
}

// Clone returns a deep copy.
func (s *Session) Clone() *Session {
	c := *s
	if s.Data.Orders != nil {
		c.Data.Orders = append([]OrderLine(nil), s.Data.Orders...)
	}
	if s.Data.SavedAt != nil {
		t := *s.Data.SavedAt
		c.Data.SavedAt = &t
	}
	return &c
}

// Expired reports whether the session's TTL has lapsed at now.
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && !now.Before(s.ExpiresAt)
}

// Validate checks that the data written so far is legal for the step.
func (s *Session) Validate() error {
	d := s.Data
	switch s.Step {
	case StepStarted:
		if len(d.Orders) > 0 || d.PackagingType != "" {
			return fmt.Errorf("step %s carries order data", s.Step)
		}
	case StepPackaging:
		if len(d.Orders) == 0 {
			return fmt.Errorf("step %s requires at least one order line", s.Step)
		}
		if d.OrderID != 0 {
			return fmt.Errorf("step %s carries an order id", s.Step)
		}
	case StepPhoneChoice, StepPhoneInput:
		if len(d.Orders) == 0 || d.PackagingType == "" {
			return fmt.Errorf("step %s requires orders and packaging", s.Step)
		}
		if d.OrderID != 0 {
			return fmt.Errorf("step %s carries an order id", s.Step)
		}
	case StepCompleted:
		if d.OrderID == 0 {
			return fmt.Errorf("step %s requires an order id", s.Step)
		}
	default:
		return fmt.Errorf("unknown step %q", s.Step)
	}
	for i, l := range d.Orders {
		if l.Quantity < 0 {
			return fmt.Errorf("order line %d (%s): negative quantity", i, l.MenuName)
		}
	}
	return nil
}
