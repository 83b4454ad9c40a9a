// Package cart accumulates distribution line items on the client side,
// validated against a snapshot of the inventory. Snapshot checks give the
// operator cheap early rejection; the server re-validates against live stock
// on submit and is the only authority that gates the actual mutation.
package cart

import (
	"errors"
	"fmt"

	"medistock/m/domain"
)

var (
	// ErrInvalidQuantity is returned for a requested quantity below 1.
	ErrInvalidQuantity = errors.New("quantity must be at least 1")
	// ErrUnknownMedicine is returned when a medicine id does not resolve
	// against the inventory snapshot.
	ErrUnknownMedicine = errors.New("unknown medicine")
	// ErrInsufficientStock is returned when the cumulative requested quantity
	// exceeds the snapshot stock.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrNoStaffSelected is returned on submit without a bound staff identity.
	ErrNoStaffSelected = errors.New("no staff member selected")
	// ErrEmptyCart is returned on submit with no line items.
	ErrEmptyCart = errors.New("cart has no medicines")
)

// Line is one pending (medicine, quantity) request.
type Line struct {
	MedicineID string
	Quantity   int64
}

// Cart holds the pending line items of one distribution, keyed by medicine id
// (a repeated add merges quantities), plus an optionally bound staff identity.
type Cart struct {
	snapshot []domain.Medicine
	byID     map[string]domain.Medicine
	order    []string
	lines    map[string]int64
	staff    *domain.StaffUser
}

// New builds an empty cart over the given inventory snapshot.
func New(snapshot []domain.Medicine) *Cart {
	byID := make(map[string]domain.Medicine, len(snapshot))
	for _, m := range snapshot {
		byID[m.ID] = m
	}
	return &Cart{
		snapshot: snapshot,
		byID:     byID,
		lines:    make(map[string]int64),
	}
}

// Candidates returns the snapshot medicines eligible for selection: in stock
// and not soft-deleted, in snapshot order.
func (c *Cart) Candidates() []domain.Medicine {
	var out []domain.Medicine
	for _, m := range c.snapshot {
		if m.Stock > 0 && !m.Deleted {
			out = append(out, m)
		}
	}
	return out
}

// AddLine merges the requested quantity into the line for the given medicine,
// creating the line if needed. The cart is left unchanged on error.
func (c *Cart) AddLine(medicineID string, quantity int64) error {
	if quantity < 1 {
		return fmt.Errorf("%w: got %d", ErrInvalidQuantity, quantity)
	}
	m, ok := c.byID[medicineID]
	if !ok || m.Deleted {
		return fmt.Errorf("%w: %s", ErrUnknownMedicine, medicineID)
	}
	total := c.lines[medicineID] + quantity
	if total > m.Stock {
		return fmt.Errorf("%w: %s has %d in stock, %d requested", ErrInsufficientStock, m.NomCommercial, m.Stock, total)
	}
	if _, exists := c.lines[medicineID]; !exists {
		c.order = append(c.order, medicineID)
	}
	c.lines[medicineID] = total
	return nil
}

// RemoveLine drops the line for the given medicine. Removing an absent line
// is a no-op.
func (c *Cart) RemoveLine(medicineID string) {
	if _, exists := c.lines[medicineID]; !exists {
		return
	}
	delete(c.lines, medicineID)
	for i, id := range c.order {
		if id == medicineID {
			c.order = append(c.order[:i], c.order[i+1:]...)
			break
		}
	}
}

// BindStaff attaches the recipient identity, replacing any previous one so
// the operator can re-scan a different card.
func (c *Cart) BindStaff(staff domain.StaffUser) {
	c.staff = &staff
}

// Staff returns the bound recipient, or nil.
func (c *Cart) Staff() *domain.StaffUser {
	return c.staff
}

// Lines returns the pending line items in insertion order.
func (c *Cart) Lines() []Line {
	out := make([]Line, 0, len(c.order))
	for _, id := range c.order {
		out = append(out, Line{MedicineID: id, Quantity: c.lines[id]})
	}
	return out
}

// Clear empties all lines and unbinds the staff identity. The snapshot is
// kept: the cart can be refilled without refetching the inventory.
func (c *Cart) Clear() {
	c.lines = make(map[string]int64)
	c.order = nil
	c.staff = nil
}

// Request materializes the submit payload for the distribution endpoint.
func (c *Cart) Request() (domain.DistributeRequest, error) {
	if c.staff == nil {
		return domain.DistributeRequest{}, ErrNoStaffSelected
	}
	if len(c.order) == 0 {
		return domain.DistributeRequest{}, ErrEmptyCart
	}
	items := make([]domain.DistributionItem, 0, len(c.order))
	for _, id := range c.order {
		items = append(items, domain.DistributionItem{ID: id, Quantity: c.lines[id]})
	}
	return domain.DistributeRequest{StaffUser: *c.staff, Medicines: items}, nil
}
