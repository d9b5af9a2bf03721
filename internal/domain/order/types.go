// Package order models Amazon order history line items and the derived
// groupings used for charge matching.
//
// A single Amazon order can be billed to the card in several ways: one
// charge for the whole order, or one charge per shipment. Both views are
// precomputed as Groups so the matching engine can try each.
package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// GroupLevel identifies the granularity of a Group.
type GroupLevel string

const (
	// LevelOrder groups every item of an order, regardless of ship date.
	LevelOrder GroupLevel = "order"

	// LevelShipment groups an order's items by distinct ship date.
	LevelShipment GroupLevel = "shipment"
)

// LineItem is one purchased item from an order-history export.
// Line totals arrive with tax and shipping already allocated.
// Instances are immutable; a refreshed export produces new items.
type LineItem struct {
	OrderID   string
	Title     string
	UnitPrice decimal.Decimal
	Quantity  int
	LineTotal decimal.Decimal
	OrderDate time.Time
	ShipDate  *time.Time // nil for unshipped/digital items
	AccountID string
}

// Valid reports whether the item can participate in grouping.
// Invalid items are dropped (and counted), never coerced.
func (li LineItem) Valid() bool {
	if li.OrderID == "" {
		return false
	}
	if li.Quantity < 1 {
		return false
	}
	if li.LineTotal.IsNegative() {
		return false
	}
	if li.OrderDate.IsZero() {
		return false
	}
	return true
}

// Group is a set of line items treated as one billable unit.
type Group struct {
	OrderID   string
	Level     GroupLevel
	Items     []LineItem
	ShipDates []time.Time // distinct ship dates present, sorted; empty if unknown
	Total     decimal.Decimal
	OrderDate time.Time
}

// ShipDate returns the group's single ship date and true when exactly one
// distinct ship date is present. Shipment-level groups always have at most one.
func (g *Group) ShipDate() (time.Time, bool) {
	if len(g.ShipDates) != 1 {
		return time.Time{}, false
	}
	return g.ShipDates[0], true
}

/// BillableDate is the date the group would plausibly hit the card: the ship
// date when known, otherwise the order date.
func (g *Group) BillableDate() time.Time {
	if d, ok := g.ShipDate(); ok {
		return d
	}
	return g.OrderDate
}
