package order

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"
)

// GroupIndex holds the two derived views of one account's order history.
// It is built once per run and read-only afterwards.
type GroupIndex struct {
	// orderLevel maps order id -> the whole-order group.
	orderLevel map[string]*Group

	// shipmentLevel maps order id -> one group per distinct ship date.
	shipmentLevel map[string][]*Group

	// Dropped counts line items excluded for failing validation.
	Dropped int
}

// BuildIndex partitions line items into order-level and shipment-level
// groups. Items that fail validation are dropped and counted, not fatal.
// Orders left with zero items (fully cancelled) produce no groups.
// Group totals are exact decimal sums of their items.
func BuildIndex(items []LineItem) *GroupIndex {
	idx := &GroupIndex{
		orderLevel:    make(map[string]*Group),
		shipmentLevel: make(map[string][]*Group),
	}

	byOrder := make(map[string][]LineItem)
	var orderIDs []string
	for _, li := range items {
		if !li.Valid() {
			idx.Dropped++
			continue
		}
		if _, seen := byOrder[li.OrderID]; !seen {
			orderIDs = append(orderIDs, li.OrderID)
		}
		byOrder[li.OrderID] = append(byOrder[li.OrderID], li)
	}

	// Deterministic group order regardless of input permutation.
	sort.Strings(orderIDs)

	for _, orderID := range orderIDs {
		orderItems := byOrder[orderID]

		idx.orderLevel[orderID] = buildGroup(orderID, LevelOrder, orderItems)

		// Partition by ship date; nil ship date is its own bucket and is
		// excluded from date-window comparisons downstream.
		byShipDay := make(map[string][]LineItem)
		var dayKeys []string
		for _, li := range orderItems {
			key := ""
			if li.ShipDate != nil {
				key = li.ShipDate.Format("2006-01-02")
			}
			if _, seen := byShipDay[key]; !seen {
				dayKeys = append(dayKeys, key)
			}
			byShipDay[key] = append(byShipDay[key], li)
		}
		sort.Strings(dayKeys)

		for _, key := range dayKeys {
			idx.shipmentLevel[orderID] = append(idx.shipmentLevel[orderID],
				buildGroup(orderID, LevelShipment, byShipDay[key]))
		}
	}

	return idx
}

func buildGroup(orderID string, level GroupLevel, items []LineItem) *Group {
	g := &Group{
		OrderID:   orderID,
		Level:     level,
		Items:     items,
		Total:     decimal.Zero,
		OrderDate: items[0].OrderDate,
	}

	seen := make(map[string]bool)
	for _, li := range items {
		g.Total = g.Total.Add(li.LineTotal)
		if li.ShipDate != nil {
			key := li.ShipDate.Format("2006-01-02")
			if !seen[key] {
				seen[key] = true
				g.ShipDates = append(g.ShipDates, dateOnly(*li.ShipDate))
			}
		}
	}
	sort.Slice(g.ShipDates, func(i, j int) bool { return g.ShipDates[i].Before(g.ShipDates[j]) })

	return g
}

// OrderGroup returns the order-level group for an order id.
func (idx *GroupIndex) OrderGroup(orderID string) (*Group, bool) {
	g, ok := idx.orderLevel[orderID]
	return g, ok
}

// ShipmentGroups returns the shipment-level groups for an order id.
func (idx *GroupIndex) ShipmentGroups(orderID string) []*Group {
	return idx.shipmentLevel[orderID]
}

// OrderGroups returns all order-level groups in deterministic order.
func (idx *GroupIndex) OrderGroups() []*Group {
	ids := make([]string, 0, len(idx.orderLevel))
	for id := range idx.orderLevel {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	groups := make([]*Group, 0, len(ids))
	for _, id := range ids {
		groups = append(groups, idx.orderLevel[id])
	}
	return groups
}

// AllShipmentGroups returns every shipment-level group in deterministic order.
func (idx *GroupIndex) AllShipmentGroups() []*Group {
	ids := make([]string, 0, len(idx.shipmentLevel))
	for id := range idx.shipmentLevel {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	var groups []*Group
	for _, id := range ids {
		groups = append(groups, idx.shipmentLevel[id]...)
	}
	return groups
}

// OrderCount returns the number of distinct orders indexed.
func (idx *GroupIndex) OrderCount() int {
	return len(idx.orderLevel)
}

func dateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
