package order

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func day(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func dayPtr(y int, m time.Month, d int) *time.Time {
	t := day(y, m, d)
	return &t
}

func makeItem(orderID, title, lineTotal string, orderDate time.Time, shipDate *time.Time) LineItem {
	total := decimal.RequireFromString(lineTotal)
	return LineItem{
		OrderID:   orderID,
		Title:     title,
		UnitPrice: total,
		Quantity:  1,
		LineTotal: total,
		OrderDate: orderDate,
		ShipDate:  shipDate,
		AccountID: "erick",
	}
}

func TestBuildIndex_OrderAndShipmentLevels(t *testing.T) {
	// Arrange - one order shipping on two days
	items := []LineItem{
		makeItem("111-001", "usb cable", "12.99", day(2024, 7, 10), dayPtr(2024, 7, 11)),
		makeItem("111-001", "charger", "24.50", day(2024, 7, 10), dayPtr(2024, 7, 11)),
		makeItem("111-001", "monitor", "189.99", day(2024, 7, 10), dayPtr(2024, 7, 13)),
	}

	// Act
	idx := BuildIndex(items)

	// Assert - order level holds everything
	g, ok := idx.OrderGroup("111-001")
	require.True(t, ok)
	assert.Equal(t, LevelOrder, g.Level)
	assert.Len(t, g.Items, 3)
	assert.True(t, g.Total.Equal(decimal.RequireFromString("227.48")), "got %s", g.Total)
	assert.Len(t, g.ShipDates, 2)

	// Assert - shipment level splits by ship date
	shipments := idx.ShipmentGroups("111-001")
	require.Len(t, shipments, 2)
	assert.True(t, shipments[0].Total.Equal(decimal.RequireFromString("37.49")), "got %s", shipments[0].Total)
	assert.True(t, shipments[1].Total.Equal(decimal.RequireFromString("189.99")), "got %s", shipments[1].Total)
}

func TestBuildIndex_TotalsExactForAnyPermutation(t *testing.T) {
	a := makeItem("111-002", "a", "0.01", day(2024, 7, 1), dayPtr(2024, 7, 2))
	b := makeItem("111-002", "b", "19.99", day(2024, 7, 1), dayPtr(2024, 7, 2))
	c := makeItem("111-002", "c", "105.00", day(2024, 7, 1), dayPtr(2024, 7, 2))

	permutations := [][]LineItem{
		{a, b, c}, {a, c, b}, {b, a, c}, {b, c, a}, {c, a, b}, {c, b, a},
	}

	want := decimal.RequireFromString("125.00")
	for _, perm := range permutations {
		idx := BuildIndex(perm)
		g, ok := idx.OrderGroup("111-002")
		require.True(t, ok)
		assert.True(t, g.Total.Equal(want), "permutation gave %s", g.Total)
	}
}

func TestBuildIndex_SingleShipmentKeepsBothLevels(t *testing.T) {
	items := []LineItem{
		makeItem("111-003", "book", "15.00", day(2024, 7, 5), dayPtr(2024, 7, 6)),
	}

	idx := BuildIndex(items)

	orderGroup, ok := idx.OrderGroup("111-003")
	require.True(t, ok)
	shipments := idx.ShipmentGroups("111-003")
	require.Len(t, shipments, 1)

	assert.True(t, orderGroup.Total.Equal(shipments[0].Total))
	assert.Equal(t, LevelOrder, orderGroup.Level)
	assert.Equal(t, LevelShipment, shipments[0].Level)
}

func TestBuildIndex_NilShipDateOwnBucket(t *testing.T) {
	items := []LineItem{
		makeItem("111-004", "ebook", "9.99", day(2024, 7, 5), nil),
		makeItem("111-004", "paperback", "14.99", day(2024, 7, 5), dayPtr(2024, 7, 7)),
	}

	idx := BuildIndex(items)

	shipments := idx.ShipmentGroups("111-004")
	require.Len(t, shipments, 2)

	// The nil-ship-date bucket reports no ship date at all
	var unknown, known int
	for _, g := range shipments {
		if _, ok := g.ShipDate(); ok {
			known++
		} else {
			unknown++
		}
	}
	assert.Equal(t, 1, unknown)
	assert.Equal(t, 1, known)
}

func TestBuildIndex_DropsInvalidItems(t *testing.T) {
	missingOrderID := makeItem("", "orphan", "5.00", day(2024, 7, 1), nil)
	zeroQuantity := makeItem("111-005", "ghost", "5.00", day(2024, 7, 1), nil)
	zeroQuantity.Quantity = 0
	negativeTotal := makeItem("111-005", "refund", "-5.00", day(2024, 7, 1), nil)
	unparseableDate := makeItem("111-005", "no date", "5.00", time.Time{}, nil)
	good := makeItem("111-005", "keeper", "5.00", day(2024, 7, 1), nil)

	idx := BuildIndex([]LineItem{missingOrderID, zeroQuantity, negativeTotal, unparseableDate, good})

	assert.Equal(t, 4, idx.Dropped)
	g, ok := idx.OrderGroup("111-005")
	require.True(t, ok)
	assert.Len(t, g.Items, 1)
}

func TestBuildIndex_EmptyOrdersProduceNoGroups(t *testing.T) {
	idx := BuildIndex(nil)

	assert.Equal(t, 0, idx.OrderCount())
	assert.Empty(t, idx.OrderGroups())
	assert.Empty(t, idx.AllShipmentGroups())
}
