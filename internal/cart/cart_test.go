package cart

import (
	"testing"

	"github.com/stretchr/testify/require"

	"zaypos/backend/internal/domain"
)

func tea() domain.Product {
	return domain.Product{ID: "prod-tea", Name: "Lipton Tea", BuyPrice: 700, SellPrice: 1000, Stock: 3}
}

func coffee() domain.Product {
	return domain.Product{ID: "prod-coffee", Name: "Coffee Mix", BuyPrice: 300, SellPrice: 500, Stock: 10}
}

func TestAddNeverExceedsStock(t *testing.T) {
	c := New()
	product := tea()

	for i := 0; i < 10; i++ {
		c.Add(product)
	}

	lines := c.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, 3, lines[0].Qty, "qty must be capped at stock")
}

func TestAddOutOfStockIsNoop(t *testing.T) {
	c := New()
	c.Add(domain.Product{ID: "prod-empty", Name: "Sold Out", SellPrice: 100, Stock: 0})
	require.True(t, c.IsEmpty())
}

func TestAdjustQtyBounds(t *testing.T) {
	c := New()
	c.Add(tea())

	c.AdjustQty("prod-tea", -1)
	require.Equal(t, 1, c.Lines()[0].Qty, "drop to zero must be a no-op, not a removal")

	c.AdjustQty("prod-tea", 5)
	require.Equal(t, 1, c.Lines()[0].Qty, "exceeding stock must be a no-op")

	c.AdjustQty("prod-tea", 2)
	require.Equal(t, 3, c.Lines()[0].Qty)

	c.AdjustQty("prod-missing", 1)
	require.Len(t, c.Lines(), 1)
}

func TestRemoveIsUnconditional(t *testing.T) {
	c := New()
	c.Add(tea())
	c.Add(coffee())

	c.Remove("prod-tea")

	lines := c.Lines()
	require.Len(t, lines, 1)
	require.Equal(t, "prod-coffee", lines[0].Product.ID)
}

func TestTotalAndCostBasis(t *testing.T) {
	c := New()
	c.Add(tea())
	c.Add(tea())
	c.Add(coffee())

	require.Equal(t, domain.Money(2500), c.Total())
	require.Equal(t, domain.Money(1700), c.CostBasis())
}

func TestClear(t *testing.T) {
	c := New()
	c.Add(coffee())
	c.Clear()
	require.True(t, c.IsEmpty())
	require.Equal(t, domain.Money(0), c.Total())
}
