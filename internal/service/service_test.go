package service

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"zaypos/backend/internal/cache"
	"zaypos/backend/internal/checkout"
	"zaypos/backend/internal/domain"
	"zaypos/backend/internal/store"
	"zaypos/backend/internal/store/memory"
)

func newTestService(repo store.Repository) *Service {
	return New(repo, cache.NoopReportCache{}, time.Second, nil, zerolog.Nop())
}

func adminCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "admin", Role: "admin"})
}

func cashierCtx() context.Context {
	return WithActor(context.Background(), domain.Actor{Username: "cashier", Role: "cashier"})
}

func TestCheckoutRecordsSaleAndDecrementsStock(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := cashierCtx()

	// Instant noodles: buy 350, sell 500, stock 200.
	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:         []domain.CheckoutLine{{ProductID: "prod-noodles", Qty: 2}},
		CashTendered:  "1500",
		ChangeChannel: domain.ChangeViaKPay,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if sale.Total != 1000 {
		t.Fatalf("expected total 1000, got %d", sale.Total)
	}
	if sale.Profit != 300 {
		t.Fatalf("expected profit 300, got %d", sale.Profit)
	}
	if sale.PaymentType != domain.PaymentCashWithKPayChange {
		t.Fatalf("expected CASH_WITH_KPAY_CHANGE, got %s", sale.PaymentType)
	}
	if sale.NetCash != 1500 || sale.NetKPay != -500 {
		t.Fatalf("expected nets 1500/-500, got %d/%d", sale.NetCash, sale.NetKPay)
	}

	p, err := repo.GetProduct(ctx, "prod-noodles")
	if err != nil {
		t.Fatalf("get product: %v", err)
	}
	if p.Stock != 198 {
		t.Fatalf("expected stock 198 after checkout, got %d", p.Stock)
	}

	sales, err := svc.ListSales(ctx, nil, nil)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 || len(sales[0].Items) != 1 {
		t.Fatalf("expected one sale with one item, got %+v", sales)
	}
	if sales[0].Items[0].ProductName != "Instant Noodles" {
		t.Fatalf("expected product name joined into history, got %q", sales[0].Items[0].ProductName)
	}
}

func TestCheckoutInsufficientTenderRecordsNothing(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := cashierCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-noodles", Qty: 2}},
		CashTendered: "500",
	})
	if !errors.Is(err, checkout.ErrInsufficientTender) {
		t.Fatalf("expected insufficient tender error, got %v", err)
	}

	sales, err := svc.ListSales(ctx, nil, nil)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no recorded sales, got %d", len(sales))
	}

	p, _ := repo.GetProduct(ctx, "prod-noodles")
	if p.Stock != 200 {
		t.Fatalf("stock must be untouched, got %d", p.Stock)
	}
}

func TestCheckoutMalformedTenderCoercesToZero(t *testing.T) {
	svc := newTestService(memory.NewSeeded())

	_, err := svc.Checkout(cashierCtx(), domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-water", Qty: 1}},
		CashTendered: "12abc",
		KPayTendered: "-50",
	})
	if !errors.Is(err, checkout.ErrInsufficientTender) {
		t.Fatalf("malformed tender must settle as zero and be insufficient, got %v", err)
	}
}

func TestCheckoutRejectsUnknownAndOverStockItems(t *testing.T) {
	svc := newTestService(memory.NewSeeded())
	ctx := cashierCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-missing", Qty: 1}},
		CashTendered: "1000",
	})
	if !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected not found, got %v", err)
	}

	_, err = svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-oil-1l", Qty: 999}},
		CashTendered: "99999999",
	})
	if !errors.Is(err, store.ErrInsufficientStock) {
		t.Fatalf("expected insufficient stock, got %v", err)
	}
}

// failingDecrementRepo records sales normally but refuses every decrement.
type failingDecrementRepo struct {
	store.Repository
}

func (r failingDecrementRepo) DecrementStock(_ context.Context, _ []domain.StockDecrement) error {
	return store.ErrInsufficientStock
}

func TestDecrementFailureKeepsRecordedSale(t *testing.T) {
	repo := failingDecrementRepo{Repository: memory.NewSeeded()}
	svc := newTestService(repo)
	ctx := cashierCtx()

	sale, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-egg", Qty: 4}},
		CashTendered: "1000",
	})
	if err != nil {
		t.Fatalf("checkout must succeed even when decrement fails: %v", err)
	}
	if sale == nil || sale.ID == "" {
		t.Fatalf("expected a recorded sale, got %+v", sale)
	}

	sales, err := svc.ListSales(ctx, nil, nil)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("sale must stay recorded after decrement failure, got %d sales", len(sales))
	}
}

func TestPreviewHasNoSideEffects(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := cashierCtx()

	out, err := svc.Preview(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-noodles", Qty: 2}},
		CashTendered: "600",
		KPayTendered: "500",
	})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if out.Change != 100 || out.PaymentType != domain.PaymentMixed {
		t.Fatalf("unexpected preview outcome: %+v", out)
	}
	if out.NetCash != 500 || out.NetKPay != 500 {
		t.Fatalf("expected change out of cash drawer, got nets %d/%d", out.NetCash, out.NetKPay)
	}

	sales, _ := svc.ListSales(ctx, nil, nil)
	if len(sales) != 0 {
		t.Fatalf("preview must not record sales")
	}
	p, _ := repo.GetProduct(ctx, "prod-noodles")
	if p.Stock != 200 {
		t.Fatalf("preview must not touch stock, got %d", p.Stock)
	}
}

func TestPreviewDefaultsChangeChannelToLargerTender(t *testing.T) {
	svc := newTestService(memory.NewSeeded())

	out, err := svc.Preview(cashierCtx(), domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-noodles", Qty: 2}},
		CashTendered: "300",
		KPayTendered: "1200",
	})
	if err != nil {
		t.Fatalf("preview failed: %v", err)
	}
	if out.ChangeChannel != domain.ChangeViaKPay {
		t.Fatalf("expected change to default to the larger tender, got %s", out.ChangeChannel)
	}
	if out.NetCash != 300 || out.NetKPay != 700 {
		t.Fatalf("expected legacy split 300/700, got %d/%d", out.NetCash, out.NetKPay)
	}
}

func TestCatalogWritesRequireAdmin(t *testing.T) {
	svc := newTestService(memory.NewSeeded())

	name := "New Item"
	price := domain.Money(100)
	_, err := svc.UpsertProduct(cashierCtx(), domain.ProductUpsertRequest{Name: &name, SellPrice: &price})
	if err == nil {
		t.Fatalf("cashier must not be able to edit the catalog")
	}

	created, err := svc.UpsertProduct(adminCtx(), domain.ProductUpsertRequest{Name: &name, SellPrice: &price})
	if err != nil {
		t.Fatalf("admin upsert failed: %v", err)
	}
	if created.ID == "" {
		t.Fatalf("expected an assigned product id")
	}

	if err := svc.SoftDeleteProduct(cashierCtx(), created.ID); err == nil {
		t.Fatalf("cashier must not be able to delete products")
	}
	if err := svc.SoftDeleteProduct(adminCtx(), created.ID); err != nil {
		t.Fatalf("admin delete failed: %v", err)
	}
}

func TestSoftDeletedProductStillNamedInHistory(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := cashierCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-soap", Qty: 1}},
		CashTendered: "1000",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	if err := svc.SoftDeleteProduct(adminCtx(), "prod-soap"); err != nil {
		t.Fatalf("soft delete failed: %v", err)
	}

	products, _ := svc.ListProducts(ctx)
	for _, p := range products {
		if p.ID == "prod-soap" {
			t.Fatalf("soft-deleted product must not be listed")
		}
	}

	sales, _ := svc.ListSales(ctx, nil, nil)
	if len(sales) != 1 || sales[0].Items[0].ProductName != "Bath Soap" {
		t.Fatalf("history must keep resolving the deleted product's name, got %+v", sales)
	}
}

// countingCache tracks cache traffic while behaving like a one-slot cache.
type countingCache struct {
	stored      map[string]*domain.BalanceReport
	gets        atomic.Int64
	sets        atomic.Int64
	invalidates atomic.Int64
}

func newCountingCache() *countingCache {
	return &countingCache{stored: make(map[string]*domain.BalanceReport)}
}

func (c *countingCache) Get(_ context.Context, key string) (*domain.BalanceReport, bool, error) {
	c.gets.Add(1)
	rep, ok := c.stored[key]
	return rep, ok, nil
}

func (c *countingCache) Set(_ context.Context, key string, value *domain.BalanceReport, _ time.Duration) error {
	c.sets.Add(1)
	c.stored[key] = value
	return nil
}

func (c *countingCache) Invalidate(_ context.Context) error {
	c.invalidates.Add(1)
	c.stored = make(map[string]*domain.BalanceReport)
	return nil
}

func TestBalanceReportUsesCacheAndCheckoutInvalidates(t *testing.T) {
	repo := memory.NewSeeded()
	reportCache := newCountingCache()
	svc := New(repo, reportCache, time.Minute, nil, zerolog.Nop())
	ctx := cashierCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:         []domain.CheckoutLine{{ProductID: "prod-noodles", Qty: 2}},
		CashTendered:  "1500",
		ChangeChannel: domain.ChangeViaKPay,
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}
	if reportCache.invalidates.Load() != 1 {
		t.Fatalf("checkout must invalidate the report cache, got %d", reportCache.invalidates.Load())
	}

	rep, err := svc.BalanceReport(ctx, nil, nil)
	if err != nil {
		t.Fatalf("balance report failed: %v", err)
	}
	if rep.Total != 1000 || rep.NetCash != 1500 || rep.NetKPay != -500 {
		t.Fatalf("unexpected report: %+v", rep)
	}
	if rep.NetCash+rep.NetKPay != rep.Total {
		t.Fatalf("net deltas must reconstitute the total kept")
	}
	if reportCache.sets.Load() != 1 {
		t.Fatalf("expected one cache write, got %d", reportCache.sets.Load())
	}

	again, err := svc.BalanceReport(ctx, nil, nil)
	if err != nil {
		t.Fatalf("second balance report failed: %v", err)
	}
	if again.Total != rep.Total {
		t.Fatalf("cached report differs: %+v vs %+v", again, rep)
	}
	if reportCache.sets.Load() != 1 {
		t.Fatalf("second read must come from cache, got %d writes", reportCache.sets.Load())
	}
}

func TestListSalesDateFilter(t *testing.T) {
	repo := memory.NewSeeded()
	svc := newTestService(repo)
	ctx := cashierCtx()

	_, err := svc.Checkout(ctx, domain.CheckoutRequest{
		Items:        []domain.CheckoutLine{{ProductID: "prod-water", Qty: 1}},
		CashTendered: "300",
	})
	if err != nil {
		t.Fatalf("checkout failed: %v", err)
	}

	past := time.Now().UTC().Add(-time.Hour)
	longPast := past.Add(-time.Hour)

	sales, err := svc.ListSales(ctx, &past, nil)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 1 {
		t.Fatalf("expected the sale inside the range, got %d", len(sales))
	}

	sales, err = svc.ListSales(ctx, &longPast, &past)
	if err != nil {
		t.Fatalf("list sales: %v", err)
	}
	if len(sales) != 0 {
		t.Fatalf("expected no sales in a past-only range, got %d", len(sales))
	}
}
