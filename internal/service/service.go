// Package service wires the settlement core to the repository, the report
// cache and the image store, and enforces role rules on catalog writes.
package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"zaypos/backend/internal/cache"
	"zaypos/backend/internal/cart"
	"zaypos/backend/internal/checkout"
	"zaypos/backend/internal/domain"
	"zaypos/backend/internal/imagestore"
	"zaypos/backend/internal/report"
	"zaypos/backend/internal/settlement"
	"zaypos/backend/internal/store"
)

type actorContextKey struct{}

func WithActor(ctx context.Context, actor domain.Actor) context.Context {
	return context.WithValue(ctx, actorContextKey{}, actor)
}

func ActorFromContext(ctx context.Context) (domain.Actor, bool) {
	actor, ok := ctx.Value(actorContextKey{}).(domain.Actor)
	return actor, ok
}

type Service struct {
	repo          store.Repository
	reportCache   cache.ReportCache
	reportTTL     time.Duration
	images        *imagestore.Store
	submitTimeout time.Duration
	logger        zerolog.Logger
}

func New(repo store.Repository, reportCache cache.ReportCache, reportTTL time.Duration, images *imagestore.Store, logger zerolog.Logger) *Service {
	if reportCache == nil {
		reportCache = cache.NoopReportCache{}
	}
	if reportTTL <= 0 {
		reportTTL = 30 * time.Second
	}

	return &Service{
		repo:          repo,
		reportCache:   reportCache,
		reportTTL:     reportTTL,
		images:        images,
		submitTimeout: 10 * time.Second,
		logger:        logger,
	}
}

func (s *Service) ListProducts(ctx context.Context) ([]domain.Product, error) {
	return s.repo.ListProducts(ctx)
}

func (s *Service) UpsertProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.Product, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return nil, fmt.Errorf("admin role required")
	}
	return s.repo.UpsertProduct(ctx, req)
}

func (s *Service) SoftDeleteProduct(ctx context.Context, id string) error {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return fmt.Errorf("admin role required")
	}
	return s.repo.SoftDeleteProduct(ctx, id)
}

func (s *Service) UploadProductImage(ctx context.Context, data []byte, ext string) (string, error) {
	actor, ok := ActorFromContext(ctx)
	if !ok || actor.Role != "admin" {
		return "", fmt.Errorf("admin role required")
	}
	if s.images == nil {
		return "", errors.New("image uploads are not configured")
	}
	return s.images.Save(data, ext)
}

// Preview settles a checkout request without touching anything. The register
// calls this on every tender edit to render change and the sufficiency gate.
func (s *Service) Preview(ctx context.Context, req domain.CheckoutRequest) (settlement.Outcome, error) {
	c, err := s.buildCart(ctx, req.Items)
	if err != nil {
		return settlement.Outcome{}, err
	}
	return settlement.Compute(s.settlementInput(c, req)), nil
}

// Checkout runs one full confirmation: build the cart, enter tender, confirm.
// Insufficient tender never reaches the repository.
func (s *Service) Checkout(ctx context.Context, req domain.CheckoutRequest) (*domain.Sale, error) {
	c, err := s.buildCart(ctx, req.Items)
	if err != nil {
		return nil, err
	}

	session := checkout.NewSession(c, s.submitTimeout)
	if err := session.Open(); err != nil {
		return nil, err
	}
	session.EnterCashTendered(req.CashTendered)
	session.EnterKPayTendered(req.KPayTendered)
	session.SelectChangeChannel(s.resolveChangeChannel(req))

	return session.Confirm(ctx, s)
}

// RecordSale persists a confirmed settlement. Stock decrement runs after the
// sale is recorded and is deliberately not part of the sale's atomicity: a
// decrement failure leaves the recorded sale in place and is surfaced as a
// warning, because the money has already changed hands at the counter.
func (s *Service) RecordSale(ctx context.Context, out settlement.Outcome, lines []cart.Line) (*domain.Sale, error) {
	if len(lines) == 0 {
		return nil, checkout.ErrEmptyCart
	}
	if !out.Sufficient {
		return nil, checkout.ErrInsufficientTender
	}

	var costBasis domain.Money
	items := make([]domain.SaleItem, 0, len(lines))
	decrements := make([]domain.StockDecrement, 0, len(lines))
	for _, line := range lines {
		costBasis += line.Product.BuyPrice * domain.Money(line.Qty)
		items = append(items, domain.SaleItem{
			ProductID: line.Product.ID,
			Qty:       line.Qty,
			Price:     line.Product.SellPrice,
		})
		decrements = append(decrements, domain.StockDecrement{ProductID: line.Product.ID, Qty: line.Qty})
	}

	sale := domain.Sale{
		Total:         out.TotalDue,
		Profit:        out.TotalDue - costBasis,
		PaymentType:   out.PaymentType,
		NetCash:       out.NetCash,
		NetKPay:       out.NetKPay,
		CashReceived:  out.CashTendered,
		KPayReceived:  out.KPayTendered,
		Change:        out.Change,
		ChangeChannel: out.ChangeChannel,
	}

	created, err := s.repo.CreateSale(ctx, sale)
	if err != nil {
		return nil, err
	}

	if err := s.repo.DecrementStock(ctx, decrements); err != nil {
		s.logger.Warn().
			Err(err).
			Str("sale_id", created.ID).
			Msg("sale recorded but stock decrement failed; adjust stock manually")
	}

	if err := s.reportCache.Invalidate(ctx); err != nil {
		s.logger.Warn().Err(err).Msg("report cache invalidation failed")
	}

	return created, nil
}

func (s *Service) ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error) {
	return s.repo.ListSales(ctx, from, to)
}

// BalanceReport nets the sales in range. Results are cached per range for a
// short TTL; every recorded sale invalidates the whole cache.
func (s *Service) BalanceReport(ctx context.Context, from, to *time.Time) (domain.BalanceReport, error) {
	key := reportCacheKey(from, to)

	if cached, ok, err := s.reportCache.Get(ctx, key); err == nil && ok {
		return *cached, nil
	} else if err != nil {
		s.logger.Warn().Err(err).Msg("report cache read failed")
	}

	sales, err := s.repo.ListSales(ctx, from, to)
	if err != nil {
		return domain.BalanceReport{}, err
	}

	rep := report.Build(sales, from, to)
	if err := s.reportCache.Set(ctx, key, &rep, s.reportTTL); err != nil {
		s.logger.Warn().Err(err).Msg("report cache write failed")
	}

	return rep, nil
}

func (s *Service) buildCart(ctx context.Context, items []domain.CheckoutLine) (*cart.Cart, error) {
	if len(items) == 0 {
		return nil, checkout.ErrEmptyCart
	}

	c := cart.New()
	for _, item := range items {
		if item.ProductID == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		p, err := s.repo.GetProduct(ctx, item.ProductID)
		if err != nil {
			return nil, err
		}
		if p.IsDeleted {
			return nil, fmt.Errorf("%w: product %s is no longer sold", store.ErrValidation, item.ProductID)
		}
		if p.Stock < item.Qty {
			return nil, fmt.Errorf("%w: product %s", store.ErrInsufficientStock, item.ProductID)
		}
		c.Add(*p)
		if item.Qty > 1 {
			c.AdjustQty(p.ID, item.Qty-1)
		}
	}
	return c, nil
}

func (s *Service) settlementInput(c *cart.Cart, req domain.CheckoutRequest) settlement.Input {
	return settlement.Input{
		TotalDue:      c.Total(),
		CashTendered:  domain.ParseMoney(req.CashTendered),
		KPayTendered:  domain.ParseMoney(req.KPayTendered),
		ChangeChannel: s.resolveChangeChannel(req),
	}
}

// resolveChangeChannel falls back to the larger tender when the register did
// not pick a channel, matching how older records split change.
func (s *Service) resolveChangeChannel(req domain.CheckoutRequest) domain.ChangeChannel {
	if req.ChangeChannel == domain.ChangeViaCash || req.ChangeChannel == domain.ChangeViaKPay {
		return req.ChangeChannel
	}
	return settlement.DefaultChangeChannel(domain.ParseMoney(req.CashTendered), domain.ParseMoney(req.KPayTendered))
}

func reportCacheKey(from, to *time.Time) string {
	fromKey, toKey := "all", "all"
	if from != nil {
		fromKey = from.UTC().Format("2006-01-02T15:04:05")
	}
	if to != nil {
		toKey = to.UTC().Format("2006-01-02T15:04:05")
	}
	return fromKey + ":" + toKey
}
