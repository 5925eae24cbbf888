package memory

import (
	"context"
	"log"
	"os"
	"slices"
	"strings"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"

	"zaypos/backend/internal/domain"
	"zaypos/backend/internal/store"
	"zaypos/backend/internal/xid"
)

// Store is the in-memory repository used for dev/demo mode and tests.
// Soft-deleted products stay in the map so historical sale lines keep
// resolving to a name.
type Store struct {
	mu              sync.RWMutex
	products        map[string]domain.Product
	salesByID       map[string]domain.Sale
	saleOrder       []string
	usersByUsername map[string]domain.UserAccount
}

// seedUsers builds the initial user accounts for dev/demo mode. Credentials
// come from SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD; hardcoded dev
// defaults are used with a warning when unset.
func seedUsers() map[string]domain.UserAccount {
	adminPwd := envOr("SEED_ADMIN_PASSWORD", "admin123")
	cashierPwd := envOr("SEED_CASHIER_PASSWORD", "cashier123")
	if os.Getenv("SEED_ADMIN_PASSWORD") == "" || os.Getenv("SEED_CASHIER_PASSWORD") == "" {
		log.Println("[memory-store] WARNING: using default dev credentials. Set SEED_ADMIN_PASSWORD and SEED_CASHIER_PASSWORD to override.")
	}

	now := time.Now().UTC()
	users := map[string]domain.UserAccount{}
	for _, u := range []struct {
		username string
		password string
		role     string
	}{
		{"admin", adminPwd, "admin"},
		{"cashier", cashierPwd, "cashier"},
	} {
		hash, err := bcrypt.GenerateFromPassword([]byte(u.password), bcrypt.DefaultCost)
		if err != nil {
			log.Fatalf("[memory-store] failed to hash seed password for %s: %v", u.username, err)
		}
		users[u.username] = domain.UserAccount{
			Username:  u.username,
			Password:  string(hash),
			Role:      u.role,
			Active:    true,
			CreatedAt: now,
		}
	}
	return users
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func New() *Store {
	return &Store{
		products:        make(map[string]domain.Product),
		salesByID:       make(map[string]domain.Sale),
		saleOrder:       make([]string, 0, 64),
		usersByUsername: seedUsers(),
	}
}

func NewSeeded() *Store {
	s := New()

	seed := []domain.Product{
		{ID: "prod-coffee-mix", Name: "Coffee Mix 3in1", BuyPrice: 250, SellPrice: 400, Stock: 120},
		{ID: "prod-tea-leaf", Name: "Laphet Tea Leaf Pack", BuyPrice: 1800, SellPrice: 2500, Stock: 40},
		{ID: "prod-noodles", Name: "Instant Noodles", BuyPrice: 350, SellPrice: 500, Stock: 200},
		{ID: "prod-water", Name: "Drinking Water 1L", BuyPrice: 200, SellPrice: 300, Stock: 150},
		{ID: "prod-energy", Name: "Energy Drink Can", BuyPrice: 550, SellPrice: 800, Stock: 60},
		{ID: "prod-soap", Name: "Bath Soap", BuyPrice: 700, SellPrice: 1000, Stock: 80},
		{ID: "prod-snack", Name: "Fried Bean Snack", BuyPrice: 300, SellPrice: 500, Stock: 90},
		{ID: "prod-rice-1kg", Name: "Paw San Rice 1kg", BuyPrice: 2200, SellPrice: 2800, Stock: 35},
		{ID: "prod-egg", Name: "Egg (Single)", BuyPrice: 180, SellPrice: 250, Stock: 300},
		{ID: "prod-oil-1l", Name: "Peanut Oil 1L", BuyPrice: 6500, SellPrice: 7500, Stock: 20},
	}
	for _, p := range seed {
		s.products[p.ID] = p
	}
	return s
}

func (s *Store) ListProducts(_ context.Context) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	products := make([]domain.Product, 0, len(s.products))
	for _, p := range s.products {
		if p.IsDeleted {
			continue
		}
		products = append(products, p)
	}

	slices.SortFunc(products, func(a, b domain.Product) int {
		return strings.Compare(a.Name, b.Name)
	})

	return products, nil
}

func (s *Store) GetProduct(_ context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	found := p
	return &found, nil
}

func (s *Store) UpsertProduct(_ context.Context, req domain.ProductUpsertRequest) (*domain.Product, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if req.ID == "" {
		product, err := buildNewProduct(req)
		if err != nil {
			return nil, err
		}
		product.ID = xid.New("prod")
		s.products[product.ID] = product
		created := product
		return &created, nil
	}

	existing, ok := s.products[req.ID]
	if !ok {
		return nil, store.ErrNotFound
	}
	updated, err := applyProductUpdate(existing, req)
	if err != nil {
		return nil, err
	}
	s.products[req.ID] = updated
	result := updated
	return &result, nil
}

func buildNewProduct(req domain.ProductUpsertRequest) (domain.Product, error) {
	var p domain.Product
	if req.Name == nil || strings.TrimSpace(*req.Name) == "" {
		return p, store.ErrValidation
	}
	if req.SellPrice == nil || *req.SellPrice < 1 {
		return p, store.ErrValidation
	}
	p.Name = strings.TrimSpace(*req.Name)
	p.SellPrice = *req.SellPrice
	if req.BuyPrice != nil {
		if *req.BuyPrice < 0 {
			return p, store.ErrValidation
		}
		p.BuyPrice = *req.BuyPrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return p, store.ErrValidation
		}
		p.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		p.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	return p, nil
}

func applyProductUpdate(existing domain.Product, req domain.ProductUpsertRequest) (domain.Product, error) {
	updated := existing
	if req.Name != nil {
		name := strings.TrimSpace(*req.Name)
		if name == "" {
			return updated, store.ErrValidation
		}
		updated.Name = name
	}
	if req.SellPrice != nil {
		if *req.SellPrice < 1 {
			return updated, store.ErrValidation
		}
		updated.SellPrice = *req.SellPrice
	}
	if req.BuyPrice != nil {
		if *req.BuyPrice < 0 {
			return updated, store.ErrValidation
		}
		updated.BuyPrice = *req.BuyPrice
	}
	if req.Stock != nil {
		if *req.Stock < 0 {
			return updated, store.ErrValidation
		}
		updated.Stock = *req.Stock
	}
	if req.ImageURL != nil {
		updated.ImageURL = strings.TrimSpace(*req.ImageURL)
	}
	return updated, nil
}

// SoftDeleteProduct hides the product from listings without removing it, so
// sale history keeps resolving. Idempotent.
func (s *Store) SoftDeleteProduct(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.products[id]
	if !ok {
		return store.ErrNotFound
	}
	p.IsDeleted = true
	s.products[id] = p
	return nil
}

// DecrementStock applies all lines or none. A line that would push stock
// below zero rejects the whole batch with ErrInsufficientStock.
func (s *Store) DecrementStock(_ context.Context, lines []domain.StockDecrement) error {
	if len(lines) == 0 {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, line := range lines {
		if line.Qty < 1 {
			return store.ErrValidation
		}
		p, ok := s.products[line.ProductID]
		if !ok {
			return store.ErrNotFound
		}
		if p.Stock < line.Qty {
			return store.ErrInsufficientStock
		}
	}
	for _, line := range lines {
		p := s.products[line.ProductID]
		p.Stock -= line.Qty
		s.products[line.ProductID] = p
	}
	return nil
}

func (s *Store) CreateSale(_ context.Context, sale domain.Sale) (*domain.Sale, error) {
	if len(sale.Items) == 0 {
		return nil, store.ErrValidation
	}
	// Change and channel are persisted together or not at all.
	if sale.Change > 0 && sale.ChangeChannel != domain.ChangeViaCash && sale.ChangeChannel != domain.ChangeViaKPay {
		return nil, store.ErrValidation
	}
	if sale.Change == 0 && sale.ChangeChannel != "" {
		return nil, store.ErrValidation
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if sale.ID == "" {
		sale.ID = xid.New("sale")
	}
	if sale.CreatedAt.IsZero() {
		sale.CreatedAt = time.Now().UTC()
	}

	items := make([]domain.SaleItem, len(sale.Items))
	for i, item := range sale.Items {
		if item.ProductID == "" || item.Qty < 1 {
			return nil, store.ErrValidation
		}
		items[i] = item
		items[i].ID = xid.New("item")
		items[i].SaleID = sale.ID
	}
	sale.Items = items

	s.salesByID[sale.ID] = sale
	s.saleOrder = append(s.saleOrder, sale.ID)

	created := cloneSale(sale)
	return &created, nil
}

func (s *Store) ListSales(_ context.Context, from, to *time.Time) ([]domain.Sale, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sales := make([]domain.Sale, 0, len(s.saleOrder))
	// Newest first.
	for i := len(s.saleOrder) - 1; i >= 0; i-- {
		sale := s.salesByID[s.saleOrder[i]]
		if from != nil && sale.CreatedAt.Before(*from) {
			continue
		}
		if to != nil && sale.CreatedAt.After(*to) {
			continue
		}
		withNames := cloneSale(sale)
		for j := range withNames.Items {
			if p, ok := s.products[withNames.Items[j].ProductID]; ok {
				withNames.Items[j].ProductName = p.Name
			}
		}
		sales = append(sales, withNames)
	}

	slices.SortStableFunc(sales, func(a, b domain.Sale) int {
		return b.CreatedAt.Compare(a.CreatedAt)
	})

	return sales, nil
}

func cloneSale(sale domain.Sale) domain.Sale {
	out := sale
	out.Items = make([]domain.SaleItem, len(sale.Items))
	copy(out.Items, sale.Items)
	return out
}

func (s *Store) CreateUser(_ context.Context, user domain.UserAccount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	username := strings.ToLower(strings.TrimSpace(user.Username))
	if username == "" {
		return store.ErrValidation
	}
	if _, exists := s.usersByUsername[username]; exists {
		return store.ErrValidation
	}
	user.Username = username
	s.usersByUsername[username] = user
	return nil
}

func (s *Store) ListUsers(_ context.Context) ([]domain.UserAccount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	users := make([]domain.UserAccount, 0, len(s.usersByUsername))
	for _, u := range s.usersByUsername {
		users = append(users, u)
	}
	slices.SortFunc(users, func(a, b domain.UserAccount) int {
		return strings.Compare(a.Username, b.Username)
	})
	return users, nil
}

func (s *Store) UpdateUserPassword(_ context.Context, username string, password string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.usersByUsername[username]
	if !ok {
		return store.ErrNotFound
	}
	user.Password = password
	s.usersByUsername[username] = user
	return nil
}
