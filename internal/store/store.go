package store

import (
	"context"
	"errors"
	"time"

	"zaypos/backend/internal/domain"
)

var (
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrValidation        = errors.New("validation failed")
)

// Repository is the catalog/ledger collaborator boundary. Implementations
// must keep CreateSale atomic (header plus items as one logical unit) and
// DecrementStock all-or-nothing across its lines.
type Repository interface {
	ListProducts(ctx context.Context) ([]domain.Product, error)
	GetProduct(ctx context.Context, id string) (*domain.Product, error)
	UpsertProduct(ctx context.Context, req domain.ProductUpsertRequest) (*domain.Product, error)
	SoftDeleteProduct(ctx context.Context, id string) error
	DecrementStock(ctx context.Context, lines []domain.StockDecrement) error
	CreateSale(ctx context.Context, sale domain.Sale) (*domain.Sale, error)
	ListSales(ctx context.Context, from, to *time.Time) ([]domain.Sale, error)
	CreateUser(ctx context.Context, user domain.UserAccount) error
	ListUsers(ctx context.Context) ([]domain.UserAccount, error)
	UpdateUserPassword(ctx context.Context, username string, password string) error
}
