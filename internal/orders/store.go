package orders

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/joao-fontenele/burgerverse/internal/domain"
)

var (
	ErrProductNotFound = errors.New("product not found")
	ErrOrderNotFound   = errors.New("order not found")
	ErrEmptyCart       = errors.New("cannot checkout an empty cart")
	ErrOrderNotPending = errors.New("order is no longer pending")
	ErrInvalidQuantity = errors.New("quantity must be between 1 and 99")
	ErrNoActiveCart    = errors.New("no active cart")
	ErrTotalTooLarge   = errors.New("order total exceeds the maximum allowed")
)

// Store is the persistence boundary of the order aggregate. Lookups return
// nil, nil when nothing matches.
type Store interface {
	// WithinTx runs fn in one transaction, committing only when fn returns nil.
	WithinTx(ctx context.Context, fn func(tx Tx) error) error
	GetOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindPendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
}

// Tx holds row locks on every order it returns until the transaction ends.
type Tx interface {
	GetOrCreatePendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	LockPendingOrder(ctx context.Context, userID uuid.UUID) (*domain.Order, error)
	LockOrder(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindItem(ctx context.Context, orderID, productID uuid.UUID) (*domain.OrderItem, error)
	InsertItem(ctx context.Context, item *domain.OrderItem) error
	UpdateItemQuantity(ctx context.Context, itemID uuid.UUID, quantity int) error
	DeleteItems(ctx context.Context, orderID, productID uuid.UUID) (int64, error)
	ListItems(ctx context.Context, orderID uuid.UUID) ([]domain.OrderItem, error)
	UpdateTotal(ctx context.Context, orderID uuid.UUID, total decimal.Decimal) error
	UpdateStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error
}

type ProductFinder interface {
	GetProduct(ctx context.Context, id uuid.UUID) (*domain.Product, error)
}
