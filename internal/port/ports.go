// Package port defines the persistence boundaries consumed by the services.
// Implementations live in internal/repository; tests substitute in-memory
// fakes.
package port

import (
	"context"

	"github.com/google/uuid"

	"github.com/noah-isme/backend-shop/internal/domain"
)

// ItemStore reads and mutates catalog items. Reads done inside a transaction
// are point-in-time consistent with the stock decrements of that transaction.
type ItemStore interface {
	GetItem(ctx context.Context, id uuid.UUID) (domain.Item, error)
	ListItems(ctx context.Context, limit, offset int) ([]domain.Item, int64, error)
	CreateItem(ctx context.Context, item domain.Item) error
	UpdateItem(ctx context.Context, item domain.Item) error
	DeleteItem(ctx context.Context, id uuid.UUID) error

	// DecrementStock conditionally subtracts quantity from the item's available
	// stock. It returns domain.ErrInsufficientStock when the remaining stock is
	// below the requested quantity, leaving the row untouched.
	DecrementStock(ctx context.Context, id uuid.UUID, quantity int) error
}

// CartStore persists the per-user cart aggregate.
type CartStore interface {
	// GetCart returns the user's cart or domain.ErrCartNotFound.
	GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error)
	// EnsureCart returns the user's cart, creating an empty one on first access.
	EnsureCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error)
	// SaveCart replaces the stored lines and discount code with the aggregate's
	// current state.
	SaveCart(ctx context.Context, cart domain.Cart) error
	// ClearCart empties the user's cart. Idempotent.
	ClearCart(ctx context.Context, userID uuid.UUID) error
}

// DiscountStore is the discount code registry.
type DiscountStore interface {
	// GetByCode returns the code or domain.ErrDiscountNotFound.
	GetByCode(ctx context.Context, code string) (domain.DiscountCode, error)
	ListCodes(ctx context.Context) ([]domain.DiscountCode, error)
	CreateCode(ctx context.Context, code domain.DiscountCode) error
	UpdateCode(ctx context.Context, code domain.DiscountCode) error
	DeleteCode(ctx context.Context, id uuid.UUID) error
}

// SaleStore persists promotional sale prices for catalog items.
type SaleStore interface {
	// GetSale returns the sale or domain.ErrSaleNotFound.
	GetSale(ctx context.Context, id uuid.UUID) (domain.Sale, error)
	ListSales(ctx context.Context) ([]domain.Sale, error)
	// GetActiveSaleForItem returns the item's single active sale or
	// domain.ErrSaleNotFound.
	GetActiveSaleForItem(ctx context.Context, itemID uuid.UUID) (domain.Sale, error)
	// CreateSale inserts the sale; a second active sale for the same item
	// surfaces domain.ErrActiveSaleExists.
	CreateSale(ctx context.Context, sale domain.Sale) error
	UpdateSale(ctx context.Context, sale domain.Sale) error
	DeleteSale(ctx context.Context, id uuid.UUID) error
}

// OrderStore persists immutable order snapshots.
type OrderStore interface {
	CreateOrder(ctx context.Context, order domain.Order) error
	// GetOrder returns the order or domain.ErrOrderNotFound.
	GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error)
	ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error)
	ListOrders(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error)
	// UpdateOrderStatus transitions id from one status to another as a
	// compare-and-swap; a concurrent change surfaces domain.ErrInvalidStatusTransition.
	UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error
}

// Stores bundles the per-transaction store set handed to a WithinTx callback.
type Stores struct {
	Items     ItemStore
	Carts     CartStore
	Discounts DiscountStore
	Sales     SaleStore
	Orders    OrderStore
}

// TxRunner executes fn atomically: either every store mutation inside fn is
// committed or none of it is observable.
type TxRunner interface {
	WithinTx(ctx context.Context, fn func(s Stores) error) error
}
