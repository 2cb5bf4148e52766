package domain

import "errors"

// Sentinel errors for caller-correctable failures. Handlers branch on these
// with errors.Is and translate them to stable API error codes.
var (
	// ErrInvalidQuantity is returned when a quantity or amount is zero or negative
	// where a positive value is required.
	ErrInvalidQuantity = errors.New("quantity must be positive")
	// ErrItemNotFound indicates the referenced catalog item does not exist.
	ErrItemNotFound = errors.New("item not found")
	// ErrItemNotInCart indicates the cart holds no line for the referenced item.
	ErrItemNotInCart = errors.New("item not in cart")
	// ErrInsufficientStock indicates available stock is below the requested quantity.
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrEmptyCart is returned when order placement is attempted with no cart lines.
	ErrEmptyCart = errors.New("cart is empty")
	// ErrDiscountNotFound indicates the discount code does not exist in the registry.
	ErrDiscountNotFound = errors.New("discount code not found")
	// ErrDiscountUnusable indicates the code exists but is inactive or expired.
	ErrDiscountUnusable = errors.New("discount code not usable")
	// ErrCartNotFound indicates no cart exists for the user.
	ErrCartNotFound = errors.New("cart not found")
	// ErrSaleNotFound indicates the sale does not exist, or no sale is live
	// for the referenced item.
	ErrSaleNotFound = errors.New("sale not found")
	// ErrActiveSaleExists is returned when creating or activating a sale for
	// an item that already has an active one.
	ErrActiveSaleExists = errors.New("item already has an active sale")
	// ErrInvalidSalePrice indicates a negative sale price.
	ErrInvalidSalePrice = errors.New("sale price must not be negative")
	// ErrOrderNotFound indicates the order does not exist or is not visible to the caller.
	ErrOrderNotFound = errors.New("order not found")
	// ErrInvalidStatusTransition indicates a disallowed order state change.
	ErrInvalidStatusTransition = errors.New("invalid order status transition")
	// ErrPlacementConflict is a retryable serialization conflict during placement.
	ErrPlacementConflict = errors.New("placement conflict, please retry")
)
