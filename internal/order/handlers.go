package order

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

// Handler wires order placement and order history to HTTP.
type Handler struct {
	Svc     *Service
	PerPage int
}

type orderLineResponse struct {
	ItemID          string          `json:"itemId"`
	Title           string          `json:"title"`
	Quantity        int             `json:"quantity"`
	PriceAtPurchase decimal.Decimal `json:"priceAtPurchase"`
}

type orderResponse struct {
	ID             string              `json:"id"`
	Status         string              `json:"status"`
	Items          []orderLineResponse `json:"items"`
	Subtotal       decimal.Decimal     `json:"subtotal"`
	DiscountAmount decimal.Decimal     `json:"discountAmount"`
	Tax            decimal.Decimal     `json:"tax"`
	Total          decimal.Decimal     `json:"total"`
	DiscountCode   string              `json:"discountCode,omitempty"`
	PlacedAt       time.Time           `json:"placedAt"`
}

func toOrderResponse(order domain.Order) orderResponse {
	return orderResponse{
		ID:     order.ID.String(),
		Status: string(order.Status),
		Items: lo.Map(order.Lines, func(line domain.OrderLine, _ int) orderLineResponse {
			return orderLineResponse{
				ItemID:          line.ItemID.String(),
				Title:           line.Title,
				Quantity:        line.Quantity,
				PriceAtPurchase: line.PriceAtPurchase,
			}
		}),
		Subtotal:       order.Subtotal,
		DiscountAmount: order.DiscountAmount,
		Tax:            order.Tax,
		Total:          order.Total,
		DiscountCode:   order.DiscountCode,
		PlacedAt:       order.PlacedAt,
	}
}

// Place converts the caller's cart into an order.
func (h *Handler) Place(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	order, err := h.Svc.PlaceOrder(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toOrderResponse(order)})
}

// List returns the caller's order history, newest first.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	page, perPage := common.ParsePagination(r, h.PerPage)
	orders, total, err := h.Svc.ListForUser(r.Context(), userID, perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": lo.Map(orders, func(order domain.Order, _ int) orderResponse {
			return toOrderResponse(order)
		}),
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get returns a single order belonging to the caller.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	order, err := h.Svc.GetForUser(r.Context(), userID, orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOrderResponse(order)})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw, ok := common.UserID(r.Context())
	if !ok {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "missing or invalid token", nil)
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		common.JSONError(w, http.StatusUnauthorized, "UNAUTHORIZED", "invalid user identifier", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrEmptyCart):
		common.JSONError(w, http.StatusUnprocessableEntity, "EMPTY_CART", "cart is empty", nil)
	case errors.Is(err, domain.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "not enough stock available", nil)
	case errors.Is(err, domain.ErrPlacementConflict):
		common.JSONError(w, http.StatusConflict, "PLACEMENT_CONFLICT", "placement conflict, please retry", nil)
	case errors.Is(err, domain.ErrItemNotFound):
		common.JSONError(w, http.StatusConflict, "ITEM_NOT_FOUND", "a carted item no longer exists", nil)
	case errors.Is(err, domain.ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process order request", nil)
	}
}
