package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

// Handler wires cart services to HTTP. All routes resolve the cart owner from
// the authenticated user on the request context.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

// quantityRequest carries no validation tags: a zero or negative quantity is
// rejected by the service with ErrInvalidQuantity so the client sees the
// dedicated error code rather than a generic validation failure.
type quantityRequest struct {
	Quantity int `json:"quantity"`
}

type amountRequest struct {
	Amount int `json:"amount"`
}

type discountRequest struct {
	Code string `json:"code" validate:"required"`
}

type lineResponse struct {
	ItemID    string          `json:"itemId"`
	Title     string          `json:"title"`
	Quantity  int             `json:"quantity"`
	UnitPrice decimal.Decimal `json:"unitPrice"`
	LineTotal decimal.Decimal `json:"lineTotal"`
}

type summaryResponse struct {
	CartID       string          `json:"cartId"`
	Items        []lineResponse  `json:"items"`
	DiscountCode string          `json:"discountCode,omitempty"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	Discount     decimal.Decimal `json:"discount"`
	Tax          decimal.Decimal `json:"tax"`
	Total        decimal.Decimal `json:"total"`
}

// Get returns the cart summary priced at current catalog prices.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	summary, err := h.Svc.GetSummary(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSummaryResponse(summary)})
}

// AddItem adds quantity of an item to the cart.
func (h *Handler) AddItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req quantityRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.AddItem(r.Context(), userID, itemID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

// SetQuantity replaces a line's quantity; zero removes the line.
func (h *Handler) SetQuantity(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	var req struct {
		Quantity int `json:"quantity"`
	}
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.SetQuantity(r.Context(), userID, itemID, req.Quantity); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

// Increase raises a line's quantity.
func (h *Handler) Increase(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Increase)
}

// Decrease lowers a line's quantity, removing the line at zero.
func (h *Handler) Decrease(w http.ResponseWriter, r *http.Request) {
	h.adjust(w, r, h.Svc.Decrease)
}

// RemoveItem deletes a line from the cart.
func (h *Handler) RemoveItem(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveItem(r.Context(), userID, itemID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

// Clear empties the cart.
func (h *Handler) Clear(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Clear(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ApplyDiscount attaches a discount code to the cart.
func (h *Handler) ApplyDiscount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	var req discountRequest
	if !h.decode(w, r, &req) {
		return
	}
	if err := h.Svc.ApplyDiscountCode(r.Context(), userID, req.Code); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

// RemoveDiscount detaches the applied discount code.
func (h *Handler) RemoveDiscount(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.RemoveDiscountCode(r.Context(), userID); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

func (h *Handler) adjust(w http.ResponseWriter, r *http.Request, op func(ctx context.Context, userID, itemID uuid.UUID, amount int) error) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}
	itemID, ok := h.itemID(w, r)
	if !ok {
		return
	}
	req := amountRequest{Amount: 1}
	if r.Body != nil && r.ContentLength != 0 {
		if !h.decode(w, r, &req) {
			return
		}
	}
	if err := op(r.Context(), userID, itemID, req.Amount); err != nil {
		h.writeError(w, err)
		return
	}
	h.respondSummary(w, r, userID, http.StatusOK)
}

func toSummaryResponse(summary Summary) summaryResponse {
	return summaryResponse{
		CartID: summary.CartID.String(),
		Items: lo.Map(summary.Lines, func(line SummaryLine, _ int) lineResponse {
			return lineResponse{
				ItemID:    line.ItemID.String(),
				Title:     line.Title,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				LineTotal: line.LineTotal,
			}
		}),
		DiscountCode: summary.DiscountCode,
		Subtotal:     summary.Quote.Subtotal,
		Discount:     summary.Quote.DiscountAmount,
		Tax:          summary.Quote.Tax,
		Total:        summary.Quote.Total,
	}
}

func (h *Handler) respondSummary(w http.ResponseWriter, r *http.Request, userID uuid.UUID, status int) {
	summary, err := h.Svc.GetSummary(r.Context(), userID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, status, map[string]any{"data": toSummaryResponse(summary)})
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

func (h *Handler) itemID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "itemId"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return uuid.Nil, false
	}
	return id, true
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) bool {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(v); err != nil {
			var invalid *validator.InvalidValidationError
			if !errors.As(err, &invalid) {
				common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid payload", map[string]any{"error": err.Error()})
				return false
			}
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrInvalidQuantity):
		common.JSONError(w, http.StatusBadRequest, "INVALID_QUANTITY", "quantity is invalid", nil)
	case errors.Is(err, domain.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item not found", nil)
	case errors.Is(err, domain.ErrItemNotInCart):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_IN_CART", "item not in cart", nil)
	case errors.Is(err, domain.ErrInsufficientStock):
		common.JSONError(w, http.StatusConflict, "INSUFFICIENT_STOCK", "not enough stock available", nil)
	case errors.Is(err, domain.ErrDiscountNotFound):
		common.JSONError(w, http.StatusBadRequest, "DISCOUNT_NOT_FOUND", "discount code is invalid", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process cart request", nil)
	}
}
