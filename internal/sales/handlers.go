package sales

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/samber/lo"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

// Handler wires the sale registry to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type createRequest struct {
	ItemID    uuid.UUID       `json:"itemId" validate:"required"`
	SalePrice decimal.Decimal `json:"salePrice"`
	StartsAt  *time.Time      `json:"startsAt"`
	EndsAt    *time.Time      `json:"endsAt"`
}

type updateRequest struct {
	SalePrice *decimal.Decimal `json:"salePrice"`
	StartsAt  *time.Time       `json:"startsAt"`
	EndsAt    *time.Time       `json:"endsAt"`
}

type saleResponse struct {
	ID              string          `json:"id"`
	ItemID          string          `json:"itemId"`
	ItemTitle       string          `json:"itemTitle"`
	OriginalPrice   decimal.Decimal `json:"originalPrice"`
	SalePrice       decimal.Decimal `json:"salePrice"`
	DiscountPercent decimal.Decimal `json:"discountPercentage"`
	StartsAt        *time.Time      `json:"startsAt,omitempty"`
	EndsAt          *time.Time      `json:"endsAt,omitempty"`
	Active          bool            `json:"active"`
	Live            bool            `json:"live"`
}

func toSaleResponse(view View) saleResponse {
	return saleResponse{
		ID:              view.Sale.ID.String(),
		ItemID:          view.Sale.ItemID.String(),
		ItemTitle:       view.ItemTitle,
		OriginalPrice:   view.OriginalPrice,
		SalePrice:       view.Sale.SalePrice,
		DiscountPercent: view.DiscountPercent,
		StartsAt:        view.Sale.StartsAt,
		EndsAt:          view.Sale.EndsAt,
		Active:          view.Sale.Active,
		Live:            view.Live,
	}
}

// List returns every registered sale.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	views, err := h.Svc.List(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": lo.Map(views, func(view View, _ int) saleResponse {
			return toSaleResponse(view)
		}),
	})
}

// Get returns a single sale.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Get(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSaleResponse(view)})
}

// ActiveForItem returns the item's currently live sale.
func (h *Handler) ActiveForItem(w http.ResponseWriter, r *http.Request) {
	itemID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	view, err := h.Svc.ActiveForItem(r.Context(), itemID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSaleResponse(view)})
}

// Create registers a new sale.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Svc.Create(r.Context(), SaleInput{
		ItemID:    req.ItemID,
		SalePrice: req.SalePrice,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toSaleResponse(view)})
}

// Update partially overwrites an existing sale.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	var req updateRequest
	if !h.decode(w, r, &req) {
		return
	}
	view, err := h.Svc.Update(r.Context(), id, SaleUpdate{
		SalePrice: req.SalePrice,
		StartsAt:  req.StartsAt,
		EndsAt:    req.EndsAt,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSaleResponse(view)})
}

// Toggle flips a sale's active flag.
func (h *Handler) Toggle(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	view, err := h.Svc.Toggle(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toSaleResponse(view)})
}

// Delete removes a sale.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, ok := h.saleID(w, r)
	if !ok {
		return
	}
	if err := h.Svc.Delete(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) saleID(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid sale id", nil)
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
				common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid sale payload", map[string]any{"error": err.Error()})
				return false
			}
		}
	}
	return true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrSaleNotFound):
		common.JSONError(w, http.StatusNotFound, "SALE_NOT_FOUND", "sale not found", nil)
	case errors.Is(err, domain.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item not found", nil)
	case errors.Is(err, domain.ErrActiveSaleExists):
		common.JSONError(w, http.StatusConflict, "ACTIVE_SALE_EXISTS", "item already has an active sale", nil)
	case errors.Is(err, domain.ErrInvalidSalePrice):
		common.JSONError(w, http.StatusBadRequest, "INVALID_SALE_PRICE", "sale price must not be negative", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process sale request", nil)
	}
}
