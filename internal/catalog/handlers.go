package catalog

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

// Handler wires catalog services to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
	PerPage  int
	MaxLimit int
}

type itemRequest struct {
	Title             string          `json:"title" validate:"required"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantityAvailable" validate:"gte=0"`
}

type itemResponse struct {
	ID                string          `json:"id"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	Price             decimal.Decimal `json:"price"`
	QuantityAvailable int             `json:"quantityAvailable"`
}

func toItemResponse(item domain.Item) itemResponse {
	return itemResponse{
		ID:                item.ID.String(),
		Title:             item.Title,
		Description:       item.Description,
		Price:             item.Price,
		QuantityAvailable: item.QuantityAvailable,
	}
}

// List returns a page of catalog items.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	page, perPage := common.ParsePagination(r, h.PerPage)
	if h.MaxLimit > 0 && perPage > h.MaxLimit {
		perPage = h.MaxLimit
	}
	items, total, err := h.Svc.ListItems(r.Context(), perPage, (page-1)*perPage)
	if err != nil {
		h.writeError(w, err)
		return
	}
	responses := make([]itemResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, toItemResponse(item))
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": responses,
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get returns a single catalog item.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	item, err := h.Svc.GetItem(r.Context(), id)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toItemResponse(item)})
}

// Create stores a new catalog item.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	item, err := h.Svc.CreateItem(r.Context(), ItemInput{
		Title:             req.Title,
		Description:       req.Description,
		Price:             req.Price,
		QuantityAvailable: req.QuantityAvailable,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toItemResponse(item)})
}

// Update overwrites an existing catalog item.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	req, ok := h.decodeItem(w, r)
	if !ok {
		return
	}
	item, err := h.Svc.UpdateItem(r.Context(), id, ItemInput{
		Title:             req.Title,
		Description:       req.Description,
		Price:             req.Price,
		QuantityAvailable: req.QuantityAvailable,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toItemResponse(item)})
}

// Delete removes a catalog item.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid item id", nil)
		return
	}
	if err := h.Svc.DeleteItem(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) decodeItem(w http.ResponseWriter, r *http.Request) (itemRequest, bool) {
	var req itemRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return itemRequest{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid item payload", map[string]any{"error": err.Error()})
			return itemRequest{}, false
		}
	}
	if req.Price.IsNegative() {
		common.JSONError(w, http.StatusBadRequest, "VALIDATION", "price must not be negative", nil)
		return itemRequest{}, false
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrItemNotFound):
		common.JSONError(w, http.StatusNotFound, "ITEM_NOT_FOUND", "item not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process catalog request", nil)
	}
}
