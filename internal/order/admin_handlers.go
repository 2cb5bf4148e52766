package order

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/samber/lo"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

// AdminHandler exposes cross-user order listing and status management.
type AdminHandler struct {
	Svc     *Service
	PerPage int
}

type statusRequest struct {
	Status string `json:"status"`
}

// List returns orders across all users, optionally filtered by ?status=.
func (h *AdminHandler) List(w http.ResponseWriter, r *http.Request) {
	var status *domain.OrderStatus
	if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
		parsed, err := domain.ToOrderStatus(strings.ToUpper(raw))
		if err != nil {
			common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order status", nil)
			return
		}
		status = &parsed
	}
	page, perPage := common.ParsePagination(r, h.PerPage)
	orders, total, err := h.Svc.List(r.Context(), status, perPage, (page-1)*perPage)
	if err != nil {
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to list orders", nil)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": lo.Map(orders, func(order domain.Order, _ int) orderResponse {
			return toOrderResponse(order)
		}),
		"meta": common.Pagination{Page: page, PerPage: perPage, TotalItems: int(total)},
	})
}

// Get returns any order by identifier.
func (h *AdminHandler) Get(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	order, err := h.Svc.Orders.GetOrder(r.Context(), orderID)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOrderResponse(order)})
}

// UpdateStatus transitions an order along its lifecycle.
func (h *AdminHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	orderID, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order id", nil)
		return
	}
	var req statusRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return
	}
	target, err := domain.ToOrderStatus(strings.ToUpper(strings.TrimSpace(req.Status)))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid order status", nil)
		return
	}
	order, err := h.Svc.Transition(r.Context(), orderID, target)
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toOrderResponse(order)})
}

func (h *AdminHandler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrOrderNotFound):
		common.JSONError(w, http.StatusNotFound, "ORDER_NOT_FOUND", "order not found", nil)
	case errors.Is(err, domain.ErrInvalidStatusTransition):
		common.JSONError(w, http.StatusConflict, "INVALID_STATUS_TRANSITION", "order status transition not allowed", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process order request", nil)
	}
}
