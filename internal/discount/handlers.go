package discount

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

// Handler wires the discount registry to HTTP.
type Handler struct {
	Svc      *Service
	Validate *validator.Validate
}

type codeRequest struct {
	Code       string          `json:"code" validate:"required"`
	Percentage decimal.Decimal `json:"percentage"`
	ExpiresAt  *time.Time      `json:"expiresAt"`
	Active     bool            `json:"active"`
}

type codeResponse struct {
	ID         string          `json:"id"`
	Code       string          `json:"code"`
	Percentage decimal.Decimal `json:"percentage"`
	ExpiresAt  *time.Time      `json:"expiresAt,omitempty"`
	Active     bool            `json:"active"`
}

func toCodeResponse(code domain.DiscountCode) codeResponse {
	return codeResponse{
		ID:         code.ID.String(),
		Code:       code.Code,
		Percentage: code.Percentage,
		ExpiresAt:  code.ExpiresAt,
		Active:     code.Active,
	}
}

// List returns every registered discount code.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	codes, err := h.Svc.ListCodes(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": lo.Map(codes, func(code domain.DiscountCode, _ int) codeResponse {
			return toCodeResponse(code)
		}),
	})
}

// Create registers a new discount code.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	code, err := h.Svc.CreateCode(r.Context(), CodeInput{
		Code:       req.Code,
		Percentage: req.Percentage,
		ExpiresAt:  req.ExpiresAt,
		Active:     req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusCreated, map[string]any{"data": toCodeResponse(code)})
}

// Update overwrites an existing discount code.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount code id", nil)
		return
	}
	req, ok := h.decodeCode(w, r)
	if !ok {
		return
	}
	code, err := h.Svc.UpdateCode(r.Context(), id, CodeInput{
		Code:       req.Code,
		Percentage: req.Percentage,
		ExpiresAt:  req.ExpiresAt,
		Active:     req.Active,
	})
	if err != nil {
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{"data": toCodeResponse(code)})
}

// Delete removes a discount code.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid discount code id", nil)
		return
	}
	if err := h.Svc.DeleteCode(r.Context(), id); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Validate reports whether a code is currently usable.
func (h *Handler) ValidateCode(w http.ResponseWriter, r *http.Request) {
	code, err := h.Svc.CheckUsable(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		if errors.Is(err, domain.ErrDiscountUnusable) {
			common.JSON(w, http.StatusOK, map[string]any{
				"data": map[string]any{"code": code.Code, "usable": false},
			})
			return
		}
		h.writeError(w, err)
		return
	}
	common.JSON(w, http.StatusOK, map[string]any{
		"data": map[string]any{
			"code":       code.Code,
			"usable":     true,
			"percentage": code.Percentage,
		},
	})
}

func (h *Handler) decodeCode(w http.ResponseWriter, r *http.Request) (codeRequest, bool) {
	var req codeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		common.JSONError(w, http.StatusBadRequest, "BAD_REQUEST", "invalid request body", nil)
		return codeRequest{}, false
	}
	if h.Validate != nil {
		if err := h.Validate.Struct(req); err != nil {
			common.JSONError(w, http.StatusBadRequest, "VALIDATION", "invalid discount code payload", map[string]any{"error": err.Error()})
			return codeRequest{}, false
		}
	}
	return req, true
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, domain.ErrDiscountNotFound):
		common.JSONError(w, http.StatusNotFound, "DISCOUNT_NOT_FOUND", "discount code not found", nil)
	default:
		common.JSONError(w, http.StatusInternalServerError, "INTERNAL", "unable to process discount request", nil)
	}
}
