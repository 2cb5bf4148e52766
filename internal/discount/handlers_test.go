package discount

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-shop/internal/domain"
)

func newTestRouter(m *memCodes) *chi.Mux {
	h := &Handler{Svc: newTestService(m)}
	r := chi.NewRouter()
	r.Get("/discount-codes/{code}/validate", h.ValidateCode)
	return r
}

func TestValidateCodeUsable(t *testing.T) {
	m := newMemCodes()
	m.codes["SAVE20"] = domain.DiscountCode{ID: uuid.New(), Code: "SAVE20", Percentage: decimal.NewFromInt(20), Active: true}
	r := newTestRouter(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discount-codes/SAVE20/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Code       string          `json:"code"`
			Usable     bool            `json:"usable"`
			Percentage decimal.Decimal `json:"percentage"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "SAVE20", body.Data.Code)
	require.True(t, body.Data.Usable)
	require.True(t, body.Data.Percentage.Equal(decimal.NewFromInt(20)))
}

func TestValidateCodeExpiredIsUsableFalse(t *testing.T) {
	m := newMemCodes()
	expired := testNow.Add(-time.Hour)
	m.codes["OLD"] = domain.DiscountCode{ID: uuid.New(), Code: "OLD", Percentage: decimal.NewFromInt(15), Active: true, ExpiresAt: &expired}
	r := newTestRouter(m)

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discount-codes/OLD/validate", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	var body struct {
		Data struct {
			Code   string `json:"code"`
			Usable bool   `json:"usable"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "OLD", body.Data.Code)
	require.False(t, body.Data.Usable)
}

func TestValidateCodeUnknownIs404(t *testing.T) {
	r := newTestRouter(newMemCodes())

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/discount-codes/NOPE/validate", nil))

	require.Equal(t, http.StatusNotFound, rec.Code)
	var body struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.Equal(t, "DISCOUNT_NOT_FOUND", body.Error.Code)
}
