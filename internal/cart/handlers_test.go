package cart

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	validator "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-shop/internal/common"
	"github.com/noah-isme/backend-shop/internal/domain"
)

func newCartRouter(m *memStores, userID uuid.UUID) http.Handler {
	h := &Handler{Svc: newCartService(m), Validate: validator.New()}
	r := chi.NewRouter()
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			next.ServeHTTP(w, req.WithContext(common.WithUserID(req.Context(), userID.String())))
		})
	})
	r.Get("/cart", h.Get)
	r.Post("/cart/items/{itemId}", h.AddItem)
	return r
}

func seedCartItem(m *memStores) domain.Item {
	item := domain.Item{
		ID:                uuid.New(),
		Title:             "Wireless Mouse",
		Price:             decimal.RequireFromString("19.99"),
		QuantityAvailable: 5,
	}
	m.items[item.ID] = item
	return item
}

func errorCode(t *testing.T, body []byte) string {
	t.Helper()
	var resp struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	require.NoError(t, json.Unmarshal(body, &resp))
	return resp.Error.Code
}

func TestAddItemHandler(t *testing.T) {
	m := newMemStores()
	item := seedCartItem(m)
	router := newCartRouter(m, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/cart/items/"+item.ID.String(), strings.NewReader(`{"quantity":2}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code)
	var resp struct {
		Data struct {
			Items []struct {
				Quantity int `json:"quantity"`
			} `json:"items"`
			Total decimal.Decimal `json:"total"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	require.Len(t, resp.Data.Items, 1)
	require.Equal(t, 2, resp.Data.Items[0].Quantity)
}

func TestAddItemHandlerZeroQuantity(t *testing.T) {
	m := newMemStores()
	item := seedCartItem(m)
	router := newCartRouter(m, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/cart/items/"+item.ID.String(), strings.NewReader(`{"quantity":0}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "INVALID_QUANTITY", errorCode(t, rr.Body.Bytes()))
}

func TestAddItemHandlerNegativeQuantity(t *testing.T) {
	m := newMemStores()
	item := seedCartItem(m)
	router := newCartRouter(m, uuid.New())

	req := httptest.NewRequest(http.MethodPost, "/cart/items/"+item.ID.String(), strings.NewReader(`{"quantity":-3}`))
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)

	require.Equal(t, http.StatusBadRequest, rr.Code)
	require.Equal(t, "INVALID_QUANTITY", errorCode(t, rr.Body.Bytes()))
}
