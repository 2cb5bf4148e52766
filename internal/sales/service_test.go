package sales

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/backend-shop/internal/domain"
)

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

type memSales struct {
	items map[uuid.UUID]domain.Item
	sales map[uuid.UUID]domain.Sale
}

func newMemSales() *memSales {
	return &memSales{
		items: map[uuid.UUID]domain.Item{},
		sales: map[uuid.UUID]domain.Sale{},
	}
}

func (m *memSales) GetItem(_ context.Context, id uuid.UUID) (domain.Item, error) {
	item, ok := m.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (m *memSales) ListItems(context.Context, int, int) ([]domain.Item, int64, error) {
	return nil, 0, nil
}

func (m *memSales) CreateItem(_ context.Context, item domain.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *memSales) UpdateItem(_ context.Context, item domain.Item) error {
	m.items[item.ID] = item
	return nil
}

func (m *memSales) DeleteItem(_ context.Context, id uuid.UUID) error {
	delete(m.items, id)
	return nil
}

func (m *memSales) DecrementStock(context.Context, uuid.UUID, int) error {
	return nil
}

func (m *memSales) GetSale(_ context.Context, id uuid.UUID) (domain.Sale, error) {
	sale, ok := m.sales[id]
	if !ok {
		return domain.Sale{}, domain.ErrSaleNotFound
	}
	return sale, nil
}

func (m *memSales) ListSales(context.Context) ([]domain.Sale, error) {
	out := make([]domain.Sale, 0, len(m.sales))
	for _, sale := range m.sales {
		out = append(out, sale)
	}
	return out, nil
}

func (m *memSales) GetActiveSaleForItem(_ context.Context, itemID uuid.UUID) (domain.Sale, error) {
	for _, sale := range m.sales {
		if sale.ItemID == itemID && sale.Active {
			return sale, nil
		}
	}
	return domain.Sale{}, domain.ErrSaleNotFound
}

func (m *memSales) CreateSale(_ context.Context, sale domain.Sale) error {
	m.sales[sale.ID] = sale
	return nil
}

func (m *memSales) UpdateSale(_ context.Context, sale domain.Sale) error {
	if _, ok := m.sales[sale.ID]; !ok {
		return domain.ErrSaleNotFound
	}
	m.sales[sale.ID] = sale
	return nil
}

func (m *memSales) DeleteSale(_ context.Context, id uuid.UUID) error {
	if _, ok := m.sales[id]; !ok {
		return domain.ErrSaleNotFound
	}
	delete(m.sales, id)
	return nil
}

func newTestService(m *memSales) *Service {
	return &Service{
		Sales: m,
		Items: m,
		Now:   func() time.Time { return testNow },
	}
}

func seedItem(m *memSales, price string) domain.Item {
	item := domain.Item{
		ID:                uuid.New(),
		Title:             "Mechanical Keyboard",
		Price:             decimal.RequireFromString(price),
		QuantityAvailable: 10,
	}
	m.items[item.ID] = item
	return item
}

func TestCreateSale(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	view, err := svc.Create(context.Background(), SaleInput{
		ItemID:    item.ID,
		SalePrice: decimal.RequireFromString("75.00"),
	})
	require.NoError(t, err)
	require.True(t, view.Sale.Active)
	require.True(t, view.Live)
	require.Equal(t, item.Title, view.ItemTitle)
	require.True(t, view.DiscountPercent.Equal(decimal.RequireFromString("25")),
		"got %s", view.DiscountPercent)
}

func TestCreateSaleRejectsSecondActive(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	_, err := svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("75.00")})
	require.NoError(t, err)

	_, err = svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("50.00")})
	require.ErrorIs(t, err, domain.ErrActiveSaleExists)
}

func TestCreateSaleUnknownItem(t *testing.T) {
	svc := newTestService(newMemSales())

	_, err := svc.Create(context.Background(), SaleInput{ItemID: uuid.New(), SalePrice: decimal.RequireFromString("5.00")})
	require.ErrorIs(t, err, domain.ErrItemNotFound)
}

func TestCreateSaleNegativePrice(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "10.00")

	_, err := svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("-1.00")})
	require.ErrorIs(t, err, domain.ErrInvalidSalePrice)
}

func TestDiscountPercentRoundsHalfUp(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "59.99")

	view, err := svc.Create(context.Background(), SaleInput{
		ItemID:    item.ID,
		SalePrice: decimal.RequireFromString("39.99"),
	})
	require.NoError(t, err)
	// 20.00 / 59.99 = 0.33338... -> 0.3334 -> 33.34
	require.True(t, view.DiscountPercent.Equal(decimal.RequireFromString("33.34")),
		"got %s", view.DiscountPercent)
}

func TestUpdateSalePartial(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	ends := testNow.Add(48 * time.Hour)
	created, err := svc.Create(context.Background(), SaleInput{
		ItemID:    item.ID,
		SalePrice: decimal.RequireFromString("80.00"),
		EndsAt:    &ends,
	})
	require.NoError(t, err)

	newPrice := decimal.RequireFromString("60.00")
	updated, err := svc.Update(context.Background(), created.Sale.ID, SaleUpdate{SalePrice: &newPrice})
	require.NoError(t, err)
	require.True(t, updated.Sale.SalePrice.Equal(newPrice))
	require.NotNil(t, updated.Sale.EndsAt)
	require.True(t, updated.Sale.EndsAt.Equal(ends))

	_, err = svc.Update(context.Background(), uuid.New(), SaleUpdate{SalePrice: &newPrice})
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestToggleBlocksSecondActivation(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	first, err := svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("70.00")})
	require.NoError(t, err)

	// Deactivate, create a second sale, then try to re-activate the first.
	deactivated, err := svc.Toggle(context.Background(), first.Sale.ID)
	require.NoError(t, err)
	require.False(t, deactivated.Sale.Active)

	_, err = svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("60.00")})
	require.NoError(t, err)

	_, err = svc.Toggle(context.Background(), first.Sale.ID)
	require.ErrorIs(t, err, domain.ErrActiveSaleExists)
}

func TestActiveForItemRespectsWindow(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	ended := testNow.Add(-time.Hour)
	started := testNow.Add(-24 * time.Hour)
	saleID := uuid.New()
	m.sales[saleID] = domain.Sale{
		ID:        saleID,
		ItemID:    item.ID,
		SalePrice: decimal.RequireFromString("50.00"),
		StartsAt:  &started,
		EndsAt:    &ended,
		Active:    true,
		CreatedAt: started,
	}

	_, err := svc.ActiveForItem(context.Background(), item.ID)
	require.ErrorIs(t, err, domain.ErrSaleNotFound)
}

func TestActiveForItemLiveSale(t *testing.T) {
	m := newMemSales()
	svc := newTestService(m)
	item := seedItem(m, "100.00")

	created, err := svc.Create(context.Background(), SaleInput{ItemID: item.ID, SalePrice: decimal.RequireFromString("90.00")})
	require.NoError(t, err)

	view, err := svc.ActiveForItem(context.Background(), item.ID)
	require.NoError(t, err)
	require.Equal(t, created.Sale.ID, view.Sale.ID)
	require.True(t, view.Live)
}
