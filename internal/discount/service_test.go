package discount

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

type memCodes struct {
	codes map[string]domain.DiscountCode
}

func newMemCodes() *memCodes {
	return &memCodes{codes: map[string]domain.DiscountCode{}}
}

func (m *memCodes) GetByCode(_ context.Context, code string) (domain.DiscountCode, error) {
	dc, ok := m.codes[code]
	if !ok {
		return domain.DiscountCode{}, domain.ErrDiscountNotFound
	}
	return dc, nil
}

func (m *memCodes) ListCodes(context.Context) ([]domain.DiscountCode, error) {
	out := make([]domain.DiscountCode, 0, len(m.codes))
	for _, code := range m.codes {
		out = append(out, code)
	}
	return out, nil
}

func (m *memCodes) CreateCode(_ context.Context, code domain.DiscountCode) error {
	m.codes[code.Code] = code
	return nil
}

func (m *memCodes) UpdateCode(_ context.Context, code domain.DiscountCode) error {
	m.codes[code.Code] = code
	return nil
}

func (m *memCodes) DeleteCode(_ context.Context, id uuid.UUID) error {
	for key, code := range m.codes {
		if code.ID == id {
			delete(m.codes, key)
		}
	}
	return nil
}

func newTestService(m *memCodes) *Service {
	return &Service{Codes: m, Now: func() time.Time { return testNow }}
}

func TestCreateCodeValidatesPercentage(t *testing.T) {
	svc := newTestService(newMemCodes())
	_, err := svc.CreateCode(context.Background(), CodeInput{Code: "TOO-MUCH", Percentage: decimal.NewFromInt(150)})
	require.Error(t, err)

	_, err = svc.CreateCode(context.Background(), CodeInput{Code: "OK", Percentage: decimal.NewFromInt(25), Active: true})
	require.NoError(t, err)
}

func TestCheckUsable(t *testing.T) {
	m := newMemCodes()
	expired := testNow.Add(-time.Minute)
	future := testNow.Add(time.Hour)
	m.codes["LIVE"] = domain.DiscountCode{ID: uuid.New(), Code: "LIVE", Percentage: decimal.NewFromInt(10), Active: true, ExpiresAt: &future}
	m.codes["DEAD"] = domain.DiscountCode{ID: uuid.New(), Code: "DEAD", Percentage: decimal.NewFromInt(10), Active: true, ExpiresAt: &expired}
	m.codes["OFF"] = domain.DiscountCode{ID: uuid.New(), Code: "OFF", Percentage: decimal.NewFromInt(10), Active: false}

	svc := newTestService(m)

	_, err := svc.CheckUsable(context.Background(), "LIVE")
	require.NoError(t, err)

	_, err = svc.CheckUsable(context.Background(), "DEAD")
	require.ErrorIs(t, err, domain.ErrDiscountUnusable)

	_, err = svc.CheckUsable(context.Background(), "OFF")
	require.ErrorIs(t, err, domain.ErrDiscountUnusable)

	_, err = svc.CheckUsable(context.Background(), "MISSING")
	require.ErrorIs(t, err, domain.ErrDiscountNotFound)
}

func TestUpdateCodeByID(t *testing.T) {
	m := newMemCodes()
	svc := newTestService(m)

	created, err := svc.CreateCode(context.Background(), CodeInput{Code: "SAVE10", Percentage: decimal.NewFromInt(10), Active: true})
	require.NoError(t, err)

	updated, err := svc.UpdateCode(context.Background(), created.ID, CodeInput{Code: "SAVE10", Percentage: decimal.NewFromInt(15), Active: false})
	require.NoError(t, err)
	require.True(t, updated.Percentage.Equal(decimal.NewFromInt(15)))
	require.False(t, updated.Active)

	_, err = svc.UpdateCode(context.Background(), uuid.New(), CodeInput{Code: "X", Percentage: decimal.NewFromInt(1)})
	require.ErrorIs(t, err, domain.ErrDiscountNotFound)
}
