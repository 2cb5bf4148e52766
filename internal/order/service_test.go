package order

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/noah-isme/backend-shop/internal/domain"
	"github.com/noah-isme/backend-shop/internal/port"
	"github.com/noah-isme/backend-shop/internal/pricing"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

var testNow = time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC)

// memState is an unlocked in-memory implementation of the store interfaces.
// All access goes through memDB, which holds the lock and provides snapshot
// rollback so transactional semantics match the real repositories.
type memState struct {
	items  map[uuid.UUID]domain.Item
	carts  map[uuid.UUID]domain.Cart
	codes  map[string]domain.DiscountCode
	orders map[uuid.UUID]domain.Order
}

func newMemState() *memState {
	return &memState{
		items:  map[uuid.UUID]domain.Item{},
		carts:  map[uuid.UUID]domain.Cart{},
		codes:  map[string]domain.DiscountCode{},
		orders: map[uuid.UUID]domain.Order{},
	}
}

func (st *memState) clone() *memState {
	out := newMemState()
	for k, v := range st.items {
		out.items[k] = v
	}
	for k, v := range st.carts {
		out.carts[k] = v
	}
	for k, v := range st.codes {
		out.codes[k] = v
	}
	for k, v := range st.orders {
		out.orders[k] = v
	}
	return out
}

func (st *memState) GetItem(_ context.Context, id uuid.UUID) (domain.Item, error) {
	item, ok := st.items[id]
	if !ok {
		return domain.Item{}, domain.ErrItemNotFound
	}
	return item, nil
}

func (st *memState) ListItems(context.Context, int, int) ([]domain.Item, int64, error) {
	out := make([]domain.Item, 0, len(st.items))
	for _, item := range st.items {
		out = append(out, item)
	}
	return out, int64(len(out)), nil
}

func (st *memState) CreateItem(_ context.Context, item domain.Item) error {
	st.items[item.ID] = item
	return nil
}

func (st *memState) UpdateItem(_ context.Context, item domain.Item) error {
	if _, ok := st.items[item.ID]; !ok {
		return domain.ErrItemNotFound
	}
	st.items[item.ID] = item
	return nil
}

func (st *memState) DeleteItem(_ context.Context, id uuid.UUID) error {
	delete(st.items, id)
	return nil
}

func (st *memState) DecrementStock(_ context.Context, id uuid.UUID, quantity int) error {
	item, ok := st.items[id]
	if !ok {
		return domain.ErrItemNotFound
	}
	if item.QuantityAvailable < quantity {
		return domain.ErrInsufficientStock
	}
	item.QuantityAvailable -= quantity
	st.items[id] = item
	return nil
}

func (st *memState) GetCart(_ context.Context, userID uuid.UUID) (domain.Cart, error) {
	cart, ok := st.carts[userID]
	if !ok {
		return domain.Cart{}, domain.ErrCartNotFound
	}
	return cart, nil
}

func (st *memState) EnsureCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	if cart, ok := st.carts[userID]; ok {
		return cart, nil
	}
	cart := domain.NewCart(userID, testNow)
	st.carts[userID] = cart
	return cart, nil
}

func (st *memState) SaveCart(_ context.Context, cart domain.Cart) error {
	st.carts[cart.UserID] = cart
	return nil
}

func (st *memState) ClearCart(_ context.Context, userID uuid.UUID) error {
	cart, ok := st.carts[userID]
	if !ok {
		return nil
	}
	cart.Clear(testNow)
	st.carts[userID] = cart
	return nil
}

func (st *memState) GetByCode(_ context.Context, code string) (domain.DiscountCode, error) {
	dc, ok := st.codes[code]
	if !ok {
		return domain.DiscountCode{}, domain.ErrDiscountNotFound
	}
	return dc, nil
}

func (st *memState) ListCodes(context.Context) ([]domain.DiscountCode, error) {
	out := make([]domain.DiscountCode, 0, len(st.codes))
	for _, code := range st.codes {
		out = append(out, code)
	}
	return out, nil
}

func (st *memState) CreateCode(_ context.Context, code domain.DiscountCode) error {
	st.codes[code.Code] = code
	return nil
}

func (st *memState) UpdateCode(_ context.Context, code domain.DiscountCode) error {
	st.codes[code.Code] = code
	return nil
}

func (st *memState) DeleteCode(_ context.Context, id uuid.UUID) error {
	for key, code := range st.codes {
		if code.ID == id {
			delete(st.codes, key)
		}
	}
	return nil
}

func (st *memState) CreateOrder(_ context.Context, order domain.Order) error {
	st.orders[order.ID] = order
	return nil
}

func (st *memState) GetOrder(_ context.Context, id uuid.UUID) (domain.Order, error) {
	order, ok := st.orders[id]
	if !ok {
		return domain.Order{}, domain.ErrOrderNotFound
	}
	return order, nil
}

func (st *memState) ListOrdersForUser(_ context.Context, userID uuid.UUID, _, _ int) ([]domain.Order, int64, error) {
	out := make([]domain.Order, 0)
	for _, order := range st.orders {
		if order.UserID == userID {
			out = append(out, order)
		}
	}
	return out, int64(len(out)), nil
}

func (st *memState) ListOrders(_ context.Context, status *domain.OrderStatus, _, _ int) ([]domain.Order, int64, error) {
	out := make([]domain.Order, 0)
	for _, order := range st.orders {
		if status == nil || order.Status == *status {
			out = append(out, order)
		}
	}
	return out, int64(len(out)), nil
}

func (st *memState) UpdateOrderStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	order, ok := st.orders[id]
	if !ok {
		return domain.ErrOrderNotFound
	}
	if order.Status != from {
		return domain.ErrInvalidStatusTransition
	}
	order.Status = to
	st.orders[id] = order
	return nil
}

func (st *memState) stores() port.Stores {
	return port.Stores{Items: st, Carts: st, Discounts: st, Orders: st}
}

// memDB serializes transactions with a mutex and rolls back the whole state
// on error, mirroring the commit-or-nothing behavior of the SQL runner.
type memDB struct {
	mu        sync.Mutex
	state     *memState
	conflicts int
	clearErr  error
}

func (db *memDB) WithinTx(_ context.Context, fn func(s port.Stores) error) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.conflicts > 0 {
		db.conflicts--
		return &pgconn.PgError{Code: "40001"}
	}
	snapshot := db.state.clone()
	if err := fn(db.state.stores()); err != nil {
		db.state = snapshot
		return err
	}
	return nil
}

func (db *memDB) GetOrder(ctx context.Context, id uuid.UUID) (domain.Order, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.GetOrder(ctx, id)
}

func (db *memDB) CreateOrder(ctx context.Context, order domain.Order) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.CreateOrder(ctx, order)
}

func (db *memDB) ListOrdersForUser(ctx context.Context, userID uuid.UUID, limit, offset int) ([]domain.Order, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.ListOrdersForUser(ctx, userID, limit, offset)
}

func (db *memDB) ListOrders(ctx context.Context, status *domain.OrderStatus, limit, offset int) ([]domain.Order, int64, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.ListOrders(ctx, status, limit, offset)
}

func (db *memDB) UpdateOrderStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.UpdateOrderStatus(ctx, id, from, to)
}

func (db *memDB) GetCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.GetCart(ctx, userID)
}

func (db *memDB) EnsureCart(ctx context.Context, userID uuid.UUID) (domain.Cart, error) {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.EnsureCart(ctx, userID)
}

func (db *memDB) SaveCart(ctx context.Context, cart domain.Cart) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	return db.state.SaveCart(ctx, cart)
}

func (db *memDB) ClearCart(ctx context.Context, userID uuid.UUID) error {
	db.mu.Lock()
	defer db.mu.Unlock()
	if db.clearErr != nil {
		return db.clearErr
	}
	return db.state.ClearCart(ctx, userID)
}

type recordingEnqueuer struct {
	mu    sync.Mutex
	calls []uuid.UUID
}

func (r *recordingEnqueuer) EnqueueCartClear(_ context.Context, userID, _ uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls = append(r.calls, userID)
	return nil
}

func newService(db *memDB) *Service {
	engine := pricing.NewEngine(825)
	engine.Now = func() time.Time { return testNow }
	return &Service{
		Tx:     db,
		Orders: db,
		Carts:  db,
		Pricer: engine,
		Logger: zerolog.Nop(),
		Now:    func() time.Time { return testNow },
	}
}

func seedItem(st *memState, price string, available int) domain.Item {
	item := domain.Item{
		ID:                uuid.New(),
		Title:             "Widget",
		Price:             decimal.RequireFromString(price),
		QuantityAvailable: available,
	}
	st.items[item.ID] = item
	return item
}

func seedCart(st *memState, userID uuid.UUID, item domain.Item, quantity int, code string) {
	cart := domain.NewCart(userID, testNow)
	if err := cart.AddItem(item, quantity, testNow); err != nil {
		panic(err)
	}
	if code != "" {
		cart.ApplyDiscountCode(code, testNow)
	}
	st.carts[userID] = cart
}

func TestPlaceOrderHappyPath(t *testing.T) {
	db := &memDB{state: newMemState()}
	item := seedItem(db.state, "19.99", 10)
	userID := uuid.New()
	seedCart(db.state, userID, item, 3, "")

	svc := newService(db)
	order, err := svc.PlaceOrder(context.Background(), userID)
	require.NoError(t, err)

	require.Equal(t, domain.OrderStatusPending, order.Status)
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("59.97")), "subtotal %s", order.Subtotal)
	require.True(t, order.Tax.Equal(decimal.RequireFromString("4.95")), "tax %s", order.Tax)
	require.True(t, order.Total.Equal(decimal.RequireFromString("64.92")), "total %s", order.Total)

	require.Equal(t, 7, db.state.items[item.ID].QuantityAvailable)
	cart := db.state.carts[userID]
	require.True(t, cart.IsEmpty(), "cart must be cleared after placement")
	require.Len(t, db.state.orders, 1)
}

func TestPlaceOrderUsesCurrentPriceNotCapturedPrice(t *testing.T) {
	db := &memDB{state: newMemState()}
	item := seedItem(db.state, "10.00", 10)
	userID := uuid.New()
	seedCart(db.state, userID, item, 1, "")

	// price raised after the item was carted
	item.Price = decimal.RequireFromString("12.00")
	db.state.items[item.ID] = item

	order, err := newService(db).PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, order.Lines[0].PriceAtPurchase.Equal(decimal.RequireFromString("12.00")))
	require.True(t, order.Subtotal.Equal(decimal.RequireFromString("12.00")))
}

func TestPlaceOrderEmptyCart(t *testing.T) {
	db := &memDB{state: newMemState()}
	userID := uuid.New()
	db.state.carts[userID] = domain.NewCart(userID, testNow)

	_, err := newService(db).PlaceOrder(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlaceOrderMissingCart(t *testing.T) {
	db := &memDB{state: newMemState()}
	_, err := newService(db).PlaceOrder(context.Background(), uuid.New())
	require.ErrorIs(t, err, domain.ErrEmptyCart)
}

func TestPlaceOrderInsufficientStockRollsBack(t *testing.T) {
	db := &memDB{state: newMemState()}
	plenty := seedItem(db.state, "5.00", 100)
	scarce := seedItem(db.state, "9.00", 1)
	userID := uuid.New()

	cart := domain.NewCart(userID, testNow)
	require.NoError(t, cart.AddItem(plenty, 2, testNow))
	scarce.QuantityAvailable = 5 // bypass the soft check, placement re-verifies
	require.NoError(t, cart.AddItem(scarce, 3, testNow))
	db.state.carts[userID] = cart

	_, err := newService(db).PlaceOrder(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	// nothing committed: stock untouched, no order, cart intact
	require.Equal(t, 100, db.state.items[plenty.ID].QuantityAvailable)
	require.Equal(t, 1, db.state.items[scarce.ID].QuantityAvailable)
	require.Empty(t, db.state.orders)
	require.Len(t, db.state.carts[userID].Lines, 2)
}

func TestPlaceOrderAppliesUsableDiscount(t *testing.T) {
	db := &memDB{state: newMemState()}
	item := seedItem(db.state, "50.00", 10)
	db.state.codes["SAVE20"] = domain.DiscountCode{
		ID: uuid.New(), Code: "SAVE20", Percentage: decimal.NewFromInt(20), Active: true,
	}
	userID := uuid.New()
	seedCart(db.state, userID, item, 2, "SAVE20")

	order, err := newService(db).PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, order.DiscountAmount.Equal(decimal.RequireFromString("20.00")))
	require.True(t, order.Tax.Equal(decimal.RequireFromString("6.60")))
	require.True(t, order.Total.Equal(decimal.RequireFromString("86.60")))
	require.Equal(t, "SAVE20", order.DiscountCode)
}

func TestPlaceOrderRecordsExpiredCodeWithZeroDiscount(t *testing.T) {
	db := &memDB{state: newMemState()}
	item := seedItem(db.state, "50.00", 10)
	expired := testNow.Add(-time.Hour)
	db.state.codes["OLD20"] = domain.DiscountCode{
		ID: uuid.New(), Code: "OLD20", Percentage: decimal.NewFromInt(20), Active: true, ExpiresAt: &expired,
	}
	userID := uuid.New()
	seedCart(db.state, userID, item, 2, "OLD20")

	order, err := newService(db).PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
	require.True(t, order.DiscountAmount.IsZero())
	require.Equal(t, "OLD20", order.DiscountCode, "attempted code is recorded even when unusable")
	require.True(t, order.Total.Equal(decimal.RequireFromString("108.25")))
}

func TestPlaceOrderRetriesSerializationConflicts(t *testing.T) {
	db := &memDB{state: newMemState(), conflicts: 2}
	item := seedItem(db.state, "10.00", 5)
	userID := uuid.New()
	seedCart(db.state, userID, item, 1, "")

	svc := newService(db)
	svc.MaxRetries = 3
	_, err := svc.PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
}

func TestPlaceOrderGivesUpAfterMaxRetries(t *testing.T) {
	db := &memDB{state: newMemState(), conflicts: 10}
	item := seedItem(db.state, "10.00", 5)
	userID := uuid.New()
	seedCart(db.state, userID, item, 1, "")

	svc := newService(db)
	svc.MaxRetries = 3
	_, err := svc.PlaceOrder(context.Background(), userID)
	require.ErrorIs(t, err, domain.ErrPlacementConflict)
}

func TestPlaceOrderClearFailureDoesNotFailOrder(t *testing.T) {
	db := &memDB{state: newMemState(), clearErr: errors.New("connection reset")}
	item := seedItem(db.state, "10.00", 5)
	userID := uuid.New()
	seedCart(db.state, userID, item, 1, "")

	enq := &recordingEnqueuer{}
	svc := newService(db)
	svc.Enqueuer = enq

	order, err := svc.PlaceOrder(context.Background(), userID)
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, order.ID)
	require.Equal(t, []uuid.UUID{userID}, enq.calls, "failed clear must hand off to the queue")
}

func TestPlaceOrderConcurrentLastUnit(t *testing.T) {
	db := &memDB{state: newMemState()}
	item := seedItem(db.state, "25.00", 1)
	userA := uuid.New()
	userB := uuid.New()
	seedCart(db.state, userA, item, 1, "")
	seedCart(db.state, userB, item, 1, "")

	svc := newService(db)
	var wg sync.WaitGroup
	results := make([]error, 2)
	for i, user := range []uuid.UUID{userA, userB} {
		wg.Add(1)
		go func(idx int, id uuid.UUID) {
			defer wg.Done()
			_, results[idx] = svc.PlaceOrder(context.Background(), id)
		}(i, user)
	}
	wg.Wait()

	var succeeded, outOfStock int
	for _, err := range results {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, domain.ErrInsufficientStock):
			outOfStock++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	require.Equal(t, 1, succeeded, "exactly one placement wins the last unit")
	require.Equal(t, 1, outOfStock)
	require.Equal(t, 0, db.state.items[item.ID].QuantityAvailable)
	require.Len(t, db.state.orders, 1)
}

func TestGetForUserHidesForeignOrders(t *testing.T) {
	db := &memDB{state: newMemState()}
	owner := uuid.New()
	order := domain.Order{ID: uuid.New(), UserID: owner, Status: domain.OrderStatusPending}
	db.state.orders[order.ID] = order

	svc := newService(db)
	_, err := svc.GetForUser(context.Background(), uuid.New(), order.ID)
	require.ErrorIs(t, err, domain.ErrOrderNotFound)

	got, err := svc.GetForUser(context.Background(), owner, order.ID)
	require.NoError(t, err)
	require.Equal(t, order.ID, got.ID)
}

func TestTransitionEnforcesLifecycle(t *testing.T) {
	db := &memDB{state: newMemState()}
	order := domain.Order{ID: uuid.New(), UserID: uuid.New(), Status: domain.OrderStatusPending}
	db.state.orders[order.ID] = order

	svc := newService(db)

	got, err := svc.Transition(context.Background(), order.ID, domain.OrderStatusProcessing)
	require.NoError(t, err)
	require.Equal(t, domain.OrderStatusProcessing, got.Status)

	_, err = svc.Transition(context.Background(), order.ID, domain.OrderStatusDelivered)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)

	_, err = svc.Transition(context.Background(), order.ID, domain.OrderStatusCancelled)
	require.NoError(t, err)

	_, err = svc.Transition(context.Background(), order.ID, domain.OrderStatusShipped)
	require.ErrorIs(t, err, domain.ErrInvalidStatusTransition)
}
