package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/ws"
)

// mockOrderStore implements OrderStore with configurable behavior.
type mockOrderStore struct {
	getNextOrderNumberFn      func(ctx context.Context, branchID uuid.UUID) (int32, error)
	getNextKotNumberFn        func(ctx context.Context, branchID uuid.UUID) (int32, error)
	getMenuItemForOrderFn     func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	createDiningOrderFn       func(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error)
	getDiningOrderForUpdateFn func(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error)
	updateDiningOrderStatusFn func(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error)
	createKotFn               func(ctx context.Context, arg database.CreateKotParams) (database.Kot, error)
	createKotItemFn           func(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error)
	cancelOpenKotsByOrderFn   func(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error)
}

func (m *mockOrderStore) GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	return m.getNextOrderNumberFn(ctx, branchID)
}
func (m *mockOrderStore) GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int32, error) {
	return m.getNextKotNumberFn(ctx, branchID)
}
func (m *mockOrderStore) GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
	return m.getMenuItemForOrderFn(ctx, arg)
}
func (m *mockOrderStore) CreateDiningOrder(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error) {
	return m.createDiningOrderFn(ctx, arg)
}
func (m *mockOrderStore) GetDiningOrderForUpdate(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error) {
	return m.getDiningOrderForUpdateFn(ctx, arg)
}
func (m *mockOrderStore) UpdateDiningOrderStatus(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error) {
	return m.updateDiningOrderStatusFn(ctx, arg)
}
func (m *mockOrderStore) CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error) {
	return m.createKotFn(ctx, arg)
}
func (m *mockOrderStore) CreateKotItem(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error) {
	return m.createKotItemFn(ctx, arg)
}
func (m *mockOrderStore) CancelOpenKotsByOrder(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error) {
	return m.cancelOpenKotsByOrderFn(ctx, orderID)
}

// --- Test helpers ---

func newTestOrderService(store *mockOrderStore) (*OrderService, *mockTx, *recordingNotifier) {
	tx := &mockTx{}
	pool := &mockTxBeginner{tx: tx}
	n := &recordingNotifier{}
	newStore := func(db database.DBTX) OrderStore { return store }
	return NewOrderService(pool, newStore, n), tx, n
}

// defaultOrderStore knows one available menu item in one branch and
// echoes every insert back.
func defaultOrderStore(branchID, menuItemID uuid.UUID) *mockOrderStore {
	return &mockOrderStore{
		getNextOrderNumberFn: func(ctx context.Context, bid uuid.UUID) (int32, error) { return 1, nil },
		getNextKotNumberFn:   func(ctx context.Context, bid uuid.UUID) (int32, error) { return 1, nil },
		getMenuItemForOrderFn: func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
			if arg.ID == menuItemID && arg.BranchID == branchID {
				return database.GetMenuItemForOrderRow{
					ID:          menuItemID,
					BranchID:    branchID,
					Name:        "Nasi Goreng",
					Price:       decimal.RequireFromString("25000.00"),
					Station:     enum.StationGrill,
					IsAvailable: true,
				}, nil
			}
			return database.GetMenuItemForOrderRow{}, pgx.ErrNoRows
		},
		createDiningOrderFn: func(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error) {
			return database.DiningOrder{
				ID:          uuid.New(),
				BranchID:    arg.BranchID,
				OrderNumber: arg.OrderNumber,
				OrderType:   arg.OrderType,
				Status:      enum.DiningOrderStatusOpen,
				TableNumber: arg.TableNumber,
				GuestCount:  arg.GuestCount,
				Notes:       arg.Notes,
				CreatedBy:   arg.CreatedBy,
			}, nil
		},
		getDiningOrderForUpdateFn: func(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error) {
			return database.DiningOrder{ID: arg.ID, BranchID: arg.BranchID, Status: enum.DiningOrderStatusOpen}, nil
		},
		updateDiningOrderStatusFn: func(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error) {
			return database.DiningOrder{ID: arg.ID, BranchID: branchID, Status: arg.Status}, nil
		},
		createKotFn: func(ctx context.Context, arg database.CreateKotParams) (database.Kot, error) {
			return database.Kot{
				ID:            uuid.New(),
				BranchID:      arg.BranchID,
				DiningOrderID: arg.DiningOrderID,
				KotNumber:     arg.KotNumber,
				Status:        enum.KotStatusPending,
				Notes:         arg.Notes,
				CreatedBy:     arg.CreatedBy,
			}, nil
		},
		createKotItemFn: func(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error) {
			return database.KotItem{
				ID:         uuid.New(),
				KotID:      arg.KotID,
				MenuItemID: arg.MenuItemID,
				ItemName:   arg.ItemName,
				Quantity:   arg.Quantity,
				UnitPrice:  arg.UnitPrice,
				Notes:      arg.Notes,
				Station:    arg.Station,
			}, nil
		},
		cancelOpenKotsByOrderFn: func(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error) {
			return nil, nil
		},
	}
}

func basicOrderReq(branchID, menuItemID uuid.UUID) CreateOrderRequest {
	return CreateOrderRequest{
		BranchID:    branchID,
		CreatedBy:   uuid.New(),
		OrderType:   enum.OrderTypeDineIn,
		TableNumber: "T1",
		Items: []OrderItemRequest{
			{MenuItemID: menuItemID, Quantity: 2},
		},
	}
}

// =====================
// Validation tests
// =====================

func TestCreateOrder_EmptyItems(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore(uuid.New(), uuid.New()))

	req := basicOrderReq(uuid.New(), uuid.New())
	req.Items = nil
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrEmptyItems) {
		t.Fatalf("expected ErrEmptyItems, got: %v", err)
	}
}

func TestCreateOrder_InvalidOrderType(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore(uuid.New(), uuid.New()))

	req := basicOrderReq(uuid.New(), uuid.New())
	req.OrderType = "CATERING"
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidOrderType) {
		t.Fatalf("expected ErrInvalidOrderType, got: %v", err)
	}
}

func TestCreateOrder_DineInNeedsTable(t *testing.T) {
	svc, _, _ := newTestOrderService(defaultOrderStore(uuid.New(), uuid.New()))

	req := basicOrderReq(uuid.New(), uuid.New())
	req.TableNumber = ""
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrTableRequired) {
		t.Fatalf("expected ErrTableRequired, got: %v", err)
	}
}

func TestCreateOrder_TakeawayWithoutTable(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	svc, _, _ := newTestOrderService(defaultOrderStore(branchID, menuItemID))

	req := basicOrderReq(branchID, menuItemID)
	req.OrderType = enum.OrderTypeTakeaway
	req.TableNumber = ""
	result, err := svc.CreateOrder(context.Background(), req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.TableNumber.Valid {
		t.Errorf("table_number should be NULL, got %q", result.Order.TableNumber.String)
	}
}

func TestCreateOrder_ZeroQuantity(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	svc, _, _ := newTestOrderService(defaultOrderStore(branchID, menuItemID))

	req := basicOrderReq(branchID, menuItemID)
	req.Items[0].Quantity = 0
	_, err := svc.CreateOrder(context.Background(), req)
	if !errors.Is(err, ErrInvalidQuantity) {
		t.Fatalf("expected ErrInvalidQuantity, got: %v", err)
	}
}

func TestCreateOrder_MenuItemNotFound(t *testing.T) {
	branchID := uuid.New()
	store := defaultOrderStore(branchID, uuid.New()) // store knows a different item
	svc, tx, n := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, uuid.New()))
	if !errors.Is(err, ErrMenuItemNotFound) {
		t.Fatalf("expected ErrMenuItemNotFound, got: %v", err)
	}
	if tx.committed {
		t.Error("transaction must not commit on failure")
	}
	if len(n.types()) != 0 {
		t.Errorf("no events expected, got %v", n.types())
	}
}

func TestCreateOrder_MenuItemUnavailable(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)
	store.getMenuItemForOrderFn = func(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error) {
		return database.GetMenuItemForOrderRow{ID: menuItemID, BranchID: branchID, IsAvailable: false}, nil
	}
	svc, _, _ := newTestOrderService(store)

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID))
	if !errors.Is(err, ErrMenuItemUnavailable) {
		t.Fatalf("expected ErrMenuItemUnavailable, got: %v", err)
	}
	if !strings.Contains(err.Error(), "items[0]") {
		t.Errorf("error should name the offending item, got: %v", err)
	}
}

// =====================
// Happy path
// =====================

func TestCreateOrder_SnapshotsPriceAndNumbers(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)
	store.getNextOrderNumberFn = func(ctx context.Context, bid uuid.UUID) (int32, error) { return 42, nil }
	store.getNextKotNumberFn = func(ctx context.Context, bid uuid.UUID) (int32, error) { return 7, nil }
	svc, tx, n := newTestOrderService(store)

	result, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Order.OrderNumber != "ORD-0042" {
		t.Errorf("order number = %q, want ORD-0042", result.Order.OrderNumber)
	}
	if result.Kot.Kot.KotNumber != "KOT-0007" {
		t.Errorf("kot number = %q, want KOT-0007", result.Kot.Kot.KotNumber)
	}
	if result.Kot.Kot.DiningOrderID != result.Order.ID {
		t.Error("kot must belong to the new order")
	}
	if result.Order.GuestCount != 1 {
		t.Errorf("guest count default = %d, want 1", result.Order.GuestCount)
	}
	if len(result.Kot.Items) != 1 {
		t.Fatalf("expected 1 kot item, got %d", len(result.Kot.Items))
	}
	item := result.Kot.Items[0]
	if !item.UnitPrice.Equal(decimal.RequireFromString("25000")) {
		t.Errorf("unit price = %s, want 25000", item.UnitPrice)
	}
	if item.Station != enum.StationGrill || item.ItemName != "Nasi Goreng" {
		t.Errorf("kot item did not copy menu data: %+v", item)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	if got := n.types(); len(got) != 1 || got[0] != ws.EventKotCreated {
		t.Errorf("events = %v, want [%s]", got, ws.EventKotCreated)
	}
}

func TestCreateOrder_CommitFailure(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	svc, tx, n := newTestOrderService(defaultOrderStore(branchID, menuItemID))
	tx.commitErr = errors.New("connection reset")

	_, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID))
	if err == nil || !strings.Contains(err.Error(), "commit tx") {
		t.Fatalf("expected commit error, got: %v", err)
	}
	if len(n.types()) != 0 {
		t.Error("nothing may be broadcast before commit")
	}
}

// =====================
// Number retry
// =====================

func TestCreateOrder_RetryOnOrderNumberConflict(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)

	createCalls := 0
	echo := store.createDiningOrderFn
	store.createDiningOrderFn = func(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error) {
		createCalls++
		if createCalls == 1 {
			return database.DiningOrder{}, numberConflict("dining_orders_branch_id_order_number_key")
		}
		return echo(ctx, arg)
	}
	numberCalls := 0
	store.getNextOrderNumberFn = func(ctx context.Context, bid uuid.UUID) (int32, error) {
		numberCalls++
		return int32(numberCalls), nil
	}

	svc, _, _ := newTestOrderService(store)
	result, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID))
	if err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if createCalls != 2 || numberCalls != 2 {
		t.Errorf("expected 2 attempts, got create=%d number=%d", createCalls, numberCalls)
	}
	if result.Order.OrderNumber != "ORD-0002" {
		t.Errorf("order number = %q, want ORD-0002", result.Order.OrderNumber)
	}
}

func TestCreateOrder_RetryOnKotNumberConflict(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)

	kotCalls := 0
	echo := store.createKotFn
	store.createKotFn = func(ctx context.Context, arg database.CreateKotParams) (database.Kot, error) {
		kotCalls++
		if kotCalls == 1 {
			return database.Kot{}, numberConflict("kots_branch_id_kot_number_key")
		}
		return echo(ctx, arg)
	}

	svc, _, _ := newTestOrderService(store)
	if _, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID)); err != nil {
		t.Fatalf("unexpected error after retry: %v", err)
	}
	if kotCalls != 2 {
		t.Errorf("expected 2 CreateKot calls, got %d", kotCalls)
	}
}

func TestCreateOrder_RetryExhausted(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)
	store.createDiningOrderFn = func(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error) {
		return database.DiningOrder{}, numberConflict("dining_orders_branch_id_order_number_key")
	}

	svc, _, _ := newTestOrderService(store)
	_, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID))
	if err == nil {
		t.Fatal("expected error after exhausting retries, got nil")
	}
	if !strings.Contains(err.Error(), "create dining order") {
		t.Errorf("expected 'create dining order' in error message, got: %v", err)
	}
}

func TestCreateOrder_NonUniqueErrorNotRetried(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)

	callCount := 0
	store.createDiningOrderFn = func(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error) {
		callCount++
		return database.DiningOrder{}, errors.New("some other DB error")
	}

	svc, _, _ := newTestOrderService(store)
	if _, err := svc.CreateOrder(context.Background(), basicOrderReq(branchID, menuItemID)); err == nil {
		t.Fatal("expected error, got nil")
	}
	if callCount != 1 {
		t.Errorf("non-unique errors should not retry: expected 1 call, got %d", callCount)
	}
}

// =====================
// AddKot / CancelOrder
// =====================

func TestAddKot_OrderNotOpen(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)
	store.getDiningOrderForUpdateFn = func(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error) {
		return database.DiningOrder{ID: arg.ID, BranchID: arg.BranchID, Status: enum.DiningOrderStatusBilled}, nil
	}
	svc, _, _ := newTestOrderService(store)

	_, err := svc.AddKot(context.Background(), AddKotRequest{
		BranchID: branchID, OrderID: uuid.New(), CreatedBy: uuid.New(),
		Items: []OrderItemRequest{{MenuItemID: menuItemID, Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen, got: %v", err)
	}
}

func TestAddKot_OrderNotFound(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	store := defaultOrderStore(branchID, menuItemID)
	store.getDiningOrderForUpdateFn = func(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error) {
		return database.DiningOrder{}, pgx.ErrNoRows
	}
	svc, _, _ := newTestOrderService(store)

	_, err := svc.AddKot(context.Background(), AddKotRequest{
		BranchID: branchID, OrderID: uuid.New(),
		Items: []OrderItemRequest{{MenuItemID: menuItemID, Quantity: 1}},
	})
	if !errors.Is(err, ErrOrderNotFound) {
		t.Fatalf("expected ErrOrderNotFound, got: %v", err)
	}
}

func TestAddKot_Success(t *testing.T) {
	branchID, menuItemID := uuid.New(), uuid.New()
	orderID := uuid.New()
	svc, tx, n := newTestOrderService(defaultOrderStore(branchID, menuItemID))

	result, err := svc.AddKot(context.Background(), AddKotRequest{
		BranchID: branchID, OrderID: orderID, CreatedBy: uuid.New(), Notes: "no chili",
		Items: []OrderItemRequest{{MenuItemID: menuItemID, Quantity: 3}},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Kot.DiningOrderID != orderID {
		t.Error("kot must attach to the locked order")
	}
	if result.Kot.Notes.String != "no chili" {
		t.Errorf("notes = %q", result.Kot.Notes.String)
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	if got := n.types(); len(got) != 1 || got[0] != ws.EventKotCreated {
		t.Errorf("events = %v", got)
	}
}

func TestCancelOrder_CancelsOpenKots(t *testing.T) {
	branchID := uuid.New()
	store := defaultOrderStore(branchID, uuid.New())
	var gotStatus string
	store.cancelOpenKotsByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error) {
		return []database.Kot{
			{ID: uuid.New(), DiningOrderID: orderID, Status: enum.KotStatusCancelled},
			{ID: uuid.New(), DiningOrderID: orderID, Status: enum.KotStatusCancelled},
		}, nil
	}
	store.updateDiningOrderStatusFn = func(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error) {
		gotStatus = arg.Status
		return database.DiningOrder{ID: arg.ID, Status: arg.Status}, nil
	}
	svc, tx, n := newTestOrderService(store)

	result, err := svc.CancelOrder(context.Background(), branchID, uuid.New())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotStatus != enum.DiningOrderStatusCancelled {
		t.Errorf("status = %q, want CANCELLED", gotStatus)
	}
	if len(result.CancelledKots) != 2 {
		t.Errorf("cancelled kots = %d, want 2", len(result.CancelledKots))
	}
	if !tx.committed {
		t.Error("expected commit")
	}
	want := []string{ws.EventKotUpdated, ws.EventKotUpdated, ws.EventOrderCancelled}
	got := n.types()
	if len(got) != len(want) {
		t.Fatalf("events = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event[%d] = %q, want %q", i, got[i], want[i])
		}
	}
}

func TestCancelOrder_RejectsBilled(t *testing.T) {
	branchID := uuid.New()
	store := defaultOrderStore(branchID, uuid.New())
	store.getDiningOrderForUpdateFn = func(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error) {
		return database.DiningOrder{ID: arg.ID, Status: enum.DiningOrderStatusBilled}, nil
	}
	store.cancelOpenKotsByOrderFn = func(ctx context.Context, orderID uuid.UUID) ([]database.Kot, error) {
		t.Fatal("kots must not be touched for a billed order")
		return nil, nil
	}
	svc, _, _ := newTestOrderService(store)

	_, err := svc.CancelOrder(context.Background(), branchID, uuid.New())
	if !errors.Is(err, ErrOrderNotOpen) {
		t.Fatalf("expected ErrOrderNotOpen, got: %v", err)
	}
}
