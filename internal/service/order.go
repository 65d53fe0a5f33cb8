package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// OrderStore defines the DB methods needed to open orders and send tickets
// to the kitchen. Satisfied by *database.Queries (and its WithTx variant).
type OrderStore interface {
	GetNextOrderNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	GetNextKotNumber(ctx context.Context, branchID uuid.UUID) (int32, error)
	GetMenuItemForOrder(ctx context.Context, arg database.GetMenuItemForOrderParams) (database.GetMenuItemForOrderRow, error)
	CreateDiningOrder(ctx context.Context, arg database.CreateDiningOrderParams) (database.DiningOrder, error)
	GetDiningOrderForUpdate(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error)
	UpdateDiningOrderStatus(ctx context.Context, arg database.UpdateDiningOrderStatusParams) (database.DiningOrder, error)
	CreateKot(ctx context.Context, arg database.CreateKotParams) (database.Kot, error)
	CreateKotItem(ctx context.Context, arg database.CreateKotItemParams) (database.KotItem, error)
	CancelOpenKotsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]database.Kot, error)
}

// NewOrderStore creates an OrderStore from a DBTX (pool or tx).
type NewOrderStore func(db database.DBTX) OrderStore

// CreateOrderRequest is the validated input for opening a dining order with
// its first kitchen ticket.
type CreateOrderRequest struct {
	BranchID    uuid.UUID
	CreatedBy   uuid.UUID
	OrderType   string
	TableNumber string
	GuestCount  int32
	Notes       string
	KotNotes    string
	Items       []OrderItemRequest
}

// AddKotRequest sends another round of items for an open order.
type AddKotRequest struct {
	BranchID  uuid.UUID
	OrderID   uuid.UUID
	CreatedBy uuid.UUID
	Notes     string
	Items     []OrderItemRequest
}

// OrderItemRequest is one menu line on a ticket.
type OrderItemRequest struct {
	MenuItemID uuid.UUID
	Quantity   int32
	Notes      string
}

// KotResult is a ticket with its items.
type KotResult struct {
	Kot   database.Kot       `json:"kot"`
	Items []database.KotItem `json:"items"`
}

// CreateOrderResult is the new order and its first ticket.
type CreateOrderResult struct {
	Order database.DiningOrder `json:"order"`
	Kot   KotResult            `json:"kot"`
}

// CancelOrderResult is the cancelled order and the tickets it pulled back.
type CancelOrderResult struct {
	Order         database.DiningOrder `json:"order"`
	CancelledKots []database.Kot       `json:"cancelled_kots"`
}

// OrderService handles the dining order and KOT workflow.
type OrderService struct {
	pool     TxBeginner
	newStore NewOrderStore
	notifier Notifier
}

func NewOrderService(pool TxBeginner, newStore NewOrderStore, notifier Notifier) *OrderService {
	return &OrderService{pool: pool, newStore: newStore, notifier: notifierOrNop(notifier)}
}

// CreateOrder opens a dining order and its first KOT in one transaction:
// order number, order row, KOT number, KOT row, then one KOT item per line
// with the menu price snapshotted. The whole transaction is replayed when a
// concurrent request takes the same order or KOT number.
func (s *OrderService) CreateOrder(ctx context.Context, req CreateOrderRequest) (result *CreateOrderResult, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CreateOrder",
		trace.WithAttributes(attribute.String("branch_id", req.BranchID.String())))
	defer func() { endSpan(span, err) }()

	if err := validateOrderType(req.OrderType); err != nil {
		return nil, err
	}
	if req.OrderType == enum.OrderTypeDineIn && req.TableNumber == "" {
		return nil, ErrTableRequired
	}
	if err := validateItems(req.Items); err != nil {
		return nil, err
	}
	if req.GuestCount <= 0 {
		req.GuestCount = 1
	}

	result, err = withNumberRetry(func() (*CreateOrderResult, error) {
		return s.createOrderTx(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(req.BranchID, ws.EventKotCreated, result.Kot)
	return result, nil
}

func (s *OrderService) createOrderTx(ctx context.Context, req CreateOrderRequest) (*CreateOrderResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	nextNum, err := store.GetNextOrderNumber(ctx, req.BranchID)
	if err != nil {
		return nil, fmt.Errorf("get next order number: %w", err)
	}

	order, err := store.CreateDiningOrder(ctx, database.CreateDiningOrderParams{
		BranchID:    req.BranchID,
		OrderNumber: fmt.Sprintf("ORD-%04d", nextNum),
		OrderType:   req.OrderType,
		TableNumber: textOrNull(req.TableNumber),
		GuestCount:  req.GuestCount,
		Notes:       textOrNull(req.Notes),
		CreatedBy:   req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create dining order: %w", err)
	}

	kot, err := createKot(ctx, store, order, req.CreatedBy, req.KotNotes, req.Items)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &CreateOrderResult{Order: order, Kot: *kot}, nil
}

// AddKot sends a further ticket for an OPEN order. The order row is locked
// so a concurrent bill or cancel cannot interleave.
func (s *OrderService) AddKot(ctx context.Context, req AddKotRequest) (result *KotResult, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.AddKot",
		trace.WithAttributes(attribute.String("order_id", req.OrderID.String())))
	defer func() { endSpan(span, err) }()

	if err := validateItems(req.Items); err != nil {
		return nil, err
	}

	result, err = withNumberRetry(func() (*KotResult, error) {
		return s.addKotTx(ctx, req)
	})
	if err != nil {
		return nil, err
	}

	s.notifier.Publish(req.BranchID, ws.EventKotCreated, result)
	return result, nil
}

func (s *OrderService) addKotTx(ctx context.Context, req AddKotRequest) (*KotResult, error) {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetDiningOrderForUpdate(ctx, database.GetDiningOrderParams{ID: req.OrderID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.DiningOrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	kot, err := createKot(ctx, store, order, req.CreatedBy, req.Notes, req.Items)
	if err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return kot, nil
}

// CancelOrder cancels an OPEN order and pulls back its tickets that the
// kitchen has not finished.
func (s *OrderService) CancelOrder(ctx context.Context, branchID, orderID uuid.UUID) (result *CancelOrderResult, err error) {
	ctx, span := tracer.Start(ctx, "OrderService.CancelOrder",
		trace.WithAttributes(attribute.String("order_id", orderID.String())))
	defer func() { endSpan(span, err) }()

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	order, err := store.GetDiningOrderForUpdate(ctx, database.GetDiningOrderParams{ID: orderID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrOrderNotFound
		}
		return nil, fmt.Errorf("lock order: %w", err)
	}
	if order.Status != enum.DiningOrderStatusOpen {
		return nil, ErrOrderNotOpen
	}

	kots, err := store.CancelOpenKotsByOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("cancel kots: %w", err)
	}

	order, err = store.UpdateDiningOrderStatus(ctx, database.UpdateDiningOrderStatusParams{
		ID:     orderID,
		Status: enum.DiningOrderStatusCancelled,
	})
	if err != nil {
		return nil, fmt.Errorf("update order status: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}

	for _, k := range kots {
		s.notifier.Publish(branchID, ws.EventKotUpdated, k)
	}
	s.notifier.Publish(branchID, ws.EventOrderCancelled, order)
	return &CancelOrderResult{Order: order, CancelledKots: kots}, nil
}

// createKot allocates a KOT number and writes the ticket and its items.
func createKot(ctx context.Context, store OrderStore, order database.DiningOrder, createdBy uuid.UUID, notes string, items []OrderItemRequest) (*KotResult, error) {
	nextNum, err := store.GetNextKotNumber(ctx, order.BranchID)
	if err != nil {
		return nil, fmt.Errorf("get next kot number: %w", err)
	}

	kot, err := store.CreateKot(ctx, database.CreateKotParams{
		BranchID:      order.BranchID,
		DiningOrderID: order.ID,
		KotNumber:     fmt.Sprintf("KOT-%04d", nextNum),
		Notes:         textOrNull(notes),
		CreatedBy:     createdBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create kot: %w", err)
	}

	kotItems := make([]database.KotItem, 0, len(items))
	for i, item := range items {
		mi, err := store.GetMenuItemForOrder(ctx, database.GetMenuItemForOrderParams{
			ID:       item.MenuItemID,
			BranchID: order.BranchID,
		})
		if err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemNotFound)
			}
			return nil, fmt.Errorf("items[%d]: get menu item: %w", i, err)
		}
		if !mi.IsAvailable {
			return nil, fmt.Errorf("items[%d]: %w", i, ErrMenuItemUnavailable)
		}

		ki, err := store.CreateKotItem(ctx, database.CreateKotItemParams{
			KotID:      kot.ID,
			MenuItemID: mi.ID,
			ItemName:   mi.Name,
			Quantity:   item.Quantity,
			UnitPrice:  mi.Price,
			Notes:      textOrNull(item.Notes),
			Station:    mi.Station,
		})
		if err != nil {
			return nil, fmt.Errorf("items[%d]: create kot item: %w", i, err)
		}
		kotItems = append(kotItems, ki)
	}

	return &KotResult{Kot: kot, Items: kotItems}, nil
}

// --- Helpers ---

func validateOrderType(s string) error {
	switch s {
	case enum.OrderTypeDineIn, enum.OrderTypeTakeaway, enum.OrderTypeDelivery:
		return nil
	}
	return ErrInvalidOrderType
}

func validateItems(items []OrderItemRequest) error {
	if len(items) == 0 {
		return ErrEmptyItems
	}
	for i, item := range items {
		if item.Quantity <= 0 {
			return fmt.Errorf("items[%d]: %w", i, ErrInvalidQuantity)
		}
	}
	return nil
}
