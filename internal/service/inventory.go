package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// InventoryStore defines the DB methods needed to adjust stock.
type InventoryStore interface {
	GetInventoryItemForUpdate(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	SetInventoryQuantity(ctx context.Context, arg database.SetInventoryQuantityParams) (database.InventoryItem, error)
	CreateStockMovement(ctx context.Context, arg database.CreateStockMovementParams) (database.StockMovement, error)
}

type NewInventoryStore func(db database.DBTX) InventoryStore

type AdjustStockRequest struct {
	BranchID  uuid.UUID
	ItemID    uuid.UUID
	Delta     decimal.Decimal
	Reason    string
	CreatedBy uuid.UUID
}

type AdjustStockResult struct {
	Item     database.InventoryItem `json:"item"`
	Movement database.StockMovement `json:"movement"`
}

type InventoryService struct {
	pool     TxBeginner
	newStore NewInventoryStore
}

func NewInventoryService(pool TxBeginner, newStore NewInventoryStore) *InventoryService {
	return &InventoryService{pool: pool, newStore: newStore}
}

// AdjustStock applies delta to the item's quantity and records the movement.
// Stock never goes below zero.
func (s *InventoryService) AdjustStock(ctx context.Context, req AdjustStockRequest) (result *AdjustStockResult, err error) {
	ctx, span := tracer.Start(ctx, "InventoryService.AdjustStock",
		trace.WithAttributes(attribute.String("inventory_item_id", req.ItemID.String())))
	defer func() { endSpan(span, err) }()

	if req.Delta.IsZero() {
		return nil, ErrZeroDelta
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck

	store := s.newStore(tx)

	item, err := store.GetInventoryItemForUpdate(ctx, database.GetInventoryItemParams{ID: req.ItemID, BranchID: req.BranchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrInventoryItemNotFound
		}
		return nil, fmt.Errorf("lock inventory item: %w", err)
	}

	after := item.Quantity.Add(req.Delta)
	if after.IsNegative() {
		return nil, ErrInsufficientStock
	}

	item, err = store.SetInventoryQuantity(ctx, database.SetInventoryQuantityParams{ID: item.ID, Quantity: after})
	if err != nil {
		return nil, fmt.Errorf("set quantity: %w", err)
	}

	movement, err := store.CreateStockMovement(ctx, database.CreateStockMovementParams{
		InventoryItemID: item.ID,
		Delta:           req.Delta,
		QuantityAfter:   after,
		Reason:          strings.TrimSpace(req.Reason),
		CreatedBy:       req.CreatedBy,
	})
	if err != nil {
		return nil, fmt.Errorf("create stock movement: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit tx: %w", err)
	}
	return &AdjustStockResult{Item: item, Movement: movement}, nil
}
