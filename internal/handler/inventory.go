package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/service"
	"github.com/tablekeep/backoffice/internal/validate"
)

// InventoryStore defines the database methods needed by inventory handlers.
type InventoryStore interface {
	ListInventoryItems(ctx context.Context, branchID uuid.UUID) ([]database.InventoryItem, error)
	ListLowStockItems(ctx context.Context, branchID uuid.UUID) ([]database.InventoryItem, error)
	GetInventoryItem(ctx context.Context, arg database.GetInventoryItemParams) (database.InventoryItem, error)
	CreateInventoryItem(ctx context.Context, arg database.CreateInventoryItemParams) (database.InventoryItem, error)
	UpdateInventoryItem(ctx context.Context, arg database.UpdateInventoryItemParams) (database.InventoryItem, error)
	SoftDeleteInventoryItem(ctx context.Context, arg database.SoftDeleteInventoryItemParams) (uuid.UUID, error)
	ListStockMovements(ctx context.Context, inventoryItemID uuid.UUID) ([]database.StockMovement, error)
	GetSupplier(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
}

// StockAdjuster applies a stock adjustment transactionally.
// Satisfied by *service.InventoryService.
type StockAdjuster interface {
	AdjustStock(ctx context.Context, req service.AdjustStockRequest) (*service.AdjustStockResult, error)
}

// InventoryHandler handles stock items, adjustments and low-stock reporting.
type InventoryHandler struct {
	store     InventoryStore
	adjuster  StockAdjuster
	validator *validate.Validator
}

func NewInventoryHandler(store InventoryStore, adjuster StockAdjuster, v *validate.Validator) *InventoryHandler {
	return &InventoryHandler{store: store, adjuster: adjuster, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/inventory.
func (h *InventoryHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/low-stock", h.LowStock)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
	r.Post("/{id}/adjustments", h.Adjust)
	r.Get("/{id}/adjustments", h.ListAdjustments)
}

type createInventoryItemRequest struct {
	Sku          string `json:"sku" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=200"`
	Unit         string `json:"unit" validate:"required,max=20"`
	Quantity     string `json:"quantity" validate:"omitempty,decimal_gte0,qty"`
	ReorderLevel string `json:"reorder_level" validate:"omitempty,decimal_gte0,qty"`
	CostPrice    string `json:"cost_price" validate:"omitempty,decimal_gte0,money"`
	SupplierID   string `json:"supplier_id" validate:"omitempty,uuid"`
}

// Quantity only changes through adjustments once an item exists.
type updateInventoryItemRequest struct {
	Sku          string `json:"sku" validate:"required,max=64"`
	Name         string `json:"name" validate:"required,max=200"`
	Unit         string `json:"unit" validate:"required,max=20"`
	ReorderLevel string `json:"reorder_level" validate:"omitempty,decimal_gte0,qty"`
	CostPrice    string `json:"cost_price" validate:"omitempty,decimal_gte0,money"`
	SupplierID   string `json:"supplier_id" validate:"omitempty,uuid"`
}

type adjustStockRequest struct {
	Delta  string `json:"delta" validate:"required,decimal,qty"`
	Reason string `json:"reason" validate:"required,max=200"`
}

func (h *InventoryHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.ListInventoryItems, "list inventory")
}

// LowStock lists items at or below their reorder level.
func (h *InventoryHandler) LowStock(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, h.store.ListLowStockItems, "list low stock")
}

func (h *InventoryHandler) list(w http.ResponseWriter, r *http.Request, fetch func(context.Context, uuid.UUID) ([]database.InventoryItem, error), op string) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	items, err := fetch(r.Context(), branchID)
	if err != nil {
		internalError(w, r, op, err)
		return
	}
	if items == nil {
		items = []database.InventoryItem{}
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *InventoryHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "inventory item")
	if !ok {
		return
	}

	item, ok := h.loadItem(w, r, id, branchID)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	var req createInventoryItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	supplierID, ok := h.tenantSupplier(w, r, req.SupplierID)
	if !ok {
		return
	}

	item, err := h.store.CreateInventoryItem(r.Context(), database.CreateInventoryItemParams{
		BranchID:     branchID,
		SupplierID:   supplierID,
		Sku:          req.Sku,
		Name:         req.Name,
		Unit:         req.Unit,
		Quantity:     parseDecimal(req.Quantity),
		ReorderLevel: parseDecimal(req.ReorderLevel),
		CostPrice:    parseDecimal(req.CostPrice),
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "sku already exists in this branch")
			return
		}
		internalError(w, r, "create inventory item", err)
		return
	}

	writeJSON(w, http.StatusCreated, item)
}

func (h *InventoryHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "inventory item")
	if !ok {
		return
	}

	var req updateInventoryItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	supplierID, ok := h.tenantSupplier(w, r, req.SupplierID)
	if !ok {
		return
	}

	item, err := h.store.UpdateInventoryItem(r.Context(), database.UpdateInventoryItemParams{
		ID:           id,
		BranchID:     branchID,
		SupplierID:   supplierID,
		Sku:          req.Sku,
		Name:         req.Name,
		Unit:         req.Unit,
		ReorderLevel: parseDecimal(req.ReorderLevel),
		CostPrice:    parseDecimal(req.CostPrice),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "sku already exists in this branch")
			return
		}
		internalError(w, r, "update inventory item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *InventoryHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "inventory item")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteInventoryItem(r.Context(), database.SoftDeleteInventoryItemParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return
		}
		internalError(w, r, "delete inventory item", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Adjust handles POST /branches/{bid}/inventory/{id}/adjustments.
func (h *InventoryHandler) Adjust(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "inventory item")
	if !ok {
		return
	}

	var req adjustStockRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.adjuster.AdjustStock(r.Context(), service.AdjustStockRequest{
		BranchID:  branchID,
		ItemID:    id,
		Delta:     parseDecimal(req.Delta),
		Reason:    req.Reason,
		CreatedBy: claims.UserID,
	})
	if err != nil {
		writeServiceError(w, r, "adjust stock", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// ListAdjustments returns the item's stock movements, newest first.
func (h *InventoryHandler) ListAdjustments(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "inventory item")
	if !ok {
		return
	}

	if _, ok := h.loadItem(w, r, id, branchID); !ok {
		return
	}

	movements, err := h.store.ListStockMovements(r.Context(), id)
	if err != nil {
		internalError(w, r, "list stock movements", err)
		return
	}
	if movements == nil {
		movements = []database.StockMovement{}
	}

	writeJSON(w, http.StatusOK, movements)
}

func (h *InventoryHandler) loadItem(w http.ResponseWriter, r *http.Request, id, branchID uuid.UUID) (database.InventoryItem, bool) {
	item, err := h.store.GetInventoryItem(r.Context(), database.GetInventoryItemParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "inventory item not found")
			return database.InventoryItem{}, false
		}
		internalError(w, r, "get inventory item", err)
		return database.InventoryItem{}, false
	}
	return item, true
}

// tenantSupplier resolves an optional supplier_id within the caller's
// tenant.
func (h *InventoryHandler) tenantSupplier(w http.ResponseWriter, r *http.Request, raw string) (pgtype.UUID, bool) {
	supplierID, err := optionalUUID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid supplier_id")
		return pgtype.UUID{}, false
	}
	if !supplierID.Valid {
		return supplierID, true
	}

	claims, ok := requireClaims(w, r)
	if !ok {
		return pgtype.UUID{}, false
	}
	_, err = h.store.GetSupplier(r.Context(), database.GetSupplierParams{ID: supplierID.Bytes, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "supplier_id does not name a supplier of this tenant")
			return pgtype.UUID{}, false
		}
		internalError(w, r, "get supplier", err)
		return pgtype.UUID{}, false
	}
	return supplierID, true
}
