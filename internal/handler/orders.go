package handler

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/service"
	"github.com/tablekeep/backoffice/internal/validate"
)

// OrderServicer defines the service methods needed by order handlers.
// Satisfied by *service.OrderService; narrow interface for testability.
type OrderServicer interface {
	CreateOrder(ctx context.Context, req service.CreateOrderRequest) (*service.CreateOrderResult, error)
	AddKot(ctx context.Context, req service.AddKotRequest) (*service.KotResult, error)
	CancelOrder(ctx context.Context, branchID, orderID uuid.UUID) (*service.CancelOrderResult, error)
}

// BillGenerator turns an open order into a bill.
// Satisfied by *service.BillingService.
type BillGenerator interface {
	GenerateBill(ctx context.Context, req service.GenerateBillRequest) (*service.BillResult, error)
}

// OrderStore defines the database methods needed by order read handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type OrderStore interface {
	GetDiningOrder(ctx context.Context, arg database.GetDiningOrderParams) (database.DiningOrder, error)
	ListDiningOrders(ctx context.Context, arg database.ListDiningOrdersParams) ([]database.DiningOrder, error)
	ListKotsByOrder(ctx context.Context, diningOrderID uuid.UUID) ([]database.Kot, error)
	ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]database.KotItem, error)
}

// OrderHandler handles dining order endpoints.
type OrderHandler struct {
	svc       OrderServicer
	billing   BillGenerator
	store     OrderStore
	validator *validate.Validator
}

func NewOrderHandler(svc OrderServicer, billing BillGenerator, store OrderStore, v *validate.Validator) *OrderHandler {
	return &OrderHandler{svc: svc, billing: billing, store: store, validator: v}
}

// RegisterRoutes registers order endpoints on the given Chi router.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/orders
func (h *OrderHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Create)
	r.Get("/", h.List)
	r.Get("/{id}", h.Get)
	r.Delete("/{id}", h.Cancel)
	r.Post("/{id}/kots", h.AddKot)
	r.Post("/{id}/bill", h.GenerateBill)
}

// --- Request / Response types ---

type createOrderRequest struct {
	OrderType   string             `json:"order_type" validate:"required,oneof=DINE_IN TAKEAWAY DELIVERY"`
	TableNumber string             `json:"table_number" validate:"max=20"`
	GuestCount  int32              `json:"guest_count" validate:"gte=0,lte=100"`
	Notes       string             `json:"notes" validate:"max=500"`
	KotNotes    string             `json:"kot_notes" validate:"max=500"`
	Items       []orderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type orderItemRequest struct {
	MenuItemID string `json:"menu_item_id" validate:"required,uuid"`
	Quantity   int32  `json:"quantity" validate:"gt=0,lte=999"`
	Notes      string `json:"notes" validate:"max=200"`
}

type addKotRequest struct {
	Notes string             `json:"notes" validate:"max=500"`
	Items []orderItemRequest `json:"items" validate:"required,min=1,max=100,dive"`
}

type generateBillRequest struct {
	VoucherCode string `json:"voucher_code" validate:"max=32"`
}

type kotDetail struct {
	database.Kot
	Items []database.KotItem `json:"items"`
}

// orderDetailResponse is an order with every ticket sent for it.
type orderDetailResponse struct {
	database.DiningOrder
	Kots []kotDetail `json:"kots"`
}

// orderListResponse wraps a list of orders with pagination metadata.
type orderListResponse struct {
	Orders []database.DiningOrder `json:"orders"`
	Limit  int                    `json:"limit"`
	Offset int                    `json:"offset"`
}

var orderStatuses = map[string]bool{
	enum.DiningOrderStatusOpen:      true,
	enum.DiningOrderStatusBilled:    true,
	enum.DiningOrderStatusClosed:    true,
	enum.DiningOrderStatusCancelled: true,
}

// --- Handlers ---

// Create handles POST /branches/{bid}/orders.
func (h *OrderHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	var req createOrderRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.svc.CreateOrder(r.Context(), service.CreateOrderRequest{
		BranchID:    branchID,
		CreatedBy:   claims.UserID,
		OrderType:   req.OrderType,
		TableNumber: req.TableNumber,
		GuestCount:  req.GuestCount,
		Notes:       req.Notes,
		KotNotes:    req.KotNotes,
		Items:       toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, r, "create order", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /branches/{bid}/orders.
func (h *OrderHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	limit, offset := pagination(r)
	params := database.ListDiningOrdersParams{
		BranchID: branchID,
		Limit:    int32(limit),
		Offset:   int32(offset),
	}

	q := r.URL.Query()
	if s := q.Get("status"); s != "" {
		if !orderStatuses[s] {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}
	if s := q.Get("start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid start_date format, use YYYY-MM-DD")
			return
		}
		params.StartDate = pgtype.Timestamptz{Time: t, Valid: true}
	}
	if s := q.Get("end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid end_date format, use YYYY-MM-DD")
			return
		}
		// end_date is inclusive of the whole day.
		params.EndDate = pgtype.Timestamptz{Time: t.AddDate(0, 0, 1), Valid: true}
	}

	orders, err := h.store.ListDiningOrders(r.Context(), params)
	if err != nil {
		internalError(w, r, "list orders", err)
		return
	}
	if orders == nil {
		orders = []database.DiningOrder{}
	}

	writeJSON(w, http.StatusOK, orderListResponse{
		Orders: orders,
		Limit:  limit,
		Offset: offset,
	})
}

// Get handles GET /branches/{bid}/orders/{id}.
func (h *OrderHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	order, err := h.store.GetDiningOrder(r.Context(), database.GetDiningOrderParams{
		ID:       orderID,
		BranchID: branchID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "order not found")
			return
		}
		internalError(w, r, "get order", err)
		return
	}

	kots, err := h.store.ListKotsByOrder(r.Context(), orderID)
	if err != nil {
		internalError(w, r, "list kots", err)
		return
	}

	resp := orderDetailResponse{DiningOrder: order, Kots: make([]kotDetail, len(kots))}
	for i, k := range kots {
		items, err := h.store.ListKotItemsByKot(r.Context(), k.ID)
		if err != nil {
			internalError(w, r, "list kot items", err)
			return
		}
		if items == nil {
			items = []database.KotItem{}
		}
		resp.Kots[i] = kotDetail{Kot: k, Items: items}
	}

	writeJSON(w, http.StatusOK, resp)
}

// AddKot handles POST /branches/{bid}/orders/{id}/kots.
func (h *OrderHandler) AddKot(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req addKotRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.svc.AddKot(r.Context(), service.AddKotRequest{
		BranchID:  branchID,
		OrderID:   orderID,
		CreatedBy: claims.UserID,
		Notes:     req.Notes,
		Items:     toServiceItems(req.Items),
	})
	if err != nil {
		writeServiceError(w, r, "add kot", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// Cancel handles DELETE /branches/{bid}/orders/{id}. Only OPEN orders can
// be cancelled; their unfinished tickets are cancelled with them.
func (h *OrderHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	result, err := h.svc.CancelOrder(r.Context(), branchID, orderID)
	if err != nil {
		writeServiceError(w, r, "cancel order", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// GenerateBill handles POST /branches/{bid}/orders/{id}/bill.
func (h *OrderHandler) GenerateBill(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	orderID, ok := urlUUID(w, r, "id", "order")
	if !ok {
		return
	}

	var req generateBillRequest
	if r.ContentLength != 0 {
		if !decodeAndValidate(w, r, h.validator, &req) {
			return
		}
	}

	result, err := h.billing.GenerateBill(r.Context(), service.GenerateBillRequest{
		BranchID:    branchID,
		OrderID:     orderID,
		CreatedBy:   claims.UserID,
		VoucherCode: req.VoucherCode,
	})
	if err != nil {
		writeServiceError(w, r, "generate bill", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// toServiceItems converts validated request lines. menu_item_id has already
// passed the uuid rule.
func toServiceItems(items []orderItemRequest) []service.OrderItemRequest {
	out := make([]service.OrderItemRequest, len(items))
	for i, it := range items {
		out[i] = service.OrderItemRequest{
			MenuItemID: uuid.MustParse(it.MenuItemID),
			Quantity:   it.Quantity,
			Notes:      it.Notes,
		}
	}
	return out
}
