package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/service"
	"github.com/tablekeep/backoffice/internal/validate"
)

// BillServicer defines the billing operations on an existing bill.
// Satisfied by *service.BillingService.
type BillServicer interface {
	SplitBill(ctx context.Context, branchID, billID uuid.UUID, parts int) (*service.BillResult, error)
	UndoSplit(ctx context.Context, branchID, billID uuid.UUID) (*service.BillResult, error)
	VoidBill(ctx context.Context, branchID, billID uuid.UUID) (database.Bill, error)
}

// BillStore defines the database methods needed to read a bill.
type BillStore interface {
	GetBill(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
	ListBillItems(ctx context.Context, billID uuid.UUID) ([]database.BillItem, error)
	ListSplitBillsByBill(ctx context.Context, billID uuid.UUID) ([]database.SplitBill, error)
	ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]database.Payment, error)
}

// BillHandler handles bill reads, equal splits and voids.
type BillHandler struct {
	svc       BillServicer
	store     BillStore
	validator *validate.Validator
}

func NewBillHandler(svc BillServicer, store BillStore, v *validate.Validator) *BillHandler {
	return &BillHandler{svc: svc, store: store, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/bills.
func (h *BillHandler) RegisterRoutes(r chi.Router) {
	r.Get("/{id}", h.Get)
	r.Post("/{id}/split", h.Split)
	r.Delete("/{id}/split", h.UndoSplit)
	r.Post("/{id}/void", h.Void)
}

type splitBillRequest struct {
	Parts int `json:"parts" validate:"required,gte=2,lte=20"`
}

type billDetailResponse struct {
	database.Bill
	Items    []database.BillItem  `json:"items"`
	Splits   []database.SplitBill `json:"splits"`
	Payments []database.Payment   `json:"payments"`
}

// Get handles GET /branches/{bid}/bills/{id}.
func (h *BillHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	bill, err := h.store.GetBill(r.Context(), database.GetBillParams{ID: billID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		internalError(w, r, "get bill", err)
		return
	}

	resp := billDetailResponse{Bill: bill}
	if resp.Items, err = h.store.ListBillItems(r.Context(), billID); err != nil {
		internalError(w, r, "list bill items", err)
		return
	}
	if resp.Splits, err = h.store.ListSplitBillsByBill(r.Context(), billID); err != nil {
		internalError(w, r, "list split bills", err)
		return
	}
	if resp.Payments, err = h.store.ListPaymentsByBill(r.Context(), billID); err != nil {
		internalError(w, r, "list payments", err)
		return
	}
	if resp.Items == nil {
		resp.Items = []database.BillItem{}
	}
	if resp.Splits == nil {
		resp.Splits = []database.SplitBill{}
	}
	if resp.Payments == nil {
		resp.Payments = []database.Payment{}
	}

	writeJSON(w, http.StatusOK, resp)
}

// Split handles POST /branches/{bid}/bills/{id}/split. Splitting an already
// split bill replaces the previous parts.
func (h *BillHandler) Split(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	var req splitBillRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	result, err := h.svc.SplitBill(r.Context(), branchID, billID, req.Parts)
	if err != nil {
		writeServiceError(w, r, "split bill", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

func (h *BillHandler) UndoSplit(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	result, err := h.svc.UndoSplit(r.Context(), branchID, billID)
	if err != nil {
		writeServiceError(w, r, "undo split", err)
		return
	}

	writeJSON(w, http.StatusOK, result)
}

// Void handles POST /branches/{bid}/bills/{id}/void.
func (h *BillHandler) Void(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	bill, err := h.svc.VoidBill(r.Context(), branchID, billID)
	if err != nil {
		writeServiceError(w, r, "void bill", err)
		return
	}

	writeJSON(w, http.StatusOK, bill)
}
