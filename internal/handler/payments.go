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

// PaymentRecorder records a tender against a bill.
// Satisfied by *service.PaymentService.
type PaymentRecorder interface {
	RecordPayment(ctx context.Context, req service.RecordPaymentRequest) (*service.PaymentResult, error)
}

// PaymentStore defines the database methods needed by payment handlers.
type PaymentStore interface {
	GetBill(ctx context.Context, arg database.GetBillParams) (database.Bill, error)
	ListPaymentsByBill(ctx context.Context, billID uuid.UUID) ([]database.Payment, error)
}

// PaymentHandler handles payment endpoints.
type PaymentHandler struct {
	svc       PaymentRecorder
	store     PaymentStore
	validator *validate.Validator
}

func NewPaymentHandler(svc PaymentRecorder, store PaymentStore, v *validate.Validator) *PaymentHandler {
	return &PaymentHandler{svc: svc, store: store, validator: v}
}

// RegisterRoutes registers payment endpoints on the given Chi router.
// Expected to be mounted at /branches/{bid}/bills/{id}/payments
func (h *PaymentHandler) RegisterRoutes(r chi.Router) {
	r.Post("/", h.Add)
	r.Get("/", h.List)
}

type addPaymentRequest struct {
	PaymentMethod   string `json:"payment_method" validate:"required,oneof=CASH CARD QRIS TRANSFER"`
	Amount          string `json:"amount" validate:"required,decimal_gt0,money"`
	AmountReceived  string `json:"amount_received" validate:"omitempty,decimal_gt0,money"`
	ReferenceNumber string `json:"reference_number" validate:"max=100"`
	SplitBillID     string `json:"split_bill_id" validate:"omitempty,uuid"`
}

// Add handles POST /branches/{bid}/bills/{id}/payments.
func (h *PaymentHandler) Add(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	var req addPaymentRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	var splitID *uuid.UUID
	if req.SplitBillID != "" {
		id := uuid.MustParse(req.SplitBillID)
		splitID = &id
	}

	result, err := h.svc.RecordPayment(r.Context(), service.RecordPaymentRequest{
		BranchID:        branchID,
		BillID:          billID,
		ProcessedBy:     claims.UserID,
		Method:          req.PaymentMethod,
		Amount:          parseDecimal(req.Amount),
		AmountReceived:  nullDecimal(req.AmountReceived),
		ReferenceNumber: req.ReferenceNumber,
		SplitBillID:     splitID,
	})
	if err != nil {
		writeServiceError(w, r, "record payment", err)
		return
	}

	writeJSON(w, http.StatusCreated, result)
}

// List handles GET /branches/{bid}/bills/{id}/payments.
func (h *PaymentHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	billID, ok := urlUUID(w, r, "id", "bill")
	if !ok {
		return
	}

	if _, err := h.store.GetBill(r.Context(), database.GetBillParams{ID: billID, BranchID: branchID}); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "bill not found")
			return
		}
		internalError(w, r, "get bill", err)
		return
	}

	payments, err := h.store.ListPaymentsByBill(r.Context(), billID)
	if err != nil {
		internalError(w, r, "list payments", err)
		return
	}
	if payments == nil {
		payments = []database.Payment{}
	}

	writeJSON(w, http.StatusOK, payments)
}
