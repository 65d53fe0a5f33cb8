package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/validate"
)

// TaxStore defines the database methods needed by tax handlers.
type TaxStore interface {
	ListTaxesByBranch(ctx context.Context, branchID uuid.UUID) ([]database.Tax, error)
	GetTax(ctx context.Context, arg database.GetTaxParams) (database.Tax, error)
	CreateTax(ctx context.Context, arg database.CreateTaxParams) (database.Tax, error)
	UpdateTax(ctx context.Context, arg database.UpdateTaxParams) (database.Tax, error)
	SoftDeleteTax(ctx context.Context, arg database.SoftDeleteTaxParams) (uuid.UUID, error)
}

// TaxHandler handles branch tax CRUD endpoints.
type TaxHandler struct {
	store     TaxStore
	validator *validate.Validator
}

func NewTaxHandler(store TaxStore, v *validate.Validator) *TaxHandler {
	return &TaxHandler{store: store, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/taxes.
func (h *TaxHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type taxRequest struct {
	Name        string `json:"name" validate:"required,max=100"`
	Rate        string `json:"rate" validate:"required,decimal_gte0,money"`
	IsInclusive bool   `json:"is_inclusive"`
}

var maxTaxRate = decimal.NewFromInt(100)

// rate parses the validated rate and enforces the percentage ceiling.
func (req taxRequest) rate(w http.ResponseWriter) (decimal.Decimal, bool) {
	rate := parseDecimal(req.Rate)
	if rate.GreaterThan(maxTaxRate) {
		writeError(w, http.StatusBadRequest, "rate must be between 0 and 100")
		return decimal.Zero, false
	}
	return rate, true
}

func (h *TaxHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	taxes, err := h.store.ListTaxesByBranch(r.Context(), branchID)
	if err != nil {
		internalError(w, r, "list taxes", err)
		return
	}
	if taxes == nil {
		taxes = []database.Tax{}
	}

	writeJSON(w, http.StatusOK, taxes)
}

func (h *TaxHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "tax")
	if !ok {
		return
	}

	tax, err := h.store.GetTax(r.Context(), database.GetTaxParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tax not found")
			return
		}
		internalError(w, r, "get tax", err)
		return
	}

	writeJSON(w, http.StatusOK, tax)
}

func (h *TaxHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	var req taxRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	rate, ok := req.rate(w)
	if !ok {
		return
	}

	tax, err := h.store.CreateTax(r.Context(), database.CreateTaxParams{
		BranchID:    branchID,
		Name:        req.Name,
		Rate:        rate,
		IsInclusive: req.IsInclusive,
	})
	if err != nil {
		internalError(w, r, "create tax", err)
		return
	}

	writeJSON(w, http.StatusCreated, tax)
}

func (h *TaxHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "tax")
	if !ok {
		return
	}

	var req taxRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	rate, ok := req.rate(w)
	if !ok {
		return
	}

	tax, err := h.store.UpdateTax(r.Context(), database.UpdateTaxParams{
		ID:          id,
		BranchID:    branchID,
		Name:        req.Name,
		Rate:        rate,
		IsInclusive: req.IsInclusive,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tax not found")
			return
		}
		internalError(w, r, "update tax", err)
		return
	}

	writeJSON(w, http.StatusOK, tax)
}

// Delete soft-deletes a tax. Bills already issued keep their snapshotted
// rate.
func (h *TaxHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "tax")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteTax(r.Context(), database.SoftDeleteTaxParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tax not found")
			return
		}
		internalError(w, r, "delete tax", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
