package handler

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/validate"
)

// VoucherStore defines the database methods needed by voucher handlers.
type VoucherStore interface {
	ListVouchersByBranch(ctx context.Context, branchID uuid.UUID) ([]database.Voucher, error)
	GetVoucher(ctx context.Context, arg database.GetVoucherParams) (database.Voucher, error)
	CreateVoucher(ctx context.Context, arg database.CreateVoucherParams) (database.Voucher, error)
	UpdateVoucher(ctx context.Context, arg database.UpdateVoucherParams) (database.Voucher, error)
	SoftDeleteVoucher(ctx context.Context, arg database.SoftDeleteVoucherParams) (uuid.UUID, error)
}

// VoucherHandler manages branch vouchers. Redemption happens only when a
// bill is generated.
type VoucherHandler struct {
	store     VoucherStore
	validator *validate.Validator
}

func NewVoucherHandler(store VoucherStore, v *validate.Validator) *VoucherHandler {
	return &VoucherHandler{store: store, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/vouchers.
func (h *VoucherHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type voucherRequest struct {
	Code          string     `json:"code" validate:"required,max=32"`
	DiscountType  string     `json:"discount_type" validate:"required,oneof=PERCENTAGE FIXED_AMOUNT"`
	DiscountValue string     `json:"discount_value" validate:"required,decimal_gt0,money"`
	MaxDiscount   string     `json:"max_discount" validate:"omitempty,decimal_gt0,money"`
	MinSpend      string     `json:"min_spend" validate:"omitempty,decimal_gte0,money"`
	MaxUses       *int32     `json:"max_uses" validate:"omitempty,gt=0"`
	ValidFrom     *time.Time `json:"valid_from"`
	ValidUntil    *time.Time `json:"valid_until"`
}

var hundredPercent = decimal.NewFromInt(100)

// voucherFields holds the normalised columns shared by create and update.
type voucherFields struct {
	code          string
	discountValue decimal.Decimal
	maxDiscount   decimal.NullDecimal
	minSpend      decimal.Decimal
	maxUses       pgtype.Int4
	validFrom     pgtype.Timestamptz
	validUntil    pgtype.Timestamptz
}

// fields checks the cross-field rules and normalises the code to upper case.
func (req voucherRequest) fields(w http.ResponseWriter) (voucherFields, bool) {
	f := voucherFields{
		code:          strings.ToUpper(strings.TrimSpace(req.Code)),
		discountValue: parseDecimal(req.DiscountValue),
		maxDiscount:   nullDecimal(req.MaxDiscount),
		minSpend:      parseDecimal(req.MinSpend),
		validFrom:     timestamptzOrNull(req.ValidFrom),
		validUntil:    timestamptzOrNull(req.ValidUntil),
	}
	if req.MaxUses != nil {
		f.maxUses = pgtype.Int4{Int32: *req.MaxUses, Valid: true}
	}

	if f.code == "" {
		writeError(w, http.StatusBadRequest, "code is required")
		return f, false
	}
	if req.DiscountType == enum.DiscountTypePercentage && f.discountValue.GreaterThan(hundredPercent) {
		writeError(w, http.StatusBadRequest, "discount_value must be at most 100 for PERCENTAGE vouchers")
		return f, false
	}
	if req.DiscountType == enum.DiscountTypeFixed && f.maxDiscount.Valid {
		writeError(w, http.StatusBadRequest, "max_discount only applies to PERCENTAGE vouchers")
		return f, false
	}
	if req.ValidFrom != nil && req.ValidUntil != nil && !req.ValidUntil.After(*req.ValidFrom) {
		writeError(w, http.StatusBadRequest, "valid_until must be after valid_from")
		return f, false
	}
	return f, true
}

func (h *VoucherHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	vouchers, err := h.store.ListVouchersByBranch(r.Context(), branchID)
	if err != nil {
		internalError(w, r, "list vouchers", err)
		return
	}
	if vouchers == nil {
		vouchers = []database.Voucher{}
	}

	writeJSON(w, http.StatusOK, vouchers)
}

func (h *VoucherHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "voucher")
	if !ok {
		return
	}

	v, err := h.store.GetVoucher(r.Context(), database.GetVoucherParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "voucher not found")
			return
		}
		internalError(w, r, "get voucher", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *VoucherHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	var req voucherRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	f, ok := req.fields(w)
	if !ok {
		return
	}

	v, err := h.store.CreateVoucher(r.Context(), database.CreateVoucherParams{
		BranchID:      branchID,
		Code:          f.code,
		DiscountType:  req.DiscountType,
		DiscountValue: f.discountValue,
		MaxDiscount:   f.maxDiscount,
		MinSpend:      f.minSpend,
		MaxUses:       f.maxUses,
		ValidFrom:     f.validFrom,
		ValidUntil:    f.validUntil,
	})
	if err != nil {
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "voucher code already exists")
			return
		}
		internalError(w, r, "create voucher", err)
		return
	}

	writeJSON(w, http.StatusCreated, v)
}

func (h *VoucherHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "voucher")
	if !ok {
		return
	}

	var req voucherRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	f, ok := req.fields(w)
	if !ok {
		return
	}

	v, err := h.store.UpdateVoucher(r.Context(), database.UpdateVoucherParams{
		ID:            id,
		BranchID:      branchID,
		Code:          f.code,
		DiscountType:  req.DiscountType,
		DiscountValue: f.discountValue,
		MaxDiscount:   f.maxDiscount,
		MinSpend:      f.minSpend,
		MaxUses:       f.maxUses,
		ValidFrom:     f.validFrom,
		ValidUntil:    f.validUntil,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "voucher not found")
			return
		}
		if isUniqueViolation(err) {
			writeError(w, http.StatusConflict, "voucher code already exists")
			return
		}
		internalError(w, r, "update voucher", err)
		return
	}

	writeJSON(w, http.StatusOK, v)
}

func (h *VoucherHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "voucher")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteVoucher(r.Context(), database.SoftDeleteVoucherParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "voucher not found")
			return
		}
		internalError(w, r, "delete voucher", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
