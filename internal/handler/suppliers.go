package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/validate"
)

// SupplierStore defines the database methods needed by supplier handlers.
type SupplierStore interface {
	GetOrganisation(ctx context.Context, arg database.GetOrganisationParams) (database.Organisation, error)
	GetBranchByID(ctx context.Context, id uuid.UUID) (database.Branch, error)
	ListSuppliersByOrganisation(ctx context.Context, arg database.ListSuppliersByOrganisationParams) ([]database.Supplier, error)
	GetSupplier(ctx context.Context, arg database.GetSupplierParams) (database.Supplier, error)
	CreateSupplier(ctx context.Context, arg database.CreateSupplierParams) (database.Supplier, error)
	UpdateSupplier(ctx context.Context, arg database.UpdateSupplierParams) (database.Supplier, error)
	SoftDeleteSupplier(ctx context.Context, arg database.SoftDeleteSupplierParams) (uuid.UUID, error)
}

// SupplierHandler handles supplier CRUD under an organisation. Owners reach
// every organisation of their tenant; managers only their branch's.
type SupplierHandler struct {
	store     SupplierStore
	validator *validate.Validator
}

func NewSupplierHandler(store SupplierStore, v *validate.Validator) *SupplierHandler {
	return &SupplierHandler{store: store, validator: v}
}

// RegisterRoutes mounts on /organisations/{orgID}/suppliers.
func (h *SupplierHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type supplierRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	ContactName string `json:"contact_name" validate:"max=200"`
	Phone       string `json:"phone" validate:"omitempty,phone"`
	Email       string `json:"email" validate:"omitempty,email"`
	Address     string `json:"address" validate:"max=500"`
}

func (h *SupplierHandler) List(w http.ResponseWriter, r *http.Request) {
	claims, orgID, ok := h.organisationAccess(w, r)
	if !ok {
		return
	}

	suppliers, err := h.store.ListSuppliersByOrganisation(r.Context(), database.ListSuppliersByOrganisationParams{
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
	})
	if err != nil {
		internalError(w, r, "list suppliers", err)
		return
	}
	if suppliers == nil {
		suppliers = []database.Supplier{}
	}

	writeJSON(w, http.StatusOK, suppliers)
}

func (h *SupplierHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims, orgID, ok := h.organisationAccess(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}

	supplier, err := h.store.GetSupplier(r.Context(), database.GetSupplierParams{ID: id, TenantID: claims.TenantID})
	if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		internalError(w, r, "get supplier", err)
		return
	}
	if err != nil || supplier.OrganisationID != orgID {
		writeError(w, http.StatusNotFound, "supplier not found")
		return
	}

	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims, orgID, ok := h.organisationAccess(w, r)
	if !ok {
		return
	}

	var req supplierRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	phone, ok := formatPhone(w, h.validator, req.Phone)
	if !ok {
		return
	}

	supplier, err := h.store.CreateSupplier(r.Context(), database.CreateSupplierParams{
		TenantID:       claims.TenantID,
		OrganisationID: orgID,
		Name:           req.Name,
		ContactName:    textOrNull(req.ContactName),
		Phone:          textOrNull(phone),
		Email:          textOrNull(req.Email),
		Address:        textOrNull(req.Address),
	})
	if err != nil {
		internalError(w, r, "create supplier", err)
		return
	}

	writeJSON(w, http.StatusCreated, supplier)
}

func (h *SupplierHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims, orgID, ok := h.organisationAccess(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}

	var req supplierRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	phone, ok := formatPhone(w, h.validator, req.Phone)
	if !ok {
		return
	}

	supplier, err := h.store.UpdateSupplier(r.Context(), database.UpdateSupplierParams{
		ID:             id,
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
		Name:           req.Name,
		ContactName:    textOrNull(req.ContactName),
		Phone:          textOrNull(phone),
		Email:          textOrNull(req.Email),
		Address:        textOrNull(req.Address),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "supplier not found")
			return
		}
		internalError(w, r, "update supplier", err)
		return
	}

	writeJSON(w, http.StatusOK, supplier)
}

func (h *SupplierHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims, orgID, ok := h.organisationAccess(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "supplier")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteSupplier(r.Context(), database.SoftDeleteSupplierParams{
		ID:             id,
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "supplier not found")
			return
		}
		internalError(w, r, "delete supplier", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// organisationAccess resolves {orgID} within the caller's tenant. Branch
// staff may only reach the organisation their branch belongs to.
func (h *SupplierHandler) organisationAccess(w http.ResponseWriter, r *http.Request) (*auth.Claims, uuid.UUID, bool) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return nil, uuid.Nil, false
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return nil, uuid.Nil, false
	}

	_, err := h.store.GetOrganisation(r.Context(), database.GetOrganisationParams{ID: orgID, TenantID: claims.TenantID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "organisation not found")
			return nil, uuid.Nil, false
		}
		internalError(w, r, "get organisation", err)
		return nil, uuid.Nil, false
	}

	if claims.Role != enum.UserRoleOwner {
		if claims.BranchID == nil {
			writeError(w, http.StatusForbidden, "access denied for this organisation")
			return nil, uuid.Nil, false
		}
		branch, err := h.store.GetBranchByID(r.Context(), *claims.BranchID)
		if err != nil && !errors.Is(err, pgx.ErrNoRows) {
			internalError(w, r, "get branch", err)
			return nil, uuid.Nil, false
		}
		if err != nil || branch.OrganisationID != orgID {
			writeError(w, http.StatusForbidden, "access denied for this organisation")
			return nil, uuid.Nil, false
		}
	}

	return claims, orgID, true
}
