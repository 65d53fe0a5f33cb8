package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/validate"
)

// TenancyStore defines the database methods needed for tenants,
// organisations and branches. Satisfied by *database.Queries.
type TenancyStore interface {
	GetTenant(ctx context.Context, id uuid.UUID) (database.Tenant, error)
	UpdateTenant(ctx context.Context, arg database.UpdateTenantParams) (database.Tenant, error)

	ListOrganisations(ctx context.Context, tenantID uuid.UUID) ([]database.Organisation, error)
	GetOrganisation(ctx context.Context, arg database.GetOrganisationParams) (database.Organisation, error)
	CreateOrganisation(ctx context.Context, arg database.CreateOrganisationParams) (database.Organisation, error)
	UpdateOrganisation(ctx context.Context, arg database.UpdateOrganisationParams) (database.Organisation, error)
	SoftDeleteOrganisation(ctx context.Context, arg database.SoftDeleteOrganisationParams) (uuid.UUID, error)
	CountActiveBranchesByOrganisation(ctx context.Context, organisationID uuid.UUID) (int64, error)

	ListBranchesByOrganisation(ctx context.Context, arg database.ListBranchesByOrganisationParams) ([]database.Branch, error)
	GetBranch(ctx context.Context, arg database.GetBranchParams) (database.Branch, error)
	CreateBranch(ctx context.Context, arg database.CreateBranchParams) (database.Branch, error)
	UpdateBranch(ctx context.Context, arg database.UpdateBranchParams) (database.Branch, error)
	SoftDeleteBranch(ctx context.Context, arg database.SoftDeleteBranchParams) (uuid.UUID, error)
}

// TenancyHandler serves the caller's tenant plus its organisations and
// branches. Everything is scoped to the tenant in the access token.
type TenancyHandler struct {
	store     TenancyStore
	validator *validate.Validator
}

func NewTenancyHandler(store TenancyStore, v *validate.Validator) *TenancyHandler {
	return &TenancyHandler{store: store, validator: v}
}

// RegisterTenantRoutes mounts /tenant.
func (h *TenancyHandler) RegisterTenantRoutes(r chi.Router) {
	r.Get("/", h.GetTenant)
	r.Put("/", h.UpdateTenant)
}

// RegisterOrganisationRoutes mounts /organisations and the branches below
// each organisation.
func (h *TenancyHandler) RegisterOrganisationRoutes(r chi.Router) {
	r.Get("/", h.ListOrganisations)
	r.Post("/", h.CreateOrganisation)
	r.Get("/{orgID}", h.GetOrganisation)
	r.Put("/{orgID}", h.UpdateOrganisation)
	r.Delete("/{orgID}", h.DeleteOrganisation)

	r.Get("/{orgID}/branches", h.ListBranches)
	r.Post("/{orgID}/branches", h.CreateBranch)
	r.Get("/{orgID}/branches/{id}", h.GetBranch)
	r.Put("/{orgID}/branches/{id}", h.UpdateBranch)
	r.Delete("/{orgID}/branches/{id}", h.DeleteBranch)
}

// --- Request types ---

type updateTenantRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}

type organisationRequest struct {
	Name      string `json:"name" validate:"required,max=200"`
	LegalName string `json:"legal_name" validate:"max=200"`
	TaxNumber string `json:"tax_number" validate:"max=50"`
}

type branchRequest struct {
	Name    string `json:"name" validate:"required,max=200"`
	Address string `json:"address" validate:"max=500"`
	Phone   string `json:"phone" validate:"omitempty,phone"`
}

// --- Tenant ---

func (h *TenancyHandler) GetTenant(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	tenant, err := h.store.GetTenant(r.Context(), claims.TenantID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		internalError(w, r, "get tenant", err)
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

func (h *TenancyHandler) UpdateTenant(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req updateTenantRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	tenant, err := h.store.UpdateTenant(r.Context(), database.UpdateTenantParams{
		ID:   claims.TenantID,
		Name: req.Name,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "tenant not found")
			return
		}
		internalError(w, r, "update tenant", err)
		return
	}

	writeJSON(w, http.StatusOK, tenant)
}

// --- Organisations ---

func (h *TenancyHandler) ListOrganisations(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	orgs, err := h.store.ListOrganisations(r.Context(), claims.TenantID)
	if err != nil {
		internalError(w, r, "list organisations", err)
		return
	}
	if orgs == nil {
		orgs = []database.Organisation{}
	}

	writeJSON(w, http.StatusOK, orgs)
}

func (h *TenancyHandler) GetOrganisation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}

	org, ok := h.loadOrganisation(w, r, orgID, claims.TenantID)
	if !ok {
		return
	}

	writeJSON(w, http.StatusOK, org)
}

func (h *TenancyHandler) CreateOrganisation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}

	var req organisationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	org, err := h.store.CreateOrganisation(r.Context(), database.CreateOrganisationParams{
		TenantID:  claims.TenantID,
		Name:      req.Name,
		LegalName: textOrNull(req.LegalName),
		TaxNumber: textOrNull(req.TaxNumber),
	})
	if err != nil {
		internalError(w, r, "create organisation", err)
		return
	}

	writeJSON(w, http.StatusCreated, org)
}

func (h *TenancyHandler) UpdateOrganisation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}

	var req organisationRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	org, err := h.store.UpdateOrganisation(r.Context(), database.UpdateOrganisationParams{
		ID:        orgID,
		TenantID:  claims.TenantID,
		Name:      req.Name,
		LegalName: textOrNull(req.LegalName),
		TaxNumber: textOrNull(req.TaxNumber),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "organisation not found")
			return
		}
		internalError(w, r, "update organisation", err)
		return
	}

	writeJSON(w, http.StatusOK, org)
}

// DeleteOrganisation soft-deletes an organisation that has no active
// branches left.
func (h *TenancyHandler) DeleteOrganisation(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}

	if _, ok := h.loadOrganisation(w, r, orgID, claims.TenantID); !ok {
		return
	}

	n, err := h.store.CountActiveBranchesByOrganisation(r.Context(), orgID)
	if err != nil {
		internalError(w, r, "count branches", err)
		return
	}
	if n > 0 {
		writeError(w, http.StatusConflict, "organisation still has active branches")
		return
	}

	_, err = h.store.SoftDeleteOrganisation(r.Context(), database.SoftDeleteOrganisationParams{
		ID:       orgID,
		TenantID: claims.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "organisation not found")
			return
		}
		internalError(w, r, "delete organisation", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Branches ---

func (h *TenancyHandler) ListBranches(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}

	branches, err := h.store.ListBranchesByOrganisation(r.Context(), database.ListBranchesByOrganisationParams{
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
	})
	if err != nil {
		internalError(w, r, "list branches", err)
		return
	}
	if branches == nil {
		branches = []database.Branch{}
	}

	writeJSON(w, http.StatusOK, branches)
}

func (h *TenancyHandler) GetBranch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "branch")
	if !ok {
		return
	}

	branch, err := h.store.GetBranch(r.Context(), database.GetBranchParams{
		ID:             id,
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "branch not found")
			return
		}
		internalError(w, r, "get branch", err)
		return
	}

	writeJSON(w, http.StatusOK, branch)
}

func (h *TenancyHandler) CreateBranch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}

	var req branchRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	phone, ok := formatPhone(w, h.validator, req.Phone)
	if !ok {
		return
	}

	if _, ok := h.loadOrganisation(w, r, orgID, claims.TenantID); !ok {
		return
	}

	branch, err := h.store.CreateBranch(r.Context(), database.CreateBranchParams{
		TenantID:       claims.TenantID,
		OrganisationID: orgID,
		Name:           req.Name,
		Address:        textOrNull(req.Address),
		Phone:          textOrNull(phone),
	})
	if err != nil {
		internalError(w, r, "create branch", err)
		return
	}

	writeJSON(w, http.StatusCreated, branch)
}

func (h *TenancyHandler) UpdateBranch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "branch")
	if !ok {
		return
	}

	var req branchRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	phone, ok := formatPhone(w, h.validator, req.Phone)
	if !ok {
		return
	}

	branch, err := h.store.UpdateBranch(r.Context(), database.UpdateBranchParams{
		ID:             id,
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
		Name:           req.Name,
		Address:        textOrNull(req.Address),
		Phone:          textOrNull(phone),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "branch not found")
			return
		}
		internalError(w, r, "update branch", err)
		return
	}

	writeJSON(w, http.StatusOK, branch)
}

func (h *TenancyHandler) DeleteBranch(w http.ResponseWriter, r *http.Request) {
	claims, ok := requireClaims(w, r)
	if !ok {
		return
	}
	orgID, ok := urlUUID(w, r, "orgID", "organisation")
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "branch")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteBranch(r.Context(), database.SoftDeleteBranchParams{
		ID:             id,
		OrganisationID: orgID,
		TenantID:       claims.TenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "branch not found")
			return
		}
		internalError(w, r, "delete branch", err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// --- Helpers ---

func (h *TenancyHandler) loadOrganisation(w http.ResponseWriter, r *http.Request, orgID, tenantID uuid.UUID) (database.Organisation, bool) {
	org, err := h.store.GetOrganisation(r.Context(), database.GetOrganisationParams{
		ID:       orgID,
		TenantID: tenantID,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "organisation not found")
			return database.Organisation{}, false
		}
		internalError(w, r, "get organisation", err)
		return database.Organisation{}, false
	}
	return org, true
}

// formatPhone stores phones in E.164. The phone rule has already accepted
// the raw value.
func formatPhone(w http.ResponseWriter, v *validate.Validator, raw string) (string, bool) {
	if raw == "" {
		return "", true
	}
	phone, err := v.FormatPhone(raw, "")
	if err != nil {
		writeError(w, http.StatusBadRequest, "phone must be a valid phone number")
		return "", false
	}
	return phone, true
}
