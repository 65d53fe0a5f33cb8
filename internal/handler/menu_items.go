package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekeep/backoffice/internal/cache"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/logging"
	"github.com/tablekeep/backoffice/internal/validate"
)

// MenuItemStore defines the database methods needed by menu item handlers.
type MenuItemStore interface {
	ListMenuItemsByBranch(ctx context.Context, branchID uuid.UUID) ([]database.MenuItem, error)
	GetMenuItem(ctx context.Context, arg database.GetMenuItemParams) (database.MenuItem, error)
	CreateMenuItem(ctx context.Context, arg database.CreateMenuItemParams) (database.MenuItem, error)
	UpdateMenuItem(ctx context.Context, arg database.UpdateMenuItemParams) (database.MenuItem, error)
	SoftDeleteMenuItem(ctx context.Context, arg database.SoftDeleteMenuItemParams) (uuid.UUID, error)
	GetTax(ctx context.Context, arg database.GetTaxParams) (database.Tax, error)
}

// MenuItemHandler handles menu item CRUD. The branch listing is served from
// the menu cache and every write invalidates it.
type MenuItemHandler struct {
	store     MenuItemStore
	cache     cache.MenuCache
	validator *validate.Validator
}

func NewMenuItemHandler(store MenuItemStore, menuCache cache.MenuCache, v *validate.Validator) *MenuItemHandler {
	if menuCache == nil {
		menuCache = cache.NoopMenuCache{}
	}
	return &MenuItemHandler{store: store, cache: menuCache, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/menu-items.
func (h *MenuItemHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Post("/", h.Create)
	r.Get("/{id}", h.Get)
	r.Put("/{id}", h.Update)
	r.Delete("/{id}", h.Delete)
}

type menuItemRequest struct {
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description" validate:"max=1000"`
	Category    string `json:"category" validate:"max=100"`
	Price       string `json:"price" validate:"required,decimal_gt0,money"`
	TaxID       string `json:"tax_id" validate:"omitempty,uuid"`
	Station     string `json:"station" validate:"omitempty,oneof=GRILL BEVERAGE FRY COLD DESSERT GENERAL"`
	IsAvailable *bool  `json:"is_available"`
}

func (req menuItemRequest) station() string {
	if req.Station == "" {
		return enum.StationGeneral
	}
	return req.Station
}

func (req menuItemRequest) available() bool {
	return req.IsAvailable == nil || *req.IsAvailable
}

// List returns the branch's active menu items, cached per branch.
func (h *MenuItemHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	log := logging.FromContext(r.Context())

	items, hit, err := h.cache.GetMenu(r.Context(), branchID)
	if err != nil {
		log.WithError(err).Warn("menu cache get")
	}
	if hit {
		writeJSON(w, http.StatusOK, items)
		return
	}

	items, err = h.store.ListMenuItemsByBranch(r.Context(), branchID)
	if err != nil {
		internalError(w, r, "list menu items", err)
		return
	}
	if items == nil {
		items = []database.MenuItem{}
	}

	if err := h.cache.SetMenu(r.Context(), branchID, items); err != nil {
		log.WithError(err).Warn("menu cache set")
	}

	writeJSON(w, http.StatusOK, items)
}

func (h *MenuItemHandler) Get(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	item, err := h.store.GetMenuItem(r.Context(), database.GetMenuItemParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "get menu item", err)
		return
	}

	writeJSON(w, http.StatusOK, item)
}

func (h *MenuItemHandler) Create(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	var req menuItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	taxID, ok := h.branchTax(w, r, branchID, req.TaxID)
	if !ok {
		return
	}

	item, err := h.store.CreateMenuItem(r.Context(), database.CreateMenuItemParams{
		BranchID:    branchID,
		TaxID:       taxID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Category:    textOrNull(req.Category),
		Price:       parseDecimal(req.Price),
		Station:     req.station(),
		IsAvailable: req.available(),
	})
	if err != nil {
		internalError(w, r, "create menu item", err)
		return
	}

	h.invalidate(r, branchID)
	writeJSON(w, http.StatusCreated, item)
}

func (h *MenuItemHandler) Update(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	var req menuItemRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}
	taxID, ok := h.branchTax(w, r, branchID, req.TaxID)
	if !ok {
		return
	}

	item, err := h.store.UpdateMenuItem(r.Context(), database.UpdateMenuItemParams{
		ID:          id,
		BranchID:    branchID,
		TaxID:       taxID,
		Name:        req.Name,
		Description: textOrNull(req.Description),
		Category:    textOrNull(req.Category),
		Price:       parseDecimal(req.Price),
		Station:     req.station(),
		IsAvailable: req.available(),
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "update menu item", err)
		return
	}

	h.invalidate(r, branchID)
	writeJSON(w, http.StatusOK, item)
}

func (h *MenuItemHandler) Delete(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	id, ok := urlUUID(w, r, "id", "menu item")
	if !ok {
		return
	}

	_, err := h.store.SoftDeleteMenuItem(r.Context(), database.SoftDeleteMenuItemParams{ID: id, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusNotFound, "menu item not found")
			return
		}
		internalError(w, r, "delete menu item", err)
		return
	}

	h.invalidate(r, branchID)
	w.WriteHeader(http.StatusNoContent)
}

// branchTax resolves an optional tax_id, which must name an active tax of
// the same branch.
func (h *MenuItemHandler) branchTax(w http.ResponseWriter, r *http.Request, branchID uuid.UUID, raw string) (pgtype.UUID, bool) {
	taxID, err := optionalUUID(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid tax_id")
		return pgtype.UUID{}, false
	}
	if !taxID.Valid {
		return taxID, true
	}

	_, err = h.store.GetTax(r.Context(), database.GetTaxParams{ID: taxID.Bytes, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			writeError(w, http.StatusBadRequest, "tax_id does not name an active tax of this branch")
			return pgtype.UUID{}, false
		}
		internalError(w, r, "get tax", err)
		return pgtype.UUID{}, false
	}
	return taxID, true
}

func (h *MenuItemHandler) invalidate(r *http.Request, branchID uuid.UUID) {
	if err := h.cache.InvalidateMenu(r.Context(), branchID); err != nil {
		logging.FromContext(r.Context()).WithError(err).WithField("branch_id", branchID).Warn("menu cache invalidate")
	}
}
