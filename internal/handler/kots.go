package handler

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/validate"
)

// KotStatusUpdater moves a ticket through the kitchen workflow.
// Satisfied by *service.KitchenService.
type KotStatusUpdater interface {
	UpdateKotStatus(ctx context.Context, branchID, kotID uuid.UUID, status string) (database.Kot, error)
}

// KotStore defines the database methods needed by the kitchen display.
type KotStore interface {
	ListActiveKots(ctx context.Context, arg database.ListActiveKotsParams) ([]database.Kot, error)
	ListKotItemsByKot(ctx context.Context, kotID uuid.UUID) ([]database.KotItem, error)
}

// KotHandler serves the kitchen display: the ticket queue and status changes.
type KotHandler struct {
	svc       KotStatusUpdater
	store     KotStore
	validator *validate.Validator
}

func NewKotHandler(svc KotStatusUpdater, store KotStore, v *validate.Validator) *KotHandler {
	return &KotHandler{svc: svc, store: store, validator: v}
}

// RegisterRoutes mounts on /branches/{bid}/kots.
func (h *KotHandler) RegisterRoutes(r chi.Router) {
	r.Get("/", h.List)
	r.Patch("/{id}/status", h.UpdateStatus)
}

type updateKotStatusRequest struct {
	Status string `json:"status" validate:"required,oneof=PREPARING READY SERVED CANCELLED"`
}

var kotStatuses = map[string]bool{
	enum.KotStatusPending:   true,
	enum.KotStatusPreparing: true,
	enum.KotStatusReady:     true,
	enum.KotStatusServed:    true,
	enum.KotStatusCancelled: true,
}

// List returns tickets oldest first, each with its items. Without a status
// filter only tickets still in the kitchen are listed.
func (h *KotHandler) List(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}

	params := database.ListActiveKotsParams{BranchID: branchID}
	if s := r.URL.Query().Get("status"); s != "" {
		if !kotStatuses[s] {
			writeError(w, http.StatusBadRequest, "invalid status")
			return
		}
		params.Status = pgtype.Text{String: s, Valid: true}
	}

	kots, err := h.store.ListActiveKots(r.Context(), params)
	if err != nil {
		internalError(w, r, "list active kots", err)
		return
	}

	resp := make([]kotDetail, len(kots))
	for i, k := range kots {
		items, err := h.store.ListKotItemsByKot(r.Context(), k.ID)
		if err != nil {
			internalError(w, r, "list kot items", err)
			return
		}
		if items == nil {
			items = []database.KotItem{}
		}
		resp[i] = kotDetail{Kot: k, Items: items}
	}

	writeJSON(w, http.StatusOK, resp)
}

// UpdateStatus handles PATCH /branches/{bid}/kots/{id}/status.
func (h *KotHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return
	}
	kotID, ok := urlUUID(w, r, "id", "kot")
	if !ok {
		return
	}

	var req updateKotStatusRequest
	if !decodeAndValidate(w, r, h.validator, &req) {
		return
	}

	kot, err := h.svc.UpdateKotStatus(r.Context(), branchID, kotID, req.Status)
	if err != nil {
		writeServiceError(w, r, "update kot status", err)
		return
	}

	writeJSON(w, http.StatusOK, kot)
}
