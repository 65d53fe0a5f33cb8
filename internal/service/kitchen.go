package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/ws"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// KitchenStore defines the DB methods needed to move tickets along.
type KitchenStore interface {
	GetKot(ctx context.Context, arg database.GetKotParams) (database.Kot, error)
	UpdateKotStatus(ctx context.Context, arg database.UpdateKotStatusParams) (database.Kot, error)
}

// KitchenService drives the KOT lifecycle
// PENDING -> PREPARING -> READY -> SERVED, with CANCELLED reachable from
// PENDING and PREPARING.
type KitchenService struct {
	store    KitchenStore
	notifier Notifier
}

func NewKitchenService(store KitchenStore, notifier Notifier) *KitchenService {
	return &KitchenService{store: store, notifier: notifierOrNop(notifier)}
}

// UpdateKotStatus applies one transition. The write only lands if the ticket
// still holds the status that was read, so two stations racing on the same
// ticket cannot both win.
func (s *KitchenService) UpdateKotStatus(ctx context.Context, branchID, kotID uuid.UUID, status string) (kot database.Kot, err error) {
	ctx, span := tracer.Start(ctx, "KitchenService.UpdateKotStatus",
		trace.WithAttributes(attribute.String("kot_id", kotID.String()), attribute.String("status", status)))
	defer func() { endSpan(span, err) }()

	switch status {
	case enum.KotStatusPending, enum.KotStatusPreparing, enum.KotStatusReady,
		enum.KotStatusServed, enum.KotStatusCancelled:
	default:
		return database.Kot{}, ErrInvalidKotStatus
	}

	current, err := s.store.GetKot(ctx, database.GetKotParams{ID: kotID, BranchID: branchID})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Kot{}, ErrKotNotFound
		}
		return database.Kot{}, fmt.Errorf("get kot: %w", err)
	}

	if !enum.CanTransitionKot(current.Status, status) {
		return database.Kot{}, fmt.Errorf("%s -> %s: %w", current.Status, status, ErrInvalidTransition)
	}

	kot, err = s.store.UpdateKotStatus(ctx, database.UpdateKotStatusParams{
		ID:         kotID,
		BranchID:   branchID,
		Status:     status,
		PrevStatus: current.Status,
	})
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return database.Kot{}, ErrKotStatusChanged
		}
		return database.Kot{}, fmt.Errorf("update kot status: %w", err)
	}

	s.notifier.Publish(branchID, ws.EventKotUpdated, kot)
	return kot, nil
}
