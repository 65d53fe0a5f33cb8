package service

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

// maxNumberRetries bounds how often a transaction is replayed after losing a
// race for the next ORD/KOT/BILL number.
const maxNumberRetries = 3

var tracer = otel.Tracer("github.com/tablekeep/backoffice/internal/service")

// TxBeginner starts a new database transaction.
type TxBeginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Notifier pushes events to a branch's live feed. Satisfied by *ws.Hub.
type Notifier interface {
	Publish(branchID uuid.UUID, eventType string, payload interface{})
}

type nopNotifier struct{}

func (nopNotifier) Publish(uuid.UUID, string, interface{}) {}

func notifierOrNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// numberConstraints are the unique keys guarding generated document numbers.
var numberConstraints = map[string]bool{
	"dining_orders_branch_id_order_number_key": true,
	"kots_branch_id_kot_number_key":            true,
	"bills_branch_id_bill_number_key":          true,
}

// isNumberConflict reports a unique violation (23505) on a document number.
func isNumberConflict(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505" && numberConstraints[pgErr.ConstraintName]
	}
	return false
}

// withNumberRetry runs fn again when it fails on a document number conflict.
func withNumberRetry[T any](fn func() (T, error)) (T, error) {
	var (
		zero    T
		lastErr error
	)
	for attempt := 0; attempt < maxNumberRetries; attempt++ {
		result, err := fn()
		if err == nil {
			return result, nil
		}
		if !isNumberConflict(err) {
			return zero, err
		}
		lastErr = err
	}
	return zero, lastErr
}

// endSpan records err on span before ending it.
func endSpan(span trace.Span, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	}
	span.End()
}

func textOrNull(s string) pgtype.Text {
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

func uuidOrNull(id *uuid.UUID) pgtype.UUID {
	if id == nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: *id, Valid: true}
}
