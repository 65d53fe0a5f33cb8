package handler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/logging"
	"github.com/tablekeep/backoffice/internal/middleware"
	"github.com/tablekeep/backoffice/internal/service"
	"github.com/tablekeep/backoffice/internal/validate"
)

const dateLayout = "2006-01-02"

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logging.FromContext(context.Background()).WithError(err).Error("encode JSON response")
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// internalError logs err against the request and answers 500. Check and
// numeric range violations come from client values and answer 400.
func internalError(w http.ResponseWriter, r *http.Request, op string, err error) {
	if isValueRejected(err) {
		writeError(w, http.StatusBadRequest, "a value is out of range")
		return
	}
	logging.FromContext(r.Context()).WithError(err).Error(op)
	writeError(w, http.StatusInternalServerError, "internal server error")
}

// decodeAndValidate decodes the JSON body into dst and runs its validate
// tags. It writes the 400 response itself and reports false on failure.
func decodeAndValidate(w http.ResponseWriter, r *http.Request, v *validate.Validator, dst interface{}) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return false
	}
	if err := v.Struct(dst); err != nil {
		var verr *validate.Error
		if errors.As(err, &verr) {
			writeJSON(w, http.StatusBadRequest, map[string]interface{}{
				"error":  verr.Error(),
				"fields": verr.Fields,
			})
			return false
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return false
	}
	return true
}

// urlUUID parses the named chi URL parameter. label names the entity in the
// 400 message, e.g. "invalid tax ID".
func urlUUID(w http.ResponseWriter, r *http.Request, param, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid %s ID", label))
		return uuid.Nil, false
	}
	return id, true
}

func branchParam(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	return urlUUID(w, r, "bid", "branch")
}

func requireClaims(w http.ResponseWriter, r *http.Request) (*auth.Claims, bool) {
	claims := middleware.ClaimsFromContext(r.Context())
	if claims == nil {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return nil, false
	}
	return claims, true
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

// isValueRejected reports a check_violation or numeric_value_out_of_range.
func isValueRejected(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && (pgErr.Code == "23514" || pgErr.Code == "22003")
}

// serviceStatus maps service sentinel errors to HTTP statuses.
var serviceStatus = []struct {
	err    error
	status int
}{
	{service.ErrEmptyItems, http.StatusBadRequest},
	{service.ErrInvalidOrderType, http.StatusBadRequest},
	{service.ErrInvalidQuantity, http.StatusBadRequest},
	{service.ErrTableRequired, http.StatusBadRequest},
	{service.ErrMenuItemNotFound, http.StatusBadRequest},
	{service.ErrMenuItemUnavailable, http.StatusBadRequest},
	{service.ErrOrderNotFound, http.StatusNotFound},
	{service.ErrOrderNotOpen, http.StatusConflict},
	{service.ErrKotNotFound, http.StatusNotFound},
	{service.ErrInvalidKotStatus, http.StatusBadRequest},
	{service.ErrInvalidTransition, http.StatusConflict},
	{service.ErrKotStatusChanged, http.StatusConflict},

	{service.ErrBillExists, http.StatusConflict},
	{service.ErrNothingToBill, http.StatusBadRequest},
	{service.ErrVoucherNotFound, http.StatusBadRequest},
	{service.ErrVoucherNotYetValid, http.StatusBadRequest},
	{service.ErrVoucherExpired, http.StatusBadRequest},
	{service.ErrVoucherMinSpend, http.StatusBadRequest},
	{service.ErrVoucherExhausted, http.StatusConflict},
	{service.ErrBillNotFound, http.StatusNotFound},
	{service.ErrInvalidSplitParts, http.StatusBadRequest},
	{service.ErrBillNotSplittable, http.StatusConflict},
	{service.ErrSplitTooSmall, http.StatusConflict},
	{service.ErrBillNotSplit, http.StatusBadRequest},
	{service.ErrBillHasPayments, http.StatusConflict},
	{service.ErrBillBusy, http.StatusConflict},
	{service.ErrBillNotVoidable, http.StatusConflict},

	{service.ErrInvalidPaymentMethod, http.StatusBadRequest},
	{service.ErrInvalidAmount, http.StatusBadRequest},
	{service.ErrBillAlreadyPaid, http.StatusConflict},
	{service.ErrBillVoided, http.StatusConflict},
	{service.ErrSplitRequired, http.StatusBadRequest},
	{service.ErrSplitNotFound, http.StatusNotFound},
	{service.ErrSplitAlreadyPaid, http.StatusConflict},
	{service.ErrSplitAmountMismatch, http.StatusBadRequest},
	{service.ErrOverpayment, http.StatusConflict},
	{service.ErrInsufficientCash, http.StatusBadRequest},

	{service.ErrInventoryItemNotFound, http.StatusNotFound},
	{service.ErrZeroDelta, http.StatusBadRequest},
	{service.ErrInsufficientStock, http.StatusConflict},
}

// writeServiceError answers with the status of a known service error, or
// logs and answers 500.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	for _, m := range serviceStatus {
		if errors.Is(err, m.err) {
			writeError(w, m.status, m.err.Error())
			return
		}
	}
	internalError(w, r, op, err)
}

// parseDecimal reads a string already checked by a decimal rule. Empty
// means zero.
func parseDecimal(s string) decimal.Decimal {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero
	}
	return decimal.RequireFromString(s)
}

func nullDecimal(s string) decimal.NullDecimal {
	if strings.TrimSpace(s) == "" {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(parseDecimal(s))
}

func textOrNull(s string) pgtype.Text {
	s = strings.TrimSpace(s)
	if s == "" {
		return pgtype.Text{}
	}
	return pgtype.Text{String: s, Valid: true}
}

// optionalUUID parses an optional UUID string field. Empty is null.
func optionalUUID(s string) (pgtype.UUID, error) {
	if s == "" {
		return pgtype.UUID{}, nil
	}
	id, err := uuid.Parse(s)
	if err != nil {
		return pgtype.UUID{}, err
	}
	return pgtype.UUID{Bytes: id, Valid: true}, nil
}

func timestamptzOrNull(t *time.Time) pgtype.Timestamptz {
	if t == nil {
		return pgtype.Timestamptz{}
	}
	return pgtype.Timestamptz{Time: *t, Valid: true}
}

// pagination reads limit (default 20, max 100) and offset.
func pagination(r *http.Request) (limit, offset int) {
	limit = 20
	if s := r.URL.Query().Get("limit"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v > 0 {
			limit = v
		}
	}
	if limit > 100 {
		limit = 100
	}
	if s := r.URL.Query().Get("offset"); s != "" {
		if v, err := strconv.Atoi(s); err == nil && v >= 0 {
			offset = v
		}
	}
	return limit, offset
}

// parseDateRange reads start_date and end_date (YYYY-MM-DD, UTC). The end
// is exclusive: end_date's following midnight. Without parameters the range
// is the last 30 days including today.
func parseDateRange(r *http.Request, now time.Time) (time.Time, time.Time, error) {
	now = now.UTC()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	start := today.AddDate(0, 0, -30)
	end := today.AddDate(0, 0, 1)

	if s := r.URL.Query().Get("start_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid start_date format, use YYYY-MM-DD")
		}
		start = t
	}
	if s := r.URL.Query().Get("end_date"); s != "" {
		t, err := time.Parse(dateLayout, s)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid end_date format, use YYYY-MM-DD")
		}
		end = t.AddDate(0, 0, 1)
	}
	if !start.Before(end) {
		return time.Time{}, time.Time{}, fmt.Errorf("start_date must not be after end_date")
	}
	return start, end, nil
}
