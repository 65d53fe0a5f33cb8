package handler

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/logging"
	"github.com/tablekeep/backoffice/internal/report"
)

// ReportsStore defines the database methods needed by report handlers.
// Satisfied by *database.Queries; narrow interface for testability.
type ReportsStore interface {
	GetDailySales(ctx context.Context, arg database.ReportRangeParams) ([]database.GetDailySalesRow, error)
	GetPaymentSummary(ctx context.Context, arg database.ReportRangeParams) ([]database.GetPaymentSummaryRow, error)
	ListPaidBills(ctx context.Context, arg database.ReportRangeParams) ([]database.ListPaidBillsRow, error)
}

// ReportsHandler handles report endpoints.
type ReportsHandler struct {
	store ReportsStore
	now   func() time.Time
}

func NewReportsHandler(store ReportsStore) *ReportsHandler {
	return &ReportsHandler{store: store, now: time.Now}
}

// RegisterRoutes registers branch-scoped report endpoints.
// Expected to be mounted inside a branch-scoped subrouter: /branches/{bid}/reports
func (h *ReportsHandler) RegisterRoutes(r chi.Router) {
	r.Get("/daily-sales", h.DailySales)
	r.Get("/payment-summary", h.PaymentSummary)
	r.Get("/sales.xlsx", h.SalesWorkbook)
}

// --- Response types ---

type dailySalesResponse struct {
	Date          string `json:"date"`
	BillCount     int64  `json:"bill_count"`
	GrossSales    string `json:"gross_sales"`
	DiscountTotal string `json:"discount_total"`
	TaxTotal      string `json:"tax_total"`
	NetSales      string `json:"net_sales"`
}

type paymentSummaryResponse struct {
	PaymentMethod string `json:"payment_method"`
	PaymentCount  int64  `json:"payment_count"`
	TotalAmount   string `json:"total_amount"`
}

// --- Handlers ---

// DailySales returns per-day totals of PAID bills for a date range.
func (h *ReportsHandler) DailySales(w http.ResponseWriter, r *http.Request) {
	params, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetDailySales(r.Context(), params)
	if err != nil {
		internalError(w, r, "get daily sales", err)
		return
	}

	resp := make([]dailySalesResponse, len(rows))
	for i, row := range rows {
		date := "N/A"
		if row.Day.Valid {
			date = row.Day.Time.Format(dateLayout)
		}
		resp[i] = dailySalesResponse{
			Date:          date,
			BillCount:     row.BillCount,
			GrossSales:    row.GrossSales.StringFixed(2),
			DiscountTotal: row.DiscountTotal.StringFixed(2),
			TaxTotal:      row.TaxTotal.StringFixed(2),
			NetSales:      row.NetSales.StringFixed(2),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// PaymentSummary returns totals per payment method.
func (h *ReportsHandler) PaymentSummary(w http.ResponseWriter, r *http.Request) {
	params, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	rows, err := h.store.GetPaymentSummary(r.Context(), params)
	if err != nil {
		internalError(w, r, "get payment summary", err)
		return
	}

	resp := make([]paymentSummaryResponse, len(rows))
	for i, row := range rows {
		resp[i] = paymentSummaryResponse{
			PaymentMethod: row.PaymentMethod,
			PaymentCount:  row.PaymentCount,
			TotalAmount:   row.TotalAmount.StringFixed(2),
		}
	}

	writeJSON(w, http.StatusOK, resp)
}

// SalesWorkbook streams the PAID bills of the range as an xlsx download.
func (h *ReportsHandler) SalesWorkbook(w http.ResponseWriter, r *http.Request) {
	params, ok := h.rangeParams(w, r)
	if !ok {
		return
	}

	bills, err := h.store.ListPaidBills(r.Context(), params)
	if err != nil {
		internalError(w, r, "list paid bills", err)
		return
	}
	daily, err := h.store.GetDailySales(r.Context(), params)
	if err != nil {
		internalError(w, r, "get daily sales", err)
		return
	}

	// Render fully before the headers go out so a failure can still be a 500.
	var buf bytes.Buffer
	if err := report.WriteSalesWorkbook(&buf, bills, daily); err != nil {
		internalError(w, r, "write sales workbook", err)
		return
	}

	filename := fmt.Sprintf("sales_%s_%s.xlsx",
		params.StartDate.Format(dateLayout),
		params.EndDate.AddDate(0, 0, -1).Format(dateLayout))
	w.Header().Set("Content-Type", report.ContentType)
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	w.WriteHeader(http.StatusOK)
	if _, err := buf.WriteTo(w); err != nil {
		logging.FromContext(r.Context()).WithError(err).Warn("write sales workbook response")
	}
}

func (h *ReportsHandler) rangeParams(w http.ResponseWriter, r *http.Request) (database.ReportRangeParams, bool) {
	branchID, ok := branchParam(w, r)
	if !ok {
		return database.ReportRangeParams{}, false
	}
	start, end, err := parseDateRange(r, h.now().UTC())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return database.ReportRangeParams{}, false
	}
	return database.ReportRangeParams{BranchID: branchID, StartDate: start, EndDate: end}, true
}
