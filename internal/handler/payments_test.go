package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/handler"
	"github.com/tablekeep/backoffice/internal/service"
)

type fakePaymentRecorder struct {
	got service.RecordPaymentRequest
	err error
}

func (f *fakePaymentRecorder) RecordPayment(_ context.Context, req service.RecordPaymentRequest) (*service.PaymentResult, error) {
	f.got = req
	if f.err != nil {
		return nil, f.err
	}
	p := database.Payment{
		ID:             uuid.New(),
		BillID:         req.BillID,
		PaymentMethod:  req.Method,
		Amount:         req.Amount,
		AmountReceived: req.AmountReceived,
		ProcessedBy:    req.ProcessedBy,
	}
	if req.AmountReceived.Valid {
		p.ChangeAmount = decimal.NewNullDecimal(req.AmountReceived.Decimal.Sub(req.Amount))
	}
	return &service.PaymentResult{
		Payment: p,
		Bill:    database.Bill{ID: req.BillID, Status: enum.BillStatusPaid},
	}, nil
}

func setupPaymentRouter(rec *fakePaymentRecorder, store *mockBilling) *chi.Mux {
	r := chi.NewRouter()
	r.Route("/branches/{bid}/bills/{id}/payments", handler.NewPaymentHandler(rec, store, newValidator()).RegisterRoutes)
	return r
}

func TestPaymentAdd_Cash(t *testing.T) {
	rec := &fakePaymentRecorder{}
	branchID := uuid.New()
	billID := uuid.New()
	claims := staffClaims(uuid.New(), branchID, enum.UserRoleCashier)

	rr := doRequestAs(t, setupPaymentRouter(rec, newMockBilling()), "POST",
		"/branches/"+branchID.String()+"/bills/"+billID.String()+"/payments",
		map[string]string{"payment_method": "CASH", "amount": "77000", "amount_received": "100000"}, claims)
	assertStatus(t, rr, http.StatusCreated)

	if rec.got.BillID != billID || rec.got.BranchID != branchID || rec.got.ProcessedBy != claims.UserID {
		t.Errorf("ids: %+v", rec.got)
	}
	if rec.got.SplitBillID != nil {
		t.Errorf("split id should be nil: %v", rec.got.SplitBillID)
	}

	resp := decodeResponse(t, rr)
	payment := resp["payment"].(map[string]interface{})
	if payment["change_amount"] != "23000" {
		t.Errorf("change_amount: %v", payment["change_amount"])
	}
	if resp["bill"].(map[string]interface{})["status"] != "PAID" {
		t.Errorf("bill: %v", resp["bill"])
	}
	if _, ok := resp["split"]; ok {
		t.Error("split should be omitted for an unsplit bill")
	}
}

func TestPaymentAdd_SplitID(t *testing.T) {
	rec := &fakePaymentRecorder{}
	splitID := uuid.New()

	rr := doRequestAs(t, setupPaymentRouter(rec, newMockBilling()), "POST",
		"/branches/"+uuid.New().String()+"/bills/"+uuid.New().String()+"/payments",
		map[string]string{"payment_method": "QRIS", "amount": "33333.34", "split_bill_id": splitID.String(), "reference_number": "QR-991"},
		ownerClaims(uuid.New()))
	assertStatus(t, rr, http.StatusCreated)

	if rec.got.SplitBillID == nil || *rec.got.SplitBillID != splitID {
		t.Errorf("split id: %v", rec.got.SplitBillID)
	}
	if rec.got.AmountReceived.Valid || rec.got.ReferenceNumber != "QR-991" {
		t.Errorf("request: %+v", rec.got)
	}
	if !rec.got.Amount.Equal(decimal.RequireFromString("33333.34")) {
		t.Errorf("amount: %s", rec.got.Amount)
	}
}

func TestPaymentAdd_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing method", map[string]string{"amount": "100"}},
		{"unknown method", map[string]string{"payment_method": "CHEQUE", "amount": "100"}},
		{"zero amount", map[string]string{"payment_method": "CARD", "amount": "0"}},
		{"negative amount", map[string]string{"payment_method": "CARD", "amount": "-5"}},
		{"non-numeric amount", map[string]string{"payment_method": "CARD", "amount": "lots"}},
		{"sub-cent amount", map[string]string{"payment_method": "CARD", "amount": "100.005"}},
		{"oversized received", map[string]string{"payment_method": "CASH", "amount": "100", "amount_received": "10000000000"}},
		{"bad split id", map[string]string{"payment_method": "CARD", "amount": "100", "split_bill_id": "first"}},
	}
	rec := &fakePaymentRecorder{}
	r := setupPaymentRouter(rec, newMockBilling())

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequestAs(t, r, "POST", "/branches/"+uuid.New().String()+"/bills/"+uuid.New().String()+"/payments", tt.body, ownerClaims(uuid.New()))
			assertStatus(t, rr, http.StatusBadRequest)
		})
	}
}

func TestPaymentAdd_ServiceErrors(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{service.ErrBillAlreadyPaid, http.StatusConflict},
		{service.ErrBillVoided, http.StatusConflict},
		{service.ErrOverpayment, http.StatusConflict},
		{service.ErrSplitAlreadyPaid, http.StatusConflict},
		{service.ErrSplitRequired, http.StatusBadRequest},
		{service.ErrSplitAmountMismatch, http.StatusBadRequest},
		{service.ErrInsufficientCash, http.StatusBadRequest},
		{service.ErrBillNotSplit, http.StatusBadRequest},
		{service.ErrSplitNotFound, http.StatusNotFound},
		{service.ErrBillNotFound, http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			rec := &fakePaymentRecorder{err: tt.err}
			rr := doRequestAs(t, setupPaymentRouter(rec, newMockBilling()), "POST",
				"/branches/"+uuid.New().String()+"/bills/"+uuid.New().String()+"/payments",
				map[string]string{"payment_method": "CARD", "amount": "1000"}, ownerClaims(uuid.New()))
			assertStatus(t, rr, tt.want)
		})
	}
}

func TestPaymentList(t *testing.T) {
	store := newMockBilling()
	branchID := uuid.New()
	b := seedBill(store, branchID, "50000", 1)
	r := setupPaymentRouter(&fakePaymentRecorder{}, store)
	path := "/branches/" + branchID.String() + "/bills/" + b.ID.String() + "/payments"

	rr := doRequest(t, r, "GET", path, nil)
	assertStatus(t, rr, http.StatusOK)
	if rr.Body.String() != "[]\n" {
		t.Errorf("empty list body: %q", rr.Body.String())
	}

	store.payments[b.ID] = []database.Payment{
		{ID: uuid.New(), BillID: b.ID, PaymentMethod: enum.PaymentMethodCard, Amount: decimal.NewFromInt(20000)},
		{ID: uuid.New(), BillID: b.ID, PaymentMethod: enum.PaymentMethodCash, Amount: decimal.NewFromInt(30000)},
	}
	rr = doRequest(t, r, "GET", path, nil)
	assertStatus(t, rr, http.StatusOK)
	if got := len(decodeList(t, rr)); got != 2 {
		t.Errorf("payments: got %d, want 2", got)
	}

	rr = doRequest(t, r, "GET", "/branches/"+uuid.New().String()+"/bills/"+b.ID.String()+"/payments", nil)
	assertStatus(t, rr, http.StatusNotFound)
}
