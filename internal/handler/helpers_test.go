package handler_test

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/middleware"
	"github.com/tablekeep/backoffice/internal/validate"
)

const testSecret = "test-secret"

func newValidator() *validate.Validator {
	return validate.New("ID")
}

func ownerClaims(tenantID uuid.UUID) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), TenantID: tenantID, Role: enum.UserRoleOwner}
}

func staffClaims(tenantID, branchID uuid.UUID, role string) *auth.Claims {
	return &auth.Claims{UserID: uuid.New(), TenantID: tenantID, BranchID: &branchID, Role: role}
}

func doRequest(t *testing.T, router http.Handler, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	return doRequestAs(t, router, method, path, body, nil)
}

// doRequestAs sends the request with claims already in the context, as the
// Authenticate middleware would leave them.
func doRequestAs(t *testing.T, router http.Handler, method, path string, body interface{}, claims *auth.Claims) *httptest.ResponseRecorder {
	t.Helper()
	var req *http.Request
	if body != nil {
		var b []byte
		switch v := body.(type) {
		case string:
			b = []byte(v)
		default:
			var err error
			b, err = json.Marshal(body)
			if err != nil {
				t.Fatalf("marshal request: %v", err)
			}
		}
		req = httptest.NewRequest(method, path, bytes.NewReader(b))
		req.Header.Set("Content-Type", "application/json")
	} else {
		req = httptest.NewRequest(method, path, nil)
	}
	if claims != nil {
		req = req.WithContext(middleware.WithClaims(req.Context(), claims))
	}
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeResponse(t *testing.T, rr *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var resp map[string]interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func decodeList(t *testing.T, rr *httptest.ResponseRecorder) []interface{} {
	t.Helper()
	var resp []interface{}
	if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp
}

func assertStatus(t *testing.T, rr *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rr.Code != want {
		t.Fatalf("status: got %d, want %d; body: %s", rr.Code, want, rr.Body.String())
	}
}
