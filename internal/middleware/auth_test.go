package middleware_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/middleware"
)

const testSecret = "test-secret"

var issuer = auth.NewIssuer(testSecret, 15*time.Minute, time.Hour)

type mockBranchLookup struct {
	branches map[uuid.UUID]database.Branch
	err      error
}

func (m *mockBranchLookup) GetBranchByID(_ context.Context, id uuid.UUID) (database.Branch, error) {
	if m.err != nil {
		return database.Branch{}, m.err
	}
	b, ok := m.branches[id]
	if !ok {
		return database.Branch{}, pgx.ErrNoRows
	}
	return b, nil
}

func TestAuthMiddleware_ValidToken(t *testing.T) {
	userID := uuid.New()
	token, _ := issuer.GenerateToken(userID, uuid.New(), nil, "OWNER")

	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		claims := middleware.ClaimsFromContext(r.Context())
		if claims == nil {
			t.Fatal("expected claims in context")
		}
		if claims.UserID != userID {
			t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
		}
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusOK {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusOK)
	}
}

func TestAuthMiddleware_MissingToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_InvalidToken(t *testing.T) {
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer invalid-token")
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestAuthMiddleware_RefreshTokenRejected(t *testing.T) {
	refresh, _ := issuer.GenerateRefreshToken(uuid.New())
	handler := middleware.Authenticate(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	}))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+refresh)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusUnauthorized {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusUnauthorized)
	}
}

func TestRequireBranch(t *testing.T) {
	tenantID := uuid.New()
	branchID := uuid.New()
	otherBranchID := uuid.New()
	foreignBranchID := uuid.New()

	lookup := &mockBranchLookup{branches: map[uuid.UUID]database.Branch{
		branchID:        {ID: branchID, TenantID: tenantID},
		otherBranchID:   {ID: otherBranchID, TenantID: tenantID},
		foreignBranchID: {ID: foreignBranchID, TenantID: uuid.New()},
	}}

	tests := []struct {
		name      string
		role      string
		ownBranch *uuid.UUID
		target    string
		want      int
	}{
		{"staff own branch", "CASHIER", &branchID, branchID.String(), http.StatusOK},
		{"staff other branch", "CASHIER", &branchID, otherBranchID.String(), http.StatusForbidden},
		{"owner any tenant branch", "OWNER", nil, otherBranchID.String(), http.StatusOK},
		{"owner foreign tenant branch", "OWNER", nil, foreignBranchID.String(), http.StatusNotFound},
		{"unknown branch", "OWNER", nil, uuid.New().String(), http.StatusNotFound},
		{"malformed branch", "OWNER", nil, "not-a-uuid", http.StatusBadRequest},
		{"staff without branch", "MANAGER", nil, branchID.String(), http.StatusForbidden},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			token, _ := issuer.GenerateToken(uuid.New(), tenantID, tt.ownBranch, tt.role)
			inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				if middleware.BranchFromContext(r.Context()) == nil {
					t.Error("expected branch in context")
				}
				w.WriteHeader(http.StatusOK)
			})
			handler := middleware.Authenticate(testSecret)(middleware.RequireBranch(lookup)(inner))

			req := httptest.NewRequest("GET", "/branches/"+tt.target+"/orders", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			req.SetPathValue("bid", tt.target)
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, req)

			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d; body: %s", rr.Code, tt.want, rr.Body.String())
			}
		})
	}
}

func TestRequireBranch_LookupError(t *testing.T) {
	token, _ := issuer.GenerateToken(uuid.New(), uuid.New(), nil, "OWNER")
	lookup := &mockBranchLookup{err: errors.New("db down")}
	handler := middleware.Authenticate(testSecret)(middleware.RequireBranch(lookup)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		t.Fatal("handler should not be called")
	})))

	bid := uuid.New().String()
	req := httptest.NewRequest("GET", "/branches/"+bid, nil)
	req.Header.Set("Authorization", "Bearer "+token)
	req.SetPathValue("bid", bid)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusInternalServerError {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusInternalServerError)
	}
}

func TestRequireRole(t *testing.T) {
	branchID := uuid.New()
	token, _ := issuer.GenerateToken(uuid.New(), uuid.New(), &branchID, "CASHIER")

	inner := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	// CASHIER trying to access an OWNER/MANAGER endpoint
	handler := middleware.Authenticate(testSecret)(middleware.RequireRole("OWNER", "MANAGER")(inner))

	req := httptest.NewRequest("GET", "/", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	if rr.Code != http.StatusForbidden {
		t.Errorf("status: got %d, want %d", rr.Code, http.StatusForbidden)
	}
}

func TestQueryTokenAuth(t *testing.T) {
	token, _ := issuer.GenerateToken(uuid.New(), uuid.New(), nil, "KITCHEN")
	handler := middleware.QueryTokenAuth(testSecret)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if middleware.ClaimsFromContext(r.Context()) == nil {
			t.Error("expected claims in context")
		}
		w.WriteHeader(http.StatusOK)
	}))

	tests := []struct {
		name  string
		query string
		want  int
	}{
		{"valid", "?token=" + token, http.StatusOK},
		{"missing", "", http.StatusUnauthorized},
		{"garbage", "?token=abc", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()
			handler.ServeHTTP(rr, httptest.NewRequest("GET", "/ws/branches/x/kitchen"+tt.query, nil))
			if rr.Code != tt.want {
				t.Errorf("status: got %d, want %d", rr.Code, tt.want)
			}
		})
	}
}
