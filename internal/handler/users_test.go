package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/handler"
	"golang.org/x/crypto/bcrypt"
)

// --- Mock store ---

type mockUserStore struct {
	users map[uuid.UUID]database.User // keyed by user ID
}

func newMockUserStore() *mockUserStore {
	return &mockUserStore{users: make(map[uuid.UUID]database.User)}
}

func inBranch(u database.User, branchID uuid.UUID) bool {
	return u.BranchID.Valid && uuid.UUID(u.BranchID.Bytes) == branchID
}

func (m *mockUserStore) ListUsersByBranch(_ context.Context, branchID uuid.UUID) ([]database.User, error) {
	var result []database.User
	for _, u := range m.users {
		if inBranch(u, branchID) && u.IsActive {
			result = append(result, u)
		}
	}
	return result, nil
}

func (m *mockUserStore) CreateUser(_ context.Context, arg database.CreateUserParams) (database.User, error) {
	// simulates the unique email index
	for _, existing := range m.users {
		if existing.Email == arg.Email && existing.IsActive {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	u := database.User{
		ID:             uuid.New(),
		TenantID:       arg.TenantID,
		BranchID:       arg.BranchID,
		Email:          arg.Email,
		HashedPassword: arg.HashedPassword,
		FullName:       arg.FullName,
		Role:           arg.Role,
		Pin:            arg.Pin,
		IsActive:       true,
	}
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) UpdateUser(_ context.Context, arg database.UpdateUserParams) (database.User, error) {
	u, ok := m.users[arg.ID]
	if !ok || !inBranch(u, arg.BranchID) || !u.IsActive {
		return database.User{}, pgx.ErrNoRows
	}
	for _, existing := range m.users {
		if existing.Email == arg.Email && existing.ID != arg.ID && existing.IsActive {
			return database.User{}, &pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint"}
		}
	}
	u.Email = arg.Email
	u.FullName = arg.FullName
	u.Role = arg.Role
	u.Pin = arg.Pin
	m.users[u.ID] = u
	return u, nil
}

func (m *mockUserStore) SoftDeleteUser(_ context.Context, arg database.SoftDeleteUserParams) (uuid.UUID, error) {
	u, ok := m.users[arg.ID]
	if !ok || !inBranch(u, arg.BranchID) || !u.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	u.IsActive = false
	m.users[u.ID] = u
	return u.ID, nil
}

// --- Helpers ---

func setupUserRouter(store *mockUserStore) *chi.Mux {
	h := handler.NewUserHandler(store, newValidator())
	r := chi.NewRouter()
	r.Route("/branches/{bid}/users", h.RegisterRoutes)
	return r
}

func seedUser(store *mockUserStore, branchID uuid.UUID, email string) database.User {
	u := database.User{
		ID:       uuid.New(),
		TenantID: uuid.New(),
		BranchID: pgtype.UUID{Bytes: branchID, Valid: true},
		Email:    email,
		FullName: "Alice",
		Role:     enum.UserRoleCashier,
		IsActive: true,
	}
	store.users[u.ID] = u
	return u
}

// --- List tests ---

func TestListUsers_Empty(t *testing.T) {
	rr := doRequest(t, setupUserRouter(newMockUserStore()), "GET", "/branches/"+uuid.New().String()+"/users", nil)
	assertStatus(t, rr, http.StatusOK)
	if got := len(decodeList(t, rr)); got != 0 {
		t.Errorf("expected empty list, got %d items", got)
	}
}

func TestListUsers_ReturnsBranchUsersWithoutSecrets(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	u := seedUser(store, branchID, "a@test.com")
	u.HashedPassword = "$2a$10$somehash"
	u.Pin = pgtype.Text{String: "1234", Valid: true}
	store.users[u.ID] = u
	seedUser(store, uuid.New(), "b@test.com")

	rr := doRequest(t, setupUserRouter(store), "GET", "/branches/"+branchID.String()+"/users", nil)
	assertStatus(t, rr, http.StatusOK)

	resp := decodeList(t, rr)
	if len(resp) != 1 {
		t.Fatalf("expected 1 user, got %d", len(resp))
	}
	got := resp[0].(map[string]interface{})
	if got["email"] != "a@test.com" {
		t.Errorf("expected a@test.com, got %v", got["email"])
	}
	if _, exists := got["hashed_password"]; exists {
		t.Error("response must not include hashed_password")
	}
	if _, exists := got["pin"]; exists {
		t.Error("response must not include pin")
	}
	if got["has_pin"] != true {
		t.Errorf("has_pin: got %v", got["has_pin"])
	}
}

func TestListUsers_InvalidBranchID(t *testing.T) {
	rr := doRequest(t, setupUserRouter(newMockUserStore()), "GET", "/branches/not-a-uuid/users", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}

// --- Create tests ---

func TestCreateUser_Valid(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	tenantID := uuid.New()

	rr := doRequestAs(t, setupUserRouter(store), "POST", "/branches/"+branchID.String()+"/users", map[string]string{
		"email":     "new@test.com",
		"password":  "securepass",
		"full_name": "New User",
		"role":      "CASHIER",
		"pin":       "1234",
	}, ownerClaims(tenantID))
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["role"] != "CASHIER" {
		t.Errorf("role: got %v, want CASHIER", resp["role"])
	}
	if resp["branch_id"] != branchID.String() {
		t.Errorf("branch_id: got %v", resp["branch_id"])
	}
	if resp["tenant_id"] != tenantID.String() {
		t.Errorf("tenant_id: got %v", resp["tenant_id"])
	}

	for _, u := range store.users {
		if err := bcrypt.CompareHashAndPassword([]byte(u.HashedPassword), []byte("securepass")); err != nil {
			t.Errorf("stored password is not a bcrypt hash of the input: %v", err)
		}
		if u.Pin.String != "1234" {
			t.Errorf("pin: got %q", u.Pin.String)
		}
	}
}

func TestCreateUser_OwnerRoleRejected(t *testing.T) {
	rr := doRequestAs(t, setupUserRouter(newMockUserStore()), "POST", "/branches/"+uuid.New().String()+"/users", map[string]string{
		"email":     "boss@test.com",
		"password":  "securepass",
		"full_name": "Boss",
		"role":      "OWNER",
	}, ownerClaims(uuid.New()))
	assertStatus(t, rr, http.StatusBadRequest)

	fields, _ := decodeResponse(t, rr)["fields"].(map[string]interface{})
	if fields["role"] != "oneof" {
		t.Errorf("fields: got %v", fields)
	}
}

func TestCreateUser_Validation(t *testing.T) {
	tests := []struct {
		name  string
		body  map[string]string
		field string
	}{
		{"bad email", map[string]string{"email": "nope", "password": "securepass", "full_name": "A", "role": "CASHIER"}, "email"},
		{"short password", map[string]string{"email": "a@test.com", "password": "short", "full_name": "A", "role": "CASHIER"}, "password"},
		{"pin letters", map[string]string{"email": "a@test.com", "password": "securepass", "full_name": "A", "role": "CASHIER", "pin": "12ab"}, "pin"},
		{"pin too long", map[string]string{"email": "a@test.com", "password": "securepass", "full_name": "A", "role": "CASHIER", "pin": "1234567"}, "pin"},
		{"missing name", map[string]string{"email": "a@test.com", "password": "securepass", "role": "CASHIER"}, "full_name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := doRequestAs(t, setupUserRouter(newMockUserStore()), "POST", "/branches/"+uuid.New().String()+"/users", tt.body, ownerClaims(uuid.New()))
			assertStatus(t, rr, http.StatusBadRequest)
			fields, _ := decodeResponse(t, rr)["fields"].(map[string]interface{})
			if _, ok := fields[tt.field]; !ok {
				t.Errorf("expected %s in fields, got %v", tt.field, fields)
			}
		})
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	seedUser(store, branchID, "taken@test.com")

	rr := doRequestAs(t, setupUserRouter(store), "POST", "/branches/"+branchID.String()+"/users", map[string]string{
		"email":     "taken@test.com",
		"password":  "securepass",
		"full_name": "Dup",
		"role":      "KITCHEN",
	}, ownerClaims(uuid.New()))
	assertStatus(t, rr, http.StatusConflict)
}

// --- Update tests ---

func TestUpdateUser_Valid(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	u := seedUser(store, branchID, "a@test.com")

	rr := doRequest(t, setupUserRouter(store), "PUT", "/branches/"+branchID.String()+"/users/"+u.ID.String(), map[string]string{
		"email":     "a2@test.com",
		"full_name": "Alice B",
		"role":      "MANAGER",
	})
	assertStatus(t, rr, http.StatusOK)

	if got := store.users[u.ID]; got.Role != enum.UserRoleManager || got.Email != "a2@test.com" {
		t.Errorf("user not updated: %+v", got)
	}
}

func TestUpdateUser_OtherBranch(t *testing.T) {
	store := newMockUserStore()
	u := seedUser(store, uuid.New(), "a@test.com")

	rr := doRequest(t, setupUserRouter(store), "PUT", "/branches/"+uuid.New().String()+"/users/"+u.ID.String(), map[string]string{
		"email":     "a@test.com",
		"full_name": "Alice",
		"role":      "CASHIER",
	})
	assertStatus(t, rr, http.StatusNotFound)
}

func TestUpdateUser_DuplicateEmail(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	seedUser(store, branchID, "taken@test.com")
	u := seedUser(store, branchID, "a@test.com")

	rr := doRequest(t, setupUserRouter(store), "PUT", "/branches/"+branchID.String()+"/users/"+u.ID.String(), map[string]string{
		"email":     "taken@test.com",
		"full_name": "Alice",
		"role":      "CASHIER",
	})
	assertStatus(t, rr, http.StatusConflict)
}

// --- Delete tests ---

func TestDeleteUser(t *testing.T) {
	store := newMockUserStore()
	branchID := uuid.New()
	u := seedUser(store, branchID, "a@test.com")
	router := setupUserRouter(store)
	path := "/branches/" + branchID.String() + "/users/" + u.ID.String()

	rr := doRequest(t, router, "DELETE", path, nil)
	assertStatus(t, rr, http.StatusNoContent)
	if store.users[u.ID].IsActive {
		t.Error("user still active")
	}

	rr = doRequest(t, router, "DELETE", path, nil)
	assertStatus(t, rr, http.StatusNotFound)
}

func TestDeleteUser_InvalidID(t *testing.T) {
	rr := doRequest(t, setupUserRouter(newMockUserStore()), "DELETE", "/branches/"+uuid.New().String()+"/users/bad", nil)
	assertStatus(t, rr, http.StatusBadRequest)
}
