package handler_test

import (
	"context"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/handler"
)

// --- Mock store ---

type mockSupplierStore struct {
	orgs      map[uuid.UUID]database.Organisation
	branches  map[uuid.UUID]database.Branch
	suppliers map[uuid.UUID]database.Supplier
}

func newMockSupplierStore() *mockSupplierStore {
	return &mockSupplierStore{
		orgs:      make(map[uuid.UUID]database.Organisation),
		branches:  make(map[uuid.UUID]database.Branch),
		suppliers: make(map[uuid.UUID]database.Supplier),
	}
}

func (m *mockSupplierStore) GetOrganisation(_ context.Context, arg database.GetOrganisationParams) (database.Organisation, error) {
	o, ok := m.orgs[arg.ID]
	if !ok || o.TenantID != arg.TenantID {
		return database.Organisation{}, pgx.ErrNoRows
	}
	return o, nil
}

func (m *mockSupplierStore) GetBranchByID(_ context.Context, id uuid.UUID) (database.Branch, error) {
	b, ok := m.branches[id]
	if !ok {
		return database.Branch{}, pgx.ErrNoRows
	}
	return b, nil
}

func (m *mockSupplierStore) ListSuppliersByOrganisation(_ context.Context, arg database.ListSuppliersByOrganisationParams) ([]database.Supplier, error) {
	var out []database.Supplier
	for _, s := range m.suppliers {
		if s.OrganisationID == arg.OrganisationID && s.TenantID == arg.TenantID && s.IsActive {
			out = append(out, s)
		}
	}
	return out, nil
}

func (m *mockSupplierStore) GetSupplier(_ context.Context, arg database.GetSupplierParams) (database.Supplier, error) {
	s, ok := m.suppliers[arg.ID]
	if !ok || s.TenantID != arg.TenantID || !s.IsActive {
		return database.Supplier{}, pgx.ErrNoRows
	}
	return s, nil
}

func (m *mockSupplierStore) CreateSupplier(_ context.Context, arg database.CreateSupplierParams) (database.Supplier, error) {
	s := database.Supplier{
		ID:             uuid.New(),
		TenantID:       arg.TenantID,
		OrganisationID: arg.OrganisationID,
		Name:           arg.Name,
		ContactName:    arg.ContactName,
		Phone:          arg.Phone,
		Email:          arg.Email,
		Address:        arg.Address,
		IsActive:       true,
	}
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *mockSupplierStore) UpdateSupplier(_ context.Context, arg database.UpdateSupplierParams) (database.Supplier, error) {
	s, ok := m.suppliers[arg.ID]
	if !ok || s.OrganisationID != arg.OrganisationID || s.TenantID != arg.TenantID || !s.IsActive {
		return database.Supplier{}, pgx.ErrNoRows
	}
	s.Name, s.ContactName, s.Phone, s.Email, s.Address = arg.Name, arg.ContactName, arg.Phone, arg.Email, arg.Address
	m.suppliers[s.ID] = s
	return s, nil
}

func (m *mockSupplierStore) SoftDeleteSupplier(_ context.Context, arg database.SoftDeleteSupplierParams) (uuid.UUID, error) {
	s, ok := m.suppliers[arg.ID]
	if !ok || s.OrganisationID != arg.OrganisationID || s.TenantID != arg.TenantID || !s.IsActive {
		return uuid.Nil, pgx.ErrNoRows
	}
	s.IsActive = false
	m.suppliers[s.ID] = s
	return s.ID, nil
}

// --- Helpers ---

type supplierFixture struct {
	store    *mockSupplierStore
	router   *chi.Mux
	tenantID uuid.UUID
	org      database.Organisation
	branch   database.Branch
}

func newSupplierFixture() supplierFixture {
	store := newMockSupplierStore()
	tenantID := uuid.New()
	org := database.Organisation{ID: uuid.New(), TenantID: tenantID, Name: "Kopi", IsActive: true}
	store.orgs[org.ID] = org
	branch := database.Branch{ID: uuid.New(), TenantID: tenantID, OrganisationID: org.ID, Name: "Sudirman", IsActive: true}
	store.branches[branch.ID] = branch

	r := chi.NewRouter()
	r.Route("/organisations/{orgID}/suppliers", handler.NewSupplierHandler(store, newValidator()).RegisterRoutes)
	return supplierFixture{store: store, router: r, tenantID: tenantID, org: org, branch: branch}
}

func (f supplierFixture) path() string {
	return "/organisations/" + f.org.ID.String() + "/suppliers"
}

// --- Tests ---

func TestSupplier_CreateNormalisesPhone(t *testing.T) {
	f := newSupplierFixture()

	rr := doRequestAs(t, f.router, "POST", f.path(), map[string]string{
		"name":         "Sumber Segar",
		"contact_name": "Budi",
		"phone":        "0812 3456 7890",
		"email":        "sales@segar.test",
	}, ownerClaims(f.tenantID))
	assertStatus(t, rr, http.StatusCreated)

	resp := decodeResponse(t, rr)
	if resp["phone"] != "+6281234567890" {
		t.Errorf("phone: got %v, want +6281234567890", resp["phone"])
	}
	if resp["organisation_id"] != f.org.ID.String() {
		t.Errorf("organisation_id: got %v", resp["organisation_id"])
	}
}

func TestSupplier_Validation(t *testing.T) {
	f := newSupplierFixture()

	rr := doRequestAs(t, f.router, "POST", f.path(), map[string]string{
		"name":  "Sumber Segar",
		"email": "not-an-email",
		"phone": "12",
	}, ownerClaims(f.tenantID))
	assertStatus(t, rr, http.StatusBadRequest)

	fields, _ := decodeResponse(t, rr)["fields"].(map[string]interface{})
	if fields["email"] != "email" || fields["phone"] != "phone" {
		t.Errorf("fields: got %v", fields)
	}
}

func TestSupplier_ManagerOwnOrganisation(t *testing.T) {
	f := newSupplierFixture()
	claims := staffClaims(f.tenantID, f.branch.ID, enum.UserRoleManager)

	rr := doRequestAs(t, f.router, "POST", f.path(), map[string]string{"name": "Sumber Segar"}, claims)
	assertStatus(t, rr, http.StatusCreated)

	rr = doRequestAs(t, f.router, "GET", f.path(), nil, claims)
	assertStatus(t, rr, http.StatusOK)
	if got := len(decodeList(t, rr)); got != 1 {
		t.Errorf("suppliers: got %d, want 1", got)
	}
}

func TestSupplier_ManagerOtherOrganisationForbidden(t *testing.T) {
	f := newSupplierFixture()
	other := database.Organisation{ID: uuid.New(), TenantID: f.tenantID, Name: "Other", IsActive: true}
	f.store.orgs[other.ID] = other

	rr := doRequestAs(t, f.router, "GET", "/organisations/"+other.ID.String()+"/suppliers", nil,
		staffClaims(f.tenantID, f.branch.ID, enum.UserRoleManager))
	assertStatus(t, rr, http.StatusForbidden)
}

func TestSupplier_OtherTenantNotFound(t *testing.T) {
	f := newSupplierFixture()

	rr := doRequestAs(t, f.router, "GET", f.path(), nil, ownerClaims(uuid.New()))
	assertStatus(t, rr, http.StatusNotFound)
}

func TestSupplier_GetChecksOrganisation(t *testing.T) {
	f := newSupplierFixture()
	other := database.Organisation{ID: uuid.New(), TenantID: f.tenantID, Name: "Other", IsActive: true}
	f.store.orgs[other.ID] = other
	s, _ := f.store.CreateSupplier(context.Background(), database.CreateSupplierParams{TenantID: f.tenantID, OrganisationID: other.ID, Name: "Elsewhere"})

	rr := doRequestAs(t, f.router, "GET", f.path()+"/"+s.ID.String(), nil, ownerClaims(f.tenantID))
	assertStatus(t, rr, http.StatusNotFound)

	rr = doRequestAs(t, f.router, "GET", "/organisations/"+other.ID.String()+"/suppliers/"+s.ID.String(), nil, ownerClaims(f.tenantID))
	assertStatus(t, rr, http.StatusOK)
}

func TestSupplier_UpdateAndDelete(t *testing.T) {
	f := newSupplierFixture()
	s, _ := f.store.CreateSupplier(context.Background(), database.CreateSupplierParams{TenantID: f.tenantID, OrganisationID: f.org.ID, Name: "Old"})
	claims := ownerClaims(f.tenantID)

	rr := doRequestAs(t, f.router, "PUT", f.path()+"/"+s.ID.String(), map[string]string{"name": "New", "address": "Pasar Minggu"}, claims)
	assertStatus(t, rr, http.StatusOK)
	if got := f.store.suppliers[s.ID]; got.Name != "New" || got.Address.String != "Pasar Minggu" {
		t.Errorf("supplier not updated: %+v", got)
	}

	rr = doRequestAs(t, f.router, "DELETE", f.path()+"/"+s.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusNoContent)

	rr = doRequestAs(t, f.router, "DELETE", f.path()+"/"+s.ID.String(), nil, claims)
	assertStatus(t, rr, http.StatusNotFound)
}
