package auth_test

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/tablekeep/backoffice/internal/auth"
)

func newIssuer(secret string) *auth.Issuer {
	return auth.NewIssuer(secret, 15*time.Minute, time.Hour)
}

func TestGenerateAndValidateToken(t *testing.T) {
	secret := "test-secret"
	userID := uuid.New()
	tenantID := uuid.New()
	branchID := uuid.New()
	role := "CASHIER"

	token, err := newIssuer(secret).GenerateToken(userID, tenantID, &branchID, role)
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	claims, err := auth.ValidateToken(secret, token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}

	if claims.UserID != userID {
		t.Errorf("user ID: got %v, want %v", claims.UserID, userID)
	}
	if claims.TenantID != tenantID {
		t.Errorf("tenant ID: got %v, want %v", claims.TenantID, tenantID)
	}
	if claims.BranchID == nil || *claims.BranchID != branchID {
		t.Errorf("branch ID: got %v, want %v", claims.BranchID, branchID)
	}
	if claims.Role != role {
		t.Errorf("role: got %v, want %v", claims.Role, role)
	}
}

func TestGenerateToken_OwnerWithoutBranch(t *testing.T) {
	token, err := newIssuer("s").GenerateToken(uuid.New(), uuid.New(), nil, "OWNER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	claims, err := auth.ValidateToken("s", token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	if claims.BranchID != nil {
		t.Errorf("branch ID: got %v, want nil", claims.BranchID)
	}
}

func TestValidateTokenWithWrongSecret(t *testing.T) {
	token, err := newIssuer("secret-a").GenerateToken(uuid.New(), uuid.New(), nil, "OWNER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}

	_, err = auth.ValidateToken("secret-b", token)
	if err == nil {
		t.Fatal("expected error validating with wrong secret")
	}
}

func TestValidateTokenWithInvalidString(t *testing.T) {
	_, err := auth.ValidateToken("secret", "not-a-jwt")
	if err == nil {
		t.Fatal("expected error validating invalid token string")
	}
}

func TestValidateToken_Expired(t *testing.T) {
	iss := auth.NewIssuer("s", -time.Minute, time.Hour)
	token, err := iss.GenerateToken(uuid.New(), uuid.New(), nil, "OWNER")
	if err != nil {
		t.Fatalf("generate token: %v", err)
	}
	if _, err := auth.ValidateToken("s", token); err == nil {
		t.Fatal("expected expired token to fail")
	}
}

func TestRefreshToken_RoundTrip(t *testing.T) {
	iss := newIssuer("s")
	userID := uuid.New()
	token, err := iss.GenerateRefreshToken(userID)
	if err != nil {
		t.Fatalf("generate refresh: %v", err)
	}
	got, err := auth.ValidateRefreshToken("s", token)
	if err != nil {
		t.Fatalf("validate refresh: %v", err)
	}
	if got != userID {
		t.Errorf("user ID: got %v, want %v", got, userID)
	}
}

func TestTokenTypesAreNotInterchangeable(t *testing.T) {
	iss := newIssuer("s")
	access, _ := iss.GenerateToken(uuid.New(), uuid.New(), nil, "OWNER")
	refresh, _ := iss.GenerateRefreshToken(uuid.New())

	if _, err := auth.ValidateRefreshToken("s", access); !errors.Is(err, auth.ErrWrongTokenType) {
		t.Errorf("access as refresh: got %v, want ErrWrongTokenType", err)
	}
	if _, err := auth.ValidateToken("s", refresh); !errors.Is(err, auth.ErrWrongTokenType) {
		t.Errorf("refresh as access: got %v, want ErrWrongTokenType", err)
	}
}
