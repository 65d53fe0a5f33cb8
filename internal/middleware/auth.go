package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/tablekeep/backoffice/internal/auth"
	"github.com/tablekeep/backoffice/internal/database"
	"github.com/tablekeep/backoffice/internal/enum"
	"github.com/tablekeep/backoffice/internal/logging"
)

type contextKey string

const (
	claimsKey contextKey = "claims"
	branchKey contextKey = "branch"
)

func Authenticate(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing authorization header"})
				return
			}

			parts := strings.SplitN(header, " ", 2)
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid authorization format"})
				return
			}

			claims, err := auth.ValidateToken(jwtSecret, parts[1])
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}

			ctx := context.WithValue(r.Context(), claimsKey, claims)
			ctx = logging.WithEntry(ctx, logging.FromContext(ctx).WithField("user_id", claims.UserID))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// QueryTokenAuth authenticates from the token query parameter. Browsers
// cannot set headers on a websocket handshake.
func QueryTokenAuth(jwtSecret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenStr := r.URL.Query().Get("token")
			if tokenStr == "" {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "missing token"})
				return
			}
			claims, err := auth.ValidateToken(jwtSecret, tokenStr)
			if err != nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "invalid token"})
				return
			}
			next.ServeHTTP(w, r.WithContext(WithClaims(r.Context(), claims)))
		})
	}
}

// BranchLookup loads a branch by ID regardless of tenant.
type BranchLookup interface {
	GetBranchByID(ctx context.Context, id uuid.UUID) (database.Branch, error)
}

// RequireBranch guards routes under /branches/{bid}. The branch must exist and
// belong to the caller's tenant; staff may only reach their own branch.
// Branches of other tenants answer 404 so their IDs do not leak.
func RequireBranch(lookup BranchLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			bidStr := r.PathValue("bid")
			if bidStr == "" {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "missing branch ID"})
				return
			}
			bid, err := uuid.Parse(bidStr)
			if err != nil {
				writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid branch ID"})
				return
			}

			branch, err := lookup.GetBranchByID(r.Context(), bid)
			if err != nil {
				if errors.Is(err, pgx.ErrNoRows) {
					writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
					return
				}
				logging.FromContext(r.Context()).WithError(err).Error("lookup branch")
				writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "internal server error"})
				return
			}
			if branch.TenantID != claims.TenantID {
				writeJSON(w, http.StatusNotFound, map[string]string{"error": "branch not found"})
				return
			}

			if claims.Role != enum.UserRoleOwner {
				if claims.BranchID == nil || *claims.BranchID != bid {
					writeJSON(w, http.StatusForbidden, map[string]string{"error": "access denied for this branch"})
					return
				}
			}

			ctx := context.WithValue(r.Context(), branchKey, &branch)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func RequireRole(roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			claims := ClaimsFromContext(r.Context())
			if claims == nil {
				writeJSON(w, http.StatusUnauthorized, map[string]string{"error": "not authenticated"})
				return
			}

			for _, role := range roles {
				if claims.Role == role {
					next.ServeHTTP(w, r)
					return
				}
			}

			writeJSON(w, http.StatusForbidden, map[string]string{"error": "insufficient permissions"})
		})
	}
}

func ClaimsFromContext(ctx context.Context) *auth.Claims {
	claims, _ := ctx.Value(claimsKey).(*auth.Claims)
	return claims
}

// BranchFromContext returns the branch resolved by RequireBranch.
func BranchFromContext(ctx context.Context) *database.Branch {
	b, _ := ctx.Value(branchKey).(*database.Branch)
	return b
}

// WithClaims returns ctx carrying claims. Used by tests and the websocket
// handshake, which authenticates from a query parameter.
func WithClaims(ctx context.Context, claims *auth.Claims) context.Context {
	return context.WithValue(ctx, claimsKey, claims)
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
