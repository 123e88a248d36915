package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/tenancy"
)

type contextKey string

const principalKey contextKey = "principal"

const (
	SystemCookie    = "token"
	AttendantCookie = "attendant_token"
)

var (
	ErrForbidden       = apperr.Forbidden("insufficient permissions")
	ErrNoTenant        = apperr.Forbidden("no tenant selected")
	errUnauthenticated = apperr.Unauthenticated("authentication required")
)

// bearer extracts a token from the Authorization header, the named cookie
// or the X-Auth-Token header, in that order.
func bearer(r *http.Request, cookie string) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie(cookie); err == nil && c.Value != "" {
		return c.Value
	}
	return r.Header.Get("X-Auth-Token")
}

// TenantLookup loads the tenant behind a request identity.
type TenantLookup interface {
	Lookup(ctx context.Context, id tenancy.Identity) (*models.Tenant, error)
}

// Auth admits system users. A super admin without a tenant of their own
// acts within the tenant resolved from the request host; tenants may be nil
// when identities always carry an id.
func Auth(tokens auth.TokenService, tenants TenantLookup) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r, SystemCookie)
			if token == "" {
				writeError(w, auth.ErrMissingToken)
				return
			}

			p, err := tokens.ValidateSystemToken(token)
			if err != nil {
				writeError(w, err)
				return
			}
			if p.IsSuperAdmin && p.TenantID == uuid.Nil {
				p.TenantID = requestTenant(r, tenants)
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func requestTenant(r *http.Request, tenants TenantLookup) uuid.UUID {
	id, ok := tenancy.FromContext(r.Context())
	if !ok {
		return uuid.Nil
	}
	if id.ID != uuid.Nil || tenants == nil {
		return id.ID
	}
	t, err := tenants.Lookup(r.Context(), id)
	if err != nil {
		return uuid.Nil
	}
	return t.ID
}

// AttendantAuth admits attendants only.
func AttendantAuth(tokens auth.TokenService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := bearer(r, AttendantCookie)
			if token == "" {
				writeError(w, auth.ErrMissingToken)
				return
			}

			p, err := tokens.ValidateAttendantToken(token)
			if err != nil {
				writeError(w, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(WithPrincipal(r.Context(), p)))
		})
	}
}

func WithPrincipal(ctx context.Context, p auth.Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

func GetPrincipal(ctx context.Context) auth.Principal {
	p, _ := ctx.Value(principalKey).(auth.Principal)
	return p
}

func GetSystemPrincipal(ctx context.Context) *auth.SystemPrincipal {
	p, _ := ctx.Value(principalKey).(*auth.SystemPrincipal)
	return p
}

func GetAttendantPrincipal(ctx context.Context) *auth.AttendantPrincipal {
	p, _ := ctx.Value(principalKey).(*auth.AttendantPrincipal)
	return p
}

// RequireRole admits system principals holding one of roles. Super admins
// always pass.
func RequireRole(roles ...models.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			p := GetSystemPrincipal(r.Context())
			if p == nil {
				writeError(w, errUnauthenticated)
				return
			}
			if !p.HasRole(roles...) {
				writeError(w, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireTenant rejects principals that act within no tenant.
func RequireTenant(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		p := GetPrincipal(r.Context())
		if p == nil {
			writeError(w, errUnauthenticated)
			return
		}
		if p.Tenant() == uuid.Nil {
			writeError(w, ErrNoTenant)
			return
		}
		next.ServeHTTP(w, r)
	})
}
