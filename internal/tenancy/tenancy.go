// Package tenancy maps an incoming request to the tenant it addresses.
package tenancy

import (
	"context"
	"errors"
	"net"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/pkg/config"
	"gorm.io/gorm"
)

const (
	HeaderSlug   = "X-Tenant-Slug"
	HeaderID     = "X-Tenant-Id"
	HeaderName   = "X-Tenant-Name"
	HeaderDomain = "X-Tenant-Domain"
)

var ErrTenantNotFound = apperr.NotFound("tenant")

// Identity is what the request claims about its tenant. ID is only known
// up front for the local development tenant; elsewhere it comes from Lookup.
type Identity struct {
	ID     uuid.UUID `json:"id"`
	Slug   string    `json:"slug"`
	Name   string    `json:"name,omitempty"`
	Domain string    `json:"domain,omitempty"`
}

type Resolver struct {
	db         *gorm.DB
	fallback   Identity
	localHosts map[string]struct{}
}

func NewResolver(db *gorm.DB, cfg config.TenancyConfig) *Resolver {
	r := &Resolver{
		db:         db,
		localHosts: make(map[string]struct{}, len(cfg.LocalHosts)),
	}
	r.fallback = Identity{
		Slug: strings.ToLower(cfg.DefaultTenantSlug),
		Name: cfg.DefaultTenantName,
	}
	if id, err := uuid.Parse(cfg.DefaultTenantID); err == nil {
		r.fallback.ID = id
	}
	for _, h := range cfg.LocalHosts {
		r.localHosts[strings.ToLower(h)] = struct{}{}
	}
	return r
}

// Resolve derives the tenant identity from the Host and the slug header.
// It never touches the database.
func (r *Resolver) Resolve(host, slugHeader string) Identity {
	if slug := strings.ToLower(strings.TrimSpace(slugHeader)); slug != "" {
		return Identity{Slug: slug}
	}

	hostname := stripPort(strings.ToLower(strings.TrimSpace(host)))
	if _, ok := r.localHosts[hostname]; ok || hostname == "" {
		return r.fallback
	}
	return Identity{Slug: hostname, Domain: hostname}
}

func stripPort(host string) string {
	if h, _, err := net.SplitHostPort(host); err == nil {
		return strings.Trim(h, "[]")
	}
	return strings.Trim(host, "[]")
}

// Lookup loads the tenant row behind an identity. Inactive tenants are
// reported as missing.
func (r *Resolver) Lookup(ctx context.Context, id Identity) (*models.Tenant, error) {
	q := r.db.WithContext(ctx).Where("is_active = ?", true)
	switch {
	case id.ID != uuid.Nil:
		q = q.Where("id = ?", id.ID)
	case id.Domain != "":
		q = q.Where("(domain = ? OR slug = ?)", id.Domain, id.Slug)
	case id.Slug != "":
		q = q.Where("slug = ?", id.Slug)
	default:
		return nil, ErrTenantNotFound
	}

	var tenant models.Tenant
	if err := q.First(&tenant).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrTenantNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &tenant, nil
}

// IdentityOf converts a loaded tenant into the identity carried by requests.
func IdentityOf(t *models.Tenant) Identity {
	id := Identity{ID: t.ID, Slug: t.Slug, Name: t.Name}
	if t.Domain != nil {
		id.Domain = *t.Domain
	}
	return id
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// Middleware resolves the tenant of every request, stores it in the context
// and mirrors it into the X-Tenant-* request headers for downstream handlers.
func (r *Resolver) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		id := r.Resolve(req.Host, req.Header.Get(HeaderSlug))

		req.Header.Set(HeaderSlug, id.Slug)
		if id.ID != uuid.Nil {
			req.Header.Set(HeaderID, id.ID.String())
		} else {
			req.Header.Del(HeaderID)
		}
		setOrDel(req.Header, HeaderName, id.Name)
		setOrDel(req.Header, HeaderDomain, id.Domain)

		next.ServeHTTP(w, req.WithContext(WithIdentity(req.Context(), id)))
	})
}

func setOrDel(h http.Header, key, value string) {
	if value == "" {
		h.Del(key)
		return
	}
	h.Set(key, value)
}

// Current returns the tenant row for the request, loading it on demand.
func (r *Resolver) Current(req *http.Request) (*models.Tenant, error) {
	id, ok := FromContext(req.Context())
	if !ok {
		id = r.Resolve(req.Host, req.Header.Get(HeaderSlug))
	}
	return r.Lookup(req.Context(), id)
}
