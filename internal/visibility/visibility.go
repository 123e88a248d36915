// Package visibility turns a principal into the set of leads and attendants
// it may see. Every lead read or write goes through a Scope built here.
package visibility

import (
	"context"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/hierarchy"
	"gorm.io/gorm"
)

// Mode selects the attendant rule: listings show only owned leads, while a
// single-lead read or claim also admits unassigned leads.
type Mode int

const (
	ModeList Mode = iota
	ModeSingle
)

type Kind int

const (
	KindDeny Kind = iota
	KindAll
	KindTenantHierarchy
	KindAttendantSet
	KindSelf
	KindSelfOrUnassigned
)

func (k Kind) String() string {
	switch k {
	case KindAll:
		return "all"
	case KindTenantHierarchy:
		return "tenant-hierarchy"
	case KindAttendantSet:
		return "attendant-set"
	case KindSelf:
		return "self"
	case KindSelfOrUnassigned:
		return "self-or-unassigned"
	default:
		return "deny"
	}
}

// Scope is a lead predicate. Apply renders it as SQL and Allows evaluates it
// in memory; both must agree for every lead.
type Scope struct {
	Kind       Kind
	TenantID   uuid.UUID
	SelfID     uuid.UUID
	Attendants []uuid.UUID // attendant-set, tenant-hierarchy
	Creators   []uuid.UUID // tenant-hierarchy: the admin and its managers
}

func Deny() Scope { return Scope{Kind: KindDeny} }

// Apply restricts a query on the leads table.
func (s Scope) Apply(db *gorm.DB) *gorm.DB {
	switch s.Kind {
	case KindAll:
		return db
	case KindTenantHierarchy:
		return db.Where("leads.tenant_id = ?", s.TenantID).
			Where("(leads.attendant_id IN ? OR leads.attendant_id IS NULL OR leads.created_by_id IN ?)",
				nonEmpty(s.Attendants), nonEmpty(s.Creators))
	case KindAttendantSet:
		if len(s.Attendants) == 0 {
			return db.Where("1 = 0")
		}
		return db.Where("leads.tenant_id = ? AND leads.attendant_id IN ?", s.TenantID, s.Attendants)
	case KindSelf:
		return db.Where("leads.tenant_id = ? AND leads.attendant_id = ?", s.TenantID, s.SelfID)
	case KindSelfOrUnassigned:
		return db.Where("leads.tenant_id = ? AND (leads.attendant_id = ? OR leads.attendant_id IS NULL)", s.TenantID, s.SelfID)
	default:
		return db.Where("1 = 0")
	}
}

// nonEmpty keeps "IN ?" valid SQL for an empty set. uuid.Nil never matches a row.
func nonEmpty(ids []uuid.UUID) []uuid.UUID {
	if len(ids) == 0 {
		return []uuid.UUID{uuid.Nil}
	}
	return ids
}

func (s Scope) Allows(l *models.Lead) bool {
	switch s.Kind {
	case KindAll:
		return true
	case KindTenantHierarchy:
		if l.TenantID != s.TenantID {
			return false
		}
		if l.AttendantID == nil {
			return true
		}
		if hierarchy.Contains(s.Attendants, *l.AttendantID) {
			return true
		}
		return l.CreatedByID != nil && hierarchy.Contains(s.Creators, *l.CreatedByID)
	case KindAttendantSet:
		return l.TenantID == s.TenantID && l.AttendantID != nil && hierarchy.Contains(s.Attendants, *l.AttendantID)
	case KindSelf:
		return l.TenantID == s.TenantID && l.AttendantID != nil && *l.AttendantID == s.SelfID
	case KindSelfOrUnassigned:
		return l.TenantID == s.TenantID && (l.AttendantID == nil || *l.AttendantID == s.SelfID)
	default:
		return false
	}
}

type Resolver struct {
	graph *hierarchy.Graph
}

func NewResolver(graph *hierarchy.Graph) *Resolver {
	return &Resolver{graph: graph}
}

// LeadScope resolves the canonical lead predicate for p. Unknown principals
// and principals without a tenant get a deny scope, never an open one.
func (r *Resolver) LeadScope(ctx context.Context, p auth.Principal, mode Mode) (Scope, error) {
	switch p := p.(type) {
	case *auth.SystemPrincipal:
		if p.IsSuperAdmin || p.Role == models.RoleSuperAdmin {
			return Scope{Kind: KindAll}, nil
		}
		if p.TenantID == uuid.Nil {
			return Deny(), nil
		}
		switch p.Role {
		case models.RoleAdmin:
			view, err := r.graph.AdminView(ctx, p.UserID, p.TenantID)
			if err != nil {
				return Deny(), err
			}
			return Scope{
				Kind:       KindTenantHierarchy,
				TenantID:   p.TenantID,
				SelfID:     p.UserID,
				Attendants: view.Attendants,
				Creators:   append([]uuid.UUID{p.UserID}, view.Managers...),
			}, nil
		case models.RoleManager:
			ids, err := r.graph.AttendantsOfManager(ctx, p.UserID, p.TenantID)
			if err != nil {
				return Deny(), err
			}
			return Scope{Kind: KindAttendantSet, TenantID: p.TenantID, SelfID: p.UserID, Attendants: ids}, nil
		}
	case *auth.AttendantPrincipal:
		if p.TenantID == uuid.Nil {
			return Deny(), nil
		}
		kind := KindSelf
		if mode == ModeSingle {
			kind = KindSelfOrUnassigned
		}
		return Scope{Kind: kind, TenantID: p.TenantID, SelfID: p.AttendantID}, nil
	}
	return Deny(), nil
}
