// Package hierarchy answers reachability questions over the
// admin -> manager -> attendant tree of a tenant.
package hierarchy

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

type Graph struct {
	db *gorm.DB
}

func NewGraph(db *gorm.DB) *Graph {
	return &Graph{db: db}
}

// ManagersOf returns the active managers that report to adminID.
func (g *Graph) ManagersOf(ctx context.Context, adminID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := g.db.WithContext(ctx).Model(&models.User{}).
		Where("role = ? AND admin_id = ? AND is_active = ?", models.RoleManager, adminID, true).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("loading managers of %s: %w", adminID, err)
	}
	return ids, nil
}

// AttendantsOfAdmin returns attendants attached to the admin directly or
// through one of the admin's managers, restricted to tenantID.
func (g *Graph) AttendantsOfAdmin(ctx context.Context, adminID, tenantID uuid.UUID) ([]uuid.UUID, error) {
	managers, err := g.ManagersOf(ctx, adminID)
	if err != nil {
		return nil, err
	}
	return g.attendantsOfAdmin(ctx, adminID, tenantID, managers)
}

func (g *Graph) attendantsOfAdmin(ctx context.Context, adminID, tenantID uuid.UUID, managers []uuid.UUID) ([]uuid.UUID, error) {
	q := g.db.WithContext(ctx).Model(&models.Attendant{}).Where("tenant_id = ?", tenantID)
	if len(managers) > 0 {
		q = q.Where("(admin_id = ? OR manager_id IN ?)", adminID, managers)
	} else {
		q = q.Where("admin_id = ?", adminID)
	}

	var ids []uuid.UUID
	if err := q.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("loading attendants of admin %s: %w", adminID, err)
	}
	return ids, nil
}

func (g *Graph) AttendantsOfManager(ctx context.Context, managerID, tenantID uuid.UUID) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	if err := g.db.WithContext(ctx).Model(&models.Attendant{}).
		Where("tenant_id = ? AND manager_id = ?", tenantID, managerID).
		Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("loading attendants of manager %s: %w", managerID, err)
	}
	return ids, nil
}

// AdminView bundles what the admin visibility rule needs in one load.
type AdminView struct {
	Managers   []uuid.UUID
	Attendants []uuid.UUID
}

func (g *Graph) AdminView(ctx context.Context, adminID, tenantID uuid.UUID) (*AdminView, error) {
	managers, err := g.ManagersOf(ctx, adminID)
	if err != nil {
		return nil, err
	}
	attendants, err := g.attendantsOfAdmin(ctx, adminID, tenantID, managers)
	if err != nil {
		return nil, err
	}
	return &AdminView{Managers: managers, Attendants: attendants}, nil
}

// IsReachable reports whether p may act on behalf of attendantID.
func (g *Graph) IsReachable(ctx context.Context, p auth.Principal, attendantID uuid.UUID) (bool, error) {
	switch p := p.(type) {
	case *auth.AttendantPrincipal:
		return p.AttendantID == attendantID, nil
	case *auth.SystemPrincipal:
		if p.IsSuperAdmin || p.Role == models.RoleSuperAdmin {
			return true, nil
		}
		var ids []uuid.UUID
		var err error
		switch p.Role {
		case models.RoleAdmin:
			ids, err = g.AttendantsOfAdmin(ctx, p.UserID, p.TenantID)
		case models.RoleManager:
			ids, err = g.AttendantsOfManager(ctx, p.UserID, p.TenantID)
		default:
			return false, nil
		}
		if err != nil {
			return false, err
		}
		return Contains(ids, attendantID), nil
	}
	return false, nil
}

func Contains(ids []uuid.UUID, id uuid.UUID) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
