// Package kanban implements the board: columns, leads and their
// interaction log. Every operation takes the acting principal and runs its
// reads and writes under the principal's visibility scope.
package kanban

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/hierarchy"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// DefaultStatus is given to leads that sit on no column.
const DefaultStatus = "new"

var (
	ErrLeadNotFound         = apperr.NotFound("lead")
	ErrColumnNotFound       = apperr.NotFound("column")
	ErrAttendanceNotFound   = apperr.NotFound("attendance")
	ErrColumnDeleted        = apperr.Conflict("column has been deleted")
	ErrLeadUnavailable      = apperr.Conflict("lead is no longer available")
	ErrAttendantUnreachable = apperr.Forbidden("attendant is outside your hierarchy")
	ErrAdminOnly            = apperr.Forbidden("admin role required")
	ErrSystemOnly           = apperr.Forbidden("not available to attendants")
)

type Service struct {
	db        *gorm.DB
	graph     *hierarchy.Graph
	scopes    *visibility.Resolver
	publisher events.Publisher
	logger    *slog.Logger
	now       func() time.Time
}

func NewService(db *gorm.DB, graph *hierarchy.Graph, scopes *visibility.Resolver, publisher events.Publisher, logger *slog.Logger) *Service {
	if publisher == nil {
		publisher = events.Noop{}
	}
	return &Service{
		db:        db,
		graph:     graph,
		scopes:    scopes,
		publisher: publisher,
		logger:    logger,
		now:       time.Now,
	}
}

func (s *Service) leadScope(ctx context.Context, p auth.Principal, mode visibility.Mode) (visibility.Scope, error) {
	scope, err := s.scopes.LeadScope(ctx, p, mode)
	if err != nil {
		return scope, apperr.Internal(err)
	}
	return scope, nil
}

func isAdmin(p auth.Principal) bool {
	sp, ok := p.(*auth.SystemPrincipal)
	return ok && sp.HasRole(models.RoleAdmin)
}

func requireSystem(p auth.Principal) (*auth.SystemPrincipal, error) {
	sp, ok := p.(*auth.SystemPrincipal)
	if !ok {
		return nil, ErrSystemOnly
	}
	return sp, nil
}

func requireAdmin(p auth.Principal) error {
	if !isAdmin(p) {
		return ErrAdminOnly
	}
	return nil
}

// findLead loads one lead under scope. Leads outside the scope are reported
// as missing.
func findLead(db *gorm.DB, scope visibility.Scope, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := scope.Apply(db.Where("leads.id = ?", id)).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &lead, nil
}

func forUpdate(tx *gorm.DB) *gorm.DB {
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

// lockColumn row-locks a column of the tenant. A soft-deleted column is
// reported as ErrColumnDeleted so callers can tell it from a wrong id.
func lockColumn(tx *gorm.DB, tenantID, id uuid.UUID) (*models.Column, error) {
	var col models.Column
	if err := forUpdate(tx.Unscoped()).
		Where("id = ? AND tenant_id = ?", id, tenantID).
		First(&col).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrColumnNotFound
		}
		return nil, apperr.Internal(err)
	}
	if col.DeletedAt.Valid {
		return nil, ErrColumnDeleted
	}
	return &col, nil
}

// firstColumn row-locks the lowest-position active column, or returns nil
// when the board has no columns.
func firstColumn(tx *gorm.DB, tenantID uuid.UUID) (*models.Column, error) {
	var col models.Column
	err := forUpdate(tx).
		Where("tenant_id = ?", tenantID).
		Order("position ASC").Order("created_at ASC").
		First(&col).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.Internal(err)
	}
	return &col, nil
}

// nextLeadPosition returns the position after the last active lead of a column.
func nextLeadPosition(tx *gorm.DB, tenantID uuid.UUID, columnID *uuid.UUID) (int, error) {
	q := tx.Model(&models.Lead{}).Where("tenant_id = ?", tenantID)
	if columnID == nil {
		q = q.Where("column_id IS NULL")
	} else {
		q = q.Where("column_id = ?", *columnID)
	}

	var max int
	if err := q.Select("COALESCE(MAX(position), -1)").Scan(&max).Error; err != nil {
		return 0, apperr.Internal(err)
	}
	return max + 1, nil
}

func (s *Service) publish(ctx context.Context, eventType string, p auth.Principal, lead *models.Lead, data map[string]any) {
	e := events.Event{
		ID:         uuid.New(),
		Type:       eventType,
		TenantID:   lead.TenantID,
		LeadID:     lead.ID,
		OccurredAt: s.now().UTC(),
		Data:       data,
	}
	if p != nil {
		e.ActorID = p.ID()
		e.ActorType = p.Type()
	}
	if err := s.publisher.Publish(ctx, e); err != nil {
		s.logger.Warn("failed to publish lead event", "type", eventType, "lead_id", lead.ID, "error", err)
	}
}

// reload fetches a lead by id with its attendant, ignoring scope.
func (s *Service) reload(ctx context.Context, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := s.db.WithContext(ctx).Unscoped().Preload("Attendant").First(&lead, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, apperr.Internal(err)
	}
	return &lead, nil
}

// passthrough keeps apperr values and wraps everything else as internal.
func passthrough(err error) error {
	if err == nil {
		return nil
	}
	var ae *apperr.Error
	if errors.As(err, &ae) {
		return err
	}
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return apperr.Wrap(apperr.KindConflict, "duplicate record", err)
	}
	return apperr.Internal(err)
}
