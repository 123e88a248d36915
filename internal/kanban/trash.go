package kanban

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
)

// DeleteLead moves a lead to the trash. Deleting a lead that is already in
// the trash changes nothing, including its deletion stamps.
func (s *Service) DeleteLead(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if _, err := requireSystem(p); err != nil {
		return err
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return err
	}

	lead, err := findLead(s.db.WithContext(ctx).Unscoped(), scope, id)
	if err != nil {
		return err
	}
	if lead.IsDeleted() {
		return nil
	}

	// The soft-delete scope limits the update to rows still active, so a
	// concurrent delete cannot restamp the lead.
	res := s.db.WithContext(ctx).Model(&models.Lead{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"deleted_at": s.now(), "deleted_by": p.ID()})
	if res.Error != nil {
		return apperr.Internal(res.Error)
	}
	if res.RowsAffected == 1 {
		s.publish(ctx, events.LeadDeleted, p, lead, nil)
	}
	return nil
}

// RestoreLead brings a lead back from the trash. If its column has since
// been deleted it is re-homed to the first column of the board, or left
// without a column when the board is empty. Restoring an active lead is a
// no-op.
func (s *Service) RestoreLead(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Lead, error) {
	if _, err := requireSystem(p); err != nil {
		return nil, err
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return nil, err
	}

	lead, err := findLead(s.db.WithContext(ctx).Unscoped(), scope, id)
	if err != nil {
		return nil, err
	}
	if !lead.IsDeleted() {
		return s.reload(ctx, id)
	}

	restored := false
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col *models.Column
		var err error
		if lead.ColumnID != nil {
			col, err = lockColumn(tx, lead.TenantID, *lead.ColumnID)
			if errors.Is(err, ErrColumnDeleted) || errors.Is(err, ErrColumnNotFound) {
				col, err = firstColumn(tx, lead.TenantID)
			}
		} else {
			col, err = firstColumn(tx, lead.TenantID)
		}
		if err != nil {
			return err
		}

		updates := map[string]interface{}{
			"deleted_at": nil,
			"deleted_by": nil,
			"column_id":  nil,
			"status":     DefaultStatus,
		}
		var columnID *uuid.UUID
		if col != nil {
			columnID = &col.ID
			updates["column_id"] = col.ID
			updates["status"] = col.Title
		}
		if columnID == nil || lead.ColumnID == nil || *columnID != *lead.ColumnID {
			pos, err := nextLeadPosition(tx, lead.TenantID, columnID)
			if err != nil {
				return err
			}
			updates["position"] = pos
		}

		res := tx.Unscoped().Model(&models.Lead{}).
			Where("id = ? AND deleted_at IS NOT NULL", id).
			Updates(updates)
		if res.Error != nil {
			return res.Error
		}
		restored = res.RowsAffected == 1
		return nil
	})
	if err != nil {
		return nil, passthrough(err)
	}

	if restored {
		s.publish(ctx, events.LeadRestored, p, lead, nil)
	}
	return s.reload(ctx, id)
}

// PurgeLead removes a lead and its interaction log permanently.
func (s *Service) PurgeLead(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	if err := requireAdmin(p); err != nil {
		return err
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return err
	}

	var lead *models.Lead
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lead, err = findLead(forUpdate(tx.Unscoped()), scope, id)
		if err != nil {
			return err
		}
		if err := tx.Unscoped().Where("lead_id = ?", id).Delete(&models.Attendance{}).Error; err != nil {
			return err
		}
		return tx.Unscoped().Delete(&models.Lead{}, "id = ?", id).Error
	})
	if err != nil {
		return passthrough(err)
	}

	s.logger.Info("lead purged", "lead_id", id, "actor", p.ID())
	s.publish(ctx, events.LeadPurged, p, lead, nil)
	return nil
}

// ListDeleted returns the trash visible to the principal, most recent first.
func (s *Service) ListDeleted(ctx context.Context, p auth.Principal, offset, limit int) ([]models.Lead, int64, error) {
	scope, err := s.leadScope(ctx, p, visibility.ModeList)
	if err != nil {
		return nil, 0, err
	}

	q := scope.Apply(s.db.WithContext(ctx).Unscoped().Model(&models.Lead{})).
		Where("leads.deleted_at IS NOT NULL")

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal(err)
	}

	var leads []models.Lead
	q = q.Order("leads.deleted_at DESC")
	if limit > 0 {
		q = q.Offset(offset).Limit(limit)
	}
	if err := q.Find(&leads).Error; err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return leads, total, nil
}
