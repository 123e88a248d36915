package kanban

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"gorm.io/gorm"
)

// claim is the compare-and-set on lead ownership: it assigns the lead to the
// attendant only while it has no owner. It reports whether this call won.
func claim(tx *gorm.DB, ap *auth.AttendantPrincipal, id uuid.UUID) (bool, error) {
	res := tx.Model(&models.Lead{}).
		Where("id = ? AND tenant_id = ? AND attendant_id IS NULL", id, ap.TenantID).
		Update("attendant_id", ap.AttendantID)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

// ownedLead loads a lead of the attendant's tenant and requires that the
// attendant owns it. A lead owned by someone else is a conflict, not a miss.
func ownedLead(db *gorm.DB, ap *auth.AttendantPrincipal, id uuid.UUID) (*models.Lead, error) {
	var lead models.Lead
	if err := db.Where("id = ? AND tenant_id = ?", id, ap.TenantID).First(&lead).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrLeadNotFound
		}
		return nil, apperr.Internal(err)
	}
	if lead.AttendantID == nil || *lead.AttendantID != ap.AttendantID {
		return nil, ErrLeadUnavailable
	}
	return &lead, nil
}

// ClaimLead gives an unassigned lead to the attendant. Exactly one of any
// number of concurrent claims wins; the others get ErrLeadUnavailable.
// Claiming a lead the attendant already owns succeeds without change.
func (s *Service) ClaimLead(ctx context.Context, ap *auth.AttendantPrincipal, id uuid.UUID) (*models.Lead, error) {
	db := s.db.WithContext(ctx)

	won, err := claim(db, ap, id)
	if err != nil {
		return nil, apperr.Internal(err)
	}

	lead, err := ownedLead(db.Preload("Attendant"), ap, id)
	if err != nil {
		return nil, err
	}

	if won {
		s.logger.Info("lead claimed", "lead_id", id, "attendant_id", ap.AttendantID)
		s.publish(ctx, events.LeadClaimed, ap, lead, nil)
	}
	return lead, nil
}
