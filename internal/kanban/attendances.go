package kanban

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type AttendanceInput struct {
	Type        string
	Subject     string
	Description string
	Status      models.AttendanceStatus
	Priority    string
	ScheduledAt *time.Time
	CompletedAt *time.Time
	Outcome     string
	NextAction  string
	Tags        []string
}

type UpdateAttendanceInput struct {
	Subject     *string
	Description *string
	Status      *models.AttendanceStatus
	Priority    *string
	ScheduledAt *time.Time
	CompletedAt *time.Time
	Outcome     *string
	NextAction  *string
	Tags        []string
}

func encodeTags(tags []string) (datatypes.JSON, error) {
	if tags == nil {
		tags = []string{}
	}
	b, err := json.Marshal(tags)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

// visibleLead resolves the lead behind an attendance operation. Attendants
// touching an unassigned lead claim it, as they do when opening it.
func (s *Service) visibleLead(ctx context.Context, p auth.Principal, leadID uuid.UUID) (*models.Lead, error) {
	return s.GetLead(ctx, p, leadID)
}

func (s *Service) ListAttendances(ctx context.Context, p auth.Principal, leadID uuid.UUID) ([]models.Attendance, error) {
	if _, err := s.visibleLead(ctx, p, leadID); err != nil {
		return nil, err
	}

	var items []models.Attendance
	if err := s.db.WithContext(ctx).
		Where("lead_id = ?", leadID).
		Order("created_at DESC").
		Find(&items).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return items, nil
}

func (s *Service) CreateAttendance(ctx context.Context, p auth.Principal, leadID uuid.UUID, in AttendanceInput) (*models.Attendance, error) {
	kind := strings.TrimSpace(in.Type)
	if kind == "" {
		return nil, apperr.Validation("Validation failed", map[string]string{"type": "Type is required"})
	}

	lead, err := s.visibleLead(ctx, p, leadID)
	if err != nil {
		return nil, err
	}

	tags, err := encodeTags(in.Tags)
	if err != nil {
		return nil, apperr.Validation("Validation failed", map[string]string{"tags": "Invalid tags"})
	}

	status := in.Status
	if status == "" {
		if in.ScheduledAt != nil && in.ScheduledAt.After(s.now()) {
			status = models.AttendanceScheduled
		} else {
			status = models.AttendanceCompleted
		}
	}
	completedAt := in.CompletedAt
	if status == models.AttendanceCompleted && completedAt == nil {
		now := s.now()
		completedAt = &now
	}

	item := models.Attendance{
		LeadID:      lead.ID,
		Type:        kind,
		Subject:     in.Subject,
		Description: in.Description,
		Status:      status,
		Priority:    in.Priority,
		ScheduledAt: in.ScheduledAt,
		CompletedAt: completedAt,
		Outcome:     in.Outcome,
		NextAction:  in.NextAction,
		Tags:        tags,
	}
	id := p.ID()
	if p.Type() == models.PrincipalAttendant {
		item.AttendantID = &id
	} else {
		item.UserID = &id
	}

	if err := s.db.WithContext(ctx).Create(&item).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &item, nil
}

// attendanceFor loads an attendance whose lead is visible to p, claiming
// the lead for an attendant when it is unassigned.
func (s *Service) attendanceFor(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Attendance, error) {
	var item models.Attendance
	if err := s.db.WithContext(ctx).First(&item, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, apperr.Internal(err)
	}

	if _, err := s.visibleLead(ctx, p, item.LeadID); err != nil {
		if errors.Is(err, ErrLeadNotFound) {
			return nil, ErrAttendanceNotFound
		}
		return nil, err
	}
	return &item, nil
}

func (s *Service) UpdateAttendance(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateAttendanceInput) (*models.Attendance, error) {
	item, err := s.attendanceFor(ctx, p, id)
	if err != nil {
		return nil, err
	}

	updates := map[string]interface{}{}
	str := func(key string, v *string) {
		if v != nil {
			updates[key] = *v
		}
	}
	str("subject", in.Subject)
	str("description", in.Description)
	str("priority", in.Priority)
	str("outcome", in.Outcome)
	str("next_action", in.NextAction)
	if in.ScheduledAt != nil {
		updates["scheduled_at"] = *in.ScheduledAt
	}
	if in.CompletedAt != nil {
		updates["completed_at"] = *in.CompletedAt
	}
	if in.Status != nil {
		updates["status"] = *in.Status
		if *in.Status == models.AttendanceCompleted && in.CompletedAt == nil && item.CompletedAt == nil {
			updates["completed_at"] = s.now()
		}
	}
	if in.Tags != nil {
		tags, err := encodeTags(in.Tags)
		if err != nil {
			return nil, apperr.Validation("Validation failed", map[string]string{"tags": "Invalid tags"})
		}
		updates["tags"] = tags
	}

	if len(updates) > 0 {
		if err := s.db.WithContext(ctx).Model(item).Updates(updates).Error; err != nil {
			return nil, apperr.Internal(err)
		}
	}

	var fresh models.Attendance
	if err := s.db.WithContext(ctx).First(&fresh, "id = ?", id).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return &fresh, nil
}

// DeleteAttendance removes the record permanently.
func (s *Service) DeleteAttendance(ctx context.Context, p auth.Principal, id uuid.UUID) error {
	item, err := s.attendanceFor(ctx, p, id)
	if err != nil {
		return err
	}
	if err := s.db.WithContext(ctx).Unscoped().Delete(item).Error; err != nil {
		return apperr.Internal(err)
	}
	return nil
}
