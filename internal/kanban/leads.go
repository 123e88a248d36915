package kanban

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
)

type LeadFilter struct {
	ColumnID    *uuid.UUID
	AttendantID *uuid.UUID
	Unassigned  bool
	Status      string
	Search      string
	Offset      int
	Limit       int
}

type CreateLeadInput struct {
	Name        string
	Email       string
	Phone       string
	Company     string
	Source      string
	Notes       string
	Value       float64
	ColumnID    *uuid.UUID
	AttendantID *uuid.UUID
}

// UpdateLeadInput changes descriptive fields only. Ownership and placement
// go through AssignLead and MoveLead.
type UpdateLeadInput struct {
	Name    *string
	Email   *string
	Phone   *string
	Company *string
	Source  *string
	Notes   *string
	Value   *float64
}

func (in UpdateLeadInput) fields() map[string]interface{} {
	f := map[string]interface{}{}
	set := func(key string, v *string) {
		if v != nil {
			f[key] = strings.TrimSpace(*v)
		}
	}
	set("name", in.Name)
	set("email", in.Email)
	set("phone", in.Phone)
	set("company", in.Company)
	set("source", in.Source)
	set("notes", in.Notes)
	if in.Value != nil {
		f["value"] = *in.Value
	}
	return f
}

type MoveLeadInput struct {
	ColumnID uuid.UUID
	Position *int
}

type BoardColumn struct {
	models.Column
	Leads []models.Lead `json:"leads"`
}

type Board struct {
	Columns []BoardColumn `json:"columns"`
	Orphans []models.Lead `json:"orphans"`
}

func applyFilter(q *gorm.DB, f LeadFilter) *gorm.DB {
	if f.ColumnID != nil {
		q = q.Where("leads.column_id = ?", *f.ColumnID)
	}
	if f.Unassigned {
		q = q.Where("leads.attendant_id IS NULL")
	} else if f.AttendantID != nil {
		q = q.Where("leads.attendant_id = ?", *f.AttendantID)
	}
	if f.Status != "" {
		q = q.Where("leads.status = ?", f.Status)
	}
	if search := strings.ToLower(strings.TrimSpace(f.Search)); search != "" {
		like := "%" + search + "%"
		q = q.Where("(LOWER(leads.name) LIKE ? OR LOWER(leads.email) LIKE ? OR leads.phone LIKE ? OR LOWER(leads.company) LIKE ?)",
			like, like, like, like)
	}
	return q
}

func (s *Service) ListLeads(ctx context.Context, p auth.Principal, f LeadFilter) ([]models.Lead, int64, error) {
	scope, err := s.leadScope(ctx, p, visibility.ModeList)
	if err != nil {
		return nil, 0, err
	}

	q := applyFilter(scope.Apply(s.db.WithContext(ctx).Model(&models.Lead{})), f)

	var total int64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperr.Internal(err)
	}

	var leads []models.Lead
	q = q.Preload("Attendant").Order("leads.created_at DESC")
	if f.Limit > 0 {
		q = q.Offset(f.Offset).Limit(f.Limit)
	}
	if err := q.Find(&leads).Error; err != nil {
		return nil, 0, apperr.Internal(err)
	}
	return leads, total, nil
}

// Board groups the visible leads by column in position order.
func (s *Service) Board(ctx context.Context, p auth.Principal) (*Board, error) {
	scope, err := s.leadScope(ctx, p, visibility.ModeList)
	if err != nil {
		return nil, err
	}
	columns, err := s.ListColumns(ctx, p)
	if err != nil {
		return nil, err
	}

	var leads []models.Lead
	if err := scope.Apply(s.db.WithContext(ctx).Model(&models.Lead{})).
		Where("leads.tenant_id = ?", p.Tenant()).
		Preload("Attendant").
		Order("leads.position ASC").Order("leads.created_at ASC").
		Find(&leads).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	board := &Board{Columns: make([]BoardColumn, len(columns)), Orphans: []models.Lead{}}
	index := make(map[uuid.UUID]int, len(columns))
	for i, c := range columns {
		board.Columns[i] = BoardColumn{Column: c, Leads: []models.Lead{}}
		index[c.ID] = i
	}
	for _, l := range leads {
		if l.ColumnID != nil {
			if i, ok := index[*l.ColumnID]; ok {
				board.Columns[i].Leads = append(board.Columns[i].Leads, l)
				continue
			}
		}
		board.Orphans = append(board.Orphans, l)
	}
	return board, nil
}

// GetLead returns a visible lead. An attendant opening an unassigned lead
// claims it.
func (s *Service) GetLead(ctx context.Context, p auth.Principal, id uuid.UUID) (*models.Lead, error) {
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return nil, err
	}

	lead, err := findLead(s.db.WithContext(ctx).Preload("Attendant"), scope, id)
	if err != nil {
		return nil, err
	}

	if ap, ok := p.(*auth.AttendantPrincipal); ok && lead.AttendantID == nil {
		return s.ClaimLead(ctx, ap, id)
	}
	return lead, nil
}

// CreateLead places a lead on the requested column, or on the first column
// of the board when none is given. The target column is row-locked so a
// concurrent column delete cannot strand the new lead.
func (s *Service) CreateLead(ctx context.Context, p auth.Principal, in CreateLeadInput) (*models.Lead, error) {
	name := strings.TrimSpace(in.Name)
	if name == "" {
		return nil, apperr.Validation("Validation failed", map[string]string{"name": "Name is required"})
	}
	tenantID := p.Tenant()
	if tenantID == uuid.Nil {
		return nil, apperr.Validation("Validation failed", map[string]string{"tenant": "A tenant is required to create leads"})
	}

	owner := in.AttendantID
	switch pp := p.(type) {
	case *auth.AttendantPrincipal:
		self := pp.AttendantID
		owner = &self
	case *auth.SystemPrincipal:
		if owner != nil {
			if err := s.checkAssignable(ctx, p, tenantID, *owner); err != nil {
				return nil, err
			}
		}
	}

	creator := p.ID()
	lead := models.Lead{
		TenantID:      tenantID,
		Name:          name,
		Email:         strings.ToLower(strings.TrimSpace(in.Email)),
		Phone:         strings.TrimSpace(in.Phone),
		Company:       strings.TrimSpace(in.Company),
		Source:        in.Source,
		Notes:         in.Notes,
		Value:         in.Value,
		AttendantID:   owner,
		CreatedByID:   &creator,
		CreatedByType: p.Type(),
		Status:        DefaultStatus,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var col *models.Column
		var err error
		if in.ColumnID != nil {
			col, err = lockColumn(tx, tenantID, *in.ColumnID)
		} else {
			col, err = firstColumn(tx, tenantID)
		}
		if err != nil {
			return err
		}
		if col != nil {
			lead.ColumnID = &col.ID
			lead.Status = col.Title
		}

		lead.Position, err = nextLeadPosition(tx, tenantID, lead.ColumnID)
		if err != nil {
			return err
		}
		return tx.Create(&lead).Error
	})
	if err != nil {
		return nil, passthrough(err)
	}

	s.publish(ctx, events.LeadCreated, p, &lead, map[string]any{"column_id": lead.ColumnID, "attendant_id": lead.AttendantID})
	return &lead, nil
}

// checkAssignable verifies that attendantID exists in tenantID and that p
// may hand leads to it.
func (s *Service) checkAssignable(ctx context.Context, p auth.Principal, tenantID, attendantID uuid.UUID) error {
	var attendant models.Attendant
	if err := s.db.WithContext(ctx).Select("id", "tenant_id").
		First(&attendant, "id = ? AND tenant_id = ?", attendantID, tenantID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperr.Validation("Validation failed", map[string]string{"attendant_id": "Attendant not found"})
		}
		return apperr.Internal(err)
	}

	ok, err := s.graph.IsReachable(ctx, p, attendantID)
	if err != nil {
		return apperr.Internal(err)
	}
	if !ok {
		return ErrAttendantUnreachable
	}
	return nil
}

// writableLead loads and row-locks a lead for mutation. For an attendant an
// unassigned lead is claimed first; the lead must then belong to the
// attendant. For system principals the lead must match scope.
func writableLead(tx *gorm.DB, p auth.Principal, scope visibility.Scope, id uuid.UUID) (*models.Lead, bool, error) {
	if ap, ok := p.(*auth.AttendantPrincipal); ok {
		won, err := claim(tx, ap, id)
		if err != nil {
			return nil, false, err
		}
		lead, err := ownedLead(forUpdate(tx), ap, id)
		if err != nil {
			return nil, false, err
		}
		return lead, won, nil
	}

	lead, err := findLead(forUpdate(tx), scope, id)
	return lead, false, err
}

// leadTenant looks up the tenant of a lead p can write, without locking it.
// Attendants may reach any lead of their tenant here; writableLead decides
// whether they get it.
func leadTenant(tx *gorm.DB, p auth.Principal, scope visibility.Scope, id uuid.UUID) (uuid.UUID, error) {
	if ap, ok := p.(*auth.AttendantPrincipal); ok {
		var n int64
		if err := tx.Model(&models.Lead{}).Where("id = ? AND tenant_id = ?", id, ap.TenantID).Count(&n).Error; err != nil {
			return uuid.Nil, apperr.Internal(err)
		}
		if n == 0 {
			return uuid.Nil, ErrLeadNotFound
		}
		return ap.TenantID, nil
	}
	lead, err := findLead(tx, scope, id)
	if err != nil {
		return uuid.Nil, err
	}
	return lead.TenantID, nil
}

// guardedUpdate applies updates to a lead, re-asserting ownership for
// attendants, and fails unless exactly one row changed.
func guardedUpdate(tx *gorm.DB, p auth.Principal, lead *models.Lead, updates map[string]interface{}) error {
	q := tx.Model(&models.Lead{}).Where("id = ?", lead.ID)
	if ap, ok := p.(*auth.AttendantPrincipal); ok {
		q = q.Where("attendant_id = ?", ap.AttendantID)
	}
	res := q.Updates(updates)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return ErrLeadUnavailable
	}
	return nil
}

// UpdateLead edits a lead's details. For attendants the claim of an
// unassigned lead and the edit commit together or not at all.
func (s *Service) UpdateLead(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateLeadInput) (*models.Lead, error) {
	updates := in.fields()
	if name, ok := updates["name"]; ok && name == "" {
		return nil, apperr.Validation("Validation failed", map[string]string{"name": "Name cannot be empty"})
	}
	if email, ok := updates["email"].(string); ok {
		updates["email"] = strings.ToLower(email)
	}
	updates["updated_at"] = s.now()

	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return nil, err
	}

	var lead *models.Lead
	var claimed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		lead, claimed, err = writableLead(tx, p, scope, id)
		if err != nil {
			return err
		}
		return guardedUpdate(tx, p, lead, updates)
	})
	if err != nil {
		return nil, passthrough(err)
	}

	if claimed {
		s.publish(ctx, events.LeadClaimed, p, lead, nil)
	}
	return s.reload(ctx, id)
}

// AssignLead hands a lead to an attendant, or unassigns it when attendantID
// is nil. Only system principals assign, and only within their hierarchy.
func (s *Service) AssignLead(ctx context.Context, p auth.Principal, id uuid.UUID, attendantID *uuid.UUID) (*models.Lead, error) {
	if _, err := requireSystem(p); err != nil {
		return nil, err
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return nil, err
	}
	lead, err := findLead(s.db.WithContext(ctx), scope, id)
	if err != nil {
		return nil, err
	}
	if attendantID != nil {
		if err := s.checkAssignable(ctx, p, lead.TenantID, *attendantID); err != nil {
			return nil, err
		}
	}

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		locked, err := findLead(forUpdate(tx), scope, id)
		if err != nil {
			return err
		}
		return guardedUpdate(tx, p, locked, map[string]interface{}{"attendant_id": attendantID})
	})
	if err != nil {
		return nil, passthrough(err)
	}

	s.publish(ctx, events.LeadAssigned, p, lead, map[string]any{"from": lead.AttendantID, "to": attendantID})
	return s.reload(ctx, id)
}

// MoveLead places a lead on a column at a position; its status becomes the
// column title.
func (s *Service) MoveLead(ctx context.Context, p auth.Principal, id uuid.UUID, in MoveLeadInput) (*models.Lead, error) {
	if in.Position != nil && *in.Position < 0 {
		return nil, apperr.Validation("Validation failed", map[string]string{"position": "Position must be zero or greater"})
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeSingle)
	if err != nil {
		return nil, err
	}

	var lead *models.Lead
	var from *uuid.UUID
	var claimed bool
	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Column before lead, the order column deletes lock in.
		tenantID, err := leadTenant(tx, p, scope, id)
		if err != nil {
			return err
		}
		col, err := lockColumn(tx, tenantID, in.ColumnID)
		if err != nil {
			return err
		}

		lead, claimed, err = writableLead(tx, p, scope, id)
		if err != nil {
			return err
		}
		from = lead.ColumnID

		position := 0
		if in.Position != nil {
			position = *in.Position
		} else if position, err = nextLeadPosition(tx, lead.TenantID, &col.ID); err != nil {
			return err
		}

		return guardedUpdate(tx, p, lead, map[string]interface{}{
			"column_id": col.ID,
			"status":    col.Title,
			"position":  position,
		})
	})
	if err != nil {
		return nil, passthrough(err)
	}

	if claimed {
		s.publish(ctx, events.LeadClaimed, p, lead, nil)
	}
	s.publish(ctx, events.LeadMoved, p, lead, map[string]any{"from": from, "to": in.ColumnID})
	return s.reload(ctx, id)
}
