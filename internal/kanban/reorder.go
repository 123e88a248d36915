package kanban

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/events"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
)

// ReorderItem places a lead at Position. A nil ColumnID keeps the lead in its
// current column and leaves its status alone.
type ReorderItem struct {
	LeadID   uuid.UUID
	ColumnID *uuid.UUID
	Position int
}

func validateReorder(items []ReorderItem) error {
	if len(items) == 0 {
		return apperr.Validation("Validation failed", map[string]string{"items": "At least one item is required"})
	}
	seen := make(map[uuid.UUID]bool, len(items))
	for i, it := range items {
		key := fmt.Sprintf("items[%d]", i)
		switch {
		case it.LeadID == uuid.Nil:
			return apperr.Validation("Validation failed", map[string]string{key: "lead_id is required"})
		case it.ColumnID != nil && *it.ColumnID == uuid.Nil:
			return apperr.Validation("Validation failed", map[string]string{key: "column_id is invalid"})
		case it.Position < 0:
			return apperr.Validation("Validation failed", map[string]string{key: "position must be zero or greater"})
		case seen[it.LeadID]:
			return apperr.Validation("Validation failed", map[string]string{key: "duplicate lead_id"})
		}
		seen[it.LeadID] = true
	}
	return nil
}

// lockTargetColumns row-locks every column the batch moves leads into, in id
// order, before any lead row is touched. Column deletes lock the column first
// as well, so the two never wait on each other in opposite orders.
func lockTargetColumns(tx *gorm.DB, items []ReorderItem) (map[uuid.UUID]*models.Column, error) {
	var ids []uuid.UUID
	seen := map[uuid.UUID]bool{}
	for _, it := range items {
		if it.ColumnID != nil && !seen[*it.ColumnID] {
			seen[*it.ColumnID] = true
			ids = append(ids, *it.ColumnID)
		}
	}
	sort.Slice(ids, func(i, j int) bool { return bytes.Compare(ids[i][:], ids[j][:]) < 0 })

	columns := make(map[uuid.UUID]*models.Column, len(ids))
	for _, id := range ids {
		var col models.Column
		if err := forUpdate(tx.Unscoped()).Where("id = ?", id).First(&col).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, ErrColumnNotFound
			}
			return nil, apperr.Internal(err)
		}
		if col.DeletedAt.Valid {
			return nil, ErrColumnDeleted
		}
		columns[id] = &col
	}
	return columns, nil
}

// Reorder applies a batch of placements atomically. If any lead is missing,
// out of scope, or targets a deleted column, no placement is applied.
func (s *Service) Reorder(ctx context.Context, p auth.Principal, items []ReorderItem) error {
	if err := validateReorder(items); err != nil {
		return err
	}
	scope, err := s.leadScope(ctx, p, visibility.ModeList)
	if err != nil {
		return err
	}

	type move struct {
		lead *models.Lead
		from *uuid.UUID
		to   uuid.UUID
	}
	var moved []move

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		columns, err := lockTargetColumns(tx, items)
		if err != nil {
			return err
		}

		for _, it := range items {
			lead, err := findLead(forUpdate(tx), scope, it.LeadID)
			if err != nil {
				return err
			}

			updates := map[string]interface{}{"position": it.Position}
			var col *models.Column
			if it.ColumnID != nil {
				col = columns[*it.ColumnID]
				if col.TenantID != lead.TenantID {
					return ErrColumnNotFound
				}
				updates["column_id"] = col.ID
				updates["status"] = col.Title
			}

			res := scope.Apply(tx.Model(&models.Lead{}).Where("leads.id = ?", lead.ID)).Updates(updates)
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected != 1 {
				return ErrLeadNotFound
			}

			if col != nil && (lead.ColumnID == nil || *lead.ColumnID != col.ID) {
				moved = append(moved, move{lead: lead, from: lead.ColumnID, to: col.ID})
			}
		}
		return nil
	})
	if err != nil {
		return passthrough(err)
	}

	for _, m := range moved {
		s.publish(ctx, events.LeadMoved, p, m.lead, map[string]any{"from": m.from, "to": m.to})
	}
	return nil
}
