package kanban

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"gorm.io/gorm"
)

type CreateColumnInput struct {
	Title    string
	Color    string
	Position *int
}

type UpdateColumnInput struct {
	Title *string
	Color *string
}

func (s *Service) ListColumns(ctx context.Context, p auth.Principal) ([]models.Column, error) {
	var columns []models.Column
	if err := s.db.WithContext(ctx).
		Where("tenant_id = ?", p.Tenant()).
		Order("position ASC").Order("created_at ASC").
		Find(&columns).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return columns, nil
}

// lockTenant serializes structural changes to a tenant's board.
func lockTenant(tx *gorm.DB, tenantID uuid.UUID) error {
	var tenant models.Tenant
	if err := forUpdate(tx).Select("id").First(&tenant, "id = ?", tenantID).Error; err != nil {
		return apperr.NotFound("tenant")
	}
	return nil
}

func activeColumns(tx *gorm.DB, tenantID uuid.UUID) ([]models.Column, error) {
	var columns []models.Column
	if err := tx.Where("tenant_id = ?", tenantID).
		Order("position ASC").Order("created_at ASC").
		Find(&columns).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return columns, nil
}

// renumber writes positions 0..n-1 following the given order.
func renumber(tx *gorm.DB, columns []models.Column) error {
	for i := range columns {
		if columns[i].Position == i {
			continue
		}
		if err := tx.Model(&models.Column{}).Where("id = ?", columns[i].ID).Update("position", i).Error; err != nil {
			return apperr.Internal(err)
		}
		columns[i].Position = i
	}
	return nil
}

// CreateColumn appends a column, or inserts it at Position shifting the
// columns at and after it.
func (s *Service) CreateColumn(ctx context.Context, p auth.Principal, in CreateColumnInput) (*models.Column, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return nil, apperr.Validation("Validation failed", map[string]string{"title": "Title is required"})
	}

	tenantID := p.Tenant()
	column := models.Column{TenantID: tenantID, Title: title, Color: in.Color}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTenant(tx, tenantID); err != nil {
			return err
		}
		columns, err := activeColumns(tx, tenantID)
		if err != nil {
			return err
		}
		if err := renumber(tx, columns); err != nil {
			return err
		}

		column.Position = len(columns)
		if in.Position != nil && *in.Position >= 0 && *in.Position < len(columns) {
			column.Position = *in.Position
			if err := tx.Model(&models.Column{}).
				Where("tenant_id = ? AND position >= ?", tenantID, column.Position).
				Update("position", gorm.Expr("position + 1")).Error; err != nil {
				return apperr.Internal(err)
			}
		}
		return tx.Create(&column).Error
	})
	if err != nil {
		return nil, passthrough(err)
	}
	return &column, nil
}

// UpdateColumn renames or recolors a column. A rename is mirrored onto the
// status of every active lead in the column.
func (s *Service) UpdateColumn(ctx context.Context, p auth.Principal, id uuid.UUID, in UpdateColumnInput) (*models.Column, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}

	var column *models.Column
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		col, err := lockColumn(tx, p.Tenant(), id)
		if err != nil {
			if errors.Is(err, ErrColumnDeleted) {
				return ErrColumnNotFound
			}
			return err
		}

		updates := map[string]interface{}{}
		if in.Color != nil {
			updates["color"] = *in.Color
		}
		title := col.Title
		if in.Title != nil {
			title = strings.TrimSpace(*in.Title)
			if title == "" {
				return apperr.Validation("Validation failed", map[string]string{"title": "Title cannot be empty"})
			}
			updates["title"] = title
		}
		renamed := title != col.Title
		if len(updates) > 0 {
			if err := tx.Model(col).Updates(updates).Error; err != nil {
				return err
			}
		}
		if renamed {
			if err := tx.Model(&models.Lead{}).
				Where("column_id = ?", col.ID).
				Update("status", title).Error; err != nil {
				return err
			}
		}
		col.Title = title
		if in.Color != nil {
			col.Color = *in.Color
		}
		column = col
		return nil
	})
	if err != nil {
		return nil, passthrough(err)
	}
	return column, nil
}

// ReorderColumns renumbers the board densely in the order given. Columns
// missing from ids keep their relative order after the listed ones.
func (s *Service) ReorderColumns(ctx context.Context, p auth.Principal, ids []uuid.UUID) ([]models.Column, error) {
	if err := requireAdmin(p); err != nil {
		return nil, err
	}
	tenantID := p.Tenant()

	var ordered []models.Column
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTenant(tx, tenantID); err != nil {
			return err
		}
		columns, err := activeColumns(tx, tenantID)
		if err != nil {
			return err
		}

		byID := make(map[uuid.UUID]models.Column, len(columns))
		for _, c := range columns {
			byID[c.ID] = c
		}

		seen := make(map[uuid.UUID]bool, len(ids))
		for _, id := range ids {
			if _, ok := byID[id]; !ok {
				return ErrColumnNotFound
			}
			if seen[id] {
				return apperr.Validation("Validation failed", map[string]string{"column_ids": "Duplicate column id " + id.String()})
			}
			seen[id] = true
			ordered = append(ordered, byID[id])
		}
		for _, c := range columns {
			if !seen[c.ID] {
				ordered = append(ordered, c)
			}
		}

		return renumber(tx, ordered)
	})
	if err != nil {
		return nil, passthrough(err)
	}
	return ordered, nil
}

// DeleteColumn soft-deletes a column together with its active leads, all
// stamped with the acting principal. Leads already in the trash keep their
// original stamps. It returns the number of leads cascaded.
func (s *Service) DeleteColumn(ctx context.Context, p auth.Principal, id uuid.UUID) (int64, error) {
	if err := requireAdmin(p); err != nil {
		return 0, err
	}
	tenantID := p.Tenant()
	actor := p.ID()

	var cascaded int64
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := lockTenant(tx, tenantID); err != nil {
			return err
		}
		col, err := lockColumn(tx, tenantID, id)
		if err != nil {
			if errors.Is(err, ErrColumnDeleted) {
				return ErrColumnNotFound
			}
			return err
		}

		now := s.now()
		stamp := map[string]interface{}{"deleted_at": now, "deleted_by": actor}

		res := tx.Model(&models.Lead{}).Where("column_id = ?", col.ID).Updates(stamp)
		if res.Error != nil {
			return res.Error
		}
		cascaded = res.RowsAffected

		if err := tx.Model(col).Updates(stamp).Error; err != nil {
			return err
		}

		remaining, err := activeColumns(tx, tenantID)
		if err != nil {
			return err
		}
		return renumber(tx, remaining)
	})
	if err != nil {
		return 0, passthrough(err)
	}

	s.logger.Info("column deleted", "column_id", id, "tenant_id", tenantID, "cascaded_leads", cascaded, "actor", actor)
	return cascaded, nil
}
