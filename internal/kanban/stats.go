package kanban

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
	"github.com/hugh/leadboard/internal/visibility"
	"gorm.io/gorm"
)

type ColumnCount struct {
	ColumnID *uuid.UUID `json:"column_id"`
	Title    string     `json:"title"`
	Count    int64      `json:"count"`
}

type AttendantCount struct {
	AttendantID *uuid.UUID `json:"attendant_id"`
	Name        string     `json:"name"`
	Count       int64      `json:"count"`
}

type DashboardStats struct {
	TotalLeads      int64            `json:"total_leads"`
	UnassignedLeads int64            `json:"unassigned_leads"`
	NewThisWeek     int64            `json:"new_this_week"`
	TotalValue      float64          `json:"total_value"`
	ByColumn        []ColumnCount    `json:"by_column"`
	ByAttendant     []AttendantCount `json:"by_attendant"`
}

// Dashboard aggregates the leads visible to p. It uses the same scope as
// ListLeads so the numbers always match the list.
func (s *Service) Dashboard(ctx context.Context, p auth.Principal) (*DashboardStats, error) {
	scope, err := s.leadScope(ctx, p, visibility.ModeList)
	if err != nil {
		return nil, err
	}
	base := func() *gorm.DB {
		return scope.Apply(s.db.WithContext(ctx).Model(&models.Lead{}))
	}

	stats := &DashboardStats{ByColumn: []ColumnCount{}, ByAttendant: []AttendantCount{}}

	if err := base().Count(&stats.TotalLeads).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := base().Where("leads.attendant_id IS NULL").Count(&stats.UnassignedLeads).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := base().Where("leads.created_at >= ?", s.now().Add(-7*24*time.Hour)).Count(&stats.NewThisWeek).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	if err := base().Select("COALESCE(SUM(leads.value), 0)").Scan(&stats.TotalValue).Error; err != nil {
		return nil, apperr.Internal(err)
	}

	var byColumn []ColumnCount
	if err := base().Select("leads.column_id AS column_id, COUNT(*) AS count").
		Group("leads.column_id").Scan(&byColumn).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	columns, err := s.ListColumns(ctx, p)
	if err != nil {
		return nil, err
	}
	counts := make(map[uuid.UUID]int64, len(byColumn))
	for _, c := range byColumn {
		if c.ColumnID == nil {
			stats.ByColumn = append(stats.ByColumn, ColumnCount{Title: DefaultStatus, Count: c.Count})
			continue
		}
		counts[*c.ColumnID] = c.Count
	}
	for _, col := range columns {
		id := col.ID
		stats.ByColumn = append(stats.ByColumn, ColumnCount{ColumnID: &id, Title: col.Title, Count: counts[col.ID]})
	}

	if err := base().
		Select("leads.attendant_id AS attendant_id, attendants.name AS name, COUNT(*) AS count").
		Joins("JOIN attendants ON attendants.id = leads.attendant_id").
		Group("leads.attendant_id, attendants.name").
		Order("count DESC").
		Scan(&stats.ByAttendant).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	return stats, nil
}
