package kanban

import (
	"context"
	"strings"

	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/auth"
	"github.com/hugh/leadboard/internal/database/models"
)

// ImportError describes a row that was not imported. Row is 1-based and
// counts data rows only.
type ImportError struct {
	Row     int    `json:"row"`
	Message string `json:"message"`
}

type ImportResult struct {
	Created int           `json:"created"`
	Skipped int           `json:"skipped"`
	Errors  []ImportError `json:"errors"`
}

// ImportLeads creates a lead per row. Rows whose email or phone already
// belongs to an active lead of the tenant, or to an earlier row of the same
// batch, are skipped.
func (s *Service) ImportLeads(ctx context.Context, p auth.Principal, rows []CreateLeadInput) (*ImportResult, error) {
	if _, err := requireSystem(p); err != nil {
		return nil, err
	}
	tenantID := p.Tenant()

	var existing []models.Lead
	if err := s.db.WithContext(ctx).Select("email", "phone").
		Where("tenant_id = ?", tenantID).
		Find(&existing).Error; err != nil {
		return nil, apperr.Internal(err)
	}
	emails := make(map[string]bool, len(existing))
	phones := make(map[string]bool, len(existing))
	for _, l := range existing {
		if l.Email != "" {
			emails[l.Email] = true
		}
		if l.Phone != "" {
			phones[l.Phone] = true
		}
	}

	result := &ImportResult{Errors: []ImportError{}}
	for i, row := range rows {
		email := strings.ToLower(strings.TrimSpace(row.Email))
		phone := strings.TrimSpace(row.Phone)
		if (email != "" && emails[email]) || (phone != "" && phones[phone]) {
			result.Skipped++
			continue
		}

		if _, err := s.CreateLead(ctx, p, row); err != nil {
			if apperr.KindOf(err) == apperr.KindInternal {
				return nil, err
			}
			msg, details := apperr.Public(err)
			for _, d := range details {
				msg = d
				break
			}
			result.Errors = append(result.Errors, ImportError{Row: i + 1, Message: msg})
			continue
		}
		result.Created++
		if email != "" {
			emails[email] = true
		}
		if phone != "" {
			phones[phone] = true
		}
	}

	s.logger.Info("leads imported", "tenant_id", tenantID, "created", result.Created,
		"skipped", result.Skipped, "failed", len(result.Errors))
	return result, nil
}
