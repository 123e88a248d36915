package handlers

import (
	"errors"
	"net/http"

	"github.com/hugh/leadboard/internal/api/middleware"
	"github.com/hugh/leadboard/internal/apperr"
	"github.com/hugh/leadboard/internal/imports"
	"github.com/hugh/leadboard/internal/kanban"
)

var errNoFile = apperr.Validation("Validation failed", map[string]string{"file": "A file is required"})

// Import handles POST /api/v1/leads/import with a multipart "file" field
// holding a .csv or .xlsx sheet. An optional "column_id" field places every
// imported lead on that column.
func (h *LeadHandler) Import(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxImportBytes)
	if err := r.ParseMultipartForm(h.maxImportBytes); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"file": "File is too large"}))
			return
		}
		respondError(w, r, h.logger, errNoFile)
		return
	}

	file, header, err := r.FormFile("file")
	if err != nil {
		respondError(w, r, h.logger, errNoFile)
		return
	}
	defer file.Close()

	rows, err := imports.Parse(header.Filename, file)
	if err != nil {
		respondError(w, r, h.logger, apperr.Validation("Validation failed", map[string]string{"file": err.Error()}))
		return
	}

	columnValue := r.FormValue("column_id")
	columnID := optionalID(&columnValue)

	inputs := make([]kanban.CreateLeadInput, len(rows))
	for i, row := range rows {
		inputs[i] = kanban.CreateLeadInput{
			Name:     row.Name,
			Email:    row.Email,
			Phone:    row.Phone,
			Company:  row.Company,
			Source:   row.Source,
			Notes:    row.Notes,
			Value:    row.Value,
			ColumnID: columnID,
		}
		if inputs[i].Source == "" {
			inputs[i].Source = "import"
		}
	}

	result, err := h.kanban.ImportLeads(r.Context(), middleware.GetPrincipal(r.Context()), inputs)
	if err != nil {
		respondError(w, r, h.logger, err)
		return
	}

	// Report sheet line numbers rather than data row indexes.
	for i := range result.Errors {
		if idx := result.Errors[i].Row - 1; idx >= 0 && idx < len(rows) {
			result.Errors[i].Row = rows[idx].Line
		}
	}

	h.logger.Info("leads imported",
		"file", header.Filename,
		"created", result.Created,
		"skipped", result.Skipped,
		"failed", len(result.Errors),
	)
	writeJSON(w, http.StatusOK, result)
}
