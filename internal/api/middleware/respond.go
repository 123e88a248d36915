package middleware

import (
	"encoding/json"
	"net/http"

	"github.com/hugh/leadboard/internal/apperr"
)

type errorBody struct {
	Error   string            `json:"error"`
	Details map[string]string `json:"details,omitempty"`
}

func writeError(w http.ResponseWriter, err error) {
	msg, details := apperr.Public(err)
	writeJSON(w, apperr.KindOf(err).HTTPStatus(), errorBody{Error: msg, Details: details})
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
