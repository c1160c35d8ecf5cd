// Package http carries the HTTP handlers for the engine's API. Each
// handler is a constructor taking the service it fronts, matching how
// routes are mounted in cmd/engined.
package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

type errorBody struct {
	Error struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Meta    map[string]string `json:"meta,omitempty"`
	} `json:"error"`
}

// writeError maps the engine's error taxonomy onto HTTP statuses.
// Unclassified errors are internal.
func writeError(w http.ResponseWriter, err error) {
	var ae *apperr.Error
	if !errors.As(err, &ae) {
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}

	status := http.StatusInternalServerError
	switch ae.Code {
	case apperr.CodeSessionNotFound, apperr.CodeCardNotFound, apperr.CodeNoQuestionsAvailable:
		status = http.StatusNotFound
	case apperr.CodeUnauthorized:
		status = http.StatusForbidden
	case apperr.CodeAlreadyInProgress, apperr.CodeAlreadyCompleted,
		apperr.CodeAlreadyAnswered, apperr.CodeNotCompleted:
		status = http.StatusConflict
	case apperr.CodeInvalidRequest:
		status = http.StatusBadRequest
	}

	var body errorBody
	body.Error.Code = string(ae.Code)
	body.Error.Message = ae.Message
	body.Error.Meta = ae.Meta
	writeJSON(w, status, body)
}
