package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/skill-pulse/skillpulse-engine/internal/apperr"
)

func TestWriteErrorStatusMapping(t *testing.T) {
	tests := []struct {
		code   apperr.Code
		status int
	}{
		{apperr.CodeSessionNotFound, http.StatusNotFound},
		{apperr.CodeCardNotFound, http.StatusNotFound},
		{apperr.CodeNoQuestionsAvailable, http.StatusNotFound},
		{apperr.CodeUnauthorized, http.StatusForbidden},
		{apperr.CodeAlreadyInProgress, http.StatusConflict},
		{apperr.CodeAlreadyCompleted, http.StatusConflict},
		{apperr.CodeAlreadyAnswered, http.StatusConflict},
		{apperr.CodeNotCompleted, http.StatusConflict},
		{apperr.CodeInvalidRequest, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			writeError(rec, apperr.New(tt.code, "boom"))
			assert.Equal(t, tt.status, rec.Code)

			var body errorBody
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
			assert.Equal(t, string(tt.code), body.Error.Code)
			assert.Equal(t, "boom", body.Error.Message)
		})
	}
}

func TestWriteErrorCarriesMeta(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, apperr.New(apperr.CodeAlreadyInProgress, "busy").
		WithMeta("activeSessionId", "s-1"))

	var body errorBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "s-1", body.Error.Meta["activeSessionId"])
}

func TestWriteErrorUnclassified(t *testing.T) {
	rec := httptest.NewRecorder()
	writeError(rec, errors.New("disk on fire"))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	// Internal details never leak to the client.
	assert.NotContains(t, rec.Body.String(), "disk")
}
