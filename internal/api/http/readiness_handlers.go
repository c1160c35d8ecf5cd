package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/readiness"
)

func LatestReadinessHandler(svc *readiness.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		snap, err := svc.Latest(r.Context(), auth.SubjectFromContext(r.Context()), r.URL.Query().Get("testType"))
		if errors.Is(err, readiness.ErrNoSnapshot) {
			http.Error(w, "no readiness snapshot yet", http.StatusNotFound)
			return
		}
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snap)
	}
}

func ReadinessHistoryHandler(svc *readiness.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		snaps, err := svc.History(r.Context(), auth.SubjectFromContext(r.Context()), q.Get("testType"), limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, snaps)
	}
}
