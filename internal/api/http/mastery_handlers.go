package http

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/mastery"
)

func WeakSkillsHandler(svc *mastery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		if limit <= 0 {
			limit = 5
		}
		res, err := svc.WeakSkills(r.Context(), auth.SubjectFromContext(r.Context()), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func MasteryMapHandler(svc *mastery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.MasteryMap(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func SkillMapHandler(svc *mastery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetSkillMap(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func GetOrCreateMasteryHandler(svc *mastery.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		skillID, err := strconv.ParseInt(chi.URLParam(r, "skillID"), 10, 64)
		if err != nil {
			http.Error(w, "bad skill id", http.StatusBadRequest)
			return
		}
		res, err := svc.GetOrCreate(r.Context(), auth.SubjectFromContext(r.Context()), skillID)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
