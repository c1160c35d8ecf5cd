package http

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/practice"
)

func StartPracticeHandler(svc *practice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req practice.StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.Start(r.Context(), auth.SubjectFromContext(r.Context()), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func SubmitPracticeAnswerHandler(svc *practice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			QuestionID       int64  `json:"questionId"`
			Selections       []bool `json:"selections"`
			TimeSpentSeconds int    `json:"timeSpentSeconds"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.SubmitAnswer(r.Context(), auth.SubjectFromContext(r.Context()),
			chi.URLParam(r, "sessionID"), req.QuestionID, req.Selections, req.TimeSpentSeconds)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func NextPracticeQuestionHandler(svc *practice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q, err := svc.NextQuestion(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"question": q})
	}
}

func EndPracticeHandler(svc *practice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.End(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func PracticeStatusHandler(svc *practice.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Status(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
