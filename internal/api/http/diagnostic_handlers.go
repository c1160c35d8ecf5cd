package http

import (
	"encoding/json"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/diagnostic"
)

type startDiagnosticRequest struct {
	CertificationCode string   `json:"certificationCode,omitempty"`
	CareerPath        string   `json:"careerPath,omitempty"`
	Categories        []string `json:"categories,omitempty"`
	TestType          string   `json:"testType,omitempty"`
	QuestionCount     int      `json:"questionCount,omitempty"`
}

func (r startDiagnosticRequest) scope() diagnostic.Scope {
	return diagnostic.Scope{
		CertificationCode: r.CertificationCode,
		CareerPath:        r.CareerPath,
		Categories:        r.Categories,
		TestType:          r.TestType,
	}
}

func StartDiagnosticHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startDiagnosticRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.Start(r.Context(), auth.SubjectFromContext(r.Context()), req.scope(), req.QuestionCount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func SubmitDiagnosticAnswerHandler(svc *diagnostic.Service) http.HandlerFunc {
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

func NextDiagnosticQuestionHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.NextQuestion(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func FinishDiagnosticHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.Finish(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func GetDiagnosticResultHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetResult(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func GetDiagnosticStatusHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetStatus(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID"))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func AbandonDiagnosticHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := svc.Abandon(r.Context(), auth.SubjectFromContext(r.Context()), chi.URLParam(r, "sessionID")); err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"status": "abandoned"})
	}
}

func RestartDiagnosticHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req startDiagnosticRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.Restart(r.Context(), auth.SubjectFromContext(r.Context()), req.scope(), req.QuestionCount)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, res)
	}
}

func GetActiveSessionHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		res, err := svc.GetActiveSession(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func DiagnosticHistoryHandler(svc *diagnostic.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit, _ := strconv.Atoi(r.URL.Query().Get("limit"))
		res, err := svc.History(r.Context(), auth.SubjectFromContext(r.Context()), limit)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
