package http

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/skill-pulse/skillpulse-engine/internal/auth"
	"github.com/skill-pulse/skillpulse-engine/internal/srs"
)

func cardID(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "cardID"), 10, 64)
}

func CreateCardHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req srs.CreateRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.QuestionID == 0 {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		card, err := svc.CreateCard(r.Context(), auth.SubjectFromContext(r.Context()), req)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, card)
	}
}

func BulkCreateCardsHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Cards []srs.CreateRequest `json:"cards"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		cards, err := svc.BulkCreate(r.Context(), auth.SubjectFromContext(r.Context()), req.Cards)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusCreated, map[string]any{"cards": cards, "created": len(cards)})
	}
}

func ListCardsHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		cards, err := svc.GetCards(r.Context(), auth.SubjectFromContext(r.Context()),
			srs.Status(q.Get("status")), q.Get("certificationCode"), limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func DueCardsHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		limit, _ := strconv.Atoi(q.Get("limit"))
		offset, _ := strconv.Atoi(q.Get("offset"))
		cards, err := svc.GetDueCards(r.Context(), auth.SubjectFromContext(r.Context()), limit, offset)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, cards)
	}
}

func GetCardHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cardID(r)
		if err != nil {
			http.Error(w, "bad card id", http.StatusBadRequest)
			return
		}
		card, err := svc.GetCard(r.Context(), auth.SubjectFromContext(r.Context()), id)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func RecordReviewHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cardID(r)
		if err != nil {
			http.Error(w, "bad card id", http.StatusBadRequest)
			return
		}
		var req struct {
			Quality int `json:"quality"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		res, err := svc.RecordReview(r.Context(), auth.SubjectFromContext(r.Context()), id, req.Quality)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}

func UpdateCardStatusHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cardID(r)
		if err != nil {
			http.Error(w, "bad card id", http.StatusBadRequest)
			return
		}
		var req struct {
			Status srs.Status `json:"status"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		card, err := svc.UpdateStatus(r.Context(), auth.SubjectFromContext(r.Context()), id, req.Status)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, card)
	}
}

func DeleteCardHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, err := cardID(r)
		if err != nil {
			http.Error(w, "bad card id", http.StatusBadRequest)
			return
		}
		if err := svc.DeleteCard(r.Context(), auth.SubjectFromContext(r.Context()), id); err != nil {
			writeError(w, err)
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func SrsStatsHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		stats, err := svc.GetStats(r.Context(), auth.SubjectFromContext(r.Context()))
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, stats)
	}
}

func SyncCardsHandler(svc *srs.Service) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Cards      []srs.SyncCard `json:"cards"`
			LastSyncAt *int64         `json:"lastSyncAt,omitempty"` // unix millis
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "bad json", http.StatusBadRequest)
			return
		}
		var lastSync *time.Time
		if req.LastSyncAt != nil {
			t := time.UnixMilli(*req.LastSyncAt).UTC()
			lastSync = &t
		}
		res, err := svc.Sync(r.Context(), auth.SubjectFromContext(r.Context()), req.Cards, lastSync)
		if err != nil {
			writeError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, res)
	}
}
