package httptransport

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"commwatch/internal/domain"
)

type trackRequest struct {
	SubjectID           string  `json:"subject_id"`
	PollIntervalSeconds int     `json:"poll_interval_seconds"`
	CredentialPoolRef   string  `json:"credential_pool_ref"`
	AcceptanceFloor     float64 `json:"acceptance_floor"`
	AbsenceThreshold    int     `json:"absence_threshold"`
	MaxBackoffSeconds   int     `json:"max_backoff_seconds"`
}

const defaultPollInterval = 15 * time.Minute

func (h *Handler) handleTrack(w http.ResponseWriter, r *http.Request) {
	var req trackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeBadRequest(w, "invalid JSON body")
		return
	}
	if req.SubjectID == "" {
		writeBadRequest(w, "subject_id is required")
		return
	}

	interval := defaultPollInterval
	if req.PollIntervalSeconds > 0 {
		interval = time.Duration(req.PollIntervalSeconds) * time.Second
	}

	if req.AcceptanceFloor < 0 || req.AcceptanceFloor > 1 {
		writeBadRequest(w, "acceptance_floor must be within [0, 1]")
		return
	}

	sub := domain.TrackedSubject{
		SubjectID:         req.SubjectID,
		PollInterval:      interval,
		CredentialPoolRef: req.CredentialPoolRef,
		AcceptanceFloor:   req.AcceptanceFloor,
		AbsenceThreshold:  req.AbsenceThreshold,
		MaxBackoff:        time.Duration(req.MaxBackoffSeconds) * time.Second,
	}
	if err := h.registry.Track(sub); err != nil {
		writeError(w, err)
		return
	}

	h.log.Printf("tracking subject: subject=%s interval=%s", req.SubjectID, interval)
	writeJSON(w, http.StatusCreated, map[string]string{"subject_id": req.SubjectID})
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{"subjects": h.registry.Subjects()})
}

func (h *Handler) handleStop(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	if err := h.registry.Stop(subjectID); err != nil {
		writeError(w, err)
		return
	}
	h.log.Printf("stopped tracking: subject=%s", subjectID)
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleReactivate(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")
	if err := h.registry.Reactivate(subjectID); err != nil {
		writeError(w, err)
		return
	}
	h.log.Printf("reactivated subject: subject=%s", subjectID)
	writeJSON(w, http.StatusOK, map[string]string{"subject_id": subjectID})
}

func (h *Handler) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := h.registry.Subject(chi.URLParam(r, "subjectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, status)
}

func (h *Handler) handleSnapshot(w http.ResponseWriter, r *http.Request) {
	snap, err := h.store.Latest(r.Context(), chi.URLParam(r, "subjectID"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, snap)
}
