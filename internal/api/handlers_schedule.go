package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	respond "github.com/sundaylabs/sunday-server/internal/api/respond"
	"github.com/sundaylabs/sunday-server/internal/ical"
	"github.com/sundaylabs/sunday-server/internal/insights"
	"github.com/sundaylabs/sunday-server/internal/schedule"
	"github.com/sundaylabs/sunday-server/internal/synth"
)

// ScheduleHandler is the HTTP transport over the schedule workflow.
type ScheduleHandler struct {
	svc *schedule.Service
	log zerolog.Logger
}

func NewScheduleHandler(svc *schedule.Service, log zerolog.Logger) *ScheduleHandler {
	return &ScheduleHandler{svc: svc, log: log.With().Str("handler", "schedule").Logger()}
}

// writeSynthError maps synthesis pipeline failures: in-flight and
// malformed replies are client-visible conditions, upstream failures
// become 502.
func writeSynthError(w http.ResponseWriter, err error) {
	var se *synth.SynthesisError
	var me *synth.MalformedResponseError
	switch {
	case errors.Is(err, schedule.ErrSynthesisInFlight):
		respond.WriteConflict(w, err.Error())
	case errors.Is(err, schedule.ErrNoTranscripts):
		respond.WriteError(w, http.StatusUnprocessableEntity, err.Error())
	case errors.As(err, &se):
		respond.WriteError(w, http.StatusBadGateway, se.Error())
	case errors.As(err, &me):
		respond.WriteError(w, http.StatusBadGateway, me.Error())
	default:
		respond.WriteDomainError(w, err)
	}
}

// Synthesize POST /api/schedule/synthesize
// Body: {"date": "YYYY-MM-DD"} for a fresh batch, or
// {"refinement": "..."} to rerun the open session with an instruction.
func (h *ScheduleHandler) Synthesize(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Date       string `json:"date"`
		Refinement string `json:"refinement"`
	}
	if r.Body != nil && r.ContentLength != 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respond.WriteBadRequest(w, "Invalid JSON")
			return
		}
	}

	if req.Refinement != "" {
		pending, err := h.svc.Refine(r.Context(), req.Refinement)
		if err != nil {
			writeSynthError(w, err)
			return
		}
		respond.WriteJSON(w, http.StatusOK, pending)
		return
	}

	pending, err := h.svc.Synthesize(r.Context(), req.Date)
	if err != nil {
		writeSynthError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, pending)
}

// GetPending GET /api/schedule/pending
func (h *ScheduleHandler) GetPending(w http.ResponseWriter, r *http.Request) {
	pending, err := h.svc.Pending(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, pending)
}

// ApproveEntry POST /api/schedule/pending/{entryId}/approve
func (h *ScheduleHandler) ApproveEntry(w http.ResponseWriter, r *http.Request) {
	approved, err := h.svc.Approve(r.Context(), mux.Vars(r)["entryId"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, approved)
}

// RejectEntry POST /api/schedule/pending/{entryId}/reject
func (h *ScheduleHandler) RejectEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Reason string `json:"reason"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Reason == "" {
		respond.WriteBadRequest(w, "rejection reason is required")
		return
	}
	entry, err := h.svc.Reject(r.Context(), mux.Vars(r)["entryId"], req.Reason)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}

// CorrectEntry POST /api/schedule/pending/{entryId}/correct
func (h *ScheduleHandler) CorrectEntry(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	if req.Text == "" {
		respond.WriteBadRequest(w, "correction text is required")
		return
	}
	entry, err := h.svc.Correct(r.Context(), mux.Vars(r)["entryId"], req.Text)
	if err != nil {
		writeSynthError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, entry)
}

// Confirm POST /api/schedule/confirm
func (h *ScheduleHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	confirmed, err := h.svc.Confirm(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, confirmed)
}

// Reset DELETE /api/schedule/pending
func (h *ScheduleHandler) Reset(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.Reset(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListApproved GET /api/schedule/approved
func (h *ScheduleHandler) ListApproved(w http.ResponseWriter, r *http.Request) {
	entries, err := h.svc.Approved(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"entries": entries,
		"count":   len(entries),
	})
}

// DeleteApproved DELETE /api/schedule/approved/{id}
func (h *ScheduleHandler) DeleteApproved(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteApproved(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListConfirmed GET /api/schedule/confirmed
func (h *ScheduleHandler) ListConfirmed(w http.ResponseWriter, r *http.Request) {
	schedules, err := h.svc.Confirmed(r.Context())
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"schedules": schedules,
		"count":     len(schedules),
	})
}

// GetConfirmed GET /api/schedule/confirmed/{id}
func (h *ScheduleHandler) GetConfirmed(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.GetConfirmed(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, sched)
}

// DeleteConfirmed DELETE /api/schedule/confirmed/{id}
func (h *ScheduleHandler) DeleteConfirmed(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.DeleteConfirmed(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// GetInsights GET /api/schedule/confirmed/{id}/insights
func (h *ScheduleHandler) GetInsights(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.GetConfirmed(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	cats := insights.Compute(sched.Entries)
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"scheduleId": sched.ID,
		"date":       sched.Date,
		"categories": cats,
	})
}

// GetCalendar GET /api/schedule/confirmed/{id}/calendar.ics
func (h *ScheduleHandler) GetCalendar(w http.ResponseWriter, r *http.Request) {
	sched, err := h.svc.GetConfirmed(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	doc, err := ical.Encode(sched, time.Now())
	if err != nil {
		respond.WriteInternalError(w, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+ical.Filename(sched)+`"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(doc))
}
