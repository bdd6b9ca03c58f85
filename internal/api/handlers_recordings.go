package api

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	respond "github.com/sundaylabs/sunday-server/internal/api/respond"
	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
	"github.com/sundaylabs/sunday-server/internal/transcribe"
)

// maxUploadBytes caps one audio upload (32 MiB).
const maxUploadBytes = 32 << 20

// RecordingHandler is the HTTP transport over the recording store and
// the transcription service.
type RecordingHandler struct {
	store store.Store
	svc   *transcribe.Service
	log   zerolog.Logger
}

func NewRecordingHandler(st store.Store, svc *transcribe.Service, log zerolog.Logger) *RecordingHandler {
	return &RecordingHandler{store: st, svc: svc, log: log.With().Str("handler", "recordings").Logger()}
}

// recordingView is the wire shape of a recording; the audio blob is
// omitted, the transcript is rendered in its legacy single-string form
// alongside the tagged one.
type recordingView struct {
	ID            string           `json:"id"`
	MimeType      string           `json:"mimeType"`
	CreatedAt     model.LocalTime  `json:"created_at"`
	DurationMs    int64            `json:"duration"`
	Transcript    model.Transcript `json:"transcript"`
	Transcription string           `json:"transcription,omitempty"`
	State         string           `json:"transcriptionState"`
}

func viewOf(rec *model.Recording) recordingView {
	return recordingView{
		ID:            rec.ID,
		MimeType:      rec.MimeType,
		CreatedAt:     rec.CreatedAt,
		DurationMs:    rec.DurationMs,
		Transcript:    rec.Transcript,
		Transcription: rec.Transcript.Legacy(),
		State:         string(rec.State),
	}
}

func viewsOf(recs []*model.Recording) []recordingView {
	out := make([]recordingView, 0, len(recs))
	for _, r := range recs {
		out = append(out, viewOf(r))
	}
	return out
}

// CreateRecording POST /api/recordings
// Accepts multipart form data (file field "audio" plus created_at and
// duration fields) or a JSON body with base64 audio.
func (h *RecordingHandler) CreateRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := h.decodeUpload(r)
	if err != nil {
		respond.WriteBadRequest(w, err.Error())
		return
	}
	if rec.ID == "" {
		rec.ID = uuid.NewString()
	}
	if rec.State == "" {
		rec.State = model.TranscriptionIdle
	}
	saved, err := h.store.Recordings().Save(r.Context(), rec)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusCreated, viewOf(saved))
}

func (h *RecordingHandler) decodeUpload(r *http.Request) (*model.Recording, error) {
	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
		return h.decodeMultipart(r)
	}
	var req struct {
		ID         string `json:"id"`
		Audio      string `json:"audio"`
		MimeType   string `json:"mimeType"`
		CreatedAt  string `json:"created_at"`
		DurationMs int64  `json:"duration"`
	}
	if err := json.NewDecoder(io.LimitReader(r.Body, maxUploadBytes)).Decode(&req); err != nil {
		return nil, err
	}
	audio, err := base64.StdEncoding.DecodeString(req.Audio)
	if err != nil {
		return nil, err
	}
	created, err := parseCreatedAt(req.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &model.Recording{
		ID:         req.ID,
		Audio:      audio,
		MimeType:   req.MimeType,
		CreatedAt:  created,
		DurationMs: req.DurationMs,
	}, nil
}

func (h *RecordingHandler) decodeMultipart(r *http.Request) (*model.Recording, error) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		return nil, err
	}
	file, header, err := r.FormFile("audio")
	if err != nil {
		return nil, err
	}
	defer func() { _ = file.Close() }()
	audio, err := io.ReadAll(io.LimitReader(file, maxUploadBytes))
	if err != nil {
		return nil, err
	}

	created, err := parseCreatedAt(r.FormValue("created_at"))
	if err != nil {
		return nil, err
	}
	var durationMs int64
	if v := r.FormValue("duration"); v != "" {
		durationMs, err = strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, err
		}
	}
	mimeType := header.Header.Get("Content-Type")
	if mimeType == "" {
		mimeType = "audio/webm"
	}
	return &model.Recording{
		Audio:      audio,
		MimeType:   mimeType,
		CreatedAt:  created,
		DurationMs: durationMs,
	}, nil
}

// parseCreatedAt keeps client-supplied local-naive timestamps exactly;
// an absent value falls back to the server's local clock.
func parseCreatedAt(s string) (model.LocalTime, error) {
	if s == "" {
		return model.NewLocalTime(time.Now()), nil
	}
	return model.ParseLocalTime(s)
}

// ListRecordings GET /api/recordings[?date=YYYY-MM-DD]
func (h *RecordingHandler) ListRecordings(w http.ResponseWriter, r *http.Request) {
	var recs []*model.Recording
	var err error
	if date := r.URL.Query().Get("date"); date != "" {
		recs, err = h.store.Recordings().ListByDate(r.Context(), date)
	} else {
		recs, err = h.store.Recordings().List(r.Context())
	}
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"recordings": viewsOf(recs),
		"count":      len(recs),
	})
}

// GetRecording GET /api/recordings/{id}
func (h *RecordingHandler) GetRecording(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Recordings().Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, viewOf(rec))
}

// GetRecordingAudio GET /api/recordings/{id}/audio
func (h *RecordingHandler) GetRecordingAudio(w http.ResponseWriter, r *http.Request) {
	rec, err := h.store.Recordings().Get(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	mimeType := rec.MimeType
	if mimeType == "" {
		mimeType = "application/octet-stream"
	}
	w.Header().Set("Content-Type", mimeType)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(rec.Audio)
}

// UpdateRecording PATCH /api/recordings/{id}
// Partial update of transcript and transcription state. The transcript
// accepts either the tagged object or the legacy single string.
func (h *RecordingHandler) UpdateRecording(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Transcript *model.Transcript `json:"transcript"`
		State      *string           `json:"transcriptionState"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respond.WriteBadRequest(w, "Invalid JSON")
		return
	}
	upd := store.RecordingUpdate{Transcript: req.Transcript}
	if req.State != nil {
		state := model.TranscriptionState(*req.State)
		switch state {
		case model.TranscriptionIdle, model.TranscriptionInProgress, model.TranscriptionDone, model.TranscriptionFailed:
		default:
			respond.WriteBadRequest(w, "unknown transcription state")
			return
		}
		upd.State = &state
	}
	rec, err := h.store.Recordings().Update(r.Context(), mux.Vars(r)["id"], upd)
	if err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	respond.WriteJSON(w, http.StatusOK, viewOf(rec))
}

// DeleteRecording DELETE /api/recordings/{id}
func (h *RecordingHandler) DeleteRecording(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Recordings().Delete(r.Context(), mux.Vars(r)["id"]); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ClearRecordings DELETE /api/recordings
func (h *RecordingHandler) ClearRecordings(w http.ResponseWriter, r *http.Request) {
	if err := h.store.Recordings().Clear(r.Context()); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// TriggerTranscription POST /api/recordings/{id}/transcribe
// Kicks off transcription asynchronously and returns 202. Repeat
// triggers while a transcription is running or finished are no-ops.
func (h *RecordingHandler) TriggerTranscription(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	if _, err := h.store.Recordings().Get(r.Context(), id); err != nil {
		respond.WriteDomainError(w, err)
		return
	}
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		if _, err := h.svc.Transcribe(ctx, id); err != nil {
			h.log.Warn().Err(err).Str("recordingId", id).Msg("async transcription failed")
		}
	}()
	respond.WriteJSON(w, http.StatusAccepted, map[string]string{
		"id":     id,
		"status": "transcription started",
	})
}
