package api

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/api/recovery"
	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/schedule"
	"github.com/sundaylabs/sunday-server/internal/store"
	"github.com/sundaylabs/sunday-server/internal/store/sqlite"
	"github.com/sundaylabs/sunday-server/internal/synth"
	"github.com/sundaylabs/sunday-server/internal/transcribe"
)

// newMultipart writes an audio upload form into buf and returns the
// Content-Type header value.
func newMultipart(t *testing.T, buf *bytes.Buffer, audio string, fields map[string]string) string {
	t.Helper()
	mw := multipart.NewWriter(buf)
	part, err := mw.CreateFormFile("audio", "clip.webm")
	if err != nil {
		t.Fatalf("form file: %v", err)
	}
	if _, err := io.WriteString(part, audio); err != nil {
		t.Fatalf("write audio: %v", err)
	}
	for k, v := range fields {
		if err := mw.WriteField(k, v); err != nil {
			t.Fatalf("write field %s: %v", k, err)
		}
	}
	if err := mw.Close(); err != nil {
		t.Fatalf("close writer: %v", err)
	}
	return mw.FormDataContentType()
}

type testTranscriber struct {
	result model.Transcript
	err    error
}

func (t *testTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (model.Transcript, error) {
	return t.result, t.err
}

type testSynth struct {
	entries []model.ScheduleEntry
	err     error
}

func (s *testSynth) Synthesize(ctx context.Context, lines []model.TranscriptLine) ([]model.ScheduleEntry, []model.ConversationMessage, error) {
	history := []model.ConversationMessage{
		{Role: "user", Parts: []model.Part{{Text: "prompt"}}},
		{Role: "model", Parts: []model.Part{{Text: "reply"}}},
	}
	return s.entries, history, s.err
}

func (s *testSynth) Refine(ctx context.Context, history []model.ConversationMessage, refinement string) ([]model.ScheduleEntry, []model.ConversationMessage, error) {
	return s.entries, append(history, model.ConversationMessage{Role: "model", Parts: []model.Part{{Text: "reply2"}}}), s.err
}

func (s *testSynth) Correct(ctx context.Context, entry model.ScheduleEntry, correctionText string, history []model.ConversationMessage) (*model.ScheduleEntry, error) {
	if s.err != nil {
		return nil, s.err
	}
	out := entry
	out.Description = "corrected"
	out.Status = model.EntryPending
	out.RejectionReason = nil
	return &out, nil
}

type testEnv struct {
	router *mux.Router
	store  store.Store
	synth  *testSynth
	trans  *testTranscriber
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	st, err := sqlite.New(filepath.Join(t.TempDir(), "sunday.db"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	log := zerolog.Nop()

	tr := &testTranscriber{result: model.TranscriptOK("went for a walk")}
	sy := &testSynth{entries: []model.ScheduleEntry{
		{ID: "e1", StartTime: "9:00 AM", EndTime: "10:00 AM", Description: "Work", Status: model.EntryPending},
		{ID: "e2", StartTime: "12:00 PM", EndTime: "1:00 PM", Description: "Lunch", Status: model.EntryPending},
	}}

	transcribeSvc := transcribe.NewService(st, tr, log)
	scheduleSvc := schedule.NewService(st, sy, log)

	recordings := NewRecordingHandler(st, transcribeSvc, log)
	schedules := NewScheduleHandler(scheduleSvc, log)
	health := NewHealthHandler()

	r := mux.NewRouter()
	r.Use(recovery.Middleware)
	r.HandleFunc("/api/recordings", recordings.CreateRecording).Methods("POST")
	r.HandleFunc("/api/recordings", recordings.ListRecordings).Methods("GET")
	r.HandleFunc("/api/recordings", recordings.ClearRecordings).Methods("DELETE")
	r.HandleFunc("/api/recordings/{id}", recordings.GetRecording).Methods("GET")
	r.HandleFunc("/api/recordings/{id}", recordings.UpdateRecording).Methods("PATCH")
	r.HandleFunc("/api/recordings/{id}", recordings.DeleteRecording).Methods("DELETE")
	r.HandleFunc("/api/recordings/{id}/audio", recordings.GetRecordingAudio).Methods("GET")
	r.HandleFunc("/api/recordings/{id}/transcribe", recordings.TriggerTranscription).Methods("POST")
	r.HandleFunc("/api/schedule/synthesize", schedules.Synthesize).Methods("POST")
	r.HandleFunc("/api/schedule/pending", schedules.GetPending).Methods("GET")
	r.HandleFunc("/api/schedule/pending", schedules.Reset).Methods("DELETE")
	r.HandleFunc("/api/schedule/pending/{entryId}/approve", schedules.ApproveEntry).Methods("POST")
	r.HandleFunc("/api/schedule/pending/{entryId}/reject", schedules.RejectEntry).Methods("POST")
	r.HandleFunc("/api/schedule/pending/{entryId}/correct", schedules.CorrectEntry).Methods("POST")
	r.HandleFunc("/api/schedule/confirm", schedules.Confirm).Methods("POST")
	r.HandleFunc("/api/schedule/approved", schedules.ListApproved).Methods("GET")
	r.HandleFunc("/api/schedule/approved/{id}", schedules.DeleteApproved).Methods("DELETE")
	r.HandleFunc("/api/schedule/confirmed", schedules.ListConfirmed).Methods("GET")
	r.HandleFunc("/api/schedule/confirmed/{id}", schedules.GetConfirmed).Methods("GET")
	r.HandleFunc("/api/schedule/confirmed/{id}", schedules.DeleteConfirmed).Methods("DELETE")
	r.HandleFunc("/api/schedule/confirmed/{id}/insights", schedules.GetInsights).Methods("GET")
	r.HandleFunc("/api/schedule/confirmed/{id}/calendar.ics", schedules.GetCalendar).Methods("GET")
	r.HandleFunc("/api/health", health.CheckHealth).Methods("GET")

	return &testEnv{router: r, store: st, synth: sy, trans: tr}
}

func (e *testEnv) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatalf("encode body: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)
	return rr
}

func decodeInto(t *testing.T, rr *httptest.ResponseRecorder, v interface{}) {
	t.Helper()
	if err := json.Unmarshal(rr.Body.Bytes(), v); err != nil {
		t.Fatalf("decode response %q: %v", rr.Body.String(), err)
	}
}

func (e *testEnv) createRecording(t *testing.T, id, createdAt string) {
	t.Helper()
	rr := e.do(t, "POST", "/api/recordings", map[string]interface{}{
		"id":         id,
		"audio":      base64.StdEncoding.EncodeToString([]byte("fake-audio-" + id)),
		"mimeType":   "audio/webm",
		"created_at": createdAt,
		"duration":   4200,
	})
	if rr.Code != http.StatusCreated {
		t.Fatalf("create recording: %d %s", rr.Code, rr.Body.String())
	}
}

func TestRecordingLifecycle(t *testing.T) {
	e := newTestEnv(t)
	e.createRecording(t, "rec-1", "2026-01-17T07:34:02")
	e.createRecording(t, "rec-2", "2026-01-18T09:00:00")

	// List newest first.
	rr := e.do(t, "GET", "/api/recordings", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("list: %d", rr.Code)
	}
	var list struct {
		Recordings []map[string]interface{} `json:"recordings"`
		Count      int                      `json:"count"`
	}
	decodeInto(t, rr, &list)
	if list.Count != 2 || list.Recordings[0]["id"] != "rec-2" {
		t.Fatalf("list = %+v", list)
	}

	// Timestamps stay local-naive, byte for byte.
	if got := list.Recordings[1]["created_at"]; got != "2026-01-17T07:34:02" {
		t.Fatalf("created_at = %v", got)
	}

	// Day filter.
	rr = e.do(t, "GET", "/api/recordings?date=2026-01-17", nil)
	decodeInto(t, rr, &list)
	if list.Count != 1 || list.Recordings[0]["id"] != "rec-1" {
		t.Fatalf("date filter = %+v", list)
	}

	// Raw audio.
	rr = e.do(t, "GET", "/api/recordings/rec-1/audio", nil)
	if rr.Code != http.StatusOK || rr.Body.String() != "fake-audio-rec-1" {
		t.Fatalf("audio = %d %q", rr.Code, rr.Body.String())
	}
	if ct := rr.Header().Get("Content-Type"); ct != "audio/webm" {
		t.Fatalf("audio content type = %q", ct)
	}

	// Patch accepts the legacy transcript string.
	rr = e.do(t, "PATCH", "/api/recordings/rec-1", map[string]interface{}{
		"transcript":         "No speech detected",
		"transcriptionState": "done",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("patch: %d %s", rr.Code, rr.Body.String())
	}
	var patched struct {
		Transcript    model.Transcript `json:"transcript"`
		Transcription string           `json:"transcription"`
	}
	decodeInto(t, rr, &patched)
	if patched.Transcript.Kind != model.TranscriptKindEmpty || patched.Transcription != "No speech detected" {
		t.Fatalf("patched = %+v", patched)
	}

	// Delete is idempotent.
	if rr := e.do(t, "DELETE", "/api/recordings/rec-2", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("delete: %d", rr.Code)
	}
	if rr := e.do(t, "DELETE", "/api/recordings/rec-2", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("repeat delete: %d", rr.Code)
	}

	// Unknown id is 404.
	if rr := e.do(t, "GET", "/api/recordings/rec-2", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("get deleted: %d", rr.Code)
	}
}

func TestMultipartUpload(t *testing.T) {
	e := newTestEnv(t)

	var buf bytes.Buffer
	mw := newMultipart(t, &buf, "fake-bytes", map[string]string{
		"created_at": "2026-01-17T10:00:00",
		"duration":   "1500",
	})
	req := httptest.NewRequest("POST", "/api/recordings", &buf)
	req.Header.Set("Content-Type", mw)
	rr := httptest.NewRecorder()
	e.router.ServeHTTP(rr, req)

	if rr.Code != http.StatusCreated {
		t.Fatalf("upload: %d %s", rr.Code, rr.Body.String())
	}
	var created struct {
		ID         string `json:"id"`
		DurationMs int64  `json:"duration"`
	}
	decodeInto(t, rr, &created)
	if created.ID == "" || created.DurationMs != 1500 {
		t.Fatalf("created = %+v", created)
	}
}

func TestTranscribeTrigger(t *testing.T) {
	e := newTestEnv(t)
	e.createRecording(t, "rec-1", "2026-01-17T07:34:02")

	rr := e.do(t, "POST", "/api/recordings/rec-1/transcribe", nil)
	if rr.Code != http.StatusAccepted {
		t.Fatalf("trigger: %d %s", rr.Code, rr.Body.String())
	}

	// The transcription runs async; poll until it resolves.
	deadline := time.After(5 * time.Second)
	for {
		rec, err := e.store.Recordings().Get(context.Background(), "rec-1")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if rec.State == model.TranscriptionDone {
			if rec.Transcript.Text != "went for a walk" {
				t.Fatalf("transcript = %+v", rec.Transcript)
			}
			break
		}
		select {
		case <-deadline:
			t.Fatalf("transcription never resolved, state=%s", rec.State)
		case <-time.After(10 * time.Millisecond):
		}
	}

	if rr := e.do(t, "POST", "/api/recordings/missing/transcribe", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("trigger missing: %d", rr.Code)
	}
}

func synthesizeDay(t *testing.T, e *testEnv) {
	t.Helper()
	e.createRecording(t, "rec-1", "2026-01-17T07:34:02")
	rr := e.do(t, "PATCH", "/api/recordings/rec-1", map[string]interface{}{
		"transcript":         "did some work then had lunch",
		"transcriptionState": "done",
	})
	if rr.Code != http.StatusOK {
		t.Fatalf("seed transcript: %d", rr.Code)
	}
	rr = e.do(t, "POST", "/api/schedule/synthesize", map[string]string{"date": "2026-01-17"})
	if rr.Code != http.StatusOK {
		t.Fatalf("synthesize: %d %s", rr.Code, rr.Body.String())
	}
}

func TestScheduleWorkflow(t *testing.T) {
	e := newTestEnv(t)
	synthesizeDay(t, e)

	// Pending batch is visible.
	rr := e.do(t, "GET", "/api/schedule/pending", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("pending: %d", rr.Code)
	}
	var pending model.PendingSchedule
	decodeInto(t, rr, &pending)
	if len(pending.Entries) != 2 {
		t.Fatalf("pending = %+v", pending)
	}

	// Reject with reason.
	rr = e.do(t, "POST", "/api/schedule/pending/e2/reject", map[string]string{"reason": "not lunch"})
	if rr.Code != http.StatusOK {
		t.Fatalf("reject: %d %s", rr.Code, rr.Body.String())
	}
	var rejected model.ScheduleEntry
	decodeInto(t, rr, &rejected)
	if rejected.Status != model.EntryRejected || rejected.RejectionReason == nil {
		t.Fatalf("rejected = %+v", rejected)
	}

	// Reject without a reason is a 400.
	if rr := e.do(t, "POST", "/api/schedule/pending/e2/reject", map[string]string{}); rr.Code != http.StatusBadRequest {
		t.Fatalf("reject without reason: %d", rr.Code)
	}

	// Correct re-enters review.
	rr = e.do(t, "POST", "/api/schedule/pending/e2/correct", map[string]string{"text": "it was coffee"})
	if rr.Code != http.StatusOK {
		t.Fatalf("correct: %d %s", rr.Code, rr.Body.String())
	}
	var corrected model.ScheduleEntry
	decodeInto(t, rr, &corrected)
	if corrected.Status != model.EntryPending || corrected.RejectionReason != nil {
		t.Fatalf("corrected = %+v", corrected)
	}

	// Approve one entry.
	rr = e.do(t, "POST", "/api/schedule/pending/e1/approve", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("approve: %d %s", rr.Code, rr.Body.String())
	}
	rr = e.do(t, "GET", "/api/schedule/approved", nil)
	var approved struct {
		Count int `json:"count"`
	}
	decodeInto(t, rr, &approved)
	if approved.Count != 1 {
		t.Fatalf("approved count = %d", approved.Count)
	}

	// Confirm the remainder.
	rr = e.do(t, "POST", "/api/schedule/confirm", nil)
	if rr.Code != http.StatusCreated {
		t.Fatalf("confirm: %d %s", rr.Code, rr.Body.String())
	}
	var confirmed model.ConfirmedSchedule
	decodeInto(t, rr, &confirmed)
	if len(confirmed.Entries) != 1 {
		t.Fatalf("confirmed = %+v", confirmed)
	}

	// Session is closed now.
	if rr := e.do(t, "GET", "/api/schedule/pending", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("pending after confirm: %d", rr.Code)
	}

	// Insights for the confirmed day.
	rr = e.do(t, "GET", "/api/schedule/confirmed/"+confirmed.ID+"/insights", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("insights: %d %s", rr.Code, rr.Body.String())
	}
	var report struct {
		Categories []struct {
			Category string `json:"category"`
			Duration int    `json:"duration"`
		} `json:"categories"`
	}
	decodeInto(t, rr, &report)
	if len(report.Categories) == 0 {
		t.Fatalf("insights = %s", rr.Body.String())
	}

	// Calendar export.
	rr = e.do(t, "GET", "/api/schedule/confirmed/"+confirmed.ID+"/calendar.ics", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("calendar: %d %s", rr.Code, rr.Body.String())
	}
	body := rr.Body.String()
	if !strings.HasPrefix(body, "BEGIN:VCALENDAR") || !strings.Contains(body, "UID:"+confirmed.ID+"-0@sunday-app") {
		t.Fatalf("calendar body = %q", body)
	}
	if ct := rr.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/calendar") {
		t.Fatalf("calendar content type = %q", ct)
	}
}

func TestSynthesizeRefinement(t *testing.T) {
	e := newTestEnv(t)
	synthesizeDay(t, e)

	rr := e.do(t, "POST", "/api/schedule/synthesize", map[string]string{"refinement": "merge the entries"})
	if rr.Code != http.StatusOK {
		t.Fatalf("refine: %d %s", rr.Code, rr.Body.String())
	}
	var pending model.PendingSchedule
	decodeInto(t, rr, &pending)
	if len(pending.ConversationHistory) != 3 {
		t.Fatalf("history = %d messages", len(pending.ConversationHistory))
	}
}

func TestSynthesizeErrors(t *testing.T) {
	e := newTestEnv(t)

	// No usable transcripts.
	rr := e.do(t, "POST", "/api/schedule/synthesize", map[string]string{"date": "2026-01-17"})
	if rr.Code != http.StatusUnprocessableEntity {
		t.Fatalf("no transcripts: %d %s", rr.Code, rr.Body.String())
	}

	// Upstream model failure surfaces as 502 and leaves no session.
	e.createRecording(t, "rec-1", "2026-01-17T07:34:02")
	e.do(t, "PATCH", "/api/recordings/rec-1", map[string]interface{}{
		"transcript":         "worked all day",
		"transcriptionState": "done",
	})
	e.synth.err = &synth.SynthesisError{Status: 429, Message: "quota exceeded"}
	rr = e.do(t, "POST", "/api/schedule/synthesize", map[string]string{"date": "2026-01-17"})
	if rr.Code != http.StatusBadGateway {
		t.Fatalf("synthesis failure: %d %s", rr.Code, rr.Body.String())
	}
	if rr := e.do(t, "GET", "/api/schedule/pending", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("pending after failure: %d", rr.Code)
	}
}

func TestResetSession(t *testing.T) {
	e := newTestEnv(t)
	synthesizeDay(t, e)

	if rr := e.do(t, "DELETE", "/api/schedule/pending", nil); rr.Code != http.StatusNoContent {
		t.Fatalf("reset: %d", rr.Code)
	}
	if rr := e.do(t, "GET", "/api/schedule/pending", nil); rr.Code != http.StatusNotFound {
		t.Fatalf("pending after reset: %d", rr.Code)
	}
}

func TestHealthEndpoint(t *testing.T) {
	e := newTestEnv(t)

	BindServiceHealth(func() bool { return true })
	t.Cleanup(func() { BindServiceHealth(func() bool { return false }) })

	rr := e.do(t, "GET", "/api/health", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("health: %d", rr.Code)
	}
	var body struct {
		Status string `json:"status"`
	}
	decodeInto(t, rr, &body)
	if body.Status != "healthy" {
		t.Fatalf("status = %q", body.Status)
	}
}
