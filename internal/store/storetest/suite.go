// Package storetest provides a backend-agnostic compliance suite for
// store.Store implementations. Each adapter's tests call Run with a
// factory that returns a fresh, empty store.
package storetest

import (
	"context"
	"errors"
	"testing"

	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
)

// Run exercises every Store sub-interface against a fresh backend.
func Run(t *testing.T, makeStore func(t *testing.T) store.Store) {
	t.Helper()
	t.Run("Recordings", func(t *testing.T) { testRecordings(t, makeStore(t)) })
	t.Run("Pending", func(t *testing.T) { testPending(t, makeStore(t)) })
	t.Run("Approved", func(t *testing.T) { testApproved(t, makeStore(t)) })
	t.Run("Confirmed", func(t *testing.T) { testConfirmed(t, makeStore(t)) })
}

func testRecordings(t *testing.T, s store.Store) {
	ctx := context.Background()
	recs := s.Recordings()

	created, err := model.ParseLocalTime("2026-01-17T07:34:02")
	if err != nil {
		t.Fatalf("parse created_at: %v", err)
	}
	rec := &model.Recording{
		ID:         "rec-1",
		Audio:      []byte{0x1a, 0x45, 0xdf, 0xa3},
		MimeType:   "audio/webm",
		CreatedAt:  created,
		DurationMs: 4200,
	}
	saved, err := recs.Save(ctx, rec)
	if err != nil {
		t.Fatalf("Save: %v", err)
	}
	if saved.State != model.TranscriptionIdle {
		t.Fatalf("Save state = %q, want idle", saved.State)
	}

	got, err := recs.Get(ctx, "rec-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.CreatedAt.String() != "2026-01-17T07:34:02" {
		t.Fatalf("CreatedAt round-trip = %q", got.CreatedAt.String())
	}
	if !got.Transcript.IsZero() {
		t.Fatalf("fresh recording should have no transcript, got %+v", got.Transcript)
	}

	// Update transcript and state together.
	tr := model.TranscriptOK("walked the dog at 7am")
	st := model.TranscriptionDone
	got, err = recs.Update(ctx, "rec-1", store.RecordingUpdate{Transcript: &tr, State: &st})
	if err != nil {
		t.Fatalf("Update: %v", err)
	}
	if got.Transcript.Text != "walked the dog at 7am" || got.State != model.TranscriptionDone {
		t.Fatalf("Update result = %+v", got)
	}

	if _, err := recs.Update(ctx, "missing", store.RecordingUpdate{State: &st}); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Update missing = %v, want ErrNotFound", err)
	}
	if _, err := recs.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	// Second recording on a different day.
	created2, _ := model.ParseLocalTime("2026-01-18T09:00:00")
	if _, err := recs.Save(ctx, &model.Recording{
		ID: "rec-2", Audio: []byte{0x01}, MimeType: "audio/webm",
		CreatedAt: created2, DurationMs: 1000,
	}); err != nil {
		t.Fatalf("Save second: %v", err)
	}

	all, err := recs.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(all) != 2 || all[0].ID != "rec-2" {
		t.Fatalf("List should be newest first, got %d rows first=%v", len(all), all[0].ID)
	}

	day, err := recs.ListByDate(ctx, "2026-01-17")
	if err != nil {
		t.Fatalf("ListByDate: %v", err)
	}
	if len(day) != 1 || day[0].ID != "rec-1" {
		t.Fatalf("ListByDate = %v", day)
	}

	if err := recs.Delete(ctx, "rec-2"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if err := recs.Delete(ctx, "rec-2"); err != nil {
		t.Fatalf("Delete should be idempotent: %v", err)
	}
	if err := recs.Clear(ctx); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if all, _ := recs.List(ctx); len(all) != 0 {
		t.Fatalf("List after Clear = %d rows", len(all))
	}
}

func testPending(t *testing.T, s store.Store) {
	ctx := context.Background()
	p := s.Pending()

	if _, err := p.Get(ctx); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get empty = %v, want ErrNotFound", err)
	}

	first := &model.PendingSchedule{
		Entries: []model.ScheduleEntry{{
			ID: "e1", StartTime: "9:00 AM", EndTime: "10:00 AM",
			Description: "Reviewed the quarterly report", Status: model.EntryPending,
		}},
		ConversationHistory: []model.ConversationMessage{
			{Role: "user", Parts: []model.Part{{Text: "transcripts"}}},
		},
	}
	if err := p.Put(ctx, first); err != nil {
		t.Fatalf("Put: %v", err)
	}

	// Put replaces the singleton wholesale.
	second := &model.PendingSchedule{
		Entries: []model.ScheduleEntry{
			{ID: "e2", StartTime: "1:00 PM", EndTime: "2:00 PM", Description: "Ate lunch", Status: model.EntryPending},
			{ID: "e3", StartTime: "3:00 PM", EndTime: "4:00 PM", Description: "Went for a run", Status: model.EntryApproved},
		},
	}
	if err := p.Put(ctx, second); err != nil {
		t.Fatalf("Put replace: %v", err)
	}
	got, err := p.Get(ctx)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Entries) != 2 || got.Entries[0].ID != "e2" || got.Entries[1].Status != model.EntryApproved {
		t.Fatalf("Get after replace = %+v", got)
	}

	if err := p.Delete(ctx); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := p.Get(ctx); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get after Delete = %v, want ErrNotFound", err)
	}
	if err := p.Delete(ctx); err != nil {
		t.Fatalf("Delete should be idempotent: %v", err)
	}
}

func testApproved(t *testing.T, s store.Store) {
	ctx := context.Background()
	a := s.Approved()

	note := "brought the slides"
	entries := []*model.ApprovedEntry{
		{ID: "a1", EntryID: "e1", Date: "2026-01-17", StartTime: "9:00 AM", EndTime: "10:00 AM",
			Description: "Team standup", Note: &note, ApprovedAt: "2026-01-17T18:00:00"},
		{ID: "a2", EntryID: "e2", Date: "2026-01-17", StartTime: "12:00 PM", EndTime: "1:00 PM",
			Description: "Lunch with Sam", ApprovedAt: "2026-01-17T18:00:05"},
	}
	for _, e := range entries {
		if _, err := a.Append(ctx, e); err != nil {
			t.Fatalf("Append %s: %v", e.ID, err)
		}
	}

	got, err := a.List(ctx)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 2 || got[0].ID != "a1" || got[1].ID != "a2" {
		t.Fatalf("List should be approval order, got %+v", got)
	}
	if got[0].Note == nil || *got[0].Note != note {
		t.Fatalf("Note round-trip = %v", got[0].Note)
	}
	if got[1].Note != nil {
		t.Fatalf("absent note should stay nil, got %q", *got[1].Note)
	}

	if err := a.Delete(ctx, "a1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	got, _ = a.List(ctx)
	if len(got) != 1 || got[0].ID != "a2" {
		t.Fatalf("List after Delete = %+v", got)
	}
}

func testConfirmed(t *testing.T, s store.Store) {
	ctx := context.Background()
	c := s.Confirmed()

	sched := &model.ConfirmedSchedule{
		ID:   "sched-1",
		Date: "2026-01-17",
		Entries: []model.ScheduleEntry{
			{ID: "e1", StartTime: "9:00 AM", EndTime: "10:30 AM", Description: "Worked on the proposal", Status: model.EntryApproved},
		},
		ConversationHistory: []model.ConversationMessage{
			{Role: "user", Parts: []model.Part{{Text: "here are the transcripts"}}},
			{Role: "model", Parts: []model.Part{{Text: `[{"start_time":"9:00 AM"}]`}}},
		},
		SavedAt: "2026-01-17T21:00:00",
	}
	if _, err := c.Append(ctx, sched); err != nil {
		t.Fatalf("Append: %v", err)
	}

	got, err := c.Get(ctx, "sched-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if len(got.Entries) != 1 || got.Entries[0].Description != "Worked on the proposal" {
		t.Fatalf("Get entries = %+v", got.Entries)
	}
	if len(got.ConversationHistory) != 2 || got.ConversationHistory[1].Role != "model" {
		t.Fatalf("Get history = %+v", got.ConversationHistory)
	}

	if _, err := c.Get(ctx, "missing"); !errors.Is(err, model.ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}

	list, err := c.List(ctx)
	if err != nil || len(list) != 1 {
		t.Fatalf("List = %v, %v", list, err)
	}

	if err := c.Delete(ctx, "sched-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if list, _ := c.List(ctx); len(list) != 0 {
		t.Fatalf("List after Delete = %+v", list)
	}
}
