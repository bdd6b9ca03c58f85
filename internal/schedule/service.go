// Package schedule manages the pending/approved/confirmed review
// workflow over synthesized schedule entries.
package schedule

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
)

// ErrSynthesisInFlight rejects a second synthesis while one is
// running; the conversation history is not safe for concurrent
// appends, so callers retry instead of queueing.
var ErrSynthesisInFlight = errors.New("a synthesis call is already in flight")

// ErrNoTranscripts means no recording of the requested day carries a
// usable transcript to synthesize from.
var ErrNoTranscripts = errors.New("no usable transcripts to synthesize from")

// Synthesizer is the language-model pipeline the service drives.
type Synthesizer interface {
	Synthesize(ctx context.Context, lines []model.TranscriptLine) ([]model.ScheduleEntry, []model.ConversationMessage, error)
	Refine(ctx context.Context, history []model.ConversationMessage, refinement string) ([]model.ScheduleEntry, []model.ConversationMessage, error)
	Correct(ctx context.Context, entry model.ScheduleEntry, correctionText string, history []model.ConversationMessage) (*model.ScheduleEntry, error)
}

// Service wires the synthesizer to persisted schedule state. Every
// mutation is written through to the store before it is visible.
type Service struct {
	store store.Store
	synth Synthesizer
	log   zerolog.Logger

	now   func() time.Time
	newID func() string

	synthMu sync.Mutex
}

func NewService(st store.Store, sy Synthesizer, log zerolog.Logger) *Service {
	return &Service{
		store: st,
		synth: sy,
		log:   log.With().Str("component", "schedule").Logger(),
		now:   time.Now,
		newID: uuid.NewString,
	}
}

// Pending returns the current in-review batch, or model.ErrNotFound
// when no synthesis session is open.
func (s *Service) Pending(ctx context.Context) (*model.PendingSchedule, error) {
	return s.store.Pending().Get(ctx)
}

// Synthesize builds a fresh pending schedule from the day's usable
// transcripts, replacing any existing batch. date selects recordings
// by local day; empty means all recordings. Concurrent calls are
// rejected with ErrSynthesisInFlight.
func (s *Service) Synthesize(ctx context.Context, date string) (*model.PendingSchedule, error) {
	if !s.synthMu.TryLock() {
		return nil, ErrSynthesisInFlight
	}
	defer s.synthMu.Unlock()

	lines, err := s.transcriptLines(ctx, date)
	if err != nil {
		return nil, err
	}
	if len(lines) == 0 {
		return nil, ErrNoTranscripts
	}

	entries, history, err := s.synth.Synthesize(ctx, lines)
	if err != nil {
		return nil, err
	}
	if date == "" {
		date = s.now().Format("2006-01-02")
	}
	return s.replaceAll(ctx, date, entries, history)
}

// Refine reruns the batch with a free-text instruction appended to the
// open session's conversation.
func (s *Service) Refine(ctx context.Context, refinement string) (*model.PendingSchedule, error) {
	if !s.synthMu.TryLock() {
		return nil, ErrSynthesisInFlight
	}
	defer s.synthMu.Unlock()

	pending, err := s.store.Pending().Get(ctx)
	if err != nil {
		return nil, err
	}
	entries, history, err := s.synth.Refine(ctx, pending.ConversationHistory, refinement)
	if err != nil {
		return nil, err
	}
	return s.replaceAll(ctx, pending.Date, entries, history)
}

// replaceAll overwrites the pending batch wholesale. Prior per-entry
// decisions on entries no longer present are lost; entries are never
// matched across batches.
func (s *Service) replaceAll(ctx context.Context, date string, entries []model.ScheduleEntry, history []model.ConversationMessage) (*model.PendingSchedule, error) {
	now := s.now()
	pending := &model.PendingSchedule{
		ID:                  "pending_" + s.newID(),
		Date:                date,
		Entries:             entries,
		ConversationHistory: history,
		CreatedAt:           model.NewLocalTime(now).String(),
	}
	if err := s.store.Pending().Put(ctx, pending); err != nil {
		return nil, fmt.Errorf("persist pending schedule: %w", err)
	}
	s.log.Debug().Int("entries", len(entries)).Msg("pending schedule replaced")
	return pending, nil
}

// transcriptLines collects usable transcripts oldest first.
func (s *Service) transcriptLines(ctx context.Context, date string) ([]model.TranscriptLine, error) {
	var recs []*model.Recording
	var err error
	if date != "" {
		recs, err = s.store.Recordings().ListByDate(ctx, date)
	} else {
		recs, err = s.store.Recordings().List(ctx)
	}
	if err != nil {
		return nil, err
	}
	lines := make([]model.TranscriptLine, 0, len(recs))
	for i := len(recs) - 1; i >= 0; i-- {
		if !recs[i].HasUsableTranscript() {
			continue
		}
		lines = append(lines, model.TranscriptLine{
			Timestamp:  recs[i].CreatedAt.String(),
			Transcript: recs[i].Transcript.Text,
		})
	}
	return lines, nil
}

// Approve copies the entry into the approved archive and removes it
// from the pending set. Emptying the set clears the whole session so
// the next schedule starts from a fresh synthesis.
func (s *Service) Approve(ctx context.Context, entryID string) (*model.ApprovedEntry, error) {
	pending, err := s.store.Pending().Get(ctx)
	if err != nil {
		return nil, err
	}
	idx := findEntry(pending.Entries, entryID)
	if idx == -1 {
		return nil, fmt.Errorf("pending entry %s: %w", entryID, model.ErrNotFound)
	}
	entry := pending.Entries[idx]

	approved := &model.ApprovedEntry{
		ID:          "approved_" + s.newID(),
		EntryID:     entry.ID,
		Date:        pending.Date,
		StartTime:   entry.StartTime,
		EndTime:     entry.EndTime,
		Description: entry.Description,
		Note:        entry.Note,
		ApprovedAt:  model.NewLocalTime(s.now()).String(),
	}
	if _, err := s.store.Approved().Append(ctx, approved); err != nil {
		return nil, fmt.Errorf("archive approved entry: %w", err)
	}

	pending.Entries = append(pending.Entries[:idx], pending.Entries[idx+1:]...)
	var perr error
	if len(pending.Entries) == 0 {
		perr = s.store.Pending().Delete(ctx)
	} else {
		perr = s.store.Pending().Put(ctx, pending)
	}
	if perr != nil {
		// Undo the archive write so the entry is not both archived and
		// still pending; a retry would double-archive it otherwise.
		if derr := s.store.Approved().Delete(ctx, approved.ID); derr != nil {
			s.log.Error().Err(derr).Str("approvedId", approved.ID).Msg("rollback of approved entry failed")
		}
		return nil, fmt.Errorf("update pending schedule: %w", perr)
	}
	if len(pending.Entries) == 0 {
		s.log.Debug().Msg("pending schedule emptied, session cleared")
	}
	return approved, nil
}

// Reject marks the entry rejected with a reason. Nothing is discarded;
// the entry can re-enter review through Correct.
func (s *Service) Reject(ctx context.Context, entryID, reason string) (*model.ScheduleEntry, error) {
	pending, err := s.store.Pending().Get(ctx)
	if err != nil {
		return nil, err
	}
	idx := findEntry(pending.Entries, entryID)
	if idx == -1 {
		return nil, fmt.Errorf("pending entry %s: %w", entryID, model.ErrNotFound)
	}
	pending.Entries[idx].Status = model.EntryRejected
	pending.Entries[idx].RejectionReason = &reason
	if err := s.store.Pending().Put(ctx, pending); err != nil {
		return nil, err
	}
	out := pending.Entries[idx]
	return &out, nil
}

// Correct rewrites one entry from user feedback via the synthesizer.
// On failure the pending state is left untouched so a retry reuses the
// same conversation.
func (s *Service) Correct(ctx context.Context, entryID, correctionText string) (*model.ScheduleEntry, error) {
	pending, err := s.store.Pending().Get(ctx)
	if err != nil {
		return nil, err
	}
	idx := findEntry(pending.Entries, entryID)
	if idx == -1 {
		return nil, fmt.Errorf("pending entry %s: %w", entryID, model.ErrNotFound)
	}

	corrected, err := s.synth.Correct(ctx, pending.Entries[idx], correctionText, pending.ConversationHistory)
	if err != nil {
		return nil, err
	}
	pending.Entries[idx] = *corrected
	if err := s.store.Pending().Put(ctx, pending); err != nil {
		return nil, err
	}
	return corrected, nil
}

// Confirm snapshots the whole pending batch into the confirmed archive
// and closes the session.
func (s *Service) Confirm(ctx context.Context) (*model.ConfirmedSchedule, error) {
	pending, err := s.store.Pending().Get(ctx)
	if err != nil {
		return nil, err
	}
	confirmed := &model.ConfirmedSchedule{
		ID:                  "schedule_" + s.newID(),
		Date:                pending.Date,
		Entries:             pending.Entries,
		ConversationHistory: pending.ConversationHistory,
		SavedAt:             model.NewLocalTime(s.now()).String(),
	}
	if _, err := s.store.Confirmed().Append(ctx, confirmed); err != nil {
		return nil, fmt.Errorf("archive confirmed schedule: %w", err)
	}
	if err := s.store.Pending().Delete(ctx); err != nil {
		return nil, err
	}
	s.log.Debug().Str("scheduleId", confirmed.ID).Msg("schedule confirmed")
	return confirmed, nil
}

// Reset discards the open session without archiving anything.
func (s *Service) Reset(ctx context.Context) error {
	return s.store.Pending().Delete(ctx)
}

func (s *Service) Approved(ctx context.Context) ([]*model.ApprovedEntry, error) {
	return s.store.Approved().List(ctx)
}

func (s *Service) DeleteApproved(ctx context.Context, id string) error {
	return s.store.Approved().Delete(ctx, id)
}

func (s *Service) Confirmed(ctx context.Context) ([]*model.ConfirmedSchedule, error) {
	return s.store.Confirmed().List(ctx)
}

func (s *Service) GetConfirmed(ctx context.Context, id string) (*model.ConfirmedSchedule, error) {
	return s.store.Confirmed().Get(ctx, id)
}

func (s *Service) DeleteConfirmed(ctx context.Context, id string) error {
	return s.store.Confirmed().Delete(ctx, id)
}

func findEntry(entries []model.ScheduleEntry, id string) int {
	for i := range entries {
		if entries[i].ID == id {
			return i
		}
	}
	return -1
}
