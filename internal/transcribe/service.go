package transcribe

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/model"
	"github.com/sundaylabs/sunday-server/internal/store"
)

// Service runs transcription for stored recordings with an idempotence
// guard: a recording that is already in_progress or done is left alone.
type Service struct {
	store       store.Store
	transcriber Transcriber
	log         zerolog.Logger

	// claimMu makes the read-state-then-mark-in_progress step atomic so
	// concurrent triggers for the same recording cannot both claim it.
	claimMu sync.Mutex
}

func NewService(st store.Store, tr Transcriber, log zerolog.Logger) *Service {
	return &Service{
		store:       st,
		transcriber: tr,
		log:         log.With().Str("component", "transcribe").Logger(),
	}
}

// Transcribe resolves the recording's transcript. The state is moved
// to in_progress before the provider call and always resolves to done
// or failed, never left in_progress. Re-entrant calls for a recording
// already in_progress or done are no-ops.
func (s *Service) Transcribe(ctx context.Context, recordingID string) (*model.Recording, error) {
	rec, claimed, err := s.claim(ctx, recordingID)
	if err != nil {
		return nil, err
	}
	if !claimed {
		return rec, nil
	}

	transcript, terr := s.transcriber.Transcribe(ctx, rec.Audio, rec.MimeType)
	state := model.TranscriptionDone
	if terr != nil {
		s.log.Warn().Err(terr).Str("recordingId", recordingID).Msg("transcription failed")
		transcript = model.TranscriptFailed(providerMessage(terr))
		state = model.TranscriptionFailed
	}

	updated, err := s.store.Recordings().Update(ctx, recordingID, store.RecordingUpdate{
		Transcript: &transcript,
		State:      &state,
	})
	if err != nil {
		return nil, fmt.Errorf("store transcript: %w", err)
	}
	s.log.Debug().Str("recordingId", recordingID).Str("state", string(state)).Msg("transcription resolved")
	return updated, nil
}

// claim moves an unclaimed recording to in_progress and reports whether
// this caller won the claim. Losers get the current row back unchanged.
func (s *Service) claim(ctx context.Context, recordingID string) (*model.Recording, bool, error) {
	s.claimMu.Lock()
	defer s.claimMu.Unlock()

	rec, err := s.store.Recordings().Get(ctx, recordingID)
	if err != nil {
		return nil, false, err
	}
	switch rec.State {
	case model.TranscriptionInProgress, model.TranscriptionDone:
		return rec, false, nil
	}

	inProgress := model.TranscriptionInProgress
	if _, err := s.store.Recordings().Update(ctx, recordingID, store.RecordingUpdate{State: &inProgress}); err != nil {
		return nil, false, fmt.Errorf("mark in_progress: %w", err)
	}
	return rec, true, nil
}

func providerMessage(err error) string {
	if pe, ok := err.(*ProviderError); ok {
		return pe.Message
	}
	return err.Error()
}
