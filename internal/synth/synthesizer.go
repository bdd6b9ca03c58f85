// Package synth turns day transcripts into structured schedule entries
// via a conversational language model.
package synth

import (
	"context"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// correctionContextWindow limits how much prior conversation is resent
// with a single-entry correction (two user/model exchanges).
const correctionContextWindow = 4

// Synthesizer produces pending schedule entries from transcripts and
// supports iterative refinement and per-entry correction.
type Synthesizer struct {
	llm   LLM
	log   zerolog.Logger
	newID func() string
}

func NewSynthesizer(llm LLM, log zerolog.Logger) *Synthesizer {
	return &Synthesizer{
		llm:   llm,
		log:   log.With().Str("component", "synth").Logger(),
		newID: uuid.NewString,
	}
}

// Synthesize generates a fresh schedule from the day's transcript
// lines. The returned history includes the prompt and the model reply
// so later refinements reuse the same conversation.
func (s *Synthesizer) Synthesize(ctx context.Context, lines []model.TranscriptLine) ([]model.ScheduleEntry, []model.ConversationMessage, error) {
	payload, err := transcriptPayload(lines)
	if err != nil {
		return nil, nil, err
	}
	contents := []model.ConversationMessage{{
		Role:  "user",
		Parts: []model.Part{{Text: schedulePrompt}, {Text: payload}},
	}}
	return s.generate(ctx, contents)
}

// Refine appends a free-text instruction to an existing conversation
// and regenerates the whole batch.
func (s *Synthesizer) Refine(ctx context.Context, history []model.ConversationMessage, refinement string) ([]model.ScheduleEntry, []model.ConversationMessage, error) {
	contents := make([]model.ConversationMessage, 0, len(history)+1)
	contents = append(contents, history...)
	contents = append(contents, model.ConversationMessage{
		Role:  "user",
		Parts: []model.Part{{Text: refinement}},
	})
	return s.generate(ctx, contents)
}

func (s *Synthesizer) generate(ctx context.Context, contents []model.ConversationMessage) ([]model.ScheduleEntry, []model.ConversationMessage, error) {
	text, err := s.llm.GenerateContent(ctx, contents)
	if err != nil {
		return nil, nil, err
	}
	raw, err := parseEntryArray(text)
	if err != nil {
		s.log.Warn().Str("raw", text).Msg("unparseable schedule reply")
		return nil, nil, err
	}

	entries := make([]model.ScheduleEntry, 0, len(raw))
	for _, r := range raw {
		entries = append(entries, model.ScheduleEntry{
			ID:          s.newID(),
			StartTime:   r.StartTime,
			EndTime:     r.EndTime,
			Description: r.Description,
			Note:        r.Note,
			Status:      model.EntryPending,
		})
	}

	history := append(append([]model.ConversationMessage{}, contents...), model.ConversationMessage{
		Role:  "model",
		Parts: []model.Part{{Text: text}},
	})
	s.log.Debug().Int("entries", len(entries)).Msg("schedule synthesized")
	return entries, history, nil
}

// Correct rewrites a single entry from user feedback. The corrected
// entry keeps its id, falls back to the original fields when the model
// omits one, and re-enters review: status pending, rejection reason
// cleared.
func (s *Synthesizer) Correct(ctx context.Context, entry model.ScheduleEntry, correctionText string, history []model.ConversationMessage) (*model.ScheduleEntry, error) {
	recent := history
	if len(recent) > correctionContextWindow {
		recent = recent[len(recent)-correctionContextWindow:]
	}
	contents := make([]model.ConversationMessage, 0, len(recent)+1)
	contents = append(contents, recent...)
	contents = append(contents, model.ConversationMessage{
		Role:  "user",
		Parts: []model.Part{{Text: correctionPrompt(entry, correctionText)}},
	})

	text, err := s.llm.GenerateContent(ctx, contents)
	if err != nil {
		return nil, err
	}
	raw, err := parseEntryObject(text)
	if err != nil {
		s.log.Warn().Str("raw", text).Msg("unparseable correction reply")
		return nil, err
	}

	out := entry
	if raw.StartTime != "" {
		out.StartTime = raw.StartTime
	}
	if raw.EndTime != "" {
		out.EndTime = raw.EndTime
	}
	if raw.Description != "" {
		out.Description = raw.Description
	}
	if raw.Note != nil {
		out.Note = raw.Note
	}
	out.Status = model.EntryPending
	out.RejectionReason = nil
	return &out, nil
}
