package transcribe

import (
	"context"
	"strings"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// Recognizer is an on-device speech recognition capability: the audio
// is replayed through a live recognizer and final results are
// collected until playback ends.
type Recognizer interface {
	// Available reports whether the capability exists on this host.
	Available() bool
	// Recognize replays the clip and returns the collected text.
	Recognize(ctx context.Context, audio []byte, mimeType string) (string, error)
}

// ReplayTranscriber adapts a Recognizer to the Transcriber interface.
type ReplayTranscriber struct {
	rec Recognizer
}

func NewReplayTranscriber(rec Recognizer) *ReplayTranscriber {
	return &ReplayTranscriber{rec: rec}
}

// Available is used at wiring time to decide whether this strategy can
// serve as a fallback.
func (r *ReplayTranscriber) Available() bool { return r.rec != nil && r.rec.Available() }

func (r *ReplayTranscriber) Transcribe(ctx context.Context, audio []byte, mimeType string) (model.Transcript, error) {
	if !r.Available() {
		return model.Transcript{}, &ProviderError{Message: "speech recognition is not available on this host"}
	}
	text, err := r.rec.Recognize(ctx, audio, mimeType)
	if err != nil {
		return model.Transcript{}, &ProviderError{Message: err.Error()}
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return model.TranscriptEmpty(), nil
	}
	return model.TranscriptOK(text), nil
}
