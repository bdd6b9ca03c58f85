// Package transcribe turns recorded audio into text. The remote
// ElevenLabs strategy is the default; a replay recognizer strategy
// covers environments with an on-device recognition capability.
package transcribe

import (
	"context"
	"fmt"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// Transcriber converts one audio clip to a transcript. Implementations
// return TranscriptOK or TranscriptEmpty on success; provider failures
// come back as *ProviderError with the upstream message preserved.
type Transcriber interface {
	Transcribe(ctx context.Context, audio []byte, mimeType string) (model.Transcript, error)
}

// ProviderError is a transcription provider failure. The message is
// the upstream human-readable error, passed through unmodified.
type ProviderError struct {
	Status  int
	Message string
}

func (e *ProviderError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("transcription provider: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("transcription provider: %s", e.Message)
}
