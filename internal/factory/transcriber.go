package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/config"
	"github.com/sundaylabs/sunday-server/internal/transcribe"
)

// NewTranscriber selects the speech-to-text strategy. "recognizer" is
// reserved for deployments with an injected on-device recognizer; the
// server build has none, so it refuses rather than silently degrading.
func NewTranscriber(cfg *config.Config, log zerolog.Logger) (transcribe.Transcriber, error) {
	switch cfg.TranscribeProvider {
	case "elevenlabs":
		if cfg.ElevenLabsAPIKey == "" {
			return nil, fmt.Errorf("SUNDAY_ELEVENLABS_API_KEY is required for the elevenlabs provider")
		}
		return transcribe.NewElevenLabs(cfg.ElevenLabsAPIKey, cfg.ElevenLabsBaseURL, cfg.ElevenLabsModelID), nil
	case "recognizer":
		return nil, fmt.Errorf("recognizer provider needs an injected recognizer; none is available in this build")
	default:
		return nil, fmt.Errorf("unknown TRANSCRIBE_PROVIDER: %s", cfg.TranscribeProvider)
	}
}
