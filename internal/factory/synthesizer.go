package factory

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/sundaylabs/sunday-server/internal/config"
	"github.com/sundaylabs/sunday-server/internal/synth"
)

// NewSynthesizer builds the Gemini-backed schedule synthesizer.
func NewSynthesizer(cfg *config.Config, log zerolog.Logger) (*synth.Synthesizer, error) {
	if cfg.GeminiAPIKey == "" {
		return nil, fmt.Errorf("SUNDAY_GEMINI_API_KEY is required for schedule synthesis")
	}
	llm := synth.NewGemini(cfg.GeminiAPIKey, cfg.GeminiBaseURL, cfg.GeminiModel)
	return synth.NewSynthesizer(llm, log), nil
}
