package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// ElevenLabs calls the ElevenLabs speech-to-text API.
type ElevenLabs struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewElevenLabs builds the remote transcriber. baseURL defaults to the
// public API when empty; modelID defaults to scribe_v2.
func NewElevenLabs(apiKey, baseURL, modelID string) *ElevenLabs {
	if baseURL == "" {
		baseURL = "https://api.elevenlabs.io"
	}
	if modelID == "" {
		modelID = "scribe_v2"
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(2 * time.Minute)
	return &ElevenLabs{client: c, apiKey: apiKey, model: modelID}
}

type sttResponse struct {
	Text  string `json:"text"`
	Error string `json:"error"`
}

func (e *ElevenLabs) Transcribe(ctx context.Context, audio []byte, mimeType string) (model.Transcript, error) {
	resp, err := e.client.R().
		SetContext(ctx).
		SetHeader("xi-api-key", e.apiKey).
		SetFileReader("file", fileName(mimeType), bytes.NewReader(audio)).
		SetFormData(map[string]string{"model_id": e.model}).
		Post("/v1/speech-to-text")
	if err != nil {
		return model.Transcript{}, &ProviderError{Message: err.Error()}
	}

	var body sttResponse
	_ = json.Unmarshal(resp.Body(), &body)

	if resp.IsError() {
		msg := body.Error
		if msg == "" {
			msg = strings.TrimSpace(resp.String())
		}
		return model.Transcript{}, &ProviderError{Status: resp.StatusCode(), Message: msg}
	}

	text := strings.TrimSpace(body.Text)
	if text == "" {
		return model.TranscriptEmpty(), nil
	}
	return model.TranscriptOK(text), nil
}

func fileName(mimeType string) string {
	switch {
	case strings.Contains(mimeType, "wav"):
		return "audio.wav"
	case strings.Contains(mimeType, "mp4"):
		return "audio.mp4"
	default:
		return "audio.webm"
	}
}
