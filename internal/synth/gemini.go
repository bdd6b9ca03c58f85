package synth

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// LLM is the conversational generate-content boundary. It accepts an
// ordered message list and returns the first candidate's text.
type LLM interface {
	GenerateContent(ctx context.Context, contents []model.ConversationMessage) (string, error)
}

// Gemini calls the Google generative language REST API.
type Gemini struct {
	client *resty.Client
	apiKey string
	model  string
}

// NewGemini builds the client. baseURL defaults to the public endpoint
// when empty; modelID defaults to gemini-2.5-flash-lite.
func NewGemini(apiKey, baseURL, modelID string) *Gemini {
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}
	if modelID == "" {
		modelID = "gemini-2.5-flash-lite"
	}
	c := resty.New().
		SetBaseURL(baseURL).
		SetHeader("Content-Type", "application/json").
		SetTimeout(2 * time.Minute)
	return &Gemini{client: c, apiKey: apiKey, model: modelID}
}

type generateRequest struct {
	Contents []model.ConversationMessage `json:"contents"`
}

type generateResponse struct {
	Candidates []struct {
		Content struct {
			Parts []struct {
				Text string `json:"text"`
			} `json:"parts"`
		} `json:"content"`
	} `json:"candidates"`
}

func (g *Gemini) GenerateContent(ctx context.Context, contents []model.ConversationMessage) (string, error) {
	path := fmt.Sprintf("/v1beta/models/%s:generateContent", g.model)
	resp, err := g.client.R().
		SetContext(ctx).
		SetQueryParam("key", g.apiKey).
		SetBody(&generateRequest{Contents: contents}).
		Post(path)
	if err != nil {
		return "", &SynthesisError{Message: err.Error()}
	}
	if resp.IsError() {
		return "", &SynthesisError{Status: resp.StatusCode(), Message: strings.TrimSpace(resp.String())}
	}

	var body generateResponse
	if err := json.Unmarshal(resp.Body(), &body); err != nil {
		return "", &MalformedResponseError{Raw: resp.String(), Reason: err.Error()}
	}
	if len(body.Candidates) == 0 {
		return "", &MalformedResponseError{Raw: resp.String(), Reason: "no candidates in response"}
	}
	var texts []string
	for _, p := range body.Candidates[0].Content.Parts {
		if p.Text != "" {
			texts = append(texts, p.Text)
		}
	}
	return strings.TrimSpace(strings.Join(texts, "\n")), nil
}
