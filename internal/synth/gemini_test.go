package synth

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/sundaylabs/sunday-server/internal/model"
)

func TestGemini_GenerateContent(t *testing.T) {
	var gotPath, gotKey string
	var gotBody generateRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotKey = r.URL.Query().Get("key")
		if err := json.NewDecoder(r.Body).Decode(&gotBody); err != nil {
			t.Fatalf("decode body: %v", err)
		}
		_, _ = w.Write([]byte(`{"candidates":[{"content":{"parts":[{"text":"[{\"start_time\":"},{"text":"\"09:00 AM\"}]"}]}}]}`))
	}))
	defer srv.Close()

	g := NewGemini("secret", srv.URL, "gemini-2.5-flash-lite")
	contents := []model.ConversationMessage{
		{Role: "user", Parts: []model.Part{{Text: "hello"}}},
	}
	text, err := g.GenerateContent(context.Background(), contents)
	if err != nil {
		t.Fatalf("GenerateContent: %v", err)
	}

	if gotPath != "/v1beta/models/gemini-2.5-flash-lite:generateContent" {
		t.Fatalf("path = %q", gotPath)
	}
	if gotKey != "secret" {
		t.Fatalf("key = %q", gotKey)
	}
	if len(gotBody.Contents) != 1 || gotBody.Contents[0].Role != "user" {
		t.Fatalf("request contents = %+v", gotBody.Contents)
	}

	// Text parts of the first candidate are joined.
	want := "[{\"start_time\":\n\"09:00 AM\"}]"
	if text != want {
		t.Fatalf("text = %q, want %q", text, want)
	}
}

func TestGemini_NonSuccessStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
		_, _ = w.Write([]byte(`{"error":{"message":"quota exceeded"}}`))
	}))
	defer srv.Close()

	g := NewGemini("k", srv.URL, "")
	_, err := g.GenerateContent(context.Background(), nil)
	var se *SynthesisError
	if !errors.As(err, &se) {
		t.Fatalf("err = %v, want *SynthesisError", err)
	}
	if se.Status != http.StatusTooManyRequests {
		t.Fatalf("status = %d", se.Status)
	}
}

func TestGemini_NoCandidates(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"candidates":[]}`))
	}))
	defer srv.Close()

	g := NewGemini("k", srv.URL, "")
	_, err := g.GenerateContent(context.Background(), nil)
	var me *MalformedResponseError
	if !errors.As(err, &me) {
		t.Fatalf("err = %v, want *MalformedResponseError", err)
	}
}
