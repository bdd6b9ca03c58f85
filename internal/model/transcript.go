package model

import (
	"encoding/json"
	"strings"
)

// TranscriptKind discriminates the three transcription outcomes.
type TranscriptKind string

const (
	TranscriptKindNone   TranscriptKind = ""       // not transcribed yet
	TranscriptKindOK     TranscriptKind = "ok"     // real speech recognized
	TranscriptKindEmpty  TranscriptKind = "empty"  // recognizer ran, no speech
	TranscriptKindFailed TranscriptKind = "failed" // service or recognizer error
)

// Sentinel strings used by the legacy single-field representation. They
// still appear on the wire so existing clients keep working.
const (
	legacyNoSpeech     = "No speech detected"
	legacyFailedPrefix = "Transcription failed"
)

// Transcript is a tagged transcription result. Success text, the
// "no speech" outcome, and failure reasons used to share one string field
// distinguished by prefix; the tag makes the three cases explicit.
type Transcript struct {
	Kind   TranscriptKind `json:"kind"`
	Text   string         `json:"text,omitempty"`
	Reason string         `json:"reason,omitempty"`
}

func TranscriptOK(text string) Transcript {
	return Transcript{Kind: TranscriptKindOK, Text: text}
}

func TranscriptEmpty() Transcript {
	return Transcript{Kind: TranscriptKindEmpty}
}

func TranscriptFailed(reason string) Transcript {
	return Transcript{Kind: TranscriptKindFailed, Reason: reason}
}

// IsZero reports whether no transcription has happened yet.
func (t Transcript) IsZero() bool { return t.Kind == TranscriptKindNone }

// Legacy renders the single-string form used by the storage schema and by
// older clients: the text itself, "No speech detected", or a
// "Transcription failed: ..." string.
func (t Transcript) Legacy() string {
	switch t.Kind {
	case TranscriptKindOK:
		return t.Text
	case TranscriptKindEmpty:
		return legacyNoSpeech
	case TranscriptKindFailed:
		if t.Reason == "" {
			return legacyFailedPrefix
		}
		return legacyFailedPrefix + ": " + t.Reason
	default:
		return ""
	}
}

// ParseLegacyTranscript reconstructs a Transcript from the single-string
// form, for rows written before the tagged representation existed.
func ParseLegacyTranscript(s string) Transcript {
	switch {
	case s == "":
		return Transcript{}
	case s == legacyNoSpeech:
		return TranscriptEmpty()
	case strings.HasPrefix(s, legacyFailedPrefix):
		reason := strings.TrimPrefix(s, legacyFailedPrefix)
		reason = strings.TrimPrefix(reason, ": ")
		return TranscriptFailed(reason)
	default:
		return TranscriptOK(s)
	}
}

// MarshalJSON keeps the zero value compact ("null") so untranscribed
// recordings serialize without an empty object.
func (t Transcript) MarshalJSON() ([]byte, error) {
	if t.IsZero() {
		return []byte("null"), nil
	}
	type alias Transcript
	return json.Marshal(alias(t))
}

// UnmarshalJSON accepts null, the tagged object, or a bare legacy string.
func (t *Transcript) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*t = Transcript{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*t = ParseLegacyTranscript(s)
		return nil
	}
	type alias Transcript
	var a alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*t = Transcript(a)
	return nil
}
