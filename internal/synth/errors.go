package synth

import "fmt"

// SynthesisError is a failed language-model call. Status and message
// come from the upstream response; there are no automatic retries.
type SynthesisError struct {
	Status  int
	Message string
}

func (e *SynthesisError) Error() string {
	return fmt.Sprintf("schedule synthesis: status %d: %s", e.Status, e.Message)
}

// MalformedResponseError is a model reply that could not be parsed
// into schedule entries. Raw preserves the reply for diagnostics.
type MalformedResponseError struct {
	Raw    string
	Reason string
}

func (e *MalformedResponseError) Error() string {
	return fmt.Sprintf("malformed model response: %s", e.Reason)
}
