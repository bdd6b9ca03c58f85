package model

// TranscriptionState tracks the lifecycle of a recording's transcription.
type TranscriptionState string

const (
	TranscriptionIdle       TranscriptionState = "idle"
	TranscriptionInProgress TranscriptionState = "in_progress"
	TranscriptionDone       TranscriptionState = "done"
	TranscriptionFailed     TranscriptionState = "failed"
)

// Recording is one captured or uploaded audio clip with metadata.
// CreatedAt is a local-naive wall-clock value (see LocalTime); a clip
// recorded at 7:34 AM always reports 7:34 AM, in every viewer timezone.
type Recording struct {
	ID         string             `json:"id"`
	Audio      []byte             `json:"-"`
	MimeType   string             `json:"mimeType"`
	CreatedAt  LocalTime          `json:"createdAt"`
	DurationMs int64              `json:"durationMs"`
	Transcript Transcript         `json:"transcript"`
	State      TranscriptionState `json:"transcriptionState"`
}

// HasUsableTranscript reports whether the recording contributes to
// schedule synthesis: transcription finished and produced real speech.
func (r *Recording) HasUsableTranscript() bool {
	return r.State == TranscriptionDone && r.Transcript.Kind == TranscriptKindOK
}

// ScheduleEntryStatus is the review status of a single schedule entry.
type ScheduleEntryStatus string

const (
	EntryPending  ScheduleEntryStatus = "pending"
	EntryApproved ScheduleEntryStatus = "approved"
	EntryRejected ScheduleEntryStatus = "rejected"
)

// ScheduleEntry is one time-bounded activity block derived from transcripts.
// Times are 12-hour clock strings ("07:34 AM") as produced by the model.
type ScheduleEntry struct {
	ID              string              `json:"id"`
	StartTime       string              `json:"start_time"`
	EndTime         string              `json:"end_time"`
	Description     string              `json:"description"`
	Note            *string             `json:"note,omitempty"`
	Status          ScheduleEntryStatus `json:"status"`
	RejectionReason *string             `json:"rejectionReason,omitempty"`
}

// PendingSchedule is the current in-review batch of entries plus the
// model conversation that produced it. There is at most one per session;
// each synthesis call replaces it wholesale.
type PendingSchedule struct {
	ID                  string                `json:"id"`
	Date                string                `json:"date"`
	Entries             []ScheduleEntry       `json:"entries"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
	CreatedAt           string                `json:"createdAt"`
}

// ApprovedEntry is the archival copy of an individually approved entry.
// It back-references the pending entry it came from but is independent of
// it after approval; the archive is append-only.
type ApprovedEntry struct {
	ID          string  `json:"id"`
	EntryID     string  `json:"entryId"`
	Date        string  `json:"date"`
	StartTime   string  `json:"start_time"`
	EndTime     string  `json:"end_time"`
	Description string  `json:"description"`
	Note        *string `json:"note,omitempty"`
	ApprovedAt  string  `json:"approvedAt"`
}

// ConfirmedSchedule is a whole-day snapshot archived by the bulk confirm
// action; insights and calendar export read from it. Append-only.
type ConfirmedSchedule struct {
	ID                  string                `json:"id"`
	Date                string                `json:"date"`
	Entries             []ScheduleEntry       `json:"scheduleData"`
	ConversationHistory []ConversationMessage `json:"conversationHistory"`
	SavedAt             string                `json:"savedAt"`
}

// ConversationMessage is one turn of the language-model dialogue.
type ConversationMessage struct {
	Role  string `json:"role"` // "user" or "model"
	Parts []Part `json:"parts"`
}

// Part is a text fragment of a conversation message.
type Part struct {
	Text string `json:"text"`
}

// TranscriptLine pairs a recording's wall-clock timestamp with its
// transcript; a day's lines form the synthesis prompt payload.
type TranscriptLine struct {
	Timestamp  string `json:"timestamp"`
	Transcript string `json:"transcript"`
}
