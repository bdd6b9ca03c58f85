package synth

import (
	"encoding/json"
	"fmt"

	"github.com/sundaylabs/sunday-server/internal/model"
)

const schedulePrompt = `You are a time tracking assistant. Convert the following voice note transcripts with time stamps of which the audio was recorded into a structured daily schedule.

Rules:
1. Return ONLY valid JSON - no markdown, no code blocks, no explanations
2. Each entry must have: start_time, end_time, description
3. Use 12-hour format for times (HH:mm AM/PM)
4. Hint: if users use past tense, the activity happened before the time stamp.

Example format:
[
  {"start_time": "07:34 AM", "end_time": "07:41 AM", "description": "Morning work session"},
  {"start_time": "07:41 AM", "end_time": "08:40 AM", "description": "Breakfast"}
]`

// transcriptPayload renders the day's transcript lines as the JSON
// document the model receives alongside the instructions.
func transcriptPayload(lines []model.TranscriptLine) (string, error) {
	b, err := json.MarshalIndent(lines, "", "  ")
	if err != nil {
		return "", err
	}
	return string(b), nil
}

// correctionPrompt asks for a single corrected entry as a bare JSON
// object.
func correctionPrompt(entry model.ScheduleEntry, correctionText string) string {
	note := ""
	if entry.Note != nil {
		note = fmt.Sprintf("- Note: %s\n", *entry.Note)
	}
	return fmt.Sprintf(`You are correcting a single schedule entry based on user feedback.

Original entry:
- Time: %s - %s
- Description: %s
%s
User correction: %s

Return ONLY a valid JSON object (not an array) with the corrected entry in this exact format:
{"start_time": "HH:mm AM/PM", "end_time": "HH:mm AM/PM", "description": "...", "note": "..."}

Rules:
- Use 12-hour format for times
- Be concise in descriptions
- If the user mentions additional context, put it in the note field
- Return ONLY the JSON object, no markdown, no code blocks`,
		entry.StartTime, entry.EndTime, entry.Description, note, correctionText)
}
