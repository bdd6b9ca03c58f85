package ical

import (
	"strings"
	"testing"
	"time"

	"github.com/sundaylabs/sunday-server/internal/model"
)

func testSchedule() *model.ConfirmedSchedule {
	return &model.ConfirmedSchedule{
		ID:   "schedule_abc",
		Date: "2026-01-17",
		Entries: []model.ScheduleEntry{
			{StartTime: "07:34 AM", EndTime: "07:41 AM", Description: "Morning work session"},
			{StartTime: "12:30 PM", EndTime: "01:15 PM", Description: "Lunch, then errands"},
		},
		SavedAt: "2026-01-17T21:00:00",
	}
}

func TestEncode(t *testing.T) {
	now := time.Date(2026, 1, 17, 21, 5, 30, 0, time.Local)
	out, err := Encode(testSchedule(), now)
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}

	if !strings.Contains(out, "\r\n") {
		t.Fatal("output must be CRLF separated")
	}
	lines := strings.Split(out, "\r\n")
	if lines[0] != "BEGIN:VCALENDAR" || lines[len(lines)-1] != "END:VCALENDAR" {
		t.Fatalf("calendar framing wrong: %q ... %q", lines[0], lines[len(lines)-1])
	}

	for _, want := range []string{
		"PRODID:-//Sunday App//Schedule//EN",
		"DTSTART:20260117T073400",
		"DTEND:20260117T074100",
		"SUMMARY:Morning work session",
		"UID:schedule_abc-0@sunday-app",
		"UID:schedule_abc-1@sunday-app",
		"DTSTART:20260117T123000",
		"DTEND:20260117T131500",
		"DTSTAMP:20260117T210530",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("missing %q in output", want)
		}
	}

	if got := strings.Count(out, "BEGIN:VEVENT"); got != 2 {
		t.Fatalf("VEVENT count = %d", got)
	}

	// Commas in summaries are escaped per RFC 5545.
	if !strings.Contains(out, "SUMMARY:Lunch\\, then errands") {
		t.Error("comma not escaped in summary")
	}
}

func TestEncode_BadDate(t *testing.T) {
	s := testSchedule()
	s.Date = "Jan 17"
	if _, err := Encode(s, time.Now()); err == nil {
		t.Fatal("expected error for bad date")
	}
}

func TestEncode_BadEntryTime(t *testing.T) {
	s := testSchedule()
	s.Entries[0].StartTime = "early"
	if _, err := Encode(s, time.Now()); err == nil {
		t.Fatal("expected error for bad entry time")
	}
}

func TestFilename(t *testing.T) {
	if got := Filename(testSchedule()); got != "schedule-2026-01-17.ics" {
		t.Fatalf("Filename = %q", got)
	}
}
