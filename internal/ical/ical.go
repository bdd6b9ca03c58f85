// Package ical renders confirmed schedules as iCalendar documents.
package ical

import (
	"fmt"
	"strings"
	"time"

	"github.com/sundaylabs/sunday-server/internal/insights"
	"github.com/sundaylabs/sunday-server/internal/model"
)

const prodID = "-//Sunday App//Schedule//EN"

// Encode renders the schedule as a VCALENDAR document, one VEVENT per
// entry, CRLF line endings. Event times are local date-times on the
// schedule's day; UIDs are stable across exports of the same schedule.
func Encode(schedule *model.ConfirmedSchedule, now time.Time) (string, error) {
	day, err := time.ParseInLocation("2006-01-02", schedule.Date, time.Local)
	if err != nil {
		return "", fmt.Errorf("bad schedule date %q: %w", schedule.Date, err)
	}

	lines := []string{
		"BEGIN:VCALENDAR",
		"VERSION:2.0",
		"PRODID:" + prodID,
		"CALSCALE:GREGORIAN",
		"METHOD:PUBLISH",
	}
	stamp := formatDateTime(now)

	for i, entry := range schedule.Entries {
		start, err := entryTime(day, entry.StartTime)
		if err != nil {
			return "", err
		}
		end, err := entryTime(day, entry.EndTime)
		if err != nil {
			return "", err
		}
		lines = append(lines,
			"BEGIN:VEVENT",
			"DTSTART:"+formatDateTime(start),
			"DTEND:"+formatDateTime(end),
			"SUMMARY:"+escapeText(entry.Description),
			fmt.Sprintf("UID:%s-%d@sunday-app", schedule.ID, i),
			"DTSTAMP:"+stamp,
			"END:VEVENT",
		)
	}

	lines = append(lines, "END:VCALENDAR")
	return strings.Join(lines, "\r\n"), nil
}

// Filename is the suggested download name for the exported day.
func Filename(schedule *model.ConfirmedSchedule) string {
	return fmt.Sprintf("schedule-%s.ics", schedule.Date)
}

func entryTime(day time.Time, clock string) (time.Time, error) {
	minutes, err := insights.ParseClockMinutes(clock)
	if err != nil {
		return time.Time{}, err
	}
	return day.Add(time.Duration(minutes) * time.Minute), nil
}

func formatDateTime(t time.Time) string {
	return t.Format("20060102T150405")
}

// escapeText applies the RFC 5545 TEXT escapes.
func escapeText(s string) string {
	r := strings.NewReplacer(
		"\\", "\\\\",
		";", "\\;",
		",", "\\,",
		"\n", "\\n",
	)
	return r.Replace(s)
}
