// Package insights computes per-category time distribution for a
// confirmed day schedule.
package insights

import (
	"fmt"
	"sort"
	"strings"

	"github.com/sundaylabs/sunday-server/internal/model"
)

// Category is one slice of the day's time distribution.
type Category struct {
	Category   string   `json:"category"`
	Minutes    int      `json:"duration"`
	Percentage float64  `json:"percentage"`
	Activities []string `json:"activities"`
}

// categoryKeywords maps substring matches to categories, checked in
// order; the first hit wins. Work goes first as the most specific.
var categoryKeywords = []struct {
	name     string
	keywords []string
}{
	{"Work", []string{"work", "meeting", "task", "project", "sprint", "brainstorm"}},
	{"Meals", []string{"breakfast", "lunch", "dinner", "eat", "meal"}},
	{"Exercise", []string{"gym", "exercise", "workout", "run", "fitness"}},
	{"Travel", []string{"travel", "commute", "driving", "drive", "transit"}},
	{"Social", []string{"social", "friend", "family", "call", "event", "team"}},
	{"Shopping", []string{"shop", "grocery", "errand", "store"}},
	{"Personal Care", []string{"clean", "chores", "laundry", "morning routine", "getting ready", "shower", "routine"}},
	{"Entertainment", []string{"youtube", "tv", "video", "watch", "game", "movie"}},
	{"Learning", []string{"read", "study", "course", "class", "training"}},
}

// Categorize assigns an activity description to a category by keyword.
func Categorize(description string) string {
	lower := strings.ToLower(description)
	for _, c := range categoryKeywords {
		for _, kw := range c.keywords {
			if strings.Contains(lower, kw) {
				return c.name
			}
		}
	}
	return "Other"
}

// ParseClockMinutes converts a 12-hour clock string ("07:34 AM") to
// minutes since midnight.
func ParseClockMinutes(clock string) (int, error) {
	var hours, minutes int
	var period string
	if _, err := fmt.Sscanf(strings.TrimSpace(clock), "%d:%d %s", &hours, &minutes, &period); err != nil {
		return 0, fmt.Errorf("bad clock string %q: %w", clock, err)
	}
	switch strings.ToUpper(period) {
	case "PM":
		if hours != 12 {
			hours += 12
		}
	case "AM":
		if hours == 12 {
			hours = 0
		}
	default:
		return 0, fmt.Errorf("bad clock string %q: unknown period %q", clock, period)
	}
	return hours*60 + minutes, nil
}

// EntryMinutes is the entry's span in minutes.
func EntryMinutes(e model.ScheduleEntry) (int, error) {
	start, err := ParseClockMinutes(e.StartTime)
	if err != nil {
		return 0, err
	}
	end, err := ParseClockMinutes(e.EndTime)
	if err != nil {
		return 0, err
	}
	return end - start, nil
}

// Compute aggregates entries into categories sorted by time spent
// descending. Entries with unparseable times are skipped rather than
// failing the whole report.
func Compute(entries []model.ScheduleEntry) []Category {
	type bucket struct {
		minutes    int
		activities []string
	}
	buckets := map[string]*bucket{}
	var order []string
	total := 0

	for _, e := range entries {
		minutes, err := EntryMinutes(e)
		if err != nil {
			continue
		}
		cat := Categorize(e.Description)
		b, ok := buckets[cat]
		if !ok {
			b = &bucket{}
			buckets[cat] = b
			order = append(order, cat)
		}
		b.minutes += minutes
		b.activities = append(b.activities, e.Description)
		total += minutes
	}

	out := make([]Category, 0, len(order))
	for _, cat := range order {
		b := buckets[cat]
		pct := 0.0
		if total > 0 {
			pct = float64(b.minutes) / float64(total) * 100
		}
		out = append(out, Category{
			Category:   cat,
			Minutes:    b.minutes,
			Percentage: pct,
			Activities: b.activities,
		})
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].Minutes > out[j].Minutes })
	return out
}

// FormatDuration renders minutes as "1h 5m", "2h", or "45m".
func FormatDuration(minutes int) string {
	hours := minutes / 60
	mins := minutes % 60
	switch {
	case hours == 0:
		return fmt.Sprintf("%dm", mins)
	case mins == 0:
		return fmt.Sprintf("%dh", hours)
	default:
		return fmt.Sprintf("%dh %dm", hours, mins)
	}
}
