package model

import (
	"encoding/json"
	"time"
)

// LocalTimeLayout is the persisted wall-clock format. It carries no zone
// designator on purpose: the time of day a note was recorded must stay
// stable however the data is later viewed, because the synthesizer keys
// activities off local clock times.
const LocalTimeLayout = "2006-01-02T15:04:05"

// LocalTime is a local-naive timestamp. It marshals to and from
// LocalTimeLayout strings and never converts through UTC.
type LocalTime struct {
	t time.Time
}

// NewLocalTime truncates to second precision and drops the zone.
func NewLocalTime(t time.Time) LocalTime {
	return LocalTime{t: time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), t.Minute(), t.Second(), 0, time.Local)}
}

// ParseLocalTime parses a LocalTimeLayout string.
func ParseLocalTime(s string) (LocalTime, error) {
	t, err := time.ParseInLocation(LocalTimeLayout, s, time.Local)
	if err != nil {
		return LocalTime{}, err
	}
	return LocalTime{t: t}, nil
}

func (lt LocalTime) Time() time.Time { return lt.t }
func (lt LocalTime) IsZero() bool    { return lt.t.IsZero() }

// String renders the persisted form.
func (lt LocalTime) String() string { return lt.t.Format(LocalTimeLayout) }

// Date returns the YYYY-MM-DD day component.
func (lt LocalTime) Date() string { return lt.t.Format("2006-01-02") }

// Before orders two local times.
func (lt LocalTime) Before(other LocalTime) bool { return lt.t.Before(other.t) }

func (lt LocalTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(lt.String())
}

func (lt *LocalTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseLocalTime(s)
	if err != nil {
		return err
	}
	*lt = parsed
	return nil
}
