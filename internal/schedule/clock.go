package schedule

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
)

// ClockTime is a time of day expressed as minutes since midnight. Slot
// arithmetic stays integral so there is no rounding ambiguity.
type ClockTime int

// ParseClock parses an "HH:MM" string into a ClockTime.
func ParseClock(s string) (ClockTime, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return 0, fmt.Errorf("schedule: invalid time %q, want HH:MM", s)
	}
	hours, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q, want HH:MM", s)
	}
	minutes, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("schedule: invalid time %q, want HH:MM", s)
	}
	if hours < 0 || hours > 23 || minutes < 0 || minutes > 59 {
		return 0, fmt.Errorf("schedule: time %q out of range", s)
	}
	return ClockTime(hours*60 + minutes), nil
}

// MustClock parses an "HH:MM" string and panics on failure. For fixtures and
// static schedules only.
func MustClock(s string) ClockTime {
	t, err := ParseClock(s)
	if err != nil {
		panic(err)
	}
	return t
}

// Add returns the clock time shifted forward by the given number of minutes.
func (t ClockTime) Add(minutes int) ClockTime {
	return t + ClockTime(minutes)
}

// Hour returns the 24-hour clock hour component.
func (t ClockTime) Hour() int {
	return int(t) / 60
}

// String formats the time as "HH:MM".
func (t ClockTime) String() string {
	return fmt.Sprintf("%02d:%02d", int(t)/60, int(t)%60)
}

// Digits formats the time as "HHMM", used in confirmation codes.
func (t ClockTime) Digits() string {
	return fmt.Sprintf("%02d%02d", int(t)/60, int(t)%60)
}

// MarshalJSON encodes the time as an "HH:MM" string.
func (t ClockTime) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.String())
}

// UnmarshalJSON decodes an "HH:MM" string.
func (t *ClockTime) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed, err := ParseClock(s)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}
