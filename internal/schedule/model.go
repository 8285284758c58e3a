package schedule

import (
	"encoding/json"
	"fmt"
	"time"
)

// DateLayout is the wire and storage format for calendar dates.
const DateLayout = "2006-01-02"

// WorkingHours is the open/close pair for one weekday.
type WorkingHours struct {
	Start ClockTime `json:"start"`
	End   ClockTime `json:"end"`
}

// WeeklyHours maps each weekday to its working hours. A nil entry (or absent
// key) means the clinic is closed that day.
type WeeklyHours map[time.Weekday]*WorkingHours

var weekdayNames = map[time.Weekday]string{
	time.Monday:    "monday",
	time.Tuesday:   "tuesday",
	time.Wednesday: "wednesday",
	time.Thursday:  "thursday",
	time.Friday:    "friday",
	time.Saturday:  "saturday",
	time.Sunday:    "sunday",
}

// MarshalJSON writes the persisted layout: lowercase day names, null for
// closed days, all seven keys always present.
func (w WeeklyHours) MarshalJSON() ([]byte, error) {
	out := make(map[string]*WorkingHours, len(weekdayNames))
	for day, name := range weekdayNames {
		out[name] = w[day]
	}
	return json.Marshal(out)
}

// UnmarshalJSON reads the persisted layout.
func (w *WeeklyHours) UnmarshalJSON(data []byte) error {
	var raw map[string]*WorkingHours
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	parsed := make(WeeklyHours, len(raw))
	for day, name := range weekdayNames {
		if hours, ok := raw[name]; ok && hours != nil {
			parsed[day] = hours
		}
	}
	*w = parsed
	return nil
}

// Patient holds the contact details captured for a booking.
type Patient struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Phone string `json:"phone"`
}

// Booking is a committed reservation. Immutable once persisted.
type Booking struct {
	Date            string    `json:"date"`
	StartTime       ClockTime `json:"start_time"`
	EndTime         ClockTime `json:"end_time"`
	AppointmentType string    `json:"appointment_type"`
	Patient         Patient   `json:"patient"`
	Reason          string    `json:"reason,omitempty"`
	BookingID       string    `json:"booking_id"`
}

// Slot is a candidate interval for an appointment type. Always derived, never
// persisted.
type Slot struct {
	StartTime ClockTime `json:"start_time"`
	EndTime   ClockTime `json:"end_time"`
	Available bool      `json:"available"`
}

// Overlaps reports whether [aStart, aEnd) and [bStart, bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd ClockTime) bool {
	return !(aEnd <= bStart || aStart >= bEnd)
}

// ParseDate parses a YYYY-MM-DD string.
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("schedule: parse date %q: %w", s, ErrInvalidDate)
	}
	return t, nil
}

// ParseDateNotPast parses a YYYY-MM-DD string and rejects dates strictly
// before now's calendar date.
func ParseDateNotPast(s string, now time.Time) (time.Time, error) {
	t, err := ParseDate(s)
	if err != nil {
		return time.Time{}, err
	}
	today := now.Format(DateLayout)
	if s < today {
		return time.Time{}, fmt.Errorf("schedule: date %q is in the past: %w", s, ErrInvalidDate)
	}
	return t, nil
}
