// Package availability computes appointment slots from the schedule store.
// Slot generation is a pure function of the store snapshot: identical inputs
// always produce the identical slot sequence.
package availability

import (
	"time"

	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
)

// DefaultSlotInterval is the step between candidate slot starts, in minutes.
const DefaultSlotInterval = 30

// ScheduleReader is the store surface the engine needs.
type ScheduleReader interface {
	HoursFor(day time.Weekday) *schedule.WorkingHours
	BookingsOn(date string) []schedule.Booking
}

// Engine generates ordered slot sequences for (date, appointment type) pairs.
type Engine struct {
	store    ScheduleReader
	catalog  schedule.Catalog
	interval int
}

// NewEngine creates an availability engine. interval <= 0 selects the default
// 30-minute step.
func NewEngine(store ScheduleReader, catalog schedule.Catalog, interval int) *Engine {
	if store == nil {
		panic("availability: schedule reader required")
	}
	if catalog == nil {
		catalog = schedule.DefaultCatalog()
	}
	if interval <= 0 {
		interval = DefaultSlotInterval
	}
	return &Engine{store: store, catalog: catalog, interval: interval}
}

// GenerateSlots returns the ordered candidate slots for a date and appointment
// type. A closed weekday yields an empty sequence, not an error. Unknown
// appointment types return schedule.ErrUnknownAppointmentType.
func (e *Engine) GenerateSlots(date string, appointmentType string) ([]schedule.Slot, error) {
	duration, err := e.catalog.Duration(appointmentType)
	if err != nil {
		return nil, err
	}
	day, err := schedule.ParseDate(date)
	if err != nil {
		return nil, err
	}

	hours := e.store.HoursFor(day.Weekday())
	if hours == nil {
		return nil, nil // clinic closed
	}

	booked := e.store.BookingsOn(date)

	var slots []schedule.Slot
	for start := hours.Start; start.Add(duration) <= hours.End; start = start.Add(e.interval) {
		end := start.Add(duration)
		slots = append(slots, schedule.Slot{
			StartTime: start,
			EndTime:   end,
			Available: !conflicts(start, end, booked),
		})
	}
	return slots, nil
}

// Available returns only the available slots for a date and appointment type.
func (e *Engine) Available(date string, appointmentType string) ([]schedule.Slot, error) {
	slots, err := e.GenerateSlots(date, appointmentType)
	if err != nil {
		return nil, err
	}
	var open []schedule.Slot
	for _, s := range slots {
		if s.Available {
			open = append(open, s)
		}
	}
	return open, nil
}

// conflicts reports whether [start, end) overlaps any booking. A slot
// overlapping any booking is unavailable; there is no partial availability.
func conflicts(start, end schedule.ClockTime, booked []schedule.Booking) bool {
	for _, b := range booked {
		if schedule.Overlaps(start, end, b.StartTime, b.EndTime) {
			return true
		}
	}
	return false
}
