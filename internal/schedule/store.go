package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// Document is the persisted schedule layout: working hours plus the ordered
// list of committed bookings. The whole document is rewritten on every commit.
type Document struct {
	WorkingHours       WeeklyHours `json:"working_hours"`
	BookedAppointments []Booking   `json:"booked_appointments"`
}

// DefaultDocument returns the schedule used when no document exists yet:
// weekdays 09:00-17:00, Saturday 09:00-13:00, Sunday closed.
func DefaultDocument() Document {
	weekday := &WorkingHours{Start: MustClock("09:00"), End: MustClock("17:00")}
	return Document{
		WorkingHours: WeeklyHours{
			time.Monday:    weekday,
			time.Tuesday:   weekday,
			time.Wednesday: weekday,
			time.Thursday:  weekday,
			time.Friday:    weekday,
			time.Saturday:  {Start: MustClock("09:00"), End: MustClock("13:00")},
		},
		BookedAppointments: []Booking{},
	}
}

// Store owns the working-hours table and the booking list for one clinic.
// It is the sole writer of persisted state; commits are serialized under a
// mutex so the overlap re-check and the append are atomic with respect to
// other commits.
type Store struct {
	path   string
	logger *logging.Logger

	mu  sync.Mutex
	doc Document
}

// NewStore loads the schedule document at path, falling back to the default
// schedule when the file does not exist. An empty path keeps the store purely
// in memory (tests, demos).
func NewStore(path string, logger *logging.Logger) (*Store, error) {
	if logger == nil {
		logger = logging.Default()
	}
	s := &Store{path: path, logger: logger}

	if path == "" {
		s.doc = DefaultDocument()
		return s, nil
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		s.doc = DefaultDocument()
		logger.Info("schedule file missing, using default schedule", "path", path)
	case err != nil:
		return nil, fmt.Errorf("schedule: read %s: %v: %w", path, err, ErrStoreUnavailable)
	default:
		if err := json.Unmarshal(data, &s.doc); err != nil {
			return nil, fmt.Errorf("schedule: parse %s: %v: %w", path, err, ErrStoreUnavailable)
		}
		if s.doc.WorkingHours == nil {
			s.doc.WorkingHours = DefaultDocument().WorkingHours
		}
	}
	return s, nil
}

// NewMemoryStore creates an in-memory store seeded with the given document.
func NewMemoryStore(doc Document, logger *logging.Logger) *Store {
	if logger == nil {
		logger = logging.Default()
	}
	if doc.WorkingHours == nil {
		doc.WorkingHours = WeeklyHours{}
	}
	return &Store{logger: logger, doc: doc}
}

// HoursFor returns the working hours for a weekday, or nil when the clinic is
// closed that day.
func (s *Store) HoursFor(day time.Weekday) *WorkingHours {
	s.mu.Lock()
	defer s.mu.Unlock()
	hours := s.doc.WorkingHours[day]
	if hours == nil {
		return nil
	}
	copied := *hours
	return &copied
}

// BookingsOn returns the committed bookings for a date.
func (s *Store) BookingsOn(date string) []Booking {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bookingsOnLocked(date)
}

func (s *Store) bookingsOnLocked(date string) []Booking {
	var out []Booking
	for _, b := range s.doc.BookedAppointments {
		if b.Date == date {
			out = append(out, b)
		}
	}
	return out
}

// CountOn returns how many bookings share a date. Used for booking-id
// sequencing.
func (s *Store) CountOn(date string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.bookingsOnLocked(date))
}

// Append commits a booking. The overlap check runs under the store mutex and
// the document is persisted before in-memory state changes, so a booking is
// either fully durable or not recorded at all. Returns ErrSlotUnavailable on
// conflict and an ErrStoreUnavailable-wrapped error when persistence fails.
func (s *Store) Append(ctx context.Context, booking Booking) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookingsOnLocked(booking.Date) {
		if Overlaps(booking.StartTime, booking.EndTime, existing.StartTime, existing.EndTime) {
			return fmt.Errorf("schedule: %s %s-%s conflicts with %s: %w",
				booking.Date, booking.StartTime, booking.EndTime, existing.BookingID, ErrSlotUnavailable)
		}
	}

	next := Document{
		WorkingHours:       s.doc.WorkingHours,
		BookedAppointments: append(append([]Booking{}, s.doc.BookedAppointments...), booking),
	}
	if err := s.persist(next); err != nil {
		return err
	}
	s.doc = next
	return nil
}

// persist writes the document via write-temp-then-rename so a crash leaves
// either the old document or the new one, never a partial write.
func (s *Store) persist(doc Document) error {
	if s.path == "" {
		return nil
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("schedule: marshal document: %v: %w", err, ErrStoreUnavailable)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("schedule: create %s: %v: %w", dir, err, ErrStoreUnavailable)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("schedule: create temp file: %v: %w", err, ErrStoreUnavailable)
	}
	tmpName := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("schedule: write temp file: %v: %w", err, ErrStoreUnavailable)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schedule: close temp file: %v: %w", err, ErrStoreUnavailable)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("schedule: replace %s: %v: %w", s.path, err, ErrStoreUnavailable)
	}
	return nil
}
