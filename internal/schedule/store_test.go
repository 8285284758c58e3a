package schedule

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func testBooking(date string, start, end string, id string) Booking {
	return Booking{
		Date:            date,
		StartTime:       MustClock(start),
		EndTime:         MustClock(end),
		AppointmentType: "consultation",
		Patient:         Patient{Name: "Jan Kowalski", Email: "jan@example.com", Phone: "555-0100"},
		BookingID:       id,
	}
}

func TestOverlaps(t *testing.T) {
	tests := []struct {
		name                       string
		aStart, aEnd, bStart, bEnd string
		want                       bool
	}{
		{"identical", "09:00", "09:30", "09:00", "09:30", true},
		{"contained", "09:15", "09:30", "09:00", "09:30", true},
		{"partial", "09:15", "09:45", "09:00", "09:30", true},
		{"adjacent after", "09:30", "10:00", "09:00", "09:30", false},
		{"adjacent before", "08:30", "09:00", "09:00", "09:30", false},
		{"disjoint", "11:00", "11:30", "09:00", "09:30", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Overlaps(MustClock(tt.aStart), MustClock(tt.aEnd), MustClock(tt.bStart), MustClock(tt.bEnd))
			if got != tt.want {
				t.Errorf("Overlaps = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewStoreDefaultsWhenFileMissing(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	hours := store.HoursFor(time.Monday)
	require.NotNil(t, hours)
	require.Equal(t, MustClock("09:00"), hours.Start)
	require.Equal(t, MustClock("17:00"), hours.End)
	require.Nil(t, store.HoursFor(time.Sunday))
}

func TestNewStoreRejectsCorruptDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	_, err := NewStore(path, nil)
	require.ErrorIs(t, err, ErrStoreUnavailable)
}

func TestAppendPersistsAndReloads(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schedule.json")
	store, err := NewStore(path, nil)
	require.NoError(t, err)

	booking := testBooking("2025-06-02", "09:00", "09:30", "APPT-2025-06-02-001")
	require.NoError(t, store.Append(context.Background(), booking))

	// The document on disk must be complete and well-formed.
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var doc Document
	require.NoError(t, json.Unmarshal(data, &doc))
	require.Len(t, doc.BookedAppointments, 1)
	require.Equal(t, booking.BookingID, doc.BookedAppointments[0].BookingID)

	// A fresh store sees the committed booking.
	reloaded, err := NewStore(path, nil)
	require.NoError(t, err)
	require.Len(t, reloaded.BookingsOn("2025-06-02"), 1)
	require.Equal(t, 1, reloaded.CountOn("2025-06-02"))
	require.Equal(t, 0, reloaded.CountOn("2025-06-03"))
}

func TestAppendRejectsOverlap(t *testing.T) {
	store := NewMemoryStore(DefaultDocument(), nil)
	ctx := context.Background()

	require.NoError(t, store.Append(ctx, testBooking("2025-06-02", "09:00", "09:30", "APPT-2025-06-02-001")))

	// 09:15-09:30 overlaps 09:00-09:30.
	err := store.Append(ctx, testBooking("2025-06-02", "09:15", "09:30", "APPT-2025-06-02-002"))
	require.ErrorIs(t, err, ErrSlotUnavailable)

	// Same interval on another date is fine.
	require.NoError(t, store.Append(ctx, testBooking("2025-06-03", "09:15", "09:30", "APPT-2025-06-03-001")))

	// Back-to-back intervals do not conflict.
	require.NoError(t, store.Append(ctx, testBooking("2025-06-02", "09:30", "10:00", "APPT-2025-06-02-003")))
}

func TestAppendFailedPersistLeavesMemoryUntouched(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	// The parent of the schedule path is a regular file, so every persist
	// attempt fails regardless of process privileges.
	store := &Store{path: filepath.Join(blocker, "schedule.json"), doc: DefaultDocument()}

	err := store.Append(context.Background(), testBooking("2025-06-02", "09:00", "09:30", "APPT-2025-06-02-001"))
	require.ErrorIs(t, err, ErrStoreUnavailable)
	require.Empty(t, store.BookingsOn("2025-06-02"))
}

// TestConcurrentAppendsNeverOverlap hammers the store with racing commits for
// the same day and asserts the no-overlap invariant afterwards.
func TestConcurrentAppendsNeverOverlap(t *testing.T) {
	store := NewMemoryStore(DefaultDocument(), nil)
	ctx := context.Background()

	const workers = 8
	const attemptsPerWorker = 50

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			for i := 0; i < attemptsPerWorker; i++ {
				start := MustClock("09:00").Add(15 * rng.Intn(32))
				b := testBooking("2025-06-02", start.String(), start.Add(30).String(),
					fmt.Sprintf("APPT-2025-06-02-%d-%d", seed, i))
				err := store.Append(ctx, b)
				if err != nil && !errors.Is(err, ErrSlotUnavailable) {
					t.Errorf("unexpected append error: %v", err)
				}
			}
		}(int64(w))
	}
	wg.Wait()

	committed := store.BookingsOn("2025-06-02")
	require.NotEmpty(t, committed)
	for i := 0; i < len(committed); i++ {
		for j := i + 1; j < len(committed); j++ {
			a, b := committed[i], committed[j]
			if Overlaps(a.StartTime, a.EndTime, b.StartTime, b.EndTime) {
				t.Fatalf("overlap committed: %s-%s and %s-%s", a.StartTime, a.EndTime, b.StartTime, b.EndTime)
			}
		}
	}
}

func TestWeeklyHoursJSONRoundTrip(t *testing.T) {
	doc := DefaultDocument()
	data, err := json.Marshal(doc)
	require.NoError(t, err)

	// Closed days serialize as explicit nulls.
	var raw map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(data, &raw))
	var hours map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw["working_hours"], &hours))
	require.Equal(t, "null", string(hours["sunday"]))

	var back Document
	require.NoError(t, json.Unmarshal(data, &back))
	require.Nil(t, back.WorkingHours[time.Sunday])
	require.Equal(t, MustClock("13:00"), back.WorkingHours[time.Saturday].End)
}
