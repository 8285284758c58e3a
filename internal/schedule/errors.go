package schedule

import "errors"

var (
	// ErrUnknownAppointmentType is returned for appointment types outside the
	// clinic catalog.
	ErrUnknownAppointmentType = errors.New("unknown appointment type")

	// ErrInvalidDate is returned for dates that fail to parse or lie in the past.
	ErrInvalidDate = errors.New("invalid date")

	// ErrSlotUnavailable is returned when a requested interval overlaps an
	// existing booking. Callers are expected to re-query availability and retry
	// with a different slot.
	ErrSlotUnavailable = errors.New("slot unavailable")

	// ErrStoreUnavailable is returned when the schedule document cannot be read
	// or persisted. Fatal to the request, never to the process.
	ErrStoreUnavailable = errors.New("schedule store unavailable")
)
