// Package booking validates booking attempts and commits them to the schedule
// store. Availability is re-checked inside the commit, never trusted from an
// earlier read: the read (show slots) and the write (confirm) are separated by
// user interaction.
package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebridge/clinic-scheduling-ai/internal/observability/metrics"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

var bookingTracer = otel.Tracer("clinic.internal.booking")

// Request is a booking attempt.
type Request struct {
	AppointmentType string           `json:"appointment_type"`
	Date            string           `json:"date"`
	StartTime       string           `json:"start_time"`
	Patient         schedule.Patient `json:"patient"`
	Reason          string           `json:"reason,omitempty"`
}

// Confirmation is the result of a successful commit.
type Confirmation struct {
	BookingID        string           `json:"booking_id"`
	Status           string           `json:"status"`
	ConfirmationCode string           `json:"confirmation_code"`
	Booking          schedule.Booking `json:"details"`
}

// ScheduleWriter is the store surface the transactor needs.
type ScheduleWriter interface {
	CountOn(date string) int
	Append(ctx context.Context, booking schedule.Booking) error
}

// Transactor validates and commits bookings. Commits are serialized so
// booking-id sequencing stays unique even under concurrent attempts.
type Transactor struct {
	store   ScheduleWriter
	catalog schedule.Catalog
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time

	mu sync.Mutex
}

// NewTransactor creates a booking transactor.
func NewTransactor(store ScheduleWriter, catalog schedule.Catalog, logger *logging.Logger, m *metrics.SchedulingMetrics) *Transactor {
	if store == nil {
		panic("booking: schedule writer required")
	}
	if catalog == nil {
		catalog = schedule.DefaultCatalog()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Transactor{
		store:   store,
		catalog: catalog,
		logger:  logger,
		metrics: m,
		now:     time.Now,
	}
}

// WithClock overrides the transactor's clock. Tests only.
func (t *Transactor) WithClock(now func() time.Time) *Transactor {
	t.now = now
	return t
}

// Book validates the request and, if the slot is still free, commits the
// booking. Validation order: appointment type, date, then the overlap check
// which runs atomically inside the store append. Failures have no side
// effects, so retrying an already-taken slot just returns ErrSlotUnavailable
// again.
func (t *Transactor) Book(ctx context.Context, req Request) (*Confirmation, error) {
	ctx, span := bookingTracer.Start(ctx, "booking.commit")
	defer span.End()
	span.SetAttributes(
		attribute.String("clinic.appointment_type", req.AppointmentType),
		attribute.String("clinic.date", req.Date),
	)
	started := t.now()

	duration, err := t.catalog.Duration(req.AppointmentType)
	if err != nil {
		t.metrics.ObserveBookingAttempt("unknown_type", time.Since(started).Seconds())
		span.RecordError(err)
		return nil, err
	}
	if _, err := schedule.ParseDateNotPast(req.Date, t.now()); err != nil {
		t.metrics.ObserveBookingAttempt("invalid_date", time.Since(started).Seconds())
		span.RecordError(err)
		return nil, err
	}
	start, err := schedule.ParseClock(req.StartTime)
	if err != nil {
		t.metrics.ObserveBookingAttempt("invalid_date", time.Since(started).Seconds())
		span.RecordError(err)
		return nil, fmt.Errorf("booking: start time %q: %w", req.StartTime, schedule.ErrInvalidDate)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	seq := t.store.CountOn(req.Date) + 1
	b := schedule.Booking{
		Date:            req.Date,
		StartTime:       start,
		EndTime:         start.Add(duration),
		AppointmentType: req.AppointmentType,
		Patient:         req.Patient,
		Reason:          req.Reason,
		BookingID:       fmt.Sprintf("APPT-%s-%03d", req.Date, seq),
	}

	if err := t.store.Append(ctx, b); err != nil {
		status := "error"
		switch {
		case errors.Is(err, schedule.ErrSlotUnavailable):
			status = "conflict"
		case errors.Is(err, schedule.ErrStoreUnavailable):
			status = "store_error"
		}
		t.metrics.ObserveBookingAttempt(status, time.Since(started).Seconds())
		span.RecordError(err)
		return nil, err
	}

	conf := &Confirmation{
		BookingID:        b.BookingID,
		Status:           "confirmed",
		ConfirmationCode: confirmationCode(b.Date, b.StartTime),
		Booking:          b,
	}
	t.metrics.ObserveBookingAttempt("confirmed", time.Since(started).Seconds())
	t.logger.Info("booking confirmed",
		"booking_id", b.BookingID,
		"date", b.Date,
		"start_time", b.StartTime.String(),
		"appointment_type", b.AppointmentType,
	)
	return conf, nil
}

// confirmationCode derives a deterministic code from the booking's date and
// start time, e.g. 2025-06-02 09:00 -> "202506020900".
func confirmationCode(date string, start schedule.ClockTime) string {
	return strings.ReplaceAll(date, "-", "") + start.Digits()
}
