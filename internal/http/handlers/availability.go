package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/carebridge/clinic-scheduling-ai/internal/availability"
	"github.com/carebridge/clinic-scheduling-ai/internal/observability/metrics"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// AvailabilityHandler serves slot queries for the booking pages. The chat flow
// goes through the conversation orchestrator instead; this is the direct API.
type AvailabilityHandler struct {
	engine  *availability.Engine
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time
}

// NewAvailabilityHandler creates an availability handler.
func NewAvailabilityHandler(engine *availability.Engine, logger *logging.Logger, m *metrics.SchedulingMetrics) *AvailabilityHandler {
	if engine == nil {
		panic("handlers: availability engine required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &AvailabilityHandler{engine: engine, logger: logger, metrics: m, now: time.Now}
}

// WithClock overrides the handler's clock. Tests only.
func (h *AvailabilityHandler) WithClock(now func() time.Time) *AvailabilityHandler {
	h.now = now
	return h
}

type availabilityResponse struct {
	Date            string          `json:"date"`
	AppointmentType string          `json:"appointment_type"`
	Slots           []schedule.Slot `json:"slots"`
}

// Slots handles GET /api/availability?date=YYYY-MM-DD&appointment_type=consultation.
// "type" is accepted as an alias. Booked slots are included with
// available=false so callers can render a full day grid.
func (h *AvailabilityHandler) Slots(w http.ResponseWriter, r *http.Request) {
	date := r.URL.Query().Get("date")
	appointmentType := r.URL.Query().Get("appointment_type")
	if appointmentType == "" {
		appointmentType = r.URL.Query().Get("type")
	}
	if date == "" || appointmentType == "" {
		h.metrics.ObserveAvailabilityQuery("invalid")
		http.Error(w, "date and appointment_type query parameters are required", http.StatusBadRequest)
		return
	}
	if _, err := schedule.ParseDateNotPast(date, h.now()); err != nil {
		h.metrics.ObserveAvailabilityQuery("invalid")
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	slots, err := h.engine.GenerateSlots(date, appointmentType)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrUnknownAppointmentType), errors.Is(err, schedule.ErrInvalidDate):
			h.metrics.ObserveAvailabilityQuery("invalid")
			http.Error(w, err.Error(), http.StatusBadRequest)
		default:
			h.metrics.ObserveAvailabilityQuery("error")
			h.logger.Error("availability query failed", "date", date, "type", appointmentType, "error", err)
			http.Error(w, "failed to query availability", http.StatusInternalServerError)
		}
		return
	}
	h.metrics.ObserveAvailabilityQuery("ok")
	if slots == nil {
		slots = []schedule.Slot{}
	}

	writeJSON(w, h.logger, http.StatusOK, availabilityResponse{
		Date:            date,
		AppointmentType: appointmentType,
		Slots:           slots,
	})
}

func writeJSON(w http.ResponseWriter, logger *logging.Logger, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logger.Error("failed to write JSON response", "error", err)
	}
}
