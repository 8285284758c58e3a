package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/carebridge/clinic-scheduling-ai/internal/booking"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// BookingHandler commits appointments through the booking transactor.
type BookingHandler struct {
	transactor *booking.Transactor
	logger     *logging.Logger
}

// NewBookingHandler creates a booking handler.
func NewBookingHandler(transactor *booking.Transactor, logger *logging.Logger) *BookingHandler {
	if transactor == nil {
		panic("handlers: booking transactor required")
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &BookingHandler{transactor: transactor, logger: logger}
}

// Create handles POST /api/bookings.
func (h *BookingHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req booking.Request
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid request body", http.StatusBadRequest)
		return
	}

	conf, err := h.transactor.Book(r.Context(), req)
	if err != nil {
		switch {
		case errors.Is(err, schedule.ErrUnknownAppointmentType), errors.Is(err, schedule.ErrInvalidDate):
			http.Error(w, err.Error(), http.StatusBadRequest)
		case errors.Is(err, schedule.ErrSlotUnavailable):
			http.Error(w, "requested slot is no longer available", http.StatusConflict)
		case errors.Is(err, schedule.ErrStoreUnavailable):
			h.logger.Error("booking failed: store unavailable", "error", err)
			http.Error(w, "schedule store unavailable, please try again", http.StatusServiceUnavailable)
		default:
			h.logger.Error("booking failed", "error", err)
			http.Error(w, "failed to create booking", http.StatusInternalServerError)
		}
		return
	}

	writeJSON(w, h.logger, http.StatusCreated, conf)
}
