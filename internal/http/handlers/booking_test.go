package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinic-scheduling-ai/internal/booking"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
)

func newBookingHandler(t *testing.T) *BookingHandler {
	t.Helper()
	store := schedule.NewMemoryStore(schedule.DefaultDocument(), nil)
	tx := booking.NewTransactor(store, schedule.DefaultCatalog(), nil, nil).
		WithClock(func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) })
	return NewBookingHandler(tx, nil)
}

func postBooking(t *testing.T, h *BookingHandler, req booking.Request) *httptest.ResponseRecorder {
	t.Helper()
	body, err := json.Marshal(req)
	require.NoError(t, err)
	httpReq := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	h.Create(rec, httpReq)
	return rec
}

func validRequest() booking.Request {
	return booking.Request{
		AppointmentType: "consultation",
		Date:            "2025-06-02",
		StartTime:       "09:00",
		Patient: schedule.Patient{
			Name:  "Ada Byrne",
			Email: "ada@example.com",
			Phone: "555-010-1234",
		},
	}
}

func TestCreateBooking(t *testing.T) {
	h := newBookingHandler(t)

	rec := postBooking(t, h, validRequest())
	require.Equal(t, http.StatusCreated, rec.Code)

	var conf booking.Confirmation
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &conf))
	assert.Equal(t, "APPT-2025-06-02-001", conf.BookingID)
	assert.Equal(t, "confirmed", conf.Status)
	assert.Equal(t, "202506020900", conf.ConfirmationCode)
}

func TestCreateBookingRejectsMalformedBody(t *testing.T) {
	h := newBookingHandler(t)

	httpReq := httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader([]byte("{not json")))
	rec := httptest.NewRecorder()
	h.Create(rec, httpReq)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateBookingValidation(t *testing.T) {
	h := newBookingHandler(t)

	tests := []struct {
		name   string
		mutate func(*booking.Request)
		want   int
	}{
		{"unknown type", func(r *booking.Request) { r.AppointmentType = "surgery" }, http.StatusBadRequest},
		{"malformed date", func(r *booking.Request) { r.Date = "June 2nd" }, http.StatusBadRequest},
		{"past date", func(r *booking.Request) { r.Date = "2025-05-30" }, http.StatusBadRequest},
		{"bad start time", func(r *booking.Request) { r.StartTime = "25:00" }, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := validRequest()
			tt.mutate(&req)
			rec := postBooking(t, h, req)
			assert.Equal(t, tt.want, rec.Code)
		})
	}
}

func TestCreateBookingConflict(t *testing.T) {
	h := newBookingHandler(t)

	rec := postBooking(t, h, validRequest())
	require.Equal(t, http.StatusCreated, rec.Code)

	// A followup starting inside the committed consultation.
	req := validRequest()
	req.AppointmentType = "followup"
	req.StartTime = "09:15"
	rec = postBooking(t, h, req)
	assert.Equal(t, http.StatusConflict, rec.Code)
}
