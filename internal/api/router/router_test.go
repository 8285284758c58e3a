package router

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/carebridge/clinic-scheduling-ai/internal/availability"
	"github.com/carebridge/clinic-scheduling-ai/internal/booking"
	"github.com/carebridge/clinic-scheduling-ai/internal/conversation"
	"github.com/carebridge/clinic-scheduling-ai/internal/http/handlers"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()

	clock := func() time.Time { return time.Date(2025, 6, 2, 8, 0, 0, 0, time.UTC) }
	store := schedule.NewMemoryStore(schedule.DefaultDocument(), nil)
	engine := availability.NewEngine(store, schedule.DefaultCatalog(), 0)
	tx := booking.NewTransactor(store, schedule.DefaultCatalog(), nil, nil).WithClock(clock)
	sessions := conversation.NewRegistry(time.Hour, nil, nil)
	orch := conversation.NewOrchestrator(engine, tx, sessions, conversation.NewMemoryTranscriptStore(), nil, nil, nil).
		WithClock(clock)

	reg := prometheus.NewRegistry()
	return New(&Config{
		ConversationHandler: conversation.NewHandler(orch, nil),
		AvailabilityHandler: handlers.NewAvailabilityHandler(engine, nil, nil).WithClock(clock),
		BookingHandler:      handlers.NewBookingHandler(tx, nil),
		MetricsHandler:      promhttp.HandlerFor(reg, promhttp.HandlerOpts{}),
		CORSAllowedOrigins:  []string{"*"},
	})
}

func TestHealthEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())
}

func TestMetricsEndpoint(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestChatRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(conversation.MessageRequest{
		ConversationID: "c1",
		Message:        "I need a follow up tomorrow morning",
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body)))

	require.Equal(t, http.StatusOK, rec.Code)
	var reply conversation.Reply
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &reply))
	assert.Equal(t, conversation.ActionSuggestSlots, reply.Action)
	assert.Equal(t, "2025-06-03", reply.Date)
}

func TestChatHistoryRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(conversation.MessageRequest{ConversationID: "c1", Message: "hello"})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/chat", bytes.NewReader(body)))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/chat/c1/history", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var msgs []conversation.TranscriptMessage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &msgs))
	require.Len(t, msgs, 2)
	assert.Equal(t, "user", msgs[0].Role)
}

func TestAvailabilityRoute(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/availability?date=2025-06-02&appointment_type=followup", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"slots"`)
}

func TestBookingRoute(t *testing.T) {
	r := newTestRouter(t)

	body, _ := json.Marshal(booking.Request{
		AppointmentType: "consultation",
		Date:            "2025-06-02",
		StartTime:       "10:00",
		Patient:         schedule.Patient{Name: "Ada Byrne", Email: "ada@example.com", Phone: "555-010-1234"},
	})
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/bookings", bytes.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Contains(t, rec.Body.String(), "APPT-2025-06-02-001")
}

func TestUnknownRouteReturns404(t *testing.T) {
	r := newTestRouter(t)
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}
