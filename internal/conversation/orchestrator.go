package conversation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/carebridge/clinic-scheduling-ai/internal/availability"
	"github.com/carebridge/clinic-scheduling-ai/internal/booking"
	"github.com/carebridge/clinic-scheduling-ai/internal/observability/metrics"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

var conversationTracer = otel.Tracer("clinic.internal.conversation")

// DefaultMaxSuggestedSlots caps how many candidate slots one reply carries.
const DefaultMaxSuggestedSlots = 5

// Action tells the response-generation layer what kind of turn this was. The
// payload is structured; no phrasing is assumed beyond it.
type Action string

const (
	ActionNeedMoreInfo       Action = "need_more_info"
	ActionSuggestSlots       Action = "suggest_slots"
	ActionNoAvailability     Action = "no_availability"
	ActionCollectPatientInfo Action = "collect_patient_info"
	ActionConfirmSlot        Action = "confirm_slot"
	ActionBooked             Action = "booked"
	ActionInformational      Action = "informational"
)

// MessageRequest is one inbound chat turn.
type MessageRequest struct {
	ConversationID string `json:"conversation_id,omitempty"`
	Message        string `json:"message"`
}

// Reply is the structured next-action payload handed to the response
// generator.
type Reply struct {
	ConversationID string                `json:"conversation_id"`
	Action         Action                `json:"action"`
	State          State                 `json:"state"`
	Answer         string                `json:"answer,omitempty"`
	Missing        []string              `json:"missing,omitempty"`
	Date           string                `json:"date,omitempty"`
	DateLabel      string                `json:"date_label,omitempty"`
	Slots          []schedule.Slot       `json:"slots,omitempty"`
	SelectedSlot   *schedule.Slot        `json:"selected_slot,omitempty"`
	Booking        *booking.Confirmation `json:"booking,omitempty"`
	Note           string                `json:"note,omitempty"`
}

// Orchestrator drives the per-session state machine: it merges extracted
// preferences, decides when to query availability, and turns confirmed slots
// into bookings.
type Orchestrator struct {
	engine     *availability.Engine
	transactor *booking.Transactor
	sessions   *Registry
	transcript TranscriptStore
	faq        FAQAnswerer
	logger     *logging.Logger
	metrics    *metrics.SchedulingMetrics
	now        func() time.Time
	maxSlots   int
}

// NewOrchestrator wires the conversation core.
func NewOrchestrator(
	engine *availability.Engine,
	transactor *booking.Transactor,
	sessions *Registry,
	transcript TranscriptStore,
	faq FAQAnswerer,
	logger *logging.Logger,
	m *metrics.SchedulingMetrics,
) *Orchestrator {
	if engine == nil {
		panic("conversation: availability engine required")
	}
	if transactor == nil {
		panic("conversation: booking transactor required")
	}
	if sessions == nil {
		panic("conversation: session registry required")
	}
	if faq == nil {
		faq = DefaultFAQ()
	}
	if logger == nil {
		logger = logging.Default()
	}
	return &Orchestrator{
		engine:     engine,
		transactor: transactor,
		sessions:   sessions,
		transcript: transcript,
		faq:        faq,
		logger:     logger,
		metrics:    m,
		now:        time.Now,
		maxSlots:   DefaultMaxSuggestedSlots,
	}
}

// WithClock overrides the orchestrator's clock. Tests only.
func (o *Orchestrator) WithClock(now func() time.Time) *Orchestrator {
	o.now = now
	return o
}

// WithMaxSlots overrides how many candidate slots a reply may carry.
func (o *Orchestrator) WithMaxSlots(n int) *Orchestrator {
	if n > 0 {
		o.maxSlots = n
	}
	return o
}

// ProcessMessage runs one conversation turn.
func (o *Orchestrator) ProcessMessage(ctx context.Context, req MessageRequest) (*Reply, error) {
	if strings.TrimSpace(req.Message) == "" {
		return nil, fmt.Errorf("conversation: empty message")
	}
	id := req.ConversationID
	if id == "" {
		id = uuid.NewString()
	}

	ctx, span := conversationTracer.Start(ctx, "conversation.turn")
	defer span.End()
	span.SetAttributes(attribute.String("clinic.conversation_id", id))

	sess := o.sessions.GetOrCreate(id)
	o.record(ctx, id, "user", req.Message)

	sig := Extract(req.Message, o.now())
	reply, err := o.advance(ctx, sess, sig, req.Message)
	if err != nil {
		o.metrics.ObserveChatTurn("error")
		span.RecordError(err)
		return nil, err
	}
	reply.ConversationID = id
	reply.State = sess.State

	o.metrics.ObserveChatTurn(string(reply.Action))
	o.record(ctx, id, "assistant", string(reply.Action))
	return reply, nil
}

// advance is the transition table: current state x signal kind decides the
// next state and the emitted action.
func (o *Orchestrator) advance(ctx context.Context, sess *Session, sig Signal, raw string) (*Reply, error) {
	if sig.Kind == SignalInformational {
		// Informational questions pass through to the FAQ collaborator and do
		// not move the state machine.
		answer, err := o.faq.Answer(ctx, raw)
		if err != nil {
			o.logger.Error("faq collaborator failed", "error", err)
			answer = ""
		}
		return &Reply{Action: ActionInformational, Answer: answer}, nil
	}

	merge(sess, sig)

	switch sess.State {
	case StateGreeting, StateCollectingInfo:
		return o.collect(sess)
	case StateSuggestingSlots:
		return o.selectSlot(sess, sig)
	case StateConfirming:
		return o.confirm(ctx, sess, sig)
	case StateCompleted:
		// A fresh scheduling intent after a completed booking starts a new
		// flow; patient details carry over, scheduling preferences do not.
		sess.State = StateCollectingInfo
		sess.AppointmentType = sig.AppointmentType
		sess.Preferences = Preferences{
			PreferredDate: sig.PreferredDate,
			Urgency:       sig.Urgency,
			Timeframe:     sig.Timeframe,
			TimeOfDay:     sig.TimeOfDay,
		}
		sess.SelectedSlot = nil
		sess.SuggestedDate = ""
		sess.BookingID = ""
		return o.collect(sess)
	default:
		return nil, fmt.Errorf("conversation: session %s in unknown state %q", sess.ID, sess.State)
	}
}

// merge folds non-empty signal fields into the session. Accumulation, not
// replacement: keys the utterance did not mention keep their values.
func merge(sess *Session, sig Signal) {
	if sig.AppointmentType != "" {
		sess.AppointmentType = sig.AppointmentType
	}
	if sig.PreferredDate != "" {
		sess.Preferences.PreferredDate = sig.PreferredDate
	}
	if sig.Urgency != "" {
		sess.Preferences.Urgency = sig.Urgency
	}
	if sig.Timeframe != "" {
		sess.Preferences.Timeframe = sig.Timeframe
	}
	if sig.TimeOfDay != "" {
		sess.Preferences.TimeOfDay = sig.TimeOfDay
	}
	if sig.PatientName != "" {
		sess.Patient.Name = sig.PatientName
	}
	if sig.PatientEmail != "" {
		sess.Patient.Email = sig.PatientEmail
	}
	if sig.PatientPhone != "" {
		sess.Patient.Phone = sig.PatientPhone
	}
}

// collect asks for what is still missing, or moves on to suggesting slots
// once an appointment type and at least one preference are known.
func (o *Orchestrator) collect(sess *Session) (*Reply, error) {
	var missing []string
	if sess.AppointmentType == "" {
		missing = append(missing, "appointment_type")
	}
	if !sess.Preferences.Any() {
		missing = append(missing, "date_or_time_preference")
	}
	if len(missing) > 0 {
		sess.State = StateCollectingInfo
		return &Reply{Action: ActionNeedMoreInfo, Missing: missing}, nil
	}
	return o.suggest(sess, "")
}

// suggest resolves the concrete date to check, queries availability, applies
// the time-of-day filter, and emits at most maxSlots candidates.
func (o *Orchestrator) suggest(sess *Session, note string) (*Reply, error) {
	date := resolveDate(sess.Preferences, o.now())

	open, err := o.engine.Available(date, sess.AppointmentType)
	if err != nil {
		o.metrics.ObserveAvailabilityQuery("error")
		return nil, fmt.Errorf("conversation: availability for %s: %w", date, err)
	}
	o.metrics.ObserveAvailabilityQuery("ok")

	open = filterTimeOfDay(open, sess.Preferences.TimeOfDay)
	if len(open) > o.maxSlots {
		open = open[:o.maxSlots]
	}

	label := dateLabel(date, o.now())
	if len(open) == 0 {
		sess.State = StateCollectingInfo
		sess.SuggestedDate = ""
		return &Reply{Action: ActionNoAvailability, Date: date, DateLabel: label, Note: note}, nil
	}

	sess.State = StateSuggestingSlots
	sess.SuggestedDate = date
	return &Reply{Action: ActionSuggestSlots, Date: date, DateLabel: label, Slots: open, Note: note}, nil
}

// selectSlot handles turns while slots are on the table: an explicit time
// picks a slot, anything else refreshes the suggestion with the merged
// preferences.
func (o *Orchestrator) selectSlot(sess *Session, sig Signal) (*Reply, error) {
	if sig.SelectedTime == nil {
		return o.suggest(sess, "")
	}

	open, err := o.engine.Available(sess.SuggestedDate, sess.AppointmentType)
	if err != nil {
		o.metrics.ObserveAvailabilityQuery("error")
		return nil, fmt.Errorf("conversation: availability for %s: %w", sess.SuggestedDate, err)
	}
	o.metrics.ObserveAvailabilityQuery("ok")
	for i := range open {
		if open[i].StartTime == *sig.SelectedTime {
			slot := open[i]
			sess.SelectedSlot = &slot
			sess.State = StateConfirming
			if missing := missingPatientFields(sess.Patient); len(missing) > 0 {
				return &Reply{
					Action:       ActionCollectPatientInfo,
					Missing:      missing,
					Date:         sess.SuggestedDate,
					DateLabel:    dateLabel(sess.SuggestedDate, o.now()),
					SelectedSlot: sess.SelectedSlot,
				}, nil
			}
			return &Reply{
				Action:       ActionConfirmSlot,
				Date:         sess.SuggestedDate,
				DateLabel:    dateLabel(sess.SuggestedDate, o.now()),
				SelectedSlot: sess.SelectedSlot,
			}, nil
		}
	}
	return o.suggest(sess, fmt.Sprintf("%s is not available", sig.SelectedTime))
}

// confirm finishes the flow: collects remaining patient details, waits for an
// explicit yes, and commits through the booking transactor. The transactor
// re-validates the slot at commit time, so a conflict here just re-opens the
// suggestion.
func (o *Orchestrator) confirm(ctx context.Context, sess *Session, sig Signal) (*Reply, error) {
	if sig.Decision == DecisionDeclined {
		sess.SelectedSlot = nil
		sess.State = StateSuggestingSlots
		return o.suggest(sess, "selection cancelled")
	}
	if sess.SelectedSlot == nil {
		return o.suggest(sess, "")
	}

	if missing := missingPatientFields(sess.Patient); len(missing) > 0 {
		return &Reply{
			Action:       ActionCollectPatientInfo,
			Missing:      missing,
			Date:         sess.SuggestedDate,
			DateLabel:    dateLabel(sess.SuggestedDate, o.now()),
			SelectedSlot: sess.SelectedSlot,
		}, nil
	}

	if sig.Decision != DecisionAccepted {
		return &Reply{
			Action:       ActionConfirmSlot,
			Date:         sess.SuggestedDate,
			DateLabel:    dateLabel(sess.SuggestedDate, o.now()),
			SelectedSlot: sess.SelectedSlot,
		}, nil
	}

	conf, err := o.transactor.Book(ctx, booking.Request{
		AppointmentType: sess.AppointmentType,
		Date:            sess.SuggestedDate,
		StartTime:       sess.SelectedSlot.StartTime.String(),
		Patient:         sess.Patient,
	})
	switch {
	case errors.Is(err, schedule.ErrSlotUnavailable):
		// Taken between suggestion and commit. Expected under concurrent
		// load; re-query and offer alternatives.
		sess.SelectedSlot = nil
		sess.State = StateSuggestingSlots
		return o.suggest(sess, "that time was just taken")
	case err != nil:
		// Store failures are fatal to this request only; session state is
		// kept so the conversation can resume.
		return nil, err
	}

	sess.State = StateCompleted
	sess.BookingID = conf.BookingID
	selected := sess.SelectedSlot
	return &Reply{
		Action:       ActionBooked,
		Date:         conf.Booking.Date,
		DateLabel:    dateLabel(conf.Booking.Date, o.now()),
		SelectedSlot: selected,
		Booking:      conf,
	}, nil
}

// resolveDate picks the single concrete date to check. Deterministic priority
// chain: explicit date, then asap, then timeframe, then tomorrow.
func resolveDate(prefs Preferences, now time.Time) string {
	switch {
	case prefs.PreferredDate != "":
		return prefs.PreferredDate
	case prefs.Urgency == "asap":
		return now.Format(schedule.DateLayout)
	case prefs.Timeframe == "this_week":
		return now.Format(schedule.DateLayout)
	case prefs.Timeframe == "next_week":
		return now.AddDate(0, 0, 7).Format(schedule.DateLayout)
	default:
		return now.AddDate(0, 0, 1).Format(schedule.DateLayout)
	}
}

// filterTimeOfDay keeps slots whose start hour falls in the preferred window:
// morning < 12, afternoon 12-16, evening >= 17.
func filterTimeOfDay(slots []schedule.Slot, timeOfDay string) []schedule.Slot {
	if timeOfDay == "" {
		return slots
	}
	var out []schedule.Slot
	for _, s := range slots {
		hour := s.StartTime.Hour()
		switch timeOfDay {
		case "morning":
			if hour < 12 {
				out = append(out, s)
			}
		case "afternoon":
			if hour >= 12 && hour < 17 {
				out = append(out, s)
			}
		case "evening":
			if hour >= 17 {
				out = append(out, s)
			}
		default:
			out = append(out, s)
		}
	}
	return out
}

// dateLabel renders a human-relative label for the checked date.
func dateLabel(date string, now time.Time) string {
	switch date {
	case now.Format(schedule.DateLayout):
		return "today"
	case now.AddDate(0, 0, 1).Format(schedule.DateLayout):
		return "tomorrow"
	default:
		return date
	}
}

// missingPatientFields lists the contact details still needed to book.
func missingPatientFields(p schedule.Patient) []string {
	var missing []string
	if strings.TrimSpace(p.Name) == "" {
		missing = append(missing, "name")
	}
	if strings.TrimSpace(p.Email) == "" {
		missing = append(missing, "email")
	}
	if strings.TrimSpace(p.Phone) == "" {
		missing = append(missing, "phone")
	}
	return missing
}

// record appends a transcript entry, logging rather than failing the turn
// when the store is unreachable.
func (o *Orchestrator) record(ctx context.Context, conversationID, role, body string) {
	if o.transcript == nil {
		return
	}
	if err := o.transcript.Append(ctx, conversationID, TranscriptMessage{Role: role, Body: body}); err != nil {
		o.logger.Warn("transcript append failed", "conversation_id", conversationID, "error", err)
	}
}
