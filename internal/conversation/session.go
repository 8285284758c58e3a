package conversation

import (
	"context"
	"sync"
	"time"

	"github.com/carebridge/clinic-scheduling-ai/internal/observability/metrics"
	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
	"github.com/carebridge/clinic-scheduling-ai/pkg/logging"
)

// State is the conversation phase for one session.
type State string

const (
	StateGreeting        State = "greeting"
	StateCollectingInfo  State = "collecting_info"
	StateSuggestingSlots State = "suggesting_slots"
	StateConfirming      State = "confirming"
	StateCompleted       State = "completed"
)

// Preferences accumulates scheduling constraints across turns. New non-empty
// values overwrite old ones for the same key; unmentioned keys are untouched.
type Preferences struct {
	PreferredDate string `json:"preferred_date,omitempty"`
	Urgency       string `json:"urgency,omitempty"`
	Timeframe     string `json:"timeframe,omitempty"`
	TimeOfDay     string `json:"time_of_day,omitempty"`
}

// Any reports whether at least one preference is known.
func (p Preferences) Any() bool {
	return p.PreferredDate != "" || p.Urgency != "" || p.Timeframe != "" || p.TimeOfDay != ""
}

// Session is the accumulated scheduling state for one conversation. It is
// owned by the orchestrator; one conversation means one logical caller, so no
// per-session locking is needed.
type Session struct {
	ID              string           `json:"id"`
	State           State            `json:"state"`
	AppointmentType string           `json:"appointment_type,omitempty"`
	Preferences     Preferences      `json:"preferences"`
	Patient         schedule.Patient `json:"patient"`
	SelectedSlot    *schedule.Slot   `json:"selected_slot,omitempty"`
	SuggestedDate   string           `json:"suggested_date,omitempty"`
	BookingID       string           `json:"booking_id,omitempty"`
	LastActivity    time.Time        `json:"last_activity"`
}

// Registry is a concurrency-safe session map with TTL eviction. Sessions are
// created lazily on first use and reaped after sitting idle longer than the
// TTL, so the map cannot grow without bound.
type Registry struct {
	ttl     time.Duration
	logger  *logging.Logger
	metrics *metrics.SchedulingMetrics
	now     func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

// NewRegistry creates a session registry. ttl <= 0 disables eviction.
func NewRegistry(ttl time.Duration, logger *logging.Logger, m *metrics.SchedulingMetrics) *Registry {
	if logger == nil {
		logger = logging.Default()
	}
	return &Registry{
		ttl:      ttl,
		logger:   logger,
		metrics:  m,
		now:      time.Now,
		sessions: make(map[string]*Session),
	}
}

// GetOrCreate returns the session for a conversation id, creating it on first
// use and stamping last activity.
func (r *Registry) GetOrCreate(id string) *Session {
	r.mu.Lock()
	defer r.mu.Unlock()

	sess, ok := r.sessions[id]
	if !ok {
		sess = &Session{ID: id, State: StateGreeting}
		r.sessions[id] = sess
	}
	sess.LastActivity = r.now()
	r.metrics.SetActiveSessions(len(r.sessions))
	return sess
}

// Len returns the number of live sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Reap evicts sessions idle longer than the TTL and returns how many were
// removed.
func (r *Registry) Reap() int {
	if r.ttl <= 0 {
		return 0
	}
	cutoff := r.now().Add(-r.ttl)

	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, sess := range r.sessions {
		if sess.LastActivity.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	if removed > 0 {
		r.metrics.ObserveSessionsReaped(removed)
		r.metrics.SetActiveSessions(len(r.sessions))
		r.logger.Info("reaped idle sessions", "count", removed, "remaining", len(r.sessions))
	}
	return removed
}

// StartReaper runs Reap on the given interval until ctx is cancelled.
func (r *Registry) StartReaper(ctx context.Context, interval time.Duration) {
	if interval <= 0 || r.ttl <= 0 {
		return
	}
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Reap()
			}
		}
	}()
}
