package conversation

import (
	"regexp"
	"strings"
	"time"

	"github.com/carebridge/clinic-scheduling-ai/internal/schedule"
)

// SignalKind tags the result of parsing one utterance.
type SignalKind string

const (
	// SignalInformational marks a general clinic question, handed to the FAQ
	// collaborator untouched.
	SignalInformational SignalKind = "informational"
	// SignalScheduling marks an utterance carrying scheduling intent.
	SignalScheduling SignalKind = "scheduling"
)

// Decision is a yes/no answer recognized while confirming a slot.
type Decision string

const (
	DecisionNone     Decision = ""
	DecisionAccepted Decision = "accepted"
	DecisionDeclined Decision = "declined"
)

// Signal is the structured output of parsing one utterance. Empty fields mean
// the utterance said nothing about that category; the orchestrator merges
// non-empty fields into the session, never clearing accumulated state.
type Signal struct {
	Kind SignalKind

	AppointmentType string
	PreferredDate   string // concrete YYYY-MM-DD, resolved from "tomorrow"
	Urgency         string // "asap"
	Timeframe       string // "this_week" or "next_week"
	TimeOfDay       string // "morning", "afternoon" or "evening"

	// SelectedTime is an explicit clock time in the utterance ("09:30", "2pm"),
	// used to pick one of the suggested slots.
	SelectedTime *schedule.ClockTime

	Decision Decision

	// Partial patient details captured while collecting contact info.
	PatientName  string
	PatientEmail string
	PatientPhone string
}

// appointmentKeywords is an ordered list: the first group whose keyword set
// intersects the utterance wins, ties resolved by declaration order.
var appointmentKeywords = []struct {
	appointmentType string
	keywords        []string
}{
	{"consultation", []string{"consultation", "checkup", "check-up", "routine", "general", "appointment"}},
	{"followup", []string{"follow-up", "followup", "follow up", "returning"}},
	{"physical", []string{"physical", "exam", "examination"}},
	{"special", []string{"specialist", "special", "complex"}},
}

// informationalKeywords flag general clinic questions that the scheduling core
// does not answer itself.
var informationalKeywords = []string{
	"what", "where", "when", "how", "which", "who",
	"insurance", "accept", "payment", "billing",
	"hours", "open", "closed", "location", "directions",
	"parking", "bring", "document", "policy", "cancellation",
	"covid", "mask", "protocol", "first visit", "new patient",
}

var (
	clockRE = regexp.MustCompile(`\b([01]?[0-9]|2[0-3]):([0-5][0-9])\b`)
	ampmRE  = regexp.MustCompile(`\b(1[0-2]|[1-9])(?::([0-5][0-9]))?\s*(am|pm)\b`)
	emailRE = regexp.MustCompile(`[a-zA-Z0-9._%+\-]+@[a-zA-Z0-9.\-]+\.[a-zA-Z]{2,}`)
	phoneRE = regexp.MustCompile(`\+?[0-9][0-9 ().\-]{6,}[0-9]`)
	// The capture requires capitalized words so "I am looking for..." does not
	// read as a name.
	nameRE = regexp.MustCompile(`(?i:my name is|i am|i'm|this is)\s+([A-Z][a-z]+(?:\s+[A-Z][a-z]+)?)`)

	acceptRE  = regexp.MustCompile(`\b(yes|yeah|yep|sure|confirm|confirmed|correct|ok|okay)\b|book it|sounds good|that works`)
	declineRE = regexp.MustCompile(`\b(no|nope|cancel|different|another|else)\b|never ?mind`)
	// Negated or hedged phrasing ("I'm not sure", "don't book it") carries no
	// decision; it must never read as acceptance.
	hedgedRE = regexp.MustCompile(`\bnot\b|don'?t|do not|can'?t|cannot`)
)

// Extract parses one utterance into a Signal. This is a best-effort keyword
// heuristic, not a grammar: compound utterances only capture the first
// recognized value per category. now anchors relative dates like "tomorrow".
func Extract(utterance string, now time.Time) Signal {
	lower := strings.ToLower(utterance)

	if isInformational(lower) {
		return Signal{Kind: SignalInformational}
	}

	sig := Signal{Kind: SignalScheduling}

	for _, group := range appointmentKeywords {
		if containsAny(lower, group.keywords) {
			sig.AppointmentType = group.appointmentType
			break
		}
	}

	switch {
	case strings.Contains(lower, "today") || strings.Contains(lower, "asap") || strings.Contains(lower, "soon"):
		sig.Urgency = "asap"
	case strings.Contains(lower, "tomorrow"):
		sig.PreferredDate = now.AddDate(0, 0, 1).Format(schedule.DateLayout)
	case strings.Contains(lower, "this week"):
		sig.Timeframe = "this_week"
	case strings.Contains(lower, "next week"):
		sig.Timeframe = "next_week"
	}

	switch {
	case strings.Contains(lower, "morning"):
		sig.TimeOfDay = "morning"
	case strings.Contains(lower, "afternoon"):
		sig.TimeOfDay = "afternoon"
	case strings.Contains(lower, "evening"):
		sig.TimeOfDay = "evening"
	}

	sig.SelectedTime = extractClockTime(lower)

	switch {
	case declineRE.MatchString(lower):
		sig.Decision = DecisionDeclined
	case hedgedRE.MatchString(lower):
		// no decision
	case acceptRE.MatchString(lower):
		sig.Decision = DecisionAccepted
	}

	sig.PatientEmail = emailRE.FindString(utterance)
	if m := nameRE.FindStringSubmatch(utterance); len(m) == 2 {
		sig.PatientName = strings.TrimSpace(m[1])
	}
	if phone := extractPhone(utterance); phone != "" {
		sig.PatientPhone = phone
	}

	return sig
}

func isInformational(lower string) bool {
	return containsAny(lower, informationalKeywords)
}

func containsAny(text string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			return true
		}
	}
	return false
}

// extractClockTime finds an explicit time of day. The am/pm form is tried
// first so "2:30pm" is not misread as 02:30 by the 24-hour pattern.
func extractClockTime(lower string) *schedule.ClockTime {
	if m := ampmRE.FindStringSubmatch(lower); len(m) == 4 {
		hour := atoiOrZero(m[1])
		minute := atoiOrZero(m[2])
		if m[3] == "pm" && hour != 12 {
			hour += 12
		}
		if m[3] == "am" && hour == 12 {
			hour = 0
		}
		t := schedule.ClockTime(hour*60 + minute)
		return &t
	}
	if m := clockRE.FindString(lower); m != "" {
		if t, err := schedule.ParseClock(m); err == nil {
			return &t
		}
	}
	return nil
}

// extractPhone returns the first phone-looking digit run, excluding matches
// that are part of an email address.
func extractPhone(utterance string) string {
	stripped := emailRE.ReplaceAllString(utterance, " ")
	m := phoneRE.FindString(stripped)
	if m == "" {
		return ""
	}
	digits := 0
	for _, r := range m {
		if r >= '0' && r <= '9' {
			digits++
		}
	}
	if digits < 7 {
		return ""
	}
	return strings.TrimSpace(m)
}

func atoiOrZero(s string) int {
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0
		}
		n = n*10 + int(r-'0')
	}
	return n
}
