package conversation

import (
	"context"
	"strings"
)

// FAQAnswerer answers general clinic questions. The scheduling core hands it
// the raw utterance and never inspects the returned text.
type FAQAnswerer interface {
	Answer(ctx context.Context, question string) (string, error)
}

// FAQEntry pairs matching keywords with a canned answer.
type FAQEntry struct {
	Keywords []string
	Answer   string
}

// StaticFAQ answers from a fixed table: first entry with an intersecting
// keyword wins. It stands in for a retrieval pipeline, which is out of scope
// for the scheduling core.
type StaticFAQ struct {
	entries  []FAQEntry
	fallback string
}

// NewStaticFAQ creates a static FAQ answerer.
func NewStaticFAQ(entries []FAQEntry, fallback string) *StaticFAQ {
	if fallback == "" {
		fallback = "I don't have that information on hand. Please contact the clinic directly and our staff will be happy to help."
	}
	return &StaticFAQ{entries: entries, fallback: fallback}
}

// DefaultFAQ returns the clinic's stock answers.
func DefaultFAQ() *StaticFAQ {
	return NewStaticFAQ([]FAQEntry{
		{
			Keywords: []string{"hours", "open", "closed"},
			Answer:   "We are open Monday through Friday 9:00 AM to 5:00 PM and Saturday 9:00 AM to 1:00 PM. We are closed on Sundays.",
		},
		{
			Keywords: []string{"insurance", "accept", "payment", "billing"},
			Answer:   "We accept most major insurance plans as well as card and cash payments. Bring your insurance card to your visit and our front desk will verify coverage.",
		},
		{
			Keywords: []string{"location", "directions", "parking", "where"},
			Answer:   "The clinic is at 245 Harbor Street, with free patient parking behind the building. The entrance is wheelchair accessible.",
		},
		{
			Keywords: []string{"cancel", "cancellation", "reschedule", "policy"},
			Answer:   "You can cancel or reschedule up to 24 hours before your appointment at no charge. Later cancellations may incur a fee.",
		},
		{
			Keywords: []string{"bring", "document", "first visit", "new patient"},
			Answer:   "For a first visit, bring a photo ID, your insurance card, and a list of any current medications. Please arrive 15 minutes early to complete intake forms.",
		},
	}, "")
}

// Answer implements FAQAnswerer.
func (f *StaticFAQ) Answer(_ context.Context, question string) (string, error) {
	lower := strings.ToLower(question)
	for _, entry := range f.entries {
		if containsAny(lower, entry.Keywords) {
			return entry.Answer, nil
		}
	}
	return f.fallback, nil
}
