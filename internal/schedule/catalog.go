package schedule

import (
	"fmt"
	"sort"
)

// Catalog maps appointment type identifiers to their duration in minutes.
// The set is closed; unknown identifiers are rejected everywhere.
type Catalog map[string]int

// DefaultCatalog returns the clinic's appointment types.
func DefaultCatalog() Catalog {
	return Catalog{
		"consultation": 30,
		"followup":     15,
		"physical":     45,
		"special":      60,
	}
}

// Duration returns the duration for an appointment type, or
// ErrUnknownAppointmentType.
func (c Catalog) Duration(appointmentType string) (int, error) {
	duration, ok := c[appointmentType]
	if !ok {
		return 0, fmt.Errorf("schedule: %q: %w (must be one of: %s)",
			appointmentType, ErrUnknownAppointmentType, c.typeList())
	}
	return duration, nil
}

func (c Catalog) typeList() string {
	types := make([]string, 0, len(c))
	for t := range c {
		types = append(types, t)
	}
	sort.Strings(types)
	out := ""
	for i, t := range types {
		if i > 0 {
			out += ", "
		}
		out += t
	}
	return out
}
