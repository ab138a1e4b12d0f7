package model

import (
	"strings"
	"time"
)

// Kind is the category of a calendar event.
type Kind string

const (
	KindShow    Kind = "show"
	KindTravel  Kind = "travel"
	KindMeeting Kind = "meeting"
	KindRest    Kind = "rest"
	KindOther   Kind = "other"
)

// ValidKinds returns all known kinds.
func ValidKinds() []Kind {
	return []Kind{KindShow, KindTravel, KindMeeting, KindRest, KindOther}
}

// IsValid returns true if the kind is a known value.
func (k Kind) IsValid() bool {
	for _, valid := range ValidKinds() {
		if k == valid {
			return true
		}
	}
	return false
}

// ParseKind maps a free-form tag onto a Kind. Unknown tags become KindOther.
func ParseKind(s string) Kind {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case "flight", "train", "drive":
		return KindTravel
	case "gig", "concert":
		return KindShow
	}
	if k.IsValid() {
		return k
	}
	return KindOther
}

// UnmarshalText lets event files use any casing or alias for a kind.
func (k *Kind) UnmarshalText(b []byte) error {
	*k = ParseKind(string(b))
	return nil
}

// Event statuses the engine looks at. Other values pass through untouched.
const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCancelled = "cancelled"
)

// CalEvent is a calendar entry as supplied by the event source. Date is the
// day bucket, already resolved to the display timezone.
type CalEvent struct {
	ID    string `json:"id" yaml:"id"`
	Date  Date   `json:"date" yaml:"date"`
	Kind  Kind   `json:"kind" yaml:"kind"`
	Title string `json:"title" yaml:"title"`

	// EndDate marks a multi-day event when it is after Date.
	EndDate Date   `json:"endDate,omitzero" yaml:"endDate,omitempty"`
	Status  string `json:"status,omitempty" yaml:"status,omitempty"`
	City    string `json:"city,omitempty" yaml:"city,omitempty"`

	// Start and End are set for timed events.
	Start  time.Time `json:"start,omitzero" yaml:"start,omitempty"`
	End    time.Time `json:"end,omitzero" yaml:"end,omitempty"`
	AllDay bool      `json:"allDay,omitempty" yaml:"allDay,omitempty"`
}

// LastDate returns the final day the event covers.
func (e CalEvent) LastDate() Date {
	if !e.EndDate.IsZero() && e.EndDate.After(e.Date) {
		return e.EndDate
	}
	return e.Date
}

// IsMultiDay reports whether the event covers more than one day.
func (e CalEvent) IsMultiDay() bool {
	return e.LastDate().After(e.Date)
}

// IsTimed reports whether the event has a usable time range.
func (e CalEvent) IsTimed() bool {
	return !e.AllDay && !e.Start.IsZero() && e.End.After(e.Start)
}

// TimedEvent is the sub-day view of an event used for column layout.
type TimedEvent struct {
	ID    string    `json:"id"`
	Start time.Time `json:"start"`
	End   time.Time `json:"end"`
}

// Valid reports whether the interval is non-empty.
func (t TimedEvent) Valid() bool {
	return t.End.After(t.Start)
}

// TimedEvents returns the timed, single-day events among events.
func TimedEvents(events []CalEvent) []TimedEvent {
	out := make([]TimedEvent, 0, len(events))
	for _, e := range events {
		if !e.IsTimed() || e.IsMultiDay() {
			continue
		}
		out = append(out, TimedEvent{ID: e.ID, Start: e.Start, End: e.End})
	}
	return out
}

// OnDate returns the events whose span covers day.
func OnDate(events []CalEvent, day Date) []CalEvent {
	var out []CalEvent
	for _, e := range events {
		if e.Date.IsZero() {
			continue
		}
		if !day.Before(e.Date) && !day.After(e.LastDate()) {
			out = append(out, e)
		}
	}
	return out
}

// ByID indexes events by ID. Later duplicates win.
func ByID(events []CalEvent) map[string]CalEvent {
	m := make(map[string]CalEvent, len(events))
	for _, e := range events {
		m[e.ID] = e
	}
	return m
}
