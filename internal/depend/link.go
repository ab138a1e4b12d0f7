// Package depend evaluates user-declared ordering constraints between
// calendar events.
//
// A Link is a directed constraint from one event to another. ValidateAll
// checks every link against the events' current dates and reports cycles in
// the link graph; CheckMoveConflict answers "what would break" for a
// proposed move before it is committed. Neither mutates its input, and
// neither fails: links that point at unknown events are ignored.
package depend

import (
	"errors"
	"fmt"
)

// LinkType is the kind of constraint a link declares.
type LinkType string

const (
	// LinkBefore requires From to come at least Gap days before To.
	LinkBefore LinkType = "before"

	// LinkAfter requires From to come strictly after To.
	LinkAfter LinkType = "after"

	// LinkSameDay requires From and To on the same calendar day.
	LinkSameDay LinkType = "sameDay"
)

// ValidLinkTypes returns all valid link types.
func ValidLinkTypes() []LinkType {
	return []LinkType{LinkBefore, LinkAfter, LinkSameDay}
}

// IsValid returns true if the type is a known value.
func (t LinkType) IsValid() bool {
	for _, valid := range ValidLinkTypes() {
		if t == valid {
			return true
		}
	}
	return false
}

// Link is a directed dependency between two events.
type Link struct {
	FromID string   `json:"fromId" yaml:"fromId"`
	ToID   string   `json:"toId" yaml:"toId"`
	Type   LinkType `json:"type" yaml:"type"`

	// Gap is the minimum separation in days. Only LinkBefore uses it.
	Gap int `json:"gap,omitempty" yaml:"gap,omitempty"`
}

// Touches reports whether the link involves eventID on either side.
func (l Link) Touches(eventID string) bool {
	return l.FromID == eventID || l.ToID == eventID
}

// SamePair reports whether l and o connect the same two events, in either
// direction.
func (l Link) SamePair(o Link) bool {
	return (l.FromID == o.FromID && l.ToID == o.ToID) ||
		(l.FromID == o.ToID && l.ToID == o.FromID)
}

func (l Link) String() string {
	if l.Type == LinkBefore && l.Gap > 0 {
		return fmt.Sprintf("%s %s(+%d) %s", l.FromID, l.Type, l.Gap, l.ToID)
	}
	return fmt.Sprintf("%s %s %s", l.FromID, l.Type, l.ToID)
}

var (
	// ErrEmptyLinkID is returned when either side of a link is empty.
	ErrEmptyLinkID = errors.New("link event id cannot be empty")

	// ErrSelfLink is returned when a link points an event at itself.
	ErrSelfLink = errors.New("event cannot depend on itself")

	// ErrInvalidLinkType is returned for an unknown link type.
	ErrInvalidLinkType = errors.New("invalid link type")

	// ErrNegativeGap is returned when a gap is below zero.
	ErrNegativeGap = errors.New("gap cannot be negative")

	// ErrDuplicateLink is returned when the two events are already linked.
	ErrDuplicateLink = errors.New("link already exists")

	// ErrLinkNotFound is returned when removing a link that does not exist.
	ErrLinkNotFound = errors.New("link not found")
)

// ValidateLink checks if a link is well formed. It does not look at events.
func ValidateLink(l Link) error {
	if l.FromID == "" || l.ToID == "" {
		return ErrEmptyLinkID
	}
	if l.FromID == l.ToID {
		return ErrSelfLink
	}
	if !l.Type.IsValid() {
		return fmt.Errorf("%w: %q", ErrInvalidLinkType, l.Type)
	}
	if l.Gap < 0 {
		return fmt.Errorf("%w: got %d", ErrNegativeGap, l.Gap)
	}
	return nil
}
