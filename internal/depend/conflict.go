package depend

import (
	"fmt"

	"tourcal/internal/model"
)

// ConflictType classifies a reported conflict.
type ConflictType string

const (
	ConflictBrokenDependency ConflictType = "broken_dependency"
	ConflictGapViolation     ConflictType = "gap_violation"
	ConflictSameDay          ConflictType = "same_day_violation"
	ConflictCircular         ConflictType = "circular"
)

// Severity says whether a conflict blocks a change or is advisory.
type Severity string

const (
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Conflict is one violated constraint. Conflicts are recomputed on every
// validation pass and never stored.
type Conflict struct {
	ID            string       `json:"id"`
	Type          ConflictType `json:"type"`
	Severity      Severity     `json:"severity"`
	EventID       string       `json:"eventId"`
	LinkedEventID string       `json:"linkedEventId,omitempty"`
	Message       string       `json:"message"`
	Suggestion    string       `json:"suggestion,omitempty"`
}

// ValidateAll checks every link against the current event dates, then
// reports each cycle in the link graph. Links referencing unknown events are
// skipped. The result is never nil.
func ValidateAll(events []model.CalEvent, links []Link) []Conflict {
	byID := model.ByID(events)

	conflicts := make([]Conflict, 0)
	for _, l := range links {
		if c, ok := evaluate(l, byID); ok {
			conflicts = append(conflicts, c)
		}
	}
	return append(conflicts, cycleConflicts(links, byID)...)
}

// CheckMoveConflict reports the conflicts that moving eventID to date would
// cause, looking only at links that touch eventID. A multi-day event keeps
// its length. events is not modified.
func CheckMoveConflict(eventID string, date model.Date, events []model.CalEvent, links []Link) []Conflict {
	conflicts := make([]Conflict, 0)

	byID := model.ByID(events)
	ev, ok := byID[eventID]
	if !ok || date.IsZero() {
		return conflicts
	}
	byID[eventID] = moveTo(ev, date)

	for _, l := range links {
		if !l.Touches(eventID) {
			continue
		}
		if c, ok := evaluate(l, byID); ok {
			conflicts = append(conflicts, c)
		}
	}
	return conflicts
}

// HasBlocking reports whether any conflict has error severity.
func HasBlocking(conflicts []Conflict) bool {
	for _, c := range conflicts {
		if c.Severity == SeverityError {
			return true
		}
	}
	return false
}

// Count returns the number of error and warning conflicts.
func Count(conflicts []Conflict) (errs, warnings int) {
	for _, c := range conflicts {
		switch c.Severity {
		case SeverityError:
			errs++
		case SeverityWarning:
			warnings++
		}
	}
	return errs, warnings
}

// ForEvent returns the conflicts that involve eventID.
func ForEvent(conflicts []Conflict, eventID string) []Conflict {
	var out []Conflict
	for _, c := range conflicts {
		if c.EventID == eventID || c.LinkedEventID == eventID {
			out = append(out, c)
		}
	}
	return out
}

func moveTo(ev model.CalEvent, date model.Date) model.CalEvent {
	if ev.IsMultiDay() {
		ev.EndDate = date.AddDays(ev.Date.DaysUntil(ev.EndDate))
	}
	ev.Date = date
	return ev
}

// evaluate checks a single link. It reports false when the link holds or
// cannot be evaluated.
func evaluate(l Link, byID map[string]model.CalEvent) (Conflict, bool) {
	from, okFrom := byID[l.FromID]
	to, okTo := byID[l.ToID]
	if !okFrom || !okTo || from.Date.IsZero() || to.Date.IsZero() {
		return Conflict{}, false
	}

	diff := from.Date.DaysUntil(to.Date)
	c := Conflict{
		EventID:       l.FromID,
		LinkedEventID: l.ToID,
	}

	switch l.Type {
	case LinkBefore:
		margin := l.Gap + 1
		switch {
		case diff < 0:
			c.Type = ConflictBrokenDependency
			c.Message = fmt.Sprintf("%q must come before %q (currently %s after)",
				title(from), title(to), plural(-diff, "day"))
		case diff < l.Gap:
			c.Type = ConflictGapViolation
			c.Message = fmt.Sprintf("%q must come at least %s before %q (currently %s)",
				title(from), plural(l.Gap, "day"), title(to), plural(diff, "day"))
		default:
			return Conflict{}, false
		}
		c.Severity = SeverityError
		c.Suggestion = fmt.Sprintf("Move %q to %s or later, or move %q to %s or earlier",
			title(to), from.Date.AddDays(margin), title(from), to.Date.AddDays(-margin))

	case LinkAfter:
		if diff < 0 {
			return Conflict{}, false
		}
		c.Type = ConflictBrokenDependency
		c.Severity = SeverityError
		c.Message = fmt.Sprintf("%q must come after %q", title(from), title(to))
		c.Suggestion = fmt.Sprintf("Move %q to %s or later, or move %q to %s or earlier",
			title(from), to.Date.AddDays(1), title(to), from.Date.AddDays(-1))

	case LinkSameDay:
		if diff == 0 {
			return Conflict{}, false
		}
		c.Type = ConflictSameDay
		c.Severity = SeverityWarning
		c.Message = fmt.Sprintf("%q and %q must be on the same day", title(from), title(to))
		c.Suggestion = fmt.Sprintf("Move %q to %s, or move %q to %s",
			title(to), from.Date, title(from), to.Date)

	default:
		return Conflict{}, false
	}

	c.ID = fmt.Sprintf("%s:%s:%s", c.Type, l.FromID, l.ToID)
	return c, true
}

func title(ev model.CalEvent) string {
	if ev.Title != "" {
		return ev.Title
	}
	return ev.ID
}

func plural(n int, unit string) string {
	if n == 1 {
		return fmt.Sprintf("1 %s", unit)
	}
	return fmt.Sprintf("%d %ss", n, unit)
}
