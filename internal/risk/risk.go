// Package risk flags travel days that look wrong next to the show schedule.
package risk

import "tourcal/internal/model"

// Flag is the single annotation an event can carry. The zero value means
// nothing was flagged.
type Flag string

const (
	FlagNone Flag = ""

	// FlagOverlap marks travel on a day that also has a show.
	FlagOverlap Flag = "overlap"

	// FlagIsolated marks travel with no show nearby.
	FlagIsolated Flag = "isolated"

	// FlagPending marks travel that is not confirmed yet.
	FlagPending Flag = "pending"
)

// DefaultWindowDays is how far either side of a travel day a show may be
// before the travel counts as isolated.
const DefaultWindowDays = 2

// ByDate holds events bucketed by day.
type ByDate map[string][]model.CalEvent

// GroupByDate buckets events by their Date. Events without a date are dropped.
func GroupByDate(events []model.CalEvent) ByDate {
	g := make(ByDate)
	for _, e := range events {
		if e.Date.IsZero() {
			continue
		}
		k := e.Date.String()
		g[k] = append(g[k], e)
	}
	return g
}

// On returns the events bucketed on day.
func (g ByDate) On(day model.Date) []model.CalEvent {
	return g[day.String()]
}

func (g ByDate) hasShow(day model.Date) bool {
	for _, e := range g.On(day) {
		if e.Kind == model.KindShow {
			return true
		}
	}
	return false
}

// Classify is ClassifyWithin using DefaultWindowDays.
func Classify(ev model.CalEvent, byDate ByDate) Flag {
	return ClassifyWithin(ev, byDate, DefaultWindowDays)
}

// ClassifyWithin returns the highest-priority flag for ev: overlap, then
// isolated, then pending. Only travel is ever flagged.
func ClassifyWithin(ev model.CalEvent, byDate ByDate, days int) Flag {
	switch ev.Kind {
	case model.KindTravel:
		return classifyTravel(ev, byDate, days)
	case model.KindShow, model.KindMeeting, model.KindRest, model.KindOther:
		// never flagged
	}
	return FlagNone
}

func classifyTravel(ev model.CalEvent, byDate ByDate, days int) Flag {
	if ev.Date.IsZero() {
		return FlagNone
	}
	if days < 0 {
		days = 0
	}

	if byDate.hasShow(ev.Date) {
		return FlagOverlap
	}

	near := false
	for off := 1; off <= days && !near; off++ {
		near = byDate.hasShow(ev.Date.AddDays(-off)) || byDate.hasShow(ev.Date.AddDays(off))
	}
	if !near {
		return FlagIsolated
	}

	if ev.Status == model.StatusPending {
		return FlagPending
	}
	return FlagNone
}

// ClassifyAll flags every event in events and returns the non-empty flags
// keyed by event ID.
func ClassifyAll(events []model.CalEvent, days int) map[string]Flag {
	byDate := GroupByDate(events)
	out := make(map[string]Flag)
	for _, e := range events {
		if f := ClassifyWithin(e, byDate, days); f != FlagNone {
			out[e.ID] = f
		}
	}
	return out
}
