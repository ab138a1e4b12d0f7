package ics

import (
	"time"

	"tourcal/internal/model"
)

// ToCalEvents converts occurrences to engine events bucketed into days in
// loc. Cancelled occurrences are kept with StatusCancelled.
//
// Event IDs are "<feed>:<uid>", with "@<date>" appended for recurring
// instances so that every instance can be linked on its own.
func ToCalEvents(occs []Occurrence, loc *time.Location) []model.CalEvent {
	if loc == nil {
		loc = time.UTC
	}

	out := make([]model.CalEvent, 0, len(occs))
	for _, o := range occs {
		start := o.Start.In(loc)
		end := o.End.In(loc)
		day := model.DateOf(start)
		if o.AllDay {
			day = model.DateOf(o.Start)
		}

		ev := model.CalEvent{
			ID:     o.FeedID + ":" + o.UID,
			Date:   day,
			Kind:   kindOf(o.Categories),
			Title:  o.Summary,
			Status: statusOf(o.Status),
			City:   o.Location,
			AllDay: o.AllDay,
		}
		if o.Recurring {
			ev.ID += "@" + day.String()
		}

		if o.AllDay {
			last := model.DateOf(o.End).AddDays(-1)
			if last.After(day) {
				ev.EndDate = last
			}
		} else {
			ev.Start, ev.End = start, end
			// An end at midnight belongs to the previous day.
			last := model.DateOf(end)
			if end.Equal(last.Time(loc)) {
				last = last.AddDays(-1)
			}
			if last.After(day) {
				ev.EndDate = last
			}
		}
		out = append(out, ev)
	}
	return out
}

// kindOf returns the first category that names a known kind.
func kindOf(categories []string) model.Kind {
	for _, c := range categories {
		if k := model.ParseKind(c); k != model.KindOther {
			return k
		}
	}
	return model.KindOther
}

func statusOf(s string) string {
	switch s {
	case "TENTATIVE":
		return model.StatusPending
	case "CONFIRMED":
		return model.StatusConfirmed
	case "CANCELLED":
		return model.StatusCancelled
	default:
		return ""
	}
}
