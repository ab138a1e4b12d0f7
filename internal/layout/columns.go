// Package layout computes where calendar events sit on screen: side-by-side
// columns for events that overlap within a day, and stacked rows for bars
// that span several days of a date grid.
//
// Everything here is a pure function of its arguments. Malformed events are
// dropped from the result rather than reported.
package layout

import (
	"sort"
	"time"

	"tourcal/internal/model"
)

// Column places one timed event among the concurrent lanes of its overlap
// group. Column is 0-based; Columns is the lane count for the whole group.
type Column struct {
	ID      string `json:"id"`
	Column  int    `json:"column"`
	Columns int    `json:"columns"`
}

// AssignColumns lays out timed events of a single day so that overlapping
// events render side by side.
//
// Intervals are half-open: an event ending at 10:00 and one starting at
// 10:00 do not overlap. Events with End <= Start are omitted. Results keep
// the input order.
func AssignColumns(events []model.TimedEvent) []Column {
	order := make([]int, 0, len(events))
	for i, ev := range events {
		if ev.Valid() {
			order = append(order, i)
		}
	}
	if len(order) == 0 {
		return nil
	}

	sort.SliceStable(order, func(a, b int) bool {
		ea, eb := events[order[a]], events[order[b]]
		if !ea.Start.Equal(eb.Start) {
			return ea.Start.Before(eb.Start)
		}
		return ea.End.Before(eb.End)
	})

	column := make([]int, len(events))
	columns := make([]int, len(events))

	var (
		group       []int
		colEnds     []time.Time
		groupMaxEnd time.Time
	)
	flush := func() {
		for _, idx := range group {
			columns[idx] = len(colEnds)
		}
		group = group[:0]
		colEnds = colEnds[:0]
	}

	for _, idx := range order {
		ev := events[idx]
		if len(group) > 0 && !ev.Start.Before(groupMaxEnd) {
			flush()
		}
		if len(group) == 0 || ev.End.After(groupMaxEnd) {
			groupMaxEnd = ev.End
		}

		placed := -1
		for c, end := range colEnds {
			if !end.After(ev.Start) {
				placed = c
				break
			}
		}
		if placed < 0 {
			placed = len(colEnds)
			colEnds = append(colEnds, ev.End)
		} else {
			colEnds[placed] = ev.End
		}

		column[idx] = placed
		group = append(group, idx)
	}
	flush()

	out := make([]Column, 0, len(order))
	for i, ev := range events {
		if !ev.Valid() {
			continue
		}
		out = append(out, Column{ID: ev.ID, Column: column[i], Columns: columns[i]})
	}
	return out
}

// ColumnsByID indexes a layout result by event ID.
func ColumnsByID(cols []Column) map[string]Column {
	m := make(map[string]Column, len(cols))
	for _, c := range cols {
		m[c.ID] = c
	}
	return m
}
