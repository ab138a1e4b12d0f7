package layout

import (
	"sort"

	"tourcal/internal/model"
)

// Span is an event's clipped extent within a visible date window.
//
// StartsHere and EndsHere are false when the event continues past the
// window edge on that side; renderers use them to drop rounded corners and
// resize handles.
type Span struct {
	Event      model.CalEvent `json:"event"`
	StartDate  model.Date     `json:"startDate"`
	EndDate    model.Date     `json:"endDate"`
	SpanDays   int            `json:"spanDays"`
	StartsHere bool           `json:"spanStartsHere"`
	EndsHere   bool           `json:"spanEndsHere"`
	Row        int            `json:"rowIndex"`
}

// DaysBetween returns b - a in whole days.
func DaysBetween(a, b model.Date) int {
	return a.DaysUntil(b)
}

// CalculateSpans clips every event that intersects [windowStart, windowEnd]
// to the window and assigns it a row such that no two bars covering the same
// grid day share a row.
//
// grid lists the dates laid out on screen; occupancy is tracked per grid
// cell, so covered days missing from grid never collide. A nil grid means
// every day of the window. Events with a missing date are skipped. Results
// keep the input order.
func CalculateSpans(events []model.CalEvent, windowStart, windowEnd model.Date, grid []model.Date) []Span {
	if windowStart.IsZero() || windowEnd.IsZero() || windowEnd.Before(windowStart) {
		return nil
	}
	if len(grid) == 0 {
		grid = model.DaysInRange(windowStart, windowEnd)
	}
	gridIndex := make(map[string]int, len(grid))
	for i, d := range grid {
		if _, seen := gridIndex[d.String()]; !seen {
			gridIndex[d.String()] = i
		}
	}

	type pending struct {
		idx  int
		span Span
	}
	items := make([]pending, 0, len(events))
	for i, ev := range events {
		if ev.Date.IsZero() {
			continue
		}
		start, end := ev.Date, ev.LastDate()
		if end.Before(windowStart) || start.After(windowEnd) {
			continue
		}
		spanStart := model.MaxDate(start, windowStart)
		spanEnd := model.MinDate(end, windowEnd)
		items = append(items, pending{idx: i, span: Span{
			Event:      ev,
			StartDate:  spanStart,
			EndDate:    spanEnd,
			SpanDays:   DaysBetween(spanStart, spanEnd) + 1,
			StartsHere: !start.Before(windowStart),
			EndsHere:   !end.After(windowEnd),
		}})
	}

	// Pack earlier and longer bars first so long bars stay near the top.
	packOrder := make([]int, len(items))
	for i := range packOrder {
		packOrder[i] = i
	}
	sort.SliceStable(packOrder, func(a, b int) bool {
		sa, sb := items[packOrder[a]].span, items[packOrder[b]].span
		if c := sa.StartDate.Compare(sb.StartDate); c != 0 {
			return c < 0
		}
		return sa.SpanDays > sb.SpanDays
	})

	occ := newOccupancy(len(grid))
	for _, p := range packOrder {
		span := &items[p].span
		var cells []int
		for _, d := range model.DaysInRange(span.StartDate, span.EndDate) {
			if gi, ok := gridIndex[d.String()]; ok {
				cells = append(cells, gi)
			}
		}
		span.Row = occ.place(cells)
	}

	out := make([]Span, 0, len(items))
	for _, it := range items {
		out = append(out, it.span)
	}
	return out
}

// MaxRow returns how many rows spans use.
func MaxRow(spans []Span) int {
	rows := 0
	for _, s := range spans {
		if s.Row+1 > rows {
			rows = s.Row + 1
		}
	}
	return rows
}

// occupancy is a day x row grid of taken cells.
type occupancy struct {
	days [][]bool
}

func newOccupancy(days int) *occupancy {
	return &occupancy{days: make([][]bool, days)}
}

func (o *occupancy) taken(day, row int) bool {
	rows := o.days[day]
	return row < len(rows) && rows[row]
}

// place finds the lowest row free on every cell and marks it taken.
func (o *occupancy) place(cells []int) int {
	row := 0
	for {
		free := true
		for _, day := range cells {
			if o.taken(day, row) {
				free = false
				break
			}
		}
		if free {
			break
		}
		row++
	}

	for _, day := range cells {
		for len(o.days[day]) <= row {
			o.days[day] = append(o.days[day], false)
		}
		o.days[day][row] = true
	}
	return row
}
