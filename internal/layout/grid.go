package layout

import (
	"strings"
	"time"

	"tourcal/internal/model"
)

// MonthGridDays is the number of cells in a month view (6 weeks).
const MonthGridDays = 42

// ParseWeekStart maps "sunday" to time.Sunday and anything else to
// time.Monday.
func ParseWeekStart(s string) time.Weekday {
	if strings.EqualFold(strings.TrimSpace(s), "sunday") {
		return time.Sunday
	}
	return time.Monday
}

// StartOfWeek returns the first day of the week containing day.
func StartOfWeek(day model.Date, weekStart time.Weekday) model.Date {
	offset := (int(day.Weekday()) - int(weekStart) + 7) % 7
	return day.AddDays(-offset)
}

// WeekGrid returns the seven days of the week containing day.
func WeekGrid(day model.Date, weekStart time.Weekday) []model.Date {
	first := StartOfWeek(day, weekStart)
	return model.DaysInRange(first, first.AddDays(6))
}

// MonthGrid returns the 6x7 grid of days shown for a month, starting on the
// week that contains the 1st.
func MonthGrid(year int, month time.Month, weekStart time.Weekday) []model.Date {
	first := StartOfWeek(model.NewDate(year, month, 1), weekStart)
	return model.DaysInRange(first, first.AddDays(MonthGridDays-1))
}

// Weeks splits a grid into rows of seven days. A trailing partial week is
// kept.
func Weeks(grid []model.Date) [][]model.Date {
	var out [][]model.Date
	for i := 0; i < len(grid); i += 7 {
		end := min(i+7, len(grid))
		out = append(out, grid[i:end])
	}
	return out
}

// WeekSpans lays out events one week row at a time, the way a month view
// renders them: each week is its own window with its own row occupancy.
func WeekSpans(events []model.CalEvent, grid []model.Date) [][]Span {
	weeks := Weeks(grid)
	out := make([][]Span, 0, len(weeks))
	for _, week := range weeks {
		out = append(out, CalculateSpans(events, week[0], week[len(week)-1], week))
	}
	return out
}
