package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"tourcal/internal/layout"
	"tourcal/internal/model"
)

var layoutCmd = &cobra.Command{
	Use:   "layout <date>",
	Short: "Show column positions for the timed events of a day",
	Args:  cobra.ExactArgs(1),
	RunE:  runLayout,
}

var spansCmd = &cobra.Command{
	Use:   "spans",
	Short: "Pack multi-day events into rows for a date window",
	Args:  cobra.NoArgs,
	RunE:  runSpans,
}

var monthCmd = &cobra.Command{
	Use:   "month [yyyy-mm]",
	Short: "Lay out a month grid week by week",
	Args:  cobra.MaximumNArgs(1),
	RunE:  runMonth,
}

var (
	layoutJSON bool
	spansJSON  bool
	spansStart string
	spansEnd   string
	monthJSON  bool
)

func init() {
	rootCmd.AddCommand(layoutCmd, spansCmd, monthCmd)

	layoutCmd.Flags().BoolVar(&layoutJSON, "json", false, "Output JSON")

	spansCmd.Flags().BoolVar(&spansJSON, "json", false, "Output JSON")
	spansCmd.Flags().StringVar(&spansStart, "start", "", "First day of the window (YYYY-MM-DD)")
	spansCmd.Flags().StringVar(&spansEnd, "end", "", "Last day of the window (YYYY-MM-DD)")
	_ = spansCmd.MarkFlagRequired("start")
	_ = spansCmd.MarkFlagRequired("end")

	monthCmd.Flags().BoolVar(&monthJSON, "json", false, "Output JSON")
}

func runLayout(cmd *cobra.Command, args []string) error {
	day, err := model.ParseDate(args[0])
	if err != nil {
		return err
	}
	src, err := openSource()
	if err != nil {
		return err
	}
	events, err := src.Events(cmd.Context())
	if err != nil {
		return err
	}

	onDay := model.OnDate(events, day)
	cols := layout.AssignColumns(model.TimedEvents(onDay))
	if layoutJSON {
		return encodeJSON(cmd.OutOrStdout(), cols)
	}

	byID := model.ByID(onDay)
	loc := location()
	rows := make([][]string, 0, len(cols))
	for _, c := range cols {
		ev := byID[c.ID]
		rows = append(rows, []string{
			c.ID,
			fmt.Sprintf("%d/%d", c.Column+1, c.Columns),
			ev.Start.In(loc).Format("15:04") + "-" + ev.End.In(loc).Format("15:04"),
			truncateTableCell(ev.Title),
		})
	}

	out := cmd.OutOrStdout()
	if len(rows) == 0 {
		fmt.Fprintln(out, mutedStyle.Render("no timed events on "+day.String()))
	} else {
		fmt.Fprint(out, formatTable(headers("ID", "COLUMN", "TIME", "TITLE"), rows))
	}
	for _, ev := range onDay {
		if !ev.IsTimed() || ev.IsMultiDay() {
			fmt.Fprintf(out, "all day: %s %s\n", ev.ID, ev.Title)
		}
	}
	return nil
}

func runSpans(cmd *cobra.Command, _ []string) error {
	start, err := model.ParseDate(spansStart)
	if err != nil {
		return fmt.Errorf("--start: %w", err)
	}
	end, err := model.ParseDate(spansEnd)
	if err != nil {
		return fmt.Errorf("--end: %w", err)
	}
	if end.Before(start) {
		return fmt.Errorf("--end %s is before --start %s", end, start)
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	events, err := src.Events(cmd.Context())
	if err != nil {
		return err
	}

	spans := layout.CalculateSpans(events, start, end, nil)
	if spansJSON {
		return encodeJSON(cmd.OutOrStdout(), spans)
	}
	fmt.Fprint(cmd.OutOrStdout(), formatSpans(spans))
	return nil
}

func formatSpans(spans []layout.Span) string {
	rows := make([][]string, 0, len(spans))
	for _, s := range spans {
		rows = append(rows, []string{
			strconv.Itoa(s.Row),
			s.StartDate.String(),
			s.EndDate.String(),
			strconv.Itoa(s.SpanDays),
			edges(s),
			s.Event.ID,
			truncateTableCell(s.Event.Title),
		})
	}
	return formatTable(headers("ROW", "START", "END", "DAYS", "EDGES", "ID", "TITLE"), rows)
}

// edges draws where a bar is cut by the window: "[" and "]" for real
// ends, "<" and ">" where the event continues.
func edges(s layout.Span) string {
	left, right := "<", ">"
	if s.StartsHere {
		left = "["
	}
	if s.EndsHere {
		right = "]"
	}
	return left + right
}

type monthWeekOutput struct {
	Days  []model.Date  `json:"days"`
	Spans []layout.Span `json:"spans"`
}

func runMonth(cmd *cobra.Command, args []string) error {
	now := today()
	year, month := now.Year(), now.Month()
	if len(args) == 1 {
		t, err := time.Parse("2006-01", args[0])
		if err != nil {
			return fmt.Errorf("month must be YYYY-MM: %w", err)
		}
		year, month = t.Year(), t.Month()
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	events, err := src.Events(cmd.Context())
	if err != nil {
		return err
	}

	grid := layout.MonthGrid(year, month, layout.ParseWeekStart(cfg.WeekStart))
	weeks := layout.Weeks(grid)
	spans := layout.WeekSpans(events, grid)

	if monthJSON {
		out := make([]monthWeekOutput, len(weeks))
		for i := range weeks {
			out[i] = monthWeekOutput{Days: weeks[i], Spans: spans[i]}
		}
		return encodeJSON(cmd.OutOrStdout(), out)
	}

	w := cmd.OutOrStdout()
	fmt.Fprintf(w, "%s %d (weeks start %s)\n", month, year, cfg.WeekStart)
	for i, week := range weeks {
		fmt.Fprintf(w, "\n%s\n", headerStyle.Render(fmt.Sprintf("%s .. %s", week[0], week[len(week)-1])))
		if len(spans[i]) == 0 {
			fmt.Fprintln(w, mutedStyle.Render("(empty)"))
			continue
		}
		fmt.Fprint(w, formatSpans(spans[i]))
	}
	return nil
}
