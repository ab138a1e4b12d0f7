package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"tourcal/internal/model"
	"tourcal/internal/risk"
)

var riskCmd = &cobra.Command{
	Use:   "risk",
	Short: "Flag travel that overlaps a show, has no show nearby, or is unconfirmed",
	Args:  cobra.NoArgs,
	RunE:  runRisk,
}

var (
	riskJSON bool
	riskDays int
	riskAll  bool
)

func init() {
	rootCmd.AddCommand(riskCmd)
	riskCmd.Flags().BoolVar(&riskJSON, "json", false, "Output JSON")
	riskCmd.Flags().IntVar(&riskDays, "days", 0, "Days either side to look for a show (default from config)")
	riskCmd.Flags().BoolVar(&riskAll, "all", false, "List unflagged travel too")
}

type riskRow struct {
	ID    string    `json:"id"`
	Date  string    `json:"date"`
	Title string    `json:"title"`
	Flag  risk.Flag `json:"flag"`
}

func runRisk(cmd *cobra.Command, _ []string) error {
	days := riskDays
	if days <= 0 {
		days = cfg.RiskWindowDays
	}

	src, err := openSource()
	if err != nil {
		return err
	}
	events, err := src.Events(cmd.Context())
	if err != nil {
		return err
	}

	byDate := risk.GroupByDate(events)
	out := make([]riskRow, 0)
	for _, ev := range events {
		f := risk.ClassifyWithin(ev, byDate, days)
		if f == risk.FlagNone && !(riskAll && ev.Kind == model.KindTravel) {
			continue
		}
		out = append(out, riskRow{ID: ev.ID, Date: ev.Date.String(), Title: ev.Title, Flag: f})
	}

	if riskJSON {
		return encodeJSON(cmd.OutOrStdout(), out)
	}
	if len(out) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), okStyle.Render("nothing flagged"))
		return nil
	}
	rows := make([][]string, 0, len(out))
	for _, r := range out {
		rows = append(rows, []string{r.Date, r.ID, flagLabel(r.Flag), truncateTableCell(r.Title)})
	}
	fmt.Fprint(cmd.OutOrStdout(), formatTable(headers("DATE", "ID", "FLAG", "TITLE"), rows))
	return nil
}
