package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"tourcal/internal/depend"
	"tourcal/internal/model"
)

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check every dependency link against the current dates",
	Args:  cobra.NoArgs,
	RunE:  runValidate,
}

var checkMoveCmd = &cobra.Command{
	Use:   "check-move <event-id> <date>",
	Short: "Report what moving an event would break; exits 1 when blocked",
	Args:  cobra.ExactArgs(2),
	RunE:  runCheckMove,
}

var (
	validateJSON  bool
	checkMoveJSON bool
)

func init() {
	rootCmd.AddCommand(validateCmd, checkMoveCmd)
	validateCmd.Flags().BoolVar(&validateJSON, "json", false, "Output JSON")
	checkMoveCmd.Flags().BoolVar(&checkMoveJSON, "json", false, "Output JSON")
}

// loadAll reads events and links for the conflict commands.
func loadAll(cmd *cobra.Command) ([]model.CalEvent, []depend.Link, error) {
	src, err := openSource()
	if err != nil {
		return nil, nil, err
	}
	events, err := src.Events(cmd.Context())
	if err != nil {
		return nil, nil, err
	}
	links, err := openLinks()
	if err != nil {
		return nil, nil, err
	}
	return events, links.List(), nil
}

func runValidate(cmd *cobra.Command, _ []string) error {
	events, links, err := loadAll(cmd)
	if err != nil {
		return err
	}

	conflicts := depend.ValidateAll(events, links)
	if validateJSON {
		return encodeJSON(cmd.OutOrStdout(), conflicts)
	}
	printConflicts(cmd.OutOrStdout(), conflicts)
	return nil
}

func runCheckMove(cmd *cobra.Command, args []string) error {
	eventID := args[0]
	date, err := model.ParseDate(args[1])
	if err != nil {
		return err
	}
	events, links, err := loadAll(cmd)
	if err != nil {
		return err
	}
	if _, ok := model.ByID(events)[eventID]; !ok {
		return fmt.Errorf("unknown event %q", eventID)
	}

	conflicts := depend.CheckMoveConflict(eventID, date, events, links)
	blocking := depend.HasBlocking(conflicts)

	if checkMoveJSON {
		if err := encodeJSON(cmd.OutOrStdout(), struct {
			Blocking  bool              `json:"blocking"`
			Conflicts []depend.Conflict `json:"conflicts"`
		}{blocking, conflicts}); err != nil {
			return err
		}
	} else {
		printConflicts(cmd.OutOrStdout(), conflicts)
	}

	if blocking {
		errs, _ := depend.Count(conflicts)
		return exitError{code: 1, msg: fmt.Sprintf("moving %s to %s is blocked by %d error(s)", eventID, date, errs)}
	}
	return nil
}

func printConflicts(w io.Writer, conflicts []depend.Conflict) {
	if len(conflicts) == 0 {
		fmt.Fprintln(w, okStyle.Render("no conflicts"))
		return
	}

	rows := make([][]string, 0, len(conflicts))
	for _, c := range conflicts {
		rows = append(rows, []string{
			severityLabel(c.Severity),
			string(c.Type),
			c.EventID,
			c.LinkedEventID,
			truncateTableCell(c.Message),
		})
	}
	fmt.Fprint(w, formatTable(headers("SEVERITY", "TYPE", "EVENT", "LINKED", "MESSAGE"), rows))

	for _, c := range conflicts {
		if c.Suggestion != "" {
			fmt.Fprintf(w, "%s: %s\n", c.EventID, mutedStyle.Render(c.Suggestion))
		}
	}

	errs, warns := depend.Count(conflicts)
	fmt.Fprintf(w, "%d error(s), %d warning(s)\n", errs, warns)
}
