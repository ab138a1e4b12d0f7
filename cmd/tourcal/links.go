package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"tourcal/internal/depend"
	appLog "tourcal/internal/log"
	"tourcal/internal/model"
)

var linksCmd = &cobra.Command{
	Use:   "links",
	Short: "Manage dependency links between events",
}

var linksListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all links",
	Args:  cobra.NoArgs,
	RunE:  runLinksList,
}

var linksAddCmd = &cobra.Command{
	Use:   "add <from-id> <to-id>",
	Short: "Link two events",
	Args:  cobra.ExactArgs(2),
	RunE:  runLinksAdd,
}

var linksRmCmd = &cobra.Command{
	Use:     "rm <from-id> <to-id>",
	Short:   "Remove the link from one event to another",
	Aliases: []string{"remove"},
	Args:    cobra.ExactArgs(2),
	RunE:    runLinksRm,
}

var (
	linksListJSON bool
	linkType      string
	linkGap       int
)

func init() {
	rootCmd.AddCommand(linksCmd)
	linksCmd.AddCommand(linksListCmd, linksAddCmd, linksRmCmd)

	linksListCmd.Flags().BoolVar(&linksListJSON, "json", false, "Output JSON")
	linksAddCmd.Flags().StringVar(&linkType, "type", string(depend.LinkBefore), "Link type: before, after, sameDay")
	linksAddCmd.Flags().IntVar(&linkGap, "gap", 0, "Minimum days between the events (before only)")
}

func runLinksList(cmd *cobra.Command, _ []string) error {
	store, err := openLinks()
	if err != nil {
		return err
	}
	links := store.List()
	if linksListJSON {
		if links == nil {
			links = []depend.Link{}
		}
		return encodeJSON(cmd.OutOrStdout(), links)
	}

	if len(links) == 0 {
		fmt.Fprintln(cmd.OutOrStdout(), mutedStyle.Render("no links"))
		return nil
	}
	rows := make([][]string, 0, len(links))
	for _, l := range links {
		gap := "-"
		if l.Type == depend.LinkBefore {
			gap = strconv.Itoa(l.Gap)
		}
		rows = append(rows, []string{l.FromID, string(l.Type), l.ToID, gap})
	}
	fmt.Fprint(cmd.OutOrStdout(), formatTable(headers("FROM", "TYPE", "TO", "GAP"), rows))
	return nil
}

func runLinksAdd(cmd *cobra.Command, args []string) error {
	l := depend.Link{FromID: args[0], ToID: args[1], Type: depend.LinkType(linkType), Gap: linkGap}
	store, err := openLinks()
	if err != nil {
		return err
	}

	// Links may be added before their events exist; say so but keep going.
	if src, err := openSource(); err == nil {
		if events, err := src.Events(cmd.Context()); err == nil {
			byID := model.ByID(events)
			for _, id := range []string{l.FromID, l.ToID} {
				if _, ok := byID[id]; !ok {
					appLog.Warn("link references an unknown event", "id", id)
				}
			}
		}
	}

	if err := store.Add(l); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "added %s\n", l)
	return nil
}

func runLinksRm(cmd *cobra.Command, args []string) error {
	store, err := openLinks()
	if err != nil {
		return err
	}
	if err := store.Remove(args[0], args[1]); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "removed %s -> %s\n", args[0], args[1])
	return nil
}
