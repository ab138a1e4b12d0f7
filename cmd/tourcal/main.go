// Package main implements the tourcal CLI.
package main

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"tourcal/internal/config"
	"tourcal/internal/depend"
	"tourcal/internal/ics"
	"tourcal/internal/kvstore"
	appLog "tourcal/internal/log"
	"tourcal/internal/source"
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr interface{ ExitCode() int }
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.ExitCode())
		}
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:               "tourcal",
	Short:             "Calendar layout and dependency checks for tour schedules",
	SilenceUsage:      true,
	PersistentPreRunE: loadConfig,
}

var (
	configPath string
	eventsPath string
	linksPath  string
	logLevel   string

	// cfg is loaded before every command runs.
	cfg *config.Config
)

func init() {
	flags := rootCmd.PersistentFlags()
	flags.StringVar(&configPath, "config", "", "Path to config file (defaults are used when empty)")
	flags.StringVar(&eventsPath, "events", "", "Events file (overrides config events_file)")
	flags.StringVar(&linksPath, "links", "", "Links file (overrides config links_file)")
	flags.StringVar(&logLevel, "log-level", "", "Log level: debug, info, warn, error")
}

func loadConfig(cmd *cobra.Command, _ []string) error {
	if configPath == "" {
		cfg = config.DefaultConfig()
	} else {
		loaded, err := config.Load(configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
		cfg.EventsFile = config.Resolve(configPath, cfg.EventsFile)
		cfg.LinksFile = config.Resolve(configPath, cfg.LinksFile)
		for i := range cfg.ICS {
			cfg.ICS[i].Path = config.Resolve(configPath, cfg.ICS[i].Path)
		}
	}

	if eventsPath != "" {
		cfg.EventsFile = eventsPath
	}
	if linksPath != "" {
		cfg.LinksFile = linksPath
	}
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	appLog.SetLevel(appLog.ParseLevel(cfg.LogLevel))
	appLog.Debug("effective config",
		"events_file", cfg.EventsFile,
		"links_file", cfg.LinksFile,
		"timezone", cfg.Timezone,
		"ics_count", len(cfg.ICS),
	)
	return nil
}

// openSource builds the configured event source: the events file plus any
// ICS feeds.
func openSource() (source.Source, error) {
	file := source.File{Path: cfg.EventsFile}
	if len(cfg.ICS) == 0 {
		return file, nil
	}

	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	feeds := make([]ics.Feed, 0, len(cfg.ICS))
	for _, c := range cfg.ICS {
		feeds = append(feeds, ics.Feed{ID: c.ID, Name: c.Name, URL: c.URL, Path: c.Path})
	}
	return source.Multi{file, &source.ICS{
		Fetcher:  ics.NewFetcher(""),
		Feeds:    feeds,
		Location: loc,
	}}, nil
}

func openLinks() (*depend.LinkStore, error) {
	kv, err := kvstore.NewFile(cfg.LinksFile)
	if err != nil {
		return nil, err
	}
	return depend.OpenLinkStore(kv)
}

// location is the configured timezone, or UTC when it does not load.
func location() *time.Location {
	loc, err := cfg.Location()
	if err != nil {
		appLog.Warn("unknown timezone, using UTC", "timezone", cfg.Timezone)
		return time.UTC
	}
	return loc
}

func today() time.Time {
	return time.Now().In(location())
}

// exitError ends the process with code. Cobra still prints msg as the
// command error.
type exitError struct {
	code int
	msg  string
}

func (e exitError) Error() string { return e.msg }
func (e exitError) ExitCode() int { return e.code }
