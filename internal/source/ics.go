package source

import (
	"context"
	"errors"
	"time"

	"tourcal/internal/ics"
	appLog "tourcal/internal/log"
	"tourcal/internal/model"
)

// Horizon defaults for ICS expansion.
const (
	DefaultPastDays   = 90
	DefaultFutureDays = 365
)

// ICS reads events from ICS feeds, expanding recurrences between PastDays
// before and FutureDays after now.
type ICS struct {
	Fetcher  *ics.Fetcher
	Feeds    []ics.Feed
	Location *time.Location

	PastDays   int
	FutureDays int

	// Now defaults to time.Now.
	Now func() time.Time
}

// Events fetches every feed. A feed that fails is logged and left out; the
// call only fails when no feed could be read.
func (s *ICS) Events(ctx context.Context) ([]model.CalEvent, error) {
	if len(s.Feeds) == 0 {
		return []model.CalEvent{}, nil
	}

	loc := s.Location
	if loc == nil {
		loc = time.UTC
	}
	now := time.Now
	if s.Now != nil {
		now = s.Now
	}
	past, future := s.PastDays, s.FutureDays
	if past <= 0 {
		past = DefaultPastDays
	}
	if future <= 0 {
		future = DefaultFutureDays
	}

	results, errs := s.Fetcher.FetchAll(ctx, s.Feeds)
	if len(results) == 0 && len(errs) > 0 {
		return nil, errors.Join(errs...)
	}

	parsed := make([]ics.ParsedEvent, 0)
	for _, res := range results {
		events, err := ics.ParseICS(res.Feed, res.Body)
		if err != nil {
			appLog.Error("ics source: parse failed", err, "id", res.Feed.ID)
			continue
		}
		parsed = append(parsed, events...)
	}

	today := now().In(loc)
	expanded, err := ics.ExpandOccurrences(parsed, ics.ExpandConfig{
		DisplayLocation: loc,
		RangeStart:      today.AddDate(0, 0, -past),
		RangeEnd:        today.AddDate(0, 0, future),
	})
	if err != nil {
		return nil, err
	}

	events := ics.ToCalEvents(expanded.Occurrences, loc)
	appLog.Info("ics source loaded", "feeds", len(results), "failed", len(errs), "events", len(events))
	return events, nil
}
