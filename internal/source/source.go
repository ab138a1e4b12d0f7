// Package source supplies the calendar events the engine works on.
package source

import (
	"context"
	"errors"
	"fmt"

	appLog "tourcal/internal/log"
	"tourcal/internal/model"
)

// Source returns the current event set. Each call reads fresh data.
type Source interface {
	Events(ctx context.Context) ([]model.CalEvent, error)
}

// Multi concatenates the events of several sources. Events whose ID was
// already seen are dropped with a warning.
type Multi []Source

func (m Multi) Events(ctx context.Context) ([]model.CalEvent, error) {
	var all []model.CalEvent
	seen := make(map[string]bool)
	var errs []error

	for i, src := range m {
		events, err := src.Events(ctx)
		if err != nil {
			errs = append(errs, fmt.Errorf("source %d: %w", i, err))
			continue
		}
		for _, ev := range events {
			if seen[ev.ID] {
				appLog.Warn("duplicate event id dropped", "id", ev.ID)
				continue
			}
			seen[ev.ID] = true
			all = append(all, ev)
		}
	}
	if len(errs) > 0 {
		return all, errors.Join(errs...)
	}
	return all, nil
}

// Static is a fixed event list.
type Static []model.CalEvent

func (s Static) Events(context.Context) ([]model.CalEvent, error) {
	return append([]model.CalEvent(nil), s...), nil
}
