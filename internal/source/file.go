package source

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"gopkg.in/yaml.v3"

	appLog "tourcal/internal/log"
	"tourcal/internal/model"
)

// File reads events from a YAML or JSON document. The document is either a
// list of events or a mapping with an "events" list. A missing file is an
// empty calendar.
type File struct {
	Path string
}

func (f File) Events(ctx context.Context) ([]model.CalEvent, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(f.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			appLog.Debug("events file missing", "path", f.Path)
			return []model.CalEvent{}, nil
		}
		return nil, err
	}
	events, err := DecodeEvents(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", f.Path, err)
	}
	return events, nil
}

// DecodeEvents parses an events document. Entries that fail to decode or
// lack an ID are logged and skipped, so one bad date does not hide the rest
// of the calendar.
func DecodeEvents(data []byte) ([]model.CalEvent, error) {
	var doc yaml.Node
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, err
	}
	if len(doc.Content) == 0 {
		return []model.CalEvent{}, nil
	}

	list := doc.Content[0]
	if list.Kind == yaml.MappingNode {
		list = nil
		for i := 0; i+1 < len(doc.Content[0].Content); i += 2 {
			if doc.Content[0].Content[i].Value == "events" {
				list = doc.Content[0].Content[i+1]
				break
			}
		}
		if list == nil {
			return nil, errors.New(`events document has no "events" list`)
		}
	}
	if list.Tag == "!!null" {
		return []model.CalEvent{}, nil
	}
	if list.Kind != yaml.SequenceNode {
		return nil, errors.New("events document must be a list")
	}

	events := make([]model.CalEvent, 0, len(list.Content))
	for _, n := range list.Content {
		var ev model.CalEvent
		if err := n.Decode(&ev); err != nil {
			appLog.Warn("event skipped", "line", n.Line, "err", err.Error())
			continue
		}
		if ev.ID == "" {
			appLog.Warn("event skipped", "line", n.Line, "err", "missing id")
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

// SaveEvents writes events to path as YAML.
func SaveEvents(path string, events []model.CalEvent) error {
	data, err := yaml.Marshal(events)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
