package source

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"tourcal/internal/ics"
	"tourcal/internal/model"
)

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestFileYAML(t *testing.T) {
	path := writeFile(t, "events.yaml", `
events:
  - id: madrid
    date: 2025-06-01
    kind: gig
    title: Madrid
    status: pending
  - id: fest
    date: 2025-06-05
    endDate: 2025-06-07
    kind: show
    title: Festival
  - id: broken
    date: 2025-13-45
  - title: no id
    date: 2025-06-01
  - id: soundcheck
    date: 2025-06-01
    kind: meeting
    start: 2025-06-01T15:00:00Z
    end: 2025-06-01T16:00:00Z
`)

	events, err := File{Path: path}.Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events (bad date and missing id skipped), got %+v", events)
	}
	byID := model.ByID(events)
	if byID["madrid"].Kind != model.KindShow || byID["madrid"].Status != model.StatusPending {
		t.Errorf("unexpected madrid %+v", byID["madrid"])
	}
	if !byID["fest"].IsMultiDay() {
		t.Error("festival should be multi-day")
	}
	if !byID["soundcheck"].IsTimed() {
		t.Error("soundcheck should be timed")
	}
}

func TestFileJSONList(t *testing.T) {
	path := writeFile(t, "events.json", `[
  {"id": "a", "date": "2025-06-01", "kind": "travel", "title": "Fly"},
  {"id": "b", "date": "2025-06-02", "kind": "show", "title": "Gig"}
]`)
	events, err := File{Path: path}.Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	if len(events) != 2 || events[0].Kind != model.KindTravel {
		t.Fatalf("unexpected events %+v", events)
	}
}

func TestFileMissingAndInvalid(t *testing.T) {
	events, err := File{Path: filepath.Join(t.TempDir(), "none.yaml")}.Events(context.Background())
	if err != nil || len(events) != 0 {
		t.Fatalf("missing file should be empty: %v %v", events, err)
	}

	path := writeFile(t, "bad.yaml", "id: not-a-list\n")
	if _, err := (File{Path: path}).Events(context.Background()); err == nil {
		t.Fatal("expected error for a scalar mapping")
	}
}

func TestSaveEventsRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "events.yaml")
	in := []model.CalEvent{
		{ID: "a", Date: model.MustDate("2025-06-01"), Kind: model.KindShow, Title: "A"},
		{ID: "b", Date: model.MustDate("2025-06-02"), EndDate: model.MustDate("2025-06-04"), Kind: model.KindRest, Title: "B"},
	}
	if err := SaveEvents(path, in); err != nil {
		t.Fatalf("SaveEvents: %v", err)
	}
	data, _ := os.ReadFile(path)
	if strings.Contains(string(data), "start:") {
		t.Fatalf("zero times should be omitted:\n%s", data)
	}

	out, err := File{Path: path}.Events(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if len(out) != 2 || out[1].EndDate != in[1].EndDate || out[0].Title != "A" {
		t.Fatalf("round trip mismatch: %+v", out)
	}
}

const feed = "BEGIN:VCALENDAR\r\nVERSION:2.0\r\nPRODID:-//tourcal//test//EN\r\n" +
	"BEGIN:VEVENT\r\nUID:flight\r\nSUMMARY:Flight to Lisbon\r\nCATEGORIES:flight\r\n" +
	"DTSTART:20250610T080000Z\r\nDTEND:20250610T100000Z\r\nEND:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestICSAndMulti(t *testing.T) {
	icsPath := writeFile(t, "tour.ics", feed)
	filePath := writeFile(t, "events.yaml", `
- id: lisbon
  date: 2025-06-10
  kind: show
  title: Lisbon
- id: dup
  date: 2025-06-11
`)

	icsSrc := &ICS{
		Fetcher: ics.NewFetcher(t.TempDir()),
		Feeds:   []ics.Feed{{ID: "tour", Path: icsPath}},
		Now:     func() time.Time { return time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC) },
	}
	src := Multi{File{Path: filePath}, icsSrc, Static{{ID: "dup", Date: model.MustDate("2025-07-01")}}}

	events, err := src.Events(context.Background())
	if err != nil {
		t.Fatalf("Events: %v", err)
	}
	byID := model.ByID(events)
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %+v", events)
	}
	flight, ok := byID["tour:flight"]
	if !ok || flight.Kind != model.KindTravel || flight.Date != model.MustDate("2025-06-10") {
		t.Fatalf("unexpected flight %+v", flight)
	}
	if byID["dup"].Date != model.MustDate("2025-06-11") {
		t.Fatal("first source should win on duplicate ids")
	}
}

func TestICSAllFeedsFail(t *testing.T) {
	src := &ICS{
		Fetcher: ics.NewFetcher(t.TempDir()),
		Feeds:   []ics.Feed{{ID: "gone", Path: filepath.Join(t.TempDir(), "gone.ics")}},
	}
	if _, err := src.Events(context.Background()); err == nil {
		t.Fatal("expected error when no feed can be read")
	}

	events, err := (&ICS{}).Events(context.Background())
	if err != nil || len(events) != 0 {
		t.Fatalf("no feeds should be empty: %v %v", events, err)
	}
}

func TestMultiReportsErrors(t *testing.T) {
	dir := t.TempDir()
	src := Multi{Static{{ID: "a"}}, File{Path: dir}}
	events, err := src.Events(context.Background())
	if err == nil {
		t.Fatal("expected error reading a directory")
	}
	if len(events) != 1 {
		t.Fatalf("events from healthy sources should still be returned, got %+v", events)
	}
}

type countingSource struct {
	calls int
}

func (c *countingSource) Events(context.Context) ([]model.CalEvent, error) {
	c.calls++
	return []model.CalEvent{{ID: "x"}}, nil
}

func TestCached(t *testing.T) {
	inner := &countingSource{}
	c := NewCached(inner, time.Hour)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		events, err := c.Events(ctx)
		if err != nil || len(events) != 1 {
			t.Fatalf("Events: %v %v", events, err)
		}
		events[0].ID = "mutated"
	}
	if inner.calls != 1 {
		t.Fatalf("expected one upstream call, got %d", inner.calls)
	}
	if events, _ := c.Events(ctx); events[0].ID != "x" {
		t.Fatal("callers must not be able to change the cached events")
	}

	c.Invalidate()
	if _, err := c.Events(ctx); err != nil {
		t.Fatal(err)
	}
	if inner.calls != 2 {
		t.Fatalf("expected a refetch after Invalidate, got %d calls", inner.calls)
	}
}
