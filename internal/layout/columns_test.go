package layout

import (
	"math/rand"
	"testing"
	"time"

	"tourcal/internal/model"
)

func at(hhmm string) time.Time {
	t, err := time.Parse("2006-01-02 15:04", "2025-06-01 "+hhmm)
	if err != nil {
		panic(err)
	}
	return t
}

func timed(id, start, end string) model.TimedEvent {
	return model.TimedEvent{ID: id, Start: at(start), End: at(end)}
}

func TestAssignColumns(t *testing.T) {
	tests := []struct {
		name   string
		events []model.TimedEvent
		want   []Column
	}{
		{
			name:   "single event",
			events: []model.TimedEvent{timed("a", "10:00", "11:00")},
			want:   []Column{{ID: "a", Column: 0, Columns: 1}},
		},
		{
			name: "two overlapping shows",
			events: []model.TimedEvent{
				timed("a", "10:00", "12:00"),
				timed("b", "11:00", "13:00"),
			},
			want: []Column{
				{ID: "a", Column: 0, Columns: 2},
				{ID: "b", Column: 1, Columns: 2},
			},
		},
		{
			name: "back to back then overlap",
			events: []model.TimedEvent{
				timed("a", "09:00", "10:00"),
				timed("b", "10:00", "11:00"),
				timed("c", "10:30", "11:30"),
			},
			want: []Column{
				{ID: "a", Column: 0, Columns: 1},
				{ID: "b", Column: 0, Columns: 2},
				{ID: "c", Column: 1, Columns: 2},
			},
		},
		{
			name: "column reuse inside a group",
			events: []model.TimedEvent{
				timed("long", "09:00", "13:00"),
				timed("x", "09:00", "10:00"),
				timed("y", "10:00", "11:00"),
			},
			want: []Column{
				{ID: "long", Column: 1, Columns: 2},
				{ID: "x", Column: 0, Columns: 2},
				{ID: "y", Column: 0, Columns: 2},
			},
		},
		{
			name: "degenerate events are omitted",
			events: []model.TimedEvent{
				timed("zero", "10:00", "10:00"),
				timed("ok", "10:00", "11:00"),
				timed("backwards", "12:00", "11:00"),
			},
			want: []Column{{ID: "ok", Column: 0, Columns: 1}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AssignColumns(tt.events)
			if len(got) != len(tt.want) {
				t.Fatalf("expected %d results, got %d: %+v", len(tt.want), len(got), got)
			}
			for i := range tt.want {
				if got[i] != tt.want[i] {
					t.Errorf("result %d = %+v, want %+v", i, got[i], tt.want[i])
				}
			}
		})
	}
}

func TestAssignColumnsEmpty(t *testing.T) {
	if got := AssignColumns(nil); len(got) != 0 {
		t.Fatalf("expected no results, got %+v", got)
	}
}

func TestAssignColumnsPairwiseOverlapping(t *testing.T) {
	var events []model.TimedEvent
	for i, id := range []string{"a", "b", "c", "d", "e"} {
		start := at("10:00").Add(time.Duration(i) * time.Minute)
		events = append(events, model.TimedEvent{ID: id, Start: start, End: at("12:00")})
	}

	got := AssignColumns(events)
	seen := map[int]bool{}
	for _, c := range got {
		if c.Columns != len(events) {
			t.Fatalf("expected %d columns, got %d for %s", len(events), c.Columns, c.ID)
		}
		if seen[c.Column] {
			t.Fatalf("column %d assigned twice", c.Column)
		}
		seen[c.Column] = true
	}
}

func TestAssignColumnsDisjoint(t *testing.T) {
	events := []model.TimedEvent{
		timed("a", "08:00", "09:00"),
		timed("b", "09:00", "10:00"),
		timed("c", "11:00", "12:00"),
	}
	for _, c := range AssignColumns(events) {
		if c.Column != 0 || c.Columns != 1 {
			t.Fatalf("expected single column for %s, got %+v", c.ID, c)
		}
	}
}

func TestAssignColumnsOrderIndependent(t *testing.T) {
	events := []model.TimedEvent{
		timed("a", "09:00", "10:30"),
		timed("b", "09:15", "09:45"),
		timed("c", "10:00", "11:00"),
		timed("d", "11:00", "12:00"),
		timed("e", "11:30", "12:30"),
		timed("f", "13:00", "14:00"),
	}
	want := ColumnsByID(AssignColumns(events))

	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 20; i++ {
		shuffled := append([]model.TimedEvent(nil), events...)
		rng.Shuffle(len(shuffled), func(a, b int) { shuffled[a], shuffled[b] = shuffled[b], shuffled[a] })

		got := AssignColumns(shuffled)
		for j, c := range got {
			if c.ID != shuffled[j].ID {
				t.Fatalf("result order does not follow input order at %d", j)
			}
			if c != want[c.ID] {
				t.Fatalf("shuffle %d: %s = %+v, want %+v", i, c.ID, c, want[c.ID])
			}
		}
	}
}

func TestAssignColumnsNoVisualCollision(t *testing.T) {
	events := []model.TimedEvent{
		timed("a", "09:00", "12:00"),
		timed("b", "09:30", "10:00"),
		timed("c", "09:45", "11:00"),
		timed("d", "10:00", "10:30"),
		timed("e", "10:15", "12:30"),
		timed("f", "11:00", "11:15"),
	}
	byID := ColumnsByID(AssignColumns(events))
	for i := range events {
		for j := i + 1; j < len(events); j++ {
			a, b := events[i], events[j]
			overlap := a.Start.Before(b.End) && b.Start.Before(a.End)
			if overlap && byID[a.ID].Column == byID[b.ID].Column {
				t.Fatalf("%s and %s overlap but share column %d", a.ID, b.ID, byID[a.ID].Column)
			}
		}
	}
}
