package model

import (
	"testing"
	"time"
)

func TestParseKind(t *testing.T) {
	tests := map[string]Kind{
		"show":     KindShow,
		" Travel ": KindTravel,
		"flight":   KindTravel,
		"GIG":      KindShow,
		"rest":     KindRest,
		"meeting":  KindMeeting,
		"brunch":   KindOther,
		"":         KindOther,
	}
	for in, want := range tests {
		if got := ParseKind(in); got != want {
			t.Errorf("ParseKind(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestLastDate(t *testing.T) {
	single := CalEvent{ID: "a", Date: MustDate("2025-06-01")}
	if single.LastDate() != single.Date || single.IsMultiDay() {
		t.Fatalf("single-day event: last %s multi %v", single.LastDate(), single.IsMultiDay())
	}

	// An end before the start is ignored.
	backwards := CalEvent{ID: "b", Date: MustDate("2025-06-05"), EndDate: MustDate("2025-06-01")}
	if backwards.LastDate() != backwards.Date || backwards.IsMultiDay() {
		t.Fatalf("backwards event: last %s", backwards.LastDate())
	}

	multi := CalEvent{ID: "c", Date: MustDate("2025-06-01"), EndDate: MustDate("2025-06-03")}
	if multi.LastDate() != MustDate("2025-06-03") || !multi.IsMultiDay() {
		t.Fatalf("multi-day event: last %s", multi.LastDate())
	}
}

func TestTimedEvents(t *testing.T) {
	at := func(s string) time.Time {
		v, err := time.Parse(time.RFC3339, s)
		if err != nil {
			t.Fatal(err)
		}
		return v
	}
	events := []CalEvent{
		{ID: "timed", Date: MustDate("2025-06-01"), Start: at("2025-06-01T10:00:00Z"), End: at("2025-06-01T11:00:00Z")},
		{ID: "allday", Date: MustDate("2025-06-01"), AllDay: true, Start: at("2025-06-01T00:00:00Z"), End: at("2025-06-02T00:00:00Z")},
		{ID: "empty", Date: MustDate("2025-06-01"), Start: at("2025-06-01T10:00:00Z"), End: at("2025-06-01T10:00:00Z")},
		{ID: "untimed", Date: MustDate("2025-06-01")},
		{ID: "overnight", Date: MustDate("2025-06-01"), EndDate: MustDate("2025-06-02"), Start: at("2025-06-01T22:00:00Z"), End: at("2025-06-02T02:00:00Z")},
	}

	got := TimedEvents(events)
	if len(got) != 1 || got[0].ID != "timed" || !got[0].Valid() {
		t.Fatalf("unexpected timed events %+v", got)
	}
}

func TestOnDate(t *testing.T) {
	events := []CalEvent{
		{ID: "fest", Date: MustDate("2025-06-01"), EndDate: MustDate("2025-06-03")},
		{ID: "gig", Date: MustDate("2025-06-02")},
		{ID: "undated"},
		{ID: "later", Date: MustDate("2025-06-04")},
	}

	var ids []string
	for _, e := range OnDate(events, MustDate("2025-06-02")) {
		ids = append(ids, e.ID)
	}
	if len(ids) != 2 || ids[0] != "fest" || ids[1] != "gig" {
		t.Fatalf("OnDate = %v", ids)
	}
	if got := OnDate(events, MustDate("2025-06-03")); len(got) != 1 || got[0].ID != "fest" {
		t.Fatalf("expected only fest on its last day, got %+v", got)
	}
}

func TestByIDLaterWins(t *testing.T) {
	m := ByID([]CalEvent{{ID: "a", Title: "first"}, {ID: "a", Title: "second"}})
	if m["a"].Title != "second" {
		t.Fatalf("expected later duplicate to win, got %q", m["a"].Title)
	}
}
