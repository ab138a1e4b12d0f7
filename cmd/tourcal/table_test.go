package main

import (
	"strings"
	"testing"

	"tourcal/internal/layout"
)

func TestFormatTableAlignsColumns(t *testing.T) {
	got := formatTable([]string{"ID", "TITLE"}, [][]string{
		{"gig", "Madrid"},
		{"soundcheck", "Sound"},
	})
	want := "ID          TITLE\n" +
		"gig         Madrid\n" +
		"soundcheck  Sound\n"
	if got != want {
		t.Fatalf("formatTable:\n%q\nwant\n%q", got, want)
	}
}

func TestFormatTableIgnoresStyling(t *testing.T) {
	styled := "\x1b[1mID\x1b[0m"
	got := formatTable([]string{styled, "X"}, [][]string{{"abcd", "y"}})
	lines := strings.Split(strings.TrimSuffix(got, "\n"), "\n")
	if lines[0] != styled+"    X" {
		t.Fatalf("unexpected header line %q", lines[0])
	}
	if lines[1] != "abcd  y" {
		t.Fatalf("unexpected row %q", lines[1])
	}
}

func TestTruncateTableCell(t *testing.T) {
	if got := truncateTableCell("a\n  b"); got != "a b" {
		t.Fatalf("expected whitespace to collapse, got %q", got)
	}
	long := strings.Repeat("é", tableCellMaxWidth+5)
	got := truncateTableCell(long)
	if !strings.HasSuffix(got, tableCellEllipsis) {
		t.Fatalf("expected ellipsis, got %q", got)
	}
	if n := len([]rune(got)); n != tableCellMaxWidth {
		t.Fatalf("expected %d runes, got %d", tableCellMaxWidth, n)
	}
}

func TestEdges(t *testing.T) {
	tests := []struct {
		starts, ends bool
		want         string
	}{
		{true, true, "[]"},
		{true, false, "[>"},
		{false, true, "<]"},
		{false, false, "<>"},
	}
	for _, tt := range tests {
		if got := edges(layout.Span{StartsHere: tt.starts, EndsHere: tt.ends}); got != tt.want {
			t.Errorf("edges(%v, %v) = %q, want %q", tt.starts, tt.ends, got, tt.want)
		}
	}
}
