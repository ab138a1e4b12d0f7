package schedule

import (
	"context"
	"errors"
	"testing"
	"time"

	"tourcal/internal/depend"
	"tourcal/internal/kvstore"
	"tourcal/internal/model"
	"tourcal/internal/source"
)

type failingSource struct{}

func (failingSource) Events(context.Context) ([]model.CalEvent, error) {
	return nil, errors.New("feed down")
}

func fixture(t *testing.T) (source.Source, *depend.LinkStore) {
	t.Helper()
	events := source.Static{
		{ID: "a", Title: "A", Date: model.MustDate("2025-06-03")},
		{ID: "b", Title: "B", Date: model.MustDate("2025-06-01")},
		{ID: "c", Title: "C", Date: model.MustDate("2025-06-02")},
	}
	links, err := depend.OpenLinkStore(kvstore.NewMemory())
	if err != nil {
		t.Fatal(err)
	}
	if err := links.Add(depend.Link{FromID: "a", ToID: "b", Type: depend.LinkBefore}); err != nil {
		t.Fatal(err)
	}
	if err := links.Add(depend.Link{FromID: "b", ToID: "c", Type: depend.LinkSameDay}); err != nil {
		t.Fatal(err)
	}
	return events, links
}

func TestRevalidatorRun(t *testing.T) {
	src, links := fixture(t)
	r := NewRevalidator(src, links)

	if _, ok := r.Last(); ok {
		t.Fatal("no result expected before the first run")
	}

	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Errors != 1 || res.Warnings != 1 || len(res.Conflicts) != 2 {
		t.Fatalf("unexpected result %+v", res)
	}
	last, ok := r.Last()
	if !ok || last.At != res.At {
		t.Fatal("Last should return the stored result")
	}
}

func TestRevalidatorLatest(t *testing.T) {
	src, links := fixture(t)
	r := NewRevalidator(src, links)
	ctx := context.Background()

	first, err := r.Latest(ctx, time.Hour)
	if err != nil {
		t.Fatal(err)
	}
	cached, err := r.Latest(ctx, time.Hour)
	if err != nil || cached.At != first.At {
		t.Fatal("a fresh result should be reused")
	}

	if err := links.Remove("a", "b"); err != nil {
		t.Fatal(err)
	}
	refreshed, err := r.Latest(ctx, 0)
	if err != nil {
		t.Fatal(err)
	}
	if refreshed.Errors != 0 || refreshed.Warnings != 1 {
		t.Fatalf("stale result should be recomputed, got %+v", refreshed)
	}
}

func TestRevalidatorSourceError(t *testing.T) {
	_, links := fixture(t)
	r := NewRevalidator(failingSource{}, links)
	if _, err := r.Run(context.Background()); err == nil {
		t.Fatal("expected source error")
	}
	if _, ok := r.Last(); ok {
		t.Fatal("failed runs must not replace the last result")
	}
}

func TestStartRejectsBadSpec(t *testing.T) {
	src, links := fixture(t)
	if _, err := Start(context.Background(), "every now and then", NewRevalidator(src, links)); err == nil {
		t.Fatal("expected error for an invalid cron spec")
	}
}

func TestStartRuns(t *testing.T) {
	src, links := fixture(t)
	r := NewRevalidator(src, links)

	s, err := Start(context.Background(), "@every 1s", r)
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	defer s.Stop()

	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		if _, ok := r.Last(); ok {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("scheduled revalidation never ran")
}

// gatedSource blocks Events until release is closed.
type gatedSource struct {
	source.Source
	entered chan struct{}
	release chan struct{}
}

func (g gatedSource) Events(ctx context.Context) ([]model.CalEvent, error) {
	close(g.entered)
	<-g.release
	return g.Source.Events(ctx)
}

func TestRunStartedBeforeInvalidateIsNotStored(t *testing.T) {
	src, links := fixture(t)
	gated := gatedSource{Source: src, entered: make(chan struct{}), release: make(chan struct{})}
	r := NewRevalidator(gated, links)

	done := make(chan error, 1)
	go func() {
		_, err := r.Run(context.Background())
		done <- err
	}()
	<-gated.entered

	if err := links.Remove("a", "b"); err != nil {
		t.Fatal(err)
	}
	r.Invalidate()
	close(gated.release)

	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res, ok := r.Last(); ok {
		t.Fatalf("a run that began before Invalidate must not be stored, got %+v", res)
	}
}
