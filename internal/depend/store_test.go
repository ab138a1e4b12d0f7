package depend

import (
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tourcal/internal/kvstore"
)

func TestValidateLink(t *testing.T) {
	tests := []struct {
		name    string
		link    Link
		wantErr error
	}{
		{"valid before", Link{FromID: "a", ToID: "b", Type: LinkBefore, Gap: 2}, nil},
		{"valid same day", Link{FromID: "a", ToID: "b", Type: LinkSameDay}, nil},
		{"empty from", Link{ToID: "b", Type: LinkBefore}, ErrEmptyLinkID},
		{"empty to", Link{FromID: "a", Type: LinkBefore}, ErrEmptyLinkID},
		{"self", Link{FromID: "a", ToID: "a", Type: LinkAfter}, ErrSelfLink},
		{"bad type", Link{FromID: "a", ToID: "b", Type: "whenever"}, ErrInvalidLinkType},
		{"negative gap", Link{FromID: "a", ToID: "b", Type: LinkBefore, Gap: -1}, ErrNegativeGap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateLink(tt.link)
			if tt.wantErr == nil {
				if err != nil {
					t.Errorf("ValidateLink(%+v) unexpected error: %v", tt.link, err)
				}
			} else if !errors.Is(err, tt.wantErr) {
				t.Errorf("ValidateLink(%+v) = %v, want %v", tt.link, err, tt.wantErr)
			}
		})
	}
}

func TestLinkStoreAddRemove(t *testing.T) {
	store, err := OpenLinkStore(kvstore.NewMemory())
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if len(store.List()) != 0 {
		t.Fatal("expected empty store")
	}

	if err := store.Add(Link{FromID: "a", ToID: "b", Type: LinkBefore, Gap: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(Link{FromID: "b", ToID: "c", Type: LinkAfter, Gap: 3}); err != nil {
		t.Fatalf("add: %v", err)
	}

	snapshot := store.List()
	if len(snapshot) != 2 {
		t.Fatalf("expected 2 links, got %+v", snapshot)
	}
	if snapshot[1].Gap != 0 {
		t.Fatalf("gap should be dropped for non-before links, got %d", snapshot[1].Gap)
	}

	err = store.Add(Link{FromID: "b", ToID: "a", Type: LinkSameDay})
	if !errors.Is(err, ErrDuplicateLink) {
		t.Fatalf("expected ErrDuplicateLink for reversed pair, got %v", err)
	}
	if err := store.Add(Link{FromID: "a", ToID: "a", Type: LinkSameDay}); !errors.Is(err, ErrSelfLink) {
		t.Fatalf("expected ErrSelfLink, got %v", err)
	}

	if err := store.Remove("a", "b"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if err := store.Remove("a", "b"); !errors.Is(err, ErrLinkNotFound) {
		t.Fatalf("expected ErrLinkNotFound, got %v", err)
	}

	if len(snapshot) != 2 {
		t.Fatal("earlier snapshot must not change")
	}
	if got := store.List(); len(got) != 1 || got[0].FromID != "b" {
		t.Fatalf("unexpected links after remove: %+v", got)
	}
}

func TestLinkStorePersists(t *testing.T) {
	path := filepath.Join(t.TempDir(), "links.yaml")
	kv, err := kvstore.NewFile(path)
	if err != nil {
		t.Fatal(err)
	}
	store, err := OpenLinkStore(kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := store.Add(Link{FromID: "load-in", ToID: "show", Type: LinkBefore, Gap: 1}); err != nil {
		t.Fatalf("add: %v", err)
	}

	kv2, _ := kvstore.NewFile(path)
	reopened, err := OpenLinkStore(kv2)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	got := reopened.List()
	if len(got) != 1 || got[0] != (Link{FromID: "load-in", ToID: "show", Type: LinkBefore, Gap: 1}) {
		t.Fatalf("unexpected persisted links %+v", got)
	}

	// Writes through another handle show up after Reload.
	if err := reopened.Add(Link{FromID: "show", ToID: "party", Type: LinkSameDay}); err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Reload(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if len(store.List()) != 2 {
		t.Fatalf("expected 2 links after reload, got %+v", store.List())
	}
}

// pausingStore holds the next Get open until release is closed.
type pausingStore struct {
	*kvstore.Memory
	armed   bool
	entered chan struct{}
	release chan struct{}
}

func (p *pausingStore) Get(key string, out any) (bool, error) {
	ok, err := p.Memory.Get(key, out)
	if p.armed {
		p.armed = false
		close(p.entered)
		<-p.release
	}
	return ok, err
}

func TestLinkStoreReloadDuringAdd(t *testing.T) {
	kv := &pausingStore{Memory: kvstore.NewMemory(), entered: make(chan struct{}), release: make(chan struct{})}
	store, err := OpenLinkStore(kv)
	if err != nil {
		t.Fatalf("open: %v", err)
	}

	kv.armed = true
	reloaded := make(chan error, 1)
	go func() { reloaded <- store.Reload() }()
	<-kv.entered

	added := make(chan error, 1)
	go func() { added <- store.Add(Link{FromID: "a", ToID: "b", Type: LinkBefore}) }()
	time.Sleep(20 * time.Millisecond)
	close(kv.release)

	if err := <-reloaded; err != nil {
		t.Fatalf("reload: %v", err)
	}
	if err := <-added; err != nil {
		t.Fatalf("add: %v", err)
	}
	if err := store.Add(Link{FromID: "c", ToID: "d", Type: LinkBefore}); err != nil {
		t.Fatalf("add: %v", err)
	}

	var persisted []Link
	if _, err := kv.Memory.Get(Namespace, &persisted); err != nil {
		t.Fatal(err)
	}
	if len(persisted) != 2 || len(store.List()) != 2 {
		t.Fatalf("expected both links kept, persisted %+v, in memory %+v", persisted, store.List())
	}
}
