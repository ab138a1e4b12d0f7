package depend

import (
	"fmt"
	"slices"
	"sync"

	"tourcal/internal/kvstore"
	appLog "tourcal/internal/log"
)

// Namespace is the key the link list is stored under.
const Namespace = "event-links"

// LinkRepository is the persisted set of links. List returns a snapshot the
// caller may keep; later Add/Remove calls do not change it.
type LinkRepository interface {
	List() []Link
	Add(l Link) error
	Remove(fromID, toID string) error
}

// LinkStore is a LinkRepository kept in a kvstore.Store as a single list.
type LinkStore struct {
	mu    sync.RWMutex
	kv    kvstore.Store
	links []Link
}

var _ LinkRepository = (*LinkStore)(nil)

// OpenLinkStore loads the current link list from kv.
func OpenLinkStore(kv kvstore.Store) (*LinkStore, error) {
	s := &LinkStore{kv: kv}
	if err := s.Reload(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reload replaces the in-memory snapshot with what is persisted. Use it to
// pick up writes made by another process.
func (s *LinkStore) Reload() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var links []Link
	if _, err := s.kv.Get(Namespace, &links); err != nil {
		return fmt.Errorf("load links: %w", err)
	}
	s.links = links
	return nil
}

func (s *LinkStore) List() []Link {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.links)
}

// Add validates and stores l. Linking two events that are already linked,
// in either direction, returns ErrDuplicateLink.
func (s *LinkStore) Add(l Link) error {
	if err := ValidateLink(l); err != nil {
		return err
	}
	if l.Type != LinkBefore {
		l.Gap = 0
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.links {
		if existing.SamePair(l) {
			return fmt.Errorf("%w: %s", ErrDuplicateLink, existing)
		}
	}

	next := append(slices.Clone(s.links), l)
	if err := s.kv.Put(Namespace, next); err != nil {
		return fmt.Errorf("save links: %w", err)
	}
	s.links = next
	appLog.Debug("link added", "from", l.FromID, "to", l.ToID, "type", string(l.Type), "gap", l.Gap)
	return nil
}

// Remove deletes the link from fromID to toID.
func (s *LinkStore) Remove(fromID, toID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	idx := slices.IndexFunc(s.links, func(l Link) bool {
		return l.FromID == fromID && l.ToID == toID
	})
	if idx < 0 {
		return fmt.Errorf("%w: %s -> %s", ErrLinkNotFound, fromID, toID)
	}

	next := slices.Delete(slices.Clone(s.links), idx, idx+1)
	if err := s.kv.Put(Namespace, next); err != nil {
		return fmt.Errorf("save links: %w", err)
	}
	s.links = next
	appLog.Debug("link removed", "from", fromID, "to", toID)
	return nil
}
