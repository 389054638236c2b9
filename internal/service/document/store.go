package document

import (
	"sync"
	"time"

	"github.com/zhouzirui/law-agent/backend/internal/model/document"
)

// Store holds the single document context shared by every session. A replace
// swaps the whole set at once; readers always see one complete upload.
type Store struct {
	mu      sync.RWMutex
	current document.Set
	loaded  bool
}

// NewStore returns an empty document store.
func NewStore() *Store {
	return &Store{}
}

// Replace installs a new document set, discarding the previous one.
func (s *Store) Replace(docs []document.Info, text string) document.Set {
	set := document.Set{
		Documents:  append([]document.Info(nil), docs...),
		Text:       text,
		UploadedAt: time.Now().UTC(),
	}

	s.mu.Lock()
	s.current = set
	s.loaded = true
	s.mu.Unlock()

	return cloneSet(set)
}

// Clear empties the store and reports how many documents were loaded.
func (s *Store) Clear() int {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.current.Documents)
	s.current = document.Set{}
	s.loaded = false
	return n
}

// Current returns a copy of the active set. The boolean is false when nothing
// usable is loaded, including a set whose extracted text is blank.
func (s *Store) Current() (document.Set, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if !s.loaded {
		return document.Set{}, false
	}
	set := cloneSet(s.current)
	return set, !set.Empty()
}

func cloneSet(set document.Set) document.Set {
	set.Documents = append([]document.Info(nil), set.Documents...)
	return set
}
