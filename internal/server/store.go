package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"

	"github.com/smileynet/addrbook/internal/contact"
)

// ErrNotFound is returned when a contact ID is not in the store.
var ErrNotFound = errors.New("server: contact not found")

// Store keeps contacts in insertion order. When a snapshot path is set every
// mutation rewrites the snapshot file.
type Store struct {
	mu       sync.RWMutex
	contacts []contact.Contact
	index    map[contact.ID]int
	path     string
	newID    func() contact.ID
}

// NewStore creates an empty in-memory store.
func NewStore() *Store {
	return &Store{
		index: make(map[contact.ID]int),
		newID: func() contact.ID { return contact.ID(uuid.NewString()) },
	}
}

// OpenStore creates a store persisted at path, loading existing contacts if
// the file exists.
func OpenStore(path string) (*Store, error) {
	s := NewStore()
	s.path = path

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return s, nil
		}
		return nil, fmt.Errorf("server: reading %s: %w", path, err)
	}
	if len(data) == 0 {
		return s, nil
	}

	var contacts []contact.Contact
	if err := json.Unmarshal(data, &contacts); err != nil {
		return nil, fmt.Errorf("server: parsing %s: %w", path, err)
	}
	for _, c := range contacts {
		if c.ID.IsZero() {
			c.ID = s.newID()
		}
		s.put(c)
	}
	return s, nil
}

// List returns a copy of all contacts in insertion order.
func (s *Store) List() []contact.Contact {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]contact.Contact{}, s.contacts...)
}

// Get returns the contact with the given ID.
func (s *Store) Get(id contact.ID) (contact.Contact, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	i, ok := s.index[id]
	if !ok {
		return contact.Contact{}, fmt.Errorf("%w: %q", ErrNotFound, id)
	}
	return s.contacts[i], nil
}

// Save upserts c. An empty ID gets a fresh one; an unknown ID is inserted
// under that ID; a known ID is replaced in place. If the snapshot cannot be
// written the store is left unchanged.
func (s *Store) Save(c contact.Contact) (contact.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c.ID.IsZero() {
		c.ID = s.newID()
	}
	undo := s.checkpoint()
	s.put(c)
	if err := s.persist(); err != nil {
		undo()
		return contact.Contact{}, err
	}
	return c, nil
}

// Delete removes the contact with the given ID. It reports whether a record
// was removed; unknown IDs are not an error.
func (s *Store) Delete(id contact.ID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	i, ok := s.index[id]
	if !ok {
		return false, nil
	}
	undo := s.checkpoint()
	s.contacts = append(s.contacts[:i], s.contacts[i+1:]...)
	delete(s.index, id)
	for j := i; j < len(s.contacts); j++ {
		s.index[s.contacts[j].ID] = j
	}
	if err := s.persist(); err != nil {
		undo()
		return false, err
	}
	return true, nil
}

// checkpoint copies the contacts and index and returns a func that restores
// them. Caller holds the write lock.
func (s *Store) checkpoint() func() {
	contacts := append([]contact.Contact(nil), s.contacts...)
	index := make(map[contact.ID]int, len(s.index))
	for id, i := range s.index {
		index[id] = i
	}
	return func() {
		s.contacts = contacts
		s.index = index
	}
}

// Len returns the number of stored contacts.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.contacts)
}

// put inserts or replaces c. Caller holds the write lock.
func (s *Store) put(c contact.Contact) {
	if i, ok := s.index[c.ID]; ok {
		s.contacts[i] = c
		return
	}
	s.index[c.ID] = len(s.contacts)
	s.contacts = append(s.contacts, c)
}

// persist writes the snapshot file through a temp file rename. Caller holds
// the write lock.
func (s *Store) persist() error {
	if s.path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("server: creating directory: %w", err)
	}

	data, err := json.MarshalIndent(s.contacts, "", "  ")
	if err != nil {
		return fmt.Errorf("server: marshaling: %w", err)
	}

	tmp := s.path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("server: writing %s: %w", tmp, err)
	}
	if err := os.Rename(tmp, s.path); err != nil {
		return fmt.Errorf("server: replacing %s: %w", s.path, err)
	}
	return nil
}
