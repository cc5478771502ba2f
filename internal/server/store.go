package server

import (
	"context"
	"slices"
	"sync"

	"github.com/pdxmph/agenda-contatos/internal/contacts"
)

// Store persists contacts. Create and ReplaceAll receive contacts whose IDs
// are already assigned; lookups of unknown IDs fail with contacts.ErrNotFound.
type Store interface {
	List(ctx context.Context) ([]contacts.Contact, error)
	Search(ctx context.Context, term string) ([]contacts.Contact, error)
	Get(ctx context.Context, id contacts.ID) (*contacts.Contact, error)
	Create(ctx context.Context, c contacts.Contact) (*contacts.Contact, error)
	Update(ctx context.Context, id contacts.ID, c contacts.Contact) (*contacts.Contact, error)
	Delete(ctx context.Context, id contacts.ID) error
	ReplaceAll(ctx context.Context, list []contacts.Contact) error
}

// MemoryStore implements [Store] in memory.
type MemoryStore struct {
	mu       sync.Mutex
	index    map[contacts.ID]int
	contacts []contacts.Contact
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates a store holding copies of cs, in order
func NewMemoryStore(cs ...contacts.Contact) *MemoryStore {
	s := &MemoryStore{}
	s.reset(cs)
	return s
}

func (s *MemoryStore) reset(cs []contacts.Contact) {
	s.contacts = contacts.CloneAll(cs)
	s.index = make(map[contacts.ID]int, len(cs))
	for i, c := range s.contacts {
		s.index[c.ID] = i
	}
}

// List returns every contact in insertion order
func (s *MemoryStore) List(_ context.Context) ([]contacts.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return contacts.CloneAll(s.contacts), nil
}

// Search returns the contacts whose name contains term, ignoring case
func (s *MemoryStore) Search(_ context.Context, term string) ([]contacts.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := []contacts.Contact{}
	for _, c := range s.contacts {
		if contacts.MatchesName(c.Nome, term) {
			out = append(out, c.Clone())
		}
	}
	return out, nil
}

// Get returns the contact stored under id
func (s *MemoryStore) Get(_ context.Context, id contacts.ID) (*contacts.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, contacts.ErrNotFound
	}
	c := s.contacts[i].Clone()
	return &c, nil
}

// Create appends c
func (s *MemoryStore) Create(_ context.Context, c contacts.Contact) (*contacts.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.index[c.ID] = len(s.contacts)
	s.contacts = append(s.contacts, c.Clone())
	out := c.Clone()
	return &out, nil
}

// Update replaces the contact stored under id, keeping its position
func (s *MemoryStore) Update(_ context.Context, id contacts.ID, c contacts.Contact) (*contacts.Contact, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return nil, contacts.ErrNotFound
	}
	c.ID = id
	s.contacts[i] = c.Clone()
	out := c.Clone()
	return &out, nil
}

// Delete removes the contact stored under id
func (s *MemoryStore) Delete(_ context.Context, id contacts.ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	i, ok := s.index[id]
	if !ok {
		return contacts.ErrNotFound
	}
	s.contacts = slices.Delete(s.contacts, i, i+1)
	s.reset(s.contacts)
	return nil
}

// ReplaceAll discards every contact and stores copies of list
func (s *MemoryStore) ReplaceAll(_ context.Context, list []contacts.Contact) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reset(list)
	return nil
}
