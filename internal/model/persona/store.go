package persona

import "strings"

// Store exposes persona retrieval for handlers and the completion client.
type Store interface {
	List() []Persona
	FindByName(name string) (Persona, bool)
}

// MemoryStore implements Store with an in-memory slice.
type MemoryStore struct {
	items []Persona
}

// NewMemoryStore returns a MemoryStore preloaded with the supplied personas.
func NewMemoryStore(items []Persona) *MemoryStore {
	return &MemoryStore{items: append([]Persona(nil), items...)}
}

// List returns the predefined persona list.
func (s *MemoryStore) List() []Persona {
	return append([]Persona(nil), s.items...)
}

// FindByName looks up a persona by display name, case-insensitively.
func (s *MemoryStore) FindByName(name string) (Persona, bool) {
	for _, item := range s.items {
		if strings.EqualFold(item.Name, name) {
			return item, true
		}
	}
	return Persona{}, false
}
