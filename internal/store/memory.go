package store

import (
	"sort"
	"sync"

	"github.com/rapidreach/lead-finder/internal/model"
)

// MemoryStore keeps the most recent discovery's leads keyed by place_id
// for fast read-back before a warehouse round trip. It lives for the
// process lifetime, is populated per discovery run, and is safe for
// concurrent requests; writes are idempotent replacements.
type MemoryStore struct {
	mu    sync.RWMutex
	leads map[string]model.Lead
}

// NewMemory creates an empty MemoryStore.
func NewMemory() *MemoryStore {
	return &MemoryStore{leads: make(map[string]model.Lead)}
}

// Put stores each lead under its place_id, replacing any previous entry.
func (m *MemoryStore) Put(leads []model.Lead) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, lead := range leads {
		if lead.PlaceID == "" {
			continue
		}
		m.leads[lead.PlaceID] = lead
	}
}

// Get returns the lead for a place_id, if present.
func (m *MemoryStore) Get(placeID string) (model.Lead, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	lead, ok := m.leads[placeID]
	return lead, ok
}

// List returns all stored leads ordered by place_id for stable output.
func (m *MemoryStore) List() []model.Lead {
	m.mu.RLock()
	defer m.mu.RUnlock()

	leads := make([]model.Lead, 0, len(m.leads))
	for _, lead := range m.leads {
		leads = append(leads, lead)
	}
	sort.Slice(leads, func(i, j int) bool {
		return leads[i].PlaceID < leads[j].PlaceID
	})
	return leads
}

// Len reports the number of stored leads.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.leads)
}
