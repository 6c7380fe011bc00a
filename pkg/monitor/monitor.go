package monitor

import (
	"sync"
)

// Map manages per-account Platform instances.
type Map struct {
	mu          sync.Mutex
	platforms   map[string]Platform
	newPlatform func() Platform
}

// NewMap creates a new platform Map. newPlatform is called the first
// time an account is seen; pass nil only if every account will be
// registered via SetPlatform.
func NewMap(newPlatform func() Platform) *Map {
	return &Map{
		platforms:   make(map[string]Platform),
		newPlatform: newPlatform,
	}
}

// Account returns the platform for the given accountID, creating one if
// the account is new.
func (m *Map) Account(accountID string) Platform {
	m.mu.Lock()
	defer m.mu.Unlock()

	if p, ok := m.platforms[accountID]; ok {
		return p
	}

	// TODO: pick the platform from the account's vendor field once a
	// second vendor integration exists
	m.platforms[accountID] = m.newPlatform()
	return m.platforms[accountID]
}

// SetPlatform sets the platform for a specific account. This is primarily used for testing.
func (m *Map) SetPlatform(accountID string, p Platform) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.platforms[accountID] = p
}
