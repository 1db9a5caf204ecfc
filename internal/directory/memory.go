package directory

import (
	"context"
	"sync"

	id "hearth/pkg/domain"
)

// InMemory is a map-backed directory for unit tests and local runs.
type InMemory struct {
	mu         sync.RWMutex
	households map[id.HouseholdID]struct{}
	roles      map[memberKey]Role
}

type memberKey struct {
	user      id.UserID
	household id.HouseholdID
}

func NewInMemory() *InMemory {
	return &InMemory{
		households: make(map[id.HouseholdID]struct{}),
		roles:      make(map[memberKey]Role),
	}
}

// AddHousehold registers a household. Test seeding only; the real directory
// is written by its own service.
func (m *InMemory) AddHousehold(householdID id.HouseholdID) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.households[householdID] = struct{}{}
}

// AddMember links a user to a household with the given role.
func (m *InMemory) AddMember(userID id.UserID, householdID id.HouseholdID, role Role) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.households[householdID] = struct{}{}
	m.roles[memberKey{user: userID, household: householdID}] = role
}

func (m *InMemory) HouseholdExists(_ context.Context, householdID id.HouseholdID) (bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	_, ok := m.households[householdID]
	return ok, nil
}

func (m *InMemory) RoleOf(_ context.Context, userID id.UserID, householdID id.HouseholdID) (Role, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.roles[memberKey{user: userID, household: householdID}], nil
}
