package table

import (
	"errors"
	"sync"
)

var ErrSeatedElsewhere = errors.New("seated_elsewhere")

// Registry records which table each identity is seated or queued at. One
// wallet backs one stack, so an identity may hold a place at one table only.
type Registry struct {
	mu     sync.Mutex
	owners map[string]string
}

func NewRegistry() *Registry {
	return &Registry{owners: map[string]string{}}
}

// Claim reserves playerID for tableID. Claiming again for the same table
// succeeds.
func (r *Registry) Claim(playerID, tableID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if owner, ok := r.owners[playerID]; ok && owner != tableID {
		return ErrSeatedElsewhere
	}
	r.owners[playerID] = tableID
	return nil
}

// Release drops the claim if tableID still holds it.
func (r *Registry) Release(playerID, tableID string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.owners[playerID] == tableID {
		delete(r.owners, playerID)
	}
}

func (r *Registry) TableOf(playerID string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	id, ok := r.owners[playerID]
	return id, ok
}
