package identity

import (
	"context"
	"errors"
	"sync"
)

// MemoryDirectory is an in-process directory for tests and examples.
type MemoryDirectory struct {
	mu         sync.RWMutex
	identities map[string]Identity
}

func NewMemoryDirectory(identities ...Identity) *MemoryDirectory {
	d := &MemoryDirectory{identities: make(map[string]Identity, len(identities))}
	for _, id := range identities {
		_ = d.Put(id)
	}
	return d
}

// Put inserts or replaces an identity.
func (d *MemoryDirectory) Put(id Identity) error {
	subject := NormalizeSubject(id.Subject)
	if subject == "" {
		return errors.New("identity subject is required")
	}
	id.Subject = subject
	id.Roles = append([]Role(nil), id.Roles...)

	d.mu.Lock()
	defer d.mu.Unlock()
	d.identities[subject] = id
	return nil
}

// Delete removes an identity; later lookups report ErrNotFound.
func (d *MemoryDirectory) Delete(subject string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	delete(d.identities, NormalizeSubject(subject))
}

func (d *MemoryDirectory) Lookup(_ context.Context, subject string) (Identity, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	id, ok := d.identities[NormalizeSubject(subject)]
	if !ok {
		return Identity{}, ErrNotFound
	}
	id.Roles = append([]Role(nil), id.Roles...)
	return id, nil
}
