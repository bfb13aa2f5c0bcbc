package roster

import (
	"context"
	"strings"
	"sync"

	"github.com/spec-kit/servicedesk/internal/domain"
)

// Directory resolves responder emails to display identities.
type Directory interface {
	Lookup(ctx context.Context, email string) (domain.Assignee, bool, error)
	Put(ctx context.Context, responder domain.Assignee) error
}

type memoryDirectory struct {
	mu      sync.RWMutex
	entries map[string]domain.Assignee
}

// NewMemoryDirectory returns a directory seeded with responders.
func NewMemoryDirectory(responders ...domain.Assignee) Directory {
	d := &memoryDirectory{entries: make(map[string]domain.Assignee, len(responders))}
	for _, r := range responders {
		d.entries[normalizeEmail(r.Email)] = r
	}
	return d
}

func (d *memoryDirectory) Lookup(ctx context.Context, email string) (domain.Assignee, bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	responder, ok := d.entries[normalizeEmail(email)]
	return responder, ok, nil
}

func (d *memoryDirectory) Put(ctx context.Context, responder domain.Assignee) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.entries[normalizeEmail(responder.Email)] = responder
	return nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
