package sync

import (
	"context"
	"fmt"
	"sync"
)

// TransportMemory is an in-process fake server: it stores ServerPayloads
// keyed by uuid and answers Sync requests directly, with no network I/O.
// It backs both the package's tests and the CLI's local-only mode.
type TransportMemory struct {
	mu sync.Mutex

	items        map[string]ServerPayload
	tokenCounter int

	forceRetrieved []ServerPayload
}

func NewTransportMemory() *TransportMemory {
	return &TransportMemory{items: make(map[string]ServerPayload)}
}

// Seed preloads server-side items, e.g. to simulate an account that
// already has data before the client signs in.
func (t *TransportMemory) Seed(items ...ServerPayload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, item := range items {
		t.items[item.UUID] = item
	}
}

// QueueRetrieved arranges for the next Sync call to also return these
// items as "retrieved", simulating a pull of pre-existing account data.
func (t *TransportMemory) QueueRetrieved(items ...ServerPayload) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.forceRetrieved = append(t.forceRetrieved, items...)
}

// All returns every item currently held by the fake server, for assertions.
func (t *TransportMemory) All() []ServerPayload {
	t.mu.Lock()
	defer t.mu.Unlock()
	out := make([]ServerPayload, 0, len(t.items))
	for _, v := range t.items {
		out = append(out, v)
	}
	return out
}

func (t *TransportMemory) Sync(_ context.Context, req SyncRequest) (SyncResponse, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	var saved []ServerPayload
	var conflicts []Conflict

	for _, incoming := range req.Items {
		existing, has := t.items[incoming.UUID]
		if has && !existing.CreatedAt.Equal(incoming.CreatedAt) {
			// Two independently created items happened to collide on the
			// same generated uuid.
			conflicts = append(conflicts, Conflict{Type: ConflictUUID, ServerItem: existing})
			continue
		}
		t.items[incoming.UUID] = incoming
		saved = append(saved, incoming)
	}

	retrieved := t.forceRetrieved
	t.forceRetrieved = nil

	t.tokenCounter++
	resp := SyncResponse{
		Saved:     saved,
		Retrieved: retrieved,
		Conflicts: conflicts,
		SyncToken: fmt.Sprintf("token-%d", t.tokenCounter),
	}
	if req.ComputeIntegrity {
		pairs := make(map[string]string, len(t.items))
		for uuid, item := range t.items {
			if item.Deleted {
				continue
			}
			pairs[uuid] = item.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z")
		}
		resp.IntegrityHash = computeIntegrityHash(pairs)
	}
	return resp, nil
}
