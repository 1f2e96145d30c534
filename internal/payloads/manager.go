package payloads

import "github.com/google/uuid"

// ObservationKind distinguishes a brand new item from a changed one, as
// delivered to observers.
type ObservationKind int

const (
	Inserted ObservationKind = iota
	Changed
)

// Observer is notified whenever a batch of payloads affecting content types
// it cares about is processed. ContentType == TypeAny matches everything.
type Observer struct {
	ContentType ContentType
	Key         string
	Fn          func(items []Item, source Source, sourceKey string, kind ObservationKind)
}

// Manager is the payload/item pipeline: it owns the collection and
// reference graph and fans batches of incoming payloads out to observers.
// Manager is not safe for concurrent use; all calls must come from the
// single owning goroutine/actor.
type Manager struct {
	Collection *Collection
	Graph      *ReferenceGraph
	observers  []Observer
}

func NewManager() *Manager {
	return &Manager{
		Collection: NewCollection(),
		Graph:      NewReferenceGraph(),
	}
}

// Observe registers fn for content type ct (TypeAny for everything). It
// returns a key that can be passed to Unobserve.
func (m *Manager) Observe(ct ContentType, fn func(items []Item, source Source, sourceKey string, kind ObservationKind)) string {
	key := uuid.NewString()
	m.observers = append(m.observers, Observer{ContentType: ct, Key: key, Fn: fn})
	return key
}

func (m *Manager) Unobserve(key string) {
	out := m.observers[:0:0]
	for _, o := range m.observers {
		if o.Key != key {
			out = append(out, o)
		}
	}
	m.observers = out
}

// Emit is the single entry point for payload batches arriving from load,
// server response, local mutation, or import. It projects each
// payload into its item, updates the reference graph and collection, and
// notifies observers in registration order. A deleted payload that is
// still dirty stays in the collection as a tombstone so DirtySet can find
// it on a later sync; once a deletion is confirmed synced (or arrives
// already non-dirty, e.g. a retrieved server tombstone) it is discardable
// and is dropped from the collection immediately.
func (m *Manager) Emit(payloadsIn []Payload, source Source) ([]Item, error) {
	items := make([]Item, 0, len(payloadsIn))
	kinds := make([]ObservationKind, 0, len(payloadsIn))

	for _, p := range payloadsIn {
		_, existed := m.Collection.Get(p.UUID)

		item, err := FromPayload(p)
		if err != nil {
			return nil, err
		}

		if p.Deleted {
			m.Graph.Remove(p.UUID)
			if p.IsDiscardable() {
				m.Collection.Remove(p.UUID)
			} else {
				m.Collection.Upsert(item)
			}
			items = append(items, item)
			kinds = append(kinds, kindFor(existed))
			continue
		}

		if !p.ErrorDecrypting {
			refs := make([]string, 0)
			for _, r := range p.References() {
				refs = append(refs, r.UUID)
			}
			m.Graph.SetReferences(p.UUID, refs)
		}

		m.Collection.Upsert(item)
		items = append(items, item)
		kinds = append(kinds, kindFor(existed))
	}

	m.notify(items, kinds, source, "")

	return items, nil
}

func kindFor(existed bool) ObservationKind {
	if existed {
		return Changed
	}
	return Inserted
}

func (m *Manager) notify(items []Item, kinds []ObservationKind, source Source, sourceKey string) {
	for _, obs := range m.observers {
		var filtered []Item
		var kind ObservationKind
		hasAny := false
		for i, it := range items {
			if obs.ContentType != TypeAny && obs.ContentType != it.ContentType() {
				continue
			}
			filtered = append(filtered, it)
			kind = kinds[i]
			hasAny = true
		}
		if !hasAny {
			continue
		}
		obs.Fn(filtered, source, sourceKey, kind)
	}
}

// Duplicate produces a new payload with a fresh uuid carrying original's
// live content, flagged as a conflict of original.
func Duplicate(original Item) Payload {
	p := original.Payload()
	dup := p
	dup.UUID = uuid.NewString()
	dup.ConflictOf = original.UUID()
	dup.Dirty = true
	dup.DirtiedAt = Now()
	dup.CreatedAt = Now()
	dup.UpdatedAt = Now()
	if m, ok := p.ContentMap(); ok {
		dup.Content = cloneMap(m)
	}
	return dup
}

// Alternate performs uuid alternation: the old item is marked deleted, a
// structurally identical item is created under a fresh uuid, and every
// item that referenced the old uuid is updated (and marked dirty) to
// reference the new one instead. The old uuid was never accepted by the
// server under this client's authorship (that's what makes it a
// conflict), so its tombstone carries nothing worth uploading and is left
// non-dirty: it is local bookkeeping only, discarded on the next Emit. It
// returns the tombstone for the old uuid, the new payload, and the
// updated referrer payloads, all ready to be Emit()-ed by the caller.
func (m *Manager) Alternate(item Item, mutator *Mutator) (tombstone Payload, replacement Payload, updatedReferrers []Payload) {
	old := item.Payload()

	tombstone = old
	tombstone.Deleted = true
	tombstone.Dirty = false
	tombstone.Content = nil

	replacement = old
	replacement.UUID = uuid.NewString()
	replacement.Dirty = true
	replacement.DirtiedAt = Now()
	if c, ok := old.ContentMap(); ok {
		replacement.Content = cloneMap(c)
	}

	for _, referrerUUID := range m.Graph.Inverse(old.UUID) {
		referrerItem, ok := m.Collection.Get(referrerUUID)
		if !ok {
			continue
		}
		newRefs := make([]Reference, 0)
		for _, r := range referrerItem.References() {
			if r.UUID == old.UUID {
				newRefs = append(newRefs, Reference{UUID: replacement.UUID, ContentType: replacement.ContentType})
			} else {
				newRefs = append(newRefs, r)
			}
		}
		updatedReferrers = append(updatedReferrers, mutator.SetReferences(referrerItem, newRefs, MutationInternal))
	}

	m.Graph.Rekey(old.UUID, replacement.UUID)

	return tombstone, replacement, updatedReferrers
}
