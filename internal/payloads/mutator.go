package payloads

import "time"

// MutationType distinguishes edits a person made from bookkeeping edits the
// system made on the person's behalf.
type MutationType int

const (
	// MutationInternal does not update user_modified_date.
	MutationInternal MutationType = iota
	// MutationUserInteraction additionally updates user_modified_date.
	MutationUserInteraction
)

// Now is overridable in tests to make dirtied_at/updated_at deterministic.
var Now = time.Now

// Mutator takes a snapshot of an item, lets the caller edit its typed
// content, and produces a new dirty payload. It never mutates the item
// passed in.
type Mutator struct {
	Source Source
}

// NewMutator returns a Mutator that emits payloads with the given default
// source (typically SourceLocalChanged).
func NewMutator(source Source) *Mutator {
	return &Mutator{Source: source}
}

// MutateContent applies edit to a copy of item's content map and returns a
// new dirty Payload. edit receives the current content map (never nil) and
// mutates it in place.
func (m *Mutator) MutateContent(item Item, mutationType MutationType, edit func(content map[string]any)) Payload {
	p := item.Payload()
	content, ok := p.ContentMap()
	if !ok {
		content = make(map[string]any)
	} else {
		content = cloneMap(content)
	}

	edit(content)

	now := Now()
	p.Content = content
	p.Dirty = true
	p.DirtiedAt = now
	if mutationType == MutationUserInteraction {
		content["user_modified_date"] = now
	}
	return p
}

// SetReferences replaces an item's references array wholesale.
func (m *Mutator) SetReferences(item Item, refs []Reference, mutationType MutationType) Payload {
	return m.MutateContent(item, mutationType, func(content map[string]any) {
		out := make([]any, 0, len(refs))
		for _, r := range refs {
			out = append(out, map[string]any{"uuid": r.UUID, "content_type": string(r.ContentType)})
		}
		content["references"] = out
	})
}

// MarkDeleted returns a tombstone payload for item: deleted, dirty, empty content.
func (m *Mutator) MarkDeleted(item Item) Payload {
	p := item.Payload()
	p.Deleted = true
	p.Dirty = true
	p.DirtiedAt = Now()
	p.Content = nil
	return p
}

func cloneMap(in map[string]any) map[string]any {
	out := make(map[string]any, len(in))
	for k, v := range in {
		out[k] = v
	}
	return out
}

// DirtySet returns the subset of items eligible to sync: dirty, not a
// dummy, and either not errored or a deletion (a corrupt item may only be
// synced as a tombstone).
func DirtySet(items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		p := it.Payload()
		if !p.Dirty || p.Dummy {
			continue
		}
		if p.ErrorDecrypting && !p.Deleted {
			continue
		}
		out = append(out, it)
	}
	return out
}
