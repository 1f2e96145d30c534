package keys

import (
	"github.com/google/uuid"

	"github.com/dmitrijs2005/notevault/internal/protocol"
)

type itemsKeyRecord struct {
	material    protocol.ItemsKeyMaterial
	dirty       bool
	neverSynced bool
}

// ItemsKeyManager creates, rotates, and selects the synced data keys that
// actually encrypt items. It holds no persistence of its own:
// callers feed it decrypted ItemsKey items on load/sync and read its dirty
// set back out for the next upload.
type ItemsKeyManager struct {
	records map[string]*itemsKeyRecord
	order   []string
}

func NewItemsKeyManager() *ItemsKeyManager {
	return &ItemsKeyManager{records: make(map[string]*itemsKeyRecord)}
}

// Load installs a decrypted items key as known to the manager, e.g. after
// loading from disk or a sync retrieval. dirty/neverSynced reflect the
// payload's own flags.
func (m *ItemsKeyManager) Load(material protocol.ItemsKeyMaterial, dirty, neverSynced bool) {
	if _, exists := m.records[material.UUID]; !exists {
		m.order = append(m.order, material.UUID)
	}
	m.records[material.UUID] = &itemsKeyRecord{material: material, dirty: dirty, neverSynced: neverSynced}
}

// Remove drops uuid from the manager (e.g. after a tombstone is emitted).
func (m *ItemsKeyManager) Remove(uuid string) {
	if _, ok := m.records[uuid]; !ok {
		return
	}
	delete(m.records, uuid)
	for i, u := range m.order {
		if u == uuid {
			m.order = append(m.order[:i], m.order[i+1:]...)
			break
		}
	}
}

// All returns every known items key, in load order.
func (m *ItemsKeyManager) All() []protocol.ItemsKeyMaterial {
	out := make([]protocol.ItemsKeyMaterial, 0, len(m.order))
	for _, u := range m.order {
		out = append(out, m.records[u].material)
	}
	return out
}

// DefaultItemsKey implements protocol.KeySource: the flagged default, or
// the lone items key if exactly one exists (lenient fallback).
func (m *ItemsKeyManager) DefaultItemsKey() (protocol.ItemsKeyMaterial, bool) {
	var lone *itemsKeyRecord
	count := 0
	for _, r := range m.records {
		if r.material.IsDefault {
			return r.material, true
		}
		lone = r
		count++
	}
	if count == 1 {
		return lone.material, true
	}
	return protocol.ItemsKeyMaterial{}, false
}

// ItemsKeyByID implements protocol.KeySource.
func (m *ItemsKeyManager) ItemsKeyByID(uuid string) (protocol.ItemsKeyMaterial, bool) {
	r, ok := m.records[uuid]
	if !ok {
		return protocol.ItemsKeyMaterial{}, false
	}
	return r.material, true
}

// DefaultItemsKeyForVersion implements protocol.KeySource: the flagged
// default at that version, else the first items key found at that version.
func (m *ItemsKeyManager) DefaultItemsKeyForVersion(v protocol.Version) (protocol.ItemsKeyMaterial, bool) {
	var fallback *protocol.ItemsKeyMaterial
	for _, u := range m.order {
		r := m.records[u]
		if r.material.Version != v {
			continue
		}
		if r.material.IsDefault {
			return r.material, true
		}
		if fallback == nil {
			fallback = &r.material
		}
	}
	if fallback != nil {
		return *fallback, true
	}
	return protocol.ItemsKeyMaterial{}, false
}

// CreateNewDefault creates an items key tied to rootKeyVersion, un-flags
// the previous default (marking it dirty for re-upload), flags the new
// one, and marks it dirty too.
func (m *ItemsKeyManager) CreateNewDefault(svc *protocol.ProtocolService, rootKeyVersion protocol.Version, rootKey protocol.RootKey) protocol.ItemsKeyMaterial {
	material := svc.CreateItemsKeyMaterial(rootKeyVersion, rootKey)
	material.UUID = uuid.NewString()
	material.IsDefault = true

	for _, r := range m.records {
		if r.material.IsDefault {
			r.material.IsDefault = false
			r.dirty = true
		}
	}

	m.order = append(m.order, material.UUID)
	m.records[material.UUID] = &itemsKeyRecord{material: material, dirty: true, neverSynced: true}
	return material
}

// MarkAllDirty flags every known items key dirty, used after the root key
// changes and all items keys must be re-encrypted and re-uploaded under it.
func (m *ItemsKeyManager) MarkAllDirty() {
	for _, r := range m.records {
		r.dirty = true
	}
}

// DirtyUUIDs returns the uuids of items keys pending sync.
func (m *ItemsKeyManager) DirtyUUIDs() []string {
	var out []string
	for _, u := range m.order {
		if m.records[u].dirty {
			out = append(out, u)
		}
	}
	return out
}

// ClearDirty marks uuid as synced (neverSynced=false, dirty=false), called
// after a successful upload.
func (m *ItemsKeyManager) ClearDirty(uuid string) {
	if r, ok := m.records[uuid]; ok {
		r.dirty = false
		r.neverSynced = false
	}
}

// ReconcileAfterDownloadFirst applies the post-download-first-sync
// reconciliation rule: if a default items key that has already
// been synced exists, every never-synced local items key is superfluous
// and removed; otherwise only never-synced keys whose version matches the
// current root key version survive. It returns the removed uuids.
func (m *ItemsKeyManager) ReconcileAfterDownloadFirst(currentRootKeyVersion protocol.Version) []string {
	hasSyncedDefault := false
	for _, r := range m.records {
		if r.material.IsDefault && !r.neverSynced {
			hasSyncedDefault = true
			break
		}
	}

	var removed []string
	for _, u := range append([]string(nil), m.order...) {
		r := m.records[u]
		if !r.neverSynced {
			continue
		}
		if hasSyncedDefault || r.material.Version != currentRootKeyVersion {
			removed = append(removed, u)
			m.Remove(u)
		}
	}
	return removed
}

// NeedsNewDefault reports whether no default items key exists at all,
// used after a full sync completes.
func (m *ItemsKeyManager) NeedsNewDefault() bool {
	_, ok := m.DefaultItemsKey()
	return !ok
}

// Reset drops every known items key, returning the manager to its
// just-constructed state. Called on sign-out so a previous account's items
// keys never leak into the next login on the same device.
func (m *ItemsKeyManager) Reset() {
	m.records = make(map[string]*itemsKeyRecord)
	m.order = nil
}
