// Package payloads implements the immutable-by-copy payload record, the
// typed item views over it, the item<->item reference graph, the indexed
// item collection, and the mutation surface that produces new payloads from
// caller edits. Nothing in this package performs encryption: content is
// either a decrypted map[string]any or an opaque version-prefixed ciphertext
// string, and it is the protocol package's job to move between the two.
package payloads

import "time"

// ContentType classifies an item/payload kind.
type ContentType string

const (
	TypeNote              ContentType = "Note"
	TypeTag               ContentType = "Tag"
	TypeSmartTag          ContentType = "SmartTag"
	TypeItemsKey          ContentType = "ItemsKey"
	TypeComponent         ContentType = "Component"
	TypeTheme             ContentType = "Theme"
	TypeEditor            ContentType = "Editor"
	TypeActionsExtension  ContentType = "ActionsExtension"
	TypePrivileges        ContentType = "Privileges"
	TypeHistorySession    ContentType = "SessionHistory"
	TypeUserPrefs         ContentType = "UserPrefs"
	TypeEncryptedStorage  ContentType = "EncryptedStorage"
	TypeRootKey           ContentType = "RootKey"
	// TypeAny is a wildcard used only in observer registration, never on a payload.
	TypeAny ContentType = "*"
)

// RootEncrypted returns true for content types whose payloads are
// always encrypted directly with the account root key rather than an items
// key (protocol §4.2 "Key selection for encryption").
func (c ContentType) RootEncrypted() bool {
	return c == TypeItemsKey || c == TypeEncryptedStorage
}

// FieldSet names which fields of a Payload survive a Copy for a given
// intent or source: Max, EncryptionParameters, File, Storage, Server,
// ServerSaved, SessionHistory, ComponentRetrieved.
type FieldSet int

const (
	FieldSetMax FieldSet = iota
	FieldSetEncryptionParameters
	FieldSetFile
	FieldSetStorage
	FieldSetServer
	FieldSetServerSaved
	FieldSetSessionHistory
	FieldSetComponentRetrieved
)

// Reference is a single forward reference from one item's content to another.
type Reference struct {
	UUID        string      `json:"uuid"`
	ContentType ContentType `json:"content_type"`
}

// Source identifies the origin of a payload emission into the Manager.
type Source string

const (
	SourceLocalChanged      Source = "LocalChanged"
	SourceLocalSaved        Source = "LocalSaved"
	SourceRemoteRetrieved   Source = "RemoteRetrieved"
	SourceRemoteSaved       Source = "RemoteSaved"
	SourceLocalDeleted      Source = "LocalDeleted"
	SourceFileImport        Source = "FileImport"
	SourceComponentCreated  Source = "ComponentCreated"
	SourceConflictAlternate Source = "ConflictAlternateUUID"
	// SourceSyncBegin marks the last_sync_begin stamping step of a sync
	// run, before payloads are uploaded.
	SourceSyncBegin Source = "SyncBegin"
)

// Payload is the atomic, immutable unit of persistence and transfer.
// Mutation never happens in place: every setter-like operation in this
// package returns a new Payload value.
type Payload struct {
	UUID        string
	ContentType ContentType

	// Content is either a decrypted map[string]any (live content) or a
	// version-prefixed ciphertext string (e.g. "004:..."). A nil Content
	// with Deleted=true is a tombstone.
	Content any

	ItemsKeyID string
	EncItemKey string

	CreatedAt time.Time
	UpdatedAt time.Time
	Deleted   bool

	// Client-side flags, never sent to the server.
	Dirty                  bool
	DirtiedAt              time.Time
	LastSyncBegin          time.Time
	LastSyncEnd            time.Time
	ErrorDecrypting        bool
	ErrorDecryptingChanged bool
	WaitingForKey          bool
	Dummy                  bool

	// Legacy fields, versions <=002.
	AuthHash   string
	AuthParams map[string]any

	// ConflictOf holds the uuid of the payload this one was duplicated from
	// during conflict resolution.
	ConflictOf string
}

// ContentMap returns Content as a map, or nil/false if Content is not
// currently decrypted (e.g. it is an opaque ciphertext string or the
// payload is a tombstone).
func (p Payload) ContentMap() (map[string]any, bool) {
	m, ok := p.Content.(map[string]any)
	return m, ok
}

// ContentString returns Content as a ciphertext string, or "", false if
// Content is not currently a string.
func (p Payload) ContentString() (string, bool) {
	s, ok := p.Content.(string)
	return s, ok
}

// IsEncrypted reports whether Content currently holds ciphertext rather
// than a decrypted map.
func (p Payload) IsEncrypted() bool {
	_, ok := p.ContentString()
	return ok
}

// Copy returns a new Payload retaining only the fields that survive the
// given field set,
func (p Payload) Copy(fs FieldSet) Payload {
	out := Payload{
		UUID:        p.UUID,
		ContentType: p.ContentType,
		Content:     p.Content,
		ItemsKeyID:  p.ItemsKeyID,
		EncItemKey:  p.EncItemKey,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Deleted:     p.Deleted,
	}
	switch fs {
	case FieldSetMax:
		out.Dirty = p.Dirty
		out.DirtiedAt = p.DirtiedAt
		out.LastSyncBegin = p.LastSyncBegin
		out.LastSyncEnd = p.LastSyncEnd
		out.ErrorDecrypting = p.ErrorDecrypting
		out.ErrorDecryptingChanged = p.ErrorDecryptingChanged
		out.WaitingForKey = p.WaitingForKey
		out.Dummy = p.Dummy
		out.AuthHash = p.AuthHash
		out.AuthParams = p.AuthParams
		out.ConflictOf = p.ConflictOf
	case FieldSetEncryptionParameters:
		out.AuthHash = p.AuthHash
	case FieldSetFile, FieldSetStorage:
		out.Dirty = p.Dirty
		out.ErrorDecrypting = p.ErrorDecrypting
		out.WaitingForKey = p.WaitingForKey
	case FieldSetServer, FieldSetServerSaved:
		// Client-only flags are never sent to or trusted from the server.
	case FieldSetSessionHistory:
		out.Content = p.Content
	case FieldSetComponentRetrieved:
		out.ErrorDecrypting = p.ErrorDecrypting
	}
	return out
}

// WithContent returns a copy of p with Content replaced.
func (p Payload) WithContent(c any) Payload {
	p.Content = c
	return p
}

// WithDecryptError returns a copy of p flagged as failing to decrypt.
// Content is left untouched.
func (p Payload) WithDecryptError() Payload {
	changed := !p.ErrorDecrypting
	p.ErrorDecrypting = true
	p.ErrorDecryptingChanged = changed
	return p
}

// WithDecryptSuccess clears any decrypt-error flags after a successful decrypt.
func (p Payload) WithDecryptSuccess(content any) Payload {
	changed := p.ErrorDecrypting
	p.ErrorDecrypting = false
	p.ErrorDecryptingChanged = changed
	p.WaitingForKey = false
	p.Content = content
	return p
}

// WithWaitingForKey marks p as undecryptable for lack of a key, without
// touching Content.
func (p Payload) WithWaitingForKey() Payload {
	p.WaitingForKey = true
	return p.WithDecryptError()
}

// IsDiscardable reports whether a deleted payload has nothing left to sync
// and is safe to drop from the collection immediately on emission.
func (p Payload) IsDiscardable() bool {
	return p.Deleted && !p.Dirty
}

// References extracts the content's references array, if present.
func (p Payload) References() []Reference {
	m, ok := p.ContentMap()
	if !ok {
		return nil
	}
	raw, ok := m["references"].([]any)
	if !ok {
		return nil
	}
	refs := make([]Reference, 0, len(raw))
	for _, r := range raw {
		rm, ok := r.(map[string]any)
		if !ok {
			continue
		}
		uuid, _ := rm["uuid"].(string)
		ct, _ := rm["content_type"].(string)
		if uuid == "" {
			continue
		}
		refs = append(refs, Reference{UUID: uuid, ContentType: ContentType(ct)})
	}
	return refs
}
