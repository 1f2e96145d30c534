package sync

import (
	"time"

	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// Mode selects how a sync run begins.
type Mode int

const (
	// Default uploads the dirty set immediately alongside the pull.
	Default Mode = iota
	// DownloadFirst performs an empty-upload pull first, letting the
	// items-key manager reconcile before anything local is sent up.
	DownloadFirst
)

// QueueStrategy governs how a sync request behaves when one is already
// in flight.
type QueueStrategy int

const (
	// QueueDefault coalesces with any in-flight sync.
	QueueDefault QueueStrategy = iota
	// QueueResolve is an explicit alias for coalescing.
	QueueResolve
	// QueueForceSpawnNew always starts a new sync. When another Run is in
	// flight the new one is not queued: it runs at once, nested inside the
	// current one.
	QueueForceSpawnNew
)

// ConflictType distinguishes the two conflict shapes the server can report.
type ConflictType string

const (
	ConflictUUID ConflictType = "uuid_conflict"
	ConflictData ConflictType = "sync_conflict"
)

// ServerPayload is the wire shape of a payload: it omits every client-only
// field (dirty, dirtied_at, last_sync_*, waiting_for_key, error_*, dummy).
type ServerPayload struct {
	UUID        string
	ContentType payloads.ContentType
	Content     any
	ItemsKeyID  string
	EncItemKey  string
	CreatedAt   time.Time
	UpdatedAt   time.Time
	Deleted     bool
	AuthHash    string
	AuthParams  map[string]any
}

// toServerPayload strips every client-only field (dirty, dirtied_at,
// last_sync_*, waiting_for_key, error_*, dummy, conflict_of) while keeping
// auth_hash/auth_params, which legacy protocol versions need on the wire
// even though they are not "client bookkeeping".
func toServerPayload(p payloads.Payload) ServerPayload {
	return ServerPayload{
		UUID:        p.UUID,
		ContentType: p.ContentType,
		Content:     p.Content,
		ItemsKeyID:  p.ItemsKeyID,
		EncItemKey:  p.EncItemKey,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Deleted:     p.Deleted,
		AuthHash:    p.AuthHash,
		AuthParams:  p.AuthParams,
	}
}

func fromServerPayload(sp ServerPayload) payloads.Payload {
	return payloads.Payload{
		UUID:        sp.UUID,
		ContentType: sp.ContentType,
		Content:     sp.Content,
		ItemsKeyID:  sp.ItemsKeyID,
		EncItemKey:  sp.EncItemKey,
		CreatedAt:   sp.CreatedAt,
		UpdatedAt:   sp.UpdatedAt,
		Deleted:     sp.Deleted,
		AuthHash:    sp.AuthHash,
		AuthParams:  sp.AuthParams,
	}
}

// Conflict is one entry of a SyncResponse's conflicts array.
type Conflict struct {
	Type       ConflictType
	ServerItem ServerPayload
}

// SyncRequest is the client-side wire request.
type SyncRequest struct {
	SyncToken        string
	CursorToken      string
	Items            []ServerPayload
	ComputeIntegrity bool
}

// SyncResponse is the server's reply.
type SyncResponse struct {
	Retrieved     []ServerPayload
	Saved         []ServerPayload
	Conflicts     []Conflict
	SyncToken     string
	CursorToken   string
	IntegrityHash string
}
