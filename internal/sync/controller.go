// Package sync implements the sync controller: the client side of the
// download-first/default sync lifecycle, conflict resolution, and the
// discardable-tombstone rule.
package sync

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"time"

	"github.com/dmitrijs2005/notevault/internal/keys"
	"github.com/dmitrijs2005/notevault/internal/logging"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

// EventKind names the observable outcomes of a sync run.
type EventKind int

const (
	EventFullSyncCompleted EventKind = iota
	EventHighLatencySync
	EventEnterOutOfSync
	EventFailedSync
)

type Event struct {
	Kind EventKind
	Err  error
}

// RootKeyVersionSource is the sliver of keys.Manager the controller needs
// to reconcile items keys after a download-first pull.
type RootKeyVersionSource interface {
	RootKeyParams() (protocol.KeyParams, bool)
}

// Controller drives one sync at a time against a Transport, feeding
// results back through the payloads.Manager. Not safe for concurrent
// external calls: every method must be invoked from the single
// owning goroutine/actor.
type Controller struct {
	transport Transport
	manager   *payloads.Manager
	protocol  *protocol.ProtocolService
	itemsKeys *keys.ItemsKeyManager
	rootKeys  RootKeyVersionSource
	mutator   *payloads.Mutator
	logger    logging.Logger

	syncToken   string
	cursorToken string

	locked  bool
	running bool

	highLatencyThreshold time.Duration
	syncTimeout          time.Duration
	maxPages             int

	onEvent func(Event)
}

func NewController(
	transport Transport,
	manager *payloads.Manager,
	protocolSvc *protocol.ProtocolService,
	itemsKeys *keys.ItemsKeyManager,
	rootKeys RootKeyVersionSource,
	logger logging.Logger,
) *Controller {
	return &Controller{
		transport:            transport,
		manager:              manager,
		protocol:             protocolSvc,
		itemsKeys:            itemsKeys,
		rootKeys:             rootKeys,
		mutator:              payloads.NewMutator(payloads.SourceRemoteRetrieved),
		logger:               logger,
		highLatencyThreshold: 8 * time.Second,
		maxPages:             50,
	}
}

func (c *Controller) SetHighLatencyThreshold(d time.Duration) { c.highLatencyThreshold = d }

// SetSyncTimeout sets the hard deadline enforced around every outbound
// transport.Sync call. Zero (the default) disables the hard timeout,
// leaving only the soft EventHighLatencySync warning.
func (c *Controller) SetSyncTimeout(d time.Duration) { c.syncTimeout = d }
func (c *Controller) SetMaxPages(n int)              { c.maxPages = n }
func (c *Controller) OnEvent(fn func(Event))         { c.onEvent = fn }

// LockSyncing/UnlockSyncing gate new sync runs during sign-in, register,
// and password-change so the auto-timer cannot interleave.
func (c *Controller) LockSyncing()   { c.locked = true }
func (c *Controller) UnlockSyncing() { c.locked = false }
func (c *Controller) IsLocked() bool { return c.locked }

func (c *Controller) emit(e Event) {
	if c.onEvent != nil {
		c.onEvent(e)
	}
}

// Run executes one sync to completion, including any cursor_token
// pagination. Only one Run is ever active per
// Controller: a reentrant call (possible only if an observer synchronously
// triggers another sync) coalesces into a no-op unless strategy is
// QueueForceSpawnNew.
func (c *Controller) Run(ctx context.Context, mode Mode, strategy QueueStrategy) error {
	if c.locked {
		return nil
	}
	if c.running && strategy != QueueForceSpawnNew {
		return nil
	}
	c.running = true
	defer func() { c.running = false }()

	timer := time.AfterFunc(c.highLatencyThreshold, func() { c.emit(Event{Kind: EventHighLatencySync}) })
	defer timer.Stop()

	if mode == DownloadFirst {
		if err := c.processPage(ctx, SyncRequest{SyncToken: c.syncToken, ComputeIntegrity: true}); err != nil {
			c.emit(Event{Kind: EventFailedSync, Err: err})
			return err
		}
		if params, ok := c.rootKeys.RootKeyParams(); ok {
			c.itemsKeys.ReconcileAfterDownloadFirst(params.Version)
		}
	}

	encrypted, err := c.stampAndEncryptDirtySet()
	if err != nil {
		c.emit(Event{Kind: EventFailedSync, Err: err})
		return err
	}
	if err := c.processPage(ctx, SyncRequest{SyncToken: c.syncToken, Items: encrypted, ComputeIntegrity: true}); err != nil {
		c.emit(Event{Kind: EventFailedSync, Err: err})
		return err
	}

	for pages := 1; c.cursorToken != "" && pages < c.maxPages; pages++ {
		if err := c.processPage(ctx, SyncRequest{SyncToken: c.syncToken, CursorToken: c.cursorToken, ComputeIntegrity: true}); err != nil {
			c.emit(Event{Kind: EventFailedSync, Err: err})
			return err
		}
	}

	c.emit(Event{Kind: EventFullSyncCompleted})
	return nil
}

// stampAndEncryptDirtySet implements step 1: collect the dirty set, stamp
// last_sync_begin, push the stamp into the collection, and encrypt for
// upload. A payload that fails to encrypt is dropped from the upload but
// stays dirty for the next attempt, the same as a sync network error never
// clearing the dirty set.
func (c *Controller) stampAndEncryptDirtySet() ([]ServerPayload, error) {
	dirty := payloads.DirtySet(c.manager.Collection.All())
	if len(dirty) == 0 {
		return nil, nil
	}

	now := payloads.Now()
	stamped := make([]payloads.Payload, 0, len(dirty))
	for _, it := range dirty {
		p := it.Payload()
		p.LastSyncBegin = now
		stamped = append(stamped, p)
	}
	if _, err := c.manager.Emit(stamped, payloads.SourceSyncBegin); err != nil {
		return nil, err
	}

	encrypted, failedUUIDs := c.protocol.BatchEncrypt(stamped)
	for _, uuid := range failedUUIDs {
		c.logger.Warn(context.Background(), "sync: dropping payload from this upload, encryption failed", "uuid", uuid)
	}

	out := make([]ServerPayload, 0, len(encrypted))
	for _, p := range encrypted {
		out = append(out, toServerPayload(p))
	}
	return out, nil
}

// processPage implements steps 2-8 for a single request/response
// round-trip. The outbound transport.Sync call is bounded by the
// controller's hard sync timeout, if one is configured: exceeding it
// cancels the call and returns ErrSyncTimeout instead of hanging
// indefinitely, distinct from EventHighLatencySync which only warns.
func (c *Controller) processPage(ctx context.Context, req SyncRequest) error {
	syncCtx := ctx
	if c.syncTimeout > 0 {
		var cancel context.CancelFunc
		syncCtx, cancel = context.WithTimeout(ctx, c.syncTimeout)
		defer cancel()
	}

	resp, err := c.transport.Sync(syncCtx, req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return fmt.Errorf("%w: %v", ErrSyncTimeout, err)
		}
		return fmt.Errorf("%w: %v", ErrSyncNetworkError, err)
	}
	c.syncToken = resp.SyncToken
	c.cursorToken = resp.CursorToken

	if err := c.applyRetrieved(resp.Retrieved); err != nil {
		return err
	}
	if err := c.applyConflicts(resp.Conflicts); err != nil {
		return err
	}
	c.applySaved(resp.Saved)

	if req.ComputeIntegrity && resp.IntegrityHash != "" {
		local := computeIntegrityHash(localIntegrityPairs(c.manager.Collection.All()))
		if local != resp.IntegrityHash {
			c.emit(Event{Kind: EventEnterOutOfSync, Err: ErrIntegrityMismatch})
		}
	}
	return nil
}

// applyRetrieved implements step 4: decrypt each retrieved payload, and if
// the local copy is dirty and differs meaningfully, spin off a conflicted
// duplicate before letting the server copy win the uuid.
func (c *Controller) applyRetrieved(retrieved []ServerPayload) error {
	if len(retrieved) == 0 {
		return nil
	}
	var toEmit []payloads.Payload
	for _, sp := range retrieved {
		decrypted := c.protocol.DecryptOne(fromServerPayload(sp))
		if local, ok := c.manager.Collection.Get(decrypted.UUID); ok {
			localPayload := local.Payload()
			if localPayload.Dirty && !contentEqual(localPayload, decrypted) {
				toEmit = append(toEmit, payloads.Duplicate(local))
			}
		}
		toEmit = append(toEmit, decrypted)
	}
	_, err := c.manager.Emit(toEmit, payloads.SourceRemoteRetrieved)
	return err
}

// applyConflicts implements step 6.
func (c *Controller) applyConflicts(conflicts []Conflict) error {
	if len(conflicts) == 0 {
		return nil
	}
	var toEmit []payloads.Payload
	for _, conflict := range conflicts {
		switch conflict.Type {
		case ConflictUUID:
			item, ok := c.manager.Collection.Get(conflict.ServerItem.UUID)
			if !ok {
				continue
			}
			tombstone, replacement, referrers := c.manager.Alternate(item, c.mutator)
			toEmit = append(toEmit, tombstone, replacement)
			toEmit = append(toEmit, referrers...)
		case ConflictData:
			decrypted := c.protocol.DecryptOne(fromServerPayload(conflict.ServerItem))
			if local, ok := c.manager.Collection.Get(decrypted.UUID); ok {
				toEmit = append(toEmit, payloads.Duplicate(local))
			}
			toEmit = append(toEmit, decrypted)
		}
	}
	if len(toEmit) == 0 {
		return nil
	}
	_, err := c.manager.Emit(toEmit, payloads.SourceRemoteRetrieved)
	return err
}

// applySaved implements step 5: dirty clears only if no mutation happened
// during the round-trip (dirtied_at <= last_sync_begin).
func (c *Controller) applySaved(saved []ServerPayload) {
	if len(saved) == 0 {
		return
	}
	now := payloads.Now()
	var toEmit []payloads.Payload
	for _, sp := range saved {
		local, ok := c.manager.Collection.Get(sp.UUID)
		if !ok {
			continue
		}
		p := local.Payload()
		if !p.DirtiedAt.After(p.LastSyncBegin) {
			p.Dirty = false
		}
		p.UpdatedAt = sp.UpdatedAt
		p.ItemsKeyID = sp.ItemsKeyID
		p.LastSyncEnd = now
		if p.ContentType == payloads.TypeItemsKey {
			c.itemsKeys.ClearDirty(p.UUID)
		}
		toEmit = append(toEmit, p)
	}
	if len(toEmit) > 0 {
		_, _ = c.manager.Emit(toEmit, payloads.SourceRemoteSaved)
	}
}

// contentEqual compares two payloads' decrypted content, ignoring flags
// that never carry semantic meaning for conflict detection.
func contentEqual(a, b payloads.Payload) bool {
	am, aok := a.ContentMap()
	bm, bok := b.ContentMap()
	if aok != bok {
		return false
	}
	if !aok {
		return a.Content == b.Content
	}
	return reflect.DeepEqual(am, bm)
}
