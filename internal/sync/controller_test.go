package sync

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/keys"
	"github.com/dmitrijs2005/notevault/internal/logging"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

type fakeKeychain struct {
	value []byte
	has   bool
}

func (f *fakeKeychain) SetKeychainValue(v []byte) error       { f.value, f.has = v, true; return nil }
func (f *fakeKeychain) GetKeychainValue() ([]byte, bool, error) { return f.value, f.has, nil }
func (f *fakeKeychain) ClearKeychainValue() error              { f.value, f.has = nil, false; return nil }

type fakeParamsStore struct {
	rootParams        protocol.KeyParams
	hasRootParams     bool
	wrapperParams     protocol.KeyParams
	hasWrapperParams  bool
	wrappedRootKey    []byte
	hasWrappedRootKey bool
}

func (f *fakeParamsStore) SetRootKeyParams(p protocol.KeyParams) error {
	f.rootParams, f.hasRootParams = p, true
	return nil
}
func (f *fakeParamsStore) GetRootKeyParams() (protocol.KeyParams, bool, error) {
	return f.rootParams, f.hasRootParams, nil
}
func (f *fakeParamsStore) SetWrapperKeyParams(p protocol.KeyParams) error {
	f.wrapperParams, f.hasWrapperParams = p, true
	return nil
}
func (f *fakeParamsStore) GetWrapperKeyParams() (protocol.KeyParams, bool, error) {
	return f.wrapperParams, f.hasWrapperParams, nil
}
func (f *fakeParamsStore) ClearWrapperKeyParams() error {
	f.wrapperParams, f.hasWrapperParams = protocol.KeyParams{}, false
	return nil
}
func (f *fakeParamsStore) SetWrappedRootKey(ciphertext []byte) error {
	f.wrappedRootKey, f.hasWrappedRootKey = ciphertext, true
	return nil
}
func (f *fakeParamsStore) GetWrappedRootKey() ([]byte, bool, error) {
	return f.wrappedRootKey, f.hasWrappedRootKey, nil
}
func (f *fakeParamsStore) ClearWrappedRootKey() error {
	f.wrappedRootKey, f.hasWrappedRootKey = nil, false
	return nil
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// harness wires a full account: a root key manager with a root key already
// installed, an items-key manager with a default items key, a protocol
// service, and a fresh payload manager, mirroring what the CLI assembles
// after registration.
type harness struct {
	keyMgr    *keys.Manager
	itemsKeys *keys.ItemsKeyManager
	protoSvc  *protocol.ProtocolService
	manager   *payloads.Manager
	transport *TransportMemory
	ctrl      *Controller
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	keyMgr := keys.NewManager(&fakeKeychain{}, &fakeParamsStore{})
	itemsKeys := keys.NewItemsKeyManager()
	vault := keys.NewVault(keyMgr, itemsKeys)
	protoSvc := protocol.NewProtocolService(vault)

	rootKey, rootParams, err := protoSvc.CreateRootKey("a@b.c", "correct horse")
	require.NoError(t, err)
	require.NoError(t, keyMgr.SetNewRootKey(rootKey, rootParams, nil, nil))

	itemsKeys.CreateNewDefault(protoSvc, rootParams.Version, rootKey)

	manager := payloads.NewManager()
	transport := NewTransportMemory()
	ctrl := NewController(transport, manager, protoSvc, itemsKeys, keyMgr, testLogger())

	return &harness{keyMgr: keyMgr, itemsKeys: itemsKeys, protoSvc: protoSvc, manager: manager, transport: transport, ctrl: ctrl}
}

func newLocalNote(uuid, title, text string) payloads.Payload {
	now := payloads.Now()
	return payloads.Payload{
		UUID:        uuid,
		ContentType: payloads.TypeNote,
		Content:     map[string]any{"title": title, "text": text, "references": []any{}},
		CreatedAt:   now,
		UpdatedAt:   now,
		Dirty:       true,
		DirtiedAt:   now,
	}
}

// Scenario 1: register + single note; sync uploads 2 payloads, note content
// starts with "004", note ends up clean with items_key_id set.
func TestController_RegisterAndSyncSingleNote(t *testing.T) {
	h := newHarness(t)
	note := newLocalNote("note-1", "T", "X")
	defaultKey, ok := h.itemsKeys.DefaultItemsKey()
	require.True(t, ok)
	itemsKeyPayload := payloads.Payload{
		UUID:        defaultKey.UUID,
		ContentType: payloads.TypeItemsKey,
		Content:     map[string]any{"itemsKey": cryptox.Base64Encode(defaultKey.ItemsKey), "isDefault": true},
		CreatedAt:   payloads.Now(),
		UpdatedAt:   payloads.Now(),
		Dirty:       true,
		DirtiedAt:   payloads.Now(),
	}
	_, err := h.manager.Emit([]payloads.Payload{note, itemsKeyPayload}, payloads.SourceLocalChanged)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))

	serverItems := h.transport.All()
	require.Len(t, serverItems, 2)

	var noteOnServer ServerPayload
	for _, sp := range serverItems {
		if sp.UUID == "note-1" {
			noteOnServer = sp
		}
	}
	content, ok := noteOnServer.Content.(string)
	require.True(t, ok)
	require.Equal(t, "004", content[:3])

	localNote, ok := h.manager.Collection.Get("note-1")
	require.True(t, ok)
	require.False(t, localNote.Payload().Dirty)
	require.Equal(t, defaultKey.UUID, localNote.Payload().ItemsKeyID)
}

// Scenario 4: tag/note bidirectional invariant. Creating then retracting a
// reference via a server-retrieved payload leaves both sides clean with an
// empty inverse index.
func TestController_RetrievedPayload_BidirectionalReferenceInvariant(t *testing.T) {
	h := newHarness(t)
	note := newLocalNote("note-1", "T", "X")
	tag := payloads.Payload{
		UUID:        "tag-1",
		ContentType: payloads.TypeTag,
		Content: map[string]any{
			"title":      "Work",
			"references": []any{map[string]any{"uuid": "note-1", "content_type": "Note"}},
		},
		CreatedAt: payloads.Now(),
		UpdatedAt: payloads.Now(),
	}
	_, err := h.manager.Emit([]payloads.Payload{note, tag}, payloads.SourceLocalChanged)
	require.NoError(t, err)
	require.ElementsMatch(t, []string{"tag-1"}, h.manager.Graph.Inverse("note-1"))

	retractedTag := tag
	retractedTag.Content = map[string]any{"title": "Work", "references": []any{}}
	retractedTag.UpdatedAt = payloads.Now()
	h.transport.QueueRetrieved(toServerPayload(retractedTag))

	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))

	updatedTag, ok := h.manager.Collection.Get("tag-1")
	require.True(t, ok)
	require.Empty(t, updatedTag.References())
	require.False(t, updatedTag.Payload().Dirty)
	require.Empty(t, h.manager.Graph.Inverse("note-1"))
}

// Scenario 5: uuid conflict on sign-in merge. A local note collides with a
// differently-created server note under the same uuid; the local copy is
// alternated to a fresh uuid and kept.
func TestController_UUIDConflict_AlternatesLocalCopy(t *testing.T) {
	h := newHarness(t)

	serverExisting := ServerPayload{
		UUID:        "note-1",
		ContentType: payloads.TypeNote,
		Content:     map[string]any{"title": "Server version", "text": "", "references": []any{}},
		CreatedAt:   payloads.Now().Add(-48 * time.Hour),
		UpdatedAt:   payloads.Now().Add(-48 * time.Hour),
	}
	h.transport.Seed(serverExisting)

	local := newLocalNote("note-1", "Local version", "mine")
	_, err := h.manager.Emit([]payloads.Payload{local}, payloads.SourceLocalChanged)
	require.NoError(t, err)

	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))

	_, ok := h.manager.Collection.Get("note-1")
	require.False(t, ok, "old uuid must no longer resolve to the local item after alternation")

	var foundUUID string
	for _, it := range h.manager.Collection.All() {
		if n, ok := it.(payloads.Note); ok && n.Title == "Local version" {
			foundUUID = n.UUID()
		}
	}
	require.NotEmpty(t, foundUUID, "alternated local note must survive under a fresh uuid")
	require.NotEqual(t, "note-1", foundUUID)
}

func TestController_Locked_SkipsRun(t *testing.T) {
	h := newHarness(t)
	h.ctrl.LockSyncing()
	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))
	require.Empty(t, h.transport.All())
}

func TestController_DownloadFirst_ReconcilesNeverSyncedItemsKeys(t *testing.T) {
	h := newHarness(t)
	require.True(t, h.itemsKeys.NeedsNewDefault() == false)

	require.NoError(t, h.ctrl.Run(context.Background(), DownloadFirst, QueueDefault))

	_, ok := h.itemsKeys.DefaultItemsKey()
	require.True(t, ok)
}

func TestController_EmitsFullSyncCompleted(t *testing.T) {
	h := newHarness(t)
	var events []EventKind
	h.ctrl.OnEvent(func(e Event) { events = append(events, e.Kind) })

	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))
	require.Contains(t, events, EventFullSyncCompleted)
}

// blockingTransport never returns on its own; it only unblocks when its
// context is canceled, standing in for an outbound HTTP call wedged past
// its deadline.
type blockingTransport struct{}

func (blockingTransport) Sync(ctx context.Context, req SyncRequest) (SyncResponse, error) {
	<-ctx.Done()
	return SyncResponse{}, ctx.Err()
}

func TestController_HardTimeout_CancelsOutboundSyncAndFails(t *testing.T) {
	h := newHarness(t)
	h.ctrl.transport = blockingTransport{}
	h.ctrl.SetSyncTimeout(20 * time.Millisecond)

	var events []Event
	h.ctrl.OnEvent(func(e Event) { events = append(events, e) })

	err := h.ctrl.Run(context.Background(), Default, QueueDefault)
	require.ErrorIs(t, err, ErrSyncTimeout)

	require.NotEmpty(t, events)
	last := events[len(events)-1]
	require.Equal(t, EventFailedSync, last.Kind)
	require.ErrorIs(t, last.Err, ErrSyncTimeout)
}

func TestController_NoHardTimeoutConfigured_NeverCancelsOutboundSync(t *testing.T) {
	h := newHarness(t)
	require.NoError(t, h.ctrl.Run(context.Background(), Default, QueueDefault))
}
