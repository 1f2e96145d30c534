package keys

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

func TestItemsKeyManager_CreateNewDefault_UnflagsPrevious(t *testing.T) {
	ikm := NewItemsKeyManager()
	m := NewManager(&fakeKeychain{}, &fakeParamsStore{})
	svc := protocol.NewProtocolService(NewVault(m, ikm))

	rootKey := protocol.RootKey{MasterKey: cryptox.RandomBytes(32), Version: protocol.V004}
	first := ikm.CreateNewDefault(svc, protocol.V004, rootKey)
	require.True(t, first.IsDefault)

	second := ikm.CreateNewDefault(svc, protocol.V004, rootKey)
	require.True(t, second.IsDefault)

	firstAgain, ok := ikm.ItemsKeyByID(first.UUID)
	require.True(t, ok)
	require.False(t, firstAgain.IsDefault)

	dirty := ikm.DirtyUUIDs()
	require.ElementsMatch(t, []string{first.UUID, second.UUID}, dirty)
}

func TestItemsKeyManager_DefaultItemsKey_LenientFallback(t *testing.T) {
	ikm := NewItemsKeyManager()
	material := protocol.ItemsKeyMaterial{UUID: "only-one", ItemsKey: cryptox.RandomBytes(32), Version: protocol.V004}
	ikm.Load(material, false, false)

	def, ok := ikm.DefaultItemsKey()
	require.True(t, ok)
	require.Equal(t, "only-one", def.UUID)
}

func TestItemsKeyManager_DefaultItemsKey_AmbiguousWithoutFlagFails(t *testing.T) {
	ikm := NewItemsKeyManager()
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "a", Version: protocol.V004}, false, false)
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "b", Version: protocol.V004}, false, false)

	_, ok := ikm.DefaultItemsKey()
	require.False(t, ok)
}

func TestItemsKeyManager_ReconcileAfterDownloadFirst_KeepsSyncedDefaultOnly(t *testing.T) {
	ikm := NewItemsKeyManager()
	synced := protocol.ItemsKeyMaterial{UUID: "synced-default", Version: protocol.V004, IsDefault: true}
	ikm.Load(synced, false, false)
	neverSynced := protocol.ItemsKeyMaterial{UUID: "never-synced", Version: protocol.V004}
	ikm.Load(neverSynced, true, true)

	removed := ikm.ReconcileAfterDownloadFirst(protocol.V004)
	require.Equal(t, []string{"never-synced"}, removed)
	_, ok := ikm.ItemsKeyByID("never-synced")
	require.False(t, ok)
}

func TestItemsKeyManager_ReconcileAfterDownloadFirst_NoSyncedDefault_KeepsMatchingVersion(t *testing.T) {
	ikm := NewItemsKeyManager()
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "old-version", Version: protocol.V003}, true, true)
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "current-version", Version: protocol.V004}, true, true)

	removed := ikm.ReconcileAfterDownloadFirst(protocol.V004)
	require.Equal(t, []string{"old-version"}, removed)
	_, ok := ikm.ItemsKeyByID("current-version")
	require.True(t, ok)
}

func TestItemsKeyManager_NeedsNewDefault(t *testing.T) {
	ikm := NewItemsKeyManager()
	require.True(t, ikm.NeedsNewDefault())

	ikm.Load(protocol.ItemsKeyMaterial{UUID: "a", IsDefault: true}, false, false)
	require.False(t, ikm.NeedsNewDefault())
}

func TestItemsKeyManager_Reset_DropsEveryKnownKey(t *testing.T) {
	ikm := NewItemsKeyManager()
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "a", IsDefault: true}, false, false)
	ikm.Load(protocol.ItemsKeyMaterial{UUID: "b"}, true, false)

	ikm.Reset()

	require.Empty(t, ikm.All())
	require.True(t, ikm.NeedsNewDefault())
	_, ok := ikm.ItemsKeyByID("a")
	require.False(t, ok)
}
