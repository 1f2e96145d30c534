package protocol

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestCompareVersions_TotalOrder(t *testing.T) {
	require.Equal(t, -1, compareVersions(V001, V004))
	require.Equal(t, 1, compareVersions(V004, V001))
	require.Equal(t, 0, compareVersions(V003, V003))
}

func TestIsVersionNewerThanLibraryVersion(t *testing.T) {
	require.True(t, isVersionNewerThanLibraryVersion(Version("999")))
	require.False(t, isVersionNewerThanLibraryVersion(V004))
}

func TestIsProtocolVersionOutdated(t *testing.T) {
	require.True(t, isProtocolVersionOutdated(V001))
	require.False(t, isProtocolVersionOutdated(V004))
}

func TestRequiresItemsKey(t *testing.T) {
	require.False(t, requiresItemsKey(V003))
	require.True(t, requiresItemsKey(V004))
}
