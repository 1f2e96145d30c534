package protocol

// Version is a protocol version identifier: "001", "002", "003" or "004".
type Version string

const (
	V001 Version = "001"
	V002 Version = "002"
	V003 Version = "003"
	V004 Version = "004"

	// LatestVersion is the version new root keys and items keys are created at.
	LatestVersion = V004

	// LastNonrootItemsKeyVersion is the last version at which items are
	// encrypted directly under the root key rather than a synced items key.
	LastNonrootItemsKeyVersion = V003
)

var order = map[Version]int{
	V001: 1,
	V002: 2,
	V003: 3,
	V004: 4,
}

// compareVersions returns -1, 0, or 1 as a compares below, equal to, or
// above b in the version total order. Unknown versions sort below every
// known one.
func compareVersions(a, b Version) int {
	ai, bi := order[a], order[b]
	switch {
	case ai < bi:
		return -1
	case ai > bi:
		return 1
	default:
		return 0
	}
}

// isVersionNewerThanLibraryVersion reports whether v is not one this build
// knows how to speak at all (a future server-issued version).
func isVersionNewerThanLibraryVersion(v Version) bool {
	_, known := order[v]
	return !known
}

// isProtocolVersionOutdated reports whether v is older than the latest
// version this build creates new keys at.
func isProtocolVersionOutdated(v Version) bool {
	return compareVersions(v, LatestVersion) < 0
}

// requiresItemsKey reports whether payloads at v are encrypted under a
// synced ItemsKey rather than directly under the root key.
func requiresItemsKey(v Version) bool {
	return compareVersions(v, LastNonrootItemsKeyVersion) > 0
}
