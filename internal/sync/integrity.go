package sync

import (
	"crypto/sha256"
	"encoding/hex"
	"sort"

	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// computeIntegrityHash hashes (uuid, updated_at) pairs, sorted by uuid, the
// same way the server is expected to hash its authoritative set. Both
// TransportMemory and Controller call this so a fully-synced state always
// agrees.
func computeIntegrityHash(pairs map[string]string) string {
	uuids := make([]string, 0, len(pairs))
	for u := range pairs {
		uuids = append(uuids, u)
	}
	sort.Strings(uuids)

	h := sha256.New()
	for _, u := range uuids {
		h.Write([]byte(u))
		h.Write([]byte{0})
		h.Write([]byte(pairs[u]))
		h.Write([]byte{0})
	}
	return hex.EncodeToString(h.Sum(nil))
}

func localIntegrityPairs(items []payloads.Item) map[string]string {
	out := make(map[string]string, len(items))
	for _, it := range items {
		p := it.Payload()
		if p.Deleted {
			continue
		}
		out[p.UUID] = p.UpdatedAt.UTC().Format("2006-01-02T15:04:05.000000000Z")
	}
	return out
}
