package protocol

import (
	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// KeyParams is the portable descriptor needed to re-derive a key from a
// password: algorithm identifier, salt/nonce/cost (or their modern
// equivalents), and the protocol version they belong to. A vault holds two
// independent slots of these: account key params and wrapper (passcode) key
// params.
type KeyParams struct {
	Identifier string  `json:"identifier"`
	Version    Version `json:"version"`

	// PBKDF2 fields (001-003).
	PwSalt  string `json:"pw_salt,omitempty"`
	PwCost  int    `json:"pw_cost,omitempty"`
	PwNonce string `json:"pw_nonce,omitempty"`

	// Argon2id fields (004).
	Argon2Salt    string `json:"salt,omitempty"`
	Argon2Time    uint32 `json:"time,omitempty"`
	Argon2MemKiB  uint32 `json:"memory,omitempty"`
	Argon2Threads uint8  `json:"threads,omitempty"`
}

// RootKey is the derived key material for one protocol version. It lives in
// RAM only; its persisted form is the version-stamped KeyParams plus,
// depending on key mode, a wrapped or plaintext copy held by an external
// collaborator.
type RootKey struct {
	MasterKey             []byte
	DataAuthenticationKey []byte
	Version               Version
}

// ItemsKeyMaterial is the decrypted content of a synced ItemsKey item.
type ItemsKeyMaterial struct {
	UUID                  string
	ItemsKey              []byte
	DataAuthenticationKey []byte
	Version               Version
	IsDefault             bool
}

// ToPayload projects m into a dirty payloads.Payload ready for
// payloads.Manager.Emit, using the same content shape ItemsKeyItem's
// FromPayload case reads back out.
func (m ItemsKeyMaterial) ToPayload() payloads.Payload {
	now := payloads.Now()
	content := map[string]any{
		"itemsKey":   cryptox.Base64Encode(m.ItemsKey),
		"version":    string(m.Version),
		"isDefault":  m.IsDefault,
		"references": []any{},
	}
	if len(m.DataAuthenticationKey) > 0 {
		content["dataAuthenticationKey"] = cryptox.Base64Encode(m.DataAuthenticationKey)
	}
	return payloads.Payload{
		UUID:        m.UUID,
		ContentType: payloads.TypeItemsKey,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
		Dirty:       true,
		DirtiedAt:   now,
	}
}
