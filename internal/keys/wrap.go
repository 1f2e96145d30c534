package keys

import (
	"crypto/subtle"
	"encoding/json"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

// wrappedRootKey is the JSON shape sealed under a wrapping key. It never
// touches disk unencrypted.
type wrappedRootKey struct {
	MasterKey             string          `json:"master_key"`
	DataAuthenticationKey string          `json:"data_authentication_key,omitempty"`
	Version               protocol.Version `json:"version"`
}

func marshalRootKey(rk protocol.RootKey) ([]byte, error) {
	w := wrappedRootKey{
		MasterKey: cryptox.Base64Encode(rk.MasterKey),
		Version:   rk.Version,
	}
	if len(rk.DataAuthenticationKey) > 0 {
		w.DataAuthenticationKey = cryptox.Base64Encode(rk.DataAuthenticationKey)
	}
	return json.Marshal(w)
}

func unmarshalRootKey(raw []byte) (protocol.RootKey, error) {
	var w wrappedRootKey
	if err := json.Unmarshal(raw, &w); err != nil {
		return protocol.RootKey{}, err
	}
	master, err := cryptox.Base64Decode(w.MasterKey)
	if err != nil {
		return protocol.RootKey{}, err
	}
	var authKey []byte
	if w.DataAuthenticationKey != "" {
		authKey, err = cryptox.Base64Decode(w.DataAuthenticationKey)
		if err != nil {
			return protocol.RootKey{}, err
		}
	}
	return protocol.RootKey{MasterKey: master, DataAuthenticationKey: authKey, Version: w.Version}, nil
}

// wrapRootKey seals rk under wrappingKey for storage.
func wrapRootKey(rk protocol.RootKey, wrappingKey []byte) ([]byte, error) {
	raw, err := marshalRootKey(rk)
	if err != nil {
		return nil, err
	}
	nonce, ciphertext, err := cryptox.XChaCha20Poly1305Seal(wrappingKey, raw, nil)
	if err != nil {
		return nil, err
	}
	return append(nonce, ciphertext...), nil
}

// unwrapRootKey reverses wrapRootKey. Failure (bad key or tampered
// ciphertext) is reported uniformly via the returned error.
func unwrapRootKey(wrapped, wrappingKey []byte) (protocol.RootKey, error) {
	const nonceSize = 24 // chacha20poly1305.NonceSizeX
	if len(wrapped) < nonceSize {
		return protocol.RootKey{}, cryptox.ErrCiphertextTooShort
	}
	nonce, ciphertext := wrapped[:nonceSize], wrapped[nonceSize:]
	raw, err := cryptox.XChaCha20Poly1305Open(wrappingKey, nonce, ciphertext, nil)
	if err != nil {
		return protocol.RootKey{}, err
	}
	return unmarshalRootKey(raw)
}

func constantTimeEqual(a, b []byte) bool {
	if len(a) != len(b) {
		return false
	}
	return subtle.ConstantTimeCompare(a, b) == 1
}
