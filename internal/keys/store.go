package keys

import "github.com/dmitrijs2005/notevault/internal/protocol"

// Keychain is the OS-level secret store external collaborator:
// plaintext key material that must never touch application storage.
type Keychain interface {
	SetKeychainValue(value []byte) error
	GetKeychainValue() ([]byte, bool, error)
	ClearKeychainValue() error
}

// ParamsStore persists the always-plaintext ("nonwrapped") key
// bookkeeping: key params and the wrapped root key ciphertext, if any.
type ParamsStore interface {
	SetRootKeyParams(p protocol.KeyParams) error
	GetRootKeyParams() (protocol.KeyParams, bool, error)

	SetWrapperKeyParams(p protocol.KeyParams) error
	GetWrapperKeyParams() (protocol.KeyParams, bool, error)
	ClearWrapperKeyParams() error

	SetWrappedRootKey(ciphertext []byte) error
	GetWrappedRootKey() ([]byte, bool, error)
	ClearWrappedRootKey() error
}
