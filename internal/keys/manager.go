package keys

import (
	"fmt"

	"github.com/dmitrijs2005/notevault/internal/protocol"
)

// Manager owns the key-mode state machine and the in-RAM root key. It
// never touches items keys directly; ItemsKeyManager handles those, driven
// by mode/version changes here.
type Manager struct {
	keychain Keychain
	params   ParamsStore

	mode             Mode
	rootKey          *protocol.RootKey
	rootKeyParams    *protocol.KeyParams
	wrapperKeyParams *protocol.KeyParams
}

func NewManager(keychain Keychain, params ParamsStore) *Manager {
	return &Manager{keychain: keychain, params: params, mode: None}
}

func (m *Manager) Mode() Mode { return m.mode }

// RootKey implements protocol.KeySource.
func (m *Manager) RootKey() (protocol.RootKey, bool) {
	if m.rootKey == nil {
		return protocol.RootKey{}, false
	}
	return *m.rootKey, true
}

func (m *Manager) RootKeyParams() (protocol.KeyParams, bool) {
	if m.rootKeyParams == nil {
		return protocol.KeyParams{}, false
	}
	return *m.rootKeyParams, true
}

func (m *Manager) WrapperKeyParams() (protocol.KeyParams, bool) {
	if m.wrapperKeyParams == nil {
		return protocol.KeyParams{}, false
	}
	return *m.wrapperKeyParams, true
}

// Load recomputes the key mode from persisted state without unlocking
// anything: the root key itself stays unloaded until UnwrapRootKey or
// LoadFromKeychain succeeds.
func (m *Manager) Load() error {
	wrapperParams, hasWrapper, err := m.params.GetWrapperKeyParams()
	if err != nil {
		return err
	}
	_, hasWrapped, err := m.params.GetWrappedRootKey()
	if err != nil {
		return err
	}
	rootParams, hasRootParams, err := m.params.GetRootKeyParams()
	if err != nil {
		return err
	}

	switch {
	case hasWrapper && hasWrapped:
		m.mode = RootKeyPlusWrapper
		m.wrapperKeyParams = &wrapperParams
		if hasRootParams {
			m.rootKeyParams = &rootParams
		}
	case hasWrapper:
		m.mode = WrapperOnly
		m.wrapperKeyParams = &wrapperParams
	case hasRootParams:
		m.mode = RootKeyOnly
		m.rootKeyParams = &rootParams
	default:
		m.mode = None
	}
	return nil
}

// LoadFromKeychain unlocks the root key in RootKeyOnly mode, where it is
// stored plaintext in the OS keychain.
func (m *Manager) LoadFromKeychain() error {
	if m.mode != RootKeyOnly {
		return ErrInvalidKeyMode
	}
	raw, ok, err := m.keychain.GetKeychainValue()
	if err != nil {
		return err
	}
	if !ok {
		return ErrKeyMissing
	}
	rk, err := unmarshalRootKey(raw)
	if err != nil {
		return err
	}
	m.rootKey = &rk
	return nil
}

// UnwrapRootKey unlocks the root key from a passcode-derived wrapping key.
// Valid only in WrapperOnly or RootKeyPlusWrapper.
func (m *Manager) UnwrapRootKey(wrappingKey []byte) error {
	switch m.mode {
	case WrapperOnly:
		version := protocol.LatestVersion
		if m.wrapperKeyParams != nil {
			version = m.wrapperKeyParams.Version
		}
		m.rootKey = &protocol.RootKey{MasterKey: wrappingKey, Version: version}
		return nil
	case RootKeyPlusWrapper:
		wrapped, ok, err := m.params.GetWrappedRootKey()
		if err != nil {
			return err
		}
		if !ok {
			return ErrKeyMissing
		}
		rk, err := unwrapRootKey(wrapped, wrappingKey)
		if err != nil {
			return ErrWrappingKeyInvalid
		}
		m.rootKey = &rk
		return nil
	default:
		return ErrInvalidKeyMode
	}
}

// ValidateWrappingKey checks candidate against the stored wrapped root key
// (or the currently unlocked root key in WrapperOnly, which has no wrapped
// form to re-derive against) without mutating any state.
func (m *Manager) ValidateWrappingKey(candidate []byte) (bool, error) {
	switch m.mode {
	case WrapperOnly:
		if m.rootKey == nil {
			return false, ErrKeyMissing
		}
		return constantTimeEqual(candidate, m.rootKey.MasterKey), nil
	case RootKeyPlusWrapper:
		wrapped, ok, err := m.params.GetWrappedRootKey()
		if err != nil {
			return false, err
		}
		if !ok {
			return false, ErrKeyMissing
		}
		_, err = unwrapRootKey(wrapped, candidate)
		return err == nil, nil
	default:
		return false, ErrInvalidKeyMode
	}
}

// SetNewRootKey atomically installs a fresh account root key: it persists
// the key params, then either the wrapped form (wrappingKey present) or a
// plaintext keychain value, updating the key mode accordingly. wrappingKey
// is required iff wrapperParams is non-nil.
func (m *Manager) SetNewRootKey(key protocol.RootKey, params protocol.KeyParams, wrappingKey []byte, wrapperParams *protocol.KeyParams) error {
	hasWrapper := wrappingKey != nil
	if hasWrapper != (wrapperParams != nil) {
		return fmt.Errorf("keys: wrappingKey and wrapperParams must both be present or both absent")
	}

	if err := m.params.SetRootKeyParams(params); err != nil {
		return err
	}

	if hasWrapper {
		wrapped, err := wrapRootKey(key, wrappingKey)
		if err != nil {
			return err
		}
		if err := m.params.SetWrappedRootKey(wrapped); err != nil {
			return err
		}
		if err := m.params.SetWrapperKeyParams(*wrapperParams); err != nil {
			return err
		}
		if err := m.keychain.ClearKeychainValue(); err != nil {
			return err
		}
		m.mode = RootKeyPlusWrapper
		m.wrapperKeyParams = wrapperParams
	} else {
		raw, err := marshalRootKey(key)
		if err != nil {
			return err
		}
		if err := m.keychain.SetKeychainValue(raw); err != nil {
			return err
		}
		if err := m.params.ClearWrappedRootKey(); err != nil {
			return err
		}
		if err := m.params.ClearWrapperKeyParams(); err != nil {
			return err
		}
		m.mode = RootKeyOnly
		m.wrapperKeyParams = nil
	}

	m.rootKey = &key
	m.rootKeyParams = &params
	return nil
}

// SetPasscodeOnly transitions None → WrapperOnly: there is no account, so
// the wrapping key doubles as the root key and encrypts storage directly.
func (m *Manager) SetPasscodeOnly(wrappingKey []byte, wrapperParams protocol.KeyParams) error {
	if m.mode != None {
		return ErrInvalidKeyMode
	}
	if err := m.params.SetWrapperKeyParams(wrapperParams); err != nil {
		return err
	}
	if err := m.params.ClearWrappedRootKey(); err != nil {
		return err
	}
	if err := m.keychain.ClearKeychainValue(); err != nil {
		return err
	}
	m.mode = WrapperOnly
	m.wrapperKeyParams = &wrapperParams
	m.rootKey = &protocol.RootKey{MasterKey: wrappingKey, Version: wrapperParams.Version}
	m.rootKeyParams = nil
	return nil
}

// RemovePasscode transitions RootKeyPlusWrapper → RootKeyOnly or
// WrapperOnly → None, moving the root key (if any) back to the keychain.
func (m *Manager) RemovePasscode() error {
	switch m.mode {
	case RootKeyPlusWrapper:
		if m.rootKey == nil {
			return ErrKeyMissing
		}
		raw, err := marshalRootKey(*m.rootKey)
		if err != nil {
			return err
		}
		if err := m.keychain.SetKeychainValue(raw); err != nil {
			return err
		}
		if err := m.params.ClearWrappedRootKey(); err != nil {
			return err
		}
		if err := m.params.ClearWrapperKeyParams(); err != nil {
			return err
		}
		m.mode = RootKeyOnly
		m.wrapperKeyParams = nil
		return nil
	case WrapperOnly:
		if err := m.params.ClearWrapperKeyParams(); err != nil {
			return err
		}
		m.mode = None
		m.wrapperKeyParams = nil
		m.rootKey = nil
		return nil
	default:
		return ErrInvalidKeyMode
	}
}

// SignOut clears the keychain value, the persisted wrapped root key and
// wrapper key params, and the in-memory root key and params cache,
// returning the manager to None. The persisted root key params are left in
// the ParamsStore, and items keys are not touched.
func (m *Manager) SignOut() error {
	if err := m.keychain.ClearKeychainValue(); err != nil {
		return err
	}
	if err := m.params.ClearWrappedRootKey(); err != nil {
		return err
	}
	if err := m.params.ClearWrapperKeyParams(); err != nil {
		return err
	}
	m.mode = None
	m.rootKey = nil
	m.rootKeyParams = nil
	m.wrapperKeyParams = nil
	return nil
}
