package keys

import "github.com/dmitrijs2005/notevault/internal/protocol"

type fakeKeychain struct {
	value []byte
	has   bool
}

func (f *fakeKeychain) SetKeychainValue(v []byte) error {
	f.value = v
	f.has = true
	return nil
}
func (f *fakeKeychain) GetKeychainValue() ([]byte, bool, error) { return f.value, f.has, nil }
func (f *fakeKeychain) ClearKeychainValue() error {
	f.value = nil
	f.has = false
	return nil
}

type fakeParamsStore struct {
	rootParams    protocol.KeyParams
	hasRootParams bool

	wrapperParams    protocol.KeyParams
	hasWrapperParams bool

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
