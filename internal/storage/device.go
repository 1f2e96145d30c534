// Package storage builds the Device external collaborator on top of a
// SQLite-backed key-value store: a namespaced store for the
// wrapped/unwrapped/nonwrapped domains plus a raw payload table, migrated
// with goose.
package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/dmitrijs2005/notevault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notevault/internal/dbx"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

const (
	keyKeychain         = "keychain"
	keyWrappedRootKey   = "wrapped_root_key"
	keyRootKeyParams    = "root_key_params"
	keyWrapperKeyParams = "root_key_wrapper_key_params"
	nonwrappedPrefix    = "nonwrapped:"
	wrappedPrefix       = "wrapped:"
)

// Device is the concrete storage façade. It is not safe for concurrent use
// from more than one goroutine, matching the single-actor model of the rest
// of the core; the mutex guards the launched/policy flags and the unwrapped
// map, which the sync timer goroutine and interactive commands both reach.
type Device struct {
	mu sync.Mutex

	metadata metadata.Repository
	payloads *payloadRepository

	launched    bool
	persistence PersistencePolicy
	encryption  EncryptionPolicy

	unwrapped map[string][]byte
}

// NewDevice wires a Device on top of an already-migrated database handle.
func NewDevice(metadataRepo metadata.Repository, db dbx.DBTX) *Device {
	return &Device{
		metadata:  metadataRepo,
		payloads:  newPayloadRepository(db),
		unwrapped: make(map[string][]byte),
	}
}

// Launch transitions the device into the state where storage reads/writes
// are legal. Reads/writes outside of launched state are an error.
func (d *Device) Launch() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.launched = true
}

func (d *Device) requireLaunched() error {
	if !d.launched {
		return ErrNotLaunched
	}
	return nil
}

// SetPersistencePolicy records p. Switching to Ephemeral wipes the metadata
// table (wrapped and nonwrapped domains) immediately; the payload table is
// left as it is. Afterwards wrapped values and payloads are dropped rather
// than stored anywhere, while nonwrapped writes (keychain value, key params,
// wrapped root key) still go to the metadata table.
func (d *Device) SetPersistencePolicy(ctx context.Context, p PersistencePolicy) error {
	d.mu.Lock()
	d.persistence = p
	d.mu.Unlock()
	if p == PersistEphemeral {
		return d.metadata.Clear(ctx)
	}
	return nil
}

func (d *Device) PersistencePolicy() PersistencePolicy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.persistence
}

func (d *Device) SetEncryptionPolicy(p EncryptionPolicy) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.encryption = p
}

func (d *Device) EncryptionPolicy() EncryptionPolicy {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.encryption
}

// --- Wrapped domain: encrypted storage_object values, persisted unless
// the persistence policy is Ephemeral. ---

func (d *Device) SetWrappedValue(ctx context.Context, key string, value []byte) error {
	if err := d.requireLaunched(); err != nil {
		return err
	}
	if d.PersistencePolicy() == PersistEphemeral {
		return nil
	}
	if err := d.metadata.Set(ctx, wrappedPrefix+key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteError, err)
	}
	return nil
}

func (d *Device) GetWrappedValue(ctx context.Context, key string) ([]byte, bool, error) {
	if err := d.requireLaunched(); err != nil {
		return nil, false, err
	}
	v, err := d.metadata.Get(ctx, wrappedPrefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageReadError, err)
	}
	return v, v != nil, nil
}

// --- Unwrapped domain: the decrypted in-memory mirror. Never touches disk. ---

func (d *Device) SetUnwrappedValue(key string, value []byte) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unwrapped[key] = value
}

func (d *Device) GetUnwrappedValue(key string) ([]byte, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	v, ok := d.unwrapped[key]
	return v, ok
}

func (d *Device) ClearUnwrapped() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.unwrapped = make(map[string][]byte)
}

// --- Nonwrapped domain: always-plaintext bookkeeping. ---

func (d *Device) setNonwrapped(ctx context.Context, key string, value []byte) error {
	if err := d.requireLaunched(); err != nil {
		return err
	}
	if err := d.metadata.Set(ctx, nonwrappedPrefix+key, value); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteError, err)
	}
	return nil
}

func (d *Device) getNonwrapped(ctx context.Context, key string) ([]byte, bool, error) {
	if err := d.requireLaunched(); err != nil {
		return nil, false, err
	}
	v, err := d.metadata.Get(ctx, nonwrappedPrefix+key)
	if err != nil {
		return nil, false, fmt.Errorf("%w: %v", ErrStorageReadError, err)
	}
	return v, v != nil, nil
}

func (d *Device) clearNonwrapped(ctx context.Context, key string) error {
	if err := d.requireLaunched(); err != nil {
		return err
	}
	if err := d.metadata.Delete(ctx, nonwrappedPrefix+key); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteError, err)
	}
	return nil
}

// --- keys.Keychain implementation. Backed by the same nonwrapped store;
// a real OS keychain implementation would swap this out entirely, which is
// exactly why keys.Manager depends on the interface, not on *Device. ---

func (d *Device) SetKeychainValue(value []byte) error {
	return d.setNonwrapped(context.Background(), keyKeychain, value)
}

func (d *Device) GetKeychainValue() ([]byte, bool, error) {
	return d.getNonwrapped(context.Background(), keyKeychain)
}

func (d *Device) ClearKeychainValue() error {
	return d.clearNonwrapped(context.Background(), keyKeychain)
}

// --- keys.ParamsStore implementation. ---

func (d *Device) SetRootKeyParams(p protocol.KeyParams) error {
	return d.setJSON(keyRootKeyParams, p)
}

func (d *Device) GetRootKeyParams() (protocol.KeyParams, bool, error) {
	var p protocol.KeyParams
	ok, err := d.getJSON(keyRootKeyParams, &p)
	return p, ok, err
}

func (d *Device) SetWrapperKeyParams(p protocol.KeyParams) error {
	return d.setJSON(keyWrapperKeyParams, p)
}

func (d *Device) GetWrapperKeyParams() (protocol.KeyParams, bool, error) {
	var p protocol.KeyParams
	ok, err := d.getJSON(keyWrapperKeyParams, &p)
	return p, ok, err
}

func (d *Device) ClearWrapperKeyParams() error {
	return d.clearNonwrapped(context.Background(), keyWrapperKeyParams)
}

func (d *Device) SetWrappedRootKey(ciphertext []byte) error {
	return d.setNonwrapped(context.Background(), keyWrappedRootKey, ciphertext)
}

func (d *Device) GetWrappedRootKey() ([]byte, bool, error) {
	return d.getNonwrapped(context.Background(), keyWrappedRootKey)
}

func (d *Device) ClearWrappedRootKey() error {
	return d.clearNonwrapped(context.Background(), keyWrappedRootKey)
}

func (d *Device) setJSON(key string, v any) error {
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteError, err)
	}
	return d.setNonwrapped(context.Background(), key, b)
}

func (d *Device) getJSON(key string, v any) (bool, error) {
	b, ok, err := d.getNonwrapped(context.Background(), key)
	if err != nil || !ok {
		return false, err
	}
	if err := json.Unmarshal(b, v); err != nil {
		return false, fmt.Errorf("%w: %v", ErrStorageReadError, err)
	}
	return true, nil
}

// --- Raw payload table. ---

func (d *Device) SavePayload(ctx context.Context, p payloads.Payload) error {
	if err := d.requireLaunched(); err != nil {
		return err
	}
	if d.PersistencePolicy() == PersistEphemeral {
		return nil
	}
	return d.payloads.Upsert(ctx, p)
}

func (d *Device) SavePayloads(ctx context.Context, ps []payloads.Payload) error {
	for _, p := range ps {
		if err := d.SavePayload(ctx, p); err != nil {
			return err
		}
	}
	return nil
}

func (d *Device) DeletePayload(ctx context.Context, uuid string) error {
	if err := d.requireLaunched(); err != nil {
		return err
	}
	if d.PersistencePolicy() == PersistEphemeral {
		return nil
	}
	return d.payloads.Delete(ctx, uuid)
}

func (d *Device) AllPayloads(ctx context.Context) ([]payloads.Payload, error) {
	if err := d.requireLaunched(); err != nil {
		return nil, err
	}
	return d.payloads.All(ctx)
}

// SignOutClear wipes every domain: keychain, nonwrapped params, wrapped
// storage object, unwrapped mirror, and the payload table. After sign-out,
// no storage values from the prior account remain.
func (d *Device) SignOutClear(ctx context.Context) error {
	if err := d.ClearKeychainValue(); err != nil {
		return err
	}
	if err := d.ClearWrappedRootKey(); err != nil {
		return err
	}
	if err := d.ClearWrapperKeyParams(); err != nil {
		return err
	}
	if err := d.clearNonwrapped(ctx, keyRootKeyParams); err != nil {
		return err
	}
	d.ClearUnwrapped()
	if err := d.metadata.Clear(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrStorageWriteError, err)
	}
	return d.payloads.Clear(ctx)
}
