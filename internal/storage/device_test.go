package storage

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/notevault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
)

func setupDevice(t *testing.T) (*Device, *sql.DB) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	_, err = db.Exec(`
CREATE TABLE metadata (key TEXT PRIMARY KEY, value BLOB NOT NULL);
CREATE TABLE payloads (
	uuid TEXT PRIMARY KEY,
	content_type TEXT NOT NULL,
	body BLOB NOT NULL,
	deleted INTEGER NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL
);`)
	require.NoError(t, err)

	dev := NewDevice(metadata.NewSQLiteRepository(db), db)
	dev.Launch()
	return dev, db
}

func TestDevice_ReadWriteBeforeLaunch_Errors(t *testing.T) {
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	defer db.Close()
	dev := NewDevice(metadata.NewSQLiteRepository(db), db)

	err = dev.SetKeychainValue([]byte("x"))
	require.ErrorIs(t, err, ErrNotLaunched)
}

func TestDevice_WrappedValue_RoundTrip(t *testing.T) {
	dev, _ := setupDevice(t)
	ctx := context.Background()

	require.NoError(t, dev.SetWrappedValue(ctx, "storage_object", []byte("cipher")))
	v, ok, err := dev.GetWrappedValue(ctx, "storage_object")
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("cipher"), v)
}

func TestDevice_EphemeralPolicy_SkipsPersistenceAndClearsExisting(t *testing.T) {
	dev, _ := setupDevice(t)
	ctx := context.Background()

	require.NoError(t, dev.SetWrappedValue(ctx, "k", []byte("v")))
	require.NoError(t, dev.SetPersistencePolicy(ctx, PersistEphemeral))

	_, ok, err := dev.GetWrappedValue(ctx, "k")
	require.NoError(t, err)
	require.False(t, ok)

	require.NoError(t, dev.SetWrappedValue(ctx, "k2", []byte("v2")))
	_, ok, err = dev.GetWrappedValue(ctx, "k2")
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDevice_KeychainAndParamsStore_RoundTrip(t *testing.T) {
	dev, _ := setupDevice(t)

	require.NoError(t, dev.SetKeychainValue([]byte("secret")))
	v, ok, err := dev.GetKeychainValue()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("secret"), v)

	params := protocol.KeyParams{Identifier: "a@b.c", Version: protocol.V004, Argon2Time: 5}
	require.NoError(t, dev.SetRootKeyParams(params))
	loaded, ok, err := dev.GetRootKeyParams()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, params, loaded)

	require.NoError(t, dev.SetWrappedRootKey([]byte("wrapped")))
	wrapped, ok, err := dev.GetWrappedRootKey()
	require.NoError(t, err)
	require.True(t, ok)
	require.Equal(t, []byte("wrapped"), wrapped)

	require.NoError(t, dev.ClearWrappedRootKey())
	_, ok, err = dev.GetWrappedRootKey()
	require.NoError(t, err)
	require.False(t, ok)
}

func TestDevice_PayloadTable_RoundTrip(t *testing.T) {
	dev, _ := setupDevice(t)
	ctx := context.Background()

	p := payloads.Payload{
		UUID:        "note-1",
		ContentType: payloads.TypeNote,
		Content:     map[string]any{"title": "T"},
		CreatedAt:   time.Now().UTC(),
		UpdatedAt:   time.Now().UTC(),
	}
	require.NoError(t, dev.SavePayload(ctx, p))

	all, err := dev.AllPayloads(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	require.Equal(t, "note-1", all[0].UUID)
	m, ok := all[0].ContentMap()
	require.True(t, ok)
	require.Equal(t, "T", m["title"])

	require.NoError(t, dev.DeletePayload(ctx, "note-1"))
	all, err = dev.AllPayloads(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}

func TestDevice_SignOutClear_WipesAllDomains(t *testing.T) {
	dev, _ := setupDevice(t)
	ctx := context.Background()

	require.NoError(t, dev.SetKeychainValue([]byte("secret")))
	require.NoError(t, dev.SetWrappedRootKey([]byte("wrapped")))
	require.NoError(t, dev.SetRootKeyParams(protocol.KeyParams{Version: protocol.V004}))
	require.NoError(t, dev.SavePayload(ctx, payloads.Payload{UUID: "n1", ContentType: payloads.TypeNote}))
	dev.SetUnwrappedValue("k", []byte("v"))

	require.NoError(t, dev.SignOutClear(ctx))

	_, ok, _ := dev.GetKeychainValue()
	require.False(t, ok)
	_, ok, _ = dev.GetWrappedRootKey()
	require.False(t, ok)
	_, ok, _ = dev.GetRootKeyParams()
	require.False(t, ok)
	_, ok = dev.GetUnwrappedValue("k")
	require.False(t, ok)
	all, err := dev.AllPayloads(ctx)
	require.NoError(t, err)
	require.Empty(t, all)
}
