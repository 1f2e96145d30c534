package cli

import (
	"bufio"
	"bytes"
	"database/sql"
	"io"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/dmitrijs2005/notevault/internal/challenge"
	"github.com/dmitrijs2005/notevault/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/notevault/internal/keys"
	"github.com/dmitrijs2005/notevault/internal/logging"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
	"github.com/dmitrijs2005/notevault/internal/storage"
	"github.com/dmitrijs2005/notevault/internal/sync"
)

// readerFor wraps a fixed script of input lines for tests that need to
// swap an App's reader mid-scenario (e.g. after learning a uuid).
func readerFor(s string) *bufio.Reader {
	return bufio.NewReader(bytes.NewBufferString(s))
}

// newTestApp builds an App wired to an in-memory database, bypassing
// NewApp's on-disk file so tests never touch the filesystem. stdin feeds
// the App's line reader; prompter answers any challenge.Prompter calls.
func newTestApp(t *testing.T, stdin string, prompter challenge.Prompter) *App {
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

	device := storage.NewDevice(metadata.NewSQLiteRepository(db), db)
	device.Launch()

	keyMgr := keys.NewManager(device, device)
	itemsKeys := keys.NewItemsKeyManager()
	vault := keys.NewVault(keyMgr, itemsKeys)
	protoSvc := protocol.NewProtocolService(vault)

	manager := payloads.NewManager()
	transport := sync.NewTransportMemory()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
	ctrl := sync.NewController(transport, manager, protoSvc, itemsKeys, keyMgr, logger)

	return &App{
		db:        db,
		device:    device,
		keyMgr:    keyMgr,
		itemsKeys: itemsKeys,
		protocol:  protoSvc,
		manager:   manager,
		mutator:   payloads.NewMutator(payloads.SourceLocalChanged),
		transport: transport,
		ctrl:      ctrl,
		prompter:  prompter,
		reader:    bufio.NewReader(bytes.NewBufferString(stdin)),
	}
}
