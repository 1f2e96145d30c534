package cli

import (
	"bufio"
	"context"
	"database/sql"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/dmitrijs2005/notevault/internal/challenge"
	"github.com/dmitrijs2005/notevault/internal/client/client"
	"github.com/dmitrijs2005/notevault/internal/client/config"
	"github.com/dmitrijs2005/notevault/internal/keys"
	"github.com/dmitrijs2005/notevault/internal/logging"
	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
	"github.com/dmitrijs2005/notevault/internal/storage"
	"github.com/dmitrijs2005/notevault/internal/sync"

	_ "modernc.org/sqlite"
)

// Mode reflects the outcome of the last connectivity probe, mirroring what
// the sync controller last observed rather than anything the CLI decides
// on its own.
type Mode string

const (
	ModeOffline  Mode = "offline"
	ModeOnline   Mode = "online"
	ModeDisabled Mode = "disabled"
)

// App wires the vault's key hierarchy, payload pipeline and sync
// controller into one interactive shell. It is not safe for concurrent
// use: every method must be invoked from the single owning goroutine, the
// same constraint sync.Controller itself carries.
type App struct {
	config *config.Config

	db     *sql.DB
	device *storage.Device

	keyMgr    *keys.Manager
	itemsKeys *keys.ItemsKeyManager
	protocol  *protocol.ProtocolService

	manager   *payloads.Manager
	mutator   *payloads.Mutator
	transport *sync.TransportMemory
	ctrl      *sync.Controller

	prompter challenge.Prompter
	reader   *bufio.Reader

	userName string
	Mode     Mode
}

// NewApp opens the local vault database, restores any persisted key state
// and payloads, and assembles the sync controller. prompter drives every
// interactive secret entry (challenge.DefaultConsolePrompter in
// production, a challenge.Scripted fake in tests).
func NewApp(c *config.Config, prompter challenge.Prompter) (*App, error) {
	ctx := context.Background()

	device, db, err := client.InitDatabase(ctx, c.VaultPath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	keyMgr := keys.NewManager(device, device)
	itemsKeys := keys.NewItemsKeyManager()
	vault := keys.NewVault(keyMgr, itemsKeys)
	protoSvc := protocol.NewProtocolService(vault)

	manager := payloads.NewManager()
	transport := sync.NewTransportMemory()
	logger := logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, nil)))
	ctrl := sync.NewController(transport, manager, protoSvc, itemsKeys, keyMgr, logger)
	ctrl.SetHighLatencyThreshold(c.HighLatencySyncThreshold)
	ctrl.SetSyncTimeout(c.HardSyncTimeout)
	ctrl.SetMaxPages(c.MaxSyncPages)

	app := &App{
		config:    c,
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
		reader:    bufio.NewReader(os.Stdin),
	}

	if err := app.restore(ctx); err != nil {
		log.Printf("error restoring local state: %s", err.Error())
		return nil, err
	}

	return app, nil
}

// restore loads persisted key mode and previously synced payloads so the
// vault picks up where the last session left off.
func (a *App) restore(ctx context.Context) error {
	if err := a.keyMgr.Load(); err != nil {
		return err
	}
	return a.reloadFromStorage(ctx)
}

// reloadFromStorage re-decrypts every payload on disk, the same DecryptOne
// step sync applies to a freshly downloaded payload, and feeds the result
// back into the manager. At startup, before any root key is unlocked, this
// leaves non-root-encrypted items WaitingForKey; calling it again after
// Login or UnlockWithPasscode succeeds picks them back up now that a key
// is available.
func (a *App) reloadFromStorage(ctx context.Context) error {
	stored, err := a.device.AllPayloads(ctx)
	if err != nil {
		return err
	}
	if len(stored) == 0 {
		return nil
	}
	decrypted := a.protocol.BatchDecrypt(stored)
	_, err = a.manager.Emit(decrypted, payloads.SourceLocalSaved)
	return err
}

func (a *App) setMode(mode Mode) {
	if a.Mode != mode {
		a.Mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) isLoggedIn() bool {
	_, ok := a.keyMgr.RootKey()
	return ok
}

// Run starts the REPL and blocks until the user exits or ctx is canceled.
func (a *App) Run(ctx context.Context) {
	defer a.db.Close()
	statusFn := func() string {
		if a.isLoggedIn() {
			return string(a.Mode)
		}
		return "logged out"
	}
	runREPL(ctx, a, statusFn, bufio.NewScanner(os.Stdin))
}

// StartSyncTimer runs a sync every interval, in the manner of Standard
// Notes's background sync loop, until ctx is canceled.
func (a *App) StartSyncTimer(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if !a.isLoggedIn() || a.ctrl.IsLocked() {
				continue
			}
			if err := a.ctrl.Run(ctx, sync.Default, sync.QueueDefault); err != nil {
				log.Printf("background sync failed: %s", err.Error())
				a.setMode(ModeOffline)
			} else {
				a.setMode(ModeOnline)
			}
		case <-ctx.Done():
			return
		}
	}
}
