package cli

import (
	"context"
	"fmt"

	"github.com/dmitrijs2005/notevault/internal/challenge"
)

// getSimpleText is an indirection over GetSimpleText, swappable in tests.
var getSimpleText = GetSimpleText

// Register prompts for an account identifier and password, mints a brand
// new root key at the library's latest protocol version, and installs the
// resulting default items key.
//
// The account root key is kept unwrapped in the keychain (RootKeyOnly
// mode): AddPasscode can be layered on afterwards to require a local
// passcode as well.
func (a *App) Register(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter account email")
	if err != nil {
		return err
	}

	password, err := challenge.PromptValue(ctx, a.prompter, challenge.Request{
		Kind: challenge.KindAccountPassword, Prompt: "Enter account password",
	})
	if err != nil {
		return err
	}

	rootKey, params, err := a.protocol.CreateRootKey(userName, password)
	if err != nil {
		return err
	}

	if err := a.keyMgr.SetNewRootKey(rootKey, params, nil, nil); err != nil {
		return err
	}
	material := a.itemsKeys.CreateNewDefault(a.protocol, params.Version, rootKey)
	if err := a.emitItemsKeys(ctx, []string{material.UUID}); err != nil {
		return err
	}

	a.userName = userName
	a.setMode(ModeOnline)
	fmt.Println("Account created.")
	return nil
}

// Login re-derives the root key from the account password against the
// persisted key params. If a passcode-wrapped root key is on file instead,
// UnlockWithPasscode should be used.
func (a *App) Login(ctx context.Context) error {
	userName, err := getSimpleText(a.reader, "Enter account email")
	if err != nil {
		return err
	}

	if err := a.keyMgr.Load(); err != nil {
		return err
	}
	params, ok := a.keyMgr.RootKeyParams()
	if !ok {
		return fmt.Errorf("cli: no root key params on file, run register first")
	}

	password, err := challenge.PromptValue(ctx, a.prompter, challenge.Request{
		Kind: challenge.KindAccountPassword, Prompt: "Enter account password",
	})
	if err != nil {
		return err
	}

	rootKey, err := a.protocol.DeriveRootKey(userName, password, params)
	if err != nil {
		return err
	}

	if err := a.keyMgr.SetNewRootKey(rootKey, params, nil, nil); err != nil {
		return err
	}
	if a.itemsKeys.NeedsNewDefault() {
		material := a.itemsKeys.CreateNewDefault(a.protocol, params.Version, rootKey)
		if err := a.emitItemsKeys(ctx, []string{material.UUID}); err != nil {
			return err
		}
	}
	if err := a.reloadFromStorage(ctx); err != nil {
		return err
	}

	a.userName = userName
	a.setMode(ModeOnline)
	fmt.Println("Login successful.")
	return nil
}

// UnlockWithPasscode prompts for the local passcode and unwraps the
// already-persisted root key, without contacting anything remote.
func (a *App) UnlockWithPasscode(ctx context.Context) error {
	if err := a.keyMgr.Load(); err != nil {
		return err
	}

	passcode, err := challenge.PromptValue(ctx, a.prompter, challenge.Request{
		Kind: challenge.KindPasscode, Prompt: "Enter local passcode",
	})
	if err != nil {
		return err
	}

	params, ok := a.keyMgr.WrapperKeyParams()
	if !ok {
		return fmt.Errorf("cli: no passcode set on this device")
	}

	wrappingKey, err := a.protocol.DeriveRootKey("", passcode, params)
	if err != nil {
		return err
	}

	if err := a.keyMgr.UnwrapRootKey(wrappingKey.MasterKey); err != nil {
		return err
	}
	if err := a.reloadFromStorage(ctx); err != nil {
		return err
	}

	a.setMode(ModeOffline)
	fmt.Println("Unlocked.")
	return nil
}

// AddPasscode layers a local passcode on top of an already-unlocked account
// root key (RootKeyOnly -> RootKeyPlusWrapper). The root key itself is
// unchanged, but every items key is re-dirtied and re-uploaded so a device
// that only ever saw the old wrapping is forced to re-fetch under the new
// one on its next sync.
func (a *App) AddPasscode(ctx context.Context) error {
	rootKey, ok := a.keyMgr.RootKey()
	if !ok {
		return fmt.Errorf("cli: no root key unlocked, log in first")
	}
	rootKeyParams, ok := a.keyMgr.RootKeyParams()
	if !ok {
		return fmt.Errorf("cli: no root key params on file")
	}

	passcode, err := challenge.PromptValue(ctx, a.prompter, challenge.Request{
		Kind: challenge.KindPasscode, Prompt: "Choose a local passcode",
	})
	if err != nil {
		return err
	}

	wrappingKey, wrapperParams, err := a.protocol.CreateRootKey("", passcode)
	if err != nil {
		return err
	}

	if err := a.keyMgr.SetNewRootKey(rootKey, rootKeyParams, wrappingKey.MasterKey, &wrapperParams); err != nil {
		return err
	}
	a.itemsKeys.MarkAllDirty()
	if err := a.emitItemsKeys(ctx, a.itemsKeys.DirtyUUIDs()); err != nil {
		return err
	}

	fmt.Println("Passcode set.")
	return nil
}

// Upgrade re-derives the account root key at the library's latest protocol
// version and re-dirties every items key, so the next Sync re-encrypts and
// re-uploads them all under the new version.
func (a *App) Upgrade(ctx context.Context) error {
	if a.userName == "" {
		return fmt.Errorf("cli: log in first")
	}
	password, err := challenge.PromptValue(ctx, a.prompter, challenge.Request{
		Kind: challenge.KindAccountPassword, Prompt: "Re-enter account password to upgrade",
	})
	if err != nil {
		return err
	}

	rootKey, params, err := a.protocol.CreateRootKey(a.userName, password)
	if err != nil {
		return err
	}

	if err := a.keyMgr.SetNewRootKey(rootKey, params, nil, nil); err != nil {
		return err
	}
	a.itemsKeys.MarkAllDirty()
	if err := a.emitItemsKeys(ctx, a.itemsKeys.DirtyUUIDs()); err != nil {
		return err
	}

	fmt.Println("Upgraded to the latest protocol version.")
	return nil
}

// Logout tears down the in-memory root key, every known items key, and
// every persisted key/payload artifact, returning both the vault and the
// on-disk device to their pre-registration state: no root key, no items
// keys, no wrapped/unwrapped storage values, and no keychain value survive
// into the next login.
func (a *App) Logout(ctx context.Context) error {
	if err := a.keyMgr.SignOut(); err != nil {
		return err
	}
	a.itemsKeys.Reset()
	if err := a.device.SignOutClear(ctx); err != nil {
		return err
	}
	a.userName = ""
	a.setMode(ModeDisabled)
	return nil
}
