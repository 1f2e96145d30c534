package cli

import (
	"context"
	"fmt"
	"log"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/notevault/internal/payloads"
	"github.com/dmitrijs2005/notevault/internal/protocol"
	"github.com/dmitrijs2005/notevault/internal/storage"
	"github.com/dmitrijs2005/notevault/internal/sync"
)

// newPayload builds a brand new dirty payload of the given content type,
// ready to be handed to payloads.Manager.Emit with SourceLocalChanged.
func newPayload(ct payloads.ContentType, content map[string]any) payloads.Payload {
	now := payloads.Now()
	if content == nil {
		content = make(map[string]any)
	}
	if _, ok := content["references"]; !ok {
		content["references"] = []any{}
	}
	return payloads.Payload{
		UUID:        uuid.NewString(),
		ContentType: ct,
		Content:     content,
		CreatedAt:   now,
		UpdatedAt:   now,
		Dirty:       true,
		DirtiedAt:   now,
	}
}

// emitItemsKeys converts each named items key into a payload, feeds it
// through the manager so it enters Collection/DirtySet like any other item,
// and persists it locally so a crash before the next Sync doesn't lose it.
// Items keys are always root-encrypted at rest, never bare: encryptForStorage
// still runs to keep this path consistent with every other local write.
func (a *App) emitItemsKeys(ctx context.Context, uuids []string) error {
	if len(uuids) == 0 {
		return nil
	}
	ps := make([]payloads.Payload, 0, len(uuids))
	for _, u := range uuids {
		material, ok := a.itemsKeys.ItemsKeyByID(u)
		if !ok {
			continue
		}
		ps = append(ps, material.ToPayload())
	}
	if _, err := a.manager.Emit(ps, payloads.SourceLocalChanged); err != nil {
		return err
	}
	stored, err := a.encryptForStorageAll(ps)
	if err != nil {
		return err
	}
	return a.device.SavePayloads(ctx, stored)
}

// encryptForStorage prepares p the way it must look on disk: encrypted under
// IntentLocalStoragePreferEncrypted (ciphertext once a key is available,
// bare content until then) unless the device's EncryptionPolicy has
// explicitly disabled local encryption, in which case it is stored bare via
// IntentLocalStorageDecrypted. Tombstones carry no content (Mutator.MarkDeleted
// clears it) and pass through untouched.
func (a *App) encryptForStorage(p payloads.Payload) (payloads.Payload, error) {
	if p.Deleted {
		return p, nil
	}
	intent := protocol.IntentLocalStoragePreferEncrypted
	if a.device.EncryptionPolicy() == storage.EncryptionDisabled {
		intent = protocol.IntentLocalStorageDecrypted
	}
	return a.protocol.EncryptForIntent(p, intent)
}

// encryptForStorageAll applies encryptForStorage to every payload in ps.
func (a *App) encryptForStorageAll(ps []payloads.Payload) ([]payloads.Payload, error) {
	out := make([]payloads.Payload, 0, len(ps))
	for _, p := range ps {
		stored, err := a.encryptForStorage(p)
		if err != nil {
			return nil, err
		}
		out = append(out, stored)
	}
	return out, nil
}

// findTagByTitle returns the first live Tag item with the given title, if
// any. Pending-deletion tombstones stay in the collection until synced, so
// callers scanning by content type must skip anything already marked
// Deleted.
func (a *App) findTagByTitle(title string) (payloads.Tag, bool) {
	for _, it := range a.manager.Collection.ByType(payloads.TypeTag) {
		if it.Payload().Deleted {
			continue
		}
		if tag, ok := it.(payloads.Tag); ok && tag.Title == title {
			return tag, true
		}
	}
	return payloads.Tag{}, false
}

// tagNote adds a reference to noteUUID on the named tag, creating the tag
// if it does not already exist.
func (a *App) tagNote(noteUUID, title string) error {
	if tag, ok := a.findTagByTitle(title); ok {
		refs := append(tag.References(), payloads.Reference{UUID: noteUUID, ContentType: payloads.TypeNote})
		p := a.mutator.SetReferences(tag, refs, payloads.MutationInternal)
		_, err := a.manager.Emit([]payloads.Payload{p}, payloads.SourceLocalChanged)
		return err
	}

	p := newPayload(payloads.TypeTag, map[string]any{
		"title":      title,
		"references": []any{map[string]any{"uuid": noteUUID, "content_type": string(payloads.TypeNote)}},
	})
	_, err := a.manager.Emit([]payloads.Payload{p}, payloads.SourceLocalChanged)
	return err
}

// AddNote prompts for a title, body, and optional comma-separated tag
// titles, then persists the resulting note as a new dirty local item.
func (a *App) AddNote(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter note title")
	if err != nil {
		return err
	}
	text, err := GetMultiline(a.reader, "Enter note text (double Enter to finish)")
	if err != nil {
		return err
	}
	tags, err := GetTagList(a.reader, "Enter tags, comma-separated (blank for none)")
	if err != nil {
		return err
	}

	p := newPayload(payloads.TypeNote, map[string]any{"title": title, "text": text})
	if _, err := a.manager.Emit([]payloads.Payload{p}, payloads.SourceLocalChanged); err != nil {
		return err
	}

	for _, t := range tags {
		if err := a.tagNote(p.UUID, t); err != nil {
			return err
		}
	}

	stored, err := a.encryptForStorage(p)
	if err != nil {
		return err
	}
	if err := a.device.SavePayload(ctx, stored); err != nil {
		return err
	}
	fmt.Printf("Note %s created.\n", p.UUID)
	return nil
}

// AddTag creates a standalone, empty tag that notes can later be filed
// under via AddNote.
func (a *App) AddTag(ctx context.Context) error {
	title, err := getSimpleText(a.reader, "Enter tag title")
	if err != nil {
		return err
	}
	p := newPayload(payloads.TypeTag, map[string]any{"title": title})
	if _, err := a.manager.Emit([]payloads.Payload{p}, payloads.SourceLocalChanged); err != nil {
		return err
	}
	stored, err := a.encryptForStorage(p)
	if err != nil {
		return err
	}
	if err := a.device.SavePayload(ctx, stored); err != nil {
		return err
	}
	fmt.Printf("Tag %s created.\n", p.UUID)
	return nil
}

// List prints every non-deleted note's uuid, title, and last-updated time.
func (a *App) List(ctx context.Context) error {
	for _, it := range a.manager.Collection.ByType(payloads.TypeNote) {
		if it.Payload().Deleted {
			continue
		}
		note, ok := it.(payloads.Note)
		if !ok {
			continue
		}
		fmt.Printf("%s  %-30s  %s\n", note.UUID(), note.Title, note.Payload().UpdatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}

// Show prints a note's body and the tags that reference it.
func (a *App) Show(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter note id to show")
	if err != nil {
		return err
	}

	it, ok := a.manager.Collection.Get(id)
	if !ok || it.Payload().Deleted {
		return fmt.Errorf("cli: no item with uuid %q", id)
	}
	note, ok := it.(payloads.Note)
	if !ok {
		return fmt.Errorf("cli: item %q is not a note", id)
	}

	fmt.Println(note.Title)
	fmt.Println(note.Text)

	for _, tagIt := range a.manager.Collection.ByType(payloads.TypeTag) {
		if tagIt.Payload().Deleted {
			continue
		}
		tag, ok := tagIt.(payloads.Tag)
		if !ok {
			continue
		}
		for _, ref := range tag.References() {
			if ref.UUID == id {
				fmt.Printf("tag: %s\n", tag.Title)
			}
		}
	}
	return nil
}

// Delete tombstones a note by uuid: it disappears from List/Show
// immediately but stays queued as a dirty tombstone in the collection
// until a later Sync confirms the deletion with the server.
func (a *App) Delete(ctx context.Context) error {
	id, err := getSimpleText(a.reader, "Enter note id to delete")
	if err != nil {
		return err
	}
	it, ok := a.manager.Collection.Get(id)
	if !ok || it.Payload().Deleted {
		return fmt.Errorf("cli: no item with uuid %q", id)
	}

	tombstone := a.mutator.MarkDeleted(it)
	if _, err := a.manager.Emit([]payloads.Payload{tombstone}, payloads.SourceLocalDeleted); err != nil {
		return err
	}
	return a.device.SavePayload(ctx, tombstone)
}

// Sync runs one synchronization round-trip and persists the resulting
// local state. Tombstones the round-trip fully discarded (their deletion
// was confirmed saved) are purged from disk too, so a discarded delete
// never comes back to life on the next restore.
func (a *App) Sync(ctx context.Context) error {
	if a.ctrl.IsLocked() {
		return fmt.Errorf("cli: a sync is already in progress")
	}

	before := make(map[string]struct{})
	for _, p := range a.storedUUIDsBeforeSync(ctx) {
		before[p] = struct{}{}
	}

	if err := a.ctrl.Run(ctx, sync.Default, sync.QueueDefault); err != nil {
		return err
	}

	all := a.manager.Collection.All()
	ps := make([]payloads.Payload, 0, len(all))
	after := make(map[string]struct{}, len(all))
	for _, it := range all {
		ps = append(ps, it.Payload())
		after[it.UUID()] = struct{}{}
	}
	stored, err := a.encryptForStorageAll(ps)
	if err != nil {
		log.Printf("error encrypting for local storage: %s", err.Error())
		return err
	}
	if err := a.device.SavePayloads(ctx, stored); err != nil {
		log.Printf("error persisting after sync: %s", err.Error())
		return err
	}

	for uuid := range before {
		if _, stillLive := after[uuid]; stillLive {
			continue
		}
		if err := a.device.DeletePayload(ctx, uuid); err != nil {
			log.Printf("error purging discarded tombstone %s: %s", uuid, err.Error())
			return err
		}
	}
	return nil
}

func (a *App) storedUUIDsBeforeSync(ctx context.Context) []string {
	stored, err := a.device.AllPayloads(ctx)
	if err != nil {
		log.Printf("error reading stored payloads before sync: %s", err.Error())
		return nil
	}
	out := make([]string, 0, len(stored))
	for _, p := range stored {
		out = append(out, p.UUID)
	}
	return out
}
