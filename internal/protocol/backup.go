package protocol

import (
	"encoding/json"
	"time"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// backupPayload is the wire shape of one item inside a backup file: Content
// unmarshals naturally into either a decrypted map or a ciphertext string.
type backupPayload struct {
	UUID        string               `json:"uuid"`
	ContentType payloads.ContentType `json:"content_type"`
	Content     any                  `json:"content"`
	ItemsKeyID  string               `json:"items_key_id,omitempty"`
	EncItemKey  string               `json:"enc_item_key,omitempty"`
	AuthHash    string               `json:"auth_hash,omitempty"`
	CreatedAt   time.Time            `json:"created_at"`
	UpdatedAt   time.Time            `json:"updated_at"`
	Deleted     bool                 `json:"deleted,omitempty"`
}

// BackupFile is the on-disk JSON shape of an exported vault. Legacy exports
// name the key params field auth_params; both are accepted on import.
type BackupFile struct {
	KeyParams        *KeyParams      `json:"keyParams,omitempty"`
	LegacyAuthParams *KeyParams      `json:"auth_params,omitempty"`
	Items            []backupPayload `json:"items"`
}

func (b *BackupFile) resolvedKeyParams() *KeyParams {
	if b.KeyParams != nil {
		return b.KeyParams
	}
	return b.LegacyAuthParams
}

func toBackupPayload(p payloads.Payload) backupPayload {
	return backupPayload{
		UUID:        p.UUID,
		ContentType: p.ContentType,
		Content:     p.Content,
		ItemsKeyID:  p.ItemsKeyID,
		EncItemKey:  p.EncItemKey,
		AuthHash:    p.AuthHash,
		CreatedAt:   p.CreatedAt,
		UpdatedAt:   p.UpdatedAt,
		Deleted:     p.Deleted,
	}
}

func fromBackupPayload(b backupPayload) payloads.Payload {
	return payloads.Payload{
		UUID:        b.UUID,
		ContentType: b.ContentType,
		Content:     b.Content,
		ItemsKeyID:  b.ItemsKeyID,
		EncItemKey:  b.EncItemKey,
		AuthHash:    b.AuthHash,
		CreatedAt:   b.CreatedAt,
		UpdatedAt:   b.UpdatedAt,
		Deleted:     b.Deleted,
	}
}

// CreateBackupFile serializes items into a backup file. When keyParams is
// nil the caller is expected to have already passed plaintext-content
// payloads (a decrypted export); otherwise items must already carry
// version-prefixed ciphertext content produced under a key derivable from
// keyParams.
func CreateBackupFile(items []payloads.Payload, keyParams *KeyParams) ([]byte, error) {
	out := BackupFile{KeyParams: keyParams}
	for _, p := range items {
		out.Items = append(out.Items, toBackupPayload(p))
	}
	return json.MarshalIndent(out, "", "  ")
}

// ImportBackupFile parses a backup file and decrypts its items (if
// encrypted) with a key derived from the file's key params and password.
// A backup file is self-contained: root-encrypted items (ItemsKey,
// EncryptedStorage) decrypt straight under the derived root key, but
// ordinary items (Note, Tag, ...) at versions requiring items-key
// separation decrypt under an ItemsKey bundled in the same file, resolved
// by items_key_id exactly like a live sync would. Each item is decrypted
// independently: a single corrupt item is counted in errorCount and
// excluded from imported, never aborting the rest.
func (s *ProtocolService) ImportBackupFile(data []byte, password string) (imported []payloads.Payload, errorCount int, err error) {
	var file BackupFile
	if err := json.Unmarshal(data, &file); err != nil {
		return nil, 0, err
	}

	kp := file.resolvedKeyParams()
	if kp == nil {
		for _, bp := range file.Items {
			imported = append(imported, fromBackupPayload(bp))
		}
		return imported, 0, nil
	}

	rootKey, err := s.DeriveRootKey(kp.Identifier, password, *kp)
	if err != nil {
		return nil, 0, err
	}

	itemsKeys, defaultItemsKey := s.decryptBackupItemsKeys(file.Items, rootKey.MasterKey)

	for _, bp := range file.Items {
		p := fromBackupPayload(bp)
		if p.Deleted {
			imported = append(imported, p)
			continue
		}
		key, ok := backupDecryptionKey(p, rootKey.MasterKey, itemsKeys, defaultItemsKey)
		if !ok {
			errorCount++
			continue
		}
		decrypted := s.decryptBackupItem(p, key)
		if decrypted.ErrorDecrypting {
			errorCount++
			continue
		}
		imported = append(imported, decrypted)
	}
	return imported, errorCount, nil
}

// decryptBackupItemsKeys decrypts every ItemsKey item in the backup under
// the root key and indexes the results by uuid, so ordinary items can
// resolve their own wrapping key without any live KeySource.
func (s *ProtocolService) decryptBackupItemsKeys(items []backupPayload, rootMasterKey []byte) (byUUID map[string]ItemsKeyMaterial, defaultKey *ItemsKeyMaterial) {
	byUUID = make(map[string]ItemsKeyMaterial)
	for _, bp := range items {
		if bp.ContentType != payloads.TypeItemsKey {
			continue
		}
		p := fromBackupPayload(bp)
		decrypted := s.decryptBackupItem(p, rootMasterKey)
		if decrypted.ErrorDecrypting {
			continue
		}
		material, ok := itemsKeyMaterialFromPayload(decrypted)
		if !ok {
			continue
		}
		byUUID[decrypted.UUID] = material
		if material.IsDefault {
			m := material
			defaultKey = &m
		}
	}
	return byUUID, defaultKey
}

// itemsKeyMaterialFromPayload decodes a decrypted ItemsKey payload's
// content map back into ItemsKeyMaterial, mirroring the field names
// ItemsKeyItem.FromPayload reads.
func itemsKeyMaterialFromPayload(p payloads.Payload) (ItemsKeyMaterial, bool) {
	m, ok := p.ContentMap()
	if !ok {
		return ItemsKeyMaterial{}, false
	}
	encodedKey, _ := m["itemsKey"].(string)
	key, err := cryptox.Base64Decode(encodedKey)
	if err != nil || len(key) == 0 {
		return ItemsKeyMaterial{}, false
	}
	version, _ := m["version"].(string)
	isDefault, _ := m["isDefault"].(bool)
	material := ItemsKeyMaterial{
		UUID:      p.UUID,
		ItemsKey:  key,
		Version:   Version(version),
		IsDefault: isDefault,
	}
	if encodedDAK, _ := m["dataAuthenticationKey"].(string); encodedDAK != "" {
		if dak, err := cryptox.Base64Decode(encodedDAK); err == nil {
			material.DataAuthenticationKey = dak
		}
	}
	return material, true
}

// backupDecryptionKey selects the key a backup item should be decrypted
// with, mirroring ProtocolService.selectDecryptionKey but resolving items
// keys from the backup file itself rather than a live KeySource.
func backupDecryptionKey(p payloads.Payload, rootMasterKey []byte, itemsKeys map[string]ItemsKeyMaterial, defaultItemsKey *ItemsKeyMaterial) ([]byte, bool) {
	if p.ContentType.RootEncrypted() {
		return rootMasterKey, true
	}
	if p.ItemsKeyID != "" {
		if ik, ok := itemsKeys[p.ItemsKeyID]; ok {
			return ik.ItemsKey, true
		}
	}
	if defaultItemsKey != nil {
		return defaultItemsKey.ItemsKey, true
	}
	if len(itemsKeys) == 0 {
		return rootMasterKey, true
	}
	return nil, false
}

func (s *ProtocolService) decryptBackupItem(p payloads.Payload, key []byte) payloads.Payload {
	if p.Deleted {
		return p
	}
	content, ok := p.ContentString()
	if !ok {
		return p
	}
	version, ok := versionFromContent(content)
	if !ok {
		return p.WithDecryptError()
	}
	op, err := s.operatorFor(version)
	if err != nil {
		return p.WithDecryptError()
	}
	plaintext, err := op.decryptString(p.UUID, EncryptionParameters{Content: content, EncItemKey: p.EncItemKey, AuthHash: p.AuthHash}, key)
	if err != nil {
		return p.WithDecryptError()
	}
	var m map[string]any
	if err := json.Unmarshal(plaintext, &m); err != nil {
		return p.WithDecryptError()
	}
	return p.WithDecryptSuccess(m)
}
