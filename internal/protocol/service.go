package protocol

import (
	"encoding/json"

	"github.com/dmitrijs2005/notevault/internal/cryptox"
	"github.com/dmitrijs2005/notevault/internal/payloads"
)

// KeySource is the key material a ProtocolService needs to select keys for
// encryption and decryption. It is implemented by the key manager /
// items-key manager pair in internal/keys; ProtocolService never mutates
// key state itself.
type KeySource interface {
	RootKey() (RootKey, bool)
	DefaultItemsKey() (ItemsKeyMaterial, bool)
	ItemsKeyByID(uuid string) (ItemsKeyMaterial, bool)
	DefaultItemsKeyForVersion(v Version) (ItemsKeyMaterial, bool)
}

// ProtocolService dispatches to the versioned operators, enforces the
// intent→format table, selects keys via its KeySource, and codes backup
// files.
type ProtocolService struct {
	keySource KeySource
	operators map[Version]operator
}

func NewProtocolService(keySource KeySource) *ProtocolService {
	return &ProtocolService{
		keySource: keySource,
		operators: map[Version]operator{
			V001: v001{},
			V002: v002{},
			V003: v003{},
			V004: v004{},
		},
	}
}

func (s *ProtocolService) operatorFor(v Version) (operator, error) {
	op, ok := s.operators[v]
	if ok {
		return op, nil
	}
	if isVersionNewerThanLibraryVersion(v) {
		return nil, ErrVersionNewerThanLibrary
	}
	return nil, ErrVersionUnsupported
}

// DeriveRootKey re-derives a RootKey at params.Version.
func (s *ProtocolService) DeriveRootKey(identifier, password string, params KeyParams) (RootKey, error) {
	op, err := s.operatorFor(params.Version)
	if err != nil {
		return RootKey{}, err
	}
	return op.deriveRootKey(identifier, password, params)
}

// CreateRootKey derives a brand new RootKey at the library's latest version.
func (s *ProtocolService) CreateRootKey(identifier, password string) (RootKey, KeyParams, error) {
	op := s.operators[LatestVersion]
	return op.createRootKey(identifier, password)
}

// CreateItemsKeyMaterial creates items key content tied to rootKeyVersion.
// Versions <=003 have no cryptographic separation: the
// material mirrors what create_root_key would derive so that a single
// items-key item can still exist to unify code paths.
func (s *ProtocolService) CreateItemsKeyMaterial(rootKeyVersion Version, rootKey RootKey) ItemsKeyMaterial {
	if !requiresItemsKey(rootKeyVersion) {
		return ItemsKeyMaterial{
			ItemsKey:              rootKey.MasterKey,
			DataAuthenticationKey: rootKey.DataAuthenticationKey,
			Version:               rootKeyVersion,
		}
	}
	op := s.operators[LatestVersion]
	return op.createItemsKeyMaterial()
}

// EncryptForIntent applies the intent→format table and, when the resulting
// format requires ciphertext, encrypts p under the key selected for its
// content type. A payload already flagged error_decrypting is
// returned unchanged: the service never re-encrypts possibly-corrupt data.
func (s *ProtocolService) EncryptForIntent(p payloads.Payload, intent Intent) (payloads.Payload, error) {
	if p.ErrorDecrypting {
		return p, nil
	}

	key, keyVersion, itemsKeyID, hasKey := s.selectEncryptionKey(p.ContentType)
	format, err := resolveFormat(intent, hasKey)
	if err != nil {
		return payloads.Payload{}, err
	}

	switch format {
	case EncryptedString:
		return s.encryptPayload(p, key, keyVersion, itemsKeyID)
	case DecryptedBase64String:
		m, _ := p.ContentMap()
		raw, err := json.Marshal(m)
		if err != nil {
			return payloads.Payload{}, err
		}
		return p.WithContent(string(DecryptedBase64Prefix) + cryptox.Base64Encode(raw)), nil
	default: // DecryptedBareObject
		return p, nil
	}
}

// DecryptedBase64Prefix is the version stamp used by DecryptedBase64String
// framing, distinct from any real protocol version.
const DecryptedBase64Prefix Version = "000"

func (s *ProtocolService) selectEncryptionKey(ct payloads.ContentType) (key []byte, version Version, itemsKeyID string, ok bool) {
	if ct.RootEncrypted() {
		rk, ok := s.keySource.RootKey()
		if !ok {
			return nil, "", "", false
		}
		return rk.MasterKey, rk.Version, "", true
	}
	ik, ok := s.keySource.DefaultItemsKey()
	if !ok {
		return nil, "", "", false
	}
	return ik.ItemsKey, ik.Version, ik.UUID, true
}

func (s *ProtocolService) encryptPayload(p payloads.Payload, key []byte, version Version, itemsKeyID string) (payloads.Payload, error) {
	op, err := s.operatorFor(version)
	if err != nil {
		return payloads.Payload{}, err
	}
	m, _ := p.ContentMap()
	plaintext, err := json.Marshal(m)
	if err != nil {
		return payloads.Payload{}, err
	}
	params, err := op.encryptString(p.UUID, plaintext, key)
	if err != nil {
		return payloads.Payload{}, err
	}
	out := p.WithContent(params.Content)
	out.EncItemKey = params.EncItemKey
	out.AuthHash = params.AuthHash
	out.ItemsKeyID = itemsKeyID
	return out, nil
}

// DecryptOne decrypts a single payload, selecting its key automatically.
// It never returns an error: failures are recorded on the returned payload
// via WithDecryptError/WithWaitingForKey.
func (s *ProtocolService) DecryptOne(p payloads.Payload) payloads.Payload {
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

	key, ok := s.selectDecryptionKey(p, version)
	if !ok {
		return p.WithWaitingForKey()
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

func versionFromContent(content string) (Version, bool) {
	if len(content) < 3 {
		return "", false
	}
	v := Version(content[:3])
	if _, known := order[v]; !known {
		return "", false
	}
	return v, true
}

func (s *ProtocolService) selectDecryptionKey(p payloads.Payload, version Version) ([]byte, bool) {
	if p.ContentType.RootEncrypted() {
		rk, ok := s.keySource.RootKey()
		if !ok {
			return nil, false
		}
		return rk.MasterKey, true
	}
	if p.ItemsKeyID != "" {
		if ik, ok := s.keySource.ItemsKeyByID(p.ItemsKeyID); ok {
			return ik.ItemsKey, true
		}
	}
	if requiresItemsKey(version) {
		if ik, ok := s.keySource.DefaultItemsKeyForVersion(version); ok {
			return ik.ItemsKey, true
		}
		return nil, false
	}
	rk, ok := s.keySource.RootKey()
	if !ok {
		return nil, false
	}
	return rk.MasterKey, true
}

// BatchDecrypt decrypts every payload independently: deleted or non-string
// content is passed through unchanged, and any single failure never aborts
// the batch.
func (s *ProtocolService) BatchDecrypt(in []payloads.Payload) []payloads.Payload {
	out := make([]payloads.Payload, len(in))
	for i, p := range in {
		out[i] = s.DecryptOne(p)
	}
	return out
}

// BatchEncrypt encrypts every payload for Sync intent, isolating failures:
// a payload that fails to encrypt is left out of the returned slice and
// its uuid is reported in failedUUIDs.
func (s *ProtocolService) BatchEncrypt(in []payloads.Payload) (out []payloads.Payload, failedUUIDs []string) {
	for _, p := range in {
		enc, err := s.EncryptForIntent(p, IntentSync)
		if err != nil {
			failedUUIDs = append(failedUUIDs, p.UUID)
			continue
		}
		out = append(out, enc)
	}
	return out, failedUUIDs
}
