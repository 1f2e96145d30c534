package protocol

// Format names the shape encrypt_parameters/decrypt_parameters produce or
// consume for a payload's content.
type Format int

const (
	// DecryptedBareObject leaves content as a plain map, untouched.
	DecryptedBareObject Format = iota
	// DecryptedBase64String wraps a JSON-encoded map as "000" + base64(json).
	DecryptedBase64String
	// EncryptedString is a version-prefixed opaque ciphertext.
	EncryptedString
)

// Intent names why a payload is being prepared, driving the intent→format
// table enforced by the service.
type Intent int

const (
	IntentSync Intent = iota
	IntentSyncDecrypted
	IntentLocalStorageEncrypted
	IntentLocalStoragePreferEncrypted
	IntentLocalStorageDecrypted
	IntentFileEncrypted
	IntentFilePreferEncrypted
	IntentFileDecrypted
)

// keyRequirement classifies whether an intent needs a key, must not have
// one, or accepts either.
type keyRequirement int

const (
	keyRequired keyRequirement = iota
	keyForbidden
	keyOptional
)

type intentRule struct {
	requirement keyRequirement
	withKey     Format
	withoutKey  Format
}

var intentTable = map[Intent]intentRule{
	IntentSync:                        {keyRequired, EncryptedString, EncryptedString},
	IntentSyncDecrypted:               {keyForbidden, DecryptedBase64String, DecryptedBase64String},
	IntentLocalStorageEncrypted:       {keyRequired, EncryptedString, EncryptedString},
	IntentLocalStoragePreferEncrypted: {keyOptional, EncryptedString, DecryptedBareObject},
	IntentLocalStorageDecrypted:       {keyForbidden, DecryptedBareObject, DecryptedBareObject},
	IntentFileEncrypted:               {keyRequired, EncryptedString, EncryptedString},
	IntentFilePreferEncrypted:         {keyOptional, EncryptedString, DecryptedBareObject},
	IntentFileDecrypted:               {keyForbidden, DecryptedBareObject, DecryptedBareObject},
}

// resolveFormat applies the intent→format table. A key supplied to a
// key-forbidden intent, or an intent missing from the table, fails with
// ErrUnhandledIntent; no key for a key-required intent fails with
// ErrNoKeyAvailable.
func resolveFormat(intent Intent, hasKey bool) (Format, error) {
	rule, ok := intentTable[intent]
	if !ok {
		return 0, ErrUnhandledIntent
	}
	switch rule.requirement {
	case keyRequired:
		if !hasKey {
			return 0, ErrNoKeyAvailable
		}
		return rule.withKey, nil
	case keyForbidden:
		if hasKey {
			return 0, ErrUnhandledIntent
		}
		return rule.withoutKey, nil
	default: // keyOptional
		if hasKey {
			return rule.withKey, nil
		}
		return rule.withoutKey, nil
	}
}
