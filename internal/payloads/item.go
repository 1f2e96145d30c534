package payloads

import "fmt"

// Item is a typed live view of the latest payload for a uuid.
type Item interface {
	UUID() string
	ContentType() ContentType
	Payload() Payload
	References() []Reference
}

// base is embedded by every concrete item variant.
type base struct {
	payload Payload
}

func (b base) UUID() string           { return b.payload.UUID }
func (b base) ContentType() ContentType { return b.payload.ContentType }
func (b base) Payload() Payload       { return b.payload }
func (b base) References() []Reference { return b.payload.References() }

// Note is a free-form text item.
type Note struct {
	base
	Title string
	Text  string
}

// Tag groups notes by reference.
type Tag struct {
	base
	Title string
}

// SmartTag holds a predicate instead of direct references.
type SmartTag struct {
	base
	Title     string
	Predicate map[string]any
}

// ItemsKeyItem is a synced item carrying the symmetric key that encrypts
// other items. Never itself encrypted with another items key.
type ItemsKeyItem struct {
	base
	ItemsKeyData          string
	DataAuthenticationKey string
	Version               string
	IsDefault             bool
}

// Component represents an installed extension/theme/editor host.
type Component struct {
	base
	Name   string
	Active bool
}

type Theme struct{ Component }
type Editor struct{ Component }
type ActionsExtension struct{ Component }

// Privileges gates destructive operations behind re-authentication.
type Privileges struct {
	base
	Data map[string]any
}

// HistorySession stores per-item edit history metadata.
type HistorySession struct {
	base
}

// UserPrefs is a singleton item holding user-level preferences.
type UserPrefs struct {
	base
	Prefs map[string]any
}

// EncryptedStorage carries the encrypted mirror of local storage, always
// encrypted with the root key.
type EncryptedStorage struct {
	base
}

// RootKeyItem represents the account root key. It is never synced.
type RootKeyItem struct {
	base
}

func newBase(p Payload) base { return base{payload: p} }

func str(m map[string]any, key string) string {
	v, _ := m[key].(string)
	return v
}

func boolv(m map[string]any, key string) bool {
	v, _ := m[key].(bool)
	return v
}

func mapv(m map[string]any, key string) map[string]any {
	v, _ := m[key].(map[string]any)
	return v
}

// FromPayload projects a payload into its concrete typed Item. If the
// payload's content is not currently decrypted (ciphertext or nil), the
// item is constructed with empty typed fields but preserves the payload
// (and its error flags) for retry once a key is available.
func FromPayload(p Payload) (Item, error) {
	m, _ := p.ContentMap()
	b := newBase(p)

	switch p.ContentType {
	case TypeNote:
		return Note{base: b, Title: str(m, "title"), Text: str(m, "text")}, nil
	case TypeTag:
		return Tag{base: b, Title: str(m, "title")}, nil
	case TypeSmartTag:
		return SmartTag{base: b, Title: str(m, "title"), Predicate: mapv(m, "predicate")}, nil
	case TypeItemsKey:
		return ItemsKeyItem{
			base:                  b,
			ItemsKeyData:          str(m, "itemsKey"),
			DataAuthenticationKey: str(m, "dataAuthenticationKey"),
			Version:               str(m, "version"),
			IsDefault:             boolv(m, "isDefault"),
		}, nil
	case TypeComponent:
		return Component{base: b, Name: str(m, "name"), Active: boolv(m, "active")}, nil
	case TypeTheme:
		return Theme{Component{base: b, Name: str(m, "name"), Active: boolv(m, "active")}}, nil
	case TypeEditor:
		return Editor{Component{base: b, Name: str(m, "name"), Active: boolv(m, "active")}}, nil
	case TypeActionsExtension:
		return ActionsExtension{Component{base: b, Name: str(m, "name"), Active: boolv(m, "active")}}, nil
	case TypePrivileges:
		return Privileges{base: b, Data: m}, nil
	case TypeHistorySession:
		return HistorySession{base: b}, nil
	case TypeUserPrefs:
		return UserPrefs{base: b, Prefs: m}, nil
	case TypeEncryptedStorage:
		return EncryptedStorage{base: b}, nil
	case TypeRootKey:
		return RootKeyItem{base: b}, nil
	default:
		return nil, fmt.Errorf("payloads: unknown content type %q", p.ContentType)
	}
}
