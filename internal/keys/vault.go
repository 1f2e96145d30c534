package keys

// Vault combines the root-key state machine and the items-key manager into
// a single protocol.KeySource, since encryption/decryption key selection
// spans both.
type Vault struct {
	*Manager
	*ItemsKeyManager
}

func NewVault(m *Manager, ikm *ItemsKeyManager) *Vault {
	return &Vault{Manager: m, ItemsKeyManager: ikm}
}
