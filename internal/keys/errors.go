package keys

import "errors"

var (
	ErrKeyMissing       = errors.New("keys: no root key loaded")
	ErrInvalidKeyMode   = errors.New("keys: operation not valid in current key mode")
	ErrWrappingKeyInvalid = errors.New("keys: wrapping key does not decrypt the stored root key")
)
