package protocol

import "errors"

var (
	// ErrDecryptFailure covers any failure to authenticate or decode a
	// versioned ciphertext: bad key, tampered bytes, or malformed framing.
	ErrDecryptFailure = errors.New("protocol: decrypt failure")

	ErrVersionUnsupported     = errors.New("protocol: unsupported version")
	ErrVersionNewerThanLibrary = errors.New("protocol: version newer than library")
	ErrVersionOutdated        = errors.New("protocol: version outdated")

	ErrUnhandledIntent  = errors.New("protocol: unhandled intent/key combination")
	ErrNoKeyAvailable   = errors.New("protocol: no key available for required encryption")
)
