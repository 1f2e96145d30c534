package storage

import "errors"

var (
	ErrStorageReadError  = errors.New("storage: read error")
	ErrStorageWriteError = errors.New("storage: write error")
	ErrNotLaunched       = errors.New("storage: device not launched")
)
