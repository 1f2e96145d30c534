package sync

import "errors"

var (
	ErrIntegrityMismatch  = errors.New("sync: integrity hash mismatch")
	ErrSyncNetworkError   = errors.New("sync: network error")
	ErrSyncInvalidSession = errors.New("sync: invalid session")
	ErrHighLatency        = errors.New("sync: high latency")
	ErrSyncTimeout        = errors.New("sync: hard timeout exceeded")
)
