package sync

import "context"

// Transport is the wire protocol client external collaborator.
// Real implementations speak gRPC/HTTP to a server; TransportMemory is an
// in-process fake used by tests and by the CLI's local-only mode.
type Transport interface {
	Sync(ctx context.Context, req SyncRequest) (SyncResponse, error)
}
