package livesync

//go:generate mockgen -source=interfaces.go -destination=../../mock/livesync_mock.go -package=mock

import (
	"context"

	"vibetorrent/internal/domain/torrent"
)

// SnapshotSource builds a fresh view of daemon state. On failure it may
// return a fallback snapshot; the synchronizer ignores it and keeps its own.
type SnapshotSource interface {
	Snapshot(ctx context.Context) (torrent.Snapshot, error)
}

// Sink delivers one named event to a single subscriber. Send must not block
// for long; a returned error drops the subscriber.
type Sink interface {
	Send(event string, data []byte) error
}
