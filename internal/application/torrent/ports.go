package torrent

import (
	"context"

	domain "vibetorrent/internal/domain/torrent"
)

// Gateway is an application port for torrent daemon operations.
type Gateway interface {
	Status() domain.ConnectionStatus
	TestConnection(ctx context.Context) error

	Torrents(ctx context.Context) ([]domain.Torrent, error)
	SystemInfo(ctx context.Context) (domain.SystemInfo, error)
	Peers(ctx context.Context, hash string) ([]domain.Peer, error)
	Files(ctx context.Context, hash string) ([]domain.File, error)
	Trackers(ctx context.Context, hash string) ([]domain.Tracker, error)

	AddURL(ctx context.Context, url string, opts domain.AddOptions) error
	AddFile(ctx context.Context, metainfo []byte, opts domain.AddOptions) error
	Resume(ctx context.Context, hash string) error
	Pause(ctx context.Context, hash string) error
	Stop(ctx context.Context, hash string) error
	Recheck(ctx context.Context, hash string) error
	Reannounce(ctx context.Context, hash string) error
	Remove(ctx context.Context, hash string) error
	SetLabel(ctx context.Context, hash, label string) error
	Priority(ctx context.Context, hash string) (int64, error)
	SetPriority(ctx context.Context, hash string, priority int) error
	SetFilePriority(ctx context.Context, hash string, index, priority int) error
	SetDownloadLimit(ctx context.Context, kib int64) error
	SetUploadLimit(ctx context.Context, kib int64) error
}

// Syncer pushes daemon changes to live subscribers without waiting for the
// next poll.
type Syncer interface {
	ForceSync(ctx context.Context)
}
