package rtorrent

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/shirou/gopsutil/v3/disk"
	"golang.org/x/sync/errgroup"

	"vibetorrent/internal/domain/torrent"
	"vibetorrent/internal/infrastructure/scgi"
	"vibetorrent/internal/logger"
)

// Caller performs one XML-RPC call against the daemon.
type Caller interface {
	Call(ctx context.Context, method string, args ...any) (any, error)
}

var _ Caller = (*scgi.Client)(nil)

// ErrUnexpectedResult means the daemon answered with a value of the wrong shape.
var ErrUnexpectedResult = errors.New("rtorrent: unexpected result shape")

// Client is the rTorrent infrastructure adapter. It turns raw XML-RPC results
// into domain records and remembers whether the daemon is reachable.
type Client struct {
	rpc       Caller
	log       *logger.Logger
	diskUsage func(ctx context.Context, path string) (torrent.DiskSpace, error)

	mu        sync.Mutex
	connected bool
	lastError string
}

// NewClient creates an rTorrent adapter on top of rpc.
func NewClient(rpc Caller, log *logger.Logger) *Client {
	return &Client{
		rpc:       rpc,
		log:       log.Component("rtorrent"),
		diskUsage: localDiskUsage,
	}
}

// Status returns the connection state observed by the last call.
func (c *Client) Status() torrent.ConnectionStatus {
	c.mu.Lock()
	defer c.mu.Unlock()
	return torrent.ConnectionStatus{Connected: c.connected, LastError: c.lastError}
}

// TestConnection asks the daemon for its version.
func (c *Client) TestConnection(ctx context.Context) error {
	_, err := c.call(ctx, "system.client_version")
	return err
}

// Snapshot fetches torrents and system scalars concurrently. On failure it
// returns an empty snapshot together with the error.
func (c *Client) Snapshot(ctx context.Context) (torrent.Snapshot, error) {
	var (
		items []torrent.Torrent
		info  torrent.SystemInfo
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		items, err = c.Torrents(gctx)
		return err
	})
	g.Go(func() error {
		var err error
		info, err = c.systemScalars(gctx)
		return err
	})
	err := g.Wait()
	c.record(err)
	if err != nil {
		return torrent.EmptySnapshot(), err
	}

	snap := torrent.EmptySnapshot()
	for _, t := range items {
		snap.Torrents[t.Hash] = t
		info.ActivePeers += t.Peers
	}
	snap.SystemInfo = &info
	return snap, nil
}

// SystemInfo returns daemon-wide scalars including the peer total.
func (c *Client) SystemInfo(ctx context.Context) (torrent.SystemInfo, error) {
	snap, err := c.Snapshot(ctx)
	if err != nil {
		return torrent.SystemInfo{}, err
	}
	return *snap.SystemInfo, nil
}

func (c *Client) systemScalars(ctx context.Context) (torrent.SystemInfo, error) {
	var (
		info    torrent.SystemInfo
		baseDir string
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		v, err := c.call(gctx, "throttle.global_down.rate")
		info.DownloadRate = asInt64(v)
		return err
	})
	g.Go(func() error {
		v, err := c.call(gctx, "throttle.global_up.rate")
		info.UploadRate = asInt64(v)
		return err
	})
	g.Go(func() error {
		v, err := c.call(gctx, "system.client_version")
		info.ClientVersion = asString(v)
		return err
	})
	g.Go(func() error {
		v, err := c.call(gctx, "system.library_version")
		info.LibraryVersion = asString(v)
		return err
	})
	g.Go(func() error {
		v, err := c.call(gctx, "system.hostname")
		info.Hostname = asString(v)
		return err
	})
	g.Go(func() error {
		v, err := c.call(gctx, "directory.default")
		baseDir = asString(v)
		return err
	})
	if err := g.Wait(); err != nil {
		return torrent.SystemInfo{}, fmt.Errorf("system info: %w", err)
	}

	if baseDir != "" {
		space, err := c.diskUsage(ctx, baseDir)
		if err != nil {
			c.log.Debug().Err(err).Str("dir", baseDir).Msg("disk usage unavailable")
		} else {
			info.DiskSpace = space
		}
	}
	return info, nil
}

func localDiskUsage(ctx context.Context, path string) (torrent.DiskSpace, error) {
	usage, err := disk.UsageWithContext(ctx, path)
	if err != nil {
		return torrent.DiskSpace{}, err
	}
	return torrent.DiskSpace{Used: usage.Used, Total: usage.Total}, nil
}

// call forwards to the daemon and records reachability.
func (c *Client) call(ctx context.Context, method string, args ...any) (any, error) {
	v, err := c.rpc.Call(ctx, method, args...)
	c.record(err)
	return v, err
}

// record updates the connection status. A fault still proves the daemon is up.
func (c *Client) record(err error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	var fault *scgi.FaultError
	switch {
	case err == nil, errors.As(err, &fault):
		c.connected = true
		c.lastError = ""
	default:
		c.connected = false
		c.lastError = err.Error()
	}
}
