package rtorrent

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"vibetorrent/internal/domain/torrent"
	"vibetorrent/internal/infrastructure/scgi"
)

// DefaultPriority is rTorrent's "normal" download priority.
const DefaultPriority = 2

// AddOptions tune how a new torrent is loaded.
type AddOptions = torrent.AddOptions

// addCommands turns opts into load.* post-load commands. Priority is sent
// only when set and different from DefaultPriority.
func addCommands(o AddOptions) []any {
	var cmds []any
	if o.Directory != "" {
		cmds = append(cmds, "d.directory.set="+o.Directory)
	}
	if o.Label != "" {
		cmds = append(cmds, "d.custom1.set="+o.Label)
	}
	if o.Priority != nil && *o.Priority != DefaultPriority {
		cmds = append(cmds, fmt.Sprintf("d.priority.set=%d", *o.Priority))
	}
	return cmds
}

// AddURL loads a torrent from a URL or magnet link.
func (c *Client) AddURL(ctx context.Context, url string, opts AddOptions) error {
	method := "load.start"
	if opts.Paused {
		method = "load.normal"
	}
	args := append([]any{"", url}, addCommands(opts)...)
	if _, err := c.call(ctx, method, args...); err != nil {
		return fmt.Errorf("add url: %w", err)
	}
	return nil
}

// AddFile loads raw .torrent metainfo.
func (c *Client) AddFile(ctx context.Context, metainfo []byte, opts AddOptions) error {
	method := "load.raw_start"
	if opts.Paused {
		method = "load.raw"
	}
	args := append([]any{"", metainfo}, addCommands(opts)...)
	if _, err := c.call(ctx, method, args...); err != nil {
		return fmt.Errorf("add file: %w", err)
	}
	return nil
}

// Resume starts a torrent. A closed torrent is opened first; an open one
// is only resumed.
func (c *Client) Resume(ctx context.Context, hash string) error {
	open, err := c.call(ctx, "d.is_open", hash)
	if err != nil {
		return fmt.Errorf("resume %s: %w", hash, err)
	}
	if asInt64(open) == 0 {
		return c.sequence(ctx, "resume", hash, "d.open", "d.start")
	}
	return c.sequence(ctx, "resume", hash, "d.resume")
}

// Pause pauses a torrent without closing it.
func (c *Client) Pause(ctx context.Context, hash string) error {
	return c.sequence(ctx, "pause", hash, "d.pause")
}

// Stop stops and closes a torrent.
func (c *Client) Stop(ctx context.Context, hash string) error {
	return c.sequence(ctx, "stop", hash, "d.stop", "d.close")
}

// Recheck verifies piece hashes on disk.
func (c *Client) Recheck(ctx context.Context, hash string) error {
	return c.sequence(ctx, "recheck", hash, "d.check_hash")
}

// Reannounce contacts the trackers immediately.
func (c *Client) Reannounce(ctx context.Context, hash string) error {
	return c.sequence(ctx, "reannounce", hash, "d.tracker_announce")
}

// Remove drops a torrent from the session. Payload files are left on disk.
// A torrent that is already gone counts as removed.
func (c *Client) Remove(ctx context.Context, hash string) error {
	if _, err := c.call(ctx, "d.hash", hash); err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("remove %s: %w", hash, err)
	}
	err := c.sequence(ctx, "remove", hash, "d.close", "d.erase")
	if isNotFound(err) {
		return nil
	}
	return err
}

// SetLabel stores label in the custom1 slot.
func (c *Client) SetLabel(ctx context.Context, hash, label string) error {
	if _, err := c.call(ctx, "d.custom1.set", hash, label); err != nil {
		return fmt.Errorf("set label %s: %w", hash, err)
	}
	return nil
}

// Priority returns the download priority of hash (0 off .. 3 high).
func (c *Client) Priority(ctx context.Context, hash string) (int64, error) {
	v, err := c.call(ctx, "d.priority", hash)
	if err != nil {
		return DefaultPriority, fmt.Errorf("priority %s: %w", hash, err)
	}
	return asInt64(v), nil
}

// SetPriority changes the download priority and applies it.
func (c *Client) SetPriority(ctx context.Context, hash string, priority int) error {
	if _, err := c.call(ctx, "d.priority.set", hash, priority); err != nil {
		return fmt.Errorf("set priority %s: %w", hash, err)
	}
	return c.sequence(ctx, "set priority", hash, "d.update_priorities")
}

// SetFilePriority changes one file's priority (0 off, 1 normal, 2 high).
func (c *Client) SetFilePriority(ctx context.Context, hash string, index, priority int) error {
	target := fmt.Sprintf("%s:f%d", hash, index)
	if _, err := c.call(ctx, "f.priority.set", target, priority); err != nil {
		return fmt.Errorf("set file priority %s: %w", target, err)
	}
	return c.sequence(ctx, "set file priority", hash, "d.update_priorities")
}

// SetDownloadLimit sets the global download cap in KiB/s; 0 removes it.
func (c *Client) SetDownloadLimit(ctx context.Context, kib int64) error {
	if _, err := c.call(ctx, "throttle.global_down.max_rate.set", "", kib*1024); err != nil {
		return fmt.Errorf("set download limit: %w", err)
	}
	return nil
}

// SetUploadLimit sets the global upload cap in KiB/s; 0 removes it.
func (c *Client) SetUploadLimit(ctx context.Context, kib int64) error {
	if _, err := c.call(ctx, "throttle.global_up.max_rate.set", "", kib*1024); err != nil {
		return fmt.Errorf("set upload limit: %w", err)
	}
	return nil
}

func (c *Client) sequence(ctx context.Context, op, hash string, methods ...string) error {
	for _, m := range methods {
		if _, err := c.call(ctx, m, hash); err != nil {
			return fmt.Errorf("%s %s: %w", op, hash, err)
		}
	}
	return nil
}

func isNotFound(err error) bool {
	var fault *scgi.FaultError
	return errors.As(err, &fault) && strings.Contains(fault.Message, "Could not find info-hash")
}
