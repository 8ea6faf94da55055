package rtorrent

import (
	"context"
	"fmt"

	"vibetorrent/internal/domain/torrent"
)

// Peers lists peers connected to hash.
func (c *Client) Peers(ctx context.Context, hash string) ([]torrent.Peer, error) {
	res, err := c.call(ctx, "p.multicall", hash, "",
		"p.address=",
		"p.client_version=",
		"p.down_rate=",
		"p.up_rate=",
		"p.completed_percent=",
		"p.is_encrypted=",
		"p.is_incoming=",
	)
	if err != nil {
		return nil, fmt.Errorf("peers %s: %w", hash, err)
	}
	list, ok := rows(res)
	if !ok {
		return nil, fmt.Errorf("peers %s: %w", hash, ErrUnexpectedResult)
	}

	peers := make([]torrent.Peer, 0, len(list))
	for _, p := range list {
		if len(p) < 7 {
			continue
		}
		peers = append(peers, torrent.Peer{
			Address:       asString(p[0]),
			ClientVersion: asString(p[1]),
			DownloadRate:  asInt64(p[2]),
			UploadRate:    asInt64(p[3]),
			Progress:      asFloat(p[4]),
			IsEncrypted:   asBool(p[5]),
			IsIncoming:    asBool(p[6]),
		})
	}
	return peers, nil
}

// Files lists payload files of hash. Completed bytes are estimated from
// the chunk ratio.
func (c *Client) Files(ctx context.Context, hash string) ([]torrent.File, error) {
	res, err := c.call(ctx, "f.multicall", hash, "",
		"f.path=",
		"f.size_bytes=",
		"f.completed_chunks=",
		"f.size_chunks=",
		"f.priority=",
	)
	if err != nil {
		return nil, fmt.Errorf("files %s: %w", hash, err)
	}
	list, ok := rows(res)
	if !ok {
		return nil, fmt.Errorf("files %s: %w", hash, ErrUnexpectedResult)
	}

	files := make([]torrent.File, 0, len(list))
	for idx, f := range list {
		if len(f) < 5 {
			continue
		}
		size := asInt64(f[1])
		doneChunks := asInt64(f[2])
		totalChunks := asInt64(f[3])
		completed := 0.0
		if totalChunks > 0 {
			completed = float64(doneChunks) / float64(totalChunks) * float64(size)
		}
		files = append(files, torrent.File{
			Index:     idx,
			Path:      asString(f[0]),
			Size:      size,
			Completed: completed,
			Priority:  asInt64(f[4]),
		})
	}
	return files, nil
}

// Trackers lists announce targets of hash.
func (c *Client) Trackers(ctx context.Context, hash string) ([]torrent.Tracker, error) {
	res, err := c.call(ctx, "t.multicall", hash, "",
		"t.url=",
		"t.type=",
		"t.is_enabled=",
		"t.scrape_complete=",
		"t.scrape_incomplete=",
	)
	if err != nil {
		return nil, fmt.Errorf("trackers %s: %w", hash, err)
	}
	list, ok := rows(res)
	if !ok {
		return nil, fmt.Errorf("trackers %s: %w", hash, ErrUnexpectedResult)
	}

	trackers := make([]torrent.Tracker, 0, len(list))
	for _, t := range list {
		if len(t) < 5 {
			continue
		}
		trackers = append(trackers, torrent.Tracker{
			URL:      asString(t[0]),
			Type:     asInt64(t[1]),
			Enabled:  asBool(t[2]),
			Seeders:  asInt64(t[3]),
			Leechers: asInt64(t[4]),
		})
	}
	return trackers, nil
}
