package rtorrent

import (
	"context"
	"fmt"

	"vibetorrent/internal/domain/torrent"
)

// Column order of the d.multicall2 listing; parseTorrent depends on it.
var torrentFields = []string{
	"d.hash=",
	"d.name=",
	"d.size_bytes=",
	"d.completed_bytes=",
	"d.down.rate=",
	"d.up.rate=",
	"d.ratio=",
	"d.state=",
	"d.is_active=",
	"d.is_open=",
	"d.peers_connected=",
	"d.timestamp.started=",
	"d.timestamp.finished=",
	"d.custom1=",
	"d.directory=",
	"d.is_private=",
	"d.message=",
	"d.complete=",
}

const (
	colHash = iota
	colName
	colSize
	colCompleted
	colDownRate
	colUpRate
	colRatio
	colState
	colActive
	colOpen
	colPeers
	colStarted
	colFinished
	colLabel
	colDirectory
	colPrivate
	colMessage
	colComplete
)

// Torrents lists every torrent in the "main" view.
func (c *Client) Torrents(ctx context.Context) ([]torrent.Torrent, error) {
	args := make([]any, 0, len(torrentFields)+2)
	args = append(args, "", "main")
	for _, f := range torrentFields {
		args = append(args, f)
	}

	res, err := c.call(ctx, "d.multicall2", args...)
	if err != nil {
		return nil, fmt.Errorf("list torrents: %w", err)
	}
	list, ok := rows(res)
	if !ok {
		return nil, fmt.Errorf("list torrents: %w: %T", ErrUnexpectedResult, res)
	}

	items := make([]torrent.Torrent, 0, len(list))
	for _, cols := range list {
		if len(cols) < len(torrentFields) {
			continue
		}
		t := parseTorrent(cols)
		if t.Hash == "" {
			continue
		}
		items = append(items, t)
	}
	return items, nil
}

func parseTorrent(cols []any) torrent.Torrent {
	size := asInt64(cols[colSize])
	completed := asInt64(cols[colCompleted])
	downRate := asInt64(cols[colDownRate])
	isActive := asBool(cols[colActive])
	isOpen := asBool(cols[colOpen])
	isComplete := torrent.IsComplete(asBool(cols[colComplete]), size, completed)

	return torrent.Torrent{
		Hash:          asString(cols[colHash]),
		Name:          asString(cols[colName]),
		Size:          size,
		Completed:     completed,
		DownloadRate:  downRate,
		UploadRate:    asInt64(cols[colUpRate]),
		Ratio:         asFloat(cols[colRatio]) / 1000,
		State:         torrent.DeriveStatus(isActive, isOpen, isComplete),
		Progress:      torrent.Progress(size, completed),
		ETA:           torrent.ETA(size, completed, downRate),
		Peers:         asInt64(cols[colPeers]),
		AddedTime:     asInt64(cols[colStarted]),
		CompletedTime: asInt64(cols[colFinished]),
		Label:         asString(cols[colLabel]),
		SavePath:      asString(cols[colDirectory]),
		IsPrivate:     asBool(cols[colPrivate]),
		IsActive:      isActive,
		IsOpen:        isOpen,
		Message:       asString(cols[colMessage]),
	}
}
