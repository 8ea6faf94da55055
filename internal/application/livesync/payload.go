package livesync

import (
	"github.com/goccy/go-json"

	"vibetorrent/internal/domain/torrent"
)

// Event names on the subscriber stream.
const (
	EventInit      = "init"
	EventPatch     = "patch"
	EventHeartbeat = "heartbeat"
)

// InitPayload is the full state sent once to a new subscriber. Torrents is
// keyed by hash so that /torrents/<hash> patch paths address it directly.
type InitPayload struct {
	Torrents   map[string]torrent.Torrent `json:"torrents"`
	SystemInfo *torrent.SystemInfo        `json:"systemInfo"`
	Connected  bool                       `json:"connected"`
}

// HeartbeatPayload keeps idle streams alive.
type HeartbeatPayload struct {
	Timestamp int64 `json:"timestamp"`
}

func encodeInit(snap torrent.Snapshot, connected bool) ([]byte, error) {
	torrents := snap.Torrents
	if torrents == nil {
		torrents = map[string]torrent.Torrent{}
	}
	return json.Marshal(InitPayload{
		Torrents:   torrents,
		SystemInfo: snap.SystemInfo,
		Connected:  connected,
	})
}

func encodeHeartbeat(unixMilli int64) ([]byte, error) {
	return json.Marshal(HeartbeatPayload{Timestamp: unixMilli})
}
