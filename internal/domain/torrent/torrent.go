package torrent

// Status is the derived transfer state of a torrent.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusSeeding     Status = "seeding"
	StatusPaused      Status = "paused"
	StatusStopped     Status = "stopped"
)

// Torrent describes one download managed by the daemon.
type Torrent struct {
	Hash          string  `json:"hash"`
	Name          string  `json:"name"`
	Size          int64   `json:"size"`
	Completed     int64   `json:"completed"`
	DownloadRate  int64   `json:"downloadRate"`
	UploadRate    int64   `json:"uploadRate"`
	Ratio         float64 `json:"ratio"`
	State         Status  `json:"state"`
	Progress      float64 `json:"progress"`
	ETA           float64 `json:"eta"`
	Peers         int64   `json:"peers"`
	Seeds         int64   `json:"seeds"`
	AddedTime     int64   `json:"addedTime"`
	CompletedTime int64   `json:"completedTime"`
	Label         string  `json:"label"`
	SavePath      string  `json:"savePath"`
	IsPrivate     bool    `json:"isPrivate"`
	IsActive      bool    `json:"isActive"`
	IsOpen        bool    `json:"isOpen"`
	Message       string  `json:"message"`
}

// DiskSpace is the usage of the daemon's default download directory.
type DiskSpace struct {
	Used  uint64 `json:"used"`
	Total uint64 `json:"total"`
}

// Free returns the number of unused bytes.
func (d DiskSpace) Free() uint64 {
	if d.Used >= d.Total {
		return 0
	}
	return d.Total - d.Used
}

// SystemInfo holds daemon-wide scalars.
type SystemInfo struct {
	DownloadRate   int64     `json:"downloadRate"`
	UploadRate     int64     `json:"uploadRate"`
	DiskSpace      DiskSpace `json:"diskSpace"`
	ActivePeers    int64     `json:"activePeers"`
	Hostname       string    `json:"hostname"`
	ClientVersion  string    `json:"clientVersion"`
	LibraryVersion string    `json:"libraryVersion"`
}

// ConnectionStatus reports the outcome of the most recent daemon call.
type ConnectionStatus struct {
	Connected bool   `json:"connected"`
	LastError string `json:"error,omitempty"`
}

// AddOptions tune how a new torrent is loaded. A nil Priority keeps the
// daemon default.
type AddOptions struct {
	Directory string
	Label     string
	Priority  *int
	Paused    bool
}

// Peer is a remote peer connected to a torrent.
type Peer struct {
	Address       string  `json:"address"`
	ClientVersion string  `json:"clientVersion"`
	DownloadRate  int64   `json:"downloadRate"`
	UploadRate    int64   `json:"uploadRate"`
	Progress      float64 `json:"progress"`
	IsEncrypted   bool    `json:"isEncrypted"`
	IsIncoming    bool    `json:"isIncoming"`
}

// File is one payload file inside a torrent.
type File struct {
	Index     int     `json:"index"`
	Path      string  `json:"path"`
	Size      int64   `json:"size"`
	Completed float64 `json:"completed"`
	Priority  int64   `json:"priority"`
}

// Tracker is an announce target of a torrent.
type Tracker struct {
	URL      string `json:"url"`
	Type     int64  `json:"type"`
	Enabled  bool   `json:"enabled"`
	Seeders  int64  `json:"seeders"`
	Leechers int64  `json:"leechers"`
}

// Snapshot is the full observed state at one instant. A nil SystemInfo means
// the scalars are not known yet.
type Snapshot struct {
	Torrents   map[string]Torrent
	SystemInfo *SystemInfo
}

// EmptySnapshot returns a snapshot with no torrents and unknown system info.
func EmptySnapshot() Snapshot {
	return Snapshot{Torrents: map[string]Torrent{}}
}

// Clone returns a copy that shares no maps or pointers with s.
func (s Snapshot) Clone() Snapshot {
	out := Snapshot{Torrents: make(map[string]Torrent, len(s.Torrents))}
	for hash, t := range s.Torrents {
		out.Torrents[hash] = t
	}
	if s.SystemInfo != nil {
		info := *s.SystemInfo
		out.SystemInfo = &info
	}
	return out
}

// List returns the torrents of the snapshot in no particular order.
func (s Snapshot) List() []Torrent {
	items := make([]Torrent, 0, len(s.Torrents))
	for _, t := range s.Torrents {
		items = append(items, t)
	}
	return items
}
