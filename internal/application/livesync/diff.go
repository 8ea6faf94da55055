package livesync

import (
	"math"
	"sort"

	"vibetorrent/internal/domain/torrent"
)

// Thresholds are the minimum changes worth sending. Smaller deltas are
// treated as noise and left for a later, larger change to carry.
type Thresholds struct {
	Rate     int64
	Progress float64
	ETA      float64
	Ratio    float64
	DiskFree int64
}

// DefaultThresholds returns 1 KiB/s, 0.1 points, 5 s, 0.01 and 1 MiB.
func DefaultThresholds() Thresholds {
	return Thresholds{
		Rate:     1024,
		Progress: 0.1,
		ETA:      5,
		Ratio:    0.01,
		DiskFree: 1 << 20,
	}
}

const (
	torrentsRoot = "/torrents"
	systemRoot   = "/systemInfo"
)

// Diff returns the patches that turn prev into next under th. Output order
// is stable: added and changed torrents by hash, then removals by hash,
// then system info.
func Diff(prev, next torrent.Snapshot, th Thresholds) []Patch {
	var patches []Patch

	for _, hash := range sortedHashes(next.Torrents) {
		path := torrentsRoot + "/" + hash
		newT := next.Torrents[hash]
		oldT, ok := prev.Torrents[hash]
		if !ok {
			patches = append(patches, Patch{Op: OpAdd, Path: path, Value: newT})
			continue
		}
		patches = append(patches, diffTorrent(path, oldT, newT, th)...)
	}

	for _, hash := range sortedHashes(prev.Torrents) {
		if _, ok := next.Torrents[hash]; !ok {
			patches = append(patches, Patch{Op: OpRemove, Path: torrentsRoot + "/" + hash, Value: nil})
		}
	}

	return append(patches, diffSystem(prev.SystemInfo, next.SystemInfo, th)...)
}

func diffTorrent(path string, o, n torrent.Torrent, th Thresholds) []Patch {
	var out []Patch
	set := func(field string, value any) {
		out = append(out, Patch{Op: OpReplace, Path: path + "/" + field, Value: value})
	}

	if o.Name != n.Name {
		set("name", n.Name)
	}
	if o.Size != n.Size {
		set("size", n.Size)
	}
	if o.State != n.State {
		set("state", n.State)
	}
	if absInt(n.DownloadRate-o.DownloadRate) > th.Rate {
		set("downloadRate", n.DownloadRate)
	}
	if absInt(n.UploadRate-o.UploadRate) > th.Rate {
		set("uploadRate", n.UploadRate)
	}
	if math.Abs(n.Progress-o.Progress) > th.Progress || o.Size != n.Size {
		set("progress", n.Progress)
		set("completed", n.Completed)
	}
	if math.Abs(n.ETA-o.ETA) > th.ETA || (n.ETA == 0) != (o.ETA == 0) {
		set("eta", n.ETA)
	}
	if o.Peers != n.Peers {
		set("peers", n.Peers)
	}
	if math.Abs(n.Ratio-o.Ratio) > th.Ratio {
		set("ratio", n.Ratio)
	}
	if o.Label != n.Label {
		set("label", n.Label)
	}
	if o.Message != n.Message {
		set("message", n.Message)
	}

	// fields without a noise threshold
	if o.Seeds != n.Seeds {
		set("seeds", n.Seeds)
	}
	if o.AddedTime != n.AddedTime {
		set("addedTime", n.AddedTime)
	}
	if o.CompletedTime != n.CompletedTime {
		set("completedTime", n.CompletedTime)
	}
	if o.SavePath != n.SavePath {
		set("savePath", n.SavePath)
	}
	if o.IsPrivate != n.IsPrivate {
		set("isPrivate", n.IsPrivate)
	}
	if o.IsActive != n.IsActive {
		set("isActive", n.IsActive)
	}
	if o.IsOpen != n.IsOpen {
		set("isOpen", n.IsOpen)
	}
	return out
}

func diffSystem(o, n *torrent.SystemInfo, th Thresholds) []Patch {
	switch {
	case o == nil && n == nil:
		return nil
	case o == nil:
		return []Patch{{Op: OpReplace, Path: systemRoot, Value: *n}}
	case n == nil:
		return []Patch{{Op: OpReplace, Path: systemRoot, Value: nil}}
	}

	var out []Patch
	set := func(field string, value any) {
		out = append(out, Patch{Op: OpReplace, Path: systemRoot + "/" + field, Value: value})
	}

	if absInt(n.DownloadRate-o.DownloadRate) > th.Rate {
		set("downloadRate", n.DownloadRate)
	}
	if absInt(n.UploadRate-o.UploadRate) > th.Rate {
		set("uploadRate", n.UploadRate)
	}
	if freeDelta(o.DiskSpace, n.DiskSpace) > th.DiskFree {
		set("diskSpace", n.DiskSpace)
	}
	if o.ActivePeers != n.ActivePeers {
		set("activePeers", n.ActivePeers)
	}
	if o.Hostname != n.Hostname {
		set("hostname", n.Hostname)
	}
	if o.ClientVersion != n.ClientVersion {
		set("clientVersion", n.ClientVersion)
	}
	if o.LibraryVersion != n.LibraryVersion {
		set("libraryVersion", n.LibraryVersion)
	}
	return out
}

func freeDelta(o, n torrent.DiskSpace) int64 {
	a, b := o.Free(), n.Free()
	if a > b {
		a, b = b, a
	}
	d := b - a
	if d > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(d)
}

func absInt(v int64) int64 {
	if v < 0 {
		return -v
	}
	return v
}

func sortedHashes(m map[string]torrent.Torrent) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
