package livesync

import (
	"strings"

	"github.com/goccy/go-json"
)

// Op is the kind of change a Patch describes.
type Op string

const (
	OpAdd     Op = "add"
	OpReplace Op = "replace"
	OpRemove  Op = "remove"
)

// Patch is a path-addressed change to the mirrored state. Paths look like
// /torrents/<hash>, /torrents/<hash>/<field>, /systemInfo and
// /systemInfo/<field>. On the wire only path and value travel; a null value
// at an entity root means removal.
type Patch struct {
	Op    Op     `json:"-"`
	Path  string `json:"path"`
	Value any    `json:"value"`
}

// Merge collapses a queue of patches to the latest one per path. A remove
// purges every queued patch at or under its path. Paths keep the position
// of their first appearance, except that a remove moves its path to the end.
func Merge(patches []Patch) []Patch {
	order := make([]string, 0, len(patches))
	latest := make(map[string]Patch, len(patches))

	for _, p := range patches {
		if p.Op == OpRemove {
			kept := order[:0]
			for _, path := range order {
				if covers(p.Path, path) {
					delete(latest, path)
					continue
				}
				kept = append(kept, path)
			}
			order = kept
		}
		if _, ok := latest[p.Path]; !ok {
			order = append(order, p.Path)
		}
		latest[p.Path] = p
	}

	out := make([]Patch, 0, len(order))
	for _, path := range order {
		out = append(out, latest[path])
	}
	return out
}

func covers(parent, path string) bool {
	return path == parent || strings.HasPrefix(path, parent+"/")
}

func encodePatches(patches []Patch) ([]byte, error) {
	return json.Marshal(patches)
}
