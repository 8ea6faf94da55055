package torrent

import "errors"

// ErrNotFound means the daemon does not know the requested torrent.
var ErrNotFound = errors.New("torrent not found")
