package torrent

// DeriveStatus maps the daemon's activity flags onto a Status.
func DeriveStatus(isActive, isOpen, isComplete bool) Status {
	switch {
	case !isOpen:
		return StatusStopped
	case !isActive:
		return StatusPaused
	case isComplete:
		return StatusSeeding
	default:
		return StatusDownloading
	}
}

// IsComplete reports whether a torrent has all of its payload. The explicit
// flag wins; otherwise byte counts decide.
func IsComplete(completeFlag bool, size, completed int64) bool {
	return completeFlag || (size > 0 && completed >= size)
}

// Progress returns completion as a percentage clamped to [0, 100].
func Progress(size, completed int64) float64 {
	if size <= 0 || completed < 0 {
		return 0
	}
	p := float64(completed) / float64(size) * 100
	if p < 0 {
		return 0
	}
	if p > 100 {
		return 100
	}
	return p
}

// ETA returns the seconds left at the current download rate, or 0 when unknown.
func ETA(size, completed, downloadRate int64) float64 {
	if downloadRate <= 0 {
		return 0
	}
	remaining := size - completed
	if remaining < 0 {
		remaining = 0
	}
	return float64(remaining) / float64(downloadRate)
}
