package torrent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/url"
	"strings"

	"golang.org/x/sync/errgroup"

	"vibetorrent/internal/domain/torrent"
)

// MaxTorrentFileSize bounds uploaded metainfo.
const MaxTorrentFileSize = 5 << 20

var (
	ErrInvalidHash     = errors.New("invalid torrent hash")
	ErrInvalidURL      = errors.New("invalid torrent url")
	ErrEmptyTorrent    = errors.New("empty torrent file")
	ErrTorrentTooLarge = errors.New("torrent file too large")
	ErrInvalidPriority = errors.New("invalid priority")
	ErrInvalidIndex    = errors.New("invalid file index")
	ErrInvalidLimit    = errors.New("invalid speed limit")
	ErrUnknownAction   = errors.New("unknown torrent action")
)

// Action is a state change applied to a single torrent.
type Action string

const (
	ActionStart      Action = "start"
	ActionPause      Action = "pause"
	ActionStop       Action = "stop"
	ActionRecheck    Action = "recheck"
	ActionReannounce Action = "reannounce"
)

// Details is a torrent together with its peers, files and trackers.
type Details struct {
	torrent.Torrent
	Peers    []torrent.Peer    `json:"peers"`
	Files    []torrent.File    `json:"files"`
	Trackers []torrent.Tracker `json:"trackers"`
}

// Service handles torrent use cases. Every successful mutation is followed
// by a forced sync so subscribers see the result immediately.
type Service struct {
	gateway Gateway
	syncer  Syncer
}

// NewService creates torrent use-case service with injected gateway.
func NewService(gateway Gateway, syncer Syncer) *Service {
	return &Service{gateway: gateway, syncer: syncer}
}

// Status reports whether the daemon answered the last call.
func (s *Service) Status() torrent.ConnectionStatus {
	return s.gateway.Status()
}

// TestConnection performs a round trip to the daemon.
func (s *Service) TestConnection(ctx context.Context) error {
	return s.gateway.TestConnection(ctx)
}

// List returns torrents visible in the daemon.
func (s *Service) List(ctx context.Context) ([]torrent.Torrent, error) {
	return s.gateway.Torrents(ctx)
}

// SystemInfo returns daemon-wide scalars.
func (s *Service) SystemInfo(ctx context.Context) (torrent.SystemInfo, error) {
	return s.gateway.SystemInfo(ctx)
}

// Details looks up one torrent and fetches its peers, files and trackers
// concurrently.
func (s *Service) Details(ctx context.Context, hash string) (Details, error) {
	hash, err := normalizeHash(hash)
	if err != nil {
		return Details{}, err
	}

	var d Details
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		list, err := s.gateway.Torrents(gctx)
		if err != nil {
			return err
		}
		for _, t := range list {
			if t.Hash == hash {
				d.Torrent = t
				return nil
			}
		}
		return fmt.Errorf("torrent %s: %w", hash, torrent.ErrNotFound)
	})
	g.Go(func() (err error) {
		d.Peers, err = s.gateway.Peers(gctx, hash)
		return err
	})
	g.Go(func() (err error) {
		d.Files, err = s.gateway.Files(gctx, hash)
		return err
	})
	g.Go(func() (err error) {
		d.Trackers, err = s.gateway.Trackers(gctx, hash)
		return err
	})
	if err := g.Wait(); err != nil {
		return Details{}, err
	}
	return d, nil
}

// AddURL submits a magnet link or an http(s) torrent URL.
func (s *Service) AddURL(ctx context.Context, raw string, opts torrent.AddOptions) error {
	raw = strings.TrimSpace(raw)
	if !validTorrentURL(raw) {
		return ErrInvalidURL
	}
	if err := validatePriorityOption(opts.Priority); err != nil {
		return err
	}
	return s.mutate(ctx, s.gateway.AddURL(ctx, raw, opts))
}

// AddTorrent reads and submits torrent metainfo.
func (s *Service) AddTorrent(ctx context.Context, r io.Reader, opts torrent.AddOptions) error {
	if err := validatePriorityOption(opts.Priority); err != nil {
		return err
	}
	data, err := io.ReadAll(io.LimitReader(r, MaxTorrentFileSize+1))
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return ErrEmptyTorrent
	}
	if len(data) > MaxTorrentFileSize {
		return ErrTorrentTooLarge
	}
	return s.mutate(ctx, s.gateway.AddFile(ctx, data, opts))
}

// Apply runs a lifecycle action against one torrent.
func (s *Service) Apply(ctx context.Context, hash string, action Action) error {
	hash, err := normalizeHash(hash)
	if err != nil {
		return err
	}

	var op func(context.Context, string) error
	switch action {
	case ActionStart:
		op = s.gateway.Resume
	case ActionPause:
		op = s.gateway.Pause
	case ActionStop:
		op = s.gateway.Stop
	case ActionRecheck:
		op = s.gateway.Recheck
	case ActionReannounce:
		op = s.gateway.Reannounce
	default:
		return fmt.Errorf("%w: %q", ErrUnknownAction, action)
	}
	return s.mutate(ctx, op(ctx, hash))
}

// Remove drops a torrent from the daemon session.
func (s *Service) Remove(ctx context.Context, hash string) error {
	hash, err := normalizeHash(hash)
	if err != nil {
		return err
	}
	return s.mutate(ctx, s.gateway.Remove(ctx, hash))
}

// SetLabel changes the label of a torrent. An empty label clears it.
func (s *Service) SetLabel(ctx context.Context, hash, label string) error {
	hash, err := normalizeHash(hash)
	if err != nil {
		return err
	}
	return s.mutate(ctx, s.gateway.SetLabel(ctx, hash, strings.TrimSpace(label)))
}

// Priority returns the download priority of a torrent.
func (s *Service) Priority(ctx context.Context, hash string) (int64, error) {
	hash, err := normalizeHash(hash)
	if err != nil {
		return 0, err
	}
	return s.gateway.Priority(ctx, hash)
}

// SetPriority changes the download priority (0 off .. 3 high).
func (s *Service) SetPriority(ctx context.Context, hash string, priority int) error {
	hash, err := normalizeHash(hash)
	if err != nil {
		return err
	}
	if priority < 0 || priority > 3 {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, priority)
	}
	return s.mutate(ctx, s.gateway.SetPriority(ctx, hash, priority))
}

// SetFilePriority changes a file priority (0 off, 1 normal, 2 high).
func (s *Service) SetFilePriority(ctx context.Context, hash string, index, priority int) error {
	hash, err := normalizeHash(hash)
	if err != nil {
		return err
	}
	if index < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidIndex, index)
	}
	if priority < 0 || priority > 2 {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, priority)
	}
	return s.mutate(ctx, s.gateway.SetFilePriority(ctx, hash, index, priority))
}

// SetDownloadLimit caps the global download rate in KiB/s; 0 removes the cap.
func (s *Service) SetDownloadLimit(ctx context.Context, kib int64) error {
	if kib < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, kib)
	}
	return s.mutate(ctx, s.gateway.SetDownloadLimit(ctx, kib))
}

// SetUploadLimit caps the global upload rate in KiB/s; 0 removes the cap.
func (s *Service) SetUploadLimit(ctx context.Context, kib int64) error {
	if kib < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidLimit, kib)
	}
	return s.mutate(ctx, s.gateway.SetUploadLimit(ctx, kib))
}

func (s *Service) mutate(ctx context.Context, err error) error {
	if err != nil {
		return err
	}
	if s.syncer != nil {
		s.syncer.ForceSync(ctx)
	}
	return nil
}

// normalizeHash accepts a 40 character hex info-hash in either case and
// returns it upper-cased, the form the daemon reports.
func normalizeHash(hash string) (string, error) {
	hash = strings.TrimSpace(hash)
	if len(hash) != 40 {
		return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
	}
	for _, r := range hash {
		switch {
		case r >= '0' && r <= '9', r >= 'a' && r <= 'f', r >= 'A' && r <= 'F':
		default:
			return "", fmt.Errorf("%w: %q", ErrInvalidHash, hash)
		}
	}
	return strings.ToUpper(hash), nil
}

func validTorrentURL(raw string) bool {
	if strings.HasPrefix(raw, "magnet:?") {
		return true
	}
	u, err := url.Parse(raw)
	if err != nil {
		return false
	}
	return (u.Scheme == "http" || u.Scheme == "https") && u.Host != ""
}

func validatePriorityOption(p *int) error {
	if p != nil && (*p < 0 || *p > 3) {
		return fmt.Errorf("%w: %d", ErrInvalidPriority, *p)
	}
	return nil
}
