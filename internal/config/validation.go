package config

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidServerConfig   = errors.New("invalid server configuration")
	ErrInvalidRTorrentConfig = errors.New("invalid rtorrent configuration")
	ErrInvalidSyncConfig     = errors.New("invalid sync configuration")
)

// Validate checks the merged config and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if strings.TrimSpace(c.Server.Address) == "" {
		errs = append(errs, fmt.Errorf("%w: empty address", ErrInvalidServerConfig))
	}
	if c.Server.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: shutdown timeout must be positive", ErrInvalidServerConfig))
	}
	if c.Server.EventBuffer <= 0 {
		errs = append(errs, fmt.Errorf("%w: event buffer must be positive", ErrInvalidServerConfig))
	}

	if strings.TrimSpace(c.RTorrent.Socket) == "" {
		errs = append(errs, fmt.Errorf("%w: empty socket", ErrInvalidRTorrentConfig))
	}
	if c.RTorrent.Timeout <= 0 {
		errs = append(errs, fmt.Errorf("%w: timeout must be positive", ErrInvalidRTorrentConfig))
	}

	s := c.Sync
	if s.ActiveInterval <= 0 || s.IdleInterval <= 0 || s.BatchDelay <= 0 || s.Heartbeat <= 0 {
		errs = append(errs, fmt.Errorf("%w: intervals must be positive", ErrInvalidSyncConfig))
	}
	if s.RateThreshold < 0 || s.ProgressThreshold < 0 || s.ETAThreshold < 0 ||
		s.RatioThreshold < 0 || s.DiskFreeThreshold < 0 {
		errs = append(errs, fmt.Errorf("%w: thresholds must not be negative", ErrInvalidSyncConfig))
	}

	return errors.Join(errs...)
}
