package config

import (
	"time"
)

// Config holds runtime settings for the server.
//
// Sources are merged field by field, first non-zero value wins:
// environment, command-line flags, TOML file, defaults.
type Config struct {
	Server   Server   `envPrefix:"SERVER_" toml:"server"`
	RTorrent RTorrent `envPrefix:"RTORRENT_" toml:"rtorrent"`
	Sync     Sync     `envPrefix:"SYNC_" toml:"sync"`
	Log      Log      `envPrefix:"LOG_" toml:"log"`

	// FilePath points to an optional TOML file. Env: CONFIG, flag: -config.
	FilePath string `env:"CONFIG" toml:"-"`
}

// Server holds HTTP listener settings.
type Server struct {
	Address         string   `env:"ADDRESS" toml:"address"`
	AllowedOrigins  []string `env:"ALLOWED_ORIGINS" envSeparator:"," toml:"allowed_origins"`
	ShutdownTimeout Duration `env:"SHUTDOWN_TIMEOUT" toml:"shutdown_timeout"`
	// EventBuffer is the number of queued events a stream subscriber may
	// fall behind before it is dropped.
	EventBuffer int `env:"EVENT_BUFFER" toml:"event_buffer"`
}

// RTorrent holds the daemon endpoint. Socket accepts unix:///path, /path,
// tcp://host:port or host:port.
type RTorrent struct {
	Socket  string   `env:"SOCKET" toml:"socket"`
	Timeout Duration `env:"TIMEOUT" toml:"timeout"`
}

// Sync holds poll cadence and change thresholds for live subscribers.
type Sync struct {
	ActiveInterval    Duration `env:"ACTIVE_INTERVAL" toml:"active_interval"`
	IdleInterval      Duration `env:"IDLE_INTERVAL" toml:"idle_interval"`
	BatchDelay        Duration `env:"BATCH_DELAY" toml:"batch_delay"`
	Heartbeat         Duration `env:"HEARTBEAT" toml:"heartbeat"`
	RateThreshold     int64    `env:"RATE_THRESHOLD" toml:"rate_threshold"`
	ProgressThreshold float64  `env:"PROGRESS_THRESHOLD" toml:"progress_threshold"`
	ETAThreshold      float64  `env:"ETA_THRESHOLD" toml:"eta_threshold"`
	RatioThreshold    float64  `env:"RATIO_THRESHOLD" toml:"ratio_threshold"`
	DiskFreeThreshold int64    `env:"DISK_FREE_THRESHOLD" toml:"disk_free_threshold"`
}

// Log holds logging settings.
type Log struct {
	Level string `env:"LEVEL" toml:"level"`
}

// Defaults returns the built-in configuration.
func Defaults() *Config {
	return &Config{
		Server: Server{
			Address:         ":8080",
			AllowedOrigins:  []string{"*"},
			ShutdownTimeout: Duration(10 * time.Second),
			EventBuffer:     64,
		},
		RTorrent: RTorrent{
			Socket:  "localhost:8000",
			Timeout: Duration(10 * time.Second),
		},
		Sync: Sync{
			ActiveInterval:    Duration(time.Second),
			IdleInterval:      Duration(5 * time.Second),
			BatchDelay:        Duration(500 * time.Millisecond),
			Heartbeat:         Duration(30 * time.Second),
			RateThreshold:     1024,
			ProgressThreshold: 0.1,
			ETAThreshold:      5,
			RatioThreshold:    0.01,
			DiskFreeThreshold: 1 << 20,
		},
		Log: Log{Level: "info"},
	}
}

// Load reads environment variables, args and the optional TOML file, and
// returns the merged and validated config.
func Load(args []string) (*Config, error) {
	return newConfigBuilder().
		withEnv().
		withFlags(args).
		withFile().
		withDefaults().
		build()
}
