package config

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"dario.cat/mergo"
	"github.com/caarlos0/env/v11"
	toml "github.com/pelletier/go-toml/v2"
)

type configBuilder struct {
	configs []*Config
	err     error
}

func newConfigBuilder() *configBuilder {
	return &configBuilder{configs: make([]*Config, 0, 4)}
}

func (b *configBuilder) build() (*Config, error) {
	if b.err != nil {
		return nil, fmt.Errorf("build config: %w", b.err)
	}

	cfg := new(Config)
	for _, c := range b.configs {
		if err := mergo.Merge(cfg, c); err != nil {
			return nil, fmt.Errorf("merge config: %w", err)
		}
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (b *configBuilder) withEnv() *configBuilder {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		b.err = errors.Join(b.err, fmt.Errorf("parse env: %w", err))
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

func (b *configBuilder) withFlags(args []string) *configBuilder {
	cfg, err := parseFlags(args)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

// withFile loads the TOML file named by an earlier source, if any.
func (b *configBuilder) withFile() *configBuilder {
	var path string
	for _, c := range b.configs {
		if c.FilePath != "" {
			path = c.FilePath
			break
		}
	}
	if path == "" {
		return b
	}

	cfg, err := parseFile(path)
	if err != nil {
		b.err = errors.Join(b.err, err)
		return b
	}
	b.configs = append(b.configs, cfg)
	return b
}

func (b *configBuilder) withDefaults() *configBuilder {
	b.configs = append(b.configs, Defaults())
	return b
}

// parseFlags reads the command-line subset of the config.
//
//	-config    TOML config file path
//	-addr      HTTP listen address
//	-socket    rTorrent SCGI endpoint
//	-log-level log level (debug, info, warn, error)
func parseFlags(args []string) (*Config, error) {
	cfg := &Config{}
	fs := flag.NewFlagSet("vibetorrent", flag.ContinueOnError)
	fs.StringVar(&cfg.FilePath, "config", "", "TOML config file path")
	fs.StringVar(&cfg.Server.Address, "addr", "", "HTTP listen address host:port")
	fs.StringVar(&cfg.RTorrent.Socket, "socket", "", "rTorrent SCGI endpoint")
	fs.StringVar(&cfg.Log.Level, "log-level", "", "log level")
	if err := fs.Parse(args); err != nil {
		return nil, fmt.Errorf("parse flags: %w", err)
	}
	return cfg, nil
}

func parseFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file: %w", err)
	}
	cfg := &Config{}
	if err := toml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config file %s: %w", path, err)
	}
	return cfg, nil
}
