// Package config loads server configuration from a TOML file, with
// .env-sourced overrides for values operators don't want checked into the
// config file (credentials, ports in a container environment).
package config

import (
	"os"
	"strconv"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"github.com/pkg/errors"
)

// Config is the top-level server configuration.
type Config struct {
	Server ServerConfig `toml:"server"`
	World  WorldConfig  `toml:"world"`
	Status StatusConfig `toml:"status"`
}

// ServerConfig controls the TCP listener.
type ServerConfig struct {
	ListenAddr string `toml:"listen_addr"`
	MaxPlayers int    `toml:"max_players"`
}

// WorldConfig controls world generation and persistence.
type WorldConfig struct {
	Folder        string `toml:"folder"`
	Seed          int64  `toml:"seed"`
	Season        string `toml:"season"`
	FlushInterval string `toml:"flush_interval"`
}

// StatusConfig controls the HTTP status/worldmap surface.
type StatusConfig struct {
	ListenAddr string `toml:"listen_addr"`
	Enabled    bool   `toml:"enabled"`
}

// Default returns the configuration used when no file is present.
func Default() Config {
	return Config{
		Server: ServerConfig{ListenAddr: ":25565", MaxPlayers: 20},
		World:  WorldConfig{Folder: "world", Season: "none", FlushInterval: "1s"},
		Status: StatusConfig{ListenAddr: ":8080", Enabled: true},
	}
}

// Load reads TOML configuration from path. Before parsing, it loads a .env
// file from the working directory into the process environment, if one
// exists. Environment variables ALPHACORE_SERVER_LISTEN_ADDR,
// ALPHACORE_STATUS_LISTEN_ADDR and ALPHACORE_WORLD_SEED, when set, take
// precedence over the file.
func Load(path string) (Config, error) {
	cfg := Default()

	_ = godotenv.Load() // optional; silently absent in most deployments

	if path != "" {
		if _, err := toml.DecodeFile(path, &cfg); err != nil {
			if !os.IsNotExist(err) {
				return Config{}, errors.Wrapf(err, "decode config %q", path)
			}
		}
	}

	if v, ok := os.LookupEnv("ALPHACORE_SERVER_LISTEN_ADDR"); ok {
		cfg.Server.ListenAddr = v
	}
	if v, ok := os.LookupEnv("ALPHACORE_STATUS_LISTEN_ADDR"); ok {
		cfg.Status.ListenAddr = v
	}
	if v, ok := os.LookupEnv("ALPHACORE_WORLD_SEED"); ok {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return Config{}, errors.Wrap(err, "parse ALPHACORE_WORLD_SEED")
		}
		cfg.World.Seed = seed
	}

	return cfg, nil
}
