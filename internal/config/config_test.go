package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadMissingFileFallsBackToDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	require.NoError(t, err)
	assert.Equal(t, Default().Server.ListenAddr, cfg.Server.ListenAddr)
}

func TestLoadParsesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "alphacore.toml")
	body := `
[server]
listen_addr = ":1234"
max_players = 5

[world]
folder = "myworld"
seed = 42
season = "snow"
`
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, ":1234", cfg.Server.ListenAddr)
	assert.Equal(t, 5, cfg.Server.MaxPlayers)
	assert.Equal(t, "myworld", cfg.World.Folder)
	assert.Equal(t, int64(42), cfg.World.Seed)
	assert.Equal(t, "snow", cfg.World.Season)
}

func TestEnvOverridesListenAddr(t *testing.T) {
	t.Setenv("ALPHACORE_SERVER_LISTEN_ADDR", ":9999")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, ":9999", cfg.Server.ListenAddr)
}

func TestEnvOverridesWorldSeed(t *testing.T) {
	t.Setenv("ALPHACORE_WORLD_SEED", "123456789")
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, int64(123456789), cfg.World.Seed)
}

func TestEnvRejectsNonIntegerWorldSeed(t *testing.T) {
	t.Setenv("ALPHACORE_WORLD_SEED", "not-a-number")
	_, err := Load("")
	assert.Error(t, err)
}
