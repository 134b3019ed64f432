package world

import (
	"testing"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetadataMissingFileYieldsNotOK(t *testing.T) {
	m, ok, err := LoadMetadata(t.TempDir())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Metadata{}, m)
}

func TestMetadataSaveLoadRoundTrip(t *testing.T) {
	dir := t.TempDir()
	m := Metadata{
		Name:       "Alphacore",
		Seed:       99,
		Spawn:      cube.Pos{1, 64, -2},
		Season:     "snow",
		Time:       12000,
		LastPlayed: 1700000000,
	}
	require.NoError(t, SaveMetadata(dir, m))

	got, ok, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, m, got)
}

func TestMetadataSaveAlwaysOverwrites(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, SaveMetadata(dir, Metadata{Name: "first", Seed: 1}))
	require.NoError(t, SaveMetadata(dir, Metadata{Name: "second", Seed: 2}))

	got, ok, err := LoadMetadata(dir)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "second", got.Name)
	assert.Equal(t, int64(2), got.Seed)
}
