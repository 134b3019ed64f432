package world

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/pkg/errors"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// Metadata is the world's level.dat contents: spawn point, seed and season
// name, plus the supplemented Name/Time/LastPlayed fields (SPEC_FULL.md
// §4.F'). Time is persisted as loaded; nothing in this module advances it
// or sends it as a tag-4 time packet.
type Metadata struct {
	Name       string
	Seed       int64
	Spawn      cube.Pos
	Season     string
	Time       uint64
	LastPlayed int64
}

type metadataTag struct {
	Name       string
	Seed       int64
	SpawnX     int32
	SpawnY     int32
	SpawnZ     int32
	Season     string
	Time       uint64
	LastPlayed int64
}

func levelPath(dir string) string { return filepath.Join(dir, "level.dat") }

// LoadMetadata reads level.dat from dir. A missing file is not an error:
// it reports ok=false and the caller is expected to fill in defaults (a
// random seed, a default spawn) before the first save.
func LoadMetadata(dir string) (m Metadata, ok bool, err error) {
	data, err := os.ReadFile(levelPath(dir))
	if err != nil {
		if os.IsNotExist(err) {
			return Metadata{}, false, nil
		}
		return Metadata{}, false, errors.Wrap(err, "read level.dat")
	}

	var tag metadataTag
	if err := nbt.NewDecoder(bytes.NewReader(data)).Decode(&tag); err != nil {
		return Metadata{}, false, errors.Wrap(err, "decode level.dat")
	}
	return Metadata{
		Name:       tag.Name,
		Seed:       tag.Seed,
		Spawn:      cube.Pos{int(tag.SpawnX), int(tag.SpawnY), int(tag.SpawnZ)},
		Season:     tag.Season,
		Time:       tag.Time,
		LastPlayed: tag.LastPlayed,
	}, true, nil
}

// SaveMetadata always (re)writes level.dat in full: spec.md resolves the
// "preserve unknown fields vs. overwrite" open question in favour of
// overwrite.
func SaveMetadata(dir string, m Metadata) error {
	tag := metadataTag{
		Name:       m.Name,
		Seed:       m.Seed,
		SpawnX:     int32(m.Spawn.X()),
		SpawnY:     int32(m.Spawn.Y()),
		SpawnZ:     int32(m.Spawn.Z()),
		Season:     m.Season,
		Time:       m.Time,
		LastPlayed: m.LastPlayed,
	}

	buf := new(bytes.Buffer)
	if err := nbt.NewEncoder(buf).Encode(tag); err != nil {
		return errors.Wrap(err, "encode level.dat")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return errors.Wrap(err, "create world directory")
	}
	tmp := levelPath(dir) + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrap(err, "write level.dat")
	}
	return errors.Wrap(os.Rename(tmp, levelPath(dir)), "finalize level.dat")
}
