package world

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/pkg/errors"
	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

// PlayerData is the subset of per-player state persisted across sessions:
// spawn/last position and held inventory slots.
type PlayerData struct {
	Position cube.Pos
	Inventory []InventorySlot
}

// InventorySlot mirrors the wire-level inventory_sync shape (tag 5): an
// empty slot has ID == 0xFFFF.
type InventorySlot struct {
	ID     uint16
	Count  uint8
	Damage uint16
}

type playerTag struct {
	X, Y, Z   int32
	Inventory []slotTag
}

type slotTag struct {
	ID     uint16
	Count  uint8
	Damage uint16
}

func playerPath(dir, username string) string {
	return filepath.Join(dir, "players", username+".dat")
}

// LoadPlayer reads players/<username>.dat. A missing file yields a
// zero-value PlayerData and ok == false, signalling "never seen before".
func LoadPlayer(dir, username string) (PlayerData, bool, error) {
	data, err := os.ReadFile(playerPath(dir, username))
	if err != nil {
		if os.IsNotExist(err) {
			return PlayerData{}, false, nil
		}
		return PlayerData{}, false, errors.Wrapf(err, "read player %q", username)
	}

	var tag playerTag
	if err := nbt.NewDecoder(bytes.NewReader(data)).Decode(&tag); err != nil {
		return PlayerData{}, false, errors.Wrapf(err, "decode player %q", username)
	}

	inv := make([]InventorySlot, len(tag.Inventory))
	for i, s := range tag.Inventory {
		inv[i] = InventorySlot{ID: s.ID, Count: s.Count, Damage: s.Damage}
	}
	return PlayerData{
		Position:  cube.Pos{int(tag.X), int(tag.Y), int(tag.Z)},
		Inventory: inv,
	}, true, nil
}

// SavePlayer writes players/<username>.dat, creating the players directory
// if necessary.
func SavePlayer(dir, username string, p PlayerData) error {
	tag := playerTag{X: int32(p.Position.X()), Y: int32(p.Position.Y()), Z: int32(p.Position.Z())}
	tag.Inventory = make([]slotTag, len(p.Inventory))
	for i, s := range p.Inventory {
		tag.Inventory[i] = slotTag{ID: s.ID, Count: s.Count, Damage: s.Damage}
	}

	buf := new(bytes.Buffer)
	if err := nbt.NewEncoder(buf).Encode(tag); err != nil {
		return errors.Wrapf(err, "encode player %q", username)
	}

	path := playerPath(dir, username)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrap(err, "create players directory")
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, buf.Bytes(), 0o644); err != nil {
		return errors.Wrapf(err, "write player %q", username)
	}
	return errors.Wrapf(os.Rename(tmp, path), "finalize player %q", username)
}

// LoadPlayer reads username's persisted state from this store's world
// directory, for use on login (spec.md §4.E's load_player).
func (s *Store) LoadPlayer(username string) (PlayerData, bool, error) {
	return LoadPlayer(s.dir, username)
}

// SavePlayer writes username's state into this store's world directory,
// for use on disconnect (spec.md §4.E's save_player).
func (s *Store) SavePlayer(username string, p PlayerData) error {
	return SavePlayer(s.dir, username, p)
}
