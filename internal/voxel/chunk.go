// Package voxel implements the chunk value: the in-memory representation of
// one 16x128x16 voxel column group that spec.md's component D treats as an
// external collaborator. The store depends only on the contract exercised
// here (dirty/populated flags, per-player damage log, height queries).
package voxel

import (
	"bytes"
	"fmt"

	"github.com/sandertv/gophertunnel/minecraft/nbt"
)

const (
	// Width is the chunk's X and Z extent in blocks.
	Width = 16
	// Height is the chunk's Y extent in blocks (classic Alpha world height).
	Height = 128

	blockVolume = Width * Height * Width
	planeArea   = Width * Width
)

// Chunk is one chunk-coordinate column of blocks, metadata nibbles, lighting
// planes and a heightmap, plus the bookkeeping the store needs: dirty and
// terrain-populated flags, and a per-player damage log that an external
// session layer drains to compute incremental diffs to ship to clients.
type Chunk struct {
	X, Z int32

	Blocks     [blockVolume]byte // block IDs, Y-major then Z then X (classic Alpha layout)
	Data       [blockVolume / 2]byte
	BlockLight [blockVolume / 2]byte
	SkyLight   [blockVolume / 2]byte
	HeightMap  [planeArea]byte // per (x,z) column: Y of the highest non-air block + 1 (0 if all air)

	TileEntities []map[string]any
	Entities     []map[string]any

	// Dirty is true when the chunk has unsaved changes; the store's flush
	// loop writes it back to disk and clears the flag.
	Dirty bool
	// TerrainPopulated is spec.md's "populated": true once the populator
	// pipeline (or a successful load of an already-populated chunk) has run.
	TerrainPopulated bool

	damage map[string]map[int]struct{}
}

// New constructs a fresh, empty, unpopulated chunk at the given coordinate.
func New(x, z int32) *Chunk {
	return &Chunk{X: x, Z: z, damage: map[string]map[int]struct{}{}}
}

func index(x, y, z int) int {
	return y + z*Height + x*Height*Width
}

// BlockAt returns the block ID at the given chunk-local coordinate.
func (c *Chunk) BlockAt(x, y, z int) byte {
	if x < 0 || x >= Width || z < 0 || z >= Width || y < 0 || y >= Height {
		return 0
	}
	return c.Blocks[index(x, y, z)]
}

// SetBlockAt sets the block ID at the given chunk-local coordinate, marks
// the chunk dirty, and updates the heightmap for that column.
func (c *Chunk) SetBlockAt(x, y, z int, id byte) {
	if x < 0 || x >= Width || z < 0 || z >= Width || y < 0 || y >= Height {
		return
	}
	c.Blocks[index(x, y, z)] = id
	c.Dirty = true
	c.updateHeight(x, z)
}

// HeightAt returns the Y of the highest non-air block in column (x, z), or
// -1 if the column is entirely air. This is spec.md's "block-column height
// queries".
func (c *Chunk) HeightAt(x, z int) int {
	if x < 0 || x >= Width || z < 0 || z >= Width {
		return -1
	}
	return int(c.HeightMap[x*Width+z]) - 1
}

func (c *Chunk) updateHeight(x, z int) {
	h := byte(0)
	for y := Height - 1; y >= 0; y-- {
		if c.Blocks[index(x, y, z)] != 0 {
			h = byte(y + 1)
			break
		}
	}
	c.HeightMap[x*Width+z] = h
}

// Regenerate recomputes the heightmap from the block plane. The store calls
// this once after all populator stages have filled Blocks, matching the
// original chunk lifecycle's "chunk.regenerate()" step (spec.md §4.E step
// 6).
func (c *Chunk) Regenerate() {
	for x := 0; x < Width; x++ {
		for z := 0; z < Width; z++ {
			c.updateHeight(x, z)
		}
	}
}

// MarkDamage records that chunk-local coordinate (x, y, z) changed, for the
// named player's damage log.
func (c *Chunk) MarkDamage(player string, x, y, z int) {
	set, ok := c.damage[player]
	if !ok {
		set = map[int]struct{}{}
		c.damage[player] = set
	}
	set[index(x, y, z)] = struct{}{}
}

// DamageFor returns a copy of the damaged-position set for player, as
// packed (x,y,z) indices understood by index().
func (c *Chunk) DamageFor(player string) []int {
	set := c.damage[player]
	out := make([]int, 0, len(set))
	for idx := range set {
		out = append(out, idx)
	}
	return out
}

// ClearDamage empties the per-player damage log. Called once a chunk is
// freshly loaded/populated: "anybody loading any part of this chunk will
// want the entire thing" (original_source/bravo/world.py).
func (c *Chunk) ClearDamage() {
	c.damage = map[string]map[int]struct{}{}
}

// nbtTag is the named-tag shaped view of a Chunk used for persistence.
type nbtTag struct {
	XPos             int32
	ZPos             int32
	Blocks           []byte
	Data             []byte
	SkyLight         []byte
	BlockLight       []byte
	HeightMap        []byte
	TerrainPopulated byte
	Entities         []map[string]any
	TileEntities     []map[string]any
}

// Save encodes the chunk into named-tag bytes for on-disk storage.
func (c *Chunk) Save() ([]byte, error) {
	tag := nbtTag{
		XPos:             c.X,
		ZPos:             c.Z,
		Blocks:           c.Blocks[:],
		Data:             c.Data[:],
		SkyLight:         c.SkyLight[:],
		BlockLight:       c.BlockLight[:],
		HeightMap:        c.HeightMap[:],
		TerrainPopulated: boolByte(c.TerrainPopulated),
		Entities:         c.Entities,
		TileEntities:     c.TileEntities,
	}

	buf := new(bytes.Buffer)
	if err := nbt.NewEncoder(buf).Encode(tag); err != nil {
		return nil, fmt.Errorf("encode chunk (%d,%d): %w", c.X, c.Z, err)
	}
	return buf.Bytes(), nil
}

// Load decodes named-tag bytes produced by Save back into the chunk,
// overwriting its contents in place.
func (c *Chunk) Load(data []byte) error {
	var tag nbtTag
	if err := nbt.NewDecoder(bytes.NewReader(data)).Decode(&tag); err != nil {
		return fmt.Errorf("decode chunk: %w", err)
	}

	c.X = tag.XPos
	c.Z = tag.ZPos
	copy(c.Blocks[:], tag.Blocks)
	copy(c.Data[:], tag.Data)
	copy(c.SkyLight[:], tag.SkyLight)
	copy(c.BlockLight[:], tag.BlockLight)
	copy(c.HeightMap[:], tag.HeightMap)
	c.TerrainPopulated = tag.TerrainPopulated != 0
	c.Entities = tag.Entities
	c.TileEntities = tag.TileEntities
	if c.damage == nil {
		c.damage = map[string]map[int]struct{}{}
	}
	return nil
}

func boolByte(b bool) byte {
	if b {
		return 1
	}
	return 0
}
