// Package populate implements the concrete populator and season stages
// consumed by internal/world's store (SPEC_FULL.md §6.3): a superflat
// terrain profile, deterministic ore scatter, and a seasonal surface-block
// transform, in the "populator pipeline run with the world seed" shape
// spec.md describes.
package populate

import (
	"math/rand/v2"

	"github.com/oriumgames/alphacore/internal/voxel"
)

const (
	blockAir     = 0
	blockStone   = 1
	blockDirt    = 3
	blockGrass   = 2
	blockBedrock = 7
	blockOre     = 15 // iron ore
	blockSnow    = 78
)

// Flatland populates a chunk with a minimal superflat profile: bedrock at
// Y=0, stone up to a configurable height, topped with dirt and grass. It
// is the default populator for servers that don't need real terrain.
type Flatland struct {
	StoneHeight int
}

// Populate implements world.Populator.
func (f Flatland) Populate(seed int64, c *voxel.Chunk) {
	stoneHeight := f.StoneHeight
	if stoneHeight <= 0 {
		stoneHeight = 4
	}
	for x := 0; x < voxel.Width; x++ {
		for z := 0; z < voxel.Width; z++ {
			c.SetBlockAt(x, 0, z, blockBedrock)
			for y := 1; y < stoneHeight; y++ {
				c.SetBlockAt(x, y, z, blockStone)
			}
			c.SetBlockAt(x, stoneHeight, z, blockDirt)
			c.SetBlockAt(x, stoneHeight+1, z, blockGrass)
		}
	}
}

// Ore scatters a deterministic, seed-derived sprinkling of ore blocks
// through the stone layer. Determinism comes from seeding math/rand/v2's
// PCG generator with the world seed combined with the chunk coordinate, so
// the same chunk always generates identical ore regardless of load order.
type Ore struct {
	VeinsPerChunk int
	MinY, MaxY    int
}

// Populate implements world.Populator.
func (o Ore) Populate(seed int64, c *voxel.Chunk) {
	veins := o.VeinsPerChunk
	if veins <= 0 {
		veins = 6
	}
	minY, maxY := o.MinY, o.MaxY
	if maxY <= minY {
		minY, maxY = 1, 40
	}

	r := rand.New(rand.NewPCG(uint64(seed), chunkSeedMix(c.X, c.Z)))
	for i := 0; i < veins; i++ {
		x := r.IntN(voxel.Width)
		z := r.IntN(voxel.Width)
		y := minY + r.IntN(maxY-minY)
		if c.BlockAt(x, y, z) == blockStone {
			c.SetBlockAt(x, y, z, blockOre)
		}
	}
}

func chunkSeedMix(x, z int32) uint64 {
	return uint64(uint32(x))<<32 | uint64(uint32(z))
}

// NullSeason applies no terrain transform: the default season.
type NullSeason struct{}

// Transform implements world.Season.
func (NullSeason) Transform(*voxel.Chunk) {}

// SnowSeason caps every column's topmost block with a layer of snow.
type SnowSeason struct{}

// Transform implements world.Season.
func (SnowSeason) Transform(c *voxel.Chunk) {
	for x := 0; x < voxel.Width; x++ {
		for z := 0; z < voxel.Width; z++ {
			h := c.HeightAt(x, z)
			if h >= 0 && h+1 < voxel.Height && c.BlockAt(x, h+1, z) == blockAir {
				c.SetBlockAt(x, h+1, z, blockSnow)
			}
		}
	}
}
