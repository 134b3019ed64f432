package world

import "github.com/oriumgames/alphacore/internal/base36"

// base36Shard returns the directory name for one axis of the 64x64 shard
// grid: base36(coord & 63) (spec.md §8 scenario 4).
func base36Shard(coord int32) string {
	return base36.Encode(int64(coord & 63))
}

// base36Signed returns the base36 encoding of the full signed coordinate,
// used for the chunk file's own name.
func base36Signed(coord int32) string {
	return base36.Encode(int64(coord))
}
