package world

import "github.com/oriumgames/alphacore/internal/voxel"

// Populator fills freshly-created, unpopulated chunks with terrain. The
// store invokes every registered Populator, in order, exactly once per
// chunk coordinate (spec.md §4.E, §4.G).
type Populator interface {
	Populate(seed int64, c *voxel.Chunk)
}

// Season applies a post-population terrain transform — e.g. snow cover —
// driven by the world's current season setting (spec.md §4.G).
type Season interface {
	Transform(c *voxel.Chunk)
}

// EntityFactory creates the entities that accompany a freshly populated
// chunk (spec.md §4.G). Most populated chunks have none; a factory is free
// to return nil.
type EntityFactory interface {
	Entities(seed int64, c *voxel.Chunk) []map[string]any
}
