// Package world implements the chunk store: the two-tier cache, disk
// persistence, and populate pipeline described in spec.md §4.E-G. It is
// grounded on the teacher's Provider (background save channel, dirty
// tracking, compression) generalised to Alpha's flat sharded chunk layout
// and the weak/strong two-tier cache spec.md requires.
package world

import (
	"context"
	"fmt"
	"math/rand/v2"
	"os"
	"path/filepath"
	"sync"
	"time"
	"weak"

	"github.com/benbjohnson/clock"
	"github.com/df-mc/dragonfly/server/block/cube"
	"github.com/klauspost/compress/zstd"
	"github.com/pkg/errors"
	"golang.org/x/sync/singleflight"

	"github.com/oriumgames/alphacore/internal/voxel"
)

var (
	chunkEncoder, _ = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	chunkDecoder, _ = zstd.NewReader(nil)
)

// Coord identifies a chunk by chunk-grid coordinate (not block coordinate).
type Coord struct{ X, Z int32 }

func (c Coord) key() string { return fmt.Sprintf("%d,%d", c.X, c.Z) }

// Store is the two-tier chunk cache plus disk persistence and the populate
// pipeline. The clean tier holds weak references: entries survive only as
// long as some external holder (a session, the flush loop) keeps the chunk
// alive. The dirty tier holds strong references and is the only place a
// chunk is guaranteed to still be reachable until it is flushed to disk.
type Store struct {
	dir  string
	seed int64

	mu    sync.Mutex
	clean map[Coord]weak.Pointer[voxel.Chunk]
	dirty map[Coord]*voxel.Chunk

	saving bool // when false ("save_off"), the clean tier holds strong refs instead

	populators []Populator
	season     Season
	seasonName string
	entities   EntityFactory

	meta Metadata

	group singleflight.Group

	clock      clock.Clock
	flushEvery time.Duration
}

// Option configures a Store at construction time.
type Option func(*Store)

// WithClock overrides the ticker clock, for deterministic tests.
func WithClock(c clock.Clock) Option { return func(s *Store) { s.clock = c } }

// WithFlushInterval overrides the flush loop's tick period (default 1s,
// matching spec.md's "sort_chunks" cadence).
func WithFlushInterval(d time.Duration) Option { return func(s *Store) { s.flushEvery = d } }

// WithPopulators registers the populator pipeline, run in order on every
// freshly created chunk.
func WithPopulators(p ...Populator) Option { return func(s *Store) { s.populators = p } }

// WithSeason sets the season transform applied after population.
func WithSeason(season Season) Option { return func(s *Store) { s.season = season } }

// WithSeasonName records the season's name in level.dat (distinct from the
// Season behavior set via WithSeason, which has no string identity of its
// own).
func WithSeasonName(name string) Option { return func(s *Store) { s.seasonName = name } }

// WithEntityFactory sets the entity factory consulted after population.
func WithEntityFactory(f EntityFactory) Option { return func(s *Store) { s.entities = f } }

// defaultSpawn is used when a world has no level.dat to source a spawn
// point from.
var defaultSpawn = cube.Pos{0, 64, 0}

// NewStore opens (or creates) a chunk store rooted at dir: spec.md §4.F's
// world-construction contract. It ensures dir exists, loads level.dat if
// present (its seed and spawn then take precedence over the seed argument),
// defaults an absent seed to a random non-negative 63-bit integer, and
// always rewrites a canonicalised level.dat before returning.
func NewStore(dir string, seed int64, opts ...Option) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, errors.Wrap(err, "create world directory")
	}
	s := &Store{
		dir:        dir,
		seed:       seed,
		clean:      map[Coord]weak.Pointer[voxel.Chunk]{},
		dirty:      map[Coord]*voxel.Chunk{},
		saving:     true,
		clock:      clock.New(),
		flushEvery: time.Second,
	}
	for _, opt := range opts {
		opt(s)
	}

	loaded, existed, err := LoadMetadata(dir)
	if err != nil {
		return nil, err
	}
	if existed {
		s.seed = loaded.Seed
		s.meta = loaded
	} else {
		if s.seed == 0 {
			s.seed = rand.Int64() // non-negative 63-bit, per spec.md §4.F
		}
		s.meta = Metadata{Seed: s.seed, Spawn: defaultSpawn}
	}
	if s.seasonName != "" {
		s.meta.Season = s.seasonName
	}
	s.meta.LastPlayed = s.clock.Now().Unix()
	if err := SaveMetadata(dir, s.meta); err != nil {
		return nil, err
	}

	return s, nil
}

// Metadata returns the world's canonicalised level.dat contents, as loaded
// or defaulted at construction time.
func (s *Store) Metadata() Metadata { return s.meta }

// RequestChunk returns the chunk at (x, z), loading it from disk or running
// the populate pipeline if necessary. At most one load/populate is ever
// in flight per coordinate (spec.md §4.E), enforced via singleflight.
func (s *Store) RequestChunk(ctx context.Context, x, z int32) (*voxel.Chunk, error) {
	coord := Coord{x, z}

	if c := s.fromCache(coord); c != nil {
		return c, nil
	}

	v, err, _ := s.group.Do(coord.key(), func() (any, error) {
		if c := s.fromCache(coord); c != nil {
			return c, nil
		}

		c := voxel.New(x, z)
		loaded, err := s.loadFromDisk(coord, c)
		if err != nil {
			return nil, err
		}
		if !loaded {
			s.populate(c)
			c.Dirty = true
		}
		c.ClearDamage()
		s.insertDirty(coord, c)
		return c, nil
	})
	if err != nil {
		return nil, err
	}
	return v.(*voxel.Chunk), nil
}

func (s *Store) fromCache(coord Coord) *voxel.Chunk {
	s.mu.Lock()
	defer s.mu.Unlock()

	if c, ok := s.dirty[coord]; ok {
		return c
	}
	if wp, ok := s.clean[coord]; ok {
		if c := wp.Value(); c != nil {
			return c
		}
		delete(s.clean, coord)
	}
	return nil
}

func (s *Store) insertDirty(coord Coord, c *voxel.Chunk) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.dirty[coord] = c
}

func (s *Store) populate(c *voxel.Chunk) {
	for _, p := range s.populators {
		p.Populate(s.seed, c)
	}
	c.Regenerate()
	if s.season != nil {
		s.season.Transform(c)
	}
	if s.entities != nil {
		c.Entities = append(c.Entities, s.entities.Entities(s.seed, c)...)
	}
	c.TerrainPopulated = true
}

// shardPath returns the on-disk path for a chunk coordinate, using the
// classic 64x64 base-36 shard layout (spec.md §8 scenario 4).
func (s *Store) shardPath(coord Coord) string {
	dir1 := base36Shard(coord.X)
	dir2 := base36Shard(coord.Z)
	name := fmt.Sprintf("c.%s.%s.dat", base36Signed(coord.X), base36Signed(coord.Z))
	return filepath.Join(s.dir, dir1, dir2, name)
}

func (s *Store) loadFromDisk(coord Coord, c *voxel.Chunk) (bool, error) {
	raw, err := os.ReadFile(s.shardPath(coord))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, errors.Wrapf(err, "read chunk (%d,%d)", coord.X, coord.Z)
	}
	data, err := chunkDecoder.DecodeAll(raw, nil)
	if err != nil {
		// CorruptChunk: treated as "file absent" (spec.md §7) so the chunk
		// is freshly populated and the corrupt file gets overwritten.
		return false, nil
	}
	if err := c.Load(data); err != nil {
		return false, nil
	}
	return true, nil
}

// SaveChunk writes c to disk unconditionally and clears its dirty flag.
func (s *Store) SaveChunk(c *voxel.Chunk) error {
	path := s.shardPath(Coord{c.X, c.Z})
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return errors.Wrapf(err, "create shard dir for chunk (%d,%d)", c.X, c.Z)
	}
	data, err := c.Save()
	if err != nil {
		return errors.Wrapf(err, "encode chunk (%d,%d)", c.X, c.Z)
	}
	compressed := chunkEncoder.EncodeAll(data, make([]byte, 0, len(data)))
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, compressed, 0o644); err != nil {
		return errors.Wrapf(err, "write chunk (%d,%d)", c.X, c.Z)
	}
	if err := os.Rename(tmp, path); err != nil {
		return errors.Wrapf(err, "finalize chunk (%d,%d)", c.X, c.Z)
	}
	c.Dirty = false
	return nil
}

// Run starts the flush loop, which ticks at flushEvery and writes back at
// most one dirty chunk per tick (spec.md's "sort_chunks" invariant: no
// chunk is ever lost, but a single tick never blocks on more than one
// write). It blocks until ctx is cancelled.
func (s *Store) Run(ctx context.Context) {
	ticker := s.clock.Ticker(s.flushEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.flushOnce()
		}
	}
}

func (s *Store) flushOnce() {
	s.mu.Lock()
	union := make(map[Coord]*voxel.Chunk, len(s.dirty)+len(s.clean))
	for coord, c := range s.dirty {
		union[coord] = c
	}
	for coord, wp := range s.clean {
		if c := wp.Value(); c != nil {
			union[coord] = c
		}
	}
	s.dirty = map[Coord]*voxel.Chunk{}
	s.clean = map[Coord]weak.Pointer[voxel.Chunk]{}
	saving := s.saving
	s.mu.Unlock()

	first := true
	for coord, c := range union {
		if c.Dirty && saving && first {
			first = false
			if err := s.SaveChunk(c); err != nil {
				// A write failure demotes the chunk back to dirty so the
				// next tick retries it; the chunk is never dropped.
				s.mu.Lock()
				s.dirty[coord] = c
				s.mu.Unlock()
				continue
			}
		}
		s.reinsertClean(coord, c, saving)
	}
}

func (s *Store) reinsertClean(coord Coord, c *voxel.Chunk, saving bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if c.Dirty {
		s.dirty[coord] = c
		return
	}
	if saving {
		s.clean[coord] = weak.Make(c)
	} else {
		// save_off: keep a strong reference so backup tooling can walk the
		// on-disk tree without the cache evicting entries mid-walk.
		s.dirty[coord] = c
	}
}

// SaveOff disables the background flush from writing new chunks to disk,
// and pins the clean tier's contents with strong references so external
// backup tooling can safely read the directory tree.
func (s *Store) SaveOff() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saving = false
	for coord, wp := range s.clean {
		if c := wp.Value(); c != nil {
			s.dirty[coord] = c
		}
	}
	s.clean = map[Coord]weak.Pointer[voxel.Chunk]{}
}

// SaveOn re-enables background flushing.
func (s *Store) SaveOn() {
	s.mu.Lock()
	s.saving = true
	s.mu.Unlock()
}
