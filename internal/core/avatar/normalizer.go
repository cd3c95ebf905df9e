package avatar

import (
	"encoding/binary"
	"math"
	"sync"

	"cogentcore.org/core/math32"
	"github.com/cespare/xxhash/v2"

	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

// NormalizeOptions controls how a raw model is wrapped into a human-scale
// container.
type NormalizeOptions struct {
	// TargetHeight is the desired world height. Zero disables scaling.
	TargetHeight float32 `yaml:"target_height"`
	// CenterToGround places the model's feet at the pivot origin instead of
	// centering it vertically.
	CenterToGround bool `yaml:"center_to_ground"`
}

// DefaultNormalizeOptions targets a 1.8 world-unit human with feet on the
// ground plane.
func DefaultNormalizeOptions() NormalizeOptions {
	return NormalizeOptions{TargetHeight: 1.8, CenterToGround: true}
}

// Container is the normalization wrapper around a raw model. The pivot holds
// the centering offset and the container root holds the overall scale; the
// two are kept separate so offset and scale compose correctly.
type Container struct {
	Root  *scene.Node
	Pivot *scene.Node

	PivotOffset math32.Vector3
	ScaleFactor float32
	Bounds      math32.Box3
}

// Normalizer wraps raw models of unknown scale and pivot into containers
// normalized to a target height. Results are cached per (avatar id, options)
// pair; the cached container is exclusively owned by the instance that
// created it until teardown.
type Normalizer struct {
	mu     sync.Mutex
	cache  map[uint64]*Container
	logger log.Log
}

// NewNormalizer creates a normalizer with an empty cache.
func NewNormalizer(logger log.Log) *Normalizer {
	return &Normalizer{
		cache:  make(map[uint64]*Container),
		logger: logger.With(log.String("component", "normalizer")),
	}
}

// Normalize wraps model in a pivot/container pair: the pivot offsets the
// model so it is centered on the horizontal plane with its feet at the local
// origin, and the container carries a uniform scale of targetHeight divided
// by the model's bounding-box height. A nil model fails with ErrMissingModel
// and the caller may retry once a model arrives. A degenerate bounding box is
// non-fatal: scaling is skipped with a warning and the avatar renders at
// native scale.
func (n *Normalizer) Normalize(avatarID string, model *scene.Node, opts NormalizeOptions) (*Container, error) {
	if model == nil {
		n.logger.Error("normalize failed", log.String("avatar_id", avatarID), log.Error(ErrMissingModel))
		return nil, ErrMissingModel
	}

	key := cacheKey(avatarID, opts)
	n.mu.Lock()
	if c, ok := n.cache[key]; ok {
		n.mu.Unlock()
		return c, nil
	}
	n.mu.Unlock()

	box := model.BoundingBox()
	if box.IsEmpty() {
		n.logger.Error("normalize failed", log.String("avatar_id", avatarID), log.Error(ErrMissingModel))
		return nil, ErrMissingModel
	}

	center := box.Center()
	size := box.Size()

	pivot := scene.NewNode(avatarID + "-pivot")
	if opts.CenterToGround {
		pivot.SetPos(-center.X, -box.Min.Y, -center.Z)
	} else {
		pivot.SetPos(-center.X, -center.Y, -center.Z)
	}

	root := scene.NewNode(avatarID + "-container")
	pivot.AddChild(model)
	root.AddChild(pivot)

	scaleFactor := float32(1)
	switch {
	case opts.TargetHeight <= 0:
		// scaling not requested
	case size.Y <= 0:
		n.logger.Warn("skipping scale",
			log.String("avatar_id", avatarID),
			log.Error(ErrDegenerateBounds))
	default:
		scaleFactor = opts.TargetHeight / size.Y
		root.SetUniformScale(scaleFactor)
	}

	c := &Container{
		Root:        root,
		Pivot:       pivot,
		PivotOffset: pivot.Pos,
		ScaleFactor: scaleFactor,
		Bounds:      box,
	}

	n.mu.Lock()
	n.cache[key] = c
	n.mu.Unlock()

	n.logger.Info("model normalized",
		log.String("avatar_id", avatarID),
		log.Float32("height", size.Y),
		log.Float32("scale_factor", scaleFactor))
	return c, nil
}

// Evict drops the cached container for an avatar so a later instance
// rebuilds it from scratch. Called during teardown after disposal.
func (n *Normalizer) Evict(avatarID string, opts NormalizeOptions) {
	n.mu.Lock()
	defer n.mu.Unlock()
	delete(n.cache, cacheKey(avatarID, opts))
}

func cacheKey(avatarID string, opts NormalizeOptions) uint64 {
	d := xxhash.New()
	_, _ = d.WriteString(avatarID)
	var buf [5]byte
	binary.LittleEndian.PutUint32(buf[:4], math.Float32bits(opts.TargetHeight))
	if opts.CenterToGround {
		buf[4] = 1
	}
	_, _ = d.Write(buf[:])
	return d.Sum64()
}
