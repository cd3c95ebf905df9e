// Package asset defines the read-only avatar asset surface the core consumes:
// an opaque model node plus its skeletal animation clips. Assets are owned by
// the loader that produced them; the core never mutates clip data in place.
package asset

import (
	"context"
	"errors"

	"github.com/avatarsync/avatarsync/internal/core/scene"
)

var ErrAssetNotFound = errors.New("asset not found")

// Property identifies which transform component a track animates.
type Property string

const (
	PropertyPosition Property = "position"
	PropertyRotation Property = "rotation"
	PropertyScale    Property = "scale"
)

// Track is a keyframed animation curve targeting one property of one node.
// Values is a flat keyframe array; Stride is the number of floats per key
// (3 for position/scale, 4 for quaternion rotation).
type Track struct {
	Node     string
	Property Property
	Times    []float32
	Values   []float32
	Stride   int
}

// Clip is a named skeletal animation sequence composed of per-property tracks.
type Clip struct {
	Name     string
	Duration float32
	Tracks   []Track
}

// TrackCount returns the number of tracks targeting the given property.
func (c *Clip) TrackCount(p Property) int {
	n := 0
	for _, t := range c.Tracks {
		if t.Property == p {
			n++
		}
	}
	return n
}

// Asset is a loaded avatar: the raw model and its clips, keyed by a stable
// avatar identity.
type Asset struct {
	ID    string
	Model *scene.Node
	Clips []*Clip
}

// Loader resolves avatar identities to loaded assets.
type Loader interface {
	Load(ctx context.Context, id string) (*Asset, error)
}

// StaticLoader serves a fixed set of preloaded assets. It backs tests and the
// built-in demo avatar; production deployments plug in a real format loader.
type StaticLoader struct {
	assets map[string]*Asset
}

func NewStaticLoader(assets ...*Asset) *StaticLoader {
	m := make(map[string]*Asset, len(assets))
	for _, a := range assets {
		m[a.ID] = a
	}
	return &StaticLoader{assets: m}
}

func (l *StaticLoader) Load(_ context.Context, id string) (*Asset, error) {
	a, ok := l.assets[id]
	if !ok {
		return nil, ErrAssetNotFound
	}
	return a, nil
}
