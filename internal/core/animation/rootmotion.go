// Package animation hosts the clip-side half of the avatar pipeline: stripping
// authored root motion out of imported clips, a mixer that plays and
// crossfades actions, and the selector state machine that picks which clip to
// run from the current movement state.
package animation

import "github.com/avatarsync/avatarsync/internal/core/asset"

// StripRootMotion returns new clips with every translation track removed.
// World translation comes from the movement integrator; translation baked into
// a clip would compound with it and drift the avatar. Rotation and scale
// tracks pass through untouched in count and content, and clip name and
// duration are preserved exactly.
//
// Known limitation: translation is dropped on every animated node, including
// non-root bones that may legitimately need local translation (prop
// attachments); there is no exception mechanism.
func StripRootMotion(clips []*asset.Clip) []*asset.Clip {
	if clips == nil {
		return nil
	}
	out := make([]*asset.Clip, 0, len(clips))
	for _, c := range clips {
		stripped := &asset.Clip{
			Name:     c.Name,
			Duration: c.Duration,
			Tracks:   make([]asset.Track, 0, len(c.Tracks)),
		}
		for _, t := range c.Tracks {
			if t.Property == asset.PropertyPosition {
				continue
			}
			stripped.Tracks = append(stripped.Tracks, t)
		}
		out = append(out, stripped)
	}
	return out
}
