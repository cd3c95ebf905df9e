package animation

import (
	"strings"

	"github.com/avatarsync/avatarsync/internal/core/asset"
	"github.com/avatarsync/avatarsync/internal/core/movement"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

// DefaultFadeDuration is the crossfade length applied when a clip switch is
// triggered.
const DefaultFadeDuration = 0.2

// Mode is the selector's semantic state. Running is a clip-name preference
// inside ModeLocomotion, not a third state.
type Mode int

const (
	ModeStationary Mode = iota
	ModeLocomotion
)

// TagTable maps movement states to ordered candidate clip-name tags. Matching
// rules are data, not control flow: a clip matches a tag when its lowercased
// name contains the tag. Ambiguity resolves to the first match in clip-list
// order.
type TagTable struct {
	Run  []string `yaml:"run"`
	Walk []string `yaml:"walk"`
	Idle []string `yaml:"idle"`
}

// DefaultTagTable mirrors the common naming of exported avatar clip sets.
func DefaultTagTable() TagTable {
	return TagTable{
		Run:  []string{"run"},
		Walk: []string{"walk", "move", "locomotion", "forward"},
		Idle: []string{"idle", "stand", "default"},
	}
}

func (t TagTable) withDefaults() TagTable {
	d := DefaultTagTable()
	if len(t.Run) == 0 {
		t.Run = d.Run
	}
	if len(t.Walk) == 0 {
		t.Walk = d.Walk
	}
	if len(t.Idle) == 0 {
		t.Idle = d.Idle
	}
	return t
}

// Selector chooses which stripped clip should be active for the current
// movement state and drives the mixer's crossfades. With an empty clip set it
// is a no-op.
type Selector struct {
	mixer Mixer
	clips []*asset.Clip
	table TagTable
	fade  float32

	mode    Mode
	current string

	logger log.Log
}

// SelectorOption customizes a Selector.
type SelectorOption func(*Selector)

// WithFadeDuration overrides the 0.2s crossfade.
func WithFadeDuration(d float32) SelectorOption {
	return func(s *Selector) {
		if d > 0 {
			s.fade = d
		}
	}
}

// WithTagTable overrides the default matching table.
func WithTagTable(t TagTable) SelectorOption {
	return func(s *Selector) {
		s.table = t.withDefaults()
	}
}

// NewSelector creates a selector over a fixed clip set.
func NewSelector(mixer Mixer, clips []*asset.Clip, logger log.Log, opts ...SelectorOption) *Selector {
	s := &Selector{
		mixer:  mixer,
		clips:  clips,
		table:  DefaultTagTable(),
		fade:   DefaultFadeDuration,
		logger: logger.With(log.String("component", "animation")),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Mode returns the current semantic state.
func (s *Selector) Mode() Mode { return s.mode }

// Current returns the name of the clip playing now, or "" before the first
// resolution.
func (s *Selector) Current() string { return s.current }

// Update resolves the clip for the given movement state and crossfades to it
// only when the resolved name differs from the one already playing; an
// unchanged resolution never re-issues a fade.
func (s *Selector) Update(st movement.State) {
	if len(s.clips) == 0 {
		return
	}

	if st.IsMoving {
		s.mode = ModeLocomotion
	} else {
		s.mode = ModeStationary
	}

	next := s.resolve(st.IsMoving, st.IsRunning)
	if next == nil || next.Name == s.current {
		return
	}

	if s.current != "" {
		if prev := s.clipByName(s.current); prev != nil {
			s.mixer.ClipAction(prev).FadeOut(s.fade)
		}
	}
	s.mixer.ClipAction(next).Reset().SetLoop(LoopRepeat).FadeIn(s.fade).Play()

	s.logger.Debug("clip switch",
		log.String("from", s.current),
		log.String("to", next.Name),
		log.Bool("running", st.IsRunning))
	s.current = next.Name
}

// resolve implements the candidate order of the tag table. Fallbacks: when
// moving and nothing matches, the first clip not matching an idle tag; when
// stationary, the first clip in list order.
func (s *Selector) resolve(moving, running bool) *asset.Clip {
	if moving {
		if running {
			if c := s.firstMatch(s.table.Run); c != nil {
				return c
			}
		}
		if c := s.firstMatch(s.table.Walk); c != nil {
			return c
		}
		if c := s.firstNonIdle(); c != nil {
			return c
		}
		return s.clips[0]
	}
	if c := s.firstMatch(s.table.Idle); c != nil {
		return c
	}
	return s.clips[0]
}

// firstMatch honors tag priority first; within one tag, ties break to the
// first match in clip-list order.
func (s *Selector) firstMatch(tags []string) *asset.Clip {
	for _, tag := range tags {
		for _, c := range s.clips {
			if strings.Contains(strings.ToLower(c.Name), tag) {
				return c
			}
		}
	}
	return nil
}

func (s *Selector) firstNonIdle() *asset.Clip {
	for _, c := range s.clips {
		name := strings.ToLower(c.Name)
		idle := false
		for _, tag := range s.table.Idle {
			if strings.Contains(name, tag) {
				idle = true
				break
			}
		}
		if !idle {
			return c
		}
	}
	return nil
}

func (s *Selector) clipByName(name string) *asset.Clip {
	for _, c := range s.clips {
		if c.Name == name {
			return c
		}
	}
	return nil
}
