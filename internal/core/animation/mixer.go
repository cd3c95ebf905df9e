package animation

import (
	"github.com/avatarsync/avatarsync/internal/core/asset"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

// LoopMode controls playback at the end of a clip.
type LoopMode int

const (
	LoopOnce LoopMode = iota
	LoopRepeat
)

// Action is a playable binding of one clip on a mixer. Mutators return the
// action for chaining.
type Action interface {
	Clip() *asset.Clip

	Play() Action
	Stop() Action
	Reset() Action
	FadeIn(duration float32) Action
	FadeOut(duration float32) Action
	SetLoop(mode LoopMode) Action

	IsRunning() bool
	Weight() float32
	Time() float32
}

// Mixer binds clips to a scene node and advances their playback each tick.
type Mixer interface {
	Bind(root *scene.Node)
	ClipAction(clip *asset.Clip) Action
	StopAll()
	Update(deltaTime float32)
}

type mixer struct {
	root    *scene.Node
	actions map[string]*action
	order   []*action
}

// NewMixer creates an in-process mixer. It models action weights, fades and
// looping; pose evaluation itself belongs to the render layer.
func NewMixer() Mixer {
	return &mixer{actions: make(map[string]*action)}
}

func (m *mixer) Bind(root *scene.Node) {
	m.root = root
}

// ClipAction returns the action for a clip, creating it on first use. Actions
// are cached per clip name so repeated selection reuses state.
func (m *mixer) ClipAction(clip *asset.Clip) Action {
	if clip == nil {
		return nil
	}
	if a, ok := m.actions[clip.Name]; ok {
		return a
	}
	a := &action{clip: clip}
	m.actions[clip.Name] = a
	m.order = append(m.order, a)
	return a
}

func (m *mixer) StopAll() {
	for _, a := range m.order {
		a.Stop()
	}
}

func (m *mixer) Update(deltaTime float32) {
	if deltaTime <= 0 {
		return
	}
	for _, a := range m.order {
		a.update(deltaTime)
	}
}

type action struct {
	clip    *asset.Clip
	running bool
	loop    LoopMode

	time   float32
	weight float32

	// fadeRate is the signed weight change per second; zero when no fade is
	// in progress.
	fadeRate float32
}

func (a *action) Clip() *asset.Clip { return a.clip }
func (a *action) IsRunning() bool   { return a.running }
func (a *action) Weight() float32   { return a.weight }
func (a *action) Time() float32     { return a.time }

func (a *action) Play() Action {
	a.running = true
	if a.fadeRate == 0 && a.weight == 0 {
		a.weight = 1
	}
	return a
}

func (a *action) Stop() Action {
	a.running = false
	a.weight = 0
	a.fadeRate = 0
	return a
}

func (a *action) Reset() Action {
	a.time = 0
	return a
}

func (a *action) FadeIn(duration float32) Action {
	if duration <= 0 {
		a.weight = 1
		a.fadeRate = 0
		return a
	}
	a.fadeRate = 1 / duration
	return a
}

func (a *action) FadeOut(duration float32) Action {
	if duration <= 0 {
		a.Stop()
		return a
	}
	a.fadeRate = -1 / duration
	return a
}

func (a *action) SetLoop(mode LoopMode) Action {
	a.loop = mode
	return a
}

func (a *action) update(dt float32) {
	if a.fadeRate != 0 {
		a.weight += a.fadeRate * dt
		if a.weight >= 1 {
			a.weight = 1
			a.fadeRate = 0
		} else if a.weight <= 0 {
			a.weight = 0
			a.fadeRate = 0
			a.running = false
		}
	}
	if !a.running {
		return
	}
	a.time += dt
	if a.clip.Duration <= 0 {
		return
	}
	if a.time >= a.clip.Duration {
		if a.loop == LoopRepeat {
			for a.time >= a.clip.Duration {
				a.time -= a.clip.Duration
			}
		} else {
			a.time = a.clip.Duration
			a.running = false
		}
	}
}
