package avatar

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"github.com/avatarsync/avatarsync/internal/core/animation"
	"github.com/avatarsync/avatarsync/internal/core/asset"
	"github.com/avatarsync/avatarsync/internal/core/events/bus"
	"github.com/avatarsync/avatarsync/internal/core/movement"
	"github.com/avatarsync/avatarsync/internal/core/observability/log"
	"github.com/avatarsync/avatarsync/internal/core/scene"
)

// LifecycleState tracks the two-phase construct/attach lifecycle.
type LifecycleState int32

const (
	StateUnattached LifecycleState = iota
	StateAttached
	StateTornDown
)

func (s LifecycleState) String() string {
	switch s {
	case StateUnattached:
		return "unattached"
	case StateAttached:
		return "attached"
	case StateTornDown:
		return "torn_down"
	default:
		return "unknown"
	}
}

// Ownership is the instance's standing with the Instance Guard.
type Ownership int

const (
	OwnershipUndecided Ownership = iota
	OwnershipOwner
	OwnershipRejected
)

// Config bundles the per-avatar tuning knobs.
type Config struct {
	Normalize    NormalizeOptions   `yaml:"normalize"`
	Movement     movement.Config    `yaml:"movement"`
	Tags         animation.TagTable `yaml:"tags"`
	FadeDuration float32            `yaml:"fade_duration"`
	DiagInterval time.Duration      `yaml:"diag_interval"`
}

// DefaultConfig returns the stock avatar tuning.
func DefaultConfig() Config {
	return Config{
		Normalize:    DefaultNormalizeOptions(),
		Movement:     movement.DefaultConfig(),
		Tags:         animation.DefaultTagTable(),
		FadeDuration: animation.DefaultFadeDuration,
		DiagInterval: time.Second,
	}
}

// UnmarshalYAML decodes diag_interval from a duration string ("5s"), which
// yaml.v3 cannot do for time.Duration directly. Fields absent from the
// document keep their current values.
func (c *Config) UnmarshalYAML(node *yaml.Node) error {
	type raw struct {
		Normalize    NormalizeOptions   `yaml:"normalize"`
		Movement     movement.Config    `yaml:"movement"`
		Tags         animation.TagTable `yaml:"tags"`
		FadeDuration float32            `yaml:"fade_duration"`
		DiagInterval string             `yaml:"diag_interval"`
	}
	r := raw{
		Normalize:    c.Normalize,
		Movement:     c.Movement,
		Tags:         c.Tags,
		FadeDuration: c.FadeDuration,
	}
	if err := node.Decode(&r); err != nil {
		return err
	}
	c.Normalize = r.Normalize
	c.Movement = r.Movement
	c.Tags = r.Tags
	c.FadeDuration = r.FadeDuration
	if r.DiagInterval != "" {
		d, err := time.ParseDuration(r.DiagInterval)
		if err != nil {
			return fmt.Errorf("diag_interval: %w", err)
		}
		c.DiagInterval = d
	}
	return nil
}

// Deps are the collaborators an instance needs. Registry and Normalizer are
// shared across instances; Mixer defaults to the in-process implementation
// and Bus may be nil to disable diagnostics publication.
type Deps struct {
	Registry   *Registry
	Normalizer *Normalizer
	Mixer      animation.Mixer
	Bus        bus.Bus
	Logger     log.Log
}

// Instance is one controllable avatar: the normalized model, its movement
// integrator, animation selection, and the per-tick transform sync. All
// methods are called from the single tick-loop goroutine; keyboard callbacks
// interleave only at frame boundaries.
type Instance struct {
	instanceID string
	avatarID   string

	cfg  Config
	deps Deps

	asset      *asset.Asset
	integrator *movement.Integrator
	selector   *animation.Selector
	container  *Container
	clips      []*asset.Clip

	state     LifecycleState
	ownership Ownership

	lastState movement.State
	lastDiag  time.Time
	now       func() time.Time

	logger log.Log
}

// New constructs an instance. It is pure: no scene access, no guard
// acquisition; both happen in Attach so construction can precede the scene
// node existing.
func New(a *asset.Asset, cfg Config, deps Deps) *Instance {
	if deps.Mixer == nil {
		deps.Mixer = animation.NewMixer()
	}
	if deps.Logger == nil {
		deps.Logger = log.NewNop()
	}
	avatarID := ""
	if a != nil {
		avatarID = a.ID
	}
	in := &Instance{
		instanceID: uuid.NewString(),
		avatarID:   avatarID,
		cfg:        cfg,
		deps:       deps,
		asset:      a,
		now:        time.Now,
	}
	in.integrator = movement.NewIntegrator(cfg.Movement, deps.Logger)
	in.logger = deps.Logger.With(
		log.String("component", "avatar"),
		log.String("avatar_id", avatarID),
		log.String("instance_id", in.instanceID))
	return in
}

func (in *Instance) InstanceID() string    { return in.instanceID }
func (in *Instance) AvatarID() string      { return in.avatarID }
func (in *Instance) State() LifecycleState { return in.state }
func (in *Instance) Ownership() Ownership  { return in.ownership }

// LastState returns the most recent movement snapshot, read by the render
// layer and optionally a network-sync layer.
func (in *Instance) LastState() movement.State { return in.lastState }

// Container exposes the normalized wrapper once attached.
func (in *Instance) Container() *Container { return in.container }

// Attach acquires ownership, normalizes the model, strips root motion, binds
// the mixer and inserts the container under root. It is idempotent and safe
// to retry: a missing scene node or missing model leaves the instance
// unattached for a later attempt, while a guard rejection is terminal for
// this instance's lifetime.
func (in *Instance) Attach(root *scene.Node) error {
	switch in.state {
	case StateTornDown:
		return ErrTornDown
	case StateAttached:
		return nil
	}
	if in.ownership == OwnershipRejected {
		return ErrDuplicateInstance
	}
	if root == nil {
		return ErrMissingSceneNode
	}

	if in.ownership == OwnershipUndecided {
		if !in.deps.Registry.Acquire(in.avatarID, in.instanceID) {
			in.ownership = OwnershipRejected
			return ErrDuplicateInstance
		}
		in.ownership = OwnershipOwner
	}

	var model *scene.Node
	if in.asset != nil {
		model = in.asset.Model
	}
	container, err := in.deps.Normalizer.Normalize(in.avatarID, model, in.cfg.Normalize)
	if err != nil {
		return err
	}

	var clips []*asset.Clip
	if in.asset != nil {
		clips = animation.StripRootMotion(in.asset.Clips)
	}
	in.clips = clips

	in.deps.Mixer.Bind(container.Root)
	in.selector = animation.NewSelector(in.deps.Mixer, clips, in.deps.Logger,
		animation.WithFadeDuration(in.cfg.FadeDuration),
		animation.WithTagTable(in.cfg.Tags))

	root.AddChild(container.Root)
	in.container = container
	in.state = StateAttached

	in.logger.Info("avatar attached",
		log.Float32("scale_factor", container.ScaleFactor),
		log.Int("clips", len(clips)))
	return nil
}

// KeyDown forwards a key press to the integrator.
func (in *Instance) KeyDown(code movement.Key) {
	if in.state == StateTornDown || in.ownership == OwnershipRejected {
		return
	}
	in.integrator.KeyDown(code)
}

// KeyUp forwards a key release to the integrator.
func (in *Instance) KeyUp(code movement.Key) {
	if in.state == StateTornDown || in.ownership == OwnershipRejected {
		return
	}
	in.integrator.KeyUp(code)
}

// Tick advances one frame: integrate movement, select the active clip,
// advance the mixer, and write the authoritative transform onto the container
// root. Before attach it is a safe no-op and is simply retried next tick. A
// failure inside integration degrades to a neutral state instead of escaping
// the shared frame loop.
func (in *Instance) Tick(deltaTime float32) {
	if in.state != StateAttached || in.ownership != OwnershipOwner {
		return
	}
	// Clamp once so integration and animation advance by the same delta.
	if deltaTime <= 0 {
		deltaTime = movement.DefaultDeltaTime
	}

	st := in.safeUpdate(deltaTime)
	in.lastState = st

	in.selector.Update(st)
	in.deps.Mixer.Update(deltaTime)

	// Single authoritative transform source: written unconditionally,
	// overriding any other writer.
	in.container.Root.Pos = st.Position
	in.container.Root.Rot = st.Rotation

	in.maybeEmitDiag(st)
}

func (in *Instance) safeUpdate(deltaTime float32) (st movement.State) {
	defer func() {
		if r := recover(); r != nil {
			in.logger.Error("movement update failed, degrading to neutral state",
				log.Any("panic", r))
			st = movement.Neutral(in.lastState)
		}
	}()
	return in.integrator.Update(deltaTime)
}

// maybeEmitDiag publishes the movement snapshot on a wall-clock interval
// rather than every tick.
func (in *Instance) maybeEmitDiag(st movement.State) {
	now := in.now()
	if now.Sub(in.lastDiag) < in.cfg.DiagInterval {
		return
	}
	in.lastDiag = now

	in.logger.Debug("movement snapshot",
		log.Float32("local_x", in.container.Root.Pos.X),
		log.Float32("local_z", in.container.Root.Pos.Z),
		log.Any("world_position", in.container.Root.WorldPos()),
		log.Float32("speed", st.Velocity.Speed),
		log.Bool("is_moving", st.IsMoving))

	if in.deps.Bus == nil {
		return
	}
	ev := newDiagnosticEvent(in.avatarID, st)
	if err := in.deps.Bus.Publish(bus.NewEvent(EventTypeMovementDiag, in.instanceID, ev)); err != nil {
		in.logger.Warn("diagnostic publish failed", log.Error(err))
	}
}

// Teardown releases the guard slot, stops all animation actions and disposes
// the exclusively-owned container, in that order and synchronously, so no
// partial state survives a remount. Idempotent.
func (in *Instance) Teardown() {
	if in.state == StateTornDown {
		return
	}

	in.deps.Registry.Release(in.avatarID, in.instanceID)
	in.deps.Mixer.StopAll()

	if in.container != nil {
		// The model belongs to the loader and outlives this instance; only
		// the wrapper nodes are ours to destroy.
		if in.asset != nil && in.asset.Model != nil {
			in.asset.Model.RemoveFromParent()
		}
		in.container.Root.RemoveFromParent()
		in.container.Root.Dispose()
		in.deps.Normalizer.Evict(in.avatarID, in.cfg.Normalize)
		in.container = nil
	}

	in.state = StateTornDown
	in.logger.Info("avatar torn down")
}
