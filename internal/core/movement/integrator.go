package movement

import (
	"sort"

	"cogentcore.org/core/math32"

	"github.com/avatarsync/avatarsync/internal/core/observability/log"
)

const (
	// DefaultDeltaTime substitutes for a missing or non-positive frame delta.
	DefaultDeltaTime = 0.016

	// referenceTickRate normalizes frame speed to a 60-tick baseline so
	// displacement is proportional to elapsed time, not tick count.
	referenceTickRate = 60
)

// Config tunes the integrator. Zero values fall back to defaults.
type Config struct {
	BaseSpeed     float32  `yaml:"base_speed"`
	RunMultiplier float32  `yaml:"run_multiplier"`
	Bindings      Bindings `yaml:"bindings"`
}

// DefaultConfig returns the stock walk speed and the 1.8x run modifier.
func DefaultConfig() Config {
	return Config{
		BaseSpeed:     0.2,
		RunMultiplier: 1.8,
		Bindings:      DefaultBindings(),
	}
}

func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.BaseSpeed <= 0 {
		c.BaseSpeed = d.BaseSpeed
	}
	if c.RunMultiplier <= 0 {
		c.RunMultiplier = d.RunMultiplier
	}
	if len(c.Bindings.Forward) == 0 && len(c.Bindings.Back) == 0 &&
		len(c.Bindings.Left) == 0 && len(c.Bindings.Right) == 0 &&
		len(c.Bindings.Run) == 0 {
		c.Bindings = d.Bindings
	}
	return c
}

// Integrator converts pressed-key state plus elapsed time into kinematic
// movement. It is single-writer: key callbacks and Update interleave only at
// frame boundaries on the loop goroutine, so the pressed set needs no lock.
type Integrator struct {
	cfg     Config
	pressed map[Key]struct{}

	pos math32.Vector3
	rot math32.Vector3

	logger log.Log
}

// NewIntegrator creates an integrator at the origin facing -Z.
func NewIntegrator(cfg Config, logger log.Log) *Integrator {
	return &Integrator{
		cfg:     cfg.withDefaults(),
		pressed: make(map[Key]struct{}),
		logger:  logger.With(log.String("component", "movement")),
	}
}

// KeyDown records a pressed key. Idempotent; unrecognized codes are retained
// in the set but contribute nothing to motion.
func (it *Integrator) KeyDown(code Key) {
	if code == "" {
		return
	}
	it.pressed[code] = struct{}{}
}

// KeyUp removes a pressed key. Idempotent.
func (it *Integrator) KeyUp(code Key) {
	delete(it.pressed, code)
}

// Update integrates one frame and returns a fresh State. It never fails: a
// missing or non-positive deltaTime defaults to DefaultDeltaTime, and an empty
// direction set yields a stationary state with the pose unchanged.
func (it *Integrator) Update(deltaTime float32) State {
	if deltaTime <= 0 {
		deltaTime = DefaultDeltaTime
	}

	b := it.cfg.Bindings
	var moveX, moveZ float32
	// Opposing groups add into the same accumulator with opposite sign, so
	// forward+back and left+right cancel exactly.
	if anyPressed(it.pressed, b.Forward) {
		moveZ -= 1
	}
	if anyPressed(it.pressed, b.Back) {
		moveZ += 1
	}
	if anyPressed(it.pressed, b.Left) {
		moveX -= 1
	}
	if anyPressed(it.pressed, b.Right) {
		moveX += 1
	}
	running := anyPressed(it.pressed, b.Run)

	st := State{
		IsRunning:  running,
		ActiveKeys: it.activeKeys(),
	}

	if moveX == 0 && moveZ == 0 {
		st.Position = it.pos
		st.Rotation = it.rot
		return st
	}

	mult := float32(1)
	if running {
		mult = it.cfg.RunMultiplier
	}
	frameSpeed := it.cfg.BaseSpeed * mult * (deltaTime * referenceTickRate)

	// The resultant vector is normalized so diagonal input moves at the same
	// speed as a single axis; magnitude comes from frameSpeed alone.
	length := math32.Sqrt(moveX*moveX + moveZ*moveZ)
	dx := moveX / length * frameSpeed
	dz := moveZ / length * frameSpeed

	it.pos.X += dx
	it.pos.Z += dz
	// Yaw 0 faces -Z.
	it.rot.Y = math32.Atan2(-moveX, -moveZ)

	st.IsMoving = true
	st.Position = it.pos
	st.Rotation = it.rot
	st.Velocity = Velocity{X: dx, Z: dz, Speed: frameSpeed}
	return st
}

func (it *Integrator) activeKeys() []Key {
	if len(it.pressed) == 0 {
		return nil
	}
	keys := make([]Key, 0, len(it.pressed))
	for k := range it.pressed {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
