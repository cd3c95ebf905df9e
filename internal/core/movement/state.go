package movement

import "cogentcore.org/core/math32"

// Velocity is the per-frame displacement split by axis plus its scalar
// magnitude. X and Z are world-space deltas applied this frame.
type Velocity struct {
	X     float32
	Z     float32
	Speed float32
}

// State is the movement snapshot produced once per tick. It is immutable once
// returned; consumers must not hold references across ticks expecting updates.
// Rotation is Euler radians with Y carrying yaw; yaw 0 faces the -Z axis.
type State struct {
	Position math32.Vector3
	Rotation math32.Vector3

	IsMoving  bool
	IsRunning bool

	Velocity   Velocity
	ActiveKeys []Key
}

// Neutral returns a safe degraded state: previous pose, zero velocity, no
// input. Used when a tick-boundary failure must not escape the frame loop.
func Neutral(prev State) State {
	return State{
		Position: prev.Position,
		Rotation: prev.Rotation,
	}
}
