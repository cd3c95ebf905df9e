package avatar

import (
	"github.com/avatarsync/avatarsync/internal/core/movement"
)

// EventTypeMovementDiag is the bus event type carrying movement diagnostics.
const EventTypeMovementDiag = "avatar.movement.diag"

// DiagnosticVelocity mirrors movement.Velocity on the wire.
type DiagnosticVelocity struct {
	X     float32 `json:"x"`
	Z     float32 `json:"z"`
	Speed float32 `json:"speed"`
}

// DiagnosticEvent is the structured movement snapshot consumed by the
// external log-analysis tooling. The field names and shapes are a
// compatibility contract; do not change them without a compatibility note.
type DiagnosticEvent struct {
	AvatarID   string             `json:"avatarId"`
	Position   [3]float32         `json:"position"`
	IsMoving   bool               `json:"isMoving"`
	IsRunning  bool               `json:"isRunning"`
	ActiveKeys []string           `json:"activeKeys"`
	Velocity   DiagnosticVelocity `json:"velocity"`
}

func newDiagnosticEvent(avatarID string, st movement.State) DiagnosticEvent {
	keys := make([]string, len(st.ActiveKeys))
	for i, k := range st.ActiveKeys {
		keys[i] = string(k)
	}
	return DiagnosticEvent{
		AvatarID:   avatarID,
		Position:   [3]float32{st.Position.X, st.Position.Y, st.Position.Z},
		IsMoving:   st.IsMoving,
		IsRunning:  st.IsRunning,
		ActiveKeys: keys,
		Velocity:   DiagnosticVelocity{X: st.Velocity.X, Z: st.Velocity.Z, Speed: st.Velocity.Speed},
	}
}
