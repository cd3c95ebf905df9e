package movement

// Key is a keyboard key code in the KeyboardEvent.code vocabulary used by the
// external keyboard stream ("KeyW", "ArrowUp", "ShiftLeft", ...). Codes the
// bindings do not reference are accepted and ignored.
type Key string

const (
	KeyW Key = "KeyW"
	KeyA Key = "KeyA"
	KeyS Key = "KeyS"
	KeyD Key = "KeyD"

	KeyArrowUp    Key = "ArrowUp"
	KeyArrowDown  Key = "ArrowDown"
	KeyArrowLeft  Key = "ArrowLeft"
	KeyArrowRight Key = "ArrowRight"

	KeyShiftLeft  Key = "ShiftLeft"
	KeyShiftRight Key = "ShiftRight"
)

// Bindings groups key codes by the directional or modifier role they play.
// Any pressed key in a group activates that group.
type Bindings struct {
	Forward []Key `yaml:"forward"`
	Back    []Key `yaml:"back"`
	Left    []Key `yaml:"left"`
	Right   []Key `yaml:"right"`
	Run     []Key `yaml:"run"`
}

// DefaultBindings returns WASD + arrows with shift as the run modifier.
func DefaultBindings() Bindings {
	return Bindings{
		Forward: []Key{KeyW, KeyArrowUp},
		Back:    []Key{KeyS, KeyArrowDown},
		Left:    []Key{KeyA, KeyArrowLeft},
		Right:   []Key{KeyD, KeyArrowRight},
		Run:     []Key{KeyShiftLeft, KeyShiftRight},
	}
}

func anyPressed(pressed map[Key]struct{}, group []Key) bool {
	for _, k := range group {
		if _, ok := pressed[k]; ok {
			return true
		}
	}
	return false
}
