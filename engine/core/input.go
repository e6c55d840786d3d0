package core

// Key code definitions
type KeyCode uint16

const (
	KEY_UNKNOWN KeyCode = 0x00
	KEY_ENTER   KeyCode = 0x0D
	KEY_ESCAPE  KeyCode = 0x1B
	KEY_SPACE   KeyCode = 0x20
	KEY_A       KeyCode = 0x41
	KEY_D       KeyCode = 0x44
	KEY_P       KeyCode = 0x50
	KEY_S       KeyCode = 0x53
	KEY_W       KeyCode = 0x57
	KEYS_MAX_KEYS
)

// Input keeps the current and previous keyboard state and turns changes into
// bus events.
type Input struct {
	bus      *EventBus
	current  [KEYS_MAX_KEYS]bool
	previous [KEYS_MAX_KEYS]bool
	mouseX   float64
	mouseY   float64
}

func NewInput(bus *EventBus) *Input {
	return &Input{bus: bus}
}

// Update copies current states to previous states. Called once per frame.
func (in *Input) Update() {
	in.previous = in.current
}

func (in *Input) IsKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && in.current[key]
}

func (in *Input) WasKeyDown(key KeyCode) bool {
	return key < KEYS_MAX_KEYS && in.previous[key]
}

func (in *Input) ProcessKey(key KeyCode, pressed bool) {
	if key >= KEYS_MAX_KEYS || in.current[key] == pressed {
		return
	}
	in.current[key] = pressed

	code := EVENT_CODE_KEY_RELEASED
	if pressed {
		code = EVENT_CODE_KEY_PRESSED
	}
	ctx := EventContext{}
	ctx.Data.U16[0] = uint16(key)
	in.bus.Fire(code, in, ctx)
}

func (in *Input) ProcessMouseMove(x, y float64) {
	if in.mouseX == x && in.mouseY == y {
		return
	}
	in.mouseX, in.mouseY = x, y
	ctx := EventContext{}
	ctx.Data.F64[0] = x
	ctx.Data.F64[1] = y
	in.bus.Fire(EVENT_CODE_MOUSE_MOVED, in, ctx)
}

func (in *Input) MousePosition() (float64, float64) {
	return in.mouseX, in.mouseY
}
