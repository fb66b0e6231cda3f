// input.go - Input controller (spec §4.9): 4 gamepads x 12 boolean controls.
//
// Maintains two parallel 4-slot arrays, RealTime (mutated by host input
// events, potentially from another goroutine) and Provided (snapshotted
// from RealTime on ChangeFrame and the only view the CPU ever reads).
// This decouples sub-frame host event timing from the deterministic
// per-frame view the guest program observes.
package v32

import "sync"

const NumGamepads = 4

// Gamepad control indices, in port order after SelectedGamepad.
const (
	GamepadConnected = iota
	GamepadUp
	GamepadDown
	GamepadLeft
	GamepadRight
	GamepadButtonA
	GamepadButtonB
	GamepadButtonX
	GamepadButtonY
	GamepadButtonL
	GamepadButtonR
	GamepadButtonStart
	numGamepadControls
)

// Input controller ports.
const (
	InputPortSelectedGamepad = iota
	InputPortConnected
	InputPortUp
	InputPortDown
	InputPortLeft
	InputPortRight
	InputPortButtonA
	InputPortButtonB
	InputPortButtonX
	InputPortButtonY
	InputPortButtonL
	InputPortButtonR
	InputPortButtonStart
)

type gamepadState [numGamepadControls]bool

// InputController exposes the currently selected gamepad's state.
type InputController struct {
	mu       sync.Mutex
	realTime [NumGamepads]gamepadState
	provided [NumGamepads]gamepadState
	selected int
}

func NewInputController() *InputController {
	return &InputController{}
}

// SetGamepadConnection is the host-facing API (may be called from any
// goroutine delivering input events) updating RealTime only.
func (ic *InputController) SetGamepadConnection(gamepad int, connected bool) {
	if gamepad < 0 || gamepad >= NumGamepads {
		return
	}
	ic.mu.Lock()
	ic.realTime[gamepad][GamepadConnected] = connected
	ic.mu.Unlock()
}

// SetGamepadControl is the host-facing API updating one boolean control
// of RealTime for the given gamepad.
func (ic *InputController) SetGamepadControl(gamepad, control int, pressed bool) {
	if gamepad < 0 || gamepad >= NumGamepads || control < 0 || control >= numGamepadControls {
		return
	}
	ic.mu.Lock()
	ic.realTime[gamepad][control] = pressed
	ic.mu.Unlock()
}

// HasGamepad reports whether the given gamepad is connected in the
// frame-visible (Provided) view.
func (ic *InputController) HasGamepad(gamepad int) bool {
	if gamepad < 0 || gamepad >= NumGamepads {
		return false
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	return ic.provided[gamepad][GamepadConnected]
}

// ChangeFrame snapshots RealTime into Provided for the frame the CPU is
// about to run.
func (ic *InputController) ChangeFrame() {
	ic.mu.Lock()
	ic.provided = ic.realTime
	ic.mu.Unlock()
}

// Reset clears both state arrays and re-selects gamepad 0.
func (ic *InputController) Reset() {
	ic.mu.Lock()
	ic.realTime = [NumGamepads]gamepadState{}
	ic.provided = [NumGamepads]gamepadState{}
	ic.selected = 0
	ic.mu.Unlock()
}

func (ic *InputController) ReadPort(local uint32) (Word, bool) {
	ic.mu.Lock()
	defer ic.mu.Unlock()

	if local == InputPortSelectedGamepad {
		return Word(ic.selected), true
	}
	control := int(local) - InputPortConnected
	if control < 0 || control >= numGamepadControls {
		return 0, false
	}
	if ic.provided[ic.selected][control] {
		return 1, true
	}
	return 0, true
}

func (ic *InputController) WritePort(local uint32, w Word) bool {
	if local != InputPortSelectedGamepad {
		return false
	}
	ic.mu.Lock()
	defer ic.mu.Unlock()
	gamepad := int(w.AsInt())
	if gamepad < 0 || gamepad >= NumGamepads {
		return false
	}
	ic.selected = gamepad
	return true
}
