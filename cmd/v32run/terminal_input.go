package main

import (
	"fmt"
	"os"
	"sync"
	"syscall"
	"time"

	"golang.org/x/term"

	v32 "github.com/v32emu/v32core"
)

// keyMap translates a raw stdin byte into the gamepad-0 control it
// presses, WASD plus space for the face button - there's no joystick
// backend in a headless CLI, so the keyboard stands in for one.
var keyMap = map[byte]int{
	'w': v32.GamepadUp,
	's': v32.GamepadDown,
	'a': v32.GamepadLeft,
	'd': v32.GamepadRight,
	' ': v32.GamepadButtonA,
}

// TerminalInputHost reads raw stdin and forwards WASD+space into a
// Console's gamepad 0, the CLI's stand-in for a real controller.
// Grounded on the teacher's terminal_host.go: same raw-mode-plus-
// nonblocking-read shape, golang.org/x/term for the line-buffering and
// echo that the OS would otherwise insert.
type TerminalInputHost struct {
	console      *v32.Console
	stopCh       chan struct{}
	done         chan struct{}
	stopped      sync.Once
	fd           int
	nonblockSet  bool
	oldTermState *term.State
}

// NewTerminalInputHost returns a host that drives gamepad 0 on console
// from raw keystrokes once Start is called.
func NewTerminalInputHost(console *v32.Console) *TerminalInputHost {
	return &TerminalInputHost{
		console: console,
		stopCh:  make(chan struct{}),
		done:    make(chan struct{}),
	}
}

// Start puts stdin into raw mode and begins reading keystrokes in a
// background goroutine. Call Stop to restore stdin before exiting.
func (h *TerminalInputHost) Start() error {
	h.fd = int(os.Stdin.Fd())

	oldState, err := term.MakeRaw(h.fd)
	if err != nil {
		close(h.done)
		return fmt.Errorf("terminal_input: failed to set raw mode: %w", err)
	}
	h.oldTermState = oldState

	if err := syscall.SetNonblock(h.fd, true); err != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
		close(h.done)
		return fmt.Errorf("terminal_input: failed to set nonblocking stdin: %w", err)
	}
	h.nonblockSet = true

	h.console.SetGamepadConnection(0, true)

	go func() {
		defer close(h.done)
		buf := make([]byte, 1)
		pressed := map[int]bool{}

		for {
			select {
			case <-h.stopCh:
				for control := range pressed {
					h.console.SetGamepadControl(0, control, false)
				}
				return
			default:
			}

			n, err := syscall.Read(h.fd, buf)
			if n > 0 {
				if control, ok := keyMap[buf[0]]; ok {
					h.console.SetGamepadControl(0, control, true)
					pressed[control] = true
				}
			}
			if err == syscall.EAGAIN || err == syscall.EWOULDBLOCK || n == 0 {
				time.Sleep(5 * time.Millisecond)
				continue
			}
			if err != nil {
				return
			}
		}
	}()
	return nil
}

// Stop terminates the reading goroutine and restores stdin.
func (h *TerminalInputHost) Stop() {
	h.stopped.Do(func() {
		close(h.stopCh)
	})
	<-h.done
	if h.nonblockSet {
		_ = syscall.SetNonblock(h.fd, false)
		h.nonblockSet = false
	}
	if h.oldTermState != nil {
		_ = term.Restore(h.fd, h.oldTermState)
		h.oldTermState = nil
	}
}
