// host.go - the capability object Console drives instead of calling
// back into global C-style function pointers (spec §6).
//
// Grounded on the teacher's backend-interface split (video_backend_*.go
// / audio_backend_*.go implementing a common Backend interface chosen
// at startup): HostInterface plays the same role here, letting Console
// stay free of any concrete presentation or audio-output dependency.
package v32

import (
	"fmt"
	"log"
	"os"
)

// Logger is the package-level diagnostic logger, used by the default
// host and by internal loader/trap diagnostics. Callers may redirect
// it the way the teacher points its own package logger at a file.
var Logger = log.New(os.Stderr, "v32: ", log.LstdFlags)

// HostInterface is the capability object a Console is constructed
// with: every effect the GPU/loader/CPU need to hand off to the
// embedding application goes through it.
type HostInterface interface {
	ClearScreen(color RGBA)
	DrawQuad(q Quad)
	SetMultiplyColor(color RGBA)
	SetBlendingMode(mode BlendMode)
	SelectTexture(id int32)
	LoadTexture(id int32, pixels []byte)
	UnloadCartridgeTextures()
	UnloadBIOSTexture()
	LogLine(message string)
	ThrowException(message string) error

	// WriteFile persists data at an opaque, host-chosen path - the
	// file-open primitive Design Notes §9 calls for, so platform path
	// encoding (e.g. Windows UTF-16) never has to cross into the core.
	// Console calls this to auto-flush a dirty memory card at frame
	// end (spec §2, §4.11); a host with no filesystem (tests, a web
	// embed) can make it a no-op or capture the bytes instead.
	WriteFile(path string, data []byte) error
}

// HeadlessHost is a recording no-op HostInterface, grounded on the
// teacher's video_backend_headless.go / audio_backend_headless.go
// build-tag-gated no-op backends. It never presents anything but
// records what it is asked to do (the last clear color, multiply color,
// blending mode and selected texture; every drawn quad, loaded texture,
// logged line and written file), which is enough for tests to assert
// the GPU/loader drove it correctly.
type HeadlessHost struct {
	ClearedColor    RGBA
	ClearedCount    int
	DrawnQuads      []Quad
	MultiplyColor   RGBA
	BlendingMode    BlendMode
	SelectedTexture int32
	LoadedTextures  map[int32][]byte
	LoggedLines     []string

	// WrittenFiles records every WriteFile call in memory instead of
	// touching a real filesystem, so tests can assert a memory-card
	// auto-flush happened without a temp directory.
	WrittenFiles map[string][]byte
}

// NewHeadlessHost returns a ready-to-use HeadlessHost.
func NewHeadlessHost() *HeadlessHost {
	return &HeadlessHost{
		LoadedTextures: make(map[int32][]byte),
		WrittenFiles:   make(map[string][]byte),
	}
}

func (h *HeadlessHost) ClearScreen(color RGBA) {
	h.ClearedColor = color
	h.ClearedCount++
}

func (h *HeadlessHost) DrawQuad(q Quad) {
	h.DrawnQuads = append(h.DrawnQuads, q)
}

func (h *HeadlessHost) SetMultiplyColor(color RGBA) { h.MultiplyColor = color }
func (h *HeadlessHost) SetBlendingMode(mode BlendMode) { h.BlendingMode = mode }
func (h *HeadlessHost) SelectTexture(id int32)         { h.SelectedTexture = id }

func (h *HeadlessHost) LoadTexture(id int32, pixels []byte) {
	cp := make([]byte, len(pixels))
	copy(cp, pixels)
	h.LoadedTextures[id] = cp
}

func (h *HeadlessHost) UnloadCartridgeTextures() {
	for id := range h.LoadedTextures {
		if id >= 0 {
			delete(h.LoadedTextures, id)
		}
	}
}

func (h *HeadlessHost) UnloadBIOSTexture() { delete(h.LoadedTextures, int32(-1)) }

func (h *HeadlessHost) LogLine(message string) {
	h.LoggedLines = append(h.LoggedLines, message)
}

func (h *HeadlessHost) ThrowException(message string) error {
	return fmt.Errorf("v32: %s", message)
}

func (h *HeadlessHost) WriteFile(path string, data []byte) error {
	cp := make([]byte, len(data))
	copy(cp, data)
	h.WrittenFiles[path] = cp
	return nil
}

// DefaultHost composes a HeadlessHost's bookkeeping with package
// Logger output; it is the Console default when no host is supplied,
// since presentation is out of scope (spec §1 Non-goals) but a usable
// zero-config host still needs to exist. Video calls are recorded the
// same way HeadlessHost does; LogLine and ThrowException additionally
// reach the package logger, the way the teacher's default backend
// writes through to stderr before a real GUI frontend attaches.
type DefaultHost struct {
	*HeadlessHost
}

// NewDefaultHost returns a DefaultHost wrapping a fresh HeadlessHost.
func NewDefaultHost() *DefaultHost {
	return &DefaultHost{HeadlessHost: NewHeadlessHost()}
}

func (h *DefaultHost) LogLine(message string) {
	h.HeadlessHost.LogLine(message)
	Logger.Print(message)
}

func (h *DefaultHost) ThrowException(message string) error {
	err := h.HeadlessHost.ThrowException(message)
	Logger.Print(err)
	return err
}

// WriteFile writes through to the real filesystem (0644, matching the
// teacher's own save-file permissions), in addition to the in-memory
// bookkeeping HeadlessHost keeps for inspection.
func (h *DefaultHost) WriteFile(path string, data []byte) error {
	h.HeadlessHost.WriteFile(path, data)
	return os.WriteFile(path, data, 0644)
}
