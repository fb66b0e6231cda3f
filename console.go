// console.go - top-level orchestration: wires every component to the
// two buses and drives one video+audio frame per call (spec §2, §6).
//
// Grounded on the original V32Console's constructor wiring (slot
// assignments matching registers.go exactly) and RunNextFrame's
// three-step structure: (1) fan out ChangeFrame to Timer/CPU/GPU/SPU/
// Input, (2) run the CPU cycle loop for the frame's cycle budget,
// ticking the Timer once per step, (3) derive load figures and mix one
// audio buffer. Load figures use the original's "max of the last two
// frames" smoothing so a single light frame right after a heavy one
// doesn't make the reported load look artificially low.
package v32

import "fmt"

// Config holds the plain-field construction parameters the teacher's
// flag-driven main.go would otherwise hardcode as constants. There is
// no config-file library in the retrieved corpus for either repo, so
// this mirrors the teacher's own approach: a struct of fields with
// documented defaults, set directly or from CLI flags.
type Config struct {
	// RAMSizeWords sizes the RAM module (word-addressable).
	RAMSizeWords int
	// CyclesPerFrame bounds how many CPU steps RunNextFrame executes
	// before ending the frame, the emulated CPU's clock-speed budget.
	CyclesPerFrame int
}

// DefaultConfig returns reasonable defaults: 4M words (16MiB) of RAM
// and a 1,000,000-cycle-per-frame budget (60,000,000 Hz / 60fps), both
// overridable - the original's exact figures were not present in the
// retrieved source, so these are a documented choice rather than a
// transcription.
func DefaultConfig() Config {
	return Config{
		RAMSizeWords:   4 * 1024 * 1024,
		CyclesPerFrame: 1_000_000,
	}
}

// Console is the whole V32 machine: both buses, every device, and the
// host capability object driving presentation/audio/logging.
type Console struct {
	cfg  Config
	host HostInterface

	memBus  *MemoryBus
	ctrlBus *ControlBus

	ram       *RAM
	biosROM   *ROM
	cartROM   *ROM
	memCardController *MemoryCardController

	timer   *Timer
	rng     *RNG
	gpu     *GPU
	spu     *SPU
	input   *InputController
	cart    *CartridgeController
	null    *NullController

	cpu *CPU

	poweredOn bool

	hasBIOS       bool
	hasCartridge  bool
	cartridgeTitle string

	// memCardPath is the opaque path SaveMemoryCard/the frame-end
	// auto-flush writes through to via HostInterface.WriteFile - the
	// core never interprets it, per Design Notes §9's file-open
	// primitive. Empty means no card is bound to a path (e.g. a fresh
	// CreateMemoryCard the caller will save explicitly).
	memCardPath string

	lastCPULoads [2]float64
	lastGPULoads [2]float64
}

// NewConsole builds a fully wired, powered-off Console.
func NewConsole(cfg Config, host HostInterface) *Console {
	if host == nil {
		host = NewDefaultHost()
	}

	c := &Console{
		cfg:  cfg,
		host: host,

		memBus:  NewMemoryBus(),
		ctrlBus: NewControlBus(),

		ram:               NewRAM(cfg.RAMSizeWords),
		biosROM:           NewROM(nil),
		cartROM:           NewROM(nil),
		memCardController: NewMemoryCardController(),

		timer: NewTimer(),
		rng:   NewRNG(),
		input: NewInputController(),
		cart:  NewCartridgeController(),
		null:  &NullController{},
	}
	c.gpu = NewGPU(host)
	c.spu = NewSPU()

	c.memBus.Connect(MemSlotRAM, c.ram)
	c.memBus.Connect(MemSlotBIOSROM, c.biosROM)
	c.memBus.Connect(MemSlotCartridgeROM, c.cartROM)
	c.memBus.Connect(MemSlotMemoryCard, c.memCardController)

	c.ctrlBus.Connect(PortSlotTimer, c.timer)
	c.ctrlBus.Connect(PortSlotRNG, c.rng)
	c.ctrlBus.Connect(PortSlotGPU, c.gpu)
	c.ctrlBus.Connect(PortSlotSPU, c.spu)
	c.ctrlBus.Connect(PortSlotGamepads, c.input)
	c.ctrlBus.Connect(PortSlotCartridge, c.cart)
	c.ctrlBus.Connect(PortSlotMemoryCard, c.memCardController)
	c.ctrlBus.Connect(PortSlotNull, c.null)

	c.cpu = NewCPU(c.memBus, c.ctrlBus, 0, uint32(cfg.RAMSizeWords*4), biosEntryAddress())

	return c
}

// SetPower turns the machine on or off. Powering on performs a full
// Reset; powering off only stops RunNextFrame from running frames,
// leaving RAM and CPU state as they are (IsCPUHalted is not changed),
// so a memory card's dirty state survives a power cycle for the caller
// to inspect before deciding whether to SaveMemoryCard.
func (c *Console) SetPower(on bool) {
	if on && !c.poweredOn {
		c.Reset()
	}
	c.poweredOn = on
}

func (c *Console) IsPowerOn() bool { return c.poweredOn }

// Reset restores every component to its power-on state. The BIOS
// entry point becomes the CPU's instruction pointer, matching the
// original: a V32 console always boots into its BIOS, never straight
// into cartridge code.
func (c *Console) Reset() {
	c.ram.Clear()
	c.timer.Reset()
	c.rng.Reset()
	c.gpu.Reset()
	c.spu.Reset()
	c.input.Reset()
	c.cpu.Reset()
	c.lastCPULoads = [2]float64{}
	c.lastGPULoads = [2]float64{}
}

// RunNextFrame advances the machine by exactly one video+audio frame.
func (c *Console) RunNextFrame() {
	if !c.poweredOn {
		return
	}

	// STEP 1: fan out the per-frame reset to every component that
	// tracks per-frame budgets or snapshots.
	c.timer.ChangeFrame()
	c.cpu.ChangeFrame()
	c.gpu.ChangeFrame()
	c.spu.ChangeFrame()
	c.input.ChangeFrame()

	// STEP 2: run the CPU for this frame's cycle budget, ticking the
	// Timer once per step. A hardware-error trap aborts only the rest
	// of this frame's cycle loop (errors.go) - it is logged and the
	// machine carries on into the next frame.
	for i := 0; i < c.cfg.CyclesPerFrame; i++ {
		if c.cpu.Halted() {
			break
		}
		if err := c.cpu.Step(); err != nil {
			c.host.LogLine(err.Error())
			break
		}
		c.timer.Tick()
	}

	// STEP 3: derive smoothed load figures and mix one frame of audio.
	cpuLoad := float64(c.timer.cycleCounter) / float64(c.cfg.CyclesPerFrame)
	if cpuLoad > 1 {
		cpuLoad = 1
	}
	gpuLoad := 1 - float64(c.gpu.RemainingPixels())/float64(PixelCapacityPerFrame)
	if gpuLoad < 0 {
		gpuLoad = 0
	}
	if gpuLoad > 1 {
		gpuLoad = 1
	}
	c.lastCPULoads[0], c.lastCPULoads[1] = c.lastCPULoads[1], cpuLoad
	c.lastGPULoads[0], c.lastGPULoads[1] = c.lastGPULoads[1], gpuLoad

	c.spu.FillNextBuffer()

	// STEP 4: flush a dirty memory card before this call returns,
	// matching §2's frame data flow and §5's ordering guarantee.
	c.flushMemoryCardIfDirty()
}

func maxFloat(a, b float64) float64 {
	if a > b {
		return a
	}
	return b
}

// CPULoad reports the maximum of the last two frames' CPU cycle
// utilization, in [0,1] - a single idle frame after a heavy one
// doesn't make a sustained bottleneck look resolved.
func (c *Console) CPULoad() float64 { return maxFloat(c.lastCPULoads[0], c.lastCPULoads[1]) }

// GPULoad reports the maximum of the last two frames' GPU pixel
// budget utilization, in [0,1], with the same two-frame smoothing.
func (c *Console) GPULoad() float64 { return maxFloat(c.lastGPULoads[0], c.lastGPULoads[1]) }

func (c *Console) IsCPUHalted() bool { return c.cpu.Halted() }

// AttachAudio wires an OtoAudioHost's playback thread to this
// console's SPU ring; callers that only need FrameSoundOutput (e.g.
// headless capture) can skip this entirely.
func (c *Console) AttachAudio(audio *OtoAudioHost) {
	audio.Attach(c.spu)
}

// FrameSoundOutput returns the stereo samples mixed for the frame that
// just ran, for a headless embedder to capture instead of (or
// alongside) the oto playback thread.
func (c *Console) FrameSoundOutput() []SPUSample { return c.spu.LastFilledBuffer() }

// LoadBIOS validates and installs a BIOS container. The CPU's entry
// point is updated to the BIOS's first program word.
func (c *Console) LoadBIOS(data []byte) error {
	loaded, err := ParseBIOS(data, c.host)
	if err != nil {
		return err
	}
	c.biosROM.Connect(loaded.Program)
	if len(loaded.Textures) > 0 {
		c.host.LoadTexture(-1, loaded.Textures[0])
	}
	if len(loaded.Sounds) > 0 {
		c.spu.LoadBIOSSound(loaded.Sounds[0])
	}
	c.hasBIOS = true
	c.cpu.biosIP = biosEntryAddress()
	return nil
}

// biosEntryAddress is the global address of word 0 of the BIOS ROM
// slot - where the CPU's instruction pointer always starts.
func biosEntryAddress() Word {
	return Word(MemSlotBIOSROM << memDeviceShift)
}

func (c *Console) UnloadBIOS() {
	c.biosROM.Disconnect()
	c.host.UnloadBIOSTexture()
	c.hasBIOS = false
}

func (c *Console) HasBIOS() bool { return c.hasBIOS }

// LoadCartridge validates and installs a cartridge container: program
// ROM, textures (staged through the GPU's region tables) and sounds.
// Any validation failure leaves the console's existing cartridge state
// untouched (invariant (f)) - ParseCartridge only returns a result
// once the whole container has been confirmed well-formed.
func (c *Console) LoadCartridge(data []byte) error {
	loaded, err := ParseCartridge(data, c.host)
	if err != nil {
		return err
	}

	c.cartROM.Connect(loaded.Program)
	c.cart.Connect(uint32(len(loaded.Program)), uint32(len(loaded.Textures)), uint32(len(loaded.Sounds)))

	c.gpu.SetCartridgeTextureCount(len(loaded.Textures))
	for i, pixels := range loaded.Textures {
		c.host.LoadTexture(int32(i), pixels)
	}

	c.spu.SetCartridgeSoundCount(len(loaded.Sounds))
	for i, samples := range loaded.Sounds {
		c.spu.LoadCartridgeSound(i, samples)
	}

	c.hasCartridge = true
	c.cartridgeTitle = loaded.Title
	return nil
}

func (c *Console) UnloadCartridge() {
	c.cartROM.Disconnect()
	c.cart.Disconnect()
	c.host.UnloadCartridgeTextures()
	c.gpu.SetCartridgeTextureCount(0)
	c.spu.SetCartridgeSoundCount(0)
	c.hasCartridge = false
	c.cartridgeTitle = ""
}

func (c *Console) HasCartridge() bool      { return c.hasCartridge }
func (c *Console) CartridgeTitle() string  { return c.cartridgeTitle }

// CreateMemoryCard installs a fresh, zeroed memory card of the given
// size, bound to path for the frame-end auto-flush (spec §2, §4.11).
// An empty path leaves the card bound to nothing; SaveMemoryCard still
// works, it just won't auto-flush.
func (c *Console) CreateMemoryCard(path string, sizeWords int) {
	c.memCardController.Connect(NewRAM(sizeWords))
	c.memCardPath = path
}

// LoadMemoryCard validates an on-disk memory card file and installs
// its contents, binding path for the same auto-flush.
func (c *Console) LoadMemoryCard(path string, data []byte) error {
	words, err := ParseMemoryCard(data)
	if err != nil {
		return c.host.ThrowException(err.Error())
	}
	ram := NewRAM(len(words))
	for i, w := range words {
		ram.WriteWord(uint32(i*4), w)
	}
	c.memCardController.Connect(ram)
	c.memCardPath = path
	return nil
}

func (c *Console) UnloadMemoryCard() {
	c.memCardController.Disconnect()
	c.memCardPath = ""
}
func (c *Console) HasMemoryCard() bool { return c.memCardController.Connected() }
func (c *Console) MemoryCardModified() bool { return c.memCardController.Dirty() }

// SaveMemoryCard serializes the installed memory card back to the
// on-disk V32-MEMC format and clears the dirty flag. RunNextFrame
// calls this (and writes the result through HostInterface.WriteFile)
// automatically whenever the card is dirty and bound to a path; this
// method stays exported too so a caller can force a save (e.g. before
// UnloadMemoryCard) without waiting for the next frame.
func (c *Console) SaveMemoryCard() ([]byte, error) {
	ram := c.memCardController.RAM()
	if ram == nil {
		return nil, fmt.Errorf("v32: no memory card installed")
	}
	words := make([]Word, ram.Size())
	for i := range words {
		words[i], _ = ram.ReadWord(uint32(i * 4))
	}
	c.memCardController.ClearDirty()
	return EncodeMemoryCard(words), nil
}

// flushMemoryCardIfDirty implements the memory-card half of invariant
// (e): a successful local write dirties the card, and the next
// change-frame boundary clears it again by writing the card back out.
func (c *Console) flushMemoryCardIfDirty() {
	if !c.memCardController.Dirty() || c.memCardPath == "" {
		return
	}
	data, err := c.SaveMemoryCard()
	if err != nil {
		c.host.LogLine(err.Error())
		return
	}
	if err := c.host.WriteFile(c.memCardPath, data); err != nil {
		c.host.LogLine(err.Error())
	}
}

// SetGamepadConnection/SetGamepadControl/HasGamepad forward to the
// input controller, the host-facing surface for delivering input
// events from any goroutine.
func (c *Console) SetGamepadConnection(gamepad int, connected bool) {
	c.input.SetGamepadConnection(gamepad, connected)
}

func (c *Console) SetGamepadControl(gamepad, control int, pressed bool) {
	c.input.SetGamepadControl(gamepad, control, pressed)
}

func (c *Console) HasGamepad(gamepad int) bool { return c.input.HasGamepad(gamepad) }

// SetCurrentDate/SetCurrentTime forward to the Timer, letting an
// embedder override the wall-clock snapshot a Reset would otherwise
// take (useful for deterministic replay/testing).
func (c *Console) SetCurrentDate(year, dayOfYear int) { c.timer.SetCurrentDate(year, dayOfYear) }
func (c *Console) SetCurrentTime(h, m, s int)         { c.timer.SetCurrentTime(h, m, s) }
