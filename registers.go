// registers.go - centralized address-map documentation for V32.
//
// This mirrors the teacher's centralized register-map file: one place
// documenting every memory slot and port slot, backed by small helper
// functions, with the actual per-device constants living alongside
// each device's own file.
//
// Memory map (32-bit global address = device_id:4 | local_address:28,
// device_id = low 2 bits of the high nibble, (addr>>28)&3):
//
//	Slot | Device              | Backing
//	-----|---------------------|------------------
//	0    | RAM                 | RAMSize words, R/W
//	1    | BIOS ROM            | read-only
//	2    | Cartridge prog ROM  | read-only
//	3    | Memory-card RAM     | R/W, dirty-tracked
//
// Port map (32-bit port = device_id:8 | local_port:8, device_id = (port>>8)&7):
//
//	Slot | Device      | Local ports
//	-----|-------------|---------------------------------
//	0    | Timer       | CurrentDate, CurrentTime, FrameCounter, CycleCounter
//	1    | RNG         | CurrentValue
//	2    | GPU         | 18 ports, Command..RegionHotspotY
//	3    | SPU         | sound/channel select + mixer commands
//	4    | Gamepads    | SelectedGamepad + 12 control readouts
//	5    | Cartridge   | Connected, ProgramROMSize, NumberOfTextures, NumberOfSounds
//	6    | Memory card | Connected
//	7    | Null        | sink, all reads return 0
package v32

const (
	memDeviceBits  = 2
	memLocalBits   = 28
	memDeviceShift = memLocalBits
	memLocalMask   = (1 << memLocalBits) - 1

	portDeviceBits  = 3
	portLocalBits   = 8
	portDeviceShift = portLocalBits
	portLocalMask   = (1 << portLocalBits) - 1
)

// Memory bus device slots.
const (
	MemSlotRAM = iota
	MemSlotBIOSROM
	MemSlotCartridgeROM
	MemSlotMemoryCard
	numMemSlots
)

// Control bus device slots.
const (
	PortSlotTimer = iota
	PortSlotRNG
	PortSlotGPU
	PortSlotSPU
	PortSlotGamepads
	PortSlotCartridge
	PortSlotMemoryCard
	PortSlotNull
	numPortSlots
)

// memDeviceID extracts the memory-bus slot id from a global address.
func memDeviceID(addr uint32) int {
	return int((addr >> memDeviceShift) & ((1 << memDeviceBits) - 1))
}

func memLocalAddress(addr uint32) uint32 {
	return addr & memLocalMask
}

// portDeviceID extracts the control-bus slot id from a port number.
func portDeviceID(port uint32) int {
	return int((port >> portDeviceShift) & ((1 << portDeviceBits) - 1))
}

func portLocalNumber(port uint32) uint32 {
	return port & portLocalMask
}
