package v32

import "testing"

type fakeMemDevice struct {
	words map[uint32]Word
}

func (d *fakeMemDevice) ReadWord(local uint32) (Word, bool) {
	v, ok := d.words[local]
	return v, ok
}

func (d *fakeMemDevice) WriteWord(local uint32, w Word) bool {
	d.words[local] = w
	return true
}

func TestMemoryBusRoutesBySlot(t *testing.T) {
	bus := NewMemoryBus()
	ram := &fakeMemDevice{words: map[uint32]Word{}}
	bus.Connect(MemSlotRAM, ram)

	addr := uint32(MemSlotRAM<<memDeviceShift) | 0x100
	if !bus.Write(addr, 0xCAFEBABE) {
		t.Fatalf("write to connected slot rejected")
	}
	got, ok := bus.Read(addr)
	if !ok || got != 0xCAFEBABE {
		t.Fatalf("Read() = (%v, %v), want (0xCAFEBABE, true)", got, ok)
	}
}

func TestMemoryBusUnconnectedSlotFails(t *testing.T) {
	bus := NewMemoryBus()
	if _, ok := bus.Read(uint32(MemSlotCartridgeROM << memDeviceShift)); ok {
		t.Fatalf("read from unconnected slot should fail")
	}
	if bus.Write(uint32(MemSlotCartridgeROM<<memDeviceShift), 1) {
		t.Fatalf("write to unconnected slot should fail")
	}
}

func TestMemoryBusDisconnect(t *testing.T) {
	bus := NewMemoryBus()
	bus.Connect(MemSlotRAM, &fakeMemDevice{words: map[uint32]Word{}})
	bus.Disconnect(MemSlotRAM)
	if _, ok := bus.Read(uint32(MemSlotRAM << memDeviceShift)); ok {
		t.Fatalf("read after Disconnect should fail")
	}
}

func TestControlBusRoutesBySlot(t *testing.T) {
	bus := NewControlBus()
	rng := NewRNG()
	bus.Connect(PortSlotRNG, rng)

	port := uint32(PortSlotRNG<<portDeviceShift) | RNGPortCurrentValue
	if _, ok := bus.Read(port); !ok {
		t.Fatalf("read from connected RNG slot failed")
	}
}

func TestControlBusUnconnectedSlotFails(t *testing.T) {
	bus := NewControlBus()
	if _, ok := bus.Read(uint32(PortSlotGPU << portDeviceShift)); ok {
		t.Fatalf("read from unconnected control slot should fail")
	}
}
