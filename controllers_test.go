package v32

import "testing"

func TestNullControllerSinksEverything(t *testing.T) {
	n := &NullController{}
	v, ok := n.ReadPort(0)
	if !ok || v != 0 {
		t.Fatalf("NullController.ReadPort = (%v, %v), want (0, true)", v, ok)
	}
	if !n.WritePort(0, 123) {
		t.Fatalf("NullController.WritePort should always accept")
	}
}

func TestCartridgeControllerReportsConnectMetadata(t *testing.T) {
	c := NewCartridgeController()
	connected, _ := c.ReadPort(CartPortConnected)
	if connected.AsInt() != 0 {
		t.Fatalf("unconnected cartridge should report Connected=0")
	}

	c.Connect(1024, 3, 2)
	connected, _ = c.ReadPort(CartPortConnected)
	size, _ := c.ReadPort(CartPortProgramROMSize)
	textures, _ := c.ReadPort(CartPortNumberOfTextures)
	sounds, _ := c.ReadPort(CartPortNumberOfSounds)

	if connected.AsInt() != 1 || size.AsUint() != 1024 || textures.AsUint() != 3 || sounds.AsUint() != 2 {
		t.Fatalf("unexpected cartridge metadata: connected=%v size=%v textures=%v sounds=%v",
			connected, size, textures, sounds)
	}
}

func TestCartridgeControllerRejectsWrites(t *testing.T) {
	c := NewCartridgeController()
	if c.WritePort(CartPortConnected, 1) {
		t.Fatalf("cartridge controller ports are read-only")
	}
}

func TestMemoryCardControllerDirtyTracking(t *testing.T) {
	m := NewMemoryCardController()
	m.Connect(NewRAM(4))
	if m.Dirty() {
		t.Fatalf("a freshly connected card should not be dirty")
	}

	if !m.WriteWord(0, 0xABCD) {
		t.Fatalf("write to connected card should succeed")
	}
	if !m.Dirty() {
		t.Fatalf("a successful write should mark the card dirty")
	}

	m.ClearDirty()
	if m.Dirty() {
		t.Fatalf("ClearDirty should clear the flag")
	}
}

func TestMemoryCardControllerDisconnectRejectsAccess(t *testing.T) {
	m := NewMemoryCardController()
	m.Connect(NewRAM(4))
	m.Disconnect()
	if m.WriteWord(0, 1) {
		t.Fatalf("writes after Disconnect should fail")
	}
	connected, _ := m.ReadPort(MemCardPortConnected)
	if connected.AsInt() != 0 {
		t.Fatalf("Connected port should read 0 after Disconnect")
	}
}
