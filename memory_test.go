package v32

import "testing"

func TestRAMReadWriteRoundTrip(t *testing.T) {
	ram := NewRAM(4)
	if !ram.WriteWord(8, 0x11223344) {
		t.Fatalf("write rejected")
	}
	got, ok := ram.ReadWord(8)
	if !ok || got != 0x11223344 {
		t.Fatalf("ReadWord(8) = (%v, %v), want (0x11223344, true)", got, ok)
	}
}

func TestRAMOutOfBoundsRejected(t *testing.T) {
	ram := NewRAM(4)
	if ram.WriteWord(100, 1) {
		t.Fatalf("out-of-bounds write should be rejected")
	}
	if _, ok := ram.ReadWord(100); ok {
		t.Fatalf("out-of-bounds read should be rejected")
	}
}

func TestRAMClear(t *testing.T) {
	ram := NewRAM(2)
	ram.WriteWord(0, 0xFF)
	ram.Clear()
	got, _ := ram.ReadWord(0)
	if got != 0 {
		t.Fatalf("Clear() left non-zero word: %v", got)
	}
}

func TestROMRejectsAllWrites(t *testing.T) {
	rom := NewROM([]Word{1, 2, 3})
	if rom.WriteWord(0, 99) {
		t.Fatalf("ROM write should always fail")
	}
	got, ok := rom.ReadWord(0)
	if !ok || got != 1 {
		t.Fatalf("ReadWord(0) = (%v, %v), want (1, true)", got, ok)
	}
}

func TestROMConnectReplacesContents(t *testing.T) {
	rom := NewROM(nil)
	if _, ok := rom.ReadWord(0); ok {
		t.Fatalf("empty ROM should reject reads")
	}
	rom.Connect([]Word{42})
	got, ok := rom.ReadWord(0)
	if !ok || got != 42 {
		t.Fatalf("after Connect, ReadWord(0) = (%v, %v), want (42, true)", got, ok)
	}
}
