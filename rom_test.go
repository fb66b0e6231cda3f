package v32

import (
	"encoding/binary"
	"testing"
)

// buildCartridge assembles a minimal but well-formed cartridge
// container in memory: a 128-byte header plus one program section, one
// 2x2 texture section and one 4-sample sound section.
func buildCartridge(t *testing.T) []byte {
	t.Helper()

	program := make([]byte, 12+2*4)
	copy(program[0:8], sigBinary[:])
	binary.LittleEndian.PutUint32(program[8:12], 2)
	binary.LittleEndian.PutUint32(program[12:16], 0xAAAAAAAA)
	binary.LittleEndian.PutUint32(program[16:20], 0xBBBBBBBB)

	texture := make([]byte, 16+2*2*4)
	copy(texture[0:8], sigTexture[:])
	binary.LittleEndian.PutUint32(texture[8:12], 2)
	binary.LittleEndian.PutUint32(texture[12:16], 2)
	for i := 16; i < len(texture); i++ {
		texture[i] = 0x40
	}

	sound := make([]byte, 12+4*4)
	copy(sound[0:8], sigSound[:])
	binary.LittleEndian.PutUint32(sound[8:12], 4)

	header := make([]byte, romHeaderSize)
	copy(header[0:8], sigCartridge[:])
	binary.LittleEndian.PutUint32(header[8:12], romFormatVersion) // VirconVersion
	binary.LittleEndian.PutUint32(header[12:16], 0)               // VirconRevision
	copy(header[16:80], []byte("Test Cartridge"))
	binary.LittleEndian.PutUint32(header[80:84], 1) // ROMVersion
	binary.LittleEndian.PutUint32(header[84:88], 0) // ROMRevision
	binary.LittleEndian.PutUint32(header[88:92], 1) // NumberOfTextures
	binary.LittleEndian.PutUint32(header[92:96], 1) // NumberOfSounds

	progOff := uint32(romHeaderSize)
	binary.LittleEndian.PutUint32(header[96:100], progOff)
	binary.LittleEndian.PutUint32(header[100:104], uint32(len(program)))

	videoOff := progOff + uint32(len(program))
	binary.LittleEndian.PutUint32(header[104:108], videoOff)
	binary.LittleEndian.PutUint32(header[108:112], uint32(len(texture)))

	audioOff := videoOff + uint32(len(texture))
	binary.LittleEndian.PutUint32(header[112:116], audioOff)
	binary.LittleEndian.PutUint32(header[116:120], uint32(len(sound)))

	out := append([]byte{}, header...)
	out = append(out, program...)
	out = append(out, texture...)
	out = append(out, sound...)
	return out
}

func TestParseCartridgeRoundTrip(t *testing.T) {
	data := buildCartridge(t)
	host := NewHeadlessHost()

	loaded, err := ParseCartridge(data, host)
	if err != nil {
		t.Fatalf("ParseCartridge: %v", err)
	}
	if loaded.Title != "Test Cartridge" {
		t.Fatalf("Title = %q, want %q", loaded.Title, "Test Cartridge")
	}
	if len(loaded.Program) != 2 || loaded.Program[0] != 0xAAAAAAAA {
		t.Fatalf("Program = %v, want [0xAAAAAAAA 0xBBBBBBBB]", loaded.Program)
	}
	if len(loaded.Textures) != 1 || len(loaded.Textures[0]) != TextureSize*TextureSize*4 {
		t.Fatalf("Textures[0] length = %d, want %d", len(loaded.Textures[0]), TextureSize*TextureSize*4)
	}
	if len(loaded.Sounds) != 1 || len(loaded.Sounds[0]) != 4 {
		t.Fatalf("Sounds[0] length = %d, want 4", len(loaded.Sounds[0]))
	}
}

func TestParseCartridgeRejectsBadSignature(t *testing.T) {
	data := buildCartridge(t)
	data[0] = 'X'
	host := NewHeadlessHost()
	if _, err := ParseCartridge(data, host); err == nil {
		t.Fatalf("corrupted signature should be rejected")
	}
}

func TestParseCartridgeRejectsTruncatedSection(t *testing.T) {
	data := buildCartridge(t)
	host := NewHeadlessHost()
	if _, err := ParseCartridge(data[:romHeaderSize+4], host); err == nil {
		t.Fatalf("truncated container should be rejected")
	}
}

func TestMemoryCardRoundTrip(t *testing.T) {
	words := []Word{1, 2, 3, 0xFFFFFFFF}
	encoded := EncodeMemoryCard(words)

	decoded, err := ParseMemoryCard(encoded)
	if err != nil {
		t.Fatalf("ParseMemoryCard: %v", err)
	}
	if len(decoded) != len(words) {
		t.Fatalf("decoded %d words, want %d", len(decoded), len(words))
	}
	for i := range words {
		if decoded[i] != words[i] {
			t.Fatalf("word %d = %v, want %v", i, decoded[i], words[i])
		}
	}
}

func TestParseMemoryCardRejectsBadSignature(t *testing.T) {
	data := EncodeMemoryCard([]Word{1})
	data[0] = 'Z'
	if _, err := ParseMemoryCard(data); err == nil {
		t.Fatalf("bad memory card signature should be rejected")
	}
}
