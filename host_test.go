package v32

import (
	"strings"
	"testing"
)

func TestHeadlessHostRecordsClearAndDraw(t *testing.T) {
	host := NewHeadlessHost()
	host.ClearScreen(RGBA{R: 10, G: 20, B: 30, A: 255})
	host.DrawQuad(Quad{Vertices: [4]Vertex{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 1, Y: 1}, {X: 0, Y: 1}}})

	if host.ClearedCount != 1 || host.ClearedColor.G != 20 {
		t.Fatalf("ClearScreen not recorded correctly: %+v count=%d", host.ClearedColor, host.ClearedCount)
	}
	if len(host.DrawnQuads) != 1 {
		t.Fatalf("DrawQuad not recorded, got %d quads", len(host.DrawnQuads))
	}
}

func TestHeadlessHostTextureLifecycle(t *testing.T) {
	host := NewHeadlessHost()
	host.LoadTexture(-1, []byte{1, 2, 3, 4}) // BIOS texture
	host.LoadTexture(0, []byte{5, 6, 7, 8})  // cartridge texture 0

	if len(host.LoadedTextures) != 2 {
		t.Fatalf("expected 2 loaded textures, got %d", len(host.LoadedTextures))
	}

	host.UnloadCartridgeTextures()
	if _, ok := host.LoadedTextures[0]; ok {
		t.Fatalf("UnloadCartridgeTextures should drop cartridge texture 0")
	}
	if _, ok := host.LoadedTextures[-1]; !ok {
		t.Fatalf("UnloadCartridgeTextures should not touch the BIOS texture")
	}

	host.UnloadBIOSTexture()
	if _, ok := host.LoadedTextures[-1]; ok {
		t.Fatalf("UnloadBIOSTexture should drop the BIOS texture")
	}
}

func TestHeadlessHostLoadTextureCopiesBytes(t *testing.T) {
	host := NewHeadlessHost()
	pixels := []byte{9, 9, 9}
	host.LoadTexture(0, pixels)
	pixels[0] = 0

	if host.LoadedTextures[0][0] != 9 {
		t.Fatalf("LoadTexture must copy its input, mutation leaked through")
	}
}

func TestHeadlessHostThrowExceptionWrapsMessage(t *testing.T) {
	host := NewHeadlessHost()
	err := host.ThrowException("division by zero")
	if err == nil || !strings.Contains(err.Error(), "division by zero") {
		t.Fatalf("ThrowException() = %v, want it to contain the message", err)
	}
}

func TestHeadlessHostLogLineRecordsOnly(t *testing.T) {
	host := NewHeadlessHost()
	host.LogLine("boot complete")
	if len(host.LoggedLines) != 1 || host.LoggedLines[0] != "boot complete" {
		t.Fatalf("LoggedLines = %v, want [\"boot complete\"]", host.LoggedLines)
	}
}

func TestHeadlessHostWriteFileRecordsCopy(t *testing.T) {
	host := NewHeadlessHost()
	data := []byte{1, 2, 3, 4}
	if err := host.WriteFile("card.v32mc", data); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	data[0] = 0

	written, ok := host.WrittenFiles["card.v32mc"]
	if !ok {
		t.Fatalf("WriteFile should have recorded card.v32mc")
	}
	if written[0] != 1 {
		t.Fatalf("WriteFile must copy its input, mutation leaked through")
	}
}

func TestDefaultHostForwardsToHeadlessBookkeeping(t *testing.T) {
	host := NewDefaultHost()
	host.ClearScreen(RGBA{R: 1})
	host.LogLine("hello")
	_ = host.ThrowException("bad state")

	if host.ClearedCount != 1 {
		t.Fatalf("DefaultHost should record through its embedded HeadlessHost")
	}
	if len(host.LoggedLines) != 1 {
		t.Fatalf("DefaultHost.LogLine should still record, in addition to writing to Logger")
	}
}
