package v32

import "testing"

func TestGPUResetZeroesRegions(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)
	gpu.SetCartridgeTextureCount(2)

	gpu.WritePort(GPUPortSelectedRegion, WordFromInt(5))
	gpu.WritePort(GPUPortRegionMinX, WordFromInt(10))

	gpu.Reset()

	gpu.WritePort(GPUPortSelectedRegion, WordFromInt(5))
	v, _ := gpu.ReadPort(GPUPortRegionMinX)
	if v.AsInt() != 0 {
		t.Fatalf("region MinX after Reset = %d, want 0", v.AsInt())
	}
}

func TestGPUClearScreenSpendsBudgetAndCallsHost(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)

	gpu.WritePort(GPUPortClearColor, WordFromRGBA(RGBA{R: 255}))
	gpu.WritePort(GPUPortCommand, WordFromInt(GPUCommandClearScreen))

	if host.ClearedCount != 1 {
		t.Fatalf("ClearScreen should have been called once, got %d", host.ClearedCount)
	}
	if host.ClearedColor.R != 255 {
		t.Fatalf("cleared with wrong color: %+v", host.ClearedColor)
	}

	remaining, _ := gpu.ReadPort(GPUPortRemainingPixels)
	wantCost := int32(float64(ScreenWidth*ScreenHeight) * (1 + clearPenalty))
	if remaining.AsInt() != PixelCapacityPerFrame-wantCost {
		t.Fatalf("RemainingPixels = %d, want %d", remaining.AsInt(), PixelCapacityPerFrame-wantCost)
	}
}

func TestGPUBudgetExhaustionRejectsFurtherDraws(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)
	gpu.remainingPixels = 0

	gpu.WritePort(GPUPortCommand, WordFromInt(GPUCommandClearScreen))
	if host.ClearedCount != 0 {
		t.Fatalf("ClearScreen should be rejected once budget is exhausted")
	}
	remaining, _ := gpu.ReadPort(GPUPortRemainingPixels)
	if remaining.AsInt() != -1 {
		t.Fatalf("RemainingPixels after rejected spend = %d, want -1", remaining.AsInt())
	}
}

func TestGPUUnknownBlendingModeIgnored(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)
	gpu.WritePort(GPUPortActiveBlending, WordFromInt(int32(numBlendModes)+5))

	mode, _ := gpu.ReadPort(GPUPortActiveBlending)
	if mode.AsInt() != int32(BlendSolid) {
		t.Fatalf("unknown blending mode should be ignored, got %v", mode.AsInt())
	}
}

func TestGPUDrawRegionEmitsQuad(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)

	gpu.WritePort(GPUPortRegionMinX, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMinY, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMaxX, WordFromInt(15))
	gpu.WritePort(GPUPortRegionMaxY, WordFromInt(15))
	gpu.WritePort(GPUPortCommand, WordFromInt(GPUCommandDrawRegion))

	if len(host.DrawnQuads) != 1 {
		t.Fatalf("DrawQuad should have been called once, got %d", len(host.DrawnQuads))
	}
}

// TestGPUDrawRegionScreenSpanMatchesPixelWidth exercises the off-by-
// one fix: a 16-wide/16-tall region (MinX=0,MaxX=15) drawn unscaled at
// the origin with no rotation must produce a screen quad spanning
// exactly [0,16) on both axes, not [0,15).
func TestGPUDrawRegionScreenSpanMatchesPixelWidth(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)

	gpu.WritePort(GPUPortRegionMinX, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMinY, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMaxX, WordFromInt(15))
	gpu.WritePort(GPUPortRegionMaxY, WordFromInt(15))
	gpu.WritePort(GPUPortCommand, WordFromInt(GPUCommandDrawRegion))

	quad := host.DrawnQuads[0]
	maxX := quad.Vertices[0].X
	for _, v := range quad.Vertices {
		if v.X > maxX {
			maxX = v.X
		}
	}
	if maxX != 16 {
		t.Fatalf("screen quad max X = %v, want 16 (width 16, not 15)", maxX)
	}
}

// TestGPUDrawRegionMirroredKeepsScreenShape exercises the mirrored-
// region fix: MinX>MaxX only mirrors the sampled texture coordinates,
// it must not flip or shrink the on-screen quad.
func TestGPUDrawRegionMirroredKeepsScreenShape(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)

	gpu.WritePort(GPUPortRegionMinX, WordFromInt(15))
	gpu.WritePort(GPUPortRegionMinY, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMaxX, WordFromInt(0))
	gpu.WritePort(GPUPortRegionMaxY, WordFromInt(15))
	gpu.WritePort(GPUPortCommand, WordFromInt(GPUCommandDrawRegion))

	quad := host.DrawnQuads[0]
	minX, maxX := quad.Vertices[0].X, quad.Vertices[0].X
	for _, v := range quad.Vertices {
		if v.X < minX {
			minX = v.X
		}
		if v.X > maxX {
			maxX = v.X
		}
	}
	if minX != 15 || maxX != 31 {
		t.Fatalf("mirrored region screen span = [%v,%v], want [15,31] (anchored at MinX, width 16)", minX, maxX)
	}
}

func TestGPUSelectedTextureClampsToLoadedRange(t *testing.T) {
	host := NewHeadlessHost()
	gpu := NewGPU(host)
	gpu.SetCartridgeTextureCount(2)

	gpu.WritePort(GPUPortSelectedTexture, WordFromInt(99))
	id, _ := gpu.ReadPort(GPUPortSelectedTexture)
	if id.AsInt() != 1 {
		t.Fatalf("SelectedTexture = %d, want clamped to 1 (last valid index)", id.AsInt())
	}
}
