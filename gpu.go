// gpu.go - GPU register file, pixel budget and quad emitter (spec §4.5).
//
// Grounded on the teacher's video_chip.go for the register-file +
// port-dispatch shape (a fixed-order port table with dedicated
// per-port write policy) and on V32GPUWriters.cpp's writer contract:
// float ports silently reject NaN/Inf, numeric ports clamp rather than
// fail, and unknown enum values (Command, ActiveBlending) are ignored
// without touching state or callbacks - including the
// WriteGPUActiveBlending open question, resolved here per spec Design
// Notes (a): an unrecognized blending mode leaves the field and the
// host callback untouched and still reports the write as accepted.
package v32

import "math"

// Fixed geometry constants. Vircon32's real GPU uses a 400x240 screen
// and a 1000-region-per-texture budget; those values are carried here
// since the distilled spec names the quantities but not their
// magnitudes (an Open Question resolved by consulting original_source/).
const (
	ScreenWidth         = 400
	ScreenHeight        = 240
	TextureSize         = 1024
	RegionsPerTexture   = 1000
	PixelCapacityPerFrame = 2_000_000

	scalingPenalty = 1.0
	rotationPenalty = 1.0
	clearPenalty    = 0.5
)

// GPU register-file ports, in the fixed order the data model specifies.
const (
	GPUPortCommand = iota
	GPUPortRemainingPixels
	GPUPortClearColor
	GPUPortMultiplyColor
	GPUPortActiveBlending
	GPUPortSelectedTexture
	GPUPortSelectedRegion
	GPUPortDrawingPointX
	GPUPortDrawingPointY
	GPUPortDrawingScaleX
	GPUPortDrawingScaleY
	GPUPortDrawingAngle
	GPUPortRegionMinX
	GPUPortRegionMinY
	GPUPortRegionMaxX
	GPUPortRegionMaxY
	GPUPortRegionHotspotX
	GPUPortRegionHotspotY
)

// GPU commands.
const (
	GPUCommandClearScreen = 1
	GPUCommandDrawRegion  = 2
)

// BlendMode is the set of recognized ActiveBlending values.
type BlendMode int32

const (
	BlendSolid BlendMode = iota
	BlendAlpha
	BlendAdd
	BlendSubtract
	numBlendModes
)

type gpuRegion struct {
	minX, minY, maxX, maxY         int32
	hotspotX, hotspotY             int32
}

// Vertex is one corner of an emitted textured quad.
type Vertex struct {
	X, Y float32 // screen space
	U, V float32 // texture space, normalized 0..1
}

// Quad is the 4-vertex textured primitive handed to the host callback.
type Quad struct {
	Vertices [4]Vertex
}

// GPU is the V32 graphics processor: a register file plus a per-frame
// pixel budget gating quad emission.
type GPU struct {
	host HostInterface

	remainingPixels int32
	clearColor      RGBA
	multiplyColor   RGBA
	activeBlending  BlendMode
	selectedTexture int32 // -1 == BIOS texture
	selectedRegion  int32

	drawingPointX, drawingPointY float32
	drawingScaleX, drawingScaleY float32
	drawingAngle                 float32

	biosRegions       [RegionsPerTexture]gpuRegion
	cartridgeRegions  [][RegionsPerTexture]gpuRegion
}

// NewGPU wires a GPU to its host capability object.
func NewGPU(host HostInterface) *GPU {
	g := &GPU{host: host}
	g.Reset()
	return g
}

// SetCartridgeTextureCount (re)sizes the cartridge region table; called
// by the loader once NumberOfTextures is known.
func (g *GPU) SetCartridgeTextureCount(n int) {
	g.cartridgeRegions = make([][RegionsPerTexture]gpuRegion, n)
}

// Reset zeroes every region record and restores the register file to
// its power-on defaults: full pixel budget, unit drawing scale, opaque
// white-alpha multiply color, the BIOS texture selected, and all other
// registers zero (testable property: "After any Reset, all GPU region
// records are zeroed").
func (g *GPU) Reset() {
	g.remainingPixels = PixelCapacityPerFrame
	g.clearColor = RGBA{}
	g.multiplyColor = RGBA{A: 255}
	g.activeBlending = BlendSolid
	g.selectedTexture = -1
	g.selectedRegion = 0
	g.drawingPointX, g.drawingPointY = 0, 0
	g.drawingScaleX, g.drawingScaleY = 1, 1
	g.drawingAngle = 0
	g.biosRegions = [RegionsPerTexture]gpuRegion{}
	for i := range g.cartridgeRegions {
		g.cartridgeRegions[i] = [RegionsPerTexture]gpuRegion{}
	}
}

// ChangeFrame replenishes the pixel budget for the next frame.
func (g *GPU) ChangeFrame() {
	g.remainingPixels = PixelCapacityPerFrame
}

// RemainingPixels reports the unspent per-frame pixel budget, used by
// Console to derive the smoothed GPU load figure.
func (g *GPU) RemainingPixels() int32 { return g.remainingPixels }

func (g *GPU) selectedRegionTable() *[RegionsPerTexture]gpuRegion {
	if g.selectedTexture < 0 {
		return &g.biosRegions
	}
	if int(g.selectedTexture) >= len(g.cartridgeRegions) {
		return nil
	}
	return &g.cartridgeRegions[g.selectedTexture]
}

func (g *GPU) ReadPort(local uint32) (Word, bool) {
	switch local {
	case GPUPortCommand:
		return 0, false // write-only
	case GPUPortRemainingPixels:
		return WordFromInt(g.remainingPixels), true
	case GPUPortClearColor:
		return WordFromRGBA(g.clearColor), true
	case GPUPortMultiplyColor:
		return WordFromRGBA(g.multiplyColor), true
	case GPUPortActiveBlending:
		return WordFromInt(int32(g.activeBlending)), true
	case GPUPortSelectedTexture:
		return WordFromInt(g.selectedTexture), true
	case GPUPortSelectedRegion:
		return WordFromInt(g.selectedRegion), true
	case GPUPortDrawingPointX:
		return WordFromFloat(g.drawingPointX), true
	case GPUPortDrawingPointY:
		return WordFromFloat(g.drawingPointY), true
	case GPUPortDrawingScaleX:
		return WordFromFloat(g.drawingScaleX), true
	case GPUPortDrawingScaleY:
		return WordFromFloat(g.drawingScaleY), true
	case GPUPortDrawingAngle:
		return WordFromFloat(g.drawingAngle), true
	}

	table := g.selectedRegionTable()
	if table == nil {
		return 0, false
	}
	region := &table[g.selectedRegion]
	switch local {
	case GPUPortRegionMinX:
		return WordFromInt(region.minX), true
	case GPUPortRegionMinY:
		return WordFromInt(region.minY), true
	case GPUPortRegionMaxX:
		return WordFromInt(region.maxX), true
	case GPUPortRegionMaxY:
		return WordFromInt(region.maxY), true
	case GPUPortRegionHotspotX:
		return WordFromInt(region.hotspotX), true
	case GPUPortRegionHotspotY:
		return WordFromInt(region.hotspotY), true
	}
	return 0, false
}

func isBadFloat(f float32) bool {
	return math.IsNaN(float64(f)) || math.IsInf(float64(f), 0)
}

func clampInt32(v, lo, hi int32) int32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func clampFloat32(v, lo, hi float32) float32 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func (g *GPU) WritePort(local uint32, w Word) bool {
	switch local {
	case GPUPortCommand:
		g.doCommand(w.AsInt())
		return true

	case GPUPortRemainingPixels:
		return true // status port, writes are accepted and ignored

	case GPUPortClearColor:
		g.clearColor = w.AsRGBA()
		return true

	case GPUPortMultiplyColor:
		g.multiplyColor = w.AsRGBA()
		g.host.SetMultiplyColor(g.multiplyColor)
		return true

	case GPUPortActiveBlending:
		mode := BlendMode(w.AsInt())
		if mode < 0 || mode >= numBlendModes {
			return true // Open Question (a): unknown modes are silently ignored
		}
		g.activeBlending = mode
		g.host.SetBlendingMode(mode)
		return true

	case GPUPortSelectedTexture:
		id := clampInt32(w.AsInt(), -1, int32(len(g.cartridgeRegions))-1)
		g.selectedTexture = id
		g.host.SelectTexture(id)
		return true

	case GPUPortSelectedRegion:
		g.selectedRegion = clampInt32(w.AsInt(), 0, RegionsPerTexture-1)
		return true

	case GPUPortDrawingPointX:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		g.drawingPointX = w.AsFloat()
		return true
	case GPUPortDrawingPointY:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		g.drawingPointY = w.AsFloat()
		return true
	case GPUPortDrawingScaleX:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		g.drawingScaleX = w.AsFloat()
		return true
	case GPUPortDrawingScaleY:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		g.drawingScaleY = w.AsFloat()
		return true
	case GPUPortDrawingAngle:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		g.drawingAngle = w.AsFloat()
		return true
	}

	table := g.selectedRegionTable()
	if table == nil {
		return false
	}
	region := &table[g.selectedRegion]
	switch local {
	case GPUPortRegionMinX:
		region.minX = w.AsInt()
	case GPUPortRegionMinY:
		region.minY = w.AsInt()
	case GPUPortRegionMaxX:
		region.maxX = w.AsInt()
	case GPUPortRegionMaxY:
		region.maxY = w.AsInt()
	case GPUPortRegionHotspotX:
		region.hotspotX = w.AsInt()
	case GPUPortRegionHotspotY:
		region.hotspotY = w.AsInt()
	default:
		return false
	}
	return true
}

func (g *GPU) doCommand(cmd int32) {
	switch cmd {
	case GPUCommandClearScreen:
		g.clearScreen()
	case GPUCommandDrawRegion:
		g.drawRegion()
	default:
		// unknown command codes are silent no-ops
	}
}

// spendBudget subtracts cost from the remaining budget; if the result
// would go negative, the budget latches at -1 and the call is rejected.
func (g *GPU) spendBudget(cost int32) bool {
	remaining := g.remainingPixels - cost
	if remaining < 0 {
		g.remainingPixels = -1
		return false
	}
	g.remainingPixels = remaining
	return true
}

func (g *GPU) clearScreen() {
	screenPixels := int32(ScreenWidth * ScreenHeight)
	cost := int32(float64(screenPixels) * (1 + clearPenalty))
	if !g.spendBudget(cost) {
		return
	}
	g.host.ClearScreen(g.clearColor)
}

// drawRegion implements the textured-quad rasterization algorithm: read
// the pointed region, expand for scaling correction, normalize to
// texture space, build screen-space vertices relative to the hotspot,
// apply scale then rotation then translation, and emit the quad.
func (g *GPU) drawRegion() {
	table := g.selectedRegionTable()
	if table == nil {
		return
	}
	region := table[g.selectedRegion]

	minX, minY := float64(region.minX), float64(region.minY)
	maxX, maxY := float64(region.maxX), float64(region.maxY)

	// Integer pixel span of the region, always positive even when the
	// region is mirrored (minX>maxX or minY>maxY) - screen geometry is
	// built from this plus the region's raw MinX/MinY, never from the
	// (possibly swapped) Min/Max pair directly, so mirroring only ever
	// affects which texture corner lands on which screen corner.
	width := math.Abs(maxX-minX) + 1
	height := math.Abs(maxY-minY) + 1
	pixels := int32(width * height)

	scaled := g.drawingScaleX != 1 || g.drawingScaleY != 1
	rotated := g.drawingAngle != 0

	cost := float64(pixels)
	if scaled {
		cost += cost * scalingPenalty
	}
	if rotated {
		cost += cost * rotationPenalty
	}
	if !g.spendBudget(int32(cost)) {
		return
	}

	// Step 2: scaling correction, expanding the *sampled texture range*
	// toward pixel centers when a scale factor magnifies beyond 1x.
	// This only ever adjusts where texels are read from; it must not
	// leak into the screen-space quad built below.
	texMinX, texMinY, texMaxX, texMaxY := minX, minY, maxX, maxY
	if scaled {
		if math.Abs(float64(g.drawingScaleX)) > 1 {
			correction := 0.5 - 1/(2*math.Abs(float64(g.drawingScaleX)))
			if texMinX < texMaxX {
				texMinX -= correction
				texMaxX += correction
			} else {
				texMinX += correction
				texMaxX -= correction
			}
		}
		if math.Abs(float64(g.drawingScaleY)) > 1 {
			correction := 0.5 - 1/(2*math.Abs(float64(g.drawingScaleY)))
			if texMinY < texMaxY {
				texMinY -= correction
				texMaxY += correction
			} else {
				texMinY += correction
				texMaxY -= correction
			}
		}
	}

	// Step 1 + 3: pixel-center sampling, then normalize to texture space.
	u0 := (texMinX + 0.5) / TextureSize
	v0 := (texMinY + 0.5) / TextureSize
	u1 := (texMaxX + 0.5) / TextureSize
	v1 := (texMaxY + 0.5) / TextureSize

	// Step 4: screen-space vertices relative to the hotspot, built from
	// the region's raw MinX/MinY plus the always-positive pixel width/
	// height (not minX/maxX, which may be reversed for a mirrored
	// region) - then scaled, rotated and translated.
	hx, hy := float64(region.hotspotX), float64(region.hotspotY)
	x0, y0 := minX-hx, minY-hy
	x1, y1 := x0+width, y0+height
	localCorners := [4][2]float64{
		{x0, y0},
		{x1, y0},
		{x1, y1},
		{x0, y1},
	}

	cos := math.Cos(float64(g.drawingAngle))
	sin := math.Sin(float64(g.drawingAngle))

	var quad Quad
	uvs := [4][2]float64{{u0, v0}, {u1, v0}, {u1, v1}, {u0, v1}}

	for i, corner := range localCorners {
		x := corner[0] * float64(g.drawingScaleX)
		y := corner[1] * float64(g.drawingScaleY)

		rx := x*cos - y*sin
		ry := x*sin + y*cos

		sx := rx + float64(g.drawingPointX)
		sy := ry + float64(g.drawingPointY)

		// Post-translation 1-pixel correction on negative scale axes.
		if g.drawingScaleX < 0 {
			sx += 1
		}
		if g.drawingScaleY < 0 {
			sy += 1
		}

		quad.Vertices[i] = Vertex{
			X: float32(sx), Y: float32(sy),
			U: float32(uvs[i][0]), V: float32(uvs[i][1]),
		}
	}

	g.host.DrawQuad(quad)
}
