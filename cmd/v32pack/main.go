// v32pack converts a PNG into a V32-VTEX texture sub-container ready
// to be concatenated into a cartridge's video section. Adapted from
// the teacher's font2rgba.go PNG-to-raw-RGBA conversion tool: where
// that tool extracted a font bitmap embedded as a Go byte slice, this
// one reads a plain PNG file and rescales it to the fixed
// TextureSize x TextureSize the GPU expects at pack time, using
// golang.org/x/image/draw's higher-quality interpolation instead of
// the nearest-neighbor resampling the runtime loader falls back to in
// rom.go - an artist packing textures ahead of time can afford the
// better filter that the load-time decoder does not use.
package main

import (
	"encoding/binary"
	"fmt"
	"image"
	"image/png"
	"os"

	"golang.org/x/image/draw"

	v32 "github.com/v32emu/v32core"
)

func main() {
	if len(os.Args) != 3 {
		fmt.Println("Usage: v32pack input.png output.vtex")
		os.Exit(1)
	}

	inPath, outPath := os.Args[1], os.Args[2]

	f, err := os.Open(inPath)
	if err != nil {
		fmt.Printf("opening %s: %v\n", inPath, err)
		os.Exit(1)
	}
	defer f.Close()

	img, err := png.Decode(f)
	if err != nil {
		fmt.Printf("decoding %s: %v\n", inPath, err)
		os.Exit(1)
	}

	dst := image.NewRGBA(image.Rect(0, 0, v32.TextureSize, v32.TextureSize))
	draw.CatmullRom.Scale(dst, dst.Bounds(), img, img.Bounds(), draw.Src, nil)

	header := make([]byte, 16)
	copy(header[0:8], []byte("V32-VTEX"))
	binary.LittleEndian.PutUint32(header[8:12], uint32(v32.TextureSize))
	binary.LittleEndian.PutUint32(header[12:16], uint32(v32.TextureSize))

	out := append(header, dst.Pix...)
	if err := os.WriteFile(outPath, out, 0o644); err != nil {
		fmt.Printf("writing %s: %v\n", outPath, err)
		os.Exit(1)
	}

	fmt.Printf("packed %s -> %s (%d bytes, %dx%d)\n", inPath, outPath, len(out), v32.TextureSize, v32.TextureSize)
}
