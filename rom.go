// rom.go - BIOS/cartridge ROM container and memory-card file formats
// (spec §6, expanded from original_source/DesktopEmulator/ConsoleLogic/
// FileFormats.hpp).
//
// Grounded on FileFormats.hpp's layered container shape (a fixed-size
// header naming section offsets/lengths, each section itself prefixed
// by its own small signed sub-header) and, for the byte-offset-heavy
// style of walking such a container, on the pack's closest analogue to
// a binary container builder/reader (tinyrange-rtg's pe32.go). Texture
// staging uses golang.org/x/image/draw to rescale a declared WxH
// texture into the fixed TextureSize x TextureSize buffer the GPU
// expects, nearest-neighbor by default to match the original's
// non-interpolated sampling. The three top-level sections decode
// concurrently under a golang.org/x/sync/errgroup.Group rather than a
// bare sync.WaitGroup, so Wait reports the first decode failure instead
// of every goroutine reporting its own; the other two decodes are not
// cancelled and still run to completion.
package v32

import (
	"encoding/binary"
	"fmt"
	"image"

	"golang.org/x/image/draw"
	"golang.org/x/sync/errgroup"
)

// Container signatures, exactly 8 bytes each, with no terminator.
var (
	sigCartridge = [8]byte{'V', '3', '2', '-', 'C', 'A', 'R', 'T'}
	sigBIOS      = [8]byte{'V', '3', '2', '-', 'B', 'I', 'O', 'S'}
	sigBinary    = [8]byte{'V', '3', '2', '-', 'V', 'B', 'I', 'N'}
	sigTexture   = [8]byte{'V', '3', '2', '-', 'V', 'T', 'E', 'X'}
	sigSound     = [8]byte{'V', '3', '2', '-', 'V', 'S', 'N', 'D'}
	sigMemCard   = [8]byte{'V', '3', '2', '-', 'M', 'E', 'M', 'C'}
)

const romFormatVersion = 1

// romSection locates one contiguous region within the container.
type romSection struct {
	StartOffset uint32
	Length      uint32
}

// romHeader is the 128-byte fixed container header, laid out exactly
// as spec §6's byte table (and original_source's ROMFileFormat::Header
// in FileFormats.hpp): signature, Vircon engine version/revision, the
// cartridge/BIOS title, the ROM's own version/revision, texture/sound
// counts, the three section descriptors, and trailing reserved bytes.
type romHeader struct {
	Signature      [8]byte
	VirconVersion  uint32
	VirconRevision uint32
	Title          [64]byte

	ROMVersion       uint32
	ROMRevision      uint32
	NumberOfTextures uint32
	NumberOfSounds   uint32

	Program  romSection
	Video    romSection
	Audio    romSection
	Reserved [8]byte
}

const romHeaderSize = 128

func readROMHeader(data []byte) (romHeader, error) {
	if len(data) < romHeaderSize {
		return romHeader{}, fmt.Errorf("v32: container truncated: need %d header bytes, have %d", romHeaderSize, len(data))
	}
	var h romHeader
	copy(h.Signature[:], data[0:8])
	h.VirconVersion = binary.LittleEndian.Uint32(data[8:12])
	h.VirconRevision = binary.LittleEndian.Uint32(data[12:16])
	copy(h.Title[:], data[16:80])
	h.ROMVersion = binary.LittleEndian.Uint32(data[80:84])
	h.ROMRevision = binary.LittleEndian.Uint32(data[84:88])
	h.NumberOfTextures = binary.LittleEndian.Uint32(data[88:92])
	h.NumberOfSounds = binary.LittleEndian.Uint32(data[92:96])
	h.Program = romSection{
		StartOffset: binary.LittleEndian.Uint32(data[96:100]),
		Length:      binary.LittleEndian.Uint32(data[100:104]),
	}
	h.Video = romSection{
		StartOffset: binary.LittleEndian.Uint32(data[104:108]),
		Length:      binary.LittleEndian.Uint32(data[108:112]),
	}
	h.Audio = romSection{
		StartOffset: binary.LittleEndian.Uint32(data[112:116]),
		Length:      binary.LittleEndian.Uint32(data[116:120]),
	}
	copy(h.Reserved[:], data[120:128])
	return h, nil
}

func (h romHeader) title() string {
	n := 0
	for n < len(h.Title) && h.Title[n] != 0 {
		n++
	}
	return string(h.Title[:n])
}

func sectionBytes(data []byte, sec romSection) ([]byte, error) {
	end := uint64(sec.StartOffset) + uint64(sec.Length)
	if end > uint64(len(data)) {
		return nil, fmt.Errorf("v32: section [%d,%d) exceeds container size %d", sec.StartOffset, end, len(data))
	}
	return data[sec.StartOffset:end], nil
}

// readBinarySection parses a V32-VBIN program-ROM sub-container into
// decoded Words.
func readBinarySection(data []byte) ([]Word, error) {
	if len(data) < 12 {
		return nil, fmt.Errorf("v32: binary section truncated")
	}
	if [8]byte(data[0:8]) != sigBinary {
		return nil, fmt.Errorf("v32: bad binary section signature")
	}
	numWords := binary.LittleEndian.Uint32(data[8:12])
	need := 12 + uint64(numWords)*4
	if uint64(len(data)) < need {
		return nil, fmt.Errorf("v32: binary section declares %d words but only has room for %d", numWords, (len(data)-12)/4)
	}
	words := make([]Word, numWords)
	for i := range words {
		words[i] = wordLE(data[12+i*4 : 16+i*4])
	}
	return words, nil
}

// readTextureSection parses one V32-VTEX sub-container and rescales
// its pixels into a TextureSize x TextureSize RGBA staging buffer.
func readTextureSection(data []byte) ([]byte, int, error) {
	if len(data) < 16 {
		return nil, 0, fmt.Errorf("v32: texture section truncated")
	}
	if [8]byte(data[0:8]) != sigTexture {
		return nil, 0, fmt.Errorf("v32: bad texture section signature")
	}
	width := int(binary.LittleEndian.Uint32(data[8:12]))
	height := int(binary.LittleEndian.Uint32(data[12:16]))
	need := 16 + width*height*4
	if len(data) < need {
		return nil, 0, fmt.Errorf("v32: texture section declares %dx%d but is truncated", width, height)
	}

	src := &image.RGBA{
		Pix:    data[16:need],
		Stride: width * 4,
		Rect:   image.Rect(0, 0, width, height),
	}
	dst := image.NewRGBA(image.Rect(0, 0, TextureSize, TextureSize))
	draw.NearestNeighbor.Scale(dst, dst.Bounds(), src, src.Bounds(), draw.Src, nil)
	return dst.Pix, need, nil
}

// readSoundSection parses one V32-VSND sub-container into decoded
// stereo samples.
func readSoundSection(data []byte) ([]SPUSample, int, error) {
	if len(data) < 12 {
		return nil, 0, fmt.Errorf("v32: sound section truncated")
	}
	if [8]byte(data[0:8]) != sigSound {
		return nil, 0, fmt.Errorf("v32: bad sound section signature")
	}
	numSamples := binary.LittleEndian.Uint32(data[8:12])
	need := 12 + int(numSamples)*4
	if len(data) < need {
		return nil, 0, fmt.Errorf("v32: sound section declares %d samples but is truncated", numSamples)
	}
	samples := make([]SPUSample, numSamples)
	for i := range samples {
		off := 12 + i*4
		left := int16(binary.LittleEndian.Uint16(data[off : off+2]))
		right := int16(binary.LittleEndian.Uint16(data[off+2 : off+4]))
		samples[i] = SPUSample{Left: left, Right: right}
	}
	return samples, need, nil
}

// LoadedCartridge is the decoded, ready-to-install result of parsing a
// cartridge container.
type LoadedCartridge struct {
	Title    string
	Program  []Word
	Textures [][]byte // each TextureSize*TextureSize*4 RGBA bytes
	Sounds   [][]SPUSample
}

// Container section-count limits (spec §6): a BIOS carries exactly one
// texture and one sound; a cartridge carries at most 256 textures and
// at most 1024 sounds totalling at most 256M samples.
const (
	biosTextureCount     = 1
	biosSoundCount       = 1
	maxCartridgeTextures = 256
	maxCartridgeSounds   = 1024
	maxCartridgeSamples  = 256_000_000
)

// ParseCartridge validates and fully decodes a cartridge container,
// funneling every failure through host.ThrowException exactly like the
// original's LoadCartridge (invariant (f): a cartridge that fails to
// load leaves no partial state behind - the caller only gets state out
// of the returned value, never a partially populated one).
func ParseCartridge(data []byte, host HostInterface) (*LoadedCartridge, error) {
	return parseContainer(data, sigCartridge, false, host)
}

// ParseBIOS validates and decodes a BIOS container; BIOS containers
// must carry exactly one texture and one sound bank (spec §6).
func ParseBIOS(data []byte, host HostInterface) (*LoadedCartridge, error) {
	return parseContainer(data, sigBIOS, true, host)
}

func parseContainer(data []byte, wantSig [8]byte, isBIOS bool, host HostInterface) (*LoadedCartridge, error) {
	header, err := readROMHeader(data)
	if err != nil {
		return nil, host.ThrowException(err.Error())
	}
	if header.Signature != wantSig {
		return nil, host.ThrowException("v32: container signature mismatch")
	}
	if header.VirconVersion != romFormatVersion {
		return nil, host.ThrowException(fmt.Sprintf("v32: unsupported container version %d", header.VirconVersion))
	}

	// File-size invariants (spec §6): every section offset is
	// contiguous in declaration order, starting right after the header,
	// so the audio section's end is the expected total file size, and
	// that size must be a multiple of 4 (the container is word-addressed
	// throughout).
	programEnd := uint64(header.Program.StartOffset) + uint64(header.Program.Length)
	videoEnd := uint64(header.Video.StartOffset) + uint64(header.Video.Length)
	if header.Program.StartOffset != romHeaderSize || uint64(header.Video.StartOffset) != programEnd || uint64(header.Audio.StartOffset) != videoEnd {
		return nil, host.ThrowException("v32: container sections are not contiguous")
	}
	audioEnd := uint64(header.Audio.StartOffset) + uint64(header.Audio.Length)
	if audioEnd != uint64(len(data)) {
		return nil, host.ThrowException(fmt.Sprintf("v32: container size %d does not match end of audio section %d", len(data), audioEnd))
	}
	if len(data)%4 != 0 {
		return nil, host.ThrowException(fmt.Sprintf("v32: container size %d is not a multiple of 4", len(data)))
	}

	if isBIOS {
		if header.NumberOfTextures != biosTextureCount || header.NumberOfSounds != biosSoundCount {
			return nil, host.ThrowException(fmt.Sprintf("v32: BIOS must have exactly %d texture and %d sound, has %d and %d",
				biosTextureCount, biosSoundCount, header.NumberOfTextures, header.NumberOfSounds))
		}
	} else {
		if header.NumberOfTextures > maxCartridgeTextures {
			return nil, host.ThrowException(fmt.Sprintf("v32: cartridge has %d textures, max is %d", header.NumberOfTextures, maxCartridgeTextures))
		}
		if header.NumberOfSounds > maxCartridgeSounds {
			return nil, host.ThrowException(fmt.Sprintf("v32: cartridge has %d sounds, max is %d", header.NumberOfSounds, maxCartridgeSounds))
		}
	}

	// The program, video and audio sections occupy disjoint byte ranges
	// and don't reference each other, so they decode concurrently - an
	// errgroup.Group bounds the fan-out to exactly these three workers
	// and surfaces the first failure instead of every goroutine racing
	// to report its own.
	var (
		program  []Word
		textures [][]byte
		sounds   [][]SPUSample
	)
	var g errgroup.Group

	g.Go(func() error {
		programBytes, err := sectionBytes(data, header.Program)
		if err != nil {
			return err
		}
		program, err = readBinarySection(programBytes)
		return err
	})

	g.Go(func() error {
		videoBytes, err := sectionBytes(data, header.Video)
		if err != nil {
			return err
		}
		decoded := make([][]byte, 0, header.NumberOfTextures)
		offset := 0
		for i := uint32(0); i < header.NumberOfTextures; i++ {
			if offset >= len(videoBytes) {
				return fmt.Errorf("v32: video section truncated at texture %d", i)
			}
			pixels, consumed, err := readTextureSection(videoBytes[offset:])
			if err != nil {
				return err
			}
			decoded = append(decoded, pixels)
			offset += consumed
		}
		textures = decoded
		return nil
	})

	g.Go(func() error {
		audioBytes, err := sectionBytes(data, header.Audio)
		if err != nil {
			return err
		}
		decoded := make([][]SPUSample, 0, header.NumberOfSounds)
		offset := 0
		for i := uint32(0); i < header.NumberOfSounds; i++ {
			if offset >= len(audioBytes) {
				return fmt.Errorf("v32: audio section truncated at sound %d", i)
			}
			samples, consumed, err := readSoundSection(audioBytes[offset:])
			if err != nil {
				return err
			}
			decoded = append(decoded, samples)
			offset += consumed
		}
		sounds = decoded
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, host.ThrowException(err.Error())
	}

	if !isBIOS {
		var totalSamples uint64
		for _, snd := range sounds {
			totalSamples += uint64(len(snd))
		}
		if totalSamples > maxCartridgeSamples {
			return nil, host.ThrowException(fmt.Sprintf("v32: cartridge sounds total %d samples, max is %d", totalSamples, maxCartridgeSamples))
		}
	}

	return &LoadedCartridge{
		Title:    header.title(),
		Program:  program,
		Textures: textures,
		Sounds:   sounds,
	}, nil
}

// ParseMemoryCard validates an 8-byte V32-MEMC signature and returns
// the raw RAM dump that follows it as decoded Words.
func ParseMemoryCard(data []byte) ([]Word, error) {
	if len(data) < 8 {
		return nil, fmt.Errorf("v32: memory card file truncated")
	}
	if [8]byte(data[0:8]) != sigMemCard {
		return nil, fmt.Errorf("v32: bad memory card signature")
	}
	body := data[8:]
	words := make([]Word, len(body)/4)
	for i := range words {
		words[i] = wordLE(body[i*4 : i*4+4])
	}
	return words, nil
}

// EncodeMemoryCard serializes a memory card's RAM contents back into
// the on-disk V32-MEMC format.
func EncodeMemoryCard(words []Word) []byte {
	out := make([]byte, 8+len(words)*4)
	copy(out[0:8], sigMemCard[:])
	for i, w := range words {
		putWordLE(out[8+i*4:12+i*4], w)
	}
	return out
}
