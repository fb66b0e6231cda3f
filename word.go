// word.go - the 32-bit tagged scalar that flows across every V32 bus.

/*
Package v32 implements the core of a deterministic fantasy-console
emulator: CPU, memory buses, timer, RNG, GPU, SPU, input controller
and cartridge/memory-card controllers, clocked together to produce one
video frame and one audio frame per tick at a fixed 60 Hz.

This file defines Word, the uniform 32-bit transport type every bus,
register and port moves. A Word is reinterpreted according to context
rather than carrying its own type tag at runtime - the same bit
pattern can be read as a signed integer, an unsigned integer, an
IEEE-754 float, four packed RGBA bytes, two packed int16 audio
samples, or a packed CPU instruction. All multi-byte encodings are
little-endian, both on disk and in memory.
*/
package v32

import (
	"encoding/binary"
	"math"
)

// Word is the uniform 32-bit value transported by every V32 bus.
type Word uint32

// WordFromInt packs a signed integer into a Word.
func WordFromInt(v int32) Word { return Word(uint32(v)) }

// WordFromFloat packs an IEEE-754 float into a Word.
func WordFromFloat(v float32) Word { return Word(math.Float32bits(v)) }

// WordFromRGBA packs an {R,G,B,A} byte quad into a Word, in that byte order.
func WordFromRGBA(c RGBA) Word {
	return Word(uint32(c.R) | uint32(c.G)<<8 | uint32(c.B)<<16 | uint32(c.A)<<24)
}

// AsInt reinterprets the Word as a signed 32-bit integer.
func (w Word) AsInt() int32 { return int32(uint32(w)) }

// AsUint reinterprets the Word as an unsigned 32-bit integer.
func (w Word) AsUint() uint32 { return uint32(w) }

// AsFloat reinterprets the Word's bit pattern as an IEEE-754 float.
func (w Word) AsFloat() float32 { return math.Float32frombits(uint32(w)) }

// AsRGBA reinterprets the Word as a packed {R,G,B,A} byte quad.
func (w Word) AsRGBA() RGBA {
	return RGBA{
		R: byte(w),
		G: byte(w >> 8),
		B: byte(w >> 16),
		A: byte(w >> 24),
	}
}

// AsStereoSample reinterprets the Word as two little-endian int16 samples.
func (w Word) AsStereoSample() (left, right int16) {
	left = int16(uint16(w))
	right = int16(uint16(w >> 16))
	return
}

// WordFromStereoSample packs a stereo int16 pair into a Word.
func WordFromStereoSample(left, right int16) Word {
	return Word(uint32(uint16(left)) | uint32(uint16(right))<<16)
}

// RGBA is a packed 4-byte color, in on-disk/register byte order.
type RGBA struct {
	R, G, B, A byte
}

// Instruction is the decoded bitfield layout of a packed CPU instruction
// word: opcode:6 | usesImmediate:1 | reg1:4 | reg2:4 | addressingMode:3 | portNumber:14,
// with the opcode occupying the most significant 6 bits.
type Instruction struct {
	Opcode         byte
	UsesImmediate  bool
	Register1      byte
	Register2      byte
	AddressingMode byte
	PortNumber     uint16
}

// DecodeInstruction unpacks a raw instruction Word into its bitfields.
func DecodeInstruction(w Word) Instruction {
	v := uint32(w)
	return Instruction{
		Opcode:         byte(v >> 26),
		UsesImmediate:  (v>>25)&1 != 0,
		Register1:      byte((v >> 21) & 0xF),
		Register2:      byte((v >> 17) & 0xF),
		AddressingMode: byte((v >> 14) & 0x7),
		PortNumber:     uint16(v & 0x3FFF),
	}
}

// Encode packs the instruction's bitfields back into a Word.
func (i Instruction) Encode() Word {
	v := uint32(i.Opcode&0x3F) << 26
	if i.UsesImmediate {
		v |= 1 << 25
	}
	v |= uint32(i.Register1&0xF) << 21
	v |= uint32(i.Register2&0xF) << 17
	v |= uint32(i.AddressingMode&0x7) << 14
	v |= uint32(i.PortNumber & 0x3FFF)
	return Word(v)
}

// putWordLE writes w into b[0:4] little-endian, matching the teacher's
// binary.LittleEndian-based memory bus encoding.
func putWordLE(b []byte, w Word) {
	binary.LittleEndian.PutUint32(b, uint32(w))
}

func wordLE(b []byte) Word {
	return Word(binary.LittleEndian.Uint32(b))
}

// Register aliases, per the data model.
const (
	RegCount       = 11 // R11
	RegSource      = 12 // R12
	RegDestination = 13 // R13
	RegBasePointer = 14 // R14
	RegStackPtr    = 15 // R15
	NumRegisters   = 16
)
