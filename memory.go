// memory.go - RAM and ROM memory modules (spec §4.3).
//
// Grounded on the teacher's SystemBus backing store (a flat []byte
// with LittleEndian word access), narrowed to the spec's word-vector
// semantics: range-checked local addressing, with ROM additionally
// rejecting every write.
package v32

// RAM is a read/write word-addressable memory module.
type RAM struct {
	words []Word
}

// NewRAM allocates a RAM module of the given size in words, zeroed.
func NewRAM(sizeWords int) *RAM {
	return &RAM{words: make([]Word, sizeWords)}
}

func (m *RAM) ReadWord(local uint32) (Word, bool) {
	idx := local / 4
	if int(idx) >= len(m.words) {
		return 0, false
	}
	return m.words[idx], true
}

func (m *RAM) WriteWord(local uint32, w Word) bool {
	idx := local / 4
	if int(idx) >= len(m.words) {
		return false
	}
	m.words[idx] = w
	return true
}

// Clear zeroes every word, used on console reset.
func (m *RAM) Clear() {
	for i := range m.words {
		m.words[i] = 0
	}
}

// Size reports the module capacity in words.
func (m *RAM) Size() int { return len(m.words) }

// ROM is a read-only word-addressable memory module. Writes always
// fail silently (return false) - no hardware-error trap, per invariant (c).
type ROM struct {
	words []Word
}

// NewROM wraps pre-decoded words as a read-only module.
func NewROM(words []Word) *ROM {
	return &ROM{words: words}
}

func (m *ROM) ReadWord(local uint32) (Word, bool) {
	idx := local / 4
	if int(idx) >= len(m.words) {
		return 0, false
	}
	return m.words[idx], true
}

func (m *ROM) WriteWord(local uint32, w Word) bool {
	return false
}

func (m *ROM) Size() int { return len(m.words) }

// Connect replaces the ROM's contents (used when a cartridge/BIOS
// load supersedes a previous one).
func (m *ROM) Connect(words []Word) { m.words = words }

// Disconnect empties the ROM.
func (m *ROM) Disconnect() { m.words = nil }
