// spu.go - the V32 sound processor: 16-channel mixer over a lock-free
// triple-state buffer ring (spec §4.6).
//
// Grounded on the original Vircon32 V32SPU for the register layout (14
// local ports), the per-channel state machine (Stopped/Paused/Playing
// transitions and the Stopped-only reassignment invariant observed in
// V32SPUWriters.cpp), and the fmod-based loop-boundary repositioning
// used by FillNextSoundBuffer. The buffer ring itself follows the
// teacher's audio_backend_oto.go: each buffer's state is an
// atomic.Uint32 written with Store (release) and read with Load
// (acquire) rather than a mutex, so the frame thread (T1, filling) and
// the playback goroutine (T2, draining) never block each other.
package v32

import (
	"math"
	"sync/atomic"
)

// SPU register-file ports, in the fixed order the data model specifies.
const (
	SPUPortCommand = iota
	SPUPortGlobalVolume
	SPUPortSelectedSound
	SPUPortSelectedChannel
	SPUPortSoundLength
	SPUPortSoundPlayWithLoop
	SPUPortSoundLoopStart
	SPUPortSoundLoopEnd
	SPUPortChannelState
	SPUPortChannelAssignedSound
	SPUPortChannelVolume
	SPUPortChannelSpeed
	SPUPortChannelLoopEnabled
	SPUPortChannelPosition
)

// SPU commands (SPUPortCommand values).
const (
	SPUCommandPlaySelectedChannel = 1 + iota
	SPUCommandPauseSelectedChannel
	SPUCommandStopSelectedChannel
	SPUCommandPauseAllChannels
	SPUCommandResumeAllChannels
	SPUCommandStopAllChannels
)

// ChannelState is one of a channel's three playback states.
type ChannelState int32

const (
	ChannelStopped ChannelState = iota
	ChannelPaused
	ChannelPlaying
)

const (
	NumChannels  = 16
	BufferSamples = 735 // one 60Hz frame of 44100Hz stereo audio
	MinBuffers    = 4
	MaxBuffers    = 16
	DefaultBuffers = 6 // (6/2) buffers-ahead * (1/60s) ~= 50ms latency
)

// SPUSample is one stereo audio frame.
type SPUSample struct {
	Left, Right int16
}

// SPUSound is a loaded sample bank: the BIOS sound or one cartridge sound.
type SPUSound struct {
	Length       int32
	PlayWithLoop bool
	LoopStart    int32
	LoopEnd      int32
	Samples      []SPUSample
}

// SPUChannel is one of the 16 independent mixer voices.
type SPUChannel struct {
	State         ChannelState
	AssignedSound int32 // -1 == BIOS sound, otherwise index into the cartridge sound table
	Volume        float32
	Speed         float32
	LoopEnabled   bool
	Position      float64
	currentSound  *SPUSound
}

type bufferState = uint32

const (
	bufToBeFilled bufferState = iota
	bufFilled
	bufQueuedToPlay
)

// soundBuffer is one slot of the ring; state transitions use Store/Load
// instead of a mutex so T1 (fill) and T2 (play) never block each other.
type soundBuffer struct {
	samples [BufferSamples]SPUSample
	state   atomic.Uint32
	seq     uint64
}

// SPU is the V32 sound processor.
type SPU struct {
	globalVolume    float32
	selectedSound   int32 // -1 == BIOS sound
	selectedChannel int32

	bios       SPUSound
	cartridge  []SPUSound
	channels   [NumChannels]SPUChannel

	buffers       [MaxBuffers]soundBuffer
	numBuffers    int
	nextFillSeq   uint64
	nextPlaySeq   uint64
	playCursor    int // read offset within the buffer currently playing

	threadPaused atomic.Bool
	threadExit   atomic.Bool

	lastFilled [BufferSamples]SPUSample
}

// NewSPU builds an SPU with numBuffers set to DefaultBuffers. numBuffers
// only decides how many buffers Reset pre-fills (half of it); filling
// and playback use all MaxBuffers slots of the ring.
func NewSPU() *SPU {
	s := &SPU{numBuffers: DefaultBuffers}
	s.Reset()
	return s
}

// SetCartridgeSoundCount (re)sizes the cartridge sound table; called by
// the loader once NumberOfSounds is known.
func (s *SPU) SetCartridgeSoundCount(n int) {
	s.cartridge = make([]SPUSound, n)
}

// LoadBIOSSound installs the single BIOS sound bank.
func (s *SPU) LoadBIOSSound(samples []SPUSample) {
	s.bios = SPUSound{Length: int32(len(samples)), LoopStart: 0, LoopEnd: int32(len(samples)) - 1, Samples: samples}
}

// LoadCartridgeSound installs one cartridge sound bank at index i.
func (s *SPU) LoadCartridgeSound(i int, samples []SPUSample) {
	if i < 0 || i >= len(s.cartridge) {
		return
	}
	s.cartridge[i] = SPUSound{Length: int32(len(samples)), LoopStart: 0, LoopEnd: int32(len(samples)) - 1, Samples: samples}
}

func (s *SPU) soundAt(index int32) *SPUSound {
	if index < 0 {
		return &s.bios
	}
	if int(index) >= len(s.cartridge) {
		return nil
	}
	return &s.cartridge[index]
}

// Reset restores the constructor defaults: full volume, BIOS sound
// selected, channel 0 selected, every channel Stopped and pointed at
// the BIOS sound, and a half-seeded buffer ring (spec §4.6: "half the
// buffers are pre-filled and queued to seed the pipeline", matching
// the original's InitializeBufferQueue()/QueueFilledBuffers()).
func (s *SPU) Reset() {
	s.globalVolume = 1.0
	s.selectedSound = -1
	s.selectedChannel = 0

	for i := range s.channels {
		s.channels[i] = SPUChannel{
			State:         ChannelStopped,
			AssignedSound: -1,
			Volume:        0.5,
			Speed:         1.0,
			LoopEnabled:   false,
			Position:      0,
			currentSound:  &s.bios,
		}
	}

	seeded := s.numBuffers / 2
	for i := range s.buffers {
		s.buffers[i].samples = [BufferSamples]SPUSample{}
		if i < seeded {
			// Pre-filled with silence (every channel is Stopped right
			// after Reset) and marked Filled rather than jumping
			// straight to QueuedToPlay: only the playback thread ever
			// promotes Filled -> QueuedToPlay (spec §5), even for this
			// seed step, so NextPlaybackSample queues them the same
			// way it queues any producer-filled buffer.
			s.buffers[i].state.Store(bufFilled)
			s.buffers[i].seq = uint64(i)
		} else {
			s.buffers[i].state.Store(bufToBeFilled)
			s.buffers[i].seq = 0
		}
	}
	s.nextFillSeq = uint64(seeded)
	s.nextPlaySeq = 0
	s.playCursor = 0
}

func (s *SPU) selectedChannelPtr() *SPUChannel { return &s.channels[s.selectedChannel] }

func (s *SPU) ReadPort(local uint32) (Word, bool) {
	switch local {
	case SPUPortCommand:
		return 0, false // write-only
	case SPUPortGlobalVolume:
		return WordFromFloat(s.globalVolume), true
	case SPUPortSelectedSound:
		return WordFromInt(s.selectedSound), true
	case SPUPortSelectedChannel:
		return WordFromInt(s.selectedChannel), true
	}

	if local >= SPUPortSoundLength && local <= SPUPortSoundLoopEnd {
		snd := s.soundAt(s.selectedSound)
		if snd == nil {
			return 0, false
		}
		switch local {
		case SPUPortSoundLength:
			return WordFromInt(snd.Length), true
		case SPUPortSoundPlayWithLoop:
			return boolWord(snd.PlayWithLoop), true
		case SPUPortSoundLoopStart:
			return WordFromInt(snd.LoopStart), true
		case SPUPortSoundLoopEnd:
			return WordFromInt(snd.LoopEnd), true
		}
	}

	ch := s.selectedChannelPtr()
	switch local {
	case SPUPortChannelState:
		return WordFromInt(int32(ch.State)), true
	case SPUPortChannelAssignedSound:
		return WordFromInt(ch.AssignedSound), true
	case SPUPortChannelVolume:
		return WordFromFloat(ch.Volume), true
	case SPUPortChannelSpeed:
		return WordFromFloat(ch.Speed), true
	case SPUPortChannelLoopEnabled:
		return boolWord(ch.LoopEnabled), true
	case SPUPortChannelPosition:
		return WordFromInt(int32(math.Floor(ch.Position))), true
	}
	return 0, false
}

func (s *SPU) WritePort(local uint32, w Word) bool {
	switch local {
	case SPUPortCommand:
		s.doCommand(w.AsInt())
		return true

	case SPUPortGlobalVolume:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		s.globalVolume = clampFloat32(w.AsFloat(), 0, 2)
		return true

	case SPUPortSelectedSound:
		id := w.AsInt()
		if id < -1 || int(id) >= len(s.cartridge) {
			return true // out-of-range selections are ignored, not trapped
		}
		s.selectedSound = id
		return true

	case SPUPortSelectedChannel:
		id := w.AsInt()
		if id < 0 || id >= NumChannels {
			return true
		}
		s.selectedChannel = id
		return true
	}

	if local >= SPUPortSoundLength && local <= SPUPortSoundLoopEnd {
		snd := s.soundAt(s.selectedSound)
		if snd == nil {
			return false
		}
		switch local {
		case SPUPortSoundLength:
			return true // read-only, loader-determined; accepted and ignored
		case SPUPortSoundPlayWithLoop:
			snd.PlayWithLoop = w.AsInt() != 0
			return true
		case SPUPortSoundLoopStart:
			snd.LoopStart = clampInt32(w.AsInt(), 0, snd.Length-1)
			return true
		case SPUPortSoundLoopEnd:
			snd.LoopEnd = clampInt32(w.AsInt(), 0, snd.Length-1)
			return true
		}
	}

	ch := s.selectedChannelPtr()
	switch local {
	case SPUPortChannelState:
		s.setChannelState(ch, ChannelState(w.AsInt()))
		return true

	case SPUPortChannelAssignedSound:
		// Reassignment is only accepted while the channel is Stopped -
		// the original rejects reassigning a sound out from under a
		// channel that is currently playing or paused on it.
		if ch.State != ChannelStopped {
			return true
		}
		id := w.AsInt()
		snd := s.soundAt(id)
		if snd == nil {
			return true
		}
		ch.AssignedSound = id
		ch.currentSound = snd
		return true

	case SPUPortChannelVolume:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		ch.Volume = clampFloat32(w.AsFloat(), 0, 8)
		return true

	case SPUPortChannelSpeed:
		if isBadFloat(w.AsFloat()) {
			return true
		}
		ch.Speed = clampFloat32(w.AsFloat(), 0, 128)
		return true

	case SPUPortChannelLoopEnabled:
		ch.LoopEnabled = w.AsInt() != 0
		return true

	case SPUPortChannelPosition:
		length := int32(0)
		if ch.currentSound != nil {
			length = ch.currentSound.Length
		}
		if length < 1 {
			ch.Position = 0
			return true
		}
		ch.Position = float64(clampInt32(w.AsInt(), 0, length-1))
		return true
	}
	return false
}

func (s *SPU) doCommand(cmd int32) {
	switch cmd {
	case SPUCommandPlaySelectedChannel:
		s.play(s.selectedChannelPtr())
	case SPUCommandPauseSelectedChannel:
		s.pause(s.selectedChannelPtr())
	case SPUCommandStopSelectedChannel:
		s.stop(s.selectedChannelPtr())
	case SPUCommandPauseAllChannels:
		for i := range s.channels {
			s.pause(&s.channels[i])
		}
	case SPUCommandResumeAllChannels:
		for i := range s.channels {
			if s.channels[i].State == ChannelPaused {
				s.channels[i].State = ChannelPlaying
			}
		}
	case SPUCommandStopAllChannels:
		for i := range s.channels {
			s.stop(&s.channels[i])
		}
	default:
		// unknown command codes are silent no-ops
	}
}

// setChannelState lets a direct ChannelState write drive the same
// transitions the Play/Pause/Stop commands do, keeping one state
// machine behind both entry points.
func (s *SPU) setChannelState(ch *SPUChannel, target ChannelState) {
	switch target {
	case ChannelPlaying:
		s.play(ch)
	case ChannelPaused:
		s.pause(ch)
	case ChannelStopped:
		s.stop(ch)
	}
}

// play: Stopped or already-Playing rewinds to the start of the sound
// and latches LoopEnabled from the sound's PlayWithLoop flag; Paused
// resumes in place with no other change.
func (s *SPU) play(ch *SPUChannel) {
	switch ch.State {
	case ChannelStopped, ChannelPlaying:
		ch.Position = 0
		if ch.currentSound != nil {
			ch.LoopEnabled = ch.currentSound.PlayWithLoop
		}
		ch.State = ChannelPlaying
	case ChannelPaused:
		ch.State = ChannelPlaying
	}
}

func (s *SPU) pause(ch *SPUChannel) {
	if ch.State == ChannelPlaying {
		ch.State = ChannelPaused
	}
}

func (s *SPU) stop(ch *SPUChannel) {
	ch.State = ChannelStopped
	ch.Position = 0
}

func clampSample16(v float64) int16 {
	if v > math.MaxInt16 {
		return math.MaxInt16
	}
	if v < math.MinInt16 {
		return math.MinInt16
	}
	return int16(v)
}

// FillNextBuffer mixes one buffer's worth of audio (T1, the frame
// thread, calls this at most once per frame) and marks it Filled. It
// is a no-op if every buffer in the ring is already Filled or
// QueuedToPlay (the playback thread has fallen behind filling, not
// the other way around - backpressure, not data loss).
func (s *SPU) FillNextBuffer() {
	buf := s.findBufferToFill()
	if buf == nil {
		return
	}

	buf.samples = [BufferSamples]SPUSample{}
	for ci := range s.channels {
		s.mixChannel(&s.channels[ci], buf)
	}

	buf.seq = s.nextFillSeq
	s.nextFillSeq++
	s.lastFilled = buf.samples
	buf.state.Store(bufFilled)
}

// LastFilledBuffer returns a copy of the most recently mixed buffer,
// for headless capture/testing - independent of the ring's play state.
func (s *SPU) LastFilledBuffer() []SPUSample {
	out := make([]SPUSample, BufferSamples)
	copy(out, s.lastFilled[:])
	return out
}

func (s *SPU) findBufferToFill() *soundBuffer {
	for i := range s.buffers {
		if s.buffers[i].state.Load() == bufToBeFilled {
			return &s.buffers[i]
		}
	}
	return nil
}

func (s *SPU) mixChannel(ch *SPUChannel, buf *soundBuffer) {
	if ch.State != ChannelPlaying || ch.currentSound == nil || len(ch.currentSound.Samples) == 0 {
		return
	}
	snd := ch.currentSound
	gain := float64(ch.Volume) * float64(s.globalVolume)

	for i := 0; i < BufferSamples; i++ {
		if ch.State != ChannelPlaying {
			break
		}
		idx := int(ch.Position)
		if idx < 0 || idx >= len(snd.Samples) {
			ch.State = ChannelStopped
			break
		}
		sample := snd.Samples[idx]
		buf.samples[i].Left = clampSample16(float64(buf.samples[i].Left) + float64(sample.Left)*gain)
		buf.samples[i].Right = clampSample16(float64(buf.samples[i].Right) + float64(sample.Right)*gain)

		previous := ch.Position
		ch.Position += float64(ch.Speed)

		loopLen := float64(snd.LoopEnd - snd.LoopStart)
		if ch.LoopEnabled && loopLen > 0 && previous <= float64(snd.LoopEnd) && ch.Position > float64(snd.LoopEnd) {
			ch.Position = float64(snd.LoopStart) + math.Mod(ch.Position-float64(snd.LoopStart), loopLen)
		} else if ch.Position > float64(snd.Length-1) {
			ch.State = ChannelStopped
		}
	}
}

// ChangeFrame is a placeholder fan-out target for Console's per-frame
// step; the SPU has no per-frame-only register state to reset (unlike
// GPU's pixel budget), since mixing is driven by FillNextBuffer.
func (s *SPU) ChangeFrame() {}

// NextPlaybackSample pulls one stereo sample for the playback thread
// (T2), queuing the next Filled buffer (lowest sequence number first)
// when the current one is exhausted and releasing drained buffers
// back to ToBeFilled. ok is false only when the ring has nothing
// Filled or QueuedToPlay left to play - the caller should emit silence.
func (s *SPU) NextPlaybackSample() (left, right int16, ok bool) {
	buf := s.currentPlayBuffer()
	if buf == nil {
		buf = s.findBufferToPlay()
		if buf == nil {
			return 0, 0, false
		}
		buf.state.Store(bufQueuedToPlay)
		s.playCursor = 0
	}

	sample := buf.samples[s.playCursor]
	s.playCursor++
	if s.playCursor >= BufferSamples {
		buf.state.Store(bufToBeFilled)
		s.playCursor = 0
	}
	return sample.Left, sample.Right, true
}

func (s *SPU) currentPlayBuffer() *soundBuffer {
	if s.playCursor == 0 {
		return nil
	}
	for i := range s.buffers {
		if s.buffers[i].state.Load() == bufQueuedToPlay {
			return &s.buffers[i]
		}
	}
	return nil
}

func (s *SPU) findBufferToPlay() *soundBuffer {
	var best *soundBuffer
	for i := range s.buffers {
		if s.buffers[i].state.Load() != bufFilled {
			continue
		}
		if best == nil || s.buffers[i].seq < best.seq {
			best = &s.buffers[i]
		}
	}
	return best
}

// PauseThread/ResumeThread/StopThread set the playback thread's atomic
// flags, which ThreadPaused/ThreadStopped report. The playback reader
// itself (OtoAudioHost.Read in audio_host_oto.go) does not consult
// these flags, and nothing in this package calls the setters.
func (s *SPU) PauseThread()  { s.threadPaused.Store(true) }
func (s *SPU) ResumeThread() { s.threadPaused.Store(false) }
func (s *SPU) StopThread()   { s.threadExit.Store(true) }
func (s *SPU) ThreadPaused() bool { return s.threadPaused.Load() }
func (s *SPU) ThreadStopped() bool { return s.threadExit.Load() }
