// audio_host_oto.go - oto/v3 playback thread (T2) for the SPU buffer
// ring, adapted from the teacher's audio_backend_oto.go: the same
// atomic-pointer-for-hot-path / mutex-for-control split, but pulling
// mixed stereo int16 samples from SPU.NextPlaybackSample instead of a
// synth chip's ring.
package v32

import (
	"sync"
	"sync/atomic"

	"github.com/ebitengine/oto/v3"
)

// SPUSampleRate is the fixed output sample rate the mixer and playback
// thread agree on (44100Hz stereo, matching BufferSamples' 60Hz framing).
const SPUSampleRate = 44100

// OtoAudioHost drives an oto/v3 player from an SPU's buffer ring. It
// implements io.Reader so oto can pull bytes from it directly.
type OtoAudioHost struct {
	ctx     *oto.Context
	player  *oto.Player
	spu     atomic.Pointer[SPU]
	started bool
	mutex   sync.Mutex
}

// NewOtoAudioHost opens an oto context at SPUSampleRate, stereo,
// signed 16-bit little-endian - the same sample format SPU.buffers
// already stores, so no conversion happens on the hot path.
func NewOtoAudioHost() (*OtoAudioHost, error) {
	opts := &oto.NewContextOptions{
		SampleRate:   SPUSampleRate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   4,
	}

	ctx, ready, err := oto.NewContext(opts)
	if err != nil {
		return nil, err
	}
	<-ready

	return &OtoAudioHost{ctx: ctx}, nil
}

// Attach wires the playback thread to an SPU's ring; the chip pointer
// is atomic so Read (running on oto's internal goroutine) never blocks
// behind Console's control-path calls.
func (h *OtoAudioHost) Attach(spu *SPU) {
	h.mutex.Lock()
	defer h.mutex.Unlock()

	h.spu.Store(spu)
	h.player = h.ctx.NewPlayer(h)
}

// Read implements io.Reader, filling p with interleaved stereo int16
// little-endian samples pulled one at a time off the SPU ring. When
// the ring has nothing left to play it emits silence rather than
// blocking, so an underrun is heard, not a stall.
func (h *OtoAudioHost) Read(p []byte) (int, error) {
	spu := h.spu.Load()
	if spu == nil {
		for i := range p {
			p[i] = 0
		}
		return len(p), nil
	}

	for i := 0; i+3 < len(p); i += 4 {
		left, right, ok := spu.NextPlaybackSample()
		if !ok {
			left, right = 0, 0
		}
		p[i] = byte(left)
		p[i+1] = byte(left >> 8)
		p[i+2] = byte(right)
		p[i+3] = byte(right >> 8)
	}
	return len(p), nil
}

func (h *OtoAudioHost) Start() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if !h.started && h.player != nil {
		h.player.Play()
		h.started = true
	}
}

func (h *OtoAudioHost) Stop() {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.started && h.player != nil {
		h.player.Close()
		h.started = false
	}
}

func (h *OtoAudioHost) Close() {
	h.Stop()
	h.mutex.Lock()
	defer h.mutex.Unlock()
	if h.player != nil {
		h.player.Close()
		h.player = nil
	}
}

func (h *OtoAudioHost) IsStarted() bool {
	h.mutex.Lock()
	defer h.mutex.Unlock()
	return h.started
}
