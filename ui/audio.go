// Package ui holds the pieces shared between the emulation goroutine and
// the window: the oto audio sink, playback control, and meter state.
package ui

import (
	"fmt"
	"sync"
	"time"

	"github.com/ebitengine/oto/v3"
)

const (
	bytesPerFrame = 4 // stereo int16

	contextLatency = 50 * time.Millisecond
	playerLatency  = 100 * time.Millisecond
	ringLatency    = 170 * time.Millisecond
)

// AudioPlayer feeds interleaved stereo samples to oto. oto pulls from a
// ring buffer that the emulation goroutine fills.
type AudioPlayer struct {
	rate   int
	player *oto.Player
	ring   *AudioRingBuffer
}

// oto allows one context per process, so the first player fixes the rate.
var (
	ctxMu   sync.Mutex
	ctx     *oto.Context
	ctxRate int
)

func otoContext(rate int) (*oto.Context, error) {
	ctxMu.Lock()
	defer ctxMu.Unlock()

	if ctx != nil {
		if rate != ctxRate {
			return nil, fmt.Errorf("audio device already open at %d Hz", ctxRate)
		}
		return ctx, nil
	}

	c, ready, err := oto.NewContext(&oto.NewContextOptions{
		SampleRate:   rate,
		ChannelCount: 2,
		Format:       oto.FormatSignedInt16LE,
		BufferSize:   contextLatency,
	})
	if err != nil {
		return nil, fmt.Errorf("oto audio not available: %w", err)
	}
	<-ready
	ctx, ctxRate = c, rate
	return ctx, nil
}

// bytesFor converts a duration of audio at rate to a byte count.
func bytesFor(rate int, d time.Duration) int {
	return int(int64(rate) * int64(d) / int64(time.Second) * bytesPerFrame)
}

// NewAudioPlayer opens the device at rate Hz and starts playback at the
// given volume (0.0 to 1.0).
func NewAudioPlayer(rate int, volume float64) (*AudioPlayer, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("invalid audio rate %d", rate)
	}
	c, err := otoContext(rate)
	if err != nil {
		return nil, err
	}

	ring := NewAudioRingBuffer(bytesFor(rate, ringLatency) / 2)
	p := c.NewPlayer(ring)
	p.SetBufferSize(bytesFor(rate, playerLatency))
	p.SetVolume(volume)
	p.Play()

	return &AudioPlayer{rate: rate, player: p, ring: ring}, nil
}

// SampleRate returns the rate the player expects samples at.
func (a *AudioPlayer) SampleRate() int {
	return a.rate
}

// QueueSamples hands interleaved stereo samples to the player.
func (a *AudioPlayer) QueueSamples(samples []int16) {
	a.ring.WriteSamples(samples)
}

// Latency returns how much queued audio has not been played yet, counting
// both the ring buffer and oto's own buffer.
func (a *AudioPlayer) Latency() time.Duration {
	queued := a.ring.Buffered() + a.player.BufferedSize()
	return time.Duration(queued/bytesPerFrame) * time.Second / time.Duration(a.rate)
}

// Dropped returns the number of samples discarded because playback fell
// behind the emulation.
func (a *AudioPlayer) Dropped() int {
	return a.ring.Dropped()
}

// SetVolume sets the playback volume (0.0 = silent, 1.0 = full).
func (a *AudioPlayer) SetVolume(vol float64) {
	a.player.SetVolume(vol)
}

// Close stops playback. The device stays open for later players.
func (a *AudioPlayer) Close() {
	a.ring.Close()
	a.player.Close()
}
