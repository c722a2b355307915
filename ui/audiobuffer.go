package ui

import (
	"io"
	"sync"
)

// AudioRingBuffer is a thread-safe ring of 16-bit samples that oto's
// player reads as little-endian bytes. The emulation goroutine writes with
// WriteSamples; Read blocks while the ring is empty. On overflow the oldest
// samples are dropped so the producer never stalls.
type AudioRingBuffer struct {
	mu      sync.Mutex
	cond    *sync.Cond
	buf     []int16
	readPos int
	count   int
	dropped int
	closed  bool
}

// NewAudioRingBuffer creates a ring holding up to capacity samples.
// capacity should be even so stereo frames stay aligned.
func NewAudioRingBuffer(capacity int) *AudioRingBuffer {
	rb := &AudioRingBuffer{buf: make([]int16, capacity)}
	rb.cond = sync.NewCond(&rb.mu)
	return rb
}

// WriteSamples appends interleaved stereo samples.
func (rb *AudioRingBuffer) WriteSamples(samples []int16) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	if rb.closed || len(samples) == 0 {
		return
	}

	capacity := len(rb.buf)
	if len(samples) > capacity {
		rb.dropped += len(samples) - capacity
		samples = samples[len(samples)-capacity:]
	}
	if overflow := rb.count + len(samples) - capacity; overflow > 0 {
		rb.readPos = (rb.readPos + overflow) % capacity
		rb.count -= overflow
		rb.dropped += overflow
	}

	writePos := (rb.readPos + rb.count) % capacity
	n := copy(rb.buf[writePos:], samples)
	copy(rb.buf, samples[n:])
	rb.count += len(samples)

	rb.cond.Signal()
}

// Read implements io.Reader. It blocks until samples are available or the
// buffer is closed, and returns io.EOF once closed and drained. Only whole
// samples are copied, so a one-byte p reads nothing.
func (rb *AudioRingBuffer) Read(p []byte) (int, error) {
	rb.mu.Lock()
	defer rb.mu.Unlock()

	for rb.count == 0 {
		if rb.closed {
			return 0, io.EOF
		}
		rb.cond.Wait()
	}

	n := min(len(p)/2, rb.count)
	for i := 0; i < n; i++ {
		s := rb.buf[rb.readPos]
		p[2*i] = byte(s)
		p[2*i+1] = byte(s >> 8)
		rb.readPos++
		if rb.readPos == len(rb.buf) {
			rb.readPos = 0
		}
	}
	rb.count -= n

	return 2 * n, nil
}

// Buffered returns the number of bytes waiting to be read.
func (rb *AudioRingBuffer) Buffered() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.count * 2
}

// Dropped returns how many samples were discarded on overflow.
func (rb *AudioRingBuffer) Dropped() int {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	return rb.dropped
}

// Clear discards all buffered samples.
func (rb *AudioRingBuffer) Clear() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.readPos = 0
	rb.count = 0
}

// Close signals shutdown and wakes any blocked reader.
func (rb *AudioRingBuffer) Close() {
	rb.mu.Lock()
	defer rb.mu.Unlock()
	rb.closed = true
	rb.cond.Broadcast()
}
