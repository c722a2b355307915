package emu

import (
	"encoding/binary"
	"errors"
	"fmt"
	"hash/crc32"
	"math"
	"time"

	"github.com/user-none/esfmplay/esfm"
)

// Name and Version identify the player to frontends.
const (
	Name    = "esfmplay"
	Version = "0.1.0"
)

// FPS is the host frame rate. One frame covers 1/FPS seconds of chip time.
const FPS = 60

// DefaultSampleRate is the output rate used when Options leaves it at zero.
const DefaultSampleRate = 48000

// LoopForever is a loop count that outlasts any listening session.
const LoopForever = math.MaxInt32

// Options configures playback.
type Options struct {
	SampleRate int  // output rate in Hz, 0 selects DefaultSampleRate
	Loops      int  // extra passes through the loop section
	LowPass    bool // apply the output low-pass filter
	Native     bool // force native mode at start
}

// Emulator plays a Sequence on an ESFM chip and produces stereo PCM at the
// output rate, one frame at a time.
type Emulator struct {
	chip   *esfm.Chip
	seq    *Sequence
	seqCRC uint32

	outRate int
	lowPass bool
	muted   bool

	// Playback cursor
	next        int    // next event to dispatch
	seqTime     uint64 // position in sequence Rate units
	seqAccum    int    // Bresenham accumulator, chip samples to sequence units
	frameAccum  int    // Bresenham accumulator, chip samples per frame
	resampAccum int    // Bresenham accumulator, chip samples to output samples
	loopsLeft   int
	elapsed     uint64 // chip samples generated
	done        bool

	levels [esfm.Channels]int32

	// Pre-allocated audio buffer for external consumption
	audioBuffer []int16

	// Output low-pass filter state, persists across frames
	lpfAlpha    float64
	filterPrevL float64
	filterPrevR float64
}

// NewEmulator validates seq and prepares a chip to play it.
func NewEmulator(seq *Sequence, opts Options) (*Emulator, error) {
	if seq == nil {
		return nil, errors.New("emu: nil sequence")
	}
	if err := seq.Validate(); err != nil {
		return nil, err
	}
	if opts.SampleRate == 0 {
		opts.SampleRate = DefaultSampleRate
	}
	if opts.SampleRate < 0 {
		return nil, fmt.Errorf("emu: invalid sample rate %d", opts.SampleRate)
	}
	if opts.Loops < 0 || opts.Loops > LoopForever {
		return nil, fmt.Errorf("emu: invalid loop count %d", opts.Loops)
	}

	e := &Emulator{
		chip:        esfm.New(),
		seq:         seq,
		seqCRC:      sequenceCRC(seq),
		outRate:     opts.SampleRate,
		lowPass:     opts.LowPass,
		loopsLeft:   opts.Loops,
		lpfAlpha:    lowPassAlpha(opts.SampleRate),
		audioBuffer: make([]int16, 0, 2*(opts.SampleRate/FPS+2)),
	}
	if seq.Native || opts.Native {
		e.chip.SetMode(true)
	}
	return e, nil
}

// sequenceCRC identifies a sequence so save states are only restored onto
// the log they were taken from.
func sequenceCRC(seq *Sequence) uint32 {
	h := crc32.NewIEEE()
	var rec [12]byte
	for _, ev := range seq.Events {
		binary.LittleEndian.PutUint64(rec[0:8], ev.Sample)
		rec[8] = uint8(ev.Op)
		binary.LittleEndian.PutUint16(rec[9:11], ev.Addr)
		rec[11] = ev.Data
		h.Write(rec[:])
	}
	binary.LittleEndian.PutUint64(rec[0:8], seq.Length)
	binary.LittleEndian.PutUint32(rec[8:12], uint32(seq.Rate))
	h.Write(rec[:])
	return h.Sum32()
}

// RunFrame executes one frame of playback.
func (e *Emulator) RunFrame() {
	e.audioBuffer = e.audioBuffer[:0]
	e.levels = [esfm.Channels]int32{}

	e.frameAccum += esfm.SampleRate
	n := e.frameAccum / FPS
	e.frameAccum -= n * FPS

	for i := 0; i < n; i++ {
		l, r := e.step()
		if e.muted {
			l, r = 0, 0
		}
		e.resampAccum += e.outRate
		for e.resampAccum >= esfm.SampleRate {
			e.resampAccum -= esfm.SampleRate
			e.audioBuffer = append(e.audioBuffer, l, r)
		}
	}

	if e.lowPass {
		e.applyLowPass()
	}
}

// step dispatches due events and generates one chip sample.
func (e *Emulator) step() (left, right int16) {
	e.dispatch()

	left, right = e.chip.Generate()
	e.elapsed++
	e.trackLevels()

	if !e.done {
		e.seqAccum += e.seq.Rate
		for e.seqAccum >= esfm.SampleRate {
			e.seqAccum -= esfm.SampleRate
			e.seqTime++
		}
	}
	return left, right
}

// dispatch sends every due event to the chip and handles the end of the
// sequence.
func (e *Emulator) dispatch() {
	events := e.seq.Events
	for !e.done {
		for e.next < len(events) && events[e.next].Sample <= e.seqTime {
			e.apply(events[e.next])
			e.next++
		}
		if e.next < len(events) || e.seqTime < e.seq.Length {
			return
		}
		if !e.seq.HasLoop() || e.loopsLeft == 0 {
			e.done = true
			return
		}
		e.loopsLeft--
		e.next = e.seq.LoopStart
		e.seqTime = e.seq.LoopSample
	}
}

func (e *Emulator) apply(ev Event) {
	switch ev.Op {
	case OpWrite:
		e.chip.WriteRegister(ev.Addr, ev.Data)
	case OpBuffered:
		e.chip.WriteRegisterBuffered(ev.Addr, ev.Data)
	case OpPort:
		e.chip.WritePort(uint8(ev.Addr), ev.Data)
	case OpMode:
		e.chip.SetMode(ev.Data != 0)
	}
}

func (e *Emulator) trackLevels() {
	for ch := range e.levels {
		l, r := e.chip.ChannelMix(ch)
		v := max(absInt32(l), absInt32(r))
		if v > e.levels[ch] {
			e.levels[ch] = v
		}
	}
}

func absInt32(v int32) int32 {
	if v < 0 {
		return -v
	}
	return v
}

// Done reports whether the sequence has ended with no loops left.
func (e *Emulator) Done() bool {
	return e.done
}

// Position returns the chip time played so far, loops included.
func (e *Emulator) Position() time.Duration {
	return time.Duration(e.elapsed) * time.Second / esfm.SampleRate
}

// Duration returns the length of one pass through the sequence.
func (e *Emulator) Duration() time.Duration {
	return time.Duration(e.seq.Length) * time.Second / time.Duration(e.seq.Rate)
}

// Title returns the sequence title, if any.
func (e *Emulator) Title() string {
	return e.seq.Title
}

// Chip exposes the chip for inspection.
func (e *Emulator) Chip() *esfm.Chip {
	return e.chip
}

// ChannelLevels returns the peak absolute channel output of the last frame.
func (e *Emulator) ChannelLevels() [esfm.Channels]int32 {
	return e.levels
}

// SetMuted silences the output without stopping playback.
func (e *Emulator) SetMuted(muted bool) {
	e.muted = muted
}

// SetLowPass turns the output filter on or off. Turning it off clears the
// filter history so a later enable starts from silence.
func (e *Emulator) SetLowPass(on bool) {
	if !on {
		e.filterPrevL, e.filterPrevR = 0, 0
	}
	e.lowPass = on
}

// LowPass reports whether the output filter is on.
func (e *Emulator) LowPass() bool {
	return e.lowPass
}

// SetLoops sets how many more passes through the loop section are played.
// It has no effect once playback is done.
func (e *Emulator) SetLoops(n int) {
	e.loopsLeft = min(max(n, 0), LoopForever)
}

// Muted reports whether output is silenced.
func (e *Emulator) Muted() bool {
	return e.muted
}

// SampleRate returns the output rate in Hz.
func (e *Emulator) SampleRate() int {
	return e.outRate
}
