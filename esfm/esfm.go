// Package esfm emulates the ESS ESFM, an OPL3-compatible FM synthesizer with
// an extended native mode exposing four independently routed operators per
// channel.
package esfm

// SampleRate is the chip's native output rate in Hz (14.318 MHz / 288).
const SampleRate = 49716

// Channels and SlotsPerChannel size the chip's operator array.
const (
	Channels        = numChannels
	SlotsPerChannel = numSlots
)

const (
	numChannels    = 18
	numSlots       = 4
	writeBufSize   = 1024
	writeBufDelay  = 2
	keyOnRegsStart = numChannels * numSlots * 8 // 0x240
)

// Native mode global registers
const (
	regTimer1     = 0x402
	regTimer2     = 0x403
	regTimerCtrl  = 0x404
	regConfig     = 0x408
	regBassDrum   = 0x4BD
	regTest       = 0x501
	regFourOpConn = 0x504
	regNativeMode = 0x505
)

// Envelope states
const (
	egAttack  = 0
	egDecay   = 1
	egSustain = 2
	egRelease = 3
)

// Rhythm mode flag in the bass drum register ($BD bit 5)
const rhythmEnable = 0x20

// modSource identifies the value a slot reads as its modulation input.
// A slot reads either its own feedback estimate or the output of a slot,
// possibly in another channel (legacy 4-op pairs chain across channels).
type modSource struct {
	feedback bool  // read own feedbackBuf
	channel  uint8 // source channel when !feedback
	slot     uint8 // source slot when !feedback
}

// slotState holds derived state that is not directly register visible.
type slotState struct {
	output      int16 // last waveform output (signed 13-bit)
	feedbackBuf int16 // cached feedback term for slot 0

	egPosition  uint16 // 9-bit attenuation (0=loudest, 0x1FF=silent)
	egOutput    uint16 // position + total level + KSL + tremolo
	egKSLOffset uint16
	keyscale    uint8
	egState     uint8

	phaseAcc   uint32 // 19-bit phase accumulator
	phaseOut   uint16 // 10-bit phase of the current sample
	phaseReset bool

	keyOnGate    bool // key-on edge detector
	delayRun     bool
	delayCounter uint16
	delayCompare uint16

	// Envelope delay changes while a note is held re-arm the compare value once.
	delayUp, delayUpGate     bool
	delayDown, delayDownGate bool

	emuModEnable    bool
	emuOutputEnable bool

	mod    modSource
	keyOn2 bool // slot keys from the channel's second key-on flag
}

// slot is one operator. Register fields mirror the eight native slot registers.
type slot struct {
	// Register 0
	tremoloEn     bool
	vibratoEn     bool
	envSustaining bool
	ksr           bool
	mult          uint8

	// Register 1
	ksl    uint8
	tLevel uint8

	// Registers 2 and 3
	attackRate  uint8
	decayRate   uint8
	sustainLvl  uint8
	releaseRate uint8

	// Registers 4 and 5
	fNum     uint16 // 10-bit F-number
	block    uint8
	envDelay uint8
	emuKeyOn bool

	// Register 6
	tremoloDeep   bool
	vibratoDeep   bool
	outEnable     [2]bool // left, right
	modInLevel    uint8
	emuConnection uint8

	// Register 7
	outputLevel uint8
	rhyNoise    uint8
	waveform    uint8

	chIdx uint8
	idx   uint8

	in slotState
}

// channel groups four slots. In legacy mode only slots 0 and 1 play.
type channel struct {
	slots  [numSlots]slot
	output [2]int32

	keyOn   bool
	keyOn2  bool // channels 16 and 17: key for slots 2 and 3
	fourOp  bool
	fourOp2 bool
	idx     uint8
}

// writeEntry is one pending buffered register write.
type writeEntry struct {
	timestamp uint64
	addr      uint16
	data      uint8
	valid     bool
}

// testBits latches register $501. None of them alter synthesis.
type testBits struct {
	egHalt         bool // written by bit 0 or bit 5, read on bit 5
	distort        bool
	bit2           bool
	bit3           bool
	attenuate      bool
	w5r0           bool // written by bit 5, read on bit 0
	phaseStopReset bool
	bit7           bool
}

// Chip is the complete ESFM state. It holds no pointers, so it can be
// copied and compared as a value.
type Chip struct {
	channels  [numChannels]channel
	outputAcc [2]int32

	addrLatch uint16

	nativeMode       bool
	emuNewMode       bool
	emuWaveselEnable bool
	keyscaleMode     bool
	emuRhythmFlags   uint8
	emuVibratoDeep   bool
	emuTremoloDeep   bool

	// Timers
	timerReload   [2]uint8
	timerCounter  [2]uint8
	timerEnable   [2]bool
	timerMask     [2]bool
	timerOverflow [2]bool
	irq           bool
	timerSubCount uint8

	test testBits

	// Global LFO and envelope clocks
	egTimer         uint64 // 36-bit
	egTimerOverflow bool
	egTick          bool
	egClocks        uint8
	globalTimer     uint16 // 10-bit
	tremolo         uint8
	tremoloPos      uint8
	vibratoPos      uint8

	lfsr uint32 // 23-bit noise generator

	// Rhythm phase bits shared between percussion slots
	rmHHBit2 bool
	rmHHBit3 bool
	rmHHBit7 bool
	rmHHBit8 bool
	rmTCBit3 bool
	rmTCBit5 bool

	writeBuf          [writeBufSize]writeEntry
	writeBufStart     int
	writeBufEnd       int
	writeBufTimestamp uint64
}

// New creates a chip in its power-on state (legacy mode, all slots released).
func New() *Chip {
	c := &Chip{}
	c.Reset()
	return c
}

// Reset returns the chip to its power-on state.
func (c *Chip) Reset() {
	*c = Chip{}
	for ch := range c.channels {
		channel := &c.channels[ch]
		channel.idx = uint8(ch)
		for s := range channel.slots {
			sl := &channel.slots[s]
			sl.chIdx = uint8(ch)
			sl.idx = uint8(s)
			sl.in.egPosition = 0x1FF
			sl.in.egOutput = 0x1FF
			sl.in.egState = egRelease
			sl.in.emuModEnable = true
			sl.in.emuOutputEnable = s == 1
			sl.in.mod = chainSource(ch, s)
			sl.in.keyOn2 = ch > 15 && s&2 != 0
			sl.outEnable = [2]bool{true, true}
		}
	}
	c.lfsr = 1
}

// chainSource is the native mode wiring: slot 0 feeds back on itself and
// every other slot is modulated by the slot before it.
func chainSource(ch, s int) modSource {
	if s == 0 {
		return modSource{feedback: true}
	}
	return modSource{channel: uint8(ch), slot: uint8(s - 1)}
}

// modInput resolves a slot's modulation source to its current value.
func (c *Chip) modInput(sl *slot) int16 {
	if sl.in.mod.feedback {
		return sl.in.feedbackBuf
	}
	return c.channels[sl.in.mod.channel].slots[sl.in.mod.slot].in.output
}

// slotKeyOn returns the channel key-on flag the slot is wired to.
func (c *Chip) slotKeyOn(sl *slot) bool {
	ch := &c.channels[sl.chIdx]
	if sl.in.keyOn2 {
		return ch.keyOn2
	}
	return ch.keyOn
}

// NativeMode reports whether the chip is in native (ESFM) mode.
func (c *Chip) NativeMode() bool {
	return c.nativeMode
}

// SetMode switches between native and legacy mode. Switching to the current
// mode is a no-op.
func (c *Chip) SetMode(native bool) {
	if native == c.nativeMode {
		return
	}
	c.nativeMode = native
	if native {
		c.emuToNativeSwitch()
	} else {
		c.nativeToEmuSwitch()
	}
}

// ChannelOutput returns the native mode output of one channel: both sides of
// every audible slot summed and saturated. Returns 0 for an invalid channel.
func (c *Chip) ChannelOutput(ch int) int16 {
	if ch < 0 || ch >= numChannels {
		return 0
	}
	var mix int32
	for s := range c.channels[ch].slots {
		sl := &c.channels[ch].slots[s]
		if sl.outputLevel == 0 {
			continue
		}
		v := int32(sl.in.output >> (7 - sl.outputLevel))
		if sl.outEnable[0] {
			mix += v
		}
		if sl.outEnable[1] {
			mix += v
		}
	}
	return clipSample(mix)
}

// ChannelMix returns the channel's left/right accumulator from the last
// generated frame. Returns 0, 0 for an invalid channel.
func (c *Chip) ChannelMix(ch int) (left, right int32) {
	if ch < 0 || ch >= numChannels {
		return 0, 0
	}
	return c.channels[ch].output[0], c.channels[ch].output[1]
}

// SlotRegisters returns the eight native register bytes of a slot,
// independent of the current mode.
func (c *Chip) SlotRegisters(ch, s int) [8]uint8 {
	var regs [8]uint8
	if ch < 0 || ch >= numChannels || s < 0 || s >= numSlots {
		return regs
	}
	sl := &c.channels[ch].slots[s]
	for i := range regs {
		regs[i] = sl.readback(uint8(i))
	}
	return regs
}

// SetSlotRegisters writes the eight native slot registers of a slot
// regardless of the current mode.
func (c *Chip) SetSlotRegisters(ch, s int, regs [8]uint8) {
	if ch < 0 || ch >= numChannels || s < 0 || s >= numSlots {
		return
	}
	sl := &c.channels[ch].slots[s]
	for i, v := range regs {
		c.writeSlotRegister(sl, uint8(i), v)
	}
	if !c.nativeMode {
		c.rearrangeConnections(&c.channels[ch])
	}
}

// EnvelopeState returns the envelope state (0=attack, 1=decay, 2=sustain,
// 3=release) and 9-bit envelope position of a slot.
func (c *Chip) EnvelopeState(ch, s int) (state uint8, level uint16) {
	if ch < 0 || ch >= numChannels || s < 0 || s >= numSlots {
		return egRelease, 0x1FF
	}
	sl := &c.channels[ch].slots[s]
	return sl.in.egState, sl.in.egPosition
}
