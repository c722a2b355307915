package esfm

import (
	"encoding/binary"
	"errors"
	"fmt"
)

const (
	chipSerializeVersion = 1
	// Per-slot register fields:
	// tremoloEn, vibratoEn, envSustaining, ksr, mult, ksl, tLevel, attackRate,
	// decayRate, sustainLvl, releaseRate (11) + fNum(2) + block, envDelay,
	// emuKeyOn (3) + tremoloDeep, vibratoDeep, outEnable(2), modInLevel,
	// emuConnection (6) + outputLevel, rhyNoise, waveform (3) = 25
	slotRegSerializeSize = 25
	// Per-slot internal state:
	// output(2) + feedbackBuf(2) + egPosition(2) + egOutput(2) + egKSLOffset(2) +
	// keyscale(1) + egState(1) + phaseAcc(4) + phaseOut(2) + phaseReset(1) +
	// keyOnGate(1) + delayRun(1) + delayCounter(2) + delayCompare(2) +
	// delay gates(4) + emu enables(2) + mod(3) + keyOn2(1) = 35
	slotStateSerializeSize = 35
	slotSerializeSize      = slotRegSerializeSize + slotStateSerializeSize
	// Per-channel: output(8) + keyOn, keyOn2, fourOp, fourOp2 (4) = 12
	channelSerializeSize = 12
	// Global state:
	// outputAcc(8) + addrLatch(2) + mode flags(7) + timers(12) + test(1) +
	// egTimer(8) + egTimerOverflow, egTick, egClocks (3) + globalTimer(2) +
	// tremolo, tremoloPos, vibratoPos (3) + lfsr(4) + rhythm bits(6) +
	// writeBufStart(2) + writeBufEnd(2) + writeBufTimestamp(8) = 68
	chipGlobalSerializeSize = 68
	// Per write buffer entry: timestamp(8) + addr(2) + data(1) + valid(1) = 12
	writeEntrySerializeSize = 12

	// SerializeSize is the number of bytes Serialize writes.
	SerializeSize = 1 +
		numChannels*numSlots*slotSerializeSize +
		numChannels*channelSerializeSize +
		chipGlobalSerializeSize +
		writeBufSize*writeEntrySerializeSize
)

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// Serialize writes the chip state to buf. buf must be at least SerializeSize bytes.
func (c *Chip) Serialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("esfm: serialize buffer too small")
	}

	offset := 0
	buf[offset] = chipSerializeVersion
	offset++

	for ch := range c.channels {
		for s := range c.channels[ch].slots {
			offset = serializeSlot(&c.channels[ch].slots[s], buf, offset)
		}
	}
	for ch := range c.channels {
		offset = serializeChannel(&c.channels[ch], buf, offset)
	}

	binary.LittleEndian.PutUint32(buf[offset:], uint32(c.outputAcc[0]))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(c.outputAcc[1]))
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], c.addrLatch)
	offset += 2

	// Mode flags
	buf[offset] = boolByte(c.nativeMode)
	offset++
	buf[offset] = boolByte(c.emuNewMode)
	offset++
	buf[offset] = boolByte(c.emuWaveselEnable)
	offset++
	buf[offset] = boolByte(c.keyscaleMode)
	offset++
	buf[offset] = c.emuRhythmFlags
	offset++
	buf[offset] = boolByte(c.emuVibratoDeep)
	offset++
	buf[offset] = boolByte(c.emuTremoloDeep)
	offset++

	// Timers
	for t := 0; t < 2; t++ {
		buf[offset] = c.timerReload[t]
		offset++
		buf[offset] = c.timerCounter[t]
		offset++
		buf[offset] = boolByte(c.timerEnable[t])
		offset++
		buf[offset] = boolByte(c.timerMask[t])
		offset++
		buf[offset] = boolByte(c.timerOverflow[t])
		offset++
	}
	buf[offset] = boolByte(c.irq)
	offset++
	buf[offset] = c.timerSubCount
	offset++

	buf[offset] = c.test.pack()
	offset++

	// LFO and envelope clocks
	binary.LittleEndian.PutUint64(buf[offset:], c.egTimer)
	offset += 8
	buf[offset] = boolByte(c.egTimerOverflow)
	offset++
	buf[offset] = boolByte(c.egTick)
	offset++
	buf[offset] = c.egClocks
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], c.globalTimer)
	offset += 2
	buf[offset] = c.tremolo
	offset++
	buf[offset] = c.tremoloPos
	offset++
	buf[offset] = c.vibratoPos
	offset++

	binary.LittleEndian.PutUint32(buf[offset:], c.lfsr)
	offset += 4

	for _, b := range [6]bool{c.rmHHBit2, c.rmHHBit3, c.rmHHBit7, c.rmHHBit8, c.rmTCBit3, c.rmTCBit5} {
		buf[offset] = boolByte(b)
		offset++
	}

	// Write buffer
	binary.LittleEndian.PutUint16(buf[offset:], uint16(c.writeBufStart))
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], uint16(c.writeBufEnd))
	offset += 2
	binary.LittleEndian.PutUint64(buf[offset:], c.writeBufTimestamp)
	offset += 8
	for i := range c.writeBuf {
		e := &c.writeBuf[i]
		binary.LittleEndian.PutUint64(buf[offset:], e.timestamp)
		offset += 8
		binary.LittleEndian.PutUint16(buf[offset:], e.addr)
		offset += 2
		buf[offset] = e.data
		offset++
		buf[offset] = boolByte(e.valid)
		offset++
	}

	return nil
}

// Deserialize restores chip state written by Serialize.
func (c *Chip) Deserialize(buf []byte) error {
	if len(buf) < SerializeSize {
		return errors.New("esfm: deserialize buffer too small")
	}

	if buf[0] == 0 || buf[0] > chipSerializeVersion {
		return errors.New("esfm: unsupported serialize version")
	}

	next := *c
	next.restore(buf)
	if err := next.validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

// restore decodes every field written by Serialize. Values are not checked.
func (c *Chip) restore(buf []byte) {
	offset := 1
	for ch := range c.channels {
		c.channels[ch].idx = uint8(ch)
		for s := range c.channels[ch].slots {
			sl := &c.channels[ch].slots[s]
			sl.chIdx = uint8(ch)
			sl.idx = uint8(s)
			offset = deserializeSlot(sl, buf, offset)
		}
	}
	for ch := range c.channels {
		offset = deserializeChannel(&c.channels[ch], buf, offset)
	}

	c.outputAcc[0] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	c.outputAcc[1] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	c.addrLatch = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2

	c.nativeMode = buf[offset] != 0
	offset++
	c.emuNewMode = buf[offset] != 0
	offset++
	c.emuWaveselEnable = buf[offset] != 0
	offset++
	c.keyscaleMode = buf[offset] != 0
	offset++
	c.emuRhythmFlags = buf[offset]
	offset++
	c.emuVibratoDeep = buf[offset] != 0
	offset++
	c.emuTremoloDeep = buf[offset] != 0
	offset++

	for t := 0; t < 2; t++ {
		c.timerReload[t] = buf[offset]
		offset++
		c.timerCounter[t] = buf[offset]
		offset++
		c.timerEnable[t] = buf[offset] != 0
		offset++
		c.timerMask[t] = buf[offset] != 0
		offset++
		c.timerOverflow[t] = buf[offset] != 0
		offset++
	}
	c.irq = buf[offset] != 0
	offset++
	c.timerSubCount = buf[offset]
	offset++

	c.test.unpack(buf[offset])
	offset++

	c.egTimer = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	c.egTimerOverflow = buf[offset] != 0
	offset++
	c.egTick = buf[offset] != 0
	offset++
	c.egClocks = buf[offset]
	offset++
	c.globalTimer = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	c.tremolo = buf[offset]
	offset++
	c.tremoloPos = buf[offset]
	offset++
	c.vibratoPos = buf[offset]
	offset++

	c.lfsr = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4

	for _, b := range []*bool{&c.rmHHBit2, &c.rmHHBit3, &c.rmHHBit7, &c.rmHHBit8, &c.rmTCBit3, &c.rmTCBit5} {
		*b = buf[offset] != 0
		offset++
	}

	c.writeBufStart = int(binary.LittleEndian.Uint16(buf[offset:])) % writeBufSize
	offset += 2
	c.writeBufEnd = int(binary.LittleEndian.Uint16(buf[offset:])) % writeBufSize
	offset += 2
	c.writeBufTimestamp = binary.LittleEndian.Uint64(buf[offset:])
	offset += 8
	for i := range c.writeBuf {
		e := &c.writeBuf[i]
		e.timestamp = binary.LittleEndian.Uint64(buf[offset:])
		offset += 8
		e.addr = binary.LittleEndian.Uint16(buf[offset:])
		offset += 2
		e.data = buf[offset]
		offset++
		e.valid = buf[offset] != 0
		offset++
	}
}

// validate rejects state holding values no register write can produce.
func (c *Chip) validate() error {
	for ch := range c.channels {
		for s := range c.channels[ch].slots {
			sl := &c.channels[ch].slots[s]
			if sl.mult > 0x0F || sl.ksl > 0x03 || sl.tLevel > 0x3F ||
				sl.attackRate > 0x0F || sl.decayRate > 0x0F ||
				sl.sustainLvl > 0x0F || sl.releaseRate > 0x0F ||
				sl.fNum > 0x3FF || sl.block > 0x07 || sl.envDelay > 0x07 ||
				sl.modInLevel > 0x07 || sl.emuConnection > 0x01 ||
				sl.outputLevel > 0x07 || sl.rhyNoise > 0x03 || sl.waveform > 0x07 {
				return fmt.Errorf("esfm: invalid register value in state (channel %d, slot %d)", ch, s)
			}
			in := &sl.in
			if in.egState > egRelease || in.egPosition > 0x1FF || in.keyscale > 0x0F {
				return fmt.Errorf("esfm: invalid envelope state (channel %d, slot %d)", ch, s)
			}
			if in.mod.channel >= numChannels || in.mod.slot >= numSlots {
				return errors.New("esfm: invalid modulation source in state")
			}
		}
	}
	if c.tremoloPos >= 210 || c.vibratoPos > 0x07 {
		return errors.New("esfm: invalid LFO position in state")
	}
	return nil
}

// pack stores the test bits one per bit position, without the readback swap.
func (t *testBits) pack() uint8 {
	return boolBit(t.egHalt, 0) | boolBit(t.distort, 1) | boolBit(t.bit2, 2) |
		boolBit(t.bit3, 3) | boolBit(t.attenuate, 4) | boolBit(t.w5r0, 5) |
		boolBit(t.phaseStopReset, 6) | boolBit(t.bit7, 7)
}

func (t *testBits) unpack(v uint8) {
	*t = testBits{
		egHalt:         v&0x01 != 0,
		distort:        v&0x02 != 0,
		bit2:           v&0x04 != 0,
		bit3:           v&0x08 != 0,
		attenuate:      v&0x10 != 0,
		w5r0:           v&0x20 != 0,
		phaseStopReset: v&0x40 != 0,
		bit7:           v&0x80 != 0,
	}
}

func serializeSlot(sl *slot, buf []byte, offset int) int {
	for _, v := range [25]uint8{
		boolByte(sl.tremoloEn), boolByte(sl.vibratoEn), boolByte(sl.envSustaining), boolByte(sl.ksr),
		sl.mult, sl.ksl, sl.tLevel,
		sl.attackRate, sl.decayRate, sl.sustainLvl, sl.releaseRate,
		uint8(sl.fNum), uint8(sl.fNum >> 8), sl.block, sl.envDelay, boolByte(sl.emuKeyOn),
		boolByte(sl.tremoloDeep), boolByte(sl.vibratoDeep),
		boolByte(sl.outEnable[0]), boolByte(sl.outEnable[1]),
		sl.modInLevel, sl.emuConnection,
		sl.outputLevel, sl.rhyNoise, sl.waveform,
	} {
		buf[offset] = v
		offset++
	}

	in := &sl.in
	binary.LittleEndian.PutUint16(buf[offset:], uint16(in.output))
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], uint16(in.feedbackBuf))
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], in.egPosition)
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], in.egOutput)
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], in.egKSLOffset)
	offset += 2
	buf[offset] = in.keyscale
	offset++
	buf[offset] = in.egState
	offset++

	binary.LittleEndian.PutUint32(buf[offset:], in.phaseAcc)
	offset += 4
	binary.LittleEndian.PutUint16(buf[offset:], in.phaseOut)
	offset += 2
	buf[offset] = boolByte(in.phaseReset)
	offset++

	buf[offset] = boolByte(in.keyOnGate)
	offset++
	buf[offset] = boolByte(in.delayRun)
	offset++
	binary.LittleEndian.PutUint16(buf[offset:], in.delayCounter)
	offset += 2
	binary.LittleEndian.PutUint16(buf[offset:], in.delayCompare)
	offset += 2
	buf[offset] = boolByte(in.delayUp)
	offset++
	buf[offset] = boolByte(in.delayUpGate)
	offset++
	buf[offset] = boolByte(in.delayDown)
	offset++
	buf[offset] = boolByte(in.delayDownGate)
	offset++

	buf[offset] = boolByte(in.emuModEnable)
	offset++
	buf[offset] = boolByte(in.emuOutputEnable)
	offset++

	// Modulation source at slot offset 25+31
	buf[offset] = boolByte(in.mod.feedback)
	offset++
	buf[offset] = in.mod.channel
	offset++
	buf[offset] = in.mod.slot
	offset++
	buf[offset] = boolByte(in.keyOn2)
	offset++

	return offset
}

func deserializeSlot(sl *slot, buf []byte, offset int) int {
	b := buf[offset : offset+slotRegSerializeSize]
	sl.tremoloEn = b[0] != 0
	sl.vibratoEn = b[1] != 0
	sl.envSustaining = b[2] != 0
	sl.ksr = b[3] != 0
	sl.mult = b[4]
	sl.ksl = b[5]
	sl.tLevel = b[6]
	sl.attackRate = b[7]
	sl.decayRate = b[8]
	sl.sustainLvl = b[9]
	sl.releaseRate = b[10]
	sl.fNum = uint16(b[11]) | uint16(b[12])<<8
	sl.block = b[13]
	sl.envDelay = b[14]
	sl.emuKeyOn = b[15] != 0
	sl.tremoloDeep = b[16] != 0
	sl.vibratoDeep = b[17] != 0
	sl.outEnable[0] = b[18] != 0
	sl.outEnable[1] = b[19] != 0
	sl.modInLevel = b[20]
	sl.emuConnection = b[21]
	sl.outputLevel = b[22]
	sl.rhyNoise = b[23]
	sl.waveform = b[24]
	offset += slotRegSerializeSize

	in := &sl.in
	in.output = int16(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	in.feedbackBuf = int16(binary.LittleEndian.Uint16(buf[offset:]))
	offset += 2
	in.egPosition = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.egOutput = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.egKSLOffset = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.keyscale = buf[offset]
	offset++
	in.egState = buf[offset]
	offset++

	in.phaseAcc = binary.LittleEndian.Uint32(buf[offset:])
	offset += 4
	in.phaseOut = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.phaseReset = buf[offset] != 0
	offset++

	in.keyOnGate = buf[offset] != 0
	offset++
	in.delayRun = buf[offset] != 0
	offset++
	in.delayCounter = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.delayCompare = binary.LittleEndian.Uint16(buf[offset:])
	offset += 2
	in.delayUp = buf[offset] != 0
	offset++
	in.delayUpGate = buf[offset] != 0
	offset++
	in.delayDown = buf[offset] != 0
	offset++
	in.delayDownGate = buf[offset] != 0
	offset++

	in.emuModEnable = buf[offset] != 0
	offset++
	in.emuOutputEnable = buf[offset] != 0
	offset++

	in.mod.feedback = buf[offset] != 0
	offset++
	in.mod.channel = buf[offset]
	offset++
	in.mod.slot = buf[offset]
	offset++
	in.keyOn2 = buf[offset] != 0
	offset++

	return offset
}

func serializeChannel(ch *channel, buf []byte, offset int) int {
	binary.LittleEndian.PutUint32(buf[offset:], uint32(ch.output[0]))
	offset += 4
	binary.LittleEndian.PutUint32(buf[offset:], uint32(ch.output[1]))
	offset += 4
	buf[offset] = boolByte(ch.keyOn)
	offset++
	buf[offset] = boolByte(ch.keyOn2)
	offset++
	buf[offset] = boolByte(ch.fourOp)
	offset++
	buf[offset] = boolByte(ch.fourOp2)
	offset++
	return offset
}

func deserializeChannel(ch *channel, buf []byte, offset int) int {
	ch.output[0] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	ch.output[1] = int32(binary.LittleEndian.Uint32(buf[offset:]))
	offset += 4
	ch.keyOn = buf[offset] != 0
	offset++
	ch.keyOn2 = buf[offset] != 0
	offset++
	ch.fourOp = buf[offset] != 0
	offset++
	ch.fourOp2 = buf[offset] != 0
	offset++
	return offset
}
