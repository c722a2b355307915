package esfm

// vibratoFNum applies the vibrato LFO to an F-number.
func (c *Chip) vibratoFNum(fNum uint16, deep bool) uint16 {
	rng := int16((fNum >> 7) & 7)
	pos := c.vibratoPos

	if pos&3 == 0 {
		rng = 0
	} else if pos&1 != 0 {
		rng >>= 1
	}
	if !deep {
		rng >>= 1
	}
	if pos&4 != 0 {
		rng = -rng
	}
	return uint16(int16(fNum) + rng)
}

// advancePhase steps the slot's 19-bit accumulator and returns the 10-bit
// phase from before the step.
func advancePhase(sl *slot, fNum uint16, block uint8) uint16 {
	basefreq := (uint32(fNum) << block) >> 1
	phase := uint16(sl.in.phaseAcc >> 9)
	if sl.in.phaseReset {
		sl.in.phaseAcc = 0
	}
	sl.in.phaseAcc += (basefreq * multTable[sl.mult]) >> 1
	sl.in.phaseAcc &= (1 << 19) - 1
	sl.in.phaseOut = phase
	return phase
}

// stepNoise advances the 23-bit noise LFSR and returns the value it held
// before the step.
func (c *Chip) stepNoise() uint32 {
	noise := c.lfsr
	bit := ((noise >> 14) ^ noise) & 1
	c.lfsr = (noise >> 1) | (bit << 22)
	return noise
}

// rhythmXor combines the latched hi-hat and top-cymbal phase bits.
func (c *Chip) rhythmXor() bool {
	return (c.rmHHBit2 != c.rmHHBit7) ||
		(c.rmHHBit3 != c.rmTCBit5) ||
		(c.rmTCBit3 != c.rmTCBit5)
}

// Rhythm phase overrides. noise is the LFSR output bit.
func snarePhase(hhBit8, noise bool) uint16 {
	var out uint16
	if hhBit8 {
		out = 0x200
	}
	if hhBit8 != noise {
		out |= 0x100
	}
	return out
}

func hiHatPhase(xor, noise bool) uint16 {
	var out uint16
	if xor {
		out = 0x200
	}
	if xor != noise {
		return out | 0xD0
	}
	return out | 0x34
}

func cymbalPhase(xor bool) uint16 {
	if xor {
		return 0x200 | 0x80
	}
	return 0x80
}

func (c *Chip) latchHiHatBits(phase uint16) {
	c.rmHHBit2 = phase&(1<<2) != 0
	c.rmHHBit3 = phase&(1<<3) != 0
	c.rmHHBit7 = phase&(1<<7) != 0
	c.rmHHBit8 = phase&(1<<8) != 0
}

func (c *Chip) latchCymbalBits(phase uint16) {
	c.rmTCBit3 = phase&(1<<3) != 0
	c.rmTCBit5 = phase&(1<<5) != 0
}

// phaseGenerate runs the native mode phase generator for one slot. Slot 3
// may replace its phase with a rhythm role derived from its own phase and
// slot 2's.
func (c *Chip) phaseGenerate(sl *slot) {
	fNum := sl.fNum
	if sl.vibratoEn {
		fNum = c.vibratoFNum(fNum, sl.vibratoDeep)
	}
	phase := advancePhase(sl, fNum, sl.block)

	noise := c.stepNoise()
	if sl.idx != 3 || sl.rhyNoise == 0 {
		return
	}

	prev := &c.channels[sl.chIdx].slots[2]
	c.latchHiHatBits(phase)
	c.latchCymbalBits(prev.in.phaseOut)
	xor := c.rhythmXor()
	noiseBit := noise&1 != 0

	switch sl.rhyNoise {
	case 1:
		sl.in.phaseOut = snarePhase(c.rmHHBit8, noiseBit)
	case 2:
		sl.in.phaseOut = hiHatPhase(xor, noiseBit)
	case 3:
		sl.in.phaseOut = cymbalPhase(xor)
	}
}

// phaseGenerateEmu runs the legacy mode phase generator. Frequency comes from
// the channel (or its 4-op primary), and the rhythm roles live on fixed
// slots: channel 7 slot 0 is the hi-hat, channel 7 slot 1 the snare, and
// channel 8 slot 1 the top cymbal.
func (c *Chip) phaseGenerateEmu(sl *slot) {
	ch := &c.channels[sl.chIdx]
	block := ch.slots[0].block
	fNum := ch.slots[0].fNum
	if p := fourOpPrimary[sl.chIdx]; p >= 0 && c.channels[p].fourOp {
		block = c.channels[p].slots[0].block
		fNum = c.channels[p].slots[0].fNum
	}
	if sl.vibratoEn {
		fNum = c.vibratoFNum(fNum, c.emuVibratoDeep)
	}
	phase := advancePhase(sl, fNum, block)

	noise := c.stepNoise()
	if sl.chIdx == 7 && sl.idx == 0 {
		c.latchHiHatBits(phase)
	}
	if sl.chIdx == 8 && sl.idx == 1 {
		c.latchCymbalBits(phase)
	}
	if c.emuRhythmFlags&rhythmEnable == 0 {
		return
	}

	xor := c.rhythmXor()
	noiseBit := noise&1 != 0
	switch {
	case sl.chIdx == 7 && sl.idx == 0:
		sl.in.phaseOut = hiHatPhase(xor, noiseBit)
	case sl.chIdx == 7 && sl.idx == 1:
		sl.in.phaseOut = snarePhase(c.rmHHBit8, noiseBit)
	case sl.chIdx == 8 && sl.idx == 1:
		sl.in.phaseOut = cymbalPhase(xor)
	}
}
