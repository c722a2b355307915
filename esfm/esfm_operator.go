package esfm

// waveFunc computes a signed 13-bit operator sample from a 10-bit phase and
// the slot's envelope attenuation.
type waveFunc func(phase, env uint16) int16

// waveforms holds the eight ESFM waveforms. Legacy mode without the OPL3
// new mode bit only reaches the first four.
var waveforms = [8]waveFunc{
	waveSine,
	waveHalfSine,
	waveAbsSine,
	wavePulseSine,
	waveDoubleSine,
	waveAbsDoubleSine,
	waveSquare,
	waveLogSaw,
}

// calcExp converts a log-domain attenuation to linear amplitude.
func calcExp(level uint32) int16 {
	if level > 0x1FFF {
		level = 0x1FFF
	}
	return int16((uint32(expTable[level&0xFF]) << 1) >> (level >> 8))
}

// quarterSine folds a phase into the first quarter of the sine table.
func quarterSine(phase uint16) uint32 {
	if phase&0x100 != 0 {
		return uint32(logSinTable[(phase&0xFF)^0xFF])
	}
	return uint32(logSinTable[phase&0xFF])
}

// doubleSine reads the table at twice the phase rate.
func doubleSine(phase uint16) uint32 {
	if phase&0x80 != 0 {
		return uint32(logSinTable[((phase^0xFF)<<1)&0xFF])
	}
	return uint32(logSinTable[(phase<<1)&0xFF])
}

func waveSine(phase, env uint16) int16 {
	phase &= 0x3FF
	out := calcExp(quarterSine(phase) + uint32(env)<<3)
	if phase&0x200 != 0 {
		return -out
	}
	return out
}

func waveHalfSine(phase, env uint16) int16 {
	phase &= 0x3FF
	var out uint32 = 0x1000
	if phase&0x200 == 0 {
		out = quarterSine(phase)
	}
	return calcExp(out + uint32(env)<<3)
}

func waveAbsSine(phase, env uint16) int16 {
	phase &= 0x3FF
	return calcExp(quarterSine(phase) + uint32(env)<<3)
}

func wavePulseSine(phase, env uint16) int16 {
	phase &= 0x3FF
	var out uint32 = 0x1000
	if phase&0x100 == 0 {
		out = uint32(logSinTable[phase&0xFF])
	}
	return calcExp(out + uint32(env)<<3)
}

func waveDoubleSine(phase, env uint16) int16 {
	phase &= 0x3FF
	var out uint32 = 0x1000
	if phase&0x200 == 0 {
		out = doubleSine(phase)
	}
	v := calcExp(out + uint32(env)<<3)
	if phase&0x300 == 0x100 {
		return -v
	}
	return v
}

func waveAbsDoubleSine(phase, env uint16) int16 {
	phase &= 0x3FF
	var out uint32 = 0x1000
	if phase&0x200 == 0 {
		out = doubleSine(phase)
	}
	return calcExp(out + uint32(env)<<3)
}

func waveSquare(phase, env uint16) int16 {
	v := calcExp(uint32(env) << 3)
	if phase&0x200 != 0 {
		return -v
	}
	return v
}

func waveLogSaw(phase, env uint16) int16 {
	phase &= 0x3FF
	neg := false
	if phase&0x200 != 0 {
		neg = true
		phase = (phase & 0x1FF) ^ 0x1FF
	}
	v := calcExp(uint32(phase)<<3 + uint32(env)<<3)
	if neg {
		return -v
	}
	return v
}

// noise3ModInput approximates the slot 3 modulation input used with the
// top-cymbal noise role: slots 1 and 2 are re-evaluated at double pitch with
// slot 2's waveform.
func (c *Chip) noise3ModInput(sl *slot) int16 {
	ch := &c.channels[sl.chIdx]
	wave := waveforms[ch.slots[2].waveform]
	buf := c.modInput(&ch.slots[1])

	for i := 1; i < 3; i++ {
		s := &ch.slots[i]
		phase := int32(s.in.phaseAcc >> 8)
		if s.modInLevel != 0 {
			phase += int32(buf >> (7 - s.modInLevel))
		}
		buf = wave(uint16(phase&0x3FF), s.in.egOutput)
	}
	return buf >> (8 - sl.modInLevel)
}

// slotGenerate computes a native mode slot output and mixes it into its channel.
func (c *Chip) slotGenerate(sl *slot) {
	phase := int32(sl.in.phaseOut)
	if sl.modInLevel != 0 {
		if sl.idx == 3 && sl.rhyNoise == 3 {
			phase += int32(c.noise3ModInput(sl))
		} else {
			phase += int32(c.modInput(sl) >> (7 - sl.modInLevel))
		}
	}
	sl.in.output = waveforms[sl.waveform](uint16(phase&0x3FF), sl.in.egOutput)

	if sl.outputLevel != 0 {
		v := int32(sl.in.output >> (7 - sl.outputLevel))
		ch := &c.channels[sl.chIdx]
		if sl.outEnable[0] {
			ch.output[0] += v
		}
		if sl.outEnable[1] {
			ch.output[1] += v
		}
	}
}

// slotGenerateEmu computes a legacy mode slot output and mixes it into its
// channel. Routing comes from the emu enables set by rearrangeConnections.
func (c *Chip) slotGenerateEmu(sl *slot) {
	mask := uint8(0x03)
	if c.emuNewMode {
		mask = 0x07
	}
	wave := waveforms[sl.waveform&mask]

	phase := int32(sl.in.phaseOut)
	if sl.in.emuModEnable {
		phase += int32(c.modInput(sl))
	}
	sl.in.output = wave(uint16(phase&0x3FF), sl.in.egOutput)

	if !sl.in.emuOutputEnable {
		return
	}
	v := int32(sl.in.output)
	if c.emuRhythmFlags&rhythmEnable != 0 && sl.chIdx >= 6 && sl.chIdx < 9 {
		v <<= 1
	}

	ch := &c.channels[sl.chIdx]
	if c.emuNewMode {
		if ch.slots[0].outEnable[0] {
			ch.output[0] += v
		}
		if ch.slots[0].outEnable[1] {
			ch.output[1] += v
		}
		return
	}
	ch.output[0] += v
	ch.output[1] += v
}

// feedbackIterations is the number of regressed steps used to settle the
// self-modulation loop of slot 0.
const feedbackIterations = 29

// calcFeedback estimates slot 0's self-modulation term. The phase accumulator
// is walked back feedbackIterations steps and the waveform is evaluated
// forward again, feeding each step the mean of the two previous outputs.
func (c *Chip) calcFeedback(sl *slot) {
	if sl.modInLevel == 0 {
		return
	}

	var wave waveFunc
	if c.nativeMode {
		wave = waveforms[sl.waveform]
	} else if c.emuNewMode {
		wave = waveforms[sl.waveform&0x07]
	} else {
		wave = waveforms[sl.waveform&0x03]
	}

	basefreq := (uint32(sl.fNum) << sl.block) >> 1
	offset := (basefreq * multTable[sl.mult]) >> 1

	var in1, in2, fb int32
	for iter := uint32(feedbackIterations - 1); ; iter-- {
		regressed := (sl.in.phaseAcc - iter*offset) & 0x7FFFF
		phase := int32(regressed >> 9)
		fb = (in1 + in2) >> 2
		phase += fb >> (7 - sl.modInLevel)
		out := int32(wave(uint16(phase&0x3FF), sl.in.egOutput))
		in2 = in1
		in1 = out
		if iter == 0 {
			break
		}
	}

	if c.nativeMode {
		sl.in.feedbackBuf = int16(fb)
	} else {
		sl.in.feedbackBuf = int16(fb >> (7 - sl.modInLevel))
	}
}
