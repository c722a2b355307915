package esfm

// processChannel generates one native mode sample for a channel. Slot 0's
// feedback takes many chip cycles, so it is generated last.
func (c *Chip) processChannel(ch *channel) {
	ch.output = [2]int32{}
	for s := range ch.slots {
		sl := &ch.slots[s]
		c.envelopeCalc(sl)
		c.phaseGenerate(sl)
		if s > 0 {
			c.slotGenerate(sl)
		}
	}
	c.calcFeedback(&ch.slots[0])
	c.slotGenerate(&ch.slots[0])
}

// processChannelEmu generates one legacy mode sample for a channel using
// slots 0 and 1.
func (c *Chip) processChannelEmu(ch *channel) {
	ch.output = [2]int32{}
	for s := 0; s < 2; s++ {
		sl := &ch.slots[s]
		c.envelopeCalc(sl)
		c.phaseGenerateEmu(sl)
		if s > 0 {
			c.slotGenerateEmu(sl)
		}
	}
	// A 4-op secondary's slot 0 is modulated by the primary, not itself.
	if ch.slots[0].in.mod.feedback {
		c.calcFeedback(&ch.slots[0])
	}
	c.slotGenerateEmu(&ch.slots[0])
}

// clipSample saturates a mixed sample to int16.
func clipSample(v int32) int16 {
	if v > 32767 {
		return 32767
	}
	if v < -32768 {
		return -32768
	}
	return int16(v)
}

// updateTimers advances the tremolo and vibrato LFOs and the envelope clock.
func (c *Chip) updateTimers() {
	// Tremolo: triangle over 210 steps, one step per 64 samples
	if c.globalTimer&0x3F == 0x3F {
		c.tremoloPos = uint8((uint16(c.tremoloPos) + 1) % 210)
		if c.tremoloPos < 105 {
			c.tremolo = c.tremoloPos
		} else {
			c.tremolo = 210 - c.tremoloPos
		}
	}

	// Vibrato: 8 positions, one step per 1024 samples
	if c.globalTimer&0x3FF == 0x3FF {
		c.vibratoPos = (c.vibratoPos + 1) & 0x07
	}

	c.globalTimer = (c.globalTimer + 1) & 0x3FF

	// Envelope dither: one more than the index of the lowest set bit
	c.egClocks = 0
	if c.egTimer != 0 {
		shift := uint8(0)
		for shift < 36 && (c.egTimer>>shift)&1 == 0 {
			shift++
		}
		if shift <= 12 {
			c.egClocks = shift + 1
		}
	}

	if c.egTick || c.egTimerOverflow {
		if c.egTimer == (1<<36)-1 {
			c.egTimer = 0
			c.egTimerOverflow = true
		} else {
			c.egTimer++
			c.egTimerOverflow = false
		}
	}
	c.egTick = !c.egTick
}

// Generate produces one stereo sample at SampleRate and commits any buffered
// writes that are due.
func (c *Chip) Generate() (left, right int16) {
	c.outputAcc = [2]int32{}
	for i := range c.channels {
		ch := &c.channels[i]
		if c.nativeMode {
			c.processChannel(ch)
		} else {
			c.processChannelEmu(ch)
		}
		c.outputAcc[0] += ch.output[0]
		c.outputAcc[1] += ch.output[1]
	}

	left = clipSample(c.outputAcc[0])
	right = clipSample(c.outputAcc[1])

	c.updateTimers()
	c.stepTimers()
	c.flushWriteBuffer()
	return left, right
}

// GenerateStream fills buf with interleaved left/right samples, len(buf)/2
// frames.
func (c *Chip) GenerateStream(buf []int16) {
	for i := 0; i+1 < len(buf); i += 2 {
		buf[i], buf[i+1] = c.Generate()
	}
}
