package esfm

// writeSlotRegister sets one of the eight slot registers. Both addressing
// modes end up here.
func (c *Chip) writeSlotRegister(sl *slot, reg uint8, val uint8) {
	switch reg & 0x07 {
	case 0:
		sl.tremoloEn = val&0x80 != 0
		sl.vibratoEn = val&0x40 != 0
		sl.envSustaining = val&0x20 != 0
		sl.ksr = val&0x10 != 0
		sl.mult = val & 0x0F
	case 1:
		sl.ksl = val >> 6
		sl.tLevel = val & 0x3F
		c.updateKeyscale(sl)
	case 2:
		sl.attackRate = val >> 4
		sl.decayRate = val & 0x0F
	case 3:
		sl.sustainLvl = val >> 4
		sl.releaseRate = val & 0x0F
	case 4:
		sl.fNum = sl.fNum&0x300 | uint16(val)
		c.updateKeyscale(sl)
	case 5:
		delay := val >> 5
		if sl.envDelay < delay {
			sl.in.delayUp = true
		} else if sl.envDelay > delay {
			sl.in.delayDown = true
		}
		sl.envDelay = delay
		sl.emuKeyOn = delay&0x01 != 0
		sl.block = (val >> 2) & 0x07
		sl.fNum = sl.fNum&0xFF | uint16(val&0x03)<<8
		c.updateKeyscale(sl)
	case 6:
		sl.tremoloDeep = val&0x80 != 0
		sl.vibratoDeep = val&0x40 != 0
		sl.outEnable[1] = val&0x20 != 0
		sl.outEnable[0] = val&0x10 != 0
		sl.modInLevel = (val >> 1) & 0x07
		sl.emuConnection = val & 0x01
	case 7:
		sl.outputLevel = val >> 5
		sl.rhyNoise = (val >> 3) & 0x03
		sl.waveform = val & 0x07
	}
}

// readback packs a slot register from the decoded fields.
func (sl *slot) readback(reg uint8) uint8 {
	var v uint8
	switch reg & 0x07 {
	case 0:
		v = boolBit(sl.tremoloEn, 7) | boolBit(sl.vibratoEn, 6) |
			boolBit(sl.envSustaining, 5) | boolBit(sl.ksr, 4) | sl.mult&0x0F
	case 1:
		v = sl.ksl<<6 | sl.tLevel&0x3F
	case 2:
		v = sl.attackRate<<4 | sl.decayRate&0x0F
	case 3:
		v = sl.sustainLvl<<4 | sl.releaseRate&0x0F
	case 4:
		v = uint8(sl.fNum)
	case 5:
		v = sl.envDelay<<5 | (sl.block&0x07)<<2 | uint8(sl.fNum>>8)&0x03
	case 6:
		v = boolBit(sl.tremoloDeep, 7) | boolBit(sl.vibratoDeep, 6) |
			boolBit(sl.outEnable[1], 5) | boolBit(sl.outEnable[0], 4) |
			(sl.modInLevel&0x07)<<1 | sl.emuConnection&0x01
	case 7:
		v = sl.outputLevel<<5 | (sl.rhyNoise&0x03)<<3 | sl.waveform&0x07
	}
	return v
}

func boolBit(b bool, bit uint8) uint8 {
	if b {
		return 1 << bit
	}
	return 0
}

// updateKeyscale recomputes the KSL attenuation and rate key scale of a
// slot. In legacy mode only slot 0 computes its own; slot 1 copies it.
func (c *Chip) updateKeyscale(sl *slot) {
	if sl.idx > 0 && !c.nativeMode {
		return
	}
	ksl := kslTable[sl.fNum>>6]<<2 - int16(8-sl.block)<<5
	if ksl < 0 {
		ksl = 0
	}
	sl.in.egKSLOffset = uint16(ksl)

	shift := uint16(9)
	if c.keyscaleMode {
		shift = 8
	}
	sl.in.keyscale = sl.block<<1 | uint8(sl.fNum>>shift)&0x01
}

// pairPrimary returns the channel that owns legacy 4-op state for ch: the
// primary when ch is the secondary half of an enabled pair, else ch.
func (c *Chip) pairPrimary(ch *channel) *channel {
	if p := fourOpPrimary[ch.idx]; p >= 0 && c.channels[p].fourOp {
		return &c.channels[p]
	}
	return ch
}

// fourOpActive reports whether ch is the primary of an active legacy 4-op pair.
func (c *Chip) fourOpActive(ch *channel) bool {
	return ch.fourOp && ch.idx%9 < 3 && c.emuNewMode
}

// emuUpdateKeyscale propagates legacy channel frequency to slot 1 and, for
// an active 4-op pair, to the secondary channel.
func (c *Chip) emuUpdateKeyscale(ch *channel) {
	ch = c.pairPrimary(ch)

	c.updateKeyscale(&ch.slots[0])
	ch.slots[1].in.egKSLOffset = ch.slots[0].in.egKSLOffset
	ch.slots[1].in.keyscale = ch.slots[0].in.keyscale

	if !c.fourOpActive(ch) {
		return
	}
	sec := &c.channels[ch.idx+3]
	sec.slots[0].fNum = ch.slots[0].fNum
	sec.slots[0].block = ch.slots[0].block
	for i := 0; i < 2; i++ {
		sec.slots[i].in.egKSLOffset = ch.slots[0].in.egKSLOffset
		sec.slots[i].in.keyscale = ch.slots[0].in.keyscale
	}
}

// rearrangeConnections derives legacy mode operator routing for a channel
// from its connection bits, 4-op pairing and rhythm mode.
func (c *Chip) rearrangeConnections(ch *channel) {
	ch = c.pairPrimary(ch)

	switch {
	case c.fourOpActive(ch):
		sec := &c.channels[ch.idx+3]
		alg := ch.slots[0].emuConnection<<1 | sec.slots[0].emuConnection
		sec.slots[0].in.mod = modSource{channel: ch.idx, slot: 1}
		for i := 0; i < 2; i++ {
			ch.slots[i].in.emuModEnable = fourOpModEnable[alg][i]
			ch.slots[i].in.emuOutputEnable = fourOpOutputEnable[alg][i]
			sec.slots[i].in.emuModEnable = fourOpModEnable[alg][i+2]
			sec.slots[i].in.emuOutputEnable = fourOpOutputEnable[alg][i+2]
		}
	case c.emuRhythmFlags&rhythmEnable != 0 && (ch.idx == 7 || ch.idx == 8):
		for i := 0; i < 2; i++ {
			ch.slots[i].in.emuModEnable = false
			ch.slots[i].in.emuOutputEnable = true
		}
	default:
		additive := ch.slots[0].emuConnection != 0
		ch.slots[0].in.mod = modSource{feedback: true}
		ch.slots[0].in.emuModEnable = true
		ch.slots[0].in.emuOutputEnable = additive
		ch.slots[1].in.emuOutputEnable = true
		ch.slots[1].in.emuModEnable = !additive
	}
}

// emuToNativeSwitch restores the native modulation chain on every channel.
func (c *Chip) emuToNativeSwitch() {
	for ch := range c.channels {
		for s := range c.channels[ch].slots {
			c.channels[ch].slots[s].in.mod = chainSource(ch, s)
		}
	}
}

// nativeToEmuSwitch derives legacy routing for every channel.
func (c *Chip) nativeToEmuSwitch() {
	for ch := range c.channels {
		c.rearrangeConnections(&c.channels[ch])
	}
}

// WriteRegister writes a register immediately, decoded by the current mode.
func (c *Chip) WriteRegister(addr uint16, val uint8) {
	if c.nativeMode {
		c.writeNative(addr, val)
		return
	}
	c.writeEmu(addr, val)
}

// ReadRegister reads back a register. Legacy mode registers are write-only
// and read as 0.
func (c *Chip) ReadRegister(addr uint16) uint8 {
	if !c.nativeMode {
		return 0
	}
	return c.readNative(addr)
}

// keyOnChannel decodes an address in the native key-on block. Channels 16
// and 17 have two registers each; second reports the slot 2/3 half.
func (c *Chip) keyOnChannel(addr uint16) (ch *channel, second bool) {
	idx := int(addr - keyOnRegsStart)
	if idx < 16 {
		return &c.channels[idx], false
	}
	return &c.channels[16+int(addr&0x02)>>1], addr&0x01 != 0
}

// writeNative handles the 11-bit native address space.
func (c *Chip) writeNative(addr uint16, val uint8) {
	addr &= 0x7FF

	switch {
	case addr < keyOnRegsStart:
		// Slot registers: cccccsssrrr
		sl := &c.channels[addr>>5].slots[(addr>>3)&0x03]
		c.writeSlotRegister(sl, uint8(addr&0x07), val)
	case addr < keyOnRegsStart+20:
		ch, second := c.keyOnChannel(addr)
		if second {
			ch.keyOn2 = val&0x01 != 0
			ch.fourOp2 = val&0x02 != 0
		} else {
			ch.keyOn = val&0x01 != 0
			ch.fourOp = val&0x02 != 0
		}
	default:
		switch addr & 0x5FF {
		case regTimer1:
			c.loadTimer(0, val)
		case regTimer2:
			c.loadTimer(1, val)
		case regTimerCtrl:
			c.writeTimerControl(val)
		case regConfig:
			c.keyscaleMode = val&0x40 != 0
		case regBassDrum:
			c.writeRhythmFlags(val)
		case regFourOpConn:
			c.writeFourOpEnables(val)
		case regTest:
			c.test = testBits{
				egHalt:         val&0x01 != 0 || val&0x20 != 0,
				distort:        val&0x02 != 0,
				bit2:           val&0x04 != 0,
				bit3:           val&0x08 != 0,
				attenuate:      val&0x10 != 0,
				w5r0:           val&0x20 != 0,
				phaseStopReset: val&0x40 != 0,
				bit7:           val&0x80 != 0,
			}
		}
	}
}

// readNative reads the native address space.
func (c *Chip) readNative(addr uint16) uint8 {
	addr &= 0x7FF

	switch {
	case addr < keyOnRegsStart:
		sl := &c.channels[addr>>5].slots[(addr>>3)&0x03]
		return sl.readback(uint8(addr & 0x07))
	case addr < keyOnRegsStart+20:
		ch, second := c.keyOnChannel(addr)
		if second {
			return boolBit(ch.keyOn2, 0) | boolBit(ch.fourOp2, 1)
		}
		return boolBit(ch.keyOn, 0) | boolBit(ch.fourOp, 1)
	}

	switch addr & 0x5FF {
	case regTimer1:
		return c.timerCounter[0]
	case regTimer2:
		return c.timerCounter[1]
	case regTimerCtrl:
		return boolBit(c.timerEnable[0], 0) | boolBit(c.timerEnable[1], 1) |
			boolBit(c.timerMask[1], 5) | boolBit(c.timerMask[0], 6)
	case regConfig:
		return boolBit(c.keyscaleMode, 6)
	case regBassDrum:
		return c.emuRhythmFlags | boolBit(c.emuVibratoDeep, 6) | boolBit(c.emuTremoloDeep, 7)
	case regTest:
		t := &c.test
		return boolBit(t.w5r0, 0) | boolBit(t.distort, 1) | boolBit(t.bit2, 2) |
			boolBit(t.bit3, 3) | boolBit(t.attenuate, 4) | boolBit(t.egHalt, 5) |
			boolBit(t.phaseStopReset, 6) | boolBit(t.bit7, 7)
	case regFourOpConn:
		var v uint8
		for i := 0; i < 3; i++ {
			v |= boolBit(c.channels[i].fourOp, uint8(i))
			v |= boolBit(c.channels[i+9].fourOp, uint8(i+3))
		}
		return v
	case regNativeMode:
		return boolBit(c.emuNewMode, 0) | boolBit(c.nativeMode, 7)
	}
	return 0
}

func (c *Chip) writeRhythmFlags(val uint8) {
	c.emuRhythmFlags = val & 0x3F
	c.emuVibratoDeep = val&0x40 != 0
	c.emuTremoloDeep = val&0x80 != 0
}

func (c *Chip) writeFourOpEnables(val uint8) {
	for i := 0; i < 3; i++ {
		c.channels[i].fourOp = (val>>i)&0x01 != 0
		c.channels[i+9].fourOp = (val>>(i+3))&0x01 != 0
	}
}

// writeEmu handles the legacy (OPL3-compatible) address space: bit 8 selects
// the high bank, the low byte is the OPL3 register.
func (c *Chip) writeEmu(addr uint16, val uint8) {
	high := addr&0x100 != 0
	reg := uint8(addr)

	var sl *slot
	if s := adSlot[addr&0x1F]; s >= 0 {
		idx := int(s)
		if high {
			idx += 18
		}
		m := emuSlotMap[idx]
		sl = &c.channels[m[0]].slots[m[1]]
	}
	var ch *channel
	if reg&0x0F <= 8 {
		idx := int(reg & 0x0F)
		if high {
			idx += 9
		}
		ch = &c.channels[idx]
	}

	if reg == 0xBD {
		c.writeRhythmFlags(val)
		if c.emuRhythmFlags&rhythmEnable != 0 {
			c.channels[6].keyOn = val&0x10 != 0
			c.channels[7].keyOn = val&0x01 != 0
			c.channels[8].keyOn = val&0x04 != 0
			c.channels[7].keyOn2 = val&0x08 != 0
			c.channels[8].keyOn2 = val&0x02 != 0
		}
		c.rearrangeConnections(&c.channels[7])
		c.rearrangeConnections(&c.channels[8])
		return
	}

	switch reg & 0xF0 {
	case 0x00:
		c.writeEmuGlobal(high, reg&0x0F, val)
	case 0x20, 0x30:
		if sl != nil {
			c.writeSlotRegister(sl, 0, val)
		}
	case 0x40, 0x50:
		if sl != nil {
			c.writeSlotRegister(sl, 1, val)
			c.emuUpdateKeyscale(&c.channels[sl.chIdx])
		}
	case 0x60, 0x70:
		if sl != nil {
			c.writeSlotRegister(sl, 2, val)
		}
	case 0x80, 0x90:
		if sl != nil {
			c.writeSlotRegister(sl, 3, val)
		}
	case 0xA0:
		if ch != nil {
			c.writeSlotRegister(&ch.slots[0], 4, val)
			c.emuUpdateKeyscale(ch)
		}
	case 0xB0:
		if ch != nil {
			// Key-on lands in the native key-on flags.
			ch.keyOn = val&0x20 != 0
			if ch.idx == 7 || ch.idx == 8 {
				ch.keyOn2 = val&0x20 != 0
			}
			c.writeSlotRegister(&ch.slots[0], 5, val)
			c.emuUpdateKeyscale(ch)
		}
	case 0xC0:
		if ch != nil {
			c.writeSlotRegister(&ch.slots[0], 6, val)
			c.rearrangeConnections(ch)
		}
	case 0xE0, 0xF0:
		if sl != nil {
			c.writeSlotRegister(sl, 7, val)
		}
	}
}

// writeEmuGlobal handles legacy registers $00-$0F of either bank.
func (c *Chip) writeEmuGlobal(high bool, reg uint8, val uint8) {
	switch reg {
	case 0x01:
		c.emuWaveselEnable = val&0x20 != 0
	case 0x02:
		c.loadTimer(0, val)
	case 0x03:
		c.loadTimer(1, val)
	case 0x04:
		if !high {
			c.writeTimerControl(val)
			return
		}
		c.writeFourOpEnables(val)
		for i := 0; i < 6; i++ {
			c.rearrangeConnections(&c.channels[i])
			c.rearrangeConnections(&c.channels[i+9])
		}
	case 0x05:
		if !high {
			return
		}
		c.emuNewMode = val&0x01 != 0
		if val&0x80 != 0 {
			c.nativeMode = true
			c.emuToNativeSwitch()
		}
	case 0x08:
		c.keyscaleMode = val&0x40 != 0
	}
}
