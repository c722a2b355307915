package esfm

// envelopeKeyOn resolves the key-on flag that drives a slot's envelope.
// In legacy mode a 4-op secondary follows its primary, and the rhythm
// channels 7 and 8 key slot 1 from the second flag.
func (c *Chip) envelopeKeyOn(sl *slot) bool {
	keyOn := c.slotKeyOn(sl)
	if c.nativeMode {
		return keyOn
	}
	if p := fourOpPrimary[sl.chIdx]; p >= 0 {
		primary := &c.channels[p]
		if primary.fourOp {
			keyOn = c.slotKeyOn(&primary.slots[0])
		}
	} else if (sl.chIdx == 7 || sl.chIdx == 8) && sl.idx == 1 {
		keyOn = c.channels[sl.chIdx].keyOn2
	}
	return keyOn
}

// delayThreshold is the key-on delay in samples for an envelope delay code.
func delayThreshold(code uint8) uint16 {
	if code == 0 {
		return 0
	}
	return 256 << code
}

// envelopeCalc advances one slot's envelope generator by one sample.
func (c *Chip) envelopeCalc(sl *slot) {
	keyOn := c.envelopeKeyOn(sl)
	in := &sl.in

	in.egOutput = in.egPosition + uint16(sl.tLevel)<<2 + in.egKSLOffset>>kslShift[sl.ksl]
	if sl.tremoloEn {
		deep := sl.tremoloDeep
		if !c.nativeMode {
			deep = c.emuTremoloDeep
		}
		shift := uint8(2)
		if !deep {
			shift = 4
		}
		in.egOutput += uint16(c.tremolo >> shift)
	}

	// Key-on delay
	if in.delayRun && in.delayCounter < 32768 {
		in.delayCounter++
	}
	if keyOn && !in.keyOnGate {
		in.delayRun = true
		in.delayCounter = 0
		in.delayUp, in.delayUpGate = false, false
		in.delayDown, in.delayDownGate = false, false
		in.delayCompare = delayThreshold(sl.envDelay)
	} else if !keyOn {
		in.delayRun = false
	}

	// A delay change while held re-arms the threshold once per direction.
	// TODO: confirm against hardware whether repeated delay changes re-arm again.
	if (in.delayDown && !in.delayDownGate) || (in.delayUp && !in.delayUpGate) {
		in.delayCompare = delayThreshold(sl.envDelay)
		if in.delayDown {
			in.delayDownGate = true
		}
		if in.delayUp {
			in.delayUpGate = true
		}
	}

	delayDone := in.delayCounter >= in.delayCompare || !c.nativeMode
	keyOnSignal := keyOn && delayDone

	var regRate uint8
	reset := false
	if keyOn && in.egState == egRelease {
		if delayDone {
			reset = true
			regRate = sl.attackRate
		} else {
			regRate = sl.releaseRate
		}
	} else {
		switch in.egState {
		case egAttack:
			regRate = sl.attackRate
		case egDecay:
			regRate = sl.decayRate
		case egSustain:
			if !sl.envSustaining {
				regRate = sl.releaseRate
			}
		case egRelease:
			regRate = sl.releaseRate
		}
	}
	in.keyOnGate = keyOn
	in.phaseReset = reset

	ks := in.keyscale
	if !sl.ksr {
		ks >>= 2
	}
	rate := ks + regRate<<2
	rateHi := rate >> 2
	rateLo := rate & 0x03
	if rateHi&0x10 != 0 {
		rateHi = 0x0F
	}

	var shift uint8
	if regRate != 0 {
		if rateHi < 12 {
			if c.egTick {
				switch rateHi + c.egClocks {
				case 12:
					shift = 1
				case 13:
					shift = (rateLo >> 1) & 0x01
				case 14:
					shift = rateLo & 0x01
				}
			}
		} else {
			shift = (rateHi & 0x03) + egIncStep[rateLo][c.globalTimer&0x03]
			if shift&0x04 != 0 {
				shift = 0x03
			}
			if shift == 0 && c.egTick {
				shift = 1
			}
		}
	}

	rout := int32(in.egPosition)
	var inc int32
	// Instant attack
	if reset && rateHi == 0x0F {
		rout = 0
	}
	egOff := in.egPosition&0x1F8 == 0x1F8
	if in.egState != egAttack && !reset && egOff {
		rout = 0x1FF
	}

	switch in.egState {
	case egAttack:
		if in.egPosition == 0 {
			in.egState = egDecay
		} else if keyOnSignal && shift > 0 && rateHi != 0x0F {
			inc = ^int32(in.egPosition) >> (4 - shift)
		}
	case egDecay:
		if in.egPosition>>4 == uint16(sl.sustainLvl) {
			in.egState = egSustain
		} else if !egOff && !reset && shift > 0 {
			inc = 1 << (shift - 1)
		}
	case egSustain, egRelease:
		if !egOff && !reset && shift > 0 {
			inc = 1 << (shift - 1)
		}
	}
	in.egPosition = uint16(rout+inc) & 0x1FF

	if reset {
		in.egState = egAttack
	}
	// Key off
	if !keyOnSignal {
		in.egState = egRelease
	}
}
