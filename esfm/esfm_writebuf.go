package esfm

// WriteRegisterBuffered queues a register write to commit at least
// writeBufDelay samples after the previous queued write, and no earlier
// than the current buffer time. A full buffer commits its oldest entry
// immediately.
func (c *Chip) WriteRegisterBuffered(addr uint16, val uint8) {
	last := &c.writeBuf[(c.writeBufEnd+writeBufSize-1)%writeBufSize]
	ts := last.timestamp + writeBufDelay
	if ts < c.writeBufTimestamp {
		ts = c.writeBufTimestamp
	}
	c.enqueueWrite(addr, val, ts)
}

// WriteRegisterBufferedFast queues a register write to commit at the end of
// the next generated sample.
func (c *Chip) WriteRegisterBufferedFast(addr uint16, val uint8) {
	c.enqueueWrite(addr, val, c.writeBufTimestamp)
}

func (c *Chip) enqueueWrite(addr uint16, val uint8, ts uint64) {
	entry := &c.writeBuf[c.writeBufEnd]
	if entry.valid {
		// Overflow: the oldest entry is forced out ahead of its time.
		c.WriteRegister(entry.addr, entry.data)
		c.writeBufStart = (c.writeBufEnd + 1) % writeBufSize
	}
	*entry = writeEntry{timestamp: ts, addr: addr, data: val, valid: true}
	c.writeBufEnd = (c.writeBufEnd + 1) % writeBufSize
}

// keyOnRegIndex returns the key-on register a write targets (0-19 native,
// 0-17 legacy), or -1.
func (c *Chip) keyOnRegIndex(addr uint16) int {
	if c.nativeMode {
		if addr >= keyOnRegsStart && addr < keyOnRegsStart+20 {
			return int(addr - keyOnRegsStart)
		}
		return -1
	}
	low := addr & 0xFF
	if low >= 0xB0 && low < 0xB9 {
		idx := int(low & 0x0F)
		if addr&0x100 != 0 {
			idx += 9
		}
		return idx
	}
	return -1
}

// isKeyOff reports whether a key-on register value clears the key.
func (c *Chip) isKeyOff(val uint8) bool {
	if c.nativeMode {
		return val&0x01 == 0
	}
	return val&0x20 == 0
}

func (c *Chip) isBassDrumReg(addr uint16) bool {
	if c.nativeMode {
		return addr == regBassDrum
	}
	return addr&0xFF == 0xBD
}

// flushWriteBuffer commits every due entry. A key-on following a key-off of
// the same channel, or a second rhythm register write, stops the flush so
// the key-off is heard for at least one sample.
func (c *Chip) flushWriteBuffer() {
	var keyOffSeen [20]bool
	bassDrumSeen := false

	for {
		entry := &c.writeBuf[c.writeBufStart]
		if !entry.valid || entry.timestamp > c.writeBufTimestamp {
			break
		}

		if idx := c.keyOnRegIndex(entry.addr); idx >= 0 {
			if c.isKeyOff(entry.data) {
				keyOffSeen[idx] = true
			} else if keyOffSeen[idx] {
				break
			}
		}
		if c.isBassDrumReg(entry.addr) {
			if bassDrumSeen {
				break
			}
			bassDrumSeen = true
		}

		entry.valid = false
		c.WriteRegister(entry.addr, entry.data)
		c.writeBufStart = (c.writeBufStart + 1) % writeBufSize
	}

	c.writeBufTimestamp++
}
