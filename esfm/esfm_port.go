package esfm

// WritePort writes one of the four I/O port offsets.
//
// Native mode:
//
//	0: switch to legacy mode and latch the address
//	1: data write to the latched address
//	2: address low byte
//	3: address high byte
//
// Legacy mode:
//
//	0: address, low bank
//	1, 3: data write
//	2: address, high bank
func (c *Chip) WritePort(offset uint8, val uint8) {
	if c.nativeMode {
		switch offset {
		case 0:
			c.nativeMode = false
			c.nativeToEmuSwitch()
			c.addrLatch = uint16(val)
		case 1:
			c.writeNative(c.addrLatch, val)
		case 2:
			c.addrLatch = c.addrLatch&0xFF00 | uint16(val)
		case 3:
			c.addrLatch = c.addrLatch&0x00FF | uint16(val)<<8
		}
		return
	}

	switch offset {
	case 0:
		c.addrLatch = uint16(val)
	case 1, 3:
		c.writeEmu(c.addrLatch, val)
	case 2:
		c.addrLatch = uint16(val) | 0x100
	}
}

// ReadPort reads one of the four I/O port offsets. Offset 0 is the status
// register, offset 1 reads back the latched native register, and offsets 2
// and 3 read 0xFF as on an OPL3.
func (c *Chip) ReadPort(offset uint8) uint8 {
	switch offset {
	case 0:
		return c.status()
	case 1:
		if c.nativeMode {
			return c.readNative(c.addrLatch)
		}
		return 0
	case 2, 3:
		return 0xFF
	}
	return 0
}
