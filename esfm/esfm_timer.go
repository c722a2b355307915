package esfm

// Timer periods in native samples. Timer 1 ticks every 80us, timer 2 every
// 320us; at 49716 Hz that is 4 and 16 samples.
const (
	timer1Period = 4
	timer2Period = 16
)

// loadTimer sets a timer's reload value and restarts its count from it.
func (c *Chip) loadTimer(t int, val uint8) {
	c.timerReload[t] = val
	c.timerCounter[t] = val
}

// writeTimerControl handles the timer control register ($04 / $404).
// Bit 7 clears the IRQ and both overflow flags and ignores the other bits.
func (c *Chip) writeTimerControl(val uint8) {
	if val&0x80 != 0 {
		c.irq = false
		c.timerOverflow = [2]bool{}
		return
	}
	c.timerEnable[0] = val&0x01 != 0
	c.timerEnable[1] = val&0x02 != 0
	c.timerMask[1] = val&0x20 != 0
	c.timerMask[0] = val&0x40 != 0
}

// stepTimers advances both timers by one native sample. A counter passing
// 0xFF reloads and, unless masked, flags an overflow and raises the IRQ.
func (c *Chip) stepTimers() {
	c.timerSubCount++
	if c.timerSubCount%timer1Period == 0 {
		c.tickTimer(0)
	}
	if c.timerSubCount%timer2Period == 0 {
		c.tickTimer(1)
		c.timerSubCount = 0
	}
}

func (c *Chip) tickTimer(t int) {
	if !c.timerEnable[t] {
		return
	}
	c.timerCounter[t]++
	if c.timerCounter[t] != 0 {
		return
	}
	c.timerCounter[t] = c.timerReload[t]
	if !c.timerMask[t] {
		c.timerOverflow[t] = true
		c.irq = true
	}
}

// status returns the port 0 status byte: IRQ, timer 1 and timer 2 flags.
func (c *Chip) status() uint8 {
	return boolBit(c.irq, 7) | boolBit(c.timerOverflow[0], 6) | boolBit(c.timerOverflow[1], 5)
}
