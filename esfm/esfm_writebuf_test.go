package esfm

import "testing"

func TestWriteBuffered_Delay(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBuffered(slotAddr(0, 0, 0), 0x0A)
	c.WriteRegisterBuffered(slotAddr(0, 0, 1), 0x15)

	// Commit after the 3rd sample, then 2 samples apart.
	want := []struct{ reg0, reg1 uint8 }{
		{0x00, 0x00},
		{0x00, 0x00},
		{0x0A, 0x00},
		{0x0A, 0x00},
		{0x0A, 0x15},
	}
	for i, w := range want {
		c.Generate()
		r0 := c.ReadRegister(slotAddr(0, 0, 0))
		r1 := c.ReadRegister(slotAddr(0, 0, 1))
		if r0 != w.reg0 || r1 != w.reg1 {
			t.Errorf("after sample %d: expected 0x%02X/0x%02X, got 0x%02X/0x%02X", i+1, w.reg0, w.reg1, r0, r1)
		}
	}
}

func TestWriteBuffered_Ordering(t *testing.T) {
	c := nativeChip()
	addr := slotAddr(3, 1, 7)
	for v := uint8(1); v <= 8; v++ {
		c.WriteRegisterBuffered(addr, v)
	}

	last := uint8(0)
	for i := 0; i < 40; i++ {
		c.Generate()
		got := c.ReadRegister(addr)
		if got < last {
			t.Fatalf("sample %d: value went back from %d to %d", i, last, got)
		}
		if got > last+1 {
			t.Fatalf("sample %d: skipped from %d to %d", i, last, got)
		}
		last = got
	}
	if last != 8 {
		t.Errorf("expected every write committed, last value %d", last)
	}
}

func TestWriteBuffered_CatchesUpWithTime(t *testing.T) {
	c := nativeChip()
	for i := 0; i < 100; i++ {
		c.Generate()
	}
	// An idle buffer schedules from the current time, not the old tail.
	c.WriteRegisterBuffered(slotAddr(0, 0, 0), 0x01)
	c.Generate()
	if got := c.ReadRegister(slotAddr(0, 0, 0)); got != 0x01 {
		t.Errorf("expected commit on the next sample, got 0x%02X", got)
	}
}

func TestWriteBufferedFast_NextSample(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBufferedFast(slotAddr(0, 0, 0), 0x0C)
	c.WriteRegisterBufferedFast(slotAddr(0, 0, 1), 0x0D)
	if c.ReadRegister(slotAddr(0, 0, 0)) != 0 {
		t.Fatal("buffered write should not apply immediately")
	}
	c.Generate()
	if c.ReadRegister(slotAddr(0, 0, 0)) != 0x0C || c.ReadRegister(slotAddr(0, 0, 1)) != 0x0D {
		t.Error("fast buffered writes should both commit after one sample")
	}
}

func TestWriteBuffered_KeyOffOnCollision(t *testing.T) {
	c := nativeChip()
	c.WriteRegister(keyOnRegsStart, 0x01)

	c.WriteRegisterBufferedFast(keyOnRegsStart, 0x00)
	c.WriteRegisterBufferedFast(keyOnRegsStart, 0x01)

	c.Generate()
	if got := c.ReadRegister(keyOnRegsStart) & 0x01; got != 0 {
		t.Errorf("after sample 1: key-off should hold, got %d", got)
	}
	c.Generate()
	if got := c.ReadRegister(keyOnRegsStart) & 0x01; got != 1 {
		t.Errorf("after sample 2: key-on should apply, got %d", got)
	}
}

func TestWriteBuffered_CollisionIsPerChannel(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBufferedFast(keyOnRegsStart, 0x00)
	c.WriteRegisterBufferedFast(keyOnRegsStart+1, 0x01)

	c.Generate()
	if got := c.ReadRegister(keyOnRegsStart + 1); got != 0x01 {
		t.Errorf("a key-on of another channel should not be deferred, got 0x%02X", got)
	}
}

func TestWriteBuffered_LegacyKeyOnCollision(t *testing.T) {
	c := New()
	c.WriteRegister(0x1B2, 0x20)

	c.WriteRegisterBufferedFast(0x1B2, 0x00)
	c.WriteRegisterBufferedFast(0x1B2, 0x20)

	c.Generate()
	if c.channels[11].keyOn {
		t.Error("after sample 1: key-off should hold")
	}
	c.Generate()
	if !c.channels[11].keyOn {
		t.Error("after sample 2: key-on should apply")
	}
}

func TestWriteBuffered_BassDrumSerialized(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBufferedFast(regBassDrum, 0x01)
	c.WriteRegisterBufferedFast(regBassDrum, 0x02)

	c.Generate()
	if got := c.ReadRegister(regBassDrum); got != 0x01 {
		t.Errorf("after sample 1: expected 0x01, got 0x%02X", got)
	}
	c.Generate()
	if got := c.ReadRegister(regBassDrum); got != 0x02 {
		t.Errorf("after sample 2: expected 0x02, got 0x%02X", got)
	}
}

func TestWriteBuffered_Overflow(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBuffered(slotAddr(0, 0, 0), 0x0A)
	for i := 1; i < writeBufSize; i++ {
		c.WriteRegisterBuffered(slotAddr(0, 0, 1), uint8(i))
	}
	if got := c.ReadRegister(slotAddr(0, 0, 0)); got != 0 {
		t.Fatalf("full buffer should not commit yet, got 0x%02X", got)
	}

	c.WriteRegisterBuffered(slotAddr(0, 0, 2), 0x77)
	if got := c.ReadRegister(slotAddr(0, 0, 0)); got != 0x0A {
		t.Errorf("overflow should force the oldest write, got 0x%02X", got)
	}
	if c.writeBufStart != 1 {
		t.Errorf("expected buffer start 1, got %d", c.writeBufStart)
	}
	if got := c.ReadRegister(slotAddr(0, 0, 2)); got != 0 {
		t.Errorf("newest write should stay queued, got 0x%02X", got)
	}
}

func TestWriteRegister_BypassesBuffer(t *testing.T) {
	c := nativeChip()
	c.WriteRegisterBuffered(slotAddr(0, 0, 0), 0x01)
	c.WriteRegister(slotAddr(0, 0, 0), 0x02)
	if got := c.ReadRegister(slotAddr(0, 0, 0)); got != 0x02 {
		t.Errorf("immediate write: expected 0x02, got 0x%02X", got)
	}
	for i := 0; i < 3; i++ {
		c.Generate()
	}
	if got := c.ReadRegister(slotAddr(0, 0, 0)); got != 0x01 {
		t.Errorf("queued write should land later: expected 0x01, got 0x%02X", got)
	}
}
