package esfm

import "testing"

func TestCalcExp(t *testing.T) {
	if got := calcExp(0); got != 4084 {
		t.Errorf("calcExp(0): expected 4084, got %d", got)
	}
	if got := calcExp(0x1FFF); got != 0 {
		t.Errorf("calcExp(0x1FFF): expected 0, got %d", got)
	}
	if got := calcExp(0x7FFFF); got != 0 {
		t.Errorf("calcExp clamps large levels, got %d", got)
	}
	// Every 0x100 of attenuation halves the output.
	if a, b := calcExp(0x10), calcExp(0x110); b != a>>1 {
		t.Errorf("expected calcExp(0x110) == calcExp(0x10)/2, got %d and %d", b, a)
	}
}

func TestWaveSine_Symmetry(t *testing.T) {
	for p := uint16(0); p < 0x200; p++ {
		pos := waveSine(p, 0)
		neg := waveSine(p|0x200, 0)
		if pos < 0 {
			t.Fatalf("phase 0x%03X: first half should be positive, got %d", p, pos)
		}
		if neg != -pos {
			t.Fatalf("phase 0x%03X: expected %d, got %d", p|0x200, -pos, neg)
		}
	}
	if got := waveSine(0xFF, 0); got != 4084 {
		t.Errorf("sine peak: expected 4084, got %d", got)
	}
}

func TestWaveforms_SecondHalf(t *testing.T) {
	for p := uint16(0x200); p < 0x400; p++ {
		if v := waveHalfSine(p, 0); v != 0 {
			t.Fatalf("half sine phase 0x%03X: expected 0, got %d", p, v)
		}
		if v := waveDoubleSine(p, 0); v != 0 {
			t.Fatalf("double sine phase 0x%03X: expected 0, got %d", p, v)
		}
		if v := waveAbsDoubleSine(p, 0); v != 0 {
			t.Fatalf("abs double sine phase 0x%03X: expected 0, got %d", p, v)
		}
	}
}

func TestWaveforms_NonNegative(t *testing.T) {
	for p := uint16(0); p < 0x400; p++ {
		if v := waveAbsSine(p, 0); v < 0 {
			t.Fatalf("abs sine phase 0x%03X: got %d", p, v)
		}
		if v := wavePulseSine(p, 0); v < 0 {
			t.Fatalf("pulse sine phase 0x%03X: got %d", p, v)
		}
		if v := waveAbsDoubleSine(p, 0); v < 0 {
			t.Fatalf("abs double sine phase 0x%03X: got %d", p, v)
		}
	}
	if v := wavePulseSine(0x100, 0); v != 0 {
		t.Errorf("pulse sine second quarter: expected 0, got %d", v)
	}
}

func TestWaveDoubleSine_SignPattern(t *testing.T) {
	if v := waveDoubleSine(0x40, 0); v <= 0 {
		t.Errorf("first quarter should be positive, got %d", v)
	}
	if v := waveDoubleSine(0x140, 0); v >= 0 {
		t.Errorf("second quarter should be negative, got %d", v)
	}
}

func TestWaveSquare(t *testing.T) {
	if v := waveSquare(0, 0); v != 4084 {
		t.Errorf("expected 4084, got %d", v)
	}
	if v := waveSquare(0x200, 0); v != -4084 {
		t.Errorf("expected -4084, got %d", v)
	}
	if v := waveSquare(0x1FF, 0x1FF); v != 0 {
		t.Errorf("fully attenuated square: expected 0, got %d", v)
	}
}

func TestWaveLogSaw(t *testing.T) {
	prev := waveLogSaw(0, 0)
	if prev != 4084 {
		t.Fatalf("expected 4084 at phase 0, got %d", prev)
	}
	for p := uint16(1); p < 0x200; p++ {
		v := waveLogSaw(p, 0)
		if v > prev {
			t.Fatalf("phase 0x%03X: saw should fall, %d after %d", p, v, prev)
		}
		prev = v
	}
	if v := waveLogSaw(0x3FF, 0); v != -4084 {
		t.Errorf("expected -4084 at phase 0x3FF, got %d", v)
	}
}

func TestWaveforms_FullAttenuation(t *testing.T) {
	for i, wave := range waveforms {
		for p := uint16(0); p < 0x400; p += 0x11 {
			if v := wave(p, 0x1FF); v != 0 {
				t.Fatalf("waveform %d phase 0x%03X: expected 0 at full attenuation, got %d", i, p, v)
			}
		}
	}
}

// --- Feedback ---

func feedbackSlot(c *Chip) *slot {
	sl := &c.channels[0].slots[0]
	sl.fNum = 0x200
	sl.block = 4
	sl.mult = 1
	sl.modInLevel = 5
	sl.in.egOutput = 0
	sl.in.phaseAcc = 0x12345
	return sl
}

func TestCalcFeedback_ZeroLevel(t *testing.T) {
	c := nativeChip()
	sl := feedbackSlot(c)
	sl.modInLevel = 0
	sl.in.feedbackBuf = 77
	c.calcFeedback(sl)
	if sl.in.feedbackBuf != 77 {
		t.Errorf("feedback level 0 should leave the buffer alone, got %d", sl.in.feedbackBuf)
	}
}

func TestCalcFeedback_LegacyScaling(t *testing.T) {
	c := nativeChip()
	sl := feedbackSlot(c)
	c.calcFeedback(sl)
	native := sl.in.feedbackBuf
	if native == 0 {
		t.Fatal("expected a nonzero feedback term")
	}

	c.nativeMode = false
	sl.in.feedbackBuf = 0
	c.calcFeedback(sl)
	if want := native >> 2; sl.in.feedbackBuf != want {
		t.Errorf("legacy feedback: expected %d, got %d", want, sl.in.feedbackBuf)
	}
}

func TestCalcFeedback_Deterministic(t *testing.T) {
	a := nativeChip()
	b := nativeChip()
	sa := feedbackSlot(a)
	sb := feedbackSlot(b)
	for i := 0; i < 64; i++ {
		sa.in.phaseAcc += 0x1000
		sb.in.phaseAcc += 0x1000
		a.calcFeedback(sa)
		b.calcFeedback(sb)
		if sa.in.feedbackBuf != sb.in.feedbackBuf {
			t.Fatalf("step %d: %d != %d", i, sa.in.feedbackBuf, sb.in.feedbackBuf)
		}
	}
}

func TestGenerate_FeedbackChangesTone(t *testing.T) {
	plain := nativeChip()
	fb := nativeChip()
	writeSlot(plain, 0, 0, toneRegs)
	regs := toneRegs
	regs[6] |= 0x0E // feedback level 7
	writeSlot(fb, 0, 0, regs)
	plain.WriteRegister(keyOnRegsStart, 0x01)
	fb.WriteRegister(keyOnRegsStart, 0x01)

	differ := false
	for i := 0; i < 256; i++ {
		a, _ := plain.Generate()
		b, _ := fb.Generate()
		if a != b {
			differ = true
		}
	}
	if !differ {
		t.Error("feedback should alter the waveform")
	}
	if plain.channels[0].slots[0].in.feedbackBuf != 0 {
		t.Error("feedback level 0 should never compute a feedback term")
	}
}

// --- Modulation chain ---

func TestGenerate_NativeModulationChain(t *testing.T) {
	carrierOnly := nativeChip()
	modulated := nativeChip()

	carrier := toneRegs
	carrier[6] = 0x30 | 0x0C // modulation input level 6
	for _, c := range []*Chip{carrierOnly, modulated} {
		writeSlot(c, 0, 1, carrier)
	}
	// Slot 0 as a silent modulator.
	mod := toneRegs
	mod[6] = 0x00
	mod[7] = 0x00
	writeSlot(modulated, 0, 0, mod)

	carrierOnly.WriteRegister(keyOnRegsStart, 0x01)
	modulated.WriteRegister(keyOnRegsStart, 0x01)

	differ := false
	for i := 0; i < 256; i++ {
		a, _ := carrierOnly.Generate()
		b, _ := modulated.Generate()
		if a != b {
			differ = true
		}
	}
	if !differ {
		t.Error("slot 0 output should modulate slot 1")
	}
}
