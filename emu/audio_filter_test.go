package emu

import (
	"math"
	"testing"
)

func filterEmulator(capacity int) *Emulator {
	return &Emulator{
		audioBuffer: make([]int16, 0, capacity),
		lpfAlpha:    lowPassAlpha(DefaultSampleRate),
	}
}

func TestLowPassAlpha_Range(t *testing.T) {
	for _, rate := range []int{22050, 44100, 48000, 96000} {
		a := lowPassAlpha(rate)
		if a <= 0 || a >= 1 {
			t.Errorf("rate %d: alpha %f outside (0, 1)", rate, a)
		}
	}
	if lowPassAlpha(96000) >= lowPassAlpha(48000) {
		t.Error("a higher sample rate should smooth more per sample")
	}
}

func TestLowPass_StepResponse(t *testing.T) {
	e := filterEmulator(64)
	for i := 0; i < 32; i++ {
		e.audioBuffer = append(e.audioBuffer, 1000, 1000)
	}

	e.applyLowPass()

	// First sample: alpha * 1000 + (1-alpha) * 0 = alpha * 1000
	expected0 := int16(math.Round(e.lpfAlpha * 1000))
	if e.audioBuffer[0] != expected0 {
		t.Errorf("sample 0 L: got %d, want %d", e.audioBuffer[0], expected0)
	}
	if e.audioBuffer[1] != expected0 {
		t.Errorf("sample 0 R: got %d, want %d", e.audioBuffer[1], expected0)
	}

	for i := 2; i < len(e.audioBuffer); i += 2 {
		if e.audioBuffer[i] < e.audioBuffer[i-2] {
			t.Errorf("sample %d L (%d) < sample %d L (%d): expected monotonic ramp",
				i/2, e.audioBuffer[i], i/2-1, e.audioBuffer[i-2])
			break
		}
	}
}

func TestLowPass_Silence(t *testing.T) {
	e := filterEmulator(64)
	e.audioBuffer = e.audioBuffer[:64]

	e.applyLowPass()

	for i, v := range e.audioBuffer {
		if v != 0 {
			t.Errorf("sample %d: got %d, want 0", i, v)
			break
		}
	}
}

func TestLowPass_SteadyState(t *testing.T) {
	e := filterEmulator(2000)
	for i := 0; i < 1000; i++ {
		e.audioBuffer = append(e.audioBuffer, 500, -500)
	}

	e.applyLowPass()

	lastL := e.audioBuffer[len(e.audioBuffer)-2]
	lastR := e.audioBuffer[len(e.audioBuffer)-1]
	if lastL != 500 {
		t.Errorf("steady state L: got %d, want 500", lastL)
	}
	if lastR != -500 {
		t.Errorf("steady state R: got %d, want -500", lastR)
	}
}

func TestLowPass_FullScale(t *testing.T) {
	e := filterEmulator(2000)
	for i := 0; i < 1000; i++ {
		e.audioBuffer = append(e.audioBuffer, 32767, -32768)
	}

	e.applyLowPass()

	if got := e.audioBuffer[len(e.audioBuffer)-2]; got != 32767 {
		t.Errorf("L: got %d, want 32767", got)
	}
	if got := e.audioBuffer[len(e.audioBuffer)-1]; got != -32768 {
		t.Errorf("R: got %d, want -32768", got)
	}
}

func TestLowPass_StatePersistence(t *testing.T) {
	e := filterEmulator(64)

	for i := 0; i < 2; i++ {
		e.audioBuffer = append(e.audioBuffer, 1000, 1000)
	}
	e.applyLowPass()
	lastL := e.audioBuffer[len(e.audioBuffer)-2]

	e.audioBuffer = e.audioBuffer[:0]
	for i := 0; i < 2; i++ {
		e.audioBuffer = append(e.audioBuffer, 1000, 1000)
	}
	e.applyLowPass()
	firstL := e.audioBuffer[0]

	if firstL < lastL {
		t.Errorf("state not persisted: second buf first %d < first buf last %d", firstL, lastL)
	}
	freshFirst := int16(math.Round(e.lpfAlpha * 1000))
	if firstL == freshFirst {
		t.Errorf("filter appears to have reset: got %d (same as fresh alpha*1000)", firstL)
	}
}

func TestSetLowPass_OffClearsState(t *testing.T) {
	e := filterEmulator(64)
	e.SetLowPass(true)
	for i := 0; i < 2; i++ {
		e.audioBuffer = append(e.audioBuffer, 1000, 1000)
	}
	e.applyLowPass()
	if e.filterPrevL == 0 {
		t.Fatal("filter should hold state after a frame")
	}

	e.SetLowPass(false)
	if e.LowPass() {
		t.Fatal("expected the filter off")
	}
	if e.filterPrevL != 0 || e.filterPrevR != 0 {
		t.Errorf("turning the filter off should clear its state, got %f %f", e.filterPrevL, e.filterPrevR)
	}

	e.SetLowPass(true)
	e.audioBuffer = append(e.audioBuffer[:0], 1000, 1000)
	e.applyLowPass()
	if got, want := e.audioBuffer[0], int16(math.Round(e.lpfAlpha*1000)); got != want {
		t.Errorf("re-enabled filter should start from silence: got %d, want %d", got, want)
	}
}
