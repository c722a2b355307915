package ui

import (
	"image"
	"math"
	"testing"
	"time"

	"github.com/user-none/esfmplay/esfm"
)

func TestMeterTrack_Layout(t *testing.T) {
	screen := image.Rect(0, 0, ScreenWidth, ScreenHeight)
	for ch := 0; ch < esfm.Channels; ch++ {
		r := MeterTrack(ch)
		if !r.In(screen) {
			t.Errorf("channel %d: track %v outside the screen", ch, r)
		}
		if ch > 0 && MeterTrack(ch-1).Overlaps(r) {
			t.Errorf("channel %d: track overlaps channel %d", ch, ch-1)
		}
	}
	left := MeterTrack(0).Min.X
	right := ScreenWidth - MeterTrack(esfm.Channels-1).Max.X
	if d := left - right; d < -1 || d > 1 {
		t.Errorf("meters should be centred, margins %d and %d", left, right)
	}
}

func TestMeterFill(t *testing.T) {
	track := MeterTrack(3)

	if r, _ := MeterFill(3, 0); !r.Empty() {
		t.Errorf("level 0 should light nothing, got %v", r)
	}
	r, clr := MeterFill(3, 0.5)
	if r.Max.Y != track.Max.Y || r.Dy() != track.Dy()/2 {
		t.Errorf("half level should fill the lower half, got %v of %v", r, track)
	}
	if clr != ColorLow {
		t.Errorf("expected the low colour at half level, got %v", clr)
	}
	r, clr = MeterFill(3, 2)
	if r != track {
		t.Errorf("levels above 1 should fill the track, got %v", r)
	}
	if clr != ColorHigh {
		t.Errorf("expected the high colour near full scale, got %v", clr)
	}
	if r, _ := MeterFill(3, -1); !r.Empty() {
		t.Errorf("negative levels should light nothing, got %v", r)
	}
}

func TestBallistics(t *testing.T) {
	var b Ballistics
	var peaks [esfm.Channels]int32
	peaks[0] = meterScale / 2
	peaks[1] = meterScale * 4

	levels := b.Update(peaks)
	if levels[0] != 0.5 {
		t.Errorf("expected an instant rise to 0.5, got %f", levels[0])
	}
	if levels[1] != 1 {
		t.Errorf("expected levels clamped to 1, got %f", levels[1])
	}

	levels = b.Update([esfm.Channels]int32{})
	if math.Abs(levels[0]-0.5*meterDecay) > 1e-9 {
		t.Errorf("expected decay to %f, got %f", 0.5*meterDecay, levels[0])
	}

	b.Reset()
	if levels = b.Update([esfm.Channels]int32{}); levels[0] != 0 || levels[1] != 0 {
		t.Errorf("expected zero after reset, got %f %f", levels[0], levels[1])
	}
}

func TestBytesFor(t *testing.T) {
	tests := []struct {
		rate int
		d    time.Duration
		want int
	}{
		{48000, time.Second, 192000},
		{48000, 100 * time.Millisecond, 19200},
		{44100, 50 * time.Millisecond, 8820},
		{48000, 0, 0},
	}
	for _, tt := range tests {
		if got := bytesFor(tt.rate, tt.d); got != tt.want {
			t.Errorf("bytesFor(%d, %v): expected %d, got %d", tt.rate, tt.d, tt.want, got)
		}
	}
}
