package ui

import (
	"image"
	"image/color"

	"github.com/user-none/esfmplay/esfm"
)

// Logical screen size of the meter display.
const (
	ScreenWidth  = 320
	ScreenHeight = 240
)

// Meter layout
const (
	meterTop    = 40
	meterBottom = 220
	meterWidth  = 14
	meterGap    = 3
	meterLeft   = (ScreenWidth - esfm.Channels*(meterWidth+meterGap) + meterGap) / 2
	meterDecay  = 0.85
	meterScale  = 16384.0
	meterHot    = 0.8
)

// Meter colours
var (
	ColorBackground = color.RGBA{0x10, 0x12, 0x18, 0xFF}
	ColorTrack      = color.RGBA{0x28, 0x2C, 0x38, 0xFF}
	ColorLow        = color.RGBA{0x3C, 0xC8, 0x78, 0xFF}
	ColorHigh       = color.RGBA{0xE8, 0x50, 0x40, 0xFF}
)

// MeterTrack returns the full bar area of channel ch.
func MeterTrack(ch int) image.Rectangle {
	x := meterLeft + ch*(meterWidth+meterGap)
	return image.Rect(x, meterTop, x+meterWidth, meterBottom)
}

// MeterFill returns the lit part of channel ch's bar at level (0 to 1) and
// its colour. The rectangle is empty below one pixel.
func MeterFill(ch int, level float64) (image.Rectangle, color.RGBA) {
	track := MeterTrack(ch)
	h := int(float64(track.Dy()) * min(max(level, 0), 1))
	clr := ColorLow
	if level > meterHot {
		clr = ColorHigh
	}
	return image.Rect(track.Min.X, track.Max.Y-h, track.Max.X, track.Max.Y), clr
}

// Ballistics smooths channel peaks into bar levels: a bar jumps up to a new
// peak and falls back by a fixed factor per frame.
type Ballistics struct {
	levels [esfm.Channels]float64
}

// Update folds one frame of channel peaks in and returns the bar levels.
func (b *Ballistics) Update(peaks [esfm.Channels]int32) [esfm.Channels]float64 {
	for ch, p := range peaks {
		b.levels[ch] = min(max(float64(p)/meterScale, b.levels[ch]*meterDecay), 1)
	}
	return b.levels
}

// Reset drops every bar to zero.
func (b *Ballistics) Reset() {
	b.levels = [esfm.Channels]float64{}
}
