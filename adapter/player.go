// Package adapter exposes the ESFM player as an eblitui core, so the shared
// frontends (standalone window, libretro) can load VGM files and scripts.
// The core's video output is the channel meter display.
package adapter

import (
	"image"
	"image/color"
	"image/draw"
	"time"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/esfm"
	"github.com/user-none/esfmplay/ui"
)

// Compile-time interface checks.
var _ emucore.Emulator = (*Player)(nil)
var _ emucore.SaveStater = (*Player)(nil)
var _ emucore.MemoryInspector = (*Player)(nil)
var _ emucore.MemoryMapper = (*Player)(nil)

// The inspectable memory is the native slot register image: channel*32 +
// slot*8 + register, the same layout as native addresses below $240.
const (
	regsPerSlot  = 8
	slotRegsSize = esfm.Channels * esfm.SlotsPerChannel * regsPerSlot
)

// Status strips above and below the meters
var (
	modeStrip     = image.Rect(8, 12, ui.ScreenWidth-8, 20)
	progressStrip = image.Rect(8, 228, ui.ScreenWidth-8, 232)

	colorNative = color.RGBA{0x50, 0x90, 0xE8, 0xFF}
	colorLegacy = color.RGBA{0xD8, 0xB0, 0x40, 0xFF}
)

// Player is one loaded sequence playing on an emulated chip.
type Player struct {
	seq  *emu.Sequence
	opts emu.Options
	emu  *emu.Emulator

	region      emucore.Region
	lastButtons uint32

	frame  *image.RGBA
	meters ui.Ballistics
}

// NewPlayer prepares seq with the frontend defaults: looping and the
// output filter on.
func NewPlayer(seq *emu.Sequence, region emucore.Region) (*Player, error) {
	opts := emu.Options{
		SampleRate: emu.DefaultSampleRate,
		Loops:      emu.LoopForever,
		LowPass:    true,
	}
	e, err := emu.NewEmulator(seq, opts)
	if err != nil {
		return nil, err
	}
	p := &Player{
		seq:    seq,
		opts:   opts,
		emu:    e,
		region: region,
		frame:  image.NewRGBA(image.Rect(0, 0, ui.ScreenWidth, ui.ScreenHeight)),
	}
	p.render()
	return p, nil
}

// RunFrame plays one frame and redraws the meters.
func (p *Player) RunFrame() {
	p.emu.RunFrame()
	p.render()
}

// GetAudioSamples returns the last frame's audio as 16-bit stereo PCM.
func (p *Player) GetAudioSamples() []int16 {
	return p.emu.GetAudioSamples()
}

// SetInput toggles mute on a new press of the mute button. Only player 1
// is read.
func (p *Player) SetInput(player int, buttons uint32) {
	if player != 0 {
		return
	}
	pressed := buttons &^ p.lastButtons
	p.lastButtons = buttons
	if pressed&(1<<buttonMute) != 0 {
		p.emu.SetMuted(!p.emu.Muted())
	}
}

// GetFramebuffer returns raw RGBA pixel data for the current frame.
func (p *Player) GetFramebuffer() []byte {
	return p.frame.Pix
}

// GetFramebufferStride returns the stride (bytes per row) of the framebuffer.
func (p *Player) GetFramebufferStride() int {
	return p.frame.Stride
}

// GetActiveHeight returns the display height.
func (p *Player) GetActiveHeight() int {
	return ui.ScreenHeight
}

// GetRegion returns the region the frontend selected.
func (p *Player) GetRegion() emucore.Region {
	return p.region
}

// SetRegion records the region. Playback always runs at emu.FPS.
func (p *Player) SetRegion(region emucore.Region) {
	p.region = region
}

// GetTiming returns the frame rate and the display height as line count.
func (p *Player) GetTiming() emucore.Timing {
	return emucore.Timing{
		FPS:       emu.FPS,
		Scanlines: ui.ScreenHeight,
	}
}

// SetOption applies a core option change identified by key.
func (p *Player) SetOption(key string, value string) {
	on := value == "true"
	switch key {
	case optionLoop:
		p.opts.Loops = 0
		if on {
			p.opts.Loops = emu.LoopForever
		}
		p.emu.SetLoops(p.opts.Loops)
	case optionLowPass:
		p.opts.LowPass = on
		p.emu.SetLowPass(on)
	case optionNative:
		if on == p.opts.Native {
			return
		}
		opts := p.opts
		opts.Native = on
		e, err := emu.NewEmulator(p.seq, opts)
		if err != nil {
			return
		}
		e.SetMuted(p.emu.Muted())
		p.opts, p.emu = opts, e
		p.meters.Reset()
	}
}

// Close releases any resources held by the player.
func (p *Player) Close() {}

// SerializeSize returns the size of a save state in bytes.
func (p *Player) SerializeSize() int {
	return emu.SerializeSize
}

// Serialize creates a save state.
func (p *Player) Serialize() ([]byte, error) {
	return p.emu.Serialize()
}

// Deserialize restores a save state taken from the same sequence.
func (p *Player) Deserialize(data []byte) error {
	if err := p.emu.Deserialize(data); err != nil {
		return err
	}
	p.meters.Reset()
	return nil
}

// VerifyState checks a save state without loading it.
func (p *Player) VerifyState(data []byte) error {
	return p.emu.VerifyState(data)
}

// ReadMemory reads the slot register image starting at addr into buf and
// returns the number of bytes read.
func (p *Player) ReadMemory(addr uint32, buf []byte) uint32 {
	var count uint32
	chip := p.emu.Chip()
	for i := range buf {
		cur := addr + uint32(i)
		if cur >= slotRegsSize {
			break
		}
		ch, s, r := splitRegAddr(int(cur))
		buf[i] = chip.SlotRegisters(ch, s)[r]
		count++
	}
	return count
}

// MemoryMap returns the available memory regions with sizes.
func (p *Player) MemoryMap() []emucore.MemoryRegion {
	return []emucore.MemoryRegion{
		{Type: emucore.MemorySystemRAM, Size: slotRegsSize},
	}
}

// ReadRegion returns a copy of the specified memory region.
func (p *Player) ReadRegion(regionType int) []byte {
	if regionType != emucore.MemorySystemRAM {
		return nil
	}
	out := make([]byte, slotRegsSize)
	p.ReadMemory(0, out)
	return out
}

// WriteRegion writes the slot register image back to the chip. Slots not
// fully covered by data are left alone.
func (p *Player) WriteRegion(regionType int, data []byte) {
	if regionType != emucore.MemorySystemRAM {
		return
	}
	chip := p.emu.Chip()
	for base := 0; base+regsPerSlot <= min(len(data), slotRegsSize); base += regsPerSlot {
		var regs [regsPerSlot]uint8
		copy(regs[:], data[base:])
		ch, s, _ := splitRegAddr(base)
		chip.SetSlotRegisters(ch, s, regs)
	}
}

func splitRegAddr(addr int) (ch, s, r int) {
	return addr / (esfm.SlotsPerChannel * regsPerSlot), (addr / regsPerSlot) % esfm.SlotsPerChannel, addr % regsPerSlot
}

// render draws the meters, the mode strip and the loop-relative progress bar.
func (p *Player) render() {
	fill(p.frame, p.frame.Bounds(), ui.ColorBackground)

	for ch, level := range p.meters.Update(p.emu.ChannelLevels()) {
		fill(p.frame, ui.MeterTrack(ch), ui.ColorTrack)
		if r, clr := ui.MeterFill(ch, level); !r.Empty() {
			fill(p.frame, r, clr)
		}
	}

	mode := colorLegacy
	if p.emu.Chip().NativeMode() {
		mode = colorNative
	}
	fill(p.frame, modeStrip, mode)

	fill(p.frame, progressStrip, ui.ColorTrack)
	if w := progressWidth(p.emu.Position(), p.emu.Duration(), progressStrip.Dx()); w > 0 {
		r := progressStrip
		r.Max.X = r.Min.X + w
		fill(p.frame, r, ui.ColorLow)
	}
}

// progressWidth maps the position within the current pass to a bar width.
func progressWidth(pos, length time.Duration, width int) int {
	if length <= 0 {
		return 0
	}
	return int(int64(pos%length) * int64(width) / int64(length))
}

func fill(dst *image.RGBA, r image.Rectangle, clr color.RGBA) {
	draw.Draw(dst, r, &image.Uniform{C: clr}, image.Point{}, draw.Src)
}
