// Package cli provides the interactive player window. It shows per-channel
// level meters and handles the pause, mute and quit keys while playback runs
// on its own goroutine.
package cli

import (
	"fmt"
	"image"
	"image/color"
	"log"
	"time"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/ui"
)

// ADT queued audio thresholds.
const (
	adtMinLatency = 50 * time.Millisecond
	adtMaxLatency = 100 * time.Millisecond
)

// tailFrames is how long playback continues after the sequence ends so
// release envelopes are heard.
const tailFrames = emu.FPS

// Logical screen size.
const (
	ScreenWidth  = ui.ScreenWidth
	ScreenHeight = ui.ScreenHeight
)

// Runner wraps an emulator for interactive playback.
// The emulator runs on a dedicated goroutine with audio-driven timing.
// The Ebiten thread handles keys and draws meters from shared state.
type Runner struct {
	emulator    *emu.Emulator
	audioPlayer *ui.AudioPlayer

	// ADT goroutine control
	emuControl *ui.EmuControl
	levels     *ui.SharedLevels
	emuDone    chan struct{}

	// Ebiten thread state
	paused bool
	muted  bool
	meters ui.Ballistics
}

// NewRunner creates a new Runner wrapping the given emulator and starts
// playback. Audio initialization failure is non-fatal; the meters still run.
func NewRunner(e *emu.Emulator) *Runner {
	player, err := ui.NewAudioPlayer(e.SampleRate(), 1.0)
	if err != nil {
		log.Printf("Warning: audio initialization failed: %v", err)
	}

	r := &Runner{
		emulator:    e,
		audioPlayer: player,
		emuControl:  ui.NewEmuControl(),
		levels:      &ui.SharedLevels{},
		emuDone:     make(chan struct{}),
	}

	go r.emulationLoop()

	return r
}

// SetVolume sets the playback volume (0.0 to 1.0).
func (r *Runner) SetVolume(vol float64) {
	if r.audioPlayer != nil {
		r.audioPlayer.SetVolume(vol)
	}
}

// Close cleans up the runner's resources.
func (r *Runner) Close() {
	if r.emuControl != nil {
		r.emuControl.Stop()
		<-r.emuDone
	}

	if r.audioPlayer != nil {
		r.audioPlayer.Close()
		r.audioPlayer = nil
	}
}

// emulationLoop runs on a dedicated goroutine with ADT.
func (r *Runner) emulationLoop() {
	defer close(r.emuDone)
	defer r.emuControl.Stop()

	frameTime := time.Second / emu.FPS
	lastFrameTime := time.Now()
	tail := 0

	for r.emuControl.CheckPause() {
		r.emulator.RunFrame()

		if r.audioPlayer != nil {
			r.audioPlayer.QueueSamples(r.emulator.GetAudioSamples())
		}

		done := r.emulator.Done()
		r.levels.Update(ui.Meters{
			Levels:   r.emulator.ChannelLevels(),
			Position: r.emulator.Position(),
			Native:   r.emulator.Chip().NativeMode(),
			Muted:    r.emulator.Muted(),
			Done:     done,
		})
		if done {
			tail++
			if tail >= tailFrames {
				return
			}
		}

		// ADT sleep
		elapsed := time.Since(lastFrameTime)
		sleepTime := frameTime - elapsed

		if r.audioPlayer != nil {
			latency := r.audioPlayer.Latency()
			if latency < adtMinLatency {
				sleepTime = time.Duration(float64(sleepTime) * 0.9)
			} else if latency > adtMaxLatency {
				sleepTime = time.Duration(float64(sleepTime) * 1.1)
			}
		}

		if sleepTime > time.Millisecond {
			time.Sleep(sleepTime)
		}

		lastFrameTime = time.Now()
	}
}

// Update implements ebiten.Game.
func (r *Runner) Update() error {
	select {
	case <-r.emuDone:
		return ebiten.Termination
	default:
	}

	if !ebiten.IsFocused() {
		return nil
	}

	if inpututil.IsKeyJustPressed(ebiten.KeyEscape) {
		return ebiten.Termination
	}
	if inpututil.IsKeyJustPressed(ebiten.KeySpace) {
		r.togglePause()
	}
	if inpututil.IsKeyJustPressed(ebiten.KeyM) {
		r.toggleMute()
	}
	return nil
}

func (r *Runner) togglePause() {
	if r.paused {
		r.emuControl.RequestResume()
	} else {
		r.emuControl.RequestPause()
	}
	r.paused = !r.paused
}

// toggleMute changes the emulator's mute flag while its goroutine is parked.
func (r *Runner) toggleMute() {
	if !r.paused {
		r.emuControl.RequestPause()
	}
	r.muted = !r.muted
	r.emulator.SetMuted(r.muted)
	if !r.paused {
		r.emuControl.RequestResume()
	}
}

// Draw implements ebiten.Game.
func (r *Runner) Draw(screen *ebiten.Image) {
	m := r.levels.Read()
	screen.Fill(ui.ColorBackground)

	if r.paused {
		r.meters.Reset()
	}
	for ch, level := range r.meters.Update(m.Levels) {
		drawMeter(screen, ch, level)
	}

	ebitenutil.DebugPrintAt(screen, r.statusLine(m), 4, 4)
	if title := r.emulator.Title(); title != "" {
		ebitenutil.DebugPrintAt(screen, title, 4, 18)
	}
	ebitenutil.DebugPrintAt(screen, "SPACE pause  M mute  ESC quit", 4, ScreenHeight-16)
}

func (r *Runner) statusLine(m ui.Meters) string {
	mode := "OPL3"
	if m.Native {
		mode = "ESFM"
	}
	state := "playing"
	switch {
	case m.Done:
		state = "ended"
	case r.paused:
		state = "paused"
	}
	if m.Muted {
		state += ", muted"
	}
	pos := m.Position.Truncate(time.Second)
	return fmt.Sprintf("%s  %v / %v  %s", mode, pos, r.emulator.Duration().Truncate(time.Second), state)
}

// drawMeter draws channel ch's bar filled to level (0 to 1).
func drawMeter(screen *ebiten.Image, ch int, level float64) {
	fillRect(screen, ui.MeterTrack(ch), ui.ColorTrack)
	if r, clr := ui.MeterFill(ch, level); !r.Empty() {
		fillRect(screen, r, clr)
	}
}

func fillRect(screen *ebiten.Image, r image.Rectangle, clr color.Color) {
	ebitenutil.DrawRect(screen, float64(r.Min.X), float64(r.Min.Y), float64(r.Dx()), float64(r.Dy()), clr)
}

// Layout implements ebiten.Game.
func (r *Runner) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}
