package ui

import (
	"sync"
	"time"

	"github.com/user-none/esfmplay/esfm"
)

// Meters is one frame of display state published by the emulation
// goroutine.
type Meters struct {
	Levels   [esfm.Channels]int32
	Position time.Duration
	Native   bool
	Muted    bool
	Done     bool
}

// SharedLevels holds the latest Meters, written by the emulation goroutine
// and read by Ebiten's Draw().
type SharedLevels struct {
	mu sync.Mutex
	m  Meters
}

// Update publishes a new frame of meter state.
func (sl *SharedLevels) Update(m Meters) {
	sl.mu.Lock()
	sl.m = m
	sl.mu.Unlock()
}

// Read returns a copy of the latest meter state.
func (sl *SharedLevels) Read() Meters {
	sl.mu.Lock()
	m := sl.m
	sl.mu.Unlock()
	return m
}

// EmuControl coordinates pause, resume and stop between the Ebiten thread
// and the emulation goroutine.
type EmuControl struct {
	mu       sync.Mutex
	cond     *sync.Cond
	pauseReq bool
	paused   bool
	running  bool
}

// NewEmuControl creates a new emulation control.
func NewEmuControl() *EmuControl {
	ec := &EmuControl{running: true}
	ec.cond = sync.NewCond(&ec.mu)
	return ec
}

// RequestPause asks the emulation goroutine to pause and blocks until it
// has parked or stopped.
func (ec *EmuControl) RequestPause() {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	if !ec.running {
		return
	}
	ec.pauseReq = true
	for ec.running && !ec.paused {
		ec.cond.Wait()
	}
}

// RequestResume lets a paused emulation goroutine continue.
func (ec *EmuControl) RequestResume() {
	ec.mu.Lock()
	ec.pauseReq = false
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// CheckPause is called by the emulation goroutine between frames. It parks
// while a pause is requested. Returns false if the goroutine should exit.
func (ec *EmuControl) CheckPause() bool {
	ec.mu.Lock()
	defer ec.mu.Unlock()
	for ec.running && ec.pauseReq {
		if !ec.paused {
			ec.paused = true
			ec.cond.Broadcast()
		}
		ec.cond.Wait()
	}
	ec.paused = false
	return ec.running
}

// Stop signals the emulation goroutine to exit and releases any waiter.
// The goroutine also calls it on its way out.
func (ec *EmuControl) Stop() {
	ec.mu.Lock()
	ec.running = false
	ec.pauseReq = false
	ec.cond.Broadcast()
	ec.mu.Unlock()
}

// ShouldRun returns true if the goroutine should continue running.
func (ec *EmuControl) ShouldRun() bool {
	ec.mu.Lock()
	r := ec.running
	ec.mu.Unlock()
	return r
}

// IsPaused returns true if the emulation goroutine is parked.
func (ec *EmuControl) IsPaused() bool {
	ec.mu.Lock()
	p := ec.paused
	ec.mu.Unlock()
	return p
}
