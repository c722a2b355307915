package emu

import (
	"errors"
	"fmt"
)

// Op selects how an Event reaches the chip.
type Op uint8

const (
	OpWrite    Op = iota // immediate register write
	OpBuffered           // buffered register write, committed by the chip later
	OpPort               // port write, Addr holds the port offset
	OpMode               // mode switch, Data 1 selects native mode
)

func (o Op) String() string {
	switch o {
	case OpWrite:
		return "write"
	case OpBuffered:
		return "buffered"
	case OpPort:
		return "port"
	case OpMode:
		return "mode"
	}
	return fmt.Sprintf("op(%d)", uint8(o))
}

// Event is a single timed access to the chip. Sample is in units of the
// owning Sequence's Rate.
type Event struct {
	Sample uint64
	Op     Op
	Addr   uint16
	Data   uint8
}

// Sequence is a register log ready for playback.
type Sequence struct {
	Events []Event
	Rate   int    // event clock in Hz
	Length uint64 // total length in Rate units

	// LoopStart is the index of the first event replayed on a loop, or -1
	// when the sequence does not loop. LoopSample is the time the loop
	// restarts from.
	LoopStart  int
	LoopSample uint64

	Native bool // start the chip in native mode
	Title  string
}

// HasLoop reports whether the sequence carries a loop point.
func (s *Sequence) HasLoop() bool {
	return s.LoopStart >= 0
}

// Validate checks that events are in time order and the loop point lies
// inside the sequence.
func (s *Sequence) Validate() error {
	if s.Rate <= 0 {
		return fmt.Errorf("emu: invalid sequence rate %d", s.Rate)
	}
	var last uint64
	for i, ev := range s.Events {
		if ev.Sample < last {
			return fmt.Errorf("emu: event %d at sample %d is before the previous event", i, ev.Sample)
		}
		if ev.Op > OpMode {
			return fmt.Errorf("emu: event %d has unknown %v", i, ev.Op)
		}
		last = ev.Sample
	}
	if last > s.Length {
		return errors.New("emu: events past the end of the sequence")
	}
	if s.LoopStart < -1 || s.LoopStart > len(s.Events) {
		return fmt.Errorf("emu: loop start %d out of range", s.LoopStart)
	}
	if s.HasLoop() {
		if s.LoopSample > s.Length {
			return errors.New("emu: loop point past the end of the sequence")
		}
		if s.LoopStart < len(s.Events) && s.Events[s.LoopStart].Sample < s.LoopSample {
			return errors.New("emu: loop event is before the loop point")
		}
	}
	return nil
}
