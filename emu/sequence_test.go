package emu

import "testing"

func TestSequence_Validate(t *testing.T) {
	events := []Event{
		{Sample: 0, Op: OpWrite, Addr: 0x20, Data: 0x01},
		{Sample: 10, Op: OpBuffered, Addr: 0xB0, Data: 0x20},
		{Sample: 10, Op: OpPort, Addr: 1, Data: 0x00},
		{Sample: 20, Op: OpMode, Data: 1},
	}

	tests := []struct {
		name  string
		seq   Sequence
		valid bool
	}{
		{"plain", Sequence{Events: events, Rate: 44100, Length: 20, LoopStart: -1}, true},
		{"empty", Sequence{Rate: 44100, LoopStart: -1}, true},
		{"loop", Sequence{Events: events, Rate: 44100, Length: 30, LoopStart: 1, LoopSample: 5}, true},
		{"loop at end", Sequence{Events: events, Rate: 44100, Length: 30, LoopStart: 4, LoopSample: 30}, true},
		{"zero rate", Sequence{Events: events, Length: 20, LoopStart: -1}, false},
		{"events past end", Sequence{Events: events, Rate: 44100, Length: 19, LoopStart: -1}, false},
		{"loop index past end", Sequence{Events: events, Rate: 44100, Length: 20, LoopStart: 5}, false},
		{"loop index below -1", Sequence{Events: events, Rate: 44100, Length: 20, LoopStart: -2}, false},
		{"loop sample past end", Sequence{Events: events, Rate: 44100, Length: 20, LoopStart: 0, LoopSample: 21}, false},
		{"loop event before loop sample", Sequence{Events: events, Rate: 44100, Length: 20, LoopStart: 1, LoopSample: 15}, false},
	}

	for _, tt := range tests {
		err := tt.seq.Validate()
		if tt.valid && err != nil {
			t.Errorf("%s: unexpected error: %v", tt.name, err)
		}
		if !tt.valid && err == nil {
			t.Errorf("%s: expected an error", tt.name)
		}
	}
}

func TestSequence_ValidateOrder(t *testing.T) {
	seq := Sequence{
		Events: []Event{
			{Sample: 10, Op: OpWrite},
			{Sample: 9, Op: OpWrite},
		},
		Rate:      44100,
		Length:    10,
		LoopStart: -1,
	}
	if err := seq.Validate(); err == nil {
		t.Error("expected an error for out of order events")
	}
}

func TestSequence_ValidateOp(t *testing.T) {
	seq := Sequence{
		Events:    []Event{{Sample: 0, Op: OpMode + 1}},
		Rate:      44100,
		LoopStart: -1,
	}
	if err := seq.Validate(); err == nil {
		t.Error("expected an error for an unknown op")
	}
}

func TestOp_String(t *testing.T) {
	tests := []struct {
		op   Op
		want string
	}{
		{OpWrite, "write"},
		{OpBuffered, "buffered"},
		{OpPort, "port"},
		{OpMode, "mode"},
		{Op(9), "op(9)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("expected %q, got %q", tt.want, got)
		}
	}
}
