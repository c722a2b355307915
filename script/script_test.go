package script

import (
	"context"
	"math"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/esfm"
)

func mustRun(t *testing.T, src string) *emu.Sequence {
	t.Helper()
	seq, err := Run(src)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	return seq
}

func TestRun_Events(t *testing.T) {
	seq := mustRun(t, `
write(0x20, 1)
wait(10)
buffered(0x240, 0x01)
port(1, 2)
native(true)
native(false)
wait_ms(1)
`)
	want := []emu.Event{
		{Sample: 0, Op: emu.OpWrite, Addr: 0x20, Data: 0x01},
		{Sample: 10, Op: emu.OpBuffered, Addr: 0x240, Data: 0x01},
		{Sample: 10, Op: emu.OpPort, Addr: 1, Data: 0x02},
		{Sample: 10, Op: emu.OpMode, Data: 1},
		{Sample: 10, Op: emu.OpMode, Data: 0},
	}
	if len(seq.Events) != len(want) {
		t.Fatalf("expected %d events, got %d", len(want), len(seq.Events))
	}
	for i := range want {
		if seq.Events[i] != want[i] {
			t.Errorf("event %d: expected %+v, got %+v", i, want[i], seq.Events[i])
		}
	}
	// 1 ms = 49.716 samples
	if seq.Length != 60 {
		t.Errorf("expected length 60, got %d", seq.Length)
	}
	if seq.Rate != esfm.SampleRate {
		t.Errorf("expected rate %d, got %d", esfm.SampleRate, seq.Rate)
	}
	if seq.HasLoop() {
		t.Error("expected no loop")
	}
}

func TestRun_NativeDefaultsOn(t *testing.T) {
	seq := mustRun(t, `native()`)
	if len(seq.Events) != 1 || seq.Events[0].Data != 1 {
		t.Errorf("native() should select native mode, got %+v", seq.Events)
	}
}

func TestRun_LuaControlFlow(t *testing.T) {
	seq := mustRun(t, `
for ch = 0, 17 do
  write(0x240 + ch, 1)
  wait(2)
end
`)
	if len(seq.Events) != 18 {
		t.Fatalf("expected 18 events, got %d", len(seq.Events))
	}
	if ev := seq.Events[17]; ev.Addr != 0x251 || ev.Sample != 34 {
		t.Errorf("unexpected last event %+v", ev)
	}
	if seq.Length != 36 {
		t.Errorf("expected length 36, got %d", seq.Length)
	}
}

func TestRun_SampleRate(t *testing.T) {
	seq := mustRun(t, `wait(SAMPLE_RATE / 2)`)
	if seq.Length != esfm.SampleRate/2 {
		t.Errorf("expected length %d, got %d", esfm.SampleRate/2, seq.Length)
	}
}

func TestRun_Loop(t *testing.T) {
	seq := mustRun(t, `
write(1, 1)
wait(5)
loop()
write(2, 2)
wait(5)
`)
	if seq.LoopStart != 1 || seq.LoopSample != 5 {
		t.Errorf("expected loop at event 1 sample 5, got event %d sample %d", seq.LoopStart, seq.LoopSample)
	}
	if seq.Length != 10 {
		t.Errorf("expected length 10, got %d", seq.Length)
	}
}

func TestRun_WaitMsLimit(t *testing.T) {
	seq := mustRun(t, `wait_ms(1000) wait_ms(40000000)`)
	want := uint64(esfm.SampleRate) + uint64(math.Round(40000000*esfm.SampleRate/1000.0))
	if seq.Length != want {
		t.Errorf("expected length %d, got %d", want, seq.Length)
	}
}

func TestRun_GlobalsRemoved(t *testing.T) {
	seq := mustRun(t, `
		if require == nil and dofile == nil and loadfile == nil and package == nil then
			title("sealed")
		end
	`)
	if seq.Title != "sealed" {
		t.Error("file loading globals should not be reachable from a script")
	}
}

func TestRun_Title(t *testing.T) {
	seq := mustRun(t, `title("organ " .. string.format("%d", 2))`)
	if seq.Title != "organ 2" {
		t.Errorf("expected title %q, got %q", "organ 2", seq.Title)
	}
}

func TestRun_Errors(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"syntax", `write(`},
		{"runtime", `error("boom")`},
		{"address range", `write(0x800, 0)`},
		{"negative address", `buffered(-1, 0)`},
		{"data range", `write(0, 256)`},
		{"port range", `port(4, 0)`},
		{"negative wait", `wait(-1)`},
		{"negative wait_ms", `wait_ms(-0.5)`},
		{"missing argument", `write(1)`},
		{"double loop", `loop() loop()`},
		{"os library", `os.exit(1)`},
		{"io library", `io.write("x")`},
		{"package library", `package.loadlib("libc.so", "open")`},
		{"require", `require("os")`},
		{"dofile", `dofile("/etc/hostname")`},
		{"loadfile", `loadfile("/etc/hostname")`},
		{"huge wait_ms", `wait_ms(1e300)`},
		{"wait_ms past the wait limit", `wait_ms(1e8)`},
	}
	for _, tt := range tests {
		_, err := Run(tt.src)
		if err == nil {
			t.Errorf("%s: expected an error", tt.name)
			continue
		}
		if !strings.HasPrefix(err.Error(), "script: ") {
			t.Errorf("%s: error should carry the package prefix, got %q", tt.name, err)
		}
	}
}

func TestRunContext_Cancel(t *testing.T) {
	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	if _, err := RunContext(ctx, `while true do end`); err == nil {
		t.Error("expected an error from a cancelled script")
	}
}

func TestRunFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "chime.lua")
	if err := os.WriteFile(path, []byte("write(0x20, 1)\nwait(100)\n"), 0644); err != nil {
		t.Fatal(err)
	}
	seq, err := RunFile(path)
	if err != nil {
		t.Fatalf("RunFile: %v", err)
	}
	if seq.Title != "chime" {
		t.Errorf("expected title from file name, got %q", seq.Title)
	}
	if seq.Length != 100 {
		t.Errorf("expected length 100, got %d", seq.Length)
	}

	if _, err := RunFile(filepath.Join(dir, "missing.lua")); err == nil {
		t.Error("expected an error for a missing file")
	}
}
