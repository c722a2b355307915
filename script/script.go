// Package script builds ESFM sequences from Lua programs. A script calls
// the register functions below; time only advances through wait and
// wait_ms, so a script describes a whole song as a timed register log.
//
//	write(addr, data)     immediate register write
//	buffered(addr, data)  buffered register write
//	port(offset, data)    port write (offsets 0-3)
//	native(on)            switch between legacy and native mode
//	wait(samples)         advance time in chip samples
//	wait_ms(ms)           advance time in milliseconds
//	loop()                mark the loop point
//	title(s)              set the sequence title
//
// SAMPLE_RATE holds the chip sample rate.
package script

import (
	"context"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/esfm"
)

const maxAddr = 0x7FF

// Run executes a script and returns the sequence it describes.
func Run(src string) (*emu.Sequence, error) {
	return RunContext(context.Background(), src)
}

// RunFile executes the script at path. The title defaults to the file name.
func RunFile(path string) (*emu.Sequence, error) {
	src, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	seq, err := RunContext(context.Background(), string(src))
	if err != nil {
		return nil, err
	}
	if seq.Title == "" {
		seq.Title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return seq, nil
}

// RunContext executes a script, aborting when ctx is done.
func RunContext(ctx context.Context, src string) (*emu.Sequence, error) {
	L := lua.NewState(lua.Options{SkipOpenLibs: true})
	defer L.Close()
	L.SetContext(ctx)

	if err := openLibs(L); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	b := &builder{seq: &emu.Sequence{Rate: esfm.SampleRate, LoopStart: -1}}
	b.register(L)

	if err := L.DoString(src); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}

	b.seq.Length = b.now
	if err := b.seq.Validate(); err != nil {
		return nil, fmt.Errorf("script: %w", err)
	}
	return b.seq, nil
}

// Base functions that read files or pull in other chunks.
var unsafeBase = []string{"dofile", "loadfile", "load", "loadstring", "require", "module"}

// openLibs loads the standard libraries a script can use without touching
// the host. package, io and os are left out, and the base functions that
// load code from elsewhere are removed.
func openLibs(L *lua.LState) error {
	for _, lib := range []struct {
		name string
		fn   lua.LGFunction
	}{
		{lua.BaseLibName, lua.OpenBase},
		{lua.TabLibName, lua.OpenTable},
		{lua.StringLibName, lua.OpenString},
		{lua.MathLibName, lua.OpenMath},
	} {
		err := L.CallByParam(lua.P{
			Fn:      L.NewFunction(lib.fn),
			NRet:    0,
			Protect: true,
		}, lua.LString(lib.name))
		if err != nil {
			return err
		}
	}
	for _, name := range unsafeBase {
		L.SetGlobal(name, lua.LNil)
	}
	return nil
}

// builder accumulates events while the script runs.
type builder struct {
	seq *emu.Sequence
	now uint64
}

func (b *builder) register(L *lua.LState) {
	L.SetGlobal("write", L.NewFunction(b.write))
	L.SetGlobal("buffered", L.NewFunction(b.buffered))
	L.SetGlobal("port", L.NewFunction(b.port))
	L.SetGlobal("native", L.NewFunction(b.native))
	L.SetGlobal("wait", L.NewFunction(b.wait))
	L.SetGlobal("wait_ms", L.NewFunction(b.waitMs))
	L.SetGlobal("loop", L.NewFunction(b.loop))
	L.SetGlobal("title", L.NewFunction(b.title))
	L.SetGlobal("SAMPLE_RATE", lua.LNumber(esfm.SampleRate))
}

func (b *builder) emit(op emu.Op, addr uint16, data uint8) {
	b.seq.Events = append(b.seq.Events, emu.Event{Sample: b.now, Op: op, Addr: addr, Data: data})
}

func checkRange(L *lua.LState, n, lo, hi int) int {
	v := L.CheckInt(n)
	if v < lo || v > hi {
		L.ArgError(n, fmt.Sprintf("%d out of range %d..%d", v, lo, hi))
	}
	return v
}

func (b *builder) write(L *lua.LState) int {
	addr := checkRange(L, 1, 0, maxAddr)
	data := checkRange(L, 2, 0, 0xFF)
	b.emit(emu.OpWrite, uint16(addr), uint8(data))
	return 0
}

func (b *builder) buffered(L *lua.LState) int {
	addr := checkRange(L, 1, 0, maxAddr)
	data := checkRange(L, 2, 0, 0xFF)
	b.emit(emu.OpBuffered, uint16(addr), uint8(data))
	return 0
}

func (b *builder) port(L *lua.LState) int {
	offset := checkRange(L, 1, 0, 3)
	data := checkRange(L, 2, 0, 0xFF)
	b.emit(emu.OpPort, uint16(offset), uint8(data))
	return 0
}

func (b *builder) native(L *lua.LState) int {
	var data uint8
	if L.OptBool(1, true) {
		data = 1
	}
	b.emit(emu.OpMode, 0, data)
	return 0
}

func (b *builder) wait(L *lua.LState) int {
	n := checkRange(L, 1, 0, math.MaxInt32)
	b.now += uint64(n)
	return 0
}

func (b *builder) waitMs(L *lua.LState) int {
	ms := float64(L.CheckNumber(1))
	if ms < 0 || math.IsNaN(ms) || math.IsInf(ms, 0) {
		L.ArgError(1, "must be a non-negative number")
	}
	samples := math.Round(ms * esfm.SampleRate / 1000)
	if samples > math.MaxInt32 {
		L.ArgError(1, fmt.Sprintf("must be at most %d ms", int64(math.MaxInt32)*1000/esfm.SampleRate))
	}
	b.now += uint64(samples)
	return 0
}

func (b *builder) loop(L *lua.LState) int {
	if b.seq.HasLoop() {
		L.RaiseError("loop point already set")
	}
	b.seq.LoopStart = len(b.seq.Events)
	b.seq.LoopSample = b.now
	return 0
}

func (b *builder) title(L *lua.LState) int {
	b.seq.Title = L.CheckString(1)
	return 0
}
