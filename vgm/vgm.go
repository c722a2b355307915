// Package vgm reads VGM and VGZ register logs of OPL2/OPL3 music and turns
// them into sequences the ESFM host can play in legacy mode.
//
// Supported chips:
//   - YMF262 (OPL3): commands 0x5E/0x5F, both register banks
//   - YM3812 (OPL2), YM3526 (OPL), Y8950 (MSX-Audio): 0x5A/0x5B/0x5C, low bank
//
// Other chips' commands are skipped by length. Second-chip commands are
// skipped as well; an ESFM has a single OPL3 core.
package vgm

import (
	"bytes"
	"compress/gzip"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"unicode/utf16"

	"github.com/user-none/esfmplay/emu"
)

// SampleRate is the VGM wait clock in Hz.
const SampleRate = 44100

const (
	headerMinSize     = 0x40
	oldDataOffset     = 0x40
	dataOffsetVersion = 0x150
)

// Header clock fields of the OPL family.
const (
	clockYM3812 = 0x50
	clockYM3526 = 0x54
	clockY8950  = 0x58
	clockYMF262 = 0x5C
)

// Header describes the fields of a VGM header used for playback.
type Header struct {
	Version      uint32
	TotalSamples uint32
	LoopOffset   uint32 // absolute file offset, 0 when not looping
	LoopSamples  uint32
	DataOffset   uint32 // absolute file offset of the command stream
	GD3Offset    uint32 // absolute file offset, 0 when absent
	YM3812Clock  uint32
	YM3526Clock  uint32
	Y8950Clock   uint32
	YMF262Clock  uint32
}

// ParseFile reads a VGM or VGZ file.
func ParseFile(path string) (*emu.Sequence, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("vgm: %w", err)
	}
	return Parse(data)
}

// Parse decodes a VGM image, gzip-compressed or not.
func Parse(data []byte) (*emu.Sequence, error) {
	data, err := decompress(data)
	if err != nil {
		return nil, err
	}
	hdr, err := ParseHeader(data)
	if err != nil {
		return nil, err
	}
	if hdr.YM3812Clock == 0 && hdr.YM3526Clock == 0 && hdr.Y8950Clock == 0 && hdr.YMF262Clock == 0 {
		return nil, errors.New("vgm: no OPL chip in header")
	}

	seq, err := parseCommands(data, hdr)
	if err != nil {
		return nil, err
	}
	if hdr.GD3Offset != 0 {
		seq.Title = gd3Title(data, int(hdr.GD3Offset))
	}
	return seq, nil
}

// Detect reports whether data looks like a VGM image: the VGM magic, or a
// gzip stream as used by VGZ files.
func Detect(data []byte) bool {
	return isGzip(data) || bytes.HasPrefix(data, []byte("Vgm "))
}

func isGzip(data []byte) bool {
	return len(data) >= 2 && data[0] == 0x1F && data[1] == 0x8B
}

func decompress(data []byte) ([]byte, error) {
	if !isGzip(data) {
		return data, nil
	}
	gz, err := gzip.NewReader(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("vgm: %w", err)
	}
	defer gz.Close()
	out, err := io.ReadAll(gz)
	if err != nil {
		return nil, fmt.Errorf("vgm: %w", err)
	}
	return out, nil
}

// ParseHeader decodes the header of an uncompressed VGM image. Offsets are
// returned as absolute file positions.
func ParseHeader(data []byte) (Header, error) {
	var h Header
	if len(data) < 4 || !bytes.Equal(data[0:4], []byte("Vgm ")) {
		return h, errors.New("vgm: bad magic")
	}
	if len(data) < headerMinSize {
		return h, errors.New("vgm: truncated header")
	}

	h.Version = binary.LittleEndian.Uint32(data[0x08:])
	h.TotalSamples = binary.LittleEndian.Uint32(data[0x18:])
	h.LoopSamples = binary.LittleEndian.Uint32(data[0x20:])
	h.LoopOffset = relOffset(data, 0x1C)
	h.GD3Offset = relOffset(data, 0x14)

	h.DataOffset = oldDataOffset
	if h.Version >= dataOffsetVersion {
		if off := relOffset(data, 0x34); off != 0 {
			h.DataOffset = off
		}
	}
	if int(h.DataOffset) > len(data) {
		return h, errors.New("vgm: truncated data")
	}

	// Fields inside the command stream are not header fields.
	clock := func(at int) uint32 {
		if at+4 > int(h.DataOffset) || at+4 > len(data) {
			return 0
		}
		return binary.LittleEndian.Uint32(data[at:]) &^ 0xC0000000
	}
	h.YM3812Clock = clock(clockYM3812)
	h.YM3526Clock = clock(clockYM3526)
	h.Y8950Clock = clock(clockY8950)
	h.YMF262Clock = clock(clockYMF262)
	return h, nil
}

// relOffset reads an offset stored relative to its own position.
func relOffset(data []byte, at int) uint32 {
	v := binary.LittleEndian.Uint32(data[at:])
	if v == 0 {
		return 0
	}
	return uint32(at) + v
}

// cmdLengths holds the total size of fixed-length commands that are skipped.
// Zero marks a command handled in parseCommands or not defined.
var cmdLengths = func() [256]uint8 {
	var l [256]uint8
	for c := 0x30; c <= 0x3F; c++ {
		l[c] = 2
	}
	for c := 0x40; c <= 0x4E; c++ {
		l[c] = 3
	}
	l[0x4F] = 2
	l[0x50] = 2
	for c := 0x51; c <= 0x5F; c++ {
		l[c] = 3
	}
	l[0x64] = 4
	l[0x68] = 12
	l[0x90], l[0x91], l[0x92], l[0x93], l[0x94], l[0x95] = 5, 5, 6, 11, 2, 5
	for c := 0xA0; c <= 0xBF; c++ {
		l[c] = 3
	}
	for c := 0xC0; c <= 0xDF; c++ {
		l[c] = 4
	}
	for c := 0xE0; c <= 0xFF; c++ {
		l[c] = 5
	}
	return l
}()

func parseCommands(data []byte, hdr Header) (*emu.Sequence, error) {
	seq := &emu.Sequence{
		Events:    make([]emu.Event, 0, 1024),
		Rate:      SampleRate,
		LoopStart: -1,
	}
	var pos uint64
	loopAt := int(hdr.LoopOffset)

	need := func(i, n int, what string) error {
		if i+n > len(data) {
			return fmt.Errorf("vgm: truncated %s at offset 0x%X", what, i)
		}
		return nil
	}
	write := func(addr uint16, val uint8) {
		seq.Events = append(seq.Events, emu.Event{Sample: pos, Op: emu.OpWrite, Addr: addr, Data: val})
	}

	i := int(hdr.DataOffset)
	for i < len(data) {
		if loopAt != 0 && i == loopAt && !seq.HasLoop() {
			seq.LoopStart = len(seq.Events)
			seq.LoopSample = pos
		}

		cmd := data[i]
		switch {
		case cmd == 0x66:
			i = len(data)
		case cmd == 0x5A || cmd == 0x5B || cmd == 0x5C || cmd == 0x5E:
			if err := need(i, 3, "register write"); err != nil {
				return nil, err
			}
			write(uint16(data[i+1]), data[i+2])
			i += 3
		case cmd == 0x5F:
			if err := need(i, 3, "register write"); err != nil {
				return nil, err
			}
			write(0x100|uint16(data[i+1]), data[i+2])
			i += 3
		case cmd == 0x61:
			if err := need(i, 3, "wait"); err != nil {
				return nil, err
			}
			pos += uint64(binary.LittleEndian.Uint16(data[i+1:]))
			i += 3
		case cmd == 0x62:
			pos += 735
			i++
		case cmd == 0x63:
			pos += 882
			i++
		case cmd >= 0x70 && cmd <= 0x7F:
			pos += uint64(cmd&0x0F) + 1
			i++
		case cmd >= 0x80 && cmd <= 0x8F:
			// YM2612 DAC write with wait; only the wait matters here.
			pos += uint64(cmd & 0x0F)
			i++
		case cmd == 0x67:
			if err := need(i, 7, "data block"); err != nil {
				return nil, err
			}
			if data[i+1] != 0x66 {
				return nil, fmt.Errorf("vgm: invalid data block at offset 0x%X", i)
			}
			size := int(binary.LittleEndian.Uint32(data[i+3:]) & 0x7FFFFFFF)
			if err := need(i, 7+size, "data block"); err != nil {
				return nil, err
			}
			i += 7 + size
		case cmdLengths[cmd] != 0:
			n := int(cmdLengths[cmd])
			if err := need(i, n, fmt.Sprintf("command 0x%02X", cmd)); err != nil {
				return nil, err
			}
			i += n
		default:
			return nil, fmt.Errorf("vgm: unknown command 0x%02X at offset 0x%X", cmd, i)
		}
	}

	seq.Length = max(uint64(hdr.TotalSamples), pos)
	if !seq.HasLoop() && hdr.LoopSamples > 0 && hdr.LoopOffset != 0 && seq.Length >= uint64(hdr.LoopSamples) {
		// Loop offset pointed into the middle of a command; fall back to
		// the loop length.
		seq.LoopSample = seq.Length - uint64(hdr.LoopSamples)
		seq.LoopStart = firstEventAt(seq.Events, seq.LoopSample)
	}
	return seq, nil
}

func firstEventAt(events []emu.Event, sample uint64) int {
	for i, ev := range events {
		if ev.Sample >= sample {
			return i
		}
	}
	return len(events)
}

// gd3Title returns the English track name of a GD3 tag, or "".
func gd3Title(data []byte, at int) string {
	if at+12 > len(data) || string(data[at:at+4]) != "Gd3 " {
		return ""
	}
	size := int(binary.LittleEndian.Uint32(data[at+8:]))
	start := at + 12
	end := min(start+size, len(data))

	var units []uint16
	for i := start; i+1 < end; i += 2 {
		u := binary.LittleEndian.Uint16(data[i:])
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	return string(utf16.Decode(units))
}
