// Command esfmrender plays a VGM file or Lua register script through the
// ESFM emulator without a window and writes the result to a WAV file.
package main

import (
	"flag"
	"io"
	"log"
	"os"
	"time"

	"golang.org/x/term"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/script"
	"github.com/user-none/esfmplay/vgm"
)

func main() {
	vgmPath := flag.String("vgm", "", "path to a VGM or VGZ file")
	luaPath := flag.String("lua", "", "path to a Lua register script")
	outPath := flag.String("o", "out.wav", "output WAV file")
	rate := flag.Int("rate", emu.DefaultSampleRate, "output sample rate in Hz")
	loops := flag.Int("loops", 0, "times to repeat the loop section")
	seconds := flag.Float64("seconds", 0, "stop after this many seconds (0 = no limit)")
	lowPass := flag.Bool("lpf", false, "apply the output low-pass filter")
	native := flag.Bool("native", false, "start the chip in native ESFM mode")
	dump := flag.Bool("dump", false, "print the chip registers after rendering")
	statePath := flag.String("state", "", "write a save state to this file after rendering")
	flag.Parse()

	if (*vgmPath == "") == (*luaPath == "") {
		log.Fatal("Exactly one input is required. Usage: esfmrender -vgm <file> | -lua <file> [-o out.wav]")
	}

	seq, err := loadSequence(*vgmPath, *luaPath)
	if err != nil {
		log.Fatalf("Failed to load sequence: %v", err)
	}

	e, err := emu.NewEmulator(seq, emu.Options{
		SampleRate: *rate,
		Loops:      *loops,
		LowPass:    *lowPass,
		Native:     *native,
	})
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	f, err := os.Create(*outPath)
	if err != nil {
		log.Fatalf("Failed to create output: %v", err)
	}
	defer f.Close()

	if err := render(e, f, int(*seconds*emu.FPS)); err != nil {
		log.Fatalf("Render failed: %v", err)
	}
	log.Printf("Wrote %v of audio to %s", e.Position().Round(time.Millisecond), *outPath)

	if *statePath != "" {
		state, err := e.Serialize()
		if err != nil {
			log.Fatalf("Failed to create save state: %v", err)
		}
		if err := os.WriteFile(*statePath, state, 0644); err != nil {
			log.Fatalf("Failed to write save state: %v", err)
		}
	}

	if *dump {
		plain := !term.IsTerminal(int(os.Stdout.Fd()))
		dumpRegisters(os.Stdout, e.Chip(), newStyles(plain))
	}
}

func loadSequence(vgmPath, luaPath string) (*emu.Sequence, error) {
	if vgmPath != "" {
		return vgm.ParseFile(vgmPath)
	}
	return script.RunFile(luaPath)
}

// render runs e until the sequence ends or maxFrames frames have been
// produced (0 for no limit) and writes the audio to out as WAV.
func render(e *emu.Emulator, out io.WriteSeeker, maxFrames int) error {
	w, err := newWAVWriter(out, e.SampleRate())
	if err != nil {
		return err
	}
	for frames := 0; !e.Done() && (maxFrames <= 0 || frames < maxFrames); frames++ {
		e.RunFrame()
		if err := w.WriteSamples(e.GetAudioSamples()); err != nil {
			return err
		}
	}
	return w.Close()
}
