package main

import (
	"flag"
	"log"

	"github.com/hajimehoshi/ebiten/v2"

	"github.com/user-none/esfmplay/cli"
	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/script"
	"github.com/user-none/esfmplay/vgm"
)

func main() {
	vgmPath := flag.String("vgm", "", "path to a VGM or VGZ file")
	luaPath := flag.String("lua", "", "path to a Lua register script")
	loops := flag.Int("loops", 1, "times to repeat the loop section")
	lowPass := flag.Bool("lpf", true, "apply the output low-pass filter")
	volume := flag.Float64("volume", 1.0, "playback volume (0.0 to 1.0)")
	native := flag.Bool("native", false, "start the chip in native ESFM mode")
	flag.Parse()

	if (*vgmPath == "") == (*luaPath == "") {
		log.Fatal("Exactly one input is required. Usage: esfmplay -vgm <file> | -lua <file>")
	}
	if *volume < 0 || *volume > 1 {
		log.Fatalf("Invalid volume: %v (use 0.0 to 1.0)", *volume)
	}

	var seq *emu.Sequence
	var err error
	if *vgmPath != "" {
		seq, err = vgm.ParseFile(*vgmPath)
	} else {
		seq, err = script.RunFile(*luaPath)
	}
	if err != nil {
		log.Fatalf("Failed to load sequence: %v", err)
	}

	e, err := emu.NewEmulator(seq, emu.Options{
		Loops:   *loops,
		LowPass: *lowPass,
		Native:  *native,
	})
	if err != nil {
		log.Fatalf("Failed to initialize emulator: %v", err)
	}

	title := emu.Name
	if seq.Title != "" {
		title += " - " + seq.Title
	}
	ebiten.SetWindowSize(cli.ScreenWidth*2, cli.ScreenHeight*2)
	ebiten.SetWindowTitle(title)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	runner := cli.NewRunner(e)
	defer runner.Close()
	runner.SetVolume(*volume)

	if err := ebiten.RunGame(runner); err != nil {
		log.Fatal(err)
	}
}
