package adapter

import (
	"fmt"

	emucore "github.com/user-none/eblitui/api"

	"github.com/user-none/esfmplay/emu"
	"github.com/user-none/esfmplay/script"
	"github.com/user-none/esfmplay/ui"
	"github.com/user-none/esfmplay/vgm"
)

// Compile-time interface check.
var _ emucore.CoreFactory = (*Factory)(nil)

// Core option keys
const (
	optionLoop    = "loop"
	optionLowPass = "low_pass"
	optionNative  = "native_mode"
)

// buttonMute is the input bit that toggles mute.
const buttonMute = 4

// Factory implements emucore.CoreFactory for the ESFM player. A "ROM" is a
// VGM/VGZ log or a Lua register script.
type Factory struct{}

// SystemInfo returns system metadata for UI configuration.
func (f *Factory) SystemInfo() emucore.SystemInfo {
	return emucore.SystemInfo{
		Name:            emu.Name,
		ConsoleName:     "ESS ESFM",
		Extensions:      []string{".vgm", ".vgz", ".lua"},
		ScreenWidth:     ui.ScreenWidth,
		MaxScreenHeight: ui.ScreenHeight,
		AspectRatio:     float64(ui.ScreenWidth) / float64(ui.ScreenHeight),
		SampleRate:      emu.DefaultSampleRate,
		Buttons: []emucore.Button{
			{Name: "Mute", ID: buttonMute, DefaultKey: "M", DefaultPad: "A"},
		},
		Players: 1,
		CoreOptions: []emucore.CoreOption{
			{
				Key:         optionLoop,
				Label:       "Loop",
				Description: "Repeat the loop section until stopped",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
			},
			{
				Key:         optionLowPass,
				Label:       "Low-Pass Filter",
				Description: "Soften the output like the analog stage of a sound card",
				Type:        emucore.CoreOptionBool,
				Default:     "true",
			},
			{
				Key:         optionNative,
				Label:       "Native ESFM Mode",
				Description: "Start in native mode instead of OPL3 mode (restarts playback)",
				Type:        emucore.CoreOptionBool,
				Default:     "false",
			},
		},
		DataDirName:   emu.Name,
		CoreName:      emu.Name,
		CoreVersion:   emu.Version,
		SerializeSize: emu.SerializeSize,
	}
}

// CreateEmulator loads a sequence and returns a core playing it. The region
// is kept for the frontend but does not change playback.
func (f *Factory) CreateEmulator(rom []byte, region emucore.Region) (emucore.Emulator, error) {
	seq, err := loadSequence(rom)
	if err != nil {
		return nil, err
	}
	p, err := NewPlayer(seq, region)
	if err != nil {
		return nil, err
	}
	return p, nil
}

// DetectRegion reports NTSC for everything; register logs carry no region.
func (f *Factory) DetectRegion(rom []byte) (emucore.Region, bool) {
	return emucore.RegionNTSC, false
}

// loadSequence picks the reader by content: VGM magic or gzip selects the
// VGM reader, anything else runs as a Lua script.
func loadSequence(data []byte) (*emu.Sequence, error) {
	if vgm.Detect(data) {
		return vgm.Parse(data)
	}
	seq, err := script.Run(string(data))
	if err != nil {
		return nil, fmt.Errorf("not a VGM file, and not a valid script: %w", err)
	}
	return seq, nil
}
