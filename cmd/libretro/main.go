package main

import (
	libretro "github.com/user-none/eblitui/libretro"
	"github.com/user-none/esfmplay/adapter"
)

func init() {
	libretro.RegisterFactory(&adapter.Factory{}, []libretro.RetropadMapping{
		{RetroID: libretro.JoypadA, BitID: 4}, // Mute
	})
}

func main() {}
