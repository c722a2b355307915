//go:build !libretro && !ios

package main

import (
	"flag"
	"log"
	"strconv"

	"github.com/user-none/eblitui/standalone"
	"github.com/user-none/esfmplay/adapter"
)

func main() {
	filePath := flag.String("file", "", "path to a VGM, VGZ or Lua file (opens UI if not provided)")
	loop := flag.Bool("loop", true, "repeat the loop section")
	lowPass := flag.Bool("lpf", true, "apply the output low-pass filter")
	native := flag.Bool("native", false, "start the chip in native mode")
	flag.Parse()

	factory := &adapter.Factory{}

	if *filePath != "" {
		options := map[string]string{
			"loop":        strconv.FormatBool(*loop),
			"low_pass":    strconv.FormatBool(*lowPass),
			"native_mode": strconv.FormatBool(*native),
		}
		if err := standalone.RunDirect(factory, *filePath, "auto", options); err != nil {
			log.Fatal(err)
		}
		return
	}

	if err := standalone.Run(factory); err != nil {
		log.Fatal(err)
	}
}
