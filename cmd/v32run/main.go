// v32run runs a V32 BIOS + cartridge pair headlessly for a fixed
// number of frames, reporting CPU/GPU load - the command-line entry
// point a GUI frontend would otherwise wrap. Grounded on the teacher's
// main.go argument-count-and-usage-string style (no flag package
// anywhere in the retrieved corpus reaches for one either).
package main

import (
	"fmt"
	"os"

	v32 "github.com/v32emu/v32core"
)

func main() {
	if len(os.Args) != 4 && len(os.Args) != 5 {
		fmt.Println("Usage: v32run bios.v32 cartridge.v32 frames [interactive]")
		os.Exit(1)
	}

	biosPath, cartPath, framesArg := os.Args[1], os.Args[2], os.Args[3]
	interactive := len(os.Args) == 5 && os.Args[4] == "interactive"

	var frames int
	if _, err := fmt.Sscanf(framesArg, "%d", &frames); err != nil || frames <= 0 {
		fmt.Println("frames must be a positive integer")
		os.Exit(1)
	}

	biosData, err := os.ReadFile(biosPath)
	if err != nil {
		fmt.Printf("reading BIOS: %v\n", err)
		os.Exit(1)
	}
	cartData, err := os.ReadFile(cartPath)
	if err != nil {
		fmt.Printf("reading cartridge: %v\n", err)
		os.Exit(1)
	}

	console := v32.NewConsole(v32.DefaultConfig(), v32.NewDefaultHost())

	if err := console.LoadBIOS(biosData); err != nil {
		fmt.Printf("loading BIOS: %v\n", err)
		os.Exit(1)
	}
	if err := console.LoadCartridge(cartData); err != nil {
		fmt.Printf("loading cartridge: %v\n", err)
		os.Exit(1)
	}

	audio, err := v32.NewOtoAudioHost()
	if err != nil {
		fmt.Printf("audio unavailable, running silent: %v\n", err)
	} else {
		console.AttachAudio(audio)
		audio.Start()
		defer audio.Close()
	}

	fmt.Printf("loaded cartridge %q\n", console.CartridgeTitle())

	var terminal *TerminalInputHost
	if interactive {
		terminal = NewTerminalInputHost(console)
		if err := terminal.Start(); err != nil {
			fmt.Printf("interactive input unavailable, running without it: %v\n", err)
			terminal = nil
		} else {
			fmt.Println("WASD to move, space for button A, Ctrl+C to quit")
			defer terminal.Stop()
		}
	}

	console.SetPower(true)

	for i := 0; i < frames; i++ {
		console.RunNextFrame()
		if console.IsCPUHalted() {
			fmt.Printf("CPU halted at frame %d\n", i)
			break
		}
	}

	fmt.Printf("cpu load %.1f%%  gpu load %.1f%%\n", console.CPULoad()*100, console.GPULoad()*100)
}
