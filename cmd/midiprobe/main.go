// midiprobe checks MIDI ports, the output engine and Launchpad LEDs without
// starting the instrument.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"go-sonify/engine"
	"go-sonify/mapper"
	"go-sonify/midi"
	"go-sonify/visual"
)

func main() {
	if len(os.Args) < 2 {
		usage()
		return
	}

	log, err := zap.NewDevelopment()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()
	defer midi.Shutdown()

	switch os.Args[1] {
	case "list":
		listPorts()
	case "poll":
		pollPorts()
	case "scale":
		if len(os.Args) < 3 {
			usage()
			return
		}
		playScale(os.Args[2], log)
	case "leds":
		testLEDs(log)
	default:
		usage()
	}
}

func usage() {
	fmt.Println("midiprobe")
	fmt.Println("")
	fmt.Println("Commands:")
	fmt.Println("  list          - List all MIDI ports")
	fmt.Println("  poll          - Print port changes")
	fmt.Println("  scale <port>  - Play the reference scale on an output port")
	fmt.Println("  leds          - Paint a hue gradient on a Launchpad")
}

func listPorts() {
	fmt.Println("(waiting up to 3 seconds...)")

	type result struct {
		ins, outs []string
	}
	ch := make(chan result, 1)
	go func() {
		ins, outs := midi.PortNames()
		ch <- result{ins: ins, outs: outs}
	}()

	select {
	case r := <-ch:
		fmt.Println("=== MIDI Input Ports ===")
		for i, name := range r.ins {
			fmt.Printf("  %d: %s\n", i, name)
		}
		fmt.Println("\n=== MIDI Output Ports ===")
		for i, name := range r.outs {
			fmt.Printf("  %d: %s\n", i, name)
		}
	case <-time.After(3 * time.Second):
		fmt.Println("\nTIMEOUT! The MIDI service is not answering.")
	}
}

func pollPorts() {
	fmt.Println("Polling for port changes every 2 seconds. Ctrl+C to exit.")

	var last string
	for {
		ins, outs := midi.PortNames()
		current := strings.Join(ins, ",") + "|" + strings.Join(outs, ",")
		if current != last {
			fmt.Printf("\n[%s] ports changed\n", time.Now().Format("15:04:05"))
			fmt.Printf("  Inputs: %v\n", ins)
			fmt.Printf("  Outputs: %v\n", outs)
			last = current
		}
		time.Sleep(2 * time.Second)
	}
}

func playScale(port string, log *zap.Logger) {
	send, err := midi.NewOutputs().Sender(port)
	if err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}
	eng := engine.NewMIDI(send, 0, 1, engine.WithMIDILogger(log))
	defer eng.Close()

	for _, note := range mapper.Reference {
		fmt.Printf("  %s\n", note.Name())
		eng.Attack(0, note.Frequency(), 0.8)
		time.Sleep(250 * time.Millisecond)
		eng.Release(0)
	}
	fmt.Println("Done!")
}

func testLEDs(log *zap.Logger) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	dm := midi.NewDeviceManager(midi.WithLogger(log), midi.WithKeyboards(false))
	go dm.Run(ctx)

	fmt.Println("Looking for a Launchpad...")
	timeout := time.After(5 * time.Second)
	var lp midi.Controller
	for lp == nil {
		select {
		case ev := <-dm.Events():
			if ev.Type == midi.DeviceConnected && ev.Controller.Type() == midi.ControllerLaunchpad {
				lp = ev.Controller
			}
		case <-timeout:
			fmt.Println("No Launchpad found")
			return
		}
	}

	var updates []midi.LEDUpdate
	for row := 0; row < midi.GridSize; row++ {
		for col := 0; col < midi.GridSize; col++ {
			c := visual.Hue(360 * float64(col*midi.GridSize+row) / (midi.GridSize * midi.GridSize))
			r, g, b := c.RGB255()
			updates = append(updates, midi.LEDUpdate{Row: row, Col: col, Color: [3]uint8{r, g, b}})
		}
	}
	if err := lp.SetLEDBatch(updates); err != nil {
		fmt.Printf("Error: %v\n", err)
		return
	}

	fmt.Println("Press Enter to clear...")
	fmt.Scanln()

	for i := range updates {
		updates[i].Color = [3]uint8{}
	}
	if err := lp.SetLEDBatch(updates); err != nil {
		fmt.Printf("Error: %v\n", err)
	}
	fmt.Println("Done!")
}
