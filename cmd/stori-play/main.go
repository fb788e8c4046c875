package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"time"

	"github.com/cgcardona/Stori-sub010/engine"
	"github.com/cgcardona/Stori-sub010/midi"
	"github.com/cgcardona/Stori-sub010/oto"
	"github.com/cgcardona/Stori-sub010/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	start := flag.Float64("start", envFloat("STORI_START_BEAT", 0), "Start playing from the given beat.")
	midiPort := flag.String("midi", os.Getenv("STORI_MIDI_PORT"), "Send scheduled notes to the MIDI output with this name; empty plays audio only.")
	versionFlag := flag.Bool("v", false, "Print version.")
	flag.Usage = printUsage
	flag.Parse()
	if *versionFlag {
		fmt.Println(version.VersionOrHash)
		os.Exit(0)
	}
	if flag.NArg() != 1 || *help {
		flag.Usage()
		os.Exit(0)
	}

	project, warnings, err := engine.ReadProject(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load project: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	broker := engine.NewBroker()
	player := engine.NewPlayer(broker)
	model := engine.NewModel(broker)

	if *midiPort != "" {
		port, err := midi.OpenPort(*midiPort)
		if err != nil {
			fmt.Fprintf(os.Stderr, "could not open midi output: %v\n", err)
			os.Exit(1)
		}
		defer port.Close()
		model.SetSink(port)
	}

	audioContext, err := oto.NewContext()
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not acquire oto AudioContext: %v\n", err)
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	go reportEvents(ctx, broker)

	model.SetProject(project)
	model.Play(*start)
	out := audioContext.Play(player.Source())
	defer out.Close()

	// the model belongs to this goroutine: it is pumped and queried only
	// from this loop
	ticker := time.NewTicker(50 * time.Millisecond)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			model.Stop()
			return
		case <-ticker.C:
			model.ProcessMessages()
			if !model.Playing() {
				return
			}
		}
	}
}

func reportEvents(ctx context.Context, broker *engine.Broker) {
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-broker.ToUI:
			switch e := ev.(type) {
			case engine.ClipDetectedMsg:
				fmt.Fprintf(os.Stderr, "warning: output clipped (%d samples)\n", e.Count)
			case engine.WarningMsg:
				fmt.Fprintf(os.Stderr, "warning: %s\n", e.Text)
			}
		}
	}
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Play a project through the system audio output.\nUsage: %s [flags] projectfile\n", os.Args[0])
	flag.PrintDefaults()
}
