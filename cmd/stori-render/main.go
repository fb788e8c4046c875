package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"time"

	stori "github.com/cgcardona/Stori-sub010"
	"github.com/cgcardona/Stori-sub010/engine"
	"github.com/cgcardona/Stori-sub010/version"
)

func main() {
	help := flag.Bool("h", false, "Show help.")
	formatName := flag.String("f", envOr("STORI_EXPORT_FORMAT", "wav"), "Output format: wav, aiff, flac or m4a.")
	depthName := flag.String("d", envOr("STORI_EXPORT_DEPTH", "16"), "Bit depth: 16, 24 or 32 (32 is float).")
	mono := flag.Bool("mono", false, "Render a mono mixdown instead of stereo.")
	directory := flag.String("o", "", "Directory where to write the rendered file. Defaults to the current directory.")
	nameTemplate := flag.String("name", "", "Template for the output file name; the project name is used when empty.")
	quiet := flag.Bool("q", false, "Suppress progress output.")
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

	format, err := stori.ParseFormat(*formatName)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
	var depth stori.BitDepth
	switch *depthName {
	case "16":
		depth = stori.Depth16
	case "24":
		depth = stori.Depth24
	case "32":
		depth = stori.Depth32Float
	default:
		fmt.Fprintf(os.Stderr, "unknown bit depth %q\n", *depthName)
		os.Exit(1)
	}

	project, warnings, err := engine.ReadProject(flag.Arg(0))
	if err != nil {
		fmt.Fprintf(os.Stderr, "could not load project: %v\n", err)
		os.Exit(1)
	}
	for _, w := range warnings {
		fmt.Fprintf(os.Stderr, "warning: %v\n", w)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	opts := engine.ExportOptions{
		Format:       format,
		Depth:        depth,
		Mono:         *mono,
		Directory:    *directory,
		NameTemplate: *nameTemplate,
	}
	if !*quiet {
		opts.Progress = func(p engine.ExportProgress) {
			if p.Total > 0 {
				fmt.Fprintf(os.Stderr, "\rrendering %3d%% (%v left)",
					p.Frames*100/p.Total, p.Remaining.Round(time.Second))
			}
		}
	}
	result, err := engine.Export(ctx, project, opts)
	if !*quiet {
		fmt.Fprintln(os.Stderr)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "export failed: %v\n", err)
		os.Exit(1)
	}
	if result.Substituted {
		fmt.Fprintf(os.Stderr, "warning: %v is not supported on this system, wrote %v instead\n", result.Requested, result.Format)
	}
	if result.ClipCount > 0 {
		fmt.Fprintf(os.Stderr, "warning: output clipped (%d samples)\n", result.ClipCount)
	}
	fmt.Printf("wrote %s (%v, %d frames)\n", result.Path, result.Duration.Round(10*time.Millisecond), result.Frames)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func printUsage() {
	fmt.Fprintf(os.Stderr, "Render a project to an audio file offline.\nUsage: %s [flags] projectfile\n", os.Args[0])
	flag.PrintDefaults()
}
