package engine

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/Masterminds/sprig"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	stori "github.com/cgcardona/Stori-sub010"
)

type (
	// ExportOptions selects the target file and encoding of an offline
	// render. A zero Directory renders into the current directory; an empty
	// NameTemplate falls back to the project name.
	ExportOptions struct {
		Format       stori.Format
		Depth        stori.BitDepth
		Mono         bool
		Directory    string
		NameTemplate string
		Progress     func(ExportProgress)
	}

	// ExportProgress is a periodic report on a running render. Remaining is
	// extrapolated from the render rate so far and stays 0 until at least one
	// block has been rendered.
	ExportProgress struct {
		Frames    int
		Total     int
		Elapsed   time.Duration
		Remaining time.Duration
	}

	// ExportResult reports what was actually written. Format differs from
	// the requested one when the requested encoder is unavailable and a
	// lossless substitute was used instead.
	ExportResult struct {
		Path        string
		Format      stori.Format
		Requested   stori.Format
		Substituted bool
		ClipCount   int
		Frames      int
		Duration    time.Duration
	}
)

// formatTitle renders a format name for user-facing messages.
var formatTitle = cases.Title(language.English)

// Export renders the project offline through the same schedule build and
// routing graph the live transport uses, re-evaluating automation against
// the render timeline, and encodes the result to disk. The cycle window is
// ignored: the timeline is rendered start to end exactly once. The file is
// written through a temporary name and renamed only on success, so a
// cancelled or failed export never leaves a partial file that could be
// mistaken for a complete one.
func Export(ctx context.Context, project *stori.Project, opts ExportOptions) (*ExportResult, error) {
	if err := project.Validate(); err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	result := &ExportResult{Format: opts.Format, Requested: opts.Format}
	if !opts.Format.Supported() {
		result.Format = opts.Format.FallbackFormat()
		result.Substituted = true
	}

	samples, clipped, err := renderOffline(ctx, project, opts)
	if err != nil {
		return nil, err
	}
	result.ClipCount = clipped
	channels := 2
	if opts.Mono {
		channels = 1
	}
	result.Frames = len(samples) / channels
	result.Duration = time.Duration(float64(result.Frames) / float64(project.Rate()) * float64(time.Second))

	name, err := exportFileName(project, result.Format, opts.NameTemplate)
	if err != nil {
		return nil, err
	}
	dir := opts.Directory
	if dir == "" {
		dir = "."
	}
	result.Path = filepath.Join(dir, name)

	// the temp file must live in the target directory: the final rename is
	// only atomic within one filesystem
	tmp, err := os.CreateTemp(dir, name+".tmp*")
	if err != nil {
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := stori.EncodeAudio(tmp, samples, result.Format, opts.Depth, channels, project.Rate()); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("export: encode %v: %w", result.Format, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("export: %w", err)
	}
	if err := ctx.Err(); err != nil {
		os.Remove(tmp.Name())
		return nil, err
	}
	if err := os.Rename(tmp.Name(), result.Path); err != nil {
		os.Remove(tmp.Name())
		return nil, fmt.Errorf("export: %w", err)
	}
	return result, nil
}

// renderOffline produces the interleaved master output of the full timeline.
// It builds a fresh graph and renderer from the same constructors the live
// player uses, which is what keeps offline output identical to live output.
func renderOffline(ctx context.Context, project *stori.Project, opts ExportOptions) ([]float32, int, error) {
	schedule := BuildSchedule(project, 0, stori.CycleState{})
	graph := NewGraph(project)
	rd := newRenderer(project, graph, schedule, nil)

	total := schedule.EndFrame
	out := make([]float32, 0, total*2)
	block := make([]float32, maxBlockFrames*2)
	started := time.Now()
	for rd.frame < total {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		remain := total - rd.frame
		if remain > maxBlockFrames {
			remain = maxBlockFrames
		}
		n := rd.renderBlock(block[:remain*2])
		if n == 0 {
			break
		}
		out = append(out, block[:n*2]...)
		if opts.Progress != nil {
			elapsed := time.Since(started)
			opts.Progress(ExportProgress{
				Frames:    rd.frame,
				Total:     total,
				Elapsed:   elapsed,
				Remaining: elapsed * time.Duration(total-rd.frame) / time.Duration(rd.frame),
			})
		}
	}
	if opts.Mono {
		mono := make([]float32, len(out)/2)
		for i := range mono {
			mono[i] = (out[2*i] + out[2*i+1]) / 2
		}
		return mono, rd.clipped, nil
	}
	return out, rd.clipped, nil
}

// exportFileName expands the name template against the project. The template
// has the sprig function set available and sees the project name, the format
// display name and the current date.
func exportFileName(project *stori.Project, format stori.Format, nameTemplate string) (string, error) {
	if nameTemplate == "" {
		nameTemplate = "{{.Name | trim}}"
	}
	tmpl, err := template.New("exportname").Funcs(sprig.TxtFuncMap()).Parse(nameTemplate)
	if err != nil {
		return "", fmt.Errorf("export: name template: %w", err)
	}
	data := struct {
		Name   string
		Format string
		Date   string
	}{
		Name:   project.Name,
		Format: formatTitle.String(format.String()),
		Date:   time.Now().Format("2006-01-02"),
	}
	var sb strings.Builder
	if err := tmpl.Execute(&sb, data); err != nil {
		return "", fmt.Errorf("export: name template: %w", err)
	}
	name := strings.TrimSpace(sb.String())
	if name == "" {
		name = "Untitled"
	}
	return name + format.Extension(), nil
}
