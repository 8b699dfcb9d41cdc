// Command stitch-replay runs the capture loop over saved screenshots instead of the game
// window. Frames are read from a directory in name order, one per scroll position.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"jordanella.com/noruhunter-go/internal/app"
	"jordanella.com/noruhunter-go/internal/config"
	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/extract"
	"jordanella.com/noruhunter-go/internal/logging"
	"jordanella.com/noruhunter-go/internal/scroll"
	"jordanella.com/noruhunter-go/internal/window"
)

func main() {
	framesDir := flag.String("frames", "", "Directory of PNG frames, sorted by name")
	kind := flag.String("extractor", "circle", "Layout to use: circle or dust")
	out := flag.String("out", "stitched.png", "Where to write the stitched canvas")
	layoutsPath := flag.String("layouts", config.LayoutsFileName, "Optional layouts override file")
	maxScrolls := flag.Int("max-scrolls", 20, "Upper bound on scroll actions")
	full := flag.Bool("full", false, "Run OCR and export as well, using the settings in -dir")
	dir := flag.String("dir", ".", "Directory holding config.json and the roster (with -full)")
	yes := flag.Bool("yes", false, "Answer every confirmation with yes (with -full)")
	flag.Parse()

	if *framesDir == "" {
		flag.Usage()
		os.Exit(2)
	}

	ex, err := extractorByKind(*kind)
	if err != nil {
		log.Fatal(err)
	}

	replay, err := window.LoadReplay(*framesDir)
	if err != nil {
		log.Fatalf("Failed to load frames: %v", err)
	}

	if *full {
		if err := runPipeline(*dir, replay, ex, *yes); err != nil {
			log.Fatal(err)
		}
		return
	}

	layouts, err := config.LoadLayouts(*layoutsPath)
	if err != nil {
		log.Printf("Warning: %v, using built-in layouts", err)
	}
	if err := stitch(replay, ex.Layout(layouts), *maxScrolls, *out); err != nil {
		log.Fatal(err)
	}
}

func extractorByKind(kind string) (extract.Extractor, error) {
	for _, ex := range []extract.Extractor{extract.Circle{}, extract.Dust{}} {
		if ex.Kind() == kind {
			return ex, nil
		}
	}
	return nil, fmt.Errorf("unknown extractor %q", kind)
}

func stitch(replay *window.Replay, set cv.LayoutSet, maxScrolls int, out string) error {
	logger := logging.NewLogger("StitchReplay")

	client, err := replay.ClientArea()
	if err != nil {
		return err
	}

	opts := scroll.DefaultOptions()
	opts.MaxScrolls = maxScrolls
	opts.Sleep = func(time.Duration) {}
	engine := scroll.NewEngine(replay, opts)
	engine.Logger = logger.Named("Scroll")

	result, err := engine.CaptureFullList(set.Select(client))
	if err != nil {
		return fmt.Errorf("capture failed: %w", err)
	}
	if err := cv.SavePNG(result.Canvas, out); err != nil {
		return err
	}

	captures, ticks := replay.Stats()
	logger.InfoWithContext("Canvas written", map[string]interface{}{
		"path":      out,
		"height":    result.Canvas.Bounds().Dy(),
		"scrolls":   result.Scrolls,
		"merges":    result.Merges,
		"converged": result.Converged,
		"captures":  captures,
		"ticks":     ticks,
	})
	return nil
}

// replayFinder hands out the replay whatever title is asked for
type replayFinder struct {
	replay *window.Replay
}

func (f replayFinder) Find(string) (window.Window, error) {
	return f.replay, nil
}

func runPipeline(dir string, replay *window.Replay, ex extract.Extractor, yes bool) error {
	ctx, err := app.New(app.DefaultPaths(dir), replayFinder{replay}, &consolePrompter{yes: yes, in: bufio.NewReader(os.Stdin)})
	if err != nil {
		return err
	}
	defer ctx.Close()

	nop := func(time.Duration) {}
	ctx.Pipeline.Sleep = nop
	ctx.Pipeline.Timing.Sleep = nop
	ctx.Pipeline.Restore = func() {}

	report, err := ctx.Pipeline.Run(context.Background(), ex)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d rows, %d tokens -> %s (sheet %s)\n", report.Extractor, report.Rows, report.Tokens, report.Path, report.Sheet)
	return nil
}

// consolePrompter answers the pipeline's dialogs on the terminal
type consolePrompter struct {
	yes bool
	in  *bufio.Reader
}

func (p *consolePrompter) Alert(title, message string) {
	fmt.Printf("[%s] %s\n", title, message)
}

func (p *consolePrompter) Error(title, message string) {
	fmt.Fprintf(os.Stderr, "[%s] %s\n", title, message)
}

func (p *consolePrompter) Confirm(title, message string) bool {
	fmt.Printf("[%s] %s [y/N] ", title, message)
	if p.yes {
		fmt.Println("y")
		return true
	}
	line, err := p.in.ReadString('\n')
	if err != nil {
		fmt.Println()
		return false
	}
	answer := strings.ToLower(strings.TrimSpace(line))
	return answer == "y" || answer == "yes"
}
