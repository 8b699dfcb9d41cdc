// Package scroll captures a list that is taller than its window by scrolling it and
// stitching the overlapping screenshots into one canvas.
package scroll

import (
	"errors"
	"fmt"
	"image"
	"time"

	"jordanella.com/noruhunter-go/internal/cv"
	"jordanella.com/noruhunter-go/internal/events"
	"jordanella.com/noruhunter-go/internal/logging"
	"jordanella.com/noruhunter-go/internal/window"
)

// noOffset marks that no match has been merged yet.
const noOffset = -1

// Options tunes the capture loop
type Options struct {
	MaxScrolls     int           // upper bound on scroll actions
	ScrollStep     int           // wheel ticks per scroll action
	Threshold      float64       // minimum similarity for a match to count
	SearchFraction float64       // top share of each capture used as the needle
	SettleDelay    time.Duration // wait after scrolling before capturing
	TickDelay      time.Duration // wait between wheel ticks
	Sleep          func(time.Duration)
}

// DefaultOptions returns the production settings
func DefaultOptions() Options {
	return Options{
		MaxScrolls:     20,
		ScrollStep:     25,
		Threshold:      cv.DefaultThreshold,
		SearchFraction: 0.2,
		SettleDelay:    800 * time.Millisecond,
		TickDelay:      10 * time.Millisecond,
		Sleep:          time.Sleep,
	}
}

// Validate reports the first invalid option
func (o Options) Validate() error {
	switch {
	case o.MaxScrolls <= 0:
		return fmt.Errorf("%w: max scrolls must be positive, got %d", ErrInvalidOptions, o.MaxScrolls)
	case o.ScrollStep <= 0:
		return fmt.Errorf("%w: scroll step must be positive, got %d", ErrInvalidOptions, o.ScrollStep)
	case o.Threshold <= 0 || o.Threshold > 1:
		return fmt.Errorf("%w: threshold must be in (0,1], got %.2f", ErrInvalidOptions, o.Threshold)
	case o.SearchFraction <= 0 || o.SearchFraction > 1:
		return fmt.Errorf("%w: search fraction must be in (0,1], got %.2f", ErrInvalidOptions, o.SearchFraction)
	}
	return nil
}

// Result is the outcome of one capture run
type Result struct {
	Canvas    *image.Gray
	Scrolls   int  // scroll actions performed
	Merges    int  // captures appended to the canvas
	Converged bool // false when MaxScrolls ran out before two equal offsets were seen
}

var ErrInvalidOptions = errors.New("invalid scroll options")

// Engine drives a Window and a Matcher to build the canvas.
// An Engine is not safe for concurrent runs.
type Engine struct {
	Window  window.Window
	Matcher cv.Matcher
	Options Options
	Logger  *logging.Logger
	Events  events.Publisher
}

// NewEngine creates an engine with the default NCC matcher
func NewEngine(w window.Window, opts Options) *Engine {
	return &Engine{
		Window:  w,
		Matcher: cv.NCCMatcher{Config: &cv.MatchConfig{Threshold: opts.Threshold}},
		Options: opts,
		Logger:  logging.NewLogger("Scroll"),
		Events:  events.Discard,
	}
}

// CaptureFullList captures the layout band of the window, scrolling until two consecutive
// matches land on the same canvas row or MaxScrolls actions have been spent.
func (e *Engine) CaptureFullList(layout cv.Layout) (*Result, error) {
	opts := e.Options
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if opts.Sleep == nil {
		opts.Sleep = time.Sleep
	}
	logger := e.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}
	publisher := e.Events
	if publisher == nil {
		publisher = events.Discard
	}
	matcher := e.Matcher
	if matcher == nil {
		matcher = cv.NCCMatcher{Config: &cv.MatchConfig{Threshold: opts.Threshold}}
	}

	client, err := e.Window.ClientArea()
	if err != nil {
		return nil, fmt.Errorf("failed to read client area: %w", err)
	}
	region := layout.Rect(client)
	if region.Empty() {
		return nil, fmt.Errorf("%w: layout produced %v inside %v", window.ErrInvalidRegion, region, client)
	}
	center := cv.Center(client)

	canvas, err := e.capture(region)
	if err != nil {
		return nil, err
	}
	logger.InfoWithContext("Initial capture", map[string]interface{}{
		"region": region.String(),
		"height": canvas.Bounds().Dy(),
	})

	result := &Result{}
	prevOffset := noOffset

	for result.Scrolls < opts.MaxScrolls {
		if err := e.scroll(center, opts); err != nil {
			return nil, err
		}
		result.Scrolls++
		opts.Sleep(opts.SettleDelay)

		next, err := e.capture(region)
		if err != nil {
			return nil, err
		}

		needle := cv.CropTop(next, opts.SearchFraction)
		match, err := matcher.Match(canvas, needle)
		if err != nil {
			logger.WarnWithContext("Overlap not measurable, capture skipped", map[string]interface{}{
				"scroll": result.Scrolls,
				"error":  err.Error(),
			})
			publisher.Publish(events.NewScrollProgressEvent(result.Scrolls, opts.MaxScrolls, 0, noOffset, false))
			continue
		}
		y := match.Location.Y

		if match.Confidence < opts.Threshold {
			logger.DebugWithContext("No overlap, capture skipped", map[string]interface{}{
				"scroll": result.Scrolls,
				"score":  match.Confidence,
			})
			publisher.Publish(events.NewScrollProgressEvent(result.Scrolls, opts.MaxScrolls, match.Confidence, noOffset, false))
			continue
		}

		if y == prevOffset {
			result.Converged = true
			logger.InfoWithContext("Reached end of list", map[string]interface{}{
				"scroll": result.Scrolls,
				"offset": y,
			})
			publisher.Publish(events.NewScrollProgressEvent(result.Scrolls, opts.MaxScrolls, match.Confidence, y, false))
			break
		}

		canvas, err = cv.MergeAt(canvas, next, y)
		if err != nil {
			return nil, fmt.Errorf("failed to merge capture %d: %w", result.Scrolls, err)
		}
		prevOffset = y
		result.Merges++

		logger.DebugWithContext("Merged capture", map[string]interface{}{
			"scroll": result.Scrolls,
			"offset": y,
			"score":  match.Confidence,
			"height": canvas.Bounds().Dy(),
		})
		publisher.Publish(events.NewScrollProgressEvent(result.Scrolls, opts.MaxScrolls, match.Confidence, y, true))
	}

	if !result.Converged {
		logger.WarnWithContext("Scroll limit reached before the list ended", map[string]interface{}{
			"max_scrolls": opts.MaxScrolls,
			"merges":      result.Merges,
		})
	}

	result.Canvas = canvas
	publisher.Publish(events.NewScrollFinishedEvent(result.Scrolls, result.Merges, canvas.Bounds().Dy(), result.Converged))
	return result, nil
}

func (e *Engine) capture(region image.Rectangle) (*image.Gray, error) {
	img, err := e.Window.Capture(region)
	if err != nil {
		return nil, fmt.Errorf("failed to capture %v: %w", region, err)
	}
	return cv.ToGray(img), nil
}

func (e *Engine) scroll(center image.Point, opts Options) error {
	if err := e.Window.MoveCursor(center); err != nil {
		return fmt.Errorf("failed to move cursor: %w", err)
	}
	for i := 0; i < opts.ScrollStep; i++ {
		if err := e.Window.Scroll(-1); err != nil {
			return fmt.Errorf("failed to scroll: %w", err)
		}
		if opts.TickDelay > 0 {
			opts.Sleep(opts.TickDelay)
		}
	}
	return nil
}
