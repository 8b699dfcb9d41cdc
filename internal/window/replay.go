package window

import (
	"fmt"
	"image"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/disintegration/imaging"
)

// Replay is an offline Window that plays back a sequence of recorded client-area frames.
// Each scroll gesture, however many ticks it spans, advances to the next frame on the
// following Capture. The last frame repeats once the recording is exhausted.
// Frames are addressed in client coordinates starting at (0,0).
type Replay struct {
	mu       sync.Mutex
	frames   []image.Image
	index    int
	pending  bool
	ticks    int
	captures int
	cursor   image.Point
}

// NewReplay creates a replay from in-memory frames.
func NewReplay(frames []image.Image) (*Replay, error) {
	if len(frames) == 0 {
		return nil, fmt.Errorf("replay needs at least one frame")
	}
	size := frames[0].Bounds().Size()
	for i, f := range frames {
		if f.Bounds().Size() != size {
			return nil, fmt.Errorf("frame %d is %v, expected %v", i, f.Bounds().Size(), size)
		}
	}
	return &Replay{frames: frames}, nil
}

// LoadReplay reads every png/jpg file in dir, ordered by file name.
func LoadReplay(dir string) (*Replay, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read replay directory: %w", err)
	}

	var names []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		switch strings.ToLower(filepath.Ext(e.Name())) {
		case ".png", ".jpg", ".jpeg":
			names = append(names, e.Name())
		}
	}
	sort.Strings(names)

	frames := make([]image.Image, 0, len(names))
	for _, name := range names {
		img, err := imaging.Open(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("failed to load frame %s: %w", name, err)
		}
		frames = append(frames, img)
	}

	return NewReplay(frames)
}

// ClientArea implements Window
func (r *Replay) ClientArea() (image.Rectangle, error) {
	return image.Rectangle{Max: r.frames[0].Bounds().Size()}, nil
}

// Capture implements Window
func (r *Replay) Capture(region image.Rectangle) (image.Image, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.pending {
		r.pending = false
		if r.index < len(r.frames)-1 {
			r.index++
		}
	}
	r.captures++

	frame := r.frames[r.index]
	local := region.Add(frame.Bounds().Min).Intersect(frame.Bounds())
	if local.Empty() || local.Size() != region.Size() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidRegion, region)
	}
	return imaging.Crop(frame, local), nil
}

// MoveCursor implements Window
func (r *Replay) MoveCursor(p image.Point) error {
	r.mu.Lock()
	r.cursor = p
	r.mu.Unlock()
	return nil
}

// Scroll implements Window
func (r *Replay) Scroll(delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if delta < 0 {
		r.pending = true
		r.ticks++
	}
	return nil
}

// Activate implements Window
func (r *Replay) Activate() error { return nil }

// Stats reports how many captures and wheel ticks the replay has served.
func (r *Replay) Stats() (captures, ticks int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.captures, r.ticks
}

// Cursor returns the last position passed to MoveCursor.
func (r *Replay) Cursor() image.Point {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.cursor
}
