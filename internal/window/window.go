package window

import (
	"errors"
	"image"
)

// Window is a top-level application window that can be captured and scrolled.
// Coordinates are absolute virtual-screen pixels.
type Window interface {
	// ClientArea returns the client rectangle in screen coordinates.
	ClientArea() (image.Rectangle, error)
	// Capture grabs the pixels of rect.
	Capture(rect image.Rectangle) (image.Image, error)
	// MoveCursor moves the pointer to p.
	MoveCursor(p image.Point) error
	// Scroll sends delta wheel units (1/120 of a notch each); negative scrolls down.
	Scroll(delta int) error
	// Activate brings the window to the foreground.
	Activate() error
}

// Finder locates windows by title.
type Finder interface {
	Find(title string) (Window, error)
}

// ForegroundFinder can also report the window that currently has focus.
type ForegroundFinder interface {
	Finder
	Foreground() (Window, error)
}

var (
	ErrWindowNotFound = errors.New("window not found")
	ErrUnsupported    = errors.New("window access is not supported on this platform")
	ErrInvalidRegion  = errors.New("capture region is empty or outside the window")
)

// CaptureMethod defines how frames are captured
type CaptureMethod int

const (
	// CaptureMethodScreen grabs the region from the composed desktop
	CaptureMethodScreen CaptureMethod = iota
	// CaptureMethodWindowDC copies from the window's client device context
	CaptureMethodWindowDC
)

// wheelData encodes delta wheel units as the dwData of a MOUSEEVENTF_WHEEL event.
// Units are not scaled to notches; scroll steps are tuned in single units.
func wheelData(delta int) uint32 {
	return uint32(int32(delta))
}
