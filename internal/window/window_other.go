//go:build !windows
// +build !windows

package window

type unsupportedFinder struct{}

// NewFinder returns the platform finder
func NewFinder() ForegroundFinder {
	return unsupportedFinder{}
}

func (unsupportedFinder) Find(title string) (Window, error) {
	return nil, ErrUnsupported
}

func (unsupportedFinder) Foreground() (Window, error) {
	return nil, ErrUnsupported
}
