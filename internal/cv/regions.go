package cv

import "image"

// Layout locates the list band inside a window's client area.
// Every ratio is a fraction of the client WIDTH, including Top and Bottom, so a band keeps
// its shape when the window is resized at a fixed aspect ratio.
type Layout struct {
	Left    float64 `yaml:"left"`
	Right   float64 `yaml:"right"`
	Top     float64 `yaml:"top"`
	Bottom  float64 `yaml:"bottom"`
	Profile float64 `yaml:"profile"` // avatar column removed before OCR
}

// Rect converts the layout to absolute screen coordinates for the given client area.
func (l Layout) Rect(client image.Rectangle) image.Rectangle {
	w := float64(client.Dx())
	return image.Rect(
		client.Min.X+int(w*l.Left),
		client.Min.Y+int(w*l.Top),
		client.Max.X-int(w*l.Right),
		client.Max.Y-int(w*l.Bottom),
	)
}

// ProfileOffset is the number of leading canvas columns covered by the avatar column.
func (l Layout) ProfileOffset(client image.Rectangle) int {
	return int(float64(client.Dx()) * l.Profile)
}

// LayoutSet picks a layout by the client area's aspect ratio.
type LayoutSet struct {
	UltrawideAspect float64 `yaml:"ultrawide_aspect"`
	Ultrawide       Layout  `yaml:"ultrawide"`
	Normal          Layout  `yaml:"normal"`
}

// Select returns the ultrawide layout at or above UltrawideAspect, otherwise the normal one.
func (s LayoutSet) Select(client image.Rectangle) Layout {
	if client.Dy() == 0 {
		return s.Normal
	}
	aspect := float64(client.Dx()) / float64(client.Dy())
	if s.UltrawideAspect > 0 && aspect >= s.UltrawideAspect {
		return s.Ultrawide
	}
	return s.Normal
}

// Center returns the middle of a rectangle.
func Center(r image.Rectangle) image.Point {
	return image.Point{X: r.Min.X + r.Dx()/2, Y: r.Min.Y + r.Dy()/2}
}
