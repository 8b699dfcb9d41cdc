//go:build windows
// +build windows

package window

import (
	"fmt"
	"image"
	"unsafe"

	"github.com/kbinani/screenshot"
	"golang.org/x/sys/windows"
)

var (
	user32                     = windows.NewLazySystemDLL("user32.dll")
	gdi32                      = windows.NewLazySystemDLL("gdi32.dll")
	procFindWindowW            = user32.NewProc("FindWindowW")
	procGetForegroundWindow    = user32.NewProc("GetForegroundWindow")
	procSetForegroundWindow    = user32.NewProc("SetForegroundWindow")
	procShowWindow             = user32.NewProc("ShowWindow")
	procIsIconic               = user32.NewProc("IsIconic")
	procIsWindow               = user32.NewProc("IsWindow")
	procGetClientRect          = user32.NewProc("GetClientRect")
	procClientToScreen         = user32.NewProc("ClientToScreen")
	procSetCursorPos           = user32.NewProc("SetCursorPos")
	procMouseEvent             = user32.NewProc("mouse_event")
	procGetDC                  = user32.NewProc("GetDC")
	procReleaseDC              = user32.NewProc("ReleaseDC")
	procCreateCompatibleDC     = gdi32.NewProc("CreateCompatibleDC")
	procCreateCompatibleBitmap = gdi32.NewProc("CreateCompatibleBitmap")
	procSelectObject           = gdi32.NewProc("SelectObject")
	procBitBlt                 = gdi32.NewProc("BitBlt")
	procDeleteDC               = gdi32.NewProc("DeleteDC")
	procDeleteObject           = gdi32.NewProc("DeleteObject")
	procGetDIBits              = gdi32.NewProc("GetDIBits")
)

const (
	srcCopy         = 0x00CC0020
	biRGB           = 0
	dibRGBColors    = 0
	swRestore       = 9
	mouseEventWheel = 0x0800
)

type rect struct {
	Left   int32
	Top    int32
	Right  int32
	Bottom int32
}

type point struct {
	X int32
	Y int32
}

type bitmapInfoHeader struct {
	Size          uint32
	Width         int32
	Height        int32
	Planes        uint16
	BitCount      uint16
	Compression   uint32
	SizeImage     uint32
	XPelsPerMeter int32
	YPelsPerMeter int32
	ClrUsed       uint32
	ClrImportant  uint32
}

type bitmapInfo struct {
	Header bitmapInfoHeader
	Colors [1]uint32
}

// Win32Finder finds top-level windows by exact title.
type Win32Finder struct {
	Method CaptureMethod
}

// NewFinder returns the platform finder
func NewFinder() ForegroundFinder {
	return &Win32Finder{Method: CaptureMethodScreen}
}

// Find implements Finder
func (f *Win32Finder) Find(title string) (Window, error) {
	titlePtr, err := windows.UTF16PtrFromString(title)
	if err != nil {
		return nil, fmt.Errorf("invalid window title %q: %w", title, err)
	}

	hwnd, _, _ := procFindWindowW.Call(0, uintptr(unsafe.Pointer(titlePtr)))
	if hwnd == 0 {
		return nil, fmt.Errorf("%w: %s", ErrWindowNotFound, title)
	}

	return &Win32Window{hwnd: hwnd, title: title, method: f.Method}, nil
}

// Foreground returns the window that currently has focus.
func (f *Win32Finder) Foreground() (Window, error) {
	hwnd, _, _ := procGetForegroundWindow.Call()
	if hwnd == 0 {
		return nil, ErrWindowNotFound
	}
	return &Win32Window{hwnd: hwnd, method: f.Method}, nil
}

// Win32Window drives a native window through user32 and gdi32.
type Win32Window struct {
	hwnd   uintptr
	title  string
	method CaptureMethod
}

func (w *Win32Window) String() string {
	return fmt.Sprintf("%s (hwnd: 0x%x)", w.title, w.hwnd)
}

func (w *Win32Window) alive() error {
	if ret, _, _ := procIsWindow.Call(w.hwnd); ret == 0 {
		return fmt.Errorf("%w: %s was closed", ErrWindowNotFound, w.title)
	}
	return nil
}

// ClientArea implements Window
func (w *Win32Window) ClientArea() (image.Rectangle, error) {
	if err := w.alive(); err != nil {
		return image.Rectangle{}, err
	}

	var r rect
	ret, _, err := procGetClientRect.Call(w.hwnd, uintptr(unsafe.Pointer(&r)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("failed to get client rect: %v", err)
	}

	origin := point{}
	ret, _, err = procClientToScreen.Call(w.hwnd, uintptr(unsafe.Pointer(&origin)))
	if ret == 0 {
		return image.Rectangle{}, fmt.Errorf("failed to map client origin: %v", err)
	}

	width := int(r.Right - r.Left)
	height := int(r.Bottom - r.Top)
	if width <= 0 || height <= 0 {
		return image.Rectangle{}, fmt.Errorf("invalid window dimensions: %dx%d", width, height)
	}

	return image.Rect(int(origin.X), int(origin.Y), int(origin.X)+width, int(origin.Y)+height), nil
}

// Capture implements Window
func (w *Win32Window) Capture(region image.Rectangle) (image.Image, error) {
	if region.Empty() {
		return nil, ErrInvalidRegion
	}

	if w.method == CaptureMethodScreen {
		img, err := screenshot.CaptureRect(region)
		if err != nil {
			return nil, fmt.Errorf("screen capture failed: %w", err)
		}
		return img, nil
	}

	client, err := w.ClientArea()
	if err != nil {
		return nil, err
	}
	local := region.Sub(client.Min).Intersect(image.Rect(0, 0, client.Dx(), client.Dy()))
	if local.Empty() {
		return nil, ErrInvalidRegion
	}

	frame, err := w.captureClientDC(client.Dx(), client.Dy())
	if err != nil {
		return nil, err
	}
	return frame.SubImage(local), nil
}

// captureClientDC copies the whole client area out of the window's device context.
func (w *Win32Window) captureClientDC(width, height int) (*image.RGBA, error) {
	hdcWindow, _, err := procGetDC.Call(w.hwnd)
	if hdcWindow == 0 {
		return nil, fmt.Errorf("failed to get window DC: %v", err)
	}
	defer procReleaseDC.Call(w.hwnd, hdcWindow)

	hdcMem, _, err := procCreateCompatibleDC.Call(hdcWindow)
	if hdcMem == 0 {
		return nil, fmt.Errorf("failed to create compatible DC: %v", err)
	}
	defer procDeleteDC.Call(hdcMem)

	hBitmap, _, err := procCreateCompatibleBitmap.Call(hdcWindow, uintptr(width), uintptr(height))
	if hBitmap == 0 {
		return nil, fmt.Errorf("failed to create compatible bitmap: %v", err)
	}
	defer procDeleteObject.Call(hBitmap)

	_, _, _ = procSelectObject.Call(hdcMem, hBitmap)

	ret, _, err := procBitBlt.Call(hdcMem, 0, 0, uintptr(width), uintptr(height), hdcWindow, 0, 0, srcCopy)
	if ret == 0 {
		return nil, fmt.Errorf("BitBlt failed: %v", err)
	}

	var bi bitmapInfo
	bi.Header.Size = uint32(unsafe.Sizeof(bi.Header))
	bi.Header.Width = int32(width)
	bi.Header.Height = -int32(height) // top-down
	bi.Header.Planes = 1
	bi.Header.BitCount = 32
	bi.Header.Compression = biRGB

	img := image.NewRGBA(image.Rect(0, 0, width, height))
	ret, _, err = procGetDIBits.Call(
		hdcMem,
		hBitmap,
		0,
		uintptr(height),
		uintptr(unsafe.Pointer(&img.Pix[0])),
		uintptr(unsafe.Pointer(&bi)),
		dibRGBColors,
	)
	if ret == 0 {
		return nil, fmt.Errorf("GetDIBits failed: %v", err)
	}

	// BGRA -> RGBA, opaque
	for i := 0; i < len(img.Pix); i += 4 {
		img.Pix[i], img.Pix[i+2] = img.Pix[i+2], img.Pix[i]
		img.Pix[i+3] = 0xff
	}

	return img, nil
}

// MoveCursor implements Window
func (w *Win32Window) MoveCursor(p image.Point) error {
	ret, _, err := procSetCursorPos.Call(uintptr(p.X), uintptr(p.Y))
	if ret == 0 {
		return fmt.Errorf("failed to move cursor to %v: %v", p, err)
	}
	return nil
}

// Scroll implements Window. One unit of delta is one wheel unit, 1/120 of a notch.
func (w *Win32Window) Scroll(delta int) error {
	procMouseEvent.Call(mouseEventWheel, 0, 0, uintptr(wheelData(delta)), 0)
	return nil
}

// Activate implements Window
func (w *Win32Window) Activate() error {
	if err := w.alive(); err != nil {
		return err
	}
	if iconic, _, _ := procIsIconic.Call(w.hwnd); iconic != 0 {
		procShowWindow.Call(w.hwnd, swRestore)
	}
	if ret, _, err := procSetForegroundWindow.Call(w.hwnd); ret == 0 {
		return fmt.Errorf("failed to activate %s: %v", w.title, err)
	}
	return nil
}
