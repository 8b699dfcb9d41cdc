package cv

import (
	"bytes"
	"fmt"
	"image"
	"image/draw"
	"image/png"
	"os"
	"path/filepath"

	"github.com/disintegration/imaging"
)

// ToGray converts any image to a single-channel intensity image anchored at (0,0).
// Luminance weights follow ITU-R BT.601, the same weights OCR backends expect.
func ToGray(img image.Image) *image.Gray {
	if g, ok := img.(*image.Gray); ok && g.Bounds().Min == (image.Point{}) {
		return g
	}

	nrgba := imaging.Grayscale(img)
	bounds := nrgba.Bounds()
	gray := image.NewGray(image.Rect(0, 0, bounds.Dx(), bounds.Dy()))

	for y := 0; y < bounds.Dy(); y++ {
		src := nrgba.Pix[y*nrgba.Stride : y*nrgba.Stride+bounds.Dx()*4]
		dst := gray.Pix[y*gray.Stride : y*gray.Stride+bounds.Dx()]
		for x := range dst {
			dst[x] = src[x*4]
		}
	}

	return gray
}

// CropTop returns the top fraction of img as a view sharing its pixels.
// At least one row is kept.
func CropTop(img *image.Gray, fraction float64) *image.Gray {
	b := img.Bounds()
	h := int(float64(b.Dy()) * fraction)
	if h < 1 {
		h = 1
	}
	if h > b.Dy() {
		h = b.Dy()
	}
	return img.SubImage(image.Rect(b.Min.X, b.Min.Y, b.Max.X, b.Min.Y+h)).(*image.Gray)
}

// CropLeft drops the first x columns of img.
func CropLeft(img *image.Gray, x int) *image.Gray {
	b := img.Bounds()
	if x <= 0 {
		return img
	}
	if x >= b.Dx() {
		x = b.Dx() - 1
	}
	return ToGray(imaging.Crop(img, image.Rect(b.Min.X+x, b.Min.Y, b.Max.X, b.Max.Y)))
}

// MergeAt keeps the rows of canvas above y and appends the whole of next below them.
// Rows of canvas at or below y are discarded even when next does not cover them.
func MergeAt(canvas, next *image.Gray, y int) (*image.Gray, error) {
	cb, nb := canvas.Bounds(), next.Bounds()
	if cb.Dx() != nb.Dx() {
		return nil, fmt.Errorf("%w: canvas %d, capture %d", ErrWidthMismatch, cb.Dx(), nb.Dx())
	}
	if y < 0 {
		y = 0
	}
	if y > cb.Dy() {
		y = cb.Dy()
	}

	merged := image.NewGray(image.Rect(0, 0, cb.Dx(), y+nb.Dy()))
	draw.Draw(merged, image.Rect(0, 0, cb.Dx(), y), canvas, cb.Min, draw.Src)
	draw.Draw(merged, image.Rect(0, y, cb.Dx(), y+nb.Dy()), next, nb.Min, draw.Src)

	return merged, nil
}

// EncodeJPEG encodes img for upload to an OCR backend.
func EncodeJPEG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.JPEG, imaging.JPEGQuality(95)); err != nil {
		return nil, fmt.Errorf("failed to encode jpeg: %w", err)
	}
	return buf.Bytes(), nil
}

// EncodePNG encodes img losslessly.
func EncodePNG(img image.Image) ([]byte, error) {
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		return nil, fmt.Errorf("failed to encode png: %w", err)
	}
	return buf.Bytes(), nil
}

// SavePNG writes img to path, creating parent directories.
func SavePNG(img image.Image, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return fmt.Errorf("failed to create image directory: %w", err)
	}
	data, err := EncodePNG(img)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// LoadGray decodes an image file into grayscale.
func LoadGray(path string) (*image.Gray, error) {
	img, err := imaging.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open image %s: %w", path, err)
	}
	return ToGray(img), nil
}
