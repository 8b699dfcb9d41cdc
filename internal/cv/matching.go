package cv

import (
	"errors"
	"fmt"
	"image"
	"math"
)

// MatchResult contains template matching results
type MatchResult struct {
	Found      bool
	Location   image.Point // offset of the best match, relative to the haystack origin
	Confidence float64     // 0.0-1.0
}

// MatchConfig configures template matching
type MatchConfig struct {
	Threshold float64 // 0.0-1.0, higher = more strict
}

// DefaultThreshold is the similarity required before two frames are treated as overlapping.
const DefaultThreshold = 0.8

// DefaultMatchConfig returns recommended settings
func DefaultMatchConfig() *MatchConfig {
	return &MatchConfig{
		Threshold: DefaultThreshold,
	}
}

// Matcher compares a needle against a haystack and reports the best location.
// An error means no reliable overlap could be measured.
type Matcher interface {
	Match(haystack, needle *image.Gray) (MatchResult, error)
}

// NCCMatcher is the production Matcher backed by FindTemplate.
type NCCMatcher struct {
	Config *MatchConfig
}

// Match implements Matcher
func (m NCCMatcher) Match(haystack, needle *image.Gray) (MatchResult, error) {
	result, err := FindTemplate(haystack, needle, m.Config)
	if err != nil {
		return MatchResult{}, err
	}
	return *result, nil
}

// FindTemplate slides needle over haystack and returns the position with the highest
// zero-mean normalized cross-correlation. Negative correlation is reported as 0.
// Ties resolve to the first position in row-major order.
//
// A needle of a single shade correlates equally with every flat band of that shade,
// so it is rejected with ErrFlatTemplate instead of reporting an arbitrary offset.
func FindTemplate(haystack, needle *image.Gray, config *MatchConfig) (*MatchResult, error) {
	if config == nil {
		config = DefaultMatchConfig()
	}

	hw, hh := haystack.Bounds().Dx(), haystack.Bounds().Dy()
	nw, nh := needle.Bounds().Dx(), needle.Bounds().Dy()

	if nw == 0 || nh == 0 || hw == 0 || hh == 0 {
		return nil, fmt.Errorf("%w: haystack %dx%d, needle %dx%d", ErrInvalidImage, hw, hh, nw, nh)
	}
	if nw > hw || nh > hh {
		return nil, fmt.Errorf("%w: haystack %dx%d, needle %dx%d", ErrTemplateTooLarge, hw, hh, nw, nh)
	}

	maxY := hh - nh
	maxX := hw - nw

	hpix := rows(haystack)
	npix := rows(needle)

	// Zero-mean needle; with sum(n') == 0 the cross term reduces to sum(h*n').
	count := float64(nw * nh)
	var sumN float64
	for _, row := range npix {
		for _, v := range row {
			sumN += float64(v)
		}
	}
	meanN := sumN / count
	dev := make([]float64, nw*nh)
	var varN float64
	for y, row := range npix {
		for x, v := range row {
			d := float64(v) - meanN
			dev[y*nw+x] = d
			varN += d * d
		}
	}

	if varN == 0 {
		return nil, fmt.Errorf("%w: shade %.0f", ErrFlatTemplate, meanN)
	}

	integral := newIntegral(hpix, hw, hh)

	bestScore := -1.0
	bestLocation := image.Point{}

	for y := 0; y <= maxY; y++ {
		for x := 0; x <= maxX; x++ {
			sumH, sumHH := integral.window(x, y, nw, nh)
			varH := sumHH - sumH*sumH/count

			var score float64
			if varH > 1e-9 {
				var cross float64
				for ny := 0; ny < nh; ny++ {
					hrow := hpix[y+ny][x : x+nw]
					drow := dev[ny*nw : (ny+1)*nw]
					for nx, h := range hrow {
						cross += float64(h) * drow[nx]
					}
				}
				score = cross / math.Sqrt(varN*varH)
			}

			if score > bestScore {
				bestScore = score
				bestLocation = image.Point{X: x, Y: y}
			}
		}
	}

	if bestScore < 0 {
		bestScore = 0
	}
	if bestScore > 1 {
		bestScore = 1
	}

	return &MatchResult{
		Found:      bestScore >= config.Threshold,
		Location:   bestLocation,
		Confidence: bestScore,
	}, nil
}

// rows returns per-row pixel slices addressed from (0,0) regardless of the image origin.
func rows(img *image.Gray) [][]uint8 {
	b := img.Bounds()
	out := make([][]uint8, b.Dy())
	for y := 0; y < b.Dy(); y++ {
		start := img.PixOffset(b.Min.X, b.Min.Y+y)
		out[y] = img.Pix[start : start+b.Dx()]
	}
	return out
}

// integral holds summed-area tables of pixel values and squared pixel values.
type integral struct {
	w     int
	sum   []float64
	sumSq []float64
}

func newIntegral(pix [][]uint8, w, h int) *integral {
	stride := w + 1
	it := &integral{
		w:     w,
		sum:   make([]float64, stride*(h+1)),
		sumSq: make([]float64, stride*(h+1)),
	}
	for y := 0; y < h; y++ {
		var rowSum, rowSq float64
		for x := 0; x < w; x++ {
			v := float64(pix[y][x])
			rowSum += v
			rowSq += v * v
			idx := (y+1)*stride + x + 1
			it.sum[idx] = it.sum[idx-stride] + rowSum
			it.sumSq[idx] = it.sumSq[idx-stride] + rowSq
		}
	}
	return it
}

func (it *integral) window(x, y, w, h int) (float64, float64) {
	stride := it.w + 1
	a := y*stride + x
	b := y*stride + x + w
	c := (y+h)*stride + x
	d := (y+h)*stride + x + w
	return it.sum[d] - it.sum[b] - it.sum[c] + it.sum[a],
		it.sumSq[d] - it.sumSq[b] - it.sumSq[c] + it.sumSq[a]
}

// Error types
var (
	ErrTemplateTooLarge = errors.New("template larger than search image")
	ErrInvalidImage     = errors.New("invalid image provided")
	ErrFlatTemplate     = errors.New("template has no contrast")
	ErrWidthMismatch    = errors.New("images have different widths")
)
