// Package stack converts the flat photon count buffer into a stack of 16-bit
// grayscale pages, one per scenario.
package stack

import (
	"errors"
	"fmt"
	"image"
	"math"

	"github.com/psfgen/psfgen/frame"
)

var (
	ErrEmptyBuffer = errors.New("stack: buffer contains no pixels")
)

// The largest value a page pixel can hold.
const MaxValue = math.MaxUint16

// An assembled image stack.
type Stack struct {
	Pages []*image.Gray16

	// Number of pixels whose counts exceeded MaxValue and were saturated.
	Clamped int

	// Number of pixels with negative counts; these are written as zero.
	Negative int
}

// Convert a photon count to a page value. Counts are truncated toward zero
// and limited to [0, MaxValue]; the flag reports whether the count exceeded
// MaxValue. Negative counts and NaN map to zero without setting the flag.
func Quantize(v float32) (uint16, bool) {
	switch {
	case !(v >= 0):
		return 0, false
	case v >= MaxValue:
		return MaxValue, v >= MaxValue+1
	}
	return uint16(v), false
}

// Assemble the buffer into pages. Page i, row k, column j holds
// buf.At(i, k, j), i.e. buf.Pix[j + Width*k + Width*Height*i].
func Assemble(buf *frame.Buffer) (*Stack, error) {
	if buf == nil || len(buf.Pix) == 0 {
		return nil, ErrEmptyBuffer
	}
	if len(buf.Pix) != buf.Width*buf.Height*buf.Scenarios {
		return nil, fmt.Errorf("stack: buffer length %d does not match dims %dx%dx%d", len(buf.Pix), buf.Scenarios, buf.Height, buf.Width)
	}

	st := &Stack{Pages: make([]*image.Gray16, buf.Scenarios)}
	for i := 0; i < buf.Scenarios; i++ {
		page := image.NewGray16(image.Rect(0, 0, buf.Width, buf.Height))
		for k := 0; k < buf.Height; k++ {
			for j := 0; j < buf.Width; j++ {
				count := buf.At(i, k, j)
				v, clamped := Quantize(count)
				if clamped {
					st.Clamped++
				} else if count < 0 {
					st.Negative++
				}
				// Gray16 pixels are stored big-endian.
				at := page.PixOffset(j, k)
				page.Pix[at] = uint8(v >> 8)
				page.Pix[at+1] = uint8(v)
			}
		}
		st.Pages[i] = page
	}

	return st, nil
}

// Width of every page.
func (st *Stack) Width() int {
	if len(st.Pages) == 0 {
		return 0
	}
	return st.Pages[0].Rect.Dx()
}

// Height of every page.
func (st *Stack) Height() int {
	if len(st.Pages) == 0 {
		return 0
	}
	return st.Pages[0].Rect.Dy()
}
