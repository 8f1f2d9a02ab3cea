package cpu

import (
	"math"

	"github.com/psfgen/psfgen/psf"
)

// The pixelPSF kernel arguments, in the same order as the opencl program.
type kernelArgs struct {
	wavenumber float32
	usable     float32
	gap        float32
	width      int
	height     int
	ssedge     int

	offset    []int32
	count     []int32
	x         []float32
	y         []float32
	intensity []float32
	psfWidth  []float32

	out []float32

	model psf.Model
}

// Integrate the expected photon count of pixel (col, row) of a scenario.
//
// The usable area of the pixel is split into an ssedge x ssedge grid; the
// emitter contributions are summed at every grid point and the mean density
// is scaled by the usable area. Accumulation order (grid rows, grid columns,
// emitters) matches the opencl program.
func pixelPSF(a *kernelArgs, scenario, col, row int) {
	pitch := a.usable + a.gap
	originX := float32(col) * pitch
	originY := float32(row) * pitch
	step := a.usable / float32(a.ssedge)

	first := int(a.offset[scenario])
	last := first + int(a.count[scenario])

	var acc float32
	for sy := 0; sy < a.ssedge; sy++ {
		py := originY + (float32(sy)+0.5)*step
		for sx := 0; sx < a.ssedge; sx++ {
			px := originX + (float32(sx)+0.5)*step

			var sum float32
			for e := first; e < last; e++ {
				dx := px - a.x[e]
				dy := py - a.y[e]
				d := float32(math.Sqrt(float64(dx*dx + dy*dy)))
				sum += a.intensity[e] * a.model.Intensity(d, a.psfWidth[e], a.wavenumber)
			}
			acc += sum
		}
	}

	a.out[col+a.width*row+a.width*a.height*scenario] = acc / float32(a.ssedge*a.ssedge) * (a.usable * a.usable)
}
