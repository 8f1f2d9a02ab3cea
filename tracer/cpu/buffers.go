package cpu

import (
	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/scenario"
)

// Host-resident copies of the kernel inputs plus the output region. Worker
// goroutines only read the input slices and each writes a disjoint set of
// output cells.
type bufferSet struct {
	Offset []int32
	Count  []int32

	X         []float32
	Y         []float32
	Intensity []float32
	Width     []float32

	Output *frame.Buffer
}

func cloneInt32(src []int32) []int32 {
	dst := make([]int32, len(src))
	copy(dst, src)
	return dst
}

func cloneFloat32(src []float32) []float32 {
	dst := make([]float32, len(src))
	copy(dst, src)
	return dst
}

// Stage the flattened scenario arrays.
func (bs *bufferSet) Upload(layout *scenario.Layout) {
	bs.Offset = cloneInt32(layout.Offset)
	bs.Count = cloneInt32(layout.Count)
	bs.X = cloneFloat32(layout.X)
	bs.Y = cloneFloat32(layout.Y)
	bs.Intensity = cloneFloat32(layout.Intensity)
	bs.Width = cloneFloat32(layout.Width)
}

// Declare the output region for a frame of the given dims.
func (bs *bufferSet) Resize(frameW, frameH, scenarios int) {
	bs.Output = frame.New(frameW, frameH, scenarios)
}

// Release all buffers. The output buffer is handed over to the caller
// before release so only the references are dropped.
func (bs *bufferSet) Release() {
	*bs = bufferSet{}
}
