// Package frame provides the flat per-pixel float buffer shared by the
// render, noise and assembly stages.
package frame

// A dense [scenario][row][col] float32 buffer stored with the column index
// varying fastest. The flat index of (scenario, row, col) is
// col + Width*row + Width*Height*scenario.
type Buffer struct {
	Width     int
	Height    int
	Scenarios int
	Pix       []float32
}

// Allocate a zeroed buffer.
func New(width, height, scenarios int) *Buffer {
	return &Buffer{
		Width:     width,
		Height:    height,
		Scenarios: scenarios,
		Pix:       make([]float32, width*height*scenarios),
	}
}

// Get the flat index for a pixel.
func (b *Buffer) Index(scenario, row, col int) int {
	return col + b.Width*row + b.Width*b.Height*scenario
}

// Get the value of a pixel.
func (b *Buffer) At(scenario, row, col int) float32 {
	return b.Pix[b.Index(scenario, row, col)]
}

// Get the pixels of a single scenario image.
func (b *Buffer) Image(scenario int) []float32 {
	size := b.Width * b.Height
	return b.Pix[scenario*size : (scenario+1)*size]
}

// Size of the buffer in bytes.
func (b *Buffer) ByteSize() int {
	return 4 * len(b.Pix)
}
