//go:build opencl

package opencl

import (
	"reflect"

	"github.com/psfgen/psfgen/scenario"
	"github.com/psfgen/psfgen/tracer/opencl/device"
)

type bufferSet struct {
	// Output expectation buffer.
	Output *device.Buffer

	// Per-scenario emitter ranges.
	Offset *device.Buffer
	Count  *device.Buffer

	// Emitter attributes.
	X         *device.Buffer
	Y         *device.Buffer
	Intensity *device.Buffer
	Width     *device.Buffer
}

// Allocate new buffer set.
func newBufferSet(dev *device.Device) *bufferSet {
	return &bufferSet{
		Output:    dev.Buffer("out"),
		Offset:    dev.Buffer("offset"),
		Count:     dev.Buffer("count"),
		X:         dev.Buffer("X"),
		Y:         dev.Buffer("Y"),
		Intensity: dev.Buffer("N"),
		Width:     dev.Buffer("W"),
	}
}

// Release all buffers.
func (bs *bufferSet) Release() {
	reflVal := reflect.ValueOf(*bs)
	for fieldIndex := 0; fieldIndex < reflVal.NumField(); fieldIndex++ {
		if buf, ok := reflVal.Field(fieldIndex).Interface().(*device.Buffer); ok && buf != nil {
			buf.Release()
		}
	}
}

// Resize the output buffer to hold the given number of frames.
func (bs *bufferSet) Resize(frameW, frameH, scenarios int) error {
	return bs.Output.Allocate(4*frameW*frameH*scenarios, device.WriteOnly)
}

// Upload the flattened scenario arrays to the device buffers.
func (bs *bufferSet) Upload(layout *scenario.Layout) error {
	var err error

	targets := []struct {
		buf  *device.Buffer
		data interface{}
	}{
		{bs.Offset, layout.Offset},
		{bs.Count, layout.Count},
		{bs.X, layout.X},
		{bs.Y, layout.Y},
		{bs.Intensity, layout.Intensity},
		{bs.Width, layout.Width},
	}

	for _, target := range targets {
		err = target.buf.AllocateAndWriteData(target.data, device.ReadOnly)
		if err != nil {
			return err
		}
	}

	return nil
}
