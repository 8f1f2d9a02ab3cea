//go:build opencl

package device

import (
	"fmt"
	"reflect"
	"time"

	"github.com/jgillich/go-opencl/cl"
)

// A wrapper around opencl kernelHandles.
type Kernel struct {
	device       *Device
	kernelHandle *cl.Kernel
	name         string
}

// Free any allocated resources used by this kernel.
func (k *Kernel) Release() {
	if k.kernelHandle != nil {
		k.kernelHandle.Release()
		k.kernelHandle = nil
	}
}

// Bind arguments to kernelHandle.
func (k *Kernel) SetArgs(args ...interface{}) error {
	var err error
	for argIndex, arg := range args {
		switch v := arg.(type) {
		case *Buffer:
			err = k.kernelHandle.SetArg(argIndex, v.Handle())
		case int32, uint32, float32:
			err = k.kernelHandle.SetArg(argIndex, v)
		default:
			return fmt.Errorf(
				"opencl device (%s): could not set arg %d for kernelHandle %s; unsupported arg type: %s",
				k.device.Name,
				argIndex,
				k.name,
				reflect.TypeOf(arg).Name(),
			)
		}

		if err != nil {
			return fmt.Errorf(
				"opencl device (%s): could not set arg %d for kernelHandle %s: %w",
				k.device.Name,
				argIndex,
				k.name,
				err,
			)
		}
	}

	return nil
}

// Execute 3D kernelHandle over the given global extent, letting the opencl
// implementation pick the local worksize split.
func (k *Kernel) Exec3D(globalWorkSizeX, globalWorkSizeY, globalWorkSizeZ int) (time.Duration, error) {
	global := []int{globalWorkSizeX, globalWorkSizeY, globalWorkSizeZ}
	for _, size := range global {
		if size == 0 {
			return 0, nil
		}
	}

	// Run kernelHandle
	tick := time.Now()
	ev, err := k.device.cmdQueue.EnqueueNDRangeKernel(k.kernelHandle, nil, global, nil, nil)
	if err != nil {
		return time.Duration(0), fmt.Errorf("opencl device (%s): unable to execute kernel %s: %w", k.device.Name, k.name, err)
	}
	if ev != nil {
		defer ev.Release()
	}

	// Wait for the kernelHandle to complete
	if err = k.device.cmdQueue.Finish(); err != nil {
		return time.Duration(0), fmt.Errorf("opencl device (%s): kernel %s did not complete successfully: %w", k.device.Name, k.name, err)
	}

	return time.Since(tick), nil
}
