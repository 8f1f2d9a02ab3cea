//go:build opencl

package opencl

import "fmt"

type kernelType uint8

// Kernels defined by the embedded CL program.
const (
	pixelPSF kernelType = iota
	//
	numKernels
)

// Map a kernel type to its entry point name in CL/pixel_psf.cl.
func (kt kernelType) String() string {
	if kt == pixelPSF {
		return "pixelPSF"
	}
	panic(fmt.Sprintf("opencl: unknown kernel type %d", kt))
}

// Number of arguments in the kernel signature.
func (kt kernelType) argCount() int {
	if kt == pixelPSF {
		return 13
	}
	panic(fmt.Sprintf("opencl: unknown kernel type %d", kt))
}
