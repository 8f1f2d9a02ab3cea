// Package device wraps opencl platforms, devices, buffers and kernels. The
// wrappers are only compiled when building with the opencl tag.
package device
