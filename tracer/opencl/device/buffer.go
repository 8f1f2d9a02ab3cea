//go:build opencl

package device

import (
	"fmt"
	"reflect"
	"unsafe"

	"github.com/jgillich/go-opencl/cl"
)

// Memory flags accepted by Allocate.
const (
	ReadOnly  = cl.MemReadOnly
	WriteOnly = cl.MemWriteOnly
	ReadWrite = cl.MemReadWrite
)

type Buffer struct {
	// Handle to opencl buffer.
	bufHandle *cl.MemObject

	// Associated Device.
	device *Device

	// A name for identifying the buffer.
	name string

	// Allocated size.
	size int
}

// Get buffer size.
func (b *Buffer) Size() int {
	return b.size
}

// Allocate a buffer with the given size and flags. Devices reject empty
// allocations so the size is rounded up to at least 4 bytes.
func (b *Buffer) Allocate(size int, flags cl.MemFlag) error {
	var err error

	// If the buffer is alreay allocated release it
	b.Release()

	if size < 4 {
		size = 4
	}

	b.bufHandle, err = b.device.ctx.CreateEmptyBuffer(flags, size)
	if err != nil {
		return fmt.Errorf("opencl device (%s): could not allocate buffer %s of size %d: %w", b.device.Name, b.name, size, err)
	}

	b.size = size

	return nil
}

// Allocate a buffer with the given flags that is large enough to hold the
// given data and copy the data to the device. Empty slices allocate a
// placeholder buffer that is never written.
func (b *Buffer) AllocateAndWriteData(data interface{}, flags cl.MemFlag) error {
	_, dataLen := getSliceData(data)
	if err := b.Allocate(dataLen, flags); err != nil {
		return err
	}
	if dataLen == 0 {
		return nil
	}
	return b.WriteData(data, 0)
}

// Write data to the device buffer. The behavior of this method is undefined
// if a non-slice argument is passed or the argument does not use contiguous
// memory. A byte offset may also be specified to adjust the actual data copied.
func (b *Buffer) WriteData(data interface{}, offset int) error {
	dataPtr, dataLen := getSliceData(data)

	if dataLen > b.size {
		return fmt.Errorf("opencl device(%s): insufficient buffer space (%d) in %s for copying data of length %d", b.device.Name, b.size, b.name, dataLen)
	}

	_, err := b.device.cmdQueue.EnqueueWriteBuffer(
		b.bufHandle,
		true,
		offset,
		dataLen-offset,
		unsafe.Pointer(uintptr(dataPtr)+uintptr(offset)),
		nil,
	)
	if err != nil {
		return fmt.Errorf("opencl device(%s): error copying host data to device buffer %s: %w", b.device.Name, b.name, err)
	}

	return nil
}

// Read data from device buffer into the supplied host buffer. The behavior of
// this method is undefined if a non-slice argument is passed or if the argument
// does not use contiguous memory.
//
// If size is <= 0 then ReadData will read as much of the buffer as fits in
// the host buffer.
func (b *Buffer) ReadData(srcOffset, size int, hostBuffer interface{}) error {
	dataPtr, dataLen := getSliceData(hostBuffer)
	if size <= 0 {
		size = dataLen
	}
	if size > dataLen || srcOffset+size > b.size {
		return fmt.Errorf("opencl device(%s): cannot read %d bytes at offset %d from %s (%d bytes) into host buffer of %d bytes", b.device.Name, size, srcOffset, b.name, b.size, dataLen)
	}
	if size == 0 {
		return nil
	}

	_, err := b.device.cmdQueue.EnqueueReadBuffer(
		b.bufHandle,
		true,
		srcOffset,
		size,
		dataPtr,
		nil,
	)
	if err != nil {
		return fmt.Errorf("opencl device(%s): error copying device data from %s to host buffer: %w", b.device.Name, b.name, err)
	}

	return nil
}

// Release buffer.
func (b *Buffer) Release() {
	if b.bufHandle != nil {
		b.bufHandle.Release()
		b.bufHandle = nil
		b.size = 0
	}
}

// Get opencl buffer handle.
func (b *Buffer) Handle() *cl.MemObject {
	return b.bufHandle
}

// Given an interface{} containing a slice return a pointer to its data and
// its length in bytes. Empty slices yield a nil pointer.
func getSliceData(data interface{}) (unsafe.Pointer, int) {
	reflVal := reflect.ValueOf(data)

	if reflVal.Kind() != reflect.Slice {
		panic("getSliceData: this function only supports slices")
	}

	sliceElemCount := reflVal.Len()
	if sliceElemCount == 0 {
		return nil, 0
	}

	return unsafe.Pointer(reflVal.Index(0).Addr().Pointer()),
		sliceElemCount * int(reflect.TypeOf(data).Elem().Size())
}
