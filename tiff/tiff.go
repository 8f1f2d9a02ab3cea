// Package tiff writes stacks of 16-bit grayscale pages as a single
// uncompressed multi-page TIFF file.
package tiff

import (
	"bufio"
	"encoding/binary"
	"errors"
	"fmt"
	"image"
	"io"
	"math"
	"os"
	"path/filepath"
)

var (
	ErrNoPages      = errors.New("tiff: stack contains no pages")
	ErrPageMismatch = errors.New("tiff: all pages must share the same dimensions")
	ErrTooLarge     = errors.New("tiff: stack exceeds the 4GiB baseline tiff limit")
	ErrExists       = errors.New("tiff: output file already exists")
)

// Baseline tag ids.
const (
	tagImageWidth      uint16 = 256
	tagImageLength     uint16 = 257
	tagBitsPerSample   uint16 = 258
	tagCompression     uint16 = 259
	tagPhotometric     uint16 = 262
	tagStripOffsets    uint16 = 273
	tagSamplesPerPixel uint16 = 277
	tagRowsPerStrip    uint16 = 278
	tagStripByteCounts uint16 = 279
	tagPlanarConfig    uint16 = 284
)

const (
	typeShort uint16 = 3
	typeLong  uint16 = 4

	headerSize   = 8
	ifdEntrySize = 12
	numIfdTags   = 10

	// Entry count, entries and the next-ifd offset.
	ifdSize = 2 + numIfdTags*ifdEntrySize + 4
)

type ifdEntry struct {
	tag   uint16
	typ   uint16
	value uint32
}

// Encode pages in little-endian byte order. Each page is followed by its
// IFD; every page is stored as a single uncompressed strip.
func Encode(w io.Writer, pages []*image.Gray16) error {
	if len(pages) == 0 {
		return ErrNoPages
	}

	bounds := pages[0].Rect
	width, height := bounds.Dx(), bounds.Dy()
	for index, page := range pages {
		if page.Rect.Dx() != width || page.Rect.Dy() != height {
			return fmt.Errorf("%w: page %d is %dx%d; expected %dx%d", ErrPageMismatch, index, page.Rect.Dx(), page.Rect.Dy(), width, height)
		}
	}

	stripSize := int64(width) * int64(height) * 2
	pageSize := stripSize + ifdSize
	if headerSize+pageSize*int64(len(pages)) > math.MaxUint32 {
		return ErrTooLarge
	}

	bw := bufio.NewWriter(w)
	order := binary.LittleEndian

	// Header: byte order mark, magic and the first ifd offset.
	header := make([]byte, headerSize)
	copy(header, "II")
	order.PutUint16(header[2:], 42)
	order.PutUint32(header[4:], uint32(headerSize+stripSize))
	if _, err := bw.Write(header); err != nil {
		return err
	}

	row := make([]byte, width*2)
	ifd := make([]byte, ifdSize)
	for index, page := range pages {
		stripOffset := headerSize + int64(index)*pageSize

		for y := 0; y < height; y++ {
			src := page.Pix[page.PixOffset(bounds.Min.X, bounds.Min.Y+y):]
			for x := 0; x < width; x++ {
				// Gray16 stores samples big-endian.
				row[2*x] = src[2*x+1]
				row[2*x+1] = src[2*x]
			}
			if _, err := bw.Write(row); err != nil {
				return err
			}
		}

		var next uint32
		if index < len(pages)-1 {
			next = uint32(stripOffset + pageSize + stripSize)
		}

		entries := [numIfdTags]ifdEntry{
			{tagImageWidth, typeLong, uint32(width)},
			{tagImageLength, typeLong, uint32(height)},
			{tagBitsPerSample, typeShort, 16},
			{tagCompression, typeShort, 1},
			{tagPhotometric, typeShort, 1}, // BlackIsZero
			{tagStripOffsets, typeLong, uint32(stripOffset)},
			{tagSamplesPerPixel, typeShort, 1},
			{tagRowsPerStrip, typeLong, uint32(height)},
			{tagStripByteCounts, typeLong, uint32(stripSize)},
			{tagPlanarConfig, typeShort, 1},
		}

		order.PutUint16(ifd, numIfdTags)
		for i, e := range entries {
			at := ifd[2+i*ifdEntrySize:]
			order.PutUint16(at, e.tag)
			order.PutUint16(at[2:], e.typ)
			order.PutUint32(at[4:], 1)
			if e.typ == typeShort {
				order.PutUint16(at[8:], uint16(e.value))
				order.PutUint16(at[10:], 0)
			} else {
				order.PutUint32(at[8:], e.value)
			}
		}
		order.PutUint32(ifd[ifdSize-4:], next)
		if _, err := bw.Write(ifd); err != nil {
			return err
		}
	}

	return bw.Flush()
}

// Encode pages into a file. The stack is written to a temporary file next
// to path which is renamed into place once complete, so a failed write never
// leaves a truncated stack behind. If overwrite is false and path exists,
// WriteFile fails with ErrExists.
func WriteFile(path string, pages []*image.Gray16, overwrite bool) error {
	if !overwrite {
		if _, err := os.Stat(path); err == nil {
			return fmt.Errorf("%w: %s", ErrExists, path)
		} else if !errors.Is(err, os.ErrNotExist) {
			return err
		}
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()

	err = Encode(tmp, pages)
	if closeErr := tmp.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		os.Remove(tmpName)
		return err
	}

	if err = os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return err
	}
	return nil
}
