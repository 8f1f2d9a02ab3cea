package tiff

import (
	"bytes"
	"encoding/binary"
	"errors"
	"image"
	"image/color"
	"os"
	"path/filepath"
	"testing"

	xtiff "golang.org/x/image/tiff"
)

func makePages(w, h, n int) []*image.Gray16 {
	pages := make([]*image.Gray16, n)
	for i := range pages {
		pages[i] = image.NewGray16(image.Rect(0, 0, w, h))
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				pages[i].SetGray16(x, y, color.Gray16{Y: uint16(1000*i + 37*y + x)})
			}
		}
	}
	return pages
}

// Walk the ifd chain and return the strip offset of every page.
func stripOffsets(t *testing.T, data []byte) []uint32 {
	order := binary.LittleEndian
	if string(data[:2]) != "II" || order.Uint16(data[2:]) != 42 {
		t.Fatalf("expected little-endian tiff header; got % x", data[:4])
	}

	var offsets []uint32
	for ifd := order.Uint32(data[4:]); ifd != 0; {
		count := int(order.Uint16(data[ifd:]))
		for i := 0; i < count; i++ {
			entry := data[int(ifd)+2+i*12:]
			if order.Uint16(entry) == tagStripOffsets {
				offsets = append(offsets, order.Uint32(entry[8:]))
			}
		}
		ifd = order.Uint32(data[int(ifd)+2+count*12:])
	}
	return offsets
}

func TestEncodeFirstPageDecodes(t *testing.T) {
	pages := makePages(7, 5, 3)

	var buf bytes.Buffer
	if err := Encode(&buf, pages); err != nil {
		t.Fatal(err)
	}

	img, err := xtiff.Decode(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatal(err)
	}
	gray, ok := img.(*image.Gray16)
	if !ok {
		t.Fatalf("expected decoded page to be *image.Gray16; got %T", img)
	}
	if gray.Rect.Dx() != 7 || gray.Rect.Dy() != 5 {
		t.Fatalf("expected 7x5 page; got %v", gray.Rect)
	}
	for y := 0; y < 5; y++ {
		for x := 0; x < 7; x++ {
			if exp, got := pages[0].Gray16At(x, y), gray.Gray16At(x, y); exp != got {
				t.Fatalf("expected pixel (%d, %d) to be %d; got %d", x, y, exp.Y, got.Y)
			}
		}
	}
}

func TestEncodeAllPages(t *testing.T) {
	w, h, n := 4, 3, 5
	pages := makePages(w, h, n)

	var buf bytes.Buffer
	if err := Encode(&buf, pages); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()

	offsets := stripOffsets(t, data)
	if len(offsets) != n {
		t.Fatalf("expected %d pages in ifd chain; got %d", n, len(offsets))
	}

	for i, off := range offsets {
		for y := 0; y < h; y++ {
			for x := 0; x < w; x++ {
				got := binary.LittleEndian.Uint16(data[int(off)+2*(x+w*y):])
				if exp := pages[i].Gray16At(x, y).Y; got != exp {
					t.Fatalf("expected page %d pixel (%d, %d) to be %d; got %d", i, x, y, exp, got)
				}
			}
		}
	}
}

func TestEncodeErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := Encode(&buf, nil); !errors.Is(err, ErrNoPages) {
		t.Fatalf("expected ErrNoPages; got %v", err)
	}

	pages := append(makePages(4, 4, 1), makePages(4, 3, 1)...)
	if err := Encode(&buf, pages); !errors.Is(err, ErrPageMismatch) {
		t.Fatalf("expected ErrPageMismatch; got %v", err)
	}
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "stack.tiff")
	pages := makePages(3, 3, 2)

	if err := WriteFile(path, pages, false); err != nil {
		t.Fatal(err)
	}

	if err := WriteFile(path, pages, false); !errors.Is(err, ErrExists) {
		t.Fatalf("expected ErrExists when overwrite is disabled; got %v", err)
	}

	if err := WriteFile(path, makePages(2, 2, 1), true); err != nil {
		t.Fatalf("expected overwrite to succeed; got %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	cfg, err := xtiff.DecodeConfig(f)
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Width != 2 || cfg.Height != 2 {
		t.Fatalf("expected overwritten stack to be 2x2; got %dx%d", cfg.Width, cfg.Height)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected no temporary files to be left behind; got %d entries", len(entries))
	}
}
