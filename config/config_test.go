package config

import (
	"errors"
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/psfgen/psfgen/scenario"
)

func validHeader() scenario.Header {
	return scenario.Header{Width: 24, Height: 24, Usable: 99, Gap: 11, Noise: 4, Wavelength: 550}
}

func TestSubsampleEdge(t *testing.T) {
	type spec struct {
		requested int
		expEdge   int
	}
	specs := []spec{
		{0, 0},
		{1, 1},
		{3, 1},
		{4, 2},
		{99, 9},
		{100, 10},
		{101, 10},
		{10000, 100},
	}

	for index, s := range specs {
		if got := SubsampleEdge(s.requested); got != s.expEdge {
			t.Fatalf("[spec %d] expected edge for %d subsamples to be %d; got %d", index, s.requested, s.expEdge, got)
		}
	}
}

func TestNew(t *testing.T) {
	cfg, err := New(validHeader(), 50)
	if err != nil {
		t.Fatal(err)
	}

	if cfg.SubsampleEdge != 7 || cfg.EffectiveSubsamples() != 49 {
		t.Fatalf("expected 7x7 subsample grid; got edge %d", cfg.SubsampleEdge)
	}

	wavelength := 550.0
	expK := float32(2.0 * math.Pi / wavelength)
	if cfg.Wavenumber != expK {
		t.Fatalf("expected wavenumber %g; got %g", expK, cfg.Wavenumber)
	}

	if cfg.PixelPitch() != 110 {
		t.Fatalf("expected pixel pitch 110; got %g", cfg.PixelPitch())
	}
}

func TestNewRejectsOversizedDims(t *testing.T) {
	wide := int64(MaxDim) + 1
	if wide > math.MaxInt {
		t.Skip("int cannot represent dims above MaxDim")
	}

	specs := []func(h *scenario.Header){
		func(h *scenario.Header) { h.Width = int(wide) },
		func(h *scenario.Header) { h.Height = int(wide) },
		func(h *scenario.Header) { h.Width, h.Height = int(wide)*2, int(wide)*2 },
	}
	for index, mutate := range specs {
		h := validHeader()
		mutate(&h)
		if _, err := New(h, 1); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("[spec %d] expected ErrInvalidConfiguration; got %v", index, err)
		}
	}

	h := validHeader()
	h.Width, h.Height = MaxDim, 1
	if _, err := New(h, 1); err != nil {
		t.Fatalf("expected width %d to be accepted; got %v", MaxDim, err)
	}
}

func TestNewRejectsInvalidConfiguration(t *testing.T) {
	type spec struct {
		mutate     func(h *scenario.Header)
		subsamples int
	}
	specs := []spec{
		{func(h *scenario.Header) {}, 0},
		{func(h *scenario.Header) {}, -4},
		{func(h *scenario.Header) { h.Width = 0 }, 100},
		{func(h *scenario.Header) { h.Height = -1 }, 100},
		{func(h *scenario.Header) { h.Noise = -0.5 }, 100},
		{func(h *scenario.Header) { h.Wavelength = 0 }, 100},
		{func(h *scenario.Header) { h.Usable = 0 }, 100},
		{func(h *scenario.Header) { h.Gap = -1 }, 100},
		{func(h *scenario.Header) { h.Noise = math.NaN() }, 100},
	}

	for index, s := range specs {
		h := validHeader()
		s.mutate(&h)
		_, err := New(h, s.subsamples)
		if !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("[spec %d] expected ErrInvalidConfiguration; got %v", index, err)
		}
	}
}

func TestLoadOptions(t *testing.T) {
	dir := t.TempDir()

	opts, err := LoadOptions(filepath.Join(dir, "missing.yaml"))
	if err != nil {
		t.Fatal(err)
	}
	if *opts != *DefaultOptions() {
		t.Fatalf("expected defaults for a missing profile; got %+v", opts)
	}

	profile := filepath.Join(dir, "profile.yaml")
	data := []byte("device: CPU\nworkers: 3\npsf: gaussian\nseed: 42\nrequireEmitters: false\n")
	if err = os.WriteFile(profile, data, 0644); err != nil {
		t.Fatal(err)
	}

	opts, err = LoadOptions(profile)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Device != DeviceCPU || opts.Workers != 3 || opts.PSF != "gaussian" || opts.Seed != 42 || opts.RequireEmitters {
		t.Fatalf("unexpected options loaded from profile: %+v", opts)
	}
	if opts.Subsamples != 100 {
		t.Fatalf("expected unspecified subsamples to keep default 100; got %d", opts.Subsamples)
	}
}

func TestLoadOptionsRejectsBadValues(t *testing.T) {
	specs := []string{
		"device: tpu\n",
		"psf: lorentzian\n",
		"workers: 0\n",
		"subsamples: -4\n",
		"maxMemory: -1\n",
	}

	for index, profileData := range specs {
		profile := filepath.Join(t.TempDir(), "profile.yaml")
		if err := os.WriteFile(profile, []byte(profileData), 0644); err != nil {
			t.Fatal(err)
		}

		if _, err := LoadOptions(profile); !errors.Is(err, ErrInvalidConfiguration) {
			t.Fatalf("[spec %d] expected ErrInvalidConfiguration; got %v", index, err)
		}
	}
}

func TestSaveOptions(t *testing.T) {
	path := filepath.Join(t.TempDir(), "profile.yaml")
	opts := DefaultOptions()
	opts.Seed = 7
	opts.Device = DeviceOpenCL

	if err := SaveOptions(opts, path); err != nil {
		t.Fatal(err)
	}

	loaded, err := LoadOptions(path)
	if err != nil {
		t.Fatal(err)
	}
	if *loaded != *opts {
		t.Fatalf("expected %+v; got %+v", opts, loaded)
	}
}
