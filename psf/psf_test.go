package psf

import (
	"errors"
	"math"
	"testing"
)

const (
	testWavenumber = float32(2 * math.Pi / 550)
	testWidth      = float32(1.8666)
)

func TestBesselJ1(t *testing.T) {
	for x := float32(-20); x <= 20; x += 0.05 {
		exp := math.J1(float64(x))
		got := float64(BesselJ1(x))
		if math.Abs(exp-got) > 1e-4 {
			t.Fatalf("expected J1(%g) to be %g; got %g", x, exp, got)
		}
	}
}

func TestLookup(t *testing.T) {
	for _, name := range Names() {
		m, err := Lookup(name)
		if err != nil {
			t.Fatal(err)
		}
		if m.Name() != name {
			t.Fatalf("expected model %q; got %q", name, m.Name())
		}
	}

	if m, err := Lookup("AIRY"); err != nil || m.Name() != "airy" {
		t.Fatalf("expected case-insensitive lookup to succeed; got %v", err)
	}

	if _, err := Lookup("lorentzian"); !errors.Is(err, ErrUnknownModel) {
		t.Fatalf("expected ErrUnknownModel; got %v", err)
	}
}

// Integrate the radial profile over the plane: ∫ 2πr I(r) dr.
func radialIntegral(m Model, maxR, dr float64) float64 {
	var total float64
	for r := dr / 2; r < maxR; r += dr {
		total += 2 * math.Pi * r * float64(m.Intensity(float32(r), testWidth, testWavenumber)) * dr
	}
	return total
}

func TestModelNormalization(t *testing.T) {
	type spec struct {
		model Model
		maxR  float64
		tol   float64
	}
	specs := []spec{
		// The airy tail decays as 1/r so a finite radius misses ~2/(πv).
		{Airy{}, 20000, 0.01},
		{Gaussian{}, 2000, 0.001},
	}

	for index, s := range specs {
		total := radialIntegral(s.model, s.maxR, 0.25)
		if math.Abs(total-1) > s.tol {
			t.Fatalf("[spec %d] expected %s model to integrate to 1; got %g", index, s.model.Name(), total)
		}
	}
}

func TestModelShape(t *testing.T) {
	for _, m := range []Model{Airy{}, Gaussian{}} {
		peak := m.Intensity(0, testWidth, testWavenumber)
		if !(peak > 0) {
			t.Fatalf("expected %s peak to be positive; got %g", m.Name(), peak)
		}

		last := peak
		for r := float32(0); r < 3000; r += 1 {
			v := m.Intensity(r, testWidth, testWavenumber)
			if v < 0 || v > peak {
				t.Fatalf("expected %s value at r=%g to be within [0, peak]; got %g", m.Name(), r, v)
			}
			// Both models decrease monotonically up to the first airy zero (~180nm).
			if r < 170 && v > last {
				t.Fatalf("expected %s to decrease near the center; r=%g went from %g to %g", m.Name(), r, last, v)
			}
			last = v
		}
	}
}

func TestAiryPeak(t *testing.T) {
	kw := testWavenumber * testWidth
	exp := kw * kw / fourPi
	if got := (Airy{}).Intensity(0, testWidth, testWavenumber); got != exp {
		t.Fatalf("expected airy peak %g; got %g", exp, got)
	}
}
