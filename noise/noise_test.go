package noise

import (
	"errors"
	"math"
	"testing"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/frame"
)

func uniformBuffer(w, h, s int, v float32) *frame.Buffer {
	buf := frame.New(w, h, s)
	for index := range buf.Pix {
		buf.Pix[index] = v
	}
	return buf
}

func TestAddBackground(t *testing.T) {
	buf := uniformBuffer(3, 2, 2, 1.5)
	syn, err := New(4, 1)
	if err != nil {
		t.Fatal(err)
	}

	if err = syn.AddBackground(buf); err != nil {
		t.Fatal(err)
	}
	for index, v := range buf.Pix {
		if v != 5.5 {
			t.Fatalf("expected pixel %d to be 5.5 after adding background; got %g", index, v)
		}
	}
}

func TestSampleIsIntegralAndSeeded(t *testing.T) {
	rates := uniformBuffer(8, 8, 4, 20)

	a, err := New(0, 42)
	if err != nil {
		t.Fatal(err)
	}
	b, _ := New(0, 42)
	c, _ := New(0, 43)

	outA, err := a.Sample(rates)
	if err != nil {
		t.Fatal(err)
	}
	outB, _ := b.Sample(rates)
	outC, _ := c.Sample(rates)

	differs := false
	for index, v := range outA.Pix {
		if v < 0 || v != float32(math.Trunc(float64(v))) {
			t.Fatalf("expected non-negative integral sample at %d; got %g", index, v)
		}
		if v != outB.Pix[index] {
			t.Fatalf("expected identical seeds to produce identical draws at %d; got %g and %g", index, v, outB.Pix[index])
		}
		if v != outC.Pix[index] {
			differs = true
		}
	}
	if !differs {
		t.Fatal("expected different seeds to produce different draws")
	}

	for index, v := range rates.Pix {
		if v != 20 {
			t.Fatalf("expected rates to be left untouched; pixel %d is %g", index, v)
		}
	}
}

func TestSampleZeroRate(t *testing.T) {
	syn, _ := New(0, 7)
	out, err := syn.Sample(frame.New(4, 4, 3))
	if err != nil {
		t.Fatal(err)
	}
	for index, v := range out.Pix {
		if v != 0 {
			t.Fatalf("expected zero rate to yield zero photons at %d; got %g", index, v)
		}
	}
}

func TestSampleMeanTracksRate(t *testing.T) {
	type spec struct {
		rate float32
	}

	specs := []spec{{0.5}, {4}, {150}}
	for specIndex, s := range specs {
		syn, _ := New(0, uint64(100+specIndex))
		out, err := syn.Sample(uniformBuffer(100, 100, 1, s.rate))
		if err != nil {
			t.Fatal(err)
		}

		var sum float64
		for _, v := range out.Pix {
			sum += float64(v)
		}
		mean := sum / float64(len(out.Pix))

		// Standard error of the mean over 10k draws is sqrt(rate)/100.
		tol := 5 * math.Sqrt(float64(s.rate)) / 100
		if math.Abs(mean-float64(s.rate)) > tol {
			t.Fatalf("[spec %d] expected sample mean within %g of %g; got %g", specIndex, tol, s.rate, mean)
		}
	}
}

func TestApply(t *testing.T) {
	expected := uniformBuffer(16, 16, 2, 0)
	syn, _ := New(4, 9)

	out, err := syn.Apply(expected)
	if err != nil {
		t.Fatal(err)
	}
	if expected.Pix[0] != 4 {
		t.Fatalf("expected background to be added in place; got %g", expected.Pix[0])
	}

	var sum float64
	for _, v := range out.Pix {
		sum += float64(v)
	}
	if mean := sum / float64(len(out.Pix)); mean < 3 || mean > 5 {
		t.Fatalf("expected background-only mean near 4; got %g", mean)
	}
}

func TestInvalidSynthesizer(t *testing.T) {
	if _, err := New(-1, 1); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for negative background; got %v", err)
	}

	syn := &Synthesizer{Background: 1}
	if _, err := syn.Sample(frame.New(1, 1, 1)); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for missing source; got %v", err)
	}

	buf := frame.New(2, 1, 1)
	buf.Pix[1] = -3
	syn, _ = New(0, 1)
	if _, err := syn.Sample(buf); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for negative rate; got %v", err)
	}
}
