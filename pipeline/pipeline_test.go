package pipeline

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/noise"
	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/scenario"
	"github.com/psfgen/psfgen/tracer"
	"github.com/psfgen/psfgen/tracer/cpu"
)

func makeConfig(t *testing.T, h scenario.Header, subsamples int) *config.Config {
	cfg, err := config.New(h, subsamples)
	if err != nil {
		t.Fatal(err)
	}
	return cfg
}

func makeLayout(t *testing.T, scenarios []scenario.Scenario) *scenario.Layout {
	layout, err := scenario.Flatten(scenarios, false)
	if err != nil {
		t.Fatal(err)
	}
	return layout
}

func TestRunStages(t *testing.T) {
	tr := cpu.New("test", 2, 0)
	defer tr.Close()

	h := scenario.Header{Width: 8, Height: 6, Usable: 99, Gap: 11, Noise: 2, Wavelength: 550}
	scenarios := []scenario.Scenario{
		{Emitters: []scenario.Emitter{{X: 400, Y: 300, Intensity: 500, Width: 1.8666}}},
		{},
	}

	p := New(tr, psf.Airy{}, noise.NewSource(11))
	res, err := p.Run(context.Background(), makeConfig(t, h, 16), makeLayout(t, scenarios))
	if err != nil {
		t.Fatal(err)
	}

	expNames := []string{"render", "noise", "assemble"}
	if len(res.Stats.Stages) != len(expNames) {
		t.Fatalf("expected %d stage stats; got %d", len(expNames), len(res.Stats.Stages))
	}
	for index, name := range expNames {
		if res.Stats.Stages[index].Name != name {
			t.Fatalf("expected stage %d to be %q; got %q", index, name, res.Stats.Stages[index].Name)
		}
	}
	if res.Stats.Tracer.WorkUnits != 2*8*6 {
		t.Fatalf("expected tracer stats for %d work units; got %d", 2*8*6, res.Stats.Tracer.WorkUnits)
	}

	if len(res.Stack.Pages) != 2 {
		t.Fatalf("expected 2 pages; got %d", len(res.Stack.Pages))
	}

	// The empty scenario only carries the background.
	for _, v := range res.Expected.Image(1) {
		if v != 2 {
			t.Fatalf("expected background-only rate of 2; got %g", v)
		}
	}

	if res.Summary.ExpectedMin != 2*8*6 {
		t.Fatalf("expected minimum scenario total to be the background total %d; got %g", 2*8*6, res.Summary.ExpectedMin)
	}
	if !(res.Summary.ExpectedMax > res.Summary.ExpectedMin) {
		t.Fatalf("expected emitter scenario to be brighter than the background; got max %g", res.Summary.ExpectedMax)
	}
}

func TestRunZeroNoiseEmptyScenario(t *testing.T) {
	tr := cpu.New("test", 2, 0)
	defer tr.Close()

	h := scenario.Header{Width: 5, Height: 5, Usable: 99, Gap: 11, Noise: 0, Wavelength: 550}
	p := New(tr, psf.Airy{}, noise.NewSource(1))
	res, err := p.Run(context.Background(), makeConfig(t, h, 4), makeLayout(t, []scenario.Scenario{{}}))
	if err != nil {
		t.Fatal(err)
	}

	for y := 0; y < 5; y++ {
		for x := 0; x < 5; x++ {
			if v := res.Stack.Pages[0].Gray16At(x, y).Y; v != 0 {
				t.Fatalf("expected zero photons at (%d, %d); got %d", x, y, v)
			}
		}
	}
}

func TestRunIsReproducible(t *testing.T) {
	h := scenario.Header{Width: 10, Height: 10, Usable: 99, Gap: 11, Noise: 3, Wavelength: 550}
	scenarios := []scenario.Scenario{
		{Emitters: []scenario.Emitter{{X: 500, Y: 520, Intensity: 2000, Width: 1.8666}}},
		{Emitters: []scenario.Emitter{{X: 210, Y: 760, Intensity: 900, Width: 1.8666}}},
	}

	run := func(seed uint64) []byte {
		tr := cpu.New("test", 4, 0)
		defer tr.Close()
		p := New(tr, psf.Airy{}, noise.NewSource(seed))
		res, err := p.Run(context.Background(), makeConfig(t, h, 25), makeLayout(t, scenarios))
		if err != nil {
			t.Fatal(err)
		}
		var out []byte
		for _, page := range res.Stack.Pages {
			out = append(out, page.Pix...)
		}
		return out
	}

	a, b, c := run(99), run(99), run(100)
	if string(a) != string(b) {
		t.Fatal("expected identical seeds to produce identical stacks")
	}
	if string(a) == string(c) {
		t.Fatal("expected different seeds to produce different stacks")
	}
}

func TestRunEndToEnd(t *testing.T) {
	// Gapless 24x24 sensor with the emitter at the center of pixel (12, 12).
	h := scenario.Header{Width: 24, Height: 24, Usable: 110, Gap: 0, Noise: 0, Wavelength: 550}
	cfg := makeConfig(t, h, 100)
	if cfg.SubsampleEdge != 10 {
		t.Fatalf("expected subsample edge 10; got %d", cfg.SubsampleEdge)
	}
	em := scenario.Emitter{X: 12*110 + 55, Y: 12*110 + 55, Intensity: 1000, Width: 1.8666}
	layout := makeLayout(t, []scenario.Scenario{{Emitters: []scenario.Emitter{em}}})

	tr := cpu.New("test", 4, 0)
	defer tr.Close()

	const runs = 20
	var observed, expected float64
	for seed := uint64(1); seed <= runs; seed++ {
		p := New(tr, psf.Airy{}, noise.NewSource(seed))
		res, err := p.Run(context.Background(), cfg, layout)
		if err != nil {
			t.Fatal(err)
		}

		brightest := 0
		pix := res.Expected.Pix
		for index, v := range pix {
			if v > pix[brightest] {
				brightest = index
			}
		}
		if col, row := brightest%24, brightest/24; col != 12 || row != 12 {
			t.Fatalf("expected brightest pixel at (12, 12); got (%d, %d)", col, row)
		}

		expected = res.Summary.ExpectedMean
		page := res.Stack.Pages[0]
		for y := 0; y < 24; y++ {
			for x := 0; x < 24; x++ {
				observed += float64(page.Gray16At(x, y).Y)
			}
		}
	}

	// The sensor misses only the far Airy tail.
	if expected < 950 || expected > 1000 {
		t.Fatalf("expected total expectation close to the emitter intensity; got %g", expected)
	}

	// Mean of 20 Poisson totals; allow 5 standard errors.
	mean := observed / runs
	if tol := 5 * math.Sqrt(expected/runs); math.Abs(mean-expected) > tol {
		t.Fatalf("expected mean observed total within %g of %g; got %g", tol, expected, mean)
	}
}

func TestRunErrors(t *testing.T) {
	h := scenario.Header{Width: 4, Height: 4, Usable: 99, Gap: 11, Noise: 1, Wavelength: 550}
	cfg := makeConfig(t, h, 4)
	layout := makeLayout(t, []scenario.Scenario{{}})

	if _, err := (&Pipeline{}).Run(context.Background(), cfg, layout); !errors.Is(err, ErrNoTracer) {
		t.Fatalf("expected ErrNoTracer; got %v", err)
	}

	tr := cpu.New("test", 1, 0)
	defer tr.Close()

	if _, err := New(tr, psf.Airy{}, nil).Run(context.Background(), cfg, layout); !errors.Is(err, ErrNoSource) {
		t.Fatalf("expected ErrNoSource; got %v", err)
	}

	if _, err := New(tr, nil, noise.NewSource(1)).Run(context.Background(), cfg, layout); !errors.Is(err, config.ErrInvalidConfiguration) {
		t.Fatalf("expected ErrInvalidConfiguration for a missing model; got %v", err)
	}

	small := cpu.New("small", 1, 8)
	defer small.Close()
	if _, err := New(small, psf.Airy{}, noise.NewSource(1)).Run(context.Background(), cfg, layout); !errors.Is(err, tracer.ErrOutOfDeviceMemory) {
		t.Fatalf("expected ErrOutOfDeviceMemory; got %v", err)
	}
}

func TestAppendStage(t *testing.T) {
	tr := cpu.New("test", 1, 0)
	defer tr.Close()

	h := scenario.Header{Width: 3, Height: 3, Usable: 99, Gap: 11, Noise: 0, Wavelength: 550}
	p := New(tr, psf.Gaussian{}, noise.NewSource(1))

	called := false
	p.Append("inspect", func(ctx context.Context, p *Pipeline, run *Run) (time.Duration, error) {
		called = run.Stack != nil
		return 0, nil
	})

	res, err := p.Run(context.Background(), makeConfig(t, h, 1), makeLayout(t, []scenario.Scenario{{}}))
	if err != nil {
		t.Fatal(err)
	}
	if !called {
		t.Fatal("expected appended stage to run after assembly")
	}
	if names := p.StageNames(); len(names) != 4 || names[3] != "inspect" || len(res.Stats.Stages) != 4 {
		t.Fatalf("expected 4 stages ending with inspect; got %v", names)
	}
}
