package pipeline

import (
	"time"

	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/tracer"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"
)

type StageStat struct {
	// The stage name.
	Name string

	// Time spent executing the stage.
	Time time.Duration
}

type Stats struct {
	// Individual stage stats in execution order.
	Stages []StageStat

	// Statistics reported by the tracer for the render stage.
	Tracer tracer.Stats

	// Total time for the entire run.
	Total time.Duration
}

// Per-scenario photon totals.
type Summary struct {
	// Mean, min and max total expected photons per scenario, including
	// the background term.
	ExpectedMean float64
	ExpectedMin  float64
	ExpectedMax  float64

	// Mean total observed photons per scenario and its standard deviation.
	ObservedMean   float64
	ObservedStdDev float64

	// Number of saturated output pixels.
	Clamped int
}

// Get the photon total for every scenario image in a buffer.
func ScenarioTotals(buf *frame.Buffer) []float64 {
	totals := make([]float64, buf.Scenarios)
	row := make([]float64, buf.Width*buf.Height)
	for i := range totals {
		for index, v := range buf.Image(i) {
			row[index] = float64(v)
		}
		totals[i] = floats.Sum(row)
	}
	return totals
}

func summarize(expected, observed *frame.Buffer, clamped int) Summary {
	sum := Summary{Clamped: clamped}
	if expected == nil || expected.Scenarios == 0 {
		return sum
	}

	exp := ScenarioTotals(expected)
	sum.ExpectedMean = stat.Mean(exp, nil)
	sum.ExpectedMin = floats.Min(exp)
	sum.ExpectedMax = floats.Max(exp)

	if observed != nil {
		obs := ScenarioTotals(observed)
		if len(obs) > 1 {
			sum.ObservedMean, sum.ObservedStdDev = stat.MeanStdDev(obs, nil)
		} else {
			sum.ObservedMean = obs[0]
		}
	}
	return sum
}
