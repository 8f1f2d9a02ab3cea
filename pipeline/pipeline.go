// Package pipeline wires the render, noise and assembly stages into a single
// sequential run over a flattened scenario list.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/psfgen/psfgen/config"
	"github.com/psfgen/psfgen/frame"
	"github.com/psfgen/psfgen/log"
	"github.com/psfgen/psfgen/noise"
	"github.com/psfgen/psfgen/psf"
	"github.com/psfgen/psfgen/scenario"
	"github.com/psfgen/psfgen/stack"
	"github.com/psfgen/psfgen/tracer"
	"golang.org/x/exp/rand"
)

var (
	ErrNoTracer = errors.New("pipeline: no tracer attached")
	ErrNoSource = errors.New("pipeline: no random source for the noise stage")
)

// The state shared by the stages of a single run.
type Run struct {
	Job *tracer.Job

	// Mean photon counts including the background term.
	Expected *frame.Buffer

	// Stochastic photon counts.
	Observed *frame.Buffer

	// The assembled output pages.
	Stack *stack.Stack
}

// An alias for functions that can be used as part of the pipeline.
type Stage func(ctx context.Context, p *Pipeline, run *Run) (time.Duration, error)

type namedStage struct {
	name string
	fn   Stage
}

// The output of a run.
type Result struct {
	Run

	Stats   Stats
	Summary Summary
}

type Pipeline struct {
	logger log.Logger

	// The compute backend for the render stage.
	Tracer tracer.Tracer

	// The point-spread model to integrate.
	Model psf.Model

	// Source for the noise stage.
	Src rand.Source

	stages []namedStage
}

// Create a pipeline with the default render, noise and assemble stages.
func New(tr tracer.Tracer, model psf.Model, src rand.Source) *Pipeline {
	p := &Pipeline{
		logger: log.New("pipeline"),
		Tracer: tr,
		Model:  model,
		Src:    src,
	}
	p.Append("render", Render())
	p.Append("noise", PoissonNoise())
	p.Append("assemble", Assemble())
	return p
}

// Append a stage to the pipeline.
func (p *Pipeline) Append(name string, fn Stage) {
	p.stages = append(p.stages, namedStage{name: name, fn: fn})
}

// Get the stage names in execution order.
func (p *Pipeline) StageNames() []string {
	names := make([]string, len(p.stages))
	for index, s := range p.stages {
		names[index] = s.name
	}
	return names
}

// Execute all stages in order. Any stage failure aborts the run and no
// partial result is returned.
func (p *Pipeline) Run(ctx context.Context, cfg *config.Config, layout *scenario.Layout) (*Result, error) {
	if p.Tracer == nil {
		return nil, ErrNoTracer
	}

	job := &tracer.Job{Config: cfg, Layout: layout, Model: p.Model}
	if err := job.Validate(); err != nil {
		return nil, err
	}

	res := &Result{Run: Run{Job: job}}
	start := time.Now()
	for _, s := range p.stages {
		elapsed, err := s.fn(ctx, p, &res.Run)
		if err != nil {
			return nil, fmt.Errorf("pipeline: %s stage failed: %w", s.name, err)
		}
		res.Stats.Stages = append(res.Stats.Stages, StageStat{Name: s.name, Time: elapsed})
		p.logger.Debugf("%s stage completed in %s", s.name, elapsed)
	}
	res.Stats.Total = time.Since(start)
	res.Stats.Tracer = *p.Tracer.Stats()

	clamped := 0
	if res.Stack != nil {
		clamped = res.Stack.Clamped
	}
	res.Summary = summarize(res.Expected, res.Observed, clamped)

	return res, nil
}

// Render the expectation buffer with the attached tracer.
func Render() Stage {
	return func(ctx context.Context, p *Pipeline, run *Run) (time.Duration, error) {
		start := time.Now()
		out, err := p.Tracer.Render(ctx, run.Job)
		if err != nil {
			return time.Since(start), err
		}
		run.Expected = out
		return time.Since(start), nil
	}
}

// Add the configured background and draw the Poisson photon counts.
func PoissonNoise() Stage {
	return func(ctx context.Context, p *Pipeline, run *Run) (time.Duration, error) {
		if p.Src == nil {
			return 0, ErrNoSource
		}

		start := time.Now()
		syn := &noise.Synthesizer{Background: run.Job.Config.BackgroundNoise, Src: p.Src}
		out, err := syn.Apply(run.Expected)
		if err != nil {
			return time.Since(start), err
		}
		run.Observed = out
		return time.Since(start), nil
	}
}

// Quantize the observed counts into output pages.
func Assemble() Stage {
	return func(ctx context.Context, p *Pipeline, run *Run) (time.Duration, error) {
		start := time.Now()
		src := run.Observed
		if src == nil {
			src = run.Expected
		}

		st, err := stack.Assemble(src)
		if err != nil {
			return time.Since(start), err
		}
		if st.Clamped > 0 {
			p.logger.Warningf("%d pixels exceeded %d photons and were clamped", st.Clamped, stack.MaxValue)
		}
		if st.Negative > 0 {
			p.logger.Warningf("%d pixels had negative counts and were written as 0", st.Negative)
		}
		run.Stack = st
		return time.Since(start), nil
	}
}
