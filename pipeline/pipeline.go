// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"bytes"
	"context"
	"time"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	"github.com/grailbio/rnavc/encoding/bamheader"
	"github.com/grailbio/rnavc/markduplicates"
)

// Pipeline runs the RNA variant calling stages. Concurrent runs must not
// share a MetricsOutputPath.
type Pipeline struct {
	opts Opts
	exec Executor
}

// Result describes a run. Run returns a partially filled Result alongside any
// error.
type Result struct {
	Names Names
	// Stages lists the stages that completed, in order.
	Stages []StageResult
	// Metrics holds the per-library duplication metrics, nil if they could
	// not be read.
	Metrics []markduplicates.Metrics
	// Variants is the number of records in the VCF, -1 if unknown.
	Variants int
	// CleanupFailures lists intermediates that could not be removed.
	CleanupFailures []CleanupFailure
}

// New creates a Pipeline that runs tools through exec.
func New(opts Opts, exec Executor) (*Pipeline, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	return &Pipeline{opts: opts, exec: exec}, nil
}

// Opts returns the pipeline's configuration.
func (p *Pipeline) Opts() Opts {
	return p.opts
}

// resolve checks the sort order of input and derives the run's names.
func (p *Pipeline) resolve(ctx context.Context, input string) (Names, error) {
	if _, err := DeriveNames(input, false, p.opts.MetricsOutputPath); err != nil {
		return Names{}, err
	}
	sorted, err := bamheader.IsCoordinateSorted(ctx, input)
	if err != nil {
		return Names{}, errors.E(err, "check sort order")
	}
	return DeriveNames(input, sorted, p.opts.MetricsOutputPath)
}

// Plan returns the commands a run over input would execute, without running
// anything. The reheader command's standard input, the rewritten header, is
// produced at run time and is absent from the plan.
func (p *Pipeline) Plan(ctx context.Context, input string) (Names, []Command, error) {
	n, err := p.resolve(ctx, input)
	if err != nil {
		return Names{}, nil, err
	}
	return n, p.opts.commands(n), nil
}

// Run executes every stage over input in order and removes the intermediate
// files. It stops at the first stage that fails, returning a *StageError;
// intermediates written by the stages that completed are still removed.
func (p *Pipeline) Run(ctx context.Context, input string) (*Result, error) {
	res := &Result{Variants: -1}
	n, err := p.resolve(ctx, input)
	if err != nil {
		return res, err
	}
	res.Names = n
	if n.SortSkipped() {
		log.Printf("%s is already sorted", input)
	}

	stages := []struct {
		stage  Stage
		output string
		run    func(context.Context, Names, *Result) error
	}{
		{Sort, n.Sorted, p.sort},
		{Reheader, n.Reheadered, p.reheader},
		{MarkDuplicates, n.Marked, p.markDuplicates},
		{SplitNCigarReads, n.Split, p.split},
		{HaplotypeCaller, n.VCF, p.call},
	}
	produced := map[string]bool{}
	for _, s := range stages {
		if s.stage == Sort && n.SortSkipped() {
			continue
		}
		start := time.Now()
		if err := s.run(ctx, n, res); err != nil {
			log.Error.Printf("%v", err)
			p.cleanup(ctx, res, produced)
			return res, err
		}
		produced[s.output] = true
		res.Stages = append(res.Stages, StageResult{Stage: s.stage, Output: s.output, Elapsed: time.Since(start)})
		log.Printf("%s: wrote %s in %v", s.stage, s.output, time.Since(start))
	}
	log.Printf("RNA variant calling output %s", n.VCF)
	p.cleanup(ctx, res, produced)
	return res, nil
}

// cleanup removes the intermediates among produced.
func (p *Pipeline) cleanup(ctx context.Context, res *Result, produced map[string]bool) {
	var paths []string
	for _, path := range res.Names.Intermediates() {
		if produced[path] && path != res.Names.Input {
			paths = append(paths, path)
		}
	}
	if len(paths) == 0 {
		return
	}
	if p.opts.KeepIntermediates {
		log.Printf("keeping intermediate files %v", paths)
		return
	}
	res.CleanupFailures = Cleanup(ctx, paths)
	log.Printf("done cleaning up intermediate files")
}

// run executes c and checks its output. Commands with Redirect set have
// their standard output written to c.Output.
func (p *Pipeline) run(ctx context.Context, c Command) (err error) {
	var out file.File
	if c.Redirect {
		if out, err = file.Create(ctx, c.Output); err != nil {
			return &StageError{Stage: c.Stage, CmdLine: c.String(), ExitCode: -1, Err: errors.E(err, "create", c.Output)}
		}
		c.Stdout = out.Writer(ctx)
	}
	log.Printf("%s: %v", c.Stage, c)
	err = p.exec.Execute(ctx, c)
	if out != nil {
		if e := out.Close(ctx); e != nil && err == nil {
			err = errors.E(e, "close", c.Output)
		}
	}
	if err != nil {
		return newStageError(c, err)
	}
	if c.Output != "" {
		if err := checkOutput(ctx, c.Output); err != nil {
			return &StageError{Stage: c.Stage, CmdLine: c.String(), Err: err}
		}
	}
	return nil
}

func (p *Pipeline) sort(ctx context.Context, n Names, _ *Result) error {
	return p.run(ctx, p.opts.sortCommand(n))
}

func (p *Pipeline) reheader(ctx context.Context, n Names, _ *Result) error {
	var header bytes.Buffer
	view := p.opts.viewHeaderCommand(n)
	view.Stdout = &header
	if err := p.run(ctx, view); err != nil {
		return err
	}
	text, err := bamheader.RewriteReadGroups(header.Bytes(), bamheader.SyntheticReadGroup)
	if err != nil {
		return &StageError{Stage: Reheader, CmdLine: view.String(), Err: err}
	}
	rh := p.opts.reheaderCommand(n)
	rh.Stdin = bytes.NewReader(text)
	return p.run(ctx, rh)
}

func (p *Pipeline) markDuplicates(ctx context.Context, n Names, res *Result) error {
	if err := p.run(ctx, p.opts.markDuplicatesCommand(n)); err != nil {
		return err
	}
	libs, err := markduplicates.ReadMetrics(ctx, n.Metrics)
	if err != nil {
		log.Error.Printf("duplication metrics unavailable: %v", err)
		return nil
	}
	total := markduplicates.Total(libs)
	log.Printf("duplication metrics: %v", &total)
	res.Metrics = libs
	return nil
}

func (p *Pipeline) split(ctx context.Context, n Names, _ *Result) error {
	return p.run(ctx, p.opts.splitCommand(n))
}

func (p *Pipeline) call(ctx context.Context, n Names, res *Result) error {
	if err := p.run(ctx, p.opts.callCommand(n)); err != nil {
		return err
	}
	nvar, err := countVariants(ctx, n.VCF)
	if err != nil {
		log.Error.Printf("cannot summarize variants: %v", err)
		return nil
	}
	log.Printf("%s: %d variant records", n.VCF, nvar)
	res.Variants = nvar
	return nil
}
