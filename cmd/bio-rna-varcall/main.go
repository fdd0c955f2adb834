// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/grailbio/base/cmdutil"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/rnavc/pipeline"
	"v.io/x/lib/cmdline"
)

type flags struct {
	input             string
	config            string
	sortTool          string
	headerTool        string
	dupMarker         string
	splitter          string
	caller            string
	java              string
	javaOpts          string
	reference         string
	metricsOutput     string
	keepIntermediates bool
	dryRun            bool
	skipPreflight     bool
}

// opts returns the config file and environment settings overridden by any
// flags that were set.
func (f *flags) opts() (pipeline.Opts, error) {
	opts, err := pipeline.LoadOpts(f.config)
	if err != nil {
		return opts, err
	}
	for _, o := range []struct {
		flag string
		dst  *string
	}{
		{f.sortTool, &opts.SortToolPath},
		{f.headerTool, &opts.HeaderToolPath},
		{f.dupMarker, &opts.DupMarkerPath},
		{f.splitter, &opts.SplitterPath},
		{f.caller, &opts.CallerPath},
		{f.java, &opts.JavaPath},
		{f.reference, &opts.ReferencePath},
		{f.metricsOutput, &opts.MetricsOutputPath},
	} {
		if o.flag != "" {
			*o.dst = o.flag
		}
	}
	if f.javaOpts != "" {
		opts.JavaOpts = strings.Fields(f.javaOpts)
	}
	if f.keepIntermediates {
		opts.KeepIntermediates = true
	}
	return opts, nil
}

// withSignals returns a context that is cancelled on SIGINT or SIGTERM.
func withSignals(ctx context.Context) (context.Context, func()) {
	ctx, cancel := context.WithCancel(ctx)
	sigc := make(chan os.Signal, 1)
	signal.Notify(sigc, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case sig := <-sigc:
			log.Error.Printf("received %v, stopping", sig)
			cancel()
		case <-ctx.Done():
		}
	}()
	return ctx, func() {
		signal.Stop(sigc)
		cancel()
	}
}

func run(ctx context.Context, env *cmdline.Env, f *flags) error {
	if f.input == "" {
		return env.UsageErrorf("-input_star_bam is required")
	}
	opts, err := f.opts()
	if err != nil {
		return err
	}
	// Stdout carries only the VCF path; tool output goes to stderr.
	p, err := pipeline.New(opts, &pipeline.ProcessExecutor{Stdout: env.Stderr, Stderr: env.Stderr})
	if err != nil {
		return err
	}
	if f.dryRun {
		_, cmds, err := p.Plan(ctx, f.input)
		if err != nil {
			return err
		}
		for _, c := range cmds {
			fmt.Fprintln(env.Stdout, c.String())
		}
		return nil
	}
	if !f.skipPreflight {
		if err := pipeline.Preflight(ctx, opts, f.input); err != nil {
			return err
		}
	}
	res, err := p.Run(ctx, f.input)
	if err != nil {
		return err
	}
	if len(res.CleanupFailures) > 0 {
		log.Error.Printf("%d intermediate file(s) could not be removed", len(res.CleanupFailures))
	}
	fmt.Fprintln(env.Stdout, res.Names.VCF)
	return nil
}

func newCmdRoot() *cmdline.Command {
	cmd := &cmdline.Command{
		Name:     "bio-rna-varcall",
		Short:    "Call variants on a STAR-aligned RNA-seq BAM",
		LookPath: false,
	}
	d := pipeline.DefaultOpts
	f := &flags{}
	cmd.Flags.StringVar(&f.input, "input_star_bam", "", "STAR-aligned input BAM; required")
	cmd.Flags.StringVar(&f.input, "i", "", "Shorthand for -input_star_bam")
	cmd.Flags.StringVar(&f.config, "config", "", "Config file (yaml, json or toml) holding tool paths and options")
	cmd.Flags.StringVar(&f.sortTool, "sort-tool", "", fmt.Sprintf("samtools used for sorting (default %q)", d.SortToolPath))
	cmd.Flags.StringVar(&f.headerTool, "header-tool", "", fmt.Sprintf("samtools used for reheadering (default %q)", d.HeaderToolPath))
	cmd.Flags.StringVar(&f.dupMarker, "dup-marker", "", fmt.Sprintf("picard jar or wrapper (default %q)", d.DupMarkerPath))
	cmd.Flags.StringVar(&f.splitter, "splitter", "", fmt.Sprintf("GATK 3 jar or wrapper for SplitNCigarReads (default %q)", d.SplitterPath))
	cmd.Flags.StringVar(&f.caller, "caller", "", fmt.Sprintf("GATK 3 jar or wrapper for HaplotypeCaller (default %q)", d.CallerPath))
	cmd.Flags.StringVar(&f.java, "java", "", fmt.Sprintf("java used to run .jar tools (default %q)", d.JavaPath))
	cmd.Flags.StringVar(&f.javaOpts, "java-opts", "", "Space-separated JVM options, e.g. \"-Xmx8g\"")
	cmd.Flags.StringVar(&f.reference, "reference", "", "Reference FASTA with .fai and .dict companions; required")
	cmd.Flags.StringVar(&f.metricsOutput, "metrics-output", "", "MarkDuplicates metrics path. By default, <input minus .bam>.md.metrics")
	cmd.Flags.BoolVar(&f.keepIntermediates, "keep-intermediates", false, "Keep the sorted and duplicate-marked BAMs")
	cmd.Flags.BoolVar(&f.dryRun, "dry-run", false, "Print the commands that would run and exit")
	cmd.Flags.BoolVar(&f.skipPreflight, "skip-preflight", false, "Do not check tools and the reference before running")
	cmd.Runner = cmdutil.RunnerFunc(func(env *cmdline.Env, argv []string) error {
		if len(argv) != 0 {
			return env.UsageErrorf("unexpected arguments %v", argv)
		}
		ctx, cancel := withSignals(vcontext.Background())
		defer cancel()
		err := run(ctx, env, f)
		if err != nil && ctx.Err() != nil {
			log.Error.Printf("cancelled; partial outputs were left in place")
		}
		return err
	})
	return cmd
}

func main() {
	cmdline.HideGlobalFlagsExcept()
	cmdline.Main(newCmdRoot())
}
