// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"context"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/traverse"
	"github.com/grailbio/rnavc/encoding/bamheader"
	"github.com/grailbio/rnavc/encoding/fasta"
	"v.io/x/lib/envvar"
	"v.io/x/lib/lookpath"
	"v.io/x/lib/vlog"
)

// checkExecutable checks that path names an executable, searching $PATH in
// env for bare names.
func checkExecutable(env map[string]string, path string) error {
	if !strings.Contains(path, "/") {
		if _, err := lookpath.Look(env, path); err != nil {
			return errors.E(errors.NotExist, path, "not found in $PATH")
		}
		return nil
	}
	info, err := os.Stat(path)
	if err != nil {
		return errors.E(errors.NotExist, err, path)
	}
	if info.IsDir() || info.Mode()&0111 == 0 {
		return errors.E(errors.Precondition, path, "is not executable")
	}
	return nil
}

// checkTool checks a tool path: jars must exist, anything else must be
// executable.
func checkTool(ctx context.Context, env map[string]string, path string) error {
	if !isJar(path) {
		return checkExecutable(env, path)
	}
	if _, err := file.Stat(ctx, path); err != nil {
		return errors.E(errors.NotExist, err, "jar", path)
	}
	return nil
}

// Preflight checks, before any tool runs, that the tools in opts exist, that
// input is a readable alignment, and that the reference has an index and
// dictionary consistent with input's contigs. All problems found are
// reported together.
func Preflight(ctx context.Context, opts Opts, input string) error {
	if err := opts.Validate(); err != nil {
		return err
	}
	if _, err := DeriveNames(input, false, opts.MetricsOutputPath); err != nil {
		return err
	}
	env := envvar.SliceToMap(os.Environ())
	var checks []func() error
	for _, path := range []string{opts.SortToolPath, opts.HeaderToolPath, opts.DupMarkerPath, opts.SplitterPath, opts.CallerPath} {
		path := path
		checks = append(checks, func() error { return checkTool(ctx, env, path) })
	}
	if opts.usesJava() {
		checks = append(checks, func() error { return checkExecutable(env, opts.JavaPath) })
	}
	checks = append(checks, func() error {
		ref, err := fasta.OpenReference(ctx, opts.ReferencePath)
		if err != nil {
			return errors.E(errors.Precondition, err)
		}
		header, err := bamheader.ReadHeader(ctx, input)
		if err != nil {
			return err
		}
		if err := ref.CheckContigs(header); err != nil {
			return errors.E(errors.Precondition, err, input)
		}
		return nil
	})

	errs := make([]error, len(checks))
	_ = traverse.Each(len(checks), func(i int) error {
		errs[i] = checks[i]()
		return nil
	})
	var msgs []string
	for _, err := range errs {
		if err != nil {
			msgs = append(msgs, err.Error())
		}
	}
	if len(msgs) > 0 {
		return errors.E(errors.Precondition, "preflight:\n\t"+strings.Join(msgs, "\n\t"))
	}
	vlog.VI(1).Infof("preflight: %d checks passed", len(checks))
	return nil
}
