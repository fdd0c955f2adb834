// Copyright 2018 GRAIL, Inc. All rights reserved.
// Use of this source code is governed by the Apache 2.0
// license that can be found in the LICENSE file.

package pipeline

import (
	"strings"

	"github.com/grailbio/base/errors"
)

const bamSuffix = ".bam"

// Names lists the files a run reads and writes.
type Names struct {
	// Input is the STAR-aligned BAM.
	Input string
	// Sorted is the coordinate-sorted BAM. It equals Input when the input is
	// already sorted.
	Sorted string
	// Reheadered is Sorted with the synthetic read group installed.
	Reheadered string
	// Marked is the duplicate-marked BAM.
	Marked string
	// MarkedIndex is the index picard writes next to Marked.
	MarkedIndex string
	// Metrics is the duplication metrics report.
	Metrics string
	// Split is Marked after SplitNCigarReads.
	Split string
	// VCF is the final variant call file.
	VCF string
}

// replaceBAMSuffix replaces the trailing ".bam" of path with repl.
//
// REQUIRES: path ends in ".bam".
func replaceBAMSuffix(path, repl string) string {
	return strings.TrimSuffix(path, bamSuffix) + repl
}

// DeriveNames computes the file names of a run over input. If sorted is true
// the sort stage is skipped and Sorted aliases Input. Each later name is
// derived from the one before it. If metricsPath is empty the metrics path is
// derived from input.
func DeriveNames(input string, sorted bool, metricsPath string) (Names, error) {
	if !strings.HasSuffix(input, bamSuffix) || len(input) == len(bamSuffix) {
		return Names{}, errors.E(errors.Invalid, input, "does not name a .bam file")
	}
	n := Names{Input: input, Sorted: input}
	if !sorted {
		n.Sorted = replaceBAMSuffix(input, ".sorted.bam")
	}
	n.Reheadered = replaceBAMSuffix(n.Sorted, ".rg.bam")
	n.Marked = replaceBAMSuffix(n.Reheadered, ".md.bam")
	n.MarkedIndex = replaceBAMSuffix(n.Marked, ".bai")
	n.Split = replaceBAMSuffix(n.Marked, ".split.bam")
	n.VCF = replaceBAMSuffix(n.Split, ".bam.vcf")
	n.Metrics = metricsPath
	if n.Metrics == "" {
		n.Metrics = replaceBAMSuffix(input, ".md.metrics")
	}
	return n, nil
}

// SortSkipped reports whether Sorted aliases Input.
func (n Names) SortSkipped() bool {
	return n.Sorted == n.Input
}

// Intermediates lists the files removed once the VCF exists: the sorted BAM,
// unless it is the input itself, and the marked BAM.
func (n Names) Intermediates() []string {
	var paths []string
	if !n.SortSkipped() {
		paths = append(paths, n.Sorted)
	}
	return append(paths, n.Marked)
}

// Outputs lists the files that remain after a successful run.
func (n Names) Outputs() []string {
	return []string{n.Reheadered, n.MarkedIndex, n.Metrics, n.Split, n.VCF}
}
